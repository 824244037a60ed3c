// Package sqlite stores everything in a single SQLite file through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/baharkarakas/chainspend/internal/models"
	"github.com/baharkarakas/chainspend/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sqlitedriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type transactionRow struct {
	ID       string          `gorm:"primaryKey;size:36"`
	UserID   int64           `gorm:"not null;index:idx_tx_user_ts,priority:1"`
	Hash     string          `gorm:"uniqueIndex;not null"`
	FromAddr string          `gorm:"not null"`
	ToAddr   string          `gorm:"not null"`
	Amount   decimal.Decimal `gorm:"type:text;not null"`
	Ts       time.Time       `gorm:"not null;index:idx_tx_user_ts,priority:2"`
	Currency string          `gorm:"not null"`
	Category string          `gorm:"not null"`
	Status   string          `gorm:"not null"`
	Type     string          `gorm:"not null"`
}

func (transactionRow) TableName() string { return "transactions" }

type budgetRow struct {
	ID          string          `gorm:"primaryKey;size:36"`
	UserID      int64           `gorm:"uniqueIndex;not null"`
	Amount      decimal.Decimal `gorm:"type:text;not null"`
	PeriodStart time.Time       `gorm:"not null"`
	PeriodEnd   time.Time       `gorm:"not null"`
	Currency    string          `gorm:"not null"`
	Notified    bool            `gorm:"not null;default:false"`
}

func (budgetRow) TableName() string { return "budgets" }

type notificationRow struct {
	ID      string    `gorm:"primaryKey;size:36"`
	UserID  int64     `gorm:"not null;index"`
	Message string    `gorm:"not null"`
	Ts      time.Time `gorm:"not null"`
	Read    bool      `gorm:"not null;default:false"`
}

func (notificationRow) TableName() string { return "notifications" }

// Open connects to the SQLite file at path and migrates the schema.
func Open(path string) (repository.Store, error) {
	db, err := gorm.Open(sqlitedriver.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return repository.Store{}, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return repository.Store{}, err
	}
	// SQLite allows one writer; a single connection serializes writes instead of failing with SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&transactionRow{}, &budgetRow{}, &notificationRow{}); err != nil {
		return repository.Store{}, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return repository.Store{
		Transactions:  &transactionsRepo{db},
		Budgets:       &budgetsRepo{db},
		Notifications: &notificationsRepo{db},
		Close: func(context.Context) error { return sqlDB.Close() },
	}, nil
}

type transactionsRepo struct{ db *gorm.DB }

func (r *transactionsRepo) Exists(ctx context.Context, hash string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&transactionRow{}).Where("hash = ?", hash).Count(&n).Error
	return n > 0, err
}

func (r *transactionsRepo) Insert(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	row := toTransactionRow(tx)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "hash"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return models.Transaction{}, fmt.Errorf("failed to save transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Transaction{}, repository.ErrConflict
	}
	return tx, nil
}

func (r *transactionsRepo) GetByHash(ctx context.Context, hash string) (models.Transaction, error) {
	var row transactionRow
	err := r.db.WithContext(ctx).Where("hash = ?", hash).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Transaction{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, err
	}
	return row.model(), nil
}

func (r *transactionsRepo) ListByUser(ctx context.Context, userID int64) ([]models.Transaction, error) {
	var rows []transactionRow
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("ts DESC, hash").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, nil
}

func toTransactionRow(tx models.Transaction) transactionRow {
	return transactionRow{
		ID: tx.ID, UserID: tx.UserID, Hash: tx.Hash, FromAddr: tx.From, ToAddr: tx.To,
		Amount: tx.Amount, Ts: tx.Timestamp.UTC(), Currency: tx.Currency, Category: tx.Category,
		Status: string(tx.Status), Type: string(tx.Type),
	}
}

func (row transactionRow) model() models.Transaction {
	return models.Transaction{
		ID: row.ID, UserID: row.UserID, Hash: row.Hash, From: row.FromAddr, To: row.ToAddr,
		Amount: row.Amount, Timestamp: row.Ts, Currency: row.Currency, Category: row.Category,
		Status: models.TransactionStatus(row.Status), Type: models.TransactionType(row.Type),
	}
}

type budgetsRepo struct{ db *gorm.DB }

func (r *budgetsRepo) GetByUser(ctx context.Context, userID int64) (models.Budget, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *budgetsRepo) GetByID(ctx context.Context, id string) (models.Budget, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *budgetsRepo) Upsert(ctx context.Context, b models.Budget) (models.Budget, error) {
	var out models.Budget
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur budgetRow
		err := tx.Where("user_id = ?", b.UserID).First(&cur).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			b.ID = uuid.NewString()
		case err != nil:
			return err
		default:
			b.ID = cur.ID
		}
		b.Notified = false
		row := toBudgetRow(b)
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		out = row.model()
		return nil
	})
	return out, err
}

func (r *budgetsRepo) Update(ctx context.Context, b models.Budget) (models.Budget, error) {
	b.Notified = false
	row := toBudgetRow(b)
	res := r.db.WithContext(ctx).Model(&budgetRow{}).Where("id = ?", b.ID).
		Select("user_id", "amount", "period_start", "period_end", "currency", "notified").
		Updates(&row)
	if res.Error != nil {
		return models.Budget{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.Budget{}, repository.ErrNotFound
	}
	return row.model(), nil
}

func (r *budgetsRepo) MarkNotified(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&budgetRow{}).
		Where("id = ? AND notified = ?", id, false).
		Update("notified", true)
	return res.RowsAffected == 1, res.Error
}

func (r *budgetsRepo) ClearNotified(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&budgetRow{}).Where("id = ?", id).Update("notified", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *budgetsRepo) first(ctx context.Context, query string, arg any) (models.Budget, error) {
	var row budgetRow
	err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Budget{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Budget{}, err
	}
	return row.model(), nil
}

func toBudgetRow(b models.Budget) budgetRow {
	return budgetRow{
		ID: b.ID, UserID: b.UserID, Amount: b.Amount, PeriodStart: b.PeriodStart.UTC(),
		PeriodEnd: b.PeriodEnd.UTC(), Currency: b.Currency, Notified: b.Notified,
	}
}

func (row budgetRow) model() models.Budget {
	return models.Budget{
		ID: row.ID, UserID: row.UserID, Amount: row.Amount, PeriodStart: row.PeriodStart,
		PeriodEnd: row.PeriodEnd, Currency: row.Currency, Notified: row.Notified,
	}
}

type notificationsRepo struct{ db *gorm.DB }

func (r *notificationsRepo) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	row := notificationRow{ID: uuid.NewString(), UserID: n.UserID, Message: n.Message, Ts: n.Timestamp.UTC()}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Notification{}, err
	}
	return row.model(), nil
}

func (r *notificationsRepo) ListByUser(ctx context.Context, userID int64) ([]models.Notification, error) {
	var rows []notificationRow
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("ts DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, nil
}

func (r *notificationsRepo) MarkRead(ctx context.Context, id string) (models.Notification, error) {
	res := r.db.WithContext(ctx).Model(&notificationRow{}).Where("id = ?", id).Update("read", true)
	if res.Error != nil {
		return models.Notification{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.Notification{}, repository.ErrNotFound
	}
	var row notificationRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return models.Notification{}, err
	}
	return row.model(), nil
}

func (row notificationRow) model() models.Notification {
	return models.Notification{ID: row.ID, UserID: row.UserID, Message: row.Message, Timestamp: row.Ts, Read: row.Read}
}
