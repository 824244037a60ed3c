package postgres

import (
	"context"
	"errors"

	"github.com/baharkarakas/chainspend/internal/models"
	"github.com/baharkarakas/chainspend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type budgetsRepo struct{ pool *pgxpool.Pool }

const budgetColumns = `id::text, user_id, amount::text, period_start, period_end, currency, notified`

func (r *budgetsRepo) GetByUser(ctx context.Context, userID int64) (models.Budget, error) {
	return r.one(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE user_id=$1`, userID)
}

func (r *budgetsRepo) GetByID(ctx context.Context, id string) (models.Budget, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Budget{}, repository.ErrNotFound
	}
	return r.one(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id=$1`, id)
}

// Upsert keeps one budget row per user; a replacement keeps the row id and clears notified.
func (r *budgetsRepo) Upsert(ctx context.Context, b models.Budget) (models.Budget, error) {
	return r.one(ctx, `
INSERT INTO budgets (id, user_id, amount, period_start, period_end, currency, notified)
VALUES ($1,$2,$3::numeric,$4,$5,$6,false)
ON CONFLICT (user_id) DO UPDATE
SET amount = EXCLUDED.amount,
    period_start = EXCLUDED.period_start,
    period_end = EXCLUDED.period_end,
    currency = EXCLUDED.currency,
    notified = false
RETURNING `+budgetColumns,
		uuid.NewString(), b.UserID, b.Amount.String(), b.PeriodStart, b.PeriodEnd, b.Currency,
	)
}

func (r *budgetsRepo) Update(ctx context.Context, b models.Budget) (models.Budget, error) {
	if _, err := uuid.Parse(b.ID); err != nil {
		return models.Budget{}, repository.ErrNotFound
	}
	return r.one(ctx, `
UPDATE budgets
   SET user_id=$2, amount=$3::numeric, period_start=$4, period_end=$5, currency=$6, notified=false
 WHERE id=$1
RETURNING `+budgetColumns,
		b.ID, b.UserID, b.Amount.String(), b.PeriodStart, b.PeriodEnd, b.Currency,
	)
}

func (r *budgetsRepo) MarkNotified(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, repository.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `UPDATE budgets SET notified=true WHERE id=$1 AND notified=false`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *budgetsRepo) ClearNotified(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return repository.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `UPDATE budgets SET notified=false WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *budgetsRepo) one(ctx context.Context, q string, args ...any) (models.Budget, error) {
	var (
		b      models.Budget
		amount string
	)
	err := r.pool.QueryRow(ctx, q, args...).
		Scan(&b.ID, &b.UserID, &amount, &b.PeriodStart, &b.PeriodEnd, &b.Currency, &b.Notified)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Budget{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Budget{}, err
	}
	b.Amount, err = decimal.NewFromString(amount)
	return b, err
}
