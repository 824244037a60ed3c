package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/chainspend/internal/api/validate"
	"github.com/baharkarakas/chainspend/internal/models"
	repo "github.com/baharkarakas/chainspend/internal/repository"
)

type TransactionService struct {
	trx    repo.Transactions
	budget *BudgetService
	log    *slog.Logger
	nowFn  func() time.Time
}

func NewTransactionService(t repo.Transactions, b *BudgetService, log *slog.Logger) *TransactionService {
	if log == nil {
		log = slog.Default()
	}
	return &TransactionService{trx: t, budget: b, log: log, nowFn: time.Now}
}

// NewTransaction is a manually entered transaction. Timestamp, Currency and
// Category are optional; everything else is required.
type NewTransaction struct {
	UserID    int64
	Hash      string
	From      string
	To        string
	Amount    *decimal.Decimal
	Timestamp time.Time
	Currency  string
	Category  string
	Status    string
	Type      string
}

// Create stores a single transaction; a known hash yields repo.ErrConflict.
func (s *TransactionService) Create(ctx context.Context, in NewTransaction) (models.Transaction, error) {
	errs := validate.Collect(
		validate.Required("hash", in.Hash),
		validate.Required("from", in.From),
		validate.Required("to", in.To),
		validate.RequiredNonNegative("amount", in.Amount),
	)
	status, ok := models.ParseStatus(in.Status)
	if !ok {
		errs = append(errs, enumErr("status", in.Status, "pending, confirmed or failed"))
	}
	typ, ok := models.ParseType(in.Type)
	if !ok {
		errs = append(errs, enumErr("type", in.Type, "sent or received"))
	}
	if len(errs) > 0 {
		return models.Transaction{}, errs
	}

	tx := models.Transaction{
		UserID:    in.UserID,
		Hash:      strings.TrimSpace(in.Hash),
		From:      strings.TrimSpace(in.From),
		To:        strings.TrimSpace(in.To),
		Amount:    *in.Amount,
		Timestamp: in.Timestamp.UTC(),
		Currency:  strings.TrimSpace(in.Currency),
		Category:  strings.TrimSpace(in.Category),
		Status:    status,
		Type:      typ,
	}
	if in.Timestamp.IsZero() {
		tx.Timestamp = s.nowFn().UTC()
	}
	if tx.Currency == "" {
		tx.Currency = models.DefaultCurrency
	}
	if tx.Category == "" {
		tx.Category = models.CategoryUnlabeled
	}

	saved, err := s.trx.Insert(ctx, tx)
	if err != nil {
		return models.Transaction{}, err
	}
	if saved.Type == models.TxnSent && s.budget != nil {
		if _, err := s.budget.Evaluate(ctx, saved.UserID); err != nil {
			s.log.Error("evaluate budget after insert", "user_id", saved.UserID, "err", err)
		}
	}
	return saved, nil
}

func enumErr(field, value, allowed string) validate.ErrField {
	if strings.TrimSpace(value) == "" {
		return validate.ErrField{Field: field, Msg: "required"}
	}
	return validate.ErrField{Field: field, Msg: "must be " + allowed}
}

func (s *TransactionService) GetByHash(ctx context.Context, hash string) (models.Transaction, error) {
	return s.trx.GetByHash(ctx, hash)
}

func (s *TransactionService) ListByUser(ctx context.Context, userID int64) ([]models.Transaction, error) {
	return s.trx.ListByUser(ctx, userID)
}

// Categorized groups the user's transactions by category, newest first within each group.
func (s *TransactionService) Categorized(ctx context.Context, userID int64) (map[string][]models.Transaction, error) {
	txs, err := s.trx.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := map[string][]models.Transaction{}
	for _, t := range txs {
		c := t.Category
		if c == "" {
			c = models.CategoryUnlabeled
		}
		out[c] = append(out[c], t)
	}
	return out, nil
}

// IsDuplicate reports whether err means the hash was already stored.
func IsDuplicate(err error) bool { return errors.Is(err, repo.ErrConflict) }
