package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/chainspend/internal/api/validate"
	"github.com/baharkarakas/chainspend/internal/models"
	repo "github.com/baharkarakas/chainspend/internal/repository"
)

var hundred = decimal.NewFromInt(100)

type BudgetService struct {
	budgets repo.Budgets
	trx     repo.Transactions
	notify  *NotificationService
	log     *slog.Logger
}

func NewBudgetService(b repo.Budgets, t repo.Transactions, n *NotificationService, log *slog.Logger) *BudgetService {
	if log == nil {
		log = slog.Default()
	}
	return &BudgetService{budgets: b, trx: t, notify: n, log: log}
}

// Get returns the user's budget, or nil when none is set.
func (s *BudgetService) Get(ctx context.Context, userID int64) (*models.Budget, error) {
	b, err := s.budgets.GetByUser(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Set creates or replaces the user's budget and re-evaluates it against
// already stored spending.
func (s *BudgetService) Set(ctx context.Context, b models.Budget) (models.Budget, error) {
	b.Currency = strings.TrimSpace(b.Currency)
	if b.Currency == "" {
		b.Currency = models.DefaultCurrency
	}
	if errs := validateBudget(b); len(errs) > 0 {
		return models.Budget{}, errs
	}
	b.Notified = false
	saved, err := s.budgets.Upsert(ctx, b)
	if err != nil {
		return models.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	s.evaluateQuietly(ctx, saved)
	return saved, nil
}

// Update applies patch to budget id. Any change re-arms the overage alert.
func (s *BudgetService) Update(ctx context.Context, id string, patch models.BudgetPatch) (models.Budget, error) {
	cur, err := s.budgets.GetByID(ctx, id)
	if err != nil {
		return models.Budget{}, err
	}
	next := patch.Apply(cur)
	if errs := validateBudget(next); len(errs) > 0 {
		return models.Budget{}, errs
	}
	saved, err := s.budgets.Update(ctx, next)
	if err != nil {
		return models.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	s.evaluateQuietly(ctx, saved)
	return saved, nil
}

// Usage summarizes the user's spending against the current budget.
// With no budget it returns a zero Usage and a nil budget.
func (s *BudgetService) Usage(ctx context.Context, userID int64) (models.Usage, *models.Budget, error) {
	b, err := s.Get(ctx, userID)
	if err != nil || b == nil {
		return zeroUsage(), nil, err
	}
	txs, err := s.trx.ListByUser(ctx, userID)
	if err != nil {
		return models.Usage{}, nil, fmt.Errorf("list transactions: %w", err)
	}
	return ComputeUsage(*b, txs), b, nil
}

// Evaluate computes usage and raises the overage alert when the budget is exceeded.
func (s *BudgetService) Evaluate(ctx context.Context, userID int64) (models.Usage, error) {
	u, b, err := s.Usage(ctx, userID)
	if err != nil || b == nil {
		return u, err
	}
	if u.Exceeded && s.notify != nil {
		if _, err := s.notify.BudgetExceeded(ctx, *b, u); err != nil {
			return u, err
		}
	}
	return u, nil
}

func (s *BudgetService) evaluateQuietly(ctx context.Context, b models.Budget) {
	if _, err := s.Evaluate(ctx, b.UserID); err != nil {
		s.log.Error("evaluate budget", "user_id", b.UserID, "err", err)
	}
}

// ComputeUsage sums sent transactions inside the budget period (both ends inclusive).
func ComputeUsage(b models.Budget, txs []models.Transaction) models.Usage {
	used := decimal.Zero
	for _, t := range txs {
		if t.Type == models.TxnSent && t.InPeriod(b.PeriodStart, b.PeriodEnd) {
			used = used.Add(t.Amount)
		}
	}

	u := models.Usage{
		Used:      used,
		Total:     b.Amount,
		Remaining: b.Amount.Sub(used),
		Exceeded:  used.GreaterThan(b.Amount),
	}
	switch {
	case b.Amount.IsPositive():
		pct := used.Div(b.Amount).Mul(hundred).Round(0).IntPart()
		if pct > 100 {
			pct = 100
		}
		u.Percentage = pct
	case used.IsPositive():
		u.Percentage = 100
	}
	return u
}

func zeroUsage() models.Usage {
	return models.Usage{Used: decimal.Zero, Total: decimal.Zero, Remaining: decimal.Zero}
}

func validateBudget(b models.Budget) validate.Errs {
	return validate.Collect(
		validate.Positive("amount", b.Amount),
		validate.RequiredTime("periodStart", b.PeriodStart),
		validate.RequiredTime("periodEnd", b.PeriodEnd),
		validate.After("periodEnd", b.PeriodStart, b.PeriodEnd),
	)
}
