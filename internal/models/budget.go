package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is the spending cap of a user for [PeriodStart, PeriodEnd].
// Notified records whether the overage alert for this period already fired;
// any create or update of the budget clears it.
type Budget struct {
	ID          string          `json:"id"`
	UserID      int64           `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	PeriodStart time.Time       `json:"periodStart"`
	PeriodEnd   time.Time       `json:"periodEnd"`
	Currency    string          `json:"currency"`
	Notified    bool            `json:"notified"`
}

// BudgetPatch carries a partial budget update; nil fields are left unchanged.
type BudgetPatch struct {
	Amount      *decimal.Decimal
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	Currency    *string
}

func (p BudgetPatch) Apply(b Budget) Budget {
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.PeriodStart != nil {
		b.PeriodStart = *p.PeriodStart
	}
	if p.PeriodEnd != nil {
		b.PeriodEnd = *p.PeriodEnd
	}
	if p.Currency != nil {
		b.Currency = *p.Currency
	}
	b.Notified = false
	return b
}

// Usage summarizes spending against a budget. Percentage is clamped to 100
// for display; Exceeded uses the unclamped comparison.
type Usage struct {
	Used       decimal.Decimal `json:"used"`
	Total      decimal.Decimal `json:"total"`
	Percentage int64           `json:"percentage"`
	Remaining  decimal.Decimal `json:"remaining"`
	Exceeded   bool            `json:"exceeded"`
}

// Overage is how far spending went past the cap, zero when within budget.
func (u Usage) Overage() decimal.Decimal {
	if !u.Exceeded {
		return decimal.Zero
	}
	return u.Used.Sub(u.Total)
}
