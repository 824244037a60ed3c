// Package delivery forwards budget alerts to outbound channels. Delivery is
// best-effort; callers log failures and move on.
package delivery

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// BudgetAlert is what gets sent when a user's spending goes over budget.
type BudgetAlert struct {
	UserID   int64
	Message  string
	Overage  decimal.Decimal
	Currency string
}

type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, a BudgetAlert) error
}

type Noop struct{}

func (Noop) Name() string                               { return "noop" }
func (Noop) Deliver(context.Context, BudgetAlert) error { return nil }

// Multi fans out to every channel and joins their errors.
type Multi []Deliverer

func (m Multi) Name() string { return "multi" }

func (m Multi) Deliver(ctx context.Context, a BudgetAlert) error {
	var errs []error
	for _, d := range m {
		if err := d.Deliver(ctx, a); err != nil {
			errs = append(errs, &ChannelError{Channel: d.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

type ChannelError struct {
	Channel string
	Err     error
}

func (e *ChannelError) Error() string { return e.Channel + ": " + e.Err.Error() }
func (e *ChannelError) Unwrap() error { return e.Err }
