package repository

import (
	"context"
	"errors"

	"github.com/baharkarakas/chainspend/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by Transactions.Insert when the hash is already stored.
	// Nothing is written in that case.
	ErrConflict = errors.New("transaction hash already exists")
)

// Transactions is the dedup store, keyed by hash.
type Transactions interface {
	Exists(ctx context.Context, hash string) (bool, error)
	Insert(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	GetByHash(ctx context.Context, hash string) (models.Transaction, error)
	// ListByUser returns the user's transactions, newest first.
	ListByUser(ctx context.Context, userID int64) ([]models.Transaction, error)
}

type Budgets interface {
	// GetByUser returns the user's current budget or ErrNotFound.
	GetByUser(ctx context.Context, userID int64) (models.Budget, error)
	GetByID(ctx context.Context, id string) (models.Budget, error)
	// Upsert creates the user's budget or overwrites the existing one in place.
	// The notified flag is always stored as false.
	Upsert(ctx context.Context, b models.Budget) (models.Budget, error)
	// Update overwrites budget id; the notified flag is stored as false.
	Update(ctx context.Context, b models.Budget) (models.Budget, error)
	// MarkNotified flips notified false->true and reports whether this call made the transition.
	MarkNotified(ctx context.Context, id string) (bool, error)
	ClearNotified(ctx context.Context, id string) error
}

type Notifications interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Notification, error)
	// MarkRead sets read=true and returns the updated notification, or ErrNotFound.
	MarkRead(ctx context.Context, id string) (models.Notification, error)
}

// Store bundles the collections of one backend. Backends are chosen once at startup.
type Store struct {
	Transactions  Transactions
	Budgets       Budgets
	Notifications Notifications
	Close         func(ctx context.Context) error
}
