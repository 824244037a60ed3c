// Package memory is the in-process store. Every collection is guarded by a
// single mutex, so check-then-insert on the hash index is atomic.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/baharkarakas/chainspend/internal/models"
	"github.com/baharkarakas/chainspend/internal/repository"
	"github.com/google/uuid"
)

type db struct {
	mu            sync.RWMutex
	txByHash      map[string]models.Transaction
	budgets       map[string]models.Budget
	budgetByUser  map[int64]string
	notifications map[string]models.Notification
}

func New() repository.Store {
	d := &db{
		txByHash:      map[string]models.Transaction{},
		budgets:       map[string]models.Budget{},
		budgetByUser:  map[int64]string{},
		notifications: map[string]models.Notification{},
	}
	return repository.Store{
		Transactions:  &transactionsRepo{d},
		Budgets:       &budgetsRepo{d},
		Notifications: &notificationsRepo{d},
		Close:         func(context.Context) error { return nil },
	}
}

type transactionsRepo struct{ d *db }

func (r *transactionsRepo) Exists(_ context.Context, hash string) (bool, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	_, ok := r.d.txByHash[hash]
	return ok, nil
}

func (r *transactionsRepo) Insert(_ context.Context, tx models.Transaction) (models.Transaction, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.txByHash[tx.Hash]; ok {
		return models.Transaction{}, repository.ErrConflict
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	r.d.txByHash[tx.Hash] = tx
	return tx, nil
}

func (r *transactionsRepo) GetByHash(_ context.Context, hash string) (models.Transaction, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	tx, ok := r.d.txByHash[hash]
	if !ok {
		return models.Transaction{}, repository.ErrNotFound
	}
	return tx, nil
}

func (r *transactionsRepo) ListByUser(_ context.Context, userID int64) ([]models.Transaction, error) {
	r.d.mu.RLock()
	out := make([]models.Transaction, 0)
	for _, tx := range r.d.txByHash {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	r.d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Hash < out[j].Hash
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

type budgetsRepo struct{ d *db }

func (r *budgetsRepo) GetByUser(_ context.Context, userID int64) (models.Budget, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	id, ok := r.d.budgetByUser[userID]
	if !ok {
		return models.Budget{}, repository.ErrNotFound
	}
	return r.d.budgets[id], nil
}

func (r *budgetsRepo) GetByID(_ context.Context, id string) (models.Budget, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	b, ok := r.d.budgets[id]
	if !ok {
		return models.Budget{}, repository.ErrNotFound
	}
	return b, nil
}

func (r *budgetsRepo) Upsert(_ context.Context, b models.Budget) (models.Budget, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if id, ok := r.d.budgetByUser[b.UserID]; ok {
		b.ID = id
	} else {
		b.ID = uuid.NewString()
		r.d.budgetByUser[b.UserID] = b.ID
	}
	b.Notified = false
	r.d.budgets[b.ID] = b
	return b, nil
}

func (r *budgetsRepo) Update(_ context.Context, b models.Budget) (models.Budget, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	cur, ok := r.d.budgets[b.ID]
	if !ok {
		return models.Budget{}, repository.ErrNotFound
	}
	if cur.UserID != b.UserID {
		delete(r.d.budgetByUser, cur.UserID)
		r.d.budgetByUser[b.UserID] = b.ID
	}
	b.Notified = false
	r.d.budgets[b.ID] = b
	return b, nil
}

func (r *budgetsRepo) MarkNotified(_ context.Context, id string) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	b, ok := r.d.budgets[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if b.Notified {
		return false, nil
	}
	b.Notified = true
	r.d.budgets[id] = b
	return true, nil
}

func (r *budgetsRepo) ClearNotified(_ context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	b, ok := r.d.budgets[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.Notified = false
	r.d.budgets[id] = b
	return nil
}

type notificationsRepo struct{ d *db }

func (r *notificationsRepo) Create(_ context.Context, n models.Notification) (models.Notification, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	n.ID = uuid.NewString()
	n.Read = false
	r.d.notifications[n.ID] = n
	return n, nil
}

func (r *notificationsRepo) ListByUser(_ context.Context, userID int64) ([]models.Notification, error) {
	r.d.mu.RLock()
	out := make([]models.Notification, 0)
	for _, n := range r.d.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	r.d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (r *notificationsRepo) MarkRead(_ context.Context, id string) (models.Notification, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	n, ok := r.d.notifications[id]
	if !ok {
		return models.Notification{}, repository.ErrNotFound
	}
	n.Read = true
	r.d.notifications[id] = n
	return n, nil
}
