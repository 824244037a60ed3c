package postgres

import (
	"context"

	repo "github.com/baharkarakas/chainspend/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositories(pool *pgxpool.Pool) repo.Store {
	return repo.Store{
		Transactions:  &transactionsRepo{pool},
		Budgets:       &budgetsRepo{pool},
		Notifications: &notificationsRepo{pool},
		Close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}
}
