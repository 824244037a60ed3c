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

type transactionsRepo struct{ pool *pgxpool.Pool }

const txnColumns = `id::text, user_id, hash, from_addr, to_addr, amount::text, ts, currency, category, status, type`

func (r *transactionsRepo) Exists(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM transactions WHERE hash=$1)`, hash).Scan(&exists)
	return exists, err
}

// Insert relies on the unique hash constraint; a conflicting row yields no RETURNING row.
func (r *transactionsRepo) Insert(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	const q = `
INSERT INTO transactions (
  id, user_id, hash, from_addr, to_addr, amount, ts, currency, category, status, type
) VALUES ($1,$2,$3,$4,$5,$6::numeric,$7,$8,$9,$10,$11)
ON CONFLICT (hash) DO NOTHING
RETURNING ` + txnColumns
	row := r.pool.QueryRow(ctx, q,
		tx.ID, tx.UserID, tx.Hash, tx.From, tx.To, tx.Amount.String(), tx.Timestamp,
		tx.Currency, tx.Category, string(tx.Status), string(tx.Type),
	)
	out, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, repository.ErrConflict
	}
	return out, err
}

func (r *transactionsRepo) GetByHash(ctx context.Context, hash string) (models.Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+txnColumns+` FROM transactions WHERE hash=$1`, hash)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, repository.ErrNotFound
	}
	return tx, err
}

func (r *transactionsRepo) ListByUser(ctx context.Context, userID int64) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnColumns+`
		   FROM transactions
		  WHERE user_id=$1
		  ORDER BY ts DESC, hash`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var (
		tx             models.Transaction
		amount         string
		status, txType string
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Hash, &tx.From, &tx.To, &amount, &tx.Timestamp,
		&tx.Currency, &tx.Category, &status, &txType)
	if err != nil {
		return models.Transaction{}, err
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return models.Transaction{}, err
	}
	tx.Status = models.TransactionStatus(status)
	tx.Type = models.TransactionType(txType)
	return tx, nil
}
