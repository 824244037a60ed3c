package postgres

import (
	"context"
	"errors"

	"github.com/baharkarakas/chainspend/internal/models"
	"github.com/baharkarakas/chainspend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type notificationsRepo struct{ pool *pgxpool.Pool }

func (r *notificationsRepo) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	n.ID = uuid.NewString()
	n.Read = false
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notifications(id, user_id, message, ts, read) VALUES($1,$2,$3,$4,false)`,
		n.ID, n.UserID, n.Message, n.Timestamp,
	)
	if err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

func (r *notificationsRepo) ListByUser(ctx context.Context, userID int64) ([]models.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, user_id, message, ts, read
		   FROM notifications
		  WHERE user_id=$1
		  ORDER BY ts DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Timestamp, &n.Read); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *notificationsRepo) MarkRead(ctx context.Context, id string) (models.Notification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Notification{}, repository.ErrNotFound
	}
	var n models.Notification
	err := r.pool.QueryRow(ctx,
		`UPDATE notifications SET read=true WHERE id=$1
		 RETURNING id::text, user_id, message, ts, read`,
		id,
	).Scan(&n.ID, &n.UserID, &n.Message, &n.Timestamp, &n.Read)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Notification{}, repository.ErrNotFound
	}
	return n, err
}
