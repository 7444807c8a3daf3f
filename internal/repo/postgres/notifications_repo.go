package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/schedulr/internal/domain"
)

type NotificationRepo interface {
	Insert(ctx context.Context, hostID int64, kind domain.NotificationKind, payload json.RawMessage) (*domain.Notification, error)
	ListByHost(ctx context.Context, hostID int64, unreadOnly bool, limit, offset int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, hostID, id int64) (bool, error)
}

type NotificationRepoImpl struct{ pool *pgxpool.Pool }

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepoImpl {
	return &NotificationRepoImpl{pool: pool}
}

const notificationCols = `id, host_user_id, kind, payload, read_at, created_at`

func (r *NotificationRepoImpl) Insert(ctx context.Context, hostID int64, kind domain.NotificationKind, payload json.RawMessage) (*domain.Notification, error) {
	const q = `INSERT INTO notifications (host_user_id, kind, payload)
VALUES ($1,$2,$3)
RETURNING ` + notificationCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n domain.Notification
	err := r.pool.QueryRow(ctx, q, hostID, kind, payload).Scan(
		&n.ID, &n.HostUserID, &n.Kind, &n.Payload, &n.ReadAt, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepoImpl) ListByHost(ctx context.Context, hostID int64, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + notificationCols + ` FROM notifications WHERE host_user_id=$1`
	if unreadOnly {
		q += ` AND read_at IS NULL`
	}
	q += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, hostID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ns := make([]domain.Notification, 0, limit)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.HostUserID, &n.Kind, &n.Payload, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		ns = append(ns, n)
	}
	return ns, rows.Err()
}

func (r *NotificationRepoImpl) MarkRead(ctx context.Context, hostID, id int64) (bool, error) {
	const q = `UPDATE notifications SET read_at=now() WHERE id=$1 AND host_user_id=$2 AND read_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ct, err := r.pool.Exec(ctx, q, id, hostID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

var _ NotificationRepo = (*NotificationRepoImpl)(nil)
