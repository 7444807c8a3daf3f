package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/schedulr/internal/domain"
)

type EventTypeRepo interface {
	Create(ctx context.Context, hostID int64, req *domain.EventTypeRequest) (*domain.EventType, error)
	GetByID(ctx context.Context, hostID, id int64) (*domain.EventType, error)
	GetBySlug(ctx context.Context, hostID int64, slug string) (*domain.EventType, error)
	ListByHost(ctx context.Context, hostID int64, activeOnly bool) ([]domain.EventType, error)
	Update(ctx context.Context, hostID, id int64, req *domain.EventTypeRequest) (*domain.EventType, error)
	Delete(ctx context.Context, hostID, id int64) (bool, error)
}

type EventTypeRepoImpl struct{ pool *pgxpool.Pool }

func NewEventTypeRepo(pool *pgxpool.Pool) *EventTypeRepoImpl { return &EventTypeRepoImpl{pool: pool} }

const eventTypeCols = `id, host_user_id, slug, title, description,
duration_min, buffer_before_min, buffer_after_min,
location_type, price_cents, currency, is_active, created_at, updated_at`

func scanEventType(row pgx.Row) (*domain.EventType, error) {
	var e domain.EventType
	err := row.Scan(
		&e.ID, &e.HostUserID, &e.Slug, &e.Title, &e.Description,
		&e.DurationMin, &e.BufferBeforeMin, &e.BufferAfterMin,
		&e.LocationType, &e.PriceCents, &e.Currency, &e.IsActive, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EventTypeRepoImpl) Create(ctx context.Context, hostID int64, req *domain.EventTypeRequest) (*domain.EventType, error) {
	const q = `INSERT INTO event_types (
    host_user_id, slug, title, description,
    duration_min, buffer_before_min, buffer_after_min,
    location_type, price_cents, currency, is_active
  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
  RETURNING ` + eventTypeCols

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanEventType(r.pool.QueryRow(ctx, q,
		hostID, req.Slug, req.Title, req.Description,
		req.DurationMin, req.BufferBeforeMin, req.BufferAfterMin,
		req.LocationType, req.PriceCents, req.Currency, active,
	))
}

func (r *EventTypeRepoImpl) GetByID(ctx context.Context, hostID, id int64) (*domain.EventType, error) {
	const q = `SELECT ` + eventTypeCols + ` FROM event_types WHERE id=$1 AND host_user_id=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanEventType(r.pool.QueryRow(ctx, q, id, hostID))
}

func (r *EventTypeRepoImpl) GetBySlug(ctx context.Context, hostID int64, slug string) (*domain.EventType, error) {
	const q = `SELECT ` + eventTypeCols + ` FROM event_types WHERE host_user_id=$1 AND slug=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanEventType(r.pool.QueryRow(ctx, q, hostID, slug))
}

func (r *EventTypeRepoImpl) ListByHost(ctx context.Context, hostID int64, activeOnly bool) ([]domain.EventType, error) {
	q := `SELECT ` + eventTypeCols + ` FROM event_types WHERE host_user_id=$1`
	if activeOnly {
		q += ` AND is_active`
	}
	q += ` ORDER BY created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EventType
	for rows.Next() {
		e, err := scanEventType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *EventTypeRepoImpl) Update(ctx context.Context, hostID, id int64, req *domain.EventTypeRequest) (*domain.EventType, error) {
	const q = `UPDATE event_types SET
    slug=$3, title=$4, description=$5,
    duration_min=$6, buffer_before_min=$7, buffer_after_min=$8,
    location_type=$9, price_cents=$10, currency=$11, is_active=$12, updated_at=now()
  WHERE id=$1 AND host_user_id=$2
  RETURNING ` + eventTypeCols

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanEventType(r.pool.QueryRow(ctx, q,
		id, hostID, req.Slug, req.Title, req.Description,
		req.DurationMin, req.BufferBeforeMin, req.BufferAfterMin,
		req.LocationType, req.PriceCents, req.Currency, active,
	))
}

func (r *EventTypeRepoImpl) Delete(ctx context.Context, hostID, id int64) (bool, error) {
	const q = `DELETE FROM event_types WHERE id=$1 AND host_user_id=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ct, err := r.pool.Exec(ctx, q, id, hostID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

var _ EventTypeRepo = (*EventTypeRepoImpl)(nil)
