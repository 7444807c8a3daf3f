package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/schedulr/internal/domain"
	"github.com/slotwise/schedulr/internal/schedule"
)

// GuardCheck runs the application-level conflict check against the busy set
// re-read inside the booking transaction.
type GuardCheck func(busy []schedule.BusyBooking) error

type BookingRepo interface {
	CreateGuarded(ctx context.Context, in *domain.Booking, busyStart, busyEnd time.Time, windowFrom, windowTo time.Time, check GuardCheck) (*domain.Booking, error)
	RescheduleGuarded(ctx context.Context, hostID, id int64, startAt, endAt, busyStart, busyEnd time.Time, windowFrom, windowTo time.Time, check GuardCheck) (*domain.Booking, error)
	GetByID(ctx context.Context, hostID, id int64) (*domain.Booking, error)
	GetByToken(ctx context.Context, id int64, token string) (*domain.Booking, error)
	ListByHost(ctx context.Context, hostID int64, from, to time.Time, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error)
	ListBusyBetween(ctx context.Context, hostID int64, from, to time.Time) ([]schedule.BusyBooking, error)
	CancelByHost(ctx context.Context, hostID, id int64) (*domain.Booking, bool, error)
	CancelByToken(ctx context.Context, id int64, token string) (*domain.Booking, bool, error)
}

type BookingRepoImpl struct{ pool *pgxpool.Pool }

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepoImpl { return &BookingRepoImpl{pool: pool} }

const bookingCols = `id, host_user_id, event_type_id, manage_token, status,
guest_name, guest_email, guest_timezone,
start_at, end_at, notes, cancelled_at, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.HostUserID, &b.EventTypeID, &b.ManageToken, &b.Status,
		&b.GuestName, &b.GuestEmail, &b.GuestTimezone,
		&b.StartAt, &b.EndAt, &b.Notes, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// conflictFromPgErr maps the storage-level backstops to the domain conflict:
// 23P01 is the gist exclusion constraint, 40001 a serialization failure.
func conflictFromPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "23P01" || pgErr.Code == "40001") {
		return domain.NewConflictError(domain.ConflictSlotTaken)
	}
	return err
}

const busyBetweenQuery = `SELECT b.id, b.host_user_id, b.event_type_id, b.status, b.start_at, b.end_at,
       e.buffer_before_min, e.buffer_after_min
FROM bookings b
JOIN event_types e ON e.id = b.event_type_id
WHERE b.host_user_id=$1 AND b.status='confirmed'
  AND b.busy_during && tstzrange($2, $3, '[)')
ORDER BY b.start_at`

func queryBusy(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, hostID int64, from, to time.Time) ([]schedule.BusyBooking, error) {
	rows, err := q.Query(ctx, busyBetweenQuery, hostID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.BusyBooking
	for rows.Next() {
		var bb schedule.BusyBooking
		var before, after int
		if err := rows.Scan(
			&bb.Booking.ID, &bb.Booking.HostUserID, &bb.Booking.EventTypeID, &bb.Booking.Status,
			&bb.Booking.StartAt, &bb.Booking.EndAt, &before, &after,
		); err != nil {
			return nil, err
		}
		bb.BufferBefore = time.Duration(before) * time.Minute
		bb.BufferAfter = time.Duration(after) * time.Minute
		out = append(out, bb)
	}
	return out, rows.Err()
}

// CreateGuarded inserts a confirmed booking after re-reading the busy set
// inside a serializable transaction and running the guard check on it. The
// exclusion constraint on (host_user_id, busy_during) makes the check-then-
// insert safe against concurrent attempts the transaction did not see.
func (r *BookingRepoImpl) CreateGuarded(ctx context.Context, in *domain.Booking, busyStart, busyEnd, windowFrom, windowTo time.Time, check GuardCheck) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	busy, err := queryBusy(ctx, tx, in.HostUserID, windowFrom, windowTo)
	if err != nil {
		return nil, err
	}
	if err := check(busy); err != nil {
		return nil, err
	}

	const q = `INSERT INTO bookings (
    host_user_id, event_type_id, manage_token, status,
    guest_name, guest_email, guest_timezone,
    start_at, end_at, busy_during, notes
  ) VALUES ($1,$2,$3,'confirmed',$4,$5,$6,$7,$8,tstzrange($9,$10,'[)'),$11)
  RETURNING ` + bookingCols

	tok := uuid.NewString()
	b, err := scanBooking(tx.QueryRow(ctx, q,
		in.HostUserID, in.EventTypeID, tok,
		in.GuestName, in.GuestEmail, in.GuestTimezone,
		in.StartAt, in.EndAt, busyStart, busyEnd, in.Notes,
	))
	if err != nil {
		return nil, conflictFromPgErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, conflictFromPgErr(err)
	}
	return b, nil
}

// RescheduleGuarded moves a confirmed booking under the same transactional
// guard; the caller's check excludes the booking's own prior interval.
func (r *BookingRepoImpl) RescheduleGuarded(ctx context.Context, hostID, id int64, startAt, endAt, busyStart, busyEnd, windowFrom, windowTo time.Time, check GuardCheck) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	busy, err := queryBusy(ctx, tx, hostID, windowFrom, windowTo)
	if err != nil {
		return nil, err
	}
	if err := check(busy); err != nil {
		return nil, err
	}

	const q = `UPDATE bookings
SET start_at=$3, end_at=$4, busy_during=tstzrange($5,$6,'[)'), updated_at=now()
WHERE id=$1 AND host_user_id=$2 AND status='confirmed'
RETURNING ` + bookingCols

	b, err := scanBooking(tx.QueryRow(ctx, q, id, hostID, startAt, endAt, busyStart, busyEnd))
	if err != nil {
		return nil, conflictFromPgErr(err)
	}
	if b == nil {
		return nil, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, conflictFromPgErr(err)
	}
	return b, nil
}

func (r *BookingRepoImpl) GetByID(ctx context.Context, hostID, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1 AND host_user_id=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanBooking(r.pool.QueryRow(ctx, q, id, hostID))
}

func (r *BookingRepoImpl) GetByToken(ctx context.Context, id int64, token string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1 AND manage_token=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanBooking(r.pool.QueryRow(ctx, q, id, token))
}

func (r *BookingRepoImpl) ListByHost(ctx context.Context, hostID int64, from, to time.Time, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + bookingCols + ` FROM bookings
WHERE host_user_id=$1 AND start_at >= $2 AND start_at < $3`
	args := []any{hostID, from, to}
	if status != nil {
		q += ` AND status=$4`
		args = append(args, *status)
	}
	q += ` ORDER BY start_at LIMIT ` + strconv.Itoa(limit) + ` OFFSET ` + strconv.Itoa(offset)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bs := make([]domain.Booking, 0, limit)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bs = append(bs, *b)
	}
	return bs, rows.Err()
}

func (r *BookingRepoImpl) ListBusyBetween(ctx context.Context, hostID int64, from, to time.Time) ([]schedule.BusyBooking, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return queryBusy(ctx, r.pool, hostID, from, to)
}

// Cancellation is idempotent: cancelling an already-cancelled booking keeps
// its original cancelled_at and reports success with changed=false.
func (r *BookingRepoImpl) CancelByHost(ctx context.Context, hostID, id int64) (*domain.Booking, bool, error) {
	const q = `UPDATE bookings
SET status='cancelled', cancelled_at=COALESCE(cancelled_at, now()), updated_at=now()
WHERE id=$1 AND host_user_id=$2 AND status='confirmed'
RETURNING ` + bookingCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id, hostID))
	if err != nil {
		return nil, false, err
	}
	if b != nil {
		return b, true, nil
	}

	existing, err := r.GetByID(ctx, hostID, id)
	return existing, false, err
}

func (r *BookingRepoImpl) CancelByToken(ctx context.Context, id int64, token string) (*domain.Booking, bool, error) {
	const q = `UPDATE bookings
SET status='cancelled', cancelled_at=COALESCE(cancelled_at, now()), updated_at=now()
WHERE id=$1 AND manage_token=$2 AND status='confirmed'
RETURNING ` + bookingCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id, token))
	if err != nil {
		return nil, false, err
	}
	if b != nil {
		return b, true, nil
	}

	existing, err := r.GetByToken(ctx, id, token)
	return existing, false, err
}

var _ BookingRepo = (*BookingRepoImpl)(nil)
