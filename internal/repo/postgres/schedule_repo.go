package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/schedulr/internal/domain"
)

// ScheduleRepo stores the weekly recurring rules and the per-date overrides.
// Every query is host-scoped; there is no unscoped read path.
type ScheduleRepo interface {
	ListWeeklyRules(ctx context.Context, hostID int64) ([]domain.WeeklyRule, error)
	ReplaceWeeklyRules(ctx context.Context, hostID int64, rules []domain.WeeklyRule) ([]domain.WeeklyRule, error)
	GetOverride(ctx context.Context, hostID int64, date domain.Date) (*domain.DateOverride, error)
	ListOverrides(ctx context.Context, hostID int64, from, to domain.Date) ([]domain.DateOverride, error)
	UpsertOverride(ctx context.Context, o *domain.DateOverride) (*domain.DateOverride, error)
	DeleteOverride(ctx context.Context, hostID int64, date domain.Date) (bool, error)
}

type ScheduleRepoImpl struct{ pool *pgxpool.Pool }

func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepoImpl { return &ScheduleRepoImpl{pool: pool} }

func (r *ScheduleRepoImpl) ListWeeklyRules(ctx context.Context, hostID int64) ([]domain.WeeklyRule, error) {
	const q = `SELECT id, host_user_id, day_of_week, start_minute, end_minute
FROM weekly_rules WHERE host_user_id=$1
ORDER BY day_of_week, start_minute`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.WeeklyRule
	for rows.Next() {
		var wr domain.WeeklyRule
		if err := rows.Scan(&wr.ID, &wr.HostUserID, &wr.DayOfWeek, &wr.StartMinute, &wr.EndMinute); err != nil {
			return nil, err
		}
		rules = append(rules, wr)
	}
	return rules, rows.Err()
}

// ReplaceWeeklyRules swaps the host's entire weekly schedule in one
// transaction, the way the settings screen submits it.
func (r *ScheduleRepoImpl) ReplaceWeeklyRules(ctx context.Context, hostID int64, rules []domain.WeeklyRule) ([]domain.WeeklyRule, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM weekly_rules WHERE host_user_id=$1`, hostID); err != nil {
		return nil, err
	}

	const ins = `INSERT INTO weekly_rules (host_user_id, day_of_week, start_minute, end_minute)
VALUES ($1,$2,$3,$4)
RETURNING id`

	out := make([]domain.WeeklyRule, 0, len(rules))
	for _, wr := range rules {
		wr.HostUserID = hostID
		if err := tx.QueryRow(ctx, ins, hostID, wr.DayOfWeek, wr.StartMinute, wr.EndMinute).Scan(&wr.ID); err != nil {
			return nil, err
		}
		out = append(out, wr)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

const overrideCols = `id, host_user_id, date, is_blocked, start_minute, end_minute, reason`

func scanOverride(row pgx.Row) (*domain.DateOverride, error) {
	var o domain.DateOverride
	var date time.Time
	err := row.Scan(&o.ID, &o.HostUserID, &date, &o.IsBlocked, &o.StartMinute, &o.EndMinute, &o.Reason)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.Date = domain.DateOf(date)
	return &o, nil
}

func (r *ScheduleRepoImpl) GetOverride(ctx context.Context, hostID int64, date domain.Date) (*domain.DateOverride, error) {
	const q = `SELECT ` + overrideCols + ` FROM date_overrides WHERE host_user_id=$1 AND date=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanOverride(r.pool.QueryRow(ctx, q, hostID, date.String()))
}

func (r *ScheduleRepoImpl) ListOverrides(ctx context.Context, hostID int64, from, to domain.Date) ([]domain.DateOverride, error) {
	const q = `SELECT ` + overrideCols + ` FROM date_overrides
WHERE host_user_id=$1 AND date >= $2 AND date <= $3
ORDER BY date`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, hostID, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DateOverride
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// UpsertOverride relies on the (host_user_id, date) uniqueness to keep at
// most one override per date.
func (r *ScheduleRepoImpl) UpsertOverride(ctx context.Context, o *domain.DateOverride) (*domain.DateOverride, error) {
	const q = `INSERT INTO date_overrides (host_user_id, date, is_blocked, start_minute, end_minute, reason)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (host_user_id, date) DO UPDATE
SET is_blocked=EXCLUDED.is_blocked, start_minute=EXCLUDED.start_minute,
    end_minute=EXCLUDED.end_minute, reason=EXCLUDED.reason
RETURNING ` + overrideCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanOverride(r.pool.QueryRow(ctx, q,
		o.HostUserID, o.Date.String(), o.IsBlocked, o.StartMinute, o.EndMinute, o.Reason))
}

func (r *ScheduleRepoImpl) DeleteOverride(ctx context.Context, hostID int64, date domain.Date) (bool, error) {
	const q = `DELETE FROM date_overrides WHERE host_user_id=$1 AND date=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ct, err := r.pool.Exec(ctx, q, hostID, date.String())
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

var _ ScheduleRepo = (*ScheduleRepoImpl)(nil)
