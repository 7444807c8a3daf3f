package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/schedulr/internal/domain"
)

type UserRepo interface {
	Create(ctx context.Context, req *domain.RegisterRequest, passwordHash string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, string, error)
	FindByHandle(ctx context.Context, handle string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, name, timezone, bio, welcome string) (*domain.User, error)
}

type UserRepoImpl struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *UserRepoImpl { return &UserRepoImpl{pool: pool} }

const userCols = `id, email, name, handle, timezone, bio, welcome_message, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Handle, &u.Timezone, &u.Bio, &u.WelcomeMessage, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepoImpl) Create(ctx context.Context, req *domain.RegisterRequest, passwordHash string) (*domain.User, error) {
	const q = `INSERT INTO users (email, name, handle, password_hash, timezone)
VALUES ($1,$2,$3,$4,$5)
RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, q, req.Email, req.Name, req.Handle, passwordHash, req.Timezone))
}

func (r *UserRepoImpl) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *UserRepoImpl) FindByEmail(ctx context.Context, email string) (*domain.User, string, error) {
	const q = `SELECT ` + userCols + `, password_hash FROM users WHERE email=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u domain.User
	var hash string
	err := r.pool.QueryRow(ctx, q, email).Scan(
		&u.ID, &u.Email, &u.Name, &u.Handle, &u.Timezone, &u.Bio, &u.WelcomeMessage,
		&u.CreatedAt, &u.UpdatedAt, &hash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return &u, hash, nil
}

func (r *UserRepoImpl) FindByHandle(ctx context.Context, handle string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE handle=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, q, handle))
}

func (r *UserRepoImpl) UpdateProfile(ctx context.Context, id int64, name, timezone, bio, welcome string) (*domain.User, error) {
	const q = `UPDATE users SET name=$2, timezone=$3, bio=$4, welcome_message=$5, updated_at=now()
WHERE id=$1
RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, q, id, name, timezone, bio, welcome))
}

var _ UserRepo = (*UserRepoImpl)(nil)
