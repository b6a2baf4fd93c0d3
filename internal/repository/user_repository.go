package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/campus-connect/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MutateFunc receives the stored record, or nil when none exists, and returns
// the record to persist. Returning nil leaves the store unchanged.
type MutateFunc func(current *domain.UserRecord) (*domain.UserRecord, error)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.UserRecord, error)
	// Update applies fn atomically with respect to other updates of email and
	// returns the persisted record.
	Update(ctx context.Context, email string, fn MutateFunc) (*domain.UserRecord, error)
	// ListPendingAdmin returns members with an open admin request in insertion order.
	ListPendingAdmin(ctx context.Context) ([]domain.UserRecord, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userCols = `email, role, requested_admin, requested_at, approved_by, created_at, updated_at`

// insert races are retried a bounded number of times
const maxUpdateAttempts = 3

func scanUser(row pgx.Row) (*domain.UserRecord, error) {
	var (
		u          domain.UserRecord
		role       string
		approvedBy *string
	)
	if err := row.Scan(&u.Email, &role, &u.RequestedAdmin, &u.RequestedAt, &approvedBy, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	if approvedBy != nil {
		u.ApprovedBy = *approvedBy
	}
	return &u, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.UserRecord, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) Update(ctx context.Context, email string, fn MutateFunc) (*domain.UserRecord, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		u, retry, err := r.updateOnce(ctx, email, fn)
		if err != nil || !retry {
			return u, err
		}
	}
	return nil, fmt.Errorf("update user %s: concurrent insert conflict", email)
}

// updateOnce runs fn inside a transaction holding the row lock. When the row
// does not exist yet and another transaction inserts it first, retry is true.
func (r *userRepository) updateOnce(ctx context.Context, email string, fn MutateFunc) (*domain.UserRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	const sel = `SELECT ` + userCols + ` FROM users WHERE email = $1 FOR UPDATE`
	current, err := scanUser(tx.QueryRow(ctx, sel, email))
	if errors.Is(err, pgx.ErrNoRows) {
		current = nil
	} else if err != nil {
		return nil, false, err
	}

	var snapshot *domain.UserRecord
	if current != nil {
		snapshot = current.Clone()
	}
	next, err := fn(snapshot)
	if err != nil {
		return nil, false, err
	}
	if next == nil {
		return current, false, nil
	}

	var saved *domain.UserRecord
	if current == nil {
		const ins = `
			INSERT INTO users (email, role, requested_admin, requested_at, approved_by)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''))
			ON CONFLICT (email) DO NOTHING
			RETURNING ` + userCols
		saved, err = scanUser(tx.QueryRow(ctx, ins, email, string(next.Role), next.RequestedAdmin, next.RequestedAt, next.ApprovedBy))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, true, nil
		}
	} else {
		const upd = `
			UPDATE users SET role = $2, requested_admin = $3, requested_at = $4,
				approved_by = NULLIF($5, ''), updated_at = now()
			WHERE email = $1
			RETURNING ` + userCols
		saved, err = scanUser(tx.QueryRow(ctx, upd, email, string(next.Role), next.RequestedAdmin, next.RequestedAt, next.ApprovedBy))
	}
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return saved, false, nil
}

func (r *userRepository) ListPendingAdmin(ctx context.Context) ([]domain.UserRecord, error) {
	const q = `SELECT ` + userCols + ` FROM users
		WHERE requested_admin AND role = 'member'
		ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UserRecord
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
