package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"childhealth/internal/domain/user"
)

func NewUserRepository(pool *pgxpool.Pool, log *slog.Logger) *UserRepository {
	return &UserRepository{
		pool: pool,
		log:  log.With("component", "user_repository"),
	}
}

type UserRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func (r *UserRepository) Create(ctx context.Context, u user.User) (int, error) {
	var userID int
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (owner_id, name, employee_id, uin_hash) VALUES ($1, $2, $3, $4) RETURNING id`,
		u.OwnerID, u.Name, u.EmployeeID, u.UINHash).Scan(&userID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, user.ErrAlreadyExists
		}
		r.log.Error("failed to create user", "employee_id", u.EmployeeID, "error", err)
		return 0, fmt.Errorf("create user: %w", err)
	}

	return userID, nil
}

func (r *UserRepository) FindByEmployeeID(ctx context.Context, employeeID string) (user.User, error) {
	var u user.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, employee_id, uin_hash, created_at FROM users WHERE employee_id = $1`,
		employeeID).
		Scan(&u.ID, &u.OwnerID, &u.Name, &u.EmployeeID, &u.UINHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return u, user.ErrNotFound
		}
		return u, fmt.Errorf("find user: %w", err)
	}

	return u, nil
}
