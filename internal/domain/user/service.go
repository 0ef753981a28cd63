package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

type Servicer interface {
	Register(ctx context.Context, req RegisterRequest) (User, error)
	Authenticate(ctx context.Context, employeeID, uin string) (User, error)
}

type Service struct {
	repo      Repository
	validator Validator
	log       *slog.Logger
}

func NewService(repo Repository, validator Validator, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
		log:       log.With("component", "user_service"),
	}
}

// Register stores a new health worker with a bcrypt hash of the UIN
// and a fresh owner id.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, error) {
	if err := s.validator.ValidateRegister(req); err != nil {
		s.log.Debug("validation failed", "employee_id", req.EmployeeID, "error", err)
		return User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.UIN), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash uin: %w", err)
	}

	u := User{
		OwnerID:    uuid.NewString(),
		Name:       req.Name,
		EmployeeID: req.EmployeeID,
		UINHash:    string(hash),
	}

	id, err := s.repo.Create(ctx, u)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	u.ID = id

	s.log.Info("user registered", "employee_id", u.EmployeeID, "owner_id", u.OwnerID)
	return u, nil
}

func (s *Service) Authenticate(ctx context.Context, employeeID, uin string) (User, error) {
	if err := s.validator.ValidateEmployeeID(employeeID); err != nil {
		return User{}, ErrInvalidAuth
	}

	u, err := s.repo.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.UINHash), []byte(uin)); err != nil {
		return User{}, ErrInvalidAuth
	}

	return u, nil
}
