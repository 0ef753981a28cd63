package session

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, userID int, tokenHash string, expiresAt time.Time) error
	// Validate resolves a live session to its owner. ErrInvalidSession otherwise.
	Validate(ctx context.Context, tokenHash string) (Principal, error)
	Delete(ctx context.Context, tokenHash string) error
}
