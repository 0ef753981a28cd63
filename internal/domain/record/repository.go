package record

import (
	"context"
)

type Repository interface {
	// Upsert inserts rec or replaces the row with the same HealthID.
	// It fills the server-assigned fields of rec and reports whether a row was created.
	Upsert(ctx context.Context, rec *Record) (bool, error)
	// Update replaces the row with the same HealthID. ErrNotFound if there is none.
	Update(ctx context.Context, rec *Record) error
	GetByHealthID(ctx context.Context, healthID string) (*Record, error)
	ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]Record, int, error)
}
