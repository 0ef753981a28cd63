package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"childhealth/internal/model"
)

var (
	ErrNotFound  = errors.New("local record not found")
	ErrImmutable = errors.New("synced record is immutable")
)

// Record is a locally kept submission plus its sync bookkeeping.
type Record struct {
	model.Record
	Synced         bool            `json:"synced"`
	SyncedAt       string          `json:"syncedAt,omitempty"`
	ServerResponse json.RawMessage `json:"serverResponse,omitempty"`
	Timestamp      string          `json:"timestamp,omitempty"`
	CreatedAt      string          `json:"createdAt,omitempty"`
	UpdatedAt      string          `json:"updatedAt,omitempty"`
}

// Ack is the server confirmation stored with a synced record.
// A non-empty HealthID replaces a provisional local one.
type Ack struct {
	HealthID string
	Response json.RawMessage
}

// DecryptionError reports a stored field that could not be decoded.
// Display reads return the raw value instead; Outbox withholds the record.
type DecryptionError struct {
	LocalID  string
	HealthID string
	Field    string
	Err      error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decrypt %s of %s: %v", e.Field, e.LocalID, e.Err)
}

func (e *DecryptionError) Unwrap() error {
	return e.Err
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
