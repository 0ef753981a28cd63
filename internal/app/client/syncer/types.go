package syncer

import (
	"context"
	"encoding/json"
	"fmt"

	"childhealth/internal/app/client/localstore"
	"childhealth/internal/model"
)

// State is a phase of one sync run.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateBatchUploading
	StateBatchOK
	StateBatchFailed
	StateIndividualUploading
	StateReconciling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateCollecting:
		return "COLLECTING"
	case StateBatchUploading:
		return "BATCH_UPLOADING"
	case StateBatchOK:
		return "BATCH_OK"
	case StateBatchFailed:
		return "BATCH_FAILED"
	case StateIndividualUploading:
		return "INDIVIDUAL_UPLOADING"
	case StateReconciling:
		return "RECONCILING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Identity is the authenticated caller records are uploaded for.
type Identity struct {
	Name       string `json:"name"`
	OwnerID    string `json:"ownerId"`
	EmployeeID string `json:"employeeId"`
	AuthToken  string `json:"authToken"`
}

type IdentityProvider interface {
	Identity() (Identity, bool)
}

// CreateResult is the answer of the single-record endpoint.
type CreateResult struct {
	Updated bool
	Record  model.Record
	Raw     json.RawMessage
}

// Accepted is one successful entry of a batch, correlated by Record.LocalID.
type Accepted struct {
	Record model.Record
	Raw    json.RawMessage
}

type Rejected struct {
	Record model.Record
	Error  string
}

type BatchResult struct {
	Total      int
	Successful []Accepted
	Failed     []Rejected
}

type Remote interface {
	Create(ctx context.Context, token string, rec model.Record) (CreateResult, error)
	BatchCreate(ctx context.Context, token string, recs []model.Record) (BatchResult, error)
}

// Store is the part of the local store the engine uses.
type Store interface {
	Outbox(ctx context.Context) ([]localstore.Record, []*localstore.DecryptionError, error)
	MarkSynced(ctx context.Context, localID string, ack localstore.Ack) (localstore.Record, error)
}

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type Notifier interface {
	Notify(sev Severity, msg string)
}

type Progress struct {
	Completed int
	Total     int
	Percent   float64
	Current   string
}

type ProgressFunc func(Progress)

type Mode string

const (
	ModeNone       Mode = ""
	ModeBatch      Mode = "batch"
	ModeIndividual Mode = "individual"
)

type RecordFailure struct {
	LocalID  string
	HealthID string
	Error    string
}

// Summary is the outcome of one run. Every selected record is counted
// either as synced or as failed.
type Summary struct {
	SyncedCount int
	FailedCount int
	Failures    []RecordFailure
	Mode        Mode
}
