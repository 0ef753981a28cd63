package record

import (
	"time"

	"childhealth/internal/model"
)

// Record is a stored child health record. The business key is HealthID.
type Record struct {
	model.Record
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateResult reports whether an upsert inserted a new row or replaced an existing one.
type CreateResult struct {
	Record  Record
	Updated bool
}

// BatchFailure is one rejected entry of a batch, tagged with the original payload.
type BatchFailure struct {
	Record model.Record `json:"record"`
	Error  string       `json:"error"`
}

// BatchResult collects per-record outcomes of a batch in input order.
type BatchResult struct {
	Successful []Record       `json:"successful"`
	Failed     []BatchFailure `json:"failed"`
	Total      int            `json:"total"`
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

type Page struct {
	Records    []Record   `json:"records"`
	Pagination Pagination `json:"pagination"`
}
