package record

import (
	"errors"
	"strings"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrValidation   = errors.New("record validation failed")
	ErrDuplicateKey = errors.New("duplicate health id")
)

// ValidationError lists the offending fields of a single record.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
