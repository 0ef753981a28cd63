package record

import (
	"strconv"
	"strings"

	"childhealth/internal/model"
)

const maxChildAge = 18

// Validate checks required fields and numeric measurements of a single record.
func Validate(rec model.Record) error {
	var fields []string

	required := []struct {
		name  string
		value string
	}{
		{"healthId", rec.HealthID},
		{"childName", rec.ChildName},
		{"age", rec.Age},
		{"gender", rec.Gender},
		{"guardianName", rec.GuardianName},
		{"phone", rec.Phone},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			fields = append(fields, f.name+": required")
		}
	}

	if age, ok := parseNumber(rec.Age); !ok {
		fields = append(fields, "age: not a number")
	} else if age < 0 || age > maxChildAge {
		fields = append(fields, "age: out of range")
	}
	if v, ok := parseNumber(rec.Weight); !ok || v < 0 {
		fields = append(fields, "weight: not a positive number")
	}
	if v, ok := parseNumber(rec.Height); !ok || v < 0 {
		fields = append(fields, "height: not a positive number")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// parseNumber treats an empty value as valid zero.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
