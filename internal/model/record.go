package model

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const healthIDPrefix = "CH"

// Location is the optional geolocation captured with a record.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
	City      string  `json:"city,omitempty"`
	State     string  `json:"state,omitempty"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// Record is the child health record as it travels between client and server.
// Measurements stay strings on the wire; the server validates them as numbers.
type Record struct {
	LocalID  string `json:"localId,omitempty" doc:"Client-side correlation id"`
	HealthID string `json:"healthId,omitempty" doc:"Business key, unique per child record"`

	ChildName string `json:"childName,omitempty"`
	Age       string `json:"age,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Weight    string `json:"weight,omitempty"`
	Height    string `json:"height,omitempty"`

	GuardianName   string `json:"guardianName,omitempty"`
	Relation       string `json:"relation,omitempty"`
	Phone          string `json:"phone,omitempty"`
	ParentsConsent bool   `json:"parentsConsent,omitempty"`

	HealthObservations string    `json:"healthObservations,omitempty"`
	Photo              string    `json:"photo,omitempty" doc:"Photo reference"`
	DateCollected      string    `json:"dateCollected,omitempty" doc:"ISO-8601"`
	Location           *Location `json:"location,omitempty"`

	UploadedBy         string `json:"uploadedBy,omitempty"`
	UploaderOwnerID    string `json:"uploaderOwnerId,omitempty"`
	UploaderEmployeeID string `json:"uploaderEmployeeId,omitempty"`
	UploadedAt         string `json:"uploadedAt,omitempty" doc:"ISO-8601"`
	IsOffline          bool   `json:"isOffline,omitempty"`
}

// NewHealthID builds a provisional health id from the child's name, the
// collection time and a random suffix, e.g. CH-ARJ-20240102150405-1a2b3c.
func NewHealthID(childName string, collected time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%s",
		healthIDPrefix,
		namePart(childName),
		collected.UTC().Format("20060102150405"),
		strings.ReplaceAll(uuid.NewString(), "-", "")[:6],
	)
}

func namePart(name string) string {
	var b strings.Builder
	for _, r := range name {
		if b.Len() == 3 {
			break
		}
		if unicode.IsLetter(r) && r < unicode.MaxASCII {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	for b.Len() < 3 {
		b.WriteByte('X')
	}
	return b.String()
}
