package record

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"childhealth/internal/app/client/localstore"
)

// RecordCmd groups local and remote record commands.
var RecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Collect and inspect child health records",
}

func syncStatus(rec localstore.Record) string {
	if rec.Synced {
		return "synced"
	}
	return "pending"
}

func printRecord(rec localstore.Record) {
	fmt.Printf("Local ID:      %s\n", rec.LocalID)
	fmt.Printf("Health ID:     %s\n", rec.HealthID)
	fmt.Printf("Status:        %s\n", syncStatus(rec))
	if rec.SyncedAt != "" {
		fmt.Printf("Synced at:     %s\n", rec.SyncedAt)
	}
	fmt.Printf("Child:         %s, age %s, %s\n", rec.ChildName, rec.Age, rec.Gender)
	fmt.Printf("Weight/Height: %s kg / %s cm\n", rec.Weight, rec.Height)
	fmt.Printf("Guardian:      %s (%s) %s\n", rec.GuardianName, rec.Relation, rec.Phone)
	fmt.Printf("Consent:       %t\n", rec.ParentsConsent)
	if rec.HealthObservations != "" {
		fmt.Printf("Observations:  %s\n", strings.TrimSpace(rec.HealthObservations))
	}
	if rec.Photo != "" {
		fmt.Printf("Photo:         %s\n", rec.Photo)
	}
	fmt.Printf("Collected:     %s\n", rec.DateCollected)
	if rec.Location != nil {
		fmt.Printf("Location:      %.5f, %.5f %s\n", rec.Location.Latitude, rec.Location.Longitude, rec.Location.Address)
	}
}
