package record

import (
	"fmt"

	"github.com/spf13/cobra"

	"childhealth/cmd/client/cmd/types"
	"childhealth/internal/model"
)

var (
	addRec     model.Record
	addLat     float64
	addLon     float64
	addAddress string
)

var AddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store a new record on this device",
	Long: `add saves a record offline. Sensitive fields are encrypted before
they are written. The record is uploaded on the next sync.`,
	Example: `  childhealth record add --name "Arjun Kumar" --age 4 --gender male \
    --weight 15.2 --height 101 --guardian "Sita Kumar" --relation mother \
    --phone 9876543210 --consent`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		if err := types.RequireUnlocked(app); err != nil {
			return err
		}

		rec := addRec
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
			rec.Location = &model.Location{Latitude: addLat, Longitude: addLon, Address: addAddress}
		}

		saved, err := app.AddRecord(cmd.Context(), rec)
		if err != nil {
			return fmt.Errorf("save record: %w", err)
		}

		fmt.Printf("Saved %s (health id %s).\n", saved.LocalID, saved.HealthID)
		return nil
	},
}

func init() {
	f := AddCmd.Flags()
	f.StringVar(&addRec.ChildName, "name", "", "child name")
	f.StringVar(&addRec.Age, "age", "", "age in years")
	f.StringVar(&addRec.Gender, "gender", "", "gender")
	f.StringVar(&addRec.Weight, "weight", "", "weight in kg")
	f.StringVar(&addRec.Height, "height", "", "height in cm")
	f.StringVar(&addRec.GuardianName, "guardian", "", "guardian name")
	f.StringVar(&addRec.Relation, "relation", "", "guardian relation to the child")
	f.StringVar(&addRec.Phone, "phone", "", "guardian phone")
	f.BoolVar(&addRec.ParentsConsent, "consent", false, "parents gave consent")
	f.StringVar(&addRec.HealthObservations, "observations", "", "health observations")
	f.StringVar(&addRec.Photo, "photo", "", "photo reference")
	f.StringVar(&addRec.DateCollected, "collected", "", "collection time, RFC 3339 (default now)")
	f.StringVar(&addRec.HealthID, "health-id", "", "existing health id to update")
	f.Float64Var(&addLat, "lat", 0, "latitude")
	f.Float64Var(&addLon, "lon", 0, "longitude")
	f.StringVar(&addAddress, "address", "", "address of the location")

	_ = AddCmd.MarkFlagRequired("name")
}
