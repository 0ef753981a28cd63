package record

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"childhealth/cmd/client/cmd/types"
	"childhealth/internal/app/client/localstore"
)

var (
	listFormat  string
	pendingOnly bool
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records stored on this device",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		var records []localstore.Record
		if pendingOnly {
			records, err = app.PendingRecords(cmd.Context())
		} else {
			records, err = app.Records(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}

		if listFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}
		return printTable(records)
	},
}

func printTable(records []localstore.Record) error {
	if len(records) == 0 {
		fmt.Println("No records.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LOCAL ID\tHEALTH ID\tCHILD\tAGE\tCOLLECTED\tSTATUS")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.LocalID, rec.HealthID, rec.ChildName, rec.Age, rec.DateCollected, syncStatus(rec))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d records\n", len(records))
	return nil
}

func init() {
	ListCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format: table or json")
	ListCmd.Flags().BoolVar(&pendingOnly, "pending", false, "only records waiting for upload")
}
