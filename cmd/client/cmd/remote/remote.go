// Package remote shows records already stored on the server.
package remote

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"childhealth/cmd/client/cmd/types"
)

const requestTimeout = 30 * time.Second

var (
	page  int
	limit int
)

var RemoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Inspect records uploaded to the server",
}

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your uploaded records, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		res, err := app.RemoteRecords(ctx, page, limit)
		if err != nil {
			return fmt.Errorf("list remote records: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "HEALTH ID\tCHILD\tAGE\tUPLOADED AT")
		for _, rec := range res.Records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.HealthID, rec.ChildName, rec.Age, rec.UploadedAt)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		p := res.Pagination
		fmt.Printf("\nPage %d of %d, %d records in total\n", p.Page, p.TotalPages, p.Total)
		return nil
	},
}

var ShowCmd = &cobra.Command{
	Use:   "show <health-id>",
	Short: "Show one uploaded record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		rec, err := app.RemoteRecord(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get remote record: %w", err)
		}

		fmt.Printf("Health ID:   %s\n", rec.HealthID)
		fmt.Printf("Child:       %s, age %s, %s\n", rec.ChildName, rec.Age, rec.Gender)
		fmt.Printf("Guardian:    %s (%s)\n", rec.GuardianName, rec.Relation)
		fmt.Printf("Uploaded by: %s (%s) at %s\n", rec.UploadedBy, rec.UploaderEmployeeID, rec.UploadedAt)
		fmt.Printf("Updated:     %s\n", rec.UpdatedAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	ListCmd.Flags().IntVar(&page, "page", 1, "page number")
	ListCmd.Flags().IntVar(&limit, "limit", 10, "records per page, at most 100")
	RemoteCmd.AddCommand(ListCmd, ShowCmd)
}
