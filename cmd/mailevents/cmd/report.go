package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var from, to string

	c := &cobra.Command{
		Use:   "report",
		Short: "Print stored event totals by type for an hour range",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			start, end, err := parseRange(from, to)
			if err != nil {
				return err
			}
			ctx := context.Background()
			store, _, err := e.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			// The range is hour-inclusive, so the window ends one hour past --to.
			tot, err := store.Totals(ctx, start, end.Add(time.Hour))
			if err != nil {
				return fmt.Errorf("query totals: %w", err)
			}

			fmt.Printf("Window:     %s .. %s\n", start.Format(time.RFC3339), end.Add(time.Hour).Format(time.RFC3339))
			fmt.Printf("Events:     %d\n", tot.Count)
			fmt.Printf("Recipients: %d\n", tot.UniqueRecipients)
			for _, tc := range tot.ByType {
				fmt.Printf("  %-18s %d\n", tc.EventType, tc.Count)
			}
			return nil
		},
	}

	c.Flags().StringVar(&from, "from", "", "first hour (UTC)")
	c.Flags().StringVar(&to, "to", "", "last hour, inclusive (UTC)")
	_ = c.MarkFlagRequired("from")
	_ = c.MarkFlagRequired("to")
	return c
}
