package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the email_events table if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			store, _, err := e.openMigrated(context.Background())
			if err != nil {
				return err
			}
			store.Close()
			fmt.Println("Schema is up to date.")
			return nil
		},
	}
}
