package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"example.com/mailevents/internal/source"
)

func newFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "file <path.gz>",
		Short: "Ingest one gzip-compressed newline-delimited JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			store, sink, err := e.openMigrated(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runner, err := e.newRunner(sink)
			if err != nil {
				return err
			}
			sum, err := runner.Run(ctx, source.NewFile(args[0]))
			printSummary(sum)
			return err
		},
	}
}
