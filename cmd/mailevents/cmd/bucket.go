package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"example.com/mailevents/internal/source"
)

func newBucketCmd() *cobra.Command {
	var from, to, bucket, prefix string

	c := &cobra.Command{
		Use:   "bucket",
		Short: "Ingest every object under the YYYY/MM/DD/HH/ prefixes of an hour range",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			if bucket != "" {
				e.cfg.Bucket.Name = bucket
			}
			if cmd.Flags().Changed("prefix") {
				e.cfg.Bucket.Prefix = prefix
			}
			if e.cfg.Bucket.Name == "" {
				return fmt.Errorf("bucket.name is required (set via config file, MAILEVENTS_BUCKET_NAME or --bucket)")
			}
			start, end, err := parseRange(from, to)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			client, err := source.NewS3Client(ctx, e.cfg.Bucket.Region, e.cfg.Bucket.Endpoint)
			if err != nil {
				return err
			}
			store, sink, err := e.openMigrated(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runner, err := e.newRunner(sink)
			if err != nil {
				return err
			}
			e.logger.Info().
				Str("bucket", e.cfg.Bucket.Name).
				Time("from", start).
				Time("to", end).
				Int("workers", runner.Workers).
				Msg("ingesting bucket range")
			sum, err := runner.Run(ctx, source.NewBucket(client, e.cfg.Bucket.Name, e.cfg.Bucket.Prefix, start, end))
			printSummary(sum)
			return err
		},
	}

	c.Flags().StringVar(&from, "from", "", "first hour to ingest (UTC)")
	c.Flags().StringVar(&to, "to", "", "last hour to ingest, inclusive (UTC)")
	c.Flags().StringVar(&bucket, "bucket", "", "override bucket.name")
	c.Flags().StringVar(&prefix, "prefix", "", "override bucket.prefix")
	_ = c.MarkFlagRequired("from")
	_ = c.MarkFlagRequired("to")
	return c
}
