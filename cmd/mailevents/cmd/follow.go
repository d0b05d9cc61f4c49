package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"example.com/mailevents/internal/follow"
	"example.com/mailevents/internal/ingest"
	"example.com/mailevents/internal/metrics"
	"example.com/mailevents/internal/source"
	transport "example.com/mailevents/internal/transport/http"
)

func newFollowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow",
		Short: "Periodically ingest the most recent complete hours from the bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			if e.cfg.Bucket.Name == "" {
				return fmt.Errorf("bucket.name is required (set via config file or MAILEVENTS_BUCKET_NAME)")
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

			reg := prom.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			runner, err := e.newRunner(sink)
			if err != nil {
				return err
			}
			runner.Recorder = metrics.NewPrometheusRecorder(reg)

			f, err := follow.New(func(ctx context.Context, from, to time.Time) (ingest.Summary, error) {
				return runner.Run(ctx, source.NewBucket(client, e.cfg.Bucket.Name, e.cfg.Bucket.Prefix, from, to))
			}, e.cfg.Follow.Interval, e.cfg.Follow.LookbackHours, e.logger)
			if err != nil {
				return err
			}

			deps := &transport.ServerDeps{
				Store:   store,
				Metrics: metrics.Handler(reg),
				Status:  func() any { return f.Last() },
			}
			srv := transport.NewServer(e.cfg.Ops.Listen, deps.Router())
			go func() {
				e.logger.Info().Str("addr", e.cfg.Ops.Listen).Msg("ops server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					e.logger.Error().Err(err).Msg("ops server failed")
					cancel()
				}
			}()

			runErr := f.Run(ctx)

			shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel2()
			_ = srv.Shutdown(shutdownCtx)
			return runErr
		},
	}
}
