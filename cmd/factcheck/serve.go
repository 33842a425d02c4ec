package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/omaribamark/factcheck-core/internal/application/worker"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/metrics"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the verification workers",
		Long: `Consumes the job queue with the configured number of workers and runs the
periodic maintenance tasks: trending decay, abandoned session expiry and
requeueing of claims stuck in pending. Metrics and health are served over HTTP.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "metrics-addr", "", "Metrics listen address (default: metrics.addr from config)")

	return cmd
}

func runServe(cmd *cobra.Command, addr string) error {
	ctx := cmd.Context()

	return withInternalDeps(ctx, func(d *internalDeps) error {
		if d.processor == nil {
			return errNoLLM
		}
		wf := d.Config.Workflow
		log := d.Log.With("component", "serve")

		if d.recoverer != nil {
			n, err := d.recoverer.RecoverInFlight(ctx)
			if err != nil {
				return fmt.Errorf("recovering in-flight jobs: %w", err)
			}
			if n > 0 {
				log.Info("recovered in-flight jobs", "count", n)
			}
		}
		// Pending claims whose job was lost (memory queue restart, dead-lettered
		// job) are picked up again here and by the periodic task.
		if _, err := d.claims.RequeueStale(ctx, wf.StaleAfter); err != nil {
			return fmt.Errorf("requeueing stale claims: %w", err)
		}

		pool := worker.NewPool(d.queue, d.processor, d.trending, worker.Options{
			Workers:            wf.Workers,
			MaxAttempts:        wf.MaxAttempts,
			RetryBackoff:       wf.RetryBackoff,
			QueueDepthInterval: queueDepthInterval,
		}, d.Log, d.metrics)

		pool.Schedule(worker.Task{Name: "trending_refresh", Interval: wf.RefreshInterval, Run: func(ctx context.Context) error {
			_, err := d.trending.Refresh(ctx)
			return err
		}})
		pool.Schedule(worker.Task{Name: "expire_sessions", Interval: sessionSweepInterval, Run: func(ctx context.Context) error {
			_, err := d.review.ExpireAbandonedSessions(ctx)
			return err
		}})
		pool.Schedule(worker.Task{Name: "requeue_stale", Interval: wf.StaleAfter, Run: func(ctx context.Context) error {
			_, err := d.claims.RequeueStale(ctx, wf.StaleAfter)
			return err
		}})

		if addr == "" {
			addr = d.Config.Metrics.Addr
		}
		checks := map[string]func(context.Context) error{"sqlite": d.relationalDB.Ping}
		if d.redis != nil {
			checks["redis"] = d.redis.Health
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           newOpsHandler(d.metrics, checks),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return pool.Run(gctx)
		})
		g.Go(func() error {
			log.Info("serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		fmt.Printf("Serving with %d workers (metrics on %s). Press Ctrl+C to stop.\n", wf.Workers, addr)
		return g.Wait()
	})
}

// newOpsHandler serves /metrics and a /healthz that runs every check.
func newOpsHandler(m *metrics.Metrics, checks map[string]func(context.Context) error) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for _, name := range names {
			if err := checks[name](r.Context()); err != nil {
				report[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
	})
	return mux
}
