package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusops/docvault/internal/bootstrap"
	"github.com/campusops/docvault/internal/config"
	"github.com/campusops/docvault/internal/core/domain"
	"github.com/campusops/docvault/internal/observability/logging"
	"github.com/campusops/docvault/internal/observability/metrics"
)

// The janitor owns reconciliation: it runs cleanup passes on an interval
// and tails the lifecycle feed for the audit log.
func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("docvault-janitor", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	m := metrics.NewJanitorMetrics("docvault-janitor")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.JanitorMetricsPort,
		Handler: m.Handler(),
	}
	go func() {
		slog.Info("janitor metrics listening", "port", cfg.JanitorMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("janitor metrics server error: %v", err)
		}
	}()

	go runCleanupLoop(ctx, app, m, cfg.CleanupInterval())

	slog.Info("janitor subscribed to lifecycle feed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentEvents(ctx, func(_ context.Context, ev domain.Event) error {
		m.RecordEvent("docvault-janitor", string(ev.Type))
		slog.Info("lifecycle event",
			"type", string(ev.Type),
			"document_id", ev.DocumentID,
			"filename", ev.Filename,
			"reason", ev.Reason,
		)
		return nil
	})
	if err != nil {
		log.Fatalf("janitor subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}

func runCleanupLoop(ctx context.Context, app *bootstrap.App, m *metrics.JanitorMetrics, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			summary, err := app.Reconciler.CleanupOrphans(ctx)
			if err != nil {
				m.RecordPass("docvault-janitor", "error", time.Since(start), 0, 0, 0)
				slog.Error("cleanup pass failed", "error", err)
				continue
			}
			m.RecordPass("docvault-janitor", "ok", time.Since(start),
				summary.OrphansRemoved, summary.BytesReclaimed, summary.CorruptedMarked)
			slog.Info("cleanup pass finished",
				"orphans_removed", summary.OrphansRemoved,
				"bytes_reclaimed", summary.BytesReclaimed,
				"corrupted_marked", summary.CorruptedMarked,
				"keys_skipped", summary.KeysSkipped,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
			)
		}
	}
}
