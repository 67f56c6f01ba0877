package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deusflow/newsposter/internal/app"
	"github.com/deusflow/newsposter/internal/config"
	"github.com/deusflow/newsposter/internal/logger"
	"github.com/deusflow/newsposter/internal/metrics"
)

func main() {
	every := flag.Duration("every", 0, "repeat the run at this interval (0 = run once)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Init(false)
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.EnableMonitoring {
		go startMonitoringServer(ctx, cfg.MonitoringPort, log)
	}
	if cfg.DryRun {
		log.Info("dry run: nothing will be posted and the ledger stays untouched")
	}

	for {
		if err := runOnce(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("run failed", "error", err)
			if *every == 0 {
				os.Exit(1)
			}
		}
		if *every == 0 {
			return
		}

		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return
		case <-time.After(*every):
		}
	}
}

// runOnce wires a fresh app so every run starts with a full generation
// budget and an empty memo.
func runOnce(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	a, err := app.Build(ctx, cfg, metrics.Global, log)
	if err != nil {
		metrics.Global.SetError(err.Error(), time.Now())
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("closing resources", "error", err)
		}
	}()

	report, err := a.Run(ctx, time.Now())
	if err != nil {
		return err
	}
	log.Info("run summary",
		"topic", report.Topic,
		"published", report.Published(),
		"selected", report.Selected,
		"duplicates", report.Dedup.Duplicates,
	)
	return nil
}

func startMonitoringServer(ctx context.Context, port string, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/metrics", metricsHandler)

	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("starting monitoring server", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("monitoring server error", "error", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	code := http.StatusOK
	if !stats["is_healthy"].(bool) {
		status = "error"
		code = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response)
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
