package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"watchdogd/internal/api"
	"watchdogd/internal/config"
	"watchdogd/internal/history"
	"watchdogd/internal/mailbox"
	"watchdogd/internal/processmanager"
	"watchdogd/internal/watchdogserver"
	"watchdogd/internal/wlog"
	"watchdogd/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(2)
	}

	logger := wlog.New(cfg.LogLevel)
	logConfig(logger, cfg)

	hist, err := newHistoryStore(cfg)
	if err != nil {
		logger.Error("failed to open history store", "err", err)
		os.Exit(2)
	}
	defer hist.Close()

	var metrics *watchdogserver.Metrics
	var registry *prometheus.Registry
	if cfg.MetricsEnabled {
		registry = prometheus.NewRegistry()
		metrics = watchdogserver.NewMetrics(registry)
	}

	net := mailbox.NewNetwork(cfg.MailboxInbox)
	pm := processmanager.NewOSProcessManager(processmanager.GuardConfig{
		Cooldown:         cfg.RecoveryCooldown,
		MaxPerHour:       cfg.RecoveryMaxPerHour,
		CommandTimeout:   cfg.RecoveryCommandTimeout,
		PostResetCommand: cfg.RecoveryPostCommand,
	}, logger)

	opts := []watchdogserver.Option{
		watchdogserver.WithHistory(hist),
		watchdogserver.WithScanPeriod(time.Duration(cfg.ScanPeriodMS) * time.Millisecond),
	}
	if metrics != nil {
		opts = append(opts, watchdogserver.WithMetrics(metrics))
	}
	server := watchdogserver.New(logger, net, cfg.ServerName, pm, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		server.Start(ctx)
	}()

	var httpSrv *http.Server
	if cfg.APIEnabled || cfg.MetricsEnabled {
		mux := http.NewServeMux()
		if cfg.APIEnabled {
			apiSrv := api.NewServer(server, hist, cfg, logger)
			mux.Handle(api.APIPrefix+"/", apiSrv)
		}
		if cfg.MetricsEnabled {
			mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		}
		if cfg.APIEnabled {
			if assets, err := web.Assets(); err != nil {
				logger.Warn("dashboard assets unavailable", "err", err)
			} else {
				mux.Handle("/", http.FileServer(http.FS(assets)))
			}
		}
		httpSrv = &http.Server{
			Addr:              cfg.APIListenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		logger.Info("starting watchdogd http listener", "listen", cfg.APIListenAddr, "api_enabled", cfg.APIEnabled, "metrics_enabled", cfg.MetricsEnabled)
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				wlog.Fatal(logger, "http listener error", "err", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	server.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if httpSrv != nil {
		_ = httpSrv.Shutdown(shutdownCtx)
	}

	select {
	case <-serverDone:
	case <-shutdownCtx.Done():
		logger.Warn("watchdog server did not stop within shutdown timeout")
	}
}

func newHistoryStore(cfg config.Config) (history.Store, error) {
	switch cfg.HistoryBackend {
	case config.HistoryBackendSQLite:
		return history.NewSQLiteStore(cfg.HistorySQLitePath)
	default:
		return history.NewMemoryStore(cfg.HistoryCapacity), nil
	}
}

func logConfig(logger *slog.Logger, cfg config.Config) {
	logger.Info("configuration",
		"server_name", cfg.ServerName,
		"scan_period_ms", cfg.ScanPeriodMS,
		"mailbox_inbox_size", cfg.MailboxInbox,
		"api_listen_addr", cfg.APIListenAddr,
		"api_enabled", cfg.APIEnabled,
		"history_backend", cfg.HistoryBackend,
		"history_sqlite_path", cfg.HistorySQLitePath,
		"history_capacity", cfg.HistoryCapacity,
		"metrics_enabled", cfg.MetricsEnabled,
		"metrics_path", cfg.MetricsPath,
		"recovery_cooldown", cfg.RecoveryCooldown,
		"recovery_max_per_hour", cfg.RecoveryMaxPerHour,
		"recovery_command_timeout", cfg.RecoveryCommandTimeout,
		"log_level", cfg.LogLevel,
	)
}
