// Package config loads watchdogd's runtime configuration from environment
// variables, overlaid by command-line flags, following the same
// defaults-then-env-then-flags-then-validate convention used throughout
// this codebase's ambient stack.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// HistoryBackend selects the audit-event store implementation.
type HistoryBackend string

const (
	HistoryBackendMemory HistoryBackend = "memory"
	HistoryBackendSQLite HistoryBackend = "sqlite"
)

// Config contains all runtime configuration for the watchdogd server.
type Config struct {
	ServerName   string
	ScanPeriodMS int
	MailboxInbox int

	APIListenAddr string
	APIEnabled    bool

	HistoryBackend    HistoryBackend
	HistorySQLitePath string
	HistoryCapacity   int

	MetricsEnabled bool
	MetricsPath    string

	// Process manager guard
	RecoveryCooldown       time.Duration
	RecoveryMaxPerHour     int
	RecoveryCommandTimeout time.Duration
	RecoveryPostCommand    string

	LogLevel string
}

// Load parses env vars (prefixed WATCHDOG_) then flags (flags win), and
// returns a validated Config.
func Load() (Config, error) {
	cfg := Config{
		ServerName:   getEnvString("WATCHDOG_SERVER_NAME", "watchdog"),
		ScanPeriodMS: getEnvInt("WATCHDOG_SCAN_PERIOD_MS", 100),
		MailboxInbox: getEnvInt("WATCHDOG_MAILBOX_INBOX_SIZE", 32),

		APIListenAddr: getEnvString("WATCHDOG_API_LISTEN_ADDR", ":8080"),
		APIEnabled:    getEnvBool("WATCHDOG_API_ENABLED", true),

		HistoryBackend:    HistoryBackend(getEnvString("WATCHDOG_HISTORY_BACKEND", string(HistoryBackendMemory))),
		HistorySQLitePath: getEnvString("WATCHDOG_HISTORY_SQLITE_PATH", "watchdogd-history.db"),
		HistoryCapacity:   getEnvInt("WATCHDOG_HISTORY_CAPACITY", 1000),

		MetricsEnabled: getEnvBool("WATCHDOG_METRICS_ENABLED", true),
		MetricsPath:    getEnvString("WATCHDOG_METRICS_PATH", "/metrics"),

		RecoveryCooldown:       getEnvDuration("WATCHDOG_RECOVERY_COOLDOWN", 120*time.Second),
		RecoveryMaxPerHour:     getEnvInt("WATCHDOG_RECOVERY_MAX_PER_HOUR", 6),
		RecoveryCommandTimeout: getEnvDuration("WATCHDOG_RECOVERY_COMMAND_TIMEOUT", 30*time.Second),
		RecoveryPostCommand:    getEnvString("WATCHDOG_RECOVERY_POST_COMMAND", ""),

		LogLevel: getEnvString("WATCHDOG_LOG_LEVEL", "info"),
	}

	flag.StringVar(&cfg.ServerName, "server-name", cfg.ServerName, "watchdog server mailbox name (env WATCHDOG_SERVER_NAME)")
	flag.IntVar(&cfg.ScanPeriodMS, "scan-period-ms", cfg.ScanPeriodMS, "expiration scan period in milliseconds (env WATCHDOG_SCAN_PERIOD_MS)")
	flag.IntVar(&cfg.MailboxInbox, "mailbox-inbox-size", cfg.MailboxInbox, "per-endpoint mailbox inbox capacity (env WATCHDOG_MAILBOX_INBOX_SIZE)")
	flag.StringVar(&cfg.APIListenAddr, "api-listen", cfg.APIListenAddr, "REST/dashboard API listen address (env WATCHDOG_API_LISTEN_ADDR)")
	flag.BoolVar(&cfg.APIEnabled, "api-enabled", cfg.APIEnabled, "serve the REST/dashboard API (env WATCHDOG_API_ENABLED)")
	historyBackend := flag.String("history-backend", string(cfg.HistoryBackend), "history backend: memory|sqlite (env WATCHDOG_HISTORY_BACKEND)")
	flag.StringVar(&cfg.HistorySQLitePath, "history-sqlite-path", cfg.HistorySQLitePath, "sqlite database path when history-backend=sqlite (env WATCHDOG_HISTORY_SQLITE_PATH)")
	flag.IntVar(&cfg.HistoryCapacity, "history-capacity", cfg.HistoryCapacity, "retained event count when history-backend=memory (env WATCHDOG_HISTORY_CAPACITY)")
	flag.BoolVar(&cfg.MetricsEnabled, "metrics-enabled", cfg.MetricsEnabled, "expose Prometheus metrics (env WATCHDOG_METRICS_ENABLED)")
	flag.StringVar(&cfg.MetricsPath, "metrics-path", cfg.MetricsPath, "metrics endpoint path (env WATCHDOG_METRICS_PATH)")
	flag.DurationVar(&cfg.RecoveryCooldown, "recovery-cooldown", cfg.RecoveryCooldown, "minimum time between recovery actions (env WATCHDOG_RECOVERY_COOLDOWN)")
	flag.IntVar(&cfg.RecoveryMaxPerHour, "recovery-max-per-hour", cfg.RecoveryMaxPerHour, "max recovery actions per rolling hour (env WATCHDOG_RECOVERY_MAX_PER_HOUR)")
	flag.DurationVar(&cfg.RecoveryCommandTimeout, "recovery-command-timeout", cfg.RecoveryCommandTimeout, "timeout for the optional post-recovery command (env WATCHDOG_RECOVERY_COMMAND_TIMEOUT)")
	flag.StringVar(&cfg.RecoveryPostCommand, "recovery-post-command", cfg.RecoveryPostCommand, "optional shell command run after a recovery action (env WATCHDOG_RECOVERY_POST_COMMAND)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug|info|warn|error (env WATCHDOG_LOG_LEVEL)")

	flag.Parse()
	cfg.HistoryBackend = HistoryBackend(*historyBackend)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ServerName == "" {
		return fmt.Errorf("WATCHDOG_SERVER_NAME must not be empty")
	}
	if c.ScanPeriodMS <= 0 {
		return fmt.Errorf("WATCHDOG_SCAN_PERIOD_MS must be > 0")
	}
	if c.MailboxInbox <= 0 {
		return fmt.Errorf("WATCHDOG_MAILBOX_INBOX_SIZE must be > 0")
	}
	switch c.HistoryBackend {
	case HistoryBackendMemory, HistoryBackendSQLite:
	default:
		return fmt.Errorf("invalid WATCHDOG_HISTORY_BACKEND: %q", c.HistoryBackend)
	}
	if c.HistoryBackend == HistoryBackendSQLite && c.HistorySQLitePath == "" {
		return fmt.Errorf("WATCHDOG_HISTORY_SQLITE_PATH is required when WATCHDOG_HISTORY_BACKEND=sqlite")
	}
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("WATCHDOG_HISTORY_CAPACITY must be > 0")
	}
	if c.RecoveryCooldown < 0 {
		return fmt.Errorf("WATCHDOG_RECOVERY_COOLDOWN must be >= 0")
	}
	if c.RecoveryMaxPerHour < 1 {
		return fmt.Errorf("WATCHDOG_RECOVERY_MAX_PER_HOUR must be >= 1")
	}
	if c.RecoveryCommandTimeout <= 0 {
		return fmt.Errorf("WATCHDOG_RECOVERY_COMMAND_TIMEOUT must be > 0")
	}
	return nil
}

func getEnvString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}
