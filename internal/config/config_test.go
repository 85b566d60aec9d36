package config

import "testing"

func validConfig() Config {
	return Config{
		ServerName:             "watchdog",
		ScanPeriodMS:           100,
		MailboxInbox:           32,
		APIListenAddr:          ":8080",
		APIEnabled:             true,
		HistoryBackend:         HistoryBackendMemory,
		HistorySQLitePath:      "watchdogd-history.db",
		HistoryCapacity:        1000,
		MetricsEnabled:         true,
		MetricsPath:            "/metrics",
		RecoveryCooldown:       0,
		RecoveryMaxPerHour:     6,
		RecoveryCommandTimeout: 1,
		LogLevel:               "info",
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() on a default-shaped config = %v, want nil", err)
	}
}

func TestValidateRejectsEmptyServerName(t *testing.T) {
	cfg := validConfig()
	cfg.ServerName = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty server name")
	}
}

func TestValidateRejectsNonPositiveScanPeriod(t *testing.T) {
	cfg := validConfig()
	cfg.ScanPeriodMS = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero scan period")
	}
}

func TestValidateRejectsUnknownHistoryBackend(t *testing.T) {
	cfg := validConfig()
	cfg.HistoryBackend = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown history backend")
	}
}

func TestValidateRequiresSQLitePathForSQLiteBackend(t *testing.T) {
	cfg := validConfig()
	cfg.HistoryBackend = HistoryBackendSQLite
	cfg.HistorySQLitePath = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty sqlite path with sqlite backend")
	}
}

func TestValidateRejectsZeroMaxPerHour(t *testing.T) {
	cfg := validConfig()
	cfg.RecoveryMaxPerHour = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for RecoveryMaxPerHour < 1")
	}
}

func TestValidateRejectsNonPositiveCommandTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.RecoveryCommandTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-positive RecoveryCommandTimeout")
	}
}
