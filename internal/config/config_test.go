package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range append([]string{"CONFIG_FILE"}, allEnvKeys...) {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "papertrade.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if !cfg.FeeRate.Equal(decimal.RequireFromString("0.005")) {
		t.Errorf("FeeRate = %s, want 0.005", cfg.FeeRate)
	}
	if !cfg.StartingBalance.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("StartingBalance = %s, want 100000", cfg.StartingBalance)
	}
	if cfg.Currency != "MAD" {
		t.Errorf("Currency = %q, want MAD", cfg.Currency)
	}
	if cfg.TransactionLimit != 100 {
		t.Errorf("TransactionLimit = %d, want 100", cfg.TransactionLimit)
	}
	if cfg.StorageDriver != StorageMemory {
		t.Errorf("StorageDriver = %q, want memory", cfg.StorageDriver)
	}
	if cfg.SnapshotStore != "" {
		t.Errorf("SnapshotStore = %q, want empty", cfg.SnapshotStore)
	}
	if cfg.SnapshotInterval != 5*time.Minute {
		t.Errorf("SnapshotInterval = %v, want 5m", cfg.SnapshotInterval)
	}
	if cfg.SnapshotQueueSize != 256 {
		t.Errorf("SnapshotQueueSize = %d, want 256", cfg.SnapshotQueueSize)
	}
	if cfg.OracleURL != "" {
		t.Errorf("OracleURL = %q, want empty", cfg.OracleURL)
	}
	if cfg.OracleTimeout != 2*time.Second {
		t.Errorf("OracleTimeout = %v, want 2s", cfg.OracleTimeout)
	}
	if cfg.OracleCacheTTL != 5*time.Minute {
		t.Errorf("OracleCacheTTL = %v, want 5m", cfg.OracleCacheTTL)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FEE_RATE", "0.001")
	t.Setenv("STARTING_BALANCE", "5000.50")
	t.Setenv("CURRENCY", "usd")
	t.Setenv("TRANSACTION_LIMIT", "20")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:papertrade.db")
	t.Setenv("SNAPSHOT_STORE", "wal")
	t.Setenv("SNAPSHOT_WAL_DIR", "/var/lib/papertrade/wal")
	t.Setenv("SNAPSHOT_INTERVAL", "0")
	t.Setenv("ORACLE_URL", "http://prices.local:9000")
	t.Setenv("ORACLE_CACHE_TTL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if !cfg.FeeRate.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("FeeRate = %s, want 0.001", cfg.FeeRate)
	}
	if !cfg.StartingBalance.Equal(decimal.RequireFromString("5000.5")) {
		t.Errorf("StartingBalance = %s, want 5000.5", cfg.StartingBalance)
	}
	if cfg.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", cfg.Currency)
	}
	if cfg.TransactionLimit != 20 {
		t.Errorf("TransactionLimit = %d, want 20", cfg.TransactionLimit)
	}
	if cfg.StorageDriver != StorageSQLite || cfg.DatabaseURL != "file:papertrade.db" {
		t.Errorf("storage = %q %q", cfg.StorageDriver, cfg.DatabaseURL)
	}
	if cfg.SnapshotStore != SnapshotStoreWAL || cfg.SnapshotWALDir != "/var/lib/papertrade/wal" {
		t.Errorf("snapshot store = %q %q", cfg.SnapshotStore, cfg.SnapshotWALDir)
	}
	if cfg.SnapshotInterval != 0 {
		t.Errorf("SnapshotInterval = %v, want 0", cfg.SnapshotInterval)
	}
	if cfg.OracleURL != "http://prices.local:9000" {
		t.Errorf("OracleURL = %q", cfg.OracleURL)
	}
	if cfg.OracleCacheTTL != 30*time.Second {
		t.Errorf("OracleCacheTTL = %v, want 30s", cfg.OracleCacheTTL)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantKey string
	}{
		{"port not a number", map[string]string{"PORT": "abc"}, "PORT"},
		{"port out of range", map[string]string{"PORT": "70000"}, "PORT"},
		{"log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"fee rate negative", map[string]string{"FEE_RATE": "-0.1"}, "FEE_RATE"},
		{"fee rate one", map[string]string{"FEE_RATE": "1"}, "FEE_RATE"},
		{"fee rate garbage", map[string]string{"FEE_RATE": "half"}, "FEE_RATE"},
		{"starting balance zero", map[string]string{"STARTING_BALANCE": "0"}, "STARTING_BALANCE"},
		{"currency unknown", map[string]string{"CURRENCY": "XYZ"}, "CURRENCY"},
		{"transaction limit zero", map[string]string{"TRANSACTION_LIMIT": "0"}, "TRANSACTION_LIMIT"},
		{"storage driver", map[string]string{"STORAGE_DRIVER": "mongo"}, "STORAGE_DRIVER"},
		{"postgres without dsn", map[string]string{"STORAGE_DRIVER": "postgres"}, "DATABASE_URL"},
		{"snapshot store", map[string]string{"SNAPSHOT_STORE": "s3"}, "SNAPSHOT_STORE"},
		{"snapshot interval", map[string]string{"SNAPSHOT_INTERVAL": "soon"}, "SNAPSHOT_INTERVAL"},
		{"negative interval", map[string]string{"SNAPSHOT_INTERVAL": "-1s"}, "SNAPSHOT_INTERVAL"},
		{"queue size", map[string]string{"SNAPSHOT_QUEUE_SIZE": "0"}, "SNAPSHOT_QUEUE_SIZE"},
		{"oracle url", map[string]string{"ORACLE_URL": "prices.local"}, "ORACLE_URL"},
		{"oracle timeout zero", map[string]string{"ORACLE_TIMEOUT": "0s"}, "ORACLE_TIMEOUT"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantKey) {
				t.Errorf("error %q should name %s", err.Error(), tc.wantKey)
			}
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeConfigFile(t, `
port: 9191
fee_rate: 0.0025
starting_balance: 25000
storage_driver: sqlite
database_url: file:test.db
snapshot_interval: 1m
`))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9191 {
		t.Errorf("Port = %d, want 9191", cfg.Port)
	}
	if !cfg.FeeRate.Equal(decimal.RequireFromString("0.0025")) {
		t.Errorf("FeeRate = %s, want 0.0025", cfg.FeeRate)
	}
	if !cfg.StartingBalance.Equal(decimal.NewFromInt(25000)) {
		t.Errorf("StartingBalance = %s, want 25000", cfg.StartingBalance)
	}
	if cfg.StorageDriver != StorageSQLite || cfg.DatabaseURL != "file:test.db" {
		t.Errorf("storage = %q %q", cfg.StorageDriver, cfg.DatabaseURL)
	}
	if cfg.SnapshotInterval != time.Minute {
		t.Errorf("SnapshotInterval = %v, want 1m", cfg.SnapshotInterval)
	}
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeConfigFile(t, "port: 9191\nlog_level: warn\n"))
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070 from env", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn from file", cfg.LogLevel)
	}
}

func TestLoad_ConfigFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
		if _, err := Load(); err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", writeConfigFile(t, "port: [1, 2\n"))
		if _, err := Load(); err == nil {
			t.Fatal("expected error for malformed yaml")
		}
	})

	t.Run("nested value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", writeConfigFile(t, "storage:\n  driver: sqlite\n"))
		_, err := Load()
		if err == nil {
			t.Fatal("expected error for nested value")
		}
		if !strings.Contains(err.Error(), "scalar") {
			t.Errorf("error = %q, want scalar complaint", err.Error())
		}
	})

	t.Run("invalid value in file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", writeConfigFile(t, "fee_rate: 2\n"))
		if _, err := Load(); err == nil {
			t.Fatal("expected error for fee_rate 2")
		}
	})
}
