package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// SnapshotStoreWAL selects the segment-log snapshot store.
const SnapshotStoreWAL = "wal"

// Config holds all runtime configuration for the paper trading server.
type Config struct {
	Port            int
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	FeeRate          decimal.Decimal
	StartingBalance  decimal.Decimal
	Currency         string
	TransactionLimit int

	StorageDriver string
	DatabaseURL   string

	SnapshotStore     string
	SnapshotWALDir    string
	SnapshotInterval  time.Duration
	SnapshotQueueSize int

	OracleURL      string
	OracleTimeout  time.Duration
	OracleCacheTTL time.Duration
}

// source resolves a key from the environment first and then from the
// optional config file.
type source struct {
	file map[string]string
}

func (s source) get(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[strings.ToLower(key)]
}

// Load reads configuration from the YAML file named by CONFIG_FILE, if any,
// and from environment variables, which take precedence. Defaults are
// applied and every value is validated.
func Load() (*Config, error) {
	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}
	return load(src)
}

// readFile parses a flat YAML mapping. Keys are the lower-case environment
// names, e.g. "fee_rate: 0.005".
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CONFIG_FILE: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("parse CONFIG_FILE %s: key %q must be a scalar", path, k)
		case nil:
			continue
		}
		out[strings.ToLower(k)] = fmt.Sprint(v)
	}
	return out, nil
}

func load(src source) (*Config, error) {
	cfg := &Config{}
	var err error

	if cfg.Port, err = getInt(src, "PORT", 8080); err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d out of range", cfg.Port)
	}

	cfg.LogLevel = getStr(src, "LOG_LEVEL", "info")
	if !isValidLogLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", cfg.LogLevel)
	}

	durations := []struct {
		key string
		dst *time.Duration
		def time.Duration
	}{
		{"READ_TIMEOUT", &cfg.ReadTimeout, 5 * time.Second},
		{"WRITE_TIMEOUT", &cfg.WriteTimeout, 10 * time.Second},
		{"IDLE_TIMEOUT", &cfg.IdleTimeout, 60 * time.Second},
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout, 10 * time.Second},
		{"SNAPSHOT_INTERVAL", &cfg.SnapshotInterval, 5 * time.Minute},
		{"ORACLE_TIMEOUT", &cfg.OracleTimeout, 2 * time.Second},
		{"ORACLE_CACHE_TTL", &cfg.OracleCacheTTL, 5 * time.Minute},
	}
	for _, d := range durations {
		v, err := getDuration(src, d.key, d.def)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("invalid %s: must not be negative", d.key)
		}
		*d.dst = v
	}
	if cfg.OracleTimeout == 0 {
		return nil, fmt.Errorf("invalid ORACLE_TIMEOUT: must be > 0")
	}

	if cfg.FeeRate, err = getDecimal(src, "FEE_RATE", decimal.RequireFromString("0.005")); err != nil {
		return nil, fmt.Errorf("invalid FEE_RATE: %w", err)
	}
	if cfg.FeeRate.IsNegative() || cfg.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("invalid FEE_RATE: %s, must be in [0, 1)", cfg.FeeRate)
	}

	if cfg.StartingBalance, err = getDecimal(src, "STARTING_BALANCE", decimal.NewFromInt(100000)); err != nil {
		return nil, fmt.Errorf("invalid STARTING_BALANCE: %w", err)
	}
	if !cfg.StartingBalance.IsPositive() {
		return nil, fmt.Errorf("invalid STARTING_BALANCE: %s, must be > 0", cfg.StartingBalance)
	}

	cfg.Currency = strings.ToUpper(getStr(src, "CURRENCY", "MAD"))
	if money.GetCurrency(cfg.Currency) == nil {
		return nil, fmt.Errorf("invalid CURRENCY: %q is not an ISO 4217 code", cfg.Currency)
	}

	if cfg.TransactionLimit, err = getInt(src, "TRANSACTION_LIMIT", 100); err != nil {
		return nil, fmt.Errorf("invalid TRANSACTION_LIMIT: %w", err)
	}
	if cfg.TransactionLimit < 1 {
		return nil, fmt.Errorf("invalid TRANSACTION_LIMIT: %d, must be >= 1", cfg.TransactionLimit)
	}

	cfg.StorageDriver = strings.ToLower(getStr(src, "STORAGE_DRIVER", StorageMemory))
	cfg.DatabaseURL = getStr(src, "DATABASE_URL", "")
	switch cfg.StorageDriver {
	case StorageMemory:
	case StoragePostgres, StorageSQLite:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("invalid DATABASE_URL: required when STORAGE_DRIVER=%s", cfg.StorageDriver)
		}
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER: %q, must be one of: memory, postgres, sqlite", cfg.StorageDriver)
	}

	cfg.SnapshotStore = strings.ToLower(getStr(src, "SNAPSHOT_STORE", ""))
	if cfg.SnapshotStore != "" && cfg.SnapshotStore != SnapshotStoreWAL {
		return nil, fmt.Errorf("invalid SNAPSHOT_STORE: %q, must be empty or wal", cfg.SnapshotStore)
	}
	cfg.SnapshotWALDir = getStr(src, "SNAPSHOT_WAL_DIR", "./wal/snapshots")

	if cfg.SnapshotQueueSize, err = getInt(src, "SNAPSHOT_QUEUE_SIZE", 256); err != nil {
		return nil, fmt.Errorf("invalid SNAPSHOT_QUEUE_SIZE: %w", err)
	}
	if cfg.SnapshotQueueSize < 1 {
		return nil, fmt.Errorf("invalid SNAPSHOT_QUEUE_SIZE: %d, must be >= 1", cfg.SnapshotQueueSize)
	}

	cfg.OracleURL = getStr(src, "ORACLE_URL", "")
	if cfg.OracleURL != "" {
		u, err := url.Parse(cfg.OracleURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("invalid ORACLE_URL: %q, must be an absolute http(s) URL", cfg.OracleURL)
		}
	}

	return cfg, nil
}

func getStr(src source, key, defaultVal string) string {
	v := strings.TrimSpace(src.get(key))
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(src source, key string, defaultVal int) (int, error) {
	v := getStr(src, key, "")
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(src source, key string, defaultVal time.Duration) (time.Duration, error) {
	v := getStr(src, key, "")
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func getDecimal(src source, key string, defaultVal decimal.Decimal) (decimal.Decimal, error) {
	v := getStr(src, key, "")
	if v == "" {
		return defaultVal, nil
	}
	return decimal.NewFromString(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
