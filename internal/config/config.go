package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported DB_DRIVER values.
const (
	DriverAuto     = "auto"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Supported OUTPUT_FORMAT values.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
	FormatHTML = "html"
)

type Config struct {
	// Database connection.
	DatabaseURL  string
	Driver       string // resolved to mysql or postgres by validate
	QueryTimeout time.Duration
	PoolMaxConns int32

	// Index report.
	Schemas    []string // empty means all non-system schemas
	TopN       int
	PolicyFile string // optional path to exclusion policy YAML

	// AHI monitoring.
	SampleInterval   time.Duration
	MonitorDuration  time.Duration // 0 runs until cancelled
	EnableAHIMetrics bool

	// Output.
	OutputFormat string
	OutputFile   string // empty means stdout

	// Logging.
	LogLevel slog.Level

	// Observability.
	OTelEnabled bool
	AuditLog    string // path to NDJSON audit log file
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	DatabaseURL      *string
	Driver           *string
	Schemas          *[]string
	TopN             *int
	SampleInterval   *time.Duration
	MonitorDuration  *time.Duration
	QueryTimeout     *time.Duration
	OutputFormat     *string
	OutputFile       *string
	PolicyFile       *string
	AuditLog         *string
	LogLevel         *string
	PoolMaxConns     *int32
	OTelEnabled      bool
	EnableAHIMetrics bool
}

// Load builds a Config from environment variables, then applies CLI overrides,
// then validates the result.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()

	if err := loadEnvVars(cfg); err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Driver:         DriverAuto,
		QueryTimeout:   10 * time.Second,
		PoolMaxConns:   2,
		TopN:           10,
		SampleInterval: 5 * time.Second,
		OutputFormat:   FormatText,
		LogLevel:       slog.LevelInfo,
	}
}

// loadEnvVars reads all supported environment variables into cfg.
func loadEnvVars(cfg *Config) error {
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Driver = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv("SCHEMAS"); v != "" {
		cfg.Schemas = splitList(v)
	}

	if v := os.Getenv("TOP_N"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid TOP_N value %q: must be a positive integer", v)
		}
		cfg.TopN = n
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"SAMPLE_INTERVAL", &cfg.SampleInterval},
		{"MONITOR_DURATION", &cfg.MonitorDuration},
		{"QUERY_TIMEOUT", &cfg.QueryTimeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", d.env, v, err)
		}
		*d.dst = parsed
	}

	if v := os.Getenv("OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = strings.ToLower(strings.TrimSpace(v))
	}
	cfg.OutputFile = os.Getenv("OUTPUT_FILE")
	cfg.PolicyFile = os.Getenv("POLICY_FILE")
	cfg.AuditLog = os.Getenv("AUDIT_LOG")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	if v := os.Getenv("POOL_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid POOL_MAX_CONNS value %q: must be a positive integer", v)
		}
		cfg.PoolMaxConns = int32(n)
	}

	bools := []struct {
		env string
		dst *bool
	}{
		{"OTEL_ENABLED", &cfg.OTelEnabled},
		{"ENABLE_AHI_METRICS", &cfg.EnableAHIMetrics},
	}
	for _, b := range bools {
		v := os.Getenv(b.env)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", b.env, v, err)
		}
		*b.dst = parsed
	}

	return nil
}

// applyOverrides applies CLI flag values on top of the env-loaded config.
func applyOverrides(cfg *Config, o Overrides) error {
	if o.DatabaseURL != nil {
		cfg.DatabaseURL = *o.DatabaseURL
	}
	if o.Driver != nil {
		cfg.Driver = strings.ToLower(strings.TrimSpace(*o.Driver))
	}
	if o.Schemas != nil {
		cfg.Schemas = nil
		for _, s := range *o.Schemas {
			cfg.Schemas = append(cfg.Schemas, splitList(s)...)
		}
	}
	if o.TopN != nil {
		if *o.TopN <= 0 {
			return fmt.Errorf("invalid --top value: must be a positive integer")
		}
		cfg.TopN = *o.TopN
	}
	if o.SampleInterval != nil {
		cfg.SampleInterval = *o.SampleInterval
	}
	if o.MonitorDuration != nil {
		cfg.MonitorDuration = *o.MonitorDuration
	}
	if o.QueryTimeout != nil {
		cfg.QueryTimeout = *o.QueryTimeout
	}
	if o.OutputFormat != nil {
		cfg.OutputFormat = strings.ToLower(strings.TrimSpace(*o.OutputFormat))
	}
	if o.OutputFile != nil {
		cfg.OutputFile = *o.OutputFile
	}
	if o.PolicyFile != nil {
		cfg.PolicyFile = *o.PolicyFile
	}
	if o.AuditLog != nil {
		cfg.AuditLog = *o.AuditLog
	}
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if o.PoolMaxConns != nil {
		if *o.PoolMaxConns <= 0 {
			return fmt.Errorf("invalid --pool-max-conns value: must be a positive integer")
		}
		cfg.PoolMaxConns = *o.PoolMaxConns
	}

	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled
	cfg.EnableAHIMetrics = cfg.EnableAHIMetrics || o.EnableAHIMetrics

	return nil
}

// validate checks cross-field constraints on the final config and resolves
// the driver when it is left on auto.
func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required (set via env var or --database-url flag)")
	}

	switch cfg.Driver {
	case DriverAuto, "":
		cfg.Driver = DetectDriver(cfg.DatabaseURL)
	case DriverMySQL, DriverPostgres:
	default:
		return fmt.Errorf("invalid DB_DRIVER value %q: must be \"mysql\", \"postgres\" or \"auto\"", cfg.Driver)
	}

	switch cfg.OutputFormat {
	case FormatText, FormatJSON, FormatYAML, FormatCSV, FormatHTML:
	default:
		return fmt.Errorf("invalid OUTPUT_FORMAT value %q: must be text, json, yaml, csv or html", cfg.OutputFormat)
	}

	if cfg.SampleInterval <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must be positive, got %s", cfg.SampleInterval)
	}
	if cfg.MonitorDuration < 0 {
		return fmt.Errorf("MONITOR_DURATION must not be negative, got %s", cfg.MonitorDuration)
	}
	if cfg.QueryTimeout <= 0 {
		return fmt.Errorf("QUERY_TIMEOUT must be positive, got %s", cfg.QueryTimeout)
	}

	return nil
}

// DetectDriver picks postgres for postgres:// and postgresql:// URLs and
// mysql for everything else, which covers go-sql-driver DSNs.
func DetectDriver(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DriverPostgres
	}
	return DriverMySQL
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}
