package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mysqlDSN = "app:secret@tcp(localhost:3306)/shop"

func ptr[T any](v T) *T { return &v }

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", mysqlDSN)

	cfg, err := Load(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, mysqlDSN, cfg.DatabaseURL)
	assert.Equal(t, DriverMySQL, cfg.Driver)
	assert.Equal(t, 10, cfg.TopN)
	assert.Equal(t, 5*time.Second, cfg.SampleInterval)
	assert.Zero(t, cfg.MonitorDuration)
	assert.Equal(t, 10*time.Second, cfg.QueryTimeout)
	assert.Equal(t, FormatText, cfg.OutputFormat)
	assert.Equal(t, int32(2), cfg.PoolMaxConns)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.Schemas)
	assert.False(t, cfg.EnableAHIMetrics)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load(Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_EnvVars(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("SCHEMAS", "public, app")
	t.Setenv("TOP_N", "25")
	t.Setenv("SAMPLE_INTERVAL", "2s")
	t.Setenv("MONITOR_DURATION", "1m")
	t.Setenv("QUERY_TIMEOUT", "30s")
	t.Setenv("OUTPUT_FORMAT", "JSON")
	t.Setenv("OUTPUT_FILE", "/tmp/report.json")
	t.Setenv("POLICY_FILE", "/tmp/policy.yaml")
	t.Setenv("AUDIT_LOG", "/tmp/audit.jsonl")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("POOL_MAX_CONNS", "4")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("ENABLE_AHI_METRICS", "1")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, []string{"public", "app"}, cfg.Schemas)
	assert.Equal(t, 25, cfg.TopN)
	assert.Equal(t, 2*time.Second, cfg.SampleInterval)
	assert.Equal(t, time.Minute, cfg.MonitorDuration)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, FormatJSON, cfg.OutputFormat)
	assert.Equal(t, "/tmp/report.json", cfg.OutputFile)
	assert.Equal(t, "/tmp/policy.yaml", cfg.PolicyFile)
	assert.Equal(t, "/tmp/audit.jsonl", cfg.AuditLog)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, int32(4), cfg.PoolMaxConns)
	assert.True(t, cfg.OTelEnabled)
	assert.True(t, cfg.EnableAHIMetrics)
}

func TestLoad_OverridesWinOverEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("TOP_N", "25")
	t.Setenv("SCHEMAS", "public")
	t.Setenv("OUTPUT_FORMAT", "json")

	cfg, err := Load(Overrides{
		DatabaseURL:     ptr(mysqlDSN),
		TopN:            ptr(3),
		Schemas:         ptr([]string{"shop,billing", "crm"}),
		OutputFormat:    ptr("html"),
		SampleInterval:  ptr(time.Second),
		MonitorDuration: ptr(10 * time.Second),
		LogLevel:        ptr("warn"),
		PoolMaxConns:    ptr(int32(1)),
	})
	require.NoError(t, err)

	assert.Equal(t, mysqlDSN, cfg.DatabaseURL)
	assert.Equal(t, DriverMySQL, cfg.Driver)
	assert.Equal(t, 3, cfg.TopN)
	assert.Equal(t, []string{"shop", "billing", "crm"}, cfg.Schemas)
	assert.Equal(t, FormatHTML, cfg.OutputFormat)
	assert.Equal(t, time.Second, cfg.SampleInterval)
	assert.Equal(t, 10*time.Second, cfg.MonitorDuration)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, int32(1), cfg.PoolMaxConns)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		overrides Overrides
		wantErr   string
	}{
		{name: "top n not a number", env: map[string]string{"TOP_N": "ten"}, wantErr: "TOP_N"},
		{name: "top n zero", env: map[string]string{"TOP_N": "0"}, wantErr: "TOP_N"},
		{name: "bad interval", env: map[string]string{"SAMPLE_INTERVAL": "often"}, wantErr: "SAMPLE_INTERVAL"},
		{name: "zero interval", env: map[string]string{"SAMPLE_INTERVAL": "0s"}, wantErr: "SAMPLE_INTERVAL"},
		{name: "negative duration", overrides: Overrides{MonitorDuration: ptr(-time.Second)}, wantErr: "MONITOR_DURATION"},
		{name: "bad query timeout", env: map[string]string{"QUERY_TIMEOUT": "not-a-duration"}, wantErr: "QUERY_TIMEOUT"},
		{name: "unknown format", env: map[string]string{"OUTPUT_FORMAT": "pdf"}, wantErr: "OUTPUT_FORMAT"},
		{name: "unknown driver", env: map[string]string{"DB_DRIVER": "oracle"}, wantErr: "DB_DRIVER"},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}, wantErr: "LOG_LEVEL"},
		{name: "bad pool size", env: map[string]string{"POOL_MAX_CONNS": "-1"}, wantErr: "POOL_MAX_CONNS"},
		{name: "bad otel flag", env: map[string]string{"OTEL_ENABLED": "maybe"}, wantErr: "OTEL_ENABLED"},
		{name: "top override zero", overrides: Overrides{TopN: ptr(0)}, wantErr: "--top"},
		{name: "pool override zero", overrides: Overrides{PoolMaxConns: ptr(int32(0))}, wantErr: "--pool-max-conns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", mysqlDSN)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.overrides)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDetectDriver(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"postgres://user:pw@localhost:5432/db", DriverPostgres},
		{"postgresql://localhost/db", DriverPostgres},
		{"POSTGRES://localhost/db", DriverPostgres},
		{mysqlDSN, DriverMySQL},
		{"root@unix(/var/run/mysqld/mysqld.sock)/", DriverMySQL},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDriver(tt.dsn))
		})
	}
}

func TestLoad_ExplicitDriverKept(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/db")
	cfg, err := Load(Overrides{Driver: ptr("MySQL")})
	require.NoError(t, err)
	assert.Equal(t, DriverMySQL, cfg.Driver)
}
