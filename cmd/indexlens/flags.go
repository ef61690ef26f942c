package main

import (
	"time"

	"github.com/guillermoBallester/indexlens/internal/config"
	"github.com/spf13/pflag"
)

// registerFlags declares the flags shared by every subcommand. Defaults live
// in internal/config; a flag only overrides when it was set explicitly.
func registerFlags(fs *pflag.FlagSet) {
	fs.String("database-url", "", "MySQL DSN (user:pass@tcp(host:3306)/db) or postgres:// URL (env DATABASE_URL)")
	fs.String("driver", "", "database driver: mysql, postgres or auto (env DB_DRIVER)")
	fs.StringSlice("schemas", nil, "comma-separated schemas to analyze; default all non-system schemas (env SCHEMAS)")
	fs.Int("top", 0, "number of most accessed indexes to list (env TOP_N, default 10)")
	fs.Duration("interval", 0, "AHI sampling interval (env SAMPLE_INTERVAL, default 5s)")
	fs.Duration("duration", 0, "AHI monitoring duration; 0 runs until interrupted (env MONITOR_DURATION)")
	fs.Duration("query-timeout", 0, "timeout for one catalog read (env QUERY_TIMEOUT, default 10s)")
	fs.String("format", "", "output format: text, json, yaml, csv or html (env OUTPUT_FORMAT)")
	fs.StringP("output", "o", "", "write output to this file instead of stdout (env OUTPUT_FILE)")
	fs.String("policy-file", "", "YAML exclusion policy (env POLICY_FILE)")
	fs.String("audit-log", "", "append executed catalog statements to this NDJSON file (env AUDIT_LOG)")
	fs.String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	fs.Int32("pool-max-conns", 0, "maximum open database connections (env POOL_MAX_CONNS, default 2)")
	fs.Bool("otel", false, "export traces and metrics over OTLP gRPC (env OTEL_ENABLED)")
	fs.Bool("enable-metrics", false, "run SET GLOBAL innodb_monitor_enable for the AHI metrics before sampling (env ENABLE_AHI_METRICS)")
}

// overridesFromFlags copies every explicitly set flag into config.Overrides.
func overridesFromFlags(fs *pflag.FlagSet) (config.Overrides, error) {
	var o config.Overrides

	strs := []struct {
		name string
		dst  **string
	}{
		{"database-url", &o.DatabaseURL},
		{"driver", &o.Driver},
		{"format", &o.OutputFormat},
		{"output", &o.OutputFile},
		{"policy-file", &o.PolicyFile},
		{"audit-log", &o.AuditLog},
		{"log-level", &o.LogLevel},
	}
	for _, s := range strs {
		if !fs.Changed(s.name) {
			continue
		}
		v, err := fs.GetString(s.name)
		if err != nil {
			return o, err
		}
		*s.dst = &v
	}

	durs := []struct {
		name string
		dst  **time.Duration
	}{
		{"interval", &o.SampleInterval},
		{"duration", &o.MonitorDuration},
		{"query-timeout", &o.QueryTimeout},
	}
	for _, d := range durs {
		if !fs.Changed(d.name) {
			continue
		}
		v, err := fs.GetDuration(d.name)
		if err != nil {
			return o, err
		}
		*d.dst = &v
	}

	if fs.Changed("schemas") {
		v, err := fs.GetStringSlice("schemas")
		if err != nil {
			return o, err
		}
		o.Schemas = &v
	}
	if fs.Changed("top") {
		v, err := fs.GetInt("top")
		if err != nil {
			return o, err
		}
		o.TopN = &v
	}
	if fs.Changed("pool-max-conns") {
		v, err := fs.GetInt32("pool-max-conns")
		if err != nil {
			return o, err
		}
		o.PoolMaxConns = &v
	}

	var err error
	if o.OTelEnabled, err = fs.GetBool("otel"); err != nil {
		return o, err
	}
	if o.EnableAHIMetrics, err = fs.GetBool("enable-metrics"); err != nil {
		return o, err
	}
	return o, nil
}
