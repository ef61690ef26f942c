package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/guillermoBallester/indexlens/internal/adapter/mysql"
	"github.com/guillermoBallester/indexlens/internal/adapter/policy"
	"github.com/guillermoBallester/indexlens/internal/adapter/postgres"
	"github.com/guillermoBallester/indexlens/internal/audit"
	"github.com/guillermoBallester/indexlens/internal/config"
	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
	"github.com/guillermoBallester/indexlens/internal/core/service"
	"github.com/guillermoBallester/indexlens/internal/telemetry"
)

// errNoAHI is returned by the AHI subcommands on a PostgreSQL connection.
var errNoAHI = fmt.Errorf("%w: the adaptive hash index is a MySQL InnoDB feature", domain.ErrDataUnavailable)

// app holds the wired adapters and services for one CLI invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	tracer  trace.Tracer
	inst    *telemetry.Instruments
	auditor port.QueryAuditor
	catalog port.IndexCatalogReader
	// ahi and enabler are nil on PostgreSQL.
	ahi     port.AHIStatusReader
	enabler port.AHIMetricsEnabler
	closers []func() error
	otel    *telemetry.Provider
}

func newApp(ctx context.Context, fs *pflag.FlagSet) (*app, error) {
	overrides, err := overridesFromFlags(fs)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr; stdout carries the report and the MCP stdio transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	a := &app{
		cfg:     cfg,
		logger:  logger,
		tracer:  telemetry.NoopTracer(),
		inst:    telemetry.NoopInstruments(),
		auditor: audit.NoopAuditor{},
	}

	if cfg.OTelEnabled {
		provider, err := telemetry.Init(ctx, "indexlens", version)
		if err != nil {
			return nil, fmt.Errorf("initializing telemetry: %w", err)
		}
		a.otel = provider
		a.tracer = otel.Tracer("github.com/guillermoBallester/indexlens")
		a.inst = telemetry.NewInstruments()
		logger.Info("telemetry enabled")
	}

	if cfg.AuditLog != "" {
		fa, err := audit.NewFileAuditor(cfg.AuditLog)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.auditor = fa
		a.closers = append(a.closers, fa.Close)
		logger.Info("audit log enabled", slog.String("file", cfg.AuditLog))
	}

	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.PolicyFile != "" {
		pol, err := policy.LoadFromFile(cfg.PolicyFile)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("loading policy: %w", err)
		}
		a.catalog = policy.NewFilteredCatalog(a.catalog, pol, logger)
		logger.Info("policy loaded", slog.String("file", cfg.PolicyFile))
	}

	return a, nil
}

func (a *app) connect(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.PoolMaxConns)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		a.catalog = postgres.NewCatalogReader(pool, cfg.Schemas, cfg.QueryTimeout, a.auditor, a.logger)
	default:
		db, err := mysql.NewDB(ctx, cfg.DatabaseURL, int(cfg.PoolMaxConns))
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.catalog = mysql.NewCatalogReader(db, cfg.Schemas, cfg.QueryTimeout, a.auditor, a.logger)
		status := mysql.NewStatusReader(db, cfg.QueryTimeout, a.auditor)
		a.ahi, a.enabler = status, status
	}

	a.logger.Info("database connected",
		slog.String("db.system", cfg.Driver),
		slog.String("target", redactDSN(cfg.Driver, cfg.DatabaseURL)),
	)
	return nil
}

// reportService builds the index report service over the (possibly filtered)
// catalog.
func (a *app) reportService() *service.ReportService {
	return service.NewReportService(a.catalog, a.logger, a.tracer, a.inst, a.cfg.TopN)
}

// sampler returns errNoAHI on PostgreSQL. With --enable-metrics it first
// switches on the InnoDB counters the sampler reads.
func (a *app) sampler(ctx context.Context) (*service.Sampler, error) {
	if a.ahi == nil {
		return nil, errNoAHI
	}
	if a.cfg.EnableAHIMetrics && a.enabler != nil {
		if err := a.enabler.EnableAHIMetrics(ctx); err != nil {
			return nil, fmt.Errorf("enabling AHI metrics: %w", err)
		}
		a.logger.Info("InnoDB AHI metrics enabled", slog.Int("metrics", len(domain.AHIMetricNames)))
	}
	return service.NewSampler(a.ahi), nil
}

func (a *app) newMonitor(sampler *service.Sampler, observer port.SeriesObserver) *service.Monitor {
	return service.NewMonitor(sampler, observer, a.logger, a.tracer, a.inst)
}

// output opens the configured destination. The returned close func is a
// no-op for stdout.
func (a *app) output() (io.Writer, func() error, error) {
	return openOutput(a.cfg.OutputFile, os.Stdout)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("closing resource", slog.String("error", err.Error()))
		}
	}
	a.closers = nil

	if a.otel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otel.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown", slog.String("error", err.Error()))
		}
		a.otel = nil
	}
}

func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening output file: %w", err)
	}
	return f, f.Close, nil
}

// redactDSN hides the password of a connection string for logging.
func redactDSN(drv, dsn string) string {
	if drv == config.DriverPostgres {
		u, err := url.Parse(dsn)
		if err != nil {
			return "<unparseable url>"
		}
		return u.Redacted()
	}
	c, err := driver.ParseDSN(dsn)
	if err != nil {
		return "<unparseable dsn>"
	}
	if c.Passwd != "" {
		c.Passwd = "xxxxx"
	}
	return c.FormatDSN()
}

// isDataUnavailable reports whether err is an instrumentation problem the
// operator can fix, as opposed to a connectivity or query failure.
func isDataUnavailable(err error) bool {
	return errors.Is(err, domain.ErrDataUnavailable)
}
