package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ReportService reads the index catalog once and turns it into a usage report.
type ReportService struct {
	catalog port.IndexCatalogReader
	logger  *slog.Logger
	tracer  trace.Tracer
	inst    port.Instrumentation
	opts    domain.ReportOptions
}

func NewReportService(catalog port.IndexCatalogReader, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation, topN int) *ReportService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &ReportService{
		catalog: catalog,
		logger:  logger,
		tracer:  tracer,
		inst:    inst,
		opts:    domain.ReportOptions{TopN: topN},
	}
}

// BuildReport reads the catalog and aggregates it. A failed read is fatal;
// rows that fail validation only show up as warnings in the report.
func (s *ReportService) BuildReport(ctx context.Context) (*domain.UsageReport, error) {
	ctx, span := s.tracer.Start(ctx, "ReportService.BuildReport")
	defer span.End()

	start := time.Now()
	snap, err := s.catalog.ReadCatalog(ctx)
	s.inst.RecordCatalogReadDuration(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("reading index catalog: %w", err)
	}

	report := domain.BuildUsageReport(*snap, s.opts)

	for _, w := range report.Warnings {
		s.logger.WarnContext(ctx, "catalog row skipped",
			slog.String("db.namespace", w.Schema),
			slog.String("db.collection.name", w.Table),
			slog.String("index", w.Index),
			slog.String("reason", w.Message),
		)
	}
	s.logger.InfoContext(ctx, "index report built",
		slog.String("db.system", string(report.Dialect)),
		slog.Int("indexes", report.Summary.TotalIndexes),
		slog.Int("unused", report.Summary.UnusedIndexes),
		slog.Int("redundant_pairs", report.Summary.RedundantPairs),
	)

	span.SetAttributes(
		attribute.String("db.system", string(report.Dialect)),
		attribute.Int("indexlens.indexes", report.Summary.TotalIndexes),
		attribute.Int("indexlens.unused", report.Summary.UnusedIndexes),
		attribute.Int("indexlens.redundant_pairs", report.Summary.RedundantPairs),
		attribute.Int("indexlens.skipped_rows", report.Summary.SkippedRows),
	)
	return report, nil
}
