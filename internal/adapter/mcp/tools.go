package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/indexlens/internal/adapter/render"
	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
	"github.com/guillermoBallester/indexlens/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "indexlens"

// Monitor bounds for the ahi_monitor tool. A tool call must always finish.
const (
	defaultMonitorInterval = 5 * time.Second
	defaultMonitorDuration = 60 * time.Second
	maxMonitorDuration     = 10 * time.Minute
)

// Tool descriptions
const (
	descIndexReport = "Analyze index usage across the database. Returns JSON with: summary counts; " +
		"unused indexes (zero reads since the statistics were last reset, primary keys excluded), " +
		"flagged when they back a foreign key; redundant indexes whose key columns are a leading prefix " +
		"of another index on the same table; the most accessed indexes; table and index storage totals; " +
		"and recommendations with example DROP statements. Statements are advisory and never executed. " +
		"Counters are cumulative since server start, so a recently restarted server under-reports usage."

	descIndexReportTop = "How many most-accessed indexes to include (default from server configuration)"

	descAHISnapshot = "Take one reading of the MySQL InnoDB adaptive hash index (AHI): enabled flag, partitions, " +
		"hash table size, the eight adaptive_hash_* counters and the hit rate since startup with its tier " +
		"(excellent >= 80%, good >= 60%, moderate >= 40%, low otherwise) and advice. " +
		"Fails when the INNODB_METRICS counters are disabled."

	descAHIMonitor = "Sample the MySQL adaptive hash index at a fixed interval for a bounded duration and return " +
		"the series: every sample, the per-interval hit rate with its tier, and the overall hit rate. " +
		"Counter resets on the server start a new baseline instead of producing negative deltas. " +
		"Use this instead of ahi_snapshot to judge AHI under the current workload."

	descAHIMonitorInterval = "Seconds between samples (default 5)"
	descAHIMonitorDuration = "Total seconds to monitor (default 60, max 600)"
)

// Services groups what the tools call into. Sampler and NewMonitor are nil
// when the database has no adaptive hash index.
type Services struct {
	Report     *service.ReportService
	Sampler    *service.Sampler
	NewMonitor func() *service.Monitor
	Logger     *slog.Logger
}

func RegisterTools(s *server.MCPServer, svc Services) {
	s.AddTool(
		mcp.NewTool("index_report",
			mcp.WithDescription(descIndexReport),
			mcp.WithNumber("top",
				mcp.Description(descIndexReportTop),
			),
		),
		indexReportHandler(svc),
	)

	if svc.Sampler != nil {
		s.AddTool(
			mcp.NewTool("ahi_snapshot",
				mcp.WithDescription(descAHISnapshot),
			),
			ahiSnapshotHandler(svc),
		)
	}

	if svc.NewMonitor != nil {
		s.AddTool(
			mcp.NewTool("ahi_monitor",
				mcp.WithDescription(descAHIMonitor),
				mcp.WithNumber("interval_seconds",
					mcp.Description(descAHIMonitorInterval),
				),
				mcp.WithNumber("duration_seconds",
					mcp.Description(descAHIMonitorDuration),
				),
			),
			ahiMonitorHandler(svc),
		)
	}
}

func indexReportHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = port.WithOperation(ctx, "index_report")

		report, err := svc.Report.BuildReport(ctx)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(svc.Logger, err, "index report")), nil
		}

		if top, ok := request.GetArguments()["top"].(float64); ok && top > 0 && int(top) < len(report.TopAccessed) {
			report.TopAccessed = report.TopAccessed[:int(top)]
		}

		data, err := json.Marshal(report)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

func ahiSnapshotHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = port.WithOperation(ctx, "ahi_snapshot")

		sample, err := svc.Sampler.Sample(ctx)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(svc.Logger, err, "AHI snapshot")), nil
		}

		var buf bytes.Buffer
		if err := render.Snapshot(&buf, render.FormatJSON, sample, render.Options{}); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(buf.String()), nil
	}
}

func ahiMonitorHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = port.WithOperation(ctx, "ahi_monitor")

		opts := service.MonitorOptions{
			Interval: secondsArg(request, "interval_seconds", defaultMonitorInterval),
			Duration: secondsArg(request, "duration_seconds", defaultMonitorDuration),
		}
		if opts.Duration <= 0 || opts.Duration > maxMonitorDuration {
			return mcp.NewToolResultError(fmt.Sprintf("duration_seconds must be between 1 and %d", int(maxMonitorDuration.Seconds()))), nil
		}
		if opts.Interval <= 0 || opts.Interval > opts.Duration {
			return mcp.NewToolResultError("interval_seconds must be positive and no longer than duration_seconds"), nil
		}

		series, err := svc.NewMonitor().Run(ctx, opts)
		if err != nil && (series == nil || len(series.Samples) == 0) {
			return mcp.NewToolResultError(sanitizeError(svc.Logger, err, "AHI monitor")), nil
		}

		var buf bytes.Buffer
		if rerr := render.Series(&buf, render.FormatJSON, series, render.Options{}); rerr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", rerr)), nil
		}
		if err != nil {
			// Partial series: return what was collected and say why it stopped.
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(buf.String()),
					mcp.NewTextContent("monitoring stopped early: " + sanitizeError(svc.Logger, err, "AHI monitor")),
				},
			}, nil
		}

		return mcp.NewToolResultText(buf.String()), nil
	}
}

func secondsArg(request mcp.CallToolRequest, name string, def time.Duration) time.Duration {
	v, ok := request.GetArguments()[name].(float64)
	if !ok {
		return def
	}
	return time.Duration(v * float64(time.Second))
}

// sanitizeError maps internal errors to messages safe to hand to an MCP
// client. Instrumentation problems are actionable and pass through; anything
// else is logged and replaced with a generic message.
func sanitizeError(logger *slog.Logger, err error, operation string) string {
	switch {
	case errors.Is(err, domain.ErrDataUnavailable):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return operation + " timed out"
	case errors.Is(err, context.Canceled):
		return operation + " was cancelled"
	}
	logger.Error("tool failed",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
	return fmt.Sprintf("%s failed: internal error (check server logs)", operation)
}
