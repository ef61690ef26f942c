package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/port"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// inflight tracks one tool call between its before and after hooks.
type inflight struct {
	tool  string
	start time.Time
	span  trace.Span
}

// callTracker pairs before/after hook invocations by request id.
type callTracker struct {
	logger *slog.Logger
	tracer trace.Tracer
	inst   port.Instrumentation
	calls  sync.Map // request id -> *inflight
}

// ToolCallHooks logs every tool call, wraps it in a span and records its
// duration. A nil tracer or inst disables that part.
func ToolCallHooks(logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.Hooks {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	t := &callTracker{logger: logger, tracer: tracer, inst: inst}

	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(t.before)
	hooks.AddAfterCallTool(func(ctx context.Context, id any, _ *mcp.CallToolRequest, result any) {
		r, ok := result.(*mcp.CallToolResult)
		var err error
		if ok && r.IsError {
			err = fmt.Errorf("tool returned error: %s", resultText(r))
		}
		t.finish(ctx, id, err)
	})
	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, _ any, err error) {
		if method != mcp.MethodToolsCall {
			return
		}
		t.finish(ctx, id, err)
	})
	return hooks
}

func (t *callTracker) before(ctx context.Context, id any, req *mcp.CallToolRequest) {
	attrs := []attribute.KeyValue{attribute.String("mcp.tool", req.Params.Name)}
	for _, key := range []string{"top", "interval_seconds", "duration_seconds"} {
		if v, ok := req.GetArguments()[key].(float64); ok {
			attrs = append(attrs, attribute.Float64("mcp.arg."+key, v))
		}
	}
	_, span := t.tracer.Start(ctx, "mcp.tool."+req.Params.Name, trace.WithAttributes(attrs...))

	t.calls.Store(id, &inflight{tool: req.Params.Name, start: time.Now(), span: span})
}

// finish closes the call opened by before. err is nil for a successful call.
func (t *callTracker) finish(ctx context.Context, id any, err error) {
	v, ok := t.calls.LoadAndDelete(id)
	if !ok {
		return
	}
	call := v.(*inflight)
	elapsed := time.Since(call.start)

	attrs := []slog.Attr{
		slog.String("rpc.method", string(mcp.MethodToolsCall)),
		slog.String("mcp.tool", call.tool),
		slog.Duration("duration", elapsed),
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
		attrs = append(attrs, slog.String("error", err.Error()))
		call.span.RecordError(err)
		call.span.SetStatus(codes.Error, err.Error())
	}
	t.logger.LogAttrs(ctx, level, "tool call", attrs...)

	t.inst.RecordToolDuration(ctx, float64(elapsed.Milliseconds()))
	call.span.End()
}

func resultText(r *mcp.CallToolResult) string {
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return "no text content"
}
