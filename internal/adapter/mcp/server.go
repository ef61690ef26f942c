package mcp

import (
	"log/slog"

	"github.com/guillermoBallester/indexlens/internal/core/port"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

// NewServer creates an MCPServer with the diagnostic tools and call hooks.
func NewServer(version string, svc Services, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
	)

	if svc.Logger == nil {
		svc.Logger = logger
	}
	RegisterTools(s, svc)

	return s
}
