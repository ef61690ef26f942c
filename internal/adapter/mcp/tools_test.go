package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
	"github.com/guillermoBallester/indexlens/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock IndexCatalogReader ---

type mockCatalog struct {
	snap *domain.CatalogSnapshot
	err  error
	ops  []string // operation names seen in the context
}

func (m *mockCatalog) ReadCatalog(ctx context.Context) (*domain.CatalogSnapshot, error) {
	m.ops = append(m.ops, port.OperationFromContext(ctx))
	if m.err != nil {
		return nil, m.err
	}
	cp := *m.snap
	return &cp, nil
}

// --- mock AHIStatusReader ---

type mockStatusReader struct {
	mu       sync.Mutex
	calls    int
	searches int64
	err      error
	failFrom int // 0 means never
}

func (m *mockStatusReader) ReadAHIStatus(_ context.Context) (*port.AHIStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil && (m.failFrom == 0 || m.calls >= m.failFrom) {
		return nil, m.err
	}
	m.searches += 80
	return &port.AHIStatus{
		Enabled:    true,
		Partitions: 8,
		Metrics: map[string]int64{
			domain.MetricAHISearches:          m.searches,
			domain.MetricAHISearchesBtree:     int64(m.calls) * 20,
			domain.MetricAHIPagesAdded:        0,
			domain.MetricAHIPagesRemoved:      0,
			domain.MetricAHIRowsAdded:         0,
			domain.MetricAHIRowsUpdated:       0,
			domain.MetricAHIRowsRemoved:       0,
			domain.MetricAHIRowsDeletedNoHash: 0,
		},
	}, nil
}

// --- helpers ---

func callTool(t *testing.T, s *server.MCPServer, toolName string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	session := server.NewInProcessSession("test", nil)
	require.NoError(t, s.RegisterSession(ctx, session))
	sessionCtx := s.WithContext(ctx, session)

	// Initialize session.
	initBytes, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": "init", "method": "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-03-26",
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "test", "version": "1.0"},
		},
	})
	s.HandleMessage(sessionCtx, initBytes)

	// Call tool.
	reqBytes, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": "call-1", "method": "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": args,
		},
	})
	resp := s.HandleMessage(sessionCtx, reqBytes)
	respBytes, _ := json.Marshal(resp)

	var rpc struct {
		Result *mcp.CallToolResult       `json:"result"`
		Error  *struct{ Message string } `json:"error,omitempty"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &rpc))
	require.Nil(t, rpc.Error, "unexpected RPC error: %v", rpc.Error)
	require.NotNil(t, rpc.Result)
	return rpc.Result
}

func listTools(t *testing.T, s *server.MCPServer) []string {
	t.Helper()
	reqBytes, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": "list", "method": "tools/list"})
	resp := s.HandleMessage(context.Background(), reqBytes)
	respBytes, _ := json.Marshal(resp)

	var rpc struct {
		Result struct {
			Tools []struct{ Name string } `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &rpc))
	names := make([]string, 0, len(rpc.Result.Tools))
	for _, tool := range rpc.Result.Tools {
		names = append(names, tool.Name)
	}
	return names
}

func toolText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return ""
	}
	return tc.Text
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func catalogFixture() *domain.CatalogSnapshot {
	idx := func(name string, reads int64, cols ...string) domain.IndexRecord {
		return domain.IndexRecord{
			Index: domain.IndexDescriptor{Schema: "shop", Table: "orders", Name: name, Columns: cols},
			Usage: domain.IndexUsageCounters{Reads: reads},
		}
	}
	return &domain.CatalogSnapshot{
		Dialect: domain.DialectMySQL,
		Indexes: []domain.IndexRecord{
			idx("idx_a", 300, "a"),
			idx("idx_ab", 200, "a", "b"),
			idx("idx_c", 100, "c"),
			idx("idx_unused", 0, "d"),
		},
	}
}

func setupServer(catalog *mockCatalog, reader *mockStatusReader) *server.MCPServer {
	logger := testLogger()
	svc := Services{
		Report: service.NewReportService(catalog, logger, nil, nil, 10),
		Logger: logger,
	}
	if reader != nil {
		sampler := service.NewSampler(reader)
		svc.Sampler = sampler
		svc.NewMonitor = func() *service.Monitor {
			return service.NewMonitor(sampler, port.NoopObserver{}, logger, nil, nil)
		}
	}

	s := server.NewMCPServer("test", "0.0.1", server.WithToolCapabilities(true))
	RegisterTools(s, svc)
	return s
}

// --- index_report ---

func TestIndexReport_HappyPath(t *testing.T) {
	catalog := &mockCatalog{snap: catalogFixture()}
	s := setupServer(catalog, nil)

	result := callTool(t, s, "index_report", nil)
	require.False(t, result.IsError, toolText(result))

	var report domain.UsageReport
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &report))
	assert.Equal(t, 4, report.Summary.TotalIndexes)
	require.Len(t, report.Unused, 1)
	assert.Equal(t, "idx_unused", report.Unused[0].Index.Name)
	require.Len(t, report.Redundant, 1)
	assert.Equal(t, "idx_a", report.Redundant[0].Redundant.Name)

	assert.Equal(t, []string{"index_report"}, catalog.ops, "operation name reaches the catalog reader for auditing")
}

func TestIndexReport_TopArgument(t *testing.T) {
	s := setupServer(&mockCatalog{snap: catalogFixture()}, nil)

	result := callTool(t, s, "index_report", map[string]any{"top": 2})
	require.False(t, result.IsError, toolText(result))

	var report domain.UsageReport
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &report))
	require.Len(t, report.TopAccessed, 2)
	assert.Equal(t, "idx_a", report.TopAccessed[0].Index.Name)
}

func TestIndexReport_DataUnavailable(t *testing.T) {
	err := fmt.Errorf("reading index catalog: %w: performance_schema is OFF", domain.ErrDataUnavailable)
	s := setupServer(&mockCatalog{err: err}, nil)

	result := callTool(t, s, "index_report", nil)
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "performance_schema is OFF")
}

func TestIndexReport_InternalErrorIsSanitized(t *testing.T) {
	s := setupServer(&mockCatalog{err: errors.New("dial tcp 10.0.0.5:3306: connection refused")}, nil)

	result := callTool(t, s, "index_report", nil)
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "internal error")
	assert.NotContains(t, toolText(result), "10.0.0.5")
}

// --- tool registration ---

func TestRegisterTools_AHIToolsNeedSampler(t *testing.T) {
	withoutAHI := listTools(t, setupServer(&mockCatalog{snap: catalogFixture()}, nil))
	assert.ElementsMatch(t, []string{"index_report"}, withoutAHI)

	withAHI := listTools(t, setupServer(&mockCatalog{snap: catalogFixture()}, &mockStatusReader{}))
	assert.ElementsMatch(t, []string{"index_report", "ahi_snapshot", "ahi_monitor"}, withAHI)
}

// --- ahi_snapshot ---

func TestAHISnapshot_HappyPath(t *testing.T) {
	s := setupServer(&mockCatalog{snap: catalogFixture()}, &mockStatusReader{})

	result := callTool(t, s, "ahi_snapshot", nil)
	require.False(t, result.IsError, toolText(result))

	var doc struct {
		Sample        domain.AHISample     `json:"sample"`
		Effectiveness domain.Effectiveness `json:"effectiveness"`
		Advice        string               `json:"advice"`
	}
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &doc))
	assert.Equal(t, int64(8), doc.Sample.Partitions)
	require.NotNil(t, doc.Effectiveness.HitRate)
	assert.InDelta(t, 80.0, *doc.Effectiveness.HitRate, 0.001)
	assert.Equal(t, domain.TierExcellent, doc.Effectiveness.Tier)
	assert.NotEmpty(t, doc.Advice)
}

func TestAHISnapshot_MetricsDisabled(t *testing.T) {
	err := fmt.Errorf("%w: innodb metrics not enabled", domain.ErrDataUnavailable)
	s := setupServer(&mockCatalog{snap: catalogFixture()}, &mockStatusReader{err: err})

	result := callTool(t, s, "ahi_snapshot", nil)
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "innodb metrics not enabled")
}

// --- ahi_monitor ---

func TestAHIMonitor_HappyPath(t *testing.T) {
	reader := &mockStatusReader{}
	s := setupServer(&mockCatalog{snap: catalogFixture()}, reader)

	result := callTool(t, s, "ahi_monitor", map[string]any{
		"interval_seconds": 0.01,
		"duration_seconds": 0.05,
	})
	require.False(t, result.IsError, toolText(result))

	var series struct {
		domain.AHISeries
		Overall domain.Effectiveness `json:"overall"`
	}
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &series))
	assert.Equal(t, domain.StopDuration, series.StopReason)
	require.GreaterOrEqual(t, len(series.Samples), 2)
	assert.Len(t, series.Intervals, len(series.Samples)-1)
	for _, iv := range series.Intervals {
		require.NotNil(t, iv.Effectiveness.HitRate)
		assert.InDelta(t, 80.0, *iv.Effectiveness.HitRate, 0.001)
	}
	assert.Equal(t, domain.TierExcellent, series.Overall.Tier)
}

func TestAHIMonitor_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"duration too long", map[string]any{"duration_seconds": 3600}, "duration_seconds"},
		{"negative duration", map[string]any{"duration_seconds": -1}, "duration_seconds"},
		{"zero interval", map[string]any{"interval_seconds": 0, "duration_seconds": 10}, "interval_seconds"},
		{"interval longer than duration", map[string]any{"interval_seconds": 20, "duration_seconds": 10}, "interval_seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &mockStatusReader{}
			s := setupServer(&mockCatalog{snap: catalogFixture()}, reader)

			result := callTool(t, s, "ahi_monitor", tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, toolText(result), tt.want)
			assert.Zero(t, reader.calls, "no sampling on invalid arguments")
		})
	}
}

func TestAHIMonitor_PartialSeriesOnError(t *testing.T) {
	reader := &mockStatusReader{err: errors.New("connection reset"), failFrom: 3}
	s := setupServer(&mockCatalog{snap: catalogFixture()}, reader)

	result := callTool(t, s, "ahi_monitor", map[string]any{
		"interval_seconds": 0.01,
		"duration_seconds": 1,
	})
	require.False(t, result.IsError, toolText(result))
	require.Len(t, result.Content, 2)

	var series domain.AHISeries
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &series))
	assert.Len(t, series.Samples, 2)
	assert.Equal(t, domain.StopError, series.StopReason)

	note, ok := result.Content[1].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, note.Text, "monitoring stopped early")
}

func TestAHIMonitor_FirstSampleFails(t *testing.T) {
	err := fmt.Errorf("%w: innodb metrics not enabled", domain.ErrDataUnavailable)
	s := setupServer(&mockCatalog{snap: catalogFixture()}, &mockStatusReader{err: err})

	result := callTool(t, s, "ahi_monitor", map[string]any{"interval_seconds": 0.01, "duration_seconds": 0.05})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "innodb metrics not enabled")
}

// --- sanitizeError ---

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		contains    string
		notContains string
	}{
		{"data unavailable passes through", fmt.Errorf("%w: track_counts is off", domain.ErrDataUnavailable), "track_counts is off", ""},
		{"timeout", fmt.Errorf("querying indexes: %w", context.DeadlineExceeded), "index report timed out", ""},
		{"cancelled", context.Canceled, "was cancelled", ""},
		{"generic", errors.New("unexpected error: relation OID 12345"), "check server logs", "OID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := sanitizeError(testLogger(), tt.err, "index report")
			assert.Contains(t, msg, tt.contains)
			if tt.notContains != "" {
				assert.NotContains(t, msg, tt.notContains)
			}
		})
	}
}
