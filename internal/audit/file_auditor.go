package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/guillermoBallester/indexlens/internal/core/port"
)

// line is one NDJSON record in the audit file.
type line struct {
	Timestamp  string  `json:"ts"`
	Operation  string  `json:"operation,omitempty"`
	Statement  string  `json:"statement"`
	Rows       int     `json:"rows"`
	DurationMS int64   `json:"duration_ms"`
	Error      *string `json:"error"`
}

// FileAuditor appends one JSON line per catalog statement to a file.
type FileAuditor struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	now  func() time.Time
}

// NewFileAuditor opens path for appending, creating it when missing.
func NewFileAuditor(path string) (*FileAuditor, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &FileAuditor{
		file: f,
		enc:  json.NewEncoder(f),
		now:  time.Now,
	}, nil
}

func (a *FileAuditor) Record(ctx context.Context, entry port.AuditEntry) {
	l := line{
		Operation:  entry.Operation,
		Statement:  entry.Statement,
		Rows:       entry.Rows,
		DurationMS: entry.DurationMS,
	}
	if l.Operation == "" {
		l.Operation = port.OperationFromContext(ctx)
	}
	if entry.Err != nil {
		msg := entry.Err.Error()
		l.Error = &msg
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	l.Timestamp = a.now().UTC().Format(time.RFC3339Nano)
	_ = a.enc.Encode(l) // audit I/O failures never fail the diagnostic
}

func (a *FileAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// NoopAuditor discards all audit entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, port.AuditEntry) {}
func (NoopAuditor) Close() error                            { return nil }
