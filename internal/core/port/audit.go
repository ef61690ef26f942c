package port

import "context"

// AuditEntry represents a single statement run against the target database.
type AuditEntry struct {
	Operation  string
	Statement  string
	Rows       int
	DurationMS int64
	Err        error
}

// QueryAuditor records statement audit events.
type QueryAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}

type operationKey struct{}

// WithOperation returns a context carrying the name of the command or tool
// that triggered the statements, for audit logging.
func WithOperation(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operationKey{}, name)
}

// OperationFromContext returns the name set by WithOperation, or "".
func OperationFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(operationKey{}).(string); ok {
		return v
	}
	return ""
}
