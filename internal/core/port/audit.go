package port

import "context"

// AuditEntry represents a single applied corrective statement.
type AuditEntry struct {
	Category   string
	SQL        string
	DurationMS int64
	Err        error
}

// ApplyAuditor records statement execution events.
type ApplyAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}
