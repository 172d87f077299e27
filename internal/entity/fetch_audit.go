package entity

import "time"

// Audit outcomes for fetch attempts that did not produce a snapshot.
const (
	AuditOutcomeDenied = "denied"
	AuditOutcomeFailed = "failed"
)

// FetchAuditEvent mirrors the `fetch_audit` PostgreSQL table schema. Denied
// domains and render failures are recorded here for security auditing.
type FetchAuditEvent struct {
	ID         int64
	URL        string
	Outcome    string // "denied" or "failed"
	Reason     string
	Attempts   int
	OccurredAt time.Time
}
