package repository

import (
	"context"

	"github.com/AeonDevWorks/clarity-snapshot/internal/entity"
)

// FetchAuditRepository defines the contract for the security-audit trail of
// fetch attempts that were denied or failed. Recording is best-effort: the
// use case logs and continues on error rather than failing the request.
type FetchAuditRepository interface {
	Record(ctx context.Context, event *entity.FetchAuditEvent) error
	// RecentEvents returns the most recent events, newest first.
	RecentEvents(ctx context.Context, limit int) ([]*entity.FetchAuditEvent, error)
}
