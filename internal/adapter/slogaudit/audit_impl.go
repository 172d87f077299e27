// Package slogaudit is the fallback fetch-audit backend used when no
// database is configured: events go to the structured log and a small
// in-memory ring for the audit endpoint.
package slogaudit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/AeonDevWorks/clarity-snapshot/internal/entity"
)

const ringSize = 256

// AuditRepoImpl implements FetchAuditRepository without external storage.
type AuditRepoImpl struct {
	mu     sync.Mutex
	events []*entity.FetchAuditEvent
	next   int
	filled bool
}

// NewAuditRepo creates a log-backed audit repository.
func NewAuditRepo() *AuditRepoImpl {
	return &AuditRepoImpl{events: make([]*entity.FetchAuditEvent, ringSize)}
}

// Record logs the event and keeps it in a fixed-size ring, overwriting the
// oldest entry once full.
func (r *AuditRepoImpl) Record(_ context.Context, event *entity.FetchAuditEvent) error {
	slog.Warn("Fetch audit event",
		"url", event.URL,
		"outcome", event.Outcome,
		"reason", event.Reason,
	)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = event
	r.next = (r.next + 1) % ringSize
	if r.next == 0 {
		r.filled = true
	}
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (r *AuditRepoImpl) RecentEvents(_ context.Context, limit int) ([]*entity.FetchAuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.next
	if r.filled {
		stored = ringSize
	}
	if limit > stored {
		limit = stored
	}

	events := make([]*entity.FetchAuditEvent, 0, limit)
	for i := 1; i <= limit; i++ {
		events = append(events, r.events[(r.next-i+ringSize)%ringSize])
	}
	return events, nil
}
