package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AeonDevWorks/clarity-snapshot/internal/entity"
)

// FetchAuditRepoImpl provides a concrete implementation for the
// FetchAuditRepository interface using PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE fetch_audit (
//	    id          BIGSERIAL PRIMARY KEY,
//	    url         TEXT NOT NULL,
//	    outcome     TEXT NOT NULL,
//	    reason      TEXT NOT NULL,
//	    attempts    INT  NOT NULL DEFAULT 1,
//	    occurred_at TIMESTAMPTZ NOT NULL,
//	    UNIQUE (url, outcome)
//	);
type FetchAuditRepoImpl struct {
	db *pgxpool.Pool
}

// NewFetchAuditRepo creates a new instance of FetchAuditRepoImpl.
func NewFetchAuditRepo(db *pgxpool.Pool) *FetchAuditRepoImpl {
	return &FetchAuditRepoImpl{db: db}
}

// Record upserts an audit event for a denied or failed fetch. Repeated events
// for the same URL and outcome increment the attempt counter instead of
// growing the table unboundedly.
func (r *FetchAuditRepoImpl) Record(ctx context.Context, event *entity.FetchAuditEvent) error {
	query := `
		INSERT INTO fetch_audit (url, outcome, reason, attempts, occurred_at)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (url, outcome) DO UPDATE SET
			reason = EXCLUDED.reason,
			attempts = fetch_audit.attempts + 1,
			occurred_at = EXCLUDED.occurred_at;
	`
	_, err := r.db.Exec(ctx, query,
		event.URL,
		event.Outcome,
		event.Reason,
		event.OccurredAt,
	)
	return err
}

// RecentEvents retrieves the most recent audit events, newest first.
func (r *FetchAuditRepoImpl) RecentEvents(ctx context.Context, limit int) ([]*entity.FetchAuditEvent, error) {
	query := `
		SELECT id, url, outcome, reason, attempts, occurred_at
		FROM fetch_audit
		ORDER BY occurred_at DESC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*entity.FetchAuditEvent
	for rows.Next() {
		var ev entity.FetchAuditEvent
		if err := rows.Scan(
			&ev.ID,
			&ev.URL,
			&ev.Outcome,
			&ev.Reason,
			&ev.Attempts,
			&ev.OccurredAt,
		); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}

	return events, rows.Err()
}
