package response

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/AeonDevWorks/clarity-snapshot/internal/entity"
)

// PIIScan reports whether redaction changed the content.
type PIIScan struct {
	Masked bool `json:"masked"`
}

// SnapshotResponse is the wire envelope for a snapshot. Absent payloads are
// encoded as explicit nulls, matching the contract the front-end consumes.
type SnapshotResponse struct {
	SourceType       string    `json:"source_type"`
	SnapshotKey      string    `json:"snapshot_key"`
	ScreenshotBase64 *string   `json:"screenshot_base64"`
	RenderedHTML     *string   `json:"rendered_html"`
	Title            string    `json:"title,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	PIIScan          PIIScan   `json:"pii_scan"`
}

// FromSnapshot builds the response envelope. Screenshots are embedded as
// data URLs so the front-end can drop them straight into an <img> src.
func FromSnapshot(snap *entity.Snapshot) SnapshotResponse {
	resp := SnapshotResponse{
		SourceType:  string(snap.Source),
		SnapshotKey: snap.Key,
		Title:       snap.Title,
		Timestamp:   snap.CreatedAt,
		PIIScan:     PIIScan{Masked: snap.RedactionApplied},
	}
	if len(snap.Screenshot) > 0 {
		dataURL := fmt.Sprintf("data:%s;base64,%s",
			snap.ScreenshotMIME, base64.StdEncoding.EncodeToString(snap.Screenshot))
		resp.ScreenshotBase64 = &dataURL
	}
	if snap.RenderedHTML != "" {
		html := snap.RenderedHTML
		resp.RenderedHTML = &html
	}
	return resp
}

// AuditEventResponse is the wire form of one fetch-audit entry.
type AuditEventResponse struct {
	URL        string    `json:"url"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason"`
	Attempts   int       `json:"attempts,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// FromAuditEvents converts audit entries for the admin endpoint.
func FromAuditEvents(events []*entity.FetchAuditEvent) []AuditEventResponse {
	resp := make([]AuditEventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, AuditEventResponse{
			URL:        ev.URL,
			Outcome:    ev.Outcome,
			Reason:     ev.Reason,
			Attempts:   ev.Attempts,
			OccurredAt: ev.OccurredAt,
		})
	}
	return resp
}
