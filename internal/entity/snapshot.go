package entity

import "time"

// SourceKind tags the provenance of a Snapshot. The string values are part of
// the wire format (the `source_type` field) and must not change.
type SourceKind string

const (
	SourceFetched        SourceKind = "fetched_screenshot"
	SourceUserScreenshot SourceKind = "user_screenshot"
	SourceUploadedHTML   SourceKind = "uploaded_html"
)

// Snapshot is the unit of cached state: one fetched or uploaded source,
// normalized. At least one of RenderedHTML / Screenshot is always non-empty.
// JSON tags exist so the Redis cache backend can round-trip entries.
type Snapshot struct {
	Key              string     `json:"key"`
	Source           SourceKind `json:"source"`
	Title            string     `json:"title,omitempty"`
	RenderedHTML     string     `json:"rendered_html,omitempty"`
	Screenshot       []byte     `json:"screenshot,omitempty"`
	ScreenshotMIME   string     `json:"screenshot_mime,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	RedactionApplied bool       `json:"redaction_applied"`
}

// HasContent reports whether the snapshot carries at least one of the two
// payloads. A snapshot failing this check must never be stored.
func (s *Snapshot) HasContent() bool {
	return s.RenderedHTML != "" || len(s.Screenshot) > 0
}
