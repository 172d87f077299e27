package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/AeonDevWorks/clarity-snapshot/internal/admission"
	"github.com/AeonDevWorks/clarity-snapshot/internal/entity"
	"github.com/AeonDevWorks/clarity-snapshot/internal/repository"
	"github.com/AeonDevWorks/clarity-snapshot/pkg/metrics"
	"github.com/AeonDevWorks/clarity-snapshot/pkg/pii"
	"github.com/AeonDevWorks/clarity-snapshot/pkg/utils"
)

var (
	ErrMissingInput      = errors.New("missing required input")
	ErrDomainNotAllowed  = errors.New("domain not allowed")
	ErrInvalidUploadType = errors.New("invalid file type")
)

const fetchedScreenshotMIME = "image/jpeg"

// SnapshotService defines the three entry contracts for acquiring snapshots.
type SnapshotService interface {
	// FetchURL renders url in the headless browser, redacts the HTML and
	// caches the result under a key derived from the normalized URL. With
	// force=false a live cache entry short-circuits the render. waitSelector
	// is an optional hydration hint passed through to the render driver.
	FetchURL(ctx context.Context, rawURL string, force bool, waitSelector string) (*entity.Snapshot, error)

	// UploadScreenshot stores user-provided image bytes under a fresh key.
	// No admission check and no redaction: there is no text content.
	UploadScreenshot(ctx context.Context, data []byte, mimeType string) (*entity.Snapshot, error)

	// UploadHTML redacts user-provided HTML and stores it under a fresh key.
	UploadHTML(ctx context.Context, data []byte) (*entity.Snapshot, error)
}

type snapshotUseCase struct {
	gate     *admission.Gate
	cache    repository.SnapshotCache
	renderer repository.PageRenderer
	audit    repository.FetchAuditRepository

	// flight deduplicates concurrent renders of the same cache key: two
	// simultaneous cold fetches of one URL drive the browser once and share
	// the result. Forced fetches bypass it along with the cache.
	flight singleflight.Group
}

// NewSnapshotService wires the snapshot acquisition pipeline.
func NewSnapshotService(
	gate *admission.Gate,
	cache repository.SnapshotCache,
	renderer repository.PageRenderer,
	audit repository.FetchAuditRepository,
) SnapshotService {
	return &snapshotUseCase{
		gate:     gate,
		cache:    cache,
		renderer: renderer,
		audit:    audit,
	}
}

func (uc *snapshotUseCase) FetchURL(ctx context.Context, rawURL string, force bool, waitSelector string) (*entity.Snapshot, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrMissingInput
	}

	if !uc.gate.Allowed(rawURL) {
		slog.Warn("Fetch denied by domain allow-list", "url", rawURL)
		metrics.FetchesTotal.WithLabelValues("denied", "forbidden").Inc()
		uc.recordAudit(ctx, rawURL, entity.AuditOutcomeDenied, "domain not on allow-list")
		return nil, ErrDomainNotAllowed
	}

	key := utils.SnapshotKeyForURL(rawURL)

	if !force {
		if snap, ok := uc.cacheGet(ctx, key); ok {
			slog.Info("Cache hit", "url", rawURL, "key", key)
			metrics.CacheEventsTotal.WithLabelValues("hit").Inc()
			return snap, nil
		}
		metrics.CacheEventsTotal.WithLabelValues("miss").Inc()

		result, err, _ := uc.flight.Do(key, func() (interface{}, error) {
			// A concurrent flight may have filled the cache while this
			// caller waited on the lock.
			if snap, ok := uc.cacheGet(ctx, key); ok {
				return snap, nil
			}
			return uc.renderAndStore(ctx, rawURL, key, waitSelector)
		})
		if err != nil {
			return nil, err
		}
		return result.(*entity.Snapshot), nil
	}

	return uc.renderAndStore(ctx, rawURL, key, waitSelector)
}

func (uc *snapshotUseCase) renderAndStore(ctx context.Context, rawURL, key, waitSelector string) (*entity.Snapshot, error) {
	slog.Info("Fetching URL", "url", rawURL, "key", key)

	startTime := time.Now()
	result, renderErr := uc.renderer.Render(ctx, rawURL, waitSelector)
	metrics.FetchDuration.WithLabelValues(hostnameOf(rawURL)).Observe(time.Since(startTime).Seconds())

	if renderErr != nil {
		slog.Error("Render failed", "url", rawURL, "error", renderErr)
		metrics.FetchesTotal.WithLabelValues("failure", errorType(renderErr)).Inc()
		uc.recordAudit(ctx, rawURL, entity.AuditOutcomeFailed, renderErr.Error())
		// Failures are never cached; a retry starts clean.
		return nil, fmt.Errorf("fetch %s: %w", rawURL, renderErr)
	}

	maskedHTML, changed := pii.Mask(result.HTML)

	snap := &entity.Snapshot{
		Key:              key,
		Source:           entity.SourceFetched,
		Title:            result.Title,
		RenderedHTML:     maskedHTML,
		Screenshot:       result.Screenshot,
		ScreenshotMIME:   fetchedScreenshotMIME,
		CreatedAt:        time.Now(),
		RedactionApplied: changed,
	}

	uc.cacheSet(ctx, key, snap)
	metrics.FetchesTotal.WithLabelValues("success", "").Inc()
	return snap, nil
}

func (uc *snapshotUseCase) UploadScreenshot(ctx context.Context, data []byte, mimeType string) (*entity.Snapshot, error) {
	if len(data) == 0 {
		return nil, ErrMissingInput
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, ErrInvalidUploadType
	}

	snap := &entity.Snapshot{
		Key:            "upload:" + uuid.NewString(),
		Source:         entity.SourceUserScreenshot,
		Screenshot:     data,
		ScreenshotMIME: mimeType,
		CreatedAt:      time.Now(),
	}

	uc.cacheSet(ctx, snap.Key, snap)
	return snap, nil
}

func (uc *snapshotUseCase) UploadHTML(ctx context.Context, data []byte) (*entity.Snapshot, error) {
	if len(data) == 0 {
		return nil, ErrMissingInput
	}

	maskedHTML, changed := pii.Mask(string(data))

	snap := &entity.Snapshot{
		Key:              "upload_html:" + uuid.NewString(),
		Source:           entity.SourceUploadedHTML,
		RenderedHTML:     maskedHTML,
		CreatedAt:        time.Now(),
		RedactionApplied: changed,
	}

	uc.cacheSet(ctx, snap.Key, snap)
	return snap, nil
}

// cacheGet treats backend errors as misses: a cache hiccup must not fail a
// request that can be served by rendering.
func (uc *snapshotUseCase) cacheGet(ctx context.Context, key string) (*entity.Snapshot, bool) {
	snap, ok, err := uc.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("Cache lookup failed", "key", key, "error", err)
		return nil, false
	}
	return snap, ok
}

func (uc *snapshotUseCase) cacheSet(ctx context.Context, key string, snap *entity.Snapshot) {
	if err := uc.cache.Set(ctx, key, snap); err != nil {
		// Non-critical: the response is still served, the next request
		// just pays the fetch cost again.
		slog.Warn("Cache store failed", "key", key, "error", err)
		return
	}
	metrics.CacheEventsTotal.WithLabelValues("store").Inc()
	if size, err := uc.cache.Len(ctx); err == nil {
		metrics.CacheEntries.Set(float64(size))
	}
}

func (uc *snapshotUseCase) recordAudit(ctx context.Context, rawURL, outcome, reason string) {
	event := &entity.FetchAuditEvent{
		URL:        rawURL,
		Outcome:    outcome,
		Reason:     reason,
		OccurredAt: time.Now(),
	}
	if err := uc.audit.Record(ctx, event); err != nil {
		slog.Warn("Failed to record audit event", "url", rawURL, "outcome", outcome, "error", err)
	}
}

func hostnameOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return "unknown"
}

func errorType(err error) string {
	switch {
	case errors.Is(err, repository.ErrRenderTimeout):
		return "timeout"
	case errors.Is(err, repository.ErrBrowserUnavailable):
		return "browser_unavailable"
	case errors.Is(err, repository.ErrNavigationFailed):
		return "navigation"
	default:
		return "unknown"
	}
}
