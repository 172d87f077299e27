package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AeonDevWorks/clarity-snapshot/internal/adapter/memcache"
	"github.com/AeonDevWorks/clarity-snapshot/internal/adapter/slogaudit"
	"github.com/AeonDevWorks/clarity-snapshot/internal/admission"
	"github.com/AeonDevWorks/clarity-snapshot/internal/delivery/http/handler"
	"github.com/AeonDevWorks/clarity-snapshot/internal/delivery/http/router"
	"github.com/AeonDevWorks/clarity-snapshot/internal/repository"
	"github.com/AeonDevWorks/clarity-snapshot/internal/usecase"
	"github.com/AeonDevWorks/clarity-snapshot/pkg/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

type stubRenderer struct {
	calls  atomic.Int32
	delay  time.Duration
	result repository.RenderResult
	err    error
}

func (s *stubRenderer) Render(ctx context.Context, url, waitSelector string) (*repository.RenderResult, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	result := s.result
	return &result, nil
}

func (s *stubRenderer) Shutdown() {}

type testServer struct {
	handler  http.Handler
	renderer *stubRenderer
	cache    *memcache.CacheImpl
}

func newTestServer(allowed []string, renderer *stubRenderer) *testServer {
	cache := memcache.New(10, time.Minute)
	audit := slogaudit.NewAuditRepo()
	svc := usecase.NewSnapshotService(admission.NewGate(allowed), cache, renderer, audit)
	h := handler.NewHandler(svc, audit)
	return &testServer{
		handler:  router.New(h),
		renderer: renderer,
		cache:    cache,
	}
}

func okRenderer() *stubRenderer {
	return &stubRenderer{
		result: repository.RenderResult{
			Title:      "Example",
			HTML:       "<p>contact me at a@b.com</p>",
			Screenshot: []byte("jpeg-bytes"),
		},
	}
}

type snapshotBody struct {
	SourceType       string  `json:"source_type"`
	SnapshotKey      string  `json:"snapshot_key"`
	ScreenshotBase64 *string `json:"screenshot_base64"`
	RenderedHTML     *string `json:"rendered_html"`
	Title            string  `json:"title"`
	Timestamp        string  `json:"timestamp"`
	PIIScan          struct {
		Masked bool `json:"masked"`
	} `json:"pii_scan"`
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) snapshotBody {
	t.Helper()
	var body snapshotBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestPing(t *testing.T) {
	srv := newTestServer(nil, okRenderer())

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

// Scenario: fetch with an open allow-list; the email in the stubbed page
// must arrive masked.
func TestFetchMasksPII(t *testing.T) {
	srv := newTestServer(nil, okRenderer())

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fetch?url=https://example.com", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeSnapshot(t, rec)

	assert.Equal(t, "fetched_screenshot", body.SourceType)
	assert.Equal(t, "Example", body.Title)
	require.NotNil(t, body.RenderedHTML)
	assert.Contains(t, *body.RenderedHTML, "__MASKED_EMAIL__")
	assert.NotContains(t, *body.RenderedHTML, "a@b.com")
	assert.True(t, body.PIIScan.Masked)
	require.NotNil(t, body.ScreenshotBase64)
	assert.Contains(t, *body.ScreenshotBase64, "data:image/jpeg;base64,")
	assert.NotEmpty(t, body.SnapshotKey)
	assert.NotEmpty(t, body.Timestamp)
}

func TestFetchMissingURL(t *testing.T) {
	srv := newTestServer(nil, okRenderer())

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fetch", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing url parameter"}`, rec.Body.String())
	assert.EqualValues(t, 0, srv.renderer.calls.Load())
}

// Scenario: restricted allow-list rejects a foreign domain before the
// driver is ever invoked.
func TestFetchForbiddenDomain(t *testing.T) {
	srv := newTestServer([]string{"example.com"}, okRenderer())

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fetch?url=https://evil.com", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Domain not allowed"}`, rec.Body.String())
	assert.EqualValues(t, 0, srv.renderer.calls.Load())
}

func TestFetchRenderFailure(t *testing.T) {
	renderer := okRenderer()
	renderer.err = repository.ErrNavigationFailed
	srv := newTestServer(nil, renderer)

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fetch?url=https://example.com", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
}

func TestFetchBrowserUnavailable(t *testing.T) {
	renderer := okRenderer()
	renderer.err = repository.ErrBrowserUnavailable
	srv := newTestServer(nil, renderer)

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fetch?url=https://example.com", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Render driver unavailable"}`, rec.Body.String())
}

func TestFetchCachedSecondRequest(t *testing.T) {
	srv := newTestServer(nil, okRenderer())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fetch?url=https://example.com", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.EqualValues(t, 1, srv.renderer.calls.Load())
}

func TestFetchForceRefreshes(t *testing.T) {
	srv := newTestServer(nil, okRenderer())

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fetch?url=https://example.com", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fetch?url=https://example.com&force=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.EqualValues(t, 2, srv.renderer.calls.Load())
}

// Scenario: two concurrent requests on a cold cache with a slow driver.
// Both must complete; the single-flight in the service means the driver is
// invoked exactly once, which this test documents.
func TestFetchConcurrentRequests(t *testing.T) {
	renderer := okRenderer()
	renderer.delay = time.Second
	srv := newTestServer(nil, renderer)

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := httptest.NewRecorder()
			srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fetch?url=https://example.com", nil))
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.EqualValues(t, 1, renderer.calls.Load())
}

func TestUploadScreenshot(t *testing.T) {
	srv := newTestServer(nil, okRenderer())

	body, contentType := multipartBody(t, "screenshot", "shot.png", "image/png", []byte{0x89, 0x50, 0x4e, 0x47})
	req := httptest.NewRequest(http.MethodPost, "/upload_screenshot", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSnapshot(t, rec)
	assert.Equal(t, "user_screenshot", resp.SourceType)
	assert.Contains(t, resp.SnapshotKey, "upload:")
	assert.Nil(t, resp.RenderedHTML)
	require.NotNil(t, resp.ScreenshotBase64)
	assert.Contains(t, *resp.ScreenshotBase64, "data:image/png;base64,")
	assert.False(t, resp.PIIScan.Masked)
}

// Scenario: a non-image upload is rejected and the cache stays untouched.
func TestUploadScreenshotInvalidType(t *testing.T) {
	srv := newTestServer(nil, okRenderer())

	body, contentType := multipartBody(t, "screenshot", "notes.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/upload_screenshot", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid file type"}`, rec.Body.String())

	size, err := srv.cache.Len(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 0, size)
}

func TestUploadScreenshotMissingFile(t *testing.T) {
	srv := newTestServer(nil, okRenderer())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload_screenshot", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No file uploaded"}`, rec.Body.String())
}

func TestUploadHTML(t *testing.T) {
	srv := newTestServer(nil, okRenderer())

	body, contentType := multipartBody(t, "html", "page.html", "text/html", []byte("<p>reach me at me@corp.io</p>"))
	req := httptest.NewRequest(http.MethodPost, "/upload_html", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSnapshot(t, rec)
	assert.Equal(t, "uploaded_html", resp.SourceType)
	assert.Contains(t, resp.SnapshotKey, "upload_html:")
	assert.Nil(t, resp.ScreenshotBase64)
	require.NotNil(t, resp.RenderedHTML)
	assert.Contains(t, *resp.RenderedHTML, "__MASKED_EMAIL__")
	assert.True(t, resp.PIIScan.Masked)
}

func TestAuditLogExposesDenials(t *testing.T) {
	srv := newTestServer([]string{"example.com"}, okRenderer())

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fetch?url=https://evil.com", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var events []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "https://evil.com", events[0]["url"])
	assert.Equal(t, "denied", events[0]["outcome"])
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(nil, okRenderer())

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/fetch", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
