package repository

import (
	"context"
	"errors"
)

// Render failure classes. Adapters wrap the underlying cause with one of
// these sentinels so the use case and handlers can dispatch with errors.Is.
var (
	// ErrBrowserUnavailable means the shared browser process failed to
	// initialize. The failure is sticky: every subsequent render fails the
	// same way until the process is restarted.
	ErrBrowserUnavailable = errors.New("browser process unavailable")

	// ErrNavigationFailed covers DNS errors and other hard navigation
	// failures. Non-2xx responses are not navigation failures.
	ErrNavigationFailed = errors.New("page navigation failed")

	// ErrRenderTimeout means the page load exceeded the configured deadline.
	ErrRenderTimeout = errors.New("page render timed out")
)

// RenderResult is the raw capture of one page load, before redaction.
type RenderResult struct {
	Title      string
	HTML       string
	Screenshot []byte // JPEG bytes, viewport-sized
}

// PageRenderer defines the contract for the headless-browser render driver.
type PageRenderer interface {
	// Render navigates to url in a fresh tab and captures title, serialized
	// HTML and a viewport screenshot. waitSelector, when non-empty, is a
	// best-effort hydration signal: the driver waits for it briefly and
	// proceeds on timeout.
	Render(ctx context.Context, url, waitSelector string) (*RenderResult, error)

	// Shutdown tears down the shared browser process. Safe to call when the
	// browser was never started.
	Shutdown()
}
