// Package chromedp_render drives a single shared headless Chrome process to
// load pages and capture their rendered state.
package chromedp_render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/AeonDevWorks/clarity-snapshot/internal/repository"
)

const (
	viewportWidth  = 1280
	viewportHeight = 720
	jpegQuality    = 80
)

// Options tunes the render driver. Zero values fall back to the defaults
// used by the production service.
type Options struct {
	PageLoadTimeout time.Duration // hard deadline for one render, default 30s
	SelectorWait    time.Duration // best-effort wait for a hydration selector, default 5s
	SettleDelay     time.Duration // fixed settle sleep without a selector, default 2s
}

func (o *Options) withDefaults() Options {
	opts := *o
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = 30 * time.Second
	}
	if opts.SelectorWait <= 0 {
		opts.SelectorWait = 5 * time.Second
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 2 * time.Second
	}
	return opts
}

// ChromedpRenderer owns one long-lived browser process. The process is
// started lazily on the first Render call; concurrent first callers block on
// a single initialization, and an initialization failure is sticky until the
// service restarts. Each Render opens its own tab, so calls may run
// concurrently against the shared browser.
type ChromedpRenderer struct {
	opts Options

	initOnce    sync.Once
	initErr     error
	browserCtx  context.Context
	cancelFuncs []context.CancelFunc
}

// NewChromedpRenderer creates a renderer. The browser process is not started
// until the first Render call.
func NewChromedpRenderer(opts Options) *ChromedpRenderer {
	return &ChromedpRenderer{opts: opts.withDefaults()}
}

func (r *ChromedpRenderer) browser() (context.Context, error) {
	r.initOnce.Do(func() {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOpts...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)

		// Start the process now so that a broken Chrome install surfaces
		// here rather than on the first navigation.
		if err := chromedp.Run(browserCtx); err != nil {
			browserCancel()
			allocCancel()
			r.initErr = fmt.Errorf("%w: %v", repository.ErrBrowserUnavailable, err)
			return
		}

		r.browserCtx = browserCtx
		r.cancelFuncs = []context.CancelFunc{browserCancel, allocCancel}
		slog.Info("Headless browser started")
	})
	return r.browserCtx, r.initErr
}

// Render loads url in a fresh tab and captures title, serialized HTML and a
// viewport JPEG screenshot. The tab is torn down on every exit path.
func (r *ChromedpRenderer) Render(ctx context.Context, url, waitSelector string) (*repository.RenderResult, error) {
	browserCtx, err := r.browser()
	if err != nil {
		return nil, err
	}

	// New tab in the shared browser. The request context is not threaded
	// into the tab: cancellation mid-navigation is handled above this layer.
	tabCtx, closeTab := chromedp.NewContext(browserCtx)
	defer closeTab()

	tabCtx, cancel := context.WithTimeout(tabCtx, r.opts.PageLoadTimeout)
	defer cancel()

	result := &repository.RenderResult{}

	err = chromedp.Run(tabCtx,
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
		chromedp.Navigate(url),
		r.settleAction(url, waitSelector),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// Title and HTML are best-effort once navigation succeeded; the
			// screenshot below is what decides success.
			if err := chromedp.Title(&result.Title).Do(ctx); err != nil {
				slog.Warn("Failed to read page title", "url", url, "error", err)
			}
			if err := chromedp.OuterHTML("html", &result.HTML, chromedp.ByQuery).Do(ctx); err != nil {
				slog.Warn("Failed to serialize page HTML", "url", url, "error", err)
			}
			return nil
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			shot, err := page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatJpeg).
				WithQuality(jpegQuality).
				Do(ctx)
			if err != nil {
				return err
			}
			result.Screenshot = shot
			return nil
		}),
	)
	if err != nil {
		return nil, classifyRenderError(err)
	}

	if result.HTML == "" && len(result.Screenshot) == 0 {
		return nil, fmt.Errorf("%w: page produced no content", repository.ErrNavigationFailed)
	}

	slog.Info("Rendered page", "url", url, "title", result.Title, "screenshot_bytes", len(result.Screenshot))
	return result, nil
}

// settleAction waits for the page to stabilize after navigation. A supplied
// selector is a hydration hint, waited on for at most SelectorWait and
// skipped on timeout; otherwise a fixed settle delay covers client-side
// rendering.
func (r *ChromedpRenderer) settleAction(url, waitSelector string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if waitSelector == "" {
			return chromedp.Sleep(r.opts.SettleDelay).Do(ctx)
		}
		waitCtx, cancel := context.WithTimeout(ctx, r.opts.SelectorWait)
		defer cancel()
		if err := chromedp.WaitVisible(waitSelector, chromedp.ByQuery).Do(waitCtx); err != nil {
			slog.Warn("Timed out waiting for selector, proceeding", "url", url, "selector", waitSelector)
		}
		return nil
	})
}

func classifyRenderError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", repository.ErrRenderTimeout, err)
	}
	return fmt.Errorf("%w: %v", repository.ErrNavigationFailed, err)
}

// Shutdown closes every tab and the browser process. Safe to call when the
// browser never started or failed to start.
func (r *ChromedpRenderer) Shutdown() {
	if r.browserCtx == nil {
		return
	}
	for _, cancel := range r.cancelFuncs {
		cancel()
	}
	slog.Info("Headless browser stopped")
}
