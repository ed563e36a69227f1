// Package render drives a headless Chrome to turn client-rendered pages into
// static markup.
package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultUserAgent identifies the renderer to upstream analytics and bot filters.
	DefaultUserAgent = "Mozilla/5.0 (compatible; Prerender/+https://github.com/prerender/prerender)"

	// DefaultTimeout bounds navigation until network idle.
	DefaultTimeout = 30 * time.Second

	// DefaultSettleDelay gives deferred hydration time to mutate the DOM after idle.
	DefaultSettleDelay = time.Second

	// captureTimeout bounds serialization of the final document.
	captureTimeout = 10 * time.Second
)

// Renderer turns a URL into fully rendered markup.
// A non-nil error is always a *Error and no markup is returned with it.
type Renderer interface {
	Render(ctx context.Context, targetURL string) ([]byte, error)
}

// Viewport is the emulated browser window size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// Options configures the Chrome renderer.
type Options struct {
	Viewport    Viewport
	UserAgent   string
	Timeout     time.Duration
	SettleDelay time.Duration

	// ExecPath pins the Chrome binary. Empty lets chromedp search the usual locations.
	ExecPath string
}

// DefaultOptions returns the renderer defaults.
func DefaultOptions() Options {
	return Options{
		Viewport:    Viewport{Width: 1200, Height: 800},
		UserAgent:   DefaultUserAgent,
		Timeout:     DefaultTimeout,
		SettleDelay: DefaultSettleDelay,
	}
}

// ChromeRenderer launches a fresh headless Chrome for every render.
// No cookies, storage or HTTP cache survive between renders.
type ChromeRenderer struct {
	opts   Options
	logger zerolog.Logger
}

var _ Renderer = (*ChromeRenderer)(nil)

// NewChromeRenderer creates a renderer. Zero fields fall back to DefaultOptions.
func NewChromeRenderer(opts Options, logger zerolog.Logger) *ChromeRenderer {
	defaults := DefaultOptions()
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		opts.Viewport = defaults.Viewport
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}

	return &ChromeRenderer{
		opts:   opts,
		logger: logger,
	}
}

// Options returns the effective options.
func (r *ChromeRenderer) Options() Options {
	return r.opts
}

// Render navigates to targetURL, waits for network idle plus the settle delay
// and returns the serialized document. The browser process is torn down
// before Render returns, whatever the outcome.
func (r *ChromeRenderer) Render(ctx context.Context, targetURL string) (html []byte, err error) {
	start := time.Now()
	logger := r.logger.With().
		Str("session", uuid.NewString()).
		Str("url", targetURL).
		Logger()

	defer func() {
		duration := time.Since(start)
		renderDuration.Observe(duration.Seconds())

		if err != nil {
			class := ClassOf(err)
			rendersTotal.WithLabelValues("failure").Inc()
			renderFailuresTotal.WithLabelValues(string(class)).Inc()
			logger.Warn().
				Err(err).
				Str("error_class", string(class)).
				Dur("duration", duration).
				Msg("Render failed")
			return
		}

		rendersTotal.WithLabelValues("success").Inc()
		logger.Info().
			Int("bytes", len(html)).
			Dur("duration", duration).
			Msg("Rendered page")
	}()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if err := r.launch(browserCtx, cancelBrowser); err != nil {
		return nil, &Error{Class: ErrorClassLaunch, URL: targetURL, Err: err}
	}
	logger.Debug().Msg("Browser launched")

	watcher := newIdleWatcher()
	chromedp.ListenTarget(browserCtx, watcher.handle)

	navCtx, cancelNav := context.WithTimeout(browserCtx, r.opts.Timeout)
	defer cancelNav()

	err = chromedp.Run(navCtx,
		chromedp.EmulateViewport(int64(r.opts.Viewport.Width), int64(r.opts.Viewport.Height)),
		chromedp.ActionFunc(watcher.arm),
		chromedp.Navigate(targetURL),
		chromedp.ActionFunc(watcher.wait),
	)
	if err != nil {
		return nil, &Error{Class: classifyStep(navCtx, err, ErrorClassNavigation), URL: targetURL, Err: err}
	}

	captureCtx, cancelCapture := context.WithTimeout(browserCtx, r.opts.SettleDelay+captureTimeout)
	defer cancelCapture()

	var doc string
	err = chromedp.Run(captureCtx,
		chromedp.Sleep(r.opts.SettleDelay),
		chromedp.ActionFunc(func(ctx context.Context) error {
			root, err := dom.GetDocument().Do(ctx)
			if err != nil {
				return err
			}
			doc, err = dom.GetOuterHTML().WithNodeID(root.NodeID).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, &Error{Class: classifyStep(captureCtx, err, ErrorClassCapture), URL: targetURL, Err: err}
	}

	return []byte(doc), nil
}

// launch starts the browser within the render timeout. The first Run must not
// carry a deadline itself: cancelling the context of the first Run closes the
// browser. A start that hangs is aborted by cancelling the whole browser.
func (r *ChromeRenderer) launch(browserCtx context.Context, cancelBrowser context.CancelFunc) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(browserCtx, page.SetLifecycleEventsEnabled(true))
	}()

	timer := time.NewTimer(r.opts.Timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		cancelBrowser()
		return fmt.Errorf("browser did not start within %s: %w", r.opts.Timeout, context.DeadlineExceeded)
	}
}

func (r *ChromeRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.DisableGPU,
		chromedp.UserAgent(r.opts.UserAgent),
		chromedp.WindowSize(r.opts.Viewport.Width, r.opts.Viewport.Height),
	)
	if r.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.opts.ExecPath))
	}
	return opts
}
