package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/rs/zerolog"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name: "with cause",
			err: &Error{
				Class: ErrorClassNavigation,
				URL:   "https://example.com/products",
				Err:   errors.New("page load error net::ERR_NAME_NOT_RESOLVED"),
			},
			expected: "render navigation error for https://example.com/products: page load error net::ERR_NAME_NOT_RESOLVED",
		},
		{
			name: "without cause",
			err: &Error{
				Class: ErrorClassTimeout,
				URL:   "https://example.com/",
			},
			expected: "render timeout error for https://example.com/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{
		Class: ErrorClassTimeout,
		URL:   "https://example.com/",
		Err:   context.DeadlineExceeded,
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if got := ClassOf(err); got != ErrorClassTimeout {
		t.Errorf("ClassOf = %q, want %q", got, ErrorClassTimeout)
	}
	if got := ClassOf(errors.New("plain")); got != "" {
		t.Errorf("ClassOf(plain) = %q, want empty", got)
	}
}

func TestClassifyStep(t *testing.T) {
	expired, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		step ErrorClass
		want ErrorClass
	}{
		{"plain navigation error", context.Background(), errors.New("net::ERR_CONNECTION_REFUSED"), ErrorClassNavigation, ErrorClassNavigation},
		{"deadline error", context.Background(), context.DeadlineExceeded, ErrorClassNavigation, ErrorClassTimeout},
		{"step context expired", expired, errors.New("context canceled"), ErrorClassCapture, ErrorClassTimeout},
		{"caller cancelled", context.Background(), context.Canceled, ErrorClassNavigation, ErrorClassNavigation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyStep(tt.ctx, tt.err, tt.step); got != tt.want {
				t.Errorf("classifyStep = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIdleWatcher(t *testing.T) {
	lifecycle := func(name string, loader cdp.LoaderID) *page.EventLifecycleEvent {
		return &page.EventLifecycleEvent{Name: name, LoaderID: loader}
	}

	t.Run("ignores idle before navigation", func(t *testing.T) {
		w := newIdleWatcher()
		w.arm(context.Background())
		w.handle(lifecycle(lifecycleNetworkIdle, "blank"))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := w.wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("wait = %v, want deadline exceeded", err)
		}
	})

	t.Run("ignores events before arm", func(t *testing.T) {
		w := newIdleWatcher()
		w.handle(lifecycle(lifecycleInit, "blank"))
		w.handle(lifecycle(lifecycleNetworkIdle, "blank"))
		w.arm(context.Background())
		w.handle(lifecycle(lifecycleInit, "main"))
		w.handle(lifecycle(lifecycleNetworkIdle, "blank"))

		select {
		case <-w.idle:
			t.Error("watcher signalled idle for a loader seen before arm")
		default:
		}

		w.handle(lifecycle(lifecycleNetworkIdle, "main"))
		select {
		case <-w.idle:
		default:
			t.Error("watcher did not signal idle for the armed navigation")
		}
	})

	t.Run("signals idle of navigation loader", func(t *testing.T) {
		w := newIdleWatcher()
		w.arm(context.Background())
		w.handle(lifecycle(lifecycleInit, "main"))
		w.handle(lifecycle(lifecycleInit, "subframe"))
		w.handle(lifecycle(lifecycleNetworkIdle, "subframe"))
		w.handle(lifecycle(lifecycleNetworkIdle, "main"))
		w.handle(lifecycle(lifecycleNetworkIdle, "main"))

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := w.wait(ctx); err != nil {
			t.Errorf("wait = %v, want nil", err)
		}
	})

	t.Run("ignores unrelated events", func(t *testing.T) {
		w := newIdleWatcher()
		w.arm(context.Background())
		w.handle(&page.EventLoadEventFired{})
		w.handle(lifecycle("load", "main"))

		select {
		case <-w.idle:
			t.Error("watcher signalled idle without a networkIdle event")
		default:
		}
	})
}

func TestNewChromeRenderer_Defaults(t *testing.T) {
	r := NewChromeRenderer(Options{SettleDelay: -time.Second}, zerolog.New(io.Discard))
	opts := r.Options()

	if opts.Viewport != (Viewport{Width: 1200, Height: 800}) {
		t.Errorf("Viewport = %+v, want 1200x800", opts.Viewport)
	}
	if opts.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q, want default", opts.UserAgent)
	}
	if opts.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", opts.Timeout, DefaultTimeout)
	}
	if opts.SettleDelay != 0 {
		t.Errorf("SettleDelay = %v, want 0", opts.SettleDelay)
	}
}

func TestChromeRenderer_LaunchFailure(t *testing.T) {
	r := NewChromeRenderer(Options{
		ExecPath: "/nonexistent/chrome-for-prerender-tests",
		Timeout:  5 * time.Second,
	}, zerolog.New(io.Discard))

	html, err := r.Render(context.Background(), "https://example.com/")
	if err == nil {
		t.Fatal("Render with missing browser should fail")
	}
	if html != nil {
		t.Errorf("Render returned markup on failure: %q", html)
	}

	var renderErr *Error
	if !errors.As(err, &renderErr) {
		t.Fatalf("error is %T, want *Error", err)
	}
	if renderErr.Class != ErrorClassLaunch {
		t.Errorf("Class = %q, want %q", renderErr.Class, ErrorClassLaunch)
	}
	if renderErr.URL != "https://example.com/" {
		t.Errorf("URL = %q", renderErr.URL)
	}
}

func TestChromeRenderer_LaunchHangs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a shell script as browser binary")
	}

	// A "browser" that never prints its DevTools address.
	fake := filepath.Join(t.TempDir(), "chrome")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\nexec sleep 30\n"), 0o755); err != nil {
		t.Fatalf("write fake browser: %v", err)
	}

	r := NewChromeRenderer(Options{ExecPath: fake, Timeout: 300 * time.Millisecond}, zerolog.New(io.Discard))

	start := time.Now()
	_, err := r.Render(context.Background(), "https://example.com/")
	elapsed := time.Since(start)

	if ClassOf(err) != ErrorClassLaunch {
		t.Fatalf("err = %v, want launch render error", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want it to wrap context.DeadlineExceeded", err)
	}
	if elapsed > 10*time.Second {
		t.Errorf("hung launch took %v, want it bounded by the render timeout", elapsed)
	}
}
