package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/prerender-cache/internal/testutil"
	"github.com/Sternrassler/prerender-cache/pkg/cache"
	"github.com/Sternrassler/prerender-cache/pkg/config"
	"github.com/Sternrassler/prerender-cache/pkg/server"
	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{config.EnvUpstream, config.EnvPort, config.EnvRedisURL, config.EnvRenderTimeout, config.EnvChromePath, config.EnvLogLevel} {
		t.Setenv(key, "")
	}
	configFile = ""
}

func setupApp(t *testing.T) (*app, *testutil.StubRenderer, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Upstream = "https://origin"
	cfg.Redis.URL = mr.Addr()

	renderer := testutil.NewStubRenderer()
	a, err := newApp(context.Background(), cfg, renderer)
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	return a, renderer, mr
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvPort, "5000")

	cmd, _, err := newRootCmd().Find([]string{"serve"})
	if err != nil {
		t.Fatalf("Find serve failed: %v", err)
	}
	if err := cmd.ParseFlags([]string{"--upstream", "http://localhost:5173/", "--port", "4000", "--log-level", "debug"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Upstream != "http://localhost:5173" {
		t.Errorf("Upstream = %q", cfg.Upstream)
	}
	if cfg.Port != 4000 {
		t.Errorf("Port = %d, want flag value 4000", cfg.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadConfig_InvalidFlag(t *testing.T) {
	clearEnv(t)

	cmd, _, _ := newRootCmd().Find([]string{"warm"})
	if err := cmd.ParseFlags([]string{"--upstream", "not a url"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if _, err := loadConfig(cmd); err == nil {
		t.Error("expected error for invalid upstream")
	}
}

func TestNewApp_FallsBackToNullStore(t *testing.T) {
	cfg := config.Default()
	cfg.Redis.URL = "127.0.0.1:1"
	cfg.Redis.PingTimeout = config.Duration{Duration: 200 * time.Millisecond}

	a, err := newApp(context.Background(), cfg, testutil.NewStubRenderer())
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	defer a.Close()

	if _, ok := a.store.(cache.NullStore); !ok {
		t.Errorf("store = %T, want NullStore", a.store)
	}
}

func TestWarnIfNoCache(t *testing.T) {
	cfg := config.Default()
	cfg.Redis.URL = "127.0.0.1:1"
	cfg.Redis.PingTimeout = config.Duration{Duration: 200 * time.Millisecond}

	a, err := newApp(context.Background(), cfg, testutil.NewStubRenderer())
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	defer a.Close()

	var buf bytes.Buffer
	a.logger = zerolog.New(&buf)

	if !warnIfNoCache(a) {
		t.Error("unreachable Redis should be reported as no cache")
	}
	if !strings.Contains(buf.String(), "warmed pages will not be kept") {
		t.Errorf("warning not logged: %q", buf.String())
	}

	connected, _, _ := setupApp(t)
	buf.Reset()
	connected.logger = zerolog.New(&buf)
	if warnIfNoCache(connected) {
		t.Error("connected Redis reported as no cache")
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected warning: %q", buf.String())
	}
}

func TestServe(t *testing.T) {
	a, renderer, _ := setupApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, a, ln, false) }()

	for _, want := range []string{server.CacheMiss, server.CacheHit} {
		resp, err := http.Get(base + "/about")
		if err != nil {
			t.Fatalf("GET /about failed: %v", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		if got := resp.Header.Get(server.HeaderCache); got != want {
			t.Errorf("%s = %q, want %q", server.HeaderCache, got, want)
		}
	}

	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}

	if n := renderer.Calls("https://origin/about"); n != 1 {
		t.Errorf("renderer called %d times, want 1", n)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not shut down")
	}
}

func TestServe_WarmOnStartup(t *testing.T) {
	a, _, mr := setupApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, a, ln, true) }()

	deadline := time.Now().Add(5 * time.Second)
	for _, path := range a.cfg.WarmupPaths() {
		for !mr.Exists(cache.Key("https://origin" + path)) {
			if time.Now().After(deadline) {
				t.Fatalf("%s was not warmed", path)
			}
			time.Sleep(20 * time.Millisecond)
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("serve returned %v", err)
	}
}

func TestRunWarm(t *testing.T) {
	a, renderer, _ := setupApp(t)

	var out bytes.Buffer
	if err := runWarm(context.Background(), a, []string{"/about", "/api/users"}, &out); err != nil {
		t.Fatalf("runWarm failed: %v", err)
	}

	output := out.String()
	if !strings.Contains(output, "rendered  /about") {
		t.Errorf("output missing rendered line:\n%s", output)
	}
	if !strings.Contains(output, "skipped   /api/users") {
		t.Errorf("output missing skipped line:\n%s", output)
	}
	if !strings.Contains(output, "1 rendered, 0 cached, 1 skipped, 0 failed") {
		t.Errorf("output missing summary:\n%s", output)
	}
	if renderer.TotalCalls() != 1 {
		t.Errorf("renderer called %d times, want 1", renderer.TotalCalls())
	}
}

func TestRunWarm_Failures(t *testing.T) {
	a, renderer, _ := setupApp(t)
	a.cfg.Warmup.MaxAttempts = 2
	a.cfg.Warmup.Backoff = config.Duration{Duration: time.Millisecond}
	renderer.Err = errors.New("chrome missing")

	var out bytes.Buffer
	err := runWarm(context.Background(), a, []string{"/about"}, &out)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(out.String(), "1 failed") {
		t.Errorf("output missing failure count:\n%s", out.String())
	}
	if n := renderer.Calls("https://origin/about"); n != 2 {
		t.Errorf("renderer called %d times, want 2", n)
	}
}
