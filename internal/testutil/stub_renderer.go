package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StubRenderer is an in-process renderer for dispatcher tests.
// By default it returns a page that embeds the URL and a per-URL render count,
// so a second render of the same URL yields different bytes than the first.
type StubRenderer struct {
	mu    sync.Mutex
	calls map[string]int
	total int

	// Err, when set, is returned for every render.
	Err error

	// Delay is slept before answering (honoring ctx).
	Delay time.Duration

	// RenderFunc overrides the default page. It receives the URL and its call number.
	RenderFunc func(url string, n int) ([]byte, error)
}

// NewStubRenderer creates a stub renderer.
func NewStubRenderer() *StubRenderer {
	return &StubRenderer{calls: make(map[string]int)}
}

// Render implements the renderer contract.
func (s *StubRenderer) Render(ctx context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	s.calls[url]++
	s.total++
	n := s.calls[url]
	s.mu.Unlock()

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if s.Err != nil {
		return nil, s.Err
	}
	if s.RenderFunc != nil {
		return s.RenderFunc(url, n)
	}

	return []byte(fmt.Sprintf("<!DOCTYPE html><html><body><h1>%s</h1><p>render #%d</p></body></html>", url, n)), nil
}

// Calls returns how often url was rendered.
func (s *StubRenderer) Calls(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

// TotalCalls returns the number of renders across all URLs.
func (s *StubRenderer) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}
