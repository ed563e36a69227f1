package render

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
)

// Lifecycle event names emitted by Chrome.
const (
	lifecycleInit        = "init"
	lifecycleNetworkIdle = "networkIdle"
)

// idleWatcher turns page lifecycle events into a single "network idle" signal
// for the first navigation started after arm. Idle events from other loaders
// (about:blank, subframes) are ignored.
type idleWatcher struct {
	mu     sync.Mutex
	armed  bool
	loader cdp.LoaderID
	once   sync.Once
	idle   chan struct{}
}

func newIdleWatcher() *idleWatcher {
	return &idleWatcher{idle: make(chan struct{})}
}

// handle is registered with chromedp.ListenTarget. It must not block.
func (w *idleWatcher) handle(ev interface{}) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.armed {
		return
	}

	switch e.Name {
	case lifecycleInit:
		if w.loader == "" {
			w.loader = e.LoaderID
		}
	case lifecycleNetworkIdle:
		if w.loader != "" && e.LoaderID == w.loader {
			w.once.Do(func() { close(w.idle) })
		}
	}
}

// arm starts tracking. Call it right before navigating.
func (w *idleWatcher) arm(context.Context) error {
	w.mu.Lock()
	w.armed = true
	w.mu.Unlock()
	return nil
}

// wait blocks until network idle or ctx is done.
func (w *idleWatcher) wait(ctx context.Context) error {
	select {
	case <-w.idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
