// Package testutil provides testing utilities for the prerender cache.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockPage defines the behavior for a mock origin page.
type MockPage struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockOrigin is a configurable mock single-page-application origin.
type MockOrigin struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	requestCount  int
	lastUserAgent string
}

// NewMockOrigin creates a new mock origin. Unknown paths are served the SPA shell.
func NewMockOrigin() *MockOrigin {
	mock := &MockOrigin{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.lastUserAgent = r.UserAgent()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock origin base URL (no trailing slash).
func (m *MockOrigin) URL() string {
	return m.server.URL
}

// Close shuts down the mock origin.
func (m *MockOrigin) Close() {
	m.server.CloseClientConnections()
	m.server.Close()
}

// SetHandler sets a custom handler for a specific path.
func (m *MockOrigin) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetPage configures a simple response for a path.
func (m *MockOrigin) SetPage(path string, page MockPage) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if page.Delay > 0 {
			time.Sleep(page.Delay)
		}

		for key, value := range page.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(page.StatusCode)
		if page.Body != "" {
			w.Write([]byte(page.Body))
		}
	})
}

// SetHangingRequest makes path accept the request and never answer until the
// client goes away. A page that fetches it never reaches network idle.
func (m *MockOrigin) SetHangingRequest(path string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
}

// GetRequestCount returns the number of requests made to the origin.
func (m *MockOrigin) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// GetLastUserAgent returns the User-Agent of the most recent request.
func (m *MockOrigin) GetLastUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUserAgent
}

// defaultHandler serves the SPA shell for page paths and JSON for /api/.
func (m *MockOrigin) defaultHandler(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"title": "Hydrated from API"}`))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(SPAShell))
}

// SPAShell is an empty client-rendered page. Its script fetches /api/page and
// then fills #app, so only a real render contains "Hydrated from API".
const SPAShell = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8">
    <title>SPA</title>
  </head>
  <body>
    <div id="app"></div>
    <script>
      fetch('/api/page')
        .then(function (r) { return r.json(); })
        .then(function (data) {
          var h1 = document.createElement('h1');
          h1.textContent = data.title;
          document.getElementById('app').appendChild(h1);
          setTimeout(function () {
            document.getElementById('app').setAttribute('data-hydrated', 'true');
          }, 200);
        });
    </script>
  </body>
</html>`

// NewSPAPage creates a 200 OK HTML response.
func NewSPAPage(body string) MockPage {
	return MockPage{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "text/html; charset=utf-8",
		},
	}
}
