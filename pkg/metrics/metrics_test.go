package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func TestHandler(t *testing.T) {
	counter := promauto.NewCounter(prometheus.CounterOpts{
		Name: "prerender_metrics_handler_test_total",
		Help: "Counter registered by the handler test",
	})
	counter.Add(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "prerender_metrics_handler_test_total 3") {
		t.Errorf("metrics output missing test counter:\n%s", body)
	}
}
