package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// timestampFormat is ISO-8601 in UTC with millisecond precision.
const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Health reports liveness. It never touches the cache or the renderer.
type Health struct {
	now func() time.Time
}

// NewHealth creates a health handler using the wall clock.
func NewHealth() *Health {
	return &Health{now: time.Now}
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthStatus{
		Status:    "ok",
		Timestamp: h.now().UTC().Format(timestampFormat),
	})
}
