package metrics

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthStatus is the body of the builtin exporter's /health page
type HealthStatus struct {
	Status     string            `json:"status"`
	Devices    []string          `json:"devices,omitempty"`
	Components map[string]string `json:"components,omitempty"`
	Uptime     string            `json:"uptime"`
}

// HealthChecker tracks the parts of the builtin exporter: the HTTP
// listener and the disk collector. Any failing part makes the page answer
// 503 so a scraper notices that disk series are missing.
type HealthChecker struct {
	mu      sync.RWMutex
	failing map[string]string
	seen    map[string]bool
	devices []string
	started time.Time
}

// NewHealthChecker creates a HealthChecker with no parts recorded
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		failing: make(map[string]string),
		seen:    make(map[string]bool),
		started: time.Now(),
	}
}

// Update records the latest outcome for a part; nil means healthy
func (h *HealthChecker) Update(part string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seen[part] = true
	if err != nil {
		h.failing[part] = err.Error()
		return
	}
	delete(h.failing, part)
}

// SetDevices records which devices the exporter is watching
func (h *HealthChecker) SetDevices(devices ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.devices = append([]string(nil), devices...)
	sort.Strings(h.devices)
}

// Status summarises every recorded part
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	st := HealthStatus{
		Status:     "healthy",
		Devices:    append([]string(nil), h.devices...),
		Components: make(map[string]string, len(h.seen)),
		Uptime:     time.Since(h.started).Round(time.Second).String(),
	}
	for part := range h.seen {
		if msg, bad := h.failing[part]; bad {
			st.Status = "unhealthy"
			st.Components[part] = "unhealthy: " + msg
			continue
		}
		st.Components[part] = "healthy"
	}
	return st
}

// Handler serves Status as JSON, with 503 when any part is failing
func (h *HealthChecker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := h.Status()
		code := http.StatusOK
		if st.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(st)
	}
}
