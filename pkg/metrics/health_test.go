package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheckerStatus(t *testing.T) {
	h := NewHealthChecker()
	assert.Equal(t, "healthy", h.Status().Status)

	h.SetDevices("sdc", "sdb")
	h.Update("listener", nil)
	h.Update("disk_collector", errors.New("open /proc/diskstats: permission denied"))

	st := h.Status()
	assert.Equal(t, "unhealthy", st.Status)
	assert.Equal(t, []string{"sdb", "sdc"}, st.Devices)
	assert.Equal(t, "healthy", st.Components["listener"])
	assert.Contains(t, st.Components["disk_collector"], "permission denied")

	h.Update("disk_collector", nil)
	assert.Equal(t, "healthy", h.Status().Status)
}

func TestHealthCheckerHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "healthy", wantCode: http.StatusOK},
		{name: "collector failing", err: errors.New("no counters"), wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker()
			h.Update("disk_collector", tt.err)

			rec := httptest.NewRecorder()
			h.Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body HealthStatus
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.NotEmpty(t, body.Uptime)
			assert.Len(t, body.Components, 1)
		})
	}
}
