package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, status int, body string, delay time.Duration) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestHTTPChecker(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		contains string
		healthy  bool
		message  string
	}{
		{name: "prometheus ready", status: http.StatusOK, body: "Prometheus Server is Ready.\n", healthy: true, message: "HTTP 200"},
		{name: "prometheus loading", status: http.StatusServiceUnavailable, body: "Service Unavailable", message: "Service Unavailable"},
		{name: "redirect is not ready", status: http.StatusFound, message: "HTTP 302"},
		{name: "metrics page", status: http.StatusOK, body: "fsbench_runs_in_progress 0\n", contains: "fsbench_", healthy: true},
		{name: "foreign metrics page", status: http.StatusOK, body: "go_goroutines 7\n", contains: "fsbench_", message: "lacks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewHTTPChecker(serve(t, tt.status, tt.body, 0)).Expect(tt.contains)
			result := checker.Check(context.Background())

			assert.Equal(t, tt.healthy, result.Healthy, result.Message)
			assert.Contains(t, result.Message, tt.message)
			assert.Positive(t, result.Duration)
		})
	}
}

func TestHTTPCheckerTimeout(t *testing.T) {
	url := serve(t, http.StatusOK, "", 200*time.Millisecond)

	result := NewHTTPChecker(url).WithTimeout(50 * time.Millisecond).Check(context.Background())
	assert.False(t, result.Healthy)
}

func TestHTTPCheckerCancelled(t *testing.T) {
	url := serve(t, http.StatusOK, "", 200*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewHTTPChecker(url).Check(ctx)
	assert.False(t, result.Healthy)
	assert.Equal(t, CheckTypeHTTP, NewHTTPChecker(url).Type())
}

func TestDialAddress(t *testing.T) {
	assert.Equal(t, "127.0.0.1:9100", dialAddress(":9100"))
	assert.Equal(t, "127.0.0.1:9100", dialAddress("0.0.0.0:9100"))
	assert.Equal(t, "127.0.0.1:9100", dialAddress("[::]:9100"))
	assert.Equal(t, "10.0.0.5:9100", dialAddress("10.0.0.5:9100"))
	assert.Equal(t, "bogus", dialAddress("bogus"))
}
