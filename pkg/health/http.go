package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxBody bounds how much of a response is read when looking for Contains
const maxBody = 64 << 10

// HTTPChecker GETs URL and reports healthy on a 2xx answer. Prometheus
// answers /-/ready with 503 while it is still loading, so a bare connect is
// not enough. When Contains is set the body must include it as well, e.g.
// "fsbench_" on the builtin exporter's /metrics page.
type HTTPChecker struct {
	URL      string
	Contains string
	Client   *http.Client
}

// NewHTTPChecker creates a checker for url with a 5s client timeout
func NewHTTPChecker(url string) *HTTPChecker {
	return &HTTPChecker{
		URL:    url,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Check issues one GET
func (h *HTTPChecker) Check(ctx context.Context) Result {
	r := begin()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return r.fail("bad request: %v", err)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return r.fail("GET %s: %v", h.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return r.fail("GET %s: reading body: %v", h.URL, err)
	}
	status := fmt.Sprintf("HTTP %d", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return r.fail("%s: %s", status, strings.TrimSpace(string(body)))
	}
	if h.Contains != "" && !strings.Contains(string(body), h.Contains) {
		return r.fail("%s but body lacks %q", status, h.Contains)
	}
	return r.ok("%s", status)
}

// Type returns CheckTypeHTTP
func (h *HTTPChecker) Type() CheckType { return CheckTypeHTTP }

// Expect requires the response body to contain s
func (h *HTTPChecker) Expect(s string) *HTTPChecker {
	h.Contains = s
	return h
}

// WithTimeout sets the client timeout
func (h *HTTPChecker) WithTimeout(timeout time.Duration) *HTTPChecker {
	h.Client.Timeout = timeout
	return h
}
