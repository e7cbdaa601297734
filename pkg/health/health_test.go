package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/fsbench/pkg/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyChecker struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakyChecker) Check(context.Context) Result {
	n := f.calls.Add(1)
	return Result{Healthy: n > f.failures, Message: "probe", CheckedAt: time.Now()}
}

func (f *flakyChecker) Type() CheckType { return CheckTypeExec }

func TestWaitReady(t *testing.T) {
	tests := []struct {
		name     string
		failures int32
		cfg      Config
		wantErr  bool
	}{
		{name: "immediately ready", failures: 0, cfg: Config{Interval: time.Millisecond, Timeout: time.Second}},
		{name: "ready after retries", failures: 3, cfg: Config{Interval: time.Millisecond, Timeout: time.Second}},
		{name: "needs two in a row", failures: 1, cfg: Config{Interval: time.Millisecond, Timeout: time.Second, SuccessThreshold: 2}},
		{name: "never ready", failures: 1 << 30, cfg: Config{Interval: 5 * time.Millisecond, Timeout: 30 * time.Millisecond}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &flakyChecker{failures: tt.failures}
			result, err := WaitReady(context.Background(), checker, tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, context.DeadlineExceeded))
				assert.False(t, result.Healthy)
				return
			}
			require.NoError(t, err)
			assert.True(t, result.Healthy)
		})
	}
}

func TestWaitReady_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WaitReady(ctx, &flakyChecker{failures: 1 << 30}, Config{Interval: time.Millisecond})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWaitReady_HTTPServerComesUp(t *testing.T) {
	var ready atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			ready.Store(true)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := WaitReady(context.Background(), NewHTTPChecker(server.URL), Config{Interval: time.Millisecond, Timeout: 5 * time.Second})
	assert.NoError(t, err)
}

func TestTCPChecker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	result := NewTCPChecker(addr).Check(context.Background())
	assert.True(t, result.Healthy, result.Message)
	assert.Equal(t, CheckTypeTCP, NewTCPChecker(addr).Type())

	require.NoError(t, ln.Close())
	result = NewTCPChecker(addr).WithTimeout(100 * time.Millisecond).Check(context.Background())
	assert.False(t, result.Healthy)
}

func TestExecChecker(t *testing.T) {
	runner := command.NewFake().
		On("fio --version", "fio-3.36\n", nil).
		On("mdtest", "", errors.New("executable file not found"))

	result := NewExecChecker(runner, []string{"fio", "--version"}).Check(context.Background())
	assert.True(t, result.Healthy)
	assert.Contains(t, result.Message, "fio-3.36")

	result = NewExecChecker(runner, []string{"mdtest", "--help"}).Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Contains(t, result.Message, "executable file not found")

	result = NewExecChecker(runner, nil).Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Equal(t, CheckTypeExec, NewExecChecker(runner, nil).Type())
}
