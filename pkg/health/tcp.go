package health

import (
	"context"
	"net"
	"time"
)

// TCPChecker reports healthy once something accepts connections on Address.
// A listen address without a host (":9100") is probed on the loopback
// interface.
type TCPChecker struct {
	Address string
	Timeout time.Duration
}

// NewTCPChecker creates a checker for a listen address
func NewTCPChecker(address string) *TCPChecker {
	return &TCPChecker{Address: dialAddress(address), Timeout: 5 * time.Second}
}

// Check dials the address once
func (t *TCPChecker) Check(ctx context.Context) Result {
	r := begin()

	dialer := net.Dialer{Timeout: t.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.Address)
	if err != nil {
		return r.fail("dial %s: %v", t.Address, err)
	}
	_ = conn.Close()
	return r.ok("%s accepting connections", t.Address)
}

// Type returns CheckTypeTCP
func (t *TCPChecker) Type() CheckType { return CheckTypeTCP }

// WithTimeout sets the dial timeout
func (t *TCPChecker) WithTimeout(timeout time.Duration) *TCPChecker {
	t.Timeout = timeout
	return t
}

func dialAddress(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

