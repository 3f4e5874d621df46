package restpipe

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// ConnectivityChecker probes whether the backend is reachable before a
// transport attempt. Implementations must respect the context.
type ConnectivityChecker interface {
	// Wait blocks until connectivity is confirmed, the bounded probe
	// window elapses, or the context is done.
	Wait(ctx context.Context) error
}

// DialChecker probes connectivity by dialing the backend host. A failed
// probe is retried at PollInterval until MaxWait elapses; exhausting
// the window yields a NoConnectivityError, which is retryable and
// distinct from HTTP-level failures.
type DialChecker struct {
	Host         string // host:port
	PollInterval time.Duration
	MaxWait      time.Duration
	DialTimeout  time.Duration
}

// NewDialChecker builds a DialChecker for the given base URL with
// default probe bounds.
func NewDialChecker(baseURL string) *DialChecker {
	host := "localhost:443"
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = u.Host
		if u.Port() == "" {
			switch u.Scheme {
			case "http":
				host += ":80"
			default:
				host += ":443"
			}
		}
	}
	return &DialChecker{
		Host:         host,
		PollInterval: 500 * time.Millisecond,
		MaxWait:      5 * time.Second,
		DialTimeout:  2 * time.Second,
	}
}

func (d *DialChecker) Wait(ctx context.Context) error {
	deadline := time.Now().Add(d.MaxWait)
	dialer := &net.Dialer{Timeout: d.DialTimeout}

	for {
		conn, err := dialer.DialContext(ctx, "tcp", d.Host)
		if err == nil {
			conn.Close()
			return nil
		}
		if ctx.Err() != nil {
			return ctxError(ctx, "cancelled during connectivity probe")
		}
		if time.Now().After(deadline) {
			return &NoConnectivityError{PipelineError: PipelineError{
				Message: fmt.Sprintf("no connectivity to %s within %s", d.Host, d.MaxWait),
				Cause:   err,
			}}
		}
		select {
		case <-ctx.Done():
			return ctxError(ctx, "cancelled during connectivity probe")
		case <-time.After(d.PollInterval):
		}
	}
}

// alwaysOnline is used in tests and when probing is not wanted.
type alwaysOnline struct{}

func (alwaysOnline) Wait(context.Context) error { return nil }

// NoProbe returns a checker that reports connectivity unconditionally.
func NoProbe() ConnectivityChecker { return alwaysOnline{} }
