package transport

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DialOptions configures connection establishment (§4.1).
type DialOptions struct {
	// BaseDelay is the first backoff interval. Default 30ms.
	BaseDelay time.Duration
	// MaxDelay caps the backoff interval. Default 200ms.
	MaxDelay time.Duration
	// MaxAttempts is the maximum number of connect attempts. Default 5.
	MaxAttempts int
	// ConnectBudget is the overall wall-clock budget for all attempts.
	// Default 30s.
	ConnectBudget time.Duration
	// Logger receives one warning line per failed attempt. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// DefaultDialOptions returns the §4.1 defaults: base 30ms, cap 200ms, at
// most 5 attempts, 30s connect budget.
func DefaultDialOptions() DialOptions {
	return DialOptions{
		BaseDelay:     30 * time.Millisecond,
		MaxDelay:      200 * time.Millisecond,
		MaxAttempts:   5,
		ConnectBudget: 30 * time.Second,
	}
}

// ResilientConnection is a one-shot, per-call connection: it is
// established with retrying backoff, used for exactly one Send, and then
// discarded. There is no reuse across calls (§4.1).
type ResilientConnection struct {
	conn net.Conn
	br   *bufio.Reader
}

// Dial establishes a TCP connection to addr, retrying with truncated
// exponential backoff per opts. Exhausting the connect budget or attempt
// count fails with ErrUnreachable.
func Dial(ctx context.Context, addr string, opts DialOptions) (*ResilientConnection, error) {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultDialOptions().BaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultDialOptions().MaxDelay
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultDialOptions().MaxAttempts
	}
	if opts.ConnectBudget <= 0 {
		opts.ConnectBudget = DefaultDialOptions().ConnectBudget
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = opts.BaseDelay
	eb.MaxInterval = opts.MaxDelay
	eb.MaxElapsedTime = opts.ConnectBudget

	limited := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(opts.MaxAttempts-1)), ctx)

	var dialer net.Dialer
	var conn net.Conn
	var lastErr error

	attempt := 0
	op := func() error {
		attempt++
		c, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			logger.Warn("transport: connect attempt failed", "addr", addr, "attempt", attempt, "error", err)
			return err
		}
		conn = c
		return nil
	}

	if err := backoff.Retry(op, limited); err != nil {
		return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrUnreachable, addr, attempt, lastErr)
	}

	return &ResilientConnection{conn: conn, br: bufio.NewReader(conn)}, nil
}

// Close closes the underlying socket. Safe to call more than once.
func (rc *ResilientConnection) Close() error {
	return rc.conn.Close()
}

// send writes req and reads a Response[Resp] within timeout. The
// connection is always discarded after one call, win or lose.
func send[Req any, Resp any](rc *ResilientConnection, req Req, timeout time.Duration) (Resp, error) {
	var zero Resp

	if err := rc.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		rc.Close()
		return zero, fmt.Errorf("transport: set deadline: %w", err)
	}

	if err := writeFrame(rc.conn, req); err != nil {
		rc.Close()
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return zero, fmt.Errorf("%w: %v", ErrCallTimeout, err)
		}
		return zero, err
	}

	var resp Response[Resp]
	if err := readFrame(rc.br, &resp); err != nil {
		rc.Close()
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return zero, fmt.Errorf("%w: %v", ErrCallTimeout, err)
		}
		return zero, err
	}

	rc.Close()

	if !resp.Ok {
		return zero, ErrEmptyResponse
	}
	return resp.Value, nil
}
