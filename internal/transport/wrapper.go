package transport

import (
	"context"
	"time"
)

// CallOptions bounds a single Send: a connect budget (covering retries)
// plus a deadline for the write+read once connected.
type CallOptions struct {
	Dial        DialOptions
	CallTimeout time.Duration
}

// DefaultCallOptions returns the §4.1 defaults: default dial options plus
// a 60s call deadline.
func DefaultCallOptions() CallOptions {
	return CallOptions{
		Dial:        DefaultDialOptions(),
		CallTimeout: 60 * time.Second,
	}
}

// Wrapper binds a (Req, Resp) pair to a fixed remote address. It is the
// concrete, statically-dispatched counterpart to the Caller interface
// used by internal/fanout: most callers want exactly one Wrapper per
// physical host, but searchservice's multiplexed server needs dynamic
// dispatch over several request kinds sharing one address, which is why
// the interface exists at all (see internal/fanout.Caller).
type Wrapper[Req any, Resp any] struct {
	addr string
	opts CallOptions
}

// NewWrapper returns a Wrapper bound to addr, one physical TCP endpoint.
func NewWrapper[Req any, Resp any](addr string, opts CallOptions) *Wrapper[Req, Resp] {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallOptions().CallTimeout
	}
	return &Wrapper[Req, Resp]{addr: addr, opts: opts}
}

// Addr returns the bound remote address.
func (w *Wrapper[Req, Resp]) Addr() string {
	return w.addr
}

// Send dials, issues one request, and reads the matching response. The
// underlying connection is never reused: each Send pays the cost of a
// fresh dial, which is the price of the one-shot model described in
// internal/transport's package doc.
func (w *Wrapper[Req, Resp]) Send(ctx context.Context, req Req) (Resp, error) {
	var zero Resp

	rc, err := Dial(ctx, w.addr, w.opts.Dial)
	if err != nil {
		return zero, err
	}

	return send[Req, Resp](rc, req, w.opts.CallTimeout)
}
