// Package fanout implements replica and shard selection plus the
// concurrent dispatch that turns one logical query into many physical
// RPCs and folds the answers back into one ordered result set (§4.2–§4.5).
package fanout

import (
	"context"

	"GoSearch/internal/transport"
)

// Caller decouples the generic selection/dispatch logic in this package
// from the concrete physical connection underneath. transport.Wrapper is
// the default, statically-dispatched implementation (one Caller per
// physical host); a multiplexed server answering several request kinds
// over one shared address needs its own adapter implementing this
// interface with dynamic dispatch, which is the case internal/searchservice
// handles.
type Caller[Req any, Resp any] interface {
	Send(ctx context.Context, req Req) (Resp, error)
}

// RemoteClient is the leaf client: one address plus the Caller that
// reaches it. It is value-typed and cheaply copyable because it holds no
// live socket — every Send opens and discards its own connection.
type RemoteClient[Req any, Resp any] struct {
	Addr   string
	Caller Caller[Req, Resp]
}

// NewRemoteClient wraps a transport.Wrapper as a RemoteClient.
func NewRemoteClient[Req any, Resp any](addr string, w *transport.Wrapper[Req, Resp]) RemoteClient[Req, Resp] {
	return RemoteClient[Req, Resp]{Addr: addr, Caller: w}
}

// Send issues req against this one replica.
func (c RemoteClient[Req, Resp]) Send(ctx context.Context, req Req) (Resp, error) {
	return c.Caller.Send(ctx, req)
}
