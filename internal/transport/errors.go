// Package transport implements the framed request/response RPC substrate
// that binds shard-local searchers into the distributed fan-out layer.
//
// A call is one-shot: a client dials, sends exactly one request, reads
// exactly one response, and closes the connection. There is no connection
// reuse across calls (see ResilientConnection).
package transport

import "errors"

// Error taxonomy for the RPC substrate. Online callers (internal/fanout)
// absorb all of these and degrade gracefully; offline/batch callers are
// expected to propagate them.
var (
	// ErrUnreachable is returned when connect retries are exhausted within
	// the connect budget.
	ErrUnreachable = errors.New("transport: unreachable after exhausting connect retries")

	// ErrCallTimeout is returned when a call's per-call deadline expires.
	ErrCallTimeout = errors.New("transport: call deadline exceeded")

	// ErrDeserialize is returned when a response frame cannot be decoded.
	ErrDeserialize = errors.New("transport: malformed response")

	// ErrEmptyResponse is returned when the peer answered with the framing
	// layer's "empty" tag instead of content. This is a business-level
	// failure at the handler (e.g. the query failed locally), not a
	// transport failure, but it is surfaced the same way a transport error
	// is: as a non-nil error from Send.
	ErrEmptyResponse = errors.New("transport: peer returned an empty response")

	// ErrNoAvailableWorker mirrors the MapReduce-flavored sibling of this
	// substrate (see original_source's mapreduce/mod.rs): batch jobs that
	// need a worker and can't find a healthy one surface this rather than
	// silently degrading, unlike the online fan-out path.
	ErrNoAvailableWorker = errors.New("transport: no available worker")

	// ErrNoResponse mirrors the same MapReduce error taxonomy: a worker
	// accepted a job but never answered.
	ErrNoResponse = errors.New("transport: did not receive a response")
)
