package fanout

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// ReplicatedClient fans one request out to a selection of replicas of the
// same shard concurrently. A replica that errors is logged and dropped:
// partial failure here never surfaces as an error from Send, matching the
// "online absorbs errors" half of this repository's error taxonomy (the
// offline MapReduce-flavored sibling, described in transport's error set,
// is the half that propagates instead).
type ReplicatedClient[Req any, Resp any] struct {
	Replicas []RemoteClient[Req, Resp]
	Selector ReplicaSelector[Req, Resp]
	Logger   *slog.Logger
}

// NewReplicatedClient builds a ReplicatedClient over replicas, defaulting
// to fanning out to all of them.
func NewReplicatedClient[Req any, Resp any](replicas []RemoteClient[Req, Resp]) *ReplicatedClient[Req, Resp] {
	return &ReplicatedClient[Req, Resp]{
		Replicas: replicas,
		Selector: AllReplicaSelector[Req, Resp]{},
	}
}

func (c *ReplicatedClient[Req, Resp]) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Send dispatches req to every replica the selector picks, in parallel,
// and returns the responses that succeeded in the order the selector
// produced the replica list. A selector that yields no replicas returns
// an empty, non-nil slice and a nil error.
func (c *ReplicatedClient[Req, Resp]) Send(ctx context.Context, req Req) ([]Resp, error) {
	selector := c.Selector
	if selector == nil {
		selector = AllReplicaSelector[Req, Resp]{}
	}
	chosen := selector.Select(c.Replicas)

	results := make([]Resp, len(chosen))
	ok := make([]bool, len(chosen))

	var g errgroup.Group
	for i, replica := range chosen {
		i, replica := i, replica
		g.Go(func() error {
			resp, err := replica.Send(ctx, req)
			if err != nil {
				c.logger().Warn("fanout: replica call failed", "addr", replica.Addr, "error", err)
				return nil
			}
			results[i] = resp
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Resp, 0, len(results))
	for i, succeeded := range ok {
		if succeeded {
			out = append(out, results[i])
		}
	}
	return out, nil
}
