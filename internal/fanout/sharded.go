package fanout

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// ShardResult pairs a shard's identifier with the replica responses that
// succeeded for it.
type ShardResult[Resp any, Id ShardIdentifier] struct {
	ID        Id
	Responses []Resp
}

// ShardedClient is the outer fan-out of §4.5: it selects shards, then
// dispatches to each shard's ReplicatedClient concurrently, collecting
// (Id, []Resp) pairs in shard-selector order. A shard whose replicas all
// fail contributes an empty Responses slice rather than aborting the
// whole call — partial failure never surfaces as an error from Send.
type ShardedClient[Req any, Resp any, Id ShardIdentifier] struct {
	Shards   []Shard[Req, Resp, Id]
	Selector ShardSelector[Req, Resp, Id]
	Logger   *slog.Logger
}

// NewShardedClient builds a ShardedClient over shards, defaulting to
// fanning out to all of them.
func NewShardedClient[Req any, Resp any, Id ShardIdentifier](shards []Shard[Req, Resp, Id]) *ShardedClient[Req, Resp, Id] {
	return &ShardedClient[Req, Resp, Id]{
		Shards:   shards,
		Selector: AllShardsSelector[Req, Resp, Id]{},
	}
}

func (c *ShardedClient[Req, Resp, Id]) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Send dispatches req to every shard the selector picks, in parallel, and
// returns one ShardResult per selected shard in selector order.
func (c *ShardedClient[Req, Resp, Id]) Send(ctx context.Context, req Req) ([]ShardResult[Resp, Id], error) {
	selector := c.Selector
	if selector == nil {
		selector = AllShardsSelector[Req, Resp, Id]{}
	}
	chosen := selector.Select(c.Shards)

	results := make([]ShardResult[Resp, Id], len(chosen))

	var g errgroup.Group
	for i, shard := range chosen {
		i, shard := i, shard
		g.Go(func() error {
			responses, err := shard.Replicas.Send(ctx, req)
			if err != nil {
				c.logger().Warn("fanout: shard call failed", "shard", shard.ID, "error", err)
				responses = nil
			}
			results[i] = ShardResult[Resp, Id]{ID: shard.ID, Responses: responses}
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}
