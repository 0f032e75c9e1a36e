package cluster

import (
	"log/slog"

	"GoSearch/internal/fanout"
	"GoSearch/internal/searchservice"
	"GoSearch/internal/transport"
)

// View is a snapshot of members grouped by shard ID, built once per
// gossip refresh and dropped when a new view arrives. It holds no
// connections of its own: the ShardedClient it builds holds
// fanout.RemoteClient values, which are cheap and connectionless until a
// call is made.
type View struct {
	shards map[string][]string // shard ID -> searcher addresses
	logger *slog.Logger
}

// NewView groups members into a View. Members that are not searchers, or
// that are missing a shard ID or host, are skipped.
func NewView(members []Member, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}
	shards := make(map[string][]string)
	for _, m := range members {
		if m.Service.Kind != ServiceSearcher {
			continue
		}
		if m.Service.SearcherShard == "" || m.Service.SearcherHost == "" {
			logger.Warn("cluster: skipping searcher member with missing shard or host", "member", m.ID)
			continue
		}
		shards[m.Service.SearcherShard] = append(shards[m.Service.SearcherShard], m.Service.SearcherHost)
	}
	return &View{shards: shards, logger: logger}
}

// Shards returns the shard ID -> searcher address-list grouping this view
// was built from.
func (v *View) Shards() map[string][]string {
	out := make(map[string][]string, len(v.shards))
	for id, addrs := range v.shards {
		cp := make([]string, len(addrs))
		copy(cp, addrs)
		out[id] = cp
	}
	return out
}

// SearchShardedClient builds a fresh ShardedClient wired for the Search
// RPC, one fanout.Shard per shard ID in this view, one replica per
// advertised searcher address.
func (v *View) SearchShardedClient(callOpts transport.CallOptions) *fanout.ShardedClient[searchservice.SearchRequest, searchservice.SearchReply, string] {
	return buildShardedClient[searchservice.SearchRequest, searchservice.SearchReply](v, callOpts, func(addr string, opts transport.CallOptions) fanout.Caller[searchservice.SearchRequest, searchservice.SearchReply] {
		return searchservice.NewSearchCaller(addr, opts)
	})
}

// RetrieveWebsitesShardedClient builds a fresh ShardedClient wired for the
// RetrieveWebsites RPC.
func (v *View) RetrieveWebsitesShardedClient(callOpts transport.CallOptions) *fanout.ShardedClient[searchservice.RetrieveWebsitesRequest, searchservice.RetrieveWebsitesReply, string] {
	return buildShardedClient[searchservice.RetrieveWebsitesRequest, searchservice.RetrieveWebsitesReply](v, callOpts, func(addr string, opts transport.CallOptions) fanout.Caller[searchservice.RetrieveWebsitesRequest, searchservice.RetrieveWebsitesReply] {
		return searchservice.NewRetrieveWebsitesCaller(addr, opts)
	})
}

// GetWebpageShardedClient builds a fresh ShardedClient wired for the
// GetWebpage RPC.
func (v *View) GetWebpageShardedClient(callOpts transport.CallOptions) *fanout.ShardedClient[searchservice.GetWebpageRequest, searchservice.GetWebpageReply, string] {
	return buildShardedClient[searchservice.GetWebpageRequest, searchservice.GetWebpageReply](v, callOpts, func(addr string, opts transport.CallOptions) fanout.Caller[searchservice.GetWebpageRequest, searchservice.GetWebpageReply] {
		return searchservice.NewGetWebpageCaller(addr, opts)
	})
}

func buildShardedClient[Req any, Resp any](
	v *View,
	callOpts transport.CallOptions,
	newCaller func(addr string, opts transport.CallOptions) fanout.Caller[Req, Resp],
) *fanout.ShardedClient[Req, Resp, string] {
	shards := make([]fanout.Shard[Req, Resp, string], 0, len(v.shards))
	for id, addrs := range v.shards {
		replicas := make([]fanout.RemoteClient[Req, Resp], 0, len(addrs))
		for _, addr := range addrs {
			replicas = append(replicas, fanout.RemoteClient[Req, Resp]{
				Addr:   addr,
				Caller: newCaller(addr, callOpts),
			})
		}
		replicated := fanout.NewReplicatedClient(replicas)
		replicated.Logger = v.logger
		shards = append(shards, fanout.Shard[Req, Resp, string]{ID: id, Replicas: replicated})
	}
	sc := fanout.NewShardedClient(shards)
	sc.Logger = v.logger
	return sc
}
