// Package searchservice is the concrete RPC schema a shard process
// answers: Search, RetrieveWebsites, and GetWebpage, multiplexed over one
// transport.Server listener per shard (§6).
package searchservice

import "GoSearch/internal/queryplan"

// SearchRequest asks one shard to evaluate a query plan against its local
// index. It embeds the existing query-plan types rather than inventing a
// second representation of a query.
type SearchRequest struct {
	Index   string
	PlanID  string
	Query   queryplan.QueryClause
	Options queryplan.QueryOptions
}

// SearchReply is one shard's answer to a SearchRequest.
type SearchReply struct {
	ShardID string
	Stats   queryplan.ShardStats
	Hits    []queryplan.ShardHit
}

// RetrieveWebsitesRequest asks a shard to resolve a batch of document IDs
// into their stored fields, used to hydrate search results after scoring.
type RetrieveWebsitesRequest struct {
	Index  string
	DocIDs []string
}

// Website is one resolved document's stored field set.
type Website struct {
	DocID  string
	Stored map[string]string
}

// RetrieveWebsitesReply carries the websites a shard was able to resolve.
// Missing IDs are simply absent from Websites; this call never partially
// fails.
type RetrieveWebsitesReply struct {
	Websites []Website
}

// GetWebpageRequest asks a shard to resolve exactly one document ID.
type GetWebpageRequest struct {
	Index string
	DocID string
}

// GetWebpageReply answers a GetWebpageRequest. Found is false when the
// shard has no such document, which is not itself an error.
type GetWebpageReply struct {
	Found   bool
	Website Website
}
