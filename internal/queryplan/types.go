// Package queryplan holds the query and result types shared between the
// coordinator (which builds query plans and merges results) and
// searchservice (which carries them over the wire to shard nodes). It
// exists so that coordinator does not have to import searchservice's
// dependent, which would otherwise form an import cycle now that the
// coordinator routes through a searchservice-typed fanout.ShardedClient.
package queryplan

// QueryClause represents a single clause in a query plan.
type QueryClause struct {
	Type     string        `json:"type"`
	Field    string        `json:"field,omitempty"`
	Term     string        `json:"term,omitempty"`
	Prefix   string        `json:"prefix,omitempty"`
	Pattern  string        `json:"pattern,omitempty"`
	Operator string        `json:"operator,omitempty"`
	Clauses  []QueryClause `json:"clauses,omitempty"`
}

// QueryOptions specifies result formatting options.
type QueryOptions struct {
	TopK          int      `json:"top_k"`
	Offset        int      `json:"offset"`
	IncludeScores bool     `json:"include_scores"`
	IncludeStored []string `json:"include_stored,omitempty"`
}

// ShardHit represents a single search result from a shard.
type ShardHit struct {
	DocID      string            `json:"doc_id"`
	LocalDocID uint64            `json:"local_doc_id"`
	Score      float64           `json:"score"`
	Stored     map[string]string `json:"stored,omitempty"`
}

// ShardStats contains execution statistics from a shard.
type ShardStats struct {
	TotalHits       uint64 `json:"total_hits"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	TermsExpanded   int    `json:"terms_expanded"`
}

// ShardHealth represents the health status of a shard node.
type ShardHealth struct {
	Status     string `json:"status"` // "healthy", "unhealthy", "unknown"
	Generation uint64 `json:"generation"`
	Segments   int    `json:"segments"`
	DocCount   uint64 `json:"doc_count"`
}
