package coordinator

import "GoSearch/internal/queryplan"

// These are aliased from internal/queryplan, which also backs
// searchservice's wire types, so a coordinator.QueryClause and a
// searchservice.SearchRequest's Query field are the identical type with
// no conversion at the fan-out boundary.
type (
	QueryClause  = queryplan.QueryClause
	QueryOptions = queryplan.QueryOptions
	ShardHit     = queryplan.ShardHit
	ShardStats   = queryplan.ShardStats
	ShardHealth  = queryplan.ShardHealth
)

// QueryPlan is the canonical query representation sent to shard nodes.
// The Coordinator constructs this from the client request and fans it out.
// NO automaton construction occurs in the QueryPlan — that is shard-local.
type QueryPlan struct {
	PlanID     string       `json:"plan_id"`
	Generation uint64       `json:"generation,omitempty"`
	TimeoutMs  int64        `json:"timeout_ms"`
	Index      string       `json:"index"`
	Query      QueryClause  `json:"query"`
	Options    QueryOptions `json:"options"`
}

// ShardResponse is the response from a single shard node.
type ShardResponse struct {
	PlanID     string     `json:"plan_id"`
	ShardID    string     `json:"shard_id"`
	Generation uint64     `json:"generation"`
	Status     string     `json:"status"` // "success" or "error"
	Error      string     `json:"error,omitempty"`
	Stats      ShardStats `json:"stats"`
	Hits       []ShardHit `json:"hits"`
}
