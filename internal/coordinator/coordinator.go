package coordinator

import (
	"container/heap"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"GoSearch/internal/cluster"
	"GoSearch/internal/searchservice"
	"GoSearch/internal/transport"
)

var (
	ErrNoShards        = errors.New("coordinator: no shards configured")
	ErrAllShardsFailed = errors.New("coordinator: all shards failed")
)

// Coordinator is a stateless routing and aggregation layer. It fans out
// query plans to searcher shards via a cluster.View-built
// fanout.ShardedClient and merges the per-shard top-K results into one
// global top-K.
//
// Critical constraint: the Coordinator performs NO query execution. All
// automaton construction, FST traversal, postings retrieval, and scoring
// occur exclusively on shard nodes, reached through internal/searchservice.
type Coordinator struct {
	config   Config
	view     *cluster.View
	callOpts transport.CallOptions
	logger   *slog.Logger

	healthMu sync.RWMutex
	health   map[string]*ShardHealth // shardID → last known health
}

// New creates a Coordinator that routes through view using config. The
// transport-level call options are derived from config rather than taken
// as a separate argument, so MaxRetries and ConnectTimeout actually drive
// dial behavior instead of sitting unused next to it.
func New(config Config, view *cluster.View, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}

	dial := transport.DefaultDialOptions()
	if config.ConnectTimeout > 0 {
		dial.ConnectBudget = config.ConnectTimeout
	}
	if config.MaxRetries > 0 {
		dial.MaxAttempts = config.MaxRetries + 1
	}
	dial.Logger = logger

	callOpts := transport.CallOptions{Dial: dial, CallTimeout: config.PerShardTimeout}

	return &Coordinator{
		config:   config,
		view:     view,
		callOpts: callOpts,
		logger:   logger,
		health:   make(map[string]*ShardHealth),
	}
}

// QueryResult is the merged result returned to the client.
type QueryResult struct {
	Status           string       `json:"status"` // "success", "partial", "error"
	Hits             []ShardHit   `json:"hits"`
	TotalHits        uint64       `json:"total_hits"`
	TookMs           int64        `json:"took_ms"`
	SuccessfulShards []string     `json:"successful_shards"`
	Errors           []ShardError `json:"errors,omitempty"`
}

// ShardError describes an error from a specific shard.
type ShardError struct {
	ShardID string `json:"shard_id"`
	Error   string `json:"error"`
}

// Search executes a query across all shards and merges results. This
// implements the 7-step coordinator query flow from the spec, steps 4-6
// now delegated to internal/fanout's ShardedClient instead of a
// hand-rolled WaitGroup loop.
func (c *Coordinator) Search(ctx context.Context, index string, query QueryClause, opts QueryOptions) (*QueryResult, error) {
	start := time.Now()

	shards := c.view.Shards()
	if len(shards) == 0 {
		return nil, ErrNoShards
	}

	// Step 1: RECEIVE & PARSE — already done by caller.
	// Step 2: REWRITE — build canonical QueryPlan.
	plan := c.buildQueryPlan(index, query, opts)

	// Step 3: SNAPSHOT SELECTION — each shard uses its own latest generation
	// (MVP: no cross-shard generation coordination).

	queryCtx, cancel := context.WithTimeout(ctx, c.config.QueryTimeout)
	defer cancel()

	// Step 4: FAN-OUT — one fresh ShardedClient per call, per the
	// cluster.View lifecycle note: built from the current view snapshot
	// and dropped once this call finishes.
	sc := c.view.SearchShardedClient(c.callOpts)
	results, _ := sc.Send(queryCtx, searchservice.SearchRequest{
		Index:   plan.Index,
		PlanID:  plan.PlanID,
		Query:   plan.Query,
		Options: plan.Options,
	})
	// ShardedClient.Send never itself returns an error; partial failure is
	// reported per-shard via the empty-Responses case below.

	// Step 5: COLLECT — gather responses.
	var successful []ShardResponse
	var shardErrors []ShardError
	var successfulShardIDs []string

	for _, shardResult := range results {
		if len(shardResult.Responses) == 0 {
			shardErrors = append(shardErrors, ShardError{
				ShardID: shardResult.ID,
				Error:   "no replica answered",
			})
			continue
		}
		// Multiple replicas may have answered; the fan-out layer already
		// dropped the failing ones, so take the first successful reply.
		reply := shardResult.Responses[0]
		successful = append(successful, ShardResponse{
			PlanID:  plan.PlanID,
			ShardID: reply.ShardID,
			Status:  "success",
			Stats:   reply.Stats,
			Hits:    reply.Hits,
		})
		successfulShardIDs = append(successfulShardIDs, shardResult.ID)
	}

	if len(successful) == 0 {
		return &QueryResult{
			Status: "error",
			Errors: shardErrors,
			TookMs: time.Since(start).Milliseconds(),
		}, ErrAllShardsFailed
	}

	// Step 6: MERGE — merge shard top-K into global top-K.
	merged := mergeTopK(successful, opts.TopK)

	var totalHits uint64
	for _, resp := range successful {
		totalHits += resp.Stats.TotalHits
	}

	// Step 7: RESPOND.
	status := "success"
	if len(shardErrors) > 0 {
		status = "partial"
	}

	return &QueryResult{
		Status:           status,
		Hits:             merged,
		TotalHits:        totalHits,
		TookMs:           time.Since(start).Milliseconds(),
		SuccessfulShards: successfulShardIDs,
		Errors:           shardErrors,
	}, nil
}

// buildQueryPlan creates a canonical QueryPlan from the query and options.
func (c *Coordinator) buildQueryPlan(index string, query QueryClause, opts QueryOptions) *QueryPlan {
	return &QueryPlan{
		PlanID:    generatePlanID(),
		TimeoutMs: c.config.PerShardTimeout.Milliseconds(),
		Index:     index,
		Query:     query,
		Options:   opts,
	}
}

// CheckHealth dials every searcher address in the current view and
// records reachability. This is a plain connectivity probe, deliberately
// independent of searchservice's request/reply semantics: a shard that
// answers "no such index" is still healthy, so health is decided at the
// transport layer rather than by interpreting an RPC reply.
func (c *Coordinator) CheckHealth(ctx context.Context) map[string]*ShardHealth {
	shards := c.view.Shards()

	var mu sync.Mutex
	var wg sync.WaitGroup
	results := make(map[string]*ShardHealth, len(shards))

	for shardID, addrs := range shards {
		wg.Add(1)
		go func(id string, addrs []string) {
			defer wg.Done()
			h := &ShardHealth{Status: "unhealthy"}
			for _, addr := range addrs {
				rc, err := transport.Dial(ctx, addr, c.callOpts.Dial)
				if err == nil {
					rc.Close()
					h.Status = "healthy"
					break
				}
				c.logger.Warn("shard health probe failed", "shard", id, "addr", addr, "error", err)
			}
			mu.Lock()
			results[id] = h
			mu.Unlock()
		}(shardID, addrs)
	}

	wg.Wait()

	c.healthMu.Lock()
	for id, h := range results {
		c.health[id] = h
	}
	c.healthMu.Unlock()

	return results
}

// HealthyShardCount returns the number of shards last known to be healthy.
func (c *Coordinator) HealthyShardCount() int {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()

	count := 0
	for _, h := range c.health {
		if h.Status == "healthy" {
			count++
		}
	}
	return count
}

// mergeTopK merges shard-local top-K results into a global top-K using a
// min-heap of size K.
func mergeTopK(responses []ShardResponse, k int) []ShardHit {
	if k <= 0 {
		k = 10 // Default.
	}

	h := &hitHeap{}
	heap.Init(h)

	for _, resp := range responses {
		for _, hit := range resp.Hits {
			if h.Len() < k {
				heap.Push(h, hit)
			} else if hit.Score > (*h)[0].Score {
				(*h)[0] = hit
				heap.Fix(h, 0)
			}
		}
	}

	result := make([]ShardHit, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(ShardHit)
	}
	return result
}

// hitHeap is a min-heap of ShardHit ordered by score.
type hitHeap []ShardHit

func (h hitHeap) Len() int          { return len(h) }
func (h hitHeap) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x any)        { *h = append(*h, x.(ShardHit)) }
func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func generatePlanID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("plan-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
