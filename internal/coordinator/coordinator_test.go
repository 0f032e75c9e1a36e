package coordinator

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"GoSearch/internal/cluster"
	"GoSearch/internal/queryplan"
	"GoSearch/internal/searchservice"
	"GoSearch/internal/transport"
)

// fakeBackend answers every Search with a canned reply, letting these
// tests exercise the Coordinator's fan-out and merge logic against real
// TCP servers instead of an in-process mock.
type fakeBackend struct {
	reply searchservice.SearchReply
	ok    bool
}

func (f *fakeBackend) Search(ctx context.Context, req searchservice.SearchRequest) (searchservice.SearchReply, bool) {
	return f.reply, f.ok
}

func (f *fakeBackend) RetrieveWebsites(ctx context.Context, req searchservice.RetrieveWebsitesRequest) (searchservice.RetrieveWebsitesReply, bool) {
	return searchservice.RetrieveWebsitesReply{}, false
}

func (f *fakeBackend) GetWebpage(ctx context.Context, req searchservice.GetWebpageRequest) (searchservice.GetWebpageReply, bool) {
	return searchservice.GetWebpageReply{}, false
}

// startShard starts a real searchservice server backed by backend and
// returns its address. The listener is closed automatically at test end.
func startShard(t *testing.T, backend searchservice.Backend) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srv := searchservice.NewServer(backend, transport.DefaultServerOptions())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		ln.Close()
	})
	go srv.Serve(ctx, ln)

	return ln.Addr().String()
}

func newTestCoordinator(members []cluster.Member) *Coordinator {
	cfg := DefaultConfig()
	cfg.PerShardTimeout = 2 * time.Second
	cfg.ConnectTimeout = 2 * time.Second
	view := cluster.NewView(members, nil)
	return New(cfg, view, nil)
}

func searcherMember(id, shard, addr string) cluster.Member {
	return cluster.Member{
		ID: id,
		Service: cluster.Service{
			Kind:          cluster.ServiceSearcher,
			SearcherHost:  addr,
			SearcherShard: shard,
		},
	}
}

func TestSearch_NoShards(t *testing.T) {
	c := newTestCoordinator(nil)
	_, err := c.Search(context.Background(), "pages", QueryClause{Type: "term"}, QueryOptions{TopK: 10})
	if !errors.Is(err, ErrNoShards) {
		t.Errorf("expected ErrNoShards, got: %v", err)
	}
}

func TestSearch_SingleShard_NoResults(t *testing.T) {
	addr := startShard(t, &fakeBackend{ok: true, reply: searchservice.SearchReply{ShardID: "shard_0"}})
	c := newTestCoordinator([]cluster.Member{searcherMember("m0", "shard_0", addr)})

	result, err := c.Search(context.Background(), "pages", QueryClause{Type: "term", Field: "title", Term: "hello"}, QueryOptions{TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != "success" {
		t.Errorf("status = %s, want success", result.Status)
	}
	if len(result.Hits) != 0 {
		t.Errorf("hits = %d, want 0", len(result.Hits))
	}
	if len(result.SuccessfulShards) != 1 {
		t.Errorf("successful shards = %d, want 1", len(result.SuccessfulShards))
	}
}

func TestSearch_SingleShard_WithResults(t *testing.T) {
	addr := startShard(t, &fakeBackend{
		ok: true,
		reply: searchservice.SearchReply{
			ShardID: "shard_0",
			Stats:   queryplan.ShardStats{TotalHits: 3},
			Hits: []queryplan.ShardHit{
				{DocID: "doc1", Score: 2.5},
				{DocID: "doc2", Score: 1.8},
				{DocID: "doc3", Score: 1.2},
			},
		},
	})
	c := newTestCoordinator([]cluster.Member{searcherMember("m0", "shard_0", addr)})

	result, err := c.Search(context.Background(), "pages", QueryClause{Type: "term"}, QueryOptions{TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalHits != 3 {
		t.Errorf("total hits = %d, want 3", result.TotalHits)
	}
	if len(result.Hits) != 3 {
		t.Errorf("hits = %d, want 3", len(result.Hits))
	}
	if result.Hits[0].Score < result.Hits[1].Score {
		t.Error("hits should be sorted descending by score")
	}
}

func TestSearch_MultiShard_MergeTopK(t *testing.T) {
	addr0 := startShard(t, &fakeBackend{
		ok: true,
		reply: searchservice.SearchReply{
			ShardID: "shard_0",
			Stats:   queryplan.ShardStats{TotalHits: 100},
			Hits: []queryplan.ShardHit{
				{DocID: "s0_doc1", Score: 5.0},
				{DocID: "s0_doc2", Score: 3.0},
				{DocID: "s0_doc3", Score: 1.0},
			},
		},
	})
	addr1 := startShard(t, &fakeBackend{
		ok: true,
		reply: searchservice.SearchReply{
			ShardID: "shard_1",
			Stats:   queryplan.ShardStats{TotalHits: 200},
			Hits: []queryplan.ShardHit{
				{DocID: "s1_doc1", Score: 4.5},
				{DocID: "s1_doc2", Score: 2.5},
				{DocID: "s1_doc3", Score: 0.5},
			},
		},
	})
	c := newTestCoordinator([]cluster.Member{
		searcherMember("m0", "shard_0", addr0),
		searcherMember("m1", "shard_1", addr1),
	})

	result, err := c.Search(context.Background(), "pages", QueryClause{Type: "term"}, QueryOptions{TopK: 3})
	if err != nil {
		t.Fatal(err)
	}

	if result.TotalHits != 300 {
		t.Errorf("total hits = %d, want 300", result.TotalHits)
	}
	if len(result.Hits) != 3 {
		t.Fatalf("hits = %d, want 3", len(result.Hits))
	}

	expectedScores := []float64{5.0, 4.5, 3.0}
	for i, expected := range expectedScores {
		if result.Hits[i].Score != expected {
			t.Errorf("hit[%d].Score = %f, want %f", i, result.Hits[i].Score, expected)
		}
	}
}

func TestSearch_PartialFailure(t *testing.T) {
	addr0 := startShard(t, &fakeBackend{
		ok: true,
		reply: searchservice.SearchReply{
			ShardID: "shard_0",
			Stats:   queryplan.ShardStats{TotalHits: 10},
			Hits:    []queryplan.ShardHit{{DocID: "doc1", Score: 1.0}},
		},
	})
	c := newTestCoordinator([]cluster.Member{
		searcherMember("m0", "shard_0", addr0),
		searcherMember("m1", "shard_1", "127.0.0.1:1"), // reserved, unreachable port
	})

	result, err := c.Search(context.Background(), "pages", QueryClause{Type: "term"}, QueryOptions{TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != "partial" {
		t.Errorf("status = %s, want partial", result.Status)
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %d, want 1", len(result.Errors))
	}
	if len(result.Hits) != 1 {
		t.Errorf("hits = %d, want 1", len(result.Hits))
	}
}

func TestSearch_AllShardsFail(t *testing.T) {
	c := newTestCoordinator([]cluster.Member{
		searcherMember("m0", "shard_0", "127.0.0.1:1"),
		searcherMember("m1", "shard_1", "127.0.0.1:1"),
	})

	_, err := c.Search(context.Background(), "pages", QueryClause{Type: "term"}, QueryOptions{TopK: 10})
	if !errors.Is(err, ErrAllShardsFailed) {
		t.Errorf("expected ErrAllShardsFailed, got: %v", err)
	}
}

func TestSearch_ShardReturnsEmpty(t *testing.T) {
	addr := startShard(t, &fakeBackend{ok: false})
	c := newTestCoordinator([]cluster.Member{searcherMember("m0", "shard_0", addr)})

	_, err := c.Search(context.Background(), "pages", QueryClause{Type: "term"}, QueryOptions{TopK: 10})
	if !errors.Is(err, ErrAllShardsFailed) {
		t.Errorf("expected ErrAllShardsFailed, got: %v", err)
	}
}

func TestMergeTopK_Empty(t *testing.T) {
	result := mergeTopK(nil, 10)
	if len(result) != 0 {
		t.Errorf("expected 0 hits, got %d", len(result))
	}
}

func TestMergeTopK_LessThanK(t *testing.T) {
	responses := []ShardResponse{
		{Hits: []ShardHit{{DocID: "a", Score: 1.0}, {DocID: "b", Score: 2.0}}},
	}
	result := mergeTopK(responses, 10)
	if len(result) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(result))
	}
	if result[0].Score != 2.0 {
		t.Errorf("first hit score = %f, want 2.0", result[0].Score)
	}
}

func TestMergeTopK_ExactlyK(t *testing.T) {
	responses := []ShardResponse{
		{Hits: []ShardHit{{DocID: "a", Score: 3.0}, {DocID: "b", Score: 1.0}}},
		{Hits: []ShardHit{{DocID: "c", Score: 2.0}}},
	}
	result := mergeTopK(responses, 3)
	if len(result) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(result))
	}
	if result[0].Score != 3.0 || result[1].Score != 2.0 || result[2].Score != 1.0 {
		t.Errorf("unexpected order: %v, %v, %v", result[0].Score, result[1].Score, result[2].Score)
	}
}

func TestMergeTopK_MoreThanK(t *testing.T) {
	responses := []ShardResponse{
		{Hits: []ShardHit{
			{DocID: "a", Score: 5.0},
			{DocID: "b", Score: 3.0},
			{DocID: "c", Score: 1.0},
		}},
		{Hits: []ShardHit{
			{DocID: "d", Score: 4.0},
			{DocID: "e", Score: 2.0},
		}},
	}
	result := mergeTopK(responses, 3)
	if len(result) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(result))
	}
	if result[0].Score != 5.0 || result[1].Score != 4.0 || result[2].Score != 3.0 {
		t.Errorf("unexpected scores: %v, %v, %v", result[0].Score, result[1].Score, result[2].Score)
	}
}

func TestMergeTopK_DefaultK(t *testing.T) {
	responses := []ShardResponse{
		{Hits: []ShardHit{{DocID: "a", Score: 1.0}}},
	}
	result := mergeTopK(responses, 0)
	if len(result) != 1 {
		t.Errorf("expected 1 hit with default K, got %d", len(result))
	}
}

func TestCheckHealth(t *testing.T) {
	addr := startShard(t, &fakeBackend{ok: true})
	c := newTestCoordinator([]cluster.Member{
		searcherMember("m0", "shard_0", addr),
		searcherMember("m1", "shard_1", "127.0.0.1:1"),
	})

	health := c.CheckHealth(context.Background())
	if len(health) != 2 {
		t.Fatalf("health entries = %d, want 2", len(health))
	}
	if health["shard_0"].Status != "healthy" {
		t.Errorf("shard_0 status = %s, want healthy", health["shard_0"].Status)
	}
	if health["shard_1"].Status != "unhealthy" {
		t.Errorf("shard_1 status = %s, want unhealthy", health["shard_1"].Status)
	}

	if c.HealthyShardCount() != 1 {
		t.Errorf("healthy count = %d, want 1", c.HealthyShardCount())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.QueryTimeout != 10*time.Second {
		t.Errorf("QueryTimeout = %v, want 10s", cfg.QueryTimeout)
	}
	if cfg.PerShardTimeout != 5*time.Second {
		t.Errorf("PerShardTimeout = %v, want 5s", cfg.PerShardTimeout)
	}
	if cfg.MaxRetries != 1 {
		t.Errorf("MaxRetries = %d, want 1", cfg.MaxRetries)
	}
}

func TestQueryPlan_HasPlanID(t *testing.T) {
	addr := startShard(t, &fakeBackend{ok: true, reply: searchservice.SearchReply{ShardID: "shard_0"}})
	c := newTestCoordinator([]cluster.Member{searcherMember("m0", "shard_0", addr)})

	plan := c.buildQueryPlan("pages", QueryClause{Type: "term"}, QueryOptions{TopK: 10})
	if plan.PlanID == "" {
		t.Error("plan ID should not be empty")
	}
	if plan.TimeoutMs <= 0 {
		t.Error("timeout should be positive")
	}

	_, _ = c.Search(context.Background(), "pages", QueryClause{Type: "term"}, QueryOptions{TopK: 10})
}
