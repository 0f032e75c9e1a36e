package searchservice

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"GoSearch/internal/engine"
	"GoSearch/internal/indexing"
	"GoSearch/internal/queryplan"
	"GoSearch/internal/scoring"
	"GoSearch/internal/server"
)

// Backend answers the three RPCs for one shard process. LocalSearcher is
// the only implementation; the interface exists so Server can be tested
// against a fake without standing up a real IndexManager.
type Backend interface {
	Search(ctx context.Context, req SearchRequest) (SearchReply, bool)
	RetrieveWebsites(ctx context.Context, req RetrieveWebsitesRequest) (RetrieveWebsitesReply, bool)
	GetWebpage(ctx context.Context, req GetWebpageRequest) (GetWebpageReply, bool)
}

// LocalSearcher adapts the pre-existing IndexManager + engine/scoring
// machinery to answer the distributed RPCs for one shard's local index.
// It reuses the exact term/prefix matching and BM25 scoring the HTTP
// management API's own search handler uses, rather than building a
// second query executor.
type LocalSearcher struct {
	ShardID string
	Manager *server.IndexManager
	Logger  *slog.Logger
}

// NewLocalSearcher builds a LocalSearcher over mgr.
func NewLocalSearcher(shardID string, mgr *server.IndexManager, logger *slog.Logger) *LocalSearcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalSearcher{ShardID: shardID, Manager: mgr, Logger: logger}
}

func (s *LocalSearcher) Search(ctx context.Context, req SearchRequest) (SearchReply, bool) {
	inst, err := s.Manager.GetIndex(req.Index)
	if err != nil {
		s.Logger.Warn("searchservice: search against unknown index", "index", req.Index, "error", err)
		return SearchReply{}, false
	}

	buf, ok := inst.CurrentBuffer()
	if !ok {
		return SearchReply{ShardID: s.ShardID}, true
	}

	start := time.Now()
	execCtx := engine.NewExecutionContext(30*time.Second, 10000, 1000)

	hits := evaluateClause(buf, req.Query, req.Options, execCtx)

	return SearchReply{
		ShardID: s.ShardID,
		Stats: queryplan.ShardStats{
			TotalHits:       uint64(len(hits)),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
			TermsExpanded:   execCtx.TermsMatched,
		},
		Hits: hits,
	}, true
}

// evaluateClause runs the single-field term/prefix query a shard's
// in-memory write buffer can answer today. Boolean composition over
// QueryClause.Clauses is left to the query-plan owner; a shard only ever
// evaluates the leaf clause it receives (the same scope the existing HTTP
// search handler covers).
func evaluateClause(buf *indexing.WriteBuffer, clause queryplan.QueryClause, opts queryplan.QueryOptions, execCtx *engine.ExecutionContext) []queryplan.ShardHit {
	field, value := clause.Field, clause.Term
	if clause.Type == "prefix" {
		value = clause.Prefix
	}
	if field == "" || value == "" {
		return nil
	}
	if err := execCtx.CheckLimits(); err != nil {
		return nil
	}

	fieldMap, ok := buf.InvertedIndex[field]
	if !ok {
		return nil
	}

	var matchingTerms []string
	switch clause.Type {
	case "prefix":
		for term := range fieldMap {
			if strings.HasPrefix(term, value) {
				matchingTerms = append(matchingTerms, term)
				execCtx.TermsMatched++
				if err := execCtx.CheckLimits(); err != nil {
					break
				}
			}
		}
	default:
		if _, ok := fieldMap[value]; ok {
			matchingTerms = []string{value}
		}
	}
	if len(matchingTerms) == 0 {
		return nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}

	scorer := scoring.NewBM25Scorer(int64(buf.DocCount), float32(buf.TermCount)/float32(max(buf.DocCount, 1)))
	collector := engine.NewTopKCollector(topK)

	for _, term := range matchingTerms {
		pl := fieldMap[term]
		if pl == nil {
			continue
		}
		idf := scorer.IDF(int64(len(pl.Entries)))

		docIDs := make([]uint32, len(pl.Entries))
		freqs := make([]uint32, len(pl.Entries))
		for i, e := range pl.Entries {
			docIDs[i] = e.DocID
			freqs[i] = e.Freq
		}

		it := engine.NewSlicePostingsIterator(docIDs, freqs)
		for it.Next() {
			score := scorer.Score(it.Freq(), 100, idf)
			collector.Collect(it.DocID(), score)
		}
	}

	externalID := externalIDIndex(buf)

	hits := make([]queryplan.ShardHit, 0, topK)
	for _, r := range collector.Results() {
		hit := queryplan.ShardHit{
			DocID:      externalID[r.DocID],
			LocalDocID: uint64(r.DocID),
			Score:      float64(r.Score),
		}
		if opts.IncludeScores {
			hit.Score = float64(r.Score)
		}
		if len(opts.IncludeStored) > 0 {
			hit.Stored = storedSubset(buf, r.DocID, opts.IncludeStored)
		}
		hits = append(hits, hit)
	}
	return hits
}

func externalIDIndex(buf *indexing.WriteBuffer) map[uint32]string {
	out := make(map[uint32]string, len(buf.ExternalToInternal))
	for ext, internal := range buf.ExternalToInternal {
		out[internal] = ext
	}
	return out
}

func storedSubset(buf *indexing.WriteBuffer, docID uint32, fields []string) map[string]string {
	stored, ok := buf.StoredFields[docID]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := stored[f]; ok {
			out[f] = string(v)
		}
	}
	return out
}

func (s *LocalSearcher) RetrieveWebsites(ctx context.Context, req RetrieveWebsitesRequest) (RetrieveWebsitesReply, bool) {
	inst, err := s.Manager.GetIndex(req.Index)
	if err != nil {
		return RetrieveWebsitesReply{}, false
	}
	buf, ok := inst.CurrentBuffer()
	if !ok {
		return RetrieveWebsitesReply{}, true
	}

	want := make(map[string]bool, len(req.DocIDs))
	for _, id := range req.DocIDs {
		want[id] = true
	}

	var websites []Website
	for ext, internal := range buf.ExternalToInternal {
		if !want[ext] {
			continue
		}
		stored, ok := buf.StoredFields[internal]
		if !ok {
			continue
		}
		websites = append(websites, Website{DocID: ext, Stored: stringifyFields(stored)})
	}
	return RetrieveWebsitesReply{Websites: websites}, true
}

func (s *LocalSearcher) GetWebpage(ctx context.Context, req GetWebpageRequest) (GetWebpageReply, bool) {
	inst, err := s.Manager.GetIndex(req.Index)
	if err != nil {
		return GetWebpageReply{}, false
	}
	buf, ok := inst.CurrentBuffer()
	if !ok {
		return GetWebpageReply{Found: false}, true
	}

	internal, ok := buf.ExternalToInternal[req.DocID]
	if !ok {
		return GetWebpageReply{Found: false}, true
	}
	stored, ok := buf.StoredFields[internal]
	if !ok {
		return GetWebpageReply{Found: false}, true
	}
	return GetWebpageReply{
		Found:   true,
		Website: Website{DocID: req.DocID, Stored: stringifyFields(stored)},
	}, true
}

func stringifyFields(fields map[string][]byte) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = string(v)
	}
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
