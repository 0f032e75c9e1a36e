package searchservice

import (
	"context"
	"testing"

	"GoSearch/internal/index"
	"GoSearch/internal/indexing"
	"GoSearch/internal/queryplan"
	"GoSearch/internal/server"
)

func newTestLocalSearcher(t *testing.T) *LocalSearcher {
	t.Helper()

	mgr, err := server.NewIndexManager(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewIndexManager: %v", err)
	}

	schema := &index.Schema{
		Fields: []index.FieldDef{
			{Name: "title", Type: index.FieldTypeText, Indexed: true, Stored: true, Analyzer: "standard"},
		},
		DefaultAnalyzer: "standard",
	}
	if err := mgr.CreateIndex("pages", schema); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	inst, err := mgr.GetIndex("pages")
	if err != nil {
		t.Fatalf("GetIndex: %v", err)
	}

	w, err := inst.AcquireWriter()
	if err != nil {
		t.Fatalf("AcquireWriter: %v", err)
	}
	docs := []indexing.Document{
		{Fields: map[string]interface{}{"id": "doc-1", "title": "go search engine"}},
		{Fields: map[string]interface{}{"id": "doc-2", "title": "go distributed systems"}},
	}
	if err := w.AddDocuments(docs); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	return NewLocalSearcher("shard-0", mgr, nil)
}

func TestLocalSearcherSearch(t *testing.T) {
	ls := newTestLocalSearcher(t)

	reply, ok := ls.Search(context.Background(), SearchRequest{
		Index: "pages",
		Query: queryplan.QueryClause{Type: "term", Field: "title", Term: "go"},
		Options: queryplan.QueryOptions{
			TopK:          10,
			IncludeStored: []string{"title"},
		},
	})
	if !ok {
		t.Fatal("Search returned ok=false")
	}
	if reply.ShardID != "shard-0" {
		t.Errorf("ShardID = %q, want shard-0", reply.ShardID)
	}
	if len(reply.Hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(reply.Hits))
	}
	for _, hit := range reply.Hits {
		if hit.DocID == "" {
			t.Error("hit missing external DocID")
		}
		if hit.Stored["title"] == "" {
			t.Error("hit missing requested stored field")
		}
	}
}

func TestLocalSearcherSearchNoMatch(t *testing.T) {
	ls := newTestLocalSearcher(t)

	reply, ok := ls.Search(context.Background(), SearchRequest{
		Index: "pages",
		Query: queryplan.QueryClause{Type: "term", Field: "title", Term: "nonexistent"},
	})
	if !ok {
		t.Fatal("Search returned ok=false")
	}
	if len(reply.Hits) != 0 {
		t.Errorf("got %d hits, want 0", len(reply.Hits))
	}
}

func TestLocalSearcherGetWebpage(t *testing.T) {
	ls := newTestLocalSearcher(t)

	reply, ok := ls.GetWebpage(context.Background(), GetWebpageRequest{Index: "pages", DocID: "doc-1"})
	if !ok {
		t.Fatal("GetWebpage returned ok=false")
	}
	if !reply.Found {
		t.Fatal("expected doc-1 to be found")
	}
	if reply.Website.Stored["title"] != "go search engine" {
		t.Errorf("Stored[title] = %q", reply.Website.Stored["title"])
	}
}

func TestLocalSearcherGetWebpageMissing(t *testing.T) {
	ls := newTestLocalSearcher(t)

	reply, ok := ls.GetWebpage(context.Background(), GetWebpageRequest{Index: "pages", DocID: "no-such-doc"})
	if !ok {
		t.Fatal("GetWebpage returned ok=false")
	}
	if reply.Found {
		t.Fatal("expected no-such-doc to be not found")
	}
}

func TestLocalSearcherRetrieveWebsites(t *testing.T) {
	ls := newTestLocalSearcher(t)

	reply, ok := ls.RetrieveWebsites(context.Background(), RetrieveWebsitesRequest{
		Index:  "pages",
		DocIDs: []string{"doc-1", "doc-2", "missing"},
	})
	if !ok {
		t.Fatal("RetrieveWebsites returned ok=false")
	}
	if len(reply.Websites) != 2 {
		t.Fatalf("got %d websites, want 2", len(reply.Websites))
	}
}

func TestLocalSearcherUnknownIndex(t *testing.T) {
	ls := newTestLocalSearcher(t)

	_, ok := ls.Search(context.Background(), SearchRequest{Index: "does-not-exist"})
	if ok {
		t.Fatal("expected ok=false for an unknown index")
	}
}
