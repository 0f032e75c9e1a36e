package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"GoSearch/internal/coordinator"
)

// searchRequest mirrors internal/server's own searchRequest shape so a
// client can point at either the coordinator or a single shard's HTTP API
// with the same request body.
type searchRequest struct {
	Index string `json:"index"`
	Query struct {
		Type   string `json:"type"`
		Field  string `json:"field"`
		Value  string `json:"value"`
		Prefix string `json:"prefix"`
	} `json:"query"`
	TopK          int      `json:"top_k"`
	IncludeStored []string `json:"include_stored"`
}

func registerRoutes(mux *http.ServeMux, coord *coordinator.Coordinator, logger *slog.Logger) {
	mux.HandleFunc("POST /search", handleSearch(coord, logger))
	mux.HandleFunc("GET /health", handleHealth(coord))
	mux.HandleFunc("GET /", handleRoot)
}

func handleSearch(coord *coordinator.Coordinator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if req.Index == "" {
			jsonError(w, http.StatusBadRequest, "index is required")
			return
		}
		if req.TopK <= 0 {
			req.TopK = 10
		}

		clauseType := req.Query.Type
		if clauseType == "" {
			clauseType = "term"
		}

		clause := coordinator.QueryClause{
			Type:   clauseType,
			Field:  req.Query.Field,
			Term:   req.Query.Value,
			Prefix: req.Query.Prefix,
		}
		opts := coordinator.QueryOptions{
			TopK:          req.TopK,
			IncludeScores: true,
			IncludeStored: req.IncludeStored,
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		result, err := coord.Search(ctx, req.Index, clause, opts)
		if err != nil {
			logger.Warn("coordinator: search failed", "index", req.Index, "error", err)
			jsonError(w, http.StatusBadGateway, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}

func handleHealth(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		health := coord.CheckHealth(ctx)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":        "ok",
			"healthy_shard": coord.HealthyShardCount(),
			"shards":        health,
		})
	}
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"name":    "GoSearch coordinator",
		"version": Version,
	})
}
