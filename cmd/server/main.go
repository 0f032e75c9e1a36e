package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"GoSearch/internal/searchservice"
	"GoSearch/internal/server"
	"GoSearch/internal/transport"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(getEnv("GOTEXTSEARCH_LOG_LEVEL", "info")),
	}))
	slog.SetDefault(logger)

	port := getEnv("GOTEXTSEARCH_PORT", "8080")
	dataDir := getEnv("GOTEXTSEARCH_DATA_DIR", "data")
	rpcAddr := getEnv("GOTEXTSEARCH_RPC_ADDR", ":7070")
	shardID := getEnv("GOTEXTSEARCH_SHARD_ID", "shard_0")

	logger.Info("starting GoSearch",
		"version", Version,
		"port", port,
		"data_dir", dataDir,
		"config", *configPath,
		"rpc_addr", rpcAddr,
		"shard_id", shardID,
	)

	// Initialize index manager (loads existing indexes, runs recovery).
	mgr, err := server.NewIndexManager(dataDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize index manager: %v\n", err)
		os.Exit(1)
	}

	// Start the multiplexed searchservice RPC listener this shard answers
	// for the coordinator's fan-out, alongside the HTTP management API.
	// This is the process's "join the cluster before serving" moment: once
	// this listener is up, the shard's address is ready to be published as
	// a cluster.Member wherever membership is tracked.
	rpcCtx, stopRPC := context.WithCancel(context.Background())
	defer stopRPC()
	searcher := searchservice.NewLocalSearcher(shardID, mgr, logger)
	rpcServer := searchservice.NewServer(searcher, transport.DefaultServerOptions())
	go func() {
		if err := rpcServer.ListenAndServe(rpcCtx, rpcAddr); err != nil {
			logger.Error("searchservice rpc listener stopped", "error", err)
		}
	}()

	// Create HTTP handler and register API routes.
	handler := server.NewHandler(mgr, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	// Health check endpoint.
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"version": Version,
		})
	})

	// Readiness probe.
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "ready",
		})
	})

	// Root info endpoint.
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"name":    "GoSearch",
			"version": Version,
		})
	})

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
