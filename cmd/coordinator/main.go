// Command coordinator runs the stateless query-routing process: it holds
// no index data itself, accepting search requests over HTTP and fanning
// them out to searcher shards via internal/coordinator.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"GoSearch/internal/cluster"
	"GoSearch/internal/coordinator"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(getEnv("GOTEXTSEARCH_LOG_LEVEL", "info")),
	}))
	slog.SetDefault(logger)

	port := getEnv("GOTEXTSEARCH_COORDINATOR_PORT", "9090")
	shardsEnv := getEnv("GOTEXTSEARCH_SHARDS", "")

	members, err := parseShardMembers(shardsEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid GOTEXTSEARCH_SHARDS: %v\n", err)
		os.Exit(1)
	}

	logger.Info("starting coordinator",
		"version", Version,
		"port", port,
		"shards", len(members),
	)

	view := cluster.NewView(members, logger)
	cfg := coordinator.DefaultConfig()
	coord := coordinator.New(cfg, view, logger)

	go pollHealth(coord, cfg.HealthCheckInterval, logger)

	mux := http.NewServeMux()
	registerRoutes(mux, coord, logger)

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

// pollHealth refreshes shard health on the configured interval, the same
// cadence the coordinator reports to /health.
func pollHealth(coord *coordinator.Coordinator, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		coord.CheckHealth(ctx)
		cancel()
	}
}

// parseShardMembers parses a "shard_id=addr,shard_id=addr" list into
// cluster.Member records. Repeated shard IDs become additional replicas
// for the same shard, since cluster.NewView groups by SearcherShard.
func parseShardMembers(spec string) ([]cluster.Member, error) {
	if spec == "" {
		return nil, nil
	}
	var members []cluster.Member
	for i, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed shard entry %q, want shard_id=host:port", pair)
		}
		members = append(members, cluster.Member{
			ID: fmt.Sprintf("member-%d", i),
			Service: cluster.Service{
				Kind:          cluster.ServiceSearcher,
				SearcherShard: parts[0],
				SearcherHost:  parts[1],
			},
		})
	}
	return members, nil
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

// jsonError matches the error envelope internal/server's HTTP handlers use.
func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
