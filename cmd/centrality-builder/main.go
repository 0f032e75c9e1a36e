// Command centrality-builder runs the offline derived-centrality
// computation (internal/centrality.Build) against a small edge list and
// harmonic-score table loaded from CSV, logging progress periodically in
// place of a TUI progress bar.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"GoSearch/internal/centrality"
	"GoSearch/internal/webgraph"
)

func main() {
	edgesPath := flag.String("edges", "", "CSV file of from,to node IDs (uint64)")
	harmonicPath := flag.String("harmonic", "", "CSV file of node,score harmonic centrality values")
	outputPath := flag.String("output", "", "output directory for the derived-centrality store")
	workers := flag.Int("workers", 0, "parallel workers (0 = GOMAXPROCS)")
	progressEvery := flag.Int("progress-every", 1000, "log a progress line every N processed nodes")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(getEnv("GOTEXTSEARCH_LOG_LEVEL", "info")),
	}))
	slog.SetDefault(logger)

	if *edgesPath == "" || *harmonicPath == "" || *outputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: centrality-builder -edges edges.csv -harmonic harmonic.csv -output out/")
		os.Exit(2)
	}

	graph, err := loadGraph(*edgesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load edges: %v\n", err)
		os.Exit(1)
	}

	harmonic, err := loadHarmonic(*harmonicPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load harmonic scores: %v\n", err)
		os.Exit(1)
	}

	opts := centrality.DefaultOptions()
	opts.Workers = *workers
	opts.ProgressEvery = *progressEvery
	opts.Logger = logger

	start := time.Now()
	dc, err := centrality.Build(context.Background(), harmonic, graph, *outputPath, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer dc.Close()

	logger.Info("centrality build finished", "output", *outputPath, "elapsed", time.Since(start))
}

// loadGraph reads a "from,to" CSV edge list into a MemGraph. This is the
// one supported offline graph source; larger production graphs are out
// of scope (internal/webgraph's package doc).
func loadGraph(path string) (*webgraph.MemGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	graph := webgraph.NewMemGraph()
	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = 2

	for {
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		from, err := strconv.ParseUint(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid from node %q: %w", record[0], err)
		}
		to, err := strconv.ParseUint(record[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid to node %q: %w", record[1], err)
		}
		graph.AddEdge(webgraph.NodeID(from), webgraph.NodeID(to))
	}
	return graph, nil
}

// loadHarmonic reads a "node,score" CSV into a MemHarmonicTable.
func loadHarmonic(path string) (*webgraph.MemHarmonicTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	values := make(map[webgraph.NodeID]float64)
	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = 2

	for {
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		node, err := strconv.ParseUint(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid node %q: %w", record[0], err)
		}
		score, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid score %q: %w", record[1], err)
		}
		values[webgraph.NodeID(node)] = score
	}
	return webgraph.NewMemHarmonicTable(values), nil
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
