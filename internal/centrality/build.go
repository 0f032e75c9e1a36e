package centrality

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"go.etcd.io/bbolt"
	"golang.org/x/sync/errgroup"

	"GoSearch/internal/bloom"
	"GoSearch/internal/webgraph"
)

var centralityBucket = []byte("centrality")

// Build runs the three-pass derived-centrality computation described in
// §4.7: a Bloom filter marks which pages have at least one outgoing edge
// (pass 1), each such page's score is the product of its host's harmonic
// centrality and the sum of harmonic centrality over its distinct
// incoming hosts (pass 2), and finally every page's score is normalized
// against the highest vote total seen for its own host (pass 3). The
// staging directory holding pass 2's intermediate store is removed only
// once pass 3 has written the final store successfully.
func Build(ctx context.Context, harmonic webgraph.HarmonicTable, graph webgraph.Graph, outputPath string, opts Options) (*DerivedCentrality, error) {
	if _, err := os.Stat(outputPath); err == nil {
		return nil, ErrAlreadyExists
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("centrality: stat output path: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	fp := opts.BloomFalsePositiveRate
	if fp <= 0 {
		fp = DefaultOptions().BloomFalsePositiveRate
	}
	logger := opts.logger()

	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		return nil, fmt.Errorf("centrality: create output directory: %w", err)
	}
	stagingDir := filepath.Join(outputPath, "non_normalized")
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("centrality: create staging directory: %w", err)
	}

	nodes := collectNodes(ctx, graph)
	edges := collectEdges(ctx, graph)

	logger.Info("centrality: starting build", "nodes", len(nodes), "edges", len(edges))

	estimatedItems := opts.BloomExpectedItems
	if estimatedItems == 0 {
		estimatedItems = uint(len(nodes))
	}
	if estimatedItems == 0 {
		estimatedItems = 1
	}
	hasOutgoing, err := markOutgoing(ctx, edges, estimatedItems, fp, workers)
	if err != nil {
		return nil, err
	}

	nonNormPath := filepath.Join(stagingDir, "non_normalized.bolt")
	nonNormDB, err := bbolt.Open(nonNormPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("centrality: open staging store: %w", err)
	}
	if err := nonNormDB.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(centralityBucket)
		return err
	}); err != nil {
		nonNormDB.Close()
		return nil, fmt.Errorf("centrality: init staging bucket: %w", err)
	}

	norms, err := scorePages(ctx, nodes, graph, harmonic, hasOutgoing, nonNormDB, workers, opts.ProgressEvery, logger)
	if err != nil {
		nonNormDB.Close()
		return nil, err
	}

	finalPath := filepath.Join(outputPath, "centrality.bolt")
	finalDB, err := bbolt.Open(finalPath, 0o600, nil)
	if err != nil {
		nonNormDB.Close()
		return nil, fmt.Errorf("centrality: open final store: %w", err)
	}

	dropped, err := normalize(nonNormDB, finalDB, norms)
	if err != nil {
		nonNormDB.Close()
		finalDB.Close()
		return nil, err
	}
	logger.Info("centrality: build complete", "dropped_zero_norm", dropped)

	nonNormDB.Close()
	if err := os.RemoveAll(stagingDir); err != nil {
		logger.Warn("centrality: failed to remove staging directory", "error", err)
	}

	return &DerivedCentrality{db: finalDB}, nil
}

func collectNodes(ctx context.Context, graph webgraph.Graph) []webgraph.NodeID {
	var nodes []webgraph.NodeID
	for _, id := range graph.Nodes(ctx) {
		nodes = append(nodes, id)
	}
	return nodes
}

func collectEdges(ctx context.Context, graph webgraph.Graph) []webgraph.Edge {
	var edges []webgraph.Edge
	for e := range graph.Edges(ctx) {
		edges = append(edges, e)
	}
	return edges
}

// markOutgoing inserts every edge's source node into a sharded Bloom
// filter, in parallel chunks bounded by workers.
func markOutgoing(ctx context.Context, edges []webgraph.Edge, numNodes uint, fp float64, workers int) (*bloomHasOutgoing, error) {
	shardMap := bloom.NewShardMap(bloom.DefaultPartitions, numNodes, fp)

	if len(edges) == 0 {
		filter, err := shardMap.Finalize()
		if err != nil {
			return nil, fmt.Errorf("centrality: finalize bloom map: %w", err)
		}
		return &bloomHasOutgoing{filter: filter}, nil
	}

	chunks := chunkEdges(edges, workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			for _, e := range chunk {
				shardMap.Insert(uint64(e.From))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("centrality: pass 1 (bloom filter): %w", err)
	}

	filter, err := shardMap.Finalize()
	if err != nil {
		return nil, fmt.Errorf("centrality: finalize bloom map: %w", err)
	}
	return &bloomHasOutgoing{filter: filter}, nil
}

type bloomHasOutgoing struct {
	filter interface{ Test([]byte) bool }
}

func (b *bloomHasOutgoing) Test(id webgraph.NodeID) bool {
	return b.filter.Test(uint64ToBytes(uint64(id)))
}

func uint64ToBytes(h uint64) []byte {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(h >> (8 * i))
	}
	return buf
}

func nodeIDKey(id webgraph.NodeID) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func keyToNodeID(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

func float64Bytes(v float64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(v))
	return b
}

func bytesToFloat64(b []byte) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

func chunkEdges(edges []webgraph.Edge, workers int) [][]webgraph.Edge {
	if workers <= 0 {
		workers = 1
	}
	chunkSize := (len(edges) + workers - 1) / workers
	if chunkSize == 0 {
		chunkSize = 1
	}
	var chunks [][]webgraph.Edge
	for i := 0; i < len(edges); i += chunkSize {
		end := i + chunkSize
		if end > len(edges) {
			end = len(edges)
		}
		chunks = append(chunks, edges[i:end])
	}
	return chunks
}

// scorePages is pass 2: for every node with at least one outgoing edge,
// compute its host-deduplicated vote total and page score, write the
// score to the staging store, and track the maximum vote total seen per
// host in norms.
func scorePages(
	ctx context.Context,
	nodes []webgraph.NodeID,
	graph webgraph.Graph,
	harmonic webgraph.HarmonicTable,
	hasOutgoing *bloomHasOutgoing,
	nonNormDB *bbolt.DB,
	workers int,
	progressEvery int,
	logger *slog.Logger,
) (map[webgraph.NodeID]float64, error) {
	norms := make(map[webgraph.NodeID]float64)
	var normsMu sync.Mutex
	var writeMu sync.Mutex
	var processed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, id := range nodes {
		id := id
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			if progressEvery > 0 {
				n := atomic.AddInt64(&processed, 1)
				if n%int64(progressEvery) == 0 {
					logger.Info("centrality: pass 2 progress", "processed", n, "total", len(nodes))
				}
			}

			if !hasOutgoing.Test(id) {
				return nil
			}

			hostNode := id.Host()
			hostHarmonic, ok := harmonic.Get(hostNode)
			if !ok {
				return nil
			}

			votes := sumDistinctHostVotes(graph, harmonic, id)
			pageScore := hostHarmonic * votes

			writeMu.Lock()
			err := nonNormDB.Update(func(tx *bbolt.Tx) error {
				return tx.Bucket(centralityBucket).Put(nodeIDKey(id), float64Bytes(pageScore))
			})
			writeMu.Unlock()
			if err != nil {
				return fmt.Errorf("write staging score for node %d: %w", id, err)
			}

			normsMu.Lock()
			if votes > norms[hostNode] {
				norms[hostNode] = votes
			}
			normsMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("centrality: pass 2 (page scoring): %w", err)
	}
	return norms, nil
}

// sumDistinctHostVotes sums the harmonic centrality of every distinct
// host among id's incoming edges, deduplicating by host exactly once per
// host regardless of how many pages on that host link to id.
func sumDistinctHostVotes(graph webgraph.Graph, harmonic webgraph.HarmonicTable, id webgraph.NodeID) float64 {
	seenHosts := make(map[webgraph.NodeID]bool)
	var votes float64

	for _, edge := range graph.IngoingEdges(id) {
		fromNode, ok := graph.Node(edge.From)
		if !ok {
			continue
		}
		host := fromNode.ID.Host()
		if seenHosts[host] {
			continue
		}
		seenHosts[host] = true

		if v, ok := harmonic.Get(host); ok {
			votes += v
		}
	}
	return votes
}

// normalize is pass 3: every staged page score is divided by the highest
// vote total recorded for its own host. Entries whose host has a
// zero vote total are dropped rather than producing a NaN or +Inf score
// (see the Open Question decision recorded in DESIGN.md).
func normalize(nonNormDB, finalDB *bbolt.DB, norms map[webgraph.NodeID]float64) (int, error) {
	if err := finalDB.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(centralityBucket)
		return err
	}); err != nil {
		return 0, fmt.Errorf("centrality: init final bucket: %w", err)
	}

	dropped := 0
	err := nonNormDB.View(func(rtx *bbolt.Tx) error {
		return finalDB.Update(func(wtx *bbolt.Tx) error {
			bucket := wtx.Bucket(centralityBucket)
			return rtx.Bucket(centralityBucket).ForEach(func(k, v []byte) error {
				id := webgraph.NodeID(keyToNodeID(k))
				hostNode := id.Host()
				norm := norms[hostNode]
				if norm == 0 {
					dropped++
					return nil
				}
				score := bytesToFloat64(v)
				normalized := score / norm
				return bucket.Put(k, float64Bytes(normalized))
			})
		})
	})
	if err != nil {
		return 0, fmt.Errorf("centrality: pass 3 (normalize): %w", err)
	}
	return dropped, nil
}
