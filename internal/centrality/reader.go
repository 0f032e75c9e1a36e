package centrality

import (
	"fmt"
	"iter"

	"go.etcd.io/bbolt"

	"GoSearch/internal/webgraph"
)

// DerivedCentrality is the reader side of the builder's output: a
// read-only view over the final bbolt store of normalized page scores.
type DerivedCentrality struct {
	db *bbolt.DB
}

// Open opens an existing store produced by Build at outputPath.
func Open(outputPath string) (*DerivedCentrality, error) {
	db, err := bbolt.Open(finalStorePath(outputPath), 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("centrality: open store: %w", err)
	}
	return &DerivedCentrality{db: db}, nil
}

func finalStorePath(outputPath string) string {
	return outputPath + "/centrality.bolt"
}

// Close closes the underlying store.
func (d *DerivedCentrality) Close() error {
	return d.db.Close()
}

// Get returns the normalized score for id, if one was computed. A
// missing entry means either the node never had an outgoing edge, its
// host had no harmonic centrality recorded, or its host's vote total was
// zero (dropped per the Build's zero-norm policy) — all three collapse
// to "no score", matching how callers actually use this signal.
func (d *DerivedCentrality) Get(id webgraph.NodeID) (float64, bool) {
	var value float64
	var found bool
	_ = d.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(centralityBucket)
		if bucket == nil {
			return nil
		}
		raw := bucket.Get(nodeIDKey(id))
		if raw == nil {
			return nil
		}
		found = true
		value = bytesToFloat64(raw)
		return nil
	})
	return value, found
}

// All iterates every (NodeID, score) pair in the store.
func (d *DerivedCentrality) All() iter.Seq2[webgraph.NodeID, float64] {
	return func(yield func(webgraph.NodeID, float64) bool) {
		_ = d.db.View(func(tx *bbolt.Tx) error {
			bucket := tx.Bucket(centralityBucket)
			if bucket == nil {
				return nil
			}
			return bucket.ForEach(func(k, v []byte) error {
				id := webgraph.NodeID(keyToNodeID(k))
				score := bytesToFloat64(v)
				if !yield(id, score) {
					return errStopIteration
				}
				return nil
			})
		})
	}
}

var errStopIteration = fmt.Errorf("centrality: iteration stopped")
