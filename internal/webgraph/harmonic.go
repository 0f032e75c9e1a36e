package webgraph

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"go.etcd.io/bbolt"
)

// HarmonicTable is the pre-computed harmonic-centrality signal the
// centrality builder's per-page scoring pass reads one entry at a time
// per incoming edge.
type HarmonicTable interface {
	Get(id NodeID) (float64, bool)
}

// MemHarmonicTable is a small in-memory HarmonicTable for tests and
// small offline runs.
type MemHarmonicTable struct {
	mu     sync.RWMutex
	values map[NodeID]float64
}

// NewMemHarmonicTable builds a MemHarmonicTable from values.
func NewMemHarmonicTable(values map[NodeID]float64) *MemHarmonicTable {
	cp := make(map[NodeID]float64, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &MemHarmonicTable{values: cp}
}

func (t *MemHarmonicTable) Get(id NodeID) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[id]
	return v, ok
}

var harmonicBucket = []byte("harmonic")

// BoltHarmonicTable is a HarmonicTable backed by an embedded bbolt store,
// used when the harmonic signal is too large to hold in memory.
type BoltHarmonicTable struct {
	db *bbolt.DB
}

// OpenBoltHarmonicTable opens (creating if absent) a bbolt-backed
// HarmonicTable at path.
func OpenBoltHarmonicTable(path string) (*BoltHarmonicTable, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("webgraph: open harmonic store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(harmonicBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("webgraph: init harmonic bucket: %w", err)
	}
	return &BoltHarmonicTable{db: db}, nil
}

// Close closes the underlying store.
func (t *BoltHarmonicTable) Close() error {
	return t.db.Close()
}

// Put records the harmonic value for id. Used by offline ingestion paths
// that populate the store before the centrality builder runs.
func (t *BoltHarmonicTable) Put(id NodeID, value float64) error {
	return t.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(harmonicBucket).Put(nodeIDKey(id), float64Bytes(value))
	})
}

func (t *BoltHarmonicTable) Get(id NodeID) (float64, bool) {
	var value float64
	var found bool
	_ = t.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(harmonicBucket).Get(nodeIDKey(id))
		if raw == nil {
			return nil
		}
		found = true
		value = bytesToFloat64(raw)
		return nil
	})
	return value, found
}

func nodeIDKey(id NodeID) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func float64Bytes(v float64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(v))
	return b
}

func bytesToFloat64(b []byte) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}
