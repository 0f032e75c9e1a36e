// Package bloom implements a sharded Bloom filter used by the centrality
// builder's source-page filter pass (§4.6): many goroutines insert
// concurrently into independent partitions, and the partitions are
// unioned into one filter once insertion is finished.
package bloom

import (
	"sync"

	bloomfilter "github.com/bits-and-blooms/bloom/v3"
)

// DefaultPartitions is the number of independent partitions a ShardMap
// splits insertions across.
const DefaultPartitions = 8

// ShardMap is N independently-locked Bloom filter partitions. Routing an
// insert by h % N means two goroutines inserting different hashes rarely
// contend on the same partition's mutex, unlike a single filter behind one
// lock.
type ShardMap struct {
	partitions []*partition
	n          uint64
}

type partition struct {
	mu     sync.Mutex
	filter *bloomfilter.BloomFilter
}

// NewShardMap builds a ShardMap with n partitions (DefaultPartitions if
// n <= 0). Each partition is sized for the full expectedItems at
// falsePositiveRate, not expectedItems/n: Finalize unions the partitions'
// bit arrays by OR, which only preserves the configured false-positive
// rate if every partition was already sized as if it alone held the
// whole set (a partition only ever receives a subset of the items, but
// which subset isn't known up front, so each must be provisioned for the
// worst case of holding them all).
func NewShardMap(n int, expectedItems uint, falsePositiveRate float64) *ShardMap {
	if n <= 0 {
		n = DefaultPartitions
	}

	partitions := make([]*partition, n)
	for i := range partitions {
		partitions[i] = &partition{filter: bloomfilter.NewWithEstimates(expectedItems, falsePositiveRate)}
	}
	return &ShardMap{partitions: partitions, n: uint64(n)}
}

// Insert adds h to its partition. Go has no mutex-poisoning equivalent to
// guard against: a panic mid-insert would otherwise leave the partition's
// mutex locked forever, so the lock is always released via defer,
// structurally preventing that failure mode rather than detecting it
// after the fact.
func (m *ShardMap) Insert(h uint64) {
	p := m.partitions[h%m.n]
	func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.filter.Add(uint64ToBytes(h))
	}()
}

// Test reports whether h may have been inserted (false positives are
// possible; false negatives are not).
func (m *ShardMap) Test(h uint64) bool {
	p := m.partitions[h%m.n]
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter.Test(uint64ToBytes(h))
}

// Finalize unions every partition into one Bloom filter via bitwise OR
// and consumes the ShardMap: it must not be used after Finalize returns.
// Partitions are sized identically by NewShardMap, so Merge never fails
// in practice; an error here means a ShardMap was built inconsistently.
func (m *ShardMap) Finalize() (*bloomfilter.BloomFilter, error) {
	if len(m.partitions) == 0 {
		return bloomfilter.NewWithEstimates(1, 0.01), nil
	}
	union := m.partitions[0].filter
	for _, p := range m.partitions[1:] {
		if err := union.Merge(p.filter); err != nil {
			return nil, err
		}
	}
	m.partitions = nil
	return union, nil
}

func uint64ToBytes(h uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(h >> (8 * i))
	}
	return b
}
