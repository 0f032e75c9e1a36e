// Package centrality implements the offline derived page centrality
// builder (§4.7) and its reader (§4.8): a three-pass batch job that turns
// a harmonic-centrality table and a link graph into a per-page ranking
// signal, persisted in an embedded bbolt store.
package centrality

import "log/slog"

// Options configures a Build run, following this repository's
// Options/Default* convention (commit.Options, recovery.Options).
type Options struct {
	// BloomExpectedItems sizes the source-page Bloom filter (pass 1).
	BloomExpectedItems uint
	// BloomFalsePositiveRate is the target false positive rate for the
	// same filter.
	BloomFalsePositiveRate float64
	// Workers bounds the data-parallel worker pool used by passes 1 and
	// 2. Zero means runtime.GOMAXPROCS(0).
	Workers int
	// ProgressEvery logs a progress line every N processed nodes in pass
	// 2, the long-running pass. Zero disables progress logging.
	ProgressEvery int

	Logger *slog.Logger
}

// DefaultOptions returns workable defaults: a million-item Bloom filter
// at 1% false-positive rate, GOMAXPROCS workers, and a progress line every
// 100,000 nodes.
func DefaultOptions() Options {
	return Options{
		BloomExpectedItems:     1_000_000,
		BloomFalsePositiveRate: 0.01,
		ProgressEvery:          100_000,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
