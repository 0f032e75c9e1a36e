package centrality

import "errors"

var (
	// ErrAlreadyExists is returned by Build when outputPath already
	// exists: a build is single-use, matching the source builder's own
	// "output path already exists" guard.
	ErrAlreadyExists = errors.New("centrality: output path already exists")

	// ErrNotFound names the "node has no recorded score" case. It is not
	// returned by DerivedCentrality.Get, which reports a missing node
	// (including one whose score was zero and dropped by Build) through
	// its bool result.
	ErrNotFound = errors.New("centrality: node not found")
)
