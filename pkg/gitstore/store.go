// Package gitstore is the durable, version-controlled backing store for
// workflow snapshots. Every snapshot is a commit; every rollback reads the
// exact content a commit captured.
package gitstore

import (
	"context"
	"errors"
)

// Sentinel errors shared by every store implementation.
var (
	// ErrFileNotFound indicates the path does not exist at the given ref.
	ErrFileNotFound = errors.New("file not found in store")

	// ErrNoCommits indicates no commit touches the given path.
	ErrNoCommits = errors.New("no commits for path")
)

// Store is the version-controlled store contract the promotion core needs.
// Paths are slash-separated and relative to the repository root.
type Store interface {
	// WriteFiles writes the given path→content set and commits it,
	// returning the commit hash.
	WriteFiles(ctx context.Context, files map[string]string, message string) (string, error)

	// ReadFileAt returns the content of path as it existed at ref.
	ReadFileAt(ctx context.Context, path, ref string) (string, error)

	// ListFilesUnder returns every .json file under dir at ref (empty ref
	// means HEAD), keyed by file name without extension.
	ListFilesUnder(ctx context.Context, dir, ref string) (map[string]string, error)

	// LatestCommitFor returns the most recent commit hash touching path.
	LatestCommitFor(ctx context.Context, path string) (string, error)
}
