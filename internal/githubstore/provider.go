// Package githubstore implements the remote knowledge-base store on top
// of the GitHub Contents, Search, and Commits APIs.
package githubstore

import "context"

// Match is one search hit: a repository path plus a short content snippet.
type Match struct {
	Path    string
	Snippet string
}

// FileEntry describes one file found by a recursive listing.
type FileEntry struct {
	Path string
	Name string
}

// Provider is the interface for remote repository operations.
type Provider interface {
	// Read returns the decoded text of the file at path.
	// Returns apperr.ErrNotFound when the file does not exist; every
	// other failure is a remote error.
	Read(ctx context.Context, path string) (string, error)
	// Upsert creates the file at path, or updates it in place when it
	// already exists, and returns a browsable URL for it.
	Upsert(ctx context.Context, path, content, message string) (string, error)
	// Search runs a code search scoped to the repository and returns at
	// most limit matches.
	Search(ctx context.Context, query string, limit int) ([]Match, error)
	// ListRecursive walks the subtree at path depth-first. A missing
	// subtree yields an empty result, not an error.
	ListRecursive(ctx context.Context, path string) ([]FileEntry, error)
	// LastModified returns the YYYY-MM-DD date of the most recent commit
	// touching path, or "unknown" when that cannot be determined.
	LastModified(ctx context.Context, path string) string
	// FileURL returns the stable browsable URL for a repository path.
	FileURL(path string) string
}
