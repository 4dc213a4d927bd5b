// Package testutil provides shared test helpers, including an in-memory
// stand-in for the remote repository store.
package testutil

import (
	"context"
	"sort"
	"strings"

	"github.com/pdawson1983/pkb-mcp/internal/apperr"
	"github.com/pdawson1983/pkb-mcp/internal/githubstore"
)

// FakeStore implements githubstore.Provider over an in-memory map.
// The zero value is not usable; call NewFakeStore.
type FakeStore struct {
	Files    map[string]string // path -> content
	Modified map[string]string // path -> date served by LastModified

	// Upserts records every Upsert path in call order.
	Upserts []string

	// FailUpsertPath makes Upsert on that path return FailErr.
	FailUpsertPath string
	// FailErr is the error injected for failing calls; defaults to a
	// remote 500 when unset.
	FailErr error

	// SearchResults is returned verbatim by Search (truncated to limit).
	SearchResults []githubstore.Match
	// SearchErr makes Search fail.
	SearchErr error
	// ListErr makes ListRecursive fail.
	ListErr error
}

// NewFakeStore returns an empty fake store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		Files:    map[string]string{},
		Modified: map[string]string{},
	}
}

func (f *FakeStore) failErr() error {
	if f.FailErr != nil {
		return f.FailErr
	}
	return &apperr.Remote{StatusCode: 500, Message: "injected failure"}
}

func (f *FakeStore) Read(_ context.Context, path string) (string, error) {
	content, ok := f.Files[path]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return content, nil
}

func (f *FakeStore) Upsert(_ context.Context, path, content, _ string) (string, error) {
	if path == f.FailUpsertPath {
		return "", f.failErr()
	}
	f.Files[path] = content
	f.Upserts = append(f.Upserts, path)
	return f.FileURL(path), nil
}

func (f *FakeStore) Search(_ context.Context, _ string, limit int) ([]githubstore.Match, error) {
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	matches := f.SearchResults
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (f *FakeStore) ListRecursive(_ context.Context, path string) ([]githubstore.FileEntry, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	prefix := strings.TrimSuffix(path, "/") + "/"
	entries := []githubstore.FileEntry{}
	for p := range f.Files {
		if strings.HasPrefix(p, prefix) {
			entries = append(entries, githubstore.FileEntry{
				Path: p,
				Name: p[strings.LastIndex(p, "/")+1:],
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (f *FakeStore) LastModified(_ context.Context, path string) string {
	if d, ok := f.Modified[path]; ok {
		return d
	}
	return "unknown"
}

func (f *FakeStore) FileURL(path string) string {
	return "https://github.com/owner/repo/blob/main/" + path
}
