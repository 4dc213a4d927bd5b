package githubstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdawson1983/pkb-mcp/internal/apperr"
)

// fakeGitHub is a minimal in-memory stand-in for the Contents, Search, and
// Commits endpoints, keyed by repository path.
type fakeGitHub struct {
	t     *testing.T
	files map[string]string // path -> content
	shas  map[string]string // path -> revision token
	puts  []string          // paths written, in order

	failSearch bool
	staleReads bool // serve a bogus revision token on GET

}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	return &fakeGitHub{
		t:     t,
		files: map[string]string{},
		shas:  map[string]string{},
	}
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/repos/owner/repo/contents/"):
		path := strings.TrimPrefix(r.URL.Path, "/repos/owner/repo/contents/")
		if r.Method == http.MethodPut {
			f.handlePut(w, r, path)
			return
		}
		f.handleGet(w, path)
	case r.URL.Path == "/search/code":
		f.handleSearch(w, r)
	case r.URL.Path == "/repos/owner/repo/commits":
		fmt.Fprint(w, `[{"commit":{"committer":{"date":"2024-01-15T09:30:00Z"}}}]`)
	default:
		f.t.Errorf("unexpected request: %s %s", r.Method, r.URL)
		http.NotFound(w, r)
	}
}

func (f *fakeGitHub) handleGet(w http.ResponseWriter, path string) {
	// Directory listing.
	var items []map[string]any
	prefix := path + "/"
	for p := range f.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			dir := prefix + rest[:i]
			if !containsPath(items, dir) {
				items = append(items, map[string]any{"type": "dir", "path": dir, "name": rest[:i]})
			}
			continue
		}
		items = append(items, map[string]any{"type": "file", "path": p, "name": rest})
	}
	if len(items) > 0 {
		_ = json.NewEncoder(w).Encode(items)
		return
	}

	content, ok := f.files[path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
		return
	}
	sha := f.shas[path]
	if f.staleReads {
		sha = "stale"
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":     "file",
		"path":     path,
		"name":     path[strings.LastIndex(path, "/")+1:],
		"sha":      sha,
		"encoding": "base64",
		"content":  base64.StdEncoding.EncodeToString([]byte(content)),
	})
}

func (f *fakeGitHub) handlePut(w http.ResponseWriter, r *http.Request, path string) {
	var body struct {
		Message string `json:"message"`
		Content string `json:"content"`
		Branch  string `json:"branch"`
		SHA     string `json:"sha"`
	}
	raw, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		f.t.Errorf("bad PUT body: %v", err)
	}

	_, exists := f.files[path]
	if exists && body.SHA != f.shas[path] {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"message":"is at a different revision"}`)
		return
	}
	if !exists && body.SHA != "" {
		f.t.Errorf("create of %s carried a revision token %q", path, body.SHA)
	}

	decoded, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		f.t.Errorf("PUT content not base64: %v", err)
	}
	f.files[path] = string(decoded)
	f.shas[path] = fmt.Sprintf("sha-%d", len(f.puts))
	f.puts = append(f.puts, path)

	if exists {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusCreated)
	}
	fmt.Fprint(w, `{"content":{}}`)
}

func (f *fakeGitHub) handleSearch(w http.ResponseWriter, r *http.Request) {
	if f.failSearch {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"API rate limit exceeded"}`)
		return
	}
	q := r.URL.Query().Get("q")
	term := strings.TrimSuffix(q, " repo:owner/repo")

	var items []map[string]string
	for p, content := range f.files {
		if strings.Contains(content, term) {
			items = append(items, map[string]string{
				"path": p,
				"name": p[strings.LastIndex(p, "/")+1:],
			})
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_count": len(items),
		"items":       items,
	})
}

func containsPath(items []map[string]any, path string) bool {
	for _, it := range items {
		if it["path"] == path {
			return true
		}
	}
	return false
}

func testClient(t *testing.T) (*Client, *fakeGitHub) {
	t.Helper()
	fake := newFakeGitHub(t)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c := New(Config{
		Token:       "test-token",
		Repo:        "owner/repo",
		APIBaseURL:  srv.URL,
		HTMLBaseURL: "https://github.com",
	})
	return c, fake
}

func TestRead_NotFoundSentinel(t *testing.T) {
	c, _ := testClient(t)
	_, err := c.Read(context.Background(), "til/missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want apperr.ErrNotFound", err)
	}
}

func TestRead_DecodesBase64(t *testing.T) {
	c, fake := testClient(t)
	fake.files["til/a.md"] = "# Hello\nWorld\n"

	got, err := c.Read(context.Background(), "til/a.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "# Hello\nWorld\n" {
		t.Errorf("content = %q", got)
	}
}

func TestUpsert_CreateThenUpdate(t *testing.T) {
	c, fake := testClient(t)
	ctx := context.Background()

	url, err := c.Upsert(ctx, "til/2024-01-15-a.md", "first", "Add TIL: a")
	if err != nil {
		t.Fatalf("create upsert: %v", err)
	}
	want := "https://github.com/owner/repo/blob/main/til/2024-01-15-a.md"
	if url != want {
		t.Errorf("url = %q, want %q", url, want)
	}
	if fake.files["til/2024-01-15-a.md"] != "first" {
		t.Errorf("stored = %q", fake.files["til/2024-01-15-a.md"])
	}

	// Second upsert must carry the revision token and succeed in place.
	url2, err := c.Upsert(ctx, "til/2024-01-15-a.md", "second", "Add TIL: a")
	if err != nil {
		t.Fatalf("update upsert: %v", err)
	}
	if url2 != want {
		t.Errorf("update url = %q, want %q", url2, want)
	}
	if fake.files["til/2024-01-15-a.md"] != "second" {
		t.Errorf("stored after update = %q", fake.files["til/2024-01-15-a.md"])
	}
}

func TestUpsert_IdenticalContentStillSucceeds(t *testing.T) {
	c, _ := testClient(t)
	ctx := context.Background()

	first, err := c.Upsert(ctx, "til/same.md", "same body", "msg")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := c.Upsert(ctx, "til/same.md", "same body", "msg")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if first != second {
		t.Errorf("urls differ: %q vs %q", first, second)
	}
}

func TestUpsert_StaleRevisionSurfacesRemoteError(t *testing.T) {
	c, fake := testClient(t)
	ctx := context.Background()

	if _, err := c.Upsert(ctx, "til/race.md", "v1", "msg"); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}
	// Simulate a concurrent writer bumping the revision between the read
	// and the write: the read observes a token the store no longer holds.
	fake.staleReads = true

	_, err := c.Upsert(ctx, "til/race.md", "v2", "msg")
	remote, ok := apperr.AsRemote(err)
	if !ok {
		t.Fatalf("err = %v, want remote error", err)
	}
	if remote.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", remote.StatusCode)
	}
}

func TestSearch_SnippetsAndLimit(t *testing.T) {
	c, fake := testClient(t)
	fake.files["til/long.md"] = "kubernetes " + strings.Repeat("x", 300)
	fake.files["til/short.md"] = "kubernetes\nin one line"

	matches, err := c.Search(context.Background(), "kubernetes", 20)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(matches))
	}

	byPath := map[string]string{}
	for _, m := range matches {
		byPath[m.Path] = m.Snippet
	}
	long := byPath["til/long.md"]
	if !strings.HasSuffix(long, "...") {
		t.Errorf("long snippet missing ellipsis: %q", long)
	}
	if len([]rune(long)) != snippetLimit+3 {
		t.Errorf("long snippet length = %d", len([]rune(long)))
	}
	if got := byPath["til/short.md"]; got != "kubernetes in one line" {
		t.Errorf("short snippet = %q", got)
	}
}

func TestSearch_RemoteErrorPropagates(t *testing.T) {
	c, fake := testClient(t)
	fake.failSearch = true

	_, err := c.Search(context.Background(), "anything", 20)
	remote, ok := apperr.AsRemote(err)
	if !ok {
		t.Fatalf("err = %v, want remote error", err)
	}
	if remote.Message != "API rate limit exceeded" {
		t.Errorf("message = %q", remote.Message)
	}
}

func TestListRecursive(t *testing.T) {
	c, fake := testClient(t)
	fake.files["patterns/devops/retry.md"] = "a"
	fake.files["patterns/agent/loop.md"] = "b"
	fake.files["patterns/readme.md"] = "c"

	entries, err := c.ListRecursive(context.Background(), "patterns")
	if err != nil {
		t.Fatalf("ListRecursive: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3: %v", len(entries), entries)
	}
	seen := map[string]string{}
	for _, e := range entries {
		seen[e.Path] = e.Name
	}
	if seen["patterns/devops/retry.md"] != "retry.md" {
		t.Errorf("entries = %v", entries)
	}
}

func TestListRecursive_MissingSubtreeIsEmpty(t *testing.T) {
	c, _ := testClient(t)
	entries, err := c.ListRecursive(context.Background(), "nope")
	if err != nil {
		t.Fatalf("ListRecursive: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %v, want empty", entries)
	}
}

func TestLastModified(t *testing.T) {
	c, fake := testClient(t)
	fake.files["til/a.md"] = "x"

	if got := c.LastModified(context.Background(), "til/a.md"); got != "2024-01-15" {
		t.Errorf("LastModified = %q", got)
	}
}

func TestLastModified_DegradesToUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{Repo: "owner/repo", APIBaseURL: srv.URL})
	if got := c.LastModified(context.Background(), "til/a.md"); got != "unknown" {
		t.Errorf("LastModified = %q, want unknown", got)
	}
}
