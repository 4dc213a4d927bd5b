package githubstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdawson1983/pkb-mcp/internal/apperr"
)

const snippetLimit = 200

// Config holds the connection settings for a Client.
type Config struct {
	Token       string
	Repo        string // "owner/name"
	Branch      string
	APIBaseURL  string
	HTMLBaseURL string
	Timeout     time.Duration
}

// Client talks to the GitHub REST API for a single repository.
type Client struct {
	http     *http.Client
	token    string
	repo     string
	branch   string
	apiBase  string
	htmlBase string
}

// New creates a Client, filling in GitHub defaults for unset fields.
func New(cfg Config) *Client {
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.github.com"
	}
	if cfg.HTMLBaseURL == "" {
		cfg.HTMLBaseURL = "https://github.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		token:    cfg.Token,
		repo:     cfg.Repo,
		branch:   cfg.Branch,
		apiBase:  strings.TrimRight(cfg.APIBaseURL, "/"),
		htmlBase: strings.TrimRight(cfg.HTMLBaseURL, "/"),
	}
}

// Repo returns the "owner/name" identifier the client is bound to.
func (c *Client) Repo() string { return c.repo }

// FileURL returns the stable browsable URL for a repository path.
func (c *Client) FileURL(path string) string {
	return fmt.Sprintf("%s/%s/blob/%s/%s", c.htmlBase, c.repo, c.branch, path)
}

// contentsResponse is the Contents API file object.
type contentsResponse struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	Name     string `json:"name"`
	SHA      string `json:"sha"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// Read returns the decoded text of the file at path, or apperr.ErrNotFound.
func (c *Client) Read(ctx context.Context, path string) (string, error) {
	var file contentsResponse
	if err := c.get(ctx, c.contentsURL(path), &file); err != nil {
		return "", err
	}
	return decodeContent(&file)
}

// fetchRevision returns the current revision token (blob SHA) for path, or
// an empty string when the file does not exist.
func (c *Client) fetchRevision(ctx context.Context, path string) (string, error) {
	var file contentsResponse
	err := c.get(ctx, c.contentsURL(path), &file)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return file.SHA, nil
}

// Upsert creates or updates the file at path and returns its browsable URL.
//
// This is a read-then-write sequence, not a compare-and-swap: two concurrent
// upserts can both observe the same revision, in which case GitHub rejects
// the second write with a conflict that surfaces as a remote error. The
// store is single-agent by assumption, so no retry is attempted.
func (c *Client) Upsert(ctx context.Context, path, content, message string) (string, error) {
	sha, err := c.fetchRevision(ctx, path)
	if err != nil {
		return "", err
	}

	payload := struct {
		Message string `json:"message"`
		Content string `json:"content"`
		Branch  string `json:"branch"`
		SHA     string `json:"sha,omitempty"`
	}{
		Message: message,
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
		Branch:  c.branch,
		SHA:     sha,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("githubstore: encode upsert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentsURL(path), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("githubstore: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", remoteError(resp)
	}
	return c.FileURL(path), nil
}

// searchResponse is the code-search result page.
type searchResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		Path string `json:"path"`
		Name string `json:"name"`
	} `json:"items"`
}

// Search runs a code search scoped to the repository, walking result pages
// until limit matches are collected or the results run out.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	const perPage = 30

	matches := []Match{}
	for page := 1; len(matches) < limit; page++ {
		u := fmt.Sprintf("%s/search/code?q=%s&per_page=%d&page=%d",
			c.apiBase, url.QueryEscape(query+" repo:"+c.repo), perPage, page)

		var res searchResponse
		if err := c.get(ctx, u, &res); err != nil {
			return nil, err
		}
		if len(res.Items) == 0 {
			break
		}

		for _, item := range res.Items {
			matches = append(matches, Match{
				Path:    item.Path,
				Snippet: c.snippet(ctx, item.Path),
			})
			if len(matches) >= limit {
				break
			}
		}
		if len(res.Items) < perPage {
			break
		}
	}
	return matches, nil
}

// snippet fetches a file and condenses its opening into one line of at most
// snippetLimit characters.
func (c *Client) snippet(ctx context.Context, path string) string {
	content, err := c.Read(ctx, path)
	if err != nil {
		return "(unable to retrieve snippet)"
	}
	runes := []rune(content)
	truncated := len(runes) > snippetLimit
	if truncated {
		runes = runes[:snippetLimit]
	}
	s := strings.TrimSpace(strings.ReplaceAll(string(runes), "\n", " "))
	if truncated {
		s += "..."
	}
	return s
}

// ListRecursive walks the subtree at path depth-first. A missing subtree
// yields an empty result, not an error. No bound is placed on depth or
// fan-out.
func (c *Client) ListRecursive(ctx context.Context, path string) ([]FileEntry, error) {
	out := []FileEntry{}

	raw, err := c.getRaw(ctx, c.contentsURL(path))
	if errors.Is(err, apperr.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	// The Contents API returns an array for a directory and a single
	// object for a file.
	var items []contentsResponse
	if err := json.Unmarshal(raw, &items); err != nil {
		var single contentsResponse
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("githubstore: decode listing for %s: %w", path, err)
		}
		items = []contentsResponse{single}
	}

	for _, item := range items {
		if item.Type == "dir" {
			sub, err := c.ListRecursive(ctx, item.Path)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		out = append(out, FileEntry{Path: item.Path, Name: item.Name})
	}
	return out, nil
}

// commitsResponse is the slice shape of the Commits API listing.
type commitsResponse []struct {
	Commit struct {
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

// LastModified returns the YYYY-MM-DD date of the most recent commit
// touching path. Failures degrade to "unknown" rather than propagating.
func (c *Client) LastModified(ctx context.Context, path string) string {
	u := fmt.Sprintf("%s/repos/%s/commits?path=%s&sha=%s&per_page=1",
		c.apiBase, c.repo, url.QueryEscape(path), url.QueryEscape(c.branch))

	var commits commitsResponse
	if err := c.get(ctx, u, &commits); err != nil || len(commits) == 0 {
		return "unknown"
	}
	return commits[0].Commit.Committer.Date.UTC().Format("2006-01-02")
}

func (c *Client) contentsURL(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/contents/%s?ref=%s",
		c.apiBase, c.repo, strings.Join(segments, "/"), url.QueryEscape(c.branch))
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, u string, out any) error {
	raw, err := c.getRaw(ctx, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("githubstore: decode response: %w", err)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("githubstore: build request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperr.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, remoteError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("githubstore: read response: %w", err)
	}
	return body, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &apperr.Remote{Message: err.Error()}
	}
	return resp, nil
}

// remoteError extracts the "message" field from a GitHub error payload,
// falling back to the raw body.
func remoteError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		msg = payload.Message
	}
	return &apperr.Remote{StatusCode: resp.StatusCode, Message: msg}
}

// decodeContent decodes a Contents API file object into text.
func decodeContent(file *contentsResponse) (string, error) {
	if file.Encoding != "base64" {
		return file.Content, nil
	}
	// GitHub wraps base64 content with newlines.
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("githubstore: decode content of %s: %w", file.Path, err)
	}
	return string(data), nil
}
