// Package mcpserver provides the MCP (Model Context Protocol) server that
// exposes the knowledge-base tools over stdio transport.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pdawson1983/pkb-mcp/internal/apperr"
	"github.com/pdawson1983/pkb-mcp/internal/githubstore"
	"github.com/pdawson1983/pkb-mcp/internal/kb"
)

const searchLimit = 20

// Server wraps the MCP server with the knowledge-base tools.
type Server struct {
	mcp   *server.MCPServer
	store githubstore.Provider
	now   func() time.Time // injectable clock for deterministic paths in tests
}

// New creates an MCP server with all knowledge-base tools registered.
func New(store githubstore.Provider) *Server {
	s := &Server{store: store, now: time.Now}

	s.mcp = server.NewMCPServer(
		"pkb-server",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("add_til",
		mcp.WithDescription("Create a 'Today I Learned' entry in the knowledge base."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short descriptive title for the TIL entry")),
		mcp.WithString("content", mcp.Required(), mcp.Description("The markdown body of the TIL entry")),
		mcp.WithArray("tags", mcp.Description("A list of tags/keywords for categorisation"),
			mcp.Items(map[string]any{"type": "string"})),
	), s.addTIL)

	s.mcp.AddTool(mcp.NewTool("add_prompt",
		mcp.WithDescription("Save a reusable prompt to the knowledge base."),
		mcp.WithString("name", mcp.Required(), mcp.Description("A short name for the prompt")),
		mcp.WithString("category", mcp.Required(), mcp.Description("One of: coding, infrastructure, documentation, general")),
		mcp.WithString("content", mcp.Required(), mcp.Description("The full prompt text")),
		mcp.WithString("description", mcp.Required(), mcp.Description("A brief description of the prompt's purpose")),
	), s.addPrompt)

	s.mcp.AddTool(mcp.NewTool("add_pattern",
		mcp.WithDescription("Document a reusable pattern in the knowledge base."),
		mcp.WithString("name", mcp.Required(), mcp.Description("A short name for the pattern")),
		mcp.WithString("category", mcp.Required(), mcp.Description("One of: agent, cloud, devops")),
		mcp.WithString("problem", mcp.Required(), mcp.Description("Description of the problem the pattern solves")),
		mcp.WithString("solution", mcp.Required(), mcp.Description("Detailed solution / implementation guidance")),
		mcp.WithArray("tags", mcp.Description("A list of tags/keywords for categorisation"),
			mcp.Items(map[string]any{"type": "string"})),
	), s.addPattern)

	s.mcp.AddTool(mcp.NewTool("search_pkb",
		mcp.WithDescription("Search the knowledge base by keyword."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search term to look for across repository files")),
	), s.searchPKB)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List entries in a section of the knowledge base."),
		mcp.WithString("section", mcp.Required(), mcp.Description("One of: til, prompts, patterns, or 'all' to list everything")),
	), s.listEntries)

	// Resource: entry format contract.
	s.mcp.AddResource(
		mcp.NewResource("pkb://entry-format", "Entry Format Contract",
			mcp.WithResourceDescription("Canonical markdown format for TIL, prompt, and pattern entries."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEntryFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// today returns the current UTC calendar date as YYYY-MM-DD.
func (s *Server) today() string {
	return s.now().UTC().Format("2006-01-02")
}

func (s *Server) addTIL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags := req.GetStringSlice("tags", []string{})

	date := s.today()
	entry := kb.TIL{Title: title, Content: content, Tags: tags}

	url, err := s.store.Upsert(ctx, entry.Path(date), entry.Document(date), "Add TIL: "+title)
	if err != nil {
		return toolError(err, "adding TIL", "adding TIL"), nil
	}

	// Append a link to the section index. The entry write above is not
	// rolled back when this step fails; the call reports failure and the
	// index line can be re-appended by retrying.
	existing, err := s.store.Read(ctx, kb.IndexPath)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return toolError(err, "adding TIL", "adding TIL"), nil
	}
	updated := kb.AppendIndexLine(existing, title, entry.Filename(date), date)
	if _, err := s.store.Upsert(ctx, kb.IndexPath, updated, "Update TIL index: add "+title); err != nil {
		return toolError(err, "adding TIL", "adding TIL"), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("TIL entry created: %s\nURL: %s", title, url)), nil
}

func (s *Server) addPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawCategory, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	category, ok := kb.PromptCategories.Normalize(rawCategory)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf(
			"Invalid category '%s'. Must be one of: %s", rawCategory, kb.PromptCategories)), nil
	}

	entry := kb.Prompt{Name: name, Category: category, Content: content, Description: description}
	url, err := s.store.Upsert(ctx, entry.Path(), entry.Document(s.today()),
		fmt.Sprintf("Add prompt: %s (%s)", name, category))
	if err != nil {
		return toolError(err, "adding prompt", "adding prompt"), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Prompt saved: %s [%s]\nURL: %s", name, category, url)), nil
}

func (s *Server) addPattern(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawCategory, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	problem, err := req.RequireString("problem")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	solution, err := req.RequireString("solution")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags := req.GetStringSlice("tags", []string{})

	category, ok := kb.PatternCategories.Normalize(rawCategory)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf(
			"Invalid category '%s'. Must be one of: %s", rawCategory, kb.PatternCategories)), nil
	}

	entry := kb.Pattern{Name: name, Category: category, Problem: problem, Solution: solution, Tags: tags}
	url, err := s.store.Upsert(ctx, entry.Path(), entry.Document(s.today()),
		fmt.Sprintf("Add pattern: %s (%s)", name, category))
	if err != nil {
		return toolError(err, "adding pattern", "adding pattern"), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Pattern documented: %s [%s]\nURL: %s", name, category, url)), nil
}

func (s *Server) searchPKB(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	matches, err := s.store.Search(ctx, query, searchLimit)
	if err != nil {
		return toolError(err, "searching", "searching PKB"), nil
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No results found for '%s'.", query)), nil
	}

	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, fmt.Sprintf("- **%s**\n  URL: %s\n  Snippet: %s",
			m.Path, s.store.FileURL(m.Path), m.Snippet))
	}
	header := fmt.Sprintf("Found %d result(s) for '%s':\n\n", len(matches), query)
	return mcp.NewToolResultText(header + strings.Join(blocks, "\n\n")), nil
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawSection, err := req.RequireString("section")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	section, ok := kb.Sections.Normalize(rawSection)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf(
			"Invalid section '%s'. Must be one of: %s", rawSection, kb.Sections)), nil
	}

	sections := []string{section}
	if section == "all" {
		sections = kb.SectionOrder
	}

	var parts []string
	for _, sec := range sections {
		header := fmt.Sprintf("## %s\n", titleCase(sec))

		items, err := s.store.ListRecursive(ctx, kb.SectionRoot[sec])
		if err != nil {
			return toolError(err, "listing entries", "listing entries"), nil
		}
		if len(items) == 0 {
			parts = append(parts, header+"  (no entries yet)\n")
			continue
		}

		lines := make([]string, 0, len(items))
		for _, item := range items {
			lines = append(lines, fmt.Sprintf("- **%s**\n  Path: %s\n  Modified: %s\n  URL: %s",
				item.Name, item.Path, s.store.LastModified(ctx, item.Path), s.store.FileURL(item.Path)))
		}
		parts = append(parts, header+strings.Join(lines, "\n")+"\n")
	}

	return mcp.NewToolResultText(strings.TrimSpace(strings.Join(parts, "\n"))), nil
}

func (s *Server) readEntryFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "pkb://entry-format",
			MIMEType: "text/markdown",
			Text:     EntryFormatContract,
		},
	}, nil
}

// toolError renders a failure as text, keeping the agent-facing contract
// "always returns text". Remote API failures get the tier-specific label;
// everything else is reported generically.
func toolError(err error, remoteActivity, genericActivity string) *mcp.CallToolResult {
	if remote, ok := apperr.AsRemote(err); ok {
		return mcp.NewToolResultError(fmt.Sprintf("GitHub API error while %s: %s", remoteActivity, remote.Message))
	}
	return mcp.NewToolResultError(fmt.Sprintf("Error %s: %v", genericActivity, err))
}

// titleCase capitalises the first letter only ("til" -> "Til").
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
