package kb

import (
	"fmt"
	"sort"
	"strings"
)

// Closed input sets. Values are matched after a single lowercase+trim
// normalization at the tool boundary.
var (
	PromptCategories  = newSet("coding", "infrastructure", "documentation", "general")
	PatternCategories = newSet("agent", "cloud", "devops")
	Sections          = newSet("til", "prompts", "patterns", "all")
)

// SectionOrder is the fixed listing order used when section "all" expands.
var SectionOrder = []string{"til", "prompts", "patterns"}

// SectionRoot maps a section to its directory inside the repository.
var SectionRoot = map[string]string{
	"til":      "til/",
	"prompts":  "ai/prompts/",
	"patterns": "patterns/",
}

// Set is a closed set of accepted lowercase values.
type Set struct {
	members map[string]struct{}
	sorted  []string
}

func newSet(values ...string) Set {
	s := Set{members: make(map[string]struct{}, len(values))}
	for _, v := range values {
		s.members[v] = struct{}{}
		s.sorted = append(s.sorted, v)
	}
	sort.Strings(s.sorted)
	return s
}

// Normalize lowercases and trims raw, returning the canonical value and
// whether it belongs to the set.
func (s Set) Normalize(raw string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	_, ok := s.members[v]
	return v, ok
}

// String renders the accepted values sorted and comma-joined, for error
// messages.
func (s Set) String() string {
	return strings.Join(s.sorted, ", ")
}

// TIL is a "Today I Learned" entry.
type TIL struct {
	Title   string
	Content string
	Tags    []string
}

// Filename returns the dated file name, e.g. 2024-01-15-learned-recursion.md.
func (t TIL) Filename(date string) string {
	return fmt.Sprintf("%s-%s.md", date, Slugify(t.Title))
}

// Path returns the repository path for the entry on the given date.
func (t TIL) Path(date string) string {
	return "til/" + t.Filename(date)
}

// Document renders the full markdown document. Front-matter key order is
// part of the contract: title, date, tags.
func (t TIL) Document(date string) string {
	return fmt.Sprintf("---\ntitle: \"%s\"\ndate: %s\ntags: %s\n---\n\n%s\n",
		t.Title, date, tagList(t.Tags), t.Content)
}

// Prompt is a reusable prompt entry. Category must already be normalized.
type Prompt struct {
	Name        string
	Category    string
	Content     string
	Description string
}

// Path returns the repository path for the prompt.
func (p Prompt) Path() string {
	return fmt.Sprintf("ai/prompts/%s/%s.md", p.Category, Slugify(p.Name))
}

// Document renders the prompt document; key order: name, category,
// description, date.
func (p Prompt) Document(date string) string {
	return fmt.Sprintf("---\nname: \"%s\"\ncategory: %s\ndescription: \"%s\"\ndate: %s\n---\n\n%s\n",
		p.Name, p.Category, p.Description, date, p.Content)
}

// Pattern is a reusable pattern entry. Category must already be normalized.
type Pattern struct {
	Name     string
	Category string
	Problem  string
	Solution string
	Tags     []string
}

// Path returns the repository path for the pattern.
func (p Pattern) Path() string {
	return fmt.Sprintf("patterns/%s/%s.md", p.Category, Slugify(p.Name))
}

// Document renders the pattern document; key order: name, category, date,
// tags; the body always holds a Problem section followed by a Solution
// section.
func (p Pattern) Document(date string) string {
	return fmt.Sprintf("---\nname: \"%s\"\ncategory: %s\ndate: %s\ntags: %s\n---\n\n## Problem\n\n%s\n\n## Solution\n\n%s\n",
		p.Name, p.Category, date, tagList(p.Tags), p.Problem, p.Solution)
}

// tagList renders tags as an inline bracketed list: [a, b] or [] when empty.
func tagList(tags []string) string {
	return "[" + strings.Join(tags, ", ") + "]"
}
