package kb

import (
	"fmt"
	"strings"
)

// IndexPath is the fixed location of the TIL section index.
const IndexPath = "til/index.md"

// indexHeading starts a fresh index when none exists yet.
const indexHeading = "# TIL Index\n\n"

// AppendIndexLine returns the index document with a link line for the entry
// appended. existing is the current document, or empty when the index does
// not exist yet. Prior lines are never reordered or removed: the existing
// content keeps its order, trailing blank lines are replaced by exactly one
// newline, and the new line goes after it.
func AppendIndexLine(existing, title, filename, date string) string {
	line := fmt.Sprintf("- [%s](%s) (%s)\n", title, filename, date)
	if existing == "" {
		return indexHeading + line
	}
	return strings.TrimRight(existing, "\n") + "\n" + line
}
