// Package apperr defines the error taxonomy shared across the server:
// a not-found sentinel and a typed remote-API error, so handlers can
// tell "create" signals and GitHub failures apart from local bugs.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound means the requested file does not exist in the repository.
// On a read-before-write it is the normal "create" signal, not a failure.
var ErrNotFound = errors.New("not found")

// Remote is an error reported by the GitHub API. Message holds the
// human-readable text extracted from the error payload when available,
// otherwise the raw response body.
type Remote struct {
	StatusCode int
	Message    string
}

func (e *Remote) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// AsRemote reports whether err carries a remote API error, returning it.
func AsRemote(err error) (*Remote, bool) {
	var r *Remote
	ok := errors.As(err, &r)
	return r, ok
}
