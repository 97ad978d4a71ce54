package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNetwork marks transport-level failures: the request never completed
// and no HTTP status is available. Match with errors.Is.
var ErrNetwork = errors.New("network error")

// Error is a non-2xx response from the backend.
type Error struct {
	Path       string
	Status     int
	StatusText string
	Detail     string // decoded "detail" field when the body was JSON
	Body       string // raw response body
}

// Error renders "API <path> failed: <status> <statusText> <detail>", where
// the trailing part is the decoded detail when the body parsed as JSON and
// the raw body text otherwise.
func (e *Error) Error() string {
	tail := e.Detail
	if tail == "" {
		tail = e.Body
	}
	msg := fmt.Sprintf("API %s failed: %d %s %s", e.Path, e.Status, e.StatusText, tail)
	return strings.TrimRight(msg, " ")
}
