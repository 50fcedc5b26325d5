package openwebui

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAuthentication indicates the API key is invalid, missing or expired (401).
	ErrAuthentication = errors.New("invalid or missing API key")

	// ErrNotFound indicates the requested resource does not exist (404).
	ErrNotFound = errors.New("resource not found")
)

// APIError is returned when the server answers with an error status code.
// It matches ErrAuthentication and ErrNotFound via errors.Is for the
// corresponding status codes.
type APIError struct {
	StatusCode int
	Resource   string
	Message    string
}

func (e *APIError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("API error %d for %s: %s", e.StatusCode, e.Resource, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// Is maps the well-known status codes onto their sentinel errors so callers
// can write errors.Is(err, openwebui.ErrNotFound).
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthentication:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// ConnectionError wraps network-level failures (DNS, refused connections,
// timeouts) so they are distinguishable from server-reported errors.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("a network error occurred: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// validationDetail is one entry of a FastAPI 422 "detail" list.
type validationDetail struct {
	Loc []interface{} `json:"loc"`
	Msg string        `json:"msg"`
}

// formatValidationError flattens a FastAPI validation error body into a
// readable single-line message. The raw body is returned when the shape is
// not the expected detail list.
func formatValidationError(body []byte) string {
	var payload struct {
		Detail []validationDetail `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return string(body)
	}

	parts := make([]string, 0, len(payload.Detail))
	for _, d := range payload.Detail {
		loc := make([]string, 0, len(d.Loc))
		for _, l := range d.Loc {
			loc = append(loc, fmt.Sprintf("%v", l))
		}
		parts = append(parts, fmt.Sprintf("%s: %s", strings.Join(loc, "."), d.Msg))
	}
	return "validation error: " + strings.Join(parts, "; ")
}
