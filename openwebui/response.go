package openwebui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// handleResponse maps an HTTP status and body to either a decoded value or a
// typed error. The Open WebUI backend is FastAPI, so 422 bodies carry a
// structured validation detail list which gets flattened into the message.
func (c *Client) handleResponse(status int, body []byte, out interface{}, resource string) error {
	switch {
	case status >= 200 && status < 300:
		if out == nil || status == http.StatusNoContent || len(strings.TrimSpace(string(body))) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", resource, err)
		}
		return nil

	case status == http.StatusUnauthorized:
		return &APIError{
			StatusCode: status,
			Resource:   resource,
			Message:    "authentication failed, check your API key",
		}

	case status == http.StatusNotFound:
		return &APIError{
			StatusCode: status,
			Resource:   resource,
			Message:    extractDetail(body, "not found"),
		}

	case status == http.StatusUnprocessableEntity:
		return &APIError{
			StatusCode: status,
			Resource:   resource,
			Message:    formatValidationError(body),
		}

	default:
		return &APIError{
			StatusCode: status,
			Resource:   resource,
			Message:    extractDetail(body, fmt.Sprintf("unexpected status %d", status)),
		}
	}
}

// extractDetail pulls the "detail" string out of a FastAPI error body,
// falling back to the raw body or the supplied default.
func extractDetail(body []byte, fallback string) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		return trimmed
	}
	return fallback
}
