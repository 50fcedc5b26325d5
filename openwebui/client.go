// Package openwebui is a typed convenience client for the Open WebUI REST
// API: chat CRUD, folder organization, knowledge base management and a RAG
// workflow that augments prompts with retrieved knowledge base context before
// calling the chat-completion endpoint.
package openwebui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/owui-tools/owui/config"
)

const userAgent = "owui-cli/" + clientVersion

// clientVersion is reported in the User-Agent header.
const clientVersion = "1.0.0"

// Client talks to a single Open WebUI server with bearer-token auth.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger

	// uploadConcurrency bounds parallel file transfers in batch operations.
	uploadConcurrency int
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger attaches a zap logger; the default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With(zap.String("component", "openwebui_client"))
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUploadConcurrency sets the parallelism of batch uploads and deletes.
func WithUploadConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.uploadConcurrency = n
		}
	}
}

// New creates a client from a resolved configuration.
func New(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		baseURL: normalizeBaseURL(cfg.ServerURL),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:            zap.NewNop(),
		uploadConcurrency: defaultUploadConcurrency,
	}
	if c.httpClient.Timeout == 0 {
		c.httpClient.Timeout = config.DefaultTimeout
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger.Debug("Client configured", zap.String("base_url", c.baseURL))
	return c
}

// normalizeBaseURL ensures proper URL format
func normalizeBaseURL(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimSuffix(host, "/")

	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}

	return host
}

// do sends a JSON request and decodes the response into out (which may be
// nil when no body is expected). resource names the operation for error
// messages and logs.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, resource string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", resource, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.addAuthHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ConnectionError{Err: err}
	}

	c.logger.Debug("Request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	return c.handleResponse(resp.StatusCode, respBody, out, resource)
}

// uploadMultipart posts a single file as multipart/form-data and decodes the
// response into out.
func (c *Client) uploadMultipart(ctx context.Context, path, fieldName, fileName, mimeType string, content []byte, out interface{}, resource string) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{
		fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, fileName),
	}
	header["Content-Type"] = []string{mimeType}

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.addAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ConnectionError{Err: err}
	}

	return c.handleResponse(resp.StatusCode, respBody, out, resource)
}

// addAuthHeaders adds bearer auth and standard headers.
func (c *Client) addAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
}
