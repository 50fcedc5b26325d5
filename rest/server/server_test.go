package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/owui-tools/owui/openwebui"
	"github.com/owui-tools/owui/rest/models"
	"github.com/owui-tools/owui/types"
)

// fakeClient implements types.Client with overridable behavior per test.
type fakeClient struct {
	createChat  func(ctx context.Context, model, prompt string, folderID *string, kbIDs []string, opts *types.RetrievalOptions) (*types.ChatResponse, error)
	listChats   func(ctx context.Context) ([]types.ChatTitleID, error)
	getChat     func(ctx context.Context, chatID string) (*types.ChatResponse, error)
	deleteChat  func(ctx context.Context, chatID string) error
	listFolders func(ctx context.Context) ([]types.Folder, error)
	query       func(ctx context.Context, query string, kbIDs []string, opts *types.RetrievalOptions) ([]types.DocumentChunk, error)
}

func (f *fakeClient) ListFolders(ctx context.Context) ([]types.Folder, error) {
	if f.listFolders != nil {
		return f.listFolders(ctx)
	}
	return nil, nil
}

func (f *fakeClient) CreateFolder(ctx context.Context, name string) (*types.Folder, error) {
	return &types.Folder{ID: "folder-1", Name: name}, nil
}

func (f *fakeClient) GetFolder(ctx context.Context, folderID string) (*types.Folder, error) {
	return &types.Folder{ID: folderID}, nil
}

func (f *fakeClient) RenameFolder(ctx context.Context, folderID, name string) error { return nil }
func (f *fakeClient) DeleteFolder(ctx context.Context, folderID string) error       { return nil }

func (f *fakeClient) CreateChat(ctx context.Context, model, prompt string, folderID *string, kbIDs []string, opts *types.RetrievalOptions) (*types.ChatResponse, error) {
	if f.createChat != nil {
		return f.createChat(ctx, model, prompt, folderID, kbIDs, opts)
	}
	return &types.ChatResponse{ID: "chat-1"}, nil
}

func (f *fakeClient) ContinueChat(ctx context.Context, chatID, prompt string, kbIDs []string, opts *types.RetrievalOptions) (*types.ChatResponse, error) {
	return &types.ChatResponse{ID: chatID}, nil
}

func (f *fakeClient) ListChats(ctx context.Context) ([]types.ChatTitleID, error) {
	if f.listChats != nil {
		return f.listChats(ctx)
	}
	return nil, nil
}

func (f *fakeClient) ListChatsByFolder(ctx context.Context, folderID string) ([]types.ChatTitleID, error) {
	return nil, nil
}

func (f *fakeClient) GetChat(ctx context.Context, chatID string) (*types.ChatResponse, error) {
	if f.getChat != nil {
		return f.getChat(ctx, chatID)
	}
	return &types.ChatResponse{ID: chatID}, nil
}

func (f *fakeClient) RenameChat(ctx context.Context, chatID, newTitle string) (*types.ChatResponse, error) {
	return &types.ChatResponse{ID: chatID, Title: newTitle}, nil
}

func (f *fakeClient) DeleteChat(ctx context.Context, chatID string) error {
	if f.deleteChat != nil {
		return f.deleteChat(ctx, chatID)
	}
	return nil
}

func (f *fakeClient) CreateKnowledge(ctx context.Context, name, description string) (*types.KnowledgeBase, error) {
	return &types.KnowledgeBase{ID: "kb-1", Name: name, Description: description}, nil
}

func (f *fakeClient) ListKnowledge(ctx context.Context) ([]types.KnowledgeBase, error) {
	return nil, nil
}

func (f *fakeClient) DeleteKnowledge(ctx context.Context, kbID string) error { return nil }

func (f *fakeClient) ListKnowledgeFiles(ctx context.Context, kbID string) ([]types.FileMetadata, error) {
	return nil, nil
}

func (f *fakeClient) QueryCollections(ctx context.Context, query string, kbIDs []string, opts *types.RetrievalOptions) ([]types.DocumentChunk, error) {
	if f.query != nil {
		return f.query(ctx, query, kbIDs, opts)
	}
	return nil, nil
}

func (f *fakeClient) UploadFile(ctx context.Context, path, kbID string) (*types.FileModel, error) {
	return &types.FileModel{ID: "file-1"}, nil
}

func (f *fakeClient) UploadDirectory(ctx context.Context, dir, kbID, ignoreFile string) ([]types.FileModel, error) {
	return nil, nil
}

func (f *fakeClient) UpdateFileContent(ctx context.Context, fileID, path string) (*types.FileModel, error) {
	return &types.FileModel{ID: fileID}, nil
}

func (f *fakeClient) DeleteFile(ctx context.Context, fileID string) error { return nil }

func (f *fakeClient) DeleteAllFiles(ctx context.Context, kbID string) (*types.BatchResult, error) {
	return &types.BatchResult{}, nil
}

func newTestServer(client types.Client) *RestServer {
	return NewRestServer(&Config{Quiet: true}, zap.NewNop(), client)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestCreateChatEndpoint(t *testing.T) {
	var gotModel, gotPrompt string
	client := &fakeClient{
		createChat: func(ctx context.Context, model, prompt string, folderID *string, kbIDs []string, opts *types.RetrievalOptions) (*types.ChatResponse, error) {
			gotModel, gotPrompt = model, prompt
			return &types.ChatResponse{ID: "chat-1"}, nil
		},
	}
	rs := newTestServer(client)

	body := `{"model": "llama3", "prompt": "hello", "kb_ids": ["kb-1"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/create", strings.NewReader(body))
	rec := httptest.NewRecorder()
	rs.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "llama3", gotModel)
	assert.Equal(t, "hello", gotPrompt)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCreateChatEndpointRequiresFields(t *testing.T) {
	rs := newTestServer(&fakeClient{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/create", strings.NewReader(`{"model": "llama3"}`))
	rec := httptest.NewRecorder()
	rs.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "required")
}

func TestCreateChatEndpointRejectsGet(t *testing.T) {
	rs := newTestServer(&fakeClient{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chats/create", nil)
	rec := httptest.NewRecorder()
	rs.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetChatEndpointNotFound(t *testing.T) {
	client := &fakeClient{
		getChat: func(ctx context.Context, chatID string) (*types.ChatResponse, error) {
			return nil, &openwebui.APIError{StatusCode: http.StatusNotFound, Message: "not found"}
		},
	}
	rs := newTestServer(client)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chats/get?id=missing", nil)
	rec := httptest.NewRecorder()
	rs.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
}

func TestGetChatEndpointRequiresID(t *testing.T) {
	rs := newTestServer(&fakeClient{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chats/get", nil)
	rec := httptest.NewRecorder()
	rs.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConnectionErrorMapsToBadGateway(t *testing.T) {
	client := &fakeClient{
		listChats: func(ctx context.Context) ([]types.ChatTitleID, error) {
			return nil, &openwebui.ConnectionError{Err: context.DeadlineExceeded}
		},
	}
	rs := newTestServer(client)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chats/list", nil)
	rec := httptest.NewRecorder()
	rs.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestQueryEndpoint(t *testing.T) {
	client := &fakeClient{
		query: func(ctx context.Context, query string, kbIDs []string, opts *types.RetrievalOptions) ([]types.DocumentChunk, error) {
			return []types.DocumentChunk{{Content: "chunk"}}, nil
		},
	}
	rs := newTestServer(client)

	body := `{"query": "q", "kb_ids": ["kb-1"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/knowledge/query", strings.NewReader(body))
	rec := httptest.NewRecorder()
	rs.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestCORSPreflight(t *testing.T) {
	rs := newTestServer(&fakeClient{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chats/create", nil)
	rec := httptest.NewRecorder()
	rs.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthEndpoint(t *testing.T) {
	rs := newTestServer(&fakeClient{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	rs.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
}
