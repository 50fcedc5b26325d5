package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/owui-tools/owui/openwebui"
	"github.com/owui-tools/owui/rest/models"
	"github.com/owui-tools/owui/types"
)

// Config represents the server configuration
type Config struct {
	Verbose bool
	Quiet   bool
}

// RestServer proxies chat, folder and knowledge base operations to an
// upstream Open WebUI instance.
type RestServer struct {
	logger *zap.Logger
	config *Config
	client types.Client
	mux    *http.ServeMux
}

// NewRestServer creates a new REST server instance
func NewRestServer(config *Config, logger *zap.Logger, client types.Client) *RestServer {
	rs := &RestServer{
		logger: logger.With(zap.String("component", "rest_server")),
		config: config,
		client: client,
		mux:    http.NewServeMux(),
	}
	rs.registerRoutes()
	return rs
}

func (rs *RestServer) registerRoutes() {
	// Chat endpoints
	rs.mux.HandleFunc("/api/v1/chats/create", rs.corsHandler(rs.createChatHandler))
	rs.mux.HandleFunc("/api/v1/chats/continue", rs.corsHandler(rs.continueChatHandler))
	rs.mux.HandleFunc("/api/v1/chats/list", rs.corsHandler(rs.listChatsHandler))
	rs.mux.HandleFunc("/api/v1/chats/get", rs.corsHandler(rs.getChatHandler))
	rs.mux.HandleFunc("/api/v1/chats/rename", rs.corsHandler(rs.renameChatHandler))
	rs.mux.HandleFunc("/api/v1/chats/delete", rs.corsHandler(rs.deleteChatHandler))

	// Folder endpoints
	rs.mux.HandleFunc("/api/v1/folders/create", rs.corsHandler(rs.createFolderHandler))
	rs.mux.HandleFunc("/api/v1/folders/list", rs.corsHandler(rs.listFoldersHandler))
	rs.mux.HandleFunc("/api/v1/folders/rename", rs.corsHandler(rs.renameFolderHandler))
	rs.mux.HandleFunc("/api/v1/folders/delete", rs.corsHandler(rs.deleteFolderHandler))

	// Knowledge base endpoints
	rs.mux.HandleFunc("/api/v1/knowledge/create", rs.corsHandler(rs.createKnowledgeHandler))
	rs.mux.HandleFunc("/api/v1/knowledge/list", rs.corsHandler(rs.listKnowledgeHandler))
	rs.mux.HandleFunc("/api/v1/knowledge/query", rs.corsHandler(rs.queryKnowledgeHandler))
	rs.mux.HandleFunc("/api/v1/knowledge/delete", rs.corsHandler(rs.deleteKnowledgeHandler))

	// Health and version endpoints
	rs.mux.HandleFunc("/health", rs.healthHandler)
	rs.mux.HandleFunc("/version", rs.versionHandler)
}

// Handler returns the configured HTTP handler.
func (rs *RestServer) Handler() http.Handler {
	return rs.mux
}

// Start starts the REST server
func (rs *RestServer) Start(port string) {
	rs.logger.Info("Starting REST server", zap.String("port", port))

	if err := http.ListenAndServe(":"+port, rs.mux); err != nil {
		rs.logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// corsHandler adds CORS headers and a request ID to responses
func (rs *RestServer) corsHandler(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		rs.logger.Debug("Processing request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr))

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("X-Request-ID", requestID)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// sendSuccess sends a successful API response
func (rs *RestServer) sendSuccess(w http.ResponseWriter, data interface{}) {
	response := models.APIResponse{
		Success: true,
		Data:    data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// sendError sends an error API response
func (rs *RestServer) sendError(w http.ResponseWriter, message string, statusCode int) {
	rs.logger.Warn("API error", zap.String("error", message), zap.Int("status", statusCode))

	response := models.APIResponse{
		Success: false,
		Error:   message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// sendClientError maps upstream client errors to proxy status codes
func (rs *RestServer) sendClientError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, openwebui.ErrAuthentication):
		rs.sendError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, openwebui.ErrNotFound):
		rs.sendError(w, err.Error(), http.StatusNotFound)
	default:
		var connErr *openwebui.ConnectionError
		if errors.As(err, &connErr) {
			rs.sendError(w, err.Error(), http.StatusBadGateway)
			return
		}
		rs.sendError(w, err.Error(), http.StatusInternalServerError)
	}
}

// decodeBody decodes a JSON request body, rejecting non-POST methods
func (rs *RestServer) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		rs.sendError(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		rs.sendError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// Chat handlers

func (rs *RestServer) createChatHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ChatCreateRequest
	if !rs.decodeBody(w, r, &req) {
		return
	}
	if req.Model == "" || req.Prompt == "" {
		rs.sendError(w, "model and prompt are required", http.StatusBadRequest)
		return
	}

	chat, err := rs.client.CreateChat(r.Context(), req.Model, req.Prompt, req.FolderID, req.KnowledgeBaseIDs, req.RetrievalOptions)
	if err != nil {
		rs.sendClientError(w, err)
		return
	}
	rs.sendSuccess(w, chat)
}

func (rs *RestServer) continueChatHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ChatContinueRequest
	if !rs.decodeBody(w, r, &req) {
		return
	}
	if req.ChatID == "" || req.Prompt == "" {
		rs.sendError(w, "chat_id and prompt are required", http.StatusBadRequest)
		return
	}

	chat, err := rs.client.ContinueChat(r.Context(), req.ChatID, req.Prompt, req.KnowledgeBaseIDs, req.RetrievalOptions)
	if err != nil {
		rs.sendClientError(w, err)
		return
	}
	rs.sendSuccess(w, chat)
}

func (rs *RestServer) listChatsHandler(w http.ResponseWriter, r *http.Request) {
	if folderID := r.URL.Query().Get("folder_id"); folderID != "" {
		chats, err := rs.client.ListChatsByFolder(r.Context(), folderID)
		if err != nil {
			rs.sendClientError(w, err)
			return
		}
		rs.sendSuccess(w, chats)
		return
	}

	chats, err := rs.client.ListChats(r.Context())
	if err != nil {
		rs.sendClientError(w, err)
		return
	}
	rs.sendSuccess(w, chats)
}

func (rs *RestServer) getChatHandler(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("id")
	if chatID == "" {
		rs.sendError(w, "id query parameter is required", http.StatusBadRequest)
		return
	}

	chat, err := rs.client.GetChat(r.Context(), chatID)
	if err != nil {
		rs.sendClientError(w, err)
		return
	}
	rs.sendSuccess(w, chat)
}

func (rs *RestServer) renameChatHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RenameRequest
	if !rs.decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" || req.Name == "" {
		rs.sendError(w, "id and name are required", http.StatusBadRequest)
		return
	}

	chat, err := rs.client.RenameChat(r.Context(), req.ID, req.Name)
	if err != nil {
		rs.sendClientError(w, err)
		return
	}
	rs.sendSuccess(w, chat)
}

func (rs *RestServer) deleteChatHandler(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("id")
	if chatID == "" {
		rs.sendError(w, "id query parameter is required", http.StatusBadRequest)
		return
	}

	if err := rs.client.DeleteChat(r.Context(), chatID); err != nil {
		rs.sendClientError(w, err)
		return
	}
	rs.sendSuccess(w, map[string]string{"deleted": chatID})
}

// Folder handlers

func (rs *RestServer) createFolderHandler(w http.ResponseWriter, r *http.Request) {
	var req models.FolderRequest
	if !rs.decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		rs.sendError(w, "name is required", http.StatusBadRequest)
		return
	}

	folder, err := rs.client.CreateFolder(r.Context(), req.Name)
	if err != nil {
		rs.sendClientError(w, err)
		return
	}
	rs.sendSuccess(w, folder)
}

func (rs *RestServer) listFoldersHandler(w http.ResponseWriter, r *http.Request) {
	folders, err := rs.client.ListFolders(r.Context())
	if err != nil {
		rs.sendClientError(w, err)
		return
	}
	rs.sendSuccess(w, folders)
}

func (rs *RestServer) renameFolderHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RenameRequest
	if !rs.decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" || req.Name == "" {
		rs.sendError(w, "id and name are required", http.StatusBadRequest)
		return
	}

	if err := rs.client.RenameFolder(r.Context(), req.ID, req.Name); err != nil {
		rs.sendClientError(w, err)
		return
	}
	rs.sendSuccess(w, map[string]string{"renamed": req.ID})
}

func (rs *RestServer) deleteFolderHandler(w http.ResponseWriter, r *http.Request) {
	folderID := r.URL.Query().Get("id")
	if folderID == "" {
		rs.sendError(w, "id query parameter is required", http.StatusBadRequest)
		return
	}

	if err := rs.client.DeleteFolder(r.Context(), folderID); err != nil {
		rs.sendClientError(w, err)
		return
	}
	rs.sendSuccess(w, map[string]string{"deleted": folderID})
}

// Knowledge base handlers

func (rs *RestServer) createKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	var req models.KnowledgeRequest
	if !rs.decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		rs.sendError(w, "name is required", http.StatusBadRequest)
		return
	}

	kb, err := rs.client.CreateKnowledge(r.Context(), req.Name, req.Description)
	if err != nil {
		rs.sendClientError(w, err)
		return
	}
	rs.sendSuccess(w, kb)
}

func (rs *RestServer) listKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	kbs, err := rs.client.ListKnowledge(r.Context())
	if err != nil {
		rs.sendClientError(w, err)
		return
	}
	rs.sendSuccess(w, kbs)
}

func (rs *RestServer) queryKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if !rs.decodeBody(w, r, &req) {
		return
	}
	if req.Query == "" || len(req.KnowledgeBaseIDs) == 0 {
		rs.sendError(w, "query and kb_ids are required", http.StatusBadRequest)
		return
	}

	chunks, err := rs.client.QueryCollections(r.Context(), req.Query, req.KnowledgeBaseIDs, req.RetrievalOptions)
	if err != nil {
		rs.sendClientError(w, err)
		return
	}
	rs.sendSuccess(w, chunks)
}

func (rs *RestServer) deleteKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	kbID := r.URL.Query().Get("id")
	if kbID == "" {
		rs.sendError(w, "id query parameter is required", http.StatusBadRequest)
		return
	}

	if err := rs.client.DeleteKnowledge(r.Context(), kbID); err != nil {
		rs.sendClientError(w, err)
		return
	}
	rs.sendSuccess(w, map[string]string{"deleted": kbID})
}

// healthHandler handles health check requests
func (rs *RestServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"features": map[string]bool{
			"quiet_mode_default": true,
			"file_logging":       true,
			"chat_proxy":         true,
			"knowledge_proxy":    true,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// versionHandler handles version requests
func (rs *RestServer) versionHandler(w http.ResponseWriter, r *http.Request) {
	version := map[string]string{
		"features": "CLI and REST Services",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(version)
}
