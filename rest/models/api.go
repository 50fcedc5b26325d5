package models

import "github.com/owui-tools/owui/types"

// REST API request and response structures

// APIResponse represents a generic API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ChatCreateRequest starts a new chat
type ChatCreateRequest struct {
	Model            string                  `json:"model"`
	Prompt           string                  `json:"prompt"`
	FolderID         *string                 `json:"folder_id,omitempty"`
	KnowledgeBaseIDs []string                `json:"kb_ids,omitempty"`
	RetrievalOptions *types.RetrievalOptions `json:"retrieval_options,omitempty"`
}

// ChatContinueRequest continues an existing chat
type ChatContinueRequest struct {
	ChatID           string                  `json:"chat_id"`
	Prompt           string                  `json:"prompt"`
	KnowledgeBaseIDs []string                `json:"kb_ids,omitempty"`
	RetrievalOptions *types.RetrievalOptions `json:"retrieval_options,omitempty"`
}

// RenameRequest renames a chat or folder
type RenameRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FolderRequest creates a folder
type FolderRequest struct {
	Name string `json:"name"`
}

// KnowledgeRequest creates a knowledge base
type KnowledgeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// QueryRequest runs a retrieval query against knowledge bases
type QueryRequest struct {
	Query            string                  `json:"query"`
	KnowledgeBaseIDs []string                `json:"kb_ids"`
	RetrievalOptions *types.RetrievalOptions `json:"retrieval_options,omitempty"`
}
