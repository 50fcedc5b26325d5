package types

import (
	"context"
	"encoding/json"
)

// Open WebUI response structures - shared between SDK, CLI and REST proxy

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatObject is the inner "chat" document stored with every chat session.
// The server attaches free-form fields (history, params, tags, ...) to this
// object; they are preserved across get/update round trips so that updating a
// chat never strips server-side state.
type ChatObject struct {
	Models   []string  `json:"-"`
	Messages []Message `json:"-"`

	// extra holds every field of the chat document we do not model explicitly.
	extra map[string]json.RawMessage
}

// Set stores a free-form field on the chat document (e.g. "title").
func (c *ChatObject) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.extra == nil {
		c.extra = make(map[string]json.RawMessage)
	}
	c.extra[key] = raw
	return nil
}

// Get returns a free-form field of the chat document, or false if absent.
func (c *ChatObject) Get(key string) (json.RawMessage, bool) {
	raw, ok := c.extra[key]
	return raw, ok
}

// UnmarshalJSON decodes the chat document, lifting "models" and "messages"
// into typed fields and keeping everything else verbatim.
func (c *ChatObject) UnmarshalJSON(data []byte) error {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if raw, ok := fields["models"]; ok {
		if err := json.Unmarshal(raw, &c.Models); err != nil {
			return err
		}
		delete(fields, "models")
	}
	if raw, ok := fields["messages"]; ok {
		if err := json.Unmarshal(raw, &c.Messages); err != nil {
			return err
		}
		delete(fields, "messages")
	}

	c.extra = fields
	return nil
}

// MarshalJSON re-assembles the chat document, typed fields winning over any
// stale copies in the free-form set.
func (c ChatObject) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(c.extra)+2)
	for k, v := range c.extra {
		fields[k] = v
	}

	models := c.Models
	if models == nil {
		models = []string{}
	}
	rawModels, err := json.Marshal(models)
	if err != nil {
		return nil, err
	}
	fields["models"] = rawModels

	messages := c.Messages
	if messages == nil {
		messages = []Message{}
	}
	rawMessages, err := json.Marshal(messages)
	if err != nil {
		return nil, err
	}
	fields["messages"] = rawMessages

	return json.Marshal(fields)
}

// ChatResponse is the full chat record returned by the server.
type ChatResponse struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id,omitempty"`
	Title     string     `json:"title"`
	Chat      ChatObject `json:"chat"`
	FolderID  *string    `json:"folder_id,omitempty"`
	Archived  bool       `json:"archived,omitempty"`
	CreatedAt int64      `json:"created_at,omitempty"`
	UpdatedAt int64      `json:"updated_at,omitempty"`
}

// ChatTitleID is the compact chat listing entry.
type ChatTitleID struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

// ChatForm is the payload for creating or updating a chat.
type ChatForm struct {
	Chat     ChatObject `json:"chat"`
	FolderID *string    `json:"folder_id,omitempty"`
}

// Folder models a chat folder.
type Folder struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id,omitempty"`
	Name      string       `json:"name"`
	ParentID  *string      `json:"parent_id,omitempty"`
	Items     *FolderItems `json:"items,omitempty"`
	CreatedAt int64        `json:"created_at,omitempty"`
	UpdatedAt int64        `json:"updated_at,omitempty"`
}

// FolderItems lists the contents of a folder.
type FolderItems struct {
	Chats []ChatTitleID `json:"chats,omitempty"`
}

// FolderForm is the payload for creating or renaming a folder.
type FolderForm struct {
	Name string `json:"name"`
}

// KnowledgeBase models a knowledge base (a retrieval collection).
type KnowledgeBase struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Files       []FileMetadata `json:"files,omitempty"`
	CreatedAt   int64          `json:"created_at,omitempty"`
	UpdatedAt   int64          `json:"updated_at,omitempty"`
}

// KnowledgeForm is the payload for creating a knowledge base.
type KnowledgeForm struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// KnowledgeFileIDForm associates an uploaded file with a knowledge base.
type KnowledgeFileIDForm struct {
	FileID string `json:"file_id"`
}

// FileModel is the record returned after uploading a file.
type FileModel struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id,omitempty"`
	Filename  string                 `json:"filename"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	CreatedAt int64                  `json:"created_at,omitempty"`
}

// FileMetadata is the compact file entry listed under a knowledge base.
type FileMetadata struct {
	ID        string                 `json:"id"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	CreatedAt int64                  `json:"created_at,omitempty"`
	UpdatedAt int64                  `json:"updated_at,omitempty"`
}

// RetrievalOptions tunes a knowledge base query. Nil fields are omitted from
// the request so the server falls back to its own defaults.
type RetrievalOptions struct {
	K                *int     `json:"k,omitempty"`
	KReranker        *int     `json:"k_reranker,omitempty"`
	R                *float64 `json:"r,omitempty"`
	Hybrid           *bool    `json:"hybrid,omitempty"`
	HybridBM25Weight *float64 `json:"hybrid_bm25_weight,omitempty"`
}

// QueryCollectionsForm is the payload for the retrieval endpoint.
type QueryCollectionsForm struct {
	CollectionNames []string `json:"collection_names"`
	Query           string   `json:"query"`
	RetrievalOptions
}

// DocumentChunk is one retrieved text chunk, normalized from the columnar
// retrieval response.
type DocumentChunk struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"meta,omitempty"`
}

// BatchResult tallies a partial-failure-tolerant batch operation.
type BatchResult struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Client interface - shared contract between the CLI and the REST proxy.
type Client interface {
	// Folder operations
	ListFolders(ctx context.Context) ([]Folder, error)
	CreateFolder(ctx context.Context, name string) (*Folder, error)
	GetFolder(ctx context.Context, folderID string) (*Folder, error)
	RenameFolder(ctx context.Context, folderID, name string) error
	DeleteFolder(ctx context.Context, folderID string) error

	// Chat operations
	CreateChat(ctx context.Context, model, prompt string, folderID *string, kbIDs []string, opts *RetrievalOptions) (*ChatResponse, error)
	ContinueChat(ctx context.Context, chatID, prompt string, kbIDs []string, opts *RetrievalOptions) (*ChatResponse, error)
	ListChats(ctx context.Context) ([]ChatTitleID, error)
	ListChatsByFolder(ctx context.Context, folderID string) ([]ChatTitleID, error)
	GetChat(ctx context.Context, chatID string) (*ChatResponse, error)
	RenameChat(ctx context.Context, chatID, newTitle string) (*ChatResponse, error)
	DeleteChat(ctx context.Context, chatID string) error

	// Knowledge base and file operations
	CreateKnowledge(ctx context.Context, name, description string) (*KnowledgeBase, error)
	ListKnowledge(ctx context.Context) ([]KnowledgeBase, error)
	DeleteKnowledge(ctx context.Context, kbID string) error
	ListKnowledgeFiles(ctx context.Context, kbID string) ([]FileMetadata, error)
	QueryCollections(ctx context.Context, query string, kbIDs []string, opts *RetrievalOptions) ([]DocumentChunk, error)
	UploadFile(ctx context.Context, path, kbID string) (*FileModel, error)
	UploadDirectory(ctx context.Context, dir, kbID, ignoreFile string) ([]FileModel, error)
	UpdateFileContent(ctx context.Context, fileID, path string) (*FileModel, error)
	DeleteFile(ctx context.Context, fileID string) error
	DeleteAllFiles(ctx context.Context, kbID string) (*BatchResult, error)
}
