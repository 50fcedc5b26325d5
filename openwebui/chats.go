package openwebui

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/owui-tools/owui/types"
)

// contextSeparator joins retrieved chunks inside the augmented prompt.
const contextSeparator = "\n\n---\n\n"

// ragPromptTemplate wraps the retrieved context and the user question.
const ragPromptTemplate = "Please use the following context to answer the question.\n\n--- Context ---\n%s\n\n--- Question ---\n%s"

// completionRequest is the payload for the OpenAI-compatible completion
// endpoint. Streaming is always off; the full answer is needed to store it in
// the chat history.
type completionRequest struct {
	Model    string          `json:"model"`
	Messages []types.Message `json:"messages"`
	Stream   bool            `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message types.Message `json:"message"`
	} `json:"choices"`
}

// CreateChat starts a new chat: the prompt is optionally augmented with
// context retrieved from the given knowledge bases, sent to the model, and
// the resulting exchange is stored as a chat. The chat history always records
// the original prompt, never the augmented one.
func (c *Client) CreateChat(ctx context.Context, model, prompt string, folderID *string, kbIDs []string, opts *types.RetrievalOptions) (*types.ChatResponse, error) {
	sendPrompt := c.maybeAugment(ctx, prompt, kbIDs, opts)

	answer, err := c.complete(ctx, model, []types.Message{
		{Role: "user", Content: sendPrompt},
	})
	if err != nil {
		return nil, err
	}

	chat := types.ChatObject{
		Models: []string{model},
		Messages: []types.Message{
			{Role: "user", Content: prompt},
			{Role: "assistant", Content: answer},
		},
	}
	if err := chat.Set("title", deriveTitle(prompt)); err != nil {
		return nil, err
	}

	form := types.ChatForm{Chat: chat, FolderID: folderID}
	var created types.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/chats/new", form, &created, "chat"); err != nil {
		return nil, err
	}

	c.logger.Debug("Chat created", zap.String("chat_id", created.ID), zap.String("model", model))
	return &created, nil
}

// ContinueChat appends a new exchange to an existing chat, reusing the
// chat's model. As with CreateChat, retrieval context only reaches the model,
// not the stored history.
func (c *Client) ContinueChat(ctx context.Context, chatID, prompt string, kbIDs []string, opts *types.RetrievalOptions) (*types.ChatResponse, error) {
	existing, err := c.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(existing.Chat.Models) == 0 {
		return nil, fmt.Errorf("chat %s has no model recorded, cannot continue it", chatID)
	}
	model := existing.Chat.Models[0]

	sendPrompt := c.maybeAugment(ctx, prompt, kbIDs, opts)

	// The model sees the stored history plus the (possibly augmented) new
	// prompt.
	history := make([]types.Message, 0, len(existing.Chat.Messages)+1)
	history = append(history, existing.Chat.Messages...)
	history = append(history, types.Message{Role: "user", Content: sendPrompt})

	answer, err := c.complete(ctx, model, history)
	if err != nil {
		return nil, err
	}

	existing.Chat.Messages = append(existing.Chat.Messages,
		types.Message{Role: "user", Content: prompt},
		types.Message{Role: "assistant", Content: answer})

	// The folder assignment rides along on every update, otherwise the
	// server would unfile the chat.
	form := types.ChatForm{Chat: existing.Chat, FolderID: existing.FolderID}
	var updated types.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/chats/"+chatID, form, &updated, "chat "+chatID); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListChats returns all chats of the authenticated user, newest first.
func (c *Client) ListChats(ctx context.Context) ([]types.ChatTitleID, error) {
	var chats []types.ChatTitleID
	if err := c.do(ctx, http.MethodGet, "/api/v1/chats/list", nil, &chats, "chats"); err != nil {
		return nil, err
	}
	return chats, nil
}

// ListChatsByFolder returns the chats filed under a folder.
func (c *Client) ListChatsByFolder(ctx context.Context, folderID string) ([]types.ChatTitleID, error) {
	folder, err := c.GetFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.Items == nil {
		return nil, nil
	}
	return folder.Items.Chats, nil
}

// GetChat fetches a full chat record including its message history.
func (c *Client) GetChat(ctx context.Context, chatID string) (*types.ChatResponse, error) {
	var chat types.ChatResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/chats/"+chatID, nil, &chat, "chat "+chatID); err != nil {
		return nil, err
	}
	return &chat, nil
}

// RenameChat changes a chat's title, preserving the rest of the chat
// document.
func (c *Client) RenameChat(ctx context.Context, chatID, newTitle string) (*types.ChatResponse, error) {
	existing, err := c.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := existing.Chat.Set("title", newTitle); err != nil {
		return nil, err
	}

	form := types.ChatForm{Chat: existing.Chat, FolderID: existing.FolderID}
	var updated types.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/chats/"+chatID, form, &updated, "chat "+chatID); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteChat removes a chat permanently.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/chats/"+chatID, nil, nil, "chat "+chatID)
}

// complete calls the OpenAI-compatible completion endpoint and returns the
// assistant's answer.
func (c *Client) complete(ctx context.Context, model string, messages []types.Message) (string, error) {
	req := completionRequest{Model: model, Messages: messages, Stream: false}
	var resp completionResponse
	if err := c.do(ctx, http.MethodPost, "/openai/chat/completions", req, &resp, "completion"); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion for model %s returned no choices", model)
	}
	return resp.Choices[0].Message.Content, nil
}

// maybeAugment runs the retrieval step and wraps the prompt with the
// retrieved context. Retrieval failures and empty results are tolerated: the
// chat proceeds with the raw prompt.
func (c *Client) maybeAugment(ctx context.Context, prompt string, kbIDs []string, opts *types.RetrievalOptions) string {
	if len(kbIDs) == 0 {
		return prompt
	}

	chunks, err := c.QueryCollections(ctx, prompt, kbIDs, opts)
	if err != nil {
		c.logger.Warn("Knowledge base query failed, continuing without context",
			zap.Strings("kb_ids", kbIDs), zap.Error(err))
		return prompt
	}
	if len(chunks) == 0 {
		c.logger.Debug("Knowledge base query returned no chunks", zap.Strings("kb_ids", kbIDs))
		return prompt
	}

	contents := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		contents = append(contents, chunk.Content)
	}
	contextBlock := strings.Join(contents, contextSeparator)
	if strings.TrimSpace(contextBlock) == "" {
		c.logger.Debug("Knowledge base query returned no usable content", zap.Strings("kb_ids", kbIDs))
		return prompt
	}

	c.logger.Debug("Prompt augmented with retrieved context",
		zap.Int("chunks", len(chunks)), zap.Int("context_bytes", len(contextBlock)))
	return fmt.Sprintf(ragPromptTemplate, contextBlock, prompt)
}

// deriveTitle builds an initial chat title from the first prompt.
func deriveTitle(prompt string) string {
	const maxTitle = 50
	title := strings.TrimSpace(prompt)
	if fields := strings.Fields(title); len(fields) > 0 {
		title = strings.Join(fields, " ")
	}
	if runes := []rune(title); len(runes) > maxTitle {
		title = string(runes[:maxTitle]) + "..."
	}
	if title == "" {
		title = "New Chat"
	}
	return title
}
