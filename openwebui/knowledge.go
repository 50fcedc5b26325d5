package openwebui

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/owui-tools/owui/types"
)

// defaultUploadConcurrency bounds parallel transfers in batch operations.
const defaultUploadConcurrency = 4

// defaultIgnoreFile is picked up from the root of an uploaded directory when
// no explicit ignore file is given.
const defaultIgnoreFile = ".kbignore"

// CreateKnowledge creates an empty knowledge base.
func (c *Client) CreateKnowledge(ctx context.Context, name, description string) (*types.KnowledgeBase, error) {
	form := types.KnowledgeForm{Name: name, Description: description}
	var kb types.KnowledgeBase
	if err := c.do(ctx, http.MethodPost, "/api/v1/knowledge/create", form, &kb, "knowledge base"); err != nil {
		return nil, err
	}
	c.logger.Debug("Knowledge base created", zap.String("id", kb.ID), zap.String("name", name))
	return &kb, nil
}

// ListKnowledge returns every knowledge base visible to the user.
func (c *Client) ListKnowledge(ctx context.Context) ([]types.KnowledgeBase, error) {
	var kbs []types.KnowledgeBase
	if err := c.do(ctx, http.MethodGet, "/api/v1/knowledge/list", nil, &kbs, "knowledge bases"); err != nil {
		return nil, err
	}
	return kbs, nil
}

// DeleteKnowledge removes a knowledge base. Files uploaded into it are not
// deleted; use DeleteAllFiles first for a full cleanup.
func (c *Client) DeleteKnowledge(ctx context.Context, kbID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/knowledge/"+kbID+"/delete", nil, nil, "knowledge base "+kbID)
}

// ListKnowledgeFiles returns the files attached to a knowledge base.
func (c *Client) ListKnowledgeFiles(ctx context.Context, kbID string) ([]types.FileMetadata, error) {
	var kb types.KnowledgeBase
	if err := c.do(ctx, http.MethodGet, "/api/v1/knowledge/"+kbID, nil, &kb, "knowledge base "+kbID); err != nil {
		return nil, err
	}
	return kb.Files, nil
}

// queryCollectionsResponse is the columnar shape of the retrieval endpoint:
// one row of documents and metadatas per queried collection.
type queryCollectionsResponse struct {
	Documents [][]string                 `json:"documents"`
	Metadatas [][]map[string]interface{} `json:"metadatas"`
}

// QueryCollections runs a retrieval query against one or more knowledge
// bases and returns the matching chunks as a flat, ordered list.
func (c *Client) QueryCollections(ctx context.Context, query string, kbIDs []string, opts *types.RetrievalOptions) ([]types.DocumentChunk, error) {
	form := types.QueryCollectionsForm{
		CollectionNames: kbIDs,
		Query:           query,
	}
	if opts != nil {
		form.RetrievalOptions = *opts
	}

	var resp queryCollectionsResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/retrieval/query/collection", form, &resp, "retrieval query"); err != nil {
		return nil, err
	}

	var chunks []types.DocumentChunk
	for row, docs := range resp.Documents {
		for col, doc := range docs {
			chunk := types.DocumentChunk{Content: doc}
			if row < len(resp.Metadatas) && col < len(resp.Metadatas[row]) {
				chunk.Metadata = resp.Metadatas[row][col]
			}
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

// UploadFile uploads a local file and, when kbID is non-empty, associates it
// with that knowledge base.
func (c *Client) UploadFile(ctx context.Context, path, kbID string) (*types.FileModel, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	filename := filepath.Base(path)
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	var file types.FileModel
	if err := c.uploadMultipart(ctx, "/api/v1/files/", "file", filename, mimeType, content, &file, "file "+filename); err != nil {
		return nil, err
	}
	c.logger.Debug("File uploaded", zap.String("file_id", file.ID), zap.String("filename", filename))

	if kbID != "" {
		if err := c.addFilesToKnowledge(ctx, kbID, []string{file.ID}); err != nil {
			return nil, fmt.Errorf("file %s uploaded but attaching it to knowledge base %s failed: %w", file.ID, kbID, err)
		}
	}
	return &file, nil
}

// UploadDirectory walks dir recursively and uploads every regular file,
// honoring gitignore-style patterns from ignoreFile (or a .kbignore in the
// directory root when ignoreFile is empty). Uploads run concurrently;
// individual failures are logged and skipped, and the successfully uploaded
// files are attached to the knowledge base in one batch. An error is returned
// only when nothing could be uploaded at all.
func (c *Client) UploadDirectory(ctx context.Context, dir, kbID, ignoreFile string) ([]types.FileModel, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	matcher, ignorePath := c.loadIgnoreMatcher(dir, ignoreFile)

	var paths []string
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if path == ignorePath {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to upload in %s", dir)
	}

	var (
		mu       sync.Mutex
		uploaded []types.FileModel
		failed   int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.uploadConcurrency)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			file, err := c.UploadFile(gctx, path, "")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				c.logger.Warn("Upload failed, skipping file", zap.String("path", path), zap.Error(err))
				return nil
			}
			uploaded = append(uploaded, *file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(uploaded) == 0 {
		return nil, fmt.Errorf("all %d uploads from %s failed", failed, dir)
	}

	fileIDs := make([]string, 0, len(uploaded))
	for _, f := range uploaded {
		fileIDs = append(fileIDs, f.ID)
	}
	if err := c.addFilesToKnowledge(ctx, kbID, fileIDs); err != nil {
		return nil, fmt.Errorf("uploaded %d files but attaching them to knowledge base %s failed: %w", len(uploaded), kbID, err)
	}

	c.logger.Info("Directory uploaded",
		zap.String("dir", dir),
		zap.Int("uploaded", len(uploaded)),
		zap.Int("failed", failed))
	return uploaded, nil
}

// UpdateFileContent replaces the content of an already-uploaded file with
// the content of a local file, triggering re-indexing on the server.
func (c *Client) UpdateFileContent(ctx context.Context, fileID, path string) (*types.FileModel, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	body := map[string]string{"content": string(content)}
	var file types.FileModel
	if err := c.do(ctx, http.MethodPost, "/api/v1/files/"+fileID+"/data/content/update", body, &file, "file "+fileID); err != nil {
		return nil, err
	}
	return &file, nil
}

// DeleteFile removes an uploaded file.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/files/"+fileID, nil, nil, "file "+fileID)
}

// DeleteAllFiles deletes every file attached to a knowledge base, tolerating
// per-file failures. A missing knowledge base is an error; per-file failures
// only show up in the returned tally.
func (c *Client) DeleteAllFiles(ctx context.Context, kbID string) (*types.BatchResult, error) {
	files, err := c.ListKnowledgeFiles(ctx, kbID)
	if err != nil {
		return nil, err
	}

	result := &types.BatchResult{}
	if len(files) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.uploadConcurrency)
	for _, f := range files {
		fileID := f.ID
		g.Go(func() error {
			err := c.DeleteFile(gctx, fileID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				c.logger.Warn("File deletion failed", zap.String("file_id", fileID), zap.Error(err))
				return nil
			}
			result.Successful++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Info("Knowledge base files deleted",
		zap.String("kb_id", kbID),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed))
	return result, nil
}

// addFilesToKnowledge attaches a batch of uploaded files in one call.
func (c *Client) addFilesToKnowledge(ctx context.Context, kbID string, fileIDs []string) error {
	forms := make([]types.KnowledgeFileIDForm, 0, len(fileIDs))
	for _, id := range fileIDs {
		forms = append(forms, types.KnowledgeFileIDForm{FileID: id})
	}
	return c.do(ctx, http.MethodPost, "/api/v1/knowledge/"+kbID+"/files/batch/add", forms, nil, "knowledge base "+kbID)
}

// loadIgnoreMatcher compiles the ignore file for a directory upload. The
// returned path is excluded from the upload set itself.
func (c *Client) loadIgnoreMatcher(dir, ignoreFile string) (*ignore.GitIgnore, string) {
	path := ignoreFile
	if path == "" {
		path = filepath.Join(dir, defaultIgnoreFile)
	}
	if _, err := os.Stat(path); err != nil {
		if ignoreFile != "" {
			c.logger.Warn("Ignore file not readable, uploading everything", zap.String("path", ignoreFile), zap.Error(err))
		}
		return nil, ""
	}

	matcher, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		c.logger.Warn("Failed to parse ignore file, uploading everything", zap.String("path", path), zap.Error(err))
		return nil, ""
	}
	// Re-express the path relative to dir so it matches the walker's
	// spelling regardless of how the caller wrote it.
	rel, err := filepath.Rel(dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return matcher, ""
	}
	return matcher, filepath.Join(dir, rel)
}
