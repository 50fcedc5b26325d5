package openwebui

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/owui-tools/owui/types"
)

// ListFolders returns every folder owned by the authenticated user.
func (c *Client) ListFolders(ctx context.Context) ([]types.Folder, error) {
	var folders []types.Folder
	if err := c.do(ctx, http.MethodGet, "/api/v1/folders/", nil, &folders, "folders"); err != nil {
		return nil, err
	}
	return folders, nil
}

// CreateFolder creates a folder with the given name. The server responds to
// folder creation with the updated folder list, so the new folder is looked
// up by name afterwards.
func (c *Client) CreateFolder(ctx context.Context, name string) (*types.Folder, error) {
	form := types.FolderForm{Name: name}
	if err := c.do(ctx, http.MethodPost, "/api/v1/folders/", form, nil, "folder"); err != nil {
		return nil, err
	}

	folders, err := c.ListFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("folder created but listing it back failed: %w", err)
	}
	for i := range folders {
		if folders[i].Name == name {
			c.logger.Debug("Folder created", zap.String("id", folders[i].ID), zap.String("name", name))
			return &folders[i], nil
		}
	}
	return nil, fmt.Errorf("folder %q created but not present in folder list", name)
}

// GetFolder fetches a single folder, including its chat listing.
func (c *Client) GetFolder(ctx context.Context, folderID string) (*types.Folder, error) {
	var folder types.Folder
	if err := c.do(ctx, http.MethodGet, "/api/v1/folders/"+folderID, nil, &folder, "folder "+folderID); err != nil {
		return nil, err
	}
	return &folder, nil
}

// RenameFolder changes a folder's name.
func (c *Client) RenameFolder(ctx context.Context, folderID, name string) error {
	form := types.FolderForm{Name: name}
	return c.do(ctx, http.MethodPost, "/api/v1/folders/"+folderID+"/update", form, nil, "folder "+folderID)
}

// DeleteFolder removes a folder. Chats inside it are moved back to the root
// level by the server, not deleted.
func (c *Client) DeleteFolder(ctx context.Context, folderID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/folders/"+folderID, nil, nil, "folder "+folderID)
}

// FindFolderByName returns the folder with the exact given name, or
// ErrNotFound when no folder matches.
func (c *Client) FindFolderByName(ctx context.Context, name string) (*types.Folder, error) {
	folders, err := c.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	for i := range folders {
		if folders[i].Name == name {
			return &folders[i], nil
		}
	}
	return nil, &APIError{StatusCode: http.StatusNotFound, Resource: "folder " + name, Message: "no folder named " + name}
}
