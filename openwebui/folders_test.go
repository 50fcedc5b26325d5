package openwebui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owui-tools/owui/types"
)

func TestCreateFolderLooksUpNewFolder(t *testing.T) {
	mux := http.NewServeMux()
	created := false

	mux.HandleFunc("/api/v1/folders/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var form types.FolderForm
			require.NoError(t, json.NewDecoder(r.Body).Decode(&form))
			assert.Equal(t, "Work", form.Name)
			created = true
			w.Write([]byte(`true`))
			return
		}
		w.Write([]byte(`[{"id": "folder-1", "name": "Other"}, {"id": "folder-2", "name": "Work"}]`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := New(testCfg(srv.URL))

	folder, err := client.CreateFolder(context.Background(), "Work")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "folder-2", folder.ID)
	assert.Equal(t, "Work", folder.Name)
}

func TestCreateFolderNotListedBack(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/folders/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`true`))
			return
		}
		w.Write([]byte(`[]`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := New(testCfg(srv.URL))

	_, err := client.CreateFolder(context.Background(), "Ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not present")
}

func TestRenameFolder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/folders/folder-1/update", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var form types.FolderForm
		require.NoError(t, json.NewDecoder(r.Body).Decode(&form))
		assert.Equal(t, "Archive", form.Name)
		w.WriteHeader(http.StatusOK)
	}))

	err := client.RenameFolder(context.Background(), "folder-1", "Archive")
	assert.NoError(t, err)
}

func TestDeleteFolder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/folders/folder-1", r.URL.Path)
		assert.Equal(t, http.MethodDelete, r.Method)
		w.Write([]byte(`true`))
	}))

	err := client.DeleteFolder(context.Background(), "folder-1")
	assert.NoError(t, err)
}

func TestFindFolderByName(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": "folder-1", "name": "Work"}]`))
	}))

	folder, err := client.FindFolderByName(context.Background(), "Work")
	require.NoError(t, err)
	assert.Equal(t, "folder-1", folder.ID)

	_, err = client.FindFolderByName(context.Background(), "Nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}
