package openwebui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owui-tools/owui/types"
)

func TestQueryCollectionsZipsColumnarResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/retrieval/query/collection", r.URL.Path)

		var form types.QueryCollectionsForm
		require.NoError(t, json.NewDecoder(r.Body).Decode(&form))
		assert.Equal(t, []string{"kb-1", "kb-2"}, form.CollectionNames)
		assert.Equal(t, "the query", form.Query)

		w.Write([]byte(`{
			"documents": [["a", "b"], ["c"]],
			"metadatas": [[{"source": "f1"}, {"source": "f2"}], [{"source": "f3"}]]
		}`))
	}))

	chunks, err := client.QueryCollections(context.Background(), "the query", []string{"kb-1", "kb-2"}, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "a", chunks[0].Content)
	assert.Equal(t, "f1", chunks[0].Metadata["source"])
	assert.Equal(t, "c", chunks[2].Content)
	assert.Equal(t, "f3", chunks[2].Metadata["source"])
}

func TestQueryCollectionsMissingMetadata(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"documents": [["a", "b"]], "metadatas": [[{"source": "f1"}]]}`))
	}))

	chunks, err := client.QueryCollections(context.Background(), "q", []string{"kb-1"}, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Nil(t, chunks[1].Metadata)
}

func TestQueryCollectionsSendsRetrievalOptions(t *testing.T) {
	var sent map[string]interface{}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		w.Write([]byte(`{"documents": [], "metadatas": []}`))
	}))

	k := 5
	hybrid := true
	_, err := client.QueryCollections(context.Background(), "q", []string{"kb-1"}, &types.RetrievalOptions{K: &k, Hybrid: &hybrid})
	require.NoError(t, err)

	assert.Equal(t, float64(5), sent["k"])
	assert.Equal(t, true, sent["hybrid"])
	_, hasR := sent["r"]
	assert.False(t, hasR, "unset retrieval options must be omitted")
}

func TestUploadFileAttachesToKnowledgeBase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("file content"), 0644))

	var batchAdded bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/files/", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "notes.txt", header.Filename)

		json.NewEncoder(w).Encode(types.FileModel{ID: "file-1", Filename: "notes.txt"})
	})
	mux.HandleFunc("/api/v1/knowledge/kb-1/files/batch/add", func(w http.ResponseWriter, r *http.Request) {
		var forms []types.KnowledgeFileIDForm
		require.NoError(t, json.NewDecoder(r.Body).Decode(&forms))
		require.Len(t, forms, 1)
		assert.Equal(t, "file-1", forms[0].FileID)
		batchAdded = true
		w.Write([]byte(`{}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := New(testCfg(srv.URL))

	file, err := client.UploadFile(context.Background(), path, "kb-1")
	require.NoError(t, err)
	assert.Equal(t, "file-1", file.ID)
	assert.True(t, batchAdded)
}

func TestUploadDirectoryHonorsIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("keep"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.log"), []byte("skip"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vendor"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vendor", "dep.txt"), []byte("dep"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".kbignore"), []byte("*.log\nvendor/\n"), 0644))

	var (
		uploadCount int64
		batched     []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/files/", func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		n := atomic.AddInt64(&uploadCount, 1)
		json.NewEncoder(w).Encode(types.FileModel{ID: fmt.Sprintf("file-%d", n), Filename: header.Filename})
	})
	mux.HandleFunc("/api/v1/knowledge/kb-1/files/batch/add", func(w http.ResponseWriter, r *http.Request) {
		var forms []types.KnowledgeFileIDForm
		require.NoError(t, json.NewDecoder(r.Body).Decode(&forms))
		for _, f := range forms {
			batched = append(batched, f.FileID)
		}
		w.Write([]byte(`{}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := New(testCfg(srv.URL))

	files, err := client.UploadDirectory(context.Background(), dir, "kb-1", "")
	require.NoError(t, err)

	// Only keep.txt survives: the .log file and the vendor tree are ignored,
	// and the ignore file itself is never uploaded.
	require.Len(t, files, 1)
	assert.Equal(t, int64(1), uploadCount)
	assert.Len(t, batched, 1)
}

func TestUploadDirectoryExcludesExplicitIgnoreFileAnySpelling(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.txt"), []byte("data"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.ignore"), []byte("nomatch\n"), 0644))

	var uploaded []string
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/files/", func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		mu.Lock()
		uploaded = append(uploaded, header.Filename)
		mu.Unlock()
		json.NewEncoder(w).Encode(types.FileModel{ID: "file-" + header.Filename, Filename: header.Filename})
	})
	mux.HandleFunc("/api/v1/knowledge/kb-1/files/batch/add", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := New(testCfg(srv.URL))

	// Reference the ignore file with a spelling that differs from the
	// walker's paths. It must still be excluded from the upload set.
	unclean := dir + string(filepath.Separator) + "." + string(filepath.Separator) + "custom.ignore"
	files, err := client.UploadDirectory(context.Background(), dir, "kb-1", unclean)
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Equal(t, []string{"data.txt"}, uploaded)
}

func TestUploadDirectoryToleratesPartialFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.txt"), []byte("good"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.txt"), []byte("bad"), 0644))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/files/", func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		if header.Filename == "bad.txt" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(types.FileModel{ID: "file-good", Filename: header.Filename})
	})
	mux.HandleFunc("/api/v1/knowledge/kb-1/files/batch/add", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := New(testCfg(srv.URL))

	files, err := client.UploadDirectory(context.Background(), dir, "kb-1", "")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "file-good", files[0].ID)
}

func TestUploadDirectoryAllFailed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644))

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.UploadDirectory(context.Background(), dir, "kb-1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestUploadDirectoryEmpty(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())

	_, err := client.UploadDirectory(context.Background(), t.TempDir(), "kb-1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files to upload")
}

func TestListKnowledgeFiles(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/knowledge/kb-1", r.URL.Path)
		w.Write([]byte(`{"id": "kb-1", "name": "kb", "files": [{"id": "f1"}, {"id": "f2"}]}`))
	}))

	files, err := client.ListKnowledgeFiles(context.Background(), "kb-1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "f1", files[0].ID)
}

func TestListKnowledgeFilesNone(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "kb-1", "name": "kb"}`))
	}))

	files, err := client.ListKnowledgeFiles(context.Background(), "kb-1")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDeleteAllFilesTally(t *testing.T) {
	var deleted []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/knowledge/kb-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "kb-1", "name": "kb", "files": [{"id": "f1"}, {"id": "f2"}, {"id": "f3"}]}`))
	})
	mux.HandleFunc("/api/v1/files/", func(w http.ResponseWriter, r *http.Request) {
		fileID := filepath.Base(r.URL.Path)
		if fileID == "f2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		deleted = append(deleted, fileID)
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := New(testCfg(srv.URL), WithUploadConcurrency(1))

	result, err := client.DeleteAllFiles(context.Background(), "kb-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)

	sort.Strings(deleted)
	assert.Equal(t, []string{"f1", "f3"}, deleted)
}

func TestDeleteAllFilesMissingKnowledgeBase(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.DeleteAllFiles(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAllFilesEmptyKnowledgeBase(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "kb-1", "name": "kb"}`))
	}))

	result, err := client.DeleteAllFiles(context.Background(), "kb-1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Successful)
	assert.Equal(t, 0, result.Failed)
}

func TestCreateKnowledge(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/knowledge/create", r.URL.Path)

		var form types.KnowledgeForm
		require.NoError(t, json.NewDecoder(r.Body).Decode(&form))
		assert.Equal(t, "Handbook", form.Name)

		json.NewEncoder(w).Encode(types.KnowledgeBase{ID: "kb-1", Name: form.Name, Description: form.Description})
	}))

	kb, err := client.CreateKnowledge(context.Background(), "Handbook", "company handbook")
	require.NoError(t, err)
	assert.Equal(t, "kb-1", kb.ID)
	assert.Equal(t, "company handbook", kb.Description)
}

func TestUpdateFileContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.txt")
	require.NoError(t, os.WriteFile(path, []byte("fresh content"), 0644))

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/files/file-1/data/content/update", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "fresh content", body["content"])

		json.NewEncoder(w).Encode(types.FileModel{ID: "file-1"})
	}))

	file, err := client.UpdateFileContent(context.Background(), "file-1", path)
	require.NoError(t, err)
	assert.Equal(t, "file-1", file.ID)
}
