package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadFile(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/klue/bert-base/resolve/main/tokenizer.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"vocab": {}}`))
	}))
	defer server.Close()

	repo := New("klue/bert-base").
		WithBaseURL(server.URL).
		WithCacheDir(t.TempDir())

	path, err := repo.DownloadFile(context.Background(), "tokenizer.json")
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"vocab": {}}`, string(content))

	// A second fetch hits the cache, not the server.
	again, err := repo.DownloadFile(context.Background(), "tokenizer.json")
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, int32(1), hits.Load())

	// No temporary or lock files left behind.
	assert.NoFileExists(t, path+".downloading")
	assert.NoFileExists(t, path+".lock")
}

func TestDownloadFile_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	repo := New("klue/bert-base").
		WithBaseURL(server.URL).
		WithCacheDir(t.TempDir())

	_, err := repo.DownloadFile(context.Background(), "missing.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestDownloadFile_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := New("klue/bert-base").WithCacheDir(t.TempDir())
	_, err := repo.DownloadFile(ctx, "tokenizer.json")
	require.Error(t, err)
}

func TestFileURL(t *testing.T) {
	repo := New("klue/bert-base")
	assert.Equal(t, "https://huggingface.co/klue/bert-base/resolve/main/tokenizer.json",
		repo.FileURL("tokenizer.json"))
}
