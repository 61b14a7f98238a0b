package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filesearch/internal/classify"
	"filesearch/internal/domain"
	"filesearch/internal/embedding/local"
	"filesearch/internal/extract"
	"filesearch/internal/service"
	"filesearch/internal/vectorstore/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	files := map[string]string{
		"notes/garden.txt":  "Tomatoes and basil grow well in the summer garden.",
		"notes/finance.md":  "Quarterly budget review and tax receipts.",
		"code/app.py":       "def main(): print('hello')",
		"notes/ignored.bin": "binary",
	}
	for name, body := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cls := classify.New([]string{".png", ".jpg"}, []string{".txt", ".md", ".py"}, []string{".pdf"})
	svc, err := service.New(context.Background(), cls, extract.New(local.NewEmbedder(1024), nil, 0), memory.NewStorage(), service.Options{
		BatchSize:    2,
		Logger:       log,
		EmbedderName: "local",
		StoreName:    "memory",
	})
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(svc, 5, log))
	t.Cleanup(srv.Close)
	return srv, root
}

type searchResponse struct {
	Query   string                `json:"query"`
	Results []domain.SearchResult `json:"results"`
	Total   int                   `json:"total"`
}

func postJSON(t *testing.T, u string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(u, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestSearchRequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/search")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["error"], "'q'")

	resp, err = http.Get(srv.URL + "/api/search?q=x&limit=abc")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestSearchEmptyIndex(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/search?q=garden")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, []any{}, body["results"])
	assert.Equal(t, float64(0), body["total"])
}

func TestIndexSearchRemoveFlow(t *testing.T) {
	srv, root := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/index", indexRequest{Directories: []string{root}, Categories: []string{"text"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[domain.IngestReport](t, resp)
	assert.Equal(t, 3, report.Committed)

	resp, err := http.Get(srv.URL + "/api/search?q=" + url.QueryEscape("summer garden basil") + "&limit=2")
	require.NoError(t, err)
	body := decode[searchResponse](t, resp)
	assert.Equal(t, "summer garden basil", body.Query)
	require.Equal(t, 2, body.Total)
	assert.Equal(t, "garden.txt", body.Results[0].Name)
	assert.Equal(t, domain.CategoryText, body.Results[0].Category)
	assert.GreaterOrEqual(t, body.Results[0].Similarity, body.Results[1].Similarity)

	resp, err = http.Get(srv.URL + "/api/directories")
	require.NoError(t, err)
	dirs := decode[map[string][]string](t, resp)
	assert.Equal(t, []string{filepath.Join(root, "code"), filepath.Join(root, "notes")}, dirs["directories"])

	resp, err = http.Get(srv.URL + "/api/files?dir=" + url.QueryEscape(filepath.Join(root, "notes")))
	require.NoError(t, err)
	files := decode[map[string][]service.FileEntry](t, resp)
	require.Len(t, files["files"], 2)
	assert.Equal(t, "finance.md", files["files"][0].RelativePath)
	assert.Equal(t, filepath.Join(root, "notes", "finance.md"), files["files"][0].Path)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/index?path="+url.QueryEscape(filepath.Join(root, "notes")), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	removed := decode[map[string]int](t, resp)
	assert.Equal(t, 2, removed["removed"])

	resp, err = http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	st := decode[service.Status](t, resp)
	assert.Equal(t, service.Status{IndexCount: 1, Embedder: "local", Store: "memory"}, st)
}

func TestIndexBadRequests(t *testing.T) {
	srv, root := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/index", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/index", indexRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/index", indexRequest{Directories: []string{root}, Categories: []string{"video"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/index", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/files")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
