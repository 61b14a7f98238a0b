package clip

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Setenv("CLIP_TEST_KEY", "k123")
	c, err := NewClient(Config{BaseURL: url + "/", APIKeyEnv: "CLIP_TEST_KEY", Model: "clip-test", ImageMaxSide: 8})
	require.NoError(t, err)
	c.backoff = time.Millisecond
	return c
}

func TestEmbedText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed/text", r.URL.Path)
		assert.Equal(t, "Bearer k123", r.Header.Get("Authorization"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "clip-test", body["model"])
		assert.Equal(t, "a red car", body["input"])
		_, _ = w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer srv.Close()

	v, err := newTestClient(t, srv.URL).EmbedText(context.Background(), "a red car")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, v)
}

func TestEmbedImageSendsDownscaledPNG(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed/image", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		raw, err := base64.StdEncoding.DecodeString(body["image"])
		assert.NoError(t, err)
		img, err := png.Decode(bytes.NewReader(raw))
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		assert.Equal(t, 8, img.Bounds().Dx())
		assert.Equal(t, 4, img.Bounds().Dy())
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	src := image.NewRGBA(image.Rect(0, 0, 64, 32))
	src.Set(1, 1, color.RGBA{R: 255, A: 255})
	v, err := newTestClient(t, srv.URL).EmbedImage(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, v)
}

func TestRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embedding":[0.5]}`))
	}))
	defer srv.Close()

	v, err := newTestClient(t, srv.URL).EmbedText(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, v)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).EmbedText(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad model")
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmptyEmbeddingIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).EmbedText(context.Background(), "x")
	assert.Error(t, err)
}

func TestDownscaleKeepsSmallImages(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 20))
	assert.Same(t, img, Downscale(img, 32))
	out := Downscale(img, 5)
	assert.Equal(t, image.Rect(0, 0, 2, 5), out.Bounds())
}
