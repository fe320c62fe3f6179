package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/Acr4niu5/beatsync-local/pkg/api"
	"github.com/Acr4niu5/beatsync-local/pkg/local"
	"github.com/Acr4niu5/beatsync-local/pkg/object"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *local.Storage {
	t.Helper()
	st := &local.Storage{}
	require.NoError(t, st.Init(context.Background(), local.Config{Root: t.TempDir(), CreateDirs: true}))
	return st
}

func TestDefaultAudio(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	for _, key := range []string{"default/b track.mp3", "default/a.mp3", "room-1/private.mp3"} {
		_, err := st.Put(ctx, key, strings.NewReader("x"), 1, "audio/mpeg", nil)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "http://beats.local:3000/default-audio", nil)
	rec := httptest.NewRecorder()
	StorageHandler(st, 1<<20).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.DefaultAudioResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, api.DefaultAudioResponse{
		{URL: "http://beats.local:3000/media/default/a.mp3"},
		{URL: "http://beats.local:3000/media/default/b%20track.mp3"},
	}, resp)
}

func TestDefaultAudioEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/default-audio", nil)
	rec := httptest.NewRecorder()
	StorageHandler(newStore(t), 1<<20).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestDirectUpload(t *testing.T) {
	st := newStore(t)
	req := httptest.NewRequest(http.MethodPut, "/upload/direct?roomId=42&fileName=../../mix.ogg&contentType=audio/ogg", strings.NewReader("ogg-bytes"))
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	StorageHandler(st, 1<<20).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp api.UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "https://example.com/media/room-42/mix.ogg", resp.URL)

	data, err := os.ReadFile(st.ResolvePath("room-42/mix.ogg"))
	require.NoError(t, err)
	assert.Equal(t, "ogg-bytes", string(data))
}

func TestDirectUploadRejects(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"missing room", "/upload/direct?fileName=a.mp3", "x", http.StatusBadRequest},
		{"missing name", "/upload/direct?roomId=1", "x", http.StatusBadRequest},
		{"room with slash", "/upload/direct?roomId=1/2&fileName=a.mp3", "x", http.StatusBadRequest},
		{"name is dir", "/upload/direct?roomId=1&fileName=..", "x", http.StatusBadRequest},
		{"too large", "/upload/direct?roomId=1&fileName=a.mp3", strings.Repeat("x", 17), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, tt.target, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			StorageHandler(newStore(t), 16).ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestDirectUploadTooLargeWithoutLength(t *testing.T) {
	st := newStore(t)
	req := httptest.NewRequest(http.MethodPut, "/upload/direct?roomId=1&fileName=a.mp3", strings.NewReader(strings.Repeat("x", 64)))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	StorageHandler(st, 16).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	_, err := st.Stat(context.Background(), "room-1/a.mp3")
	assert.ErrorIs(t, err, object.ErrNotFound)
}

type remoteStore struct{ object.ObjectStorage }

func (remoteStore) Mode() object.Mode { return object.ModeRemote }

func TestDirectUploadRemoteMode(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/upload/direct?roomId=1&fileName=a.mp3", strings.NewReader("x"))
	rec := httptest.NewRecorder()
	StorageHandler(remoteStore{newStore(t)}, 16).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDirectUploadMethodOrder(t *testing.T) {
	rec := httptest.NewRecorder()
	StorageHandler(remoteStore{newStore(t)}, 16).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/upload/direct", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "remote mode refuses every method")

	rec = httptest.NewRecorder()
	StorageHandler(newStore(t), 16).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/upload/direct", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPut, rec.Header().Get("Allow"))
}

// bucketStore lists fixed keys and serves them from a public base URL.
type bucketStore struct {
	object.ObjectStorage
	base string
	keys []string
}

func (b bucketStore) Mode() object.Mode { return object.ModeRemote }

func (b bucketStore) List(_ context.Context, prefix string) ([]object.Object, error) {
	var objs []object.Object
	for _, k := range b.keys {
		if strings.HasPrefix(k, prefix) {
			objs = append(objs, object.Object{Key: k})
		}
	}
	return objs, nil
}

func (b bucketStore) PublicURL(key string) string {
	if b.base == "" {
		return ""
	}
	return b.base + "/" + key
}

func TestDefaultAudioRemoteKeepsAbsoluteURLs(t *testing.T) {
	st := bucketStore{base: "https://cdn.example.com", keys: []string{"default/a.mp3", "room-1/b.mp3"}}
	req := httptest.NewRequest(http.MethodGet, "http://beats.local:3000/default-audio", nil)
	rec := httptest.NewRecorder()
	StorageHandler(st, 16).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.DefaultAudioResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, api.DefaultAudioResponse{{URL: "https://cdn.example.com/default/a.mp3"}}, resp)
}

func TestDefaultAudioMissingPublicURL(t *testing.T) {
	st := bucketStore{keys: []string{"default/a.mp3"}}
	rec := httptest.NewRecorder()
	StorageHandler(st, 16).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/default-audio", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"url"`)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a.mp3", sanitizeFilename("a.mp3"))
	assert.Equal(t, "c.mp3", sanitizeFilename("a/b/c.mp3"))
	assert.Equal(t, "c.mp3", sanitizeFilename(`C:\music\c.mp3`))
	assert.Equal(t, "b", sanitizeFilename("a/b/"))
}
