package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMiddlewareLogsCompletion(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := globalLogger
	Set(zap.New(core))
	t.Cleanup(func() { Set(prev) })

	var seenID string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestID(r.Context())
		WithContext(r.Context()).Debug("inside")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("abc"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/media/default/a.mp3", nil)
	req.Header.Set("Range", "bytes=0-2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.NotEmpty(t, seenID)
	assert.Equal(t, seenID, rec.Header().Get("X-Request-ID"))

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusPartialContent), fields["status"])
	assert.Equal(t, int64(3), fields["size"])
	assert.Equal(t, "bytes=0-2", fields["range"])
	assert.Equal(t, seenID, fields["request_id"])
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	prev := globalLogger
	Set(zap.NewNop())
	t.Cleanup(func() { Set(prev) })

	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc-123", RequestID(r.Context()))
	}))
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestInitFallsBackToInfo(t *testing.T) {
	prev := globalLogger
	t.Cleanup(func() { Set(prev) })

	require.NoError(t, Init(Config{Level: "loud", Format: "console", OutputPath: "stderr"}))
	assert.True(t, L().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, L().Core().Enabled(zapcore.DebugLevel))
}

func TestLevelHelpersUseGlobalLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := globalLogger
	Set(zap.New(core))
	t.Cleanup(func() { Set(prev) })

	Debug("d", String("key", "room-1/a.mp3"))
	Info("i", Int64("size", 42))
	Warn("w", Err(assert.AnError))
	Error("e")

	all := logs.All()
	require.Len(t, all, 4)
	assert.Equal(t, zapcore.DebugLevel, all[0].Level)
	assert.Equal(t, "room-1/a.mp3", all[0].ContextMap()["key"])
	assert.Equal(t, int64(42), all[1].ContextMap()["size"])
	assert.Equal(t, assert.AnError.Error(), all[2].ContextMap()["error"])
	assert.Equal(t, zapcore.ErrorLevel, all[3].Level)
}
