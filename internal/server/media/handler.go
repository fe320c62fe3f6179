// Package media serves stored audio over /media/<key> with single byte range
// support.
package media

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Acr4niu5/beatsync-local/internal/logging"
	"github.com/Acr4niu5/beatsync-local/internal/metrics"
	"github.com/Acr4niu5/beatsync-local/internal/server/reply"
	"github.com/Acr4niu5/beatsync-local/pkg/object"
)

// Prefix is the URL path the handler is mounted on.
const Prefix = "/media/"

const defaultContentType = "audio/mpeg"

// Source is the part of the storage backend the media route needs.
type Source interface {
	Mode() object.Mode
	Stat(ctx context.Context, key string) (object.Object, error)
	Get(ctx context.Context, key string, rng *object.Range) (object.Object, io.ReadCloser, error)
}

// Handler answers GET and HEAD requests for media keys.
type Handler struct {
	src Source
}

// NewHandler returns a Handler reading from src.
func NewHandler(src Source) *Handler {
	return &Handler{src: src}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status, n := h.serve(w, r)
	metrics.RecordMediaResponse(status, n)
}

// serve runs one request to completion and reports the status and the body
// bytes written.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request) (int, int64) {
	log := logging.WithContext(r.Context())

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		reply.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return http.StatusMethodNotAllowed, 0
	}

	// Remote objects are fetched from their public URL, never through here.
	if h.src.Mode() != object.ModeLocal {
		reply.Error(w, http.StatusNotFound, ErrWrongMode.Error())
		return http.StatusNotFound, 0
	}

	raw, ok := strings.CutPrefix(r.URL.EscapedPath(), Prefix)
	if !ok {
		reply.Error(w, http.StatusNotFound, "not found")
		return http.StatusNotFound, 0
	}
	key, err := ValidateKey(raw)
	if err != nil {
		log.Debug("rejected media key", logging.String("raw", raw))
		reply.Error(w, http.StatusBadRequest, err.Error())
		return http.StatusBadRequest, 0
	}

	info, err := h.src.Stat(r.Context(), key)
	if err != nil {
		log.Debug("media stat failed", logging.String("key", key), logging.Err(err))
		reply.Error(w, http.StatusNotFound, "not found")
		return http.StatusNotFound, 0
	}

	rng := ParseRange(r.Header.Get("Range"), info.Size)
	if rng.Kind == Invalid {
		log.Debug("rejected range",
			logging.Err(ErrInvalidRange),
			logging.String("key", key),
			logging.String("range", r.Header.Get("Range")),
			logging.Int64("size", info.Size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return http.StatusRequestedRangeNotSatisfiable, 0
	}

	var want *object.Range
	length := info.Size
	status := http.StatusOK
	if rng.Kind == Satisfiable {
		want = &object.Range{Start: rng.Start, End: rng.End}
		length = rng.Length()
		status = http.StatusPartialContent
	}

	obj, body, err := h.src.Get(r.Context(), key, want)
	if err != nil {
		log.Warn("media open failed", logging.String("key", key), logging.Err(err))
		reply.Error(w, http.StatusNotFound, "not found")
		return http.StatusNotFound, 0
	}
	defer body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	hdr := w.Header()
	hdr.Set("Content-Type", contentType)
	hdr.Set("Content-Length", strconv.FormatInt(length, 10))
	hdr.Set("Accept-Ranges", "bytes")
	if status == http.StatusPartialContent {
		hdr.Set("Content-Range", rng.ContentRange(info.Size))
	}
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return status, 0
	}

	// Headers are out; a failure from here on can only truncate the body.
	n, err := io.CopyN(w, body, length)
	if err != nil {
		log.Warn("media stream aborted",
			logging.String("key", key),
			logging.Int64("sent", n),
			logging.Int64("want", length),
			logging.Err(err))
	}
	return status, n
}
