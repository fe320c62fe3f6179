// Package storage provides the default track listing and direct upload
// routes.
package storage

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Acr4niu5/beatsync-local/internal/logging"
	"github.com/Acr4niu5/beatsync-local/internal/metrics"
	"github.com/Acr4niu5/beatsync-local/internal/server/reply"
	"github.com/Acr4niu5/beatsync-local/pkg/api"
	"github.com/Acr4niu5/beatsync-local/pkg/object"
)

const defaultPrefix = "default/"

// Routes serves /default-audio and /upload/direct from one object store.
type Routes struct {
	store     object.ObjectStorage
	maxUpload int64
}

// StorageHandler returns the mux for the storage routes. Uploads larger than
// maxUpload bytes are refused with 413.
func StorageHandler(store object.ObjectStorage, maxUpload int64) http.Handler {
	rt := &Routes{store: store, maxUpload: maxUpload}

	storageHandler := http.NewServeMux()
	storageHandler.HandleFunc("GET /default-audio", rt.defaultAudio)
	// Mode is checked before method, so remote mode answers 404 to any method.
	storageHandler.HandleFunc("/upload/direct", rt.directUpload)
	return storageHandler
}

// defaultAudio lists every object under default/ as a fetchable URL.
func (rt *Routes) defaultAudio(w http.ResponseWriter, r *http.Request) {
	log := logging.WithContext(r.Context())

	objs, err := rt.store.List(r.Context(), defaultPrefix)
	if err != nil {
		log.Error("list default audio", logging.Err(err))
		reply.Error(w, http.StatusInternalServerError, "failed to list default audio files")
		return
	}

	response := api.DefaultAudioResponse{}
	for _, obj := range objs {
		u := rt.store.PublicURL(obj.Key)
		if u == "" {
			log.Error("default audio has no public url", logging.String("key", obj.Key))
			reply.Error(w, http.StatusInternalServerError, "failed to list default audio files")
			return
		}
		response = append(response, api.DefaultAudio{URL: absoluteURL(r, u)})
	}
	reply.JSON(w, http.StatusOK, response)
}

// directUpload stores the raw request body at room-<roomId>/<fileName>.
// query: roomId, fileName, contentType (optional, audio/mpeg)
func (rt *Routes) directUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.WithContext(r.Context())

	if rt.store.Mode() != object.ModeLocal {
		reply.Error(w, http.StatusNotFound, "direct upload is only available in local mode")
		return
	}
	if r.Method != http.MethodPut {
		w.Header().Set("Allow", http.MethodPut)
		reply.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	roomID := q.Get("roomId")
	fileName := q.Get("fileName")
	contentType := q.Get("contentType")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	if roomID == "" || fileName == "" {
		reply.Error(w, http.StatusBadRequest, "missing roomId or fileName")
		return
	}
	key, err := objPath(roomID, fileName)
	if err != nil {
		reply.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.ContentLength > rt.maxUpload {
		metrics.RecordUpload(0, false)
		reply.Error(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	body := http.MaxBytesReader(w, r.Body, rt.maxUpload)
	defer body.Close()

	log.Info("direct upload",
		logging.String("key", key),
		logging.String("content_type", contentType),
		logging.Int64("content_length", r.ContentLength))

	obj, err := rt.store.Put(r.Context(), key, body, r.ContentLength, contentType, map[string]string{
		"room":          roomID,
		"original-name": fileName,
	})
	if err != nil {
		metrics.RecordUpload(0, false)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			reply.Error(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		log.Error("direct upload failed", logging.String("key", key), logging.Err(err))
		reply.Error(w, http.StatusInternalServerError, "failed to save file")
		return
	}
	metrics.RecordUpload(obj.Size, true)

	reply.JSON(w, http.StatusOK, api.UploadResponse{
		Success: true,
		URL:     absoluteURL(r, rt.store.PublicURL(key)),
	})
}

// absoluteURL prefixes a root-relative URL with the origin the request came
// in on.
func absoluteURL(r *http.Request, u string) string {
	if !strings.HasPrefix(u, "/") {
		return u
	}
	return origin(r) + u
}
