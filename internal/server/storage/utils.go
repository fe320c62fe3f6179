package storage

import (
	"errors"
	"net/http"
	"strings"
)

var errBadName = errors.New("invalid roomId or fileName")

// objPath returns the key an upload is stored under: room-<roomID>/<base name>
func objPath(roomID, fileName string) (string, error) {
	if strings.ContainsAny(roomID, `/\`) || strings.Contains(roomID, "..") {
		return "", errBadName
	}
	name := sanitizeFilename(fileName)
	if name == "" || name == "." || strings.Contains(name, "..") {
		return "", errBadName
	}
	return "room-" + roomID + "/" + name, nil
}

// sanitizeFilename extracts the base filename, accepting either separator.
func sanitizeFilename(path string) string {
	path = strings.TrimRight(strings.ReplaceAll(path, `\`, "/"), "/")
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}

// origin is scheme://host of the request, honouring a TLS terminating proxy.
func origin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
