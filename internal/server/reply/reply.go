// Package reply writes the JSON bodies shared by every route.
package reply

import (
	"encoding/json"
	"net/http"

	"github.com/Acr4niu5/beatsync-local/internal/logging"
	"github.com/Acr4niu5/beatsync-local/pkg/api"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("encode response", logging.Err(err))
	}
}

// Error writes {"error": msg} with the given status.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, api.ErrorResponse{Error: msg})
}
