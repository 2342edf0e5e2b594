package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gymstack/presence/internal/presence/types"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// CurrentSession is set on already_checked_in so the caller can
	// show the member their open session.
	CurrentSession *types.Session `json:"current_session,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
