package middleware

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorBody is the JSON envelope for every error response. The error field
// carries a stable machine-readable code, never free-form text.
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteError emits a JSON error response with the given status and code.
func WriteError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorBody{Error: code}); err != nil {
		log.Printf("write error response: %v", err)
	}
}
