package rest

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSON encodes body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func WriteError(w http.ResponseWriter, status int, message, details string) {
	WriteJSON(w, status, ErrorResponse{Error: message, Details: details})
}
