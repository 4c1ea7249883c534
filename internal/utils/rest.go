package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the uniform error body for the whole API surface.
// Handlers map the typed domain errors onto it so clients can rely on a
// single {"error": "..."} shape regardless of which endpoint failed.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondWithError writes an ErrorResponse with the given status code.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithJSON writes payload as the JSON response body. The status code
// is committed before encoding, so encode failures can only be reported in
// the body, not the status.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "Failed to encode response: "+err.Error(), http.StatusInternalServerError)
		return err
	}
	return nil
}
