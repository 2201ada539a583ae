package httpapi

import (
	"encoding/json"
	"net/http"
)

// JSON writes the provided payload as JSON to the response writer.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes an error payload with the provided status code. Every error
// response carries a message field, matching the success responses.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"message": message})
}
