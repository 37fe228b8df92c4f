package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("❌ Failed to encode response: %v", err)
	}
}

// RespondError sends an error response
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// RespondErrorWith sends an error response carrying extra fields next to
// the message
func RespondErrorWith(w http.ResponseWriter, status int, message string, fields map[string]interface{}) {
	body := map[string]interface{}{
		"success": false,
		"error":   message,
	}
	for k, v := range fields {
		body[k] = v
	}
	RespondJSON(w, status, body)
}
