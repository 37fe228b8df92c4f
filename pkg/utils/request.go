package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

const maxBodyBytes = 1 << 20

// DecodeJSON reads a size-limited JSON body into dst
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// QueryInt reads a non-negative integer query parameter, falling back to
// def when absent and clamping to max when max > 0
func QueryInt(r *http.Request, key string, def, max int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}
