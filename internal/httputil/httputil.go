// Package httputil holds small JSON request/response helpers.
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// maxBodySize caps request bodies; search queries are tiny.
const maxBodySize = 1 << 20

// RespondJSON writes a JSON response with the given status code. The payload
// is marshaled before headers are sent so an encoding failure cannot produce
// a half-written 200.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

// RespondError writes a JSON error body {"error": detail}.
func RespondError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":` + encodeString(detail) + `}`))
}

// ParseJSON decodes the request body into dest with a size limit.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func encodeString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `"internal error"`
	}
	return string(b)
}
