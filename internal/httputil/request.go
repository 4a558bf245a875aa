package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// ParseJSON decodes the request body into dest. Bodies over 1MB fail with a
// *http.MaxBytesError.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// BearerToken returns the credential of an "Authorization: Bearer" header,
// or "" when the header is missing or uses another scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
