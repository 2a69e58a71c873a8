package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"casefile/internal/httputil"
)

// InternalToken guards the hooks called by the tier scheduler and storage
// notifications. An empty token disables the routes entirely.
func InternalToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				httputil.RespondError(w, http.StatusNotFound, "not found")
				return
			}
			got, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid internal token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
