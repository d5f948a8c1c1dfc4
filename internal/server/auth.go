package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// withAuth enforces bearer-token authentication on every route except
// the health endpoint, which stays open so probes work without
// credentials. An empty token disables auth entirely.
func withAuth(next http.Handler, token string) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		if !safeEqual(bearerToken(r), token) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="marquee"`)
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the credential from the Authorization header,
// falling back to the token query parameter for WebSocket clients that
// cannot set headers.
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return r.URL.Query().Get("token")
}

// safeEqual performs a constant-time string comparison to prevent
// timing attacks on the token check.
func safeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
