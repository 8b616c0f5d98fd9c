package middleware

import (
	"crypto/subtle"
	"net/http"

	"abc-inventory-monitor/pkg/apierror"
)

// NewAdminAuth returns middleware requiring the X-Admin-Key header to match
// the configured key. Health and status endpoints stay public so uptime
// probes work without credentials. An empty configured key disables auth,
// which is the default for local runs.
func NewAdminAuth(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			if r.URL.Path == "/api/status" || r.URL.Path == "/api/v1/health" {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-Admin-Key")
			if key == "" {
				writeError(w, apierror.Unauthorized("Authentication required. Use X-Admin-Key header."))
				return
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) != 1 {
				writeError(w, apierror.Unauthorized("Invalid admin key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}
