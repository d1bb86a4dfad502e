package httpserver

import (
	"net/http"

	"github.com/TambongStercy/SBC-MS-sub012/internal/apperrors"
)

// adminMetricsAuth is middleware that protects the /metrics endpoint with an API key.
// If no API key is configured, the endpoint is accessible without authentication.
// If an API key is configured, requests must include an "Authorization: Bearer {key}" header.
func adminMetricsAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader != "Bearer "+apiKey {
				writeErr(w, apperrors.New(apperrors.ErrCodeForbidden, "invalid or missing admin API key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
