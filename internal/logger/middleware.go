package logger

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// healthCheckPath is polled every few seconds by the orchestrator's liveness
// probe — logging it at info level on every request.started would drown the
// payment/withdrawal traffic this middleware exists to make traceable.
const healthCheckPath = "/health"

// Middleware creates HTTP middleware that injects a request-scoped logger
// into context for every route of the Payment & Commission Engine — payment
// intent creation, gateway webhook ingestion, withdrawal initiation, and
// admin review. It generates a unique request ID and adds it to both context
// and response headers so a client can correlate a 5xx with a log line.
func Middleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Generate or extract request ID
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = generateRequestID()
			}

			// Add request ID to response header for client correlation
			w.Header().Set("X-Request-ID", requestID)

			logCtx := logger.With().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", getRemoteAddr(r))

			// A webhook POST is scoped by gateway name (cinetpay/feexpay/nowpayments)
			// in the route; surface it as its own field so log aggregation can
			// split webhook volume/error-rate per provider without parsing the path.
			if gateway := chi.URLParam(r, "gateway"); gateway != "" {
				logCtx = logCtx.Str("gateway", gateway)
			}

			reqLogger := logCtx.Logger()

			// Add logger and request ID to context
			ctx := WithContext(r.Context(), reqLogger)
			ctx = WithRequestID(ctx, requestID)

			// Liveness probes poll this path continuously; everything else is
			// payment/withdrawal traffic worth an explicit started marker.
			if !strings.HasSuffix(r.URL.Path, healthCheckPath) {
				reqLogger.Info().
					Str("user_agent", r.UserAgent()).
					Msg("request.started")
			}

			// Call next handler with enriched context
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// generateRequestID creates a cryptographically random request identifier.
func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Fallback to a fixed placeholder ID when crypto/rand fails
		return "req_fallback"
	}
	return "req_" + hex.EncodeToString(b)
}

// getRemoteAddr extracts client IP, respecting X-Forwarded-For header.
func getRemoteAddr(r *http.Request) string {
	// Check X-Forwarded-For first (behind proxy/load balancer)
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		// Return the header value as sent (the whole proxy chain)
		return forwarded
	}

	// Check X-Real-IP (some proxies use this)
	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	// Fallback to RemoteAddr
	return r.RemoteAddr
}
