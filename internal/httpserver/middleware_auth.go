package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/TambongStercy/SBC-MS-sub012/internal/apperrors"
	"github.com/TambongStercy/SBC-MS-sub012/internal/auth"
	"github.com/TambongStercy/SBC-MS-sub012/internal/logger"
)

// withAuthenticatedLogger enriches the request-scoped logger with the caller's
// identity for audit trails, redacting the email the same way any other
// PII-bearing log field in this engine is redacted.
func withAuthenticatedLogger(ctx context.Context, claims *auth.Claims) context.Context {
	log := logger.FromContext(ctx).With().
		Str("userId", claims.UserID).
		Str("userEmail", logger.RedactEmail(claims.Email)).
		Str("role", claims.Role).
		Logger()
	return logger.WithContext(ctx, log)
}

type claimsCtxKey struct{}

// claimsFromContext returns the *auth.Claims attached by requireUser/requireAdmin.
func claimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsCtxKey{}).(*auth.Claims)
	return claims
}

// requireUser authenticates any valid user or admin bearer token (§6 user JWT auth).
func requireUser(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifier.VerifyRequest(r)
			if err != nil {
				writeErr(w, authError(err))
				return
			}
			ctx := context.WithValue(r.Context(), claimsCtxKey{}, claims)
			ctx = withAuthenticatedLogger(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireAdmin authenticates a bearer token and enforces role=admin (§6 admin JWT auth).
func requireAdmin(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifier.RequireAdmin(r)
			if err != nil {
				writeErr(w, authError(err))
				return
			}
			ctx := context.WithValue(r.Context(), claimsCtxKey{}, claims)
			ctx = withAuthenticatedLogger(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireService authenticates the internal service-to-service surface (§6).
func requireService(verifier *auth.ServiceVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := verifier.VerifyRequest(r); err != nil {
				writeErr(w, authError(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authError(err error) error {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return apperrors.New(apperrors.ErrCodeMissingToken, "missing bearer token")
	case errors.Is(err, auth.ErrForbidden):
		return apperrors.New(apperrors.ErrCodeForbidden, "insufficient role for this operation")
	case errors.Is(err, auth.ErrUnknownService):
		return apperrors.New(apperrors.ErrCodeForbidden, "unknown service name")
	default:
		return apperrors.New(apperrors.ErrCodeInvalidToken, "invalid or expired bearer token")
	}
}
