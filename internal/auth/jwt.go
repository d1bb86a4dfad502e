// Package auth authenticates the three caller classes the public API
// surface (C9) accepts: end users, admins, and sibling services (§6).
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload carried by user and admin bearer tokens (§6: "Bearer
// JWT with payload {userId, email, role}").
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// RoleAdmin is the Claims.Role value required on admin-only routes.
const RoleAdmin = "admin"

var (
	// ErrMissingToken is returned when no Authorization header is present.
	ErrMissingToken = errors.New("auth: missing bearer token")
	// ErrInvalidToken is returned when the token fails signature or claim validation.
	ErrInvalidToken = errors.New("auth: invalid bearer token")
	// ErrForbidden is returned when a valid token lacks the required role.
	ErrForbidden = errors.New("auth: forbidden")
)

// Verifier validates user/admin JWTs using a shared HMAC secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier bound to the configured JWT secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// VerifyRequest extracts and validates the bearer token from the request's
// Authorization header, returning the decoded claims.
func (v *Verifier) VerifyRequest(r *http.Request) (*Claims, error) {
	token, err := bearerToken(r)
	if err != nil {
		return nil, err
	}
	return v.Verify(token)
}

// Verify validates a raw JWT string and returns its claims.
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, t.Method)
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing userId claim", ErrInvalidToken)
	}
	return claims, nil
}

// RequireAdmin validates the request and enforces role=admin.
func (v *Verifier) RequireAdmin(r *http.Request) (*Claims, error) {
	claims, err := v.VerifyRequest(r)
	if err != nil {
		return nil, err
	}
	if claims.Role != RoleAdmin {
		return nil, ErrForbidden
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrMissingToken
	}
	return parts[1], nil
}
