package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
)

// ErrUnknownService is returned when X-Service-Name does not match the
// configured allow-list (§6: "optional X-Service-Name header for audit").
var ErrUnknownService = errors.New("auth: unknown service name")

// ServiceVerifier authenticates internal service-to-service calls against a
// single shared secret, the way the public surface's service routes expect.
type ServiceVerifier struct {
	secret          []byte
	allowedServices map[string]struct{}
}

// NewServiceVerifier creates a ServiceVerifier. An empty allowed list means
// any X-Service-Name is accepted as long as the secret matches.
func NewServiceVerifier(secret string, allowed []string) *ServiceVerifier {
	set := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		set[name] = struct{}{}
	}
	return &ServiceVerifier{secret: []byte(secret), allowedServices: set}
}

// VerifyRequest checks the bearer token against the shared secret in
// constant time and, if an allow-list is configured, validates the caller's
// declared service name.
func (v *ServiceVerifier) VerifyRequest(r *http.Request) error {
	token, err := bearerToken(r)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(token), v.secret) != 1 {
		return ErrInvalidToken
	}
	if len(v.allowedServices) == 0 {
		return nil
	}
	name := r.Header.Get("X-Service-Name")
	if _, ok := v.allowedServices[name]; !ok {
		return ErrUnknownService
	}
	return nil
}
