// Package identity resolves the caller of a request to a user ID. The
// rest of the service only ever sees the resolved ID; how it was obtained
// is a pluggable Provider.
package identity

import (
	"errors"
	"net/http"
)

// ErrUnauthenticated is returned when a request carries no usable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// Provider resolves the authenticated user of a request.
type Provider interface {
	Identify(r *http.Request) (string, error)
}

// StaticProvider identifies every request as the same user. It exists for
// tests and local development; config refuses it in production.
type StaticProvider struct {
	UserID string
}

// NewStaticProvider creates a Provider that always returns userID.
func NewStaticProvider(userID string) *StaticProvider {
	return &StaticProvider{UserID: userID}
}

// Identify implements Provider.
func (p *StaticProvider) Identify(_ *http.Request) (string, error) {
	if p.UserID == "" {
		return "", ErrUnauthenticated
	}
	return p.UserID, nil
}
