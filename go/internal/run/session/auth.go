package session

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/mcdev12/tempo/go/internal/run/runrpc"
)

// Authorizer decides whether a caller may control a session.
type Authorizer interface {
	Authorize(ctx context.Context, sessionID string, header http.Header) error
}

// AllowAll lets every caller control every session.
type AllowAll struct{}

// Authorize implements Authorizer
func (AllowAll) Authorize(context.Context, string, http.Header) error { return nil }

// TokenAuthorizer admits callers presenting a shared controller token.
type TokenAuthorizer struct {
	Token string
}

// Authorize implements Authorizer
func (a TokenAuthorizer) Authorize(_ context.Context, sessionID string, header http.Header) error {
	got := header.Get(runrpc.ControllerTokenHeader)
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(a.Token)) != 1 {
		return fmt.Errorf("session %s: %w", sessionID, ErrUnauthorized)
	}
	return nil
}
