package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/moneyboard/internal/credstore"
)

// CredentialStore persists the credential pair. Defined at the consumer;
// every credstore backend satisfies it.
type CredentialStore interface {
	Get(ctx context.Context) (credstore.Pair, error)
	Set(ctx context.Context, p credstore.Pair) error
	Clear(ctx context.Context) error
}

// Authenticator attaches the stored access credential to outgoing requests.
type Authenticator struct {
	store  CredentialStore
	logger *slog.Logger
}

// NewAuthenticator returns an Authenticator reading from store.
func NewAuthenticator(store CredentialStore, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Authenticator{store: store, logger: logger}
}

// Authorize sets the Authorization header from the store and returns the
// access value it attached, or "" if the request goes out unauthenticated.
// It never fails the request: a store read error is logged and treated as
// "no credential", which the backend answers with 401.
func (a *Authenticator) Authorize(ctx context.Context, req *http.Request) string {
	p, err := a.store.Get(ctx)
	if err != nil {
		a.logger.Warn("reading credentials failed, sending unauthenticated",
			slog.String("error", err.Error()),
		)

		return ""
	}

	if p.Access == "" {
		return ""
	}

	setBearer(req, p.Access)

	return p.Access
}

// setBearer writes a bearer Authorization header.
func setBearer(req *http.Request, access string) {
	credstore.Pair{Access: access}.Token().SetAuthHeader(req)
}
