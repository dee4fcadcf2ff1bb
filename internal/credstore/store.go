// Package credstore persists the access/refresh credential pair issued by the
// moneyboard backend. Every backend writes and clears both values together so
// a reader never observes a new access token next to an old refresh token.
// This is a leaf package: it knows nothing about HTTP or refresh logic.
package credstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
)

// Well-known keys for the two persisted values.
const (
	KeyAccess  = "access_token"
	KeyRefresh = "refresh_token"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// ErrIncompletePair is returned when a pair with only one half is written,
// or when a backend finds only one of the two keys on disk.
var ErrIncompletePair = errors.New("credstore: incomplete credential pair")

// Pair is the access/refresh credential pair. Both values are opaque.
type Pair struct {
	Access  string
	Refresh string
}

// IsZero reports whether no credentials are held.
func (p Pair) IsZero() bool {
	return p.Access == "" && p.Refresh == ""
}

// Complete reports whether both halves are present.
func (p Pair) Complete() bool {
	return p.Access != "" && p.Refresh != ""
}

// Token returns the pair as a bearer oauth2.Token.
func (p Pair) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  p.Access,
		RefreshToken: p.Refresh,
		TokenType:    "Bearer",
	}
}

// Store is implemented by every backend. Get returns the zero Pair (and a nil
// error) when nothing is stored.
type Store interface {
	Get(ctx context.Context) (Pair, error)
	Set(ctx context.Context, p Pair) error
	Clear(ctx context.Context) error
	Close() error
}

// Open returns the backend named by backend, rooted at path. path is ignored
// by the memory backend.
func Open(ctx context.Context, backend, path string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("opening credential store",
		slog.String("backend", backend),
		slog.String("path", path),
	)

	switch backend {
	case BackendFile, "":
		return NewFile(path), nil
	case BackendSQLite:
		s, err := OpenSQLite(ctx, path, logger)
		if err != nil {
			return nil, err
		}

		return s, nil
	case BackendBolt:
		b, err := OpenBolt(path)
		if err != nil {
			return nil, err
		}

		return b, nil
	case BackendMemory:
		return NewMemory(Pair{}), nil
	default:
		return nil, fmt.Errorf("credstore: unknown backend %q", backend)
	}
}

// validate rejects half pairs before they reach a backend.
func validate(p Pair) error {
	if !p.Complete() {
		return ErrIncompletePair
	}

	return nil
}

// pairFromValues builds a Pair from two raw values read from storage. A
// missing pair is not an error; a half pair is.
func pairFromValues(access, refresh string) (Pair, error) {
	p := Pair{Access: access, Refresh: refresh}
	if p.IsZero() || p.Complete() {
		return p, nil
	}

	return Pair{}, ErrIncompletePair
}
