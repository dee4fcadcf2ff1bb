package fakeapi

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "moneyboard-fakeapi"

var (
	errStaleToken     = errors.New("fakeapi: access token predates expiry epoch")
	errUnknownRefresh = errors.New("fakeapi: refresh token is invalid or expired")
)

// accessClaims are carried by every access token. Epoch ties a token to the
// issuer's current expiry epoch so tests can invalidate every outstanding
// token at once.
type accessClaims struct {
	UserID int   `json:"user_id"`
	Epoch  int64 `json:"epoch"`
	jwt.RegisteredClaims
}

// tokenIssuer signs HS256 access tokens and keeps the set of live refresh
// tokens. Refresh tokens are opaque random IDs.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	rotate bool

	mu      sync.Mutex
	epoch   int64
	refresh map[string]int
}

func newTokenIssuer(secret []byte, ttl time.Duration, rotate bool) (*tokenIssuer, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("fakeapi: generating signing secret: %w", err)
		}
	}

	return &tokenIssuer{
		secret:  secret,
		ttl:     ttl,
		rotate:  rotate,
		refresh: make(map[string]int),
	}, nil
}

func (ti *tokenIssuer) issueAccess(userID int) (string, error) {
	ti.mu.Lock()
	epoch := ti.epoch
	ti.mu.Unlock()

	now := time.Now()
	claims := accessClaims{
		UserID: userID,
		Epoch:  epoch,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   fmt.Sprint(userID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("fakeapi: signing access token: %w", err)
	}

	return signed, nil
}

// verifyAccess returns the user an access token was issued to.
func (ti *tokenIssuer) verifyAccess(raw string) (int, error) {
	var claims accessClaims

	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, fmt.Errorf("fakeapi: parsing access token: %w", err)
	}

	ti.mu.Lock()
	defer ti.mu.Unlock()

	if claims.Epoch < ti.epoch {
		return 0, errStaleToken
	}

	return claims.UserID, nil
}

// issuePair returns a fresh access token and a new refresh token.
func (ti *tokenIssuer) issuePair(userID int) (access, refresh string, err error) {
	access, err = ti.issueAccess(userID)
	if err != nil {
		return "", "", err
	}

	refresh = uuid.NewString()

	ti.mu.Lock()
	ti.refresh[refresh] = userID
	ti.mu.Unlock()

	return access, refresh, nil
}

// redeem exchanges a refresh token for a new access token. With rotation on,
// the presented token is consumed and a replacement returned; otherwise the
// returned refresh token is empty and the old one stays valid.
func (ti *tokenIssuer) redeem(refresh string) (access, rotated string, err error) {
	ti.mu.Lock()
	userID, ok := ti.refresh[refresh]

	if ok && ti.rotate {
		delete(ti.refresh, refresh)

		rotated = uuid.NewString()
		ti.refresh[rotated] = userID
	}
	ti.mu.Unlock()

	if !ok {
		return "", "", errUnknownRefresh
	}

	access, err = ti.issueAccess(userID)
	if err != nil {
		return "", "", err
	}

	return access, rotated, nil
}

// expireAccess invalidates every access token issued so far.
func (ti *tokenIssuer) expireAccess() {
	ti.mu.Lock()
	ti.epoch++
	ti.mu.Unlock()
}

// revoke drops refresh tokens. With no arguments every token is dropped.
func (ti *tokenIssuer) revoke(tokens ...string) {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	if len(tokens) == 0 {
		clear(ti.refresh)

		return
	}

	for _, t := range tokens {
		delete(ti.refresh, t)
	}
}
