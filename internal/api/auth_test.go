package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/moneyboard/internal/credstore"
)

func TestLogin_StoresPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathLogin, r.URL.Path)

		var creds LoginCredentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "ana@example.com", creds.Email)

		writeJSON(w, http.StatusOK, LoginResponse{
			Access:  "a1",
			Refresh: "r1",
			User:    User{ID: 5, Email: creds.Email},
		})
	}))
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, credstore.Pair{})
	ctx := context.Background()

	assert.False(t, c.Authenticated(ctx))

	u, err := c.Login(ctx, LoginCredentials{Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, 5, u.ID)

	p, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, credstore.Pair{Access: "a1", Refresh: "r1"}, p)
	assert.True(t, c.Authenticated(ctx))

	require.NoError(t, c.Logout(ctx))
	assert.False(t, c.Authenticated(ctx))

	_, err = c.Credentials(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestLogin_IncompletePairRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, LoginResponse{Access: "a1"})
	}))
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, credstore.Pair{})

	_, err := c.Login(context.Background(), LoginCredentials{Email: "ana@example.com", Password: "pw"})
	require.Error(t, err)

	p, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, p.IsZero())
}

func TestRegister_StoresTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathRegister, r.URL.Path)
		writeJSON(w, http.StatusCreated, map[string]any{
			"user":    User{ID: 9, Email: "new@example.com"},
			"tokens":  tokenPair{Access: "a1", Refresh: "r1"},
			"message": "User registered successfully",
		})
	}))
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, credstore.Pair{})

	resp, err := c.Register(context.Background(), RegisterData{
		Email:           "new@example.com",
		Password:        "pw",
		PasswordConfirm: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, 9, resp.User.ID)
	assert.Equal(t, "User registered successfully", resp.Message)

	p, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, credstore.Pair{Access: "a1", Refresh: "r1"}, p)
}

func TestLogin_ValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Email is required"}})
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credstore.Pair{})

	_, err := c.Login(context.Background(), LoginCredentials{})
	require.ErrorIs(t, err, ErrBadRequest)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Email is required", apiErr.Message)
}

func TestCurrentUser_RefreshesTransparently(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathRefresh, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, tokenPair{Access: "a2", Refresh: "r2"})
	})
	mux.HandleFunc("/auth/user/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer a2" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		writeJSON(w, http.StatusOK, User{ID: 5, Username: "ana"})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})

	u, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ana", u.Username)
}
