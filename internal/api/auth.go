package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/moneyboard/internal/credstore"
)

// Login exchanges email and password for a credential pair and stores it.
// A 401 here is KindAuthEndpointFailure and never triggers a refresh.
func (c *Client) Login(ctx context.Context, creds LoginCredentials) (*User, error) {
	var resp LoginResponse
	if err := c.call(ctx, http.MethodPost, PathLogin, creds, &resp); err != nil {
		return nil, err
	}

	if err := c.storeIssued(ctx, resp.Access, resp.Refresh); err != nil {
		return nil, err
	}

	c.logger.Info("logged in", slog.Int("user_id", resp.User.ID))

	return &resp.User, nil
}

// Register creates an account and stores the credential pair issued with it.
func (c *Client) Register(ctx context.Context, data RegisterData) (*RegisterResponse, error) {
	var resp RegisterResponse
	if err := c.call(ctx, http.MethodPost, PathRegister, data, &resp); err != nil {
		return nil, err
	}

	if err := c.storeIssued(ctx, resp.Tokens.Access, resp.Tokens.Refresh); err != nil {
		return nil, err
	}

	c.logger.Info("registered", slog.Int("user_id", resp.User.ID))

	return &resp, nil
}

// storeIssued saves a pair returned by a credential-issuing endpoint.
func (c *Client) storeIssued(ctx context.Context, access, refresh string) error {
	pair := credstore.Pair{Access: access, Refresh: refresh}
	if !pair.Complete() {
		return errors.New("api: server returned an incomplete credential pair")
	}

	if err := c.store.Set(ctx, pair); err != nil {
		return fmt.Errorf("api: saving credentials: %w", err)
	}

	return nil
}

// Logout discards the stored credentials. The backend keeps no session state
// for the client, so nothing is sent.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("api: clearing credentials: %w", err)
	}

	c.logger.Info("logged out")

	return nil
}

// Authenticated reports whether a credential pair is held.
func (c *Client) Authenticated(ctx context.Context) bool {
	p, err := c.store.Get(ctx)
	if err != nil {
		return false
	}

	return p.Complete()
}

// Credentials returns the stored pair, or ErrNotLoggedIn when there is none.
func (c *Client) Credentials(ctx context.Context) (credstore.Pair, error) {
	p, err := c.store.Get(ctx)
	if err != nil {
		return credstore.Pair{}, fmt.Errorf("api: reading credentials: %w", err)
	}

	if p.IsZero() {
		return credstore.Pair{}, ErrNotLoggedIn
	}

	return p, nil
}

// CurrentUser returns the profile of the logged-in user.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, http.MethodGet, "/auth/user/", nil, &u); err != nil {
		return nil, err
	}

	return &u, nil
}

type profileResponse struct {
	User    User   `json:"user"`
	Message string `json:"message"`
}

// UpdateProfile changes the user's email or name.
func (c *Client) UpdateProfile(ctx context.Context, data UpdateProfileData) (*User, error) {
	var resp profileResponse
	if err := c.call(ctx, http.MethodPatch, "/auth/user/", data, &resp); err != nil {
		return nil, err
	}

	return &resp.User, nil
}

type messageResponse struct {
	Message string `json:"message"`
}

// ChangePassword changes the user's password and returns the server's message.
func (c *Client) ChangePassword(ctx context.Context, data ChangePasswordData) (string, error) {
	var resp messageResponse
	if err := c.call(ctx, http.MethodPost, "/auth/change-password/", data, &resp); err != nil {
		return "", err
	}

	return resp.Message, nil
}
