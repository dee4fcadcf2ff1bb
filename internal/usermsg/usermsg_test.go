package usermsg

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"github.com/tonimelisma/moneyboard/internal/api"
)

func TestFor_English(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"refresh failed", &api.Error{Kind: api.KindRefreshFailure, Err: api.ErrRefreshFailed}, "Your session has expired. Run 'moneyboard login' to sign in again."},
		{"exhausted", &api.Error{Kind: api.KindUnauthorized, Err: api.ErrUnauthorized}, "Your session has expired. Run 'moneyboard login' to sign in again."},
		{"login", &api.Error{Kind: api.KindAuthEndpointFailure, Err: api.ErrAuthFailed}, "Incorrect email or password."},
		{"bad request", &api.Error{Kind: api.KindBadRequest, Err: api.ErrBadRequest, Message: "amount is required"}, "The server rejected the request: amount is required"},
		{"server", &api.Error{Kind: api.KindServerError, Err: api.ErrServerError, StatusCode: 502}, "The server had a problem (HTTP 502). Try again later."},
		{"timeout", &api.Error{Kind: api.KindTimeout, Err: api.ErrTimeout}, "The server took too long to respond."},
		{"network", &api.Error{Kind: api.KindNetworkFailure, Err: api.ErrNetwork}, "Could not reach the server. Check your connection and the api_url setting."},
		{"not logged in", fmt.Errorf("whoami: %w", api.ErrNotLoggedIn), "You are not logged in. Run 'moneyboard login' first."},
		{"canceled", fmt.Errorf("api: request canceled: %w", context.Canceled), "Canceled."},
		{"foreign", errors.New("disk on fire"), "Something went wrong: disk on fire"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, For(tt.err, language.English))
		})
	}
}

func TestFor_TransientRefreshFailureReportsNetwork(t *testing.T) {
	err := &api.Error{
		Kind:  api.KindRefreshFailure,
		Err:   api.ErrRefreshFailed,
		Cause: fmt.Errorf("%w: %w", api.ErrRefreshFailed, &api.Error{Kind: api.KindTimeout, Err: api.ErrTimeout}),
	}

	assert.Equal(t, "The server took too long to respond.", For(err, language.English))
}

func TestFor_RefreshServerErrorReportsServer(t *testing.T) {
	err := &api.Error{
		Kind:  api.KindRefreshFailure,
		Err:   api.ErrRefreshFailed,
		Cause: fmt.Errorf("%w: %w", api.ErrRefreshFailed, &api.Error{Kind: api.KindServerError, Err: api.ErrServerError, StatusCode: 503}),
	}

	assert.Equal(t, "The server had a problem (HTTP 503). Try again later.", For(err, language.English))
}

func TestFor_Spanish(t *testing.T) {
	err := &api.Error{Kind: api.KindRefreshFailure, Err: api.ErrRefreshFailed}
	assert.Equal(t, "Tu sesión ha expirado. Ejecuta 'moneyboard login' para iniciar sesión de nuevo.", For(err, language.Spanish))

	assert.Equal(t, "Has cerrado sesión.", LoggedOut(language.Spanish))
}

func TestLanguage(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "es_MX.UTF-8")

	assert.Equal(t, language.English, Language("en"))
	assert.Equal(t, language.Spanish, Language("es"))
	assert.Equal(t, language.Spanish, Language("es-AR"))
	assert.Equal(t, language.English, Language("fi"))
	assert.Equal(t, language.Spanish, Language(""))
	assert.Equal(t, language.Spanish, Language("auto"))

	t.Setenv("LANG", "C")
	assert.Equal(t, language.English, Language(""))
}
