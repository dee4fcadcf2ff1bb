// Package usermsg turns classified API errors into short messages for the
// person at the terminal, in English or Spanish.
package usermsg

import (
	"context"
	"errors"
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/tonimelisma/moneyboard/internal/api"
)

// Message keys.
const (
	keySessionExpired = "session_expired"
	keyNotLoggedIn    = "not_logged_in"
	keyLoginFailed    = "login_failed"
	keyBadRequest     = "bad_request"
	keyForbidden      = "forbidden"
	keyNotFound       = "not_found"
	keyConflict       = "conflict"
	keyThrottled      = "throttled"
	keyServer         = "server"
	keyNetwork        = "network"
	keyTimeout        = "timeout"
	keyCanceled       = "canceled"
	keyUnexpected     = "unexpected"
	keyLoggedOut      = "logged_out"
)

var supported = []language.Tag{language.English, language.Spanish}

var matcher = language.NewMatcher(supported)

var messages = map[language.Tag]map[string]string{
	language.English: {
		keySessionExpired: "Your session has expired. Run 'moneyboard login' to sign in again.",
		keyNotLoggedIn:    "You are not logged in. Run 'moneyboard login' first.",
		keyLoginFailed:    "Incorrect email or password.",
		keyBadRequest:     "The server rejected the request: %s",
		keyForbidden:      "You do not have permission to do that.",
		keyNotFound:       "Not found.",
		keyConflict:       "That conflicts with existing data: %s",
		keyThrottled:      "Too many requests. Wait a moment and try again.",
		keyServer:         "The server had a problem (HTTP %d). Try again later.",
		keyNetwork:        "Could not reach the server. Check your connection and the api_url setting.",
		keyTimeout:        "The server took too long to respond.",
		keyCanceled:       "Canceled.",
		keyUnexpected:     "Something went wrong: %s",
		keyLoggedOut:      "You have been logged out.",
	},
	language.Spanish: {
		keySessionExpired: "Tu sesión ha expirado. Ejecuta 'moneyboard login' para iniciar sesión de nuevo.",
		keyNotLoggedIn:    "No has iniciado sesión. Ejecuta 'moneyboard login' primero.",
		keyLoginFailed:    "Correo o contraseña incorrectos.",
		keyBadRequest:     "El servidor rechazó la solicitud: %s",
		keyForbidden:      "No tienes permiso para hacer eso.",
		keyNotFound:       "No encontrado.",
		keyConflict:       "Eso entra en conflicto con datos existentes: %s",
		keyThrottled:      "Demasiadas solicitudes. Espera un momento e inténtalo de nuevo.",
		keyServer:         "El servidor tuvo un problema (HTTP %d). Inténtalo más tarde.",
		keyNetwork:        "No se pudo conectar con el servidor. Revisa tu conexión y la opción api_url.",
		keyTimeout:        "El servidor tardó demasiado en responder.",
		keyCanceled:       "Cancelado.",
		keyUnexpected:     "Algo salió mal: %s",
		keyLoggedOut:      "Has cerrado sesión.",
	},
}

var cat = buildCatalog()

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	for tag, msgs := range messages {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic("usermsg: " + err.Error())
			}
		}
	}

	return b
}

// Language resolves a configured language name ("en", "es", "es-MX", ...)
// to a supported tag. An empty name falls back to $LANG, then English.
func Language(name string) language.Tag {
	if name == "" || name == "auto" {
		name = localeFromEnv()
	}

	if name == "" {
		return language.English
	}

	tag, _, _ := matcher.Match(language.Make(name))
	base, _ := tag.Base()

	for _, s := range supported {
		if sb, _ := s.Base(); sb == base {
			return s
		}
	}

	return language.English
}

// localeFromEnv reads the POSIX locale, e.g. "es_ES.UTF-8" -> "es-ES".
func localeFromEnv() string {
	for _, v := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if s := os.Getenv(v); s != "" && s != "C" && s != "POSIX" {
			s, _, _ = strings.Cut(s, ".")

			return strings.ReplaceAll(s, "_", "-")
		}
	}

	return ""
}

// Printer returns a printer for tag backed by the message catalog.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(cat))
}

// For renders err as a user-facing message. Errors that did not come from
// the API client are shown with their text.
func For(err error, tag language.Tag) string {
	if err == nil {
		return ""
	}

	p := Printer(tag)

	if errors.Is(err, context.Canceled) {
		return p.Sprintf(keyCanceled)
	}

	if errors.Is(err, api.ErrNotLoggedIn) {
		return p.Sprintf(keyNotLoggedIn)
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return p.Sprintf(keyUnexpected, err.Error())
	}

	switch apiErr.Kind {
	case api.KindRefreshFailure, api.KindUnauthorized, api.KindExpiredCredential:
		// A transient refresh failure keeps the session; report the network.
		if api.IsNetwork(err) {
			return networkMessage(p, err)
		}

		if inner := innerServerError(err); inner != nil {
			return p.Sprintf(keyServer, inner.StatusCode)
		}

		return p.Sprintf(keySessionExpired)
	case api.KindAuthEndpointFailure:
		return p.Sprintf(keyLoginFailed)
	case api.KindBadRequest:
		return p.Sprintf(keyBadRequest, detail(apiErr))
	case api.KindForbidden:
		return p.Sprintf(keyForbidden)
	case api.KindNotFound:
		return p.Sprintf(keyNotFound)
	case api.KindConflict:
		return p.Sprintf(keyConflict, detail(apiErr))
	case api.KindThrottled:
		return p.Sprintf(keyThrottled)
	case api.KindServerError:
		return p.Sprintf(keyServer, apiErr.StatusCode)
	case api.KindNetworkFailure, api.KindTimeout:
		return networkMessage(p, err)
	default:
		return p.Sprintf(keyUnexpected, detail(apiErr))
	}
}

// LoggedOut is printed after an explicit logout or when the session ends.
func LoggedOut(tag language.Tag) string {
	return Printer(tag).Sprintf(keyLoggedOut)
}

// innerServerError finds a 5xx wrapped inside a refresh failure.
func innerServerError(err error) *api.Error {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Cause == nil || !errors.Is(apiErr.Cause, api.ErrServerError) {
		return nil
	}

	var inner *api.Error
	if errors.As(apiErr.Cause, &inner) {
		return inner
	}

	return nil
}

func networkMessage(p *message.Printer, err error) string {
	if errors.Is(err, api.ErrTimeout) {
		return p.Sprintf(keyTimeout)
	}

	return p.Sprintf(keyNetwork)
}

func detail(e *api.Error) string {
	if e.Message != "" {
		return e.Message
	}

	return e.Error()
}
