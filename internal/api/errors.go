// Package api provides the authenticated HTTP client for the moneyboard
// backend: bearer credentials on every request, a single-flight refresh of
// expired credentials, and classification of every failure.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind is the classification of one request outcome.
type Kind int

const (
	KindSuccess Kind = iota
	// KindExpiredCredential is a 401 on an ordinary request that has not been
	// retried yet. It is recovered by the Refresher and never surfaces.
	KindExpiredCredential
	// KindAuthEndpointFailure is a 401 from login or registration.
	KindAuthEndpointFailure
	// KindUnauthorized is a 401 after the one allowed retry, or from the
	// refresh endpoint itself.
	KindUnauthorized
	KindBadRequest
	KindForbidden
	KindNotFound
	KindConflict
	KindThrottled
	KindClientError
	KindServerError
	KindNetworkFailure
	KindTimeout
	KindRefreshFailure
)

var kindNames = map[Kind]string{
	KindSuccess:             "success",
	KindExpiredCredential:   "expired_credential",
	KindAuthEndpointFailure: "auth_endpoint_failure",
	KindUnauthorized:        "unauthorized",
	KindBadRequest:          "bad_request",
	KindForbidden:           "forbidden",
	KindNotFound:            "not_found",
	KindConflict:            "conflict",
	KindThrottled:           "throttled",
	KindClientError:         "client_error",
	KindServerError:         "server_error",
	KindNetworkFailure:      "network_failure",
	KindTimeout:             "timeout",
	KindRefreshFailure:      "refresh_failure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinel errors for classification. Use errors.Is(err, api.ErrNotFound).
var (
	ErrUnauthorized  = errors.New("api: unauthorized")
	ErrAuthFailed    = errors.New("api: authentication failed")
	ErrBadRequest    = errors.New("api: bad request")
	ErrForbidden     = errors.New("api: forbidden")
	ErrNotFound      = errors.New("api: not found")
	ErrConflict      = errors.New("api: conflict")
	ErrThrottled     = errors.New("api: throttled")
	ErrClientError   = errors.New("api: client error")
	ErrServerError   = errors.New("api: server error")
	ErrNetwork       = errors.New("api: network failure")
	ErrRefreshFailed = errors.New("api: session refresh failed")
	ErrNotLoggedIn   = errors.New("api: not logged in")

	// ErrTimeout wraps ErrNetwork: a timeout is handled like any other
	// network failure but stays distinguishable in logs.
	ErrTimeout = fmt.Errorf("%w: request timed out", ErrNetwork)

	// ErrNoRefreshToken wraps ErrRefreshFailed for the case where the store
	// held no refresh credential at all.
	ErrNoRefreshToken = fmt.Errorf("%w: no refresh token", ErrRefreshFailed)
)

// Error is returned by Client.Send for every non-success outcome. It wraps a
// sentinel for errors.Is and, for transport failures, the underlying cause.
type Error struct {
	Kind       Kind
	StatusCode int // zero when no response was received
	Method     string
	Path       string
	RequestID  string
	Message    string
	Err        error // sentinel
	Cause      error // transport or refresh error, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s %s", e.Err, e.Method, e.Path)

	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
	}

	if e.RequestID != "" {
		fmt.Fprintf(&b, " (request-id: %s)", e.RequestID)
	}

	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	} else if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}

	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}

	return []error{e.Err, e.Cause}
}

// KindOf returns the Kind of err, or KindSuccess for a nil error. Errors that
// did not come from this package report KindClientError.
func KindOf(err error) Kind {
	if err == nil {
		return KindSuccess
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}

	return KindClientError
}

// IsNetwork reports whether err is a network failure or timeout.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// classifyResponse maps a received status code to a Kind. 401 handling
// depends on the request: credential-issuing requests never refresh, and a
// request that was already replayed once is not replayed again.
func classifyResponse(req *Request, code int) Kind {
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return KindSuccess
	}

	switch code {
	case http.StatusUnauthorized:
		switch {
		case req.credentialIssuing():
			return KindAuthEndpointFailure
		case req.retried, req.anonymous, req.isRefresh():
			return KindUnauthorized
		default:
			return KindExpiredCredential
		}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindBadRequest
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusTooManyRequests:
		return KindThrottled
	}

	if code >= http.StatusInternalServerError {
		return KindServerError
	}

	return KindClientError
}

// classifyTransportError maps an error from the transport (no response) to
// KindTimeout or KindNetworkFailure. The caller has already ruled out
// cancellation of its own context.
func classifyTransportError(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	return KindNetworkFailure
}

// sentinelFor returns the sentinel error wrapped for a Kind.
func sentinelFor(k Kind) error {
	switch k {
	case KindExpiredCredential, KindUnauthorized:
		return ErrUnauthorized
	case KindAuthEndpointFailure:
		return ErrAuthFailed
	case KindBadRequest:
		return ErrBadRequest
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	case KindThrottled:
		return ErrThrottled
	case KindServerError:
		return ErrServerError
	case KindNetworkFailure:
		return ErrNetwork
	case KindTimeout:
		return ErrTimeout
	case KindRefreshFailure:
		return ErrRefreshFailed
	default:
		return ErrClientError
	}
}

// maxMessageLen caps how much of a non-JSON error body ends up in Message.
const maxMessageLen = 512

// errorBody lists the fields the backend uses for error text.
type errorBody struct {
	Detail         string   `json:"detail"`
	Message        string   `json:"message"`
	Error          string   `json:"error"`
	NonFieldErrors []string `json:"non_field_errors"`
}

// extractMessage pulls a human-readable message out of an error body.
func extractMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Detail != "":
			return eb.Detail
		case eb.Message != "":
			return eb.Message
		case eb.Error != "":
			return eb.Error
		case len(eb.NonFieldErrors) > 0:
			return eb.NonFieldErrors[0]
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen] + "..."
	}

	return msg
}
