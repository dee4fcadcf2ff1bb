package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tonimelisma/moneyboard/internal/credstore"
)

const (
	// DefaultTimeout bounds every attempt, including the refresh exchange.
	DefaultTimeout = 30 * time.Second

	// DefaultBaseURL matches the backend's development default.
	DefaultBaseURL = "http://localhost:8000/api"

	defaultUserAgent = "moneyboard/0.1"
	requestIDHeader  = "X-Request-ID"
)

// Client is the authenticated client for the moneyboard API. Every request
// flows Authenticator -> transport -> classifier -> Refresher -> replay or
// reject. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      CredentialStore
	auth       *Authenticator
	refresher  *Refresher
	logger     *slog.Logger
	userAgent  string
	timeout    time.Duration

	// newRequestID generates the per-attempt correlation ID. Tests override it.
	newRequestID func() string
}

// NewClient creates a client for baseURL (no trailing slash, e.g.
// "http://localhost:8000/api"). httpClient is the transport; its Transport
// can be replaced freely. A nil httpClient uses http.DefaultClient, and the
// per-attempt deadline is enforced by the client itself either way.
func NewClient(baseURL string, httpClient *http.Client, store CredentialStore, logger *slog.Logger, userAgent string) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   httpClient,
		store:        store,
		auth:         NewAuthenticator(store, logger),
		logger:       logger,
		userAgent:    userAgent,
		timeout:      DefaultTimeout,
		newRequestID: uuid.NewString,
	}

	c.refresher = NewRefresher(store, c.exchangeRefresh, logger)

	return c
}

// SetTimeout changes the per-attempt deadline. Non-positive values restore
// DefaultTimeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultTimeout
	}

	c.timeout = d
}

// OnSessionEnd registers fn to run whenever credentials are cleared because
// they could not be refreshed. The CLI uses it to tell the user to log in
// again.
func (c *Client) OnSessionEnd(fn func(error)) {
	c.refresher.OnSessionEnd(fn)
}

// Refresher exposes the client's refresh coordinator.
func (c *Client) Refresher() *Refresher {
	return c.refresher
}

// Send executes req and returns the response, or an error classified as an
// *Error. A 401 on an ordinary request triggers at most one credential
// refresh and one replay; the caller never sees the expired-credential
// failure when the refresh succeeds.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	return c.send(ctx, req, "")
}

// send runs one attempt with bearer, or with the stored credential when
// bearer is empty, and handles its outcome.
func (c *Client) send(ctx context.Context, req *Request, bearer string) (*Response, error) {
	resp, sentWith, err := c.attempt(ctx, req, bearer)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("api: request canceled: %w", ctx.Err())
		}

		var apiErr *Error
		if errors.As(err, &apiErr) {
			return nil, err
		}

		return nil, c.transportError(req, err)
	}

	kind := classifyResponse(req, resp.StatusCode)

	switch kind {
	case KindSuccess:
		return resp, nil
	case KindExpiredCredential:
		req.retried = true

		c.logger.Info("access credential rejected, refreshing",
			slog.String("method", req.Method),
			slog.String("path", req.Path),
		)

		access, err := c.refresher.Await(ctx, sentWith)
		if err != nil {
			return nil, c.refreshError(req, err)
		}

		return c.send(ctx, req, access)
	default:
		return nil, c.responseError(req, kind, resp)
	}
}

// attempt sends req once under the per-attempt deadline and reads the whole
// body. It returns the access value the request carried.
func (c *Client) attempt(ctx context.Context, req *Request, bearer string) (*Response, string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := req.build(attemptCtx, c.baseURL)
	if err != nil {
		return nil, "", &Error{
			Kind:   KindClientError,
			Method: req.Method,
			Path:   req.Path,
			Err:    ErrClientError,
			Cause:  err,
		}
	}

	reqID := c.newRequestID()
	httpReq.Header.Set(requestIDHeader, reqID)
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	var sentWith string

	switch {
	case req.anonymous:
	case bearer != "":
		setBearer(httpReq, bearer)
		sentWith = bearer
	default:
		sentWith = c.auth.Authorize(ctx, httpReq)
	}

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, sentWith, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, sentWith, fmt.Errorf("reading response body: %w", err)
	}

	if echoed := httpResp.Header.Get(requestIDHeader); echoed != "" {
		reqID = echoed
	}

	c.logger.Debug("request completed",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.Int("status", httpResp.StatusCode),
		slog.Bool("retried", req.retried),
		slog.Duration("elapsed", time.Since(start)),
		slog.String("request_id", reqID),
	)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
		RequestID:  reqID,
	}, sentWith, nil
}

// transportError classifies a failure where no response was received.
func (c *Client) transportError(req *Request, err error) *Error {
	kind := classifyTransportError(err)

	c.logger.Warn("no response from server",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.String("kind", kind.String()),
		slog.String("error", err.Error()),
	)

	return &Error{
		Kind:   kind,
		Method: req.Method,
		Path:   req.Path,
		Err:    sentinelFor(kind),
		Cause:  err,
	}
}

// responseError builds the error for a non-success response.
func (c *Client) responseError(req *Request, kind Kind, resp *Response) *Error {
	level := slog.LevelDebug
	if kind == KindForbidden || kind == KindNotFound || kind == KindServerError {
		level = slog.LevelWarn
	}

	c.logger.Log(context.Background(), level, "request failed",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.Int("status", resp.StatusCode),
		slog.String("kind", kind.String()),
		slog.String("request_id", resp.RequestID),
	)

	return &Error{
		Kind:       kind,
		StatusCode: resp.StatusCode,
		Method:     req.Method,
		Path:       req.Path,
		RequestID:  resp.RequestID,
		Message:    extractMessage(resp.Body),
		Err:        sentinelFor(kind),
	}
}

// refreshError wraps the error that ended a refresh cycle.
func (c *Client) refreshError(req *Request, err error) error {
	// A waiter whose own context ended reports cancellation, not a refresh failure.
	if !errors.Is(err, ErrRefreshFailed) {
		return err
	}

	return &Error{
		Kind:   KindRefreshFailure,
		Method: req.Method,
		Path:   req.Path,
		Err:    ErrRefreshFailed,
		Cause:  err,
	}
}

// tokenPair is the wire shape of an access/refresh pair.
type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// exchangeRefresh posts the refresh credential straight to the transport,
// without the authenticator and without the Refresher.
func (c *Client) exchangeRefresh(ctx context.Context, refresh string) (credstore.Pair, error) {
	req, err := NewRequest(http.MethodPost, PathRefresh, refreshRequest{Refresh: refresh})
	if err != nil {
		return credstore.Pair{}, err
	}

	req.anonymous = true

	resp, _, err := c.attempt(ctx, req, "")
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return credstore.Pair{}, err
		}

		return credstore.Pair{}, c.transportError(req, err)
	}

	if kind := classifyResponse(req, resp.StatusCode); kind != KindSuccess {
		return credstore.Pair{}, c.responseError(req, kind, resp)
	}

	var tp tokenPair
	if err := resp.Decode(&tp); err != nil {
		return credstore.Pair{}, err
	}

	if tp.Access == "" {
		return credstore.Pair{}, errors.New("api: refresh response missing access token")
	}

	return credstore.Pair{Access: tp.Access, Refresh: tp.Refresh}, nil
}

// do sends req and decodes a successful JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, req *Request, out any) error {
	resp, err := c.Send(ctx, req)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	return resp.Decode(out)
}

// call builds and sends a JSON request in one step.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	req, err := NewRequest(method, path, body)
	if err != nil {
		return err
	}

	return c.do(ctx, req, out)
}
