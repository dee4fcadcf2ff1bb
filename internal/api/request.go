package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Backend paths with special meaning to the client.
const (
	PathLogin    = "/auth/login/"
	PathRegister = "/auth/register/"
	PathRefresh  = "/auth/refresh/"
)

// Request describes one logical API call. Everything except the retry marker
// is fixed once built, so the same Request can be sent again after a
// credential refresh. A Request must not be shared between concurrent Sends.
type Request struct {
	Method string
	Path   string // relative to the client's base URL, e.g. "/accounts/"
	Query  url.Values
	Header http.Header
	Body   []byte

	retried   bool
	anonymous bool
}

// NewRequest builds a Request. A non-nil body is encoded as JSON.
func NewRequest(method, path string, body any) (*Request, error) {
	req := &Request{
		Method: method,
		Path:   path,
		Header: make(http.Header),
	}

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("api: encoding request body: %w", err)
		}

		req.Body = data
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// Retried reports whether this request has already been replayed after a
// credential refresh.
func (r *Request) Retried() bool {
	return r.retried
}

// credentialIssuing reports whether the request is a login or registration.
// A 401 from these means bad credentials, not an expired session.
func (r *Request) credentialIssuing() bool {
	return strings.Contains(r.Path, PathLogin) || strings.Contains(r.Path, PathRegister)
}

func (r *Request) isRefresh() bool {
	return strings.Contains(r.Path, PathRefresh)
}

// build creates a fresh *http.Request for one attempt. The body is re-read
// from the byte slice every time.
func (r *Request) build(ctx context.Context, baseURL string) (*http.Request, error) {
	target := baseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var body *bytes.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	var (
		httpReq *http.Request
		err     error
	)

	// A typed nil *bytes.Reader would be a non-nil io.Reader.
	if body != nil {
		httpReq, err = http.NewRequestWithContext(ctx, r.Method, target, body)
	} else {
		httpReq, err = http.NewRequestWithContext(ctx, r.Method, target, nil)
	}

	if err != nil {
		return nil, fmt.Errorf("api: creating request: %w", err)
	}

	for k, vs := range r.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	return httpReq, nil
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}

	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("api: decoding response: %w", err)
	}

	return nil
}
