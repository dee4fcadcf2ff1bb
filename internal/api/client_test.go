package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/moneyboard/internal/credstore"
)

// newTestClient creates a Client pointing at the given httptest server with
// the given credentials in a memory store.
func newTestClient(t *testing.T, url string, pair credstore.Pair) (*Client, *credstore.Memory) {
	t.Helper()

	store := credstore.NewMemory(pair)
	c := NewClient(url, http.DefaultClient, store, slog.Default(), "test-agent")

	return c, store
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// refreshHandler answers the refresh exchange with next and counts calls.
func refreshHandler(t *testing.T, wantRefresh string, next tokenPair, calls *atomic.Int32) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		assert.Empty(t, r.Header.Get("Authorization"), "refresh exchange must be anonymous")

		var body refreshRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, wantRefresh, body.Refresh)

		writeJSON(w, http.StatusOK, next)
	}
}

// bearerGate serves 200 to requests carrying want and 401 to everything else.
func bearerGate(want string, hits *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		if r.Header.Get("Authorization") != "Bearer "+want {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})

			return
		}

		writeJSON(w, http.StatusOK, []Account{})
	}
}

func TestSend_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer a1", r.Header.Get("Authorization"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})

	req, err := NewRequest(http.MethodGet, "/accounts/", nil)
	require.NoError(t, err)

	resp, err := c.Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, req.Retried())
}

func TestSend_NoCredentialGoesOutUnauthenticated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, Health{Status: "healthy"})
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credstore.Pair{})

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
}

func TestSend_RefreshesAndReplays(t *testing.T) {
	var refreshes, hits atomic.Int32

	var seenIDs sync.Map

	mux := http.NewServeMux()
	mux.Handle(PathRefresh, refreshHandler(t, "r1", tokenPair{Access: "a2", Refresh: "r2"}, &refreshes))
	mux.HandleFunc("/accounts/", func(w http.ResponseWriter, r *http.Request) {
		_, dup := seenIDs.LoadOrStore(r.Header.Get("X-Request-ID"), true)
		assert.False(t, dup, "every attempt gets its own request id")
		bearerGate("a2", &hits)(w, r)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})

	accounts, err := c.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)

	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, int32(2), hits.Load())

	p, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, credstore.Pair{Access: "a2", Refresh: "r2"}, p)
	assert.Equal(t, StateIdle, c.Refresher().State())
}

func TestSend_SingleFlightRefresh(t *testing.T) {
	const n = 10

	var refreshes, hits, arrived atomic.Int32

	// Every request sent with the old credential waits until all n are in
	// flight, so all of them are answered 401 before any refresh starts.
	allIn := make(chan struct{})

	mux := http.NewServeMux()
	mux.Handle(PathRefresh, refreshHandler(t, "r1", tokenPair{Access: "a2", Refresh: "r2"}, &refreshes))
	mux.HandleFunc("/accounts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer a1" {
			if arrived.Add(1) == n {
				close(allIn)
			}

			<-allIn
		}

		bearerGate("a2", &hits)(w, r)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})

	g, ctx := errgroup.WithContext(context.Background())
	for range n {
		g.Go(func() error {
			_, err := c.ListAccounts(ctx)

			return err
		})
	}

	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), refreshes.Load(), "exactly one refresh exchange")
	assert.Equal(t, int32(n), arrived.Load())
	assert.Equal(t, int32(2*n), hits.Load(), "every request sent once and replayed once")

	p, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, credstore.Pair{Access: "a2", Refresh: "r2"}, p)
}

func TestSend_NoDoubleRetry(t *testing.T) {
	var refreshes, hits atomic.Int32

	mux := http.NewServeMux()
	mux.Handle(PathRefresh, refreshHandler(t, "r1", tokenPair{Access: "a2", Refresh: "r2"}, &refreshes))
	mux.Handle("/accounts/", bearerGate("never-valid", &hits))

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})

	req, err := NewRequest(http.MethodGet, "/accounts/", nil)
	require.NoError(t, err)

	_, err = c.Send(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.True(t, req.Retried())

	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, StateIdle, c.Refresher().State())

	// Sending the same descriptor again never re-enters the Refresher.
	_, err = c.Send(context.Background(), req)
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestSend_AuthEndpointExemption(t *testing.T) {
	tests := []struct {
		name string
		call func(c *Client) error
	}{
		{"login", func(c *Client) error {
			_, err := c.Login(context.Background(), LoginCredentials{Email: "a@b.c", Password: "wrong"})

			return err
		}},
		{"register", func(c *Client) error {
			_, err := c.Register(context.Background(), RegisterData{Email: "a@b.c", Password: "x"})

			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var refreshes atomic.Int32

			mux := http.NewServeMux()
			mux.Handle(PathRefresh, refreshHandler(t, "r1", tokenPair{Access: "a2", Refresh: "r2"}, &refreshes))
			mux.HandleFunc("/auth/", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
			})

			srv := httptest.NewServer(mux)
			defer srv.Close()

			c, store := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})

			err := tt.call(c)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAuthFailed)
			assert.Equal(t, KindAuthEndpointFailure, KindOf(err))

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "No active account found with the given credentials", apiErr.Message)

			assert.Equal(t, int32(0), refreshes.Load())

			p, err := store.Get(context.Background())
			require.NoError(t, err)
			assert.Equal(t, credstore.Pair{Access: "a1", Refresh: "r1"}, p, "store untouched")
		})
	}
}

func TestSend_MissingRefreshToken(t *testing.T) {
	for name, seed := range map[string]credstore.Pair{
		"empty store": {},
		"access only": {Access: "a1"},
	} {
		t.Run(name, func(t *testing.T) {
			var refreshes, hits atomic.Int32

			mux := http.NewServeMux()
			mux.Handle(PathRefresh, refreshHandler(t, "", tokenPair{Access: "a2", Refresh: "r2"}, &refreshes))
			mux.Handle("/accounts/", bearerGate("a2", &hits))

			srv := httptest.NewServer(mux)
			defer srv.Close()

			c, store := newTestClient(t, srv.URL, seed)

			var ended atomic.Int32
			c.OnSessionEnd(func(err error) {
				ended.Add(1)
				assert.ErrorIs(t, err, ErrNoRefreshToken)
			})

			_, err := c.ListAccounts(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRefreshFailed)
			assert.ErrorIs(t, err, ErrNoRefreshToken)
			assert.Equal(t, KindRefreshFailure, KindOf(err))

			assert.Equal(t, int32(0), refreshes.Load(), "no call to the refresh endpoint")
			assert.Equal(t, int32(1), hits.Load())
			assert.Equal(t, int32(1), ended.Load(), "session-terminated fires exactly once")

			p, err := store.Get(context.Background())
			require.NoError(t, err)
			assert.True(t, p.IsZero())
		})
	}
}

func TestSend_RefreshRejectedEndsSession(t *testing.T) {
	var refreshes, hits atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc(PathRefresh, func(w http.ResponseWriter, _ *http.Request) {
		refreshes.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is blacklisted"})
	})
	mux.Handle("/accounts/", bearerGate("a2", &hits))

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})

	var ended atomic.Int32
	c.OnSessionEnd(func(error) { ended.Add(1) })

	_, err := c.ListAccounts(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindRefreshFailure, KindOf(err))
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, int32(1), ended.Load())

	p, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, p.IsZero())
	assert.False(t, c.Authenticated(context.Background()))
}

func TestSend_RefreshUnreachableKeepsCredentials(t *testing.T) {
	var hits atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc(PathRefresh, func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	mux.Handle("/accounts/", bearerGate("a2", &hits))

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})
	c.SetTimeout(100 * time.Millisecond)

	var ended atomic.Int32
	c.OnSessionEnd(func(error) { ended.Add(1) })

	_, err := c.ListAccounts(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindRefreshFailure, KindOf(err))
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.ErrorIs(t, err, ErrTimeout)

	assert.Equal(t, int32(0), ended.Load(), "a transient failure does not end the session")

	p, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, credstore.Pair{Access: "a1", Refresh: "r1"}, p)
	assert.Equal(t, StateIdle, c.Refresher().State())
}

func TestSend_RefreshServerErrorKeepsCredentials(t *testing.T) {
	var refreshes, hits atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc(PathRefresh, func(w http.ResponseWriter, _ *http.Request) {
		refreshes.Add(1)
		writeJSON(w, http.StatusBadGateway, map[string]string{"detail": "upstream down"})
	})
	mux.Handle("/accounts/", bearerGate("a2", &hits))

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})

	var ended atomic.Int32
	c.OnSessionEnd(func(error) { ended.Add(1) })

	_, err := c.ListAccounts(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.ErrorIs(t, err, ErrServerError)
	assert.Equal(t, int32(0), ended.Load())

	p, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, credstore.Pair{Access: "a1", Refresh: "r1"}, p)
}

func TestSend_RefreshWithoutRotationKeepsRefreshToken(t *testing.T) {
	var refreshes, hits atomic.Int32

	mux := http.NewServeMux()
	mux.Handle(PathRefresh, refreshHandler(t, "r1", tokenPair{Access: "a2"}, &refreshes))
	mux.Handle("/accounts/", bearerGate("a2", &hits))

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})

	_, err := c.ListAccounts(context.Background())
	require.NoError(t, err)

	p, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, credstore.Pair{Access: "a2", Refresh: "r1"}, p)
}

func TestSend_PairAtomicity(t *testing.T) {
	var refreshes, hits atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc(PathRefresh, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		refreshHandler(t, "r1", tokenPair{Access: "a2", Refresh: "r2"}, &refreshes)(w, r)
	})
	mux.Handle("/accounts/", bearerGate("a2", &hits))

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, store := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})

	old := credstore.Pair{Access: "a1", Refresh: "r1"}
	fresh := credstore.Pair{Access: "a2", Refresh: "r2"}

	done := make(chan struct{})

	var observed sync.WaitGroup

	observed.Add(1)

	go func() {
		defer observed.Done()

		for {
			select {
			case <-done:
				return
			default:
			}

			p, err := store.Get(context.Background())
			assert.NoError(t, err)
			assert.True(t, p == old || p == fresh, "mixed pair observed: %+v", p)
		}
	}()

	_, err := c.ListAccounts(context.Background())
	close(done)
	observed.Wait()

	require.NoError(t, err)
}

func TestSend_TimeoutIndependence(t *testing.T) {
	var refreshes atomic.Int32

	mux := http.NewServeMux()
	mux.Handle(PathRefresh, refreshHandler(t, "r1", tokenPair{Access: "a2", Refresh: "r2"}, &refreshes))
	mux.HandleFunc("/slow/", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(2 * time.Second):
		}

		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/fast/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})
	c.SetTimeout(100 * time.Millisecond)

	var g errgroup.Group

	var slowErr error

	g.Go(func() error {
		req, err := NewRequest(http.MethodGet, "/slow/", nil)
		if err != nil {
			return err
		}

		_, slowErr = c.Send(context.Background(), req)

		return nil
	})
	g.Go(func() error {
		req, err := NewRequest(http.MethodGet, "/fast/", nil)
		if err != nil {
			return err
		}

		_, err = c.Send(context.Background(), req)

		return err
	})

	require.NoError(t, g.Wait())

	require.Error(t, slowErr)
	assert.Equal(t, KindTimeout, KindOf(slowErr))
	assert.ErrorIs(t, slowErr, ErrTimeout)
	assert.True(t, IsNetwork(slowErr))
	assert.False(t, errors.Is(slowErr, ErrUnauthorized))

	assert.Equal(t, int32(0), refreshes.Load())
	assert.Equal(t, StateIdle, c.Refresher().State())
}

func TestSend_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := newTestClient(t, url, credstore.Pair{Access: "a1", Refresh: "r1"})

	_, err := c.ListAccounts(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindNetworkFailure, KindOf(err))
	assert.ErrorIs(t, err, ErrNetwork)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestSend_CallerCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := c.ListAccounts(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSend_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		kind     Kind
		sentinel error
	}{
		{"bad request", http.StatusBadRequest, KindBadRequest, ErrBadRequest},
		{"forbidden", http.StatusForbidden, KindForbidden, ErrForbidden},
		{"not found", http.StatusNotFound, KindNotFound, ErrNotFound},
		{"conflict", http.StatusConflict, KindConflict, ErrConflict},
		{"throttled", http.StatusTooManyRequests, KindThrottled, ErrThrottled},
		{"server error", http.StatusInternalServerError, KindServerError, ErrServerError},
		{"bad gateway", http.StatusBadGateway, KindServerError, ErrServerError},
		{"teapot", http.StatusTeapot, KindClientError, ErrClientError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("X-Request-ID", "test-req-id")
				writeJSON(w, tt.status, map[string]string{"detail": "something"})
			}))
			defer srv.Close()

			c, _ := newTestClient(t, srv.URL, credstore.Pair{Access: "a1", Refresh: "r1"})

			_, err := c.ListAccounts(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "test-req-id", apiErr.RequestID)
			assert.Equal(t, "something", apiErr.Message)
			assert.Equal(t, http.MethodGet, apiErr.Method)
			assert.Equal(t, "/accounts/", apiErr.Path)
		})
	}
}
