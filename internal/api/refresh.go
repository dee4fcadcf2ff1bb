package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tonimelisma/moneyboard/internal/credstore"
)

// RefreshState is the Refresher's state. There is no terminal state.
type RefreshState int

const (
	StateIdle RefreshState = iota
	StateRefreshing
)

func (s RefreshState) String() string {
	if s == StateRefreshing {
		return "refreshing"
	}

	return "idle"
}

// ExchangeFunc trades a refresh credential for a new pair.
type ExchangeFunc func(ctx context.Context, refresh string) (credstore.Pair, error)

// refreshResult is what a waiter receives when its cycle ends.
type refreshResult struct {
	access string
	err    error
}

// cycleOutcome is the result of one refresh cycle.
type cycleOutcome struct {
	access     string
	err        error
	terminated bool // credentials were cleared; the session is over
}

// Refresher serializes credential refreshes. The first caller to report an
// expired credential runs the exchange; callers arriving while it runs are
// parked as waiters and released, in arrival order, with the same outcome.
// state and waiters change together under mu.
type Refresher struct {
	store    CredentialStore
	exchange ExchangeFunc
	logger   *slog.Logger

	mu           sync.Mutex
	state        RefreshState
	waiters      []chan refreshResult
	onSessionEnd func(error)
}

// NewRefresher returns an idle Refresher.
func NewRefresher(store CredentialStore, exchange ExchangeFunc, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Refresher{
		store:    store,
		exchange: exchange,
		logger:   logger,
	}
}

// OnSessionEnd registers fn to be called each time a refresh cycle clears the
// credentials. fn runs outside the Refresher's lock and may call back into
// the client.
func (r *Refresher) OnSessionEnd(fn func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onSessionEnd = fn
}

// State returns the current state.
func (r *Refresher) State() RefreshState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// pendingWaiters returns the number of parked waiters.
func (r *Refresher) pendingWaiters() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.waiters)
}

// Await is called by a request that failed with an expired credential.
// staleAccess is the access value the request was sent with. Await returns
// the access credential to replay with, or the error that ended the cycle.
func (r *Refresher) Await(ctx context.Context, staleAccess string) (string, error) {
	r.mu.Lock()

	if r.state == StateRefreshing {
		reply := make(chan refreshResult, 1)
		r.waiters = append(r.waiters, reply)
		position := len(r.waiters)
		r.mu.Unlock()

		r.logger.Debug("refresh in flight, waiting",
			slog.Int("position", position),
		)

		select {
		case res := <-reply:
			return res.access, res.err
		case <-ctx.Done():
			return "", fmt.Errorf("api: waiting for refresh: %w", ctx.Err())
		}
	}

	current, readErr := r.store.Get(ctx)

	// A cycle that finished after this request was sent already replaced the
	// credential; replay with the new one instead of refreshing again.
	if readErr == nil && current.Access != "" && current.Access != staleAccess {
		r.mu.Unlock()

		r.logger.Debug("credential already refreshed, replaying")

		return current.Access, nil
	}

	r.state = StateRefreshing
	r.mu.Unlock()

	// The cycle serves every waiter, so the initiator's cancellation must not
	// abort it. The exchange carries its own deadline.
	out := r.runCycle(context.WithoutCancel(ctx), current, readErr)

	r.mu.Lock()
	waiters := r.waiters
	r.waiters = nil
	r.state = StateIdle
	onEnd := r.onSessionEnd
	r.mu.Unlock()

	for _, w := range waiters {
		w <- refreshResult{access: out.access, err: out.err}
	}

	r.logger.Info("refresh cycle finished",
		slog.Bool("ok", out.err == nil),
		slog.Int("waiters", len(waiters)),
		slog.Bool("session_ended", out.terminated),
	)

	if out.terminated && onEnd != nil {
		onEnd(out.err)
	}

	return out.access, out.err
}

// runCycle performs one refresh: exchange, then store. It clears the store
// when the session cannot continue.
func (r *Refresher) runCycle(ctx context.Context, current credstore.Pair, readErr error) cycleOutcome {
	if readErr != nil || current.Refresh == "" {
		r.logger.Warn("no refresh token available, ending session")
		r.clear(ctx)

		if readErr != nil {
			return cycleOutcome{err: fmt.Errorf("%w: %w", ErrNoRefreshToken, readErr), terminated: true}
		}

		return cycleOutcome{err: ErrNoRefreshToken, terminated: true}
	}

	r.logger.Info("refreshing credentials")

	pair, err := r.exchange(ctx, current.Refresh)
	if err != nil {
		// A network failure or a server error says nothing about the refresh
		// token; keep it so the next request can try again.
		if IsNetwork(err) || errors.Is(err, ErrServerError) {
			r.logger.Warn("refresh exchange failed transiently, keeping credentials",
				slog.String("error", err.Error()),
			)

			return cycleOutcome{err: fmt.Errorf("%w: %w", ErrRefreshFailed, err)}
		}

		r.logger.Warn("refresh exchange rejected, ending session",
			slog.String("error", err.Error()),
		)
		r.clear(ctx)

		return cycleOutcome{err: fmt.Errorf("%w: %w", ErrRefreshFailed, err), terminated: true}
	}

	if pair.Refresh == "" {
		pair.Refresh = current.Refresh
	}

	if err := r.store.Set(ctx, pair); err != nil {
		r.logger.Error("storing refreshed credentials failed, ending session",
			slog.String("error", err.Error()),
		)
		r.clear(ctx)

		return cycleOutcome{err: fmt.Errorf("%w: storing credentials: %w", ErrRefreshFailed, err), terminated: true}
	}

	return cycleOutcome{access: pair.Access}
}

func (r *Refresher) clear(ctx context.Context) {
	if err := r.store.Clear(ctx); err != nil {
		r.logger.Error("clearing credentials failed", slog.String("error", err.Error()))
	}
}
