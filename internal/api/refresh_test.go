package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/moneyboard/internal/credstore"
)

// holdUntilWaiters returns an exchange that blocks until r has n parked
// waiters and then returns pair and err.
func holdUntilWaiters(r **Refresher, n int, calls *atomic.Int32, pair credstore.Pair, err error) ExchangeFunc {
	return func(_ context.Context, _ string) (credstore.Pair, error) {
		calls.Add(1)

		for (*r).pendingWaiters() < n {
			time.Sleep(time.Millisecond)
		}

		return pair, err
	}
}

// awaitConcurrently starts one initiator, waits for the cycle to begin, then
// starts waiters more callers. It returns every caller's result.
func awaitConcurrently(t *testing.T, r *Refresher, waiters int) ([]string, []error) {
	t.Helper()

	ctx := context.Background()
	access := make([]string, waiters+1)
	errs := make([]error, waiters+1)

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		access[0], errs[0] = r.Await(ctx, "a1")
	}()

	require.Eventually(t, func() bool {
		return r.State() == StateRefreshing
	}, 2*time.Second, time.Millisecond)

	for i := 1; i <= waiters; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			access[i], errs[i] = r.Await(ctx, "a1")
		}()
	}

	wg.Wait()

	return access, errs
}

func TestRefresher_SuccessReleasesAllWaiters(t *testing.T) {
	store := credstore.NewMemory(credstore.Pair{Access: "a1", Refresh: "r1"})

	var (
		r     *Refresher
		calls atomic.Int32
	)

	r = NewRefresher(store, holdUntilWaiters(&r, 3, &calls, credstore.Pair{Access: "a2", Refresh: "r2"}, nil), slog.Default())

	access, errs := awaitConcurrently(t, r, 3)

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, "a2", access[i])
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, StateIdle, r.State())
	assert.Equal(t, 0, r.pendingWaiters())

	p, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, credstore.Pair{Access: "a2", Refresh: "r2"}, p)
}

func TestRefresher_FailureFanOut(t *testing.T) {
	store := credstore.NewMemory(credstore.Pair{Access: "a1", Refresh: "r1"})

	rejected := &Error{Kind: KindUnauthorized, StatusCode: 401, Err: ErrUnauthorized}

	var (
		r     *Refresher
		calls atomic.Int32
		ended atomic.Int32
	)

	r = NewRefresher(store, holdUntilWaiters(&r, 3, &calls, credstore.Pair{}, rejected), slog.Default())
	r.OnSessionEnd(func(err error) {
		ended.Add(1)
		assert.ErrorIs(t, err, ErrRefreshFailed)
	})

	access, errs := awaitConcurrently(t, r, 3)

	require.Len(t, errs, 4)

	for i := range errs {
		assert.ErrorIs(t, errs[i], ErrRefreshFailed, "caller %d", i)
		assert.ErrorIs(t, errs[i], ErrUnauthorized, "caller %d", i)
		assert.Empty(t, access[i])
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), ended.Load())
	assert.Equal(t, StateIdle, r.State())

	p, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, p.IsZero())
}

func TestRefresher_StaleFailureSkipsExchange(t *testing.T) {
	store := credstore.NewMemory(credstore.Pair{Access: "a2", Refresh: "r2"})

	var calls atomic.Int32

	r := NewRefresher(store, func(context.Context, string) (credstore.Pair, error) {
		calls.Add(1)

		return credstore.Pair{}, errors.New("unexpected exchange")
	}, slog.Default())

	access, err := r.Await(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "a2", access)
	assert.Equal(t, int32(0), calls.Load())
}

func TestRefresher_WaiterCancellationDoesNotAbortCycle(t *testing.T) {
	store := credstore.NewMemory(credstore.Pair{Access: "a1", Refresh: "r1"})

	release := make(chan struct{})

	r := NewRefresher(store, func(context.Context, string) (credstore.Pair, error) {
		<-release

		return credstore.Pair{Access: "a2", Refresh: "r2"}, nil
	}, slog.Default())

	initiatorDone := make(chan error, 1)

	go func() {
		_, err := r.Await(context.Background(), "a1")
		initiatorDone <- err
	}()

	require.Eventually(t, func() bool {
		return r.State() == StateRefreshing
	}, 2*time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	waiterDone := make(chan error, 1)

	go func() {
		_, err := r.Await(ctx, "a1")
		waiterDone <- err
	}()

	require.Eventually(t, func() bool {
		return r.pendingWaiters() == 1
	}, 2*time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-waiterDone, context.Canceled)

	close(release)
	require.NoError(t, <-initiatorDone)
	assert.Equal(t, StateIdle, r.State())

	p, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a2", p.Access)
}

func TestRefresher_InitiatorCancellationDoesNotAbortExchange(t *testing.T) {
	store := credstore.NewMemory(credstore.Pair{Access: "a1", Refresh: "r1"})

	ctx, cancel := context.WithCancel(context.Background())

	r := NewRefresher(store, func(exCtx context.Context, _ string) (credstore.Pair, error) {
		cancel()

		assert.NoError(t, exCtx.Err(), "exchange context is detached from the initiator")

		return credstore.Pair{Access: "a2", Refresh: "r2"}, nil
	}, slog.Default())

	access, err := r.Await(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "a2", access)
}

// failingSetStore accepts reads and clears but rejects every write.
type failingSetStore struct {
	*credstore.Memory
}

func (failingSetStore) Set(context.Context, credstore.Pair) error {
	return errors.New("disk full")
}

func TestRefresher_StoreWriteFailureEndsSession(t *testing.T) {
	store := failingSetStore{credstore.NewMemory(credstore.Pair{Access: "a1", Refresh: "r1"})}

	var ended atomic.Int32

	r := NewRefresher(store, func(context.Context, string) (credstore.Pair, error) {
		return credstore.Pair{Access: "a2", Refresh: "r2"}, nil
	}, slog.Default())
	r.OnSessionEnd(func(error) { ended.Add(1) })

	_, err := r.Await(context.Background(), "a1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.Equal(t, int32(1), ended.Load())

	p, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, p.IsZero())
}

func TestRefreshState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "refreshing", StateRefreshing.String())
}
