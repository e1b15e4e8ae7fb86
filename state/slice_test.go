package state_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jrsteele09/go-budget-client/api"
	"github.com/jrsteele09/go-budget-client/state"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   int64
	Name string
}

func (i item) EntityID() int64 { return i.ID }

type items struct {
	List []item
}

func (s items) Clone() items {
	return items{List: state.Clone(s.List)}
}

func newSlice(opts ...state.Option) *state.Slice[items] {
	opts = append([]state.Option{state.WithLogger(zerolog.Nop())}, opts...)
	return state.NewSlice("items", items{}, opts...)
}

var fetchIntent = state.Intent[items]{Name: "items/fetch", Fallback: "Failed to fetch items", Replace: true}

func replaceAll(st *items, list []item) { st.List = state.Clone(list) }

// gatedCall returns a call that blocks until release is closed, plus a channel
// that is closed once the call has started.
func gatedCall(result []item, err error) (call func(context.Context) ([]item, error), started, release chan struct{}) {
	started = make(chan struct{})
	release = make(chan struct{})
	call = func(ctx context.Context) ([]item, error) {
		close(started)
		select {
		case <-release:
			return result, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return call, started, release
}

func TestRun_Transitions(t *testing.T) {
	s := newSlice()

	call, started, release := gatedCall([]item{{ID: 1, Name: "a"}}, nil)
	done := make(chan error)
	go func() {
		_, err := state.Run(context.Background(), s, fetchIntent, call, replaceAll)
		done <- err
	}()

	<-started
	_, status := s.Read()
	require.True(t, status.Loading, "pending transition sets loading")

	close(release)
	require.NoError(t, <-done)
	st, status := s.Read()
	require.False(t, status.Loading)
	require.Empty(t, status.Error)
	require.Equal(t, []item{{ID: 1, Name: "a"}}, st.List)
}

func TestRun_RejectedKeepsEntities(t *testing.T) {
	s := newSlice()
	s.Update(func(st *items) { st.List = []item{{ID: 1}} })

	_, err := state.Run(context.Background(), s, fetchIntent, func(context.Context) ([]item, error) {
		return nil, &api.HTTPError{Status: 500, Message: "database down"}
	}, replaceAll)
	require.Error(t, err)

	st, status := s.Read()
	require.False(t, status.Loading)
	require.Equal(t, "database down", status.Error)
	require.Equal(t, []item{{ID: 1}}, st.List)

	t.Run("fallback without server message", func(t *testing.T) {
		_, err := state.Run(context.Background(), s, fetchIntent, func(context.Context) ([]item, error) {
			return nil, errors.New("dial tcp: refused")
		}, replaceAll)
		require.Error(t, err)
		_, status := s.Read()
		require.Equal(t, "Failed to fetch items", status.Error)
	})

	t.Run("success clears error", func(t *testing.T) {
		_, err := state.Run(context.Background(), s, fetchIntent, func(context.Context) ([]item, error) {
			return []item{}, nil
		}, replaceAll)
		require.NoError(t, err)
		_, status := s.Read()
		require.Empty(t, status.Error)
	})
}

func TestRun_Guard(t *testing.T) {
	s := newSlice()
	guardErr := errors.New("not allowed")

	called := false
	_, err := state.Run(context.Background(), s, state.Intent[items]{
		Name:  "items/guarded",
		Guard: func(*items) error { return guardErr },
	}, func(context.Context) (struct{}, error) {
		called = true
		return struct{}{}, nil
	}, nil)

	require.ErrorIs(t, err, guardErr)
	require.False(t, called)
	_, status := s.Read()
	require.False(t, status.Loading)
}

func TestRun_Cancelled(t *testing.T) {
	s := newSlice()
	s.Reduce(func(_ *items, status *state.Status) { status.Error = "earlier" })

	ctx, cancel := context.WithCancel(context.Background())
	call, started, _ := gatedCall(nil, nil)
	done := make(chan error)
	go func() {
		_, err := state.Run(ctx, s, fetchIntent, call, replaceAll)
		done <- err
	}()
	<-started
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	_, status := s.Read()
	require.False(t, status.Loading)
	require.Empty(t, status.Error, "pending cleared the old error and cancellation sets none")
}

// Two fetches in flight: the first dispatched resolves last.
func racingFetches(t *testing.T, s *state.Slice[items]) {
	t.Helper()
	slowCall, slowStarted, slowRelease := gatedCall([]item{{ID: 1, Name: "old"}}, nil)
	fastCall, fastStarted, fastRelease := gatedCall([]item{{ID: 1, Name: "new"}}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = state.Run(context.Background(), s, fetchIntent, slowCall, replaceAll)
	}()
	<-slowStarted

	fastDone := make(chan struct{})
	go func() {
		defer close(fastDone)
		_, _ = state.Run(context.Background(), s, fetchIntent, fastCall, replaceAll)
	}()
	<-fastStarted
	close(fastRelease)
	<-fastDone

	close(slowRelease)
	wg.Wait()
}

func TestRun_LastResolvingWins(t *testing.T) {
	s := newSlice()
	racingFetches(t, s)

	st, status := s.Read()
	require.False(t, status.Loading)
	require.Equal(t, "old", st.List[0].Name, "the later-resolving stale fetch overwrites newer data")
}

func TestRun_LoadingFlickers(t *testing.T) {
	s := newSlice()

	slowCall, slowStarted, slowRelease := gatedCall(nil, nil)
	go func() { _, _ = state.Run(context.Background(), s, fetchIntent, slowCall, replaceAll) }()
	<-slowStarted

	_, err := state.Run(context.Background(), s, fetchIntent, func(context.Context) ([]item, error) {
		return nil, nil
	}, replaceAll)
	require.NoError(t, err)

	_, status := s.Read()
	require.False(t, status.Loading, "loading drops although the slow fetch is still running")
	close(slowRelease)
}

func TestRun_Fencing(t *testing.T) {
	s := newSlice(state.WithFencing(true))
	racingFetches(t, s)

	st, status := s.Read()
	require.False(t, status.Loading)
	require.Equal(t, "new", st.List[0].Name, "stale replacement discarded")

	t.Run("loading tracks in-flight operations", func(t *testing.T) {
		slowCall, slowStarted, slowRelease := gatedCall(nil, nil)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = state.Run(context.Background(), s, fetchIntent, slowCall, replaceAll)
		}()
		<-slowStarted

		_, err := state.Run(context.Background(), s, state.Intent[items]{Name: "items/create"}, func(context.Context) (item, error) {
			return item{ID: 2}, nil
		}, func(st *items, it item) { st.List = state.Append(st.List, it) })
		require.NoError(t, err)

		_, status := s.Read()
		require.True(t, status.Loading)
		close(slowRelease)
		<-done
		_, status = s.Read()
		require.False(t, status.Loading)
	})
}

func TestRun_FencingPerCollection(t *testing.T) {
	listFetch := state.Intent[items]{Name: "items/fetch", Collection: "list", Replace: true}

	// startFetch holds a list fetch that dispatched before next runs.
	startFetch := func(t *testing.T, s *state.Slice[items]) (release func()) {
		call, started, gate := gatedCall([]item{{ID: 1, Name: "fetched"}}, nil)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = state.Run(context.Background(), s, listFetch, call, replaceAll)
		}()
		<-started
		return func() {
			close(gate)
			<-done
		}
	}

	t.Run("other collection does not overtake", func(t *testing.T) {
		s := newSlice(state.WithFencing(true))
		release := startFetch(t, s)

		_, err := state.Run(context.Background(), s, state.Intent[items]{Name: "items/fetchStats", Collection: "stats"}, func(context.Context) (int, error) {
			return 3, nil
		}, nil)
		require.NoError(t, err)
		release()

		st, _ := s.Read()
		require.Equal(t, []item{{ID: 1, Name: "fetched"}}, st.List)
	})

	t.Run("same collection overtakes", func(t *testing.T) {
		s := newSlice(state.WithFencing(true))
		release := startFetch(t, s)

		_, err := state.Run(context.Background(), s, state.Intent[items]{Name: "items/create", Collection: "list"}, func(context.Context) (item, error) {
			return item{ID: 2, Name: "created"}, nil
		}, func(st *items, it item) { st.List = state.Append(st.List, it) })
		require.NoError(t, err)
		release()

		st, _ := s.Read()
		require.Equal(t, []item{{ID: 2, Name: "created"}}, st.List)
	})
}

func TestRun_QuietOperation(t *testing.T) {
	type typing struct{}
	s := newSlice()
	var seen []bool

	_, err := state.Run(context.Background(), s, state.Intent[items]{
		Name:    "items/send",
		Quiet:   true,
		Pending: func(*items) { seen = append(seen, true) },
		Settle:  func(*items) { seen = append(seen, false) },
	}, func(context.Context) (typing, error) {
		_, status := s.Read()
		require.False(t, status.Loading)
		return typing{}, nil
	}, nil)
	require.NoError(t, err)
	require.Equal(t, []bool{true, false}, seen)
}

func TestSlice_ListenerAndSnapshot(t *testing.T) {
	var changes []string
	s := newSlice(state.WithListener(func(name string) { changes = append(changes, name) }))

	s.Update(func(st *items) { st.List = []item{{ID: 1, Name: "a"}} })
	snapshot, _ := s.Read()
	snapshot.List[0].Name = "mutated"

	st, _ := s.Read()
	require.Equal(t, "a", st.List[0].Name, "snapshots do not alias slice state")

	s.ClearError()
	require.Equal(t, []string{"items", "items"}, changes)
}
