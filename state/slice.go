// Package state is the reconciliation engine shared by every resource slice.
//
// A Slice owns one state value plus a Status (loading flag and error
// message). Operations go through Run, which applies a pending transition at
// dispatch and a fulfilled or rejected transition at completion. Network
// calls run concurrently; transitions on one slice are serialized by its
// lock, and separate slices never share a lock.
//
// By default the last completion wins: every completion clears the loading
// flag, even while other operations are still in flight, and a superseded
// whole-collection fetch that resolves late overwrites newer data.
// WithFencing changes this so a stale replacement is discarded and the
// loading flag tracks every operation still in flight. Staleness is judged
// per collection: only completions that wrote the same collection overtake
// a replacement.
package state

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-budget-client/api"
	apperrors "github.com/jrsteele09/go-budget-client/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Cloner is implemented by slice state types so readers get a deep copy.
type Cloner[T any] interface {
	Clone() T
}

// Status is the request bookkeeping shared by all slices.
type Status struct {
	Loading bool   `json:"is_loading"`
	Error   string `json:"error,omitempty"`
}

// Listener is told which slice changed after every transition.
type Listener func(slice string)

type options struct {
	fencing  bool
	logger   zerolog.Logger
	listener Listener
}

// Option configures a Slice.
type Option func(*options)

// WithFencing discards whole-collection replacements that complete after an
// operation dispatched later has already been applied.
func WithFencing(enabled bool) Option {
	return func(o *options) {
		o.fencing = enabled
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithListener(l Listener) Option {
	return func(o *options) {
		o.listener = l
	}
}

type Slice[S Cloner[S]] struct {
	name string
	opts options

	lock     sync.Mutex
	state    S
	status   Status
	seq      uint64            // last sequence number handed out
	applied  map[string]uint64 // per collection, highest sequence number applied
	inflight int               // operations that toggle Loading and have not settled
}

// NewSlice creates a slice holding initial.
func NewSlice[S Cloner[S]](name string, initial S, opts ...Option) *Slice[S] {
	s := &Slice[S]{
		name:    name,
		state:   initial,
		opts:    options{logger: log.Logger},
		applied: map[string]uint64{},
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	s.opts.logger = s.opts.logger.With().Str("slice", name).Logger()
	return s
}

func (s *Slice[S]) Name() string {
	return s.name
}

// Logger returns the slice's logger, tagged with the slice name.
func (s *Slice[S]) Logger() *zerolog.Logger {
	return &s.opts.logger
}

// Read returns a copy of the state and status taken in one critical section.
func (s *Slice[S]) Read() (S, Status) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state.Clone(), s.status
}

// Reduce applies a synchronous transition to the state and status.
func (s *Slice[S]) Reduce(fn func(st *S, status *Status)) {
	s.lock.Lock()
	fn(&s.state, &s.status)
	s.lock.Unlock()
	s.changed()
}

// Update applies a synchronous transition to the state only.
func (s *Slice[S]) Update(fn func(st *S)) {
	s.Reduce(func(st *S, _ *Status) { fn(st) })
}

// ClearError resets the error message.
func (s *Slice[S]) ClearError() {
	s.Reduce(func(_ *S, status *Status) { status.Error = "" })
}

func (s *Slice[S]) changed() {
	if s.opts.listener != nil {
		s.opts.listener(s.name)
	}
}

func (s *Slice[S]) begin(in *Intent[S]) (uint64, error) {
	s.lock.Lock()
	if in.Guard != nil {
		if err := in.Guard(&s.state); err != nil {
			s.lock.Unlock()
			return 0, err
		}
	}
	s.seq++
	seq := s.seq
	if !in.Quiet {
		s.inflight++
		s.status.Loading = true
	}
	s.status.Error = ""
	if in.Pending != nil {
		in.Pending(&s.state)
	}
	s.lock.Unlock()

	s.opts.logger.Debug().Str("intent", in.Name).Uint64("seq", seq).Msg("pending")
	s.changed()
	return seq, nil
}

// settle updates the loading flag once an operation completes. Caller holds
// the lock.
func (s *Slice[S]) settle(in *Intent[S]) {
	if in.Settle != nil {
		in.Settle(&s.state)
	}
	if in.Quiet {
		return
	}
	s.inflight--
	if s.opts.fencing {
		s.status.Loading = s.inflight > 0
		return
	}
	s.status.Loading = false
}

// stale reports whether a replacement dispatched as seq has been overtaken.
// Caller holds the lock.
func (s *Slice[S]) stale(in *Intent[S], seq uint64) bool {
	return s.opts.fencing && in.Replace && seq < s.applied[in.collection()]
}

func (s *Slice[S]) fulfil(in *Intent[S], seq uint64, apply func(*S)) {
	s.lock.Lock()
	s.settle(in)
	if s.stale(in, seq) {
		s.lock.Unlock()
		s.opts.logger.Debug().Str("intent", in.Name).Uint64("seq", seq).Msg("discarded stale result")
		s.changed()
		return
	}
	apply(&s.state)
	if key := in.collection(); key != "" && seq > s.applied[key] {
		s.applied[key] = seq
	}
	s.status.Error = ""
	s.lock.Unlock()

	s.opts.logger.Debug().Str("intent", in.Name).Uint64("seq", seq).Msg("fulfilled")
	s.changed()
}

func (s *Slice[S]) reject(in *Intent[S], seq uint64, err error) {
	s.lock.Lock()
	s.settle(in)
	switch {
	case apperrors.Is(err, context.Canceled):
		// The caller withdrew the operation; leave the previous error alone.
	case s.stale(in, seq):
		// A newer result is already showing.
	default:
		s.status.Error = in.message(err)
	}
	s.lock.Unlock()

	s.opts.logger.Warn().Err(err).Str("intent", in.Name).Uint64("seq", seq).Msg("rejected")
	s.changed()
}

// Intent describes one kind of operation on a slice of state S.
type Intent[S any] struct {
	Name     string // e.g. "expense/fetchAll", used in logs
	Fallback string // error text when the server gives no message

	// Replace marks an operation whose result replaces a whole collection.
	// Only replacements are subject to fencing.
	Replace bool

	// Collection names the collection the result is written to, e.g.
	// "expenses". A replacement is only fenced by later completions on the
	// same collection. Operations that write no collection leave it empty.
	Collection string

	// Quiet operations do not touch the loading flag.
	Quiet bool

	// Guard is checked under the slice lock before dispatch. A non-nil
	// error aborts the operation with no transition.
	Guard func(st *S) error

	// Pending runs with the pending transition, Settle with either outcome.
	Pending func(st *S)
	Settle  func(st *S)

	// Message overrides how an error becomes the stored error text.
	Message func(err error) string
}

// collection is the fencing key. A replacement without a Collection is
// fenced only by other runs of the same intent.
func (in *Intent[S]) collection() string {
	if in.Collection == "" && in.Replace {
		return in.Name
	}
	return in.Collection
}

func (in *Intent[S]) message(err error) string {
	if in.Message != nil {
		return in.Message(err)
	}
	return api.Message(err, in.Fallback)
}

// Run dispatches one operation: pending transition, call, then apply on
// success or an error message on failure. The error from call is returned
// unchanged.
func Run[S Cloner[S], R any](ctx context.Context, s *Slice[S], in Intent[S], call func(context.Context) (R, error), apply func(st *S, result R)) (R, error) {
	var zero R

	seq, err := s.begin(&in)
	if err != nil {
		return zero, err
	}

	result, err := call(ctx)
	if err != nil {
		s.reject(&in, seq, err)
		return zero, err
	}

	s.fulfil(&in, seq, func(st *S) {
		if apply != nil {
			apply(st, result)
		}
	})
	return result, nil
}
