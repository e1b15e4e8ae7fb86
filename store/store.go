// Package store combines the session and resource slices into one state tree.
//
// A Store is constructed explicitly and passed to whatever drives it; there
// is no package-level instance. Each slice serializes its own transitions,
// and slices never wait on each other, so operations on different resources
// run and complete independently.
package store

import (
	"sort"
	"sync"

	"github.com/jrsteele09/go-budget-client/api"
	"github.com/jrsteele09/go-budget-client/auth"
	"github.com/jrsteele09/go-budget-client/categories"
	"github.com/jrsteele09/go-budget-client/chatbot"
	"github.com/jrsteele09/go-budget-client/expenses"
	"github.com/jrsteele09/go-budget-client/state"
	"github.com/jrsteele09/go-budget-client/templates"
	"github.com/jrsteele09/go-budget-client/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Snapshot is one slice's state together with its request status.
type Snapshot[S any] struct {
	State S
	state.Status
}

// RootState is a deep copy of the whole tree.
type RootState struct {
	Auth     Snapshot[auth.Session]
	Expense  Snapshot[expenses.State]
	Category Snapshot[categories.State]
	Template Snapshot[templates.State]
	Chatbot  Snapshot[chatbot.State]
}

type options struct {
	fencing bool
	logger  zerolog.Logger
}

type Option func(*options)

// WithFencing makes every slice discard whole-collection results that were
// overtaken by a later operation.
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

type Store struct {
	Auth       *auth.Service
	Expenses   *expenses.Service
	Categories *categories.Service
	Templates  *templates.Service
	Chatbot    *chatbot.Service

	lock        sync.RWMutex
	subscribers map[int]state.Listener
	nextID      int
}

// New builds every slice on client and connects the client to the session:
// requests carry the session's access token, and a rejected token ends the
// session.
func New(client *api.Client, tokens token.Store, opts ...Option) *Store {
	o := options{logger: log.Logger}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{subscribers: make(map[int]state.Listener)}
	sliceOpts := []state.Option{
		state.WithFencing(o.fencing),
		state.WithLogger(o.logger),
		state.WithListener(s.notify),
	}

	s.Auth = auth.New(client, tokens, sliceOpts...)
	s.Expenses = expenses.New(client, sliceOpts...)
	s.Categories = categories.New(client, sliceOpts...)
	s.Templates = templates.New(client, sliceOpts...)
	s.Chatbot = chatbot.New(client, sliceOpts...)

	client.SetTokenSource(s.Auth.Token)
	client.OnUnauthorized(s.Auth.HandleUnauthorized)
	return s
}

// State copies every slice. Each slice is copied in its own critical
// section, so the tree never shows a half-applied transition.
func (s *Store) State() RootState {
	var root RootState
	root.Auth.State, root.Auth.Status = s.Auth.Read()
	root.Expense.State, root.Expense.Status = s.Expenses.Read()
	root.Category.State, root.Category.Status = s.Categories.Read()
	root.Template.State, root.Template.Status = s.Templates.Read()
	root.Chatbot.State, root.Chatbot.Status = s.Chatbot.Read()
	return root
}

// Subscribe registers fn to be told which slice changed after every
// transition. Calls come from whichever goroutine completed the operation.
func (s *Store) Subscribe(fn state.Listener) (unsubscribe func()) {
	s.lock.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.lock.Unlock()

	return func() {
		s.lock.Lock()
		delete(s.subscribers, id)
		s.lock.Unlock()
	}
}

func (s *Store) notify(slice string) {
	s.lock.RLock()
	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]state.Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.subscribers[id])
	}
	s.lock.RUnlock()

	for _, l := range listeners {
		l(slice)
	}
}
