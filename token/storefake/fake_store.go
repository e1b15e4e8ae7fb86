package storefake

import (
	"sort"
	"sync"

	"github.com/jrsteele09/go-budget-client/token"
)

var _ token.Store = (*FakeStore)(nil)

// FakeStore is an in-memory token.Store. When unavailable it behaves like a
// missing durable medium: reads are absent and writes are dropped.
type FakeStore struct {
	tokens      map[string]string
	unavailable bool
	writes      int
	lock        sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		tokens: make(map[string]string),
	}
}

func (fs *FakeStore) Get(name string) (string, bool) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	if fs.unavailable {
		return "", false
	}
	v, ok := fs.tokens[name]
	return v, ok
}

func (fs *FakeStore) Set(name, value string) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.unavailable {
		return
	}
	fs.tokens[name] = value
	fs.writes++
}

func (fs *FakeStore) Clear(name string) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.unavailable {
		return
	}
	delete(fs.tokens, name)
	fs.writes++
}

// SetUnavailable toggles the simulated medium outage.
func (fs *FakeStore) SetUnavailable(unavailable bool) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.unavailable = unavailable
}

// Keys returns the stored key names in sorted order.
func (fs *FakeStore) Keys() []string {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	keys := make([]string, 0, len(fs.tokens))
	for k := range fs.tokens {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Writes counts Set and Clear calls that reached the medium.
func (fs *FakeStore) Writes() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.writes
}
