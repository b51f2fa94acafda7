// Package ambient holds process-wide lock identity state. It is the Go
// rendering of the runtime-global object a lock keeps its ephemeral id in:
// every Lock in the process that shares a State (and a name) shares that id,
// and the id never survives the process.
package ambient

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// State is a concurrent string key/value map with process lifetime. The zero
// value is not usable; construct with New or share Default.
type State struct {
	m *xsync.MapOf[string, string]
}

// New returns an empty, isolated State. Tests use this to simulate separate
// processes inside one runtime.
func New() *State {
	return &State{m: xsync.NewMapOf[string, string]()}
}

var (
	defaultOnce  sync.Once
	defaultState *State
)

// Default returns the State shared by every lock in the process that does not
// inject its own. It is created on first use and torn down only at process
// exit.
func Default() *State {
	defaultOnce.Do(func() {
		defaultState = New()
	})
	return defaultState
}

// Get returns the value stored under key.
func (s *State) Get(key string) (string, bool) {
	return s.m.Load(key)
}

// GetOrSet stores value under key unless the key is already present, and
// returns the value that won. Concurrent minters of the same key converge on
// a single value.
func (s *State) GetOrSet(key, value string) string {
	actual, _ := s.m.LoadOrStore(key, value)
	return actual
}

// Set stores value under key unconditionally.
func (s *State) Set(key, value string) {
	s.m.Store(key, value)
}

// Delete removes key.
func (s *State) Delete(key string) {
	s.m.Delete(key)
}
