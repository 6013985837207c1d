// Package server tracks per-connection session state through the Registry,
// which owns the shared username namespace.
package server

import (
	"errors"
	"sort"
	"sync"
)

// ErrNameTaken is returned by SetUsername when another live connection
// already holds the desired username.
var ErrNameTaken = errors.New("username already taken")

var errUnknownConnection = errors.New("unknown connection")

// Session is the relay's view of one connection: the username it registered
// (empty until registration), where it connected from, and whether it is
// currently typing.
type Session struct {
	Username   string
	RemoteAddr string
	Device     string
	Typing     bool
}

// Registry owns the set of live sessions, keyed by the client handle. All
// mutation goes through its methods; the uniqueness check in SetUsername and
// its commit happen under a single lock so concurrent claims of the same name
// resolve to exactly one winner.
type Registry struct {
	mu       sync.RWMutex
	sessions map[*Client]*Session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[*Client]*Session),
	}
}

// Add inserts an unregistered session for a newly opened connection.
func (r *Registry) Add(c *Client, remoteAddr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[c] = &Session{RemoteAddr: remoteAddr}
}

// SetUsername atomically claims desired for c. It returns the connection's
// previous username (empty if this is its first registration) on success,
// ErrNameTaken if any other connection holds desired (case-sensitive exact
// match), or errUnknownConnection if c is not tracked.
func (r *Registry) SetUsername(c *Client, desired string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[c]
	if !ok {
		return "", errUnknownConnection
	}

	for other, os := range r.sessions {
		if other != c && os.Username == desired {
			return "", ErrNameTaken
		}
	}

	prev := s.Username
	s.Username = desired
	return prev, nil
}

// SetDevice records the device class guessed from the register payload's
// user agent. No-op if the connection is unknown.
func (r *Registry) SetDevice(c *Client, device string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[c]; ok {
		s.Device = device
	}
}

// Get returns a copy of the session for c, if tracked.
func (r *Registry) Get(c *Client) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[c]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// SetTyping updates the typing flag. No-op if the connection is unknown,
// which happens when a typing payload races with connection close.
func (r *Registry) SetTyping(c *Client, isTyping bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[c]; ok {
		s.Typing = isTyping
	}
}

// Remove purges the session for c and returns the removed record. Idempotent:
// removing an already-absent connection reports ok=false and mutates nothing.
func (r *Registry) Remove(c *Client) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[c]
	if !ok {
		return Session{}, false
	}
	delete(r.sessions, c)
	return *s, true
}

// Usernames returns a sorted snapshot of all registered usernames.
func (r *Registry) Usernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.Username != "" {
			users = append(users, s.Username)
		}
	}
	sort.Strings(users)
	return users
}

// Size reports how many connections are tracked, registered or not.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
