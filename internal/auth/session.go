// Package auth tracks the signed-in user for the engine. It is a thin
// stand-in for a hosted auth provider: it holds the current identity,
// notifies listeners on sign-in and sign-out, and persists the identity
// in the system keyring so a restart restores the session.
package auth

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/nhle/habitflow/internal/apperr"
	"github.com/nhle/habitflow/internal/credential"
)

const currentUserKey = "current_user"

// Listener is invoked on every sign-in (signedIn=true) and sign-out
// (signedIn=false). On sign-out, userID is the identity that just left.
type Listener func(userID string, signedIn bool)

// Session holds the current signed-in user, if any.
type Session struct {
	mu        sync.Mutex
	userID    string
	nextID    int
	listeners map[int]Listener

	load  func() (string, error)
	save  func(string) error
	clear func() error
}

// NewSession creates a session backed by the system keyring and restores
// any previously persisted identity.
func NewSession() *Session {
	s := &Session{
		listeners: make(map[int]Listener),
		load:      func() (string, error) { return credential.Get(currentUserKey) },
		save:      func(v string) error { return credential.Set(currentUserKey, v) },
		clear:     func() error { return credential.Delete(currentUserKey) },
	}
	// A missing key is the normal first-run state, not an error.
	if id, err := s.load(); err == nil && id != "" {
		s.userID = id
	}
	return s
}

// NewMemorySession creates a session with no persistence, for tests and
// embedders that manage identity themselves.
func NewMemorySession() *Session {
	return &Session{listeners: make(map[int]Listener)}
}

// CurrentUser returns the signed-in user ID and whether one is present.
func (s *Session) CurrentUser() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.userID != ""
}

// RequireUser returns the signed-in user ID, or NotAuthenticated.
func (s *Session) RequireUser() (string, error) {
	id, ok := s.CurrentUser()
	if !ok {
		return "", apperr.New(apperr.KindNotAuthenticated, "please sign in again")
	}
	return id, nil
}

// SignIn sets the current user and notifies listeners. Signing in while
// another user is active signs that user out first, so listeners always
// see a clean out/in pair and never two live identities.
func (s *Session) SignIn(userID string) error {
	if userID == "" {
		return apperr.New(apperr.KindInvalidInput, "user id must not be empty")
	}

	s.mu.Lock()
	prev := s.userID
	if prev == userID {
		s.mu.Unlock()
		return nil
	}
	s.userID = ""
	s.mu.Unlock()

	if prev != "" {
		s.notifyAll(prev, false)
	}

	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()

	if s.save != nil {
		if err := s.save(userID); err != nil {
			log.Warn("could not persist session", "err", err)
		}
	}

	s.notifyAll(userID, true)
	return nil
}

// SignOut clears the current user and notifies listeners. A no-op when
// nobody is signed in.
func (s *Session) SignOut() {
	s.mu.Lock()
	prev := s.userID
	s.userID = ""
	s.mu.Unlock()

	if prev == "" {
		return
	}

	if s.clear != nil {
		if err := s.clear(); err != nil {
			log.Warn("could not clear persisted session", "err", err)
		}
	}

	s.notifyAll(prev, false)
}

// OnChange registers a listener and returns its unregister function.
// Listeners run synchronously on the goroutine driving the change.
func (s *Session) OnChange(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) notifyAll(userID string, signedIn bool) {
	s.mu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(userID, signedIn)
	}
}
