// Package userstore holds the signed-in user's profile for a single client session.
//
// A Store is created by the caller and handed to whatever needs it; there is no package level
// instance. All operations are safe for concurrent use and the last write wins.
package userstore

import "sync"

// User is the profile snapshot cached by a client session.
type User struct {
	ID           string `json:"id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Role         string `json:"role"`
	ProfileImage string `json:"profile_image,omitempty"`
	Locale       string `json:"locale,omitempty"`
}

// Patch lists the fields UpdateUser may change. Nil fields are left untouched.
type Patch struct {
	FullName     *string
	Email        *string
	Phone        *string
	Role         *string
	ProfileImage *string
	Locale       *string
}

// State is a copy of the store contents.
type State struct {
	User    *User
	Loading bool
}

// SignedIn reports whether a user is present.
func (s State) SignedIn() bool {
	return s.User != nil
}

// Store is a mutable cell holding at most one user plus a loading flag.
type Store struct {
	mu      sync.RWMutex
	user    *User
	loading bool
}

// New returns an empty store in the loading state, mirroring a session that has not been rehydrated yet.
func New() *Store {
	return &Store{loading: true}
}

// SetUser replaces the whole user and clears the loading flag. A nil user signs the session out.
func (s *Store) SetUser(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = cloneUser(user)
	s.loading = false
}

// SetLoading toggles the loading flag without touching the user.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = loading
}

// UpdateUser shallow-merges the patch into the current user. It is a no-op when nobody is signed in.
func (s *Store) UpdateUser(patch Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return
	}

	next := *s.user
	assign(&next.FullName, patch.FullName)
	assign(&next.Email, patch.Email)
	assign(&next.Phone, patch.Phone)
	assign(&next.Role, patch.Role)
	assign(&next.ProfileImage, patch.ProfileImage)
	assign(&next.Locale, patch.Locale)
	s.user = &next
}

// Logout clears the store to the signed-out state.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil
	s.loading = false
}

// Snapshot returns a copy of the current state; mutating it does not affect the store.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return State{User: cloneUser(s.user), Loading: s.loading}
}

func assign(dst *string, value *string) {
	if value != nil {
		*dst = *value
	}
}

func cloneUser(user *User) *User {
	if user == nil {
		return nil
	}
	cpy := *user
	return &cpy
}
