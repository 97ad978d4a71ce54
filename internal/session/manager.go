package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/areactl/pkg/api"
)

// Status is the session lifecycle state.
type Status int

const (
	Anonymous Status = iota
	Authenticated
)

// Manager is the process-wide session object. It restores persisted
// tokens on construction, persists every transition, and fans the
// auth-changed signal out to subscribers. At most one session is live per
// data dir; the client is authenticated iff an access token is present.
type Manager struct {
	api   *api.Client
	store *Store

	mu    sync.RWMutex
	state *State

	// Set while Establish runs so a 401 from the profile fetch does not
	// tear down the session it is in the middle of creating.
	establishing atomic.Bool

	subMu sync.Mutex
	subs  map[int]func(Status)
	next  int
}

// NewManager restores any persisted session from the store. A corrupt
// session file is logged and treated as anonymous.
func NewManager(client *api.Client, store *Store) *Manager {
	m := &Manager{
		api:   client,
		store: store,
		subs:  make(map[int]func(Status)),
	}
	st, err := store.Load()
	if err != nil {
		slog.Warn("discarding unreadable session state", "error", err)
	}
	if st != nil && st.AccessToken != "" {
		m.state = st
	}
	return m
}

// Status reports the current lifecycle state.
func (m *Manager) Status() Status {
	if m.Authenticated() {
		return Authenticated
	}
	return Anonymous
}

// Authenticated reports whether an access token is present.
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state != nil && m.state.AccessToken != ""
}

// Token returns the current access token, or "" when anonymous. Suitable
// as the api.Client token source.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return ""
	}
	return m.state.AccessToken
}

// CurrentUser returns the cached profile, which may be nil even while
// authenticated.
func (m *Manager) CurrentUser() *api.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return nil
	}
	return m.state.CurrentUser
}

// TokenClaims are unverified registered claims decoded from a JWT access
// token. Verification is the backend's job; the local decode only informs
// display and expiry hints.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// Claims decodes the stored access token without verifying it. Returns nil
// when anonymous or when the token is not a JWT; both are tolerated.
func (m *Manager) Claims() *TokenClaims {
	token := m.Token()
	if token == "" {
		return nil
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	tc := &TokenClaims{}
	if sub, err := parsed.Claims.GetSubject(); err == nil {
		tc.Subject = sub
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		tc.ExpiresAt = exp.Time
	}
	return tc
}

// Subscribe registers an auth-changed listener and returns its
// unsubscribe function. Notification is same-process only.
func (m *Manager) Subscribe(fn func(Status)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.next
	m.next++
	m.subs[id] = fn
	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Manager) notify(s Status) {
	m.subMu.Lock()
	fns := make([]func(Status), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

// Login exchanges credentials for a token pair and establishes the
// session.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	var pair api.TokenPair
	err := m.api.PostInto(ctx, "/auth/login/", map[string]string{
		"email":    email,
		"password": password,
	}, &pair)
	if err != nil {
		return err
	}
	return m.Establish(ctx, pair)
}

// Establish persists the token pair, best-effort fetches the profile, and
// broadcasts the auth change. A failed profile fetch does not fail the
// transition: the session is authenticated as soon as the token is
// stored, and the profile stays nil.
func (m *Manager) Establish(ctx context.Context, pair api.TokenPair) error {
	st := &State{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
	if err := m.store.Save(st); err != nil {
		return err
	}
	m.mu.Lock()
	m.state = st
	m.mu.Unlock()

	m.establishing.Store(true)
	var user api.User
	err := m.api.GetInto(ctx, "/auth/me/", &user)
	m.establishing.Store(false)
	if err != nil {
		slog.Warn("profile fetch after login failed", "error", err)
	} else {
		withUser := &State{
			AccessToken:  st.AccessToken,
			RefreshToken: st.RefreshToken,
			CurrentUser:  &user,
		}
		if err := m.store.Save(withUser); err != nil {
			slog.Warn("persist profile failed", "error", err)
		} else {
			m.mu.Lock()
			m.state = withUser
			m.mu.Unlock()
		}
	}

	m.notify(Authenticated)
	return nil
}

// Logout clears the persisted session and broadcasts the change.
func (m *Manager) Logout() error {
	if err := m.store.Clear(); err != nil {
		return err
	}
	m.mu.Lock()
	m.state = nil
	m.mu.Unlock()
	m.notify(Anonymous)
	return nil
}

// Invalidate drops the session after an authorization failure. Suitable
// as the api.Client unauthorized hook; a no-op while anonymous or while a
// session is being established.
func (m *Manager) Invalidate() {
	if m.establishing.Load() || !m.Authenticated() {
		return
	}
	if err := m.store.Clear(); err != nil {
		slog.Warn("clear session state failed", "error", err)
	}
	m.mu.Lock()
	m.state = nil
	m.mu.Unlock()
	m.notify(Anonymous)
}
