// Package session holds the identity-provider session: the tokens the API
// client sends and the refresh grant it falls back on after a 401.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/trip-planner/internal/observability"
	"github.com/kjstillabower/trip-planner/internal/storage"
)

const storageKey = "session"

var (
	ErrNoSession       = errors.New("no active session")
	ErrRefreshRejected = errors.New("refresh rejected by identity provider")
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

type Session struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         User      `json:"user"`
}

// Expired reports whether the access token has passed its expiry. A zero
// ExpiresAt never expires.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Event is an auth state change.
type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedUp       Event = "SIGNED_UP"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Listener receives auth state changes. s is nil for EventSignedOut.
type Listener func(ctx context.Context, event Event, s *Session)

// Refresher exchanges a refresh token for a new session.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Session, error)
}

type registration struct {
	id uint64
	fn Listener
}

// Manager owns the current session and persists it across process runs.
type Manager struct {
	mu        sync.Mutex
	current   *Session
	store     storage.Storage
	refresher Refresher
	listeners []registration
	nextID    uint64
	logger    *zap.Logger
}

// NewManager restores a persisted session from store when one is present and
// readable; an unreadable record is discarded.
func NewManager(store storage.Storage, refresher Refresher, logger *zap.Logger) *Manager {
	m := &Manager{
		store:     store,
		refresher: refresher,
		logger:    observability.OrNop(logger).With(zap.String("component", "session")),
	}
	m.restore()
	return m
}

func (m *Manager) restore() {
	if m.store == nil {
		return
	}
	data, err := m.store.Get(storageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.logger.Warn("read persisted session", zap.Error(err))
		}
		return
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil || s.AccessToken == "" {
		m.logger.Warn("discarding unreadable persisted session", zap.Error(err))
		_ = m.store.Remove(storageKey)
		return
	}
	m.current = &s
}

// AccessToken returns the current access token, or "" when signed out.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return "", nil
	}
	return m.current.AccessToken, nil
}

// Refresh runs the refresh-token grant and stores the new session. Concurrent
// callers are not coalesced; each runs its own grant.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.current == nil || m.current.RefreshToken == "" {
		m.mu.Unlock()
		return "", ErrNoSession
	}
	refreshToken := m.current.RefreshToken
	m.mu.Unlock()

	if m.refresher == nil {
		return "", fmt.Errorf("refresh session: %w", ErrRefreshRejected)
	}
	next, err := m.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh session: %w", err)
	}
	if next.AccessToken == "" {
		return "", fmt.Errorf("refresh session: %w: empty access token", ErrRefreshRejected)
	}

	m.set(&next)
	m.notify(ctx, EventTokenRefreshed, &next)
	return next.AccessToken, nil
}

// SignIn installs s and announces it. event must be EventSignedIn or
// EventSignedUp.
func (m *Manager) SignIn(ctx context.Context, s Session, event Event) error {
	if event != EventSignedIn && event != EventSignedUp {
		return fmt.Errorf("sign in: unexpected event %q", event)
	}
	if s.AccessToken == "" {
		return fmt.Errorf("sign in: %w: access token is required", ErrNoSession)
	}
	m.set(&s)
	m.notify(ctx, event, &s)
	return nil
}

func (m *Manager) SignOut(ctx context.Context) {
	m.set(nil)
	m.notify(ctx, EventSignedOut, nil)
}

// Current returns a copy of the current session.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// OnAuthStateChange registers fn and returns its idempotent removal func.
func (m *Manager) OnAuthStateChange(fn Listener) func() {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, registration{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, r := range m.listeners {
				if r.id == id {
					m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// set swaps the session and persists it. A persistence failure is logged; the
// in-memory session still applies.
func (m *Manager) set(s *Session) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	if m.store == nil {
		return
	}
	if s == nil {
		if err := m.store.Remove(storageKey); err != nil {
			m.logger.Warn("remove persisted session", zap.Error(err))
		}
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		m.logger.Warn("encode session", zap.Error(err))
		return
	}
	if err := m.store.Set(storageKey, data); err != nil {
		m.logger.Warn("persist session", zap.Error(err))
	}
}

func (m *Manager) notify(ctx context.Context, event Event, s *Session) {
	m.mu.Lock()
	snapshot := make([]registration, len(m.listeners))
	copy(snapshot, m.listeners)
	m.mu.Unlock()

	m.logger.Debug("auth state change", zap.String("event", string(event)), zap.Int("listeners", len(snapshot)))
	for _, r := range snapshot {
		m.invoke(ctx, r, event, s)
	}
}

func (m *Manager) invoke(ctx context.Context, r registration, event Event, s *Session) {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("auth state listener panicked",
				zap.String("event", string(event)),
				zap.Any("panic", rec),
			)
		}
	}()
	var view *Session
	if s != nil {
		cp := *s
		view = &cp
	}
	r.fn(ctx, event, view)
}
