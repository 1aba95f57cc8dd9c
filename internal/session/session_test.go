package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kjstillabower/trip-planner/internal/storage"
)

type fakeRefresher struct {
	next  Session
	err   error
	calls []string
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	f.calls = append(f.calls, refreshToken)
	return f.next, f.err
}

func TestManager_SignedOutHasNoToken(t *testing.T) {
	m := NewManager(storage.NewMemoryStorage(), nil, nil)
	tok, err := m.AccessToken(context.Background())
	if err != nil || tok != "" {
		t.Errorf("AccessToken() = %q, %v; want empty", tok, err)
	}
	if _, err := m.Refresh(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Errorf("Refresh() signed out error = %v, want ErrNoSession", err)
	}
}

func TestManager_SignInPersistsAndNotifies(t *testing.T) {
	store := storage.NewMemoryStorage()
	m := NewManager(store, nil, nil)

	var events []Event
	m.OnAuthStateChange(func(ctx context.Context, e Event, s *Session) {
		events = append(events, e)
	})

	err := m.SignIn(context.Background(), Session{AccessToken: "a1", RefreshToken: "r1", User: User{ID: "u1"}}, EventSignedUp)
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if len(events) != 1 || events[0] != EventSignedUp {
		t.Errorf("events = %v, want [SIGNED_UP]", events)
	}

	restored := NewManager(store, nil, nil)
	s, ok := restored.Current()
	if !ok || s.AccessToken != "a1" || s.User.ID != "u1" {
		t.Errorf("restored session = %+v, %v", s, ok)
	}
}

func TestManager_SignInRejectsBadInput(t *testing.T) {
	m := NewManager(nil, nil, nil)
	if err := m.SignIn(context.Background(), Session{AccessToken: "a"}, EventTokenRefreshed); err == nil {
		t.Error("SignIn() with refresh event expected error")
	}
	if err := m.SignIn(context.Background(), Session{}, EventSignedIn); !errors.Is(err, ErrNoSession) {
		t.Errorf("SignIn() without token error = %v", err)
	}
}

func TestManager_Refresh(t *testing.T) {
	store := storage.NewMemoryStorage()
	ref := &fakeRefresher{next: Session{AccessToken: "a2", RefreshToken: "r2"}}
	m := NewManager(store, ref, nil)
	_ = m.SignIn(context.Background(), Session{AccessToken: "a1", RefreshToken: "r1"}, EventSignedIn)

	var got []Event
	m.OnAuthStateChange(func(ctx context.Context, e Event, s *Session) { got = append(got, e) })

	tok, err := m.Refresh(context.Background())
	if err != nil || tok != "a2" {
		t.Fatalf("Refresh() = %q, %v", tok, err)
	}
	if len(ref.calls) != 1 || ref.calls[0] != "r1" {
		t.Errorf("refresher calls = %v, want [r1]", ref.calls)
	}
	if cur, _ := m.AccessToken(context.Background()); cur != "a2" {
		t.Errorf("AccessToken() = %q after refresh", cur)
	}
	if len(got) != 1 || got[0] != EventTokenRefreshed {
		t.Errorf("events = %v, want [TOKEN_REFRESHED]", got)
	}
}

func TestManager_RefreshFailureKeepsSession(t *testing.T) {
	ref := &fakeRefresher{err: ErrRefreshRejected}
	m := NewManager(nil, ref, nil)
	_ = m.SignIn(context.Background(), Session{AccessToken: "a1", RefreshToken: "r1"}, EventSignedIn)

	if _, err := m.Refresh(context.Background()); !errors.Is(err, ErrRefreshRejected) {
		t.Errorf("Refresh() error = %v, want ErrRefreshRejected", err)
	}
	if tok, _ := m.AccessToken(context.Background()); tok != "a1" {
		t.Errorf("AccessToken() = %q, session should be unchanged", tok)
	}
}

func TestManager_RefreshEmptyTokenFails(t *testing.T) {
	m := NewManager(nil, &fakeRefresher{next: Session{}}, nil)
	_ = m.SignIn(context.Background(), Session{AccessToken: "a1", RefreshToken: "r1"}, EventSignedIn)
	if _, err := m.Refresh(context.Background()); !errors.Is(err, ErrRefreshRejected) {
		t.Errorf("Refresh() error = %v, want ErrRefreshRejected", err)
	}
}

func TestManager_SignOut(t *testing.T) {
	store := storage.NewMemoryStorage()
	m := NewManager(store, nil, nil)
	_ = m.SignIn(context.Background(), Session{AccessToken: "a1"}, EventSignedIn)

	var gotSession *Session
	var gotEvent Event
	m.OnAuthStateChange(func(ctx context.Context, e Event, s *Session) { gotEvent, gotSession = e, s })

	m.SignOut(context.Background())

	if gotEvent != EventSignedOut || gotSession != nil {
		t.Errorf("event = %v session = %v", gotEvent, gotSession)
	}
	if _, err := store.Get(storageKey); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("persisted session not removed: %v", err)
	}
}

func TestManager_CorruptPersistedSessionDiscarded(t *testing.T) {
	store := storage.NewMemoryStorage()
	_ = store.Set(storageKey, []byte(`{"accessToken":`))
	m := NewManager(store, nil, nil)
	if _, ok := m.Current(); ok {
		t.Error("corrupt session was restored")
	}
	if _, err := store.Get(storageKey); !errors.Is(err, storage.ErrNotFound) {
		t.Error("corrupt session record should be removed")
	}
}

func TestManager_UnsubscribeAndPanicIsolation(t *testing.T) {
	m := NewManager(nil, nil, nil)
	calls := 0
	unsub := m.OnAuthStateChange(func(ctx context.Context, e Event, s *Session) { calls++ })
	m.OnAuthStateChange(func(ctx context.Context, e Event, s *Session) { panic("listener bug") })
	after := 0
	m.OnAuthStateChange(func(ctx context.Context, e Event, s *Session) { after++ })

	unsub()
	unsub()
	_ = m.SignIn(context.Background(), Session{AccessToken: "a"}, EventSignedIn)

	if calls != 0 {
		t.Errorf("unsubscribed listener called %d times", calls)
	}
	if after != 1 {
		t.Errorf("listener after panic called %d times, want 1", after)
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	if (Session{}).Expired(now) {
		t.Error("zero expiry should never expire")
	}
	if !(Session{ExpiresAt: now}).Expired(now) {
		t.Error("session at expiry should be expired")
	}
	if (Session{ExpiresAt: now.Add(time.Minute)}).Expired(now) {
		t.Error("future expiry reported expired")
	}
}
