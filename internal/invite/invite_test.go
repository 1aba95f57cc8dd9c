package invite

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/trip-planner/internal/schema"
	"github.com/kjstillabower/trip-planner/internal/session"
	"github.com/kjstillabower/trip-planner/internal/storage"
)

type failingStorage struct{}

func (failingStorage) Get(string) ([]byte, error) { return nil, errors.New("disk gone") }
func (failingStorage) Set(string, []byte) error   { return errors.New("disk gone") }
func (failingStorage) Remove(string) error        { return errors.New("disk gone") }

type fakeAPI struct {
	err     error
	claims  []schema.PendingInvite
	pending *PendingStore
	seen    []bool
}

func (f *fakeAPI) ClaimInvite(ctx context.Context, planID, token string) (schema.Participant, error) {
	f.claims = append(f.claims, schema.PendingInvite{PlanID: planID, InviteToken: token})
	if f.pending != nil {
		_, ok := f.pending.Get()
		f.seen = append(f.seen, ok)
	}
	return schema.Participant{}, f.err
}

var signedIn = &session.Session{AccessToken: "a", RefreshToken: "r"}

func TestPendingStore_RoundTrip(t *testing.T) {
	p := NewPendingStore(storage.NewMemoryStorage(), nil)
	p.Store("plan-1", "tok-1")

	got, ok := p.Get()
	if !ok || got.PlanID != "plan-1" || got.InviteToken != "tok-1" {
		t.Fatalf("Get() = %+v, %v", got, ok)
	}

	p.Store("plan-2", "tok-2")
	if got, _ := p.Get(); got.PlanID != "plan-2" {
		t.Errorf("Store() did not overwrite: %+v", got)
	}

	p.Clear()
	if _, ok := p.Get(); ok {
		t.Error("Get() after Clear() ok = true")
	}
}

func TestPendingStore_UnreadableRecords(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{not json"},
		{"missing token", `{"planId":"plan-1"}`},
		{"wrong type", `{"planId":1,"inviteToken":"t"}`},
		{"null", `null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := storage.NewMemoryStorage()
			_ = st.Set(storageKey, []byte(tt.data))
			if inv, ok := NewPendingStore(st, nil).Get(); ok {
				t.Errorf("Get() = %+v, true; want absent", inv)
			}
		})
	}
}

func TestPendingStore_StorageFailuresAbsorbed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewPendingStore(failingStorage{}, zap.New(core))

	p.Store("plan-1", "tok-1")
	if _, ok := p.Get(); ok {
		t.Error("Get() ok = true on failing storage")
	}
	p.Clear()

	if logs.FilterLevelExact(zapcore.DebugLevel).Len() != 3 {
		t.Errorf("debug logs = %d, want 3", logs.Len())
	}
}

func TestHandleAuthEvent_ClearsBeforeClaim(t *testing.T) {
	p := NewPendingStore(storage.NewMemoryStorage(), nil)
	p.Store("plan-1", "tok-1")
	api := &fakeAPI{pending: p}

	inv, claimed, err := NewClaimer(p, api, nil).HandleAuthEvent(context.Background(), session.EventSignedIn, signedIn)
	if err != nil || !claimed {
		t.Fatalf("HandleAuthEvent() = %v, %v", claimed, err)
	}
	if inv.PlanID != "plan-1" {
		t.Errorf("inv = %+v", inv)
	}
	if len(api.claims) != 1 || api.claims[0].InviteToken != "tok-1" {
		t.Errorf("claims = %+v", api.claims)
	}
	if api.seen[0] {
		t.Error("pending invite still stored during the claim call")
	}
}

func TestHandleAuthEvent_FailureDoesNotRestore(t *testing.T) {
	p := NewPendingStore(storage.NewMemoryStorage(), nil)
	p.Store("plan-1", "tok-1")
	api := &fakeAPI{err: errors.New("409 already claimed")}
	c := NewClaimer(p, api, nil)

	_, claimed, err := c.HandleAuthEvent(context.Background(), session.EventSignedUp, signedIn)
	if !claimed || err == nil {
		t.Fatalf("HandleAuthEvent() = %v, %v; want attempted failure", claimed, err)
	}
	if _, ok := p.Get(); ok {
		t.Error("invite restored after failed claim")
	}

	_, claimed, _ = c.HandleAuthEvent(context.Background(), session.EventSignedIn, signedIn)
	if claimed || len(api.claims) != 1 {
		t.Errorf("second sign-in claimed again: %d claims", len(api.claims))
	}
}

func TestHandleAuthEvent_IgnoresOtherEvents(t *testing.T) {
	p := NewPendingStore(storage.NewMemoryStorage(), nil)
	p.Store("plan-1", "tok-1")
	api := &fakeAPI{}
	c := NewClaimer(p, api, nil)

	for _, ev := range []session.Event{session.EventTokenRefreshed, session.EventSignedOut} {
		if _, claimed, _ := c.HandleAuthEvent(context.Background(), ev, signedIn); claimed {
			t.Errorf("%s claimed the invite", ev)
		}
	}
	if _, ok := p.Get(); !ok {
		t.Error("pending invite cleared by unrelated event")
	}
}

func TestAttach_ClaimsOnSignIn(t *testing.T) {
	st := storage.NewMemoryStorage()
	p := NewPendingStore(st, nil)
	p.Store("plan-1", "tok-1")
	api := &fakeAPI{}
	m := session.NewManager(st, nil, nil)

	var reported []schema.PendingInvite
	detach := NewClaimer(p, api, nil).Attach(m, func(inv schema.PendingInvite, err error) {
		if err != nil {
			t.Errorf("report err = %v", err)
		}
		reported = append(reported, inv)
	})
	defer detach()

	if err := m.SignIn(context.Background(), session.Session{AccessToken: "a"}, session.EventSignedIn); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if len(reported) != 1 || reported[0].PlanID != "plan-1" {
		t.Errorf("reported = %+v", reported)
	}
}
