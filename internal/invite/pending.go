// Package invite carries an invite link across sign-in and claims it once the
// visitor has a session.
package invite

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/kjstillabower/trip-planner/internal/observability"
	"github.com/kjstillabower/trip-planner/internal/schema"
	"github.com/kjstillabower/trip-planner/internal/storage"
)

const storageKey = "pending_invite"

// PendingStore holds at most one pending invite. Storage failures never reach
// the caller; they are logged at debug level.
type PendingStore struct {
	store  storage.Storage
	logger *zap.Logger
}

func NewPendingStore(store storage.Storage, logger *zap.Logger) *PendingStore {
	return &PendingStore{
		store:  store,
		logger: observability.OrNop(logger).With(zap.String("component", "pending_invite")),
	}
}

// Store records the invite, replacing any earlier one.
func (p *PendingStore) Store(planID, token string) {
	data, err := json.Marshal(schema.PendingInvite{PlanID: planID, InviteToken: token})
	if err != nil {
		p.logger.Debug("encode pending invite", zap.Error(err))
		return
	}
	if err := p.store.Set(storageKey, data); err != nil {
		p.logger.Debug("store pending invite", zap.Error(err))
	}
}

// Get returns the pending invite. Missing, corrupt or partial records all
// read as absent.
func (p *PendingStore) Get() (inv schema.PendingInvite, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Debug("read pending invite panicked", zap.Any("panic", rec))
			inv, ok = schema.PendingInvite{}, false
		}
	}()

	data, err := p.store.Get(storageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			p.logger.Debug("read pending invite", zap.Error(err))
		}
		return schema.PendingInvite{}, false
	}
	inv, err = schema.Decode[schema.PendingInvite]("pendingInvite", data)
	if err != nil {
		p.logger.Debug("discarding unreadable pending invite", zap.Error(err))
		return schema.PendingInvite{}, false
	}
	return inv, true
}

func (p *PendingStore) Clear() {
	if err := p.store.Remove(storageKey); err != nil {
		p.logger.Debug("clear pending invite", zap.Error(err))
	}
}
