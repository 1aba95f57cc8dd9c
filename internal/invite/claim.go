package invite

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/trip-planner/internal/observability"
	"github.com/kjstillabower/trip-planner/internal/schema"
	"github.com/kjstillabower/trip-planner/internal/session"
)

// InviteClaimer is implemented by *apiclient.Client.
type InviteClaimer interface {
	ClaimInvite(ctx context.Context, planID, token string) (schema.Participant, error)
}

// Claimer claims the pending invite after sign-in or sign-up.
type Claimer struct {
	pending *PendingStore
	api     InviteClaimer
	logger  *zap.Logger
}

func NewClaimer(pending *PendingStore, api InviteClaimer, logger *zap.Logger) *Claimer {
	return &Claimer{
		pending: pending,
		api:     api,
		logger:  observability.OrNop(logger).With(zap.String("component", "invite_claimer")),
	}
}

// HandleAuthEvent claims the pending invite on EventSignedIn or EventSignedUp.
// claimed reports whether a claim was attempted. The pending record is cleared
// before the claim call and is not restored on failure, so an invite is
// claimed at most once.
func (c *Claimer) HandleAuthEvent(ctx context.Context, event session.Event, s *session.Session) (inv schema.PendingInvite, claimed bool, err error) {
	if event != session.EventSignedIn && event != session.EventSignedUp {
		return schema.PendingInvite{}, false, nil
	}
	if s == nil {
		return schema.PendingInvite{}, false, nil
	}
	inv, ok := c.pending.Get()
	if !ok {
		return schema.PendingInvite{}, false, nil
	}

	c.pending.Clear()
	if _, err := c.api.ClaimInvite(ctx, inv.PlanID, inv.InviteToken); err != nil {
		observability.InviteClaimsTotal.WithLabelValues("failure").Inc()
		c.logger.Warn("invite claim failed",
			zap.String("plan_id", inv.PlanID),
			zap.String("event", string(event)),
			zap.Error(err),
		)
		return inv, true, fmt.Errorf("claim invite for plan %s: %w", inv.PlanID, err)
	}
	observability.InviteClaimsTotal.WithLabelValues("success").Inc()
	c.logger.Info("invite claimed", zap.String("plan_id", inv.PlanID), zap.String("event", string(event)))
	return inv, true, nil
}

// Attach runs HandleAuthEvent on every auth state change of m. report, if not
// nil, sees each attempted claim. The returned func detaches.
func (c *Claimer) Attach(m *session.Manager, report func(inv schema.PendingInvite, err error)) func() {
	return m.OnAuthStateChange(func(ctx context.Context, event session.Event, s *session.Session) {
		inv, claimed, err := c.HandleAuthEvent(ctx, event, s)
		if claimed && report != nil {
			report(inv, err)
		}
	})
}
