package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kjstillabower/trip-planner/internal/schema"
)

func decodeOne[T any](entity, endpoint string, body []byte) (T, error) {
	if len(body) == 0 {
		var zero T
		return zero, fmt.Errorf("decode %s from %s: %w", entity, endpoint, errEmptyBody)
	}
	return schema.Decode[T](entity, body)
}

func getOne[T any](ctx context.Context, c *Client, entity, endpoint string) (T, error) {
	body, err := c.Request(ctx, endpoint, Options{})
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeOne[T](entity, endpoint, body)
}

func getList[T any](ctx context.Context, c *Client, entity, endpoint string) ([]T, error) {
	body, err := c.Request(ctx, endpoint, Options{})
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return []T{}, nil
	}
	return schema.DecodeList[T](entity, body)
}

// write validates payload before anything goes on the wire, then decodes the
// response as T.
func write[T any](ctx context.Context, c *Client, method, endpoint, payloadEntity string, payload any, entity string) (T, error) {
	var zero T
	if err := schema.Validate(payloadEntity, payload); err != nil {
		return zero, err
	}
	body, err := c.Request(ctx, endpoint, Options{Method: method, Body: payload})
	if err != nil {
		return zero, err
	}
	return decodeOne[T](entity, endpoint, body)
}

func (c *Client) remove(ctx context.Context, endpoint string) error {
	_, err := c.Request(ctx, endpoint, Options{Method: http.MethodDelete})
	return err
}

func path(format string, ids ...string) string {
	escaped := make([]any, len(ids))
	for i, id := range ids {
		escaped[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, escaped...)
}

func (c *Client) FetchPlans(ctx context.Context) ([]schema.Plan, error) {
	return getList[schema.Plan](ctx, c, "plan", "/plans")
}

func (c *Client) FetchPlan(ctx context.Context, planID string) (schema.Plan, error) {
	return getOne[schema.Plan](ctx, c, "plan", path("/plans/%s", planID))
}

func (c *Client) CreatePlan(ctx context.Context, p schema.PlanCreate) (schema.Plan, error) {
	return write[schema.Plan](ctx, c, http.MethodPost, "/plans", "planCreate", p, "plan")
}

func (c *Client) UpdatePlan(ctx context.Context, planID string, p schema.PlanPatch) (schema.Plan, error) {
	return write[schema.Plan](ctx, c, http.MethodPatch, path("/plans/%s", planID), "planPatch", p, "plan")
}

func (c *Client) DeletePlan(ctx context.Context, planID string) error {
	return c.remove(ctx, path("/plans/%s", planID))
}

func (c *Client) FetchParticipants(ctx context.Context, planID string) ([]schema.Participant, error) {
	return getList[schema.Participant](ctx, c, "participant", path("/plans/%s/participants", planID))
}

func (c *Client) AddParticipant(ctx context.Context, planID string, p schema.ParticipantCreate) (schema.Participant, error) {
	return write[schema.Participant](ctx, c, http.MethodPost, path("/plans/%s/participants", planID), "participantCreate", p, "participant")
}

func (c *Client) UpdateParticipant(ctx context.Context, participantID string, p schema.ParticipantPatch) (schema.Participant, error) {
	return write[schema.Participant](ctx, c, http.MethodPatch, path("/participants/%s", participantID), "participantPatch", p, "participant")
}

func (c *Client) RemoveParticipant(ctx context.Context, participantID string) error {
	return c.remove(ctx, path("/participants/%s", participantID))
}

func (c *Client) FetchItems(ctx context.Context, planID string) ([]schema.Item, error) {
	return getList[schema.Item](ctx, c, "item", path("/plans/%s/items", planID))
}

func (c *Client) CreateItem(ctx context.Context, planID string, item schema.ItemCreate) (schema.Item, error) {
	return write[schema.Item](ctx, c, http.MethodPost, path("/plans/%s/items", planID), "itemCreate", item, "item")
}

func (c *Client) UpdateItem(ctx context.Context, itemID string, item schema.ItemPatch) (schema.Item, error) {
	return write[schema.Item](ctx, c, http.MethodPatch, path("/items/%s", itemID), "itemPatch", item, "item")
}

func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	return c.remove(ctx, path("/items/%s", itemID))
}

// FetchInvite loads the invite landing payload. It is public: the visitor is
// usually not signed in yet.
func (c *Client) FetchInvite(ctx context.Context, planID, token string) (schema.Invite, error) {
	endpoint := path("/invite/%s/%s", planID, token)
	body, err := c.PublicRequest(ctx, endpoint, Options{})
	if err != nil {
		return schema.Invite{}, err
	}
	return decodeOne[schema.Invite]("invite", endpoint, body)
}

// ClaimInvite binds the signed-in user to the invited participant. A 204 yields
// a zero Participant.
func (c *Client) ClaimInvite(ctx context.Context, planID, token string) (schema.Participant, error) {
	endpoint := path("/invite/%s/%s/claim", planID, token)
	body, err := c.Request(ctx, endpoint, Options{Method: http.MethodPost})
	if err != nil {
		return schema.Participant{}, err
	}
	if len(body) == 0 {
		return schema.Participant{}, nil
	}
	return schema.Decode[schema.Participant]("participant", body)
}

func (c *Client) FetchMe(ctx context.Context) (schema.User, error) {
	return getOne[schema.User](ctx, c, "user", "/auth/me")
}
