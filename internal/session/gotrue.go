package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GoTrueRefresher talks to a GoTrue-style identity provider token endpoint.
type GoTrueRefresher struct {
	authURL string
	anonKey string
	client  *http.Client
	now     func() time.Time
}

func NewGoTrueRefresher(authURL, anonKey string, timeout time.Duration) *GoTrueRefresher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoTrueRefresher{
		authURL: strings.TrimRight(authURL, "/"),
		anonKey: anonKey,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type tokenError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
}

func (e tokenError) message() string {
	switch {
	case e.ErrorDescription != "":
		return e.ErrorDescription
	case e.Msg != "":
		return e.Msg
	default:
		return e.Error
	}
}

// Refresh runs the refresh_token grant.
func (g *GoTrueRefresher) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if g.authURL == "" {
		return Session{}, fmt.Errorf("%w: auth URL is not configured", ErrRefreshRejected)
	}
	endpoint, err := url.Parse(g.authURL + "/token")
	if err != nil {
		return Session{}, fmt.Errorf("invalid auth URL: %w", err)
	}
	q := endpoint.Query()
	q.Set("grant_type", "refresh_token")
	endpoint.RawQuery = q.Encode()

	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return Session{}, fmt.Errorf("encode refresh request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return Session{}, fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.anonKey != "" {
		req.Header.Set("apikey", g.anonKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Session{}, fmt.Errorf("read refresh response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var te tokenError
		_ = json.Unmarshal(body, &te)
		msg := te.message()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return Session{}, fmt.Errorf("%w: %s (status %d)", ErrRefreshRejected, msg, resp.StatusCode)
		}
		return Session{}, fmt.Errorf("refresh returned status %d: %s", resp.StatusCode, msg)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Session{}, fmt.Errorf("parse refresh response: %w", err)
	}
	if tr.AccessToken == "" {
		return Session{}, fmt.Errorf("%w: response carried no access token", ErrRefreshRejected)
	}

	s := Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		User:         User{ID: tr.User.ID, Email: tr.User.Email},
	}
	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0).UTC()
	case tr.ExpiresIn > 0:
		s.ExpiresAt = g.now().Add(time.Duration(tr.ExpiresIn) * time.Second).UTC()
	}
	if s.RefreshToken == "" {
		s.RefreshToken = refreshToken
	}
	return s, nil
}
