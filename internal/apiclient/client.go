package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/trip-planner/internal/authbus"
	"github.com/kjstillabower/trip-planner/internal/observability"
)

const maxErrorBody = 64 << 10

// TokenSource is the identity-provider session as seen by the client.
// AccessToken returns "" when nobody is signed in. Refresh returns the new
// access token; "" counts as a failed refresh.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Options describe one call. Body, when non-nil, is sent as JSON.
type Options struct {
	Method  string
	Body    any
	Headers map[string]string
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	tokens  TokenSource
	bus     *authbus.Bus
	logger  *zap.Logger
}

// New builds a client. tokens may be nil for a client that only makes public
// calls; bus may be nil when nobody listens for auth errors.
func New(cfg Config, tokens TokenSource, bus *authbus.Bus, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrMisconfigured)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if bus == nil {
		bus = authbus.NewBus(logger)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
		tokens:  tokens,
		bus:     bus,
		logger:  observability.OrNop(logger).With(zap.String("component", "apiclient")),
	}, nil
}

// callState is the per-call recovery state. A call moves strictly forward:
// Sent, then optionally Refreshing and Retried, then Done. Refreshing is only
// reachable from Sent, so a call refreshes at most once and retries at most once.
type callState int

const (
	stateSent callState = iota
	stateRefreshing
	stateRetried
	stateDone
)

func (s callState) String() string {
	switch s {
	case stateSent:
		return "sent"
	case stateRefreshing:
		return "refreshing"
	case stateRetried:
		return "retried"
	default:
		return "done"
	}
}

type call struct {
	method      string
	url         string
	endpoint    string
	body        []byte
	headers     map[string]string
	requestID   string
	token       string
	refreshable bool
}

// Request performs an authenticated call. On a 401 with a token attached it
// refreshes the session once and retries once; when the session cannot be
// repaired it emits on the auth bus and still returns the 401 as an error.
func (c *Client) Request(ctx context.Context, endpoint string, opts Options) ([]byte, error) {
	token := ""
	if c.tokens != nil {
		t, err := c.tokens.AccessToken(ctx)
		if err != nil {
			c.logger.Debug("no access token, sending anonymously", zap.Error(err))
		} else {
			token = t
		}
	}
	return c.do(ctx, endpoint, opts, token, true)
}

// PublicRequest never attaches a session token and never refreshes or retries.
// The API key is still sent.
func (c *Client) PublicRequest(ctx context.Context, endpoint string, opts Options) ([]byte, error) {
	return c.do(ctx, endpoint, opts, "", false)
}

func (c *Client) do(ctx context.Context, endpoint string, opts Options, token string, refreshable bool) ([]byte, error) {
	cl, err := c.newCall(endpoint, opts, token, refreshable)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, cl)
	state := stateSent
	for err == nil && state != stateDone {
		state, resp, err = c.step(ctx, cl, state, resp)
	}
	if err != nil {
		observability.APIErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
		return nil, err
	}
	defer resp.Body.Close()

	body, err := c.processResponse(cl.endpoint, resp)
	if err != nil {
		observability.APIErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
		return nil, err
	}
	return body, nil
}

// step is the single transition function of the recovery protocol.
func (c *Client) step(ctx context.Context, cl *call, state callState, resp *http.Response) (callState, *http.Response, error) {
	switch state {
	case stateSent:
		if resp.StatusCode == http.StatusUnauthorized && cl.token != "" && cl.refreshable && c.tokens != nil {
			return stateRefreshing, resp, nil
		}
		return stateDone, resp, nil

	case stateRefreshing:
		token, err := c.tokens.Refresh(ctx)
		if err != nil || token == "" {
			observability.TokenRefreshesTotal.WithLabelValues("failed").Inc()
			c.logger.Warn("session refresh failed",
				zap.String("endpoint", cl.endpoint),
				zap.String("requestId", cl.requestID),
				zap.Error(err),
			)
			c.bus.Emit()
			return stateDone, resp, nil
		}
		observability.TokenRefreshesTotal.WithLabelValues("success").Inc()
		drain(resp)

		cl.token = token
		retry, err := c.send(ctx, cl)
		if err != nil {
			return stateDone, nil, err
		}
		return stateRetried, retry, nil

	case stateRetried:
		if resp.StatusCode == http.StatusUnauthorized {
			c.logger.Warn("unauthorized after session refresh",
				zap.String("endpoint", cl.endpoint),
				zap.String("requestId", cl.requestID),
			)
			c.bus.Emit()
		}
		return stateDone, resp, nil
	}
	return stateDone, resp, nil
}

func (c *Client) newCall(endpoint string, opts Options, token string, refreshable bool) (*call, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	var body []byte
	if opts.Body != nil {
		b, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body for %s: %w", endpoint, err)
		}
		body = b
	}

	return &call{
		method:      method,
		url:         c.baseURL + endpoint,
		endpoint:    endpoint,
		body:        body,
		headers:     opts.Headers,
		requestID:   uuid.New().String(),
		token:       token,
		refreshable: refreshable,
	}, nil
}

// buildRequest assembles headers in precedence order: JSON content type, caller
// headers, API key, bearer token. Later writes win, so callers cannot replace
// the injected credentials.
func (c *Client) buildRequest(ctx context.Context, cl *call) (*http.Request, error) {
	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, cl.url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", cl.requestID)
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range cl.headers {
		req.Header.Set(k, v)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	return req, nil
}

func (c *Client) send(ctx context.Context, cl *call) (*http.Response, error) {
	req, err := c.buildRequest(ctx, cl)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.APIRequestsTotal.WithLabelValues(cl.method, "error").Inc()
		observability.ObserveSince(observability.APIRequestDuration.WithLabelValues("error"), start)
		c.logger.Warn("api request failed",
			zap.String("method", cl.method),
			zap.String("url", cl.url),
			zap.String("requestId", cl.requestID),
			zap.Error(err),
		)
		return nil, &NetworkError{URL: cl.url, Err: err}
	}

	status := observability.StatusLabel(resp.StatusCode)
	observability.APIRequestsTotal.WithLabelValues(cl.method, status).Inc()
	observability.ObserveSince(observability.APIRequestDuration.WithLabelValues(status), start)
	c.logger.Debug("api response",
		zap.String("method", cl.method),
		zap.String("endpoint", cl.endpoint),
		zap.Int("status", resp.StatusCode),
		zap.String("requestId", cl.requestID),
	)
	return resp, nil
}

func (c *Client) processResponse(endpoint string, resp *http.Response) ([]byte, error) {
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	contentType := resp.Header.Get("Content-Type")
	isJSON := isJSONContentType(contentType)
	success := resp.StatusCode >= 200 && resp.StatusCode < 300

	switch {
	case !success && isJSON:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := defaultErrorMessage
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
			message = payload.Message
		}
		return nil, &HTTPError{Status: resp.StatusCode, Message: message, Endpoint: endpoint}

	case !success:
		return nil, &ConfigError{Endpoint: endpoint, Status: resp.StatusCode, ContentType: contentType}

	case !isJSON:
		c.logger.Error("api returned non-JSON success response",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("contentType", contentType),
		)
		return nil, &ConfigError{Endpoint: endpoint, Status: resp.StatusCode, ContentType: contentType}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body from %s: %w", endpoint, err)
	}
	return body, nil
}

func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}

// Bus returns the bus the client emits on.
func (c *Client) Bus() *authbus.Bus { return c.bus }

var errEmptyBody = errors.New("empty response body")
