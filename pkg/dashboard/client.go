// Package dashboard provides a client for the Plexus dashboard GraphQL API,
// the remote store holding feedback items, content items, scorecards, and
// score results.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/AnthusAI/plexus-feedback/internal/resilience"
)

// Client defines the dashboard API operations used by the analysis engines.
type Client interface {
	// Scorecards
	GetScorecard(ctx context.Context, id string) (*Scorecard, error)
	ListScorecards(ctx context.Context, accountID string) ([]Scorecard, error)

	// Feedback
	GetFeedbackItem(ctx context.Context, id string) (*FeedbackItem, error)
	ListFeedbackByScore(ctx context.Context, q FeedbackQuery) (*FeedbackPage, error)
	ListFeedbackFiltered(ctx context.Context, q FeedbackFilter) (*FeedbackPage, error)
	ListFeedbackByCacheKey(ctx context.Context, scoreID, cacheKey string) ([]FeedbackItem, error)
	CreateFeedbackItem(ctx context.Context, input map[string]any) (*FeedbackItem, error)
	UpdateFeedbackItem(ctx context.Context, id string, patch map[string]any) (*FeedbackItem, error)

	// Items and identifiers
	GetItem(ctx context.Context, id string) (*Item, error)
	CreateItem(ctx context.Context, input map[string]any) (*Item, error)
	UpdateItem(ctx context.Context, id string, patch map[string]any) (*Item, error)
	CreateIdentifier(ctx context.Context, input map[string]any) (*Identifier, error)
	ListIdentifiersByValue(ctx context.Context, accountID, value string) ([]Identifier, error)
	ListItemsByExternalID(ctx context.Context, accountID, externalID string) ([]Item, error)

	// Score results
	ListScoreResults(ctx context.Context, q ScoreResultQuery) (*ScoreResultPage, error)
}

// APIError is a non-transport failure reported by the GraphQL endpoint under
// its top-level errors list.
type APIError struct {
	Operation string
	Messages  []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dashboard: %s: %v", e.Operation, e.Messages)
}

// Option configures the dashboard client.
type Option func(*gqlClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *gqlClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second request rate limit.
// A burst equal to the integer portion of rps is allowed.
func WithRateLimit(rps float64) Option {
	return func(c *gqlClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithRetry overrides the default transport retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *gqlClient) {
		c.retry = cfg
	}
}

type gqlClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
}

// NewClient creates a dashboard API client for the given GraphQL endpoint.
func NewClient(endpoint, apiKey string, opts ...Option) Client {
	c := &gqlClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		retry:    resilience.DefaultRetryConfig(),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// execute posts one GraphQL operation and unmarshals the named data key into
// out. Transport failures retry per the client policy; GraphQL errors do not.
func (c *gqlClient) execute(ctx context.Context, operation, query string, vars map[string]any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "dashboard: rate limit")
		}
	}

	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return eris.Wrapf(err, "dashboard: marshal %s", operation)
	}

	env, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*gqlEnvelope, error) {
		return c.post(ctx, operation, body)
	})
	if err != nil {
		return err
	}

	if len(env.Errors) > 0 {
		apiErr := &APIError{Operation: operation}
		for _, e := range env.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Message)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}

	// Unwrap the single top-level data key for the operation.
	var data map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return eris.Wrapf(err, "dashboard: decode %s", operation)
	}
	payload, ok := data[operation]
	if !ok || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return eris.Wrapf(err, "dashboard: decode %s", operation)
	}
	return nil
}

func (c *gqlClient) post(ctx context.Context, operation string, body []byte) (*gqlEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(err, "dashboard: build request %s", operation)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "dashboard: post %s", operation)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "dashboard: read %s", operation)
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.New(fmt.Sprintf("dashboard: %s returned %d: %s", operation, resp.StatusCode, truncate(raw, 200)))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var env gqlEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, eris.Wrapf(err, "dashboard: decode %s", operation)
	}
	return &env, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
