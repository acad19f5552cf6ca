package activities

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

	"github.com/jrsteele09/bytefit/appstore"
	"github.com/jrsteele09/bytefit/internal/config"
	"github.com/jrsteele09/bytefit/internal/errors"
	"golang.org/x/oauth2"
)

const (
	activitiesPath      = "/activities"
	recommendationsPath = "/recommendations/activity"
	userIDHeader        = "X-User-ID"
)

// Credentials is read at call time so every request carries the current session
type Credentials interface {
	Token() string
	User() *appstore.User
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials Credentials
}

func NewClient(baseURL string, credentials Credentials, options ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		credentials: credentials,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return c
}

func NewClientFromConfig(c config.APIConfig, credentials Credentials, options ...ClientOption) *Client {
	opts := append([]ClientOption{WithHTTPClient(&http.Client{Timeout: c.GetAPITimeout()})}, options...)
	return NewClient(c.GetAPIBaseURL(), credentials, opts...)
}

func (c *Client) ListActivities(ctx context.Context) ([]Activity, error) {
	var out []Activity
	if err := c.do(ctx, http.MethodGet, activitiesPath, nil, &out); err != nil {
		return nil, fmt.Errorf("[Client ListActivities] %w", err)
	}
	return out, nil
}

func (c *Client) GetActivity(ctx context.Context, id string) (*Activity, error) {
	if id == "" {
		return nil, fmt.Errorf("[Client GetActivity] %w: id", errors.ErrMissingRouteParameter)
	}
	var out Activity
	if err := c.do(ctx, http.MethodGet, activitiesPath+"/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("[Client GetActivity] %w", err)
	}
	return &out, nil
}

// GetRecommendation returns errors.ErrNotFound when no advice exists yet
func (c *Client) GetRecommendation(ctx context.Context, activityID string) (*Recommendation, error) {
	if activityID == "" {
		return nil, fmt.Errorf("[Client GetRecommendation] %w: id", errors.ErrMissingRouteParameter)
	}
	var out Recommendation
	if err := c.do(ctx, http.MethodGet, recommendationsPath+"/"+url.PathEscape(activityID), nil, &out); err != nil {
		return nil, fmt.Errorf("[Client GetRecommendation] %w", err)
	}
	return &out, nil
}

func (c *Client) CreateActivity(ctx context.Context, in CreateActivityInput) (*Activity, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("[Client CreateActivity] %w", err)
	}
	if in.AdditionalMetrics == nil {
		in.AdditionalMetrics = map[string]any{}
	}
	var out Activity
	if err := c.do(ctx, http.MethodPost, activitiesPath, in, &out); err != nil {
		return nil, fmt.Errorf("[Client CreateActivity] %w", err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.credentials.Token(); token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}
	if user := c.credentials.User(); user.HasSubject() {
		req.Header.Set(userIDHeader, user.Subject)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %w", errors.ErrFetchFailed, errors.ErrNotAuthenticated)
	case resp.StatusCode >= http.StatusMultipleChoices:
		return fmt.Errorf("%w: %w %d", errors.ErrFetchFailed, errors.ErrUnexpectedStatus, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", errors.ErrFetchFailed, err)
	}
	return nil
}
