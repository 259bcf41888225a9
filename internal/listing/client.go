package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// TokenSource supplies a current access token for listing requests.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// HTTPDoer is the request execution seam, satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches listing pages from the Reddit API.
type Client struct {
	baseURL    string
	userAgent  string
	tokens     TokenSource
	httpClient HTTPDoer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient creates a listing client.
func NewClient(baseURL, userAgent string, tokens TokenSource, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("%w: listing base url required", ErrConfiguration)
	}
	if tokens == nil {
		return nil, fmt.Errorf("%w: token source required", ErrConfiguration)
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  strings.TrimSpace(userAgent),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Listing fetches one sort variant of a source and returns its raw posts.
func (c *Client) Listing(ctx context.Context, source string, sort Sort, limit int) ([]RawPost, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("%w: source must not be empty", ErrConfiguration)
	}
	if limit <= 0 {
		limit = 25
	}

	endpoint, err := url.Parse(fmt.Sprintf("%s/r/%s/%s", c.baseURL, url.PathEscape(source), sort))
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("raw_json", "1")
	if sort == SortTop {
		params.Set("t", "day")
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: no usable access token: %w", ErrUnauthenticated, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: listing request timed out (latency=%v)", ErrTransient, latency)
		}
		return nil, fmt.Errorf("%w: execute request (latency=%v): %w", ErrTransient, latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("listing %s/%s: %w", source, sort, &RateLimitError{RetryAfter: parseRetryAfter(resp)})
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing %s/%s: %w", source, sort, &StatusError{
			StatusCode: resp.StatusCode,
			Category:   classifyStatus(resp.StatusCode),
		})
	}

	var payload listingEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode listing response: %w", ErrTransient, err)
	}

	posts := make([]RawPost, 0, len(payload.Data.Children))
	for _, child := range payload.Data.Children {
		if child.Kind != "" && child.Kind != "t3" {
			continue
		}
		posts = append(posts, child.Data)
	}
	return posts, nil
}

func parseRetryAfter(resp *http.Response) time.Duration {
	value := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if remaining := time.Until(at); remaining > 0 {
			return remaining
		}
	}
	return 0
}
