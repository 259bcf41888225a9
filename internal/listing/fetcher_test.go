package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"redreel/internal/ratelimit"
)

type stubClient struct {
	mu    sync.Mutex
	calls map[Sort]int

	posts map[Sort][]RawPost
	fails map[Sort]error
}

func newStubClient() *stubClient {
	return &stubClient{
		calls: make(map[Sort]int),
		posts: make(map[Sort][]RawPost),
		fails: make(map[Sort]error),
	}
}

func (s *stubClient) Listing(_ context.Context, _ string, sort Sort, _ int) ([]RawPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[sort]++
	if err := s.fails[sort]; err != nil {
		return nil, err
	}
	return s.posts[sort], nil
}

func testGovernor(now *time.Time) *ratelimit.Governor {
	return ratelimit.New(
		ratelimit.WithClock(func() time.Time { return *now }),
		ratelimit.WithJitter(func() float64 { return 0.5 }),
	)
}

func TestFetchSourceMergesVariants(t *testing.T) {
	client := newStubClient()
	client.posts[SortHot] = []RawPost{{ID: "a"}, {ID: "b"}}
	client.posts[SortTop] = []RawPost{{ID: "c"}}

	now := time.Now()
	fetcher := NewFetcher(client, testGovernor(&now), 25, nil)

	posts, err := fetcher.FetchSource(context.Background(), "aww", []Sort{SortHot, SortTop})
	if err != nil {
		t.Fatalf("fetch source: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 merged posts, got %d", len(posts))
	}
}

func TestFetchSourceToleratesPartialVariantFailure(t *testing.T) {
	client := newStubClient()
	client.posts[SortHot] = []RawPost{{ID: "a"}}
	client.fails[SortTop] = fmt.Errorf("listing aww/top: %w", &StatusError{StatusCode: 403, Category: ErrUpstreamRejection})

	now := time.Now()
	fetcher := NewFetcher(client, testGovernor(&now), 25, nil)

	posts, err := fetcher.FetchSource(context.Background(), "aww", []Sort{SortHot, SortTop})
	if err != nil {
		t.Fatalf("expected partial success, got error: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "a" {
		t.Fatalf("unexpected posts: %#v", posts)
	}
}

func TestFetchSourceFailsWhenAllVariantsFail(t *testing.T) {
	client := newStubClient()
	client.fails[SortHot] = fmt.Errorf("boom: %w", ErrServerFault)
	client.fails[SortTop] = fmt.Errorf("boom: %w", ErrServerFault)

	now := time.Now()
	fetcher := NewFetcher(client, testGovernor(&now), 25, nil)

	_, err := fetcher.FetchSource(context.Background(), "aww", []Sort{SortHot, SortTop})
	if err == nil {
		t.Fatal("expected error when every variant fails")
	}
	if !errors.Is(err, ErrServerFault) {
		t.Fatalf("expected server-fault category, got %v", err)
	}
}

func TestFetchSourceRetriesTransientFailures(t *testing.T) {
	attempts := 0
	client := &funcClient{fn: func() ([]RawPost, error) {
		attempts++
		if attempts < 3 {
			return nil, fmt.Errorf("flaky: %w", ErrTransient)
		}
		return []RawPost{{ID: "a"}}, nil
	}}

	now := time.Now()
	fetcher := NewFetcher(client, testGovernor(&now), 25, nil)

	posts, err := fetcher.FetchSource(context.Background(), "aww", []Sort{SortHot})
	if err != nil {
		t.Fatalf("fetch source: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if len(posts) != 1 {
		t.Fatalf("unexpected posts: %#v", posts)
	}
}

func TestFetchSourceDoesNotRetryRejections(t *testing.T) {
	attempts := 0
	client := &funcClient{fn: func() ([]RawPost, error) {
		attempts++
		return nil, fmt.Errorf("gone: %w", ErrUpstreamRejection)
	}}

	now := time.Now()
	fetcher := NewFetcher(client, testGovernor(&now), 25, nil)

	if _, err := fetcher.FetchSource(context.Background(), "aww", []Sort{SortHot}); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("rejection should not be retried, got %d attempts", attempts)
	}
}

func TestFetchSourceSuppressedDuringCooldown(t *testing.T) {
	client := newStubClient()
	now := time.Now()
	governor := testGovernor(&now)
	governor.RecordFailure(time.Minute)

	fetcher := NewFetcher(client, governor, 25, nil)

	_, err := fetcher.FetchSource(context.Background(), "aww", []Sort{SortHot})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate-limited error during cool-down, got %v", err)
	}
	if client.calls[SortHot] != 0 {
		t.Fatal("suppressed fetch must not hit the client")
	}

	now = now.Add(2 * time.Minute)
	client.posts[SortHot] = []RawPost{{ID: "a"}}
	if _, err := fetcher.FetchSource(context.Background(), "aww", []Sort{SortHot}); err != nil {
		t.Fatalf("fetch after cool-down expiry: %v", err)
	}
}

func TestFetchSourceFeedsRateLimitHintIntoGovernor(t *testing.T) {
	client := newStubClient()
	client.fails[SortHot] = fmt.Errorf("listing aww/hot: %w", &RateLimitError{RetryAfter: 45 * time.Second})

	now := time.Now()
	governor := testGovernor(&now)
	fetcher := NewFetcher(client, governor, 25, nil)

	if _, err := fetcher.FetchSource(context.Background(), "aww", []Sort{SortHot}); err == nil {
		t.Fatal("expected error")
	}
	remaining := governor.Cooldown()
	if remaining != 45*time.Second {
		t.Fatalf("expected 45s cool-down from retry-after hint, got %v", remaining)
	}
}

type funcClient struct {
	mu sync.Mutex
	fn func() ([]RawPost, error)
}

func (c *funcClient) Listing(context.Context, string, Sort, int) ([]RawPost, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fn()
}
