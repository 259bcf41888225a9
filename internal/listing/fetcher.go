package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"redreel/internal/logging"
	"redreel/internal/ratelimit"
)

const fetchAttempts = 3

// ListingClient is the single-variant fetch seam, satisfied by *Client.
type ListingClient interface {
	Listing(ctx context.Context, source string, sort Sort, limit int) ([]RawPost, error)
}

// Fetcher issues the per-sort-variant requests for a source concurrently and
// joins them with settle-all semantics: one variant failing never aborts its
// siblings.
type Fetcher struct {
	client   ListingClient
	governor *ratelimit.Governor
	limit    int
	logger   *slog.Logger
}

// NewFetcher builds a Fetcher. The governor gates every request; a nil logger
// falls back to a no-op.
func NewFetcher(client ListingClient, governor *ratelimit.Governor, limit int, logger *slog.Logger) *Fetcher {
	if governor == nil {
		governor = ratelimit.New()
	}
	return &Fetcher{
		client:   client,
		governor: governor,
		limit:    limit,
		logger:   logging.NewComponentLogger(logger, "listing"),
	}
}

// FetchSource fetches every sort variant of a source concurrently and
// flattens the successful results. It fails only when all variants failed;
// the returned error carries the first classified category.
func (f *Fetcher) FetchSource(ctx context.Context, source string, sorts []Sort) ([]RawPost, error) {
	if len(sorts) == 0 {
		sorts = []Sort{SortHot}
	}
	if f.governor.Suppressed() {
		return nil, fmt.Errorf("source %s: %w: cooling down for %s", source, ErrRateLimited, f.governor.Cooldown().Round(time.Second))
	}

	results := make([][]RawPost, len(sorts))
	failures := make([]error, len(sorts))

	var wg sync.WaitGroup
	for i, sort := range sorts {
		wg.Add(1)
		go func(slot int, sort Sort) {
			defer wg.Done()
			posts, err := f.fetchVariant(ctx, source, sort)
			results[slot] = posts
			failures[slot] = err
		}(i, sort)
	}
	wg.Wait()

	var merged []RawPost
	var firstErr error
	succeeded := 0
	for i, err := range failures {
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			f.recordFailure(err)
			f.logger.Warn("sort variant failed",
				logging.String("source", source),
				logging.String("sort", string(sorts[i])),
				logging.Error(err))
			continue
		}
		succeeded++
		merged = append(merged, results[i]...)
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("source %s: all %d sort variants failed: %w", source, len(sorts), firstErr)
	}
	f.governor.RecordSuccess()

	f.logger.Debug("source fetched",
		logging.String("source", source),
		logging.Int("variants", len(sorts)),
		logging.Int("succeeded", succeeded),
		logging.Int("posts", len(merged)))
	return merged, nil
}

func (f *Fetcher) fetchVariant(ctx context.Context, source string, sort Sort) ([]RawPost, error) {
	var posts []RawPost

	err := retry.Do(
		func() error {
			fetched, err := f.client.Listing(ctx, source, sort, f.limit)
			if err != nil {
				if Terminal(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			posts = fetched
			return nil
		},
		retry.Attempts(fetchAttempts),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.MaxJitter(time.Second),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Debug("retrying sort variant",
				logging.String("source", source),
				logging.String("sort", string(sort)),
				logging.Int("attempt", int(n)+1),
				logging.Error(err))
		}),
	)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// recordFailure feeds request outcomes into the governor, passing along any
// retry-after hint a 429 supplied.
func (f *Fetcher) recordFailure(err error) {
	var rateLimited *RateLimitError
	if errors.As(err, &rateLimited) {
		cooldown := f.governor.RecordFailure(rateLimited.RetryAfter)
		f.logger.Warn("rate limited by upstream",
			logging.Duration("retry_after", rateLimited.RetryAfter),
			logging.Duration("cooldown", cooldown))
		return
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, ErrServerFault) {
		f.governor.RecordFailure(0)
	}
}
