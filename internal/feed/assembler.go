package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"redreel/internal/listing"
	"redreel/internal/logging"
	"redreel/internal/media"
)

// SourceFetcher is the upstream seam, satisfied by *listing.Fetcher.
type SourceFetcher interface {
	FetchSource(ctx context.Context, source string, sorts []listing.Sort) ([]listing.RawPost, error)
}

// SourceResult is the per-source outcome. An errored source may still carry
// posts when some sort variants succeeded before the failure.
type SourceResult struct {
	SourceName string
	Posts      []media.Post
	Err        error
}

// Result is one assembled feed cycle. Posts is the merged, deduplicated,
// priority-ordered feed; OverallError is set only when every source errored
// and produced nothing.
type Result struct {
	Results      []SourceResult
	Posts        []media.Post
	OverallError error
}

// Options tune a single Assemble call.
type Options struct {
	// Sorts are the listing variants fetched per source. Empty falls back to
	// the fetcher's default.
	Sorts []listing.Sort
	// Priority marks posts ordered ahead of the rest of the feed. Nil means
	// no priority class.
	Priority func(post media.Post) bool
	// Rand overrides the shuffle source (used in tests).
	Rand *rand.Rand
}

// Assembler merges multi-source fetch results into one ordered feed.
type Assembler struct {
	fetcher SourceFetcher
	logger  *slog.Logger
}

// New builds an Assembler. A nil logger falls back to a no-op.
func New(fetcher SourceFetcher, logger *slog.Logger) *Assembler {
	return &Assembler{
		fetcher: fetcher,
		logger:  logging.NewComponentLogger(logger, "feed"),
	}
}

// Assemble fetches every source concurrently, never letting one source's
// failure abort its siblings, and returns the merged feed.
func (a *Assembler) Assemble(ctx context.Context, sources []string, opts Options) Result {
	if len(sources) == 0 {
		return Result{OverallError: errors.New("no sources configured")}
	}

	results := make([]SourceResult, len(sources))
	var wg sync.WaitGroup
	for i, source := range sources {
		wg.Add(1)
		go func(slot int, source string) {
			defer wg.Done()
			results[slot] = a.fetchOne(ctx, source, opts)
		}(i, source)
	}
	wg.Wait()

	merged := a.merge(results, opts)

	result := Result{Results: results, Posts: merged}
	if len(merged) == 0 && allErrored(results) {
		result.OverallError = fmt.Errorf("all %d sources failed: %w", len(sources), results[0].Err)
	}
	return result
}

func (a *Assembler) fetchOne(ctx context.Context, source string, opts Options) SourceResult {
	result := SourceResult{SourceName: source}

	raws, err := a.fetcher.FetchSource(ctx, source, opts.Sorts)
	if err != nil {
		result.Err = err
		a.logger.Warn("source fetch failed",
			logging.String("source", source),
			logging.Error(err))
	}

	for _, raw := range raws {
		post := media.Resolve(source, raw)
		if post == nil {
			continue
		}
		if opts.Priority != nil && opts.Priority(*post) {
			post.Priority = true
		}
		result.Posts = append(result.Posts, *post)
	}
	return result
}

// merge deduplicates by post id (first occurrence wins, in source order),
// partitions into the priority and default classes, and shuffles each class
// independently so reordering never crosses the class boundary.
func (a *Assembler) merge(results []SourceResult, opts Options) []media.Post {
	seen := make(map[string]struct{})
	var priority, rest []media.Post
	for _, result := range results {
		for _, post := range result.Posts {
			if _, dup := seen[post.ID]; dup {
				continue
			}
			seen[post.ID] = struct{}{}
			if post.Priority {
				priority = append(priority, post)
			} else {
				rest = append(rest, post)
			}
		}
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	shuffle(priority, rng)
	shuffle(rest, rng)

	merged := make([]media.Post, 0, len(priority)+len(rest))
	merged = append(merged, priority...)
	merged = append(merged, rest...)
	return merged
}

func shuffle(posts []media.Post, rng *rand.Rand) {
	rng.Shuffle(len(posts), func(i, j int) {
		posts[i], posts[j] = posts[j], posts[i]
	})
}

func allErrored(results []SourceResult) bool {
	for _, result := range results {
		if result.Err == nil {
			return false
		}
	}
	return true
}
