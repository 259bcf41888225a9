package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"redreel/internal/feed"
	"redreel/internal/listing"
	"redreel/internal/media"
	"redreel/internal/notifications"
)

type feedJSONSource struct {
	Source string `json:"source"`
	Posts  int    `json:"posts"`
	Error  string `json:"error,omitempty"`
}

type feedJSONOutput struct {
	Sources []feedJSONSource `json:"sources"`
	Posts   []media.Post     `json:"posts"`
	Error   string           `json:"error,omitempty"`
}

func newFeedCommand(ctx *commandContext) *cobra.Command {
	var (
		sortsFlag    []string
		limitFlag    int
		jsonFlag     bool
		keywordsFlag []string
	)

	cmd := &cobra.Command{
		Use:   "feed [source ...]",
		Short: "Fetch and merge the configured sources into one feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			sources := args
			if len(sources) == 0 {
				sources = cfg.Feed.Sources
			}
			if len(sources) == 0 {
				return fmt.Errorf("no sources given and none configured; pass sources or set feed.sources in config")
			}

			sortNames := sortsFlag
			if len(sortNames) == 0 {
				sortNames = cfg.Feed.Sorts
			}
			if limitFlag > 0 {
				cfg.Feed.Limit = limitFlag
			}
			keywords := keywordsFlag
			if len(keywords) == 0 {
				keywords = cfg.Feed.PriorityKeywords
			}

			notifier := notifications.NewService(cfg)
			store, closeStore, err := ctx.openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			manager, err := ctx.buildManager(cfg, store, notifier, logger)
			if err != nil {
				return err
			}
			manager.Initialize(cmd.Context())

			assembler, err := ctx.buildAssembler(cfg, manager, logger)
			if err != nil {
				return err
			}

			result := assembler.Assemble(cmd.Context(), sources, feed.Options{
				Sorts:    listing.ParseSorts(sortNames),
				Priority: feed.KeywordPriority(keywords),
			})

			notifyDegraded(cmd, notifier, result, len(sources))

			if result.OverallError != nil {
				return fmt.Errorf("assemble feed: %w", result.OverallError)
			}
			if jsonFlag {
				return writeJSON(cmd, feedResultToJSON(result))
			}
			renderFeed(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sortsFlag, "sorts", nil, "Sort variants to fetch per source (hot, new, top, rising)")
	cmd.Flags().IntVar(&limitFlag, "limit", 0, "Posts requested per sort variant (max 100)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit the assembled feed as JSON")
	cmd.Flags().StringSliceVar(&keywordsFlag, "priority", nil, "Title keywords ordered ahead of the rest of the feed")
	return cmd
}

func notifyDegraded(cmd *cobra.Command, notifier notifications.Service, result feed.Result, total int) {
	var failed []string
	for _, sr := range result.Results {
		if sr.Err != nil {
			failed = append(failed, sr.SourceName)
		}
	}
	if len(failed) == 0 || len(result.Posts) == 0 {
		return
	}
	if err := notifier.NotifyFeedDegraded(cmd.Context(), failed, total); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: degraded-feed notification failed: %v\n", err)
	}
}

func feedResultToJSON(result feed.Result) feedJSONOutput {
	out := feedJSONOutput{Posts: result.Posts}
	if out.Posts == nil {
		out.Posts = []media.Post{}
	}
	for _, sr := range result.Results {
		entry := feedJSONSource{Source: sr.SourceName, Posts: len(sr.Posts)}
		if sr.Err != nil {
			entry.Error = sr.Err.Error()
		}
		out.Sources = append(out.Sources, entry)
	}
	return out
}

func renderFeed(cmd *cobra.Command, result feed.Result) {
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, len(result.Posts))
	for _, post := range result.Posts {
		rows = append(rows, []string{
			post.ID,
			truncate(post.Title, 60),
			post.SourceName,
			postKind(post),
			yesNo(post.Priority),
			post.DisplayURL,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Title", "Source", "Kind", "Priority", "URL"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))

	for _, sr := range result.Results {
		if sr.Err != nil {
			fmt.Fprintf(out, "source %s failed: %v\n", sr.SourceName, sr.Err)
		}
	}
	fmt.Fprintf(out, "%s posts from %s sources\n",
		strconv.Itoa(len(result.Posts)), strconv.Itoa(len(result.Results)))
}

func postKind(post media.Post) string {
	if post.IsVideo {
		return "video"
	}
	return "image"
}

// truncate shortens value to limit runes, never splitting a multi-byte
// character.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 3 || utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit-3]) + "..."
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
