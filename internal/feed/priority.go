package feed

import (
	"strings"

	"golang.org/x/text/cases"

	"redreel/internal/media"
)

// KeywordPriority builds a priority predicate matching posts whose title
// contains any of the given keywords, compared case-insensitively with
// Unicode case folding.
func KeywordPriority(keywords []string) func(post media.Post) bool {
	folder := cases.Fold()
	folded := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		folded = append(folded, folder.String(keyword))
	}
	if len(folded) == 0 {
		return nil
	}
	return func(post media.Post) bool {
		title := folder.String(post.Title)
		for _, keyword := range folded {
			if strings.Contains(title, keyword) {
				return true
			}
		}
		return false
	}
}
