// Package keywords expands a seed keyword into related keywords using a
// trend source, degrading to the seed alone when the source is unusable.
package keywords

import (
	"context"
	"errors"
	"strings"

	"github.com/JakeFAU/autoblog/internal/blog"
)

var errEmptyResult = errors.New("trend source returned no keywords")

// Expander implements blog.Expander.
type Expander struct {
	source blog.TrendSource
	feed   blog.Feed
}

// New creates an Expander.
func New(source blog.TrendSource, feed blog.Feed) *Expander {
	return &Expander{source: source, feed: feed}
}

// Expand returns at most limit related keywords for seed, in the source's
// ranking order. Any source failure yields exactly [seed].
func (e *Expander) Expand(ctx context.Context, seed string, limit int) blog.Expansion {
	if limit < 1 {
		limit = 1
	}
	e.feed.Appendf("Fetching related keywords for '%s' ...", seed)

	queries, err := e.source.RelatedQueries(ctx, seed)
	if err == nil && len(queries) == 0 {
		err = errEmptyResult
	}
	if err != nil {
		e.feed.Appendf("Using base keyword as fallback: %v", err)
		return blog.Expansion{
			Seed:     seed,
			Keywords: []string{seed},
			Fallback: true,
			Err:      err,
		}
	}

	if len(queries) > limit {
		queries = queries[:limit]
	}
	keywords := make([]string, len(queries))
	copy(keywords, queries)
	e.feed.Appendf("Found related keywords: %s", strings.Join(keywords, ", "))
	return blog.Expansion{Seed: seed, Keywords: keywords}
}
