// Package publisher submits generated articles to a content store and
// reports each attempt on the shared feed.
package publisher

import (
	"context"
	"net/http"

	"github.com/JakeFAU/autoblog/internal/blog"
)

// Service implements blog.Publisher on top of a blog.ContentStore.
type Service struct {
	store blog.ContentStore
	feed  blog.Feed
}

// New creates a Service.
func New(store blog.ContentStore, feed blog.Feed) *Service {
	return &Service{store: store, feed: feed}
}

// Publish creates a post from title and body. Only 201 Created counts as
// published; anything else is reported and returned in the outcome.
func (s *Service) Publish(ctx context.Context, title, body string) blog.PublishOutcome {
	s.feed.Appendf("Publishing '%s' ...", title)

	out := blog.PublishOutcome{Title: title}
	resp, err := s.store.CreatePost(ctx, blog.Article{Title: title, Body: body})
	if err != nil {
		out.Err = err
		s.feed.Appendf("Error publishing '%s': %v", title, err)
		return out
	}

	out.StatusCode = resp.StatusCode
	out.Body = resp.Body
	if resp.StatusCode != http.StatusCreated {
		s.feed.Appendf("Failed to publish '%s': %d %s", title, resp.StatusCode, resp.Body)
		return out
	}

	out.Published = true
	s.feed.Appendf("Post '%s' published successfully.", title)
	return out
}
