// Package generator turns a keyword into article text using a completion
// provider.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/autoblog/internal/blog"
)

const promptTemplate = "Write a detailed, SEO optimized blog post about '%s'. Include headings and subheadings."

// ErrEmptyCompletion is reported when the provider answers with no text.
var ErrEmptyCompletion = errors.New("completion was empty")

// Service implements blog.Generator.
type Service struct {
	completer blog.Completer
	feed      blog.Feed
}

// New creates a Service.
func New(completer blog.Completer, feed blog.Feed) *Service {
	return &Service{completer: completer, feed: feed}
}

// Prompt returns the instruction sent for keyword.
func Prompt(keyword string) string {
	return fmt.Sprintf(promptTemplate, keyword)
}

// Generate requests an article for keyword. Failures are reported on the
// feed and in Draft.Err; Body is empty in that case.
func (s *Service) Generate(ctx context.Context, keyword string) blog.Draft {
	s.feed.Appendf("Generating content for '%s' ...", keyword)

	text, err := s.completer.Complete(ctx, Prompt(keyword))
	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = ErrEmptyCompletion
		}
	}
	if err != nil {
		s.feed.Appendf("Error generating content for '%s': %v", keyword, err)
		return blog.Draft{Keyword: keyword, Err: err}
	}

	s.feed.Appendf("Content generated for '%s'.", keyword)
	return blog.Draft{Keyword: keyword, Body: text}
}
