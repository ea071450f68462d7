// Package memory contains an in-process content store for dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/JakeFAU/autoblog/internal/blog"
)

// Store records created posts and answers 201 Created.
type Store struct {
	mu    sync.RWMutex
	posts []blog.Article
}

// New returns a memory Store.
func New() *Store {
	return &Store{}
}

// CreatePost records the article and returns a pseudo post body.
func (s *Store) CreatePost(_ context.Context, article blog.Article) (blog.StoreResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, article)
	return blog.StoreResponse{
		StatusCode: http.StatusCreated,
		Body:       fmt.Sprintf(`{"id":%d}`, len(s.posts)),
	}, nil
}

// Posts returns the recorded articles.
func (s *Store) Posts() []blog.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]blog.Article, len(s.posts))
	copy(out, s.posts)
	return out
}
