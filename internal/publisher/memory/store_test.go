package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/autoblog/internal/blog"
)

func TestStoreRecordsPosts(t *testing.T) {
	t.Parallel()

	store := New()
	resp, err := store.CreatePost(context.Background(), blog.Article{Title: "a", Body: "one"})
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)
	require.Equal(t, `{"id":1}`, resp.Body)

	resp, err = store.CreatePost(context.Background(), blog.Article{Title: "b", Body: "two"})
	require.NoError(t, err)
	require.Equal(t, `{"id":2}`, resp.Body)

	posts := store.Posts()
	require.Equal(t, []blog.Article{{Title: "a", Body: "one"}, {Title: "b", Body: "two"}}, posts)

	posts[0].Title = "modified"
	require.Equal(t, "a", store.Posts()[0].Title, "Posts must return a copy")
}
