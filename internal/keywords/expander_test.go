package keywords

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/autoblog/internal/feed"
)

type fakeSource struct {
	queries []string
	err     error
	calls   int
	seen    []string
}

func (f *fakeSource) RelatedQueries(_ context.Context, keyword string) ([]string, error) {
	f.calls++
	f.seen = append(f.seen, keyword)
	return f.queries, f.err
}

func TestExpandTruncatesToLimitPreservingOrder(t *testing.T) {
	t.Parallel()

	src := &fakeSource{queries: []string{"a", "b", "c", "d"}}
	lines := feed.New(10, nil)

	got := New(src, lines).Expand(context.Background(), "coffee", 2)

	require.False(t, got.Fallback)
	require.NoError(t, got.Err)
	require.Equal(t, []string{"a", "b"}, got.Keywords)
	require.Equal(t, []string{"coffee"}, src.seen)
	require.Equal(t, []string{
		"Fetching related keywords for 'coffee' ...",
		"Found related keywords: a, b",
	}, lines.Snapshot())
}

func TestExpandShortResultIsKept(t *testing.T) {
	t.Parallel()

	src := &fakeSource{queries: []string{"only"}}
	got := New(src, feed.New(10, nil)).Expand(context.Background(), "coffee", 5)

	require.Equal(t, []string{"only"}, got.Keywords)
}

func TestExpandFallsBackOnSourceError(t *testing.T) {
	t.Parallel()

	src := &fakeSource{err: errors.New("connection refused")}
	lines := feed.New(10, nil)

	got := New(src, lines).Expand(context.Background(), "coffee", 3)

	require.True(t, got.Fallback)
	require.Equal(t, []string{"coffee"}, got.Keywords)
	require.EqualError(t, got.Err, "connection refused")
	require.Equal(t, []string{
		"Fetching related keywords for 'coffee' ...",
		"Using base keyword as fallback: connection refused",
	}, lines.Snapshot())
}

func TestExpandFallsBackOnEmptyResult(t *testing.T) {
	t.Parallel()

	got := New(&fakeSource{queries: []string{}}, feed.New(10, nil)).Expand(context.Background(), "tea", 3)

	require.True(t, got.Fallback)
	require.Equal(t, []string{"tea"}, got.Keywords)
	require.ErrorIs(t, got.Err, errEmptyResult)
}

func TestExpandClampsLimit(t *testing.T) {
	t.Parallel()

	got := New(&fakeSource{queries: []string{"a", "b"}}, feed.New(10, nil)).Expand(context.Background(), "seed", 0)

	require.Equal(t, []string{"a"}, got.Keywords)
}

// TestExpandLengthBounds checks 1 <= len(result) <= limit across sizes.
func TestExpandLengthBounds(t *testing.T) {
	t.Parallel()

	for available := 0; available <= 6; available++ {
		for limit := 1; limit <= 6; limit++ {
			queries := make([]string, available)
			for i := range queries {
				queries[i] = fmt.Sprintf("kw-%d", i)
			}
			got := New(&fakeSource{queries: queries}, feed.New(4, nil)).
				Expand(context.Background(), "seed", limit)
			require.GreaterOrEqual(t, len(got.Keywords), 1)
			require.LessOrEqual(t, len(got.Keywords), limit)
		}
	}
}
