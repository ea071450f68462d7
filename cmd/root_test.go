package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/autoblog/internal/blog"
	"github.com/JakeFAU/autoblog/internal/config"
)

type fakeApp struct {
	runCalled bool
	seed      string
	count     int
	report    blog.Report
	runErr    error
	closed    int
}

func (f *fakeApp) Run(context.Context) error {
	f.runCalled = true
	return f.runErr
}

func (f *fakeApp) RunOnce(_ context.Context, seed string, count int) (blog.Report, error) {
	f.seed, f.count = seed, count
	return f.report, f.runErr
}

func (f *fakeApp) Close(context.Context) error {
	f.closed++
	return nil
}

// withFakeApp swaps the factory and provides the minimum valid environment.
func withFakeApp(t *testing.T, fake *fakeApp) *config.Config {
	t.Helper()
	t.Setenv("AUTOBLOG_LLM_API_KEY", "test-key")
	t.Setenv("AUTOBLOG_PUBLISHER_KIND", "memory")

	var seen config.Config
	orig := newApp
	newApp = func(_ context.Context, cfg config.Config) (App, error) {
		seen = cfg
		return fake, nil
	}
	t.Cleanup(func() { newApp = orig })
	return &seen
}

func execute(args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestServeCommandRunsApp(t *testing.T) {
	fake := &fakeApp{}
	cfg := withFakeApp(t, fake)

	_, err := execute("serve")

	require.NoError(t, err)
	require.True(t, fake.runCalled)
	require.Equal(t, 1, fake.closed)
	require.Equal(t, config.PublisherMemory, cfg.Publisher.Kind)
	require.Equal(t, 5000, cfg.Server.Port)
}

func TestRunCommandPrintsReport(t *testing.T) {
	fake := &fakeApp{report: blog.Report{
		JobID: "job-1",
		Seed:  "coffee",
		Expansion: blog.Expansion{
			Seed: "coffee", Keywords: []string{"coffee"}, Fallback: true, Err: errors.New("trends down"),
		},
		Items: []blog.ItemResult{{
			Keyword:   "coffee",
			Generated: true,
			BodyLen:   4,
			Outcome:   &blog.PublishOutcome{Title: "coffee", StatusCode: 401},
		}},
	}}
	withFakeApp(t, fake)

	out, err := execute("run", "--keyword", "  coffee ", "-n", "1")

	require.NoError(t, err)
	require.Equal(t, "coffee", fake.seed)
	require.Equal(t, 1, fake.count)
	require.Contains(t, out, "Job job-1: 0 of 1 posts published for 'coffee'")
	require.Contains(t, out, "fell back to the seed: trends down")
	require.Contains(t, out, "- coffee: rejected with status 401")
}

func TestRunCommandRejectsInvalidInput(t *testing.T) {
	withFakeApp(t, &fakeApp{})

	_, err := execute("run", "--keyword", "coffee", "--count", "0")
	require.ErrorContains(t, err, "--count must be >= 1")

	_, err = execute("run", "--keyword", "   ")
	require.Error(t, err)
}

func TestRootFailsOnInvalidConfig(t *testing.T) {
	withFakeApp(t, &fakeApp{})
	t.Setenv("AUTOBLOG_LLM_PROVIDER", "nobody")

	_, err := execute("serve")
	require.ErrorContains(t, err, "load config")
}

func TestItemStatus(t *testing.T) {
	require.Equal(t, "published", itemStatus(blog.ItemResult{
		Generated: true,
		Outcome:   &blog.PublishOutcome{Published: true},
	}))
	require.Equal(t, "generation failed (boom)", itemStatus(blog.ItemResult{
		GenerateErr: errors.New("boom"),
	}))
	require.Equal(t, "publish error (dial)", itemStatus(blog.ItemResult{
		Generated: true,
		Outcome:   &blog.PublishOutcome{Err: errors.New("dial")},
	}))
}
