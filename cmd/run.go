package cmd

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/autoblog/internal/blog"
)

func newRunCmd() *cobra.Command {
	var (
		keyword string
		count   int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one job in the foreground and print a summary",
		Args:  cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			keyword = strings.TrimSpace(keyword)
			if keyword == "" || count < 1 {
				return errors.New("--keyword must be non-empty and --count must be >= 1")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			report, err := appInstance.RunOnce(ctx, keyword, count)
			if err != nil {
				return fmt.Errorf("run job: %w", err)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "seed keyword")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of posts to generate")
	_ = cmd.MarkFlagRequired("keyword")
	return cmd
}

func printReport(w io.Writer, report blog.Report) {
	fmt.Fprintf(w, "Job %s: %d of %d posts published for '%s'\n",
		report.JobID, report.Published(), len(report.Items), report.Seed)
	if report.Expansion.Fallback {
		fmt.Fprintf(w, "  keyword expansion fell back to the seed: %v\n", report.Expansion.Err)
	}
	for _, item := range report.Items {
		fmt.Fprintf(w, "  - %s: %s\n", item.Keyword, itemStatus(item))
	}
	if report.Canceled {
		fmt.Fprintln(w, "  canceled before all keywords were processed")
	}
}

func itemStatus(item blog.ItemResult) string {
	switch {
	case !item.Generated:
		return fmt.Sprintf("generation failed (%v)", item.GenerateErr)
	case item.Outcome == nil:
		return "not published"
	case item.Outcome.Published:
		return "published"
	case item.Outcome.Err != nil:
		return fmt.Sprintf("publish error (%v)", item.Outcome.Err)
	default:
		return fmt.Sprintf("rejected with status %d", item.Outcome.StatusCode)
	}
}

