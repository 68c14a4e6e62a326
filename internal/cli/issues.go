package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/benw5483/rectifierr/internal/models"
)

var issuesTrimLimit int

var issuesCmd = &cobra.Command{
	Use:   "issues <path>",
	Short: "Show detected issues and trim history for a media file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		abs, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		sess, err := a.store.Acquire(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		media, err := sess.MediaByPath(abs)
		if err != nil {
			return err
		}
		if media == nil {
			return fmt.Errorf("%s is not in the library (scan it first)", abs)
		}

		issues, err := sess.IssuesForMedia(media.ID)
		if err != nil {
			return err
		}
		trims, err := sess.TrimJobsForMedia(media.ID, issuesTrimLimit)
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s)\n", media.Title, media.Path)
		renderIssues(os.Stdout, issues)
		renderTrimJobs(os.Stdout, trims)
		return nil
	},
}

func renderIssues(out io.Writer, issues []*models.Issue) {
	if len(issues) == 0 {
		fmt.Fprintln(out, "no issues recorded")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tRANGE\tCONFIDENCE\tSTATUS")
	for _, i := range issues {
		status := "open"
		if i.Resolved {
			status = "resolved"
			if i.ResolutionMethod != nil {
				status = "resolved (" + *i.ResolutionMethod + ")"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%.1fs-%.1fs\t%.0f%%\t%s\n",
			i.ID, i.IssueType, i.StartSeconds, i.EndSeconds,
			i.Confidence*100, status)
	}
	w.Flush()
}

func renderTrimJobs(out io.Writer, trims []*models.TrimJob) {
	if len(trims) == 0 {
		return
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TRIM\tSTATUS\tREMOVED\tBACKUP")
	for _, t := range trims {
		backup := "-"
		if t.BackupPath != nil {
			backup = *t.BackupPath
		}
		fmt.Fprintf(w, "%s\t%s\t%.1fs-%.1fs\t%s\n",
			t.ID, t.Status, t.RemoveStart, t.RemoveEnd, backup)
	}
	w.Flush()
}

func init() {
	issuesCmd.Flags().IntVarP(&issuesTrimLimit, "trims", "n", 10, "how many trim jobs to list")
	rootCmd.AddCommand(issuesCmd)
}
