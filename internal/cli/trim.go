package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/benw5483/rectifierr/internal/models"
)

var trimCmd = &cobra.Command{
	Use:   "trim <issue-id>",
	Short: "Remove a detected segment and wait for it",
	Long: `Cuts the segment flagged by the given issue out of its media file.
The original is kept as a .bak backup next to the file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		issueID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue id %q: %w", args[0], err)
		}

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		sess, err := a.store.Acquire(ctx)
		if err != nil {
			return err
		}
		issue, err := sess.IssueByID(issueID)
		sess.Close()
		if err != nil {
			return err
		}
		if issue == nil {
			return fmt.Errorf("issue %s not found", issueID)
		}
		if issue.Resolved {
			return fmt.Errorf("issue %s is already resolved", issueID)
		}

		job, err := a.orchestrator.StartTrim(ctx, issue.MediaFileID,
			issue.StartSeconds, issue.EndSeconds, &issue.ID)
		if err != nil {
			return err
		}
		fmt.Printf("trim job %s started (%.1fs-%.1fs)\n",
			job.ID, job.RemoveStart, job.RemoveEnd)

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for range ticker.C {
			snap, err := a.orchestrator.TrimJobSnapshot(ctx, job.ID)
			if err != nil || snap == nil {
				continue
			}
			switch snap.Status {
			case models.TrimCompleted:
				if snap.BackupPath != nil {
					fmt.Printf("done, backup at %s\n", *snap.BackupPath)
				} else {
					fmt.Println("done")
				}
				return nil
			case models.TrimFailed:
				if snap.ErrorMessage != nil {
					return fmt.Errorf("trim failed: %s", *snap.ErrorMessage)
				}
				return fmt.Errorf("trim failed")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trimCmd)
}
