package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/benw5483/rectifierr/internal/models"
)

var scanKind string

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Run a one-shot scan and wait for it",
	Long: `Scans a directory or single file and blocks until the scan finishes.
Without a path the configured media root is scanned.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		kind, err := resolveScanKind(scanKind, args)
		if err != nil {
			return err
		}

		var target *string
		if len(args) == 1 {
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(abs); err != nil {
				return fmt.Errorf("scan target: %w", err)
			}
			target = &abs
		}

		job, err := a.orchestrator.CreateScanJob(ctx, kind, target, nil)
		if err != nil {
			return err
		}
		a.orchestrator.StartJobAsync(job.ID)
		fmt.Printf("scan job %s started (%s)\n", job.ID, kind)

		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			snap, err := a.orchestrator.ScanJobSnapshot(ctx, job.ID)
			if err != nil || snap == nil {
				continue
			}
			fmt.Printf("\r%s  %d/%d files, %d issues", snap.Status,
				snap.ProcessedFiles, snap.TotalFiles, snap.IssuesFound)
			switch snap.Status {
			case models.ScanCompleted:
				fmt.Println()
				return nil
			case models.ScanFailed:
				fmt.Println()
				if snap.ErrorMessage != nil {
					return fmt.Errorf("scan failed: %s", *snap.ErrorMessage)
				}
				return fmt.Errorf("scan failed")
			case models.ScanCancelled:
				fmt.Println()
				return fmt.Errorf("scan cancelled")
			}
		}
		return nil
	},
}

func resolveScanKind(flag string, args []string) (models.ScanType, error) {
	switch flag {
	case "":
		// Default by target shape.
		if len(args) == 1 {
			if info, err := os.Stat(args[0]); err == nil && !info.IsDir() {
				return models.ScanSingleFile, nil
			}
			return models.ScanDirectory, nil
		}
		return models.ScanFullLibrary, nil
	case "full":
		return models.ScanFullLibrary, nil
	case "directory":
		return models.ScanDirectory, nil
	case "file":
		return models.ScanSingleFile, nil
	case "bumpers":
		return models.ScanBumperOnly, nil
	case "logos":
		return models.ScanLogoOnly, nil
	default:
		return "", fmt.Errorf("unknown scan type %q (full, directory, file, bumpers, logos)", flag)
	}
}

func init() {
	scanCmd.Flags().StringVarP(&scanKind, "type", "t", "", "scan type: full, directory, file, bumpers, logos")
	rootCmd.AddCommand(scanCmd)
}
