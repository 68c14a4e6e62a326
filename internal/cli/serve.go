package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/benw5483/rectifierr/internal/models"
	"github.com/benw5483/rectifierr/internal/scheduler"
	"github.com/benw5483/rectifierr/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scan daemon",
	Long:  "Runs the scheduled full-library scan and, when enabled, the filesystem watcher that scans new files as they appear.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		sched, err := scheduler.New(a.cfg.Scan.Schedule, a.orchestrator.RunScheduledScan, a.log)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		if a.cfg.Scan.Watch {
			w, err := watcher.New(a.cfg.MediaRoot, func(path string) {
				job, err := a.orchestrator.CreateScanJob(context.Background(), models.ScanSingleFile, &path, nil)
				if err != nil {
					a.log.Errorw("watcher scan failed to start", "path", path, "error", err)
					return
				}
				a.orchestrator.StartJobAsync(job.ID)
			}, a.log)
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()
		}

		a.log.Infow("rectifierr daemon running",
			"media_root", a.cfg.MediaRoot,
			"schedule", a.cfg.Scan.Schedule,
			"watch", a.cfg.Scan.Watch)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		a.log.Info("shutdown signal received, waiting for running jobs")
		a.orchestrator.Wait()
		a.log.Info("daemon stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
