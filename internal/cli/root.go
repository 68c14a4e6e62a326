// Package cli wires the rectifierr commands: the long-running daemon and
// the one-shot scan and job inspection commands.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benw5483/rectifierr/internal/config"
	"github.com/benw5483/rectifierr/internal/db"
	"github.com/benw5483/rectifierr/internal/detection"
	"github.com/benw5483/rectifierr/internal/ffmpeg"
	"github.com/benw5483/rectifierr/internal/jobs"
	"github.com/benw5483/rectifierr/internal/logger"
	"github.com/benw5483/rectifierr/internal/repository"
)

var rootCmd = &cobra.Command{
	Use:     "rectifierr",
	Short:   "Media quality scanner and remediation engine",
	Long:    "Scans a media library for bumpers and burned-in channel logos, and removes flagged segments with a reversible trim.",
	Version: "1.0.0",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		// Optional .env next to the binary; real env always wins.
		_ = godotenv.Load()
	})
}

// app is everything a command needs after bootstrap.
type app struct {
	cfg          *config.Config
	log          *zap.SugaredLogger
	database     *sql.DB
	store        *repository.Store
	orchestrator *jobs.Orchestrator
}

// bootstrap loads config, opens the database, applies migrations and the
// persisted settings overlay, and builds the orchestrator stack.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	store := repository.NewStore(database)

	// Tunables persisted through the settings table override file and env
	// values.
	if sess, err := store.Acquire(ctx); err == nil {
		if settings, err := sess.AllSettings(); err == nil {
			cfg.MergeFrom(settings)
		} else {
			log.Warnw("settings overlay unavailable", "error", err)
		}
		sess.Close()
	}

	prober := ffmpeg.NewFFprobe(cfg.FFprobePath)
	ff := ffmpeg.New(cfg.FFmpegPath, log)
	bumper := detection.NewBumperDetector(cfg.Bumper, prober, ff, log)
	logo := detection.NewLogoDetector(cfg.Logo, prober, ff, log)

	sessions := func(ctx context.Context) (jobs.Session, error) {
		return store.Acquire(ctx)
	}
	orch := jobs.NewOrchestrator(sessions, cfg, bumper, logo, prober, ff, log)

	return &app{
		cfg:          cfg,
		log:          log,
		database:     database,
		store:        store,
		orchestrator: orch,
	}, nil
}

func (a *app) close() {
	a.database.Close()
	a.log.Sync()
}
