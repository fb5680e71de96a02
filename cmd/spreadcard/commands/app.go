// Package commands holds the spreadcard subcommands.
package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conorfennell/spreadcard/internal/batch"
	"github.com/conorfennell/spreadcard/internal/config"
	"github.com/conorfennell/spreadcard/internal/domain"
	"github.com/conorfennell/spreadcard/internal/generate"
	"github.com/conorfennell/spreadcard/internal/logger"
	"github.com/conorfennell/spreadcard/internal/refresh"
	"github.com/conorfennell/spreadcard/internal/review"
	"github.com/conorfennell/spreadcard/internal/reviewer"
	"github.com/conorfennell/spreadcard/internal/spread"
	"github.com/conorfennell/spreadcard/internal/storage"
	"github.com/conorfennell/spreadcard/internal/sync"
)

// app is the wired collection and its components for one command run.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *storage.DB
	runner   *batch.Runner
	reviewer *reviewer.Reviewer
	syncer   *sync.Syncer
}

func openApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := storage.Open(cfg.Database.Path, storage.WithNoteType(cfg.Review.NoteType))
	if err != nil {
		_ = logger.Sync(log)
		return nil, fmt.Errorf("open collection: %w", err)
	}

	machine := review.NewMachine(db, spread.NewScheduler(db, log), review.Config{
		NoteType:       cfg.Review.NoteType,
		DeleteSpreadAt: cfg.Review.SpreadDeleteGradeValue(),
	}, log)

	// Without a key the generator stays nil and batch runs report the
	// missing credential themselves.
	var gen refresh.Generator
	client, err := generate.NewOpenAI(generate.Options{
		APIKey:            cfg.OpenAI.APIKey,
		Model:             cfg.OpenAI.Model,
		BaseURL:           cfg.OpenAI.BaseURL,
		Timeout:           cfg.OpenAI.Timeout,
		RequestsPerMinute: cfg.OpenAI.RequestsPerMinute,
		Logger:            log,
	})
	switch {
	case err == nil:
		gen = client
	case !errors.Is(err, domain.ErrMissingCredential):
		_ = db.Close()
		_ = logger.Sync(log)
		return nil, fmt.Errorf("create generator: %w", err)
	}

	return &app{
		cfg:    cfg,
		logger: log,
		db:     db,
		runner: batch.NewRunner(db, gen, machine, batch.Config{
			NoteType:    cfg.Review.NoteType,
			MobileGrade: cfg.Review.MobileGradeValue(),
		}, log),
		reviewer: reviewer.New(db, nil, machine, log),
		syncer: sync.New(db, sync.Config{
			ReposDir: cfg.Sources.ReposDir,
			NoteType: cfg.Review.NoteType,
		}, log),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("collection_close_failed", zap.Error(err))
	}
	_ = logger.Sync(a.logger)
}
