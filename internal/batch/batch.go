// Package batch runs the regeneration pass over every note waiting for
// content, followed by the mobile-review pass.
package batch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/conorfennell/spreadcard/internal/domain"
	"github.com/conorfennell/spreadcard/internal/refresh"
	"github.com/conorfennell/spreadcard/internal/review"
)

type collection interface {
	FindCards(ctx context.Context, q domain.CardQuery) ([]int64, error)
	GetCard(ctx context.Context, id int64) (*domain.Card, error)
	GetNote(ctx context.Context, id int64) (*domain.Note, error)
	UpdateNote(ctx context.Context, note *domain.Note) error
}

type answerer interface {
	HandleAnswer(ctx context.Context, cardID int64, grade domain.Grade) (review.Outcome, error)
}

// Config tunes the batch passes.
type Config struct {
	NoteType string
	// MobileGrade is applied to cards reviewed outside the interactive UI.
	MobileGrade domain.Grade
}

// Report counts what a run did. Failed cards are logged and skipped.
type Report struct {
	Generated int
	GenFailed int
	Mobile    int
	MobFailed int
}

// Runner executes batch passes sequentially, one card at a time.
type Runner struct {
	coll    collection
	gen     refresh.Generator
	answers answerer
	cfg     Config
	logger  *zap.Logger
}

// NewRunner creates a Runner. gen may be nil when no API key is
// configured; Run then fails with ErrMissingCredential.
func NewRunner(coll collection, gen refresh.Generator, answers answerer, cfg Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.MobileGrade.Valid() {
		cfg.MobileGrade = domain.GradeGood
	}
	return &Runner{coll: coll, gen: gen, answers: answers, cfg: cfg, logger: logger}
}

// GenerationQuery selects cards waiting for content that are due by tomorrow.
func (r *Runner) GenerationQuery() domain.CardQuery {
	return domain.CardQuery{
		NoteType: r.cfg.NoteType,
		Tags:     []string{domain.TagRequires},
		Due:      []domain.DueFilter{{Op: domain.OpLE, Days: 1}},
	}
}

// MobileQuery selects cards that already have content but are not due
// until after tomorrow, i.e. ones reviewed elsewhere since the last run.
func (r *Runner) MobileQuery() domain.CardQuery {
	return domain.CardQuery{
		NoteType: r.cfg.NoteType,
		Tags:     []string{domain.TagGenerated},
		Due:      []domain.DueFilter{{Op: domain.OpGT, Days: 1}},
	}
}

// Run checks the credential, then runs the generation pass and the
// mobile-review pass.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	var rep Report
	if r.gen == nil {
		return rep, domain.ErrMissingCredential
	}
	if err := r.generationPass(ctx, &rep); err != nil {
		return rep, err
	}
	if err := r.mobilePass(ctx, &rep); err != nil {
		return rep, err
	}
	r.logger.Info("batch_finished",
		zap.Int("generated", rep.Generated),
		zap.Int("generation_failed", rep.GenFailed),
		zap.Int("mobile_reviewed", rep.Mobile),
		zap.Int("mobile_failed", rep.MobFailed),
	)
	return rep, nil
}

// RunMobile runs only the mobile-review pass. It needs no credential.
func (r *Runner) RunMobile(ctx context.Context) (Report, error) {
	var rep Report
	err := r.mobilePass(ctx, &rep)
	return rep, err
}

func (r *Runner) generationPass(ctx context.Context, rep *Report) error {
	ids, err := r.coll.FindCards(ctx, r.GenerationQuery())
	if err != nil {
		return fmt.Errorf("find cards to generate: %w", err)
	}
	r.logger.Info("generation_pass_started", zap.Int("cards", len(ids)))

	refresher := refresh.NewRefresher(r.coll, r.gen, r.logger)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := refresher.Refresh(ctx, id); err != nil {
			rep.GenFailed++
			r.logger.Warn("generation_failed", zap.Int64("card_id", id), zap.Error(err))
			continue
		}
		rep.Generated++
	}
	return nil
}

func (r *Runner) mobilePass(ctx context.Context, rep *Report) error {
	ids, err := r.coll.FindCards(ctx, r.MobileQuery())
	if err != nil {
		return fmt.Errorf("find mobile reviews: %w", err)
	}
	r.logger.Info("mobile_pass_started", zap.Int("cards", len(ids)))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.answers.HandleAnswer(ctx, id, r.cfg.MobileGrade); err != nil {
			rep.MobFailed++
			r.logger.Warn("mobile_review_failed", zap.Int64("card_id", id), zap.Error(err))
			continue
		}
		rep.Mobile++
	}
	return nil
}
