// Package reviewer records answers the way the host's review screen does:
// reschedule the card first, then fire the answer event.
package reviewer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/conorfennell/spreadcard/internal/domain"
	"github.com/conorfennell/spreadcard/internal/fsrs"
	"github.com/conorfennell/spreadcard/internal/review"
)

type collection interface {
	Today(ctx context.Context) (int, error)
	GetCard(ctx context.Context, id int64) (*domain.Card, error)
	UpdateCard(ctx context.Context, card *domain.Card) error
}

type answerHook interface {
	HandleAnswer(ctx context.Context, cardID int64, grade domain.Grade) (review.Outcome, error)
}

// Reviewer schedules answered cards and notifies the answer hook.
type Reviewer struct {
	coll   collection
	params *fsrs.Params
	hook   answerHook
	logger *zap.Logger
}

// New creates a Reviewer. params defaults to fsrs.DefaultParams.
func New(coll collection, params *fsrs.Params, hook answerHook, logger *zap.Logger) *Reviewer {
	if params == nil {
		params = fsrs.DefaultParams()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reviewer{coll: coll, params: params, hook: hook, logger: logger}
}

// Answer records grade for cardID.
func (r *Reviewer) Answer(ctx context.Context, cardID int64, grade domain.Grade) (review.Outcome, error) {
	if !grade.Valid() {
		return review.Outcome{}, fmt.Errorf("invalid grade %d", int(grade))
	}
	card, err := r.coll.GetCard(ctx, cardID)
	if err != nil {
		return review.Outcome{}, fmt.Errorf("get card: %w", err)
	}
	today, err := r.coll.Today(ctx)
	if err != nil {
		return review.Outcome{}, fmt.Errorf("read today: %w", err)
	}

	r.params.Schedule(card, grade, today)
	if err := r.coll.UpdateCard(ctx, card); err != nil {
		return review.Outcome{}, fmt.Errorf("reschedule card %d: %w", cardID, err)
	}
	r.logger.Debug("card_rescheduled",
		zap.Int64("card_id", cardID),
		zap.Stringer("grade", grade),
		zap.Int("due", card.Due),
		zap.Int("interval", card.Interval),
	)

	return r.hook.HandleAnswer(ctx, cardID, grade)
}
