// Package spread turns the remaining variants of a practice set into
// single-use spread notes scheduled between today and the primary card's
// next due day.
package spread

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conorfennell/spreadcard/internal/domain"
	"github.com/conorfennell/spreadcard/internal/fieldset"
)

// ReviewSentinel heads the review prompts of every spread note.
const ReviewSentinel = "SPREAD (review not required)"

type collection interface {
	AddNote(ctx context.Context, note *domain.Note, deckID int64) ([]int64, error)
	GetCard(ctx context.Context, id int64) (*domain.Card, error)
	UpdateCard(ctx context.Context, card *domain.Card) error
}

// Scheduler creates spread notes on the host collection.
type Scheduler struct {
	coll   collection
	logger *zap.Logger
}

// NewScheduler creates a Scheduler writing to coll.
func NewScheduler(coll collection, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{coll: coll, logger: logger}
}

// Offsets returns the due day of each spread for a practice set of n
// variants. Position 0 belongs to the primary card, so n-1 days are
// returned.
//
// The step is (due-today)/(n-1), at least 1. Days run from today+step in
// steps; whenever the next day would reach due the run restarts at
// today+step, so later spreads may share a day with earlier ones.
//
// Every day falls strictly between today and due except in two cases where
// the first day already equals due: n == 2, where the single step is the
// whole interval, and due-today == 1, where the step floors at one day.
func Offsets(today, due, n int) []int {
	if n < 2 {
		return nil
	}
	interval := floorDiv(due-today, n-1)
	if interval < 1 {
		interval = 1
	}

	offsets := make([]int, 0, n-1)
	next := today + interval
	for i := 0; i < n-1; i++ {
		offsets = append(offsets, next)
		next += interval
		if next >= due {
			next = today + interval
		}
	}
	return offsets
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// BuildNote makes the spread note for one variant of primary.
func BuildNote(primary *domain.Note, v fieldset.Variant) (*domain.Note, error) {
	if v.MissingAnswer {
		return nil, fmt.Errorf("%w: no answer for practice variant %d", domain.ErrPrecondition, v.Position)
	}

	note := &domain.Note{
		GUID:          uuid.NewString(),
		NoteType:      primary.NoteType,
		Role:          domain.RoleSpread,
		Content:       domain.ContentAwaitingGeneration,
		Prompt:        primary.Prompt,
		Context:       primary.Context,
		Settings:      primary.Settings,
		Index:         primary.Index,
		PracticeSet:   fieldset.Escape(fieldset.Clean(v.Text)),
		ReviewPrompts: ReviewSentinel + "\n" + primary.ReviewPrompts,
	}
	if v.Answer != "" {
		note.Answers = fieldset.Escape(fieldset.Clean(v.Answer))
	}
	return note, nil
}

// Spread creates one spread note per variant after the first and
// returns the ids of the notes it created. A failing variant does not
// stop the others; their errors are joined into the returned error.
func (s *Scheduler) Spread(ctx context.Context, primary *domain.Note, card *domain.Card, today int) ([]int64, error) {
	variants := fieldset.Pair(primary.PracticeSet, primary.Answers)
	offsets := Offsets(today, card.Due, len(variants))
	if len(offsets) == 0 {
		return nil, nil
	}

	var (
		created []int64
		errs    []error
	)
	for i, due := range offsets {
		v := variants[i+1]
		id, err := s.create(ctx, primary, card.DeckID, v, due)
		if err != nil {
			s.logger.Warn("spread_note_failed",
				zap.Int64("note_id", primary.ID),
				zap.Int("position", v.Position),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("spread variant %d of note %d: %w", v.Position, primary.ID, err))
			continue
		}
		created = append(created, id)
	}

	s.logger.Info("spread_notes_created",
		zap.Int64("note_id", primary.ID),
		zap.Int("today", today),
		zap.Int("primary_due", card.Due),
		zap.Ints("due_days", offsets),
		zap.Int("created", len(created)),
	)
	return created, errors.Join(errs...)
}

func (s *Scheduler) create(ctx context.Context, primary *domain.Note, deckID int64, v fieldset.Variant, due int) (int64, error) {
	note, err := BuildNote(primary, v)
	if err != nil {
		return 0, err
	}

	cardIDs, err := s.coll.AddNote(ctx, note, deckID)
	if err != nil {
		return 0, &domain.PersistenceError{NoteID: primary.ID, Op: "add spread for", Err: err}
	}

	for _, cardID := range cardIDs {
		c, err := s.coll.GetCard(ctx, cardID)
		if err != nil {
			return note.ID, fmt.Errorf("load spread card %d: %w", cardID, err)
		}
		c.MarkReviewDue(due)
		if err := s.coll.UpdateCard(ctx, c); err != nil {
			return note.ID, &domain.PersistenceError{NoteID: note.ID, Op: "schedule card of", Err: err}
		}
	}
	return note.ID, nil
}
