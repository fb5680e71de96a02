// Package review handles the "answer recorded" event for practice notes.
package review

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/conorfennell/spreadcard/internal/domain"
	"github.com/conorfennell/spreadcard/internal/fieldset"
	"github.com/conorfennell/spreadcard/internal/refresh"
	"github.com/conorfennell/spreadcard/internal/rotation"
)

// Action is what an answer does to a note.
type Action int

const (
	// ActionIgnore leaves cards outside the review queue and notes of other
	// types untouched.
	ActionIgnore Action = iota
	// ActionDelete removes a spread note and its cards.
	ActionDelete
	// ActionRearm queues the note for regeneration without spreading.
	ActionRearm
	// ActionRearmAndSpread queues a primary note for regeneration, spreads
	// its remaining variants and rotates its setting.
	ActionRearmAndSpread
)

func (a Action) String() string {
	switch a {
	case ActionDelete:
		return "delete"
	case ActionRearm:
		return "rearm"
	case ActionRearmAndSpread:
		return "rearm_and_spread"
	default:
		return "ignore"
	}
}

// Decide is the transition function. deleteAt is the lowest grade that
// deletes a spread note; it is always above Again.
func Decide(role domain.Role, grade domain.Grade, deleteAt domain.Grade) Action {
	if deleteAt <= domain.GradeAgain {
		deleteAt = domain.GradeHard
	}
	if role == domain.RoleSpread {
		if grade >= deleteAt {
			return ActionDelete
		}
		return ActionRearm
	}
	return ActionRearmAndSpread
}

type collection interface {
	Today(ctx context.Context) (int, error)
	GetCard(ctx context.Context, id int64) (*domain.Card, error)
	GetNote(ctx context.Context, id int64) (*domain.Note, error)
	UpdateNote(ctx context.Context, note *domain.Note) error
	RemoveNotes(ctx context.Context, ids ...int64) error
}

type spreader interface {
	Spread(ctx context.Context, primary *domain.Note, card *domain.Card, today int) ([]int64, error)
}

// Config tunes the state machine.
type Config struct {
	// NoteType is the host note type owned by this module.
	NoteType string
	// DeleteSpreadAt is the lowest grade that deletes a spread note.
	DeleteSpreadAt domain.Grade
}

// Outcome reports what HandleAnswer did.
type Outcome struct {
	Action   Action
	NoteID   int64
	Spreads  []int64
	NewIndex int
}

// Machine applies answers to practice notes. The host delivers answers
// one at a time, so a Machine is not safe for concurrent use.
type Machine struct {
	coll    collection
	spreads spreader
	cfg     Config
	logger  *zap.Logger
}

// NewMachine creates a Machine.
func NewMachine(coll collection, spreads spreader, cfg Config, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{coll: coll, spreads: spreads, cfg: cfg, logger: logger}
}

// HandleAnswer processes one recorded answer for cardID.
//
// Spread creation failures do not stop the note from being written back;
// they are returned after it is persisted, and spreads created before the
// failure stay in the collection.
func (m *Machine) HandleAnswer(ctx context.Context, cardID int64, grade domain.Grade) (Outcome, error) {
	card, err := m.coll.GetCard(ctx, cardID)
	if err != nil {
		return Outcome{}, fmt.Errorf("get card: %w", err)
	}
	note, err := m.coll.GetNote(ctx, card.NoteID)
	if err != nil {
		return Outcome{}, fmt.Errorf("get note: %w", err)
	}

	out := Outcome{NoteID: note.ID, NewIndex: note.Index}
	if card.Queue != domain.QueueReview || note.NoteType != m.cfg.NoteType {
		return out, nil
	}

	out.Action = Decide(note.Role, grade, m.cfg.DeleteSpreadAt)
	if out.Action == ActionDelete {
		if err := m.coll.RemoveNotes(ctx, note.ID); err != nil {
			return out, &domain.PersistenceError{NoteID: note.ID, Op: "remove spread", Err: err}
		}
		m.logger.Info("spread_note_deleted", zap.Int64("note_id", note.ID), zap.Stringer("grade", grade))
		return out, nil
	}

	refresh.Rearm(note)
	refresh.MarkRequires(note)

	var spreadErr error
	if out.Action == ActionRearmAndSpread {
		today, err := m.coll.Today(ctx)
		if err != nil {
			return out, fmt.Errorf("read today: %w", err)
		}
		out.Spreads, spreadErr = m.spreads.Spread(ctx, note, card, today)
		note.Index = rotation.Next(note.Index, len(fieldset.Parse(note.Settings)))
		out.NewIndex = note.Index
	}

	if err := m.coll.UpdateNote(ctx, note); err != nil {
		return out, &domain.PersistenceError{NoteID: note.ID, Op: "update", Err: err}
	}

	m.logger.Info("answer_handled",
		zap.Int64("card_id", cardID),
		zap.Int64("note_id", note.ID),
		zap.Stringer("grade", grade),
		zap.Stringer("action", out.Action),
		zap.Int("spreads", len(out.Spreads)),
		zap.Int("index", note.Index),
	)
	return out, spreadErr
}
