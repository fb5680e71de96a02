// Package refresh moves notes through the generation cycle and fills in
// generated practice content.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/conorfennell/spreadcard/internal/domain"
	"github.com/conorfennell/spreadcard/internal/fieldset"
	"github.com/conorfennell/spreadcard/internal/rotation"
)

// Rearm clears stale generated content. Calling it twice changes nothing.
func Rearm(n *domain.Note) {
	n.GeneratedPractice = ""
	if n.Content == domain.ContentPresent {
		n.Content = domain.ContentIdle
	}
}

// MarkRequires queues the note for generation.
func MarkRequires(n *domain.Note) {
	n.Content = domain.ContentAwaitingGeneration
}

// MarkGenerated stores content and takes the note out of the queue.
func MarkGenerated(n *domain.Note, content string) {
	n.GeneratedPractice = content
	n.Content = domain.ContentPresent
}

// BuildPrompt assembles the generation prompt: the note's prompt, the
// current setting line (empty without settings) and the first variant.
func BuildPrompt(n *domain.Note) (string, error) {
	practice := fieldset.Parse(n.PracticeSet)
	if len(practice) == 0 {
		return "", fmt.Errorf("%w: note %d has an empty practice set", domain.ErrPrecondition, n.ID)
	}
	settingLine := rotation.SettingLine(fieldset.Parse(n.Settings), n.Index)
	return strings.Join([]string{n.Prompt, settingLine, practice[0]}, "\n"), nil
}

// Generator produces practice content for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type collection interface {
	GetCard(ctx context.Context, id int64) (*domain.Card, error)
	GetNote(ctx context.Context, id int64) (*domain.Note, error)
	UpdateNote(ctx context.Context, note *domain.Note) error
}

// Refresher generates content for one card at a time.
type Refresher struct {
	coll   collection
	gen    Generator
	logger *zap.Logger
}

// NewRefresher creates a Refresher.
func NewRefresher(coll collection, gen Generator, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{coll: coll, gen: gen, logger: logger}
}

// ErrNoContent is returned when the generator answers with nothing.
var ErrNoContent = errors.New("generator returned no content")

// Refresh generates content for the card's note and persists it. On any
// failure the note keeps its requires state and is retried on the next
// pass.
func (r *Refresher) Refresh(ctx context.Context, cardID int64) error {
	card, err := r.coll.GetCard(ctx, cardID)
	if err != nil {
		return fmt.Errorf("get card: %w", err)
	}
	note, err := r.coll.GetNote(ctx, card.NoteID)
	if err != nil {
		return fmt.Errorf("get note: %w", err)
	}

	prompt, err := BuildPrompt(note)
	if err != nil {
		return err
	}

	content, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generate for note %d: %w", note.ID, err)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("note %d: %w", note.ID, ErrNoContent)
	}

	MarkGenerated(note, content)
	if err := r.coll.UpdateNote(ctx, note); err != nil {
		return &domain.PersistenceError{NoteID: note.ID, Op: "store generated content for", Err: err}
	}

	r.logger.Debug("practice_generated",
		zap.Int64("card_id", cardID),
		zap.Int64("note_id", note.ID),
		zap.Int("content_length", len(content)),
	)
	return nil
}
