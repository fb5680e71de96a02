// Package hosttest provides an in-memory host collection for tests.
package hosttest

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/conorfennell/spreadcard/internal/domain"
)

// Collection keeps notes and cards in maps and copies them in and out so
// tests only observe what was explicitly written back.
type Collection struct {
	TodayDay int

	// Failure hooks; a non-nil return value is returned by the call.
	FailAddNote    func(note *domain.Note) error
	FailUpdateNote func(note *domain.Note) error
	FailUpdateCard func(card *domain.Card) error
	FailRemove     func(ids []int64) error

	notes      map[int64]*domain.Note
	cards      map[int64]*domain.Card
	nextNoteID int64
	nextCardID int64

	// Calls counts every mutating call by method name.
	Calls map[string]int
}

// New creates an empty collection whose day counter reads today.
func New(today int) *Collection {
	return &Collection{
		TodayDay: today,
		notes:    make(map[int64]*domain.Note),
		cards:    make(map[int64]*domain.Card),
		Calls:    make(map[string]int),
	}
}

// Put seeds a note and one card and returns their ids.
func (c *Collection) Put(note *domain.Note, card domain.Card) (int64, int64) {
	c.nextNoteID++
	note.ID = c.nextNoteID
	c.notes[note.ID] = cloneNote(note)

	c.nextCardID++
	card.ID = c.nextCardID
	card.NoteID = note.ID
	c.cards[card.ID] = &card
	return note.ID, card.ID
}

// Note returns a copy of the stored note, or nil.
func (c *Collection) Note(id int64) *domain.Note {
	n, ok := c.notes[id]
	if !ok {
		return nil
	}
	return cloneNote(n)
}

// Card returns a copy of the stored card, or nil.
func (c *Collection) Card(id int64) *domain.Card {
	card, ok := c.cards[id]
	if !ok {
		return nil
	}
	cp := *card
	return &cp
}

// NoteIDs lists stored note ids in ascending order.
func (c *Collection) NoteIDs() []int64 {
	ids := slices.Collect(maps.Keys(c.notes))
	slices.Sort(ids)
	return ids
}

// CardsOfNote lists copies of the cards belonging to a note.
func (c *Collection) CardsOfNote(noteID int64) []domain.Card {
	var out []domain.Card
	for _, card := range c.cards {
		if card.NoteID == noteID {
			out = append(out, *card)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Collection) Today(ctx context.Context) (int, error) {
	return c.TodayDay, nil
}

func (c *Collection) GetCard(ctx context.Context, id int64) (*domain.Card, error) {
	card := c.Card(id)
	if card == nil {
		return nil, fmt.Errorf("card %d: %w", id, domain.ErrNotFound)
	}
	return card, nil
}

func (c *Collection) GetNote(ctx context.Context, id int64) (*domain.Note, error) {
	n := c.Note(id)
	if n == nil {
		return nil, fmt.Errorf("note %d: %w", id, domain.ErrNotFound)
	}
	return n, nil
}

func (c *Collection) AddNote(ctx context.Context, note *domain.Note, deckID int64) ([]int64, error) {
	c.Calls["AddNote"]++
	if c.FailAddNote != nil {
		if err := c.FailAddNote(note); err != nil {
			return nil, err
		}
	}
	_, cardID := c.Put(note, domain.Card{DeckID: deckID, Due: c.TodayDay})
	return []int64{cardID}, nil
}

func (c *Collection) UpdateNote(ctx context.Context, note *domain.Note) error {
	c.Calls["UpdateNote"]++
	if c.FailUpdateNote != nil {
		if err := c.FailUpdateNote(note); err != nil {
			return err
		}
	}
	if _, ok := c.notes[note.ID]; !ok {
		return fmt.Errorf("note %d: %w", note.ID, domain.ErrNotFound)
	}
	c.notes[note.ID] = cloneNote(note)
	return nil
}

func (c *Collection) UpdateCard(ctx context.Context, card *domain.Card) error {
	c.Calls["UpdateCard"]++
	if c.FailUpdateCard != nil {
		if err := c.FailUpdateCard(card); err != nil {
			return err
		}
	}
	if _, ok := c.cards[card.ID]; !ok {
		return fmt.Errorf("card %d: %w", card.ID, domain.ErrNotFound)
	}
	cp := *card
	c.cards[card.ID] = &cp
	return nil
}

func (c *Collection) RemoveNotes(ctx context.Context, ids ...int64) error {
	c.Calls["RemoveNotes"]++
	if c.FailRemove != nil {
		if err := c.FailRemove(ids); err != nil {
			return err
		}
	}
	for _, id := range ids {
		delete(c.notes, id)
		for cardID, card := range c.cards {
			if card.NoteID == id {
				delete(c.cards, cardID)
			}
		}
	}
	return nil
}

// FindCards evaluates q the same way the SQLite collection does.
func (c *Collection) FindCards(ctx context.Context, q domain.CardQuery) ([]int64, error) {
	var matched []*domain.Card
	for _, card := range c.cards {
		n := c.notes[card.NoteID]
		if n == nil {
			continue
		}
		if q.NoteType != "" && n.NoteType != q.NoteType {
			continue
		}
		if !hasAllTags(n, q.Tags) || !dueMatches(card.Due-c.TodayDay, q.Due) {
			continue
		}
		matched = append(matched, card)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Due != matched[j].Due {
			return matched[i].Due < matched[j].Due
		}
		return matched[i].ID < matched[j].ID
	})
	ids := make([]int64, len(matched))
	for i, card := range matched {
		ids[i] = card.ID
	}
	return ids, nil
}

func hasAllTags(n *domain.Note, tags []string) bool {
	for _, tag := range tags {
		if !n.HasTag(tag) {
			return false
		}
	}
	return true
}

func dueMatches(rel int, filters []domain.DueFilter) bool {
	for _, f := range filters {
		var ok bool
		switch f.Op {
		case domain.OpLT:
			ok = rel < f.Days
		case domain.OpLE:
			ok = rel <= f.Days
		case domain.OpEQ:
			ok = rel == f.Days
		case domain.OpGE:
			ok = rel >= f.Days
		case domain.OpGT:
			ok = rel > f.Days
		}
		if !ok {
			return false
		}
	}
	return true
}

func cloneNote(n *domain.Note) *domain.Note {
	cp := *n
	cp.Tags = slices.Clone(n.Tags)
	cp.Extra = maps.Clone(n.Extra)
	return &cp
}
