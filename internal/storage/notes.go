package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/conorfennell/spreadcard/internal/domain"
)

const fieldSeparator = "\x1f"

const noteColumns = "n.id, n.guid, m.name, m.fields, n.flds, n.tags, n.source_id"

func encodeFields(fields []string, values map[string]string) string {
	parts := make([]string, len(fields))
	for i, name := range fields {
		parts[i] = values[name]
	}
	return strings.Join(parts, fieldSeparator)
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return " "
	}
	return " " + strings.Join(tags, " ") + " "
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*domain.Note, error) {
	var (
		n        domain.Note
		rawTypes string
		flds     string
		tags     string
		sourceID sql.NullInt64
	)
	if err := row.Scan(&n.ID, &n.GUID, &n.NoteType, &rawTypes, &flds, &tags, &sourceID); err != nil {
		return nil, err
	}
	fields, err := decodeFieldNames(rawTypes)
	if err != nil {
		return nil, err
	}

	values := strings.Split(flds, fieldSeparator)
	m := make(map[string]string, len(fields))
	for i, name := range fields {
		if i < len(values) {
			m[name] = values[i]
		} else {
			m[name] = ""
		}
	}
	if err := n.SetFields(m); err != nil {
		return nil, fmt.Errorf("note %d: %w", n.ID, err)
	}
	n.SetTags(strings.Fields(tags))
	n.SourceID = sourceID.Int64
	return &n, nil
}

func (db *DB) selectNotes() sq.SelectBuilder {
	return sq.Select(noteColumns).
		From("notes n").
		Join("notetypes m ON m.id = n.mid")
}

func (db *DB) queryNotes(ctx context.Context, q sq.SelectBuilder) ([]domain.Note, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// GetNote loads a note with its fields and state.
func (db *DB) GetNote(ctx context.Context, id int64) (*domain.Note, error) {
	notes, err := db.queryNotes(ctx, db.selectNotes().Where(sq.Eq{"n.id": id}))
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("note %d: %w", id, domain.ErrNotFound)
	}
	return &notes[0], nil
}

// FindNoteByGUID returns the note with guid, or nil if there is none.
func (db *DB) FindNoteByGUID(ctx context.Context, guid string) (*domain.Note, error) {
	notes, err := db.queryNotes(ctx, db.selectNotes().Where(sq.Eq{"n.guid": guid}))
	if err != nil {
		return nil, fmt.Errorf("failed to find note by guid %s: %w", guid, err)
	}
	if len(notes) == 0 {
		return nil, nil // Note not found
	}
	return &notes[0], nil
}

// NotesBySource returns every note imported from a source.
func (db *DB) NotesBySource(ctx context.Context, sourceID int64) ([]domain.Note, error) {
	notes, err := db.queryNotes(ctx, db.selectNotes().Where(sq.Eq{"n.source_id": sourceID}).OrderBy("n.id"))
	if err != nil {
		return nil, fmt.Errorf("failed to get notes for source ID %d: %w", sourceID, err)
	}
	return notes, nil
}

// AddNote inserts note with one new card in deckID (the default deck when
// zero) due today, and returns the card ids. note.ID is set on success.
func (db *DB) AddNote(ctx context.Context, note *domain.Note, deckID int64) ([]int64, error) {
	mid, fields, err := db.lookupNoteType(ctx, note.NoteType)
	if err != nil {
		return nil, err
	}
	if deckID == 0 {
		if deckID, err = db.DeckID(ctx, DefaultDeck); err != nil {
			return nil, err
		}
	}
	today, err := db.Today(ctx)
	if err != nil {
		return nil, err
	}
	if note.GUID == "" {
		note.GUID = uuid.NewString()
	}
	var sourceID sql.NullInt64
	if note.SourceID != 0 {
		sourceID = sql.NullInt64{Int64: note.SourceID, Valid: true}
	}

	var noteID, cardID int64
	err = db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO notes (guid, mid, flds, tags, source_id) VALUES (?, ?, ?, ?, ?)",
			note.GUID, mid, encodeFields(fields, note.FieldMap()), encodeTags(note.HostTags()), sourceID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert note %s: %w", note.GUID, err)
		}
		if noteID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get last insert ID for note %s: %w", note.GUID, err)
		}

		res, err = tx.ExecContext(ctx,
			"INSERT INTO cards (nid, did, ord, due, queue, type) VALUES (?, ?, 0, ?, ?, ?)",
			noteID, deckID, today, domain.QueueNew, domain.CardTypeNew,
		)
		if err != nil {
			return fmt.Errorf("failed to insert card for note %s: %w", note.GUID, err)
		}
		if cardID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get last insert ID for card of note %s: %w", note.GUID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	note.ID = noteID
	return []int64{cardID}, nil
}

// UpdateNote writes the note's fields, state and source back.
func (db *DB) UpdateNote(ctx context.Context, note *domain.Note) error {
	_, fields, err := db.lookupNoteType(ctx, note.NoteType)
	if err != nil {
		return err
	}
	res, err := db.exec(ctx, sq.Update("notes").
		Set("flds", encodeFields(fields, note.FieldMap())).
		Set("tags", encodeTags(note.HostTags())).
		Where(sq.Eq{"id": note.ID}))
	if err != nil {
		return fmt.Errorf("failed to update note %d: %w", note.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("note %d: %w", note.ID, domain.ErrNotFound)
	}
	return nil
}

// RemoveNotes deletes notes and their cards in one transaction.
func (db *DB) RemoveNotes(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	return db.inTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []sq.DeleteBuilder{
			sq.Delete("cards").Where(sq.Eq{"nid": ids}),
			sq.Delete("notes").Where(sq.Eq{"id": ids}),
		} {
			query, args, err := q.ToSql()
			if err != nil {
				return fmt.Errorf("failed to build query: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to remove notes %v: %w", ids, err)
			}
		}
		return nil
	})
}

func decodeFieldNames(raw string) ([]string, error) {
	var fields []string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("failed to decode note type fields: %w", err)
	}
	return fields, nil
}
