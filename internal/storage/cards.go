package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/conorfennell/spreadcard/internal/domain"
)

const cardColumns = "c.id, c.nid, c.did, c.due, c.queue, c.type, c.ivl, c.stability, c.difficulty"

func scanCard(row rowScanner) (*domain.Card, error) {
	var c domain.Card
	err := row.Scan(&c.ID, &c.NoteID, &c.DeckID, &c.Due, &c.Queue, &c.Type, &c.Interval, &c.Stability, &c.Difficulty)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCard loads a card's scheduling record.
func (db *DB) GetCard(ctx context.Context, id int64) (*domain.Card, error) {
	query, args, err := sq.Select(cardColumns).From("cards c").Where(sq.Eq{"c.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	c, err := scanCard(db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("card %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card %d: %w", id, err)
	}
	return c, nil
}

// UpdateCard flushes a card's scheduling fields.
func (db *DB) UpdateCard(ctx context.Context, card *domain.Card) error {
	res, err := db.exec(ctx, sq.Update("cards").
		Set("did", card.DeckID).
		Set("due", card.Due).
		Set("queue", int(card.Queue)).
		Set("type", int(card.Type)).
		Set("ivl", card.Interval).
		Set("stability", card.Stability).
		Set("difficulty", card.Difficulty).
		Where(sq.Eq{"id": card.ID}))
	if err != nil {
		return fmt.Errorf("failed to update card %d: %w", card.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("card %d: %w", card.ID, domain.ErrNotFound)
	}
	return nil
}

func dueCondition(f domain.DueFilter, today int) (sq.Sqlizer, error) {
	day := today + f.Days
	switch f.Op {
	case domain.OpLT:
		return sq.Lt{"c.due": day}, nil
	case domain.OpLE:
		return sq.LtOrEq{"c.due": day}, nil
	case domain.OpEQ:
		return sq.Eq{"c.due": day}, nil
	case domain.OpGE:
		return sq.GtOrEq{"c.due": day}, nil
	case domain.OpGT:
		return sq.Gt{"c.due": day}, nil
	}
	return nil, fmt.Errorf("unknown due operator %q", f.Op)
}

// FindCards returns the ids of cards matching q, earliest due first.
func (db *DB) FindCards(ctx context.Context, q domain.CardQuery) ([]int64, error) {
	today, err := db.Today(ctx)
	if err != nil {
		return nil, err
	}

	sel := sq.Select("c.id").
		From("cards c").
		Join("notes n ON n.id = c.nid").
		Join("notetypes m ON m.id = n.mid").
		OrderBy("c.due", "c.id")
	if q.NoteType != "" {
		sel = sel.Where("m.name = ? COLLATE NOCASE", q.NoteType)
	}
	for _, tag := range q.Tags {
		// Tags are stored space-padded, so a whole-word match needs no wildcards.
		sel = sel.Where(sq.Expr("instr(lower(n.tags), ?) > 0", " "+strings.ToLower(tag)+" "))
	}
	for _, f := range q.Due {
		cond, err := dueCondition(f, today)
		if err != nil {
			return nil, err
		}
		sel = sel.Where(cond)
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find cards: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan card id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Search runs an Anki-style search string, e.g. "tag:requires prop:due<=1".
func (db *DB) Search(ctx context.Context, search string) ([]int64, error) {
	q, err := ParseSearch(search)
	if err != nil {
		return nil, err
	}
	return db.FindCards(ctx, q)
}

// DueCount returns how many cards are due today or overdue.
func (db *DB) DueCount(ctx context.Context) (int, error) {
	today, err := db.Today(ctx)
	if err != nil {
		return 0, err
	}
	query, args, err := sq.Select("COUNT(*)").From("cards c").Where(sq.LtOrEq{"c.due": today}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}
	var n int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count due cards: %w", err)
	}
	return n, nil
}

// NextDueCard returns the earliest due card, or nil when nothing is due.
func (db *DB) NextDueCard(ctx context.Context) (*domain.Card, error) {
	today, err := db.Today(ctx)
	if err != nil {
		return nil, err
	}
	query, args, err := sq.Select(cardColumns).
		From("cards c").
		Where(sq.LtOrEq{"c.due": today}).
		OrderBy("c.due", "c.id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	c, err := scanCard(db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next due card: %w", err)
	}
	return c, nil
}
