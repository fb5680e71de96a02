package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/conorfennell/spreadcard/internal/domain"
)

// Source types.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// Source represents a deck source, either a local path or a Git URL.
type Source struct {
	ID          int64
	Path        string
	Type        string
	LastScanned sql.NullTime
}

// InsertSource inserts a new source path into the database and returns its ID.
func (db *DB) InsertSource(ctx context.Context, path, sourceType string) (int64, error) {
	res, err := db.exec(ctx, sq.Insert("sources").
		Columns("path", "type").
		Values(path, sourceType))
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

func (db *DB) querySources(ctx context.Context, q sq.SelectBuilder) ([]Source, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func selectSources() sq.SelectBuilder {
	return sq.Select("id", "path", "type", "last_scanned").From("sources")
}

// FindSourceByPath retrieves a source by its path, or nil if there is none.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (*Source, error) {
	sources, err := db.querySources(ctx, selectSources().Where(sq.Eq{"path": path}))
	if err != nil {
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	if len(sources) == 0 {
		return nil, nil // Source not found
	}
	return &sources[0], nil
}

// GetAllSources retrieves all stored sources.
func (db *DB) GetAllSources(ctx context.Context) ([]Source, error) {
	sources, err := db.querySources(ctx, selectSources().OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	return sources, nil
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64) error {
	_, err := db.exec(ctx, sq.Update("sources").
		Set("last_scanned", db.now()).
		Where(sq.Eq{"id": sourceID}))
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource forgets a source. Its notes stay in the collection and
// are no longer tied to any source.
func (db *DB) DeleteSource(ctx context.Context, sourceID int64) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE notes SET source_id = NULL WHERE source_id = ?", sourceID); err != nil {
			return fmt.Errorf("failed to detach notes of source ID %d: %w", sourceID, err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM sources WHERE id = ?", sourceID)
		if err != nil {
			return fmt.Errorf("failed to delete source ID %d: %w", sourceID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("source %d: %w", sourceID, domain.ErrNotFound)
		}
		return nil
	})
}
