// Package sync imports primary practice notes from deck sources and
// reconciles the collection with them.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/conorfennell/spreadcard/internal/domain"
	"github.com/conorfennell/spreadcard/internal/gitsource"
	"github.com/conorfennell/spreadcard/internal/knol"
	"github.com/conorfennell/spreadcard/internal/parser"
	"github.com/conorfennell/spreadcard/internal/storage"
)

type store interface {
	InsertSource(ctx context.Context, path, sourceType string) (int64, error)
	FindSourceByPath(ctx context.Context, path string) (*storage.Source, error)
	GetAllSources(ctx context.Context) ([]storage.Source, error)
	UpdateSourceLastScanned(ctx context.Context, sourceID int64) error
	DeckID(ctx context.Context, name string) (int64, error)
	FindNoteByGUID(ctx context.Context, guid string) (*domain.Note, error)
	NotesBySource(ctx context.Context, sourceID int64) ([]domain.Note, error)
	AddNote(ctx context.Context, note *domain.Note, deckID int64) ([]int64, error)
	RemoveNotes(ctx context.Context, ids ...int64) error
}

// Config tunes a Syncer.
type Config struct {
	// ReposDir holds local checkouts of git sources.
	ReposDir string
	// NoteType is the note type imported notes are created with.
	NoteType string
}

// Report summarizes a sync run. Errors holds per-file and per-note
// failures that did not stop the run.
type Report struct {
	Sources int
	Parsed  int
	Added   int
	Removed int
	Errors  []error
}

// Syncer reconciles registered sources with the collection.
type Syncer struct {
	db     store
	cfg    Config
	logger *zap.Logger
}

// New creates a Syncer.
func New(db store, cfg Config, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReposDir == "" {
		cfg.ReposDir = "repos"
	}
	if cfg.NoteType == "" {
		cfg.NoteType = storage.DefaultNoteType
	}
	return &Syncer{db: db, cfg: cfg, logger: logger}
}

// AddSource registers a local directory or a git repository URL.
func (s *Syncer) AddSource(ctx context.Context, path string) (*storage.Source, error) {
	sourceType := storage.SourceGit
	if gitsource.IsRemote(path) {
		if _, err := gitsource.LocalPath(s.cfg.ReposDir, path); err != nil {
			return nil, err
		}
	} else {
		sourceType = storage.SourceLocal
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", path, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("source %s is not a directory", path)
		}
		path = abs
	}

	existing, err := s.db.FindSourceByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	id, err := s.db.InsertSource(ctx, path, sourceType)
	if err != nil {
		return nil, err
	}
	s.logger.Info("source_added", zap.Int64("source_id", id), zap.String("type", sourceType), zap.String("path", path))
	return &storage.Source{ID: id, Path: path, Type: sourceType}, nil
}

// RunSync iterates over all sources and reconciles them. A source that
// cannot be fetched or walked is recorded in the report and skipped.
func (s *Syncer) RunSync(ctx context.Context) (Report, error) {
	var rep Report
	s.logger.Info("sync_started")

	sources, err := s.db.GetAllSources(ctx)
	if err != nil {
		return rep, fmt.Errorf("failed to get sources: %w", err)
	}
	if len(sources) == 0 {
		s.logger.Info("sync_no_sources")
		return rep, nil
	}
	deckID, err := s.db.DeckID(ctx, storage.DefaultDeck)
	if err != nil {
		return rep, err
	}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Sources++
		s.logger.Info("source_sync_started", zap.Int64("source_id", source.ID), zap.String("type", source.Type), zap.String("path", source.Path))

		dir := source.Path
		if source.Type == storage.SourceGit {
			dir, err = gitsource.LocalPath(s.cfg.ReposDir, source.Path)
			if err != nil {
				rep.Errors = append(rep.Errors, err)
				continue
			}
			if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
				rep.Errors = append(rep.Errors, fmt.Errorf("failed to create repos directory: %w", err))
				continue
			}
			if err := gitsource.Sync(ctx, source.Path, dir, s.logger); err != nil {
				rep.Errors = append(rep.Errors, err)
				continue
			}
		}

		if err := s.reconcile(ctx, source, dir, deckID, &rep); err != nil {
			rep.Errors = append(rep.Errors, err)
		}
	}

	s.logger.Info("sync_finished",
		zap.Int("sources", rep.Sources),
		zap.Int("parsed_notes", rep.Parsed),
		zap.Int("added", rep.Added),
		zap.Int("orphans_deleted", rep.Removed),
		zap.Int("errors", len(rep.Errors)),
	)
	return rep, nil
}

func (s *Syncer) reconcile(ctx context.Context, source storage.Source, dir string, deckID int64, rep *Report) error {
	found := make(map[string]bool)
	// Notes of a file that failed to parse are missing from found.
	parseFailed := false

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		notes, err := parser.ParseFile(path)
		if err != nil {
			s.recordError(rep, fmt.Errorf("parsing %s: %w", path, err))
			parseFailed = true
			return nil
		}
		for _, note := range notes {
			rep.Parsed++
			if err := s.importNote(ctx, note, source.ID, deckID, found, rep); err != nil {
				s.recordError(rep, fmt.Errorf("%s: %w", path, err))
			}
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("error walking directory %s: %w", dir, walkErr)
	}

	if parseFailed {
		s.logger.Warn("orphan_cleanup_skipped", zap.Int64("source_id", source.ID))
	} else if err := s.removeOrphans(ctx, source, found, rep); err != nil {
		return err
	}

	if err := s.db.UpdateSourceLastScanned(ctx, source.ID); err != nil {
		s.logger.Warn("source_last_scanned_failed", zap.Int64("source_id", source.ID), zap.Error(err))
	}
	return nil
}

func (s *Syncer) removeOrphans(ctx context.Context, source storage.Source, found map[string]bool, rep *Report) error {
	existing, err := s.db.NotesBySource(ctx, source.ID)
	if err != nil {
		return err
	}
	var orphans []int64
	for _, n := range existing {
		if !found[n.GUID] {
			orphans = append(orphans, n.ID)
		}
	}
	if len(orphans) > 0 {
		if err := s.db.RemoveNotes(ctx, orphans...); err != nil {
			s.recordError(rep, fmt.Errorf("failed to delete orphaned notes of source %d: %w", source.ID, err))
		} else {
			rep.Removed += len(orphans)
			s.logger.Info("orphans_deleted", zap.Int64("source_id", source.ID), zap.Int64s("note_ids", orphans))
		}
	}
	return nil
}

func (s *Syncer) importNote(ctx context.Context, note domain.Note, sourceID, deckID int64, found map[string]bool, rep *Report) error {
	guid := knol.Hash(note)
	if found[guid] {
		return nil
	}
	found[guid] = true

	existing, err := s.db.FindNoteByGUID(ctx, guid)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	note.GUID = guid
	note.NoteType = s.cfg.NoteType
	note.SourceID = sourceID
	note.Role = domain.RolePrimary
	note.Content = domain.ContentAwaitingGeneration
	note.Index = 0
	if _, err := s.db.AddNote(ctx, &note, deckID); err != nil {
		return fmt.Errorf("failed to insert note %s: %w", guid, err)
	}
	rep.Added++
	s.logger.Debug("note_imported", zap.Int64("note_id", note.ID), zap.String("guid", guid))
	return nil
}

func (s *Syncer) recordError(rep *Report, err error) {
	rep.Errors = append(rep.Errors, err)
	s.logger.Warn("sync_error", zap.Error(err))
}

// Err joins the report's errors, or returns nil.
func (r Report) Err() error {
	return errors.Join(r.Errors...)
}
