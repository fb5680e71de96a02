// Package web serves the host review screen and deck management as JSON
// over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/conorfennell/spreadcard/internal/batch"
	"github.com/conorfennell/spreadcard/internal/domain"
	"github.com/conorfennell/spreadcard/internal/review"
	"github.com/conorfennell/spreadcard/internal/storage"
	decksync "github.com/conorfennell/spreadcard/internal/sync"
)

type collection interface {
	DueCount(ctx context.Context) (int, error)
	NextDueCard(ctx context.Context) (*domain.Card, error)
	GetNote(ctx context.Context, id int64) (*domain.Note, error)
	GetAllSources(ctx context.Context) ([]storage.Source, error)
	DeleteSource(ctx context.Context, sourceID int64) error
}

type answerer interface {
	Answer(ctx context.Context, cardID int64, grade domain.Grade) (review.Outcome, error)
}

type batchRunner interface {
	Run(ctx context.Context) (batch.Report, error)
}

type sourceSyncer interface {
	AddSource(ctx context.Context, path string) (*storage.Source, error)
	RunSync(ctx context.Context) (decksync.Report, error)
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	// mu serializes requests that write to the collection. The review
	// state machine expects answer events one at a time.
	mu sync.Mutex

	db       collection
	reviewer answerer
	batch    batchRunner
	sources  sourceSyncer
	router   *http.ServeMux
	logger   *zap.Logger
}

// NewServer creates and configures a new server.
func NewServer(db collection, reviewer answerer, runner batchRunner, sources sourceSyncer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		db:       db,
		reviewer: reviewer,
		batch:    runner,
		sources:  sources,
		router:   http.NewServeMux(),
		logger:   logger,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /deck", s.handleGetDeck())
	s.router.HandleFunc("GET /review/next", s.handleGetNextReview())
	s.router.HandleFunc("POST /review/{id}", s.handlePostReview())
	s.router.HandleFunc("POST /generate", s.handlePostGenerate())

	s.router.HandleFunc("GET /sources", s.handleGetSources())
	s.router.HandleFunc("POST /sources", s.handlePostSource())
	s.router.HandleFunc("DELETE /sources/{id}", s.handleDeleteSource())
	s.router.HandleFunc("POST /sync", s.handlePostSync())
}

type cardView struct {
	CardID   int64             `json:"card_id"`
	NoteID   int64             `json:"note_id"`
	Due      int               `json:"due"`
	Role     string            `json:"role"`
	Content  string            `json:"content"`
	Tags     []string          `json:"tags"`
	Fields   map[string]string `json:"fields"`
	NoteType string            `json:"note_type"`
}

type outcomeView struct {
	Action   string  `json:"action"`
	NoteID   int64   `json:"note_id"`
	Spreads  []int64 `json:"spreads"`
	NewIndex int     `json:"new_index"`
	Error    string  `json:"error,omitempty"`
}

type sourceView struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	LastScanned string `json:"last_scanned,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response_encode_failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrMissingCredential), errors.Is(err, domain.ErrPrecondition):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request_failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handleGetDeck reports the number of due cards.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := s.db.DueCount(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"due_count":     count,
			"has_due_cards": count > 0,
		})
	}
}

// handleGetNextReview returns the next due card with its note.
func (s *Server) handleGetNextReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, err := s.db.NextDueCard(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if card == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		note, err := s.db.GetNote(r.Context(), card.NoteID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, cardView{
			CardID:   card.ID,
			NoteID:   note.ID,
			Due:      card.Due,
			Role:     note.Role.String(),
			Content:  note.Content.String(),
			Tags:     note.HostTags(),
			Fields:   note.FieldMap(),
			NoteType: note.NoteType,
		})
	}
}

// handlePostReview records an answer and returns what the answer did.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid card ID", http.StatusBadRequest)
			return
		}
		grade, err := domain.ParseGrade(r.PostFormValue("grade"))
		if err != nil {
			http.Error(w, "Invalid grade", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		out, err := s.reviewer.Answer(r.Context(), id, grade)
		s.mu.Unlock()
		view := outcomeView{
			Action:   out.Action.String(),
			NoteID:   out.NoteID,
			Spreads:  out.Spreads,
			NewIndex: out.NewIndex,
		}
		if err != nil {
			// A failed spread still leaves the answer recorded.
			if out.Action == review.ActionRearmAndSpread && !errors.Is(err, domain.ErrPersistence) {
				view.Error = err.Error()
				s.logger.Warn("spread_partially_failed", zap.Int64("card_id", id), zap.Error(err))
				s.writeJSON(w, http.StatusOK, view)
				return
			}
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, view)
	}
}

// handlePostGenerate runs the batch passes in the foreground.
func (s *Server) handlePostGenerate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		rep, err := s.batch.Run(r.Context())
		s.mu.Unlock()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"message":           "Done Generating!",
			"generated":         rep.Generated,
			"generation_failed": rep.GenFailed,
			"mobile_reviewed":   rep.Mobile,
			"mobile_failed":     rep.MobFailed,
		})
	}
}

func (s *Server) listSources(w http.ResponseWriter, r *http.Request, status int) {
	sources, err := s.db.GetAllSources(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]sourceView, 0, len(sources))
	for _, src := range sources {
		v := sourceView{ID: src.ID, Path: src.Path, Type: src.Type}
		if src.LastScanned.Valid {
			v.LastScanned = src.LastScanned.Time.UTC().Format("2006-01-02T15:04:05Z")
		}
		views = append(views, v)
	}
	s.writeJSON(w, status, views)
}

func (s *Server) handleGetSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.listSources(w, r, http.StatusOK)
	}
}

// handlePostSource adds a new source and returns the source list.
func (s *Server) handlePostSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.PostFormValue("path")
		if path == "" {
			http.Error(w, "Path cannot be empty", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		_, err := s.sources.AddSource(r.Context(), path)
		s.mu.Unlock()
		if err != nil {
			s.logger.Warn("source_add_failed", zap.String("path", path), zap.Error(err))
			http.Error(w, "Failed to add source", http.StatusBadRequest)
			return
		}
		s.listSources(w, r, http.StatusCreated)
	}
}

func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid source ID", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		err = s.db.DeleteSource(r.Context(), id)
		s.mu.Unlock()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.listSources(w, r, http.StatusOK)
	}
}

// handlePostSync runs a sync in the foreground and reports what changed.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		rep, err := s.sources.RunSync(r.Context())
		s.mu.Unlock()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		errs := make([]string, 0, len(rep.Errors))
		for _, e := range rep.Errors {
			errs = append(errs, e.Error())
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"sources": rep.Sources,
			"parsed":  rep.Parsed,
			"added":   rep.Added,
			"removed": rep.Removed,
			"errors":  errs,
		})
	}
}
