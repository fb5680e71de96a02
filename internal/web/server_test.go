package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/spreadcard/internal/batch"
	"github.com/conorfennell/spreadcard/internal/domain"
	"github.com/conorfennell/spreadcard/internal/reviewer"
	"github.com/conorfennell/spreadcard/internal/review"
	"github.com/conorfennell/spreadcard/internal/spread"
	"github.com/conorfennell/spreadcard/internal/storage"
	decksync "github.com/conorfennell/spreadcard/internal/sync"
)

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type fixture struct {
	db     *storage.DB
	server *Server
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	db, err := storage.Open(filepath.Join(t.TempDir(), "collection.db"), storage.WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	f.db = db

	machine := review.NewMachine(db, spread.NewScheduler(db, nil), review.Config{NoteType: storage.DefaultNoteType, DeleteSpreadAt: domain.GradeHard}, nil)
	gen := generatorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "generated for: " + prompt, nil
	})
	runner := batch.NewRunner(db, gen, machine, batch.Config{NoteType: storage.DefaultNoteType}, nil)
	syncer := decksync.New(db, decksync.Config{ReposDir: t.TempDir()}, nil)

	f.server = NewServer(db, reviewer.New(db, nil, machine, nil), runner, syncer, nil)
	return f
}

func (f *fixture) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	f.server.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestReviewFlow(t *testing.T) {
	f := newFixture(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deck.md"), []byte("P: Write a scenario\nS: 1] base 2] v1 3] v2\nT: 1] A 2] B\n"), 0o644))

	rr := f.do(t, http.MethodPost, "/sources", url.Values{"path": {dir}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	sources := decode[[]sourceView](t, rr)
	require.Len(t, sources, 1)

	rr = f.do(t, http.MethodPost, "/sync", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.EqualValues(t, 1, decode[map[string]any](t, rr)["added"])

	rr = f.do(t, http.MethodGet, "/deck", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rr)["due_count"])

	rr = f.do(t, http.MethodPost, "/generate", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	gen := decode[map[string]any](t, rr)
	assert.Equal(t, "Done Generating!", gen["message"])
	assert.EqualValues(t, 1, gen["generated"])

	rr = f.do(t, http.MethodGet, "/review/next", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	card := decode[cardView](t, rr)
	assert.Equal(t, "generated for: Write a scenario\nThe setting/theme should be: A\nbase", card.Fields[domain.FieldGeneratedPractice])
	assert.Equal(t, []string{domain.TagGenerated}, card.Tags)

	rr = f.do(t, http.MethodPost, "/review/"+strconv.FormatInt(card.CardID, 10), url.Values{"grade": {"good"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	out := decode[outcomeView](t, rr)
	assert.Equal(t, "rearm_and_spread", out.Action)
	assert.Len(t, out.Spreads, 2)
	assert.Equal(t, 1, out.NewIndex)

	note, err := f.db.GetNote(context.Background(), card.NoteID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContentAwaitingGeneration, note.Content)
	assert.Equal(t, "", note.GeneratedPractice)

	spreadCards, err := f.db.Search(context.Background(), "tag:spread")
	require.NoError(t, err)
	require.Len(t, spreadCards, 2)

	rr = f.do(t, http.MethodPost, "/review/"+strconv.FormatInt(spreadCards[0], 10), url.Values{"grade": {"4"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "delete", decode[outcomeView](t, rr).Action)

	spreadCards, err = f.db.Search(context.Background(), "tag:spread")
	require.NoError(t, err)
	assert.Len(t, spreadCards, 1)
}

func TestBadRequests(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/review/abc", url.Values{"grade": {"3"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPost, "/review/1", url.Values{"grade": {"9"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPost, "/review/42", url.Values{"grade": {"3"}})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, http.MethodPost, "/sources", url.Values{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPost, "/sources", url.Values{"path": {"https://h/../../x"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodGet, "/review/next", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(t, http.MethodDelete, "/sources/7", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, http.MethodGet, "/generate", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestConcurrentAnswersAreSerialized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note := &domain.Note{
		NoteType:          storage.DefaultNoteType,
		Role:              domain.RolePrimary,
		Content:           domain.ContentPresent,
		Prompt:            "Write a scenario",
		PracticeSet:       "1] base 2] v1 3] v2",
		Settings:          "1] A 2] B",
		Answers:           "1] a0 2] a1 3] a2",
		GeneratedPractice: "generated",
	}
	cardIDs, err := f.db.AddNote(ctx, note, 0)
	require.NoError(t, err)
	card, err := f.db.GetCard(ctx, cardIDs[0])
	require.NoError(t, err)
	card.MarkReviewDue(card.Due + 6)
	require.NoError(t, f.db.UpdateCard(ctx, card))

	target := "/review/" + strconv.FormatInt(card.ID, 10)
	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := range codes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = f.do(t, http.MethodPost, target, url.Values{"grade": {"good"}}).Code
		}()
	}
	wg.Wait()
	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)

	got, err := f.db.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Index, "each answer rotates the setting once")

	spreadCards, err := f.db.Search(ctx, "tag:spread")
	require.NoError(t, err)
	assert.Len(t, spreadCards, 4)
}
