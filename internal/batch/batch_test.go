package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/spreadcard/internal/domain"
	"github.com/conorfennell/spreadcard/internal/hosttest"
	"github.com/conorfennell/spreadcard/internal/refresh"
	"github.com/conorfennell/spreadcard/internal/review"
	"github.com/conorfennell/spreadcard/internal/spread"
)

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func newRunner(coll *hosttest.Collection, gen generatorFunc) *Runner {
	machine := review.NewMachine(coll, spread.NewScheduler(coll, nil), review.Config{NoteType: "GPT", DeleteSpreadAt: domain.GradeHard}, nil)
	var g refresh.Generator
	if gen != nil {
		g = gen
	}
	return NewRunner(coll, g, machine, Config{NoteType: "GPT"}, nil)
}

func note(content domain.ContentState, practice string) *domain.Note {
	return &domain.Note{NoteType: "GPT", Content: content, Prompt: "P", PracticeSet: practice}
}

func TestRunMissingCredential(t *testing.T) {
	coll := hosttest.New(10)
	coll.Put(note(domain.ContentAwaitingGeneration, "1] base"), domain.Card{Due: 10, Queue: domain.QueueReview})

	_, err := newRunner(coll, nil).Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
	assert.Empty(t, coll.Calls)
}

func TestRunGenerationPass(t *testing.T) {
	coll := hosttest.New(10)
	dueToday, _ := coll.Put(note(domain.ContentAwaitingGeneration, "1] today"), domain.Card{Due: 10, Queue: domain.QueueReview})
	overdue, _ := coll.Put(note(domain.ContentAwaitingGeneration, "1] overdue"), domain.Card{Due: 4, Queue: domain.QueueReview})
	tomorrow, _ := coll.Put(note(domain.ContentAwaitingGeneration, "1] tomorrow"), domain.Card{Due: 11, Queue: domain.QueueReview})
	later, _ := coll.Put(note(domain.ContentAwaitingGeneration, "1] later"), domain.Card{Due: 12, Queue: domain.QueueReview})
	other := note(domain.ContentAwaitingGeneration, "1] other")
	other.NoteType = "Basic"
	otherID, _ := coll.Put(other, domain.Card{Due: 10, Queue: domain.QueueReview})

	var prompts []string
	gen := generatorFunc(func(ctx context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return "generated: " + prompt, nil
	})

	rep, err := newRunner(coll, gen).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Generated)
	assert.Equal(t, []string{"P\n\noverdue", "P\n\ntoday", "P\n\ntomorrow"}, prompts)

	for _, id := range []int64{dueToday, overdue, tomorrow} {
		assert.Equal(t, domain.ContentPresent, coll.Note(id).Content)
	}
	assert.Equal(t, domain.ContentAwaitingGeneration, coll.Note(later).Content)
	assert.Equal(t, domain.ContentAwaitingGeneration, coll.Note(otherID).Content)
}

func TestRunIsolatesFailures(t *testing.T) {
	coll := hosttest.New(10)
	bad, _ := coll.Put(note(domain.ContentAwaitingGeneration, "1] bad"), domain.Card{Due: 9, Queue: domain.QueueReview})
	empty, _ := coll.Put(note(domain.ContentAwaitingGeneration, ""), domain.Card{Due: 9, Queue: domain.QueueReview})
	good, _ := coll.Put(note(domain.ContentAwaitingGeneration, "1] good"), domain.Card{Due: 10, Queue: domain.QueueReview})

	gen := generatorFunc(func(ctx context.Context, prompt string) (string, error) {
		if prompt == "P\n\nbad" {
			return "", errors.Join(domain.ErrTransport, errors.New("connection reset"))
		}
		return "ok", nil
	})

	rep, err := newRunner(coll, gen).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Generated: 1, GenFailed: 2}, rep)
	assert.Equal(t, domain.ContentAwaitingGeneration, coll.Note(bad).Content)
	assert.Equal(t, domain.ContentAwaitingGeneration, coll.Note(empty).Content)
	assert.Equal(t, "ok", coll.Note(good).GeneratedPractice)
}

func TestRunMobilePass(t *testing.T) {
	coll := hosttest.New(10)

	primary := note(domain.ContentPresent, "1] base 2] v1")
	primary.Settings = "1] A 2] B"
	primary.GeneratedPractice = "old"
	primaryID, _ := coll.Put(primary, domain.Card{Due: 14, Queue: domain.QueueReview})

	spreadNote := note(domain.ContentPresent, "v1")
	spreadNote.Role = domain.RoleSpread
	spreadID, _ := coll.Put(spreadNote, domain.Card{Due: 12, Queue: domain.QueueReview})

	dueSoon, _ := coll.Put(note(domain.ContentPresent, "1] soon"), domain.Card{Due: 11, Queue: domain.QueueReview})

	gen := generatorFunc(func(ctx context.Context, prompt string) (string, error) {
		t.Fatalf("unexpected generation for %q", prompt)
		return "", nil
	})

	rep, err := newRunner(coll, gen).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Mobile)
	assert.Zero(t, rep.MobFailed)

	p := coll.Note(primaryID)
	assert.Equal(t, domain.ContentAwaitingGeneration, p.Content)
	assert.Equal(t, "", p.GeneratedPractice)
	assert.Equal(t, 1, p.Index)
	assert.Nil(t, coll.Note(spreadID))
	assert.Equal(t, domain.ContentPresent, coll.Note(dueSoon).Content)
	assert.Equal(t, 1, coll.Calls["AddNote"], "one spread for the second variant")
}

func TestRunMobileNeedsNoCredential(t *testing.T) {
	coll := hosttest.New(10)
	id, _ := coll.Put(note(domain.ContentPresent, "1] base"), domain.Card{Due: 20, Queue: domain.QueueReview})

	rep, err := newRunner(coll, nil).RunMobile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Mobile)
	assert.Equal(t, domain.ContentAwaitingGeneration, coll.Note(id).Content)
}
