package reviewer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/spreadcard/internal/domain"
	"github.com/conorfennell/spreadcard/internal/fsrs"
	"github.com/conorfennell/spreadcard/internal/hosttest"
	"github.com/conorfennell/spreadcard/internal/review"
	"github.com/conorfennell/spreadcard/internal/spread"
)

func newReviewer(coll *hosttest.Collection) *Reviewer {
	machine := review.NewMachine(coll, spread.NewScheduler(coll, nil), review.Config{NoteType: "GPT", DeleteSpreadAt: domain.GradeHard}, nil)
	return New(coll, nil, machine, nil)
}

func TestAnswerSchedulesBeforeHook(t *testing.T) {
	coll := hosttest.New(10)
	noteID, cardID := coll.Put(&domain.Note{
		NoteType:    "GPT",
		Content:     domain.ContentPresent,
		PracticeSet: "1] base 2] v1 3] v2",
		Settings:    "1] A 2] B",
	}, domain.Card{Due: 10, Queue: domain.QueueReview, Stability: 20, Difficulty: 5})

	out, err := newReviewer(coll).Answer(context.Background(), cardID, domain.GradeGood)
	require.NoError(t, err)
	assert.Equal(t, review.ActionRearmAndSpread, out.Action)

	card := coll.Card(cardID)
	interval := fsrs.Interval(fsrs.DefaultParams().NextState(fsrs.State{Stability: 20, Difficulty: 5}, domain.GradeGood).Stability)
	assert.Equal(t, 10+interval, card.Due)

	// Spreads land between today and the rescheduled due day.
	require.Len(t, out.Spreads, 2)
	for _, id := range out.Spreads {
		c := coll.CardsOfNote(id)[0]
		assert.Greater(t, c.Due, 10)
		assert.Less(t, c.Due, card.Due)
	}
	assert.Equal(t, 1, coll.Note(noteID).Index)
}

func TestAnswerAgainLeavesReviewQueue(t *testing.T) {
	coll := hosttest.New(10)
	noteID, cardID := coll.Put(&domain.Note{
		NoteType:          "GPT",
		Content:           domain.ContentPresent,
		PracticeSet:       "1] base",
		GeneratedPractice: "keep",
	}, domain.Card{Due: 10, Queue: domain.QueueReview, Stability: 20, Difficulty: 5})

	out, err := newReviewer(coll).Answer(context.Background(), cardID, domain.GradeAgain)
	require.NoError(t, err)
	assert.Equal(t, review.ActionIgnore, out.Action)
	assert.Equal(t, domain.QueueLearning, coll.Card(cardID).Queue)
	assert.Equal(t, "keep", coll.Note(noteID).GeneratedPractice)
}

func TestAnswerRejectsInvalidGrade(t *testing.T) {
	coll := hosttest.New(10)
	_, cardID := coll.Put(&domain.Note{NoteType: "GPT"}, domain.Card{Due: 10, Queue: domain.QueueReview})

	_, err := newReviewer(coll).Answer(context.Background(), cardID, domain.Grade(7))
	assert.Error(t, err)
	assert.Zero(t, coll.Calls["UpdateCard"])
}
