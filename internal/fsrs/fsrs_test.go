package fsrs

import (
	"math"
	"testing"

	"github.com/conorfennell/spreadcard/internal/domain"
)

func TestCalculateNewStability(t *testing.T) {
	params := DefaultParams()

	// S' = 10 * (1 + 0.2 * 5^(-0.5) * 10^0.1 * (e^(4 * (1-0.9)) - 1))
	// S' = 10 * (1 + 0.112 * 0.4918) = 10.55
	expected := 10.55

	newStability := params.calculateNewStability(10, 5)
	if math.Abs(newStability-expected) > 0.01 {
		t.Errorf("Expected new stability to be around %.2f, but got %.2f", expected, newStability)
	}
}

func TestNextState(t *testing.T) {
	params := DefaultParams()
	initial := State{Stability: 10, Difficulty: 5}

	t.Run("Review with Again", func(t *testing.T) {
		next := params.NextState(initial, domain.GradeAgain)
		if next.Stability != 1 {
			t.Errorf("Expected stability to be reset to 1, but got %.2f", next.Stability)
		}
		if next.Difficulty <= initial.Difficulty {
			t.Errorf("Expected difficulty to increase, but got %.2f", next.Difficulty)
		}
	})

	t.Run("Review with Good", func(t *testing.T) {
		next := params.NextState(initial, domain.GradeGood)
		if next.Stability <= initial.Stability {
			t.Errorf("Expected stability to increase, but got %.2f", next.Stability)
		}
		if next.Difficulty != initial.Difficulty {
			t.Errorf("Expected difficulty to remain the same for 'Good', but got %.2f", next.Difficulty)
		}
	})

	t.Run("Review with Hard", func(t *testing.T) {
		next := params.NextState(initial, domain.GradeHard)
		if next.Difficulty <= initial.Difficulty {
			t.Errorf("Expected difficulty to increase for 'Hard', but got %.2f", next.Difficulty)
		}
	})

	t.Run("Review with Easy", func(t *testing.T) {
		good := params.NextState(initial, domain.GradeGood)
		easy := params.NextState(initial, domain.GradeEasy)
		if easy.Stability <= good.Stability {
			t.Errorf("Expected Easy to grow stability more than Good, but got %.2f <= %.2f", easy.Stability, good.Stability)
		}
	})
}

func TestInterval(t *testing.T) {
	testCases := []struct {
		stability float64
		expected  int
	}{
		{0, 1},
		{0.4, 1},
		{1.6, 2},
		{15.5, 16},
	}
	for _, tc := range testCases {
		if got := Interval(tc.stability); got != tc.expected {
			t.Errorf("Interval(%.1f): expected %d, but got %d", tc.stability, tc.expected, got)
		}
	}
}

func TestSchedule(t *testing.T) {
	params := DefaultParams()

	t.Run("Passing grade", func(t *testing.T) {
		card := &domain.Card{Stability: 5, Difficulty: 5, Queue: domain.QueueNew}
		params.Schedule(card, domain.GradeGood, 10)
		if card.Queue != domain.QueueReview || card.Type != domain.CardTypeReview {
			t.Errorf("Expected card in review queue, but got queue %d type %d", card.Queue, card.Type)
		}
		if card.Due != 10+card.Interval || card.Interval < 1 {
			t.Errorf("Expected due to be today plus interval, but got due %d interval %d", card.Due, card.Interval)
		}
	})

	t.Run("Again", func(t *testing.T) {
		card := &domain.Card{Stability: 5, Difficulty: 5, Queue: domain.QueueReview, Due: 10}
		params.Schedule(card, domain.GradeAgain, 10)
		if card.Queue != domain.QueueLearning || card.Due != 10 {
			t.Errorf("Expected card in learning queue due today, but got queue %d due %d", card.Queue, card.Due)
		}
	})
}
