// Package fsrs is the host's interval algorithm. It turns a grade into the
// card's next memory state and due day.
package fsrs

import (
	"math"

	"github.com/conorfennell/spreadcard/internal/domain"
)

// Params holds the parameters for the FSRS algorithm.
type Params struct {
	A                float64 // scales the overall memory increase
	B                float64 // difficulty exponent
	C                float64 // stability exponent
	D                float64 // retention effect scaler
	DesiredRetention float64 // desired retention rate (e.g., 0.9 for 90%)
	// EasyBonus multiplies the new stability of Easy answers.
	EasyBonus float64
}

// DefaultParams provides a set of sensible default parameters to start with.
func DefaultParams() *Params {
	return &Params{
		A:                0.2,
		B:                0.5,
		C:                0.1,
		D:                4.0,
		DesiredRetention: 0.9,
		EasyBonus:        1.3,
	}
}

// State holds the memory state of a card.
type State struct {
	Stability  float64
	Difficulty float64
}

// NextState calculates the next stability and difficulty based on a review.
func (p *Params) NextState(current State, grade domain.Grade) State {
	if !grade.Passing() {
		// Forgotten: stability drops back to a day, difficulty rises.
		return State{
			Stability:  1,
			Difficulty: math.Min(10, current.Difficulty+0.5),
		}
	}

	stability := p.calculateNewStability(current.Stability, current.Difficulty)
	difficulty := current.Difficulty
	switch grade {
	case domain.GradeHard:
		difficulty = math.Min(10, difficulty+0.1)
	case domain.GradeEasy:
		stability *= p.EasyBonus
		difficulty = math.Max(1, difficulty-0.1)
	}
	return State{Stability: stability, Difficulty: difficulty}
}

// calculateNewStability applies the core FSRS formula for a successful review.
func (p *Params) calculateNewStability(stability, difficulty float64) float64 {
	// Formula: S' = S * (1 + a * D^(-b) * S^c * (e^(d * (1-R)) - 1))
	if stability < 1 {
		stability = 1
	}
	if difficulty < 1 {
		difficulty = 1
	}

	factor := p.A * math.Pow(difficulty, -p.B) * math.Pow(stability, p.C)
	exponent := p.D * (1 - p.DesiredRetention)
	multiplier := math.Exp(exponent) - 1

	return stability * (1 + factor*multiplier)
}

// Interval is the number of days until the next review, at least one.
func Interval(stability float64) int {
	days := int(math.Round(stability))
	if days < 1 {
		return 1
	}
	return days
}

// Schedule records a review of card on today. Passing grades move the
// card to the review queue due Interval days later; Again puts it in the
// learning queue due today.
func (p *Params) Schedule(card *domain.Card, grade domain.Grade, today int) {
	next := p.NextState(State{Stability: card.Stability, Difficulty: card.Difficulty}, grade)
	card.Stability = next.Stability
	card.Difficulty = next.Difficulty

	if !grade.Passing() {
		card.Queue = domain.QueueLearning
		card.Type = domain.CardTypeLearning
		card.Interval = 0
		card.Due = today
		return
	}
	card.Interval = Interval(next.Stability)
	card.MarkReviewDue(today + card.Interval)
}
