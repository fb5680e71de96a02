package domain

// Queue is the host review-queue a card sits in.
type Queue int

const (
	QueueNew      Queue = 0
	QueueLearning Queue = 1
	QueueReview   Queue = 2
)

// CardType mirrors Queue for the card's long-term type.
type CardType int

const (
	CardTypeNew      CardType = 0
	CardTypeLearning CardType = 1
	CardTypeReview   CardType = 2
)

// Card is the host's scheduling record for a note.
// Due is a day number on the host's day counter, not wall-clock time.
type Card struct {
	ID     int64
	NoteID int64
	DeckID int64
	Due    int
	Queue  Queue
	Type   CardType

	// Host interval-algorithm state.
	Interval   int
	Stability  float64
	Difficulty float64
}

// MarkReviewDue puts the card in the review queue due on the given day.
func (c *Card) MarkReviewDue(day int) {
	c.Queue = QueueReview
	c.Type = CardTypeReview
	c.Due = day
}
