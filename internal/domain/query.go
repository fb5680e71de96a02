package domain

// Comparison operators for due-day filters.
type Op string

const (
	OpLT Op = "<"
	OpLE Op = "<="
	OpEQ Op = "="
	OpGE Op = ">="
	OpGT Op = ">"
)

// DueFilter compares a card's due day against today + Days.
type DueFilter struct {
	Op   Op
	Days int
}

// CardQuery selects cards by note type, tags and due day. All conditions
// must hold; zero values mean "any".
type CardQuery struct {
	NoteType string
	Tags     []string
	Due      []DueFilter
}
