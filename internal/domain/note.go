package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Role separates long-lived primary notes from single-use spread clones.
type Role int

const (
	RolePrimary Role = iota
	RoleSpread
)

func (r Role) String() string {
	if r == RoleSpread {
		return "spread"
	}
	return "primary"
}

// ContentState tracks where a note is in the generation cycle.
type ContentState int

const (
	ContentIdle ContentState = iota
	ContentAwaitingGeneration
	ContentPresent
)

func (s ContentState) String() string {
	switch s {
	case ContentAwaitingGeneration:
		return "awaiting_generation"
	case ContentPresent:
		return "has_content"
	default:
		return "idle"
	}
}

// Field names of the practice note type as they appear on the host.
const (
	FieldPrompt            = "Prompt"
	FieldContext           = "Context"
	FieldPracticeSet       = "Recognition Practice Set"
	FieldSettings          = "Settings"
	FieldIndex             = "Index"
	FieldAnswers           = "Answers"
	FieldGeneratedPractice = "Generated Practice"
	FieldReviewPrompts     = "Review Prompts"
)

// PracticeFields is the field order of the practice note type.
var PracticeFields = []string{
	FieldPrompt,
	FieldContext,
	FieldPracticeSet,
	FieldSettings,
	FieldIndex,
	FieldAnswers,
	FieldGeneratedPractice,
	FieldReviewPrompts,
}

// Note is a host note viewed through the practice note type.
// Role and Content replace the host's state tags; Tags holds every other tag.
type Note struct {
	ID       int64
	GUID     string
	NoteType string
	SourceID int64

	Role    Role
	Content ContentState
	Tags    []string

	Prompt            string
	Context           string
	PracticeSet       string
	Settings          string
	Index             int
	Answers           string
	GeneratedPractice string
	ReviewPrompts     string

	// Extra keeps fields the practice type does not know about so that
	// writing a note back never drops them.
	Extra map[string]string
}

// FieldMap returns every field of the note keyed by host field name.
func (n *Note) FieldMap() map[string]string {
	m := make(map[string]string, len(PracticeFields)+len(n.Extra))
	for k, v := range n.Extra {
		m[k] = v
	}
	m[FieldPrompt] = n.Prompt
	m[FieldContext] = n.Context
	m[FieldPracticeSet] = n.PracticeSet
	m[FieldSettings] = n.Settings
	m[FieldIndex] = strconv.Itoa(n.Index)
	m[FieldAnswers] = n.Answers
	m[FieldGeneratedPractice] = n.GeneratedPractice
	m[FieldReviewPrompts] = n.ReviewPrompts
	return m
}

// SetFields loads host fields into the note. An empty Index reads as 0;
// anything else that is not an integer is a precondition violation.
func (n *Note) SetFields(fields map[string]string) error {
	n.Extra = nil
	for name, value := range fields {
		switch name {
		case FieldPrompt:
			n.Prompt = value
		case FieldContext:
			n.Context = value
		case FieldPracticeSet:
			n.PracticeSet = value
		case FieldSettings:
			n.Settings = value
		case FieldIndex:
			idx, err := parseIndex(value)
			if err != nil {
				return err
			}
			n.Index = idx
		case FieldAnswers:
			n.Answers = value
		case FieldGeneratedPractice:
			n.GeneratedPractice = value
		case FieldReviewPrompts:
			n.ReviewPrompts = value
		default:
			if n.Extra == nil {
				n.Extra = make(map[string]string)
			}
			n.Extra[name] = value
		}
	}
	return nil
}

func parseIndex(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	idx, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: index field %q is not an integer", ErrPrecondition, value)
	}
	return idx, nil
}
