package fieldset

// Variant is one practice-set entry together with its answer.
//
// Answers line up with the practice set by position: the variant at
// position i takes answer i. Position 0 belongs to the primary card.
type Variant struct {
	Position int
	Text     string
	Answer   string
	// MissingAnswer is set when the note has answers but none at this
	// position. A note without any answers leaves it false.
	MissingAnswer bool
}

// Pair parses the practice set and answer fields into variants.
func Pair(practiceSet, answers string) []Variant {
	texts := Parse(practiceSet)
	ans := Parse(answers)

	variants := make([]Variant, len(texts))
	for i, text := range texts {
		v := Variant{Position: i, Text: text}
		switch {
		case len(ans) == 0:
		case i < len(ans):
			v.Answer = ans[i]
		default:
			v.MissingAnswer = true
		}
		variants[i] = v
	}
	return variants
}
