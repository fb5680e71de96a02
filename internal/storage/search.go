package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conorfennell/spreadcard/internal/domain"
)

// Longer operators first so "<=" is not read as "<".
var dueOps = []domain.Op{domain.OpLE, domain.OpGE, domain.OpLT, domain.OpGT, domain.OpEQ}

// ParseSearch parses whitespace-separated search terms:
//
//	tag:NAME        note carries the tag
//	note:NAME       note is of the named type
//	prop:due<op>N   card is due relative to today, op one of < <= = >= >
func ParseSearch(search string) (domain.CardQuery, error) {
	var q domain.CardQuery
	for _, term := range strings.Fields(search) {
		key, value, ok := strings.Cut(term, ":")
		if !ok || value == "" {
			return q, fmt.Errorf("unsupported search term %q", term)
		}
		switch strings.ToLower(key) {
		case "tag":
			q.Tags = append(q.Tags, value)
		case "note":
			q.NoteType = value
		case "prop":
			f, err := parseDue(value)
			if err != nil {
				return q, fmt.Errorf("search term %q: %w", term, err)
			}
			q.Due = append(q.Due, f)
		default:
			return q, fmt.Errorf("unsupported search term %q", term)
		}
	}
	return q, nil
}

func parseDue(prop string) (domain.DueFilter, error) {
	rest, ok := strings.CutPrefix(strings.ToLower(prop), "due")
	if !ok {
		return domain.DueFilter{}, fmt.Errorf("unsupported property %q", prop)
	}
	for _, op := range dueOps {
		num, ok := strings.CutPrefix(rest, string(op))
		if !ok {
			continue
		}
		days, err := strconv.Atoi(num)
		if err != nil {
			return domain.DueFilter{}, fmt.Errorf("due days %q is not an integer", num)
		}
		return domain.DueFilter{Op: op, Days: days}, nil
	}
	return domain.DueFilter{}, fmt.Errorf("missing comparison in %q", prop)
}
