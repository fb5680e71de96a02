// Package fieldset reads and writes the numbered list fields of practice
// notes: "1] first 2] second 3] third".
//
// Entries are separated by a run of digits followed by "]". A literal "]"
// that follows a digit inside an entry is written as "&#93;" so it cannot
// be mistaken for a marker; Parse turns it back into "]".
//
// Parsing is best-effort and never fails: malformed text simply yields
// fewer or oddly split entries.
package fieldset

import (
	"fmt"
	"regexp"
	"strings"
)

const escapedBracket = "&#93;"

var (
	marker       = regexp.MustCompile(`\d+\]`)
	digitBracket = regexp.MustCompile(`(\d)\]`)
)

// Parse splits text on entry markers, trims each entry and drops empty ones.
func Parse(text string) []string {
	var entries []string
	for _, part := range marker.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		entries = append(entries, strings.ReplaceAll(part, escapedBracket, "]"))
	}
	return entries
}

// Escape protects a single entry so that Parse reads it back whole.
func Escape(entry string) string {
	return digitBracket.ReplaceAllString(entry, "${1}"+escapedBracket)
}

// Join numbers entries from 1 and puts each on its own line.
func Join(entries []string) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d] %s", i+1, Escape(e))
	}
	return b.String()
}

// Clean strips the HTML artifacts the host editor leaves behind:
// non-breaking-space entities and one trailing double line break.
func Clean(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "&nbsp;", ""))
	return strings.TrimSuffix(s, "<br><br>")
}
