// Package knol derives a stable identity for authored practice notes from
// their content.
package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/spreadcard/internal/domain"
)

// Normalize concatenates the note's authored fields after cleaning each
// part. It trims whitespace, lowercases, and normalizes line endings for
// each field before joining them.
func Normalize(note domain.Note) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		p = strings.TrimSpace(p)
		return p
	}

	parts := []string{
		normalizePart(note.Prompt),
		normalizePart(note.PracticeSet),
		normalizePart(note.Settings),
		normalizePart(note.Answers),
		normalizePart(note.Context),
		normalizePart(note.ReviewPrompts),
	}
	// Newlines keep adjacent fields from running together.
	return strings.Join(parts, "\n")
}

// Hash takes a note, normalizes it, and returns its SHA-256 hash as a hex
// string. Generated content, Index and state do not contribute.
func Hash(note domain.Note) string {
	normalized := Normalize(note)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
