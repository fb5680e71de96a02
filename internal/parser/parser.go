// Package parser reads practice notes authored in markdown files.
//
// A note starts with a "P:" line and runs until the next "P:" line or a
// "---" separator:
//
//	P: Write a short scenario practising the past perfect.
//	S: 1] base 2] v1 3] v2
//	T: 1] at the airport 2] in a kitchen
//	A: 1] a0 2] a1 3] a2
//	C: grammar
//	R: check tense agreement
//	---
//
// Values may continue over several lines until the next prefix.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/spreadcard/internal/domain"
)

const separator = "---"

type field int

const (
	none field = iota
	prompt
	practiceSet
	settings
	answers
	context
	reviewPrompts
)

var prefixes = []struct {
	prefix string
	field  field
}{
	{"P:", prompt},
	{"S:", practiceSet},
	{"T:", settings},
	{"A:", answers},
	{"C:", context},
	{"R:", reviewPrompts},
}

// ParseFile reads a file from the given path and extracts all notes.
func ParseFile(path string) ([]domain.Note, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all notes. Text outside a
// note and notes without a prompt are skipped.
func Parse(r io.Reader) ([]domain.Note, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		notes   []domain.Note
		current domain.Note
		block   []string
		state   = none
	)

	flushBlock := func() {
		if state != none && len(block) > 0 {
			set(&current, state, strings.TrimSpace(strings.Join(block, "\n")))
		}
		block = nil
	}
	finishNote := func() {
		flushBlock()
		if current.Prompt != "" {
			notes = append(notes, current)
		}
		current = domain.Note{}
		state = none
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.TrimSpace(line) == separator {
			finishNote()
			continue
		}

		f, rest, ok := matchPrefix(line)
		if !ok {
			if state != none {
				block = append(block, line)
			}
			continue
		}

		if f == prompt && state != none {
			// A new prompt always starts a new note.
			finishNote()
		} else {
			flushBlock()
		}
		state = f
		block = append(block, rest)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	finishNote()
	return notes, nil
}

func matchPrefix(line string) (field, string, bool) {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(line, p.prefix); ok {
			return p.field, strings.TrimPrefix(rest, " "), true
		}
	}
	return none, "", false
}

func set(n *domain.Note, f field, value string) {
	switch f {
	case prompt:
		n.Prompt = value
	case practiceSet:
		n.PracticeSet = value
	case settings:
		n.Settings = value
	case answers:
		n.Answers = value
	case context:
		n.Context = value
	case reviewPrompts:
		n.ReviewPrompts = value
	}
}
