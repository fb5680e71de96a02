package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Grade is the learner's answer to a card review.
// 1: Again (Incorrect)
// 2: Hard
// 3: Good
// 4: Easy
type Grade int

const (
	GradeAgain Grade = iota + 1
	GradeHard
	GradeGood
	GradeEasy
)

var gradeNames = [...]string{GradeAgain: "again", GradeHard: "hard", GradeGood: "good", GradeEasy: "easy"}

// Valid reports whether g is one of the four grades.
func (g Grade) Valid() bool {
	return g >= GradeAgain && g <= GradeEasy
}

// Passing reports whether g is above the lowest tier.
func (g Grade) Passing() bool {
	return g > GradeAgain
}

func (g Grade) String() string {
	if !g.Valid() {
		return "Grade(" + strconv.Itoa(int(g)) + ")"
	}
	return gradeNames[g]
}

// ParseGrade accepts either the number (1..4) or the name ("again".."easy").
func ParseGrade(s string) (Grade, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		g := Grade(n)
		if !g.Valid() {
			return 0, fmt.Errorf("grade %d out of range 1..4", n)
		}
		return g, nil
	}
	for g := GradeAgain; g <= GradeEasy; g++ {
		if gradeNames[g] == s {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown grade %q", s)
}

// UnmarshalText lets grades be decoded from config values.
func (g *Grade) UnmarshalText(text []byte) error {
	parsed, err := ParseGrade(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (g Grade) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}
