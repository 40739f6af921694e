// Package grading holds the weighting and letter-grade tables applied to
// recorded scores.
package grading

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Breakpoint assigns Letter to grades at or above Min.
type Breakpoint struct {
	Letter string  `json:"letter"`
	Min    float64 `json:"min"`
}

// Scale is a table-driven letter grade mapping.
type Scale struct {
	breakpoints   []Breakpoint
	passThreshold float64
	failLetter    string
}

// DefaultBreakpoints is A≥90, B≥80, C≥70, D≥60.
const DefaultBreakpoints = "A:90,B:80,C:70,D:60"

// DefaultPassThreshold separates D from F.
const DefaultPassThreshold = 60

// DefaultScale returns the stock table.
func DefaultScale() Scale {
	s, _ := ParseScale(DefaultBreakpoints, DefaultPassThreshold)
	return s
}

// ParseScale reads "A:90,B:80" notation. Grades below passThreshold always
// map to F; grades above it but under every breakpoint take the lowest letter.
func ParseScale(raw string, passThreshold float64) (Scale, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultBreakpoints
	}
	var bps []Breakpoint
	seen := map[string]struct{}{}
	for _, part := range strings.Split(raw, ",") {
		letter, min, ok := strings.Cut(strings.TrimSpace(part), ":")
		letter = strings.TrimSpace(letter)
		if !ok || letter == "" {
			return Scale{}, fmt.Errorf("grading: malformed breakpoint %q", part)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(min), 64)
		if err != nil {
			return Scale{}, fmt.Errorf("grading: malformed minimum in %q: %w", part, err)
		}
		if _, dup := seen[letter]; dup {
			return Scale{}, fmt.Errorf("grading: letter %s declared twice", letter)
		}
		seen[letter] = struct{}{}
		bps = append(bps, Breakpoint{Letter: letter, Min: value})
	}
	if len(bps) == 0 {
		return Scale{}, errors.New("grading: no breakpoints")
	}
	sort.SliceStable(bps, func(i, j int) bool { return bps[i].Min > bps[j].Min })
	return Scale{breakpoints: bps, passThreshold: passThreshold, failLetter: "F"}, nil
}

// Letter maps a final grade onto the table.
func (s Scale) Letter(grade float64) string {
	if grade < s.passThreshold || len(s.breakpoints) == 0 {
		return s.failLetter
	}
	for _, bp := range s.breakpoints {
		if grade >= bp.Min {
			return bp.Letter
		}
	}
	return s.breakpoints[len(s.breakpoints)-1].Letter
}

// Passed reports whether grade meets the pass threshold.
func (s Scale) Passed(grade float64) bool {
	return grade >= s.passThreshold
}

// PassThreshold exposes the configured pass mark.
func (s Scale) PassThreshold() float64 { return s.passThreshold }

// Breakpoints returns the table ordered from highest to lowest.
func (s Scale) Breakpoints() []Breakpoint {
	out := make([]Breakpoint, len(s.breakpoints))
	copy(out, s.breakpoints)
	return out
}

// Weights splits the final grade between continuous assessment and the exam.
type Weights struct {
	Workbook float64
	Exam     float64
}

// DefaultWeights is 70/30.
func DefaultWeights() Weights {
	return Weights{Workbook: 70, Exam: 30}
}

// Validate requires non-negative weights summing to 100.
func (w Weights) Validate() error {
	if w.Workbook < 0 || w.Exam < 0 {
		return errors.New("grading: weights must be non-negative")
	}
	if w.Workbook+w.Exam != 100 {
		return fmt.Errorf("grading: weights sum to %.2f, want 100", w.Workbook+w.Exam)
	}
	return nil
}

// WorkbookContribution scales a 0–100 score to its pre-weighted workbook value.
func (w Weights) WorkbookContribution(score float64) float64 {
	return (score / 100) * w.Workbook
}

// ExamContribution scales a 0–100 exam score to its weighted value.
func (w Weights) ExamContribution(score float64) float64 {
	return (score / 100) * w.Exam
}
