// Package calendar maps an enrollment date onto a fixed term/break programme
// pattern. All functions are pure; callers supply "now".
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PhaseKind distinguishes instructional terms from breaks.
type PhaseKind string

const (
	PhaseTerm  PhaseKind = "term"
	PhaseBreak PhaseKind = "break"
)

const (
	oneDay  = 24 * time.Hour
	oneWeek = 7 * oneDay
)

// Phase is one contiguous block of the programme measured in whole weeks.
type Phase struct {
	Kind  PhaseKind `json:"kind"`
	Weeks int       `json:"weeks"`
}

// Pattern is an ordered sequence of phases. It must start and end with a term.
type Pattern struct {
	phases []Phase
}

// ErrInvalidPosition is returned for a term/week pair outside the pattern.
var ErrInvalidPosition = errors.New("calendar: term/week outside pattern")

// DefaultPattern is Term(6w) → Break(2w) → Term(6w) → Break(2w) → Term(6w).
func DefaultPattern() Pattern {
	p, _ := NewPattern(
		Phase{Kind: PhaseTerm, Weeks: 6},
		Phase{Kind: PhaseBreak, Weeks: 2},
		Phase{Kind: PhaseTerm, Weeks: 6},
		Phase{Kind: PhaseBreak, Weeks: 2},
		Phase{Kind: PhaseTerm, Weeks: 6},
	)
	return p
}

// NewPattern validates and builds a pattern from phases.
func NewPattern(phases ...Phase) (Pattern, error) {
	if len(phases) == 0 {
		return Pattern{}, errors.New("calendar: pattern requires at least one phase")
	}
	for i, ph := range phases {
		if ph.Kind != PhaseTerm && ph.Kind != PhaseBreak {
			return Pattern{}, fmt.Errorf("calendar: phase %d has unknown kind %q", i, ph.Kind)
		}
		if ph.Weeks <= 0 {
			return Pattern{}, fmt.Errorf("calendar: phase %d must span at least one week", i)
		}
		if i > 0 && ph.Kind == PhaseBreak && phases[i-1].Kind == PhaseBreak {
			return Pattern{}, fmt.Errorf("calendar: phase %d follows another break", i)
		}
	}
	if phases[0].Kind != PhaseTerm || phases[len(phases)-1].Kind != PhaseTerm {
		return Pattern{}, errors.New("calendar: pattern must start and end with a term")
	}
	cp := make([]Phase, len(phases))
	copy(cp, phases)
	return Pattern{phases: cp}, nil
}

// ParsePattern reads the "term:6,break:2,term:6" notation used in configuration.
func ParsePattern(raw string) (Pattern, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPattern(), nil
	}
	parts := strings.Split(raw, ",")
	phases := make([]Phase, 0, len(parts))
	for _, part := range parts {
		kind, weeks, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return Pattern{}, fmt.Errorf("calendar: malformed phase %q", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(weeks))
		if err != nil {
			return Pattern{}, fmt.Errorf("calendar: malformed weeks in %q: %w", part, err)
		}
		phases = append(phases, Phase{Kind: PhaseKind(strings.ToLower(strings.TrimSpace(kind))), Weeks: n})
	}
	return NewPattern(phases...)
}

// Phases returns a copy of the configured phases.
func (p Pattern) Phases() []Phase {
	out := make([]Phase, len(p.phases))
	copy(out, p.phases)
	return out
}

// Terms reports how many instructional terms the pattern contains.
func (p Pattern) Terms() int {
	n := 0
	for _, ph := range p.phases {
		if ph.Kind == PhaseTerm {
			n++
		}
	}
	return n
}

// WeeksInTerm returns the length of the given 1-indexed term, or 0.
func (p Pattern) WeeksInTerm(term int) int {
	n := 0
	for _, ph := range p.phases {
		if ph.Kind != PhaseTerm {
			continue
		}
		n++
		if n == term {
			return ph.Weeks
		}
	}
	return 0
}

// TotalWeeks is the full programme length including breaks.
func (p Pattern) TotalWeeks() int {
	total := 0
	for _, ph := range p.phases {
		total += ph.Weeks
	}
	return total
}

func (p Pattern) String() string {
	parts := make([]string, len(p.phases))
	for i, ph := range p.phases {
		parts[i] = fmt.Sprintf("%s:%d", ph.Kind, ph.Weeks)
	}
	return strings.Join(parts, ",")
}

// Position is a learner's place in the programme.
type Position struct {
	Term      int  `json:"term"`
	Week      int  `json:"week"`
	IsBreak   bool `json:"is_break"`
	Completed bool `json:"completed"`
}

// Reached reports whether the position is at or past term/week.
func (pos Position) Reached(term, week int) bool {
	if term != pos.Term {
		return term < pos.Term
	}
	return week <= pos.Week
}

// ElapsedWeeks is the number of whole weeks between enrollment and now.
// Negative spans clamp to zero.
func ElapsedWeeks(enrollmentDate, now time.Time) int {
	elapsed := now.Sub(enrollmentDate)
	if elapsed < 0 {
		return 0
	}
	days := int(elapsed / oneDay)
	return days / 7
}

// Position walks the phase boundaries. Inside a break it reports the last
// week of the preceding term with IsBreak set; past the final term it
// reports the final week with Completed set.
func (p Pattern) Position(enrollmentDate, now time.Time) Position {
	if now.Before(enrollmentDate) {
		return Position{Term: 1, Week: 1}
	}
	weeks := ElapsedWeeks(enrollmentDate, now)

	offset, term, lastTermWeeks := 0, 0, 0
	for _, ph := range p.phases {
		if ph.Kind == PhaseTerm {
			term++
		}
		if weeks < offset+ph.Weeks {
			if ph.Kind == PhaseTerm {
				return Position{Term: term, Week: weeks - offset + 1}
			}
			return Position{Term: term, Week: lastTermWeeks, IsBreak: true}
		}
		if ph.Kind == PhaseTerm {
			lastTermWeeks = ph.Weeks
		}
		offset += ph.Weeks
	}
	return Position{Term: term, Week: lastTermWeeks, Completed: true}
}

// WeekOffset returns the number of weeks between enrollment and the start of
// term/week.
func (p Pattern) WeekOffset(term, week int) (int, error) {
	if term < 1 || week < 1 {
		return 0, ErrInvalidPosition
	}
	offset, n := 0, 0
	for _, ph := range p.phases {
		if ph.Kind == PhaseTerm {
			n++
			if n == term {
				if week > ph.Weeks {
					return 0, ErrInvalidPosition
				}
				return offset + week - 1, nil
			}
		}
		offset += ph.Weeks
	}
	return 0, ErrInvalidPosition
}

// AvailabilityDate is the inverse of Position: the instant term/week unlocks.
// Offsets are added as fixed 24h days so the result round-trips through
// Position regardless of the caller's time zone.
func (p Pattern) AvailabilityDate(enrollmentDate time.Time, term, week int) (time.Time, error) {
	weeks, err := p.WeekOffset(term, week)
	if err != nil {
		return time.Time{}, err
	}
	return enrollmentDate.Add(time.Duration(weeks) * oneWeek), nil
}

// Window is a dated phase of a concrete cohort. End is exclusive.
type Window struct {
	Kind  PhaseKind `json:"kind"`
	Index int       `json:"index"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Windows lays the pattern out from start. Index counts terms and breaks
// separately from 1.
func (p Pattern) Windows(start time.Time) []Window {
	windows := make([]Window, 0, len(p.phases))
	cursor := start
	terms, breaks := 0, 0
	for _, ph := range p.phases {
		idx := 0
		if ph.Kind == PhaseTerm {
			terms++
			idx = terms
		} else {
			breaks++
			idx = breaks
		}
		end := cursor.Add(time.Duration(ph.Weeks) * oneWeek)
		windows = append(windows, Window{Kind: ph.Kind, Index: idx, Start: cursor, End: end})
		cursor = end
	}
	return windows
}

// EndDate is the instant the programme completes for an enrollment.
func (p Pattern) EndDate(start time.Time) time.Time {
	return start.Add(time.Duration(p.TotalWeeks()) * oneWeek)
}
