package rules

import (
	"fmt"

	"oddsrules/domain/dataset"
)

// Tally summarises the outcomes of a matched case set. It is derived and read-only.
type Tally struct {
	Up   int `json:"up"`
	Down int `json:"down"`
	Void int `json:"void"`
}

// NewTally counts outcomes over cases; callers pass deduplicated cases
func NewTally(cases []dataset.Case) Tally {
	var t Tally
	for _, c := range cases {
		switch c.Outcome {
		case dataset.OutcomeUp:
			t.Up++
		case dataset.OutcomeDown:
			t.Down++
		case dataset.OutcomeVoid:
			t.Void++
		}
	}
	return t
}

// Total is the number of matched cases
func (t Tally) Total() int { return t.Up + t.Down + t.Void }

// Effective counts decisive cases (Void excluded)
func (t Tally) Effective() int { return t.Up + t.Down }

// Dominant is the larger of Up and Down; ties resolve to Up
func (t Tally) Dominant() dataset.Outcome {
	if t.Up >= t.Down {
		return dataset.OutcomeUp
	}
	return dataset.OutcomeDown
}

// DominantCount is the count behind Dominant
func (t Tally) DominantCount() int {
	if t.Up >= t.Down {
		return t.Up
	}
	return t.Down
}

// Concentration is dominant/effective as a percentage, 0 when nothing is decisive
func (t Tally) Concentration() float64 {
	eff := t.Effective()
	if eff == 0 {
		return 0
	}
	return float64(t.DominantCount()) / float64(eff) * 100
}

// Count returns the count for one outcome
func (t Tally) Count(o dataset.Outcome) int {
	switch o {
	case dataset.OutcomeUp:
		return t.Up
	case dataset.OutcomeDown:
		return t.Down
	case dataset.OutcomeVoid:
		return t.Void
	}
	return 0
}

// Share is count(o)/total as a percentage
func (t Tally) Share(o dataset.Outcome) float64 {
	total := t.Total()
	if total == 0 {
		return 0
	}
	return float64(t.Count(o)) / float64(total) * 100
}

// Leading returns the most frequent of Up, Down, Void over all matched cases.
// Ties prefer Up, then Down.
func (t Tally) Leading() (dataset.Outcome, int) {
	o, n := dataset.OutcomeUp, t.Up
	if t.Down > n {
		o, n = dataset.OutcomeDown, t.Down
	}
	if t.Void > n {
		o, n = dataset.OutcomeVoid, t.Void
	}
	return o, n
}

func (t Tally) String() string {
	return fmt.Sprintf("up=%d down=%d void=%d", t.Up, t.Down, t.Void)
}
