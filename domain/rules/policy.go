package rules

import (
	"fmt"
	"strings"

	"oddsrules/domain/core"
	"oddsrules/domain/dataset"
)

// Mode names a published rule set. One run publishes one rule set per mode.
type Mode string

const (
	ModeA        Mode = "mode_a"
	ModeB        Mode = "mode_b"
	ModeVoidOnly Mode = "void_only"
)

// Title is the display heading of a mode
func (m Mode) Title() string {
	switch m {
	case ModeA:
		return "Mode A (high concentration, void excluded)"
	case ModeB:
		return "Mode B (any outcome dominant, void included)"
	case ModeVoidOnly:
		return "Void only"
	}
	return string(m)
}

// Policy decides whether a candidate's tally makes it a published rule.
// Thresholds are compared in integer arithmetic so boundary ratios are exact.
type Policy interface {
	Mode() Mode
	Name() string
	Describe() string
	Accept(t Tally) bool
	// Score orders accepted rules within a mode, higher first
	Score(t Tally) float64
	// Predicted is the outcome the rule forecasts
	Predicted(t Tally) dataset.Outcome
}

// PlainModeA accepts effective >= 5 with concentration > 80%, or effective == 4
// with concentration 100%.
type PlainModeA struct{}

func (PlainModeA) Mode() Mode   { return ModeA }
func (PlainModeA) Name() string { return "plain" }
func (PlainModeA) Describe() string {
	return "effective ≥ 5 and concentration > 80%, or effective = 4 and concentration = 100%"
}

func (PlainModeA) Accept(t Tally) bool {
	eff, dom := t.Effective(), t.DominantCount()
	if eff >= 5 && dom*5 > eff*4 {
		return true
	}
	return eff == 4 && dom == 4
}

func (PlainModeA) Score(t Tally) float64             { return t.Concentration() }
func (PlainModeA) Predicted(t Tally) dataset.Outcome { return t.Dominant() }

// StrictModeA is the stricter sibling: effective >= 6, concentration >= 85%,
// some outcome count >= 5 and the dominant side clear of Void by more than 3.
type StrictModeA struct{}

func (StrictModeA) Mode() Mode   { return ModeA }
func (StrictModeA) Name() string { return "strict" }
func (StrictModeA) Describe() string {
	return "effective ≥ 6, concentration ≥ 85%, max(up, down, void) ≥ 5, |dominant − void| > 3"
}

func (StrictModeA) Accept(t Tally) bool {
	eff, dom := t.Effective(), t.DominantCount()
	if eff < 6 || dom*20 < eff*17 {
		return false
	}
	if _, lead := t.Leading(); lead < 5 {
		return false
	}
	margin := dom - t.Void
	if margin < 0 {
		margin = -margin
	}
	return margin > 3
}

func (StrictModeA) Score(t Tally) float64             { return t.Concentration() }
func (StrictModeA) Predicted(t Tally) dataset.Outcome { return t.Dominant() }

// DominantAny accepts total > 4 where one of Up, Down, Void exceeds 80% of all matches.
type DominantAny struct{}

func (DominantAny) Mode() Mode   { return ModeB }
func (DominantAny) Name() string { return "dominant" }
func (DominantAny) Describe() string {
	return "total > 4 and max(up, down, void) / total > 80%"
}

func (DominantAny) Accept(t Tally) bool {
	total := t.Total()
	_, lead := t.Leading()
	return total > 4 && lead*5 > total*4
}

func (DominantAny) Score(t Tally) float64 {
	o, _ := t.Leading()
	return t.Share(o)
}

func (DominantAny) Predicted(t Tally) dataset.Outcome {
	o, _ := t.Leading()
	return o
}

// VoidOnly accepts conjunctions whose matches are all Void
type VoidOnly struct{}

func (VoidOnly) Mode() Mode       { return ModeVoidOnly }
func (VoidOnly) Name() string     { return "void_only" }
func (VoidOnly) Describe() string { return "up = 0, down = 0, void ≥ 1" }

func (VoidOnly) Accept(t Tally) bool {
	return t.Up == 0 && t.Down == 0 && t.Void >= 1
}

func (VoidOnly) Score(t Tally) float64             { return float64(t.Void) }
func (VoidOnly) Predicted(t Tally) dataset.Outcome { return dataset.OutcomeVoid }

// NewModeA returns the Mode A variant by name
func NewModeA(variant string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(variant)) {
	case "", "plain":
		return PlainModeA{}, nil
	case "strict":
		return StrictModeA{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown mode A variant %q", core.ErrInvalidPolicy, variant)
	}
}

// NewPolicy maps a policy name to its strategy
func NewPolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "plain", "mode_a":
		return PlainModeA{}, nil
	case "strict":
		return StrictModeA{}, nil
	case "dominant", "mode_b":
		return DominantAny{}, nil
	case "void_only", "void":
		return VoidOnly{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidPolicy, name)
	}
}

// DefaultPolicies returns the published modes of a run in report order
func DefaultPolicies(modeAVariant string) ([]Policy, error) {
	a, err := NewModeA(modeAVariant)
	if err != nil {
		return nil, err
	}
	return []Policy{a, DominantAny{}, VoidOnly{}}, nil
}
