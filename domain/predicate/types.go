package predicate

import (
	"fmt"
	"strconv"
	"strings"

	"oddsrules/domain/dataset"
)

// Epsilon absorbs floating-point representation error at threshold boundaries.
// Every evaluation path (batch mining and single-case lookup) goes through Holds.
const Epsilon = 1e-9

// Operator is the comparison a predicate applies to its feature
type Operator string

const (
	OpGE    Operator = ">="
	OpLE    Operator = "<="
	OpGT    Operator = ">"
	OpLT    Operator = "<"
	OpRange Operator = "range"
)

// Valid reports whether op is a known operator
func (op Operator) Valid() bool {
	switch op {
	case OpGE, OpLE, OpGT, OpLT, OpRange:
		return true
	}
	return false
}

// Predicate is a named condition over exactly one feature
type Predicate struct {
	Name      string   `json:"name"`
	Feature   string   `json:"feature"`
	Op        Operator `json:"op"`
	Threshold float64  `json:"threshold,omitempty"`
	Lo        float64  `json:"lo,omitempty"`
	Hi        float64  `json:"hi,omitempty"`
}

// Validate checks structural soundness
func (p Predicate) Validate() error {
	if strings.TrimSpace(p.Feature) == "" {
		return fmt.Errorf("predicate %q has no feature", p.Name)
	}
	if !p.Op.Valid() {
		return fmt.Errorf("predicate %q has unknown operator %q", p.Name, p.Op)
	}
	if p.Op == OpRange && p.Lo > p.Hi {
		return fmt.Errorf("predicate %q has empty range [%g, %g]", p.Name, p.Lo, p.Hi)
	}
	return nil
}

// Holds applies the operator to v with Epsilon tolerance. Inclusive bounds are
// widened by Epsilon, strict bounds are narrowed by it, so a value within
// Epsilon of the threshold satisfies >=, <= and range bounds but never > or <.
func (p Predicate) Holds(v float64) bool {
	switch p.Op {
	case OpGE:
		return v >= p.Threshold-Epsilon
	case OpLE:
		return v <= p.Threshold+Epsilon
	case OpGT:
		return v > p.Threshold+Epsilon
	case OpLT:
		return v < p.Threshold-Epsilon
	case OpRange:
		return v >= p.Lo-Epsilon && v <= p.Hi+Epsilon
	}
	return false
}

// Evaluate tests c. A null feature never matches.
func (p Predicate) Evaluate(c dataset.Case) bool {
	v, ok := c.Feature(p.Feature)
	if !ok {
		return false
	}
	return p.Holds(v)
}

// Condition renders condition text that Parse accepts, e.g. "<3" or "(2.9~3)"
func (p Predicate) Condition() string {
	if p.Op == OpRange {
		return "(" + formatNum(p.Lo) + "~" + formatNum(p.Hi) + ")"
	}
	return string(p.Op) + formatNum(p.Threshold)
}

// Label is the display name, falling back to feature+condition
func (p Predicate) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Feature + p.Condition()
}

func (p Predicate) String() string { return p.Label() }

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Conjunction is an AND of predicates over distinct features
type Conjunction []Predicate

// Evaluate reports whether every predicate holds for c
func (cj Conjunction) Evaluate(c dataset.Case) bool {
	for _, p := range cj {
		if !p.Evaluate(c) {
			return false
		}
	}
	return true
}

// Filter returns the cases satisfying every predicate, preserving order
func (cj Conjunction) Filter(cases []dataset.Case) []dataset.Case {
	out := make([]dataset.Case, 0, len(cases))
	for _, c := range cases {
		if cj.Evaluate(c) {
			out = append(out, c)
		}
	}
	return out
}

// DistinctFeatures reports whether no two predicates share a feature
func (cj Conjunction) DistinctFeatures() bool {
	seen := make(map[string]struct{}, len(cj))
	for _, p := range cj {
		if _, dup := seen[p.Feature]; dup {
			return false
		}
		seen[p.Feature] = struct{}{}
	}
	return true
}

// Description joins predicate labels for reports
func (cj Conjunction) Description() string {
	labels := make([]string, len(cj))
	for i, p := range cj {
		labels[i] = p.Label()
	}
	return strings.Join(labels, " & ")
}

// Key is a stable identity of the conjunction within one catalog
func (cj Conjunction) Key() string {
	parts := make([]string, len(cj))
	for i, p := range cj {
		parts[i] = p.Feature + p.Condition()
	}
	return strings.Join(parts, "&")
}
