package rules

import (
	"sort"

	"oddsrules/domain/core"
	"oddsrules/domain/dataset"
)

type setKey struct {
	group dataset.Group
	set   core.Hash
}

// Minimizer holds provisionally accepted rules keyed by (group, outcome set)
// and keeps the one with the fewest predicates per key; on ties the first
// offered wins. Not safe for concurrent use.
type Minimizer struct {
	best  map[setKey]int
	rules []Rule
	kept  []bool
}

// NewMinimizer creates an empty minimizer
func NewMinimizer() *Minimizer {
	return &Minimizer{best: make(map[setKey]int)}
}

// Offer records r and reports whether it is now the keeper for its key
func (m *Minimizer) Offer(r Rule) bool {
	k := setKey{group: r.Group, set: r.Outcomes.ID()}
	idx := len(m.rules)
	m.rules = append(m.rules, r)
	m.kept = append(m.kept, false)

	prev, ok := m.best[k]
	if ok && m.rules[prev].Size() <= r.Size() {
		return false
	}
	if ok {
		m.kept[prev] = false
	}
	m.best[k] = idx
	m.kept[idx] = true
	return true
}

// Offered returns how many rules were offered
func (m *Minimizer) Offered() int { return len(m.rules) }

// Rules returns the surviving rules in the order they were offered
func (m *Minimizer) Rules() []Rule {
	out := make([]Rule, 0, len(m.best))
	for i, r := range m.rules {
		if m.kept[i] {
			out = append(out, r)
		}
	}
	return out
}

// Minimize collapses rules sharing a (group, outcome set) to the smallest one
func Minimize(rs []Rule) []Rule {
	m := NewMinimizer()
	for _, r := range rs {
		m.Offer(r)
	}
	return m.Rules()
}

// Coverage counts the distinct cases reached by at least one rule of a mode
type Coverage struct {
	Base    int   `json:"base"`
	Covered int   `json:"covered"`
	Tally   Tally `json:"tally"`
}

// Percent is Covered/Base as a percentage
func (c Coverage) Percent() float64 {
	if c.Base == 0 {
		return 0
	}
	return float64(c.Covered) / float64(c.Base) * 100
}

// ComputeCoverage unions the outcome sets of rs and tallies the covered cases
// found in base (deduplicated cases of the mined groups).
func ComputeCoverage(rs []Rule, base []dataset.Case) Coverage {
	covered := make(map[dataset.Key]struct{})
	for _, r := range rs {
		for _, k := range r.Outcomes.Keys() {
			covered[k] = struct{}{}
		}
	}
	cov := Coverage{Base: len(base)}
	var hit []dataset.Case
	for _, c := range base {
		if _, ok := covered[dataset.CanonicalKey(c)]; ok {
			hit = append(hit, c)
		}
	}
	cov.Covered = len(hit)
	cov.Tally = NewTally(hit)
	return cov
}

// groupsOf lists the distinct groups of rs, sorted by key
func groupsOf(rs []Rule) []dataset.Group {
	seen := make(map[dataset.Group]struct{})
	var out []dataset.Group
	for _, r := range rs {
		if _, ok := seen[r.Group]; !ok {
			seen[r.Group] = struct{}{}
			out = append(out, r.Group)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
