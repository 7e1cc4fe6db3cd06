package rules

import (
	"oddsrules/domain/dataset"
	"oddsrules/domain/predicate"
	"oddsrules/domain/run"
)

// Section is the published rule list of one mode
type Section struct {
	Mode        Mode
	Policy      string
	Description string
	Rules       []Rule
	Coverage    Coverage
}

// ManualRule is a human-authored rule recounted against the dataset
type ManualRule struct {
	Group       dataset.Group
	Conjunction predicate.Conjunction
	Prediction  string
	Expected    Tally
	Recount     Tally
	// Skipped holds condition cells that could not be parsed
	Skipped []string
	Row     int
}

// Consistent reports whether the recount agrees with the hand count
func (m ManualRule) Consistent() bool { return m.Expected == m.Recount }

// Matches applies the group filter first, then every parsed predicate.
// A rule without parsed predicates matches nothing.
func (m ManualRule) Matches(c dataset.Case) bool {
	return len(m.Conjunction) > 0 && c.Group == m.Group && m.Conjunction.Evaluate(c)
}

// Match lists the rules of one mode satisfied by a query case
type Match struct {
	Mode  Mode
	Rules []Rule
}

// RuleSet is the immutable published result of a run. It is built once and
// shared by reference; every accessor returns copies.
type RuleSet struct {
	manifest run.Manifest
	sections []Section
	byGroup  []map[dataset.Group][]int
	manual   []ManualRule
}

// NewRuleSet freezes sections (in report order) and the manual library
func NewRuleSet(m run.Manifest, sections []Section, manual []ManualRule) *RuleSet {
	rs := &RuleSet{
		manifest: m,
		sections: make([]Section, len(sections)),
		byGroup:  make([]map[dataset.Group][]int, len(sections)),
		manual:   append([]ManualRule(nil), manual...),
	}
	rs.manifest.Groups = append([]string(nil), m.Groups...)
	for i, s := range sections {
		s.Rules = append([]Rule(nil), s.Rules...)
		rs.sections[i] = s
		idx := make(map[dataset.Group][]int)
		for j, r := range s.Rules {
			idx[r.Group] = append(idx[r.Group], j)
		}
		rs.byGroup[i] = idx
	}
	return rs
}

// Manifest returns the run description
func (rs *RuleSet) Manifest() run.Manifest {
	m := rs.manifest
	m.Groups = append([]string(nil), rs.manifest.Groups...)
	return m
}

// Modes lists published modes in report order
func (rs *RuleSet) Modes() []Mode {
	out := make([]Mode, len(rs.sections))
	for i, s := range rs.sections {
		out[i] = s.Mode
	}
	return out
}

// Section returns a copy of a mode's section
func (rs *RuleSet) Section(mode Mode) (Section, bool) {
	for _, s := range rs.sections {
		if s.Mode == mode {
			s.Rules = append([]Rule(nil), s.Rules...)
			return s, true
		}
	}
	return Section{}, false
}

// Sections returns copies of all sections in report order
func (rs *RuleSet) Sections() []Section {
	out := make([]Section, len(rs.sections))
	for i, s := range rs.sections {
		s.Rules = append([]Rule(nil), s.Rules...)
		out[i] = s
	}
	return out
}

// Rules returns the rules of one mode
func (rs *RuleSet) Rules(mode Mode) []Rule {
	s, _ := rs.Section(mode)
	return s.Rules
}

// Count returns the number of rules of one mode
func (rs *RuleSet) Count(mode Mode) int {
	for _, s := range rs.sections {
		if s.Mode == mode {
			return len(s.Rules)
		}
	}
	return 0
}

// Manual returns the manual rule library
func (rs *RuleSet) Manual() []ManualRule {
	return append([]ManualRule(nil), rs.manual...)
}

// Match returns, for every mode, the rules whose conjunction holds for q.
// Only rules of q's group are evaluated. Safe for concurrent use.
func (rs *RuleSet) Match(q dataset.Case) []Match {
	out := make([]Match, len(rs.sections))
	for i, s := range rs.sections {
		out[i].Mode = s.Mode
		for _, j := range rs.byGroup[i][q.Group] {
			if s.Rules[j].Conjunction.Evaluate(q) {
				out[i].Rules = append(out[i].Rules, s.Rules[j])
			}
		}
	}
	return out
}

// MatchManual returns the manual rules whose parsed conditions hold for q
func (rs *RuleSet) MatchManual(q dataset.Case) []ManualRule {
	var out []ManualRule
	for _, m := range rs.manual {
		if m.Matches(q) {
			out = append(out, m)
		}
	}
	return out
}

// Groups lists the distinct groups carrying at least one rule in any mode
func (rs *RuleSet) Groups() []dataset.Group {
	var all []Rule
	for _, s := range rs.sections {
		all = append(all, s.Rules...)
	}
	return groupsOf(all)
}
