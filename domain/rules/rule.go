package rules

import (
	"sort"

	"oddsrules/domain/dataset"
	"oddsrules/domain/predicate"
)

// Rule is a (group, conjunction) pair promoted by a policy, paired with the
// tally computed when it was accepted. Rules are never mutated.
type Rule struct {
	Group       dataset.Group
	Conjunction predicate.Conjunction
	Tally       Tally
	Outcomes    dataset.OutcomeSet
	Mode        Mode
	Predicted   dataset.Outcome
	Score       float64
	// Seq is the enumeration position inside the group; ties break on it
	Seq int
}

// NewRule evaluates conj over the group's deduplicated cases and scores it with p.
// The second return reports acceptance.
func NewRule(g dataset.Group, conj predicate.Conjunction, groupCases []dataset.Case, p Policy, seq int) (Rule, bool) {
	return Promote(g, conj, conj.Filter(groupCases), p, seq)
}

// Promote scores an already filtered match set with p
func Promote(g dataset.Group, conj predicate.Conjunction, matched []dataset.Case, p Policy, seq int) (Rule, bool) {
	t := NewTally(matched)
	if !p.Accept(t) {
		return Rule{}, false
	}
	return Rule{
		Group:       g,
		Conjunction: conj,
		Tally:       t,
		Outcomes:    dataset.NewOutcomeSet(matched),
		Mode:        p.Mode(),
		Predicted:   p.Predicted(t),
		Score:       p.Score(t),
		Seq:         seq,
	}, true
}

// Size is the number of predicates in the conjunction
func (r Rule) Size() int { return len(r.Conjunction) }

// Description renders the conjunction for people
func (r Rule) Description() string { return r.Conjunction.Description() }

// Key identifies the (group, conjunction) pair
func (r Rule) Key() string { return r.Group.String() + "|" + r.Conjunction.Key() }

// Matches applies the group filter first, then every predicate
func (r Rule) Matches(c dataset.Case) bool {
	return c.Group == r.Group && r.Conjunction.Evaluate(c)
}

// SortByScore orders rules by score, then total; ties keep their order
func SortByScore(rs []Rule) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Tally.Total() != b.Tally.Total() {
			return a.Tally.Total() > b.Tally.Total()
		}
		return false
	})
}
