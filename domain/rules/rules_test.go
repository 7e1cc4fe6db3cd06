package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oddsrules/domain/dataset"
	"oddsrules/domain/predicate"
	"oddsrules/domain/run"
)

var groupA = dataset.NewGroup("A", "0", "0")

func kCase(g dataset.Group, k float64, o dataset.Outcome) dataset.Case {
	return dataset.Case{Group: g, Features: map[string]float64{"K": k}, Outcome: o}
}

func kLess3() predicate.Predicate {
	return predicate.Predicate{Name: "K<3", Feature: "K", Op: predicate.OpLT, Threshold: 3.0}
}

func scenarioCases() []dataset.Case {
	return []dataset.Case{
		kCase(groupA, 2.5, dataset.OutcomeUp),
		kCase(groupA, 2.6, dataset.OutcomeUp),
		kCase(groupA, 2.7, dataset.OutcomeUp),
		kCase(groupA, 2.8, dataset.OutcomeUp),
		kCase(groupA, 5.0, dataset.OutcomeDown),
	}
}

func TestTallyDerivedValues(t *testing.T) {
	tl := Tally{Up: 3, Down: 3, Void: 2}
	assert.Equal(t, 8, tl.Total())
	assert.Equal(t, 6, tl.Effective())
	assert.Equal(t, dataset.OutcomeUp, tl.Dominant(), "ties resolve to Up")
	assert.InDelta(t, 50.0, tl.Concentration(), 1e-9)

	assert.Zero(t, Tally{Void: 3}.Concentration())
	o, n := Tally{Up: 1, Down: 1, Void: 4}.Leading()
	assert.Equal(t, dataset.OutcomeVoid, o)
	assert.Equal(t, 4, n)
}

func TestConcentrationBounds(t *testing.T) {
	for up := 0; up <= 6; up++ {
		for down := 0; down <= 6; down++ {
			tl := Tally{Up: up, Down: down}
			if tl.Effective() == 0 {
				continue
			}
			c := tl.Concentration()
			assert.True(t, c >= 0 && c <= 100, "concentration %v out of range for %v", c, tl)
		}
	}
}

func TestPolicies(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		tally  Tally
		want   bool
	}{
		{"A plain four of four", PlainModeA{}, Tally{Up: 4}, true},
		{"A plain three of four", PlainModeA{}, Tally{Up: 3, Down: 1}, false},
		{"A plain exactly 80", PlainModeA{}, Tally{Up: 4, Down: 1}, false},
		{"A plain above 80", PlainModeA{}, Tally{Down: 5, Up: 1, Void: 9}, true},
		{"A plain too few", PlainModeA{}, Tally{Up: 3}, false},
		{"A strict passes", StrictModeA{}, Tally{Up: 6}, true},
		{"A strict effective 5", StrictModeA{}, Tally{Up: 5}, false},
		{"A strict void too close", StrictModeA{}, Tally{Up: 6, Void: 3}, false},
		{"A strict below 85", StrictModeA{}, Tally{Up: 5, Down: 1}, false},
		{"A strict exactly 85", StrictModeA{}, Tally{Up: 17, Down: 3}, true},
		{"B void dominant", DominantAny{}, Tally{Void: 5}, true},
		{"B total four", DominantAny{}, Tally{Up: 4}, false},
		{"B exactly 80", DominantAny{}, Tally{Up: 4, Void: 1}, false},
		{"B mixed", DominantAny{}, Tally{Down: 9, Up: 1}, true},
		{"void only", VoidOnly{}, Tally{Void: 1}, true},
		{"void with up", VoidOnly{}, Tally{Void: 3, Up: 1}, false},
		{"void empty", VoidOnly{}, Tally{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Accept(tt.tally))
		})
	}
}

func TestNewPolicyFactory(t *testing.T) {
	p, err := NewModeA("strict")
	require.NoError(t, err)
	assert.Equal(t, "strict", p.Name())

	p, err = NewModeA("")
	require.NoError(t, err)
	assert.Equal(t, "plain", p.Name())

	_, err = NewModeA("loose")
	assert.Error(t, err)

	ps, err := DefaultPolicies("plain")
	require.NoError(t, err)
	require.Len(t, ps, 3)
	assert.Equal(t, []Mode{ModeA, ModeB, ModeVoidOnly}, []Mode{ps[0].Mode(), ps[1].Mode(), ps[2].Mode()})

	_, err = NewPolicy("nope")
	assert.Error(t, err)
}

func TestScenarioFourUpsAccepted(t *testing.T) {
	r, ok := NewRule(groupA, predicate.Conjunction{kLess3()}, scenarioCases(), PlainModeA{}, 0)
	require.True(t, ok)
	assert.Equal(t, Tally{Up: 4}, r.Tally)
	assert.Equal(t, 4, r.Tally.Effective())
	assert.InDelta(t, 100.0, r.Tally.Concentration(), 1e-9)
	assert.Equal(t, dataset.OutcomeUp, r.Predicted)
	assert.Equal(t, 4, r.Outcomes.Len())
}

func TestScenarioDuplicateRowsCountOnce(t *testing.T) {
	a := kCase(groupA, 2.5, dataset.OutcomeUp)
	a.Aux = map[string]float64{"S": 1}
	b := kCase(groupA, 2.5, dataset.OutcomeUp)
	b.Aux = map[string]float64{"S": 2}

	deduped := dataset.Dedupe([]dataset.Case{a, b})
	require.Len(t, deduped, 1)

	r, ok := NewRule(groupA, predicate.Conjunction{kLess3()}, deduped, VoidOnly{}, 0)
	assert.False(t, ok)
	assert.Zero(t, r.Tally.Total())

	tl := NewTally(predicate.Conjunction{kLess3()}.Filter(deduped))
	assert.Equal(t, 1, tl.Total())
}

func TestMinimizerKeepsFewestPredicates(t *testing.T) {
	cases := scenarioCases()
	kLe := predicate.Predicate{Name: "K≤2.9", Feature: "K", Op: predicate.OpLE, Threshold: 2.9}
	nAny := predicate.Predicate{Name: "N>0", Feature: "N", Op: predicate.OpGT, Threshold: 0}
	for i := range cases {
		cases[i].Features["N"] = 1
	}

	single, ok := NewRule(groupA, predicate.Conjunction{kLess3()}, cases, PlainModeA{}, 0)
	require.True(t, ok)
	sameSet, ok := NewRule(groupA, predicate.Conjunction{kLe}, cases, PlainModeA{}, 1)
	require.True(t, ok)
	double, ok := NewRule(groupA, predicate.Conjunction{kLess3(), nAny}, cases, PlainModeA{}, 2)
	require.True(t, ok)

	// offered largest first to prove the size rule, not arrival order, decides
	out := Minimize([]Rule{double, single, sameSet})
	require.Len(t, out, 1)
	assert.Equal(t, "K<3", out[0].Description())

	m := NewMinimizer()
	assert.True(t, m.Offer(single))
	assert.False(t, m.Offer(sameSet), "ties keep the first offered")
	assert.False(t, m.Offer(double))
	assert.Equal(t, 3, m.Offered())
	assert.Len(t, m.Rules(), 1)
}

func TestMinimizerSeparatesGroups(t *testing.T) {
	groupB := dataset.NewGroup("B", "0", "0")
	var cases []dataset.Case
	for _, c := range scenarioCases() {
		cases = append(cases, c)
		c.Group = groupB
		cases = append(cases, c)
	}
	p := dataset.NewPartition(cases)

	ra, ok := NewRule(groupA, predicate.Conjunction{kLess3()}, p.Cases(groupA), PlainModeA{}, 0)
	require.True(t, ok)
	rb, ok := NewRule(groupB, predicate.Conjunction{kLess3()}, p.Cases(groupB), PlainModeA{}, 0)
	require.True(t, ok)

	assert.Len(t, Minimize([]Rule{ra, rb}), 2)
}

func TestCoverage(t *testing.T) {
	cases := scenarioCases()
	r, ok := NewRule(groupA, predicate.Conjunction{kLess3()}, cases, PlainModeA{}, 0)
	require.True(t, ok)

	cov := ComputeCoverage([]Rule{r}, cases)
	assert.Equal(t, 5, cov.Base)
	assert.Equal(t, 4, cov.Covered)
	assert.Equal(t, Tally{Up: 4}, cov.Tally)
	assert.InDelta(t, 80.0, cov.Percent(), 1e-9)
	assert.Zero(t, Coverage{}.Percent())
}

func TestRuleSetMatch(t *testing.T) {
	cases := scenarioCases()
	r, ok := NewRule(groupA, predicate.Conjunction{kLess3()}, cases, PlainModeA{}, 0)
	require.True(t, ok)

	rs := NewRuleSet(run.Manifest{RunID: "r"}, []Section{
		{Mode: ModeA, Policy: "plain", Rules: []Rule{r}},
		{Mode: ModeB, Policy: "dominant"},
	}, nil)

	hit := rs.Match(dataset.Case{Group: groupA, Features: map[string]float64{"K": 3.0 - 1e-12}})
	require.Len(t, hit, 2)
	assert.Equal(t, ModeA, hit[0].Mode)
	assert.Empty(t, hit[0].Rules, "value within epsilon of a strict bound must not match")

	hit = rs.Match(dataset.Case{Group: groupA, Features: map[string]float64{"K": 2.0}})
	assert.Len(t, hit[0].Rules, 1)
	assert.Empty(t, hit[1].Rules)

	other := rs.Match(dataset.Case{Group: dataset.NewGroup("B", "0", "0"), Features: map[string]float64{"K": 2.0}})
	assert.Empty(t, other[0].Rules, "rules never match across groups")

	missing := rs.Match(dataset.Case{Group: groupA, Features: map[string]float64{}})
	assert.Empty(t, missing[0].Rules)

	assert.Equal(t, 1, rs.Count(ModeA))
	assert.Equal(t, 0, rs.Count(ModeVoidOnly))
	assert.Equal(t, []dataset.Group{groupA}, rs.Groups())
}

func TestRuleSetIsImmutable(t *testing.T) {
	r, ok := NewRule(groupA, predicate.Conjunction{kLess3()}, scenarioCases(), PlainModeA{}, 0)
	require.True(t, ok)
	src := []Rule{r}
	rs := NewRuleSet(run.Manifest{}, []Section{{Mode: ModeA, Rules: src}}, nil)

	src[0].Score = -1
	got := rs.Rules(ModeA)
	got[0].Score = -2
	assert.InDelta(t, 100.0, rs.Rules(ModeA)[0].Score, 1e-9)
}

func TestManualRuleConsistency(t *testing.T) {
	m := ManualRule{Group: groupA, Conjunction: predicate.Conjunction{kLess3()}, Expected: Tally{Up: 4}}
	m.Recount = NewTally(m.Conjunction.Filter(scenarioCases()))
	assert.True(t, m.Consistent())

	m.Expected.Void = 1
	assert.False(t, m.Consistent())

	rs := NewRuleSet(run.Manifest{}, nil, []ManualRule{m})
	assert.Len(t, rs.MatchManual(kCase(groupA, 2.0, dataset.OutcomeUnknown)), 1)
	assert.Empty(t, rs.MatchManual(kCase(groupA, 4.0, dataset.OutcomeUnknown)))
}

func TestManualRuleWithoutConditionsMatchesNothing(t *testing.T) {
	tests := []struct {
		name string
		conj predicate.Conjunction
	}{
		{"nil", nil},
		{"empty", predicate.Conjunction{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ManualRule{Group: groupA, Conjunction: tt.conj, Skipped: []string{"Kabc"}}
			for _, k := range []float64{0, 2.0, 99} {
				assert.False(t, m.Matches(kCase(groupA, k, dataset.OutcomeUnknown)), "K=%v", k)
			}
			rs := NewRuleSet(run.Manifest{}, nil, []ManualRule{m})
			assert.Empty(t, rs.MatchManual(kCase(groupA, 99, dataset.OutcomeUnknown)))
		})
	}
}

func TestSortByScore(t *testing.T) {
	rs := []Rule{
		{Score: 90, Tally: Tally{Up: 9, Down: 1}},
		{Score: 100, Tally: Tally{Up: 4}},
		{Score: 90, Tally: Tally{Up: 18, Down: 2}},
	}
	SortByScore(rs)
	assert.Equal(t, 100.0, rs[0].Score)
	assert.Equal(t, 20, rs[1].Tally.Total())
}
