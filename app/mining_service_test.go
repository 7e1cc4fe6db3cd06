package app

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oddsrules/domain/core"
	"oddsrules/domain/dataset"
	"oddsrules/domain/predicate"
	"oddsrules/domain/rules"
	"oddsrules/internal"
)

var (
	groupA = dataset.NewGroup("A", "0", "0")
	groupB = dataset.NewGroup("B", "0", "0")
	groupV = dataset.NewGroup("V", "0", "0")
)

func mkCase(g dataset.Group, k, gv float64, o dataset.Outcome) dataset.Case {
	return dataset.Case{Group: g, Features: map[string]float64{"K": k, "G": gv}, Outcome: o}
}

func scenarioDataset() []dataset.Case {
	dup := mkCase(groupA, 2.5, 0.9, dataset.OutcomeUp)
	dup.Aux = map[string]float64{"S": 7}
	return []dataset.Case{
		mkCase(groupA, 2.5, 0.9, dataset.OutcomeUp),
		mkCase(groupA, 2.6, 0.9, dataset.OutcomeUp),
		dup,
		mkCase(groupA, 2.7, 0.9, dataset.OutcomeUp),
		mkCase(groupA, 2.8, 0.9, dataset.OutcomeUp),
		mkCase(groupA, 5.0, 0.9, dataset.OutcomeDown),
		mkCase(groupB, 2.5, 0.9, dataset.OutcomeUp),
		mkCase(groupB, 2.6, 0.9, dataset.OutcomeUp),
		mkCase(groupB, 2.7, 0.9, dataset.OutcomeUp),
	}
}

func scenarioCatalog(t *testing.T) *predicate.Catalog {
	t.Helper()
	c, skipped := predicate.NewCatalog([]predicate.Predicate{
		{Name: "K<3", Feature: "K", Op: predicate.OpLT, Threshold: 3},
		{Name: "K≤2.9", Feature: "K", Op: predicate.OpLE, Threshold: 2.9},
		{Name: "K>3.4", Feature: "K", Op: predicate.OpGT, Threshold: 3.4},
		{Name: "G>0.8", Feature: "G", Op: predicate.OpGT, Threshold: 0.8},
	})
	require.Empty(t, skipped)
	return c
}

func newService(t *testing.T, workers int) *MiningService {
	t.Helper()
	policies, err := rules.DefaultPolicies("plain")
	require.NoError(t, err)
	logger := internal.NewWriterLogger(internal.LogLevelDebug, &bytes.Buffer{})
	return NewMiningService(policies, MiningConfig{MaxPredicates: 3, MinGroupSize: 5, Workers: workers}, logger)
}

func TestMineScenario(t *testing.T) {
	res, err := newService(t, 2).Mine(context.Background(), MineRequest{
		Cases:   scenarioDataset(),
		Catalog: scenarioCatalog(t),
	})
	require.NoError(t, err)

	assert.Equal(t, 9, res.RawRows)
	assert.Equal(t, 8, res.Cases, "duplicate line collapses")
	require.Len(t, res.Groups, 2)
	assert.Equal(t, groupA, res.Groups[0].Group, "largest group first")
	assert.Empty(t, res.Groups[0].Skipped)
	assert.NotEmpty(t, res.Groups[1].Skipped, "group below minimum size is skipped")

	modeA := res.RuleSet.Rules(rules.ModeA)
	require.Len(t, modeA, 1, "specialisations with the same matched cases are minimized away")
	assert.Equal(t, "K<3", modeA[0].Description())
	assert.Equal(t, rules.Tally{Up: 4}, modeA[0].Tally)
	assert.Equal(t, 4, res.Groups[0].Accepted[rules.ModeA])
	assert.Equal(t, 1, res.Groups[0].Published[rules.ModeA])

	assert.Empty(t, res.RuleSet.Rules(rules.ModeB))
	assert.Empty(t, res.RuleSet.Rules(rules.ModeVoidOnly))

	sec, ok := res.RuleSet.Section(rules.ModeA)
	require.True(t, ok)
	assert.Equal(t, 5, sec.Coverage.Base)
	assert.Equal(t, 4, sec.Coverage.Covered)

	m := res.RuleSet.Manifest()
	assert.NoError(t, m.Validate())
	assert.Equal(t, []string{"A/0/0"}, m.Groups)
}

func TestMineDeterministic(t *testing.T) {
	catalog := predicate.DefaultCatalog()
	var cases []dataset.Case
	for i := 0; i < 40; i++ {
		o := dataset.OutcomeUp
		switch i % 5 {
		case 3:
			o = dataset.OutcomeDown
		case 4:
			o = dataset.OutcomeVoid
		}
		cases = append(cases, dataset.Case{
			Group: groupA,
			Features: map[string]float64{
				"G": 0.7 + float64(i%7)*0.05,
				"K": 2.6 + float64(i%9)*0.1,
				"N": 2.7 + float64(i%4)*0.2,
				"Q": -0.2 + float64(i%6)*0.06,
			},
			Outcome: o,
		})
	}

	run1, err := newService(t, 1).Mine(context.Background(), MineRequest{Cases: cases, Catalog: catalog})
	require.NoError(t, err)
	run2, err := newService(t, 4).Mine(context.Background(), MineRequest{Cases: cases, Catalog: catalog})
	require.NoError(t, err)

	assert.Equal(t, run1.RuleSet.Manifest().Fingerprint, run2.RuleSet.Manifest().Fingerprint)
	for _, mode := range run1.RuleSet.Modes() {
		a, b := run1.RuleSet.Rules(mode), run2.RuleSet.Rules(mode)
		require.Equal(t, len(a), len(b), mode)
		for i := range a {
			assert.Equal(t, a[i].Key(), b[i].Key())
			assert.Equal(t, a[i].Tally, b[i].Tally)
		}

		// no two published rules of a group share a matched case set
		seen := map[string]bool{}
		for _, r := range a {
			k := r.Group.String() + r.Outcomes.ID().String()
			assert.False(t, seen[k], "duplicate outcome set in %s", mode)
			seen[k] = true
		}
	}
}

func TestMineVoidOnly(t *testing.T) {
	cases := []dataset.Case{
		mkCase(groupV, 2.5, 0.9, dataset.OutcomeUp),
		mkCase(groupV, 2.6, 0.9, dataset.OutcomeUp),
		mkCase(groupV, 2.7, 0.9, dataset.OutcomeDown),
		mkCase(groupV, 4.0, 0.9, dataset.OutcomeVoid),
		mkCase(groupV, 4.1, 0.9, dataset.OutcomeVoid),
		mkCase(groupV, 4.2, 0.9, dataset.OutcomeVoid),
	}
	res, err := newService(t, 1).Mine(context.Background(), MineRequest{Cases: cases, Catalog: scenarioCatalog(t)})
	require.NoError(t, err)

	voids := res.RuleSet.Rules(rules.ModeVoidOnly)
	require.Len(t, voids, 1)
	assert.Equal(t, "K>3.4", voids[0].Description())
	assert.Equal(t, dataset.OutcomeVoid, voids[0].Predicted)
	assert.Empty(t, res.RuleSet.Rules(rules.ModeA))
}

func TestMineTargetGroups(t *testing.T) {
	res, err := newService(t, 1).Mine(context.Background(), MineRequest{
		Cases:   scenarioDataset(),
		Catalog: scenarioCatalog(t),
		Groups:  []dataset.Group{groupB, dataset.NewGroup("Z", "1", "1")},
	})
	require.NoError(t, err)
	require.Len(t, res.Groups, 2)
	assert.Equal(t, groupB, res.Groups[0].Group)
	assert.NotEmpty(t, res.Groups[0].Skipped)
	assert.Zero(t, res.Groups[1].Cases)
	assert.Zero(t, res.RuleSet.Count(rules.ModeA))
}

func TestMineRepeatedTargetGroups(t *testing.T) {
	tests := []struct {
		name   string
		groups []dataset.Group
		want   []dataset.Group
	}{
		{"same group twice", []dataset.Group{groupA, groupA}, []dataset.Group{groupA}},
		{"first occurrence wins", []dataset.Group{groupB, groupA, groupB, groupA}, []dataset.Group{groupB, groupA}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newService(t, 2).Mine(context.Background(), MineRequest{
				Cases:   scenarioDataset(),
				Catalog: scenarioCatalog(t),
				Groups:  tt.groups,
			})
			require.NoError(t, err)
			require.Len(t, res.Groups, len(tt.want))
			for i, g := range tt.want {
				assert.Equal(t, g, res.Groups[i].Group)
			}

			modeA := res.RuleSet.Rules(rules.ModeA)
			require.Len(t, modeA, 1)
			assert.Equal(t, "K<3", modeA[0].Description())
			assert.Equal(t, 1, res.RuleSet.Count(rules.ModeA))
			assert.Equal(t, []string{"A/0/0"}, res.RuleSet.Manifest().Groups)
		})
	}
}

func TestMineFailures(t *testing.T) {
	svc := newService(t, 1)

	_, err := svc.Mine(context.Background(), MineRequest{Cases: scenarioDataset()})
	assert.ErrorIs(t, err, core.ErrInvalidPolicy)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Mine(ctx, MineRequest{Cases: scenarioDataset(), Catalog: scenarioCatalog(t)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecheckDetectsDrift(t *testing.T) {
	svc := newService(t, 1)
	part := dataset.NewPartition(dataset.Dedupe(scenarioDataset()))
	conj := predicate.Conjunction{scenarioCatalog(t).At(0)}

	r, ok := rules.NewRule(groupA, conj, part.Cases(groupA), rules.PlainModeA{}, 0)
	require.True(t, ok)
	require.NoError(t, svc.recheck(part, []rules.Rule{r}, rules.PlainModeA{}))

	r.Tally.Up++
	err := svc.recheck(part, []rules.Rule{r}, rules.PlainModeA{})
	assert.True(t, errors.Is(err, core.ErrInconsistentTally))
}
