package app

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oddsrules/domain/core"
	"oddsrules/domain/dataset"
	"oddsrules/domain/rules"
	"oddsrules/domain/run"
	"oddsrules/internal"
	"oddsrules/ports"
)

func TestManualRecount(t *testing.T) {
	svc := NewManualRuleService(dataset.DefaultSchema(), internal.NewWriterLogger(internal.LogLevelDebug, &bytes.Buffer{}))
	specs := []ports.ManualRuleSpec{
		{Group: groupA, Conditions: map[string]string{"K": "<3"}, Prediction: "上", Expected: rules.Tally{Up: 4}, Row: 3},
		{Group: groupA, Conditions: map[string]string{"K": "<x", "G": "＞0.8"}, Prediction: "上", Expected: rules.Tally{Up: 4}, Row: 4},
		{Group: groupA, Conditions: map[string]string{"Z": "<1"}, Row: 5},
		{Group: groupA, Conditions: map[string]string{"K": "abc"}, Row: 6},
		{Group: groupA, Conditions: map[string]string{"K": ">5"}, Row: 7},
	}

	res, err := svc.Recount(context.Background(), specs, scenarioDataset())
	require.NoError(t, err)
	require.Len(t, res.Rules, 3)
	assert.Equal(t, 2, res.Dropped, "rules without a usable condition are dropped")

	first := res.Rules[0]
	assert.True(t, first.Consistent())
	assert.Equal(t, rules.Tally{Up: 4}, first.Recount, "duplicate lines are not counted twice")

	second := res.Rules[1]
	assert.Equal(t, []string{"K<x"}, second.Skipped)
	assert.Equal(t, "G＞0.8", second.Conjunction.Description())
	assert.Equal(t, rules.Tally{Up: 4, Down: 1}, second.Recount)
	assert.False(t, second.Consistent())

	third := res.Rules[2]
	assert.Equal(t, 7, third.Row)
	assert.Equal(t, rules.Tally{}, third.Recount)
	assert.True(t, third.Consistent())

	assert.Equal(t, 1, res.Inconsistent)
	require.Len(t, res.Skipped, 3)
	for _, err := range res.Skipped {
		assert.True(t, core.IsUnparsablePredicate(err))
	}
	assert.ErrorIs(t, res.Skipped[1], core.ErrUnknownFeature)
}

func TestManualRecountDroppedRulesNeverMatch(t *testing.T) {
	svc := NewManualRuleService(dataset.DefaultSchema(), internal.NewWriterLogger(internal.LogLevelDebug, &bytes.Buffer{}))
	tests := []struct {
		name       string
		conditions map[string]string
	}{
		{"unparsable", map[string]string{"K": "abc"}},
		{"unknown feature", map[string]string{"Z": "<1"}},
		{"both", map[string]string{"K": "abc", "Z": "<1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs := []ports.ManualRuleSpec{{Group: groupA, Conditions: tt.conditions, Row: 3}}
			res, err := svc.Recount(context.Background(), specs, scenarioDataset())
			require.NoError(t, err)
			assert.Empty(t, res.Rules)
			assert.Equal(t, 1, res.Dropped)
			assert.Len(t, res.Skipped, len(tt.conditions))

			rs := rules.NewRuleSet(run.Manifest{}, nil, res.Rules)
			q := dataset.Case{Group: groupA, Features: map[string]float64{"K": 99}}
			assert.Empty(t, rs.MatchManual(q))
		})
	}
}
