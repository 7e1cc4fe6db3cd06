package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oddsrules/domain/core"
	"oddsrules/domain/dataset"
)

func caseWith(features map[string]float64) dataset.Case {
	return dataset.Case{Group: dataset.NewGroup("主", "0", "0"), Features: features}
}

func TestHoldsTolerance(t *testing.T) {
	tests := []struct {
		name string
		p    Predicate
		v    float64
		want bool
	}{
		{"ge exact", Predicate{Op: OpGE, Threshold: 3.0}, 3.0, true},
		{"ge within epsilon below", Predicate{Op: OpGE, Threshold: 3.0}, 3.0 - 1e-12, true},
		{"ge clearly below", Predicate{Op: OpGE, Threshold: 3.0}, 2.99, false},
		{"le float noise", Predicate{Op: OpLE, Threshold: 0.3}, 0.1 + 0.2, true},
		{"gt exact fails", Predicate{Op: OpGT, Threshold: 3.1}, 3.1, false},
		{"gt within epsilon fails", Predicate{Op: OpGT, Threshold: 3.1}, 3.1 + 1e-12, false},
		{"gt above", Predicate{Op: OpGT, Threshold: 3.1}, 3.11, true},
		{"lt exact fails", Predicate{Op: OpLT, Threshold: 3.0}, 3.0, false},
		{"lt below", Predicate{Op: OpLT, Threshold: 3.0}, 2.9, true},
		{"range low edge", Predicate{Op: OpRange, Lo: 2.9, Hi: 3.0}, 2.9, true},
		{"range high edge noise", Predicate{Op: OpRange, Lo: 2.9, Hi: 3.0}, 3.0 + 1e-12, true},
		{"range outside", Predicate{Op: OpRange, Lo: 2.9, Hi: 3.0}, 3.01, false},
		{"unknown op", Predicate{Op: "!="}, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Holds(tt.v))
		})
	}
}

func TestEvaluateMissingFeature(t *testing.T) {
	p := Predicate{Name: "K<3", Feature: "K", Op: OpLT, Threshold: 3}
	assert.False(t, p.Evaluate(caseWith(map[string]float64{"N": 1})))
	assert.True(t, p.Evaluate(caseWith(map[string]float64{"K": 2.5})))
}

func TestConjunction(t *testing.T) {
	k := Predicate{Name: "K<3", Feature: "K", Op: OpLT, Threshold: 3}
	g := Predicate{Name: "G>0.8", Feature: "G", Op: OpGT, Threshold: 0.8}
	k2 := Predicate{Name: "K≥2.8", Feature: "K", Op: OpGE, Threshold: 2.8}

	cj := Conjunction{k, g}
	assert.True(t, cj.DistinctFeatures())
	assert.False(t, Conjunction{k, k2}.DistinctFeatures())
	assert.Equal(t, "K<3 & G>0.8", cj.Description())
	assert.Equal(t, "K<3&G>0.8", cj.Key())

	cases := []dataset.Case{
		caseWith(map[string]float64{"K": 2.5, "G": 0.9}),
		caseWith(map[string]float64{"K": 2.5, "G": 0.7}),
		caseWith(map[string]float64{"K": 2.5}),
	}
	assert.Len(t, cj.Filter(cases), 1)
	assert.Len(t, Conjunction{}.Filter(cases), 3)
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	require.Equal(t, 58, c.Len())
	assert.Equal(t, []string{"G", "I", "K", "N", "P", "Q", "R"}, c.Features())
	assert.Equal(t, "G<0.75", c.At(0).Name)
	assert.Equal(t, OpLE, c.At(0).Op)
	assert.Len(t, c.ByFeature("P"), 5)
	assert.Empty(t, c.ByFeature("E"))
}

func TestNewCatalogSkipsInvalid(t *testing.T) {
	c, skipped := NewCatalog([]Predicate{
		{Name: "ok", Feature: "K", Op: OpLT, Threshold: 3},
		{Name: "bad-op", Feature: "K", Op: "?"},
		{Name: "bad-range", Feature: "G", Op: OpRange, Lo: 2, Hi: 1},
		{Name: "no-feature", Op: OpGT},
	})
	assert.Equal(t, 1, c.Len())
	require.Len(t, skipped, 3)
	for _, err := range skipped {
		assert.True(t, core.IsUnparsablePredicate(err))
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		text string
		op   Operator
		th   float64
		lo   float64
		hi   float64
	}{
		{"<3", OpLT, 3, 0, 0},
		{" >= 2 ", OpGE, 2, 0, 0},
		{"≥0.8", OpGE, 0.8, 0, 0},
		{"≦-0.05", OpLE, -0.05, 0, 0},
		{"＞3.1", OpGT, 3.1, 0, 0},
		{"（0.89～0.99）", OpRange, 0, 0.89, 0.99},
		{"-0.11~-0.13", OpRange, 0, -0.13, -0.11},
		{"=0.5", OpRange, 0, 0.5, 0.5},
		{"2.75", OpRange, 0, 2.75, 2.75},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			p, err := Parse("", "K", tt.text)
			require.NoError(t, err)
			assert.Equal(t, "K", p.Feature)
			assert.Equal(t, tt.op, p.Op)
			assert.InDelta(t, tt.th, p.Threshold, 1e-12)
			assert.InDelta(t, tt.lo, p.Lo, 1e-12)
			assert.InDelta(t, tt.hi, p.Hi, 1e-12)
			assert.NotEmpty(t, p.Name)
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, text := range []string{"", "<", "abc", ">x", "1~2~3", "~"} {
		_, err := Parse("", "K", text)
		assert.Error(t, err, text)
		assert.True(t, core.IsUnparsablePredicate(err), text)
	}
}

func TestConditionRendering(t *testing.T) {
	p, err := Parse("", "G", "(0.89~0.99)")
	require.NoError(t, err)
	assert.Equal(t, "(0.89~0.99)", p.Condition())
	assert.Equal(t, "G(0.89~0.99)", p.Label())
	assert.Equal(t, "<3", Predicate{Op: OpLT, Threshold: 3}.Condition())

	for _, orig := range DefaultPredicates() {
		back, err := Parse(orig.Name, orig.Feature, orig.Condition())
		require.NoError(t, err, orig.Name)
		assert.Equal(t, orig, back, orig.Name)
	}
}
