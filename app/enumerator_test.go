package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oddsrules/domain/predicate"
)

func smallCatalog(t *testing.T) *predicate.Catalog {
	t.Helper()
	c, skipped := predicate.NewCatalog([]predicate.Predicate{
		{Name: "K<3", Feature: "K", Op: predicate.OpLT, Threshold: 3},
		{Name: "K≥2.8", Feature: "K", Op: predicate.OpGE, Threshold: 2.8},
		{Name: "G>0.8", Feature: "G", Op: predicate.OpGT, Threshold: 0.8},
		{Name: "N<3", Feature: "N", Op: predicate.OpLT, Threshold: 3},
	})
	require.Empty(t, skipped)
	return c
}

func collect(e *Enumerator) []string {
	var out []string
	for e.Next() {
		out = append(out, e.Conjunction().Description())
	}
	return out
}

func TestEnumeratorOrderAndDistinctFeatures(t *testing.T) {
	got := collect(NewEnumerator(smallCatalog(t), 3))
	assert.Equal(t, []string{
		"K<3", "K≥2.8", "G>0.8", "N<3",
		"K<3 & G>0.8", "K<3 & N<3", "K≥2.8 & G>0.8", "K≥2.8 & N<3", "G>0.8 & N<3",
		"K<3 & G>0.8 & N<3", "K≥2.8 & G>0.8 & N<3",
	}, got)
}

func TestEnumeratorRestartable(t *testing.T) {
	e := NewEnumerator(smallCatalog(t), 2)
	first := collect(e)
	assert.False(t, e.Next(), "exhausted enumerator stays exhausted")

	e.Reset()
	assert.Equal(t, first, collect(e))
}

func TestEnumeratorSeqAndOwnership(t *testing.T) {
	e := NewEnumerator(smallCatalog(t), 1)
	require.True(t, e.Next())
	held := e.Conjunction()
	assert.Equal(t, 0, e.Seq())
	require.True(t, e.Next())
	assert.Equal(t, 1, e.Seq())
	assert.Equal(t, "K<3", held.Description(), "earlier conjunctions are not overwritten")
}

func TestEnumeratorClampsSize(t *testing.T) {
	c := smallCatalog(t)
	assert.Equal(t, 4, CountConjunctions(c, 0))
	assert.Equal(t, 11, CountConjunctions(c, 9))

	empty, _ := predicate.NewCatalog(nil)
	assert.Zero(t, CountConjunctions(empty, 3))
}

func TestEnumeratorDefaultCatalogSize(t *testing.T) {
	// 58 singles, 1418 pairs and 18944 triples over distinct features
	assert.Equal(t, 20420, CountConjunctions(predicate.DefaultCatalog(), 3))
}
