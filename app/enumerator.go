package app

import (
	"gonum.org/v1/gonum/stat/combin"

	"oddsrules/domain/predicate"
)

// MaxConjunctionSize is the largest conjunction the engine enumerates
const MaxConjunctionSize = 3

// Enumerator lazily walks every conjunction of 1..maxSize catalog predicates
// over distinct features. Sizes ascend; within a size, combinations follow
// catalog order lexicographically. The sequence is finite and restartable.
type Enumerator struct {
	catalog *predicate.Catalog
	maxSize int

	k    int
	gen  *combin.CombinationGenerator
	idx  []int
	cur  predicate.Conjunction
	seq  int
	done bool
}

// NewEnumerator creates an enumerator; maxSize is clamped to 1..MaxConjunctionSize
func NewEnumerator(catalog *predicate.Catalog, maxSize int) *Enumerator {
	if maxSize < 1 {
		maxSize = 1
	}
	if maxSize > MaxConjunctionSize {
		maxSize = MaxConjunctionSize
	}
	e := &Enumerator{catalog: catalog, maxSize: maxSize}
	e.Reset()
	return e
}

// Reset rewinds to the start of the sequence
func (e *Enumerator) Reset() {
	e.k = 0
	e.gen = nil
	e.cur = nil
	e.seq = -1
	e.done = false
}

// Next advances to the next valid conjunction and reports whether one exists
func (e *Enumerator) Next() bool {
	if e.done {
		return false
	}
	n := e.catalog.Len()
	for {
		if e.gen == nil || !e.gen.Next() {
			e.k++
			if e.k > e.maxSize || e.k > n {
				e.done = true
				e.cur = nil
				return false
			}
			e.gen = combin.NewCombinationGenerator(n, e.k)
			e.idx = make([]int, e.k)
			continue
		}
		e.idx = e.gen.Combination(e.idx)
		if !e.distinct() {
			continue
		}
		conj := make(predicate.Conjunction, e.k)
		for i, j := range e.idx {
			conj[i] = e.catalog.At(j)
		}
		e.cur = conj
		e.seq++
		return true
	}
}

func (e *Enumerator) distinct() bool {
	for a := 0; a < len(e.idx); a++ {
		fa := e.catalog.At(e.idx[a]).Feature
		for b := a + 1; b < len(e.idx); b++ {
			if fa == e.catalog.At(e.idx[b]).Feature {
				return false
			}
		}
	}
	return true
}

// Conjunction returns the current conjunction. The slice is owned by the caller.
func (e *Enumerator) Conjunction() predicate.Conjunction { return e.cur }

// Seq is the zero-based position of the current conjunction in the sequence
func (e *Enumerator) Seq() int { return e.seq }

// CountConjunctions returns the length of the full sequence
func CountConjunctions(catalog *predicate.Catalog, maxSize int) int {
	e := NewEnumerator(catalog, maxSize)
	n := 0
	for e.Next() {
		n++
	}
	return n
}
