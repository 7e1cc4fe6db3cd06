package predicate

import (
	"oddsrules/domain/core"
)

// Catalog is the ordered, immutable set of predicates the enumerator draws from.
// Order is part of the configuration: enumeration and tie-breaks follow it.
type Catalog struct {
	preds    []Predicate
	features []string
}

// NewCatalog validates preds and keeps the sound ones in order. Rejected entries
// are returned as unparsable-predicate errors for the caller to log.
func NewCatalog(preds []Predicate) (*Catalog, []error) {
	c := &Catalog{}
	var skipped []error
	seenFeature := make(map[string]struct{})
	for _, p := range preds {
		if err := p.Validate(); err != nil {
			skipped = append(skipped, core.NewUnparsablePredicateError(p.Name, p.Condition(), err))
			continue
		}
		c.preds = append(c.preds, p)
		if _, ok := seenFeature[p.Feature]; !ok {
			seenFeature[p.Feature] = struct{}{}
			c.features = append(c.features, p.Feature)
		}
	}
	return c, skipped
}

// Len returns the number of predicates
func (c *Catalog) Len() int { return len(c.preds) }

// At returns the i-th predicate
func (c *Catalog) At(i int) Predicate { return c.preds[i] }

// All returns a copy of the predicates in catalog order
func (c *Catalog) All() []Predicate {
	out := make([]Predicate, len(c.preds))
	copy(out, c.preds)
	return out
}

// Features returns tested features in first-appearance order
func (c *Catalog) Features() []string {
	out := make([]string, len(c.features))
	copy(out, c.features)
	return out
}

// ByFeature returns the predicates testing feature, in catalog order
func (c *Catalog) ByFeature(feature string) []Predicate {
	var out []Predicate
	for _, p := range c.preds {
		if p.Feature == feature {
			out = append(out, p)
		}
	}
	return out
}

func lt(name, feature string, v float64) Predicate {
	return Predicate{Name: name, Feature: feature, Op: OpLT, Threshold: v}
}
func le(name, feature string, v float64) Predicate {
	return Predicate{Name: name, Feature: feature, Op: OpLE, Threshold: v}
}
func gt(name, feature string, v float64) Predicate {
	return Predicate{Name: name, Feature: feature, Op: OpGT, Threshold: v}
}
func ge(name, feature string, v float64) Predicate {
	return Predicate{Name: name, Feature: feature, Op: OpGE, Threshold: v}
}
func between(name, feature string, lo, hi float64) Predicate {
	return Predicate{Name: name, Feature: feature, Op: OpRange, Lo: lo, Hi: hi}
}

// DefaultPredicates is the built-in catalog over the red columns G, I, K, N, P, Q, R.
// Display names are kept as the analysts wrote them even where the operator is
// inclusive (e.g. "G<0.75" tests G <= 0.75).
func DefaultPredicates() []Predicate {
	return []Predicate{
		// G: market water
		le("G<0.75", "G", 0.75), le("G<0.8", "G", 0.8), lt("G<0.9", "G", 0.9), le("G<0.95", "G", 0.95), lt("G<0.99", "G", 0.99),
		gt("G>0.8", "G", 0.8), gt("G>0.89", "G", 0.89), ge("G≥1.0", "G", 1.0),
		between("G(0.89~0.99)", "G", 0.89, 0.99),
		// I: water spread
		le("I≤-0.08", "I", -0.08), lt("I<-0.05", "I", -0.05), lt("I<0", "I", 0),
		ge("I≥2", "I", 2.0), ge("I≥3", "I", 3.0), le("I<2", "I", 1.99),
		between("I(-0.03~-0.01)", "I", -0.03, -0.01),
		// K: home odds
		lt("K<2.75", "K", 2.75), lt("K<2.9", "K", 2.9), lt("K<3", "K", 3.0),
		ge("K≥2.8", "K", 2.8), ge("K≥3.0", "K", 3.0), gt("K>3.1", "K", 3.1), ge("K≥3.1", "K", 3.1),
		gt("K>3.25", "K", 3.25), gt("K>3.3", "K", 3.3), gt("K>3.4", "K", 3.4),
		between("K(2.9~3)", "K", 2.9, 3.0), between("K(3.2~3.35)", "K", 3.2, 3.35),
		// N: draw odds
		lt("N<2.75", "N", 2.75), lt("N<2.9", "N", 2.9), lt("N<3", "N", 3.0),
		ge("N≥2.8", "N", 2.8), ge("N≥3.0", "N", 3.0), gt("N>3.1", "N", 3.1), ge("N≥3.1", "N", 3.1),
		gt("N>3.25", "N", 3.25), gt("N>3.3", "N", 3.3), gt("N>3.4", "N", 3.4),
		between("N(2.9~3)", "N", 2.9, 3.0), between("N(3.2~3.35)", "N", 3.2, 3.35),
		// P: home spread
		lt("P<0", "P", 0), gt("P>0", "P", 0), ge("P≥0", "P", 0), le("P≤0", "P", 0),
		between("P(-0.15~-0.06)", "P", -0.15, -0.06),
		// Q: draw spread
		lt("Q<-0.17", "Q", -0.17), lt("Q<-0.05", "Q", -0.05), le("Q≤-0.05", "Q", -0.05), lt("Q<0", "Q", 0),
		gt("Q>0", "Q", 0), gt("Q>0.05", "Q", 0.05), gt("Q>0.1", "Q", 0.1),
		// R: away spread
		lt("R<-0.05", "R", -0.05), le("R≤-0.05", "R", -0.05), lt("R<0", "R", 0),
		gt("R>0", "R", 0), gt("R>0.05", "R", 0.05),
		between("R(-0.13~-0.11)", "R", -0.13, -0.11),
	}
}

// DefaultCatalog returns the built-in catalog
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog(DefaultPredicates())
	return c
}
