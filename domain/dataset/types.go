package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// Outcome is the settled result of one case
type Outcome string

const (
	OutcomeUp   Outcome = "up"
	OutcomeDown Outcome = "down"
	OutcomeVoid Outcome = "void"
	// OutcomeUnknown marks query cases whose result is not known yet
	OutcomeUnknown Outcome = ""
)

// Valid reports whether o is one of the three settled labels
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeUp, OutcomeDown, OutcomeVoid:
		return true
	}
	return false
}

// Group is the 3-part categorical key (side, first sub-code, second sub-code)
type Group [3]string

// NewGroup builds a group from trimmed parts
func NewGroup(side, first, second string) Group {
	return Group{strings.TrimSpace(side), strings.TrimSpace(first), strings.TrimSpace(second)}
}

// ParseGroup parses the "side/first/second" form used in config and reports
func ParseGroup(s string) (Group, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Group{}, fmt.Errorf("group %q must have the form side/code/code", s)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return Group{}, fmt.Errorf("group %q has an empty part", s)
		}
	}
	return NewGroup(parts[0], parts[1], parts[2]), nil
}

func (g Group) String() string {
	return g[0] + "/" + g[1] + "/" + g[2]
}

// Case is one observed row after normalisation. Features absent from the map are null.
type Case struct {
	Group    Group
	Features map[string]float64
	Outcome  Outcome
	// Aux holds display-only numeric fields; never part of the case identity
	Aux map[string]float64
	// Row is the 1-based source row, 0 when the case did not come from a file
	Row int
}

// Feature returns the named feature value and whether it is present
func (c Case) Feature(name string) (float64, bool) {
	v, ok := c.Features[name]
	return v, ok
}

// FeatureNames returns the present feature names in sorted order
func (c Case) FeatureNames() []string {
	names := make([]string, 0, len(c.Features))
	for name := range c.Features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
