package dataset

import (
	"strconv"
	"strings"
)

// Schema maps raw spreadsheet columns onto the Case model
type Schema struct {
	GroupColumns   [3]string
	OutcomeColumn  string
	OutcomeLabels  map[string]Outcome
	FeatureColumns []string
	AuxColumns     []string
	// AlignedOnly keeps only rows whose two sub-codes are equal
	AlignedOnly bool
}

// DefaultSchema returns the column layout of the odds workbook
func DefaultSchema() Schema {
	return Schema{
		GroupColumns:  [3]string{"B", "D", "F"},
		OutcomeColumn: "U",
		OutcomeLabels: map[string]Outcome{
			"上": OutcomeUp,
			"下": OutcomeDown,
			"走": OutcomeVoid,
		},
		FeatureColumns: []string{"E", "G", "H", "I", "K", "N", "P", "Q", "R"},
		AuxColumns:     []string{"S", "T"},
		AlignedOnly:    true,
	}
}

// HasFeature reports whether name is one of the schema's numeric features
func (s Schema) HasFeature(name string) bool {
	for _, f := range s.FeatureColumns {
		if f == name {
			return true
		}
	}
	return false
}

// ParseOutcome maps a raw label onto an Outcome
func (s Schema) ParseOutcome(raw string) Outcome {
	if o, ok := s.OutcomeLabels[strings.TrimSpace(raw)]; ok {
		return o
	}
	return OutcomeUnknown
}

// Label returns the raw label used for o, or the outcome name when unmapped
func (s Schema) Label(o Outcome) string {
	best := ""
	for label, mapped := range s.OutcomeLabels {
		if mapped == o && (best == "" || label < best) {
			best = label
		}
	}
	if best == "" {
		return string(o)
	}
	return best
}

// NormalizeRow converts raw cells into a Case. Blank cells become null, numeric
// text becomes float64, categorical cells are trimmed. The outcome is left
// OutcomeUnknown when the cell is not one of the configured labels.
func (s Schema) NormalizeRow(cells map[string]string) Case {
	c := Case{
		Group: NewGroup(
			cells[s.GroupColumns[0]],
			cells[s.GroupColumns[1]],
			cells[s.GroupColumns[2]],
		),
		Features: make(map[string]float64, len(s.FeatureColumns)),
		Outcome:  s.ParseOutcome(cells[s.OutcomeColumn]),
	}
	for _, col := range s.FeatureColumns {
		if v, ok := ParseNumber(cells[col]); ok {
			c.Features[col] = v
		}
	}
	if len(s.AuxColumns) > 0 {
		c.Aux = make(map[string]float64, len(s.AuxColumns))
		for _, col := range s.AuxColumns {
			if v, ok := ParseNumber(cells[col]); ok {
				c.Aux[col] = v
			}
		}
	}
	return c
}

// Aligned reports whether the case's two sub-codes match
func (s Schema) Aligned(c Case) bool {
	return c.Group[1] == c.Group[2]
}

// ParseNumber parses numeric-looking text; blank or non-numeric yields false
func ParseNumber(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
