package export

import (
	"fmt"
	"math"
	"time"

	"oddsrules/domain/core"
	"oddsrules/domain/dataset"
	"oddsrules/domain/predicate"
	"oddsrules/domain/rules"
	"oddsrules/domain/run"
)

// Document is the rules.json layout. Every rule carries its raw conjunction so
// a consumer can re-evaluate it against a new case without re-mining.
type Document struct {
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Fingerprint run.Fingerprint `json:"fingerprint"`
	Groups      []string        `json:"groups"`
	CaseCount   int             `json:"case_count"`
	Meta        Meta            `json:"meta"`
	Modes       []ModeDoc       `json:"modes"`
	Manual      []ManualDoc     `json:"manual,omitempty"`
}

// Meta summarises the document
type Meta struct {
	Counts      map[string]int    `json:"counts"`
	Policies    map[string]string `json:"policies"`
	CatalogSize int               `json:"catalog_size"`
	Epsilon     float64           `json:"epsilon"`
}

// ModeDoc is one published mode
type ModeDoc struct {
	Mode        string      `json:"mode"`
	Title       string      `json:"title"`
	Policy      string      `json:"policy"`
	Description string      `json:"description"`
	Coverage    CoverageDoc `json:"coverage"`
	Rules       []RuleDoc   `json:"rules"`
}

// CoverageDoc is the exported coverage of a mode
type CoverageDoc struct {
	Base    int      `json:"base"`
	Covered int      `json:"covered"`
	Percent float64  `json:"percent"`
	Tally   TallyDoc `json:"tally"`
}

// RuleDoc is one exported rule
type RuleDoc struct {
	Group       string         `json:"group"`
	Description string         `json:"description"`
	Conditions  []ConditionDoc `json:"conditions"`
	Predicates  int            `json:"predicates"`
	Tally       TallyDoc       `json:"tally"`
	Predicted   string         `json:"predicted"`
	Score       float64        `json:"score"`
	OutcomeSet  string         `json:"outcome_set"`
	Seq         int            `json:"seq"`
}

// ConditionDoc is one machine-checkable predicate
type ConditionDoc struct {
	Name      string   `json:"name"`
	Feature   string   `json:"feature"`
	Op        string   `json:"op"`
	Threshold *float64 `json:"threshold,omitempty"`
	Lo        *float64 `json:"lo,omitempty"`
	Hi        *float64 `json:"hi,omitempty"`
}

// TallyDoc carries raw counts plus the derived statistics used for acceptance
type TallyDoc struct {
	Up            int     `json:"up"`
	Down          int     `json:"down"`
	Void          int     `json:"void"`
	Total         int     `json:"total"`
	Effective     int     `json:"effective"`
	Dominant      string  `json:"dominant"`
	Concentration float64 `json:"concentration"`
	UpRatio       float64 `json:"up_ratio"`
	DownRatio     float64 `json:"down_ratio"`
	VoidRatio     float64 `json:"void_ratio"`
}

// ManualDoc is one recounted manual rule
type ManualDoc struct {
	Group      string         `json:"group"`
	Conditions []ConditionDoc `json:"conditions"`
	Prediction string         `json:"prediction"`
	Expected   TallyDoc       `json:"expected"`
	Recount    TallyDoc       `json:"recount"`
	Consistent bool           `json:"consistent"`
	Skipped    []string       `json:"skipped,omitempty"`
	Row        int            `json:"row"`
}

// round2 rounds for display; acceptance always used the unrounded values
func round2(v float64) float64 { return math.Round(v*100) / 100 }

func tallyDoc(t rules.Tally) TallyDoc {
	return TallyDoc{
		Up:            t.Up,
		Down:          t.Down,
		Void:          t.Void,
		Total:         t.Total(),
		Effective:     t.Effective(),
		Dominant:      string(t.Dominant()),
		Concentration: round2(t.Concentration()),
		UpRatio:       round2(t.Share(dataset.OutcomeUp)),
		DownRatio:     round2(t.Share(dataset.OutcomeDown)),
		VoidRatio:     round2(t.Share(dataset.OutcomeVoid)),
	}
}

func conditionDocs(cj predicate.Conjunction) []ConditionDoc {
	out := make([]ConditionDoc, len(cj))
	for i, p := range cj {
		d := ConditionDoc{Name: p.Label(), Feature: p.Feature, Op: string(p.Op)}
		if p.Op == predicate.OpRange {
			lo, hi := p.Lo, p.Hi
			d.Lo, d.Hi = &lo, &hi
		} else {
			th := p.Threshold
			d.Threshold = &th
		}
		out[i] = d
	}
	return out
}

// NewRuleDoc projects one rule
func NewRuleDoc(r rules.Rule) RuleDoc {
	return RuleDoc{
		Group:       r.Group.String(),
		Description: r.Description(),
		Conditions:  conditionDocs(r.Conjunction),
		Predicates:  r.Size(),
		Tally:       tallyDoc(r.Tally),
		Predicted:   string(r.Predicted),
		Score:       r.Score,
		OutcomeSet:  r.Outcomes.ID().String(),
		Seq:         r.Seq,
	}
}

// NewManualDoc projects one recounted manual rule
func NewManualDoc(mr rules.ManualRule) ManualDoc {
	return ManualDoc{
		Group:      mr.Group.String(),
		Conditions: conditionDocs(mr.Conjunction),
		Prediction: mr.Prediction,
		Expected:   tallyDoc(mr.Expected),
		Recount:    tallyDoc(mr.Recount),
		Consistent: mr.Consistent(),
		Skipped:    mr.Skipped,
		Row:        mr.Row,
	}
}

// NewDocument projects a rule set into its export form
func NewDocument(rs *rules.RuleSet) *Document {
	m := rs.Manifest()
	doc := &Document{
		RunID:       m.RunID.String(),
		GeneratedAt: m.CreatedAt,
		Fingerprint: m.Fingerprint,
		Groups:      m.Groups,
		CaseCount:   m.CaseCount,
		Meta: Meta{
			Counts:      make(map[string]int),
			Policies:    make(map[string]string),
			CatalogSize: m.CatalogSize,
			Epsilon:     predicate.Epsilon,
		},
	}
	for _, s := range rs.Sections() {
		md := ModeDoc{
			Mode:        string(s.Mode),
			Title:       s.Mode.Title(),
			Policy:      s.Policy,
			Description: s.Description,
			Coverage: CoverageDoc{
				Base:    s.Coverage.Base,
				Covered: s.Coverage.Covered,
				Percent: round2(s.Coverage.Percent()),
				Tally:   tallyDoc(s.Coverage.Tally),
			},
			Rules: make([]RuleDoc, 0, len(s.Rules)),
		}
		for _, r := range s.Rules {
			md.Rules = append(md.Rules, NewRuleDoc(r))
		}
		doc.Meta.Counts[md.Mode] = len(md.Rules)
		doc.Meta.Policies[md.Mode] = s.Policy
		doc.Modes = append(doc.Modes, md)
	}
	for _, mr := range rs.Manual() {
		doc.Manual = append(doc.Manual, NewManualDoc(mr))
	}
	return doc
}

// RuleSet rebuilds the immutable rule set a document was exported from
func (d *Document) RuleSet() (*rules.RuleSet, error) {
	if _, err := core.ParseRunID(d.RunID); err != nil {
		return nil, fmt.Errorf("%w: run_id %q: %v", core.ErrInvalidRuleSet, d.RunID, err)
	}
	manifest := run.Manifest{
		RunID:       core.RunID(d.RunID),
		Fingerprint: d.Fingerprint,
		Groups:      d.Groups,
		CaseCount:   d.CaseCount,
		CatalogSize: d.Meta.CatalogSize,
		CreatedAt:   d.GeneratedAt,
	}

	sections := make([]rules.Section, 0, len(d.Modes))
	for _, md := range d.Modes {
		mode := rules.Mode(md.Mode)
		switch mode {
		case rules.ModeA, rules.ModeB, rules.ModeVoidOnly:
		default:
			return nil, fmt.Errorf("%w: unknown mode %q", core.ErrInvalidRuleSet, md.Mode)
		}
		sec := rules.Section{
			Mode:        mode,
			Policy:      md.Policy,
			Description: md.Description,
			Coverage: rules.Coverage{
				Base:    md.Coverage.Base,
				Covered: md.Coverage.Covered,
				Tally:   tallyFromDoc(md.Coverage.Tally),
			},
		}
		for i, rd := range md.Rules {
			g, err := dataset.ParseGroup(rd.Group)
			if err != nil {
				return nil, fmt.Errorf("%w: %s rule %d: %v", core.ErrInvalidRuleSet, md.Mode, i, err)
			}
			conj, err := conjunctionFromDocs(rd.Conditions)
			if err != nil {
				return nil, fmt.Errorf("%w: %s rule %d: %v", core.ErrInvalidRuleSet, md.Mode, i, err)
			}
			t := tallyFromDoc(rd.Tally)
			sec.Rules = append(sec.Rules, rules.Rule{
				Group:       g,
				Conjunction: conj,
				Tally:       t,
				Outcomes:    dataset.RestoreOutcomeSet(core.Hash(rd.OutcomeSet), t.Total()),
				Mode:        mode,
				Predicted:   dataset.Outcome(rd.Predicted),
				Score:       rd.Score,
				Seq:         rd.Seq,
			})
		}
		sections = append(sections, sec)
	}

	var manual []rules.ManualRule
	for i, md := range d.Manual {
		g, err := dataset.ParseGroup(md.Group)
		if err != nil {
			return nil, fmt.Errorf("%w: manual rule %d: %v", core.ErrInvalidRuleSet, i, err)
		}
		conj, err := conjunctionFromDocs(md.Conditions)
		if err != nil {
			return nil, fmt.Errorf("%w: manual rule %d: %v", core.ErrInvalidRuleSet, i, err)
		}
		manual = append(manual, rules.ManualRule{
			Group:       g,
			Conjunction: conj,
			Prediction:  md.Prediction,
			Expected:    tallyFromDoc(md.Expected),
			Recount:     tallyFromDoc(md.Recount),
			Skipped:     md.Skipped,
			Row:         md.Row,
		})
	}
	return rules.NewRuleSet(manifest, sections, manual), nil
}

func tallyFromDoc(t TallyDoc) rules.Tally {
	return rules.Tally{Up: t.Up, Down: t.Down, Void: t.Void}
}

func conjunctionFromDocs(docs []ConditionDoc) (predicate.Conjunction, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("no conditions")
	}
	conj := make(predicate.Conjunction, 0, len(docs))
	for _, d := range docs {
		p := predicate.Predicate{Name: d.Name, Feature: d.Feature, Op: predicate.Operator(d.Op)}
		if p.Op == predicate.OpRange {
			if d.Lo == nil || d.Hi == nil {
				return nil, fmt.Errorf("condition %q needs lo and hi", d.Name)
			}
			p.Lo, p.Hi = *d.Lo, *d.Hi
		} else {
			if d.Threshold == nil {
				return nil, fmt.Errorf("condition %q needs a threshold", d.Name)
			}
			p.Threshold = *d.Threshold
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		conj = append(conj, p)
	}
	if !conj.DistinctFeatures() {
		return nil, fmt.Errorf("conditions repeat a feature")
	}
	return conj, nil
}
