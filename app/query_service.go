package app

import (
	"fmt"

	"oddsrules/domain/core"
	"oddsrules/domain/dataset"
	"oddsrules/domain/rules"
)

// QueryService answers single-case lookups against one immutable rule set.
// It never recomputes rules and is safe for concurrent use.
type QueryService struct {
	ruleSet *rules.RuleSet
	schema  dataset.Schema
	limit   int
}

// ModeResult is the per-mode answer to a query
type ModeResult struct {
	Mode    rules.Mode   `json:"mode"`
	Title   string       `json:"title"`
	Matched bool         `json:"matched"`
	Count   int          `json:"count"`
	Rules   []rules.Rule `json:"-"`
}

// QueryResult is the full answer to a query
type QueryResult struct {
	Case   dataset.Case
	Modes  []ModeResult
	Manual []rules.ManualRule
}

// NewQueryService creates a query service; limit <= 0 returns every match
func NewQueryService(rs *rules.RuleSet, schema dataset.Schema, limit int) *QueryService {
	return &QueryService{ruleSet: rs, schema: schema, limit: limit}
}

// RuleSet exposes the shared rule set
func (q *QueryService) RuleSet() *rules.RuleSet { return q.ruleSet }

// CheckRow normalizes a raw row keyed by column and matches it
func (q *QueryService) CheckRow(cells map[string]string) (*QueryResult, error) {
	c := q.schema.NormalizeRow(cells)
	c.Outcome = dataset.OutcomeUnknown
	return q.CheckCase(c)
}

// CheckCase matches one case. Count reports every match; Rules holds the
// strongest ones up to the limit.
func (q *QueryService) CheckCase(c dataset.Case) (*QueryResult, error) {
	if c.Group[0] == "" {
		return nil, fmt.Errorf("%w: query case has no group", core.ErrInvalidQuery)
	}
	res := &QueryResult{Case: c, Manual: q.ruleSet.MatchManual(c)}
	for _, m := range q.ruleSet.Match(c) {
		rules.SortByScore(m.Rules)
		mr := ModeResult{Mode: m.Mode, Title: m.Mode.Title(), Matched: len(m.Rules) > 0, Count: len(m.Rules), Rules: m.Rules}
		if q.limit > 0 && len(mr.Rules) > q.limit {
			mr.Rules = mr.Rules[:q.limit]
		}
		res.Modes = append(res.Modes, mr)
	}
	return res, nil
}
