package app

import (
	"context"
	"sort"

	"oddsrules/domain/core"
	"oddsrules/domain/dataset"
	"oddsrules/domain/predicate"
	"oddsrules/domain/rules"
	"oddsrules/internal"
	"oddsrules/ports"
)

// ManualRuleService recounts human-authored rules against the dataset
type ManualRuleService struct {
	schema dataset.Schema
	logger *internal.Logger
}

// ManualRecount is the outcome of one recount pass
type ManualRecount struct {
	Rules        []rules.ManualRule
	Inconsistent int
	Skipped      []error
	// Dropped counts specs left with no parsable condition
	Dropped int
}

// NewManualRuleService creates a manual rule service
func NewManualRuleService(schema dataset.Schema, logger *internal.Logger) *ManualRuleService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ManualRuleService{schema: schema, logger: logger.Named("ManualRules")}
}

// Recount parses each spec's conditions, evaluates them over the deduplicated
// cases of the spec's group and compares with the hand counts. Unparsable
// cells are skipped and reported; the rule keeps its remaining conditions.
// A spec with no condition left is dropped, since it would match every case
// of its group.
func (s *ManualRuleService) Recount(ctx context.Context, specs []ports.ManualRuleSpec, cases []dataset.Case) (*ManualRecount, error) {
	part := dataset.NewPartition(dataset.Dedupe(cases))
	out := &ManualRecount{}

	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mr := rules.ManualRule{Group: spec.Group, Prediction: spec.Prediction, Expected: spec.Expected, Row: spec.Row}

		features := make([]string, 0, len(spec.Conditions))
		for f := range spec.Conditions {
			features = append(features, f)
		}
		sort.Strings(features)

		for _, f := range features {
			text := spec.Conditions[f]
			if !s.schema.HasFeature(f) {
				err := core.NewUnknownFeatureError(f, text)
				out.Skipped = append(out.Skipped, err)
				mr.Skipped = append(mr.Skipped, f+text)
				continue
			}
			p, err := predicate.Parse("", f, text)
			if err != nil {
				out.Skipped = append(out.Skipped, err)
				mr.Skipped = append(mr.Skipped, f+text)
				s.logger.Warn("row %d: skipping condition %s%q: %v", spec.Row, f, text, err)
				continue
			}
			mr.Conjunction = append(mr.Conjunction, p)
		}

		if len(mr.Conjunction) == 0 {
			out.Dropped++
			s.logger.Warn("row %d %s: no usable condition, dropping rule", spec.Row, spec.Group)
			continue
		}
		mr.Recount = rules.NewTally(mr.Conjunction.Filter(part.Cases(spec.Group)))
		if !mr.Consistent() {
			out.Inconsistent++
			s.logger.Debug("row %d %s [%s]: manual %s, recount %s",
				spec.Row, spec.Group, mr.Conjunction.Description(), mr.Expected, mr.Recount)
		}
		out.Rules = append(out.Rules, mr)
	}

	s.logger.Info("recounted %d manual rules, %d disagree with hand counts, %d conditions skipped, %d rules dropped",
		len(out.Rules), out.Inconsistent, len(out.Skipped), out.Dropped)
	return out, nil
}
