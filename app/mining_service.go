package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"oddsrules/domain/core"
	"oddsrules/domain/dataset"
	"oddsrules/domain/predicate"
	"oddsrules/domain/rules"
	"oddsrules/domain/run"
	"oddsrules/internal"
)

// MiningConfig tunes a mining run
type MiningConfig struct {
	MaxPredicates int
	MinGroupSize  int
	Workers       int
}

// MiningService discovers skewed conjunctions per group and publishes one
// minimized rule set per policy
type MiningService struct {
	policies []rules.Policy
	cfg      MiningConfig
	logger   *internal.Logger
}

// MineRequest defines the inputs of one run
type MineRequest struct {
	// Cases are raw rows; the service deduplicates them
	Cases   []dataset.Case
	Catalog *predicate.Catalog
	// Groups to mine in order; empty means every group by descending size
	Groups []dataset.Group
	Manual []rules.ManualRule
}

// GroupSummary reports what happened to one group
type GroupSummary struct {
	Group      dataset.Group      `json:"group"`
	Cases      int                `json:"cases"`
	Candidates int                `json:"candidates"`
	Accepted   map[rules.Mode]int `json:"accepted"`
	Published  map[rules.Mode]int `json:"published"`
	Skipped    string             `json:"skipped,omitempty"`
	RuntimeMs  int64              `json:"runtime_ms"`
}

// MineResult contains the complete output of a run
type MineResult struct {
	RuleSet    *rules.RuleSet `json:"-"`
	Groups     []GroupSummary `json:"groups"`
	RawRows    int            `json:"raw_rows"`
	Cases      int            `json:"cases"`
	Candidates int            `json:"candidates"`
	RuntimeMs  int64          `json:"runtime_ms"`
}

type groupOutcome struct {
	summary GroupSummary
	cases   []dataset.Case
	// per policy, in policy order
	rules [][]rules.Rule
}

// NewMiningService creates a mining service over the given policies (report order)
func NewMiningService(policies []rules.Policy, cfg MiningConfig, logger *internal.Logger) *MiningService {
	if cfg.MaxPredicates < 1 || cfg.MaxPredicates > MaxConjunctionSize {
		cfg.MaxPredicates = MaxConjunctionSize
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &MiningService{policies: policies, cfg: cfg, logger: logger.Named("MiningService")}
}

// Mine runs the full search and returns the published rule set. It either
// completes or fails; no partial rule set is returned.
func (s *MiningService) Mine(ctx context.Context, req MineRequest) (*MineResult, error) {
	start := time.Now()
	if req.Catalog == nil || req.Catalog.Len() == 0 {
		return nil, fmt.Errorf("%w: empty predicate catalog", core.ErrInvalidPolicy)
	}
	if len(s.policies) == 0 {
		return nil, fmt.Errorf("%w: no policies configured", core.ErrInvalidPolicy)
	}

	cases := dataset.Dedupe(req.Cases)
	part := dataset.NewPartition(cases)
	groups := uniqueGroups(req.Groups)
	if len(groups) < len(req.Groups) {
		s.logger.Warn("ignoring %d repeated target groups", len(req.Groups)-len(groups))
	}
	if len(groups) == 0 {
		groups = part.BySize()
	}
	s.logger.Info("mining %d cases (%d raw rows) across %d groups, %d predicates, up to %d per rule",
		len(cases), len(req.Cases), len(groups), req.Catalog.Len(), s.cfg.MaxPredicates)

	outcomes := make([]groupOutcome, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, grp := range groups {
		i, grp := i, grp
		groupCases := part.Cases(grp)
		if len(groupCases) < s.cfg.MinGroupSize {
			reason := fmt.Sprintf("%d cases below minimum %d", len(groupCases), s.cfg.MinGroupSize)
			s.logger.Info("skipping group %s: %s", grp, reason)
			outcomes[i] = groupOutcome{summary: GroupSummary{Group: grp, Cases: len(groupCases), Skipped: reason}}
			continue
		}
		g.Go(func() error {
			out, err := s.mineGroup(gctx, grp, groupCases, req.Catalog)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sections := make([]rules.Section, len(s.policies))
	var base []dataset.Case
	var minedGroups []string
	result := &MineResult{RawRows: len(req.Cases), Cases: len(cases)}
	for _, out := range outcomes {
		result.Groups = append(result.Groups, out.summary)
		result.Candidates += out.summary.Candidates
		if out.summary.Skipped != "" {
			continue
		}
		base = append(base, out.cases...)
		minedGroups = append(minedGroups, out.summary.Group.String())
		for pi := range s.policies {
			sections[pi].Rules = append(sections[pi].Rules, out.rules[pi]...)
		}
	}

	policyNames := make([]string, len(s.policies))
	for pi, p := range s.policies {
		if err := s.recheck(part, sections[pi].Rules, p); err != nil {
			return nil, err
		}
		sections[pi].Mode = p.Mode()
		sections[pi].Policy = p.Name()
		sections[pi].Description = p.Describe()
		sections[pi].Coverage = rules.ComputeCoverage(sections[pi].Rules, base)
		policyNames[pi] = string(p.Mode()) + ":" + p.Name()
		s.logger.Info("%s (%s): %d rules, coverage %d/%d cases",
			p.Mode(), p.Name(), len(sections[pi].Rules), sections[pi].Coverage.Covered, sections[pi].Coverage.Base)
	}

	fp := run.NewFingerprint(
		run.HashCases(cases),
		run.HashCatalog(req.Catalog.All()),
		run.HashPolicies(policyNames),
		s.cfg.MaxPredicates,
		run.EngineVersion,
	)
	manifest := run.NewManifest(fp, minedGroups, len(cases))
	manifest.CatalogSize = req.Catalog.Len()
	result.RuleSet = rules.NewRuleSet(*manifest, sections, req.Manual)
	result.RuntimeMs = time.Since(start).Milliseconds()
	s.logger.Info("run %s finished in %dms, %d candidates evaluated", manifest.RunID, result.RuntimeMs, result.Candidates)
	return result, nil
}

// mineGroup enumerates every conjunction over one group's deduplicated cases.
// Group membership is the first filter: only groupCases are ever evaluated.
func (s *MiningService) mineGroup(ctx context.Context, grp dataset.Group, groupCases []dataset.Case, catalog *predicate.Catalog) (groupOutcome, error) {
	start := time.Now()
	minimizers := make([]*rules.Minimizer, len(s.policies))
	for i := range minimizers {
		minimizers[i] = rules.NewMinimizer()
	}

	summary := GroupSummary{
		Group:     grp,
		Cases:     len(groupCases),
		Accepted:  make(map[rules.Mode]int),
		Published: make(map[rules.Mode]int),
	}

	e := NewEnumerator(catalog, s.cfg.MaxPredicates)
	for e.Next() {
		if summary.Candidates%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return groupOutcome{}, err
			}
		}
		summary.Candidates++
		conj := e.Conjunction()
		matched := conj.Filter(groupCases)
		if len(matched) == 0 {
			continue
		}
		for pi, p := range s.policies {
			r, ok := rules.Promote(grp, conj, matched, p, e.Seq())
			if !ok {
				continue
			}
			summary.Accepted[p.Mode()]++
			minimizers[pi].Offer(r)
		}
	}

	out := groupOutcome{cases: groupCases, rules: make([][]rules.Rule, len(s.policies))}
	for pi, p := range s.policies {
		out.rules[pi] = minimizers[pi].Rules()
		summary.Published[p.Mode()] = len(out.rules[pi])
	}
	summary.RuntimeMs = time.Since(start).Milliseconds()
	out.summary = summary
	s.logger.Debug("group %s: %d cases, %d candidates, published %v in %dms",
		grp, len(groupCases), summary.Candidates, summary.Published, summary.RuntimeMs)
	return out, nil
}

// recheck recomputes every published rule from scratch and compares it with
// the tally stored at acceptance
func (s *MiningService) recheck(part *dataset.Partition, published []rules.Rule, p rules.Policy) error {
	for _, r := range published {
		again, ok := rules.NewRule(r.Group, r.Conjunction, part.Cases(r.Group), p, r.Seq)
		if !ok || again.Tally != r.Tally || !again.Outcomes.Equal(r.Outcomes) {
			return core.NewInconsistentTallyError(r.Key(), r.Tally.String(), again.Tally.String())
		}
	}
	return nil
}

// uniqueGroups keeps the first occurrence of each group, in order
func uniqueGroups(groups []dataset.Group) []dataset.Group {
	seen := make(map[dataset.Group]bool, len(groups))
	out := make([]dataset.Group, 0, len(groups))
	for _, g := range groups {
		if seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out
}
