package ports

import (
	"context"

	"oddsrules/domain/rules"
)

// RuleSetStore persists a published rule set so it can be queried without
// re-running enumeration
type RuleSetStore interface {
	Save(ctx context.Context, rs *rules.RuleSet) error
	// Load fails with core.ErrRuleSetNotFound when nothing was saved yet
	Load(ctx context.Context) (*rules.RuleSet, error)
}

// ReportWriter renders human-readable projections of a rule set
type ReportWriter interface {
	Write(ctx context.Context, rs *rules.RuleSet) error
}
