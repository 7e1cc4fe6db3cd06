package ports

import (
	"context"

	"oddsrules/domain/dataset"
	"oddsrules/domain/predicate"
	"oddsrules/domain/rules"
)

// CaseSource loads the dataset snapshot a run is mined from
type CaseSource interface {
	// LoadCases returns normalized cases in source order. Rows with an invalid
	// outcome are dropped; structural problems fail with core.ErrMalformedSource.
	LoadCases(ctx context.Context) ([]dataset.Case, error)
}

// CatalogSource supplies the ordered predicate catalog. Unparsable entries are
// returned in skipped rather than failing the load.
type CatalogSource interface {
	LoadCatalog(ctx context.Context) (catalog *predicate.Catalog, skipped []error, err error)
}

// ManualRuleSource reads a human-authored rule library
type ManualRuleSource interface {
	LoadManualRules(ctx context.Context) ([]ManualRuleSpec, error)
}

// ManualRuleSpec is one row of a manual rule library before recounting
type ManualRuleSpec struct {
	Group      dataset.Group
	Conditions map[string]string // feature -> condition text
	Prediction string
	Expected   rules.Tally
	Row        int
}
