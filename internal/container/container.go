package container

import (
	"context"
	"errors"
	"fmt"

	"oddsrules/adapters/catalog"
	"oddsrules/adapters/excel"
	"oddsrules/adapters/export"
	"oddsrules/adapters/report"
	"oddsrules/app"
	"oddsrules/domain/core"
	"oddsrules/domain/dataset"
	"oddsrules/domain/rules"
	"oddsrules/internal"
	"oddsrules/internal/config"
	apperrors "oddsrules/internal/errors"
	"oddsrules/ports"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *internal.Logger
	Schema dataset.Schema

	// Sources
	Cases   ports.CaseSource
	Catalog ports.CatalogSource
	// Manual is nil when no manual rule sheet is configured
	Manual ports.ManualRuleSource

	// Sinks
	Store  ports.RuleSetStore
	Report ports.ReportWriter

	// Services
	Mining        *app.MiningService
	ManualService *app.ManualRuleService
}

// RunResult is everything one mining pass produced
type RunResult struct {
	Mine *app.MineResult
	// SkippedPredicates lists catalog entries that could not be parsed
	SkippedPredicates []error
	Manual            *app.ManualRecount
	CatalogSize       int
}

// New creates a new dependency container from configuration
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	schema := dataset.DefaultSchema()
	schema.AlignedOnly = cfg.Dataset.AlignedOnly

	policies, err := rules.DefaultPolicies(cfg.Mining.ModeAVariant)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build acceptance policies")
	}

	excelCfg := excel.DefaultExcelConfig(cfg.Dataset.File)
	excelCfg.Sheet = cfg.Dataset.Sheet
	excelCfg.SkipRows = cfg.Dataset.SkipRows
	excelCfg.AlignedOnly = cfg.Dataset.AlignedOnly

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Schema:  schema,
		Cases:   excel.NewCaseLoader(excelCfg, schema, logger),
		Catalog: catalog.NewSource(cfg.Mining.CatalogFile, schema, logger),
		Store:   export.NewFileStore(cfg.Paths.RulesFile, logger),
		Report:  report.NewMarkdownWriter(cfg.Paths.ReportFile, logger),
		Mining: app.NewMiningService(policies, app.MiningConfig{
			MaxPredicates: cfg.Mining.MaxPredicates,
			MinGroupSize:  cfg.Mining.MinGroupSize,
			Workers:       cfg.Mining.Workers,
		}, logger),
		ManualService: app.NewManualRuleService(schema, logger),
	}
	if cfg.Paths.ManualRulesFile != "" {
		c.Manual = excel.NewManualRuleReader(cfg.Paths.ManualRulesFile, "", logger)
	}
	return c, nil
}

// Run loads the dataset, mines every configured group and publishes the
// result to the rule store and the report. Nothing is published on failure.
func (c *Container) Run(ctx context.Context) (*RunResult, error) {
	cases, err := c.Cases.LoadCases(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load dataset")
	}
	cat, skipped, err := c.Catalog.LoadCatalog(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load predicate catalog")
	}
	for _, s := range skipped {
		c.Logger.Warn("skipped predicate: %v", s)
	}

	out := &RunResult{SkippedPredicates: skipped, CatalogSize: cat.Len()}
	var manual []rules.ManualRule
	if c.Manual != nil {
		specs, err := c.Manual.LoadManualRules(ctx)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to load manual rules")
		}
		out.Manual, err = c.ManualService.Recount(ctx, specs, cases)
		if err != nil {
			return nil, err
		}
		manual = out.Manual.Rules
	}

	out.Mine, err = c.Mining.Mine(ctx, app.MineRequest{
		Cases:   cases,
		Catalog: cat,
		Groups:  c.Config.Mining.TargetGroups,
		Manual:  manual,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "mining failed")
	}

	if err := c.Store.Save(ctx, out.Mine.RuleSet); err != nil {
		return nil, apperrors.Wrap(err, "failed to save rule set")
	}
	if err := c.Report.Write(ctx, out.Mine.RuleSet); err != nil {
		return nil, apperrors.Wrap(err, "failed to write report")
	}
	return out, nil
}

// RuleSet returns the saved rule set, mining one when none exists yet
func (c *Container) RuleSet(ctx context.Context) (*rules.RuleSet, error) {
	rs, err := c.Store.Load(ctx)
	if err == nil {
		c.Logger.Info("Using saved rule set %s", rs.Manifest().RunID)
		return rs, nil
	}
	if !errors.Is(err, core.ErrRuleSetNotFound) {
		return nil, err
	}
	c.Logger.Info("No saved rule set, mining %s", c.Config.Dataset.File)
	res, err := c.Run(ctx)
	if err != nil {
		return nil, err
	}
	return res.Mine.RuleSet, nil
}

// QueryService builds the single-row lookup service over rs
func (c *Container) QueryService(rs *rules.RuleSet) *app.QueryService {
	return app.NewQueryService(rs, c.Schema, c.Config.Server.QueryResultLimit)
}
