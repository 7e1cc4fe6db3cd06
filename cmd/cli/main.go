package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"oddsrules/adapters/catalog"
	"oddsrules/adapters/excel"
	"oddsrules/app"
	"oddsrules/domain/dataset"
	"oddsrules/domain/rules"
	"oddsrules/internal"
	"oddsrules/internal/api"
	"oddsrules/internal/config"
	"oddsrules/internal/container"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	rootCmd := &cobra.Command{
		Use:          "oddsrules",
		Short:        "Mine skewed-outcome rules from an odds workbook",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newMineCmd(),
		newCheckCmd(),
		newManualCmd(),
		newCatalogCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadContainer reads configuration from the environment and applies flag overrides
func loadContainer(override func(*config.Config)) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	logger := internal.NewWriterLogger(internal.ParseLogLevel(os.Getenv("LOG_LEVEL")), os.Stderr)
	return container.New(cfg, logger)
}

func newMineCmd() *cobra.Command {
	var datasetFile, variant, groups string
	var maxPredicates int

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Run the rule search and publish rules.json and the report",
		Long: `Load the dataset, enumerate conjunctions of up to MAX_PREDICATES catalog
predicates per group, keep the ones whose outcome counts pass each mode's
acceptance policy, minimize them and write RULES_FILE and REPORT_FILE.

Example: oddsrules mine --dataset docs/dataset.xlsx --groups "主/0/0,客/0/0" --variant strict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var parsed []dataset.Group
			if cmd.Flags().Changed("groups") {
				for _, part := range strings.Split(groups, ",") {
					if strings.TrimSpace(part) == "" {
						continue
					}
					g, err := dataset.ParseGroup(part)
					if err != nil {
						return err
					}
					parsed = append(parsed, g)
				}
			}
			c, err := loadContainer(func(cfg *config.Config) {
				if datasetFile != "" {
					cfg.Dataset.File = datasetFile
				}
				if variant != "" {
					cfg.Mining.ModeAVariant = variant
				}
				if maxPredicates > 0 {
					cfg.Mining.MaxPredicates = maxPredicates
				}
				if cmd.Flags().Changed("groups") {
					cfg.Mining.TargetGroups = parsed
				}
			})
			if err != nil {
				return err
			}
			return runMine(cmd.Context(), c)
		},
	}

	cmd.Flags().StringVar(&datasetFile, "dataset", "", "Dataset file (overrides DATASET_FILE)")
	cmd.Flags().StringVar(&variant, "variant", "", "Mode A variant: plain|strict (overrides MODE_A_VARIANT)")
	cmd.Flags().StringVar(&groups, "groups", "", "Comma separated groups; empty mines every group")
	cmd.Flags().IntVar(&maxPredicates, "max-predicates", 0, "Conjunction size bound 1..3 (overrides MAX_PREDICATES)")
	return cmd
}

func runMine(ctx context.Context, c *container.Container) error {
	res, err := c.Run(ctx)
	if err != nil {
		return err
	}
	mine := res.Mine
	rs := mine.RuleSet

	fmt.Printf("\n📊 MINING RESULTS\n")
	fmt.Printf("Run: %s\n", rs.Manifest().RunID)
	fmt.Printf("Rows: %d raw, %d distinct cases\n", mine.RawRows, mine.Cases)
	fmt.Printf("Catalog: %d predicates (%d skipped)\n", res.CatalogSize, len(res.SkippedPredicates))
	fmt.Printf("Candidates: %d in %dms\n", mine.Candidates, mine.RuntimeMs)

	fmt.Printf("\nGroups:\n")
	for _, g := range mine.Groups {
		if g.Skipped != "" {
			fmt.Printf("  %-12s %4d cases  skipped: %s\n", g.Group, g.Cases, g.Skipped)
			continue
		}
		fmt.Printf("  %-12s %4d cases  %s\n", g.Group, g.Cases, formatModeCounts(g.Published))
	}

	fmt.Printf("\nModes:\n")
	for _, s := range rs.Sections() {
		fmt.Printf("  %-45s %4d rules  coverage %d/%d (%.1f%%)\n",
			s.Mode.Title(), len(s.Rules), s.Coverage.Covered, s.Coverage.Base, s.Coverage.Percent())
	}
	if res.Manual != nil {
		fmt.Printf("\nManual rules: %d (%d inconsistent, %d cells skipped, %d dropped)\n",
			len(res.Manual.Rules), res.Manual.Inconsistent, len(res.Manual.Skipped), res.Manual.Dropped)
	}
	fmt.Printf("\n✅ Wrote %s and %s\n", c.Config.Paths.RulesFile, c.Config.Paths.ReportFile)
	return nil
}

func formatModeCounts(counts map[rules.Mode]int) string {
	modes := make([]string, 0, len(counts))
	for m := range counts {
		modes = append(modes, string(m))
	}
	sort.Strings(modes)
	parts := make([]string, 0, len(modes))
	for _, m := range modes {
		parts = append(parts, fmt.Sprintf("%s=%d", m, counts[rules.Mode(m)]))
	}
	return strings.Join(parts, " ")
}

func newCheckCmd() *cobra.Command {
	var rowJSON string

	cmd := &cobra.Command{
		Use:   "check [COLUMN=VALUE...]",
		Short: "Match one row against the published rules",
		Long: `Match a single row, keyed by spreadsheet column, against the saved rule set.
If RULES_FILE does not exist yet the dataset is mined first.

Examples:
  oddsrules check B=主 D=0 F=0 G=0.9 K=2.55
  oddsrules check --json '{"B":"主","D":0,"F":0,"K":2.55}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cells, err := parseCells(rowJSON, args)
			if err != nil {
				return err
			}
			c, err := loadContainer(nil)
			if err != nil {
				return err
			}
			rs, err := c.RuleSet(cmd.Context())
			if err != nil {
				return err
			}
			res, err := c.QueryService(rs).CheckRow(cells)
			if err != nil {
				return err
			}
			printCheck(c.Schema, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&rowJSON, "json", "", "Row as a JSON object keyed by column")
	return cmd
}

func parseCells(rowJSON string, args []string) (map[string]string, error) {
	if rowJSON != "" {
		return api.ParseRow([]byte(rowJSON))
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("give the row as COLUMN=VALUE arguments or --json")
	}
	cells := make(map[string]string, len(args))
	for _, arg := range args {
		col, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("argument %q is not COLUMN=VALUE", arg)
		}
		cells[strings.ToUpper(strings.TrimSpace(col))] = strings.TrimSpace(value)
	}
	return cells, nil
}

func printCheck(schema dataset.Schema, res *app.QueryResult) {
	fmt.Printf("Group %s\n", res.Case.Group)
	for _, m := range res.Modes {
		if !m.Matched {
			fmt.Printf("\n%s: no match\n", m.Title)
			continue
		}
		fmt.Printf("\n%s: %d matching rules\n", m.Title, m.Count)
		for i, r := range m.Rules {
			fmt.Printf("  %d. %-40s %s  → %s (%.1f%%)\n",
				i+1, r.Description(), r.Tally, schema.Label(r.Predicted), r.Score)
		}
	}
	if len(res.Manual) > 0 {
		fmt.Printf("\nManual rules:\n")
		for _, mr := range res.Manual {
			fmt.Printf("  row %d: %s → %s (%s)\n", mr.Row, mr.Conjunction.Description(), mr.Prediction, mr.Recount)
		}
	}
}

func newManualCmd() *cobra.Command {
	var file, sheet string
	var onlyInconsistent bool

	cmd := &cobra.Command{
		Use:   "manual",
		Short: "Recount a manual rule sheet against the dataset",
		Long: `Parse a hand-written rule sheet, recount every rule against the deduplicated
dataset and flag rules whose recount differs from the hand count.

Example: oddsrules manual --file docs/manual.xlsx --inconsistent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer(nil)
			if err != nil {
				return err
			}
			if file == "" {
				file = c.Config.Paths.ManualRulesFile
			}
			if file == "" {
				return fmt.Errorf("no manual rule sheet: pass --file or set MANUAL_RULES_FILE")
			}
			return runManual(cmd.Context(), c, excel.NewManualRuleReader(file, sheet, c.Logger), onlyInconsistent)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Manual rule workbook (overrides MANUAL_RULES_FILE)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet name; empty selects the first")
	cmd.Flags().BoolVar(&onlyInconsistent, "inconsistent", false, "Only print rules whose recount differs")
	return cmd
}

func runManual(ctx context.Context, c *container.Container, source *excel.ManualRuleReader, onlyInconsistent bool) error {
	specs, err := source.LoadManualRules(ctx)
	if err != nil {
		return err
	}
	cases, err := c.Cases.LoadCases(ctx)
	if err != nil {
		return err
	}
	recount, err := c.ManualService.Recount(ctx, specs, cases)
	if err != nil {
		return err
	}

	for _, mr := range recount.Rules {
		consistent := mr.Consistent()
		if onlyInconsistent && consistent {
			continue
		}
		mark := "✅"
		if !consistent {
			mark = "❌"
		}
		fmt.Printf("%s row %-4d %-12s %-40s expected %s, recount %s\n",
			mark, mr.Row, mr.Group, mr.Conjunction.Description(), mr.Expected, mr.Recount)
		for _, s := range mr.Skipped {
			fmt.Printf("     skipped condition %s\n", s)
		}
	}
	fmt.Printf("\n%d manual rules, %d inconsistent, %d dropped without a usable condition\n",
		len(recount.Rules), recount.Inconsistent, recount.Dropped)
	return nil
}

func newCatalogCmd() *cobra.Command {
	var file string
	var asTOML bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the predicate catalog and the size of the search space",
		Long: `Print the predicate catalog in enumeration order. With --toml the catalog is
written in the CATALOG_FILE format, which is a convenient starting point for a
custom catalog.

Example: oddsrules catalog --toml > catalog.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer(func(cfg *config.Config) {
				if file != "" {
					cfg.Mining.CatalogFile = file
				}
			})
			if err != nil {
				return err
			}
			cat, skipped, err := c.Catalog.LoadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			if asTOML {
				return catalog.Encode(os.Stdout, cat)
			}
			for i, p := range cat.All() {
				fmt.Printf("%3d  %-3s %-14s %s\n", i+1, p.Feature, p.Condition(), p.Label())
			}
			for _, s := range skipped {
				fmt.Printf("skipped: %v\n", s)
			}
			fmt.Printf("\n%d predicates over %s, %d conjunctions of up to %d\n",
				cat.Len(), strings.Join(cat.Features(), " "),
				app.CountConjunctions(cat, c.Config.Mining.MaxPredicates), c.Config.Mining.MaxPredicates)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "TOML catalog (overrides CATALOG_FILE)")
	cmd.Flags().BoolVar(&asTOML, "toml", false, "Write the catalog as TOML")
	return cmd
}
