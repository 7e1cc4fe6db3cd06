package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"oddsrules/domain/dataset"
	"oddsrules/domain/rules"
	"oddsrules/internal"
)

// Summary describes the score distribution of one mode
type Summary struct {
	Rules       int
	Groups      int
	MeanScore   float64
	MedianScore float64
	MaxScore    float64
	MeanSupport float64
	MaxSupport  float64
}

// Summarize computes the score and support distribution of rs
func Summarize(rs []rules.Rule) Summary {
	s := Summary{Rules: len(rs)}
	if len(rs) == 0 {
		return s
	}
	scores := make(stats.Float64Data, len(rs))
	support := make(stats.Float64Data, len(rs))
	groups := make(map[dataset.Group]struct{})
	for i, r := range rs {
		scores[i] = r.Score
		support[i] = float64(r.Tally.Total())
		groups[r.Group] = struct{}{}
	}
	s.MeanScore, _ = stats.Mean(scores)
	s.MedianScore, _ = stats.Median(scores)
	s.MaxScore, _ = stats.Max(scores)
	s.MeanSupport, _ = stats.Mean(support)
	s.MaxSupport, _ = stats.Max(support)
	s.Groups = len(groups)
	return s
}

// Render projects rs into a Markdown document. Rules are listed per mode and
// group, highest score first, ties broken by support.
func Render(rs *rules.RuleSet) []byte {
	var b bytes.Buffer
	m := rs.Manifest()

	fmt.Fprintf(&b, "# Rule report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", m.RunID)
	fmt.Fprintf(&b, "- Generated: %s\n", m.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- Cases: %d across %d groups\n", m.CaseCount, len(m.Groups))
	fmt.Fprintf(&b, "- Fingerprint: `%s`\n\n", m.Fingerprint.Fingerprint.Short())

	b.WriteString("## Overview\n\n")
	b.WriteString("| Mode | Policy | Rules | Groups | Coverage | Mean score | Median score |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|---:|\n")
	for _, s := range rs.Sections() {
		sum := Summarize(s.Rules)
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %d/%d (%.1f%%) | %.2f | %.2f |\n",
			s.Mode.Title(), s.Description, sum.Rules, sum.Groups,
			s.Coverage.Covered, s.Coverage.Base, s.Coverage.Percent(), sum.MeanScore, sum.MedianScore)
	}
	b.WriteString("\n")

	for _, s := range rs.Sections() {
		writeSection(&b, s)
	}
	if manual := rs.Manual(); len(manual) > 0 {
		writeManual(&b, manual)
	}
	return b.Bytes()
}

func writeSection(b *bytes.Buffer, s rules.Section) {
	fmt.Fprintf(b, "## %s\n\n", s.Mode.Title())
	fmt.Fprintf(b, "Acceptance: %s\n\n", s.Description)
	if len(s.Rules) == 0 {
		b.WriteString("No rules.\n\n")
		return
	}
	cov := s.Coverage
	fmt.Fprintf(b, "Coverage: %d of %d cases (%.1f%%), %s\n\n", cov.Covered, cov.Base, cov.Percent(), cov.Tally)

	byGroup := make(map[dataset.Group][]rules.Rule)
	var groups []dataset.Group
	for _, r := range s.Rules {
		if _, ok := byGroup[r.Group]; !ok {
			groups = append(groups, r.Group)
		}
		byGroup[r.Group] = append(byGroup[r.Group], r)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return len(byGroup[groups[i]]) > len(byGroup[groups[j]])
	})

	for _, g := range groups {
		rs := append([]rules.Rule(nil), byGroup[g]...)
		rules.SortByScore(rs)
		fmt.Fprintf(b, "### %s (%d rules)\n\n", g, len(rs))
		b.WriteString("| # | Conditions | Up | Down | Void | Total | Predicted | Score |\n")
		b.WriteString("|---:|---|---:|---:|---:|---:|---|---:|\n")
		for i, r := range rs {
			fmt.Fprintf(b, "| %d | %s | %d | %d | %d | %d | %s | %.2f |\n",
				i+1, escape(r.Description()), r.Tally.Up, r.Tally.Down, r.Tally.Void,
				r.Tally.Total(), r.Predicted, r.Score)
		}
		b.WriteString("\n")
	}
}

func writeManual(b *bytes.Buffer, manual []rules.ManualRule) {
	inconsistent := 0
	for _, m := range manual {
		if !m.Consistent() {
			inconsistent++
		}
	}
	b.WriteString("## Manual rules\n\n")
	fmt.Fprintf(b, "%d rules, %d inconsistent with the dataset.\n\n", len(manual), inconsistent)
	b.WriteString("| Row | Group | Conditions | Prediction | Expected | Recount | Status |\n")
	b.WriteString("|---:|---|---|---|---|---|---|\n")
	for _, m := range manual {
		status := "ok"
		if !m.Consistent() {
			status = "**mismatch**"
		}
		if len(m.Skipped) > 0 {
			status += fmt.Sprintf(" (skipped %s)", escape(strings.Join(m.Skipped, ", ")))
		}
		fmt.Fprintf(b, "| %d | %s | %s | %s | %s | %s | %s |\n",
			m.Row, m.Group, escape(m.Conjunction.Description()), escape(m.Prediction),
			m.Expected, m.Recount, status)
	}
	b.WriteString("\n")
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// MarkdownWriter writes the report to a file
type MarkdownWriter struct {
	path   string
	logger *internal.Logger
}

// NewMarkdownWriter creates a writer targeting path
func NewMarkdownWriter(path string, logger *internal.Logger) *MarkdownWriter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &MarkdownWriter{path: path, logger: logger.Named("ReportWriter")}
}

// Write renders rs and replaces the report file
func (w *MarkdownWriter) Write(ctx context.Context, rs *rules.RuleSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(w.path, Render(rs), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", w.path, err)
	}
	w.logger.Info("wrote report to %s", w.path)
	return nil
}
