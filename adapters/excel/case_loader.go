package excel

import (
	"context"
	"fmt"

	"oddsrules/domain/core"
	"oddsrules/domain/dataset"
	"oddsrules/internal"
)

// CaseLoader turns a spreadsheet into normalized cases
type CaseLoader struct {
	cfg    ExcelConfig
	schema dataset.Schema
	reader *DataReader
	logger *internal.Logger
}

// LoadStats counts what happened to the raw rows of the last load
type LoadStats struct {
	Rows           int
	Kept           int
	InvalidOutcome int
	Unaligned      int
	Blank          int
}

// NewCaseLoader creates a loader; cfg.AlignedOnly overrides schema.AlignedOnly
func NewCaseLoader(cfg ExcelConfig, schema dataset.Schema, logger *internal.Logger) *CaseLoader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	schema.AlignedOnly = cfg.AlignedOnly
	return &CaseLoader{
		cfg:    cfg,
		schema: schema,
		reader: NewDataReader(cfg.FilePath, logger),
		logger: logger.Named("CaseLoader"),
	}
}

// LoadCases implements ports.CaseSource
func (l *CaseLoader) LoadCases(ctx context.Context) ([]dataset.Case, error) {
	cases, _, err := l.Load(ctx)
	return cases, err
}

// Load reads the sheet, skips header rows, drops rows whose outcome is not a
// configured label (and unaligned rows when configured) and normalizes the rest
func (l *CaseLoader) Load(ctx context.Context) ([]dataset.Case, LoadStats, error) {
	var stats LoadStats
	data, err := l.reader.ReadSheet(l.cfg.Sheet)
	if err != nil {
		return nil, stats, err
	}
	if len(data.Rows) <= l.cfg.SkipRows {
		return nil, stats, fmt.Errorf("%w: %s has %d rows, %d are headers", core.ErrNoDataRows, l.cfg.FilePath, len(data.Rows), l.cfg.SkipRows)
	}

	rows := data.Rows[l.cfg.SkipRows:]
	cases := make([]dataset.Case, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		stats.Rows++
		if isBlank(row.Cells) {
			stats.Blank++
			continue
		}
		c := l.schema.NormalizeRow(row.Cells)
		if !c.Outcome.Valid() {
			stats.InvalidOutcome++
			continue
		}
		if l.schema.AlignedOnly && !l.schema.Aligned(c) {
			stats.Unaligned++
			continue
		}
		c.Row = row.Number
		cases = append(cases, c)
	}
	stats.Kept = len(cases)

	l.logger.Info("loaded %d cases from %s/%s (%d rows: %d invalid outcome, %d unaligned, %d blank)",
		stats.Kept, l.cfg.FilePath, data.Sheet, stats.Rows, stats.InvalidOutcome, stats.Unaligned, stats.Blank)
	return cases, stats, nil
}

func isBlank(cells RawRowData) bool {
	for _, v := range cells {
		if v != "" {
			return false
		}
	}
	return true
}
