package excel

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"oddsrules/domain/dataset"
	"oddsrules/domain/rules"
	"oddsrules/internal"
	"oddsrules/ports"
)

// Manual sheet layout: column A carries a "first/second" sub-code header, then
// rows whose A cell is the side. B..H hold condition text, I the prediction,
// J/K/L the hand counted up/void/down.
var (
	manualFeatureColumns = []struct{ Column, Feature string }{
		{"B", "G"}, {"C", "I"}, {"D", "K"}, {"E", "N"}, {"F", "P"}, {"G", "Q"}, {"H", "R"},
	}
	subCodeHeader = regexp.MustCompile(`^-?\d+(\.\d+)?/-?\d+(\.\d+)?$`)
)

// ManualRuleReader reads a manual rule workbook
type ManualRuleReader struct {
	reader *DataReader
	sheet  string
	sides  map[string]bool
	logger *internal.Logger
}

// NewManualRuleReader creates a reader for the given workbook and sheet
func NewManualRuleReader(path, sheet string, logger *internal.Logger) *ManualRuleReader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ManualRuleReader{
		reader: NewDataReader(path, logger),
		sheet:  sheet,
		sides:  map[string]bool{"主": true, "客": true},
		logger: logger.Named("ManualRules"),
	}
}

// LoadManualRules implements ports.ManualRuleSource. Rows without any
// condition, or with negative or fractional counts, are skipped.
func (m *ManualRuleReader) LoadManualRules(ctx context.Context) ([]ports.ManualRuleSpec, error) {
	data, err := m.reader.ReadSheet(m.sheet)
	if err != nil {
		return nil, err
	}

	var specs []ports.ManualRuleSpec
	var first, second string
	skipped := 0
	for _, row := range data.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a := row.Cells["A"]
		if subCodeHeader.MatchString(a) {
			parts := strings.SplitN(a, "/", 2)
			first, second = parts[0], parts[1]
			continue
		}
		if !m.sides[a] || first == "" {
			continue
		}

		conditions := make(map[string]string)
		for _, fc := range manualFeatureColumns {
			if v := row.Cells[fc.Column]; v != "" {
				conditions[fc.Feature] = v
			}
		}
		if len(conditions) == 0 {
			skipped++
			continue
		}

		expected, ok := parseCounts(row.Cells)
		if !ok {
			skipped++
			m.logger.Warn("row %d: unreadable manual counts, skipping", row.Number)
			continue
		}

		specs = append(specs, ports.ManualRuleSpec{
			Group:      dataset.NewGroup(a, first, second),
			Conditions: conditions,
			Prediction: row.Cells["I"],
			Expected:   expected,
			Row:        row.Number,
		})
	}

	m.logger.Info("read %d manual rules (%d rows skipped)", len(specs), skipped)
	return specs, nil
}

func parseCounts(cells RawRowData) (rules.Tally, bool) {
	var t rules.Tally
	for _, c := range []struct {
		col string
		dst *int
	}{{"J", &t.Up}, {"K", &t.Void}, {"L", &t.Down}} {
		raw := strings.TrimSpace(cells[c.col])
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v != math.Trunc(v) {
			return rules.Tally{}, false
		}
		*c.dst = int(v)
	}
	return t, true
}
