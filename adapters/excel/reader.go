package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"oddsrules/domain/core"
	"oddsrules/internal"
)

// DataReader handles reading Excel and CSV files into rows keyed by column letter
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string, logger *internal.Logger) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataReader{filePath: filePath, fileType: fileType, logger: logger.Named("DataReader")}
}

// ReadSheet reads every row of the named sheet; an empty name selects the
// first sheet. CSV files ignore the name. Any structural failure wraps
// core.ErrMalformedSource.
func (r *DataReader) ReadSheet(sheet string) (*SheetData, error) {
	r.logger.Debug("reading %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); err != nil {
		return nil, core.NewMalformedSourceError(r.filePath, fmt.Sprintf("%s file not readable: %v", strings.ToUpper(r.fileType), err))
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	default:
		return r.readExcelData(sheet)
	}
}

func (r *DataReader) readExcelData(sheet string) (*SheetData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, core.NewMalformedSourceError(r.filePath, fmt.Sprintf("failed to open Excel file: %v", err))
	}
	defer f.Close()
	r.logger.Debug("Excel file opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: %s has no worksheets", core.ErrMissingSheet, r.filePath)
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %s has no sheet %q", core.ErrMissingSheet, r.filePath, sheet)
	}

	readStart := time.Now()
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, core.NewMalformedSourceError(r.filePath, fmt.Sprintf("failed to read %s: %v", sheet, err))
	}
	r.logger.Debug("%s read in %.2fms (%d rows)", sheet, float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return r.processRows(sheet, rows)
}

func (r *DataReader) readCSVData() (*SheetData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, core.NewMalformedSourceError(r.filePath, fmt.Sprintf("failed to open CSV file: %v", err))
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, core.NewMalformedSourceError(r.filePath, fmt.Sprintf("failed to read CSV file: %v", err))
	}
	r.logger.Debug("CSV file read (%d rows)", len(rows))

	return r.processRows(filepath.Base(r.filePath), rows)
}

// processRows keys each cell by its column letter. Header rows are kept;
// callers skip them.
func (r *DataReader) processRows(sheet string, rows [][]string) (*SheetData, error) {
	data := &SheetData{Sheet: sheet, Rows: make([]SheetRow, 0, len(rows))}
	for i, row := range rows {
		cells := make(RawRowData, len(row))
		for j, cell := range row {
			cells[columnIndexToLetter(j)] = strings.TrimSpace(cell)
		}
		data.Rows = append(data.Rows, SheetRow{Number: i + 1, Cells: cells})
	}
	r.logger.Debug("%s processed (%d rows)", sheet, len(data.Rows))
	return data, nil
}

// columnIndexToLetter converts a 0-based column index to its letter (A, ..., Z, AA, ...)
func columnIndexToLetter(colIdx int) string {
	name, err := excelize.ColumnNumberToName(colIdx + 1)
	if err != nil {
		return ""
	}
	return name
}
