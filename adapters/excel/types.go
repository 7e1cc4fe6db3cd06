package excel

// RawRowData represents one sheet row as cell text keyed by column letter
type RawRowData map[string]string

// SheetRow is a raw row with its 1-based position in the sheet
type SheetRow struct {
	Number int
	Cells  RawRowData
}

// SheetData represents the rows of one worksheet (or CSV file)
type SheetData struct {
	Sheet string
	Rows  []SheetRow
}
