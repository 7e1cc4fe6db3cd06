package excel

// ExcelConfig holds configuration for the spreadsheet data source
type ExcelConfig struct {
	FilePath    string `json:"file_path"`
	Sheet       string `json:"sheet"`
	SkipRows    int    `json:"skip_rows"`
	AlignedOnly bool   `json:"aligned_only"`
}

// DefaultExcelConfig returns the layout of the odds workbook: two header rows,
// first sheet, aligned lines only
func DefaultExcelConfig(path string) ExcelConfig {
	return ExcelConfig{
		FilePath:    path,
		SkipRows:    2,
		AlignedOnly: true,
	}
}
