package ingest

import (
	"path"
	"strings"
)

// Format identifies which parser handles a statement file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// DetectFormat picks a format from the filename extension, consulting the
// declared content type only when the extension is missing or unknown.
// Anything unrecognized is treated as delimited text. File contents are
// never inspected.
func DetectFormat(filename, contentType string) Format {
	switch strings.ToLower(path.Ext(strings.TrimSpace(filename))) {
	case ".csv":
		return FormatCSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".pdf":
		return FormatPDF
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "csv"):
		return FormatCSV
	case strings.Contains(ct, "spreadsheet"):
		return FormatXLSX
	case strings.Contains(ct, "pdf"):
		return FormatPDF
	}
	return FormatCSV
}
