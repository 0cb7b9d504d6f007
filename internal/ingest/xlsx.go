package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/statement-ledger/internal/normalize"
)

const metadataCells = 6

// maxExcelSerial is 9999-12-31 in the 1900 date system.
const maxExcelSerial = 2958465

// XLSXParser reads the active worksheet of a spreadsheet export.
type XLSXParser struct {
	mapper *HeaderMapper
}

// NewXLSXParser creates a spreadsheet parser using mapper for header
// detection.
func NewXLSXParser(mapper *HeaderMapper) *XLSXParser {
	return &XLSXParser{mapper: mapper}
}

// Format returns FormatXLSX.
func (p *XLSXParser) Format() Format { return FormatXLSX }

// Parse reads raw cell values so amounts are not passed through display
// formats. Date cells come back as serial numbers and are converted.
func (p *XLSXParser) Parse(ctx context.Context, data []byte) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("XLSXParser.Parse: opening workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return &Result{}, nil
		}
		sheet = sheets[0]
	}

	all, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("XLSXParser.Parse: reading sheet %q: %w", sheet, err)
	}

	var records []record
	for i, cells := range all {
		if blank(cells) {
			continue
		}
		records = append(records, record{line: i + 1, cells: cells})
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	rows, found := tableRows(ctx, p.mapper, records)
	for i := range rows {
		rows[i].Date = serialDate(rows[i].Date, date1904)
	}

	var meta string
	if len(records) > 0 {
		var parts []string
		for _, c := range records[0].cells {
			if len(parts) == metadataCells {
				break
			}
			if c = strings.TrimSpace(c); c != "" {
				parts = append(parts, c)
			}
		}
		meta = strings.Join(parts, "\n")
	}

	return &Result{
		Rows:        rows,
		Metadata:    ExtractMetadata(meta),
		HeaderFound: found,
	}, nil
}

// serialDate converts an Excel serial day number into an ISO date string.
// Values that already parse as dates, or are not serials, pass through.
func serialDate(v *string, date1904 bool) *string {
	if v == nil {
		return nil
	}
	if _, ok := normalize.Date(*v); ok {
		return v
	}
	serial, err := strconv.ParseFloat(strings.TrimSpace(*v), 64)
	if err != nil || serial < 1 || serial > maxExcelSerial {
		return v
	}

	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return v
	}
	return strPtr(t.Format("2006-01-02"))
}
