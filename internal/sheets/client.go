// Package sheets implements ledger.TabularStore on top of the Google Sheets
// API. One spreadsheet is the ledger; each tab is a month partition.
package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/dvloznov/statement-ledger/internal/ledger"
	"github.com/dvloznov/statement-ledger/internal/logger"
)

const valueInputOption = "USER_ENTERED"

// Client is a ledger.TabularStore backed by one spreadsheet.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

var (
	_ ledger.TabularStore = (*Client)(nil)
	_ ledger.Validator    = (*Client)(nil)
)

// New creates a Sheets client for spreadsheetID. Without options it uses
// Application Default Credentials.
func New(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("New: spreadsheet ID is required")
	}
	opts = append([]option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}, opts...)
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("New: creating sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *sheetsapi.Service, spreadsheetID string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID}
}

// Properties implements ledger.TabularStore.
func (c *Client) Properties(ctx context.Context) (ledger.Properties, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields(googleapi.Field("properties.locale,sheets.properties(sheetId,title)")).
		Context(ctx).Do()
	if err != nil {
		return ledger.Properties{}, fmt.Errorf("Properties: %w", err)
	}

	props := ledger.Properties{}
	if ss.Properties != nil {
		props.Locale = ss.Properties.Locale
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			props.Partitions = append(props.Partitions, sh.Properties.Title)
		}
	}
	return props, nil
}

// GetRange implements ledger.TabularStore. Values come back unformatted so
// amounts do not depend on the spreadsheet locale, and dates come back as
// serial day numbers.
func (c *Client) GetRange(ctx context.Context, partition, rng string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, a1(partition, rng)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("GetRange: reading %s: %w", a1(partition, rng), err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellText(v)
		}
		out[i] = cells
	}
	return out, nil
}

// UpdateRange implements ledger.TabularStore.
func (c *Client) UpdateRange(ctx context.Context, partition, rng string, rows [][]string) error {
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1(partition, rng), valueRange(rows)).
		ValueInputOption(valueInputOption).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("UpdateRange: writing %s: %w", a1(partition, rng), err)
	}
	return nil
}

// AppendRows implements ledger.TabularStore.
func (c *Client) AppendRows(ctx context.Context, partition, rng string, rows [][]string) error {
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, a1(partition, rng), valueRange(rows)).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("AppendRows: appending to %s: %w", a1(partition, rng), err)
	}
	if resp.Updates != nil {
		log := logger.FromContext(ctx)
		log.Debug().
			Str("range", resp.Updates.UpdatedRange).
			Int64("rows", resp.Updates.UpdatedRows).
			Msg("appended rows")
	}
	return nil
}

// CreatePartition implements ledger.TabularStore and returns the new sheet ID.
func (c *Client) CreatePartition(ctx context.Context, title string) (int64, error) {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: title},
			},
		}},
	}
	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("CreatePartition: adding sheet %q: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("CreatePartition: no sheet properties in reply for %q", title)
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// SetValidation implements ledger.Validator. The rule covers the column from
// the second row down and shows a dropdown.
func (c *Client) SetValidation(ctx context.Context, partitionID int64, column int, allowed []string) error {
	values := make([]*sheetsapi.ConditionValue, len(allowed))
	for i, v := range allowed {
		values[i] = &sheetsapi.ConditionValue{UserEnteredValue: v}
	}
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			SetDataValidation: &sheetsapi.SetDataValidationRequest{
				Range: &sheetsapi.GridRange{
					SheetId:          partitionID,
					StartRowIndex:    1,
					StartColumnIndex: int64(column),
					EndColumnIndex:   int64(column + 1),
					ForceSendFields:  []string{"SheetId", "StartColumnIndex"},
				},
				Rule: &sheetsapi.DataValidationRule{
					Condition: &sheetsapi.BooleanCondition{
						Type:   "ONE_OF_LIST",
						Values: values,
					},
					ShowCustomUi: true,
					Strict:       true,
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("SetValidation: sheet %d column %d: %w", partitionID, column, err)
	}
	return nil
}

// a1 builds a sheet-qualified A1 range.
func a1(partition, rng string) string {
	return "'" + strings.ReplaceAll(partition, "'", "''") + "'!" + rng
}

func valueRange(rows [][]string) *sheetsapi.ValueRange {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		values[i] = cells
	}
	return &sheetsapi.ValueRange{Values: values}
}

func cellText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
