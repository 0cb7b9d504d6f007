package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

type fakeSheets struct {
	mu       sync.Mutex
	requests []recorded
	respond  func(r *http.Request) any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.requests = append(f.requests, recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: body})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(f.respond(r))
}

func (f *fakeSheets) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, respond func(r *http.Request) any) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{respond: respond}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), "sheet-123",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return c, fake
}

func TestNew_RequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "")
	assert.Error(t, err)
}

func TestProperties(t *testing.T) {
	c, fake := newTestClient(t, func(r *http.Request) any {
		return map[string]any{
			"properties": map[string]any{"locale": "sv_SE"},
			"sheets": []any{
				map[string]any{"properties": map[string]any{"sheetId": 0, "title": "2024-01"}},
				map[string]any{"properties": map[string]any{"sheetId": 7, "title": "2024-02"}},
			},
		}
	})

	props, err := c.Properties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sv_SE", props.Locale)
	assert.Equal(t, []string{"2024-01", "2024-02"}, props.Partitions)

	req := fake.last()
	assert.Equal(t, http.MethodGet, req.method)
	assert.True(t, strings.HasSuffix(req.path, "/spreadsheets/sheet-123"), req.path)
}

func TestGetRange(t *testing.T) {
	c, fake := newTestClient(t, func(r *http.Request) any {
		return map[string]any{
			"range": "'2024-01'!A1:H3",
			"values": []any{
				[]any{"Date", "Description", "Amount", "Category"},
				[]any{},
				[]any{45292, "Coffee Shop", -4.5, "Dining", true},
			},
		}
	})

	rows, err := c.GetRange(context.Background(), "2024-01", "A:H")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Empty(t, rows[1])
	assert.Equal(t, []string{"45292", "Coffee Shop", "-4.5", "Dining", "true"}, rows[2])

	req := fake.last()
	assert.Contains(t, req.path, "/values/'2024-01'!A:H")
	assert.Contains(t, req.query, "valueRenderOption=UNFORMATTED_VALUE")
	assert.Contains(t, req.query, "dateTimeRenderOption=SERIAL_NUMBER")
}

func TestAppendRows(t *testing.T) {
	c, fake := newTestClient(t, func(r *http.Request) any {
		return map[string]any{"updates": map[string]any{"updatedRange": "'2024-01'!A5:H5", "updatedRows": 1}}
	})

	err := c.AppendRows(context.Background(), "2024-01", "A1", [][]string{{"2024-01-01", "Coffee", "-4.50"}})
	require.NoError(t, err)

	req := fake.last()
	assert.Equal(t, http.MethodPost, req.method)
	assert.True(t, strings.HasSuffix(req.path, ":append"), req.path)
	assert.Contains(t, req.query, "valueInputOption=USER_ENTERED")
	assert.Contains(t, req.query, "insertDataOption=INSERT_ROWS")
	assert.Equal(t, []any{[]any{"2024-01-01", "Coffee", "-4.50"}}, req.body["values"])
}

func TestUpdateRange(t *testing.T) {
	c, fake := newTestClient(t, func(r *http.Request) any { return map[string]any{} })

	err := c.UpdateRange(context.Background(), "Jan's", "A1", [][]string{{"Date", "Description"}})
	require.NoError(t, err)

	req := fake.last()
	assert.Equal(t, http.MethodPut, req.method)
	assert.Contains(t, req.path, "/values/'Jan''s'!A1")
}

func TestCreatePartition(t *testing.T) {
	c, fake := newTestClient(t, func(r *http.Request) any {
		return map[string]any{
			"replies": []any{
				map[string]any{"addSheet": map[string]any{"properties": map[string]any{"sheetId": 42, "title": "2024-03"}}},
			},
		}
	})

	id, err := c.CreatePartition(context.Background(), "2024-03")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	req := fake.last()
	assert.True(t, strings.HasSuffix(req.path, ":batchUpdate"), req.path)
}

func TestCreatePartition_EmptyReply(t *testing.T) {
	c, _ := newTestClient(t, func(r *http.Request) any { return map[string]any{} })

	_, err := c.CreatePartition(context.Background(), "2024-03")
	assert.Error(t, err)
}

func TestSetValidation(t *testing.T) {
	c, fake := newTestClient(t, func(r *http.Request) any { return map[string]any{} })

	err := c.SetValidation(context.Background(), 0, 4, []string{"Needs", "Wants"})
	require.NoError(t, err)

	req := fake.last()
	requests := req.body["requests"].([]any)
	require.Len(t, requests, 1)
	dv := requests[0].(map[string]any)["setDataValidation"].(map[string]any)
	rng := dv["range"].(map[string]any)
	assert.EqualValues(t, 0, rng["sheetId"])
	assert.EqualValues(t, 4, rng["startColumnIndex"])
	assert.EqualValues(t, 5, rng["endColumnIndex"])
	assert.EqualValues(t, 1, rng["startRowIndex"])
	cond := dv["rule"].(map[string]any)["condition"].(map[string]any)
	assert.Equal(t, "ONE_OF_LIST", cond["type"])
	assert.Len(t, cond["values"], 2)
}

func TestServerErrorsAreWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), "sheet-123", option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)

	_, err = c.Properties(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Properties")
}
