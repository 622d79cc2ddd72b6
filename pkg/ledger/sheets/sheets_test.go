package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/ledger"
	"github.com/ArionMiles/chatledger/pkg/locale"
)

// fakeSheets keeps one spreadsheet in memory. Ranges are matched on the
// prefix the ledger builds, which is enough to tell the calls apart.
type fakeSheets struct {
	tabs     []string
	header   []any
	rows     [][]any // rows below the header
	appends  []string
	updates  map[string][]any
	getErr   error
	valErr   error
	writeErr error
	getCalls int
}

func (f *fakeSheets) getSpreadsheet(_ context.Context, id string) (*sheets.Spreadsheet, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	ss := &sheets.Spreadsheet{SpreadsheetId: id, Properties: &sheets.SpreadsheetProperties{Title: "Keuangan"}}
	for _, tab := range f.tabs {
		ss.Sheets = append(ss.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: tab}})
	}
	return ss, nil
}

func (f *fakeSheets) getValues(_ context.Context, _, rng string) ([][]any, error) {
	if f.valErr != nil {
		return nil, f.valErr
	}
	if strings.HasSuffix(rng, "!2:2") {
		return [][]any{f.header}, nil
	}
	return f.rows, nil
}

func (f *fakeSheets) appendRow(_ context.Context, _, rng string, row []any) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.appends = append(f.appends, rng)
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeSheets) updateRow(_ context.Context, _, rng string, row []any) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.updates == nil {
		f.updates = make(map[string][]any)
	}
	f.updates[rng] = row
	return nil
}

func calendar(t *testing.T) ledger.Calendar {
	t.Helper()
	l, err := locale.Get("id")
	require.NoError(t, err)
	return ledger.Calendar{
		Locale:   l,
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2025, 10, 16, 9, 0, 0, 0, time.UTC) },
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFake() *fakeSheets {
	return &fakeSheets{
		tabs:   []string{"September", "Oktober"},
		header: []any{"ID", "Date", "Transactions", "Nominal", "Cashflow", "Category"},
		rows: [][]any{
			{"TX-AAAAA", "2025-10-01", "Nasi goreng", float64(15000), "Spending", "Makan & Minum"},
			{"", "", "", "", "", ""},
			{"TX-BBBBB", "2025-10-02", "Gaji", float64(2000000), "Income", "Pemasukan"},
			{"TX-AAAAA", "2025-10-03", "Duplicate", float64(1), "Spending", "Lainnya"},
		},
	}
}

func openFake(t *testing.T, f *fakeSheets) *Ledger {
	t.Helper()
	l, err := open(context.Background(), f, Config{SpreadsheetID: "sheet-1", HeaderRow: 2}, calendar(t), quietLogger())
	require.NoError(t, err)
	return l
}

func TestPartition_NotFound(t *testing.T) {
	f := newFake()
	f.tabs = []string{"September"}
	l := openFake(t, f)

	_, err := l.Partition(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrPartitionNotFound)

	var storeErr *api.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, api.OpLoad, storeErr.Op)
}

func TestPartition_BadHeader(t *testing.T) {
	f := newFake()
	f.header = []any{"ID", "Date"}
	l := openFake(t, f)

	_, err := l.Partition(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns")
}

func TestAppend(t *testing.T) {
	f := newFake()
	l := openFake(t, f)

	p, err := l.Partition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Oktober", p.Name())

	err = p.Append(context.Background(), api.Transaction{
		ID:          "TX-CCCCC",
		Date:        "2025-10-16",
		Description: "Bensin",
		Amount:      decimal.NewFromInt(20000),
		Flow:        api.FlowSpending,
		Category:    api.CategoryTransport,
	})
	require.NoError(t, err)

	require.Len(t, f.appends, 1)
	assert.Equal(t, "'Oktober'!A2:F2", f.appends[0])
	last := f.rows[len(f.rows)-1]
	assert.Equal(t, []any{"TX-CCCCC", "2025-10-16", "Bensin", json.Number("20000"), "Spending", "Transportasi"}, last)
}

func TestAppend_LeavesExtraColumnsNil(t *testing.T) {
	f := newFake()
	f.header = []any{"ID", "Date", "Transactions", "Nominal", "Cashflow", "Category", "Running total"}
	l := openFake(t, f)

	p, err := l.Partition(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.Append(context.Background(), api.Transaction{ID: "TX-CCCCC", Amount: decimal.NewFromInt(1)}))

	last := f.rows[len(f.rows)-1]
	require.Len(t, last, 7)
	assert.Nil(t, last[6])
}

func TestFindByIDs(t *testing.T) {
	l := openFake(t, newFake())
	p, err := l.Partition(context.Background())
	require.NoError(t, err)

	found, err := p.FindByIDs(context.Background(), []string{"TX-AAAAA", "TX-BBBBB", "TX-ZZZZZ"})
	require.NoError(t, err)
	require.Len(t, found, 2)

	a := found["TX-AAAAA"]
	assert.Equal(t, 3, a.Row, "first match wins; data starts below header row 2")
	assert.Equal(t, "Nasi goreng", a.Record.Description)
	assert.Equal(t, api.CategoryFoodDrink, a.Record.Category)

	assert.Equal(t, 5, found["TX-BBBBB"].Row)
	_, ok := found["TX-ZZZZZ"]
	assert.False(t, ok)
}

func TestBlankAndMerge(t *testing.T) {
	f := newFake()
	f.header = append(f.header, "Running total")
	f.rows[0] = append(f.rows[0], float64(15000))
	l := openFake(t, f)

	p, err := l.Partition(context.Background())
	require.NoError(t, err)
	found, err := p.FindByIDs(context.Background(), []string{"TX-AAAAA", "TX-BBBBB"})
	require.NoError(t, err)

	amount := decimal.NewFromInt(20000)
	merged, err := p.Merge(context.Background(), found["TX-AAAAA"], api.PartialTransaction{Amount: &amount})
	require.NoError(t, err)
	assert.True(t, merged.Amount.Equal(amount))
	assert.Equal(t, "Nasi goreng", merged.Description)
	assert.Equal(t, "TX-AAAAA", merged.ID)

	// A nil cell is skipped by the Sheets API, so a formula there survives.
	updated := f.updates["'Oktober'!A3:G3"]
	require.Len(t, updated, 7)
	assert.Nil(t, updated[6])
	assert.Equal(t, "Nasi goreng", updated[2])
	assert.Equal(t, json.Number("20000"), updated[3])

	require.NoError(t, p.Blank(context.Background(), found["TX-BBBBB"]))
	assert.Equal(t, []any{"", "", "", "", "", "", nil}, f.updates["'Oktober'!A5:G5"])
}

func TestFindByIDs_UnreadableAmount(t *testing.T) {
	f := newFake()
	f.rows[2][3] = "Rp 2.000.000"
	l := openFake(t, f)
	p, err := l.Partition(context.Background())
	require.NoError(t, err)

	_, err = p.FindByIDs(context.Background(), []string{"TX-BBBBB"})
	require.Error(t, err)
	var storeErr *api.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, api.OpLoad, storeErr.Op)
	assert.Contains(t, err.Error(), "row 5")

	// Rows that were not asked for are not decoded.
	found, err := p.FindByIDs(context.Background(), []string{"TX-AAAAA"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestWriteErrorsAreStoreErrors(t *testing.T) {
	f := newFake()
	l := openFake(t, f)
	p, err := l.Partition(context.Background())
	require.NoError(t, err)
	found, err := p.FindByIDs(context.Background(), []string{"TX-AAAAA"})
	require.NoError(t, err)

	f.writeErr = errors.New("quota")
	appendErr := p.Append(context.Background(), api.Transaction{ID: "TX-CCCCC"})
	blankErr := p.Blank(context.Background(), found["TX-AAAAA"])
	_, mergeErr := p.Merge(context.Background(), found["TX-AAAAA"], api.PartialTransaction{})

	for op, err := range map[string]error{api.OpAdd: appendErr, api.OpDelete: blankErr, api.OpEdit: mergeErr} {
		var storeErr *api.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, op, storeErr.Op)
		assert.Contains(t, err.Error(), "quota")
	}
}

func TestOpen_RetriesRateLimit(t *testing.T) {
	f := newFake()
	calls := 0
	rl := &rateLimited{fakeSheets: f, failures: 2, calls: &calls}

	l, err := open(context.Background(), rl, Config{SpreadsheetID: "sheet-1", HeaderRow: 2, RetryDelay: time.Millisecond}, calendar(t), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "Keuangan", l.Title())
	assert.Equal(t, 3, calls)
}

func TestOpen_DoesNotRetryOtherErrors(t *testing.T) {
	f := newFake()
	f.getErr = &googleapi.Error{Code: http.StatusForbidden}

	_, err := open(context.Background(), f, Config{SpreadsheetID: "sheet-1", RetryDelay: time.Millisecond}, calendar(t), quietLogger())
	require.Error(t, err)
	assert.Equal(t, 1, f.getCalls)
}

type rateLimited struct {
	*fakeSheets
	failures int
	calls    *int
}

func (r *rateLimited) getSpreadsheet(ctx context.Context, id string) (*sheets.Spreadsheet, error) {
	*r.calls++
	if *r.calls <= r.failures {
		return nil, &googleapi.Error{Code: http.StatusTooManyRequests}
	}
	return r.fakeSheets.getSpreadsheet(ctx, id)
}

func TestColumnName(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "A"}, {6, "F"}, {26, "Z"}, {27, "AA"}, {52, "AZ"}, {53, "BA"},
	}
	for _, tc := range tests {
		if got := columnName(tc.n); got != tc.want {
			t.Errorf("columnName(%d): got %q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "'Oktober'", quote("Oktober"))
	assert.Equal(t, "'Jum''at'", quote("Jum'at"))
}

// TestNew_HTTP drives the real Sheets client against a local server.
func TestNew_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v4/spreadsheets/sheet-1":
			fmt.Fprint(w, `{"spreadsheetId":"sheet-1","properties":{"title":"Keuangan"},"sheets":[{"properties":{"title":"Oktober"}}]}`)
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v4/spreadsheets/sheet-1/values/"):
			assert.Equal(t, "UNFORMATTED_VALUE", r.URL.Query().Get("valueRenderOption"))
			fmt.Fprint(w, `{"values":[["ID","Date","Transactions","Nominal","Cashflow","Category"]]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l, err := New(context.Background(), srv.Client(), Config{SpreadsheetID: "sheet-1", HeaderRow: 2}, calendar(t), quietLogger(),
		option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	assert.Equal(t, "Keuangan", l.Title())
	assert.Equal(t, "sheet-1", l.SpreadsheetID())

	p, err := l.Partition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Oktober", p.Name())
}
