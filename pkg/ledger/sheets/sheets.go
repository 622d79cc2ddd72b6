// Package sheets implements the ledger store on Google Sheets. Each month is
// a tab of one spreadsheet, named after the month in the operator locale.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/ledger"
)

// DefaultRetryDelay is the wait between attempts when opening the spreadsheet is rate limited.
const DefaultRetryDelay = 60 * time.Second

// Config holds configuration for the Sheets ledger.
type Config struct {
	// SpreadsheetID is the ID of an existing spreadsheet.
	SpreadsheetID string
	// HeaderRow is the 1-based row holding the column labels.
	HeaderRow int
	// RetryDelay defaults to DefaultRetryDelay.
	RetryDelay time.Duration
}

// sheetAPI is the slice of the Sheets service the ledger uses.
type sheetAPI interface {
	getSpreadsheet(ctx context.Context, id string) (*sheets.Spreadsheet, error)
	getValues(ctx context.Context, id, rng string) ([][]any, error)
	appendRow(ctx context.Context, id, rng string, row []any) error
	updateRow(ctx context.Context, id, rng string, row []any) error
}

type service struct {
	svc *sheets.Service
}

func (s service) getSpreadsheet(ctx context.Context, id string) (*sheets.Spreadsheet, error) {
	return s.svc.Spreadsheets.Get(id).
		Fields(googleapi.Field("spreadsheetId,properties.title,sheets.properties")).
		Context(ctx).
		Do()
}

func (s service) getValues(ctx context.Context, id, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(id, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s service) appendRow(ctx context.Context, id, rng string, row []any) error {
	_, err := s.svc.Spreadsheets.Values.Append(id, rng, &sheets.ValueRange{Values: [][]any{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (s service) updateRow(ctx context.Context, id, rng string, row []any) error {
	_, err := s.svc.Spreadsheets.Values.Update(id, rng, &sheets.ValueRange{Values: [][]any{row}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// Ledger resolves month tabs of one spreadsheet.
type Ledger struct {
	api       sheetAPI
	id        string
	title     string
	headerRow int
	calendar  ledger.Calendar
	codec     ledger.Codec
	logger    *slog.Logger
}

// New connects to the spreadsheet. Rate-limited attempts are retried; no
// other call made by the ledger is.
func New(ctx context.Context, httpClient *http.Client, cfg Config, cal ledger.Calendar, logger *slog.Logger, opts ...option.ClientOption) (*Ledger, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return open(ctx, service{svc: svc}, cfg, cal, logger)
}

func open(ctx context.Context, sa sheetAPI, cfg Config, cal ledger.Calendar, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet ID is required")
	}
	if cfg.HeaderRow < 1 {
		cfg.HeaderRow = 1
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	var ss *sheets.Spreadsheet
	err := retry.Do(
		func() error {
			var err error
			ss, err = sa.getSpreadsheet(ctx, cfg.SpreadsheetID)
			return err
		},
		retry.RetryIf(func(err error) bool {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
				logger.Warn("rate limited, will retry", "error", err)
				return true
			}
			return false
		}),
		retry.Attempts(3),
		retry.Delay(delay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("getting spreadsheet %s: %w", cfg.SpreadsheetID, err)
	}

	l := &Ledger{
		api:       sa,
		id:        cfg.SpreadsheetID,
		headerRow: cfg.HeaderRow,
		calendar:  cal,
		codec:     ledger.Codec{Locale: cal.Locale},
		logger:    logger,
	}
	if ss.Properties != nil {
		l.title = ss.Properties.Title
	}

	logger.Info("using spreadsheet", "title", l.title, "id", l.id, "header_row", l.headerRow)
	return l, nil
}

// Title returns the spreadsheet title seen when the ledger was opened.
func (l *Ledger) Title() string {
	return l.title
}

// SpreadsheetID returns the ID of the spreadsheet.
func (l *Ledger) SpreadsheetID() string {
	return l.id
}

// Partition finds the tab for the current month and reads its header.
func (l *Ledger) Partition(ctx context.Context) (api.Partition, error) {
	name := l.calendar.PartitionName()

	ss, err := l.api.getSpreadsheet(ctx, l.id)
	if err != nil {
		return nil, api.WrapStore(api.OpLoad, fmt.Errorf("getting spreadsheet: %w", err))
	}

	found := false
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			found = true
			break
		}
	}
	if !found {
		return nil, api.WrapStore(api.OpLoad, fmt.Errorf("sheet %q: %w", name, api.ErrPartitionNotFound))
	}

	headerRange := fmt.Sprintf("%s!%d:%d", quote(name), l.headerRow, l.headerRow)
	values, err := l.api.getValues(ctx, l.id, headerRange)
	if err != nil {
		return nil, api.WrapStore(api.OpLoad, fmt.Errorf("reading header of %q: %w", name, err))
	}
	var cells []any
	if len(values) > 0 {
		cells = values[0]
	}
	header, err := ledger.ParseHeader(cells)
	if err != nil {
		return nil, api.WrapStore(api.OpLoad, fmt.Errorf("sheet %q row %d: %w", name, l.headerRow, err))
	}

	return &partition{
		ledger: l,
		name:   name,
		header: header,
		loaded: make(map[int][]any),
	}, nil
}

type partition struct {
	ledger *Ledger
	name   string
	header ledger.Header
	// loaded holds the raw cells of the rows returned by the last FindByIDs,
	// keyed by sheet row, so a merge rewrites untouched ledger cells as read.
	loaded map[int][]any
}

func (p *partition) Name() string {
	return p.name
}

func (p *partition) Append(ctx context.Context, tx api.Transaction) error {
	l := p.ledger
	row := l.codec.Encode(p.header, tx)
	if err := l.api.appendRow(ctx, l.id, p.tableRange(), row); err != nil {
		return api.WrapStore(api.OpAdd, fmt.Errorf("appending row to %q: %w", p.name, err))
	}
	l.logger.Debug("appended row", "sheet", p.name, "id", tx.ID)
	return nil
}

func (p *partition) FindByIDs(ctx context.Context, ids []string) (map[string]api.RowRef, error) {
	l := p.ledger
	first := l.headerRow + 1
	rng := fmt.Sprintf("%s!A%d:%s", quote(p.name), first, columnName(p.header.Width()))

	rows, err := l.api.getValues(ctx, l.id, rng)
	if err != nil {
		return nil, api.WrapStore(api.OpLoad, fmt.Errorf("reading rows of %q: %w", p.name, err))
	}

	rowIDs := make([]string, len(rows))
	for i, row := range rows {
		if pos := p.header.Pos(ledger.ColID); pos < len(row) {
			rowIDs[i] = strings.TrimSpace(ledger.CellString(row[pos]))
		}
	}
	index := ledger.FirstRows(rowIDs)

	found := make(map[string]api.RowRef, len(ids))
	for _, id := range ids {
		i, ok := index[id]
		if !ok {
			continue
		}
		sheetRow := first + i
		rec, err := l.codec.Decode(p.header, rows[i])
		if err != nil {
			return nil, api.WrapStore(api.OpLoad, fmt.Errorf("row %d of %q: %w", sheetRow, p.name, err))
		}
		p.loaded[sheetRow] = rows[i]
		found[id] = api.RowRef{
			Partition: p.name,
			Row:       sheetRow,
			Record:    rec,
		}
	}

	l.logger.Debug("indexed rows", "sheet", p.name, "rows", len(rows), "requested", len(ids), "found", len(found))
	return found, nil
}

func (p *partition) Blank(ctx context.Context, ref api.RowRef) error {
	l := p.ledger
	row := ledger.Blank(p.header)
	if err := l.api.updateRow(ctx, l.id, p.rowRange(ref.Row), row); err != nil {
		return api.WrapStore(api.OpDelete, fmt.Errorf("blanking row %d of %q: %w", ref.Row, p.name, err))
	}
	delete(p.loaded, ref.Row)
	return nil
}

func (p *partition) Merge(ctx context.Context, ref api.RowRef, patch api.PartialTransaction) (api.Transaction, error) {
	l := p.ledger
	row := l.codec.Patch(p.header, p.raw(ref), patch)
	if err := l.api.updateRow(ctx, l.id, p.rowRange(ref.Row), row); err != nil {
		return api.Transaction{}, api.WrapStore(api.OpEdit, fmt.Errorf("updating row %d of %q: %w", ref.Row, p.name, err))
	}
	p.loaded[ref.Row] = row
	return patch.Apply(ref.Record), nil
}

// raw returns the cells last read for ref, or the encoded record when the
// row was not loaded through this partition.
func (p *partition) raw(ref api.RowRef) []any {
	if row, ok := p.loaded[ref.Row]; ok {
		return row
	}
	return p.ledger.codec.Encode(p.header, ref.Record)
}

func (p *partition) tableRange() string {
	return fmt.Sprintf("%s!A%d:%s%d", quote(p.name), p.ledger.headerRow, columnName(p.header.Width()), p.ledger.headerRow)
}

func (p *partition) rowRange(row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quote(p.name), row, columnName(p.header.Width()), row)
}

// quote wraps a sheet title for A1 notation.
func quote(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// columnName returns the A1 column letters for a 1-based column number.
func columnName(n int) string {
	if n < 1 {
		n = 1
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
