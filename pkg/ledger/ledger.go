// Package ledger holds the row model shared by every ledger store backend:
// the header labels, the mapping between stored cells and api.Transaction,
// month partition naming and the per-load ID index.
package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/locale"
)

// Header labels. A partition's header row must carry all of them, in any order.
const (
	ColID          = "ID"
	ColDate        = "Date"
	ColDescription = "Transactions"
	ColAmount      = "Nominal"
	ColFlow        = "Cashflow"
	ColCategory    = "Category"
)

// Columns lists the header labels in the order new partitions are laid out.
var Columns = []string{ColID, ColDate, ColDescription, ColAmount, ColFlow, ColCategory}

// Header maps the ledger labels to their 0-based column positions.
type Header struct {
	pos   map[string]int
	width int
}

// ParseHeader reads a header row. Extra columns are allowed; a missing
// ledger label is an error.
func ParseHeader(cells []any) (Header, error) {
	h := Header{pos: make(map[string]int, len(Columns)), width: len(cells)}
	for i, c := range cells {
		label := strings.TrimSpace(CellString(c))
		for _, want := range Columns {
			if strings.EqualFold(label, want) {
				if _, dup := h.pos[want]; !dup {
					h.pos[want] = i
				}
			}
		}
	}

	var missing []string
	for _, want := range Columns {
		if _, ok := h.pos[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return Header{}, fmt.Errorf("header row is missing columns %s", strings.Join(missing, ", "))
	}
	return h, nil
}

// Pos returns the 0-based column of label.
func (h Header) Pos(label string) int {
	return h.pos[label]
}

// Width is the number of columns the header spans, extras included.
func (h Header) Width() int {
	return h.width
}

// Codec converts between stored rows and transactions using a locale's
// category labels.
type Codec struct {
	Locale *locale.Locale
}

// Decode reads a row. Short rows are padded with empty cells. An amount
// cell that is not a number is an error rather than a zero.
func (c Codec) Decode(h Header, row []any) (api.Transaction, error) {
	cell := func(label string) any {
		if p := h.Pos(label); p < len(row) {
			return row[p]
		}
		return nil
	}

	amount, err := CellDecimal(cell(ColAmount))
	if err != nil {
		return api.Transaction{}, fmt.Errorf("column %s: %w", ColAmount, err)
	}

	return api.Transaction{
		ID:          strings.TrimSpace(CellString(cell(ColID))),
		Date:        CellString(cell(ColDate)),
		Description: CellString(cell(ColDescription)),
		Amount:      amount,
		Flow:        api.Flow(CellString(cell(ColFlow))),
		Category:    c.Locale.CategoryFromStore(CellString(cell(ColCategory))),
	}, nil
}

// Encode lays tx out as a full-width row. Columns outside the ledger are
// nil, which the Sheets API skips, so formulas there are not overwritten.
func (c Codec) Encode(h Header, tx api.Transaction) []any {
	row := make([]any, h.Width())
	row[h.Pos(ColID)] = tx.ID
	row[h.Pos(ColDate)] = tx.Date
	row[h.Pos(ColDescription)] = tx.Description
	row[h.Pos(ColAmount)] = json.Number(tx.Amount.String())
	row[h.Pos(ColFlow)] = string(tx.Flow)
	row[h.Pos(ColCategory)] = c.Locale.CategoryLabel(tx.Category)
	return row
}

// ledgerCells returns a full-width row holding raw's ledger cells and nil
// everywhere else.
func ledgerCells(h Header, raw []any) []any {
	row := make([]any, h.Width())
	for _, label := range Columns {
		p := h.Pos(label)
		if p < len(raw) && raw[p] != nil {
			row[p] = raw[p]
		} else {
			row[p] = ""
		}
	}
	return row
}

// Patch returns raw's ledger cells with the present fields of patch written
// over their columns. Ledger cells the patch does not touch keep their
// stored value; columns outside the ledger are nil.
func (c Codec) Patch(h Header, raw []any, patch api.PartialTransaction) []any {
	row := ledgerCells(h, raw)

	if patch.Date != nil && *patch.Date != "" {
		row[h.Pos(ColDate)] = *patch.Date
	}
	if patch.Description != nil && *patch.Description != "" {
		row[h.Pos(ColDescription)] = *patch.Description
	}
	if patch.Amount != nil {
		row[h.Pos(ColAmount)] = json.Number(patch.Amount.String())
	}
	if patch.Flow != nil && *patch.Flow != "" {
		row[h.Pos(ColFlow)] = string(*patch.Flow)
	}
	if patch.Category != nil && *patch.Category != "" {
		row[h.Pos(ColCategory)] = c.Locale.CategoryLabel(*patch.Category)
	}
	return row
}

// Blank returns a row with every ledger column emptied and nil in the
// columns outside the ledger.
func Blank(h Header) []any {
	row := make([]any, h.Width())
	for _, label := range Columns {
		row[h.Pos(label)] = ""
	}
	return row
}

// CellString renders a stored cell as text.
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case decimal.Decimal:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// CellDecimal reads an amount cell. Empty cells read as zero; any other
// cell that is not a plain number is an error.
func CellDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case decimal.Decimal:
		return x, nil
	}
	str := strings.TrimSpace(CellString(v))
	if str == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(str)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q is not a number", str)
	}
	return d, nil
}

// FirstRows maps each non-empty ID to the index of its first occurrence in ids.
func FirstRows(ids []string) map[string]int {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		if id == "" {
			continue
		}
		if _, seen := index[id]; !seen {
			index[id] = i
		}
	}
	return index
}

// Calendar names the partition that "now" belongs to.
type Calendar struct {
	Locale   *locale.Locale
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

// Today returns the current time in the configured location.
func (c Calendar) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

// PartitionName is the month name of Today in the locale.
func (c Calendar) PartitionName() string {
	return c.Locale.MonthName(c.Today())
}
