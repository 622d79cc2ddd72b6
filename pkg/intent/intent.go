// Package intent decodes the classifier's JSON wire format into api.Intent.
//
// The wire format is:
//
//	{
//	  "intent": "add" | "edit" | "delete" | "chat",
//	  "message": string | null,
//	  "id": string[] | null,
//	  "data_transaksi": [{
//	    "tanggal": "YYYY-MM-DD" | null,
//	    "transaksi": string | null,
//	    "nominal": number | null,
//	    "cashflow": "Income" | "Spending" | null,
//	    "kategori": <category label> | null
//	  }] | null
//	}
//
// Decoding is strict: unknown fields, unknown intents, labels outside the
// enumerations and payloads that belong to a different intent are rejected
// with an error wrapping api.ErrClassifier.
package intent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/locale"
	"github.com/ArionMiles/chatledger/pkg/txid"
)

// Wire is the raw classifier response.
type Wire struct {
	Intent  string            `json:"intent"`
	Message *string           `json:"message"`
	ID      []string          `json:"id"`
	Data    []WireTransaction `json:"data_transaksi"`
}

// WireTransaction is one element of data_transaksi.
type WireTransaction struct {
	Tanggal   *string          `json:"tanggal"`
	Transaksi *string          `json:"transaksi"`
	Nominal   *decimal.Decimal `json:"nominal"`
	Cashflow  *string          `json:"cashflow"`
	Kategori  *string          `json:"kategori"`
}

// Decoder turns raw classifier output into intents.
type Decoder struct {
	Locale *locale.Locale
}

// Decode parses raw and returns the intent it describes. today fills in the
// date of added transactions that came without one.
func (d Decoder) Decode(raw []byte, today time.Time) (api.Intent, error) {
	clean := CleanJSON(string(raw))

	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	dec.DisallowUnknownFields()

	var w Wire
	if err := dec.Decode(&w); err != nil {
		return nil, classifierErr("unmarshaling response: %v", err)
	}
	if dec.More() {
		return nil, classifierErr("trailing data after JSON object")
	}

	for i := range w.ID {
		w.ID[i] = txid.Normalize(w.ID[i])
	}

	switch strings.ToLower(strings.TrimSpace(w.Intent)) {
	case api.KindAdd:
		return d.decodeAdd(w, today)
	case api.KindEdit:
		return d.decodeEdit(w)
	case api.KindDelete:
		if hasText(w.Message) {
			return nil, classifierErr("delete carries a message")
		}
		if w.Data != nil {
			return nil, classifierErr("delete carries data_transaksi")
		}
		return api.DeleteIntent{IDs: w.ID}, nil
	case api.KindChat:
		if len(w.ID) > 0 {
			return nil, classifierErr("chat carries ids")
		}
		if w.Data != nil {
			return nil, classifierErr("chat carries data_transaksi")
		}
		if w.Message == nil {
			return api.ChatIntent{}, nil
		}
		return api.ChatIntent{Message: *w.Message}, nil
	default:
		return nil, classifierErr("unknown intent %q", w.Intent)
	}
}

func (d Decoder) decodeAdd(w Wire, today time.Time) (api.Intent, error) {
	if hasText(w.Message) {
		return nil, classifierErr("add carries a message")
	}
	if len(w.ID) > 0 {
		return nil, classifierErr("add carries ids")
	}

	txs := make([]api.Transaction, 0, len(w.Data))
	for i, wt := range w.Data {
		patch, err := d.decodePatch(wt)
		if err != nil {
			return nil, classifierErr("data_transaksi[%d]: %v", i, err)
		}
		if patch.Date == nil {
			date := today.Format(api.DateLayout)
			patch.Date = &date
		}
		switch {
		case patch.Description == nil:
			return nil, classifierErr("data_transaksi[%d]: transaksi is required", i)
		case patch.Amount == nil:
			return nil, classifierErr("data_transaksi[%d]: nominal is required", i)
		case patch.Flow == nil:
			return nil, classifierErr("data_transaksi[%d]: cashflow is required", i)
		case patch.Category == nil:
			return nil, classifierErr("data_transaksi[%d]: kategori is required", i)
		}
		txs = append(txs, patch.Apply(api.Transaction{}))
	}
	return api.AddIntent{Transactions: txs}, nil
}

func (d Decoder) decodeEdit(w Wire) (api.Intent, error) {
	if hasText(w.Message) {
		return nil, classifierErr("edit carries a message")
	}
	if w.Data == nil {
		return api.EditIntent{IDs: w.ID}, nil
	}

	patches := make([]api.PartialTransaction, 0, len(w.Data))
	for i, wt := range w.Data {
		patch, err := d.decodePatch(wt)
		if err != nil {
			return nil, classifierErr("data_transaksi[%d]: %v", i, err)
		}
		patches = append(patches, patch)
	}
	return api.EditIntent{IDs: w.ID, Patches: patches}, nil
}

// decodePatch validates one wire transaction. Null and empty fields come
// back as nil.
func (d Decoder) decodePatch(wt WireTransaction) (api.PartialTransaction, error) {
	var p api.PartialTransaction

	if hasText(wt.Tanggal) {
		date := strings.TrimSpace(*wt.Tanggal)
		if _, err := time.Parse(api.DateLayout, date); err != nil {
			return p, fmt.Errorf("tanggal %q is not YYYY-MM-DD", *wt.Tanggal)
		}
		p.Date = &date
	}

	if hasText(wt.Transaksi) {
		desc := *wt.Transaksi
		p.Description = &desc
	}

	if wt.Nominal != nil {
		if wt.Nominal.IsNegative() {
			return p, fmt.Errorf("nominal %s is negative", wt.Nominal)
		}
		amount := *wt.Nominal
		p.Amount = &amount
	}

	if hasText(wt.Cashflow) {
		flow, ok := locale.ParseFlow(*wt.Cashflow)
		if !ok {
			return p, fmt.Errorf("cashflow %q is not Income or Spending", *wt.Cashflow)
		}
		p.Flow = &flow
	}

	if hasText(wt.Kategori) {
		category, ok := d.Locale.ParseCategory(*wt.Kategori)
		if !ok {
			return p, fmt.Errorf("kategori %q is not a known category", *wt.Kategori)
		}
		p.Category = &category
	}

	return p, nil
}

// CleanJSON strips a surrounding Markdown code fence and any text around
// the outermost JSON object. Valid JSON is returned as is, so fences inside
// string values survive.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if json.Valid([]byte(s)) {
		return s
	}

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

func hasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func classifierErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", api.ErrClassifier, fmt.Sprintf(format, args...))
}
