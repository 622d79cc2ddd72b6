// Package locale holds the operator-locale tables: month names used as
// partition keys, category and flow labels stored in the ledger, and the
// user-facing reply texts.
package locale

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/ArionMiles/chatledger/pkg/api"
)

// Locale describes one operator locale.
type Locale struct {
	// Code is the short name used in configuration, e.g. "id".
	Code string
	// Tag drives number formatting.
	Tag language.Tag
	// Language is the human name given to the classifier for chat replies.
	Language string
	// Months are the long month names, January first.
	Months [12]string
	// Categories maps canonical categories to the labels stored in the ledger.
	Categories map[api.Category]string
	// Currency is printed before amounts.
	Currency string
	// Texts are the reply strings.
	Texts Texts
}

// Texts are the fixed strings the presenter uses.
type Texts struct {
	AddedTitle       string
	EditedTitle      string
	DeletedTitle     string
	DeletedBody      string // formatted with the joined ID list
	EditMissingData  string
	EditFailed       string
	DeleteFailed     string
	GenericFailure   string
	FieldID          string
	FieldDate        string
	FieldTransaction string
	FieldNominal     string
	FieldCashflow    string
	FieldCategory    string
	HelpAdd          string
	HelpEdit         string
	HelpDelete       string
}

var registry = map[string]*Locale{
	indonesian.Code: indonesian,
	english.Code:    english,
}

// Get returns the locale registered under code.
func Get(code string) (*Locale, error) {
	l, ok := registry[strings.ToLower(code)]
	if !ok {
		return nil, fmt.Errorf("unknown locale %q", code)
	}
	return l, nil
}

// MonthName returns the long month name of t, which is the partition key.
func (l *Locale) MonthName(t time.Time) string {
	return l.Months[t.Month()-1]
}

// CategoryLabel returns the stored label for c. Unknown categories are
// returned unchanged so hand-edited ledger values survive a round trip.
func (l *Locale) CategoryLabel(c api.Category) string {
	if label, ok := l.Categories[c]; ok {
		return label
	}
	return string(c)
}

// CategoryLabels returns every stored label in display order.
func (l *Locale) CategoryLabels() []string {
	labels := make([]string, 0, len(api.Categories))
	for _, c := range api.Categories {
		labels = append(labels, l.CategoryLabel(c))
	}
	return labels
}

// ParseCategory accepts either a localized label or a canonical name.
func (l *Locale) ParseCategory(label string) (api.Category, bool) {
	label = strings.TrimSpace(label)
	for c, known := range l.Categories {
		if strings.EqualFold(label, known) {
			return c, true
		}
	}
	for _, c := range api.Categories {
		if strings.EqualFold(label, string(c)) {
			return c, true
		}
	}
	return "", false
}

// CategoryFromStore maps a stored cell back to a category, keeping unknown
// labels verbatim.
func (l *Locale) CategoryFromStore(label string) api.Category {
	if label == "" {
		return ""
	}
	if c, ok := l.ParseCategory(label); ok {
		return c
	}
	return api.Category(label)
}

// ParseFlow accepts the flow labels case-insensitively.
func ParseFlow(label string) (api.Flow, bool) {
	switch {
	case strings.EqualFold(strings.TrimSpace(label), string(api.FlowIncome)):
		return api.FlowIncome, true
	case strings.EqualFold(strings.TrimSpace(label), string(api.FlowSpending)):
		return api.FlowSpending, true
	}
	return "", false
}

// FormatAmount renders d with the locale's digit grouping, e.g. "Rp 15.000".
func (l *Locale) FormatAmount(d decimal.Decimal) string {
	p := message.NewPrinter(l.Tag)
	return l.Currency + " " + p.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(2)))
}
