// Package api defines the core interfaces and data structures for chatledger.
package api

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO 8601 calendar date layout used for Transaction.Date.
const DateLayout = "2006-01-02"

// Flow tells whether money came in or went out.
type Flow string

// Flow values.
const (
	FlowIncome   Flow = "Income"
	FlowSpending Flow = "Spending"
)

// Valid reports whether f is one of the enumerated flows.
func (f Flow) Valid() bool {
	return f == FlowIncome || f == FlowSpending
}

// Category is the canonical category of a transaction. Ledgers store the
// localized label; see the locale package for the mapping.
type Category string

// Category values.
const (
	CategoryFoodDrink      Category = "Food&Drink"
	CategoryTransport      Category = "Transport"
	CategoryMobileInternet Category = "Mobile&Internet"
	CategoryEntertainment  Category = "Entertainment"
	CategoryShopping       Category = "Shopping"
	CategoryBills          Category = "Bills"
	CategoryIncome         Category = "Income"
	CategoryOther          Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryFoodDrink,
	CategoryTransport,
	CategoryMobileInternet,
	CategoryEntertainment,
	CategoryShopping,
	CategoryBills,
	CategoryIncome,
	CategoryOther,
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Transaction is a single ledger entry.
type Transaction struct {
	// ID has the form TX-XXXXX. Empty until the reconciler assigns one.
	ID string `json:"id"`
	// Date is a YYYY-MM-DD calendar date.
	Date string `json:"date"`
	// Description is what the transaction was for, kept verbatim.
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Flow        Flow            `json:"flow"`
	Category    Category        `json:"category"`
}

// PartialTransaction is a field-level patch for an existing Transaction.
// A nil field means "leave the stored value unchanged".
type PartialTransaction struct {
	Date        *string          `json:"date,omitempty"`
	Description *string          `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Flow        *Flow            `json:"flow,omitempty"`
	Category    *Category        `json:"category,omitempty"`
}

// Apply returns base with every present field of p written over it.
func (p PartialTransaction) Apply(base Transaction) Transaction {
	out := base
	if p.Date != nil && *p.Date != "" {
		out.Date = *p.Date
	}
	if p.Description != nil && *p.Description != "" {
		out.Description = *p.Description
	}
	if p.Amount != nil {
		out.Amount = *p.Amount
	}
	if p.Flow != nil && *p.Flow != "" {
		out.Flow = *p.Flow
	}
	if p.Category != nil && *p.Category != "" {
		out.Category = *p.Category
	}
	return out
}

// Empty reports whether the patch carries no field at all.
func (p PartialTransaction) Empty() bool {
	return p.Date == nil && p.Description == nil && p.Amount == nil && p.Flow == nil && p.Category == nil
}

// RowRef addresses one stored row inside a partition.
type RowRef struct {
	// Partition is the name of the partition the row was loaded from.
	Partition string
	// Row is the backend's position for the row. For sheets this is the
	// 1-based sheet row number; other backends use their own ordinal.
	Row int
	// Record is the row's content at load time.
	Record Transaction
}

// Ledger opens month partitions of the external row store.
type Ledger interface {
	// Partition resolves the partition for the current month.
	// It returns an error wrapping ErrPartitionNotFound if it is not provisioned.
	Partition(ctx context.Context) (Partition, error)
}

// Partition is one month of the ledger.
type Partition interface {
	Name() string
	// Append adds a fully populated row after the last row.
	Append(ctx context.Context, tx Transaction) error
	// FindByIDs loads every row once and returns the rows whose ID is in ids.
	// IDs with no row are absent from the result.
	FindByIDs(ctx context.Context, ids []string) (map[string]RowRef, error)
	// Blank empties every ledger column of the row, ID included, keeping the row in place.
	Blank(ctx context.Context, ref RowRef) error
	// Merge writes the present fields of patch over the row and returns the result.
	Merge(ctx context.Context, ref RowRef, patch PartialTransaction) (Transaction, error)
}

// Classifier turns a raw chat message into an Intent.
type Classifier interface {
	// Classify returns an error wrapping ErrClassifier when the backend output
	// is not a well-formed intent.
	Classify(ctx context.Context, message string, today time.Time) (Intent, error)
}

// IDGenerator produces transaction IDs.
type IDGenerator interface {
	Generate() string
}
