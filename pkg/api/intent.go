package api

import "fmt"

// Intent is the classifier's normalized reading of a message. It is one of
// AddIntent, EditIntent, DeleteIntent or ChatIntent.
type Intent interface {
	// Kind returns the wire tag of the variant.
	Kind() string
	// Validate checks the variant's structural invariants.
	Validate() error
	isIntent()
}

// Intent kinds as they appear on the classifier wire.
const (
	KindAdd    = "add"
	KindEdit   = "edit"
	KindDelete = "delete"
	KindChat   = "chat"
)

// AddIntent records new transactions. IDs are empty; the reconciler assigns them.
type AddIntent struct {
	Transactions []Transaction
}

// EditIntent patches an existing transaction. Only IDs[0] and Patches[0] are used.
type EditIntent struct {
	IDs     []string
	Patches []PartialTransaction
}

// DeleteIntent soft-deletes every listed transaction.
type DeleteIntent struct {
	IDs []string
}

// ChatIntent is a conversational reply with no ledger effect.
type ChatIntent struct {
	Message string
}

func (AddIntent) Kind() string    { return KindAdd }
func (EditIntent) Kind() string   { return KindEdit }
func (DeleteIntent) Kind() string { return KindDelete }
func (ChatIntent) Kind() string   { return KindChat }

func (AddIntent) isIntent()    {}
func (EditIntent) isIntent()   {}
func (DeleteIntent) isIntent() {}
func (ChatIntent) isIntent()   {}

// Validate implements Intent.
func (i AddIntent) Validate() error {
	if len(i.Transactions) == 0 {
		return fmt.Errorf("%w: add without transactions", ErrMalformedIntent)
	}
	for n, tx := range i.Transactions {
		if tx.ID != "" {
			return fmt.Errorf("%w: add transaction %d already has id %q", ErrMalformedIntent, n, tx.ID)
		}
		if tx.Amount.IsNegative() {
			return fmt.Errorf("%w: add transaction %d has negative amount", ErrMalformedIntent, n)
		}
	}
	return nil
}

// Validate implements Intent. Missing patches are not a structural error;
// the reconciler reports them as EditMissingData.
func (i EditIntent) Validate() error {
	if len(i.IDs) == 0 {
		return fmt.Errorf("%w: edit without ids", ErrMalformedIntent)
	}
	return nil
}

// Validate implements Intent.
func (i DeleteIntent) Validate() error {
	if len(i.IDs) == 0 {
		return fmt.Errorf("%w: delete without ids", ErrMalformedIntent)
	}
	return nil
}

// Validate implements Intent.
func (i ChatIntent) Validate() error {
	if i.Message == "" {
		return fmt.Errorf("%w: chat without message", ErrMalformedIntent)
	}
	return nil
}
