package core

import "github.com/shopspring/decimal"

// TransactionPatch carries only the fields an edit intends to change.
// A nil field preserves the existing value; a non-nil field overwrites
// it, including overwriting with an empty string or zero amount.
type TransactionPatch struct {
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category"`
	Date        *Date            `json:"date"`
	Description *string          `json:"description"`
	UserID      *int64           `json:"userId"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Amount == nil && p.Category == nil && p.Date == nil &&
		p.Description == nil && p.UserID == nil
}

// Apply merges the patch onto t and returns the result. The receiver is
// not modified; the id never changes.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.UserID != nil {
		t.UserID = *p.UserID
	}
	return t
}
