package models

// TransactionType discriminates ledger entries.
type TransactionType string

const (
	// TypeExpense is money one partner paid out on behalf of the project.
	TypeExpense TransactionType = "expense"

	// TypeRevenue is money one partner received on behalf of the project.
	TypeRevenue TransactionType = "revenue"

	// TypeSettlement is a direct transfer between the two partners to
	// equalize their positions.
	TypeSettlement TransactionType = "settlement"
)

// Valid reports whether t is one of the three known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeExpense, TypeRevenue, TypeSettlement:
		return true
	}
	return false
}

// Transaction is a single ledger entry. Once recorded it is only ever
// replaced wholesale (edit by id) or removed; fields are never patched in
// place.
type Transaction struct {
	// ID is unique per workspace and strictly increasing in creation order.
	ID int64 `json:"id"`

	// Type is one of expense, revenue, settlement.
	Type TransactionType `json:"type"`

	// Amount is a non-negative currency value.
	Amount float64 `json:"amount"`

	// Date is the calendar date in YYYY-MM-DD form, no time component.
	Date string `json:"date"`

	// Description is required for expense/revenue, optional for settlement.
	Description string `json:"description"`

	// PaidBy is the partner who paid. Set for expense and settlement.
	PaidBy string `json:"paidBy,omitempty"`

	// ReceivedBy is the partner who received. Set for revenue and
	// settlement. For a settlement it is always "the other partner"
	// relative to PaidBy.
	ReceivedBy string `json:"receivedBy,omitempty"`
}
