package model

import "time"

// Transaction kinds.
const (
	TransactionIntake  = "intake"
	TransactionExpense = "expense"
)

// Transaction is an immutable ledger entry. ProductID is a weak reference:
// it is cleared if the product is deleted, but the transaction itself stays
// as history. ExpenseQuantity and ExpensePurpose are only meaningful for
// expense entries. OwnerID mirrors the product's owner scope at write time.
type Transaction struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"`
	Kind            string    `json:"kind"`
	ProductID       string    `json:"product_id,omitempty"`
	ExpenseQuantity int64     `json:"expense_quantity,omitempty"`
	ExpensePurpose  string    `json:"expense_purpose,omitempty"`
	OwnerID         string    `json:"owner_id,omitempty"`
}
