package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/akazakov/sklad/internal/model"
)

const transactionColumns = `id, date, kind, product_id, expense_quantity, expense_purpose, owner_id`

// TransactionFilter narrows ListTransactions. Owner scoping always applies
// unless AllOwners is set; an empty OwnerID selects the guest namespace.
// Results are ordered by date descending; Limit caps them when positive.
type TransactionFilter struct {
	AllOwners    bool
	OwnerID      string
	Kind         string
	ProductID    string
	CategoryLike string
	From         time.Time
	To           time.Time
	Limit        int
}

// CreateTransaction appends a ledger entry.
func CreateTransaction(ctx context.Context, db *sql.DB, t *model.Transaction) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO transactions (id, date, kind, product_id, expense_quantity, expense_purpose, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Date, t.Kind, nullable(t.ProductID), t.ExpenseQuantity, t.ExpensePurpose, nullable(t.OwnerID),
	)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}
	return nil
}

// GetTransaction returns a transaction by id, or nil if it does not exist.
func GetTransaction(ctx context.Context, db *sql.DB, id string) (*model.Transaction, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id,
	)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns transactions matching the filter, newest first.
func ListTransactions(ctx context.Context, db *sql.DB, f TransactionFilter) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	var args []any

	if !f.AllOwners {
		query += ` AND owner_id IS ?`
		args = append(args, nullable(f.OwnerID))
	}
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, f.Kind)
	}
	if f.ProductID != "" {
		query += ` AND product_id = ?`
		args = append(args, f.ProductID)
	}
	if f.CategoryLike != "" {
		query += ` AND product_id IN (SELECT id FROM products WHERE category LIKE ?)`
		args = append(args, "%"+f.CategoryLike+"%")
	}
	if !f.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		query += ` AND date <= ?`
		args = append(args, f.To)
	}

	query += ` ORDER BY date DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

// UpsertTransaction inserts or fully overwrites a transaction by id.
// Used by the sync pull and the backup import.
func UpsertTransaction(ctx context.Context, db *sql.DB, t *model.Transaction) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO transactions (id, date, kind, product_id, expense_quantity, expense_purpose, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     date = excluded.date, kind = excluded.kind, product_id = excluded.product_id,
		     expense_quantity = excluded.expense_quantity,
		     expense_purpose = excluded.expense_purpose, owner_id = excluded.owner_id`,
		t.ID, t.Date, t.Kind, nullable(t.ProductID), t.ExpenseQuantity, t.ExpensePurpose, nullable(t.OwnerID),
	)
	if err != nil {
		return fmt.Errorf("upserting transaction: %w", err)
	}
	return nil
}

// DeleteTransaction removes a single history entry. The product's quantity
// is left alone: deleting history does not undo the movement it recorded.
func DeleteTransaction(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}
	return nil
}

// DeleteTransactionsByOwner removes all transactions in an owner namespace.
// An empty ownerID purges the guest namespace.
func DeleteTransactionsByOwner(ctx context.Context, db *sql.DB, ownerID string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM transactions WHERE owner_id IS ?`, nullable(ownerID),
	)
	if err != nil {
		return fmt.Errorf("deleting transactions by owner: %w", err)
	}
	return nil
}

// ExpenseQuantitySum returns the total expense quantity ever recorded against
// a product. Together with the current quantity this reconstructs the total
// historically purchased quantity without a separate running counter.
func ExpenseQuantitySum(ctx context.Context, db *sql.DB, productID string) (int64, error) {
	var sum int64
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(expense_quantity), 0) FROM transactions
		 WHERE product_id = ? AND kind = ?`,
		productID, model.TransactionExpense,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("summing expense quantities: %w", err)
	}
	return sum, nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	t := &model.Transaction{}
	var productID, ownerID sql.NullString
	err := row.Scan(&t.ID, &t.Date, &t.Kind, &productID, &t.ExpenseQuantity, &t.ExpensePurpose, &ownerID)
	if err != nil {
		return nil, err
	}
	t.ProductID = productID.String
	t.OwnerID = ownerID.String
	return t, nil
}
