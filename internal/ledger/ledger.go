// Package ledger is the inventory mutation core: the only component that
// changes product quantities and the sole writer of transaction records.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akazakov/sklad/internal/model"
	"github.com/akazakov/sklad/internal/store"
)

// DefaultExpensePurpose labels quick-mode expenses that carry no explicit reason.
const DefaultExpensePurpose = "quick expense"

// Ledger serializes all quantity mutations behind one mutex and one SQL
// transaction per operation, so a read-check-write never loses an update.
type Ledger struct {
	mu sync.Mutex
	db *sql.DB
}

// New creates a ledger over the given database.
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// IntakeParams describes an intake operation. When ProductID is set the
// quantity is added to that existing product and the descriptive fields are
// ignored; otherwise a new product is created from them.
type IntakeParams struct {
	ProductID    string
	Name         string
	Organization string
	Price        decimal.Decimal
	Quantity     int64
	Category     string
	Technique    string
	Barcode      string
	Photo        []byte
	CustomFields map[string]string
	ContainerID  string
	OwnerID      string
}

// Result is the outcome of a ledger operation. For an ambiguous quick-mode
// expense, Candidates holds every in-stock match, nothing was mutated, and
// the caller must re-invoke with an explicit product reference.
type Result struct {
	Product     *model.Product
	Transaction *model.Transaction
	Candidates  []model.Product
}

// Intake records incoming stock and appends an intake transaction stamped now.
func (l *Ledger) Intake(ctx context.Context, p IntakeParams) (*Result, error) {
	if p.Quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if p.Price.IsNegative() {
		return nil, &ValidationError{Field: "price", Reason: "must not be negative"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	productID := p.ProductID
	if productID == "" {
		productID = uuid.NewString()
		if err := insertProduct(ctx, tx, productID, p); err != nil {
			return nil, err
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND owner_id IS ?`,
			p.Quantity, productID, nullable(p.OwnerID),
		)
		if err != nil {
			return nil, fmt.Errorf("adding stock: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("adding stock: %w", err)
		}
		if n == 0 {
			return nil, ErrProductNotFound
		}
	}

	record := &model.Transaction{
		ID:        uuid.NewString(),
		Date:      time.Now().UTC(),
		Kind:      model.TransactionIntake,
		ProductID: productID,
		OwnerID:   p.OwnerID,
	}
	if err := insertTransaction(ctx, tx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing intake: %w", err)
	}

	product, err := store.GetProduct(ctx, l.db, productID)
	if err != nil {
		return nil, err
	}
	return &Result{Product: product, Transaction: record}, nil
}

// CreatePlaceholder creates a zero-quantity product: a known item with no
// stock. No transaction is recorded. Input UIs fall back to this when a
// quick expense finds no matching stock.
func (l *Ledger) CreatePlaceholder(ctx context.Context, p IntakeParams) (*model.Product, error) {
	if p.Name == "" && p.Barcode == "" {
		return nil, &ValidationError{Field: "product", Reason: "name or barcode required"}
	}
	if p.Price.IsNegative() {
		return nil, &ValidationError{Field: "price", Reason: "must not be negative"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p.Quantity = 0
	id := uuid.NewString()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertProduct(ctx, tx, id, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing placeholder: %w", err)
	}

	return store.GetProduct(ctx, l.db, id)
}

// ExpenseQuick deducts stock by barcode. Candidates are the in-stock
// products with that barcode in the owner scope:
// zero matches fail with ErrNoStock, one match deducts directly with the
// default purpose label, and more than one comes back as Candidates with
// nothing mutated.
func (l *Ledger) ExpenseQuick(ctx context.Context, barcode string, quantity int64, ownerID string) (*Result, error) {
	if barcode == "" {
		return nil, &ValidationError{Field: "barcode", Reason: "required for quick expense"}
	}
	if quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	candidates, err := store.ListProducts(ctx, l.db, store.ProductFilter{
		OwnerID: ownerID,
		Barcode: barcode,
		InStock: true,
	})
	if err != nil {
		return nil, err
	}

	switch len(candidates) {
	case 0:
		return nil, ErrNoStock
	case 1:
		return l.deduct(ctx, candidates[0].ID, quantity, DefaultExpensePurpose, ownerID)
	default:
		// Barcode is not a unique key: picking a batch automatically would be
		// silently wrong, so surface the choice to the caller.
		return &Result{Candidates: candidates}, nil
	}
}

// ExpenseProduct deducts stock from an explicit product and records the
// supplied purpose verbatim.
func (l *Ledger) ExpenseProduct(ctx context.Context, productID string, quantity int64, purpose, ownerID string) (*Result, error) {
	if productID == "" {
		return nil, &ValidationError{Field: "product_id", Reason: "required"}
	}
	if quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.deduct(ctx, productID, quantity, purpose, ownerID)
}

// PurchasedQuantity derives the total quantity ever stocked for a product:
// current quantity plus the sum of all expense quantities recorded against
// it. Reporting-only; requires a transaction scan.
func (l *Ledger) PurchasedQuantity(ctx context.Context, productID string) (int64, error) {
	product, err := store.GetProduct(ctx, l.db, productID)
	if err != nil {
		return 0, err
	}
	if product == nil {
		return 0, ErrProductNotFound
	}

	expensed, err := store.ExpenseQuantitySum(ctx, l.db, productID)
	if err != nil {
		return 0, err
	}
	return product.Quantity + expensed, nil
}

// deduct performs the read-check-write for one expense inside a single SQL
// transaction. Caller holds l.mu. A product reaching quantity 0 has its
// container reference cleared: exhausted items are unplaced.
func (l *Ledger) deduct(ctx context.Context, productID string, quantity int64, purpose, ownerID string) (*Result, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx,
		`SELECT quantity FROM products WHERE id = ? AND owner_id IS ?`,
		productID, nullable(ownerID),
	).Scan(&current)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checking current quantity: %w", err)
	}

	if quantity > current {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientStock, current, quantity)
	}

	remaining := current - quantity
	if remaining == 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE products SET quantity = 0, container_id = NULL, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`, productID,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE products SET quantity = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`, remaining, productID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("deducting stock: %w", err)
	}

	record := &model.Transaction{
		ID:              uuid.NewString(),
		Date:            time.Now().UTC(),
		Kind:            model.TransactionExpense,
		ProductID:       productID,
		ExpenseQuantity: quantity,
		ExpensePurpose:  purpose,
		OwnerID:         ownerID,
	}
	if err := insertTransaction(ctx, tx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing expense: %w", err)
	}

	product, err := store.GetProduct(ctx, l.db, productID)
	if err != nil {
		return nil, err
	}
	return &Result{Product: product, Transaction: record}, nil
}

func insertProduct(ctx context.Context, tx *sql.Tx, id string, p IntakeParams) error {
	custom := "{}"
	if len(p.CustomFields) > 0 {
		data, err := json.Marshal(p.CustomFields)
		if err != nil {
			return fmt.Errorf("encoding custom fields: %w", err)
		}
		custom = string(data)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO products (id, name, organization, price, quantity, category, technique,
		                       barcode, photo, custom_fields, owner_id, container_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Name, p.Organization, p.Price.String(), p.Quantity, p.Category, p.Technique,
		p.Barcode, p.Photo, custom, nullable(p.OwnerID), nullable(p.ContainerID),
	)
	if err != nil {
		return fmt.Errorf("creating product: %w", err)
	}
	return nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t *model.Transaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (id, date, kind, product_id, expense_quantity, expense_purpose, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Date, t.Kind, nullable(t.ProductID), t.ExpenseQuantity, t.ExpensePurpose, nullable(t.OwnerID),
	)
	if err != nil {
		return fmt.Errorf("recording transaction: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
