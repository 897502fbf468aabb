package store

import (
	"context"
	"testing"
	"time"

	"github.com/akazakov/sklad/internal/db"
	"github.com/akazakov/sklad/internal/model"
)

func testTransaction(id, kind, productID, ownerID string, date time.Time) *model.Transaction {
	t := &model.Transaction{
		ID:        id,
		Date:      date,
		Kind:      kind,
		ProductID: productID,
		OwnerID:   ownerID,
	}
	if kind == model.TransactionExpense {
		t.ExpenseQuantity = 1
		t.ExpensePurpose = "test"
	}
	return t
}

func TestListTransactionsOrderAndLimit(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateProduct(ctx, database, testProduct("p1", "Paint", "1", "", 5))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"t1", "t2", "t3"} {
		tx := testTransaction(id, model.TransactionIntake, "p1", "", base.Add(time.Duration(i)*time.Hour))
		if err := CreateTransaction(ctx, database, tx); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	got, err := ListTransactions(ctx, database, TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(got))
	}
	if got[0].ID != "t3" || got[2].ID != "t1" {
		t.Errorf("expected newest first, got %s..%s", got[0].ID, got[2].ID)
	}

	limited, err := ListTransactions(ctx, database, TransactionFilter{Limit: 2})
	if err != nil {
		t.Fatalf("ListTransactions limit: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "t3" {
		t.Errorf("expected 2 newest, got %+v", limited)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateProduct(ctx, database, testProduct("p1", "Paint", "1", "", 5))
	CreateProduct(ctx, database, testProduct("p2", "Brush", "2", "owner-a", 5))

	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	CreateTransaction(ctx, database, testTransaction("t1", model.TransactionIntake, "p1", "", jan))
	CreateTransaction(ctx, database, testTransaction("t2", model.TransactionExpense, "p1", "", feb))
	CreateTransaction(ctx, database, testTransaction("t3", model.TransactionIntake, "p2", "owner-a", mar))

	expenses, err := ListTransactions(ctx, database, TransactionFilter{Kind: model.TransactionExpense})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(expenses) != 1 || expenses[0].ID != "t2" {
		t.Errorf("expected only t2, got %+v", expenses)
	}

	inRange, err := ListTransactions(ctx, database, TransactionFilter{
		From: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("ListTransactions range: %v", err)
	}
	if len(inRange) != 1 || inRange[0].ID != "t2" {
		t.Errorf("expected only february entry, got %+v", inRange)
	}

	ownerA, err := ListTransactions(ctx, database, TransactionFilter{OwnerID: "owner-a"})
	if err != nil {
		t.Fatalf("ListTransactions owner: %v", err)
	}
	if len(ownerA) != 1 || ownerA[0].ID != "t3" {
		t.Errorf("expected only owner-a entry, got %+v", ownerA)
	}
}

func TestListTransactionsByProductCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	paint := testProduct("p1", "Oil paint", "1", "", 5)
	paint.Category = "paint supplies"
	CreateProduct(ctx, database, paint)
	CreateProduct(ctx, database, testProduct("p2", "Brush", "2", "", 5))

	now := time.Now().UTC()
	CreateTransaction(ctx, database, testTransaction("t1", model.TransactionIntake, "p1", "", now))
	CreateTransaction(ctx, database, testTransaction("t2", model.TransactionIntake, "p2", "", now))

	got, err := ListTransactions(ctx, database, TransactionFilter{CategoryLike: "paint"})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(got) != 1 || got[0].ID != "t1" {
		t.Errorf("expected only the paint-category entry, got %+v", got)
	}
}

func TestDeleteTransaction(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateProduct(ctx, database, testProduct("p1", "Paint", "1", "", 5))
	CreateTransaction(ctx, database, testTransaction("t1", model.TransactionIntake, "p1", "", time.Now().UTC()))

	if err := DeleteTransaction(ctx, database, "t1"); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}

	got, err := GetTransaction(ctx, database, "t1")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got != nil {
		t.Errorf("expected transaction gone, got %+v", got)
	}

	// Deleting history must not touch the product.
	p, _ := GetProduct(ctx, database, "p1")
	if p == nil || p.Quantity != 5 {
		t.Errorf("expected product untouched, got %+v", p)
	}
}

func TestDeleteProductClearsTransactionReference(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateProduct(ctx, database, testProduct("p1", "Paint", "1", "", 5))
	CreateTransaction(ctx, database, testTransaction("t1", model.TransactionIntake, "p1", "", time.Now().UTC()))

	if err := DeleteProduct(ctx, database, "p1"); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}

	got, err := GetTransaction(ctx, database, "t1")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got == nil {
		t.Fatal("expected transaction to survive product deletion")
	}
	if got.ProductID != "" {
		t.Errorf("expected cleared product reference, got %q", got.ProductID)
	}
}

func TestExpenseQuantitySum(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateProduct(ctx, database, testProduct("p1", "Paint", "1", "", 5))

	sum, err := ExpenseQuantitySum(ctx, database, "p1")
	if err != nil {
		t.Fatalf("ExpenseQuantitySum: %v", err)
	}
	if sum != 0 {
		t.Errorf("expected 0 with no expenses, got %d", sum)
	}

	e1 := testTransaction("t1", model.TransactionExpense, "p1", "", time.Now().UTC())
	e1.ExpenseQuantity = 3
	CreateTransaction(ctx, database, e1)

	e2 := testTransaction("t2", model.TransactionExpense, "p1", "", time.Now().UTC())
	e2.ExpenseQuantity = 4
	CreateTransaction(ctx, database, e2)

	// Intakes must not count.
	CreateTransaction(ctx, database, testTransaction("t3", model.TransactionIntake, "p1", "", time.Now().UTC()))

	sum, err = ExpenseQuantitySum(ctx, database, "p1")
	if err != nil {
		t.Fatalf("ExpenseQuantitySum: %v", err)
	}
	if sum != 7 {
		t.Errorf("expected 7, got %d", sum)
	}
}

func TestUpsertTransactionOverwrites(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateProduct(ctx, database, testProduct("p1", "Paint", "1", "", 5))

	orig := testTransaction("t1", model.TransactionExpense, "p1", "", time.Now().UTC())
	orig.ExpensePurpose = "old purpose"
	CreateTransaction(ctx, database, orig)

	orig.ExpensePurpose = "new purpose"
	orig.ExpenseQuantity = 9
	if err := UpsertTransaction(ctx, database, orig); err != nil {
		t.Fatalf("UpsertTransaction: %v", err)
	}

	got, _ := GetTransaction(ctx, database, "t1")
	if got.ExpensePurpose != "new purpose" || got.ExpenseQuantity != 9 {
		t.Errorf("expected overwrite, got %+v", got)
	}
}
