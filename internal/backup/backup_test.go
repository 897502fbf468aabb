package backup

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akazakov/sklad/internal/db"
	"github.com/akazakov/sklad/internal/model"
	"github.com/akazakov/sklad/internal/store"
)

func TestExportImportRoundtrip(t *testing.T) {
	source := db.NewTestDB(t)
	ctx := context.Background()

	store.CreateContainer(ctx, source, &model.Container{ID: "c1", Name: "Shelf"})

	product := model.Product{
		ID:           "p1",
		Name:         "Oil paint",
		Price:        decimal.RequireFromString("5.00"),
		Quantity:     7,
		Barcode:      "111",
		OwnerID:      "owner-a",
		ContainerID:  "c1",
		CustomFields: map[string]string{"size": "50ml"},
		Photo:        []byte{0xFF, 0xD8, 0xFF, 0xAA},
	}
	store.CreateProduct(ctx, source, &product)

	store.CreateTransaction(ctx, source, &model.Transaction{
		ID:              "t1",
		Date:            time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Kind:            model.TransactionExpense,
		ProductID:       "p1",
		ExpenseQuantity: 3,
		ExpensePurpose:  "damaged",
		OwnerID:         "owner-a",
	})

	doc, err := Export(ctx, source)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(doc.Containers) != 1 || len(doc.Products) != 1 || len(doc.Transactions) != 1 {
		t.Fatalf("unexpected document shape: %d/%d/%d",
			len(doc.Containers), len(doc.Products), len(doc.Transactions))
	}
	if doc.Products[0].Photo == "" {
		t.Error("expected photo encoded in document")
	}

	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	target := db.NewTestDB(t)
	if err := Import(ctx, target, decoded); err != nil {
		t.Fatalf("Import: %v", err)
	}

	got, _ := store.GetProduct(ctx, target, "p1")
	if got == nil {
		t.Fatal("expected product imported")
	}
	if got.Quantity != 7 || got.Barcode != "111" || got.OwnerID != "owner-a" || got.ContainerID != "c1" {
		t.Errorf("unexpected imported product: %+v", got)
	}
	if !got.Price.Equal(decimal.RequireFromString("5.00")) {
		t.Errorf("expected price 5.00, got %s", got.Price)
	}
	if got.CustomFields["size"] != "50ml" {
		t.Errorf("expected custom fields preserved, got %v", got.CustomFields)
	}

	photo, _ := store.GetProductPhoto(ctx, target, "p1")
	if string(photo) != string(product.Photo) {
		t.Errorf("expected photo bytes preserved, got %v", photo)
	}

	tx, _ := store.GetTransaction(ctx, target, "t1")
	if tx == nil || tx.ExpensePurpose != "damaged" || tx.ExpenseQuantity != 3 {
		t.Errorf("unexpected imported transaction: %+v", tx)
	}
}

func TestImportIdempotent(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	doc := &Document{
		Containers: []ContainerRecord{{ID: "c1", Name: "Shelf"}},
		Products: []ProductRecord{{
			ID: "p1", Name: "Paint", Price: "3.00", Quantity: 2, ContainerID: "c1",
		}},
		Transactions: []TransactionRecord{{
			ID: "t1", Date: time.Now().UTC(), Kind: model.TransactionIntake, ProductID: "p1",
		}},
	}

	if err := Import(ctx, database, doc); err != nil {
		t.Fatalf("first Import: %v", err)
	}
	if err := Import(ctx, database, doc); err != nil {
		t.Fatalf("second Import: %v", err)
	}

	products, _ := store.ListProducts(ctx, database, store.ProductFilter{AllOwners: true})
	if len(products) != 1 {
		t.Errorf("expected 1 product after repeated import, got %d", len(products))
	}
	transactions, _ := store.ListTransactions(ctx, database, store.TransactionFilter{AllOwners: true})
	if len(transactions) != 1 {
		t.Errorf("expected 1 transaction after repeated import, got %d", len(transactions))
	}
}

func TestImportClearsDanglingReferences(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	doc := &Document{
		Products: []ProductRecord{{
			ID: "p1", Name: "Paint", Price: "1.00", Quantity: 1, ContainerID: "ghost-container",
		}},
		Transactions: []TransactionRecord{{
			ID: "t1", Date: time.Now().UTC(), Kind: model.TransactionIntake, ProductID: "ghost-product",
		}},
	}

	if err := Import(ctx, database, doc); err != nil {
		t.Fatalf("Import: %v", err)
	}

	p, _ := store.GetProduct(ctx, database, "p1")
	if p == nil || p.ContainerID != "" {
		t.Errorf("expected dangling container cleared, got %+v", p)
	}

	tx, _ := store.GetTransaction(ctx, database, "t1")
	if tx == nil || tx.ProductID != "" {
		t.Errorf("expected dangling product reference cleared, got %+v", tx)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"products": [`)); err == nil {
		t.Error("expected error for truncated document")
	}
}

func TestImportRejectsBadPrice(t *testing.T) {
	database := db.NewTestDB(t)

	doc := &Document{
		Products: []ProductRecord{{ID: "p1", Name: "Paint", Price: "not-a-number"}},
	}
	if err := Import(context.Background(), database, doc); err == nil {
		t.Error("expected error for unparseable price")
	}
}

func TestFailedImportAppliesNothing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	// Valid records followed by a broken one. The whole document must be
	// rejected without the earlier records being applied.
	docs := []*Document{
		{
			Containers: []ContainerRecord{{ID: "c1", Name: "Shelf"}},
			Products: []ProductRecord{
				{ID: "p1", Name: "Paint", Price: "1.00", Quantity: 1, ContainerID: "c1"},
				{ID: "p2", Name: "Brush", Price: "not-a-number"},
			},
		},
		{
			Containers: []ContainerRecord{{ID: "c1", Name: "Shelf"}},
			Products: []ProductRecord{
				{ID: "p1", Name: "Paint", Price: "1.00", Quantity: 1},
				{ID: "p2", Name: "Brush", Price: "2.00", Photo: "%%%not-base64%%%"},
			},
		},
		{
			Containers: []ContainerRecord{{ID: "c1", Name: "Shelf"}},
			Products: []ProductRecord{
				{ID: "p1", Name: "Paint", Price: "1.00", Quantity: 1},
			},
			Transactions: []TransactionRecord{
				{ID: "t1", Date: time.Now().UTC(), Kind: "bogus", ProductID: "p1"},
			},
		},
	}

	for _, doc := range docs {
		if err := Import(ctx, database, doc); err == nil {
			t.Fatal("expected import to fail")
		}

		if c, _ := store.GetContainer(ctx, database, "c1"); c != nil {
			t.Errorf("expected no container after failed import, got %+v", c)
		}
		if p, _ := store.GetProduct(ctx, database, "p1"); p != nil {
			t.Errorf("expected no product after failed import, got %+v", p)
		}
		if tx, _ := store.GetTransaction(ctx, database, "t1"); tx != nil {
			t.Errorf("expected no transaction after failed import, got %+v", tx)
		}
	}
}
