package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/akazakov/sklad/internal/db"
	"github.com/akazakov/sklad/internal/model"
)

func testProduct(id, name, barcode, ownerID string, quantity int64) *model.Product {
	return &model.Product{
		ID:       id,
		Name:     name,
		Barcode:  barcode,
		OwnerID:  ownerID,
		Quantity: quantity,
		Price:    decimal.RequireFromString("9.50"),
	}
}

func TestCreateAndGetProduct(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	p := testProduct("p1", "Canvas", "111", "", 3)
	p.CustomFields = map[string]string{"size": "A4"}
	if err := CreateProduct(ctx, database, p); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	got, err := GetProduct(ctx, database, "p1")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got == nil {
		t.Fatal("expected product, got nil")
	}
	if got.Name != "Canvas" || got.Quantity != 3 {
		t.Errorf("unexpected product: %+v", got)
	}
	if !got.Price.Equal(decimal.RequireFromString("9.50")) {
		t.Errorf("expected price 9.50, got %s", got.Price)
	}
	if got.CustomFields["size"] != "A4" {
		t.Errorf("expected custom field size=A4, got %v", got.CustomFields)
	}
	if got.OwnerID != "" {
		t.Errorf("expected guest scope, got owner %q", got.OwnerID)
	}
}

func TestGetProductMissing(t *testing.T) {
	database := db.NewTestDB(t)

	got, err := GetProduct(context.Background(), database, "nope")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing product, got %+v", got)
	}
}

func TestListProductsOwnerScoping(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateProduct(ctx, database, testProduct("g1", "Guest paint", "111", "", 2))
	CreateProduct(ctx, database, testProduct("o1", "Owner paint", "111", "owner-a", 5))
	CreateProduct(ctx, database, testProduct("o2", "Other paint", "222", "owner-b", 1))

	guest, err := ListProducts(ctx, database, ProductFilter{})
	if err != nil {
		t.Fatalf("ListProducts guest: %v", err)
	}
	if len(guest) != 1 || guest[0].ID != "g1" {
		t.Errorf("expected only guest product, got %+v", guest)
	}

	ownerA, err := ListProducts(ctx, database, ProductFilter{OwnerID: "owner-a"})
	if err != nil {
		t.Fatalf("ListProducts owner-a: %v", err)
	}
	if len(ownerA) != 1 || ownerA[0].ID != "o1" {
		t.Errorf("expected only owner-a product, got %+v", ownerA)
	}

	all, err := ListProducts(ctx, database, ProductFilter{AllOwners: true})
	if err != nil {
		t.Fatalf("ListProducts all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 products across owners, got %d", len(all))
	}
}

func TestListProductsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	inStock := testProduct("p1", "Oil paint", "111", "", 4)
	inStock.Category = "paint"
	CreateProduct(ctx, database, inStock)

	empty := testProduct("p2", "Oil paint spare", "111", "", 0)
	CreateProduct(ctx, database, empty)

	other := testProduct("p3", "Brush", "222", "", 9)
	CreateProduct(ctx, database, other)

	byBarcode, err := ListProducts(ctx, database, ProductFilter{Barcode: "111", InStock: true})
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(byBarcode) != 1 || byBarcode[0].ID != "p1" {
		t.Errorf("expected only in-stock barcode match, got %+v", byBarcode)
	}

	byName, err := ListProducts(ctx, database, ProductFilter{NameLike: "Oil"})
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(byName) != 2 {
		t.Errorf("expected 2 name matches, got %d", len(byName))
	}

	min := int64(5)
	byMin, err := ListProducts(ctx, database, ProductFilter{MinQuantity: &min})
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(byMin) != 1 || byMin[0].ID != "p3" {
		t.Errorf("expected only p3 above quantity 5, got %+v", byMin)
	}
}

func TestUpdateProductLeavesQuantity(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	p := testProduct("p1", "Canvas", "111", "", 7)
	CreateProduct(ctx, database, p)

	p.Name = "Canvas large"
	p.Quantity = 999
	if err := UpdateProduct(ctx, database, p); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}

	got, _ := GetProduct(ctx, database, "p1")
	if got.Name != "Canvas large" {
		t.Errorf("expected renamed product, got %q", got.Name)
	}
	if got.Quantity != 7 {
		t.Errorf("expected quantity untouched at 7, got %d", got.Quantity)
	}
}

func TestUpsertProductOverwrites(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateProduct(ctx, database, testProduct("p1", "Old name", "111", "owner-a", 2))

	incoming := testProduct("p1", "New name", "333", "owner-a", 8)
	if err := UpsertProduct(ctx, database, incoming); err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}

	got, _ := GetProduct(ctx, database, "p1")
	if got.Name != "New name" || got.Barcode != "333" || got.Quantity != 8 {
		t.Errorf("expected full overwrite, got %+v", got)
	}

	// Insert path for a fresh id.
	if err := UpsertProduct(ctx, database, testProduct("p2", "Fresh", "444", "owner-a", 1)); err != nil {
		t.Fatalf("UpsertProduct insert: %v", err)
	}
	got2, _ := GetProduct(ctx, database, "p2")
	if got2 == nil {
		t.Fatal("expected inserted product")
	}
}

func TestDeleteProductsByOwner(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateProduct(ctx, database, testProduct("g1", "Guest", "1", "", 1))
	CreateProduct(ctx, database, testProduct("o1", "Owned", "2", "owner-a", 1))

	if err := DeleteProductsByOwner(ctx, database, ""); err != nil {
		t.Fatalf("DeleteProductsByOwner: %v", err)
	}

	if p, _ := GetProduct(ctx, database, "g1"); p != nil {
		t.Error("expected guest product purged")
	}
	if p, _ := GetProduct(ctx, database, "o1"); p == nil {
		t.Error("expected owned product to survive")
	}
}

func TestProductPhotoRoundtrip(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateProduct(ctx, database, testProduct("p1", "Canvas", "1", "", 1))

	photo, err := GetProductPhoto(ctx, database, "p1")
	if err != nil {
		t.Fatalf("GetProductPhoto: %v", err)
	}
	if photo != nil {
		t.Errorf("expected no photo yet, got %d bytes", len(photo))
	}

	data := []byte{0xFF, 0xD8, 0xFF, 0x01, 0x02}
	if err := SetProductPhoto(ctx, database, "p1", data); err != nil {
		t.Fatalf("SetProductPhoto: %v", err)
	}

	photo, err = GetProductPhoto(ctx, database, "p1")
	if err != nil {
		t.Fatalf("GetProductPhoto: %v", err)
	}
	if string(photo) != string(data) {
		t.Errorf("photo mismatch: got %v", photo)
	}

	// The list path must not drag blobs along.
	products, _ := ListProducts(ctx, database, ProductFilter{})
	if len(products) != 1 || products[0].Photo != nil {
		t.Errorf("expected photo excluded from list, got %+v", products)
	}
}
