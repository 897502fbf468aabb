package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akazakov/sklad/internal/db"
	"github.com/akazakov/sklad/internal/model"
	"github.com/akazakov/sklad/internal/store"
)

// fakeRemote is an in-memory remote store keyed by owner.
type fakeRemote struct {
	products     map[string]map[string]model.Product
	transactions map[string]map[string]model.Transaction
	recent       map[string][]model.Transaction
	failSave     bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		products:     make(map[string]map[string]model.Product),
		transactions: make(map[string]map[string]model.Transaction),
		recent:       make(map[string][]model.Transaction),
	}
}

func (f *fakeRemote) SaveProduct(_ context.Context, ownerID string, p model.Product) error {
	if f.failSave {
		return errors.New("remote unavailable")
	}
	if f.products[ownerID] == nil {
		f.products[ownerID] = make(map[string]model.Product)
	}
	f.products[ownerID][p.ID] = p
	return nil
}

func (f *fakeRemote) SaveTransaction(_ context.Context, ownerID string, t model.Transaction) error {
	if f.failSave {
		return errors.New("remote unavailable")
	}
	if f.transactions[ownerID] == nil {
		f.transactions[ownerID] = make(map[string]model.Transaction)
	}
	f.transactions[ownerID][t.ID] = t
	return nil
}

func (f *fakeRemote) FetchProducts(_ context.Context, ownerID string) ([]model.Product, error) {
	var out []model.Product
	for _, p := range f.products[ownerID] {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRemote) FetchTransactions(_ context.Context, ownerID string) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, t := range f.transactions[ownerID] {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRemote) FetchRecentTransactions(_ context.Context, ownerID string, limit int) ([]model.Transaction, error) {
	recent := f.recent[ownerID]
	if len(recent) > limit {
		recent = recent[:limit]
	}
	return recent, nil
}

func remoteProduct(id, name string) model.Product {
	return model.Product{
		ID:       id,
		Name:     name,
		Quantity: 5,
		Price:    decimal.RequireFromString("2.50"),
	}
}

func TestSignInDiscardsGuestProductsAndPulls(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	guest := remoteProduct("g1", "Guest paint")
	if err := store.CreateProduct(ctx, database, &guest); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	guestTx := model.Transaction{ID: "gt1", Date: time.Now().UTC(), Kind: model.TransactionIntake, ProductID: "g1"}
	store.CreateTransaction(ctx, database, &guestTx)

	remote := newFakeRemote()
	remote.products["owner-a"] = map[string]model.Product{
		"r1": remoteProduct("r1", "Remote paint"),
	}
	remote.transactions["owner-a"] = map[string]model.Transaction{
		"rt1": {ID: "rt1", Date: time.Now().UTC(), Kind: model.TransactionIntake, ProductID: "r1"},
	}

	r := New(database, remote)
	if err := r.SignIn(ctx, "owner-a"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	if p, _ := store.GetProduct(ctx, database, "g1"); p != nil {
		t.Error("expected guest product discarded on sign-in")
	}

	pulled, _ := store.GetProduct(ctx, database, "r1")
	if pulled == nil {
		t.Fatal("expected remote product pulled")
	}
	if pulled.OwnerID != "owner-a" {
		t.Errorf("expected pulled product scoped to owner, got %q", pulled.OwnerID)
	}

	pulledTx, _ := store.GetTransaction(ctx, database, "rt1")
	if pulledTx == nil || pulledTx.OwnerID != "owner-a" {
		t.Errorf("expected pulled transaction scoped to owner, got %+v", pulledTx)
	}

	// Guest transactions survive sign-in; only guest products are discarded.
	if tx, _ := store.GetTransaction(ctx, database, "gt1"); tx == nil {
		t.Error("expected guest transaction to survive sign-in")
	}

	owners := r.ActiveOwners()
	if len(owners) != 1 || owners[0] != "owner-a" {
		t.Errorf("expected owner-a active, got %v", owners)
	}
}

func TestSignInClearsUnknownContainerReference(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	incoming := remoteProduct("r1", "Remote paint")
	incoming.ContainerID = "no-such-container"

	remote := newFakeRemote()
	remote.products["owner-a"] = map[string]model.Product{"r1": incoming}

	r := New(database, remote)
	if err := r.SignIn(ctx, "owner-a"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	pulled, _ := store.GetProduct(ctx, database, "r1")
	if pulled == nil {
		t.Fatal("expected product pulled despite dangling container")
	}
	if pulled.ContainerID != "" {
		t.Errorf("expected container reference cleared, got %q", pulled.ContainerID)
	}
}

func TestSignOutPurgesOwnerScope(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owned := remoteProduct("o1", "Owned paint")
	owned.OwnerID = "owner-a"
	store.CreateProduct(ctx, database, &owned)
	store.CreateTransaction(ctx, database, &model.Transaction{
		ID: "ot1", Date: time.Now().UTC(), Kind: model.TransactionIntake, ProductID: "o1", OwnerID: "owner-a",
	})

	guest := remoteProduct("g1", "Guest paint")
	store.CreateProduct(ctx, database, &guest)

	r := New(database, newFakeRemote())
	if err := r.SignOut(ctx, "owner-a"); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	if p, _ := store.GetProduct(ctx, database, "o1"); p != nil {
		t.Error("expected owned product purged")
	}
	if tx, _ := store.GetTransaction(ctx, database, "ot1"); tx != nil {
		t.Error("expected owned transaction purged")
	}
	if p, _ := store.GetProduct(ctx, database, "g1"); p == nil {
		t.Error("expected guest product untouched")
	}
}

func TestPushProductGuestSkipsRemote(t *testing.T) {
	database := db.NewTestDB(t)
	remote := newFakeRemote()
	r := New(database, remote)

	f := r.PushProduct(remoteProduct("g1", "Guest paint"))
	if err := f.Wait(); err != nil {
		t.Fatalf("expected completed future, got %v", err)
	}
	if len(remote.products) != 0 {
		t.Error("expected guest entity never pushed")
	}
}

func TestPushProductDeliversToRemote(t *testing.T) {
	database := db.NewTestDB(t)
	remote := newFakeRemote()
	r := New(database, remote)

	p := remoteProduct("o1", "Owned paint")
	p.OwnerID = "owner-a"

	if err := r.PushProduct(p).Wait(); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if _, ok := remote.products["owner-a"]["o1"]; !ok {
		t.Error("expected product saved remotely")
	}
}

func TestPushFailureReportsToCaller(t *testing.T) {
	database := db.NewTestDB(t)
	remote := newFakeRemote()
	remote.failSave = true
	r := New(database, remote)

	p := remoteProduct("o1", "Owned paint")
	p.OwnerID = "owner-a"

	f := r.PushProduct(p)
	if err := f.Wait(); err == nil {
		t.Error("expected push failure to surface through the future")
	}
	// Waiting twice sees the same result.
	if err := f.Wait(); err == nil {
		t.Error("expected repeated wait to see the failure")
	}
}

func TestRefreshRecentUpserts(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	remote := newFakeRemote()
	remote.recent["owner-a"] = []model.Transaction{
		{ID: "rt1", Date: time.Now().UTC(), Kind: model.TransactionExpense, ExpenseQuantity: 1, ExpensePurpose: "sold"},
	}

	r := New(database, remote)
	if err := r.RefreshRecent(ctx, "owner-a"); err != nil {
		t.Fatalf("RefreshRecent: %v", err)
	}

	got, _ := store.GetTransaction(ctx, database, "rt1")
	if got == nil {
		t.Fatal("expected recent transaction upserted")
	}
	if got.OwnerID != "owner-a" {
		t.Errorf("expected owner scope applied, got %q", got.OwnerID)
	}
}

func TestLocalOnlyMode(t *testing.T) {
	database := db.NewTestDB(t)
	r := New(database, nil)

	if r.Enabled() {
		t.Error("expected sync disabled without a remote")
	}
	if err := r.PushProduct(remoteProduct("p1", "Paint")).Wait(); err != nil {
		t.Errorf("expected no-op push, got %v", err)
	}
	if err := r.RefreshRecent(context.Background(), "owner-a"); err != nil {
		t.Errorf("expected no-op refresh, got %v", err)
	}
	if err := r.SignIn(context.Background(), "owner-a"); err != nil {
		t.Errorf("expected local-only sign-in to succeed, got %v", err)
	}
}
