// Package sync keeps the local entity store consistent with the remote
// document store, scoped per authenticated owner. Pushes are best-effort and
// asynchronous; the local store is the source of truth for the active
// session, with the two stores converging on the next successful push or the
// next full pull.
package sync

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	gosync "sync"

	"github.com/akazakov/sklad/internal/model"
	"github.com/akazakov/sklad/internal/remote"
	"github.com/akazakov/sklad/internal/store"
)

// RecentPullLimit bounds the lightweight refresh: only the most recently
// written transactions are pulled, ordered by remote write time.
const RecentPullLimit = 25

// Reconciler mediates between the local store and the remote store.
// A nil remote disables synchronization entirely (local-only mode).
type Reconciler struct {
	db     *sql.DB
	remote remote.Store

	mu     gosync.Mutex
	active map[string]struct{}
}

// New creates a reconciler. remote may be nil to run local-only.
func New(db *sql.DB, remote remote.Store) *Reconciler {
	return &Reconciler{
		db:     db,
		remote: remote,
		active: make(map[string]struct{}),
	}
}

// Enabled reports whether a remote store is configured.
func (r *Reconciler) Enabled() bool {
	return r.remote != nil
}

// PushProduct replicates a committed product mutation to the remote store.
// Fire-and-forget: the returned future reports success or failure to the
// initiating caller only, and a failure never rolls back local state.
// Guest-scoped entities are never pushed.
func (r *Reconciler) PushProduct(p model.Product) *Future {
	if r.remote == nil || p.OwnerID == "" {
		return completedFuture(nil)
	}

	f := newFuture()
	go func() {
		err := r.remote.SaveProduct(context.Background(), p.OwnerID, p)
		if err != nil {
			slog.Warn("product push failed", "product", p.ID, "error", err)
		}
		f.complete(err)
	}()
	return f
}

// PushTransaction replicates a committed transaction to the remote store.
func (r *Reconciler) PushTransaction(t model.Transaction) *Future {
	if r.remote == nil || t.OwnerID == "" {
		return completedFuture(nil)
	}

	f := newFuture()
	go func() {
		err := r.remote.SaveTransaction(context.Background(), t.OwnerID, t)
		if err != nil {
			slog.Warn("transaction push failed", "transaction", t.ID, "error", err)
		}
		f.complete(err)
	}()
	return f
}

// SignIn switches the local store to an account namespace: guest products
// are discarded (not merged), then the owner's full remote product and
// transaction sets are pulled and upserted by id. An existing local row with
// a matching id is overwritten entirely, last pull wins.
func (r *Reconciler) SignIn(ctx context.Context, ownerID string) error {
	if err := store.DeleteProductsByOwner(ctx, r.db, ""); err != nil {
		return fmt.Errorf("discarding guest products: %w", err)
	}

	if r.remote != nil {
		products, err := r.remote.FetchProducts(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("pulling products: %w", err)
		}
		if err := r.upsertProducts(ctx, ownerID, products); err != nil {
			return err
		}

		transactions, err := r.remote.FetchTransactions(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("pulling transactions: %w", err)
		}
		if err := r.upsertTransactions(ctx, ownerID, transactions); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.active[ownerID] = struct{}{}
	r.mu.Unlock()

	slog.Info("owner signed in", "owner", ownerID)
	return nil
}

// SignOut purges all local entities tagged with the owner id. The remote
// store is untouched.
func (r *Reconciler) SignOut(ctx context.Context, ownerID string) error {
	if err := store.DeleteProductsByOwner(ctx, r.db, ownerID); err != nil {
		return fmt.Errorf("purging products: %w", err)
	}
	if err := store.DeleteTransactionsByOwner(ctx, r.db, ownerID); err != nil {
		return fmt.Errorf("purging transactions: %w", err)
	}

	r.mu.Lock()
	delete(r.active, ownerID)
	r.mu.Unlock()

	slog.Info("owner signed out", "owner", ownerID)
	return nil
}

// RefreshRecent pulls the owner's most recently written transactions and
// upserts them, a lightweight alternative to a full resync.
func (r *Reconciler) RefreshRecent(ctx context.Context, ownerID string) error {
	if r.remote == nil {
		return nil
	}

	transactions, err := r.remote.FetchRecentTransactions(ctx, ownerID, RecentPullLimit)
	if err != nil {
		return fmt.Errorf("pulling recent transactions: %w", err)
	}
	return r.upsertTransactions(ctx, ownerID, transactions)
}

// ActiveOwners returns the owners currently signed in on this instance.
func (r *Reconciler) ActiveOwners() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	owners := make([]string, 0, len(r.active))
	for o := range r.active {
		owners = append(owners, o)
	}
	return owners
}

// upsertProducts writes pulled products into the local store. A container
// reference that does not resolve locally is cleared rather than failing the
// pull: containers are local-only and may simply not exist here.
func (r *Reconciler) upsertProducts(ctx context.Context, ownerID string, products []model.Product) error {
	containers, err := store.ListContainers(ctx, r.db)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(containers))
	for _, c := range containers {
		known[c.ID] = true
	}

	for _, p := range products {
		p.OwnerID = ownerID
		if p.ContainerID != "" && !known[p.ContainerID] {
			p.ContainerID = ""
		}
		if err := store.UpsertProduct(ctx, r.db, &p); err != nil {
			return err
		}
	}
	return nil
}

// upsertTransactions writes pulled transactions into the local store. A
// product reference that does not resolve locally is cleared, not fatal.
func (r *Reconciler) upsertTransactions(ctx context.Context, ownerID string, transactions []model.Transaction) error {
	for _, t := range transactions {
		t.OwnerID = ownerID
		if t.ProductID != "" {
			p, err := store.GetProduct(ctx, r.db, t.ProductID)
			if err != nil {
				return err
			}
			if p == nil {
				t.ProductID = ""
			}
		}
		if err := store.UpsertTransaction(ctx, r.db, &t); err != nil {
			return err
		}
	}
	return nil
}
