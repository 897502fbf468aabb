// Package remote talks to the per-owner remote document store the sync
// reconciler replicates into. The local SQLite store stays the source of
// truth for the active session; this store only has to converge eventually.
package remote

import (
	"context"

	"github.com/akazakov/sklad/internal/model"
)

// Store is the remote document store, keyed by entity id and scoped per
// owner. Containers are deliberately absent: they are local-only.
type Store interface {
	SaveProduct(ctx context.Context, ownerID string, p model.Product) error
	SaveTransaction(ctx context.Context, ownerID string, t model.Transaction) error
	FetchProducts(ctx context.Context, ownerID string) ([]model.Product, error)
	FetchTransactions(ctx context.Context, ownerID string) ([]model.Transaction, error)
	FetchRecentTransactions(ctx context.Context, ownerID string, limit int) ([]model.Transaction, error)
}
