package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a stocked item. Quantity is a running total maintained by the
// ledger and never goes negative; a product at quantity 0 is exhausted but
// kept so its transaction history stays referenceable.
//
// OwnerID partitions products into namespaces: empty means guest (no
// authenticated account), otherwise it holds the account's remote user id.
// ContainerID is a weak reference, cleared when the container is deleted.
type Product struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Organization string            `json:"organization,omitempty"`
	Price        decimal.Decimal   `json:"price"`
	Quantity     int64             `json:"quantity"`
	Category     string            `json:"category,omitempty"`
	Technique    string            `json:"technique,omitempty"`
	Barcode      string            `json:"barcode,omitempty"`
	Photo        []byte            `json:"-"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
	OwnerID      string            `json:"owner_id,omitempty"`
	ContainerID  string            `json:"container_id,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
