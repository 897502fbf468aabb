// Package backup serializes the full entity set to one portable JSON
// document and restores it with the same upsert-by-id semantics as a sync
// pull: existing records are overwritten, new ones created, relationships
// relinked by id once the referenced type is fully loaded.
package backup

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akazakov/sklad/internal/model"
	"github.com/akazakov/sklad/internal/store"
)

// Document is the portable exchange format. Containers come first so that
// product container references resolve, then products for the same reason
// with transactions. Photos travel base64-encoded, dates as RFC 3339.
type Document struct {
	Containers   []ContainerRecord   `json:"containers"`
	Products     []ProductRecord     `json:"products"`
	Transactions []TransactionRecord `json:"transactions"`
}

type ContainerRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ProductRecord struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Organization string            `json:"organization,omitempty"`
	Price        string            `json:"price"`
	Quantity     int64             `json:"quantity"`
	Category     string            `json:"category,omitempty"`
	Technique    string            `json:"technique,omitempty"`
	Barcode      string            `json:"barcode,omitempty"`
	Photo        string            `json:"photo,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
	OwnerID      string            `json:"owner_id,omitempty"`
	ContainerID  string            `json:"container_id,omitempty"`
}

type TransactionRecord struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"`
	Kind            string    `json:"kind"`
	ProductID       string    `json:"product_id,omitempty"`
	ExpenseQuantity int64     `json:"expense_quantity,omitempty"`
	ExpensePurpose  string    `json:"expense_purpose,omitempty"`
	OwnerID         string    `json:"owner_id,omitempty"`
}

// Export reads the entire entity set into a Document.
func Export(ctx context.Context, db *sql.DB) (*Document, error) {
	doc := &Document{
		Containers:   []ContainerRecord{},
		Products:     []ProductRecord{},
		Transactions: []TransactionRecord{},
	}

	containers, err := store.ListContainers(ctx, db)
	if err != nil {
		return nil, err
	}
	for _, c := range containers {
		doc.Containers = append(doc.Containers, ContainerRecord{ID: c.ID, Name: c.Name})
	}

	products, err := store.ListProducts(ctx, db, store.ProductFilter{AllOwners: true})
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		photo, err := store.GetProductPhoto(ctx, db, p.ID)
		if err != nil {
			return nil, err
		}
		record := ProductRecord{
			ID:           p.ID,
			Name:         p.Name,
			Organization: p.Organization,
			Price:        p.Price.String(),
			Quantity:     p.Quantity,
			Category:     p.Category,
			Technique:    p.Technique,
			Barcode:      p.Barcode,
			CustomFields: p.CustomFields,
			OwnerID:      p.OwnerID,
			ContainerID:  p.ContainerID,
		}
		if len(photo) > 0 {
			record.Photo = base64.StdEncoding.EncodeToString(photo)
		}
		doc.Products = append(doc.Products, record)
	}

	transactions, err := store.ListTransactions(ctx, db, store.TransactionFilter{AllOwners: true})
	if err != nil {
		return nil, err
	}
	for _, t := range transactions {
		doc.Transactions = append(doc.Transactions, TransactionRecord{
			ID:              t.ID,
			Date:            t.Date,
			Kind:            t.Kind,
			ProductID:       t.ProductID,
			ExpenseQuantity: t.ExpenseQuantity,
			ExpensePurpose:  t.ExpensePurpose,
			OwnerID:         t.OwnerID,
		})
	}

	return doc, nil
}

// Encode writes a Document as indented JSON.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}
	return nil
}

// Decode parses a Document. A malformed document fails here, before any
// record is applied.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding backup: %w", err)
	}
	return &doc, nil
}

// Import applies a decoded Document: upsert by id, containers before
// products before transactions so forward references resolve. Every record
// is parsed and validated before the first write, so a malformed document
// leaves the store untouched. A reference to an entity absent from both the
// document and the store is cleared, not fatal. Importing the same document
// twice leaves the store unchanged.
func Import(ctx context.Context, db *sql.DB, doc *Document) error {
	parsed, err := parse(ctx, db, doc)
	if err != nil {
		return err
	}

	for i := range parsed.containers {
		if err := store.UpsertContainer(ctx, db, &parsed.containers[i]); err != nil {
			return err
		}
	}
	for i := range parsed.products {
		if err := store.UpsertProduct(ctx, db, &parsed.products[i]); err != nil {
			return err
		}
	}
	for i := range parsed.transactions {
		if err := store.UpsertTransaction(ctx, db, &parsed.transactions[i]); err != nil {
			return err
		}
	}
	return nil
}

type parsedDocument struct {
	containers   []model.Container
	products     []model.Product
	transactions []model.Transaction
}

// parse converts every record into its model form, failing on the first bad
// field without touching the store. References are resolved against the
// document's own id sets first, then against existing rows.
func parse(ctx context.Context, db *sql.DB, doc *Document) (*parsedDocument, error) {
	parsed := &parsedDocument{}

	containerIDs := make(map[string]bool, len(doc.Containers))
	for _, c := range doc.Containers {
		parsed.containers = append(parsed.containers, model.Container{ID: c.ID, Name: c.Name})
		containerIDs[c.ID] = true
	}

	productIDs := make(map[string]bool, len(doc.Products))
	for _, p := range doc.Products {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("parsing price for product %s: %w", p.ID, err)
		}
		if p.Quantity < 0 {
			return nil, fmt.Errorf("negative quantity for product %s", p.ID)
		}

		var photo []byte
		if p.Photo != "" {
			photo, err = base64.StdEncoding.DecodeString(p.Photo)
			if err != nil {
				return nil, fmt.Errorf("decoding photo for product %s: %w", p.ID, err)
			}
		}

		containerID := p.ContainerID
		if containerID != "" && !containerIDs[containerID] {
			c, err := store.GetContainer(ctx, db, containerID)
			if err != nil {
				return nil, err
			}
			if c == nil {
				containerID = ""
			}
		}

		parsed.products = append(parsed.products, model.Product{
			ID:           p.ID,
			Name:         p.Name,
			Organization: p.Organization,
			Price:        price,
			Quantity:     p.Quantity,
			Category:     p.Category,
			Technique:    p.Technique,
			Barcode:      p.Barcode,
			Photo:        photo,
			CustomFields: p.CustomFields,
			OwnerID:      p.OwnerID,
			ContainerID:  containerID,
		})
		productIDs[p.ID] = true
	}

	for _, t := range doc.Transactions {
		if t.Kind != model.TransactionIntake && t.Kind != model.TransactionExpense {
			return nil, fmt.Errorf("unknown kind %q for transaction %s", t.Kind, t.ID)
		}

		productID := t.ProductID
		if productID != "" && !productIDs[productID] {
			p, err := store.GetProduct(ctx, db, productID)
			if err != nil {
				return nil, err
			}
			if p == nil {
				productID = ""
			}
		}

		parsed.transactions = append(parsed.transactions, model.Transaction{
			ID:              t.ID,
			Date:            t.Date,
			Kind:            t.Kind,
			ProductID:       productID,
			ExpenseQuantity: t.ExpenseQuantity,
			ExpensePurpose:  t.ExpensePurpose,
			OwnerID:         t.OwnerID,
		})
	}

	return parsed, nil
}
