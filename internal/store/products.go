package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/akazakov/sklad/internal/model"
)

// productColumns is the column list shared by all product selects.
// The photo blob is intentionally excluded and fetched separately.
const productColumns = `id, name, organization, price, quantity, category, technique,
	barcode, custom_fields, owner_id, container_id, created_at, updated_at`

// nullable maps the empty string (guest scope / no reference) to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ProductFilter narrows ListProducts. Owner scoping always applies unless
// AllOwners is set: an empty OwnerID selects the guest namespace.
type ProductFilter struct {
	AllOwners    bool
	OwnerID      string
	Barcode      string
	ContainerID  string
	InStock      bool
	NameLike     string
	CategoryLike string
	MinQuantity  *int64
}

// CreateProduct inserts a new product. A missing id is left to the caller;
// the ledger always assigns one before persisting.
func CreateProduct(ctx context.Context, db *sql.DB, p *model.Product) error {
	custom, err := encodeCustomFields(p.CustomFields)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO products (id, name, organization, price, quantity, category, technique,
		                       barcode, photo, custom_fields, owner_id, container_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Organization, p.Price.String(), p.Quantity, p.Category, p.Technique,
		p.Barcode, p.Photo, custom, nullable(p.OwnerID), nullable(p.ContainerID),
	)
	if err != nil {
		return fmt.Errorf("creating product: %w", err)
	}
	return nil
}

// GetProduct returns a product by id, or nil if it does not exist.
func GetProduct(ctx context.Context, db *sql.DB, id string) (*model.Product, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id,
	)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	return p, nil
}

// ListProducts returns products matching the filter, ordered by name.
func ListProducts(ctx context.Context, db *sql.DB, f ProductFilter) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	var args []any

	if !f.AllOwners {
		query += ` AND owner_id IS ?`
		args = append(args, nullable(f.OwnerID))
	}
	if f.Barcode != "" {
		query += ` AND barcode = ?`
		args = append(args, f.Barcode)
	}
	if f.ContainerID != "" {
		query += ` AND container_id = ?`
		args = append(args, f.ContainerID)
	}
	if f.InStock {
		query += ` AND quantity > 0`
	}
	if f.NameLike != "" {
		query += ` AND name LIKE ?`
		args = append(args, "%"+f.NameLike+"%")
	}
	if f.CategoryLike != "" {
		query += ` AND category LIKE ?`
		args = append(args, "%"+f.CategoryLike+"%")
	}
	if f.MinQuantity != nil {
		query += ` AND quantity >= ?`
		args = append(args, *f.MinQuantity)
	}

	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// UpdateProduct updates a product's descriptive fields. Quantity is
// excluded: only the ledger mutates quantity, through its own
// transactional path.
func UpdateProduct(ctx context.Context, db *sql.DB, p *model.Product) error {
	custom, err := encodeCustomFields(p.CustomFields)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`UPDATE products SET name = ?, organization = ?, price = ?, category = ?,
		        technique = ?, barcode = ?, custom_fields = ?, container_id = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.Name, p.Organization, p.Price.String(), p.Category,
		p.Technique, p.Barcode, custom, nullable(p.ContainerID),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating product: %w", err)
	}
	return nil
}

// UpsertProduct overwrites every field of an existing product with the same
// id, or inserts a new row. Used by the sync pull and the backup import:
// last write wins entirely, no per-field merging.
func UpsertProduct(ctx context.Context, db *sql.DB, p *model.Product) error {
	custom, err := encodeCustomFields(p.CustomFields)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO products (id, name, organization, price, quantity, category, technique,
		                       barcode, photo, custom_fields, owner_id, container_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     name = excluded.name, organization = excluded.organization,
		     price = excluded.price, quantity = excluded.quantity,
		     category = excluded.category, technique = excluded.technique,
		     barcode = excluded.barcode, photo = excluded.photo,
		     custom_fields = excluded.custom_fields, owner_id = excluded.owner_id,
		     container_id = excluded.container_id, updated_at = CURRENT_TIMESTAMP`,
		p.ID, p.Name, p.Organization, p.Price.String(), p.Quantity, p.Category, p.Technique,
		p.Barcode, p.Photo, custom, nullable(p.OwnerID), nullable(p.ContainerID),
	)
	if err != nil {
		return fmt.Errorf("upserting product: %w", err)
	}
	return nil
}

// DeleteProduct removes a product. Transactions referencing it keep existing
// with their product reference cleared (ON DELETE SET NULL).
func DeleteProduct(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	return nil
}

// DeleteProductsByOwner removes all products in an owner namespace.
// An empty ownerID purges the guest namespace.
func DeleteProductsByOwner(ctx context.Context, db *sql.DB, ownerID string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM products WHERE owner_id IS ?`, nullable(ownerID),
	)
	if err != nil {
		return fmt.Errorf("deleting products by owner: %w", err)
	}
	return nil
}

// SetProductPhoto stores a product's photo data.
func SetProductPhoto(ctx context.Context, db *sql.DB, id string, photo []byte) error {
	_, err := db.ExecContext(ctx,
		`UPDATE products SET photo = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		photo, id,
	)
	if err != nil {
		return fmt.Errorf("setting product photo: %w", err)
	}
	return nil
}

// GetProductPhoto returns a product's photo data, nil if none is stored.
func GetProductPhoto(ctx context.Context, db *sql.DB, id string) ([]byte, error) {
	var photo []byte
	err := db.QueryRowContext(ctx,
		`SELECT photo FROM products WHERE id = ?`, id,
	).Scan(&photo)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product photo: %w", err)
	}
	return photo, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*model.Product, error) {
	p := &model.Product{}
	var price, custom string
	var ownerID, containerID sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.Organization, &price, &p.Quantity, &p.Category,
		&p.Technique, &p.Barcode, &custom, &ownerID, &containerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parsing product price %q: %w", price, err)
	}
	if err := json.Unmarshal([]byte(custom), &p.CustomFields); err != nil {
		return nil, fmt.Errorf("parsing custom fields: %w", err)
	}
	if len(p.CustomFields) == 0 {
		p.CustomFields = nil
	}
	p.OwnerID = ownerID.String
	p.ContainerID = containerID.String
	return p, nil
}

func encodeCustomFields(fields map[string]string) (string, error) {
	if len(fields) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encoding custom fields: %w", err)
	}
	return string(data), nil
}
