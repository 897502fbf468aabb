package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Entity ids are client-generated UUID
// strings so local rows and remote documents share one key space. Weak
// references use ON DELETE SET NULL: removing a container keeps its products,
// removing a product keeps its transactions as history.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    owner_id      TEXT NOT NULL UNIQUE,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS containers (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS products (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    organization  TEXT NOT NULL DEFAULT '',
    price         TEXT NOT NULL DEFAULT '0',
    quantity      INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    category      TEXT NOT NULL DEFAULT '',
    technique     TEXT NOT NULL DEFAULT '',
    barcode       TEXT NOT NULL DEFAULT '',
    photo         BLOB,
    custom_fields TEXT NOT NULL DEFAULT '{}',
    owner_id      TEXT,
    container_id  TEXT REFERENCES containers(id) ON DELETE SET NULL,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_products_barcode ON products(barcode);
CREATE INDEX IF NOT EXISTS idx_products_owner ON products(owner_id);
CREATE INDEX IF NOT EXISTS idx_products_container ON products(container_id);

CREATE TABLE IF NOT EXISTS transactions (
    id               TEXT PRIMARY KEY,
    date             DATETIME NOT NULL,
    kind             TEXT NOT NULL CHECK (kind IN ('intake', 'expense')),
    product_id       TEXT REFERENCES products(id) ON DELETE SET NULL,
    expense_quantity INTEGER NOT NULL DEFAULT 0,
    expense_purpose  TEXT NOT NULL DEFAULT '',
    owner_id         TEXT
);

CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
CREATE INDEX IF NOT EXISTS idx_transactions_owner ON transactions(owner_id);
CREATE INDEX IF NOT EXISTS idx_transactions_product ON transactions(product_id);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
