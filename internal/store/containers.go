package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akazakov/sklad/internal/model"
)

// CreateContainer inserts a new container.
func CreateContainer(ctx context.Context, db *sql.DB, c *model.Container) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO containers (id, name) VALUES (?, ?)`,
		c.ID, c.Name,
	)
	if err != nil {
		return fmt.Errorf("creating container: %w", err)
	}
	return nil
}

// GetContainer returns a container by id, or nil if it does not exist.
func GetContainer(ctx context.Context, db *sql.DB, id string) (*model.Container, error) {
	c := &model.Container{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM containers WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting container: %w", err)
	}
	return c, nil
}

// ListContainers returns all containers ordered by name.
func ListContainers(ctx context.Context, db *sql.DB) ([]model.Container, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, created_at FROM containers ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}
	defer rows.Close()

	var containers []model.Container
	for rows.Next() {
		var c model.Container
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning container: %w", err)
		}
		containers = append(containers, c)
	}
	return containers, rows.Err()
}

// RenameContainer updates a container's name.
func RenameContainer(ctx context.Context, db *sql.DB, id, name string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE containers SET name = ? WHERE id = ?`, name, id,
	)
	if err != nil {
		return fmt.Errorf("renaming container: %w", err)
	}
	return nil
}

// UpsertContainer inserts or fully overwrites a container by id.
func UpsertContainer(ctx context.Context, db *sql.DB, c *model.Container) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO containers (id, name) VALUES (?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		c.ID, c.Name,
	)
	if err != nil {
		return fmt.Errorf("upserting container: %w", err)
	}
	return nil
}

// DeleteContainer removes a container. Products inside it survive with their
// container reference cleared (ON DELETE SET NULL).
func DeleteContainer(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM containers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting container: %w", err)
	}
	return nil
}
