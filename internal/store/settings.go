package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
)

// Vocabulary keys for the pick lists managed by the settings UI.
// These live outside the ledger's consistency domain.
const (
	VocabularyCategories   = "category_options"
	VocabularyTechniques   = "technique_options"
	VocabularyCustomFields = "custom_field_names"
)

// GetVocabulary returns the string list stored under a vocabulary key.
// A missing key yields an empty list.
func GetVocabulary(ctx context.Context, db *sql.DB, key string) ([]string, error) {
	var value string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting vocabulary %q: %w", key, err)
	}

	var list []string
	if err := json.Unmarshal([]byte(value), &list); err != nil {
		return nil, fmt.Errorf("parsing vocabulary %q: %w", key, err)
	}
	return list, nil
}

// SetVocabulary replaces the string list stored under a vocabulary key.
func SetVocabulary(ctx context.Context, db *sql.DB, key string, list []string) error {
	value, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding vocabulary %q: %w", key, err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, string(value),
	)
	if err != nil {
		return fmt.Errorf("storing vocabulary %q: %w", key, err)
	}
	return nil
}

// AddVocabularyEntry appends an entry to a vocabulary list if not present.
func AddVocabularyEntry(ctx context.Context, db *sql.DB, key, entry string) error {
	list, err := GetVocabulary(ctx, db, key)
	if err != nil {
		return err
	}
	if slices.Contains(list, entry) {
		return nil
	}
	return SetVocabulary(ctx, db, key, append(list, entry))
}

// RemoveVocabularyEntry removes an entry from a vocabulary list.
func RemoveVocabularyEntry(ctx context.Context, db *sql.DB, key, entry string) error {
	list, err := GetVocabulary(ctx, db, key)
	if err != nil {
		return err
	}
	filtered := slices.DeleteFunc(list, func(s string) bool { return s == entry })
	return SetVocabulary(ctx, db, key, filtered)
}

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Uses INSERT OR IGNORE + re-SELECT to avoid TOCTOU race on concurrent startup.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('jwt_secret', ?)`,
		candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	// Always read back (either our insert or the existing value).
	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'jwt_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}
