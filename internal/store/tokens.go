package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Tokens are stateless JWTs, so sign-out works by blocklisting the token's
// JTI until its natural expiry. The blocklist only ever holds tokens that
// were explicitly logged out before expiring.

// RevokeToken blocklists a token id until expiresAt. Revoking an already
// revoked token is a no-op.
func RevokeToken(ctx context.Context, db *sql.DB, jti string, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether a token id is on the blocklist.
func IsTokenRevoked(ctx context.Context, db *sql.DB, jti string) (bool, error) {
	var revoked bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ?)`, jti,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return revoked, nil
}

// PurgeExpiredTokens drops blocklist rows for tokens that have since expired
// on their own and returns how many were removed. Run at startup and after
// each logout to keep the table from growing.
func PurgeExpiredTokens(ctx context.Context, db *sql.DB) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("purging expired tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purging expired tokens: %w", err)
	}
	return n, nil
}
