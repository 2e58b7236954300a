package store

import (
	"context"
	"fmt"
	"time"
)

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID, userName string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, user_name, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_hash) DO UPDATE SET
			user_id=EXCLUDED.user_id, user_name=EXCLUDED.user_name,
			expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, userName, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (RefreshSession, error) {
	var sess RefreshSession
	err := s.db.QueryRowContext(ctx, `
		SELECT token_hash, user_id, user_name, expires_at
		FROM refresh_sessions
		WHERE token_hash=$1 AND revoked_at IS NULL AND expires_at > NOW()
	`, tokenHash).Scan(&sess.TokenHash, &sess.UserID, &sess.UserName, &sess.ExpiresAt)
	if err != nil {
		return RefreshSession{}, mapNoRows(err)
	}
	return sess, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) PurgeExpiredSessions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return fmt.Errorf("purge refresh sessions: %w", err)
	}
	return nil
}
