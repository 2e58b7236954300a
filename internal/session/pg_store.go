package session

import (
	"context"
	"errors"
	"time"

	"github.com/mr-abdellah/online-cupboard/internal/store"
)

// PostgresStore backs sessions with the refresh_sessions table when no Redis
// is configured.
type PostgresStore struct {
	pg *store.PostgresStore
}

func NewPostgresStore(pg *store.PostgresStore) *PostgresStore {
	return &PostgresStore{pg: pg}
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID, userName string, expiresAt time.Time) error {
	return s.pg.SaveRefreshSession(ctx, tokenHash, userID, userName, expiresAt)
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (store.RefreshSession, error) {
	sess, err := s.pg.LookupRefreshSession(ctx, tokenHash)
	if errors.Is(err, store.ErrNotFound) {
		return store.RefreshSession{}, ErrSessionNotFound
	}
	return sess, err
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	return s.pg.RevokeRefreshSession(ctx, tokenHash)
}
