package access

import (
	"context"

	"github.com/mr-abdellah/online-cupboard/internal/store"
)

// pgStore bridges the concrete transaction type of PostgresStore to the
// GrantTx interface consumed here.
type pgStore struct {
	*store.PostgresStore
}

var _ Store = pgStore{}

func (s pgStore) WithGrantTx(ctx context.Context, fn func(GrantTx) error) error {
	return s.PostgresStore.WithGrantTx(ctx, func(tx *store.GrantTx) error {
		return fn(tx)
	})
}

// NewPostgres builds a resolver backed by the Postgres store.
func NewPostgres(s *store.PostgresStore) *Resolver {
	return New(pgStore{PostgresStore: s})
}
