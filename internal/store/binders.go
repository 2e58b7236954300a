package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) CreateBinder(ctx context.Context, b Binder) (Binder, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO binders (id, cupboard_id, owner_id, name, sort_order)
		VALUES ($1, $2, $3, $4, (
			SELECT COALESCE(MAX(sort_order), 0) + 1 FROM binders WHERE cupboard_id = $2
		))
		RETURNING sort_order, created_at, updated_at
	`, b.ID, b.CupboardID, b.OwnerID, b.Name).Scan(&b.Order, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Binder{}, fmt.Errorf("insert binder: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) GetBinder(ctx context.Context, id string) (Binder, error) {
	var b Binder
	err := s.db.QueryRowContext(ctx, `
		SELECT id, cupboard_id, owner_id, name, sort_order, created_at, updated_at
		FROM binders WHERE id = $1
	`, id).Scan(&b.ID, &b.CupboardID, &b.OwnerID, &b.Name, &b.Order, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Binder{}, mapNoRows(err)
	}
	return b, nil
}

func (s *PostgresStore) ListBinders(ctx context.Context, cupboardID string) ([]Binder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cupboard_id, owner_id, name, sort_order, created_at, updated_at
		FROM binders WHERE cupboard_id = $1
		ORDER BY sort_order, created_at
	`, cupboardID)
	if err != nil {
		return nil, fmt.Errorf("list binders: %w", err)
	}
	defer rows.Close()

	var out []Binder
	for rows.Next() {
		var b Binder
		if err := rows.Scan(&b.ID, &b.CupboardID, &b.OwnerID, &b.Name, &b.Order, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan binder: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RenameBinder(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE binders SET name=$2, updated_at=NOW() WHERE id=$1`, id, name)
	if err != nil {
		return fmt.Errorf("rename binder: %w", err)
	}
	return requireRow(res)
}

// MoveBinder reparents a binder and appends it to the target cupboard's
// ordering.
func (s *PostgresStore) MoveBinder(ctx context.Context, id, cupboardID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE binders
		SET cupboard_id=$2,
			sort_order=(SELECT COALESCE(MAX(sort_order), 0) + 1 FROM binders WHERE cupboard_id=$2),
			updated_at=NOW()
		WHERE id=$1
	`, id, cupboardID)
	if err != nil {
		return fmt.Errorf("move binder: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) DeleteBinder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM binders WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete binder: %w", err)
	}
	return requireRow(res)
}
