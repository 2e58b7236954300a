package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *PostgresStore) CreateCupboard(ctx context.Context, c Cupboard) (Cupboard, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO cupboards (id, workspace_id, owner_id, name, sort_order)
		VALUES ($1, $2, $3, $4, (
			SELECT COALESCE(MAX(sort_order), 0) + 1 FROM cupboards
			WHERE workspace_id IS NOT DISTINCT FROM $2
		))
		RETURNING sort_order, created_at, updated_at
	`, c.ID, c.WorkspaceID, c.OwnerID, c.Name).Scan(&c.Order, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Cupboard{}, fmt.Errorf("insert cupboard: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) GetCupboard(ctx context.Context, id string) (Cupboard, error) {
	var c Cupboard
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, owner_id, name, sort_order, created_at, updated_at
		FROM cupboards WHERE id = $1
	`, id).Scan(&c.ID, &c.WorkspaceID, &c.OwnerID, &c.Name, &c.Order, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Cupboard{}, mapNoRows(err)
	}
	return c, nil
}

func (s *PostgresStore) ListCupboards(ctx context.Context, workspaceID string) ([]Cupboard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, owner_id, name, sort_order, created_at, updated_at
		FROM cupboards WHERE workspace_id = $1
		ORDER BY sort_order, created_at
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list cupboards: %w", err)
	}
	defer rows.Close()
	return scanCupboards(rows)
}

// ListManageableCupboards returns cupboards in the workspace that the user
// owns or holds a manage grant on.
func (s *PostgresStore) ListManageableCupboards(ctx context.Context, workspaceID, userID string) ([]Cupboard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT c.id, c.workspace_id, c.owner_id, c.name, c.sort_order, c.created_at, c.updated_at
		FROM cupboards c
		LEFT JOIN cupboard_user_permissions cp
			ON cp.cupboard_id = c.id AND cp.user_id = $2 AND cp.permission = 'manage'
		WHERE c.workspace_id = $1 AND (c.owner_id = $2 OR cp.user_id IS NOT NULL)
		ORDER BY c.sort_order, c.created_at
	`, workspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("list manageable cupboards: %w", err)
	}
	defer rows.Close()
	return scanCupboards(rows)
}

func (s *PostgresStore) RenameCupboard(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE cupboards SET name=$2, updated_at=NOW() WHERE id=$1`, id, name)
	if err != nil {
		return fmt.Errorf("rename cupboard: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) DeleteCupboard(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cupboards WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete cupboard: %w", err)
	}
	return requireRow(res)
}

func scanCupboards(rows *sql.Rows) ([]Cupboard, error) {
	var out []Cupboard
	for rows.Next() {
		var c Cupboard
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.OwnerID, &c.Name, &c.Order, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cupboard: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
