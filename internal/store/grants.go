package store

import (
	"context"
	"database/sql"
	"fmt"
)

// HasAnyWorkspaceGrant reports whether the user holds at least one grant on
// the workspace, regardless of which permission it names.
func (s *PostgresStore) HasAnyWorkspaceGrant(ctx context.Context, workspaceID, userID string) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS(SELECT 1 FROM workspace_user_permissions WHERE workspace_id=$1 AND user_id=$2)
	`, workspaceID, userID)
}

func (s *PostgresStore) HasWorkspaceGrant(ctx context.Context, workspaceID, userID, permission string) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS(SELECT 1 FROM workspace_user_permissions WHERE workspace_id=$1 AND user_id=$2 AND permission=$3)
	`, workspaceID, userID, permission)
}

func (s *PostgresStore) HasCupboardGrant(ctx context.Context, cupboardID, userID, permission string) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS(SELECT 1 FROM cupboard_user_permissions WHERE cupboard_id=$1 AND user_id=$2 AND permission=$3)
	`, cupboardID, userID, permission)
}

func (s *PostgresStore) HasDocumentGrant(ctx context.Context, documentID, userID, permission string) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS(SELECT 1 FROM document_user_permissions WHERE document_id=$1 AND user_id=$2 AND permission=$3)
	`, documentID, userID, permission)
}

func (s *PostgresStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("grant lookup: %w", err)
	}
	return ok, nil
}

func (s *PostgresStore) ListWorkspaceGrants(ctx context.Context, workspaceID string) ([]WorkspaceGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT workspace_id, user_id, permission FROM workspace_user_permissions
		WHERE workspace_id=$1 ORDER BY user_id, permission
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list workspace grants: %w", err)
	}
	defer rows.Close()

	var out []WorkspaceGrant
	for rows.Next() {
		var g WorkspaceGrant
		if err := rows.Scan(&g.WorkspaceID, &g.UserID, &g.Permission); err != nil {
			return nil, fmt.Errorf("scan workspace grant: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListCupboardGrants(ctx context.Context, cupboardID string) ([]CupboardGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cupboard_id, user_id, permission FROM cupboard_user_permissions
		WHERE cupboard_id=$1 ORDER BY user_id, permission
	`, cupboardID)
	if err != nil {
		return nil, fmt.Errorf("list cupboard grants: %w", err)
	}
	defer rows.Close()

	var out []CupboardGrant
	for rows.Next() {
		var g CupboardGrant
		if err := rows.Scan(&g.CupboardID, &g.UserID, &g.Permission); err != nil {
			return nil, fmt.Errorf("scan cupboard grant: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListDocumentGrants(ctx context.Context, documentID string) ([]DocumentGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, user_id, permission FROM document_user_permissions
		WHERE document_id=$1 ORDER BY user_id, permission
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document grants: %w", err)
	}
	defer rows.Close()

	var out []DocumentGrant
	for rows.Next() {
		var g DocumentGrant
		if err := rows.Scan(&g.DocumentID, &g.UserID, &g.Permission); err != nil {
			return nil, fmt.Errorf("scan document grant: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GrantTx exposes the grant table primitives inside a single transaction so
// reconcile operations either apply fully or not at all.
type GrantTx struct {
	tx *sql.Tx
}

// WithGrantTx runs fn inside a transaction. The transaction is rolled back
// when fn returns an error.
func (s *PostgresStore) WithGrantTx(ctx context.Context, fn func(*GrantTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin grant tx: %w", err)
	}
	if err := fn(&GrantTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grant tx: %w", err)
	}
	return nil
}

func (t *GrantTx) InsertWorkspaceGrant(ctx context.Context, workspaceID, userID, permission string) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO workspace_user_permissions (workspace_id, user_id, permission)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING
	`, workspaceID, userID, permission)
	if err != nil {
		return fmt.Errorf("insert workspace grant: %w", err)
	}
	return nil
}

// DeleteWorkspaceGrantsForUser removes every grant the user holds on the
// workspace.
func (t *GrantTx) DeleteWorkspaceGrantsForUser(ctx context.Context, workspaceID, userID string) error {
	_, err := t.tx.ExecContext(ctx, `
		DELETE FROM workspace_user_permissions WHERE workspace_id=$1 AND user_id=$2
	`, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("delete workspace grants: %w", err)
	}
	return nil
}

// HasAnyWorkspaceGrant reports whether the user holds any grant on the
// workspace inside this transaction.
func (t *GrantTx) HasAnyWorkspaceGrant(ctx context.Context, workspaceID, userID string) (bool, error) {
	var ok bool
	err := t.tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM workspace_user_permissions WHERE workspace_id=$1 AND user_id=$2)
	`, workspaceID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("workspace grant lookup: %w", err)
	}
	return ok, nil
}

func (t *GrantTx) HasWorkspaceGrant(ctx context.Context, workspaceID, userID, permission string) (bool, error) {
	var ok bool
	err := t.tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM workspace_user_permissions WHERE workspace_id=$1 AND user_id=$2 AND permission=$3)
	`, workspaceID, userID, permission).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("workspace grant lookup: %w", err)
	}
	return ok, nil
}

func (t *GrantTx) InsertCupboardGrant(ctx context.Context, cupboardID, userID, permission string) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO cupboard_user_permissions (cupboard_id, user_id, permission)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING
	`, cupboardID, userID, permission)
	if err != nil {
		return fmt.Errorf("insert cupboard grant: %w", err)
	}
	return nil
}

func (t *GrantTx) DeleteCupboardGrant(ctx context.Context, cupboardID, userID, permission string) error {
	_, err := t.tx.ExecContext(ctx, `
		DELETE FROM cupboard_user_permissions WHERE cupboard_id=$1 AND user_id=$2 AND permission=$3
	`, cupboardID, userID, permission)
	if err != nil {
		return fmt.Errorf("delete cupboard grant: %w", err)
	}
	return nil
}

func (t *GrantTx) HasCupboardGrant(ctx context.Context, cupboardID, userID, permission string) (bool, error) {
	var ok bool
	err := t.tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM cupboard_user_permissions WHERE cupboard_id=$1 AND user_id=$2 AND permission=$3)
	`, cupboardID, userID, permission).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("cupboard grant lookup: %w", err)
	}
	return ok, nil
}

// ListCupboardIDsGrantedToUser returns the cupboards inside one workspace on
// which the user currently holds the named permission.
func (t *GrantTx) ListCupboardIDsGrantedToUser(ctx context.Context, workspaceID, userID, permission string) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT cp.cupboard_id
		FROM cupboard_user_permissions cp
		JOIN cupboards c ON c.id = cp.cupboard_id
		WHERE c.workspace_id=$1 AND cp.user_id=$2 AND cp.permission=$3
	`, workspaceID, userID, permission)
	if err != nil {
		return nil, fmt.Errorf("list granted cupboards: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// ListUserIDsGrantedOnCupboard returns users currently holding the named
// permission on a cupboard.
func (t *GrantTx) ListUserIDsGrantedOnCupboard(ctx context.Context, cupboardID, permission string) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT user_id FROM cupboard_user_permissions WHERE cupboard_id=$1 AND permission=$2
	`, cupboardID, permission)
	if err != nil {
		return nil, fmt.Errorf("list cupboard grantees: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (t *GrantTx) InsertDocumentGrant(ctx context.Context, documentID, userID, permission string) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO document_user_permissions (document_id, user_id, permission)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING
	`, documentID, userID, permission)
	if err != nil {
		return fmt.Errorf("insert document grant: %w", err)
	}
	return nil
}

func (t *GrantTx) DeleteDocumentGrant(ctx context.Context, documentID, userID, permission string) error {
	_, err := t.tx.ExecContext(ctx, `
		DELETE FROM document_user_permissions WHERE document_id=$1 AND user_id=$2 AND permission=$3
	`, documentID, userID, permission)
	if err != nil {
		return fmt.Errorf("delete document grant: %w", err)
	}
	return nil
}

func (t *GrantTx) ListDocumentPermissionsForUser(ctx context.Context, documentID, userID string) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT permission FROM document_user_permissions WHERE document_id=$1 AND user_id=$2
	`, documentID, userID)
	if err != nil {
		return nil, fmt.Errorf("list document permissions: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
