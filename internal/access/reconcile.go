package access

import (
	"context"
	"fmt"
)

// SetManagedCupboardsForUser replaces the set of cupboards inside a workspace
// that the user may manage. Removed cupboards lose their manage row, added
// ones gain it, and a user left managing anything is ensured a workspace view
// grant so the workspace stays reachable.
func (r *Resolver) SetManagedCupboardsForUser(ctx context.Context, workspaceID, userID string, cupboardIDs []string) error {
	want := toSet(cupboardIDs)
	return r.store.WithGrantTx(ctx, func(tx GrantTx) error {
		current, err := tx.ListCupboardIDsGrantedToUser(ctx, workspaceID, userID, PermManage)
		if err != nil {
			return err
		}
		have := toSet(current)

		for id := range have {
			if !want[id] {
				if err := tx.DeleteCupboardGrant(ctx, id, userID, PermManage); err != nil {
					return err
				}
			}
		}
		for id := range want {
			if !have[id] {
				if err := tx.InsertCupboardGrant(ctx, id, userID, PermManage); err != nil {
					return err
				}
			}
		}
		if len(want) == 0 {
			return nil
		}
		return ensureWorkspaceView(ctx, tx, workspaceID, userID)
	})
}

// SetManagersForCupboard replaces the set of users holding a manage grant on
// one cupboard, cascading a workspace view grant to each user added.
func (r *Resolver) SetManagersForCupboard(ctx context.Context, cupboardID string, userIDs []string) error {
	cb, err := r.store.GetCupboard(ctx, cupboardID)
	if err != nil {
		return fmt.Errorf("load cupboard: %w", err)
	}
	want := toSet(userIDs)
	return r.store.WithGrantTx(ctx, func(tx GrantTx) error {
		current, err := tx.ListUserIDsGrantedOnCupboard(ctx, cupboardID, PermManage)
		if err != nil {
			return err
		}
		have := toSet(current)

		for id := range have {
			if !want[id] {
				if err := tx.DeleteCupboardGrant(ctx, cupboardID, id, PermManage); err != nil {
					return err
				}
			}
		}
		for id := range want {
			if have[id] {
				continue
			}
			if err := tx.InsertCupboardGrant(ctx, cupboardID, id, PermManage); err != nil {
				return err
			}
			if cb.WorkspaceID != nil {
				if err := ensureWorkspaceView(ctx, tx, *cb.WorkspaceID, id); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// SetDocumentGrants replaces one user's permission set on a document. A user
// given any document permission also receives a cupboard manage grant and a
// workspace view grant when those are missing.
func (r *Resolver) SetDocumentGrants(ctx context.Context, documentID, userID string, permissions []string) error {
	doc, err := r.store.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	cb, err := r.cupboardOf(ctx, doc)
	if err != nil {
		return err
	}

	want := toSet(permissions)
	for perm := range want {
		if !validDocumentPerm(perm) {
			return fmt.Errorf("unknown document permission %q", perm)
		}
	}

	return r.store.WithGrantTx(ctx, func(tx GrantTx) error {
		current, err := tx.ListDocumentPermissionsForUser(ctx, documentID, userID)
		if err != nil {
			return err
		}
		have := toSet(current)

		for perm := range have {
			if !want[perm] {
				if err := tx.DeleteDocumentGrant(ctx, documentID, userID, perm); err != nil {
					return err
				}
			}
		}
		for perm := range want {
			if !have[perm] {
				if err := tx.InsertDocumentGrant(ctx, documentID, userID, perm); err != nil {
					return err
				}
			}
		}
		if len(want) == 0 {
			return nil
		}

		ok, err := tx.HasCupboardGrant(ctx, cb.ID, userID, PermManage)
		if err != nil {
			return err
		}
		if !ok {
			if err := tx.InsertCupboardGrant(ctx, cb.ID, userID, PermManage); err != nil {
				return err
			}
		}
		if cb.WorkspaceID == nil {
			return nil
		}
		return ensureWorkspaceView(ctx, tx, *cb.WorkspaceID, userID)
	})
}

// ShareWorkspace grants one permission on a workspace. Only view and manage
// are meaningful at the workspace level.
func (r *Resolver) ShareWorkspace(ctx context.Context, workspaceID, userID, permission string) error {
	if permission != PermView && permission != PermManage {
		return fmt.Errorf("unknown workspace permission %q", permission)
	}
	return r.store.WithGrantTx(ctx, func(tx GrantTx) error {
		ok, err := tx.HasWorkspaceGrant(ctx, workspaceID, userID, permission)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		return tx.InsertWorkspaceGrant(ctx, workspaceID, userID, permission)
	})
}

// UnshareWorkspace removes every workspace-level grant the user holds.
func (r *Resolver) UnshareWorkspace(ctx context.Context, workspaceID, userID string) error {
	return r.store.WithGrantTx(ctx, func(tx GrantTx) error {
		return tx.DeleteWorkspaceGrantsForUser(ctx, workspaceID, userID)
	})
}

// SeedDocumentOwner gives a document's creator the full permission set.
func (r *Resolver) SeedDocumentOwner(ctx context.Context, documentID, userID string) error {
	return r.store.WithGrantTx(ctx, func(tx GrantTx) error {
		for _, perm := range DocumentPerms {
			if err := tx.InsertDocumentGrant(ctx, documentID, userID, perm); err != nil {
				return err
			}
		}
		return nil
	})
}

// SeedCupboardOwner gives a cupboard's creator a manage grant.
func (r *Resolver) SeedCupboardOwner(ctx context.Context, cupboardID, userID string) error {
	return r.store.WithGrantTx(ctx, func(tx GrantTx) error {
		return tx.InsertCupboardGrant(ctx, cupboardID, userID, PermManage)
	})
}

// ensureWorkspaceView inserts a view grant only for users holding no
// workspace grant at all; an existing manage grant already opens the
// workspace and must not gain a sibling view row.
func ensureWorkspaceView(ctx context.Context, tx GrantTx, workspaceID, userID string) error {
	ok, err := tx.HasAnyWorkspaceGrant(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return tx.InsertWorkspaceGrant(ctx, workspaceID, userID, PermView)
}

func validDocumentPerm(perm string) bool {
	for _, p := range DocumentPerms {
		if p == perm {
			return true
		}
	}
	return false
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
