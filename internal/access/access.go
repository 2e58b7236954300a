package access

import (
	"context"
	"fmt"

	"github.com/mr-abdellah/online-cupboard/internal/store"
)

// Node-level permission names as stored in the grant tables.
const (
	PermView     = "view"
	PermEdit     = "edit"
	PermDelete   = "delete"
	PermDownload = "download"
	PermManage   = "manage"
)

// Account-wide capabilities.
const (
	CapViewDocuments   = "can_view_documents"
	CapUploadDocuments = "can_upload_documents"
	CapEditDocuments   = "can_edit_documents"
	CapDeleteDocument  = "can_delete_document"
	CapManageUsers     = "can_manage_users"
)

// DefaultCapabilities are granted to every new account.
var DefaultCapabilities = []string{
	CapViewDocuments,
	CapUploadDocuments,
	CapEditDocuments,
	CapDeleteDocument,
}

// DocumentPerms is every permission a document grant can name.
var DocumentPerms = []string{PermView, PermEdit, PermDelete, PermDownload}

// Store is the subset of the persistence layer the resolver consults.
type Store interface {
	GetWorkspace(ctx context.Context, id string) (store.Workspace, error)
	GetCupboard(ctx context.Context, id string) (store.Cupboard, error)
	GetBinder(ctx context.Context, id string) (store.Binder, error)
	GetDocument(ctx context.Context, id string) (store.Document, error)

	HasGlobalPermission(ctx context.Context, userID, permission string) (bool, error)
	HasAnyWorkspaceGrant(ctx context.Context, workspaceID, userID string) (bool, error)
	HasWorkspaceGrant(ctx context.Context, workspaceID, userID, permission string) (bool, error)
	HasCupboardGrant(ctx context.Context, cupboardID, userID, permission string) (bool, error)
	HasDocumentGrant(ctx context.Context, documentID, userID, permission string) (bool, error)

	WithGrantTx(ctx context.Context, fn func(GrantTx) error) error
}

// GrantTx is the transactional surface used by reconcile operations.
type GrantTx interface {
	InsertWorkspaceGrant(ctx context.Context, workspaceID, userID, permission string) error
	DeleteWorkspaceGrantsForUser(ctx context.Context, workspaceID, userID string) error
	HasAnyWorkspaceGrant(ctx context.Context, workspaceID, userID string) (bool, error)
	HasWorkspaceGrant(ctx context.Context, workspaceID, userID, permission string) (bool, error)

	InsertCupboardGrant(ctx context.Context, cupboardID, userID, permission string) error
	DeleteCupboardGrant(ctx context.Context, cupboardID, userID, permission string) error
	HasCupboardGrant(ctx context.Context, cupboardID, userID, permission string) (bool, error)
	ListCupboardIDsGrantedToUser(ctx context.Context, workspaceID, userID, permission string) ([]string, error)
	ListUserIDsGrantedOnCupboard(ctx context.Context, cupboardID, permission string) ([]string, error)

	InsertDocumentGrant(ctx context.Context, documentID, userID, permission string) error
	DeleteDocumentGrant(ctx context.Context, documentID, userID, permission string) error
	ListDocumentPermissionsForUser(ctx context.Context, documentID, userID string) ([]string, error)
}

// Resolver answers authorization questions against live grant rows. Nothing
// is cached; a revoked grant takes effect on the next check.
type Resolver struct {
	store Store
}

func New(s Store) *Resolver {
	return &Resolver{store: s}
}

func (r *Resolver) CanGlobal(ctx context.Context, userID, capability string) (bool, error) {
	return r.store.HasGlobalPermission(ctx, userID, capability)
}

// CanAccessWorkspace is satisfied by ownership or by holding any grant on the
// workspace, whatever permission it names.
func (r *Resolver) CanAccessWorkspace(ctx context.Context, userID, workspaceID string) (bool, error) {
	ws, err := r.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return false, err
	}
	if ws.OwnerID == userID {
		return true, nil
	}
	return r.store.HasAnyWorkspaceGrant(ctx, workspaceID, userID)
}

func (r *Resolver) CanManageWorkspace(ctx context.Context, userID, workspaceID string) (bool, error) {
	ws, err := r.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return false, err
	}
	if ws.OwnerID == userID {
		return true, nil
	}
	return r.store.HasWorkspaceGrant(ctx, workspaceID, userID, PermManage)
}

// CanManageCupboard is satisfied by owning the cupboard, owning its
// workspace, or holding a manage grant on the cupboard.
func (r *Resolver) CanManageCupboard(ctx context.Context, userID, cupboardID string) (bool, error) {
	cb, err := r.store.GetCupboard(ctx, cupboardID)
	if err != nil {
		return false, err
	}
	return r.canManageCupboard(ctx, userID, cb)
}

func (r *Resolver) canManageCupboard(ctx context.Context, userID string, cb store.Cupboard) (bool, error) {
	if cb.OwnerID == userID {
		return true, nil
	}
	if cb.WorkspaceID != nil {
		ws, err := r.store.GetWorkspace(ctx, *cb.WorkspaceID)
		if err != nil {
			return false, err
		}
		if ws.OwnerID == userID {
			return true, nil
		}
	}
	return r.store.HasCupboardGrant(ctx, cb.ID, userID, PermManage)
}

// CanViewDocument answers the view question. A public document is viewable
// by anyone; otherwise the viewer must own the document, or be able to manage
// the enclosing cupboard AND hold a view grant on the document.
func (r *Resolver) CanViewDocument(ctx context.Context, userID, documentID string) (bool, error) {
	doc, err := r.store.GetDocument(ctx, documentID)
	if err != nil {
		return false, err
	}
	if doc.Public {
		return true, nil
	}
	if doc.OwnerID == userID {
		return true, nil
	}
	cb, err := r.cupboardOf(ctx, doc)
	if err != nil {
		return false, err
	}
	manage, err := r.canManageCupboard(ctx, userID, cb)
	if err != nil || !manage {
		return false, err
	}
	return r.store.HasDocumentGrant(ctx, documentID, userID, PermView)
}

// CanActOnDocument checks edit, delete and download. These are single-factor:
// ownership or an explicit document grant naming the action. Unlike view,
// public visibility grants nothing here.
func (r *Resolver) CanActOnDocument(ctx context.Context, userID, documentID, permission string) (bool, error) {
	doc, err := r.store.GetDocument(ctx, documentID)
	if err != nil {
		return false, err
	}
	if doc.OwnerID == userID {
		return true, nil
	}
	return r.store.HasDocumentGrant(ctx, documentID, userID, permission)
}

// DocumentPermissions resolves the effective permission set a user holds on
// a document, for API responses.
func (r *Resolver) DocumentPermissions(ctx context.Context, userID, documentID string) ([]string, error) {
	doc, err := r.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID == userID {
		return append([]string(nil), DocumentPerms...), nil
	}
	var out []string
	for _, perm := range DocumentPerms {
		var ok bool
		if perm == PermView {
			ok, err = r.CanViewDocument(ctx, userID, documentID)
		} else {
			ok, err = r.CanActOnDocument(ctx, userID, documentID, perm)
		}
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, perm)
		}
	}
	return out, nil
}

func (r *Resolver) cupboardOf(ctx context.Context, doc store.Document) (store.Cupboard, error) {
	binder, err := r.store.GetBinder(ctx, doc.BinderID)
	if err != nil {
		return store.Cupboard{}, fmt.Errorf("load binder: %w", err)
	}
	cb, err := r.store.GetCupboard(ctx, binder.CupboardID)
	if err != nil {
		return store.Cupboard{}, fmt.Errorf("load cupboard: %w", err)
	}
	return cb, nil
}
