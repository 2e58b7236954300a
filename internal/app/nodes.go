package app

import (
	"context"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/mr-abdellah/online-cupboard/internal/access"
	"github.com/mr-abdellah/online-cupboard/internal/store"
	"github.com/mr-abdellah/online-cupboard/internal/util"
)

func validateNodeName(name string) error {
	if err := validation.Validate(name, validation.Required, validation.Length(1, 255)); err != nil {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", err.Error())
	}
	return nil
}

func workspacePayload(w store.Workspace) map[string]any {
	return map[string]any{
		"id":          w.ID,
		"ownerId":     w.OwnerID,
		"name":        w.Name,
		"description": w.Description,
		"isActive":    w.Active,
		"sortOrder":   w.Order,
		"createdAt":   w.CreatedAt,
		"updatedAt":   w.UpdatedAt,
	}
}

func cupboardPayload(c store.Cupboard) map[string]any {
	payload := map[string]any{
		"id":          c.ID,
		"workspaceId": nil,
		"ownerId":     c.OwnerID,
		"name":        c.Name,
		"sortOrder":   c.Order,
		"createdAt":   c.CreatedAt,
		"updatedAt":   c.UpdatedAt,
	}
	if c.WorkspaceID != nil {
		payload["workspaceId"] = *c.WorkspaceID
	}
	return payload
}

func binderPayload(b store.Binder) map[string]any {
	return map[string]any{
		"id":         b.ID,
		"cupboardId": b.CupboardID,
		"ownerId":    b.OwnerID,
		"name":       b.Name,
		"sortOrder":  b.Order,
		"createdAt":  b.CreatedAt,
		"updatedAt":  b.UpdatedAt,
	}
}

func (s *Service) ListWorkspaces(ctx context.Context, session Session) ([]map[string]any, error) {
	workspaces, err := s.store.ListWorkspacesForUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(workspaces))
	for _, w := range workspaces {
		items = append(items, workspacePayload(w))
	}
	return items, nil
}

func (s *Service) CreateWorkspace(ctx context.Context, session Session, name, description string) (map[string]any, error) {
	if err := validateNodeName(name); err != nil {
		return nil, err
	}
	created, err := s.store.CreateWorkspace(ctx, store.Workspace{
		ID:          util.NewUUID(),
		OwnerID:     session.UserID,
		Name:        name,
		Description: description,
		Active:      true,
	})
	if err != nil {
		return nil, err
	}
	return workspacePayload(created), nil
}

func (s *Service) GetWorkspace(ctx context.Context, session Session, workspaceID string) (map[string]any, error) {
	if err := require(s.access.CanAccessWorkspace(ctx, session.UserID, workspaceID)); err != nil {
		return nil, err
	}
	w, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return workspacePayload(w), nil
}

func (s *Service) UpdateWorkspace(ctx context.Context, session Session, workspaceID, name, description string, active bool) (map[string]any, error) {
	if err := validateNodeName(name); err != nil {
		return nil, err
	}
	if err := require(s.access.CanManageWorkspace(ctx, session.UserID, workspaceID)); err != nil {
		return nil, err
	}
	if err := s.store.UpdateWorkspace(ctx, workspaceID, name, description, active); err != nil {
		return nil, err
	}
	w, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return workspacePayload(w), nil
}

// DeleteWorkspace soft-deletes; cupboards under the workspace survive and
// stay reachable through their own grants.
func (s *Service) DeleteWorkspace(ctx context.Context, session Session, workspaceID string) error {
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ws.OwnerID != session.UserID {
		return errForbidden()
	}
	return s.store.DeleteWorkspace(ctx, workspaceID)
}

func (s *Service) ShareWorkspace(ctx context.Context, session Session, workspaceID, userID, permission string) error {
	if permission != access.PermView && permission != access.PermManage {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unknown workspace permission", permission)
	}
	if err := require(s.access.CanManageWorkspace(ctx, session.UserID, workspaceID)); err != nil {
		return err
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return err
	}
	return s.access.ShareWorkspace(ctx, workspaceID, userID, permission)
}

func (s *Service) UnshareWorkspace(ctx context.Context, session Session, workspaceID, userID string) error {
	if err := require(s.access.CanManageWorkspace(ctx, session.UserID, workspaceID)); err != nil {
		return err
	}
	return s.access.UnshareWorkspace(ctx, workspaceID, userID)
}

func (s *Service) ListWorkspaceGrants(ctx context.Context, session Session, workspaceID string) ([]map[string]any, error) {
	if err := require(s.access.CanManageWorkspace(ctx, session.UserID, workspaceID)); err != nil {
		return nil, err
	}
	grants, err := s.store.ListWorkspaceGrants(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(grants))
	for _, g := range grants {
		items = append(items, map[string]any{
			"userId":     g.UserID,
			"permission": g.Permission,
		})
	}
	return items, nil
}

// ListCupboards shows every cupboard to the workspace owner or manager;
// everyone else sees only the cupboards they can manage.
func (s *Service) ListCupboards(ctx context.Context, session Session, workspaceID string) ([]map[string]any, error) {
	if err := require(s.access.CanAccessWorkspace(ctx, session.UserID, workspaceID)); err != nil {
		return nil, err
	}
	manages, err := s.access.CanManageWorkspace(ctx, session.UserID, workspaceID)
	if err != nil {
		return nil, err
	}
	var cupboards []store.Cupboard
	if manages {
		cupboards, err = s.store.ListCupboards(ctx, workspaceID)
	} else {
		cupboards, err = s.store.ListManageableCupboards(ctx, workspaceID, session.UserID)
	}
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(cupboards))
	for _, c := range cupboards {
		items = append(items, cupboardPayload(c))
	}
	return items, nil
}

// CreateCupboard accepts a nil workspaceID for a standalone cupboard.
func (s *Service) CreateCupboard(ctx context.Context, session Session, workspaceID *string, name string) (map[string]any, error) {
	if err := validateNodeName(name); err != nil {
		return nil, err
	}
	if workspaceID != nil {
		if err := require(s.access.CanManageWorkspace(ctx, session.UserID, *workspaceID)); err != nil {
			return nil, err
		}
	}
	created, err := s.store.CreateCupboard(ctx, store.Cupboard{
		ID:          util.NewUUID(),
		WorkspaceID: workspaceID,
		OwnerID:     session.UserID,
		Name:        name,
	})
	if err != nil {
		return nil, err
	}
	if err := s.access.SeedCupboardOwner(ctx, created.ID, session.UserID); err != nil {
		return nil, err
	}
	return cupboardPayload(created), nil
}

func (s *Service) GetCupboard(ctx context.Context, session Session, cupboardID string) (map[string]any, error) {
	if err := require(s.access.CanManageCupboard(ctx, session.UserID, cupboardID)); err != nil {
		return nil, err
	}
	c, err := s.store.GetCupboard(ctx, cupboardID)
	if err != nil {
		return nil, err
	}
	return cupboardPayload(c), nil
}

func (s *Service) RenameCupboard(ctx context.Context, session Session, cupboardID, name string) (map[string]any, error) {
	if err := validateNodeName(name); err != nil {
		return nil, err
	}
	if err := require(s.access.CanManageCupboard(ctx, session.UserID, cupboardID)); err != nil {
		return nil, err
	}
	if err := s.store.RenameCupboard(ctx, cupboardID, name); err != nil {
		return nil, err
	}
	c, err := s.store.GetCupboard(ctx, cupboardID)
	if err != nil {
		return nil, err
	}
	return cupboardPayload(c), nil
}

func (s *Service) DeleteCupboard(ctx context.Context, session Session, cupboardID string) error {
	c, err := s.store.GetCupboard(ctx, cupboardID)
	if err != nil {
		return err
	}
	if c.OwnerID != session.UserID {
		if err := require(s.access.CanManageCupboard(ctx, session.UserID, cupboardID)); err != nil {
			return err
		}
	}
	return s.store.DeleteCupboard(ctx, cupboardID)
}

// SetCupboardManagers replaces the manager list of one cupboard.
func (s *Service) SetCupboardManagers(ctx context.Context, session Session, cupboardID string, userIDs []string) error {
	if err := require(s.access.CanManageCupboard(ctx, session.UserID, cupboardID)); err != nil {
		return err
	}
	for _, userID := range userIDs {
		if _, err := s.store.GetUserByID(ctx, userID); err != nil {
			return err
		}
	}
	return s.access.SetManagersForCupboard(ctx, cupboardID, userIDs)
}

// SetManagedCupboards replaces the set of cupboards one user manages inside
// a workspace.
func (s *Service) SetManagedCupboards(ctx context.Context, session Session, workspaceID, userID string, cupboardIDs []string) error {
	if err := require(s.access.CanManageWorkspace(ctx, session.UserID, workspaceID)); err != nil {
		return err
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return err
	}
	for _, cupboardID := range cupboardIDs {
		c, err := s.store.GetCupboard(ctx, cupboardID)
		if err != nil {
			return err
		}
		if c.WorkspaceID == nil || *c.WorkspaceID != workspaceID {
			return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Cupboard is not in this workspace", cupboardID)
		}
	}
	return s.access.SetManagedCupboardsForUser(ctx, workspaceID, userID, cupboardIDs)
}

func (s *Service) ListCupboardGrants(ctx context.Context, session Session, cupboardID string) ([]map[string]any, error) {
	if err := require(s.access.CanManageCupboard(ctx, session.UserID, cupboardID)); err != nil {
		return nil, err
	}
	grants, err := s.store.ListCupboardGrants(ctx, cupboardID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(grants))
	for _, g := range grants {
		items = append(items, map[string]any{
			"userId":     g.UserID,
			"permission": g.Permission,
		})
	}
	return items, nil
}

func (s *Service) ListBinders(ctx context.Context, session Session, cupboardID string) ([]map[string]any, error) {
	if err := require(s.access.CanManageCupboard(ctx, session.UserID, cupboardID)); err != nil {
		return nil, err
	}
	binders, err := s.store.ListBinders(ctx, cupboardID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(binders))
	for _, b := range binders {
		items = append(items, binderPayload(b))
	}
	return items, nil
}

func (s *Service) CreateBinder(ctx context.Context, session Session, cupboardID, name string) (map[string]any, error) {
	if err := validateNodeName(name); err != nil {
		return nil, err
	}
	if err := require(s.access.CanManageCupboard(ctx, session.UserID, cupboardID)); err != nil {
		return nil, err
	}
	created, err := s.store.CreateBinder(ctx, store.Binder{
		ID:         util.NewUUID(),
		CupboardID: cupboardID,
		OwnerID:    session.UserID,
		Name:       name,
	})
	if err != nil {
		return nil, err
	}
	return binderPayload(created), nil
}

func (s *Service) GetBinder(ctx context.Context, session Session, binderID string) (map[string]any, error) {
	b, err := s.store.GetBinder(ctx, binderID)
	if err != nil {
		return nil, err
	}
	if err := require(s.access.CanManageCupboard(ctx, session.UserID, b.CupboardID)); err != nil {
		return nil, err
	}
	return binderPayload(b), nil
}

func (s *Service) RenameBinder(ctx context.Context, session Session, binderID, name string) (map[string]any, error) {
	if err := validateNodeName(name); err != nil {
		return nil, err
	}
	b, err := s.store.GetBinder(ctx, binderID)
	if err != nil {
		return nil, err
	}
	if err := require(s.access.CanManageCupboard(ctx, session.UserID, b.CupboardID)); err != nil {
		return nil, err
	}
	if err := s.store.RenameBinder(ctx, binderID, name); err != nil {
		return nil, err
	}
	b, err = s.store.GetBinder(ctx, binderID)
	if err != nil {
		return nil, err
	}
	return binderPayload(b), nil
}

// MoveBinder reparents a binder into another cupboard. The caller must hold
// the edit capability and manage both the source and target cupboards.
func (s *Service) MoveBinder(ctx context.Context, session Session, binderID, cupboardID string) (map[string]any, error) {
	if err := require(s.access.CanGlobal(ctx, session.UserID, access.CapEditDocuments)); err != nil {
		return nil, err
	}
	b, err := s.store.GetBinder(ctx, binderID)
	if err != nil {
		return nil, err
	}
	if err := require(s.access.CanManageCupboard(ctx, session.UserID, b.CupboardID)); err != nil {
		return nil, err
	}
	if _, err := s.store.GetCupboard(ctx, cupboardID); err != nil {
		return nil, err
	}
	if err := require(s.access.CanManageCupboard(ctx, session.UserID, cupboardID)); err != nil {
		return nil, err
	}
	if err := s.store.MoveBinder(ctx, binderID, cupboardID); err != nil {
		return nil, err
	}
	b, err = s.store.GetBinder(ctx, binderID)
	if err != nil {
		return nil, err
	}
	return binderPayload(b), nil
}

func (s *Service) DeleteBinder(ctx context.Context, session Session, binderID string) error {
	b, err := s.store.GetBinder(ctx, binderID)
	if err != nil {
		return err
	}
	if b.OwnerID != session.UserID {
		if err := require(s.access.CanManageCupboard(ctx, session.UserID, b.CupboardID)); err != nil {
			return err
		}
	}
	return s.store.DeleteBinder(ctx, binderID)
}
