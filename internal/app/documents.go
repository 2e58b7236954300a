package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/mr-abdellah/online-cupboard/internal/access"
	"github.com/mr-abdellah/online-cupboard/internal/convert"
	"github.com/mr-abdellah/online-cupboard/internal/search"
	"github.com/mr-abdellah/online-cupboard/internal/store"
	"github.com/mr-abdellah/online-cupboard/internal/util"
)

type UploadInput struct {
	Filename    string
	Size        int64
	Content     io.Reader
	Title       string
	Description string
	Tags        []string
	Public      bool
	Searchable  bool
}

type UpdateDocumentInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Public      bool     `json:"isPublic"`
	Searchable  bool     `json:"isSearchable"`
}

func documentPayload(d store.Document) map[string]any {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"id":           d.ID,
		"binderId":     d.BinderID,
		"ownerId":      d.OwnerID,
		"title":        d.Title,
		"description":  d.Description,
		"tags":         tags,
		"mimeType":     d.MimeType,
		"sizeBytes":    d.Size,
		"isPublic":     d.Public,
		"isSearchable": d.Searchable,
		"sortOrder":    d.Order,
		"createdAt":    d.CreatedAt,
		"updatedAt":    d.UpdatedAt,
	}
}

func (s *Service) ListDocuments(ctx context.Context, session Session, binderID string) ([]map[string]any, error) {
	b, err := s.store.GetBinder(ctx, binderID)
	if err != nil {
		return nil, err
	}
	if err := require(s.access.CanManageCupboard(ctx, session.UserID, b.CupboardID)); err != nil {
		return nil, err
	}
	documents, err := s.store.ListDocuments(ctx, binderID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(documents))
	for _, d := range documents {
		items = append(items, documentPayload(d))
	}
	return items, nil
}

func (s *Service) UploadDocument(ctx context.Context, session Session, binderID string, in UploadInput) (map[string]any, error) {
	if err := require(s.access.CanGlobal(ctx, session.UserID, access.CapUploadDocuments)); err != nil {
		return nil, err
	}
	b, err := s.store.GetBinder(ctx, binderID)
	if err != nil {
		return nil, err
	}
	if err := require(s.access.CanManageCupboard(ctx, session.UserID, b.CupboardID)); err != nil {
		return nil, err
	}
	if in.Size <= 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Empty upload", nil)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(in.Content, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	mime := convert.DetectMimeBytes(head[:n], in.Filename)
	content := io.MultiReader(bytes.NewReader(head[:n]), in.Content)

	key := "documents/" + util.NewUUID() + strings.ToLower(filepath.Ext(in.Filename))
	if err := s.blobs.Put(ctx, key, content, in.Size); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = in.Filename
	}
	created, err := s.store.CreateDocument(ctx, store.Document{
		ID:          util.NewUUID(),
		BinderID:    binderID,
		OwnerID:     session.UserID,
		Title:       title,
		Description: in.Description,
		Tags:        in.Tags,
		Path:        key,
		MimeType:    mime,
		Size:        in.Size,
		Public:      in.Public,
		Searchable:  in.Searchable,
	})
	if err != nil {
		_ = s.blobs.Delete(ctx, key)
		return nil, err
	}
	if err := s.access.SeedDocumentOwner(ctx, created.ID, session.UserID); err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.IndexDocument(created)
	}
	s.logger.Info("document uploaded", "document_id", created.ID, "mime", mime, "size", in.Size)
	return documentPayload(created), nil
}

func (s *Service) GetDocument(ctx context.Context, session Session, documentID string) (map[string]any, error) {
	if err := require(s.access.CanViewDocument(ctx, session.UserID, documentID)); err != nil {
		return nil, err
	}
	d, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	perms, err := s.access.DocumentPermissions(ctx, session.UserID, documentID)
	if err != nil {
		return nil, err
	}
	if perms == nil {
		perms = []string{}
	}
	payload := documentPayload(d)
	payload["permissions"] = perms
	return payload, nil
}

func (s *Service) UpdateDocument(ctx context.Context, session Session, documentID string, in UpdateDocumentInput) (map[string]any, error) {
	if err := require(s.access.CanGlobal(ctx, session.UserID, access.CapEditDocuments)); err != nil {
		return nil, err
	}
	if err := require(s.access.CanActOnDocument(ctx, session.UserID, documentID, access.PermEdit)); err != nil {
		return nil, err
	}
	if err := validateNodeName(in.Title); err != nil {
		return nil, err
	}
	d, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	d.Title = in.Title
	d.Description = in.Description
	d.Tags = in.Tags
	d.Public = in.Public
	d.Searchable = in.Searchable
	if err := s.store.UpdateDocument(ctx, d); err != nil {
		return nil, err
	}
	if s.search != nil {
		if d.Searchable {
			s.search.IndexDocument(d)
		} else {
			s.search.DeleteDocument(d.ID)
		}
	}
	return documentPayload(d), nil
}

// MoveDocument reparents a document into another binder. The document keeps
// its grants; the target binder only needs to exist.
func (s *Service) MoveDocument(ctx context.Context, session Session, documentID, binderID string) (map[string]any, error) {
	if err := require(s.access.CanGlobal(ctx, session.UserID, access.CapEditDocuments)); err != nil {
		return nil, err
	}
	if err := require(s.access.CanActOnDocument(ctx, session.UserID, documentID, access.PermEdit)); err != nil {
		return nil, err
	}
	if _, err := s.store.GetBinder(ctx, binderID); err != nil {
		return nil, err
	}
	if err := s.store.MoveDocument(ctx, documentID, binderID); err != nil {
		return nil, err
	}
	d, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if s.search != nil && d.Searchable {
		s.search.IndexDocument(d)
	}
	return documentPayload(d), nil
}

// CopyDocumentToBinders duplicates a document, payload included, into each
// target binder. The caller must be able to view the source and manage every
// target cupboard; the copies belong to the caller.
func (s *Service) CopyDocumentToBinders(ctx context.Context, session Session, documentID string, binderIDs []string) ([]map[string]any, error) {
	if len(binderIDs) == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "No target binders", nil)
	}
	if err := require(s.access.CanViewDocument(ctx, session.UserID, documentID)); err != nil {
		return nil, err
	}
	src, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	targets := make([]store.Binder, 0, len(binderIDs))
	for _, binderID := range binderIDs {
		b, err := s.store.GetBinder(ctx, binderID)
		if err != nil {
			return nil, err
		}
		if err := require(s.access.CanManageCupboard(ctx, session.UserID, b.CupboardID)); err != nil {
			return nil, err
		}
		targets = append(targets, b)
	}

	ext := strings.ToLower(filepath.Ext(src.Path))
	copies := make([]map[string]any, 0, len(targets))
	for _, b := range targets {
		rc, err := s.blobs.Open(ctx, src.Path)
		if err != nil {
			return copies, err
		}
		key := "documents/" + util.NewUUID() + ext
		err = s.blobs.Put(ctx, key, rc, src.Size)
		rc.Close()
		if err != nil {
			return copies, err
		}
		created, err := s.store.CreateDocument(ctx, store.Document{
			ID:          util.NewUUID(),
			BinderID:    b.ID,
			OwnerID:     session.UserID,
			Title:       src.Title,
			Description: src.Description,
			Tags:        src.Tags,
			Path:        key,
			MimeType:    src.MimeType,
			Size:        src.Size,
			Searchable:  src.Searchable,
		})
		if err != nil {
			_ = s.blobs.Delete(ctx, key)
			return copies, err
		}
		if err := s.access.SeedDocumentOwner(ctx, created.ID, session.UserID); err != nil {
			return copies, err
		}
		if s.search != nil && created.Searchable {
			s.search.IndexDocument(created)
		}
		copies = append(copies, documentPayload(created))
	}
	s.logger.Info("document copied", "document_id", documentID, "copies", len(copies))
	return copies, nil
}

func (s *Service) DeleteDocument(ctx context.Context, session Session, documentID string) error {
	if err := require(s.access.CanGlobal(ctx, session.UserID, access.CapDeleteDocument)); err != nil {
		return err
	}
	if err := require(s.access.CanActOnDocument(ctx, session.UserID, documentID, access.PermDelete)); err != nil {
		return err
	}
	d, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, d.Path); err != nil {
		s.logger.Warn("delete blob", "key", d.Path, "error", err)
	}
	if s.search != nil {
		s.search.DeleteDocument(documentID)
	}
	return nil
}

// DisplayDocument resolves the file to serve inline: the payload itself for
// viewable types, a cached or freshly converted PDF otherwise. The returned
// cleanup must run after the response is written.
func (s *Service) DisplayDocument(ctx context.Context, session Session, documentID string) (convert.Output, func(), error) {
	noop := func() {}
	if err := require(s.access.CanGlobal(ctx, session.UserID, access.CapViewDocuments)); err != nil {
		return convert.Output{}, noop, err
	}
	if err := require(s.access.CanViewDocument(ctx, session.UserID, documentID)); err != nil {
		return convert.Output{}, noop, err
	}
	d, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return convert.Output{}, noop, err
	}

	localPath, cleanup, err := s.blobs.LocalPath(ctx, d.Path)
	if err != nil {
		return convert.Output{}, noop, err
	}
	out, err := s.pipeline.Render(ctx, convert.Request{
		Key:       d.Path,
		LocalPath: localPath,
		MimeType:  d.MimeType,
		UpdatedAt: d.UpdatedAt,
	})
	if err != nil {
		cleanup()
		return convert.Output{}, noop, err
	}
	return out, cleanup, nil
}

// DownloadDocument streams the original payload.
func (s *Service) DownloadDocument(ctx context.Context, session Session, documentID string) (store.Document, io.ReadCloser, error) {
	if err := require(s.access.CanActOnDocument(ctx, session.UserID, documentID, access.PermDownload)); err != nil {
		return store.Document{}, nil, err
	}
	d, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return store.Document{}, nil, err
	}
	rc, err := s.blobs.Open(ctx, d.Path)
	if err != nil {
		return store.Document{}, nil, err
	}
	return d, rc, nil
}

// canAdministerDocument gates grant management: the owner or a manager of
// the enclosing cupboard.
func (s *Service) canAdministerDocument(ctx context.Context, session Session, documentID string) error {
	d, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if d.OwnerID == session.UserID {
		return nil
	}
	b, err := s.store.GetBinder(ctx, d.BinderID)
	if err != nil {
		return err
	}
	return require(s.access.CanManageCupboard(ctx, session.UserID, b.CupboardID))
}

func (s *Service) SetDocumentPermissions(ctx context.Context, session Session, documentID, userID string, permissions []string) error {
	known := map[string]bool{}
	for _, perm := range access.DocumentPerms {
		known[perm] = true
	}
	for _, perm := range permissions {
		if !known[perm] {
			return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unknown document permission", perm)
		}
	}
	if err := s.canAdministerDocument(ctx, session, documentID); err != nil {
		return err
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return err
	}
	return s.access.SetDocumentGrants(ctx, documentID, userID, permissions)
}

func (s *Service) ListDocumentGrants(ctx context.Context, session Session, documentID string) ([]map[string]any, error) {
	if err := s.canAdministerDocument(ctx, session, documentID); err != nil {
		return nil, err
	}
	grants, err := s.store.ListDocumentGrants(ctx, documentID)
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

// fileTypeMimes maps the coarse file-type filter of the search endpoint to
// concrete MIME types.
var fileTypeMimes = map[string][]string{
	"pdf":          {"application/pdf"},
	"image":        {"image/jpeg", "image/png", "image/gif", "image/webp"},
	"doc":          {"application/msword", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	"excel":        {"application/vnd.ms-excel", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	"presentation": {"application/vnd.ms-powerpoint", "application/vnd.openxmlformats-officedocument.presentationml.presentation"},
}

type SearchInput struct {
	Query       string
	WorkspaceID string
	FileType    string
	Limit       int
}

// Search runs the document search for the signed-in user. An empty
// WorkspaceID searches everything the user can see; otherwise results are
// narrowed to documents under that workspace.
func (s *Service) Search(ctx context.Context, session Session, in SearchInput) (search.Response, error) {
	if err := require(s.access.CanGlobal(ctx, session.UserID, access.CapViewDocuments)); err != nil {
		return search.Response{}, err
	}
	var mimes []string
	if in.FileType != "" {
		var ok bool
		if mimes, ok = fileTypeMimes[in.FileType]; !ok {
			return search.Response{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unknown file type", in.FileType)
		}
	}
	if in.WorkspaceID != "" {
		if err := require(s.access.CanAccessWorkspace(ctx, session.UserID, in.WorkspaceID)); err != nil {
			return search.Response{}, err
		}
	}
	if in.Limit <= 0 {
		in.Limit = 20
	}

	var resp search.Response
	if s.search != nil {
		var err error
		resp, err = s.search.Search(ctx, session.UserID, in.Query, mimes, in.Limit)
		if err != nil {
			return search.Response{}, err
		}
	} else {
		docs, err := s.store.SearchDocuments(ctx, session.UserID, in.Query, mimes, in.Limit)
		if err != nil {
			return search.Response{}, err
		}
		results := make([]search.Result, 0, len(docs))
		for _, d := range docs {
			results = append(results, search.Result{
				ID:          d.ID,
				Title:       d.Title,
				Description: d.Description,
				Tags:        d.Tags,
				BinderID:    d.BinderID,
				MimeType:    d.MimeType,
			})
		}
		resp = search.Response{Results: results, Query: in.Query}
	}

	if in.WorkspaceID != "" {
		resp.Results, _ = s.inWorkspace(ctx, resp.Results, in.WorkspaceID)
	}
	return resp, nil
}

// inWorkspace keeps only hits whose cupboard belongs to the workspace. The
// index does not know the hierarchy, so this walks binder to cupboard per
// hit; result sets are already capped by the search limit.
func (s *Service) inWorkspace(ctx context.Context, hits []search.Result, workspaceID string) ([]search.Result, error) {
	kept := make([]search.Result, 0, len(hits))
	for _, hit := range hits {
		b, err := s.store.GetBinder(ctx, hit.BinderID)
		if err != nil {
			continue
		}
		cb, err := s.store.GetCupboard(ctx, b.CupboardID)
		if err != nil {
			continue
		}
		if cb.WorkspaceID != nil && *cb.WorkspaceID == workspaceID {
			kept = append(kept, hit)
		}
	}
	return kept, nil
}

// SweepConversions drops converted PDFs older than the configured age.
func (s *Service) SweepConversions(ctx context.Context, session Session) (int, error) {
	if err := require(s.access.CanGlobal(ctx, session.UserID, access.CapManageUsers)); err != nil {
		return 0, err
	}
	return s.cache.Sweep(s.cfg.CacheMaxAge)
}
