package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/mr-abdellah/online-cupboard/internal/access"
	"github.com/mr-abdellah/online-cupboard/internal/auth"
	"github.com/mr-abdellah/online-cupboard/internal/authpw"
	"github.com/mr-abdellah/online-cupboard/internal/blob"
	"github.com/mr-abdellah/online-cupboard/internal/config"
	"github.com/mr-abdellah/online-cupboard/internal/convert"
	"github.com/mr-abdellah/online-cupboard/internal/search"
	"github.com/mr-abdellah/online-cupboard/internal/session"
	"github.com/mr-abdellah/online-cupboard/internal/store"
	"github.com/mr-abdellah/online-cupboard/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	CreateUser(context.Context, store.User) error
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	TouchLastLogin(context.Context, string) error
	GrantGlobalPermission(context.Context, string, string) error
	RevokeGlobalPermission(context.Context, string, string) error
	ListGlobalPermissions(context.Context, string) ([]string, error)

	CreateWorkspace(context.Context, store.Workspace) (store.Workspace, error)
	GetWorkspace(context.Context, string) (store.Workspace, error)
	ListWorkspacesForUser(context.Context, string) ([]store.Workspace, error)
	UpdateWorkspace(context.Context, string, string, string, bool) error
	DeleteWorkspace(context.Context, string) error
	ListWorkspaceGrants(context.Context, string) ([]store.WorkspaceGrant, error)

	CreateCupboard(context.Context, store.Cupboard) (store.Cupboard, error)
	GetCupboard(context.Context, string) (store.Cupboard, error)
	ListCupboards(context.Context, string) ([]store.Cupboard, error)
	ListManageableCupboards(context.Context, string, string) ([]store.Cupboard, error)
	RenameCupboard(context.Context, string, string) error
	DeleteCupboard(context.Context, string) error
	ListCupboardGrants(context.Context, string) ([]store.CupboardGrant, error)

	CreateBinder(context.Context, store.Binder) (store.Binder, error)
	GetBinder(context.Context, string) (store.Binder, error)
	ListBinders(context.Context, string) ([]store.Binder, error)
	RenameBinder(context.Context, string, string) error
	MoveBinder(context.Context, string, string) error
	DeleteBinder(context.Context, string) error

	CreateDocument(context.Context, store.Document) (store.Document, error)
	GetDocument(context.Context, string) (store.Document, error)
	ListDocuments(context.Context, string) ([]store.Document, error)
	UpdateDocument(context.Context, store.Document) error
	MoveDocument(context.Context, string, string) error
	DeleteDocument(context.Context, string) error
	SearchDocuments(context.Context, string, string, []string, int) ([]store.Document, error)
	ListDocumentGrants(context.Context, string) ([]store.DocumentGrant, error)

	Ping(ctx context.Context) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	access   *access.Resolver
	sessions session.Store
	blobs    blob.Store
	pipeline *convert.Pipeline
	cache    *convert.Cache
	search   *search.Service
	logger   *slog.Logger
}

// New wires the service. searcher may be nil; document search then goes
// straight to Postgres and nothing is indexed.
func New(
	cfg config.Config,
	dataStore *store.PostgresStore,
	resolver *access.Resolver,
	sessions session.Store,
	blobs blob.Store,
	pipeline *convert.Pipeline,
	cache *convert.Cache,
	searcher *search.Service,
	logger *slog.Logger,
) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		access:   resolver,
		sessions: sessions,
		blobs:    blobs,
		pipeline: pipeline,
		cache:    cache,
		search:   searcher,
		logger:   logger,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func errForbidden() *DomainError {
	return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}

func errInvalidCredentials() *DomainError {
	return domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
}

// require collapses an authorization check into a single error.
func require(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return errForbidden()
	}
	return nil
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 128)),
	)
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	if err := in.Validate(); err != nil {
		return Session{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid signup payload", err.Error())
	}

	if _, err := s.store.GetUserByEmail(ctx, in.Email); err == nil {
		return Session{}, domainError(http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
	} else if !errors.Is(err, store.ErrNotFound) {
		return Session{}, err
	}

	hash, err := authpw.Hash(in.Password)
	if err != nil {
		if errors.Is(err, authpw.ErrPasswordTooShort) {
			return Session{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Password too short", nil)
		}
		return Session{}, err
	}

	user := store.User{
		ID:           util.NewUUID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Status:       "active",
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return Session{}, err
	}
	for _, capability := range access.DefaultCapabilities {
		if err := s.store.GrantGlobalPermission(ctx, user.ID, capability); err != nil {
			return Session{}, err
		}
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return s.issueSession(ctx, user)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, errInvalidCredentials()
		}
		return Session{}, err
	}
	if err := authpw.Verify(user.PasswordHash, password); err != nil {
		return Session{}, errInvalidCredentials()
	}
	if user.Status != "active" {
		return Session{}, domainError(http.StatusForbidden, "ACCOUNT_DISABLED", "Account is disabled", nil)
	}
	if err := s.store.TouchLastLogin(ctx, user.ID); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	sess, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
		}
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.Name,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, user.Name, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.Name,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.Name,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// Profile returns the signed-in user together with their account-wide
// capabilities.
func (s *Service) Profile(ctx context.Context, session Session) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	capabilities, err := s.store.ListGlobalPermissions(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if capabilities == nil {
		capabilities = []string{}
	}
	return map[string]any{
		"id":           user.ID,
		"name":         user.Name,
		"email":        user.Email,
		"avatar":       user.Avatar,
		"status":       user.Status,
		"capabilities": capabilities,
	}, nil
}

// SetUserCapabilities replaces another user's account-wide capability set.
func (s *Service) SetUserCapabilities(ctx context.Context, session Session, userID string, capabilities []string) ([]string, error) {
	if err := require(s.access.CanGlobal(ctx, session.UserID, access.CapManageUsers)); err != nil {
		return nil, err
	}
	known := map[string]bool{
		access.CapViewDocuments:   true,
		access.CapUploadDocuments: true,
		access.CapEditDocuments:   true,
		access.CapDeleteDocument:  true,
		access.CapManageUsers:     true,
	}
	want := map[string]bool{}
	for _, capability := range capabilities {
		if !known[capability] {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unknown capability", capability)
		}
		want[capability] = true
	}

	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	current, err := s.store.ListGlobalPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	have := map[string]bool{}
	for _, capability := range current {
		have[capability] = true
	}
	for capability := range have {
		if !want[capability] {
			if err := s.store.RevokeGlobalPermission(ctx, userID, capability); err != nil {
				return nil, err
			}
		}
	}
	for capability := range want {
		if !have[capability] {
			if err := s.store.GrantGlobalPermission(ctx, userID, capability); err != nil {
				return nil, err
			}
		}
	}
	return s.store.ListGlobalPermissions(ctx, userID)
}

// UserCapabilities lists another user's capability set.
func (s *Service) UserCapabilities(ctx context.Context, session Session, userID string) ([]string, error) {
	if session.UserID != userID {
		if err := require(s.access.CanGlobal(ctx, session.UserID, access.CapManageUsers)); err != nil {
			return nil, err
		}
	}
	capabilities, err := s.store.ListGlobalPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if capabilities == nil {
		capabilities = []string{}
	}
	return capabilities, nil
}
