package store

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Avatar       string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

type Workspace struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Active      bool
	Order       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Cupboard can live outside any workspace; WorkspaceID is nil for those.
type Cupboard struct {
	ID          string
	WorkspaceID *string
	OwnerID     string
	Name        string
	Order       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Binder struct {
	ID         string
	CupboardID string
	OwnerID    string
	Name       string
	Order      int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Document struct {
	ID          string
	BinderID    string
	OwnerID     string
	Title       string
	Description string
	Tags        []string
	Path        string
	MimeType    string
	Size        int64
	Public      bool
	Searchable  bool
	Order       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type WorkspaceGrant struct {
	WorkspaceID string
	UserID      string
	Permission  string
}

type CupboardGrant struct {
	CupboardID string
	UserID     string
	Permission string
}

type DocumentGrant struct {
	DocumentID string
	UserID     string
	Permission string
}

type RefreshSession struct {
	TokenHash string
	UserID    string
	UserName  string
	ExpiresAt time.Time
}
