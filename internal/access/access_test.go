package access

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/mr-abdellah/online-cupboard/internal/store"
)

type fakeStore struct {
	workspaces map[string]store.Workspace
	cupboards  map[string]store.Cupboard
	binders    map[string]store.Binder
	documents  map[string]store.Document
	global     map[string]bool
	wsGrants   map[string]bool
	cbGrants   map[string]bool
	docGrants  map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		workspaces: map[string]store.Workspace{},
		cupboards:  map[string]store.Cupboard{},
		binders:    map[string]store.Binder{},
		documents:  map[string]store.Document{},
		global:     map[string]bool{},
		wsGrants:   map[string]bool{},
		cbGrants:   map[string]bool{},
		docGrants:  map[string]bool{},
	}
}

func key(parts ...string) string { return strings.Join(parts, "|") }

func (f *fakeStore) GetWorkspace(_ context.Context, id string) (store.Workspace, error) {
	w, ok := f.workspaces[id]
	if !ok {
		return store.Workspace{}, store.ErrNotFound
	}
	return w, nil
}

func (f *fakeStore) GetCupboard(_ context.Context, id string) (store.Cupboard, error) {
	c, ok := f.cupboards[id]
	if !ok {
		return store.Cupboard{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) GetBinder(_ context.Context, id string) (store.Binder, error) {
	b, ok := f.binders[id]
	if !ok {
		return store.Binder{}, store.ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) GetDocument(_ context.Context, id string) (store.Document, error) {
	d, ok := f.documents[id]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return d, nil
}

func (f *fakeStore) HasGlobalPermission(_ context.Context, userID, permission string) (bool, error) {
	return f.global[key(userID, permission)], nil
}

func (f *fakeStore) HasAnyWorkspaceGrant(_ context.Context, workspaceID, userID string) (bool, error) {
	prefix := key(workspaceID, userID) + "|"
	for k := range f.wsGrants {
		if strings.HasPrefix(k, prefix) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) HasWorkspaceGrant(_ context.Context, workspaceID, userID, permission string) (bool, error) {
	return f.wsGrants[key(workspaceID, userID, permission)], nil
}

func (f *fakeStore) HasCupboardGrant(_ context.Context, cupboardID, userID, permission string) (bool, error) {
	return f.cbGrants[key(cupboardID, userID, permission)], nil
}

func (f *fakeStore) HasDocumentGrant(_ context.Context, documentID, userID, permission string) (bool, error) {
	return f.docGrants[key(documentID, userID, permission)], nil
}

func (f *fakeStore) WithGrantTx(_ context.Context, fn func(GrantTx) error) error {
	return fn(f)
}

func (f *fakeStore) InsertWorkspaceGrant(_ context.Context, workspaceID, userID, permission string) error {
	f.wsGrants[key(workspaceID, userID, permission)] = true
	return nil
}

func (f *fakeStore) DeleteWorkspaceGrantsForUser(_ context.Context, workspaceID, userID string) error {
	prefix := key(workspaceID, userID) + "|"
	for k := range f.wsGrants {
		if strings.HasPrefix(k, prefix) {
			delete(f.wsGrants, k)
		}
	}
	return nil
}

func (f *fakeStore) InsertCupboardGrant(_ context.Context, cupboardID, userID, permission string) error {
	f.cbGrants[key(cupboardID, userID, permission)] = true
	return nil
}

func (f *fakeStore) DeleteCupboardGrant(_ context.Context, cupboardID, userID, permission string) error {
	delete(f.cbGrants, key(cupboardID, userID, permission))
	return nil
}

func (f *fakeStore) ListCupboardIDsGrantedToUser(_ context.Context, workspaceID, userID, permission string) ([]string, error) {
	var out []string
	for k := range f.cbGrants {
		parts := strings.Split(k, "|")
		if parts[1] != userID || parts[2] != permission {
			continue
		}
		cb, ok := f.cupboards[parts[0]]
		if !ok || cb.WorkspaceID == nil || *cb.WorkspaceID != workspaceID {
			continue
		}
		out = append(out, parts[0])
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeStore) ListUserIDsGrantedOnCupboard(_ context.Context, cupboardID, permission string) ([]string, error) {
	var out []string
	for k := range f.cbGrants {
		parts := strings.Split(k, "|")
		if parts[0] == cupboardID && parts[2] == permission {
			out = append(out, parts[1])
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeStore) InsertDocumentGrant(_ context.Context, documentID, userID, permission string) error {
	f.docGrants[key(documentID, userID, permission)] = true
	return nil
}

func (f *fakeStore) DeleteDocumentGrant(_ context.Context, documentID, userID, permission string) error {
	delete(f.docGrants, key(documentID, userID, permission))
	return nil
}

func (f *fakeStore) ListDocumentPermissionsForUser(_ context.Context, documentID, userID string) ([]string, error) {
	var out []string
	for k := range f.docGrants {
		parts := strings.Split(k, "|")
		if parts[0] == documentID && parts[1] == userID {
			out = append(out, parts[2])
		}
	}
	sort.Strings(out)
	return out, nil
}

// seedTree wires owner "alice" with workspace ws1 > cupboard cb1 > binder b1
// > document d1.
func seedTree(f *fakeStore) {
	ws := "ws1"
	f.workspaces["ws1"] = store.Workspace{ID: "ws1", OwnerID: "alice"}
	f.cupboards["cb1"] = store.Cupboard{ID: "cb1", WorkspaceID: &ws, OwnerID: "alice"}
	f.binders["b1"] = store.Binder{ID: "b1", CupboardID: "cb1", OwnerID: "alice"}
	f.documents["d1"] = store.Document{ID: "d1", BinderID: "b1", OwnerID: "alice"}
}

func TestCanViewDocument(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		user   string
		public bool
		grants func(f *fakeStore)
		want   bool
	}{
		{name: "owner", user: "alice", want: true},
		{name: "stranger", user: "bob", want: false},
		{
			name: "view grant without cupboard manage",
			user: "bob",
			grants: func(f *fakeStore) {
				f.docGrants[key("d1", "bob", PermView)] = true
			},
			want: false,
		},
		{
			name: "cupboard manage without view grant",
			user: "bob",
			grants: func(f *fakeStore) {
				f.cbGrants[key("cb1", "bob", PermManage)] = true
			},
			want: false,
		},
		{
			name: "both factors",
			user: "bob",
			grants: func(f *fakeStore) {
				f.cbGrants[key("cb1", "bob", PermManage)] = true
				f.docGrants[key("d1", "bob", PermView)] = true
			},
			want: true,
		},
		{
			name:   "public viewable without any grant",
			user:   "bob",
			public: true,
			want:   true,
		},
		{
			name:   "public viewable with cupboard manage",
			user:   "bob",
			public: true,
			grants: func(f *fakeStore) {
				f.cbGrants[key("cb1", "bob", PermManage)] = true
			},
			want: true,
		},
		{
			name: "workspace owner passes the cupboard factor",
			user: "carol",
			grants: func(f *fakeStore) {
				f.workspaces["ws1"] = store.Workspace{ID: "ws1", OwnerID: "carol"}
				f.docGrants[key("d1", "carol", PermView)] = true
			},
			want: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeStore()
			seedTree(f)
			if tc.public {
				d := f.documents["d1"]
				d.Public = true
				f.documents["d1"] = d
			}
			if tc.grants != nil {
				tc.grants(f)
			}
			got, err := New(f).CanViewDocument(ctx, tc.user, "d1")
			if err != nil {
				t.Fatalf("CanViewDocument: %v", err)
			}
			if got != tc.want {
				t.Fatalf("CanViewDocument(%s) = %v, want %v", tc.user, got, tc.want)
			}
		})
	}
}

func TestCanActOnDocumentPublicGrantsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	seedTree(f)
	d := f.documents["d1"]
	d.Public = true
	f.documents["d1"] = d

	r := New(f)
	for _, perm := range []string{PermEdit, PermDelete, PermDownload} {
		ok, err := r.CanActOnDocument(ctx, "bob", "d1", perm)
		if err != nil {
			t.Fatalf("CanActOnDocument(%s): %v", perm, err)
		}
		if ok {
			t.Fatalf("public document allowed %s without a grant", perm)
		}
	}
}

// Document actions are single-factor: the grant alone decides, with no
// cupboard-level requirement on top.
func TestCanActOnDocumentGrantAloneSuffices(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	seedTree(f)
	r := New(f)

	for _, perm := range []string{PermEdit, PermDelete, PermDownload} {
		f.docGrants[key("d1", "bob", perm)] = true
		ok, err := r.CanActOnDocument(ctx, "bob", "d1", perm)
		if err != nil {
			t.Fatalf("CanActOnDocument(%s): %v", perm, err)
		}
		if !ok {
			t.Fatalf("%s grant alone should allow %s", perm, perm)
		}
	}
	if ok, _ := r.CanActOnDocument(ctx, "bob", "d1", PermView); ok {
		t.Fatal("grants for other actions should not leak into view")
	}
}

func TestCanManageCupboard(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	seedTree(f)
	r := New(f)

	if ok, _ := r.CanManageCupboard(ctx, "alice", "cb1"); !ok {
		t.Fatal("cupboard owner should manage")
	}
	if ok, _ := r.CanManageCupboard(ctx, "bob", "cb1"); ok {
		t.Fatal("stranger should not manage")
	}
	f.cbGrants[key("cb1", "bob", PermManage)] = true
	if ok, _ := r.CanManageCupboard(ctx, "bob", "cb1"); !ok {
		t.Fatal("manage grant should allow managing")
	}

	// Cupboard outside any workspace falls back to owner and grant checks.
	f.cupboards["cb2"] = store.Cupboard{ID: "cb2", OwnerID: "dave"}
	if ok, _ := r.CanManageCupboard(ctx, "dave", "cb2"); !ok {
		t.Fatal("owner of workspace-less cupboard should manage")
	}
	if ok, _ := r.CanManageCupboard(ctx, "bob", "cb2"); ok {
		t.Fatal("stranger should not manage workspace-less cupboard")
	}
}

func TestCanAccessWorkspace(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	seedTree(f)
	r := New(f)

	if ok, _ := r.CanAccessWorkspace(ctx, "alice", "ws1"); !ok {
		t.Fatal("owner should access workspace")
	}
	if ok, _ := r.CanAccessWorkspace(ctx, "bob", "ws1"); ok {
		t.Fatal("stranger should not access workspace")
	}
	f.wsGrants[key("ws1", "bob", PermView)] = true
	if ok, _ := r.CanAccessWorkspace(ctx, "bob", "ws1"); !ok {
		t.Fatal("any grant should open the workspace")
	}
}

func TestSetManagedCupboardsForUser(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	seedTree(f)
	ws := "ws1"
	f.cupboards["cb2"] = store.Cupboard{ID: "cb2", WorkspaceID: &ws, OwnerID: "alice"}
	f.cupboards["cb3"] = store.Cupboard{ID: "cb3", WorkspaceID: &ws, OwnerID: "alice"}
	f.cbGrants[key("cb1", "bob", PermManage)] = true
	r := New(f)

	if err := r.SetManagedCupboardsForUser(ctx, "ws1", "bob", []string{"cb2", "cb3"}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if f.cbGrants[key("cb1", "bob", PermManage)] {
		t.Fatal("removed cupboard kept its manage grant")
	}
	for _, id := range []string{"cb2", "cb3"} {
		if !f.cbGrants[key(id, "bob", PermManage)] {
			t.Fatalf("cupboard %s missing manage grant", id)
		}
	}
	if !f.wsGrants[key("ws1", "bob", PermView)] {
		t.Fatal("workspace view grant not cascaded")
	}

	// Applying the same set again must change nothing.
	before := len(f.cbGrants) + len(f.wsGrants)
	if err := r.SetManagedCupboardsForUser(ctx, "ws1", "bob", []string{"cb2", "cb3"}); err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if after := len(f.cbGrants) + len(f.wsGrants); after != before {
		t.Fatalf("reconcile not idempotent: %d rows became %d", before, after)
	}

	// Clearing the set removes grants but leaves the workspace grant.
	if err := r.SetManagedCupboardsForUser(ctx, "ws1", "bob", nil); err != nil {
		t.Fatalf("clear reconcile: %v", err)
	}
	if f.cbGrants[key("cb2", "bob", PermManage)] || f.cbGrants[key("cb3", "bob", PermManage)] {
		t.Fatal("cleared set left manage grants behind")
	}
	if !f.wsGrants[key("ws1", "bob", PermView)] {
		t.Fatal("clearing cupboards should not revoke workspace access")
	}
}

func TestShareWorkspace(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	seedTree(f)
	r := New(f)

	if err := r.ShareWorkspace(ctx, "ws1", "bob", "delete"); err == nil {
		t.Fatal("unknown workspace permission accepted")
	}
	if err := r.ShareWorkspace(ctx, "ws1", "bob", PermView); err != nil {
		t.Fatalf("share: %v", err)
	}
	if !f.wsGrants[key("ws1", "bob", PermView)] {
		t.Fatal("view grant missing after share")
	}
	// Sharing twice is a no-op.
	if err := r.ShareWorkspace(ctx, "ws1", "bob", PermView); err != nil {
		t.Fatalf("repeat share: %v", err)
	}

	if err := r.ShareWorkspace(ctx, "ws1", "bob", PermManage); err != nil {
		t.Fatalf("share manage: %v", err)
	}
	if err := r.UnshareWorkspace(ctx, "ws1", "bob"); err != nil {
		t.Fatalf("unshare: %v", err)
	}
	if f.wsGrants[key("ws1", "bob", PermView)] || f.wsGrants[key("ws1", "bob", PermManage)] {
		t.Fatal("unshare left grants behind")
	}
}

func TestSetManagersForCupboard(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	seedTree(f)
	f.cbGrants[key("cb1", "bob", PermManage)] = true
	r := New(f)

	if err := r.SetManagersForCupboard(ctx, "cb1", []string{"carol", "dave"}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if f.cbGrants[key("cb1", "bob", PermManage)] {
		t.Fatal("bob should have lost the manage grant")
	}
	for _, user := range []string{"carol", "dave"} {
		if !f.cbGrants[key("cb1", user, PermManage)] {
			t.Fatalf("%s missing manage grant", user)
		}
		if !f.wsGrants[key("ws1", user, PermView)] {
			t.Fatalf("%s missing cascaded workspace grant", user)
		}
	}
}

func TestCascadeSkipsExistingWorkspaceGrantHolders(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	seedTree(f)
	f.wsGrants[key("ws1", "erin", PermManage)] = true
	r := New(f)

	if err := r.SetManagersForCupboard(ctx, "cb1", []string{"erin"}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !f.cbGrants[key("cb1", "erin", PermManage)] {
		t.Fatal("erin missing manage grant")
	}
	if f.wsGrants[key("ws1", "erin", PermView)] {
		t.Fatal("workspace manage holder gained a redundant view row")
	}
}

func TestSetDocumentGrants(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	seedTree(f)
	f.docGrants[key("d1", "bob", PermDownload)] = true
	r := New(f)

	if err := r.SetDocumentGrants(ctx, "d1", "bob", []string{PermView, PermEdit}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if f.docGrants[key("d1", "bob", PermDownload)] {
		t.Fatal("dropped permission survived reconcile")
	}
	if !f.docGrants[key("d1", "bob", PermView)] || !f.docGrants[key("d1", "bob", PermEdit)] {
		t.Fatal("granted permissions missing")
	}
	if !f.cbGrants[key("cb1", "bob", PermManage)] {
		t.Fatal("cupboard manage grant not cascaded")
	}
	if !f.wsGrants[key("ws1", "bob", PermView)] {
		t.Fatal("workspace view grant not cascaded")
	}

	ok, err := r.CanViewDocument(ctx, "bob", "d1")
	if err != nil {
		t.Fatalf("CanViewDocument: %v", err)
	}
	if !ok {
		t.Fatal("reconciled grants should satisfy the view check")
	}

	if err := r.SetDocumentGrants(ctx, "d1", "bob", []string{"publish"}); err == nil {
		t.Fatal("unknown permission accepted")
	}

	// Clearing permissions removes document rows but not the cascaded ones.
	if err := r.SetDocumentGrants(ctx, "d1", "bob", nil); err != nil {
		t.Fatalf("clear reconcile: %v", err)
	}
	if f.docGrants[key("d1", "bob", PermView)] || f.docGrants[key("d1", "bob", PermEdit)] {
		t.Fatal("cleared permissions survived")
	}
	if !f.cbGrants[key("cb1", "bob", PermManage)] {
		t.Fatal("cascaded cupboard grant should stay")
	}
}

func TestSeedOwners(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	seedTree(f)
	r := New(f)

	if err := r.SeedDocumentOwner(ctx, "d1", "alice"); err != nil {
		t.Fatalf("seed document owner: %v", err)
	}
	for _, perm := range DocumentPerms {
		if !f.docGrants[key("d1", "alice", perm)] {
			t.Fatalf("owner missing %s grant", perm)
		}
	}

	if err := r.SeedCupboardOwner(ctx, "cb1", "alice"); err != nil {
		t.Fatalf("seed cupboard owner: %v", err)
	}
	if !f.cbGrants[key("cb1", "alice", PermManage)] {
		t.Fatal("owner missing manage grant")
	}
}

func TestDocumentPermissionsOwner(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	seedTree(f)

	perms, err := New(f).DocumentPermissions(ctx, "alice", "d1")
	if err != nil {
		t.Fatalf("DocumentPermissions: %v", err)
	}
	if len(perms) != len(DocumentPerms) {
		t.Fatalf("owner permissions = %v, want all of %v", perms, DocumentPerms)
	}
}
