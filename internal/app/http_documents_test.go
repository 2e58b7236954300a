package app

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

var pngPayload = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0x42}, 64)...)

func uploadFile(t *testing.T, handler http.Handler, token, binderID, filename string, payload []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/binders/"+binderID+"/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// buildTree creates workspace > cupboard > binder for the session and
// returns the binder ID.
func buildTree(t *testing.T, handler http.Handler, token string) string {
	t.Helper()
	rr := doJSON(t, handler, http.MethodPost, "/api/workspaces", token, `{"name":"Archive"}`)
	workspaceID, _ := parseBody(t, rr)["id"].(string)
	rr = doJSON(t, handler, http.MethodPost, "/api/workspaces/"+workspaceID+"/cupboards", token, `{"name":"Legal"}`)
	cupboardID, _ := parseBody(t, rr)["id"].(string)
	rr = doJSON(t, handler, http.MethodPost, "/api/cupboards/"+cupboardID+"/binders", token, `{"name":"Contracts"}`)
	binderID, _ := parseBody(t, rr)["id"].(string)
	if binderID == "" {
		t.Fatal("failed to build tree")
	}
	return binderID
}

func TestUploadAndFetchDocument(t *testing.T) {
	ms := newMemStore()
	blobs := newMemBlob(t.TempDir())
	svc := newTestService(t, ms, blobs)
	handler := NewHTTPServer(svc, "*").Handler()
	alice := register(t, svc, "Alice", "alice@example.com")
	binderID := buildTree(t, handler, alice.Token)

	rr := uploadFile(t, handler, alice.Token, binderID, "notes.txt", []byte("meeting notes about cupboards"), map[string]string{
		"title":        "Meeting notes",
		"description":  "Q3 planning",
		"tags":         "planning, q3",
		"isSearchable": "true",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload = %d body=%s", rr.Code, rr.Body.String())
	}
	payload := parseBody(t, rr)
	if payload["mimeType"] != "text/plain" {
		t.Fatalf("mimeType = %v", payload["mimeType"])
	}
	if payload["title"] != "Meeting notes" {
		t.Fatalf("title = %v", payload["title"])
	}
	tags, _ := payload["tags"].([]any)
	if len(tags) != 2 {
		t.Fatalf("tags = %v", payload["tags"])
	}
	documentID, _ := payload["id"].(string)

	// One blob landed in storage.
	if len(blobs.data) != 1 {
		t.Fatalf("blob count = %d", len(blobs.data))
	}

	// The owner reads it back with the full permission set.
	rr = doJSON(t, handler, http.MethodGet, "/api/documents/"+documentID, alice.Token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get document = %d body=%s", rr.Code, rr.Body.String())
	}
	perms, _ := parseBody(t, rr)["permissions"].([]any)
	if len(perms) != 4 {
		t.Fatalf("owner permissions = %v", perms)
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/binders/"+binderID+"/documents", alice.Token, "")
	if items, _ := parseBody(t, rr)["documents"].([]any); len(items) != 1 {
		t.Fatalf("binder lists %d documents", len(items))
	}
}

func TestUploadFallsBackToFilenameTitle(t *testing.T) {
	svc := newTestService(t, newMemStore(), newMemBlob(t.TempDir()))
	handler := NewHTTPServer(svc, "*").Handler()
	alice := register(t, svc, "Alice", "alice@example.com")
	binderID := buildTree(t, handler, alice.Token)

	rr := uploadFile(t, handler, alice.Token, binderID, "contract.txt", []byte("terms"), nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload = %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["title"] != "contract.txt" {
		t.Fatalf("title = %v", parseBody(t, rr)["title"])
	}
}

func TestUploadRequiresCapabilityAndManage(t *testing.T) {
	ms := newMemStore()
	svc := newTestService(t, ms, newMemBlob(t.TempDir()))
	handler := NewHTTPServer(svc, "*").Handler()
	alice := register(t, svc, "Alice", "alice@example.com")
	bob := register(t, svc, "Bob", "bob@example.com")
	binderID := buildTree(t, handler, alice.Token)

	// Bob holds the upload capability but cannot manage the cupboard.
	rr := uploadFile(t, handler, bob.Token, binderID, "sneaky.txt", []byte("nope"), nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("upload without manage = %d", rr.Code)
	}

	// Stripping the capability blocks even the owner.
	delete(ms.caps, key(alice.UserID, "can_upload_documents"))
	rr = uploadFile(t, handler, alice.Token, binderID, "blocked.txt", []byte("nope"), nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("upload without capability = %d", rr.Code)
	}
}

func TestDocumentTwoFactorViewOverHTTP(t *testing.T) {
	svc := newTestService(t, newMemStore(), newMemBlob(t.TempDir()))
	handler := NewHTTPServer(svc, "*").Handler()
	alice := register(t, svc, "Alice", "alice@example.com")
	bob := register(t, svc, "Bob", "bob@example.com")
	binderID := buildTree(t, handler, alice.Token)

	rr := uploadFile(t, handler, alice.Token, binderID, "secret.txt", []byte("secret"), nil)
	documentID, _ := parseBody(t, rr)["id"].(string)

	// No grants: no access.
	rr = doJSON(t, handler, http.MethodGet, "/api/documents/"+documentID, bob.Token, "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("bob without grants = %d", rr.Code)
	}

	// A document grant alone is not enough; granting it also cascades the
	// cupboard manage grant, so do it through the API and verify both
	// factors end up satisfied.
	rr = doJSON(t, handler, http.MethodPut, "/api/documents/"+documentID+"/permissions/"+bob.UserID, alice.Token,
		`{"permissions":["view","download"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("set permissions = %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, handler, http.MethodGet, "/api/documents/"+documentID, bob.Token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("bob with grants = %d body=%s", rr.Code, rr.Body.String())
	}
	perms, _ := parseBody(t, rr)["permissions"].([]any)
	if len(perms) != 2 {
		t.Fatalf("bob permissions = %v", perms)
	}

	// Download works, edit stays closed.
	rr = doJSON(t, handler, http.MethodGet, "/api/documents/"+documentID+"/download", bob.Token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("bob download = %d", rr.Code)
	}
	if rr.Body.String() != "secret" {
		t.Fatalf("download body = %q", rr.Body.String())
	}
	rr = doJSON(t, handler, http.MethodPut, "/api/documents/"+documentID, bob.Token,
		`{"title":"Hijacked","isSearchable":false}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("bob edit = %d", rr.Code)
	}

	// Clearing the grants closes the document again.
	rr = doJSON(t, handler, http.MethodPut, "/api/documents/"+documentID+"/permissions/"+bob.UserID,
		alice.Token, `{"permissions":[]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("clear permissions = %d", rr.Code)
	}
	rr = doJSON(t, handler, http.MethodGet, "/api/documents/"+documentID, bob.Token, "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("bob after revoke = %d", rr.Code)
	}

	rr = doJSON(t, handler, http.MethodPut, "/api/documents/"+documentID+"/permissions/"+bob.UserID,
		alice.Token, `{"permissions":["publish"]}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown permission = %d", rr.Code)
	}
}

func TestDisplayPassthroughServesImage(t *testing.T) {
	svc := newTestService(t, newMemStore(), newMemBlob(t.TempDir()))
	handler := NewHTTPServer(svc, "*").Handler()
	alice := register(t, svc, "Alice", "alice@example.com")
	binderID := buildTree(t, handler, alice.Token)

	rr := uploadFile(t, handler, alice.Token, binderID, "scan.png", pngPayload, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload = %d body=%s", rr.Code, rr.Body.String())
	}
	payload := parseBody(t, rr)
	if payload["mimeType"] != "image/png" {
		t.Fatalf("mimeType = %v", payload["mimeType"])
	}
	documentID, _ := payload["id"].(string)

	rr = doJSON(t, handler, http.MethodGet, "/api/documents/"+documentID+"/display", alice.Token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("display = %d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if !bytes.Equal(rr.Body.Bytes(), pngPayload) {
		t.Fatal("display body differs from upload")
	}
}

func TestDisplayUnsupportedType(t *testing.T) {
	svc := newTestService(t, newMemStore(), newMemBlob(t.TempDir()))
	handler := NewHTTPServer(svc, "*").Handler()
	alice := register(t, svc, "Alice", "alice@example.com")
	binderID := buildTree(t, handler, alice.Token)

	rr := uploadFile(t, handler, alice.Token, binderID, "blob.bin", []byte{0x00, 0x01, 0x02, 0x03, 0xff, 0xfe}, nil)
	documentID, _ := parseBody(t, rr)["id"].(string)

	rr = doJSON(t, handler, http.MethodGet, "/api/documents/"+documentID+"/display", alice.Token, "")
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("display unsupported = %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["code"] != "UNSUPPORTED_TYPE" {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestUpdateAndDeleteDocument(t *testing.T) {
	ms := newMemStore()
	blobs := newMemBlob(t.TempDir())
	svc := newTestService(t, ms, blobs)
	handler := NewHTTPServer(svc, "*").Handler()
	alice := register(t, svc, "Alice", "alice@example.com")
	binderID := buildTree(t, handler, alice.Token)

	rr := uploadFile(t, handler, alice.Token, binderID, "draft.txt", []byte("draft"), nil)
	documentID, _ := parseBody(t, rr)["id"].(string)

	rr = doJSON(t, handler, http.MethodPut, "/api/documents/"+documentID, alice.Token,
		`{"title":"Final","description":"signed","tags":["legal"],"isPublic":true,"isSearchable":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update = %d body=%s", rr.Code, rr.Body.String())
	}
	payload := parseBody(t, rr)
	if payload["title"] != "Final" || payload["isPublic"] != true {
		t.Fatalf("update payload = %v", payload)
	}

	rr = doJSON(t, handler, http.MethodDelete, "/api/documents/"+documentID, alice.Token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete = %d body=%s", rr.Code, rr.Body.String())
	}
	if len(blobs.data) != 0 {
		t.Fatal("blob survived document delete")
	}
	rr = doJSON(t, handler, http.MethodGet, "/api/documents/"+documentID, alice.Token, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", rr.Code)
	}
}

func TestMoveDocumentBetweenBinders(t *testing.T) {
	svc := newTestService(t, newMemStore(), newMemBlob(t.TempDir()))
	handler := NewHTTPServer(svc, "*").Handler()
	alice := register(t, svc, "Alice", "alice@example.com")
	binderID := buildTree(t, handler, alice.Token)

	rr := doJSON(t, handler, http.MethodGet, "/api/binders/"+binderID, alice.Token, "")
	cupboardID, _ := parseBody(t, rr)["cupboardId"].(string)
	rr = doJSON(t, handler, http.MethodPost, "/api/cupboards/"+cupboardID+"/binders", alice.Token, `{"name":"Invoices"}`)
	otherBinderID, _ := parseBody(t, rr)["id"].(string)

	rr = uploadFile(t, handler, alice.Token, binderID, "invoice.txt", []byte("invoice"), nil)
	documentID, _ := parseBody(t, rr)["id"].(string)

	rr = doJSON(t, handler, http.MethodPut, "/api/documents/"+documentID+"/binder", alice.Token,
		fmt.Sprintf(`{"binderId":%q}`, otherBinderID))
	if rr.Code != http.StatusOK {
		t.Fatalf("move = %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["binderId"] != otherBinderID {
		t.Fatalf("binderId = %v", parseBody(t, rr)["binderId"])
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/binders/"+otherBinderID+"/documents", alice.Token, "")
	if items, _ := parseBody(t, rr)["documents"].([]any); len(items) != 1 {
		t.Fatalf("target binder holds %d documents", len(items))
	}
	rr = doJSON(t, handler, http.MethodGet, "/api/binders/"+binderID+"/documents", alice.Token, "")
	if items, _ := parseBody(t, rr)["documents"].([]any); len(items) != 0 {
		t.Fatalf("source binder holds %d documents", len(items))
	}

	rr = doJSON(t, handler, http.MethodPut, "/api/documents/"+documentID+"/binder", alice.Token,
		`{"binderId":"missing"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("move to missing binder = %d", rr.Code)
	}
}

func TestMoveBinderBetweenCupboards(t *testing.T) {
	svc := newTestService(t, newMemStore(), newMemBlob(t.TempDir()))
	handler := NewHTTPServer(svc, "*").Handler()
	alice := register(t, svc, "Alice", "alice@example.com")
	bob := register(t, svc, "Bob", "bob@example.com")
	binderID := buildTree(t, handler, alice.Token)

	rr := doJSON(t, handler, http.MethodPost, "/api/cupboards", alice.Token, `{"name":"Overflow"}`)
	otherCupboardID, _ := parseBody(t, rr)["id"].(string)

	rr = doJSON(t, handler, http.MethodPut, "/api/binders/"+binderID+"/cupboard", bob.Token,
		fmt.Sprintf(`{"cupboardId":%q}`, otherCupboardID))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("move by outsider = %d", rr.Code)
	}

	rr = doJSON(t, handler, http.MethodPut, "/api/binders/"+binderID+"/cupboard", alice.Token,
		fmt.Sprintf(`{"cupboardId":%q}`, otherCupboardID))
	if rr.Code != http.StatusOK {
		t.Fatalf("move = %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["cupboardId"] != otherCupboardID {
		t.Fatalf("cupboardId = %v", parseBody(t, rr)["cupboardId"])
	}
}

func TestCopyDocumentToBinders(t *testing.T) {
	ms := newMemStore()
	blobs := newMemBlob(t.TempDir())
	svc := newTestService(t, ms, blobs)
	handler := NewHTTPServer(svc, "*").Handler()
	alice := register(t, svc, "Alice", "alice@example.com")
	bob := register(t, svc, "Bob", "bob@example.com")
	binderID := buildTree(t, handler, alice.Token)

	rr := doJSON(t, handler, http.MethodGet, "/api/binders/"+binderID, alice.Token, "")
	cupboardID, _ := parseBody(t, rr)["cupboardId"].(string)
	rr = doJSON(t, handler, http.MethodPost, "/api/cupboards/"+cupboardID+"/binders", alice.Token, `{"name":"Copies A"}`)
	targetA, _ := parseBody(t, rr)["id"].(string)
	rr = doJSON(t, handler, http.MethodPost, "/api/cupboards/"+cupboardID+"/binders", alice.Token, `{"name":"Copies B"}`)
	targetB, _ := parseBody(t, rr)["id"].(string)

	rr = uploadFile(t, handler, alice.Token, binderID, "orig.txt", []byte("original text"), map[string]string{
		"title": "Original",
	})
	documentID, _ := parseBody(t, rr)["id"].(string)

	rr = doJSON(t, handler, http.MethodPost, "/api/documents/"+documentID+"/copy", alice.Token,
		fmt.Sprintf(`{"binderIds":[%q,%q]}`, targetA, targetB))
	if rr.Code != http.StatusCreated {
		t.Fatalf("copy = %d body=%s", rr.Code, rr.Body.String())
	}
	copies, _ := parseBody(t, rr)["documents"].([]any)
	if len(copies) != 2 {
		t.Fatalf("copies = %d", len(copies))
	}
	first, _ := copies[0].(map[string]any)
	if first["title"] != "Original" {
		t.Fatalf("copy title = %v", first["title"])
	}
	if first["id"] == documentID {
		t.Fatal("copy reused the source ID")
	}

	// Original blob plus one per copy.
	if len(blobs.data) != 3 {
		t.Fatalf("blob count = %d", len(blobs.data))
	}

	// Bob cannot view the source, so he cannot copy it.
	rr = doJSON(t, handler, http.MethodPost, "/api/documents/"+documentID+"/copy", bob.Token,
		fmt.Sprintf(`{"binderIds":[%q]}`, targetA))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("copy by outsider = %d", rr.Code)
	}

	rr = doJSON(t, handler, http.MethodPost, "/api/documents/"+documentID+"/copy", alice.Token, `{"binderIds":[]}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("copy with no targets = %d", rr.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	svc := newTestService(t, newMemStore(), newMemBlob(t.TempDir()))
	handler := NewHTTPServer(svc, "*").Handler()
	alice := register(t, svc, "Alice", "alice@example.com")
	bob := register(t, svc, "Bob", "bob@example.com")
	binderID := buildTree(t, handler, alice.Token)

	uploadFile(t, handler, alice.Token, binderID, "report.txt", []byte("annual report"), map[string]string{
		"title":        "Annual report",
		"isSearchable": "true",
	})
	uploadFile(t, handler, alice.Token, binderID, "hidden.txt", []byte("hidden report"), map[string]string{
		"title": "Hidden report",
	})

	rr := doJSON(t, handler, http.MethodGet, "/api/search?q=report", alice.Token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("search = %d body=%s", rr.Code, rr.Body.String())
	}
	results, _ := parseBody(t, rr)["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("alice results = %v", results)
	}
	first, _ := results[0].(map[string]any)
	if first["title"] != "Annual report" {
		t.Fatalf("result = %v", first)
	}

	// Bob holds no grant on the document, so nothing comes back.
	rr = doJSON(t, handler, http.MethodGet, "/api/search?q=report", bob.Token, "")
	if results, _ := parseBody(t, rr)["results"].([]any); len(results) != 0 {
		t.Fatalf("bob results = %v", results)
	}
}

func TestSearchFileTypeFilter(t *testing.T) {
	svc := newTestService(t, newMemStore(), newMemBlob(t.TempDir()))
	handler := NewHTTPServer(svc, "*").Handler()
	alice := register(t, svc, "Alice", "alice@example.com")
	binderID := buildTree(t, handler, alice.Token)

	uploadFile(t, handler, alice.Token, binderID, "scan.png", pngPayload, map[string]string{
		"title":        "Receipt scan",
		"isSearchable": "true",
	})
	uploadFile(t, handler, alice.Token, binderID, "receipt.txt", []byte("receipt text"), map[string]string{
		"title":        "Receipt notes",
		"isSearchable": "true",
	})

	rr := doJSON(t, handler, http.MethodGet, "/api/search?q=receipt&fileType=image", alice.Token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("search = %d body=%s", rr.Code, rr.Body.String())
	}
	results, _ := parseBody(t, rr)["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("image results = %v", results)
	}
	first, _ := results[0].(map[string]any)
	if first["mimeType"] != "image/png" {
		t.Fatalf("result = %v", first)
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/search?q=receipt&fileType=floppy", alice.Token, "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown file type = %d", rr.Code)
	}
}

func TestSearchWorkspaceScope(t *testing.T) {
	svc := newTestService(t, newMemStore(), newMemBlob(t.TempDir()))
	handler := NewHTTPServer(svc, "*").Handler()
	alice := register(t, svc, "Alice", "alice@example.com")
	binderID := buildTree(t, handler, alice.Token)

	rr := doJSON(t, handler, http.MethodGet, "/api/binders/"+binderID, alice.Token, "")
	cupboardID, _ := parseBody(t, rr)["cupboardId"].(string)
	rr = doJSON(t, handler, http.MethodGet, "/api/cupboards/"+cupboardID, alice.Token, "")
	workspaceID, _ := parseBody(t, rr)["workspaceId"].(string)

	// A second document lives in a standalone cupboard outside any workspace.
	rr = doJSON(t, handler, http.MethodPost, "/api/cupboards", alice.Token, `{"name":"Standalone"}`)
	standaloneCupboard, _ := parseBody(t, rr)["id"].(string)
	rr = doJSON(t, handler, http.MethodPost, "/api/cupboards/"+standaloneCupboard+"/binders", alice.Token, `{"name":"Loose"}`)
	looseBinder, _ := parseBody(t, rr)["id"].(string)

	uploadFile(t, handler, alice.Token, binderID, "inside.txt", []byte("theme inside"), map[string]string{
		"title": "Theme inside", "isSearchable": "true",
	})
	uploadFile(t, handler, alice.Token, looseBinder, "outside.txt", []byte("theme outside"), map[string]string{
		"title": "Theme outside", "isSearchable": "true",
	})

	rr = doJSON(t, handler, http.MethodGet, "/api/search?q=theme", alice.Token, "")
	if results, _ := parseBody(t, rr)["results"].([]any); len(results) != 2 {
		t.Fatalf("global results = %v", results)
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/search?q=theme&workspaceId="+workspaceID, alice.Token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("scoped search = %d body=%s", rr.Code, rr.Body.String())
	}
	results, _ := parseBody(t, rr)["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("scoped results = %v", results)
	}
	first, _ := results[0].(map[string]any)
	if first["title"] != "Theme inside" {
		t.Fatalf("scoped result = %v", first)
	}
}

func TestDocumentGrantListing(t *testing.T) {
	svc := newTestService(t, newMemStore(), newMemBlob(t.TempDir()))
	handler := NewHTTPServer(svc, "*").Handler()
	alice := register(t, svc, "Alice", "alice@example.com")
	bob := register(t, svc, "Bob", "bob@example.com")
	binderID := buildTree(t, handler, alice.Token)

	rr := uploadFile(t, handler, alice.Token, binderID, "doc.txt", []byte("text"), nil)
	documentID, _ := parseBody(t, rr)["id"].(string)

	rr = doJSON(t, handler, http.MethodPut, "/api/documents/"+documentID+"/permissions/"+bob.UserID, alice.Token,
		fmt.Sprintf(`{"permissions":[%q]}`, "view"))
	if rr.Code != http.StatusOK {
		t.Fatalf("grant = %d", rr.Code)
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/documents/"+documentID+"/permissions", alice.Token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list grants = %d", rr.Code)
	}
	grants, _ := parseBody(t, rr)["grants"].([]any)
	// Owner seed grants plus Bob's view grant.
	var bobGrants int
	for _, raw := range grants {
		grant, _ := raw.(map[string]any)
		if grant["userId"] == bob.UserID {
			bobGrants++
		}
	}
	if bobGrants != 1 {
		t.Fatalf("bob grants = %d of %v", bobGrants, grants)
	}
}

func TestSweepEndpointRequiresAdmin(t *testing.T) {
	ms := newMemStore()
	svc := newTestService(t, ms, newMemBlob(t.TempDir()))
	handler := NewHTTPServer(svc, "*").Handler()
	alice := register(t, svc, "Alice", "alice@example.com")

	rr := doJSON(t, handler, http.MethodPost, "/api/admin/cache/sweep", alice.Token, "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("sweep without admin = %d", rr.Code)
	}

	ms.caps[key(alice.UserID, "can_manage_users")] = true
	rr = doJSON(t, handler, http.MethodPost, "/api/admin/cache/sweep", alice.Token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("sweep = %d body=%s", rr.Code, rr.Body.String())
	}
	if removed, ok := parseBody(t, rr)["removed"].(float64); !ok || removed != 0 {
		t.Fatalf("removed = %v", parseBody(t, rr)["removed"])
	}
}
