package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/erazemk/lostfound/internal/auth"
	"github.com/erazemk/lostfound/internal/db"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/service"
)

type testEnv struct {
	server *httptest.Server
	dir    *service.Directory
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	dir := service.NewDirectory(database, auth.PlainPasswords{})

	router := NewRouter(Services{
		DB:          database,
		Directory:   dir,
		Credentials: service.NewCredentials(dir),
		Catalog:     service.NewCatalog(database, nil),
	}, Options{MaxUploadBytes: 1 << 20, CORSOrigins: []string{"http://localhost:5173"}})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testEnv{server: server, dir: dir}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// registerAndLogin registers username with password "pw" and returns the
// Authorization header value.
func (e *testEnv) registerAndLogin(t *testing.T, username string) string {
	t.Helper()
	resp := e.postJSON(t, "/api/auth/register", map[string]string{
		"username":    username,
		"password":    "pw",
		"email":       username + "@x.com",
		"phoneNumber": "555",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register %s: %d", username, resp.StatusCode)
	}
	return e.login(t, username, "pw")
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := e.postJSON(t, "/api/auth/login", map[string]string{"username": username, "password": password})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: %d", username, resp.StatusCode)
	}
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("empty token from login")
	}
	return "Basic " + token
}

// multipartBody builds a multipart form with the given fields and an optional image.
func multipartBody(fields map[string]string, image []byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if image != nil {
		fw, _ := mw.CreateFormFile("image", "photo.png")
		fw.Write(image)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, method, path, authHeader string, fields map[string]string, image []byte) *http.Response {
	t.Helper()
	var req *http.Request
	if fields != nil || image != nil {
		body, contentType := multipartBody(fields, image)
		req, _ = http.NewRequest(method, e.server.URL+path, body)
		req.Header.Set("Content-Type", contentType)
	} else {
		req, _ = http.NewRequest(method, e.server.URL+path, nil)
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeItem(t *testing.T, resp *http.Response) model.Item {
	t.Helper()
	defer resp.Body.Close()
	var item model.Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		t.Fatalf("decoding item: %v", err)
	}
	return item
}

func decodeItems(t *testing.T, resp *http.Response) []model.Item {
	t.Helper()
	defer resp.Body.Close()
	var items []model.Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("decoding items: %v", err)
	}
	return items
}

// errorMessage returns the plain-text error body.
func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text/plain error body, got %q", ct)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(data)
}

func itemFields(title, itemType string) map[string]string {
	return map[string]string{
		"title":       title,
		"description": "found near the fountain",
		"type":        itemType,
		"category":    "accessories",
		"location":    "main square",
	}
}

func TestRegisterEndpoint(t *testing.T) {
	env := setupTestServer(t)

	resp := env.postJSON(t, "/api/auth/register", map[string]string{
		"username": "alice", "password": "pw", "email": "a@x.com", "phoneNumber": "555",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	if body["username"] != "alice" || body["role"] != model.RoleUser {
		t.Errorf("unexpected body: %v", body)
	}
	if body["message"] != "User registered successfully!" {
		t.Errorf("unexpected message: %v", body["message"])
	}
	if id, _ := body["userId"].(float64); id == 0 {
		t.Errorf("expected userId, got %v", body["userId"])
	}

	dup := env.postJSON(t, "/api/auth/register", map[string]string{
		"username": "alice", "password": "pw", "email": "other@x.com",
	})
	if dup.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for duplicate username, got %d", dup.StatusCode)
	}
	if msg := errorMessage(t, dup); msg != "Username is already taken!" {
		t.Errorf("unexpected error message %q", msg)
	}

	dupEmail := env.postJSON(t, "/api/auth/register", map[string]string{
		"username": "bob", "password": "pw", "email": "a@x.com",
	})
	if dupEmail.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for duplicate email, got %d", dupEmail.StatusCode)
	}
	if msg := errorMessage(t, dupEmail); msg != "Email is already in use!" {
		t.Errorf("unexpected error message %q", msg)
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := setupTestServer(t)
	header := env.registerAndLogin(t, "alice")

	raw, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
	if string(raw) != "alice:pw" {
		t.Errorf("expected token to decode to alice:pw, got %q", raw)
	}

	resp := env.postJSON(t, "/api/auth/login", map[string]string{"username": "alice", "password": "wrong"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.postJSON(t, "/api/auth/login", map[string]string{"username": "nobody", "password": "pw"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown user, got %d", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != "User not found" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestItemsAPIFlow(t *testing.T) {
	env := setupTestServer(t)
	alice := env.registerAndLogin(t, "alice")

	fields := itemFields("Black umbrella", "LOST")
	fields["date"] = "2024-06-01"
	fields["contactInfo"] = "alice@x.com"
	resp := env.do(t, "POST", "/api/items", alice, fields, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	created := decodeItem(t, resp)
	if created.Status != model.ItemStatusOpen {
		t.Errorf("expected OPEN, got %q", created.Status)
	}
	if created.Owner == nil || created.Owner.Username != "alice" {
		t.Errorf("expected owner alice, got %+v", created.Owner)
	}

	// Round trip through GET.
	resp = env.do(t, "GET", fmt.Sprintf("/api/items/%d", created.ID), "", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decodeItem(t, resp)
	if got.Title != "Black umbrella" || got.Date.String() != "2024-06-01" || got.ContactInfo != "alice@x.com" {
		t.Errorf("round trip mismatch: %+v", got)
	}

	// List.
	resp = env.do(t, "GET", "/api/items", "", nil, nil)
	if items := decodeItems(t, resp); len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}

	resp = env.do(t, "GET", "/api/items?type=FOUND", "", nil, nil)
	if items := decodeItems(t, resp); len(items) != 0 {
		t.Errorf("expected 0 found items, got %d", len(items))
	}

	resp = env.do(t, "GET", "/api/items?type=MISSING", "", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad type, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Missing item.
	resp = env.do(t, "GET", "/api/items/9999", "", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCreateItemDefaultsAndValidation(t *testing.T) {
	env := setupTestServer(t)
	alice := env.registerAndLogin(t, "alice")

	fields := itemFields("Keys", "FOUND")
	fields["status"] = "RESOLVED"
	resp := env.do(t, "POST", "/api/items", alice, fields, nil)
	item := decodeItem(t, resp)
	if item.Status != model.ItemStatusOpen {
		t.Errorf("status must be forced to OPEN, got %q", item.Status)
	}
	if item.Date.String() != model.NewDate(time.Now()).String() {
		t.Errorf("expected today's date, got %q", item.Date.String())
	}

	fields = itemFields("Keys", "FOUND")
	fields["date"] = "last tuesday"
	resp = env.do(t, "POST", "/api/items", alice, fields, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	fields = itemFields("Keys", "FOUND")
	delete(fields, "location")
	resp = env.do(t, "POST", "/api/items", alice, fields, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing location, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, "POST", "/api/items", alice, itemFields("Keys", "STOLEN"), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad type, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCreateItemURLEncoded(t *testing.T) {
	env := setupTestServer(t)
	alice := env.registerAndLogin(t, "alice")

	form := url.Values{}
	for k, v := range itemFields("Gloves", "LOST") {
		form.Set(k, v)
	}
	req, _ := http.NewRequest("POST", env.server.URL+"/api/items", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", alice)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if item := decodeItem(t, resp); item.Title != "Gloves" || item.HasImage {
		t.Errorf("unexpected item %+v", item)
	}
}

func TestMutationsRequireAuth(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, "POST", "/api/items", "", itemFields("Keys", "FOUND"), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without auth, got %d", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != "Missing or invalid Authorization header" {
		t.Errorf("unexpected message %q", msg)
	}

	resp = env.do(t, "DELETE", "/api/items/1", "Basic !!!", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed token, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, "PUT", "/api/items/1", "Basic "+auth.EncodeToken("ghost", "pw"), map[string]string{"title": "x"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown user, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUpdateItemAPI(t *testing.T) {
	env := setupTestServer(t)
	alice := env.registerAndLogin(t, "alice")
	bob := env.registerAndLogin(t, "bob")

	fields := itemFields("Wallet", "LOST")
	fields["date"] = "2024-01-10"
	created := decodeItem(t, env.do(t, "POST", "/api/items", alice, fields, nil))
	path := fmt.Sprintf("/api/items/%d", created.ID)

	resp := env.do(t, "PUT", path, bob, map[string]string{"title": "stolen"}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for non-owner, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, "PUT", "/api/items/9999", alice, map[string]string{"title": "x"}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, "PUT", path, alice, map[string]string{"status": "RESOLVED", "date": ""}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	updated := decodeItem(t, resp)
	if updated.Status != model.ItemStatusResolved {
		t.Errorf("expected RESOLVED, got %q", updated.Status)
	}
	if updated.Title != "Wallet" || updated.Description != created.Description || updated.Date.String() != "2024-01-10" {
		t.Errorf("unsupplied fields changed: %+v", updated)
	}

	// Empty enum values leave the stored ones alone.
	resp = env.do(t, "PUT", path, alice, map[string]string{"status": "", "type": "", "location": "north gate"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for empty enums, got %d", resp.StatusCode)
	}
	updated = decodeItem(t, resp)
	if updated.Status != model.ItemStatusResolved || updated.Type != model.ItemTypeLost || updated.Location != "north gate" {
		t.Errorf("empty enums should be ignored: %+v", updated)
	}

	resp = env.do(t, "PUT", path, alice, map[string]string{"status": "LOST_FOREVER"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad status, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDeleteItemAPI(t *testing.T) {
	env := setupTestServer(t)
	alice := env.registerAndLogin(t, "alice")
	bob := env.registerAndLogin(t, "bob")

	if _, err := env.dir.CreateAdmin(context.Background(), service.RegisterInput{
		Username: "root", Password: "pw", Email: "root@x.com",
	}); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	admin := env.login(t, "root", "pw")

	first := decodeItem(t, env.do(t, "POST", "/api/items", alice, itemFields("Wallet", "LOST"), nil))
	second := decodeItem(t, env.do(t, "POST", "/api/items", alice, itemFields("Keys", "FOUND"), nil))

	resp := env.do(t, "DELETE", fmt.Sprintf("/api/items/%d", first.ID), bob, nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for non-owner, got %d", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != "Not authorized to delete this item" {
		t.Errorf("unexpected message %q", msg)
	}

	resp = env.do(t, "DELETE", fmt.Sprintf("/api/items/%d", first.ID), alice, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for owner, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text/plain confirmation, got %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "Item deleted successfully" {
		t.Errorf("unexpected confirmation %q", body)
	}

	resp = env.do(t, "DELETE", fmt.Sprintf("/api/items/%d", second.ID), admin, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, "DELETE", fmt.Sprintf("/api/items/%d", second.ID), admin, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSearchAPI(t *testing.T) {
	env := setupTestServer(t)
	alice := env.registerAndLogin(t, "alice")

	env.do(t, "POST", "/api/items", alice, itemFields("Red Shoe", "LOST"), nil).Body.Close()
	env.do(t, "POST", "/api/items", alice, itemFields("shoelace", "FOUND"), nil).Body.Close()
	env.do(t, "POST", "/api/items", alice, itemFields("Umbrella", "LOST"), nil).Body.Close()

	resp := env.do(t, "GET", "/api/items/search?q=shoe&type=LOST", "", nil, nil)
	items := decodeItems(t, resp)
	if len(items) != 1 || items[0].Title != "Red Shoe" {
		t.Errorf("expected only the lost shoe, got %+v", items)
	}

	resp = env.do(t, "GET", "/api/items/search?q=SHOE", "", nil, nil)
	if items := decodeItems(t, resp); len(items) != 2 {
		t.Errorf("expected 2 matches across types, got %d", len(items))
	}

	env.do(t, "POST", "/api/items", alice, itemFields("CAFÉ MUG", "FOUND"), nil).Body.Close()
	resp = env.do(t, "GET", "/api/items/search?q="+url.QueryEscape("café"), "", nil, nil)
	if items := decodeItems(t, resp); len(items) != 1 {
		t.Errorf("expected case-insensitive match on non-ASCII title, got %d", len(items))
	}

	resp = env.do(t, "GET", "/api/items/search?q=nothing-matches", "", nil, nil)
	if items := decodeItems(t, resp); items == nil || len(items) != 0 {
		t.Errorf("expected empty array, got %v", items)
	}

	resp = env.do(t, "GET", "/api/items/search", "", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without q, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestItemImageAPI(t *testing.T) {
	env := setupTestServer(t)
	alice := env.registerAndLogin(t, "alice")

	png := []byte("\x89PNG\r\n\x1a\n-not-really-a-png")
	withImage := decodeItem(t, env.do(t, "POST", "/api/items", alice, itemFields("Cat", "FOUND"), png))
	if !withImage.HasImage {
		t.Error("expected hasImage")
	}

	resp := env.do(t, "GET", fmt.Sprintf("/api/items/%d/image", withImage.ID), "", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if !bytes.Equal(buf.Bytes(), png) {
		t.Error("image bytes changed")
	}

	without := decodeItem(t, env.do(t, "POST", "/api/items", alice, itemFields("Dog", "FOUND"), nil))
	resp2 := env.do(t, "GET", fmt.Sprintf("/api/items/%d/image", without.ID), "", nil, nil)
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for item without image, got %d", resp2.StatusCode)
	}
	resp2.Body.Close()
}

func TestUploadTooLarge(t *testing.T) {
	h := &ItemsHandler{MaxUploadBytes: 1 << 10}

	body, contentType := multipartBody(itemFields("Piano", "LOST"), bytes.Repeat([]byte{0xff}, 4<<10))
	req := httptest.NewRequest("POST", "/api/items", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	if h.parseForm(rec, req) {
		t.Fatal("expected parseForm to reject oversize body")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestUserItemsAPI(t *testing.T) {
	env := setupTestServer(t)
	alice := env.registerAndLogin(t, "alice")
	env.registerAndLogin(t, "bob")

	item := decodeItem(t, env.do(t, "POST", "/api/items", alice, itemFields("Wallet", "LOST"), nil))

	resp := env.do(t, "GET", fmt.Sprintf("/api/users/%d/items", item.Owner.ID), "", nil, nil)
	if items := decodeItems(t, resp); len(items) != 1 {
		t.Errorf("expected 1 item for alice, got %d", len(items))
	}

	resp = env.do(t, "GET", "/api/users/9999/items", "", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown user, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHealthAndCORS(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, "GET", "/healthz", "", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ := http.NewRequest("OPTIONS", env.server.URL+"/api/items", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected CORS origin header, got %q", got)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrNotAuthorized, http.StatusForbidden},
		{fmt.Errorf("%w to delete this item", service.ErrNotAuthorized), http.StatusForbidden},
		{service.ErrItemNotFound, http.StatusNotFound},
		{service.ErrDuplicateUsername, http.StatusBadRequest},
		{service.ErrUserNotFound, http.StatusBadRequest},
		{service.ErrInvalidHeader, http.StatusBadRequest},
		{fmt.Errorf("%w: bad", service.ErrInvalidDate), http.StatusBadRequest},
		{service.ErrPasswordTooLong, http.StatusBadRequest},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
