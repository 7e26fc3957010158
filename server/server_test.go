package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/existflow/taskflow/internal/auth"
	"github.com/existflow/taskflow/internal/config"
	"github.com/existflow/taskflow/internal/db"
	"github.com/existflow/taskflow/internal/logger"
	"github.com/existflow/taskflow/internal/model"
	"github.com/existflow/taskflow/internal/service"
)

type testServer struct {
	srv      *Server
	services *service.Services
}

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	conn, err := db.Open(db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	store := db.NewStore(conn)
	services := service.New(service.Deps{
		Store:  store,
		Hasher: &auth.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens: auth.NewTokenIssuer("test-secret", 0),
	})
	srv := New(config.ServerConfig{CORSOrigin: "http://localhost:5173"}, store, services)
	return &testServer{srv: srv, services: services}, func() {
		_ = conn.Close()
	}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func (ts *testServer) signup(t *testing.T, name, email string) service.Session {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": name, "email": email, "password": "secret1",
	})
	expectStatus(t, rec, http.StatusCreated)
	return decode[service.Session](t, rec)
}

// home returns the caller's starter workspace and its default category
func (ts *testServer) home(t *testing.T, token string) (model.Workspace, model.Category) {
	t.Helper()
	rec := ts.do(t, http.MethodGet, "/api/workspaces", token, nil)
	expectStatus(t, rec, http.StatusOK)
	workspaces := decode[[]model.Workspace](t, rec)
	if len(workspaces) != 1 {
		t.Fatalf("expected one workspace, got %d", len(workspaces))
	}

	rec = ts.do(t, http.MethodGet, "/api/categories?workspaceId="+workspaces[0].ID, token, nil)
	expectStatus(t, rec, http.StatusOK)
	categories := decode[[]model.Category](t, rec)
	if len(categories) != 1 {
		t.Fatalf("expected one category, got %d", len(categories))
	}
	return workspaces[0], categories[0]
}

func TestSignupAndMe(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	sess := ts.signup(t, "Ann", "ann@x.com")
	if sess.Token == "" {
		t.Fatalf("expected a token")
	}

	rec := ts.do(t, http.MethodGet, "/api/auth/me", sess.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	me := decode[struct {
		User model.User `json:"user"`
	}](t, rec)
	if me.User.Email != "ann@x.com" {
		t.Fatalf("expected ann@x.com, got %q", me.User.Email)
	}
	if me.User.ID != sess.User.ID {
		t.Fatalf("token user %s does not match %s", me.User.ID, sess.User.ID)
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Ann again", "email": "ANN@x.com", "password": "secret1",
	})
	expectStatus(t, rec, http.StatusConflict)
}

func TestLoginFailsIdentically(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()
	ts.signup(t, "Ann", "ann@x.com")

	wrongPassword := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ann@x.com", "password": "nope-nope",
	})
	unknownUser := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@x.com", "password": "nope-nope",
	})
	expectStatus(t, wrongPassword, http.StatusUnauthorized)
	expectStatus(t, unknownUser, http.StatusUnauthorized)
	if wrongPassword.Body.String() != unknownUser.Body.String() {
		t.Fatalf("login failures differ: %s vs %s", wrongPassword.Body.String(), unknownUser.Body.String())
	}

	rec := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ann@x.com", "password": "secret1",
	})
	expectStatus(t, rec, http.StatusOK)
	if decode[service.Session](t, rec).Token == "" {
		t.Fatalf("expected a token")
	}
}

func TestAuthenticationRequired(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	rec := ts.do(t, http.MethodGet, "/api/tasks", "", nil)
	expectStatus(t, rec, http.StatusUnauthorized)
	body := decode[errorBody](t, rec)
	if body.Error != "Missing Authorization header" {
		t.Fatalf("unexpected error %q", body.Error)
	}

	rec = ts.do(t, http.MethodGet, "/api/tasks", "not-a-token", nil)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestSilentEmptyForNonMembers(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	ann := ts.signup(t, "Ann", "ann@x.com")
	bob := ts.signup(t, "Bob", "bob@x.com")
	bobWS, bobCat := ts.home(t, bob.Token)

	rec := ts.do(t, http.MethodPost, "/api/tasks", bob.Token, map[string]any{
		"workspaceId": bobWS.ID, "title": "Secret", "categoryId": bobCat.ID,
	})
	expectStatus(t, rec, http.StatusCreated)
	secret := decode[model.Task](t, rec)

	for _, path := range []string{
		"/api/tasks?workspaceId=" + bobWS.ID,
		"/api/categories?workspaceId=" + bobWS.ID,
		"/api/activities?workspaceId=" + bobWS.ID,
	} {
		rec := ts.do(t, http.MethodGet, path, ann.Token, nil)
		expectStatus(t, rec, http.StatusOK)
		if got := bytes.TrimSpace(rec.Body.Bytes()); string(got) != "[]" {
			t.Fatalf("%s: expected [], got %s", path, got)
		}
	}

	rec = ts.do(t, http.MethodGet, "/api/tasks/"+secret.ID, ann.Token, nil)
	expectStatus(t, rec, http.StatusNotFound)
	rec = ts.do(t, http.MethodGet, "/api/tasks/does-not-exist", ann.Token, nil)
	expectStatus(t, rec, http.StatusNotFound)

	rec = ts.do(t, http.MethodPost, "/api/categories", ann.Token, map[string]string{
		"workspaceId": bobWS.ID, "name": "Mine now", "color": "#000", "icon": "x",
	})
	expectStatus(t, rec, http.StatusForbidden)
}

func TestTaskLifecycle(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	ann := ts.signup(t, "Ann", "ann@x.com")
	ws, cat := ts.home(t, ann.Token)

	rec := ts.do(t, http.MethodPost, "/api/tasks", ann.Token, map[string]any{
		"workspaceId": ws.ID,
		"title":       "Ship it",
		"categoryId":  cat.ID,
		"dueDate":     "2025-12-31",
		"tags":        []string{"release"},
		"subtasks":    []map[string]any{{"title": "Write notes"}},
	})
	expectStatus(t, rec, http.StatusCreated)
	created := decode[map[string]any](t, rec)
	if created["dueDate"] != "2025-12-31" {
		t.Fatalf("expected dueDate 2025-12-31, got %v", created["dueDate"])
	}
	if created["status"] != "todo" || created["priority"] != "medium" {
		t.Fatalf("unexpected defaults: %v %v", created["status"], created["priority"])
	}
	id, _ := created["id"].(string)

	rec = ts.do(t, http.MethodPatch, "/api/tasks/"+id, ann.Token, map[string]any{"status": "completed"})
	expectStatus(t, rec, http.StatusOK)
	updated := decode[model.Task](t, rec)
	if updated.Status != model.StatusCompleted || updated.Progress != 100 {
		t.Fatalf("expected completed at 100%%, got %s at %d", updated.Status, updated.Progress)
	}
	if len(updated.Subtasks) != 1 {
		t.Fatalf("expected subtasks to survive the update, got %d", len(updated.Subtasks))
	}

	rec = ts.do(t, http.MethodPatch, "/api/tasks/"+id, ann.Token, `{"dueDate": null}`)
	expectStatus(t, rec, http.StatusOK)
	if decode[model.Task](t, rec).DueDate != nil {
		t.Fatalf("expected null dueDate to clear the date")
	}

	rec = ts.do(t, http.MethodGet, "/api/activities?workspaceId="+ws.ID, ann.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	completed := 0
	for _, a := range decode[[]model.Activity](t, rec) {
		if a.Type == model.ActivityTaskCompleted {
			completed++
		}
	}
	if completed != 1 {
		t.Fatalf("expected one task_completed activity, got %d", completed)
	}

	for i := 0; i < 2; i++ {
		rec = ts.do(t, http.MethodDelete, "/api/tasks/"+id, ann.Token, nil)
		expectStatus(t, rec, http.StatusNoContent)
	}
	rec = ts.do(t, http.MethodPatch, "/api/tasks/"+id, ann.Token, map[string]any{"title": "Gone"})
	expectStatus(t, rec, http.StatusNotFound)
}

func TestValidationEnvelope(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	ann := ts.signup(t, "Ann", "ann@x.com")
	ws, _ := ts.home(t, ann.Token)

	rec := ts.do(t, http.MethodPost, "/api/tasks", ann.Token, `{"title":`)
	expectStatus(t, rec, http.StatusBadRequest)
	if body := decode[errorBody](t, rec); body.Error != "Invalid request body" {
		t.Fatalf("unexpected error %q", body.Error)
	}

	rec = ts.do(t, http.MethodPost, "/api/tasks", ann.Token, map[string]any{"workspaceId": ws.ID})
	expectStatus(t, rec, http.StatusBadRequest)
	body := decode[struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}](t, rec)
	if body.Error != "Validation failed" {
		t.Fatalf("unexpected error %q", body.Error)
	}
	if body.Details["title"] == "" || body.Details["categoryId"] == "" {
		t.Fatalf("expected field details, got %v", body.Details)
	}
}

func TestAddMemberAndViewerWrites(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	ann := ts.signup(t, "Ann", "ann@x.com")
	vic := ts.signup(t, "Vic", "vic@x.com")
	ws, cat := ts.home(t, ann.Token)

	rec := ts.do(t, http.MethodPost, "/api/workspaces/"+ws.ID+"/members", ann.Token, map[string]string{
		"email": "vic@x.com", "role": "viewer",
	})
	expectStatus(t, rec, http.StatusCreated)
	if got := len(decode[model.Workspace](t, rec).Members); got != 2 {
		t.Fatalf("expected two members, got %d", got)
	}

	rec = ts.do(t, http.MethodGet, "/api/categories?workspaceId="+ws.ID, vic.Token, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = ts.do(t, http.MethodPost, "/api/tasks", vic.Token, map[string]any{
		"workspaceId": ws.ID, "title": "Nope", "categoryId": cat.ID,
	})
	expectStatus(t, rec, http.StatusForbidden)

	rec = ts.do(t, http.MethodPost, "/api/workspaces/"+ws.ID+"/members", vic.Token, map[string]string{
		"email": "ann@x.com",
	})
	expectStatus(t, rec, http.StatusForbidden)
}

func TestAdminUsersRequiresGlobalAdmin(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	ann := ts.signup(t, "Ann", "ann@x.com")
	rec := ts.do(t, http.MethodGet, "/api/admin/users", ann.Token, nil)
	expectStatus(t, rec, http.StatusForbidden)

	// Ann administers her own workspace but holds no global role
	ws, _ := ts.home(t, ann.Token)
	if ws.OwnerID != ann.User.ID {
		t.Fatalf("expected Ann to own %s", ws.ID)
	}

	_, err := ts.services.Identity.BootstrapAdmin(context.Background(), service.AdminAccount{
		Name: "Root", Email: "root@x.com", Password: "rootpass",
	})
	if err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "root@x.com", "password": "rootpass",
	})
	expectStatus(t, rec, http.StatusOK)
	root := decode[service.Session](t, rec)

	rec = ts.do(t, http.MethodGet, "/api/admin/users", root.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := len(decode[[]model.User](t, rec)); got != 2 {
		t.Fatalf("expected two users, got %d", got)
	}
}

func TestHealth(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	for _, path := range []string{"/health", "/api/health"} {
		rec := ts.do(t, http.MethodGet, path, "", nil)
		expectStatus(t, rec, http.StatusOK)
		if body := decode[map[string]any](t, rec); body["ok"] != true {
			t.Fatalf("%s: expected ok, got %v", path, body)
		}
	}
}

func TestResendVerificationNeverRevealsAccounts(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()
	ts.signup(t, "Ann", "ann@x.com")

	for _, email := range []string{"ann@x.com", "nobody@x.com"} {
		rec := ts.do(t, http.MethodPost, "/api/auth/resend-verification", "", map[string]string{"email": email})
		expectStatus(t, rec, http.StatusOK)
		if body := decode[map[string]bool](t, rec); !body["ok"] {
			t.Fatalf("expected ok for %s", email)
		}
	}

	rec := ts.do(t, http.MethodGet, "/api/auth/verify", "", nil)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestRequestLogOmitsVerificationToken(t *testing.T) {
	var buf bytes.Buffer
	if err := logger.Init(logger.Config{Level: logger.INFO, Output: &buf}); err != nil {
		t.Fatalf("init logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Init(logger.Config{Level: logger.ERROR}) })

	ts, cleanup := newTestServer(t)
	defer cleanup()

	rec := ts.do(t, http.MethodGet, "/api/auth/verify?token=s3cr3t-token&lang=en", "", nil)
	expectStatus(t, rec, http.StatusBadRequest)

	out := buf.String()
	if strings.Contains(out, "s3cr3t-token") {
		t.Fatalf("verification token leaked into the log:\n%s", out)
	}
	if !strings.Contains(out, "/api/auth/verify?lang=en") {
		t.Fatalf("expected the request path in the log:\n%s", out)
	}
}

func TestLoggedURI(t *testing.T) {
	cases := map[string]string{
		"/api/tasks":                          "/api/tasks",
		"/api/tasks?workspaceId=w1":           "/api/tasks?workspaceId=w1",
		"/api/auth/verify?token=abc":          "/api/auth/verify",
		"/api/auth/verify?token=abc&next=%2F": "/api/auth/verify?next=%2F",
	}
	for target, want := range cases {
		if got := loggedURI(httptest.NewRequest(http.MethodGet, target, nil)); got != want {
			t.Fatalf("loggedURI(%q) = %q, want %q", target, got, want)
		}
	}
}
