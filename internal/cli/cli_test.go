package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/existflow/taskflow/internal/auth"
	"github.com/existflow/taskflow/internal/client"
	"github.com/existflow/taskflow/internal/config"
	"github.com/existflow/taskflow/internal/db"
	"github.com/existflow/taskflow/internal/model"
	"github.com/existflow/taskflow/internal/service"
	"github.com/existflow/taskflow/server"
)

func TestParseStatus(t *testing.T) {
	cases := map[string]model.Status{
		"todo":        model.StatusTodo,
		"WIP":         model.StatusInProgress,
		"in_progress": model.StatusInProgress,
		"in-progress": model.StatusInProgress,
		"review":      model.StatusReview,
		"done":        model.StatusCompleted,
	}
	for in, want := range cases {
		got, err := parseStatus(in)
		if err != nil || got != want {
			t.Fatalf("parseStatus(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := parseStatus("blocked"); err == nil {
		t.Fatalf("expected unknown status to fail")
	}
}

func TestParsePriority(t *testing.T) {
	cases := map[string]model.Priority{
		"P1":     model.PriorityUrgent,
		"2":      model.PriorityHigh,
		"medium": model.PriorityMedium,
		"p4":     model.PriorityLow,
	}
	for in, want := range cases {
		got, err := parsePriority(in)
		if err != nil || got != want {
			t.Fatalf("parsePriority(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := parsePriority("P5"); err == nil {
		t.Fatalf("expected P5 to fail")
	}
}

func TestParseDue(t *testing.T) {
	now := time.Date(2025, 12, 31, 15, 0, 0, 0, time.UTC)
	if got, _ := parseDue("tomorrow", now); got != "2026-01-01" {
		t.Fatalf("unexpected tomorrow %q", got)
	}
	if got, _ := parseDue("2025-06-01", now); got != "2025-06-01" {
		t.Fatalf("unexpected date %q", got)
	}
	if _, err := parseDue("next week", now); err == nil {
		t.Fatalf("expected free text to fail")
	}
}

func TestPrintTaskLine(t *testing.T) {
	due, _ := model.ParseDate("2025-12-31")
	var buf bytes.Buffer
	printTaskLine(&buf, model.Task{
		ID:       "0123456789abcdef",
		Title:    "Ship it",
		Status:   model.StatusReview,
		Priority: model.PriorityHigh,
		DueDate:  &due,
		Tags:     []string{"release", "q4"},
	})
	want := "  [?] 01234567  P2  Ship it due 2025-12-31 #release #q4\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

// loggedIn starts a server and signs a client up in a fresh home directory
func loggedIn(t *testing.T) *client.Client {
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
	srv := httptest.NewServer(server.New(config.ServerConfig{}, store, services).Router())
	t.Cleanup(func() {
		srv.Close()
		_ = conn.Close()
	})

	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)
	c, err := client.New(dir)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.SetServer(srv.URL); err != nil {
		t.Fatalf("set server: %v", err)
	}
	if _, err := c.Signup(context.Background(), service.SignupInput{Name: "Ann", Email: "ann@x.com", Password: "secret1"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	return c
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func TestCommandsAgainstServer(t *testing.T) {
	c := loggedIn(t)
	ctx := context.Background()

	if out := mustExecute(t, "workspace", "list"); !strings.Contains(out, "My Workspace") {
		t.Fatalf("expected the default workspace, got:\n%s", out)
	}
	if out := mustExecute(t, "category", "list"); !strings.Contains(out, "General") {
		t.Fatalf("expected the default category, got:\n%s", out)
	}

	out := mustExecute(t, "task", "add", "Write", "docs", "-p", "urgent", "--tag", "docs", "--subtask", "Outline")
	if !strings.Contains(out, `Added: "Write docs"`) {
		t.Fatalf("unexpected add output:\n%s", out)
	}
	tasks, err := c.Tasks(ctx, "")
	if err != nil || len(tasks) != 1 {
		t.Fatalf("expected one task, got %d (%v)", len(tasks), err)
	}
	id := tasks[0].ID
	if len(tasks[0].Subtasks) != 1 {
		t.Fatalf("expected the subtask to be created")
	}

	out = mustExecute(t, "task", "list")
	if !strings.Contains(out, "todo (1)") || !strings.Contains(out, "P1  Write docs #docs") {
		t.Fatalf("unexpected list output:\n%s", out)
	}

	mustExecute(t, "task", "update", id[:8], "--due", "2025-12-31", "--title", "Write the docs")
	out = mustExecute(t, "task", "show", id)
	if !strings.Contains(out, "Write the docs") || !strings.Contains(out, "due:       2025-12-31") || !strings.Contains(out, "[ ] Outline") {
		t.Fatalf("unexpected show output:\n%s", out)
	}

	if out := mustExecute(t, "task", "move", id, "next"); !strings.Contains(out, "in-progress") {
		t.Fatalf("unexpected move output:\n%s", out)
	}
	if out := mustExecute(t, "task", "done", id); !strings.Contains(out, "Completed") {
		t.Fatalf("unexpected done output:\n%s", out)
	}

	out = mustExecute(t, "activity")
	if !strings.Contains(out, string(model.ActivityTaskCompleted)) || !strings.Contains(out, string(model.ActivityTaskCreated)) {
		t.Fatalf("unexpected activity output:\n%s", out)
	}

	if _, err := execute(t, "admin", "users"); err == nil {
		t.Fatalf("expected admin users to be refused for a member")
	}

	if out := mustExecute(t, "task", "rm", id); !strings.Contains(out, "Deleted") {
		t.Fatalf("unexpected rm output:\n%s", out)
	}
}

func TestOfflineCommands(t *testing.T) {
	loggedIn(t)
	mustExecute(t, "task", "add", "Cached")
	mustExecute(t, "task", "list")

	out := mustExecute(t, "--offline", "task", "list")
	if !strings.Contains(out, "offline, cached at") || !strings.Contains(out, "Cached") {
		t.Fatalf("unexpected offline list:\n%s", out)
	}

	_, err := execute(t, "--offline", "task", "add", "Nope")
	if !errors.Is(err, client.ErrOffline) {
		t.Fatalf("expected ErrOffline, got %v", err)
	}

	// flags persist on the package level command; reset for later tests
	offlineFlag = false
}
