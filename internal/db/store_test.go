package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/existflow/taskflow/internal/model"
)

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	db, err := Open(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return NewStore(db), func() {
		_ = db.Close()
	}
}

var base = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, s *Store, id, email string, at time.Time) model.User {
	t.Helper()
	u := model.User{
		ID:           id,
		Name:         id,
		Email:        email,
		PasswordHash: "hash",
		Avatar:       model.DefaultAvatar,
		Role:         model.RoleMember,
		Status:       model.PresenceOnline,
		CreatedAt:    at,
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", id, err)
	}
	return u
}

func seedWorkspace(t *testing.T, s *Store, id, ownerID string, at time.Time) {
	t.Helper()
	ctx := context.Background()
	w := model.Workspace{ID: id, Name: id, Color: model.DefaultWorkspaceColor, OwnerID: ownerID, CreatedAt: at}
	if err := s.CreateWorkspace(ctx, w); err != nil {
		t.Fatalf("create workspace %s: %v", id, err)
	}
	if err := s.AddMember(ctx, id, ownerID, model.RoleAdmin, at); err != nil {
		t.Fatalf("add owner to %s: %v", id, err)
	}
	c := model.Category{ID: id + "-cat", WorkspaceID: id, Name: "General", Color: "#fff", Icon: "x", CreatedAt: at}
	if err := s.CreateCategory(ctx, c); err != nil {
		t.Fatalf("create category in %s: %v", id, err)
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	seedUser(t, store, "u1", "ann@x.com", base)
	err := store.CreateUser(context.Background(), model.User{
		ID: "u2", Name: "Ann", Email: "ann@x.com", Role: model.RoleMember, Status: model.PresenceOnline, CreatedAt: base,
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestGetUserMissing(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	_, err := store.GetUser(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEarliestUser(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.EarliestUser(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	seedUser(t, store, "late", "late@x.com", base.Add(time.Hour))
	seedUser(t, store, "early", "early@x.com", base)

	u, err := store.EarliestUser(ctx)
	if err != nil {
		t.Fatalf("earliest user: %v", err)
	}
	if u.ID != "early" {
		t.Fatalf("expected early, got %s", u.ID)
	}
}

func TestVerificationTokenLifecycle(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	seedUser(t, store, "u1", "ann@x.com", base)
	if err := store.RenewVerificationToken(ctx, "u1", "abc", base.Add(24*time.Hour), base, base.Add(-time.Minute)); err != nil {
		t.Fatalf("set token: %v", err)
	}

	u, err := store.GetUserByVerificationHash(ctx, "abc")
	if err != nil {
		t.Fatalf("lookup by hash: %v", err)
	}
	if u.VerificationExpiresAt == nil || !u.VerificationExpiresAt.Equal(base.Add(24*time.Hour)) {
		t.Fatalf("unexpected expiry %v", u.VerificationExpiresAt)
	}
	if u.VerificationSentAt == nil || !u.VerificationSentAt.Equal(base) {
		t.Fatalf("unexpected sent-at %v", u.VerificationSentAt)
	}

	if err := store.MarkEmailVerified(ctx, "u1"); err != nil {
		t.Fatalf("mark verified: %v", err)
	}
	if _, err := store.GetUserByVerificationHash(ctx, "abc"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected token to be consumed, got %v", err)
	}
	u, err = store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !u.EmailVerified {
		t.Fatalf("expected email to be verified")
	}
	if u.VerificationSentAt == nil {
		t.Fatalf("expected sent-at to survive verification")
	}
}

func TestRenewVerificationTokenIsConditional(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	seedUser(t, store, "u1", "ann@x.com", base)
	if err := store.RenewVerificationToken(ctx, "u1", "first", base.Add(24*time.Hour), base, base.Add(-time.Minute)); err != nil {
		t.Fatalf("first renew: %v", err)
	}

	// A second request that read the user before the first write computes the
	// same cutoff and must lose.
	later := base.Add(time.Second)
	err := store.RenewVerificationToken(ctx, "u1", "second", later.Add(24*time.Hour), later, later.Add(-time.Minute))
	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("expected ErrThrottled, got %v", err)
	}
	if _, err := store.GetUserByVerificationHash(ctx, "first"); err != nil {
		t.Fatalf("expected the first token to survive: %v", err)
	}

	after := base.Add(time.Minute)
	if err := store.RenewVerificationToken(ctx, "u1", "third", after.Add(24*time.Hour), after, after.Add(-time.Minute)); err != nil {
		t.Fatalf("renew once the interval passed: %v", err)
	}
}

func TestMembershipAndWorkspaceListing(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	seedUser(t, store, "ann", "ann@x.com", base)
	seedUser(t, store, "bob", "bob@x.com", base)
	seedWorkspace(t, store, "wa", "ann", base)
	seedWorkspace(t, store, "wb", "bob", base.Add(time.Minute))

	if err := store.AddMember(ctx, "wb", "ann", model.RoleViewer, base.Add(2*time.Minute)); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if err := store.AddMember(ctx, "wb", "ann", model.RoleMember, base); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for second membership, got %v", err)
	}

	role, err := store.MemberRole(ctx, "wb", "ann")
	if err != nil {
		t.Fatalf("member role: %v", err)
	}
	if role != model.RoleViewer {
		t.Fatalf("expected viewer, got %s", role)
	}
	if _, err := store.MemberRole(ctx, "wa", "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-member, got %v", err)
	}

	workspaces, err := store.ListWorkspacesForUser(ctx, "ann")
	if err != nil {
		t.Fatalf("list workspaces: %v", err)
	}
	if len(workspaces) != 2 {
		t.Fatalf("expected 2 workspaces, got %d", len(workspaces))
	}
	if workspaces[0].ID != "wb" {
		t.Fatalf("expected newest workspace first, got %s", workspaces[0].ID)
	}
	if len(workspaces[0].Members) != 2 {
		t.Fatalf("expected 2 members in wb, got %d", len(workspaces[0].Members))
	}
	if workspaces[0].Members[0].ID != "bob" || workspaces[0].Members[0].Role != model.RoleAdmin {
		t.Fatalf("unexpected first member %+v", workspaces[0].Members[0])
	}
}

func TestTaskRoundTrip(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	seedUser(t, store, "ann", "ann@x.com", base)
	seedWorkspace(t, store, "wa", "ann", base)

	due, err := model.ParseDate("2026-01-05")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	assignee := "ann"
	task := model.Task{
		ID:          "t1",
		WorkspaceID: "wa",
		Title:       "Write tests",
		Status:      model.StatusInProgress,
		Priority:    model.PriorityHigh,
		CategoryID:  "wa-cat",
		DueDate:     &due,
		AssigneeID:  &assignee,
		Tags:        []string{"b", "a"},
		Subtasks: []model.Subtask{
			{ID: "s1", Title: "first"},
			{ID: "s2", Title: "second", Completed: true},
		},
		Progress:  40,
		CreatedAt: base,
		UpdatedAt: base,
	}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	got, err := store.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != model.StatusInProgress {
		t.Fatalf("expected in-progress, got %s", got.Status)
	}
	if got.DueDate == nil || got.DueDate.String() != "2026-01-05" {
		t.Fatalf("expected due date 2026-01-05, got %v", got.DueDate)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "b" || got.Tags[1] != "a" {
		t.Fatalf("expected tag order preserved, got %v", got.Tags)
	}
	if len(got.Subtasks) != 2 || got.Subtasks[0].ID != "s1" || !got.Subtasks[1].Completed {
		t.Fatalf("unexpected subtasks %+v", got.Subtasks)
	}
	if got.AssigneeID == nil || *got.AssigneeID != "ann" {
		t.Fatalf("expected assignee ann, got %v", got.AssigneeID)
	}

	var raw string
	if err := store.db.QueryRow(`SELECT status FROM tasks WHERE id = $1`, "t1").Scan(&raw); err != nil {
		t.Fatalf("read raw status: %v", err)
	}
	if raw != "in_progress" {
		t.Fatalf("expected stored status in_progress, got %q", raw)
	}
}

func TestUpdateAndDeleteTask(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	seedUser(t, store, "ann", "ann@x.com", base)
	seedWorkspace(t, store, "wa", "ann", base)

	task := model.Task{
		ID: "t1", WorkspaceID: "wa", Title: "T", Status: model.StatusTodo, Priority: model.PriorityMedium,
		CategoryID: "wa-cat", Subtasks: []model.Subtask{{ID: "s1", Title: "one"}}, CreatedAt: base, UpdatedAt: base,
	}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	task.Title = "Renamed"
	task.Status = model.StatusCompleted
	task.UpdatedAt = base.Add(time.Minute)
	if err := store.UpdateTask(ctx, task); err != nil {
		t.Fatalf("update task: %v", err)
	}
	got, err := store.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != "Renamed" || got.Status != model.StatusCompleted {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.DueDate != nil || got.AssigneeID != nil {
		t.Fatalf("expected nullable fields to stay null")
	}
	if len(got.Subtasks) != 1 {
		t.Fatalf("expected subtasks untouched, got %d", len(got.Subtasks))
	}

	missing := task
	missing.ID = "nope"
	if err := store.UpdateTask(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing task, got %v", err)
	}

	ok, err := store.DeleteTask(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("expected first delete to remove a row, got %v %v", ok, err)
	}
	ok, err = store.DeleteTask(ctx, "t1")
	if err != nil || ok {
		t.Fatalf("expected second delete to be a no-op, got %v %v", ok, err)
	}

	var n int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM subtasks WHERE task_id = $1`, "t1").Scan(&n); err != nil {
		t.Fatalf("count subtasks: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected subtasks to cascade, %d left", n)
	}
}

func TestScopedListings(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	seedUser(t, store, "ann", "ann@x.com", base)
	seedUser(t, store, "bob", "bob@x.com", base)
	seedWorkspace(t, store, "wa", "ann", base)
	seedWorkspace(t, store, "wb", "bob", base)

	for i, ws := range []string{"wa", "wa", "wb"} {
		at := base.Add(time.Duration(i) * time.Minute)
		task := model.Task{
			ID: ws + string(rune('0'+i)), WorkspaceID: ws, Title: "T", Status: model.StatusTodo,
			Priority: model.PriorityLow, CategoryID: ws + "-cat", CreatedAt: at, UpdatedAt: at,
			Subtasks: []model.Subtask{{ID: "s" + string(rune('0'+i)), Title: "sub"}},
		}
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatalf("create task: %v", err)
		}
		taskID := task.ID
		err := store.CreateActivity(ctx, model.Activity{
			ID: "a" + string(rune('0'+i)), Type: model.ActivityTaskCreated, UserID: "ann",
			TaskID: &taskID, WorkspaceID: ws, Message: "created", CreatedAt: at,
		})
		if err != nil {
			t.Fatalf("create activity: %v", err)
		}
	}

	tasks, err := store.ListTasks(ctx, Scope{MemberID: "ann"})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks visible to ann, got %d", len(tasks))
	}
	if tasks[0].ID != "wa1" {
		t.Fatalf("expected most recently updated first, got %s", tasks[0].ID)
	}
	for _, task := range tasks {
		if len(task.Subtasks) != 1 {
			t.Fatalf("expected subtasks loaded for %s", task.ID)
		}
	}

	tasks, err = store.ListTasks(ctx, Scope{WorkspaceID: "wb"})
	if err != nil {
		t.Fatalf("list tasks in wb: %v", err)
	}
	if len(tasks) != 1 || tasks[0].WorkspaceID != "wb" {
		t.Fatalf("expected only wb task, got %+v", tasks)
	}

	categories, err := store.ListCategories(ctx, Scope{MemberID: "bob"})
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 1 || categories[0].ID != "wb-cat" {
		t.Fatalf("unexpected categories %+v", categories)
	}

	activities, err := store.ListActivities(ctx, Scope{MemberID: "ann"}, 1)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	if len(activities) != 1 || activities[0].ID != "a1" {
		t.Fatalf("expected newest activity a1 with limit 1, got %+v", activities)
	}
}

func TestActivitySurvivesTaskDelete(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	seedUser(t, store, "ann", "ann@x.com", base)
	seedWorkspace(t, store, "wa", "ann", base)
	task := model.Task{
		ID: "t1", WorkspaceID: "wa", Title: "T", Status: model.StatusTodo, Priority: model.PriorityLow,
		CategoryID: "wa-cat", CreatedAt: base, UpdatedAt: base,
	}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	taskID := "t1"
	if err := store.CreateActivity(ctx, model.Activity{
		ID: "a1", Type: model.ActivityTaskCreated, UserID: "ann", TaskID: &taskID,
		WorkspaceID: "wa", Message: "created", CreatedAt: base,
	}); err != nil {
		t.Fatalf("create activity: %v", err)
	}
	if _, err := store.DeleteTask(ctx, "t1"); err != nil {
		t.Fatalf("delete task: %v", err)
	}

	activities, err := store.ListActivities(ctx, Scope{WorkspaceID: "wa"}, 50)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	if len(activities) != 1 {
		t.Fatalf("expected activity to remain, got %d", len(activities))
	}
	if activities[0].TaskID != nil {
		t.Fatalf("expected task reference cleared, got %v", *activities[0].TaskID)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx *Store) error {
		seedUser(t, tx, "ann", "ann@x.com", base)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := store.GetUser(ctx, "ann"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected rollback to discard user, got %v", err)
	}
}
