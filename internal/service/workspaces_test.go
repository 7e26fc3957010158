package service

import (
	"context"
	"testing"

	"github.com/existflow/taskflow/internal/apperr"
	"github.com/existflow/taskflow/internal/model"
)

func TestCreateWorkspace(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()

	ann := f.signup(t, "Ann", "ann@x.com")

	_, err := f.Workspaces.Create(ctx, ann.User.ID, CreateWorkspaceInput{Name: "  "})
	expectKind(t, err, apperr.KindValidation, "")

	w, err := f.Workspaces.Create(ctx, ann.User.ID, CreateWorkspaceInput{Name: "Launch", Description: "Q3"})
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	if w.OwnerID != ann.User.ID || w.Color != model.DefaultWorkspaceColor {
		t.Fatalf("unexpected workspace %+v", w)
	}
	if len(w.Members) != 1 || w.Members[0].Role != model.RoleAdmin {
		t.Fatalf("expected creator as admin member, got %+v", w.Members)
	}

	categories, err := f.Categories.List(ctx, ann.User.ID, w.ID)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 1 || categories[0].Name != model.DefaultCategoryName {
		t.Fatalf("expected default category, got %+v", categories)
	}

	workspaces, err := f.Workspaces.List(ctx, ann.User.ID)
	if err != nil {
		t.Fatalf("list workspaces: %v", err)
	}
	if len(workspaces) != 2 || workspaces[0].ID != w.ID {
		t.Fatalf("expected new workspace listed first, got %+v", workspaces)
	}
}

func TestAddMemberRoles(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()

	ann := f.signup(t, "Ann", "ann@x.com")
	bob := f.signup(t, "Bob", "bob@x.com")
	cat := f.signup(t, "Cat", "cat@x.com")
	w, c := f.home(t, ann.User.ID)

	_, err := f.Workspaces.AddMember(ctx, ann.User.ID, w.ID, AddMemberInput{Email: "ghost@x.com"})
	expectKind(t, err, apperr.KindNotFound, "User not found")
	_, err = f.Workspaces.AddMember(ctx, ann.User.ID, w.ID, AddMemberInput{Email: "bob@x.com", Role: "owner"})
	expectKind(t, err, apperr.KindValidation, "")

	updated, err := f.Workspaces.AddMember(ctx, ann.User.ID, w.ID, AddMemberInput{Email: "BOB@x.com", Role: model.RoleViewer})
	if err != nil {
		t.Fatalf("add bob: %v", err)
	}
	if len(updated.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(updated.Members))
	}

	_, err = f.Workspaces.AddMember(ctx, ann.User.ID, w.ID, AddMemberInput{Email: "bob@x.com"})
	expectKind(t, err, apperr.KindConflict, "Already a member")

	// Workspace viewers read but cannot write, and cannot add members.
	tasks, err := f.Tasks.List(ctx, bob.User.ID, w.ID)
	if err != nil || tasks == nil {
		t.Fatalf("viewer should list tasks: %v", err)
	}
	_, err = f.Tasks.Create(ctx, bob.User.ID, CreateTaskInput{WorkspaceID: w.ID, Title: "T", CategoryID: c.ID})
	expectKind(t, err, apperr.KindForbidden, "")
	_, err = f.Categories.Create(ctx, bob.User.ID, CreateCategoryInput{WorkspaceID: w.ID, Name: "n", Color: "#000", Icon: "i"})
	expectKind(t, err, apperr.KindForbidden, "")
	_, err = f.Workspaces.AddMember(ctx, bob.User.ID, w.ID, AddMemberInput{Email: "cat@x.com"})
	expectKind(t, err, apperr.KindForbidden, "Workspace admin only")
	_, err = f.Workspaces.AddMember(ctx, cat.User.ID, w.ID, AddMemberInput{Email: "cat@x.com"})
	expectKind(t, err, apperr.KindForbidden, "Not a workspace member")

	activities, err := f.Activities.List(ctx, ann.User.ID, w.ID)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	if len(activities) != 1 || activities[0].Type != model.ActivityMemberJoined || activities[0].UserID != bob.User.ID {
		t.Fatalf("expected one member_joined by bob, got %+v", activities)
	}
	if activities[0].TaskID != nil {
		t.Fatalf("member_joined should not reference a task")
	}
}

func TestGlobalRoleIsIndependentOfMembershipRole(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()

	ann := f.signup(t, "Ann", "ann@x.com")
	w, _ := f.home(t, ann.User.ID)

	role, ok, err := f.Access.Role(ctx, ann.User.ID, w.ID)
	if err != nil || !ok {
		t.Fatalf("expected membership: %v", err)
	}
	if role != model.RoleAdmin {
		t.Fatalf("expected workspace admin, got %s", role)
	}
	if ann.User.Role != model.RoleMember {
		t.Fatalf("expected global member role, got %s", ann.User.Role)
	}
}

func TestCreateCategory(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()
	ctx := context.Background()

	ann := f.signup(t, "Ann", "ann@x.com")
	bob := f.signup(t, "Bob", "bob@x.com")
	w, _ := f.home(t, ann.User.ID)

	_, err := f.Categories.Create(ctx, ann.User.ID, CreateCategoryInput{WorkspaceID: w.ID, Name: "Bugs"})
	expectKind(t, err, apperr.KindValidation, "")

	_, err = f.Categories.Create(ctx, bob.User.ID, CreateCategoryInput{WorkspaceID: w.ID, Name: "Bugs", Color: "#f00", Icon: "🐛"})
	expectKind(t, err, apperr.KindForbidden, "Not a workspace member")

	created, err := f.Categories.Create(ctx, ann.User.ID, CreateCategoryInput{WorkspaceID: w.ID, Name: "Bugs", Color: "#f00", Icon: "🐛"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	categories, err := f.Categories.List(ctx, ann.User.ID, "")
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 2 || categories[1].ID != created.ID {
		t.Fatalf("expected oldest first with new category last, got %+v", categories)
	}
}
