package grouppolicy

import (
	"errors"
	"testing"

	"github.com/dalemusser/chathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	creator = primitive.NewObjectID()
	admin   = primitive.NewObjectID()
	member  = primitive.NewObjectID()
	member2 = primitive.NewObjectID()
	outside = primitive.NewObjectID()
)

func testGroup() *models.Group {
	return &models.Group{
		Members:   []primitive.ObjectID{creator, admin, member, member2},
		Admins:    []primitive.ObjectID{creator, admin},
		CreatedBy: creator,
	}
}

func wantErr(t *testing.T, got, want error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestCanRemoveMember(t *testing.T) {
	g := testGroup()

	if err := CanRemoveMember(g, admin, member); err != nil {
		t.Errorf("admin removing member: %v", err)
	}
	if err := CanRemoveMember(g, creator, admin); err != nil {
		t.Errorf("creator removing admin: %v", err)
	}
	wantErr(t, CanRemoveMember(g, member, member2), ErrNotAdmin)
	wantErr(t, CanRemoveMember(g, admin, creator), ErrCreatorImmune)
	wantErr(t, CanRemoveMember(g, creator, creator), ErrCreatorImmune)
	wantErr(t, CanRemoveMember(g, admin, outside), ErrTargetNotMember)
}

func TestCanRemoveMember_AdminCannotRemoveAdmin(t *testing.T) {
	g := testGroup()
	g.Admins = append(g.Admins, member)

	wantErr(t, CanRemoveMember(g, admin, member), ErrPeerAdmin)
	if err := CanRemoveMember(g, creator, member); err != nil {
		t.Errorf("creator removing admin: %v", err)
	}
}

func TestCanPromoteAndDemote(t *testing.T) {
	g := testGroup()

	if err := CanPromote(g, creator, member); err != nil {
		t.Errorf("promote member: %v", err)
	}
	wantErr(t, CanPromote(g, creator, admin), ErrAlreadyAdmin)
	wantErr(t, CanPromote(g, member, member2), ErrNotAdmin)
	wantErr(t, CanPromote(g, admin, outside), ErrTargetNotMember)

	if err := CanDemote(g, creator, admin); err != nil {
		t.Errorf("creator demoting admin: %v", err)
	}
	if err := CanDemote(g, admin, admin); err != nil {
		t.Errorf("admin demoting self: %v", err)
	}
	wantErr(t, CanDemote(g, admin, creator), ErrCreatorImmune)
	wantErr(t, CanDemote(g, creator, member), ErrTargetNotAdmin)
}

func TestCanDemote_AdminCannotDemoteAdmin(t *testing.T) {
	g := testGroup()
	g.Members = append(g.Members, outside)
	g.Admins = append(g.Admins, outside)

	wantErr(t, CanDemote(g, admin, outside), ErrPeerAdmin)
}

func TestCanDelete(t *testing.T) {
	g := testGroup()
	if err := CanDelete(g, creator); err != nil {
		t.Errorf("creator delete: %v", err)
	}
	wantErr(t, CanDelete(g, admin), ErrNotCreator)
}

func TestPlanLeave_NonCreator(t *testing.T) {
	g := testGroup()
	plan, err := PlanLeave(g, member)
	if err != nil {
		t.Fatalf("PlanLeave: %v", err)
	}
	if plan.Delete || !plan.NewCreator.IsZero() {
		t.Errorf("non-creator leave should not transfer or delete: %+v", plan)
	}
}

func TestPlanLeave_CreatorHandsToAdmin(t *testing.T) {
	g := testGroup()
	plan, err := PlanLeave(g, creator)
	if err != nil {
		t.Fatalf("PlanLeave: %v", err)
	}
	if plan.NewCreator != admin || plan.PromoteSuccessor {
		t.Errorf("expected transfer to first other admin: %+v", plan)
	}
}

func TestPlanLeave_CreatorPromotesMember(t *testing.T) {
	g := &models.Group{
		Members:   []primitive.ObjectID{creator, member},
		Admins:    []primitive.ObjectID{creator},
		CreatedBy: creator,
	}
	plan, err := PlanLeave(g, creator)
	if err != nil {
		t.Fatalf("PlanLeave: %v", err)
	}
	if plan.NewCreator != member || !plan.PromoteSuccessor {
		t.Errorf("expected promotion of first remaining member: %+v", plan)
	}
}

func TestPlanLeave_LastMemberDeletes(t *testing.T) {
	g := &models.Group{
		Members:   []primitive.ObjectID{creator},
		Admins:    []primitive.ObjectID{creator},
		CreatedBy: creator,
	}
	plan, err := PlanLeave(g, creator)
	if err != nil {
		t.Fatalf("PlanLeave: %v", err)
	}
	if !plan.Delete {
		t.Errorf("expected delete plan: %+v", plan)
	}
}

func TestPlanLeave_NotAMember(t *testing.T) {
	g := testGroup()
	_, err := PlanLeave(g, outside)
	wantErr(t, err, ErrNotMember)
}
