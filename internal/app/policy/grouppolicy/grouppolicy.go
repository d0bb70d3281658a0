// internal/app/policy/grouppolicy.go
//
// Pure authorization rules for group management. Every function decides from
// the group document alone so callers can check permissions on the copy they
// already loaded, with no extra reads.
//
// The rules in force:
//   - only admins manage membership, admins, and group info
//   - the creator cannot be removed or demoted by anyone
//   - an admin who is not the creator cannot remove or demote fellow admins
//   - only the creator can delete the group
package grouppolicy

import (
	"errors"

	"github.com/dalemusser/chathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Denial reasons. Callers translate these into their surface's failure
// shape; the messages are written to be shown to users as-is.
var (
	ErrNotMember       = errors.New("you are not a member of this group")
	ErrNotAdmin        = errors.New("only group admins can do that")
	ErrNotCreator      = errors.New("only the group creator can do that")
	ErrTargetNotMember = errors.New("user is not a member of this group")
	ErrTargetNotAdmin  = errors.New("user is not an admin of this group")
	ErrAlreadyAdmin    = errors.New("user is already an admin")
	ErrCreatorImmune   = errors.New("the group creator cannot be removed or demoted")
	ErrPeerAdmin       = errors.New("only the creator can manage another admin")
)

// CanView reports whether a user may read the group and its messages.
func CanView(g *models.Group, userID primitive.ObjectID) error {
	if !g.HasMember(userID) {
		return ErrNotMember
	}
	return nil
}

// CanAddMembers allows admins to invite.
func CanAddMembers(g *models.Group, actorID primitive.ObjectID) error {
	if !g.HasAdmin(actorID) {
		return ErrNotAdmin
	}
	return nil
}

// CanUpdateInfo allows admins to edit name, description, and avatar.
func CanUpdateInfo(g *models.Group, actorID primitive.ObjectID) error {
	if !g.HasAdmin(actorID) {
		return ErrNotAdmin
	}
	return nil
}

// CanRemoveMember checks an admin-initiated removal of target.
func CanRemoveMember(g *models.Group, actorID, targetID primitive.ObjectID) error {
	if !g.HasAdmin(actorID) {
		return ErrNotAdmin
	}
	if !g.HasMember(targetID) {
		return ErrTargetNotMember
	}
	if g.IsCreator(targetID) {
		return ErrCreatorImmune
	}
	if g.HasAdmin(targetID) && !g.IsCreator(actorID) && actorID != targetID {
		return ErrPeerAdmin
	}
	return nil
}

// CanPromote checks making target an admin.
func CanPromote(g *models.Group, actorID, targetID primitive.ObjectID) error {
	if !g.HasAdmin(actorID) {
		return ErrNotAdmin
	}
	if !g.HasMember(targetID) {
		return ErrTargetNotMember
	}
	if g.HasAdmin(targetID) {
		return ErrAlreadyAdmin
	}
	return nil
}

// CanDemote checks stripping target's admin role. An admin may always step
// down themselves.
func CanDemote(g *models.Group, actorID, targetID primitive.ObjectID) error {
	if !g.HasAdmin(actorID) {
		return ErrNotAdmin
	}
	if !g.HasAdmin(targetID) {
		return ErrTargetNotAdmin
	}
	if g.IsCreator(targetID) {
		return ErrCreatorImmune
	}
	if !g.IsCreator(actorID) && actorID != targetID {
		return ErrPeerAdmin
	}
	return nil
}

// CanDelete allows only the creator to delete the group.
func CanDelete(g *models.Group, actorID primitive.ObjectID) error {
	if !g.IsCreator(actorID) {
		return ErrNotCreator
	}
	return nil
}

// LeavePlan describes what must happen to the group when a member leaves.
type LeavePlan struct {
	// Delete is set when the leaver was the last member.
	Delete bool
	// NewCreator is the ownership successor when the creator leaves a
	// non-empty group. Zero otherwise.
	NewCreator primitive.ObjectID
	// PromoteSuccessor is set when the successor was a plain member and
	// must also be granted admin.
	PromoteSuccessor bool
}

// PlanLeave resolves the ownership consequences of userID leaving.
// Succession order: the first remaining admin, else the first remaining
// member (who is promoted), else the group is deleted.
func PlanLeave(g *models.Group, userID primitive.ObjectID) (LeavePlan, error) {
	if !g.HasMember(userID) {
		return LeavePlan{}, ErrNotMember
	}
	if !g.IsCreator(userID) {
		return LeavePlan{}, nil
	}

	for _, id := range g.Admins {
		if id != userID {
			return LeavePlan{NewCreator: id}, nil
		}
	}
	for _, id := range g.Members {
		if id != userID {
			return LeavePlan{NewCreator: id, PromoteSuccessor: true}, nil
		}
	}
	return LeavePlan{Delete: true}, nil
}
