// internal/app/chat/policy.go
package chat

import (
	"errors"

	"github.com/dalemusser/chathub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/chathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The grouppolicy package decides, this file translates. Policy denials
// about a missing target read as not-found, duplicate grants as conflicts,
// everything else as forbidden.
func policyErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, grouppolicy.ErrTargetNotMember),
		errors.Is(err, grouppolicy.ErrTargetNotAdmin):
		return NotFoundError(err.Error())
	case errors.Is(err, grouppolicy.ErrAlreadyAdmin):
		return ConflictError(err.Error())
	default:
		return ForbiddenError(err.Error())
	}
}

func canView(g *models.Group, userID primitive.ObjectID) error {
	return policyErr(grouppolicy.CanView(g, userID))
}

func canAddMembers(g *models.Group, actorID primitive.ObjectID) error {
	return policyErr(grouppolicy.CanAddMembers(g, actorID))
}

func canUpdateInfo(g *models.Group, actorID primitive.ObjectID) error {
	return policyErr(grouppolicy.CanUpdateInfo(g, actorID))
}

func canRemoveMember(g *models.Group, actorID, targetID primitive.ObjectID) error {
	return policyErr(grouppolicy.CanRemoveMember(g, actorID, targetID))
}

func canPromote(g *models.Group, actorID, targetID primitive.ObjectID) error {
	return policyErr(grouppolicy.CanPromote(g, actorID, targetID))
}

func canDemote(g *models.Group, actorID, targetID primitive.ObjectID) error {
	return policyErr(grouppolicy.CanDemote(g, actorID, targetID))
}

func canDelete(g *models.Group, actorID primitive.ObjectID) error {
	return policyErr(grouppolicy.CanDelete(g, actorID))
}

func planLeave(g *models.Group, userID primitive.ObjectID) (grouppolicy.LeavePlan, error) {
	plan, err := grouppolicy.PlanLeave(g, userID)
	if errors.Is(err, grouppolicy.ErrNotMember) {
		return plan, NotFoundError(err.Error())
	}
	return plan, policyErr(err)
}
