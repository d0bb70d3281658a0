// internal/app/chat/groups.go
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	activitystore "github.com/dalemusser/chathub/internal/app/store/activity"
	groupstore "github.com/dalemusser/chathub/internal/app/store/groups"
	messagestore "github.com/dalemusser/chathub/internal/app/store/messages"
	userstore "github.com/dalemusser/chathub/internal/app/store/users"
	"github.com/dalemusser/chathub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/chathub/internal/app/system/limits"
	"github.com/dalemusser/chathub/internal/app/system/normalize"
	"github.com/dalemusser/chathub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// GroupService owns the group lifecycle: creation, membership, admin roles,
// ownership succession, and the fan-out of group events to live connections.
// Policy checks come from grouppolicy via the handlers' loaded group copy;
// the service re-checks nothing it was not handed.
type GroupService struct {
	groups   *groupstore.Store
	users    *userstore.Store
	messages *messagestore.Store
	activity *activitystore.Store
	notify   Notifier
	log      *zap.Logger
}

func NewGroupService(
	groups *groupstore.Store,
	users *userstore.Store,
	messages *messagestore.Store,
	activity *activitystore.Store,
	notify Notifier,
	log *zap.Logger,
) *GroupService {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &GroupService{
		groups:   groups,
		users:    users,
		messages: messages,
		activity: activity,
		notify:   notify,
		log:      log,
	}
}

// EnsureMember loads a group and verifies the user belongs to it. The
// realtime layer uses this before relaying group-scoped signals.
func (s *GroupService) EnsureMember(ctx context.Context, userID, groupID primitive.ObjectID) (models.Group, error) {
	g, err := s.Load(ctx, groupID)
	if err != nil {
		return models.Group{}, err
	}
	if err := canView(&g, userID); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// Load fetches a group for policy checks and reads.
func (s *GroupService) Load(ctx context.Context, groupID primitive.ObjectID) (models.Group, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err == mongo.ErrNoDocuments {
		return models.Group{}, NotFoundError("group not found")
	}
	if err != nil {
		return models.Group{}, UpstreamError("could not load group", err)
	}
	return g, nil
}

type CreateGroupInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Avatar      string   `json:"avatar"`
	MemberIDs   []string `json:"member_ids"`
}

// Create makes a new group with the caller as creator, sole admin, and first
// member. Invited users become plain members immediately; there is no invite
// acceptance step. Each invitee who is online is told about the new group.
func (s *GroupService) Create(ctx context.Context, creatorID primitive.ObjectID, in CreateGroupInput) (GroupDetail, error) {
	name, err := cleanGroupName(in.Name)
	if err != nil {
		return GroupDetail{}, err
	}
	desc, err := cleanGroupDescription(in.Description)
	if err != nil {
		return GroupDetail{}, err
	}

	invitees, err := parseIDSet(in.MemberIDs, creatorID)
	if err != nil {
		return GroupDetail{}, err
	}
	if len(invitees) > 0 {
		n, err := s.users.CountByIDs(ctx, invitees)
		if err != nil {
			return GroupDetail{}, UpstreamError("could not validate members", err)
		}
		if n != int64(len(invitees)) {
			return GroupDetail{}, ValidationError("one or more invited users do not exist")
		}
	}
	if 1+len(invitees) > limits.MaxGroupMembers {
		return GroupDetail{}, ValidationError(fmt.Sprintf("a group cannot have more than %d members", limits.MaxGroupMembers))
	}

	g := models.Group{
		Name:        name,
		Description: desc,
		Avatar:      strings.TrimSpace(in.Avatar),
		Members:     append([]primitive.ObjectID{creatorID}, invitees...),
		Admins:      []primitive.ObjectID{creatorID},
		CreatedBy:   creatorID,
	}
	g, err = s.groups.Create(ctx, g)
	if err != nil {
		return GroupDetail{}, UpstreamError("could not create group", err)
	}
	if err := s.activity.Init(ctx, g.ID, g.Members); err != nil {
		s.log.Warn("activity init failed", zap.String("group_id", g.ID.Hex()), zap.Error(err))
	}

	detail, err := s.detail(ctx, g)
	if err != nil {
		return GroupDetail{}, err
	}
	s.notify.NotifyUsers(hexIDsExcept(g.Members, creatorID), EventGroupCreated, detail)
	s.log.Info("group created",
		zap.String("group_id", g.ID.Hex()),
		zap.String("created_by", creatorID.Hex()),
		zap.Int("members", len(g.Members)))
	return detail, nil
}

// AddMembers invites more users into an existing group. Users who are
// already members are skipped; if everyone was already in, the call is a
// conflict so the client can tell the difference.
func (s *GroupService) AddMembers(ctx context.Context, actorID, groupID primitive.ObjectID, memberIDs []string) (GroupDetail, error) {
	g, err := s.Load(ctx, groupID)
	if err != nil {
		return GroupDetail{}, err
	}
	if err := canAddMembers(&g, actorID); err != nil {
		return GroupDetail{}, err
	}

	candidates, err := parseIDSet(memberIDs, primitive.NilObjectID)
	if err != nil {
		return GroupDetail{}, err
	}
	var newcomers []primitive.ObjectID
	for _, id := range candidates {
		if !g.HasMember(id) {
			newcomers = append(newcomers, id)
		}
	}
	if len(newcomers) == 0 {
		return GroupDetail{}, ConflictError("all of those users are already members")
	}

	n, err := s.users.CountByIDs(ctx, newcomers)
	if err != nil {
		return GroupDetail{}, UpstreamError("could not validate members", err)
	}
	if n != int64(len(newcomers)) {
		return GroupDetail{}, ValidationError("one or more invited users do not exist")
	}
	if len(g.Members)+len(newcomers) > limits.MaxGroupMembers {
		return GroupDetail{}, ValidationError(fmt.Sprintf("a group cannot have more than %d members", limits.MaxGroupMembers))
	}

	if err := s.groups.AddMembers(ctx, groupID, newcomers); err != nil {
		return GroupDetail{}, UpstreamError("could not add members", err)
	}
	if err := s.activity.Init(ctx, groupID, newcomers); err != nil {
		s.log.Warn("activity init failed", zap.String("group_id", groupID.Hex()), zap.Error(err))
	}

	g, err = s.Load(ctx, groupID)
	if err != nil {
		return GroupDetail{}, err
	}
	detail, err := s.detail(ctx, g)
	if err != nil {
		return GroupDetail{}, err
	}
	// Newcomers get a dedicated event so their clients can open the
	// conversation; everyone already in the room just sees the roster grow.
	s.notify.NotifyUsers(hexIDs(newcomers), EventAddedToGroup, map[string]any{
		"group":    detail,
		"added_by": actorID.Hex(),
	})
	isNew := make(map[primitive.ObjectID]bool, len(newcomers))
	for _, id := range newcomers {
		isNew[id] = true
	}
	var veterans []string
	for _, id := range g.Members {
		if id != actorID && !isNew[id] {
			veterans = append(veterans, id.Hex())
		}
	}
	s.notify.NotifyUsers(veterans, EventMembersAdded, map[string]any{
		"group":       detail,
		"added_by":    actorID.Hex(),
		"new_members": hexIDs(newcomers),
	})
	return detail, nil
}

// Join adds the caller to a group from the public directory.
func (s *GroupService) Join(ctx context.Context, userID, groupID primitive.ObjectID) (GroupDetail, error) {
	g, err := s.Load(ctx, groupID)
	if err != nil {
		return GroupDetail{}, err
	}
	if g.HasMember(userID) {
		return GroupDetail{}, ConflictError("you are already a member of this group")
	}
	if len(g.Members)+1 > limits.MaxGroupMembers {
		return GroupDetail{}, ValidationError("this group is full")
	}

	if err := s.groups.AddMembers(ctx, groupID, []primitive.ObjectID{userID}); err != nil {
		return GroupDetail{}, UpstreamError("could not join group", err)
	}
	if err := s.activity.Init(ctx, groupID, []primitive.ObjectID{userID}); err != nil {
		s.log.Warn("activity init failed", zap.String("group_id", groupID.Hex()), zap.Error(err))
	}

	g, err = s.Load(ctx, groupID)
	if err != nil {
		return GroupDetail{}, err
	}
	detail, err := s.detail(ctx, g)
	if err != nil {
		return GroupDetail{}, err
	}
	s.notify.NotifyUsers(hexIDsExcept(g.Members, userID), EventMembersAdded, map[string]any{
		"group":       detail,
		"added_by":    userID.Hex(),
		"new_members": []string{userID.Hex()},
	})
	return detail, nil
}

// RemoveMember is an admin-initiated eviction. The evicted user gets a
// dedicated event so their client can drop the conversation.
func (s *GroupService) RemoveMember(ctx context.Context, actorID, groupID, targetID primitive.ObjectID) error {
	g, err := s.Load(ctx, groupID)
	if err != nil {
		return err
	}
	if err := canRemoveMember(&g, actorID, targetID); err != nil {
		return err
	}

	if err := s.groups.RemoveMember(ctx, groupID, targetID); err != nil {
		return UpstreamError("could not remove member", err)
	}
	if err := s.activity.Delete(ctx, groupID, targetID); err != nil {
		s.log.Warn("activity delete failed", zap.String("group_id", groupID.Hex()), zap.Error(err))
	}

	s.notify.NotifyUser(targetID.Hex(), EventRemovedFromGroup, map[string]any{
		"group_id":   groupID.Hex(),
		"group_name": g.Name,
		"removed_by": actorID.Hex(),
	})
	remaining := make([]primitive.ObjectID, 0, len(g.Members))
	for _, id := range g.Members {
		if id != targetID {
			remaining = append(remaining, id)
		}
	}
	s.notify.NotifyUsers(hexIDsExcept(remaining, actorID), EventMemberRemoved, map[string]any{
		"group_id":   groupID.Hex(),
		"user_id":    targetID.Hex(),
		"removed_by": actorID.Hex(),
	})
	return nil
}

// Promote grants admin to a member.
func (s *GroupService) Promote(ctx context.Context, actorID, groupID, targetID primitive.ObjectID) error {
	g, err := s.Load(ctx, groupID)
	if err != nil {
		return err
	}
	if err := canPromote(&g, actorID, targetID); err != nil {
		return err
	}
	if err := s.groups.PromoteAdmin(ctx, groupID, targetID); err != nil {
		return UpstreamError("could not update admins", err)
	}
	s.notify.NotifyUsers(hexIDsExcept(g.Members, actorID), EventAdminUpdated, map[string]any{
		"group_id": groupID.Hex(),
		"user_id":  targetID.Hex(),
		"action":   "promoted",
	})
	return nil
}

// Demote strips a member's admin role.
func (s *GroupService) Demote(ctx context.Context, actorID, groupID, targetID primitive.ObjectID) error {
	g, err := s.Load(ctx, groupID)
	if err != nil {
		return err
	}
	if err := canDemote(&g, actorID, targetID); err != nil {
		return err
	}
	if err := s.groups.DemoteAdmin(ctx, groupID, targetID); err != nil {
		return UpstreamError("could not update admins", err)
	}
	s.notify.NotifyUsers(hexIDsExcept(g.Members, actorID), EventAdminUpdated, map[string]any{
		"group_id": groupID.Hex(),
		"user_id":  targetID.Hex(),
		"action":   "demoted",
	})
	return nil
}

// Leave removes the caller from the group and resolves ownership. When the
// creator leaves, ownership passes to the first remaining admin, else the
// first remaining member (promoted on the way in). The last member out
// deletes the group and everything it owns.
func (s *GroupService) Leave(ctx context.Context, userID, groupID primitive.ObjectID) error {
	g, err := s.Load(ctx, groupID)
	if err != nil {
		return err
	}
	plan, err := planLeave(&g, userID)
	if err != nil {
		return err
	}

	if plan.Delete {
		return s.destroy(ctx, g)
	}

	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return UpstreamError("could not leave group", err)
	}
	if err := s.activity.Delete(ctx, groupID, userID); err != nil {
		s.log.Warn("activity delete failed", zap.String("group_id", groupID.Hex()), zap.Error(err))
	}

	payload := map[string]any{
		"group_id": groupID.Hex(),
		"user_id":  userID.Hex(),
	}
	if !plan.NewCreator.IsZero() {
		admins := make([]primitive.ObjectID, 0, len(g.Admins))
		for _, id := range g.Admins {
			if id != userID {
				admins = append(admins, id)
			}
		}
		if plan.PromoteSuccessor {
			admins = append(admins, plan.NewCreator)
		}
		if err := s.groups.TransferOwnership(ctx, groupID, plan.NewCreator, admins); err != nil {
			return UpstreamError("could not transfer ownership", err)
		}
		payload["new_creator"] = plan.NewCreator.Hex()
		s.log.Info("group ownership transferred",
			zap.String("group_id", groupID.Hex()),
			zap.String("from", userID.Hex()),
			zap.String("to", plan.NewCreator.Hex()))
	}

	s.notify.NotifyUsers(hexIDsExcept(g.Members, userID), EventMemberLeft, payload)
	return nil
}

// Delete is the creator tearing the group down. Members are notified before
// the cascade so the event carries a group they can still name.
func (s *GroupService) Delete(ctx context.Context, actorID, groupID primitive.ObjectID) error {
	g, err := s.Load(ctx, groupID)
	if err != nil {
		return err
	}
	if err := canDelete(&g, actorID); err != nil {
		return err
	}
	s.notify.NotifyUsers(hexIDsExcept(g.Members, actorID), EventGroupDeleted, map[string]any{
		"group_id":   groupID.Hex(),
		"group_name": g.Name,
	})
	return s.destroy(ctx, g)
}

// destroy cascades: messages first, then activity, then the group document.
// A crash mid-cascade leaves orphans that the unique activity index and
// group-scoped queries make harmless.
func (s *GroupService) destroy(ctx context.Context, g models.Group) error {
	if _, err := s.messages.DeleteByGroup(ctx, g.ID); err != nil {
		return UpstreamError("could not delete group messages", err)
	}
	if _, err := s.activity.DeleteByGroup(ctx, g.ID); err != nil {
		return UpstreamError("could not delete group activity", err)
	}
	if _, err := s.groups.Delete(ctx, g.ID); err != nil {
		return UpstreamError("could not delete group", err)
	}
	s.log.Info("group deleted", zap.String("group_id", g.ID.Hex()), zap.String("name", g.Name))
	return nil
}

type UpdateGroupInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Avatar      *string `json:"avatar"`
}

// Update patches group info. Nil fields are left alone.
func (s *GroupService) Update(ctx context.Context, actorID, groupID primitive.ObjectID, in UpdateGroupInput) (GroupDetail, error) {
	g, err := s.Load(ctx, groupID)
	if err != nil {
		return GroupDetail{}, err
	}
	if err := canUpdateInfo(&g, actorID); err != nil {
		return GroupDetail{}, err
	}
	if in.Name == nil && in.Description == nil && in.Avatar == nil {
		return GroupDetail{}, ValidationError("nothing to update")
	}

	if in.Name != nil {
		name, err := cleanGroupName(*in.Name)
		if err != nil {
			return GroupDetail{}, err
		}
		in.Name = &name
	}
	if in.Description != nil {
		desc, err := cleanGroupDescription(*in.Description)
		if err != nil {
			return GroupDetail{}, err
		}
		in.Description = &desc
	}

	if err := s.groups.UpdateInfo(ctx, groupID, in.Name, in.Description, in.Avatar); err != nil {
		return GroupDetail{}, UpstreamError("could not update group", err)
	}

	g, err = s.Load(ctx, groupID)
	if err != nil {
		return GroupDetail{}, err
	}
	detail, err := s.detail(ctx, g)
	if err != nil {
		return GroupDetail{}, err
	}
	s.notify.NotifyUsers(hexIDsExcept(g.Members, actorID), EventGroupUpdated, detail)
	return detail, nil
}

// ListMine returns the caller's groups with unread counts, most recently
// active first.
func (s *GroupService) ListMine(ctx context.Context, userID primitive.ObjectID) ([]GroupSummary, error) {
	groups, err := s.groups.ListByMember(ctx, userID)
	if err != nil {
		return nil, UpstreamError("could not list groups", err)
	}

	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		sum := NewGroupSummary(g)

		// No watermark means everything by others counts as unread.
		var since time.Time
		act, err := s.activity.Get(ctx, g.ID, userID)
		if err == nil {
			since = act.LastSeen
		} else if err != mongo.ErrNoDocuments {
			return nil, UpstreamError("could not load activity", err)
		}

		sum.UnreadCount, err = s.messages.CountUnread(ctx, g.ID, userID, since)
		if err != nil {
			return nil, UpstreamError("could not count unread", err)
		}
		out = append(out, sum)
	}
	return out, nil
}

// Directory pages through all groups for discovery, with optional name
// search.
func (s *GroupService) Directory(ctx context.Context, search string, page, limit int, sort string) (DirectoryPage, error) {
	groups, total, err := s.groups.Directory(ctx, normalize.QueryParam(search), page, limit, sort)
	if err != nil {
		return DirectoryPage{}, UpstreamError("could not list groups", err)
	}
	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, NewGroupSummary(g))
	}
	return DirectoryPage{Groups: out, Total: total, Page: page, Limit: limit}, nil
}

// Members lists a group's populated member profiles. Members only.
func (s *GroupService) Members(ctx context.Context, userID, groupID primitive.ObjectID) ([]UserSummary, error) {
	g, err := s.Load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := canView(&g, userID); err != nil {
		return nil, err
	}
	users, err := s.users.ListByIDs(ctx, g.Members)
	if err != nil {
		return nil, UpstreamError("could not load members", err)
	}
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserSummary(u))
	}
	return out, nil
}

// Detail returns the full group view. Members only.
func (s *GroupService) Detail(ctx context.Context, userID, groupID primitive.ObjectID) (GroupDetail, error) {
	g, err := s.Load(ctx, groupID)
	if err != nil {
		return GroupDetail{}, err
	}
	if err := canView(&g, userID); err != nil {
		return GroupDetail{}, err
	}
	return s.detail(ctx, g)
}

func (s *GroupService) detail(ctx context.Context, g models.Group) (GroupDetail, error) {
	users, err := s.users.ListByIDs(ctx, g.Members)
	if err != nil {
		return GroupDetail{}, UpstreamError("could not load members", err)
	}
	members := make([]UserSummary, 0, len(users))
	for _, u := range users {
		members = append(members, NewUserSummary(u))
	}
	return GroupDetail{
		GroupSummary: NewGroupSummary(g),
		Members:      members,
		Admins:       hexIDs(g.Admins),
	}, nil
}

func cleanGroupName(raw string) (string, error) {
	name := htmlsanitize.PlainText(normalize.Name(raw))
	if name == "" {
		return "", ValidationError("group name is required")
	}
	if len(name) > limits.MaxGroupNameLen {
		return "", ValidationError(fmt.Sprintf("group name cannot exceed %d characters", limits.MaxGroupNameLen))
	}
	return name, nil
}

func cleanGroupDescription(raw string) (string, error) {
	desc := htmlsanitize.PlainText(strings.TrimSpace(raw))
	if len(desc) > limits.MaxGroupDescriptionLen {
		return "", ValidationError(fmt.Sprintf("description cannot exceed %d characters", limits.MaxGroupDescriptionLen))
	}
	return desc, nil
}

// parseIDSet parses and dedupes hex ids, dropping skip (pass NilObjectID to
// keep everything).
func parseIDSet(raw []string, skip primitive.ObjectID) ([]primitive.ObjectID, error) {
	seen := make(map[primitive.ObjectID]struct{}, len(raw))
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, h := range raw {
		id, err := ParseID(h)
		if err != nil {
			return nil, ValidationError("invalid user id: " + h)
		}
		if id == skip {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
