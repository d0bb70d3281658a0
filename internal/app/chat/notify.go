// internal/app/chat/notify.go
package chat

// Event names pushed to connected clients. REST handlers and socket ops both
// fan out through the same Notifier, so a client sees the same events no
// matter which surface triggered the change.
const (
	EventGroupCreated     = "group_created"
	EventGroupUpdated     = "group_updated"
	EventGroupDeleted     = "group_deleted"
	EventMembersAdded     = "members_added"
	EventAddedToGroup     = "added_to_group"
	EventMemberRemoved    = "member_removed"
	EventRemovedFromGroup = "removed_from_group"
	EventAdminUpdated     = "admin_updated"
	EventMemberLeft       = "member_left"

	EventNewMessage      = "new_message"
	EventNewGroupMessage = "new_group_message"
	EventMessageRead     = "message_read"

	EventOnlineUsers         = "online_users"
	EventTypingGroup         = "user_typing_group"
	EventStoppedTypingGroup  = "user_stopped_typing_group"
	EventTypingDirect        = "user_typing"
	EventStoppedTypingDirect = "user_stopped_typing"
)

// Notifier delivers an event to a user's live connection, if any. Offline
// recipients are silently skipped; durable state lives in the stores, not in
// the event stream. Implementations must not block the caller.
type Notifier interface {
	NotifyUser(userID string, event string, data any)
	NotifyUsers(userIDs []string, event string, data any)
}

// SetNotifier installs the event sink after construction. The hub consumes
// the services and the services emit through the hub, so wiring happens in
// two steps: services first, then the hub, then this.
func (s *GroupService) SetNotifier(n Notifier) {
	if n != nil {
		s.notify = n
	}
}

// SetNotifier installs the event sink after construction. See
// (*GroupService).SetNotifier.
func (s *MessageService) SetNotifier(n Notifier) {
	if n != nil {
		s.notify = n
	}
}

// NopNotifier drops every event. Used when a service runs without a realtime
// layer (tests, offline tools).
type NopNotifier struct{}

func (NopNotifier) NotifyUser(string, string, any)    {}
func (NopNotifier) NotifyUsers([]string, string, any) {}
