package group

import (
	"github.com/Chrouos/tomato-website-sub000/core/push"
)

// EventPresence is published to a study group's members when one of
// them comes online or goes away.
const EventPresence = "group:presence"

type (
	// PresencePayload is the data part of EventPresence frames.
	PresencePayload struct {
		GroupID string `json:"groupId"`
		UserID  string `json:"userId"`
		Online  bool   `json:"online"`
	}

	// PresenceBroadcaster fans group presence changes out through the
	// notification hub. Group membership itself is managed elsewhere;
	// callers pass the member ids to reach.
	PresenceBroadcaster struct {
		hub *push.Hub
	}
)

func NewPresenceBroadcaster(hub *push.Hub) *PresenceBroadcaster {
	return &PresenceBroadcaster{hub: hub}
}

func (b *PresenceBroadcaster) MemberOnline(groupID, userID string, memberIDs []string) {
	b.publish(groupID, userID, memberIDs, true)
}

func (b *PresenceBroadcaster) MemberOffline(groupID, userID string, memberIDs []string) {
	b.publish(groupID, userID, memberIDs, false)
}

func (b *PresenceBroadcaster) publish(groupID, userID string, memberIDs []string, online bool) {
	b.hub.PublishToUsers(memberIDs, EventPresence, PresencePayload{
		GroupID: groupID,
		UserID:  userID,
		Online:  online,
	})
}
