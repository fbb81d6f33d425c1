//go:generate go run go.uber.org/mock/mockgen -source=notification.go -destination=../mocks/mock_notification.go -package=mocks
package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// EventKind is the closed set of events sent to chat members.
type EventKind uint8

const (
	EventAlert EventKind = iota + 1
	EventChatListRefresh
)

func (k EventKind) String() string {
	switch k {
	case EventAlert:
		return "ALERT"
	case EventChatListRefresh:
		return "CHAT_LIST_REFRESH"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

func (k EventKind) MarshalText() ([]byte, error) {
	switch k {
	case EventAlert, EventChatListRefresh:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("unknown event kind %d", uint8(k))
}

func (k *EventKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ALERT":
		*k = EventAlert
	case "CHAT_LIST_REFRESH":
		*k = EventChatListRefresh
	default:
		return fmt.Errorf("unknown event kind %q", text)
	}
	return nil
}

// RefreshReason tags a CHAT_LIST_REFRESH event.
type RefreshReason string

const (
	ReasonNewGroupChat  RefreshReason = "newGroupChat"
	ReasonAddMembers    RefreshReason = "addMembers"
	ReasonMemberRemoved RefreshReason = "memberRemoved"
	ReasonMemberLeft    RefreshReason = "memberLeft"
	ReasonGroupDeleted  RefreshReason = "groupDeleted"
	ReasonGroupRenamed  RefreshReason = "groupRenamed"
	ReasonChatDeleted   RefreshReason = "chatDeleted"
)

// Event is a notification about one chat.
type Event struct {
	Kind    EventKind     `json:"kind"`
	ChatID  uuid.UUID     `json:"chat_id"`
	Message string        `json:"message,omitempty"`
	Reason  RefreshReason `json:"reason,omitempty"`
}

func NewAlert(chatID uuid.UUID, message string) Event {
	return Event{Kind: EventAlert, ChatID: chatID, Message: message}
}

func NewRefresh(chatID uuid.UUID, reason RefreshReason) Event {
	return Event{Kind: EventChatListRefresh, ChatID: chatID, Reason: reason}
}

// Delivery is an event addressed to a set of members.
type Delivery struct {
	Event     Event       `json:"event"`
	MemberIDs []uuid.UUID `json:"member_ids"`
}

// Notifier is the notification channel used by the engine. Publish is
// fire-and-forget: failures are handled and logged by the implementation.
type Notifier interface {
	Publish(ctx context.Context, event Event, memberIDs []uuid.UUID)
}

// SessionSender delivers a message to the online sessions of one user and
// returns how many sessions accepted it.
type SessionSender interface {
	SendToUser(userID uuid.UUID, message interface{}) int
}

// Broadcaster relays deliveries to every process that holds sessions.
type Broadcaster interface {
	Broadcast(ctx context.Context, delivery Delivery) error
}
