//go:generate go run go.uber.org/mock/mockgen -source=chat.go -destination=../mocks/mock_chat_store.go -package=mocks
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	MinDirectMembers = 2
	MinGroupMembers  = 3
	MaxChatMembers   = 100

	// DefaultAvatarURL is shown for members without an uploaded avatar.
	DefaultAvatarURL = "https://ui-avatars.com/api/?name=User"

	maxSummaryAvatars = 3
)

// Chat is a direct (two-party) or group conversation.
type Chat struct {
	ID        uuid.UUID   `json:"id"`
	IsGroup   bool        `json:"is_group"`
	Name      string      `json:"name,omitempty"`
	Members   []uuid.UUID `json:"members"`
	Creator   uuid.UUID   `json:"creator"`
	DirectKey string      `json:"-"`
	Version   int64       `json:"-"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// HasMember reports whether userID belongs to the chat.
func (c *Chat) HasMember(userID uuid.UUID) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// IsCreator reports whether userID created the group. Direct chats have no creator.
func (c *Chat) IsCreator(userID uuid.UUID) bool {
	return c.IsGroup && c.Creator == userID
}

// ChatDetails is a chat with its members resolved against the directory.
type ChatDetails struct {
	ID        uuid.UUID  `json:"id"`
	IsGroup   bool       `json:"is_group"`
	Name      string     `json:"name,omitempty"`
	Creator   *uuid.UUID `json:"creator,omitempty"`
	Members   []Profile  `json:"members"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ChatSummary is the chat list projection for one viewer.
type ChatSummary struct {
	ID      uuid.UUID   `json:"id"`
	IsGroup bool        `json:"is_group"`
	Name    string      `json:"name"`
	Avatars []string    `json:"avatars"`
	Members []uuid.UUID `json:"members"`
}

// GroupSummary is the projection of a group created by the viewer.
type GroupSummary struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	IsGroup bool      `json:"is_group"`
	Avatars []string  `json:"avatars"`
}

// ChatStore is the durable holder of chat records. Implementations apply their
// own per-call timeout, return ErrNotFound for missing records and ErrConflict
// for lost compare-and-swap races or a duplicate direct pair.
type ChatStore interface {
	GetChat(ctx context.Context, id uuid.UUID) (*Chat, error)
	FindDirectChat(ctx context.Context, userA, userB uuid.UUID) (*Chat, error)
	ListChatsByMember(ctx context.Context, userID uuid.UUID) ([]*Chat, error)
	ListGroupsByCreator(ctx context.Context, userID uuid.UUID) ([]*Chat, error)
	InsertChat(ctx context.Context, chat *Chat) (*Chat, error)
	UpdateMembers(ctx context.Context, id uuid.UUID, members []uuid.UUID, expectedVersion int64) (*Chat, error)
	UpdateCreator(ctx context.Context, id uuid.UUID, creator uuid.UUID, expectedVersion int64) (*Chat, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string, expectedVersion int64) (*Chat, error)
	DeleteChat(ctx context.Context, id uuid.UUID, expectedVersion int64) error
}
