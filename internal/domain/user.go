//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_directory.go -package=mocks
package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Profile is the presentation metadata of a user.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// Avatar returns the avatar URL, or DefaultAvatarURL when none is set.
func (p Profile) Avatar() string {
	if p.AvatarURL == "" {
		return DefaultAvatarURL
	}
	return p.AvatarURL
}

// UserDirectory resolves user ids to presentation metadata. Unknown ids are
// absent from the result; they do not fail the batch.
type UserDirectory interface {
	ResolveMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Profile, error)
}

// ProfileWriter stores presentation profiles.
type ProfileWriter interface {
	UpsertUser(ctx context.Context, profile Profile) error
}

// ProfileCache drops cached profiles after they change.
type ProfileCache interface {
	Invalidate(ctx context.Context, ids ...uuid.UUID) error
}

// missingUsers returns ErrNotFound naming the ids absent from profiles.
func missingUsers(ids []uuid.UUID, profiles map[uuid.UUID]Profile) error {
	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := profiles[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: unknown users %v", ErrNotFound, missing)
}
