package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxProfileNameLength = 100

// ProfileService lets an authenticated user publish the name and avatar other
// members see. It is how the embedded store's directory gets filled.
type ProfileService struct {
	writer    ProfileWriter
	directory UserDirectory
	cache     ProfileCache
	logger    *zap.Logger
}

// NewProfileService builds the service. cache may be nil when profiles are
// read straight from the store.
func NewProfileService(writer ProfileWriter, directory UserDirectory, cache ProfileCache, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		writer:    writer,
		directory: directory,
		cache:     cache,
		logger:    logger,
	}
}

// UpdateProfile creates or replaces the profile of userID.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, name, avatarURL string) (Profile, error) {
	name = strings.TrimSpace(name)
	if userID == uuid.Nil {
		return Profile{}, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	if name == "" {
		return Profile{}, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if len(name) > maxProfileNameLength {
		return Profile{}, fmt.Errorf("%w: name is longer than %d characters", ErrInvalidArgument, maxProfileNameLength)
	}

	profile := Profile{ID: userID, Name: name, AvatarURL: strings.TrimSpace(avatarURL)}
	if err := s.writer.UpsertUser(ctx, profile); err != nil {
		return Profile{}, storeError(err)
	}

	if s.cache != nil {
		// A stale entry expires with its TTL; the write itself succeeded.
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			s.logger.Warn("Failed to invalidate cached profile",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Profile updated", zap.String("user_id", userID.String()))
	return profile, nil
}

// GetProfile returns the profile of userID.
func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (Profile, error) {
	profiles, err := s.directory.ResolveMany(ctx, []uuid.UUID{userID})
	if err != nil {
		return Profile{}, fmt.Errorf("%w: resolve users: %v", ErrUnavailable, err)
	}
	if err := missingUsers([]uuid.UUID{userID}, profiles); err != nil {
		return Profile{}, err
	}
	return profiles[userID], nil
}
