package domain_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/locolive/chat-engine/internal/domain"
	"github.com/locolive/chat-engine/internal/mocks"
	"github.com/locolive/chat-engine/internal/repository"
)

func newBadgerStore(t *testing.T) *repository.BadgerRepository {
	t.Helper()
	db, err := repository.OpenBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewBadgerRepository(db)
}

func TestProfileService_FillsTheDirectory(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := newBadgerStore(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	profiles := domain.NewProfileService(repo, repo, nil, zaptest.NewLogger(t))
	chats := domain.NewChatService(repo, repo, notifier, nil, 3, zaptest.NewLogger(t))
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	// Given nobody has published a profile, chats with them cannot be created
	_, err := chats.CreateGroupChat(ctx, alice, "Team", []uuid.UUID{bob, carol})
	req.ErrorIs(err, domain.ErrNotFound)

	// When every user publishes one
	for id, name := range map[uuid.UUID]string{alice: "alice", bob: "bob", carol: "carol"} {
		_, err := profiles.UpdateProfile(ctx, id, "  "+name+" ", "")
		req.NoError(err)
	}

	// Then the group can be created and shows their names
	chat, err := chats.CreateGroupChat(ctx, alice, "Team", []uuid.UUID{bob, carol})
	req.NoError(err)
	req.ElementsMatch([]string{"alice", "bob", "carol"},
		lo.Map(chat.Members, func(p domain.Profile, _ int) string { return p.Name }))

	got, err := profiles.GetProfile(ctx, bob)
	req.NoError(err)
	req.Equal("bob", got.Name)
	req.Equal(domain.DefaultAvatarURL, got.Avatar())
}

func TestProfileService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	alice := uuid.New()

	t.Run("invalidates the cached profile", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		writer := mocks.NewMockProfileWriter(ctrl)
		cache := mocks.NewMockProfileCache(ctrl)
		service := domain.NewProfileService(writer, nil, cache, zaptest.NewLogger(t))

		want := domain.Profile{ID: alice, Name: "Alice", AvatarURL: "https://cdn.example.com/a.png"}
		gomock.InOrder(
			writer.EXPECT().UpsertUser(gomock.Any(), want).Return(nil),
			cache.EXPECT().Invalidate(gomock.Any(), alice).Return(nil),
		)

		got, err := service.UpdateProfile(ctx, alice, "Alice", "https://cdn.example.com/a.png")
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("cache failure does not fail the update", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		writer := mocks.NewMockProfileWriter(ctrl)
		cache := mocks.NewMockProfileCache(ctrl)
		service := domain.NewProfileService(writer, nil, cache, zaptest.NewLogger(t))

		writer.EXPECT().UpsertUser(gomock.Any(), gomock.Any()).Return(nil)
		cache.EXPECT().Invalidate(gomock.Any(), alice).Return(errors.New("redis down"))

		_, err := service.UpdateProfile(ctx, alice, "Alice", "")
		require.NoError(t, err)
	})

	t.Run("store outage is unavailable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		writer := mocks.NewMockProfileWriter(ctrl)
		service := domain.NewProfileService(writer, nil, nil, zaptest.NewLogger(t))

		writer.EXPECT().UpsertUser(gomock.Any(), gomock.Any()).Return(errors.New("i/o timeout"))

		_, err := service.UpdateProfile(ctx, alice, "Alice", "")
		require.ErrorIs(t, err, domain.ErrUnavailable)
	})

	t.Run("rejects a blank or oversized name", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		service := domain.NewProfileService(mocks.NewMockProfileWriter(ctrl), nil, nil, zaptest.NewLogger(t))

		_, err := service.UpdateProfile(ctx, alice, "   ", "")
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
		_, err = service.UpdateProfile(ctx, alice, strings.Repeat("a", 101), "")
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestProfileService_GetProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	directory := mocks.NewMockUserDirectory(ctrl)
	service := domain.NewProfileService(nil, directory, nil, zaptest.NewLogger(t))
	alice := uuid.New()

	directory.EXPECT().ResolveMany(gomock.Any(), []uuid.UUID{alice}).Return(map[uuid.UUID]domain.Profile{}, nil)
	_, err := service.GetProfile(context.Background(), alice)
	require.ErrorIs(t, err, domain.ErrNotFound)

	directory.EXPECT().ResolveMany(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))
	_, err = service.GetProfile(context.Background(), alice)
	require.ErrorIs(t, err, domain.ErrUnavailable)
}
