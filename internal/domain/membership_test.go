package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newIDs(n int) []uuid.UUID {
	return lo.Times(n, func(int) uuid.UUID { return uuid.New() })
}

func groupOf(creator uuid.UUID, others ...uuid.UUID) *Chat {
	return &Chat{
		ID:      uuid.New(),
		IsGroup: true,
		Name:    "Team",
		Members: append([]uuid.UUID{creator}, others...),
		Creator: creator,
		Version: 1,
	}
}

func directOf(a, b uuid.UUID) *Chat {
	return &Chat{
		ID:        uuid.New(),
		Members:   []uuid.UUID{a, b},
		DirectKey: DirectKey(a, b),
		Version:   1,
	}
}

func TestDirectKey_IsOrderIndependent(t *testing.T) {
	req := require.New(t)
	a, b := uuid.New(), uuid.New()

	req.Equal(DirectKey(a, b), DirectKey(b, a))
	req.NotEqual(DirectKey(a, b), DirectKey(a, uuid.New()))
}

func TestPlanDirectChat(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	t.Run("returns the pair key", func(t *testing.T) {
		key, err := PlanDirectChat(a, b)
		require.NoError(t, err)
		require.Equal(t, DirectKey(a, b), key)
	})

	t.Run("rejects a chat with yourself", func(t *testing.T) {
		_, err := PlanDirectChat(a, a)
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("rejects a missing member", func(t *testing.T) {
		_, err := PlanDirectChat(a, uuid.Nil)
		require.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestPlanGroupCreation(t *testing.T) {
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	t.Run("adds the creator and deduplicates", func(t *testing.T) {
		req := require.New(t)
		members, err := PlanGroupCreation("Team", []uuid.UUID{bob, carol, bob, alice}, alice)
		req.NoError(err)
		req.Equal([]uuid.UUID{alice, bob, carol}, members)
	})

	t.Run("rejects an empty name", func(t *testing.T) {
		_, err := PlanGroupCreation("   ", []uuid.UUID{bob, carol}, alice)
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("rejects fewer than three distinct members", func(t *testing.T) {
		_, err := PlanGroupCreation("Team", []uuid.UUID{bob, bob, alice}, alice)
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("rejects more than the cap", func(t *testing.T) {
		_, err := PlanGroupCreation("Big", newIDs(MaxChatMembers), alice)
		require.ErrorIs(t, err, ErrLimitExceeded)
	})

	t.Run("accepts exactly the cap", func(t *testing.T) {
		members, err := PlanGroupCreation("Big", newIDs(MaxChatMembers-1), alice)
		require.NoError(t, err)
		require.Len(t, members, MaxChatMembers)
	})
}

func TestPlanAddMembers(t *testing.T) {
	alice, bob, carol, dave := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	t.Run("returns only new members", func(t *testing.T) {
		req := require.New(t)
		added, err := PlanAddMembers(groupOf(alice, bob, carol), []uuid.UUID{bob, dave, dave}, alice)
		req.NoError(err)
		req.Equal([]uuid.UUID{dave}, added)
	})

	t.Run("no-op add is legal", func(t *testing.T) {
		req := require.New(t)
		added, err := PlanAddMembers(groupOf(alice, bob, carol), nil, alice)
		req.NoError(err)
		req.Empty(added)

		added, err = PlanAddMembers(groupOf(alice, bob, carol), []uuid.UUID{bob, carol}, alice)
		req.NoError(err)
		req.Empty(added)
	})

	t.Run("non-creator is not authorized", func(t *testing.T) {
		_, err := PlanAddMembers(groupOf(alice, bob, carol), []uuid.UUID{dave}, bob)
		require.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("direct chat is an invalid state", func(t *testing.T) {
		_, err := PlanAddMembers(directOf(alice, bob), []uuid.UUID{dave}, alice)
		require.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("cap counts unique new members", func(t *testing.T) {
		req := require.New(t)
		chat := groupOf(alice, newIDs(MaxChatMembers-2)...)

		added, err := PlanAddMembers(chat, []uuid.UUID{dave, dave}, alice)
		req.NoError(err)
		req.Len(added, 1)

		_, err = PlanAddMembers(chat, []uuid.UUID{dave, carol}, alice)
		req.ErrorIs(err, ErrLimitExceeded)
	})
}

func TestPlanRemoveMember(t *testing.T) {
	alice, bob, carol, dave := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	t.Run("removes the target", func(t *testing.T) {
		req := require.New(t)
		remaining, err := PlanRemoveMember(groupOf(alice, bob, carol, dave), bob, alice)
		req.NoError(err)
		req.Equal([]uuid.UUID{alice, carol, dave}, remaining)
	})

	t.Run("refuses to go below the floor", func(t *testing.T) {
		_, err := PlanRemoveMember(groupOf(alice, bob, carol), bob, alice)
		require.ErrorIs(t, err, ErrInvariantViolation)
	})

	t.Run("non-creator is not authorized", func(t *testing.T) {
		_, err := PlanRemoveMember(groupOf(alice, bob, carol, dave), carol, bob)
		require.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("direct chat is an invalid state", func(t *testing.T) {
		_, err := PlanRemoveMember(directOf(alice, bob), bob, alice)
		require.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("target must be a member", func(t *testing.T) {
		_, err := PlanRemoveMember(groupOf(alice, bob, carol, dave), uuid.New(), alice)
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("creator cannot remove themselves", func(t *testing.T) {
		_, err := PlanRemoveMember(groupOf(alice, bob, carol, dave), alice, alice)
		require.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestPlanLeave(t *testing.T) {
	alice, bob, carol, dave := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	pickLast := SelectorFunc(func(c []uuid.UUID) uuid.UUID { return c[len(c)-1] })

	t.Run("member leaves", func(t *testing.T) {
		req := require.New(t)
		plan, err := PlanLeave(groupOf(alice, bob, carol, dave), bob, pickLast)
		req.NoError(err)
		req.False(plan.Dissolve)
		req.Equal(uuid.Nil, plan.NewCreator)
		req.Equal([]uuid.UUID{alice, carol, dave}, plan.Members)
	})

	t.Run("creator leaving hands the group over", func(t *testing.T) {
		req := require.New(t)
		plan, err := PlanLeave(groupOf(alice, bob, carol, dave), alice, pickLast)
		req.NoError(err)
		req.Equal(dave, plan.NewCreator)
		req.Contains(plan.Members, plan.NewCreator)
		req.NotContains(plan.Members, alice)
	})

	t.Run("dropping below the floor dissolves", func(t *testing.T) {
		req := require.New(t)
		plan, err := PlanLeave(groupOf(alice, bob, carol), carol, pickLast)
		req.NoError(err)
		req.True(plan.Dissolve)
		req.Equal(uuid.Nil, plan.NewCreator)
	})

	t.Run("non-member is an invalid state", func(t *testing.T) {
		_, err := PlanLeave(groupOf(alice, bob, carol), dave, pickLast)
		require.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("direct chat is an invalid state", func(t *testing.T) {
		_, err := PlanLeave(directOf(alice, bob), alice, pickLast)
		require.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestPlanRenameAndDelete(t *testing.T) {
	req := require.New(t)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	group := groupOf(alice, bob, carol)

	name, err := PlanRename(group, "  Core  ", alice)
	req.NoError(err)
	req.Equal("Core", name)

	_, err = PlanRename(group, "Core", bob)
	req.ErrorIs(err, ErrNotAuthorized)
	_, err = PlanRename(group, " ", alice)
	req.ErrorIs(err, ErrInvalidArgument)
	_, err = PlanRename(directOf(alice, bob), "Core", alice)
	req.ErrorIs(err, ErrInvalidState)

	req.NoError(PlanDelete(group, alice))
	req.ErrorIs(PlanDelete(group, bob), ErrNotAuthorized)
	req.NoError(PlanDelete(directOf(alice, bob), bob))
	req.ErrorIs(PlanDelete(directOf(alice, bob), carol), ErrNotAuthorized)
}

func TestKindOf(t *testing.T) {
	req := require.New(t)

	req.Equal(KindLimitExceeded, KindOf(ErrLimitExceeded))
	req.Equal(KindNotFound, KindOf(errors.Join(errors.New("context"), ErrNotFound)))
	req.Equal(KindInternal, KindOf(errors.New("boom")))
	req.Equal(KindInternal, KindOf(nil))
}
