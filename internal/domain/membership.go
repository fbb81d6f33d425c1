package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Membership rules are pure: they take the current chat state and a request
// and return either the resulting state or a classified error. No I/O.

// DirectKey is the canonical key of the unordered pair {a, b}.
func DirectKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if y < x {
		x, y = y, x
	}
	return x + ":" + y
}

// PlanDirectChat validates a direct chat between two users and returns the
// pair key used for deduplication.
func PlanDirectChat(memberA, memberB uuid.UUID) (string, error) {
	if memberA == uuid.Nil || memberB == uuid.Nil {
		return "", fmt.Errorf("%w: member id is required", ErrInvalidArgument)
	}
	if memberA == memberB {
		return "", fmt.Errorf("%w: cannot create chat with yourself", ErrInvalidArgument)
	}
	return DirectKey(memberA, memberB), nil
}

// PlanGroupCreation returns the deduplicated member set of a new group, with
// the creator first.
func PlanGroupCreation(name string, requestedMembers []uuid.UUID, creatorID uuid.UUID) ([]uuid.UUID, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: group name is required", ErrInvalidArgument)
	}
	if creatorID == uuid.Nil || lo.Contains(requestedMembers, uuid.Nil) {
		return nil, fmt.Errorf("%w: member id is required", ErrInvalidArgument)
	}

	members := lo.Uniq(append([]uuid.UUID{creatorID}, requestedMembers...))
	if len(members) < MinGroupMembers {
		return nil, fmt.Errorf("%w: a group needs at least %d distinct members, got %d",
			ErrInvalidArgument, MinGroupMembers, len(members))
	}
	if len(members) > MaxChatMembers {
		return nil, fmt.Errorf("%w: a group holds at most %d members, got %d",
			ErrLimitExceeded, MaxChatMembers, len(members))
	}
	return members, nil
}

// PlanAddMembers returns the members to append. An empty result means every
// requested user is already a member.
func PlanAddMembers(chat *Chat, newMemberIDs []uuid.UUID, requesterID uuid.UUID) ([]uuid.UUID, error) {
	if !chat.IsGroup {
		return nil, fmt.Errorf("%w: not a group chat", ErrInvalidState)
	}
	if !chat.IsCreator(requesterID) {
		return nil, fmt.Errorf("%w: only the group creator can add members", ErrNotAuthorized)
	}
	if lo.Contains(newMemberIDs, uuid.Nil) {
		return nil, fmt.Errorf("%w: member id is required", ErrInvalidArgument)
	}

	added := lo.Uniq(lo.Without(newMemberIDs, chat.Members...))
	if total := len(chat.Members) + len(added); total > MaxChatMembers {
		return nil, fmt.Errorf("%w: group would have %d members, limit is %d",
			ErrLimitExceeded, total, MaxChatMembers)
	}
	return added, nil
}

// PlanRemoveMember returns the member set after the creator removes targetID.
// The group floor is enforced here by rejection; PlanLeave dissolves instead.
func PlanRemoveMember(chat *Chat, targetID, requesterID uuid.UUID) ([]uuid.UUID, error) {
	if !chat.IsGroup {
		return nil, fmt.Errorf("%w: not a group chat", ErrInvalidState)
	}
	if !chat.IsCreator(requesterID) {
		return nil, fmt.Errorf("%w: only the group creator can remove members", ErrNotAuthorized)
	}
	if targetID == requesterID {
		return nil, fmt.Errorf("%w: the creator cannot remove themselves, leave the group instead", ErrInvalidArgument)
	}
	if !chat.HasMember(targetID) {
		return nil, fmt.Errorf("%w: user %s is not a member", ErrInvalidArgument, targetID)
	}

	remaining := lo.Without(chat.Members, targetID)
	if len(remaining) < MinGroupMembers {
		return nil, fmt.Errorf("%w: a group needs at least %d members", ErrInvariantViolation, MinGroupMembers)
	}
	return remaining, nil
}

// LeavePlan is the outcome of a member leaving a group.
type LeavePlan struct {
	Members  []uuid.UUID
	Dissolve bool
	// NewCreator is uuid.Nil unless the departing member was the creator.
	NewCreator uuid.UUID
}

// PlanLeave computes the group after requesterID leaves. A group that would
// drop below MinGroupMembers is dissolved; a departing creator is replaced by
// a remaining member chosen by selector.
func PlanLeave(chat *Chat, requesterID uuid.UUID, selector MemberSelector) (LeavePlan, error) {
	if !chat.IsGroup {
		return LeavePlan{}, fmt.Errorf("%w: not a group chat", ErrInvalidState)
	}
	if !chat.HasMember(requesterID) {
		return LeavePlan{}, fmt.Errorf("%w: user %s is not a member", ErrInvalidState, requesterID)
	}

	remaining := lo.Without(chat.Members, requesterID)
	if len(remaining) < MinGroupMembers {
		return LeavePlan{Members: remaining, Dissolve: true}, nil
	}

	plan := LeavePlan{Members: remaining}
	if chat.Creator == requesterID {
		plan.NewCreator = selector.Pick(remaining)
	}
	return plan, nil
}

// PlanRename validates a new group name and returns it trimmed.
func PlanRename(chat *Chat, name string, requesterID uuid.UUID) (string, error) {
	if !chat.IsGroup {
		return "", fmt.Errorf("%w: not a group chat", ErrInvalidState)
	}
	if !chat.IsCreator(requesterID) {
		return "", fmt.Errorf("%w: only the group creator can rename the group", ErrNotAuthorized)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: group name is required", ErrInvalidArgument)
	}
	return name, nil
}

// PlanDelete checks that requesterID may delete the chat: the creator for a
// group, any member for a direct chat.
func PlanDelete(chat *Chat, requesterID uuid.UUID) error {
	if chat.IsGroup && !chat.IsCreator(requesterID) {
		return fmt.Errorf("%w: only the group creator can delete the group", ErrNotAuthorized)
	}
	if !chat.IsGroup && !chat.HasMember(requesterID) {
		return fmt.Errorf("%w: not a member of this chat", ErrNotAuthorized)
	}
	return nil
}
