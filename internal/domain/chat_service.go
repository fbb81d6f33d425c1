package domain

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ChatService owns the chat lifecycle. Every mutation is a read-validate-write
// cycle that runs under a per-chat lock and commits with compare-and-swap, so
// concurrent requests on one chat never both pass a check against stale state.
type ChatService struct {
	store       ChatStore
	directory   UserDirectory
	notifier    Notifier
	selector    MemberSelector
	locks       *KeyedMutex
	maxAttempts int
	logger      *zap.Logger
}

// NewChatService builds the engine. A nil selector picks new creators at
// random; maxAttempts bounds retries after a lost compare-and-swap.
func NewChatService(
	store ChatStore,
	directory UserDirectory,
	notifier Notifier,
	selector MemberSelector,
	maxAttempts int,
	logger *zap.Logger,
) *ChatService {
	if selector == nil {
		selector = RandomSelector{}
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ChatService{
		store:       store,
		directory:   directory,
		notifier:    notifier,
		selector:    selector,
		locks:       NewKeyedMutex(),
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

type notification struct {
	event      Event
	recipients []uuid.UUID
}

func alertAndRefresh(chatID uuid.UUID, message string, reason RefreshReason, recipients []uuid.UUID) []notification {
	return []notification{
		{event: NewAlert(chatID, message), recipients: recipients},
		{event: NewRefresh(chatID, reason), recipients: recipients},
	}
}

// CreateDirectChat returns the direct chat between the two users, creating it
// when absent. An existing chat is returned unchanged. No event is emitted.
func (s *ChatService) CreateDirectChat(ctx context.Context, requesterID, otherUserID uuid.UUID) (*ChatDetails, error) {
	key, err := PlanDirectChat(requesterID, otherUserID)
	if err != nil {
		return nil, err
	}

	profiles, err := s.resolve(ctx, []uuid.UUID{requesterID, otherUserID})
	if err != nil {
		return nil, err
	}
	if err := missingUsers([]uuid.UUID{otherUserID}, profiles); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock("direct:" + key)
	defer unlock()

	chat, err := s.store.FindDirectChat(ctx, requesterID, otherUserID)
	if err == nil {
		return buildDetails(chat, profiles), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, storeError(err)
	}

	chat, err = s.store.InsertChat(ctx, &Chat{
		IsGroup:   false,
		Members:   []uuid.UUID{requesterID, otherUserID},
		DirectKey: key,
	})
	if errors.Is(err, ErrConflict) {
		// Another process committed the pair first; its chat is the one.
		chat, err = s.store.FindDirectChat(ctx, requesterID, otherUserID)
	}
	if err != nil {
		return nil, storeError(err)
	}

	s.logger.Info("Direct chat created",
		zap.String("chat_id", chat.ID.String()),
		zap.String("requester_id", requesterID.String()),
	)
	return buildDetails(chat, profiles), nil
}

// CreateGroupChat creates a group with requesterID as creator and notifies
// every member.
func (s *ChatService) CreateGroupChat(ctx context.Context, requesterID uuid.UUID, name string, memberIDs []uuid.UUID) (*ChatDetails, error) {
	members, err := PlanGroupCreation(name, memberIDs, requesterID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	profiles, err := s.resolve(ctx, members)
	if err != nil {
		return nil, err
	}
	if err := missingUsers(lo.Without(members, requesterID), profiles); err != nil {
		return nil, err
	}

	chat, err := s.store.InsertChat(ctx, &Chat{
		IsGroup: true,
		Name:    name,
		Members: members,
		Creator: requesterID,
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.logger.Info("Group chat created",
		zap.String("chat_id", chat.ID.String()),
		zap.String("creator_id", requesterID.String()),
		zap.Int("members", len(chat.Members)),
	)
	s.notify(ctx, alertAndRefresh(chat.ID, fmt.Sprintf("Welcome to group: %s", chat.Name), ReasonNewGroupChat, chat.Members)...)

	return buildDetails(chat, profiles), nil
}

// ListChats returns the chat list of userID as that user sees it.
func (s *ChatService) ListChats(ctx context.Context, userID uuid.UUID) ([]ChatSummary, error) {
	chats, err := s.store.ListChatsByMember(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}

	profiles, err := s.resolve(ctx, memberIDsOf(chats))
	if err != nil {
		return nil, err
	}

	return lo.Map(chats, func(chat *Chat, _ int) ChatSummary {
		return summarize(chat, userID, profiles)
	}), nil
}

// ListGroupChatsCreatedBy returns the groups whose creator is userID.
func (s *ChatService) ListGroupChatsCreatedBy(ctx context.Context, userID uuid.UUID) ([]GroupSummary, error) {
	chats, err := s.store.ListGroupsByCreator(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}

	profiles, err := s.resolve(ctx, memberIDsOf(chats))
	if err != nil {
		return nil, err
	}

	return lo.Map(chats, func(chat *Chat, _ int) GroupSummary {
		return GroupSummary{
			ID:      chat.ID,
			Name:    chat.Name,
			IsGroup: true,
			Avatars: avatarsOf(chat.Members, profiles),
		}
	}), nil
}

// GetChat returns a chat with resolved members. Only members may read it.
func (s *ChatService) GetChat(ctx context.Context, chatID, requesterID uuid.UUID) (*ChatDetails, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, storeError(err)
	}
	if !chat.HasMember(requesterID) {
		return nil, fmt.Errorf("%w: not a member of this chat", ErrNotAuthorized)
	}

	profiles, err := s.resolve(ctx, chat.Members)
	if err != nil {
		return nil, err
	}
	return buildDetails(chat, profiles), nil
}

// AddMembers appends memberIDs to a group. Users already in the group are
// skipped; when nothing is left to add no write and no event happen.
func (s *ChatService) AddMembers(ctx context.Context, chatID, requesterID uuid.UUID, memberIDs []uuid.UUID) error {
	return s.mutate(ctx, chatID, func(chat *Chat) ([]notification, error) {
		added, err := PlanAddMembers(chat, memberIDs, requesterID)
		if err != nil {
			return nil, err
		}
		if len(added) == 0 {
			return nil, nil
		}

		profiles, err := s.resolve(ctx, added)
		if err != nil {
			return nil, err
		}
		if err := missingUsers(added, profiles); err != nil {
			return nil, err
		}

		updated, err := s.store.UpdateMembers(ctx, chat.ID, append(slices.Clone(chat.Members), added...), chat.Version)
		if err != nil {
			return nil, storeError(err)
		}

		s.logger.Info("Members added",
			zap.String("chat_id", chat.ID.String()),
			zap.Int("added", len(added)),
			zap.Int("members", len(updated.Members)),
		)
		return alertAndRefresh(chat.ID, "New members added", ReasonAddMembers, updated.Members), nil
	})
}

// RemoveMember removes targetID from a group. The removed member is not
// notified.
func (s *ChatService) RemoveMember(ctx context.Context, chatID, requesterID, targetID uuid.UUID) error {
	return s.mutate(ctx, chatID, func(chat *Chat) ([]notification, error) {
		remaining, err := PlanRemoveMember(chat, targetID, requesterID)
		if err != nil {
			return nil, err
		}

		updated, err := s.store.UpdateMembers(ctx, chat.ID, remaining, chat.Version)
		if err != nil {
			return nil, storeError(err)
		}

		s.logger.Info("Member removed",
			zap.String("chat_id", chat.ID.String()),
			zap.String("target_id", targetID.String()),
		)
		return alertAndRefresh(chat.ID, "A member was removed", ReasonMemberRemoved, updated.Members), nil
	})
}

// LeaveGroup removes requesterID from a group. A group that would fall below
// its minimum size is deleted instead; a departing creator is replaced.
func (s *ChatService) LeaveGroup(ctx context.Context, chatID, requesterID uuid.UUID) error {
	return s.mutate(ctx, chatID, func(chat *Chat) ([]notification, error) {
		plan, err := PlanLeave(chat, requesterID, s.selector)
		if err != nil {
			return nil, err
		}

		if plan.Dissolve {
			if err := s.store.DeleteChat(ctx, chat.ID, chat.Version); err != nil {
				return nil, storeError(err)
			}
			s.logger.Info("Group deleted after member left",
				zap.String("chat_id", chat.ID.String()),
				zap.String("user_id", requesterID.String()),
			)
			message := fmt.Sprintf("Group %s was deleted (too few members)", chat.Name)
			return alertAndRefresh(chat.ID, message, ReasonGroupDeleted, chat.Members), nil
		}

		// Hand the group over before removing the creator so the creator is a
		// member after every committed write.
		if plan.NewCreator != uuid.Nil {
			chat, err = s.store.UpdateCreator(ctx, chat.ID, plan.NewCreator, chat.Version)
			if err != nil {
				return nil, storeError(err)
			}
			s.logger.Info("Group creator reassigned",
				zap.String("chat_id", chat.ID.String()),
				zap.String("creator_id", plan.NewCreator.String()),
			)
		}

		updated, err := s.store.UpdateMembers(ctx, chat.ID, plan.Members, chat.Version)
		if err != nil {
			return nil, storeError(err)
		}

		s.logger.Info("Member left group",
			zap.String("chat_id", chat.ID.String()),
			zap.String("user_id", requesterID.String()),
		)
		message := fmt.Sprintf("%s left the group", s.displayName(ctx, requesterID))
		return alertAndRefresh(chat.ID, message, ReasonMemberLeft, updated.Members), nil
	})
}

// RenameGroup changes the name of a group. Only the creator may rename.
func (s *ChatService) RenameGroup(ctx context.Context, chatID, requesterID uuid.UUID, name string) error {
	return s.mutate(ctx, chatID, func(chat *Chat) ([]notification, error) {
		newName, err := PlanRename(chat, name, requesterID)
		if err != nil {
			return nil, err
		}

		updated, err := s.store.UpdateName(ctx, chat.ID, newName, chat.Version)
		if err != nil {
			return nil, storeError(err)
		}

		s.logger.Info("Group renamed", zap.String("chat_id", chat.ID.String()))
		return []notification{{event: NewRefresh(chat.ID, ReasonGroupRenamed), recipients: updated.Members}}, nil
	})
}

// DeleteChat deletes a group (creator only) or a direct chat (either member).
func (s *ChatService) DeleteChat(ctx context.Context, chatID, requesterID uuid.UUID) error {
	return s.mutate(ctx, chatID, func(chat *Chat) ([]notification, error) {
		if err := PlanDelete(chat, requesterID); err != nil {
			return nil, err
		}
		if err := s.store.DeleteChat(ctx, chat.ID, chat.Version); err != nil {
			return nil, storeError(err)
		}

		s.logger.Info("Chat deleted",
			zap.String("chat_id", chat.ID.String()),
			zap.String("requester_id", requesterID.String()),
		)
		return []notification{{event: NewRefresh(chat.ID, ReasonChatDeleted), recipients: chat.Members}}, nil
	})
}

// mutate runs fn against the current state of one chat while holding the
// chat's lock. fn is retried from a fresh read when its write loses a
// compare-and-swap. Notifications returned by fn are sent after the lock is
// released and only when fn committed.
func (s *ChatService) mutate(ctx context.Context, chatID uuid.UUID, fn func(chat *Chat) ([]notification, error)) error {
	unlock := s.locks.Lock("chat:" + chatID.String())

	var notes []notification
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		var chat *Chat
		chat, err = s.store.GetChat(ctx, chatID)
		if err != nil {
			unlock()
			return storeError(err)
		}

		notes, err = fn(chat)
		if !errors.Is(err, ErrConflict) {
			break
		}
		s.logger.Debug("Chat write lost a concurrent update, retrying",
			zap.String("chat_id", chatID.String()),
			zap.Int("attempt", attempt),
		)
	}
	unlock()

	if errors.Is(err, ErrConflict) {
		s.logger.Warn("Chat write retries exhausted",
			zap.String("chat_id", chatID.String()),
			zap.Int("attempts", s.maxAttempts),
		)
		return fmt.Errorf("%w: chat %s is being modified concurrently", ErrUnavailable, chatID)
	}
	if err != nil {
		return err
	}

	s.notify(ctx, notes...)
	return nil
}

func (s *ChatService) notify(ctx context.Context, notes ...notification) {
	for _, n := range notes {
		s.notifier.Publish(ctx, n.event, n.recipients)
	}
}

func (s *ChatService) resolve(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Profile, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]Profile{}, nil
	}
	profiles, err := s.directory.ResolveMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve users: %v", ErrUnavailable, err)
	}
	return profiles, nil
}

// displayName never fails: it runs after a commit.
func (s *ChatService) displayName(ctx context.Context, userID uuid.UUID) string {
	profiles, err := s.directory.ResolveMany(ctx, []uuid.UUID{userID})
	if err != nil {
		s.logger.Debug("Display name lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
	if p, ok := profiles[userID]; ok && p.Name != "" {
		return p.Name
	}
	return "A member"
}

// storeError keeps classified store errors and reports everything else
// (timeouts, outages) as ErrUnavailable.
func storeError(err error) error {
	if err == nil || isClassified(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func memberIDsOf(chats []*Chat) []uuid.UUID {
	return lo.Uniq(lo.FlatMap(chats, func(chat *Chat, _ int) []uuid.UUID {
		return chat.Members
	}))
}

func profileOf(id uuid.UUID, profiles map[uuid.UUID]Profile) Profile {
	if p, ok := profiles[id]; ok {
		return p
	}
	return Profile{ID: id, Name: "Unknown"}
}

func avatarsOf(members []uuid.UUID, profiles map[uuid.UUID]Profile) []string {
	if len(members) > maxSummaryAvatars {
		members = members[:maxSummaryAvatars]
	}
	return lo.Map(members, func(id uuid.UUID, _ int) string {
		return profileOf(id, profiles).Avatar()
	})
}

// summarize projects a chat for viewerID. A direct chat is presented as the
// other member, and the viewer is left out of its member list.
func summarize(chat *Chat, viewerID uuid.UUID, profiles map[uuid.UUID]Profile) ChatSummary {
	if chat.IsGroup {
		return ChatSummary{
			ID:      chat.ID,
			IsGroup: true,
			Name:    chat.Name,
			Avatars: avatarsOf(chat.Members, profiles),
			Members: slices.Clone(chat.Members),
		}
	}

	others := lo.Without(chat.Members, viewerID)
	summary := ChatSummary{
		ID:      chat.ID,
		Name:    "Unknown",
		Avatars: []string{DefaultAvatarURL},
		Members: others,
	}
	if len(others) > 0 {
		other := profileOf(others[0], profiles)
		summary.Name = other.Name
		summary.Avatars = []string{other.Avatar()}
	}
	return summary
}

func buildDetails(chat *Chat, profiles map[uuid.UUID]Profile) *ChatDetails {
	details := &ChatDetails{
		ID:        chat.ID,
		IsGroup:   chat.IsGroup,
		Name:      chat.Name,
		CreatedAt: chat.CreatedAt,
		UpdatedAt: chat.UpdatedAt,
		Members: lo.Map(chat.Members, func(id uuid.UUID, _ int) Profile {
			return profileOf(id, profiles)
		}),
	}
	if chat.IsGroup {
		creator := chat.Creator
		details.Creator = &creator
	}
	return details
}
