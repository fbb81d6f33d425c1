package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// SessionMessage is the frame written to a member's session.
type SessionMessage struct {
	Type    string `json:"type"`
	Payload Event  `json:"payload"`
}

// NotificationService fans events out to the online sessions of chat members.
// Delivery is best-effort and at most once per session; nothing is queued for
// offline members.
type NotificationService struct {
	sessions    SessionSender
	relay       Broadcaster
	sendTimeout time.Duration
	logger      *zap.Logger
}

// NewNotificationService builds the fanout. relay may be nil, in which case
// only sessions held by this process are reached.
func NewNotificationService(sessions SessionSender, relay Broadcaster, sendTimeout time.Duration, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		sessions:    sessions,
		relay:       relay,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Publish implements Notifier.
func (s *NotificationService) Publish(ctx context.Context, event Event, memberIDs []uuid.UUID) {
	recipients := lo.Uniq(memberIDs)
	if len(recipients) == 0 {
		return
	}
	delivery := Delivery{Event: event, MemberIDs: recipients}

	if s.relay != nil {
		// The mutation is already committed; a caller that gave up must not
		// cancel the fanout, only the send bound applies.
		relayCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sendTimeout)
		defer cancel()

		err := s.relay.Broadcast(relayCtx, delivery)
		if err == nil {
			return
		}
		s.logger.Warn("Relay publish failed, delivering to local sessions only",
			zap.String("kind", event.Kind.String()),
			zap.String("chat_id", event.ChatID.String()),
			zap.Error(err),
		)
	}

	s.Deliver(delivery)
}

// Deliver writes the delivery to the sessions held by this process and
// returns the number of sessions reached.
func (s *NotificationService) Deliver(delivery Delivery) int {
	msg := SessionMessage{Type: delivery.Event.Kind.String(), Payload: delivery.Event}

	delivered := 0
	for _, userID := range delivery.MemberIDs {
		delivered += s.sessions.SendToUser(userID, msg)
	}

	s.logger.Debug("Notification delivered",
		zap.String("kind", delivery.Event.Kind.String()),
		zap.String("chat_id", delivery.Event.ChatID.String()),
		zap.Int("recipients", len(delivery.MemberIDs)),
		zap.Int("sessions", delivered),
	)
	return delivered
}
