package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/clinicore/internal/platform/messaging"
	"github.com/clinicore/clinicore/internal/platform/websocket"
)

var (
	ErrNotFound      = errors.New("notification not found")
	ErrInvalidType   = errors.New("invalid notification type")
	ErrTitleRequired = errors.New("title is required")
)

// Broadcaster pushes notification events to websocket subscribers.
// Satisfied by *websocket.Hub.
type Broadcaster interface {
	Broadcast(topic string, event websocket.Event)
}

type Service struct {
	notifications Repository
	logs          LogRepository
	events        Broadcaster
}

func NewService(notifications Repository, logs LogRepository, events Broadcaster) *Service {
	return &Service{
		notifications: notifications,
		logs:          logs,
		events:        events,
	}
}

// Notify stores a notification and pushes it to the user's websocket topic.
func (s *Service) Notify(ctx context.Context, n *Notification) error {
	if !ValidType(n.NotificationType) {
		return ErrInvalidType
	}
	if n.Title == "" {
		return ErrTitleRequired
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return err
	}
	s.events.Broadcast(websocket.NotificationsTopic(n.UserID),
		websocket.NewEvent("notification.created", websocket.NotificationsTopic(n.UserID),
			"notification", n.ID, n))
	return nil
}

func (s *Service) Get(ctx context.Context, id, userID uuid.UUID) (*Notification, error) {
	return s.notifications.GetByID(ctx, id, userID)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Notification, int, error) {
	return s.notifications.List(ctx, userID, filter)
}

func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return s.notifications.Delete(ctx, id, userID)
}

func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) (*Notification, error) {
	n, err := s.notifications.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !n.IsRead {
		now := time.Now()
		n.IsRead = true
		n.ReadAt = &now
		if err := s.notifications.Update(ctx, n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notifications.MarkAllRead(ctx, userID)
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.notifications.UnreadCount(ctx, userID)
}

func (s *Service) ListLogs(ctx context.Context, filter LogFilter) ([]*MessageLog, int, error) {
	return s.logs.List(ctx, filter)
}

// RecordDispatch implements messaging.Recorder, persisting every outbound
// email and SMS attempt. Store failures are logged and swallowed so delivery
// is never blocked on the log table.
func (s *Service) RecordDispatch(ctx context.Context, rec messaging.Record) {
	entry := &MessageLog{
		Channel:      rec.Channel,
		Recipient:    rec.Recipient,
		Subject:      rec.Subject,
		Body:         rec.Body,
		TemplateID:   rec.TemplateID,
		Status:       rec.Status,
		ErrorMessage: rec.Error,
		SentAt:       rec.SentAt,
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		log.Warn().Err(err).
			Str("channel", string(rec.Channel)).
			Str("recipient", rec.Recipient).
			Msg("message log write failed")
	}
}
