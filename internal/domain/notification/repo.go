package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/messaging"
)

type ListFilter struct {
	Type       string
	UnreadOnly bool
	Limit      int
	Offset     int
}

// Repository stores notifications. All reads and writes are scoped to the
// owning user.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*Notification, error)
	Update(ctx context.Context, n *Notification) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Notification, int, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}

type LogFilter struct {
	Channel   messaging.Channel
	Status    string
	Recipient string
	Limit     int
	Offset    int
}

// LogRepository is the append-only store behind the dispatch recorder.
type LogRepository interface {
	Insert(ctx context.Context, entry *MessageLog) error
	List(ctx context.Context, filter LogFilter) ([]*MessageLog, int, error)
}
