// Package notification keeps per-user in-app notifications and the outbound
// message log written by the messaging dispatcher.
package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/messaging"
)

const (
	TypeAppointment = "APPOINTMENT"
	TypeInvoice     = "INVOICE"
	TypePayment     = "PAYMENT"
	TypeSystem      = "SYSTEM"
	TypeReminder    = "REMINDER"
)

func ValidType(t string) bool {
	switch t {
	case TypeAppointment, TypeInvoice, TypePayment, TypeSystem, TypeReminder:
		return true
	}
	return false
}

type Notification struct {
	ID     uuid.UUID `json:"id" db:"id"`
	UserID uuid.UUID `json:"user_id" db:"user_id"`

	NotificationType string `json:"notification_type" db:"notification_type"`
	Title            string `json:"title" db:"title"`
	Message          string `json:"message" db:"message"`
	LinkURL          string `json:"link_url" db:"link_url"`

	IsRead bool       `json:"is_read" db:"is_read"`
	ReadAt *time.Time `json:"read_at" db:"read_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MessageLog is one outbound email or SMS dispatch attempt.
type MessageLog struct {
	ID uuid.UUID `json:"id" db:"id"`

	Channel    messaging.Channel `json:"channel" db:"channel"`
	Recipient  string            `json:"recipient" db:"recipient"`
	Subject    string            `json:"subject" db:"subject"`
	Body       string            `json:"body" db:"body"`
	TemplateID string            `json:"template_id" db:"template_id"`

	Status       string    `json:"status" db:"status"`
	ErrorMessage string    `json:"error_message" db:"error_message"`
	SentAt       time.Time `json:"sent_at" db:"sent_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
