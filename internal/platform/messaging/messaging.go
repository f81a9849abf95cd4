// Package messaging delivers outbound email and SMS for the clinic: patient
// appointment reminders, admin credential handoffs, and billing receipts.
// Delivery providers are pluggable behind small sender interfaces; every
// dispatch is reported to a Recorder so the notification domain can persist
// send logs.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Channel is the delivery channel for an outbound message.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

// Delivery statuses recorded for each dispatch.
const (
	StatusSent   = "SENT"
	StatusFailed = "FAILED"
)

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender is the interface for sending SMS messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Record describes a completed dispatch attempt.
type Record struct {
	Channel    Channel
	Recipient  string
	Subject    string
	Body       string
	TemplateID string
	Status     string
	Error      string
	SentAt     time.Time
}

// Recorder receives dispatch outcomes. Implementations must not block the
// dispatch path on persistence failures.
type Recorder interface {
	RecordDispatch(ctx context.Context, rec Record)
}

// Built-in template IDs.
const (
	TemplateAppointmentReminder  = "appointment-reminder"
	TemplateAppointmentConfirmed = "appointment-confirmed"
	TemplateAppointmentCancelled = "appointment-cancelled"
	TemplateAdminCredentials     = "admin-credentials"
	TemplateInvoiceReceipt       = "invoice-receipt"
	TemplatePasswordReset        = "password-reset"
)

// Template defines a reusable message template.
type Template struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Subject string  `json:"subject"`
	Body    string  `json:"body"`
	Channel Channel `json:"channel"`
}

// TemplateEngine manages message templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in clinic
// templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplateAppointmentReminder,
			Name:    "Appointment Reminder",
			Subject: "Appointment Reminder for {{patient_name}}",
			Body:    "Dear {{patient_name}}, this is a reminder of your appointment at {{clinic_name}} on {{date}} at {{time}} with {{practitioner}}.",
			Channel: ChannelEmail,
		},
		{
			ID:      TemplateAppointmentConfirmed,
			Name:    "Appointment Confirmed",
			Subject: "Your Appointment Is Confirmed",
			Body:    "Dear {{patient_name}}, your appointment at {{clinic_name}} on {{date}} at {{time}} has been confirmed.",
			Channel: ChannelEmail,
		},
		{
			ID:      TemplateAppointmentCancelled,
			Name:    "Appointment Cancelled",
			Subject: "Your Appointment Was Cancelled",
			Body:    "Dear {{patient_name}}, your appointment at {{clinic_name}} on {{date}} at {{time}} has been cancelled. Please contact us to reschedule.",
			Channel: ChannelEmail,
		},
		{
			ID:      TemplateAdminCredentials,
			Name:    "Administrator Account Created",
			Subject: "Your {{clinic_name}} Administrator Account",
			Body:    "Hello {{admin_name}}, an administrator account has been created for you at {{clinic_name}}. Username: {{email}}. Temporary password: {{temp_password}}. Please sign in and change your password.",
			Channel: ChannelEmail,
		},
		{
			ID:      TemplateInvoiceReceipt,
			Name:    "Payment Receipt",
			Subject: "Payment Receipt {{receipt_number}}",
			Body:    "Dear {{patient_name}}, we received your payment of {{amount}} for invoice {{invoice_number}}. Receipt number: {{receipt_number}}. Thank you.",
			Channel: ChannelEmail,
		},
		{
			ID:      TemplatePasswordReset,
			Name:    "Password Reset",
			Subject: "Password Reset Request",
			Body:    "You requested a password reset. Use the following link to reset your password: {{reset_link}}",
			Channel: ChannelEmail,
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Get returns a template by ID.
func (e *TemplateEngine) Get(templateID string) (*Template, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.templates[templateID]
	return t, ok
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are
// left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	t, ok := e.Get(templateID)
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// Dispatcher sends messages through the configured providers and reports
// every attempt to the Recorder.
type Dispatcher struct {
	email     EmailSender
	sms       SMSSender
	templates *TemplateEngine
	recorder  Recorder
}

// NewDispatcher constructs a Dispatcher. recorder may be nil when no send
// logging is wanted.
func NewDispatcher(email EmailSender, sms SMSSender, tpl *TemplateEngine, recorder Recorder) *Dispatcher {
	return &Dispatcher{
		email:     email,
		sms:       sms,
		templates: tpl,
		recorder:  recorder,
	}
}

// Templates exposes the dispatcher's template engine.
func (d *Dispatcher) Templates() *TemplateEngine {
	return d.templates
}

// SendEmail delivers an email and records the outcome.
func (d *Dispatcher) SendEmail(ctx context.Context, to, subject, body string) error {
	err := d.email.SendEmail(ctx, to, subject, body)
	d.record(ctx, Record{
		Channel:   ChannelEmail,
		Recipient: to,
		Subject:   subject,
		Body:      body,
	}, err)
	return err
}

// SendSMS delivers an SMS and records the outcome.
func (d *Dispatcher) SendSMS(ctx context.Context, to, body string) error {
	err := d.sms.SendSMS(ctx, to, body)
	d.record(ctx, Record{
		Channel:   ChannelSMS,
		Recipient: to,
		Body:      body,
	}, err)
	return err
}

// SendTemplate renders a template and delivers it over the template's
// channel.
func (d *Dispatcher) SendTemplate(ctx context.Context, templateID, recipient string, data map[string]string) error {
	tpl, ok := d.templates.Get(templateID)
	if !ok {
		return fmt.Errorf("template %q not found", templateID)
	}
	subject, body, err := d.templates.Render(templateID, data)
	if err != nil {
		return err
	}

	switch tpl.Channel {
	case ChannelSMS:
		err = d.sms.SendSMS(ctx, recipient, body)
	default:
		err = d.email.SendEmail(ctx, recipient, subject, body)
	}

	d.record(ctx, Record{
		Channel:    tpl.Channel,
		Recipient:  recipient,
		Subject:    subject,
		Body:       body,
		TemplateID: templateID,
	}, err)
	return err
}

func (d *Dispatcher) record(ctx context.Context, rec Record, sendErr error) {
	if d.recorder == nil {
		return
	}
	rec.SentAt = time.Now().UTC()
	if sendErr != nil {
		rec.Status = StatusFailed
		rec.Error = sendErr.Error()
	} else {
		rec.Status = StatusSent
	}
	d.recorder.RecordDispatch(ctx, rec)
}

// LogEmailSender writes emails to the structured log instead of delivering
// them. Used in development and as the default when no SMTP provider is
// configured.
type LogEmailSender struct {
	Logger zerolog.Logger
}

func (s *LogEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.Logger.Info().
		Str("channel", "email").
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("outbound message")
	return nil
}

// LogSMSSender writes SMS messages to the structured log instead of
// delivering them.
type LogSMSSender struct {
	Logger zerolog.Logger
}

func (s *LogSMSSender) SendSMS(_ context.Context, to, body string) error {
	s.Logger.Info().
		Str("channel", "sms").
		Str("to", to).
		Str("body", body).
		Msg("outbound message")
	return nil
}
