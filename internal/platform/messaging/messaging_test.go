package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmailSender struct {
	mu    sync.Mutex
	calls []struct{ to, subject, body string }
	err   error
}

func (f *fakeEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, struct{ to, subject, body string }{to, subject, body})
	return f.err
}

type fakeSMSSender struct {
	mu    sync.Mutex
	calls []struct{ to, body string }
	err   error
}

func (f *fakeSMSSender) SendSMS(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, struct{ to, body string }{to, body})
	return f.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []Record
}

func (f *fakeRecorder) RecordDispatch(_ context.Context, rec Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
}

func TestTemplateRender(t *testing.T) {
	engine := NewTemplateEngine()

	subject, body, err := engine.Render(TemplateAppointmentReminder, map[string]string{
		"patient_name": "Juan dela Cruz",
		"clinic_name":  "Sunrise Dental",
		"date":         "2026-09-15",
		"time":         "10:00",
		"practitioner": "Dr. Reyes",
	})
	require.NoError(t, err)
	assert.Contains(t, subject, "Juan dela Cruz")
	assert.Contains(t, body, "Sunrise Dental")
	assert.Contains(t, body, "Dr. Reyes")
	assert.NotContains(t, body, "{{")
}

func TestTemplateRenderLeavesUnknownPlaceholders(t *testing.T) {
	engine := NewTemplateEngine()

	_, body, err := engine.Render(TemplateAppointmentReminder, map[string]string{
		"patient_name": "Ana",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "{{clinic_name}}")
}

func TestTemplateRenderUnknownTemplate(t *testing.T) {
	engine := NewTemplateEngine()
	_, _, err := engine.Render("nope", nil)
	assert.Error(t, err)
}

func TestRegisterTemplateOverrides(t *testing.T) {
	engine := NewTemplateEngine()
	engine.RegisterTemplate(Template{
		ID:      TemplatePasswordReset,
		Subject: "Custom subject",
		Body:    "Custom body {{reset_link}}",
		Channel: ChannelEmail,
	})

	subject, body, err := engine.Render(TemplatePasswordReset, map[string]string{"reset_link": "https://x"})
	require.NoError(t, err)
	assert.Equal(t, "Custom subject", subject)
	assert.Equal(t, "Custom body https://x", body)
}

func TestDispatcherSendTemplateRecordsOutcome(t *testing.T) {
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	recorder := &fakeRecorder{}
	d := NewDispatcher(email, sms, NewTemplateEngine(), recorder)

	err := d.SendTemplate(context.Background(), TemplateAdminCredentials, "admin@clinic.ph", map[string]string{
		"admin_name":    "Maria",
		"clinic_name":   "Sunrise Dental",
		"email":         "admin@clinic.ph",
		"temp_password": "Temp1234!",
	})
	require.NoError(t, err)

	require.Len(t, email.calls, 1)
	assert.Equal(t, "admin@clinic.ph", email.calls[0].to)
	assert.Contains(t, email.calls[0].body, "Temp1234!")

	require.Len(t, recorder.records, 1)
	rec := recorder.records[0]
	assert.Equal(t, ChannelEmail, rec.Channel)
	assert.Equal(t, StatusSent, rec.Status)
	assert.Equal(t, TemplateAdminCredentials, rec.TemplateID)
	assert.False(t, rec.SentAt.IsZero())
}

func TestDispatcherRecordsFailure(t *testing.T) {
	email := &fakeEmailSender{err: errors.New("smtp down")}
	recorder := &fakeRecorder{}
	d := NewDispatcher(email, &fakeSMSSender{}, NewTemplateEngine(), recorder)

	err := d.SendEmail(context.Background(), "x@y.z", "hi", "body")
	require.Error(t, err)

	require.Len(t, recorder.records, 1)
	assert.Equal(t, StatusFailed, recorder.records[0].Status)
	assert.Equal(t, "smtp down", recorder.records[0].Error)
}

func TestDispatcherSMSChannel(t *testing.T) {
	sms := &fakeSMSSender{}
	engine := NewTemplateEngine()
	engine.RegisterTemplate(Template{
		ID:      "sms-reminder",
		Body:    "Reminder: {{date}}",
		Channel: ChannelSMS,
	})
	recorder := &fakeRecorder{}
	d := NewDispatcher(&fakeEmailSender{}, sms, engine, recorder)

	err := d.SendTemplate(context.Background(), "sms-reminder", "+639171234567", map[string]string{"date": "tomorrow"})
	require.NoError(t, err)

	require.Len(t, sms.calls, 1)
	assert.Equal(t, "+639171234567", sms.calls[0].to)
	assert.Equal(t, "Reminder: tomorrow", sms.calls[0].body)
	assert.Equal(t, ChannelSMS, recorder.records[0].Channel)
}

func TestDispatcherNilRecorder(t *testing.T) {
	d := NewDispatcher(&fakeEmailSender{}, &fakeSMSSender{}, NewTemplateEngine(), nil)
	assert.NoError(t, d.SendSMS(context.Background(), "+63", "hello"))
}
