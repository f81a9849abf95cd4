package appointment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/messaging"
	"github.com/clinicore/clinicore/internal/platform/websocket"
)

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrInvalidType       = errors.New("invalid appointment type")
	ErrInvalidTime       = errors.New("times must be HH:MM")
	ErrEndBeforeStart    = errors.New("end time must be after start time")
	ErrOverlap           = errors.New("appointment overlaps with an existing appointment")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrInvalidWeekday    = errors.New("weekday must be between 0 and 6")
)

// Broadcaster pushes appointment events to websocket subscribers.
// Satisfied by *websocket.Hub.
type Broadcaster interface {
	Broadcast(topic string, event websocket.Event)
}

// ReminderSender dispatches reminder messages. Satisfied by
// messaging.Dispatcher.
type ReminderSender interface {
	SendTemplate(ctx context.Context, templateID, recipient string, data map[string]string) error
}

type Service struct {
	appointments Repository
	schedules    ScheduleRepository
	events       Broadcaster
	reminders    ReminderSender
}

func NewService(appointments Repository, schedules ScheduleRepository, events Broadcaster, reminders ReminderSender) *Service {
	return &Service{
		appointments: appointments,
		schedules:    schedules,
		events:       events,
		reminders:    reminders,
	}
}

func (s *Service) Create(ctx context.Context, a *Appointment) error {
	if err := validateAppointment(a); err != nil {
		return err
	}
	if err := s.checkOverlap(ctx, a, nil); err != nil {
		return err
	}
	a.Status = StatusScheduled
	if err := s.appointments.Create(ctx, a); err != nil {
		return err
	}
	s.broadcast("appointment.created", a)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, a *Appointment) error {
	if err := validateAppointment(a); err != nil {
		return err
	}
	if err := s.checkOverlap(ctx, a, &a.ID); err != nil {
		return err
	}
	if err := s.appointments.Update(ctx, a); err != nil {
		return err
	}
	s.broadcast("appointment.updated", a)
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.appointments.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.broadcast("appointment.deleted", a)
	return nil
}

func (s *Service) List(ctx context.Context, visible []uuid.UUID, filter ListFilter) ([]*Appointment, int, error) {
	return s.appointments.List(ctx, visible, filter)
}

// -- Status actions --

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusConfirmed)
}

func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCheckedIn)
}

func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusInProgress)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted)
}

func (s *Service) NoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusNoShow)
}

// Cancel records who cancelled, why and when alongside the status change.
func (s *Service) Cancel(ctx context.Context, id, cancelledBy uuid.UUID, reason string) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(a.Status, StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, StatusCancelled)
	}
	now := time.Now()
	a.Status = StatusCancelled
	a.CancelledBy = &cancelledBy
	a.CancellationReason = reason
	a.CancelledAt = &now
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	s.broadcast("appointment.cancelled", a)
	return a, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to string) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(a.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}
	a.Status = to
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	s.broadcast("appointment.status_changed", a)
	return a, nil
}

// SendReminder dispatches an appointment reminder to the given recipient
// and stamps the reminder-sent fields.
func (s *Service) SendReminder(ctx context.Context, id uuid.UUID, recipient, patientName string) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.reminders.SendTemplate(ctx, messaging.TemplateAppointmentReminder, recipient, map[string]string{
		"patient_name": patientName,
		"date":         a.Date.Format("2006-01-02"),
		"time":         a.StartTime,
	})
	if err != nil {
		return nil, err
	}
	now := time.Now()
	a.ReminderSent = true
	a.ReminderSentAt = &now
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) checkOverlap(ctx context.Context, a *Appointment, excludeID *uuid.UUID) error {
	existing, err := s.appointments.ListActiveForDay(ctx, a.PractitionerID, a.Date, excludeID)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if a.Overlaps(other) {
			return ErrOverlap
		}
	}
	return nil
}

func (s *Service) broadcast(eventType string, a *Appointment) {
	if s.events == nil {
		return
	}
	topic := websocket.AppointmentsTopic(a.ClinicID)
	s.events.Broadcast(topic, websocket.NewEvent(eventType, topic, "appointment", a.ID, a))
}

func validateAppointment(a *Appointment) error {
	if !ValidType(a.AppointmentType) {
		return ErrInvalidType
	}
	start, err := time.Parse("15:04", a.StartTime)
	if err != nil {
		return ErrInvalidTime
	}
	end, err := time.Parse("15:04", a.EndTime)
	if err != nil {
		return ErrInvalidTime
	}
	if !end.After(start) {
		return ErrEndBeforeStart
	}
	if a.DurationMinutes <= 0 {
		a.DurationMinutes = int(end.Sub(start).Minutes())
	}
	return nil
}

// -- Schedules --

func (s *Service) CreateSchedule(ctx context.Context, sc *Schedule) error {
	if err := validateSchedule(sc); err != nil {
		return err
	}
	return s.schedules.Create(ctx, sc)
}

func (s *Service) GetSchedule(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return s.schedules.GetByID(ctx, id)
}

func (s *Service) UpdateSchedule(ctx context.Context, sc *Schedule) error {
	if err := validateSchedule(sc); err != nil {
		return err
	}
	return s.schedules.Update(ctx, sc)
}

func (s *Service) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	return s.schedules.Delete(ctx, id)
}

func (s *Service) ListSchedules(ctx context.Context, practitionerID uuid.UUID) ([]*Schedule, error) {
	return s.schedules.ListByPractitioner(ctx, practitionerID)
}

func validateSchedule(sc *Schedule) error {
	if sc.Weekday < 0 || sc.Weekday > 6 {
		return ErrInvalidWeekday
	}
	start, err := time.Parse("15:04", sc.StartTime)
	if err != nil {
		return ErrInvalidTime
	}
	end, err := time.Parse("15:04", sc.EndTime)
	if err != nil {
		return ErrInvalidTime
	}
	if !end.After(start) {
		return ErrEndBeforeStart
	}
	return nil
}

// AvailableSlots slices the practitioner's availability windows for the date
// into slotMinutes chunks and removes those taken by active appointments.
func (s *Service) AvailableSlots(ctx context.Context, practitionerID uuid.UUID, date time.Time, slotMinutes int) ([]Slot, error) {
	if slotMinutes <= 0 {
		slotMinutes = 30
	}
	schedules, err := s.schedules.ListByPractitioner(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	booked, err := s.appointments.ListActiveForDay(ctx, practitionerID, date, nil)
	if err != nil {
		return nil, err
	}

	weekday := int(date.Weekday())
	var slots []Slot
	for _, sc := range schedules {
		if sc.Weekday != weekday || !sc.IsAvailable {
			continue
		}
		start, _ := time.Parse("15:04", sc.StartTime)
		end, _ := time.Parse("15:04", sc.EndTime)
		for cur := start; !cur.Add(time.Duration(slotMinutes) * time.Minute).After(end); cur = cur.Add(time.Duration(slotMinutes) * time.Minute) {
			slot := Slot{
				StartTime: cur.Format("15:04"),
				EndTime:   cur.Add(time.Duration(slotMinutes) * time.Minute).Format("15:04"),
			}
			taken := false
			for _, b := range booked {
				if slot.StartTime < b.EndTime && slot.EndTime > b.StartTime {
					taken = true
					break
				}
			}
			if !taken {
				slots = append(slots, slot)
			}
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime < slots[j].StartTime })
	return slots, nil
}
