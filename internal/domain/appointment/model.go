// Package appointment schedules patient visits against practitioners and
// locations. Appointments move through a fixed status progression and may
// never overlap on the same practitioner's calendar while active.
package appointment

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled  = "SCHEDULED"
	StatusConfirmed  = "CONFIRMED"
	StatusCheckedIn  = "CHECKED_IN"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
	StatusNoShow     = "NO_SHOW"
)

// ActiveStatuses are the states that occupy the practitioner's calendar for
// overlap checking.
var ActiveStatuses = []string{StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusInProgress}

const (
	TypeInitial    = "INITIAL"
	TypeFollowUp   = "FOLLOW_UP"
	TypeTherapy    = "THERAPY"
	TypeAssessment = "ASSESSMENT"
)

func ValidType(t string) bool {
	switch t {
	case TypeInitial, TypeFollowUp, TypeTherapy, TypeAssessment:
		return true
	}
	return false
}

// transitions maps each status to the statuses reachable from it.
var transitions = map[string][]string{
	StatusScheduled:  {StatusConfirmed, StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func canTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Appointment times are wall-clock strings in HH:MM so that the interval
// [StartTime,EndTime) compares lexically within a date.
type Appointment struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	ClinicID       uuid.UUID  `json:"clinic_id" db:"clinic_id"`
	PatientID      uuid.UUID  `json:"patient_id" db:"patient_id"`
	PractitionerID uuid.UUID  `json:"practitioner_id" db:"practitioner_id"`
	LocationID     *uuid.UUID `json:"location_id" db:"location_id"`

	AppointmentType string `json:"appointment_type" db:"appointment_type"`
	Status          string `json:"status" db:"status"`

	Date            time.Time `json:"date" db:"date"`
	StartTime       string    `json:"start_time" db:"start_time"`
	EndTime         string    `json:"end_time" db:"end_time"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`

	ChiefComplaint string `json:"chief_complaint" db:"chief_complaint"`
	Notes          string `json:"notes" db:"notes"`
	PatientNotes   string `json:"patient_notes" db:"patient_notes"`

	ReminderSent   bool       `json:"reminder_sent" db:"reminder_sent"`
	ReminderSentAt *time.Time `json:"reminder_sent_at" db:"reminder_sent_at"`

	CancelledBy        *uuid.UUID `json:"cancelled_by" db:"cancelled_by"`
	CancellationReason string     `json:"cancellation_reason" db:"cancellation_reason"`
	CancelledAt        *time.Time `json:"cancelled_at" db:"cancelled_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Overlaps reports whether two half-open [start,end) intervals intersect.
// Both appointments are assumed to share a practitioner and date.
func (a *Appointment) Overlaps(other *Appointment) bool {
	return a.StartTime < other.EndTime && a.EndTime > other.StartTime
}

// Schedule is a practitioner's recurring weekly availability window at a
// location. Weekday follows time.Weekday (Sunday = 0).
type Schedule struct {
	ID             uuid.UUID `json:"id" db:"id"`
	PractitionerID uuid.UUID `json:"practitioner_id" db:"practitioner_id"`
	LocationID     uuid.UUID `json:"location_id" db:"location_id"`

	Weekday     int    `json:"weekday" db:"weekday"`
	StartTime   string `json:"start_time" db:"start_time"`
	EndTime     string `json:"end_time" db:"end_time"`
	IsAvailable bool   `json:"is_available" db:"is_available"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Slot is a bookable window returned by the availability computation.
type Slot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}
