package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal/domain/appointment"
	"github.com/clinicore/clinicore/internal/platform/auth"
)

// nextWeekday returns the next date falling on the given weekday, at least
// one day out so "today" never skews availability.
func nextWeekday(wd time.Weekday) time.Time {
	d := time.Now().AddDate(0, 0, 1)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func TestAppointmentOverlapRejected(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Overlap Clinic")
	pr := newTestPractitioner(t, ctx, c.ID)
	pt := newTestPatient(t, ctx, c.ID)
	date := nextWeekday(time.Tuesday)

	newTestAppointment(t, ctx, c.ID, pt.ID, pr.ID, date, "09:00", "09:30")

	overlapping := &appointment.Appointment{
		ClinicID:        c.ID,
		PatientID:       pt.ID,
		PractitionerID:  pr.ID,
		AppointmentType: appointment.TypeFollowUp,
		Date:            date,
		StartTime:       "09:15",
		EndTime:         "09:45",
	}
	err := apptSvc.Create(ctx, overlapping)
	assert.ErrorIs(t, err, appointment.ErrOverlap)

	// Back-to-back is fine; intervals are half-open.
	adjacent := &appointment.Appointment{
		ClinicID:        c.ID,
		PatientID:       pt.ID,
		PractitionerID:  pr.ID,
		AppointmentType: appointment.TypeFollowUp,
		Date:            date,
		StartTime:       "09:30",
		EndTime:         "10:00",
	}
	assert.NoError(t, apptSvc.Create(ctx, adjacent))
}

func TestAppointmentCancelledSlotReusable(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Reuse Clinic")
	pr := newTestPractitioner(t, ctx, c.ID)
	pt := newTestPatient(t, ctx, c.ID)
	staff := newTestUser(t, ctx, c.ID, auth.RoleStaff)
	date := nextWeekday(time.Wednesday)

	a := newTestAppointment(t, ctx, c.ID, pt.ID, pr.ID, date, "10:00", "10:30")
	_, err := apptSvc.Cancel(ctx, a.ID, staff.ID, "patient request")
	require.NoError(t, err)

	// A cancelled appointment no longer blocks the slot.
	rebooked := &appointment.Appointment{
		ClinicID:        c.ID,
		PatientID:       pt.ID,
		PractitionerID:  pr.ID,
		AppointmentType: appointment.TypeInitial,
		Date:            date,
		StartTime:       "10:00",
		EndTime:         "10:30",
	}
	assert.NoError(t, apptSvc.Create(ctx, rebooked))
}

func TestAppointmentLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Lifecycle Clinic")
	pr := newTestPractitioner(t, ctx, c.ID)
	pt := newTestPatient(t, ctx, c.ID)
	date := nextWeekday(time.Thursday)

	a := newTestAppointment(t, ctx, c.ID, pt.ID, pr.ID, date, "11:00", "11:30")
	assert.Equal(t, appointment.StatusScheduled, a.Status)

	a, err := apptSvc.Confirm(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusConfirmed, a.Status)

	a, err = apptSvc.CheckIn(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCheckedIn, a.Status)

	a, err = apptSvc.Start(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusInProgress, a.Status)

	a, err = apptSvc.Complete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCompleted, a.Status)

	// Completed is terminal.
	_, err = apptSvc.Confirm(ctx, a.ID)
	assert.ErrorIs(t, err, appointment.ErrInvalidTransition)
	_, err = apptSvc.NoShow(ctx, a.ID)
	assert.ErrorIs(t, err, appointment.ErrInvalidTransition)
}

func TestAppointmentCancelRecordsActor(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Cancel Clinic")
	pr := newTestPractitioner(t, ctx, c.ID)
	pt := newTestPatient(t, ctx, c.ID)
	staff := newTestUser(t, ctx, c.ID, auth.RoleStaff)
	date := nextWeekday(time.Friday)

	a := newTestAppointment(t, ctx, c.ID, pt.ID, pr.ID, date, "14:00", "14:30")

	cancelled, err := apptSvc.Cancel(ctx, a.ID, staff.ID, "typhoon signal no. 3")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, staff.ID, *cancelled.CancelledBy)
	assert.Equal(t, "typhoon signal no. 3", cancelled.CancellationReason)
	assert.NotNil(t, cancelled.CancelledAt)
}

func TestScheduleValidation(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Schedule Clinic")
	pr := newTestPractitioner(t, ctx, c.ID)
	loc := newTestLocation(t, ctx, c.ID)

	err := apptSvc.CreateSchedule(ctx, &appointment.Schedule{
		PractitionerID: pr.ID,
		LocationID:     loc.ID,
		Weekday:        7,
		StartTime:      "09:00",
		EndTime:        "17:00",
	})
	assert.ErrorIs(t, err, appointment.ErrInvalidWeekday)

	err = apptSvc.CreateSchedule(ctx, &appointment.Schedule{
		PractitionerID: pr.ID,
		LocationID:     loc.ID,
		Weekday:        1,
		StartTime:      "17:00",
		EndTime:        "09:00",
	})
	assert.ErrorIs(t, err, appointment.ErrEndBeforeStart)
}

func TestAvailableSlots(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Slots Clinic")
	pr := newTestPractitioner(t, ctx, c.ID)
	pt := newTestPatient(t, ctx, c.ID)
	loc := newTestLocation(t, ctx, c.ID)
	date := nextWeekday(time.Monday)

	require.NoError(t, apptSvc.CreateSchedule(ctx, &appointment.Schedule{
		PractitionerID: pr.ID,
		LocationID:     loc.ID,
		Weekday:        int(time.Monday),
		StartTime:      "09:00",
		EndTime:        "12:00",
		IsAvailable:    true,
	}))

	// 09:00-12:00 in 30 minute chunks yields six slots.
	slots, err := apptSvc.AvailableSlots(ctx, pr.ID, date, 30)
	require.NoError(t, err)
	require.Len(t, slots, 6)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.Equal(t, "11:30", slots[5].StartTime)

	// Booking 10:00-10:30 removes exactly that slot.
	newTestAppointment(t, ctx, c.ID, pt.ID, pr.ID, date, "10:00", "10:30")
	slots, err = apptSvc.AvailableSlots(ctx, pr.ID, date, 30)
	require.NoError(t, err)
	require.Len(t, slots, 5)
	for _, s := range slots {
		assert.NotEqual(t, "10:00", s.StartTime)
	}

	// A day with no schedule has no slots.
	slots, err = apptSvc.AvailableSlots(ctx, pr.ID, date.AddDate(0, 0, 1), 30)
	require.NoError(t, err)
	assert.Empty(t, slots)
}
