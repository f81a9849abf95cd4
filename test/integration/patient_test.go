package integration

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal/domain/patient"
	"github.com/clinicore/clinicore/internal/platform/auth"
)

var patientNumberRe = regexp.MustCompile(`^\d{8}-\d{4}$`)

func TestPatientNumberAssignment(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Patient Number Clinic")

	p := newTestPatient(t, ctx, c.ID)
	require.Regexp(t, patientNumberRe, p.PatientNumber)
	assert.Equal(t, time.Now().Format("20060102"), p.PatientNumber[:8])
	assert.True(t, p.IsActive)

	// Numbers are drawn from a shared daily counter, so two registrations
	// on the same day never collide.
	p2 := newTestPatient(t, ctx, c.ID)
	assert.NotEqual(t, p.PatientNumber, p2.PatientNumber)
}

func TestGetPatientByNumber(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Patient Lookup Clinic")
	p := newTestPatient(t, ctx, c.ID)

	got, err := patientSvc.GetPatientByNumber(ctx, p.PatientNumber)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.LastName, got.LastName)

	_, err = patientSvc.GetPatientByNumber(ctx, "19000101-9999")
	assert.ErrorIs(t, err, patient.ErrNotFound)
}

func TestPatientSoftDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Patient Delete Clinic")
	p := newTestPatient(t, ctx, c.ID)

	require.NoError(t, patientSvc.DeletePatient(ctx, p.ID))

	_, err := patientSvc.GetPatient(ctx, p.ID)
	assert.ErrorIs(t, err, patient.ErrNotFound)

	// The row survives with deleted_at set; records are never purged.
	var deletedAt *time.Time
	err = globalDB.Pool.QueryRow(ctx,
		"SELECT deleted_at FROM patients WHERE id = $1", p.ID).Scan(&deletedAt)
	require.NoError(t, err)
	assert.NotNil(t, deletedAt)
}

func TestPatientUpdate(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Patient Update Clinic")
	p := newTestPatient(t, ctx, c.ID)

	p.Allergies = "penicillin"
	p.HMOProvider = "Maxicare"
	p.HMONumber = "MX-120394"
	require.NoError(t, patientSvc.UpdatePatient(ctx, p))

	got, err := patientSvc.GetPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "penicillin", got.Allergies)
	assert.Equal(t, "Maxicare", got.HMOProvider)
	assert.Equal(t, "MX-120394", got.HMONumber)
}

func TestIntakeFormRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Intake Clinic")
	p := newTestPatient(t, ctx, c.ID)
	u := newTestUser(t, ctx, c.ID, auth.RoleStaff)

	f := &patient.IntakeForm{
		PatientID:      p.ID,
		CompletedBy:    ptrUUID(u.ID),
		ChiefComplaint: "lower back pain",
		ComplaintOnset: "2 weeks",
		SystemReview: map[string]interface{}{
			"musculoskeletal": "positive",
			"pain_scale":      float64(7),
		},
		ConsentGiven: true,
	}
	require.NoError(t, patientSvc.CreateIntakeForm(ctx, f))
	// Consent date is stamped when consent is given without one.
	require.NotNil(t, f.ConsentDate)

	got, err := patientSvc.GetIntakeForm(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "lower back pain", got.ChiefComplaint)
	assert.Equal(t, "positive", got.SystemReview["musculoskeletal"])
	assert.Equal(t, float64(7), got.SystemReview["pain_scale"])
	assert.True(t, got.ConsentGiven)

	forms, err := patientSvc.ListIntakeForms(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, f.ID, forms[0].ID)
}

func TestIntakeFormRequiresComplaint(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Intake Validation Clinic")
	p := newTestPatient(t, ctx, c.ID)

	err := patientSvc.CreateIntakeForm(ctx, &patient.IntakeForm{
		PatientID:      p.ID,
		ChiefComplaint: "   ",
	})
	assert.True(t, errors.Is(err, patient.ErrComplaintNeeded))
}

func TestPatientVisibilityScoping(t *testing.T) {
	ctx := context.Background()
	a := newTestClinic(t, ctx, "Scope Clinic A")
	b := newTestClinic(t, ctx, "Scope Clinic B")
	pa := newTestPatient(t, ctx, a.ID)
	newTestPatient(t, ctx, b.ID)

	patients, total, err := patientSvc.ListPatients(ctx, []uuid.UUID{a.ID}, patient.ListFilter{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, patients, 1)
	assert.Equal(t, pa.ID, patients[0].ID)
}
