package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal/domain/billing"
	"github.com/clinicore/clinicore/internal/domain/clinic"
)

func TestCreateBranchAllocatesCodes(t *testing.T) {
	ctx := context.Background()
	root := newTestClinic(t, ctx, "Sunrise Wellness & Rehab")

	// The root draws the first code from its family counter; the prefix is
	// the name stripped to alphanumerics with case preserved.
	assert.Equal(t, "SunriseWellnessRehab-0001", root.BranchCode)

	b1 := &clinic.Clinic{Name: "Sunrise Wellness Makati"}
	require.NoError(t, clinicSvc.CreateBranch(ctx, root.ID, b1))
	assert.True(t, b1.IsBranch())
	require.NotNil(t, b1.ParentClinicID)
	assert.Equal(t, root.ID, *b1.ParentClinicID)
	assert.Equal(t, "SunriseWellnessRehab-0002", b1.BranchCode)

	// Branches inherit the parent's plan and timezone when unset.
	assert.Equal(t, root.SubscriptionPlan, b1.SubscriptionPlan)
	assert.Equal(t, root.Timezone, b1.Timezone)

	b2 := &clinic.Clinic{Name: "Sunrise Wellness Cebu"}
	require.NoError(t, clinicSvc.CreateBranch(ctx, root.ID, b2))
	assert.Equal(t, "SunriseWellnessRehab-0003", b2.BranchCode)

	branches, err := clinicSvc.ListBranches(ctx, root.ID)
	require.NoError(t, err)
	assert.Len(t, branches, 2)
}

func TestBranchCodeUniqueAtDatabase(t *testing.T) {
	ctx := context.Background()
	root := newTestClinic(t, ctx, "Unique Code Clinic")

	// Out-of-band inserts cannot reuse a code; the partial unique index
	// backs up the allocator's existence probe.
	_, err := globalDB.Pool.Exec(ctx, `
		INSERT INTO clinics (name, branch_code) VALUES ($1, $2)`,
		"Imposter Clinic", root.BranchCode)
	require.Error(t, err)

	// Blank codes are outside the index and may repeat.
	_, err = globalDB.Pool.Exec(ctx,
		`INSERT INTO clinics (name) VALUES ($1)`, "Uncoded Clinic A")
	require.NoError(t, err)
	_, err = globalDB.Pool.Exec(ctx,
		`INSERT INTO clinics (name) VALUES ($1)`, "Uncoded Clinic B")
	require.NoError(t, err)
}

func TestBranchOfBranchRejected(t *testing.T) {
	ctx := context.Background()
	root := newTestClinic(t, ctx, "Two Level Clinic")

	branch := &clinic.Clinic{Name: "Two Level Branch"}
	require.NoError(t, clinicSvc.CreateBranch(ctx, root.ID, branch))

	err := clinicSvc.CreateBranch(ctx, branch.ID, &clinic.Clinic{Name: "Grandchild"})
	assert.ErrorIs(t, err, clinic.ErrBranchOfBranch)
}

func TestVisibleClinicIDsCoverFamily(t *testing.T) {
	ctx := context.Background()
	root := newTestClinic(t, ctx, "Family Clinic")
	branch := &clinic.Clinic{Name: "Family Branch"}
	require.NoError(t, clinicSvc.CreateBranch(ctx, root.ID, branch))

	asSet := func(ids []uuid.UUID) map[uuid.UUID]bool {
		m := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			m[id] = true
		}
		return m
	}

	// Both root and branch resolve to the whole family.
	fromRoot, err := clinicRepo.VisibleClinicIDs(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]bool{root.ID: true, branch.ID: true}, asSet(fromRoot))

	fromBranch, err := clinicRepo.VisibleClinicIDs(ctx, branch.ID)
	require.NoError(t, err)
	assert.Equal(t, asSet(fromRoot), asSet(fromBranch))
}

func TestCrossClinicInvoiceHidden(t *testing.T) {
	ctx := context.Background()
	a := newTestClinic(t, ctx, "Tenant A")
	b := newTestClinic(t, ctx, "Tenant B")
	pt := newTestPatient(t, ctx, a.ID)

	inv := newTestInvoice(t, ctx, a.ID, pt.ID)

	// Unrelated clinics cannot see, update, or pay the invoice.
	_, err := billingSvc.GetInvoice(ctx, inv.ID, []uuid.UUID{b.ID})
	assert.ErrorIs(t, err, billing.ErrNotFound)

	_, err = billingSvc.MarkPaid(ctx, inv.ID, []uuid.UUID{b.ID}, uuid.New())
	assert.ErrorIs(t, err, billing.ErrNotFound)

	// The owning clinic still can.
	got, err := billingSvc.GetInvoice(ctx, inv.ID, []uuid.UUID{a.ID})
	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber, got.InvoiceNumber)
}

func TestBranchSequenceSurvivesBranchDeletion(t *testing.T) {
	ctx := context.Background()
	root := newTestClinic(t, ctx, "Counter Clinic")

	b1 := &clinic.Clinic{Name: "Counter Branch One"}
	require.NoError(t, clinicSvc.CreateBranch(ctx, root.ID, b1))
	require.NoError(t, clinicSvc.DeleteClinic(ctx, b1.ID))

	// The family counter never rewinds; deleted clinics keep their code, so
	// a new branch always gets a fresh one.
	b2 := &clinic.Clinic{Name: "Counter Branch Two"}
	require.NoError(t, clinicSvc.CreateBranch(ctx, root.ID, b2))
	assert.NotEqual(t, b1.BranchCode, b2.BranchCode)
}
