package integration

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal/domain/note"
)

func newTestTemplate(t *testing.T, ctx context.Context, clinicID uuid.UUID, createdBy uuid.UUID) *note.ClinicalTemplate {
	t.Helper()
	tpl := &note.ClinicalTemplate{
		ClinicID:  clinicID,
		CreatedBy: ptrUUID(createdBy),
		Name:      "SOAP Note",
		Category:  note.CategorySOAP,
		Structure: map[string]interface{}{
			"sections": []interface{}{"subjective", "objective", "assessment", "plan"},
		},
	}
	if err := noteSvc.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("create test template: %v", err)
	}
	return tpl
}

func TestTemplateVersioning(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Template Clinic")
	pr := newTestPractitioner(t, ctx, c.ID)
	tpl := newTestTemplate(t, ctx, c.ID, pr.UserID)
	assert.Equal(t, 1, tpl.Version)

	v2, err := noteSvc.CreateVersion(ctx, tpl.ID, pr.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	require.NotNil(t, v2.ParentTemplateID)
	assert.Equal(t, tpl.ID, *v2.ParentTemplateID)

	// Versions chain back to the root template, not to each other.
	v3, err := noteSvc.CreateVersion(ctx, v2.ID, pr.UserID)
	require.NoError(t, err)
	assert.Equal(t, 3, v3.Version)
	assert.Equal(t, tpl.ID, *v3.ParentTemplateID)

	_, err = noteSvc.ArchiveTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	_, err = noteSvc.CreateVersion(ctx, tpl.ID, pr.UserID)
	assert.ErrorIs(t, err, note.ErrTemplateArchived)
}

func TestTemplateStructureValidation(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Template Validation Clinic")

	err := noteSvc.CreateTemplate(ctx, &note.ClinicalTemplate{
		ClinicID:  c.ID,
		Name:      "Broken",
		Category:  note.CategorySOAP,
		Structure: map[string]interface{}{"fields": []interface{}{}},
	})
	assert.ErrorIs(t, err, note.ErrStructureSections)
}

func TestTemplateStructureSurvivesMetadataUpdate(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Immutable Structure Clinic")
	pr := newTestPractitioner(t, ctx, c.ID)
	tpl := newTestTemplate(t, ctx, c.ID, pr.UserID)

	// A changed structure never lands on an existing version row.
	mutated := *tpl
	mutated.Structure = map[string]interface{}{
		"sections": []interface{}{"subjective only"},
	}
	err := noteSvc.UpdateTemplate(ctx, &mutated)
	assert.ErrorIs(t, err, note.ErrStructureImmutable)

	// Metadata edits go through and leave the stored structure untouched.
	renamed := *tpl
	renamed.Structure = nil
	renamed.Description = "standard four-section note"
	require.NoError(t, noteSvc.UpdateTemplate(ctx, &renamed))

	stored, err := noteSvc.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, "standard four-section note", stored.Description)
	assert.Equal(t, []interface{}{"subjective", "objective", "assessment", "plan"},
		stored.Structure["sections"])
}

func TestNoteContentEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Encryption Clinic")
	pr := newTestPractitioner(t, ctx, c.ID)
	pt := newTestPatient(t, ctx, c.ID)
	actor := note.Actor{UserID: pr.UserID, PractitionerID: ptrUUID(pr.ID)}

	content := map[string]interface{}{
		"subjective": "patient reports radiating pain down left leg",
		"plan":       "continue ultrasound therapy twice weekly",
	}
	created, err := noteSvc.CreateNote(ctx, &note.ClinicalNote{
		PatientID:      pt.ID,
		PractitionerID: pr.ID,
		ClinicID:       c.ID,
	}, content, actor)
	require.NoError(t, err)
	assert.True(t, created.IsDraft)
	assert.Equal(t, "CLINICAL", created.NoteType)

	// The stored column must be ciphertext, not the plaintext JSON.
	var stored string
	err = globalDB.Pool.QueryRow(ctx,
		"SELECT encrypted_content FROM clinical_notes WHERE id = $1", created.ID).Scan(&stored)
	require.NoError(t, err)
	assert.NotContains(t, stored, "radiating pain")
	assert.NotContains(t, stored, "ultrasound")

	got, err := noteSvc.GetNote(ctx, created.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, content["subjective"], got.Content["subjective"])
	assert.Equal(t, content["plan"], got.Content["plan"])
}

func TestSignLatch(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Sign Clinic")
	pr := newTestPractitioner(t, ctx, c.ID)
	other := newTestPractitioner(t, ctx, c.ID)
	pt := newTestPatient(t, ctx, c.ID)
	actor := note.Actor{UserID: pr.UserID, PractitionerID: ptrUUID(pr.ID)}

	created, err := noteSvc.CreateNote(ctx, &note.ClinicalNote{
		PatientID:      pt.ID,
		PractitionerID: pr.ID,
		ClinicID:       c.ID,
	}, map[string]interface{}{"assessment": "improving"}, actor)
	require.NoError(t, err)

	// Only the assigned practitioner may sign.
	_, err = noteSvc.Sign(ctx, created.ID, note.Actor{UserID: other.UserID, PractitionerID: ptrUUID(other.ID)})
	assert.ErrorIs(t, err, note.ErrNotAssignedSigner)

	signed, err := noteSvc.Sign(ctx, created.ID, actor)
	require.NoError(t, err)
	assert.True(t, signed.IsSigned)
	assert.False(t, signed.IsDraft)
	require.NotNil(t, signed.SignedAt)

	// Signing is a one-way latch: no edits, no re-sign, no delete.
	_, err = noteSvc.UpdateNote(ctx, created.ID, map[string]interface{}{"assessment": "revised"}, nil, actor)
	assert.ErrorIs(t, err, note.ErrNoteSigned)
	_, err = noteSvc.Autosave(ctx, created.ID, map[string]interface{}{"assessment": "revised"})
	assert.ErrorIs(t, err, note.ErrNoteSigned)
	_, err = noteSvc.Sign(ctx, created.ID, actor)
	assert.ErrorIs(t, err, note.ErrNoteSigned)
	err = noteSvc.DeleteNote(ctx, created.ID, actor)
	assert.ErrorIs(t, err, note.ErrNoteSigned)

	// Content is untouched by the rejected update.
	got, err := noteSvc.GetNote(ctx, created.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, "improving", got.Content["assessment"])
}

func TestAuditTrail(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Audit Clinic")
	pr := newTestPractitioner(t, ctx, c.ID)
	pt := newTestPatient(t, ctx, c.ID)
	actor := note.Actor{
		UserID:         pr.UserID,
		PractitionerID: ptrUUID(pr.ID),
		IPAddress:      "203.0.113.7",
		UserAgent:      "integration-test",
	}

	created, err := noteSvc.CreateNote(ctx, &note.ClinicalNote{
		PatientID:      pt.ID,
		PractitionerID: pr.ID,
		ClinicID:       c.ID,
	}, map[string]interface{}{"objective": "ROM improved"}, actor)
	require.NoError(t, err)

	_, err = noteSvc.UpdateNote(ctx, created.ID, map[string]interface{}{"objective": "ROM normal"}, nil, actor)
	require.NoError(t, err)
	_, err = noteSvc.Sign(ctx, created.ID, actor)
	require.NoError(t, err)

	trail, err := noteSvc.AuditTrail(ctx, created.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(trail), 3)

	var actions []string
	for _, entry := range trail {
		actions = append(actions, entry.Action)
		require.NotNil(t, entry.UserID)
		assert.Equal(t, pr.UserID, *entry.UserID)
		assert.Equal(t, "203.0.113.7", entry.IPAddress)
	}
	joined := strings.Join(actions, ",")
	assert.Contains(t, joined, note.ActionCreated)
	assert.Contains(t, joined, note.ActionUpdated)
	assert.Contains(t, joined, note.ActionSigned)

	// Updates log the placeholder, never decrypted content.
	for _, entry := range trail {
		if entry.Action == note.ActionUpdated {
			assert.Equal(t, "ENCRYPTED", entry.Changes["content"])
		}
	}
}

func TestNoteTemplateVersionSnapshot(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Snapshot Clinic")
	pr := newTestPractitioner(t, ctx, c.ID)
	pt := newTestPatient(t, ctx, c.ID)
	tpl := newTestTemplate(t, ctx, c.ID, pr.UserID)
	actor := note.Actor{UserID: pr.UserID, PractitionerID: ptrUUID(pr.ID)}

	created, err := noteSvc.CreateNote(ctx, &note.ClinicalNote{
		PatientID:      pt.ID,
		PractitionerID: pr.ID,
		ClinicID:       c.ID,
		TemplateID:     ptrUUID(tpl.ID),
	}, map[string]interface{}{"subjective": "initial visit"}, actor)
	require.NoError(t, err)

	// The note pins the template version it was written against, so later
	// template versions don't change its meaning.
	require.NotNil(t, created.TemplateVersion)
	assert.Equal(t, 1, *created.TemplateVersion)

	_, err = noteSvc.CreateVersion(ctx, tpl.ID, pr.UserID)
	require.NoError(t, err)

	got, err := noteSvc.PeekNote(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TemplateVersion)
	assert.Equal(t, 1, *got.TemplateVersion)
}
