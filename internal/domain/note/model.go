// Package note manages versioned clinical templates, encrypted clinical
// notes and their append-only audit trail. Note content never leaves the
// service unencrypted at rest; signing a note locks it permanently.
package note

import (
	"time"

	"github.com/google/uuid"
)

const (
	CategoryInitial   = "INITIAL"
	CategoryFollowUp  = "FOLLOW_UP"
	CategoryProgress  = "PROGRESS"
	CategoryDischarge = "DISCHARGE"
	CategorySOAP      = "SOAP"
	CategoryCustom    = "CUSTOM"
)

func ValidCategory(c string) bool {
	switch c {
	case CategoryInitial, CategoryFollowUp, CategoryProgress,
		CategoryDischarge, CategorySOAP, CategoryCustom:
		return true
	}
	return false
}

// ClinicalTemplate is an immutable versioned form definition. A new version
// is a new row; the old row is deactivated but kept so historical notes
// still reference the structure they were written against.
type ClinicalTemplate struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	ClinicID  uuid.UUID  `json:"clinic_id" db:"clinic_id"`
	CreatedBy *uuid.UUID `json:"created_by" db:"created_by"`

	Name        string                 `json:"name" db:"name"`
	Description string                 `json:"description" db:"description"`
	Category    string                 `json:"category" db:"category"`
	Structure   map[string]interface{} `json:"structure" db:"structure"`

	Version          int        `json:"version" db:"version"`
	ParentTemplateID *uuid.UUID `json:"parent_template_id" db:"parent_template_id"`

	IsActive   bool `json:"is_active" db:"is_active"`
	IsArchived bool `json:"is_archived" db:"is_archived"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ClinicalNote stores its content only in encrypted form. EncryptedContent
// is never serialized to API clients; handlers return the decrypted map.
type ClinicalNote struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	PatientID      uuid.UUID  `json:"patient_id" db:"patient_id"`
	PractitionerID uuid.UUID  `json:"practitioner_id" db:"practitioner_id"`
	AppointmentID  *uuid.UUID `json:"appointment_id" db:"appointment_id"`
	ClinicID       uuid.UUID  `json:"clinic_id" db:"clinic_id"`

	TemplateID      *uuid.UUID `json:"template_id" db:"template_id"`
	TemplateVersion *int       `json:"template_version" db:"template_version"`

	EncryptedContent string `json:"-" db:"encrypted_content"`

	Date     time.Time `json:"date" db:"date"`
	NoteType string    `json:"note_type" db:"note_type"`

	IsSigned bool       `json:"is_signed" db:"is_signed"`
	SignedAt *time.Time `json:"signed_at" db:"signed_at"`

	IsDraft      bool       `json:"is_draft" db:"is_draft"`
	LastAutosave *time.Time `json:"last_autosave" db:"last_autosave"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NoteWithContent pairs a note with its decrypted content for API responses.
type NoteWithContent struct {
	*ClinicalNote
	Content map[string]interface{} `json:"content"`
}

// Audit actions recorded in the note trail.
const (
	ActionCreated = "CREATED"
	ActionUpdated = "UPDATED"
	ActionSigned  = "SIGNED"
	ActionViewed  = "VIEWED"
	ActionDeleted = "DELETED"
)

// AuditLog is an append-only record of who touched a note and how.
// Encrypted fields are logged as the literal "ENCRYPTED", never as content.
type AuditLog struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	ClinicalNoteID uuid.UUID  `json:"clinical_note_id" db:"clinical_note_id"`
	UserID         *uuid.UUID `json:"user_id" db:"user_id"`

	Action    string                 `json:"action" db:"action"`
	IPAddress string                 `json:"ip_address" db:"ip_address"`
	UserAgent string                 `json:"user_agent" db:"user_agent"`
	Changes   map[string]interface{} `json:"changes" db:"changes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
