// Package patient manages clinic-scoped patient demographic records and
// intake forms. Every patient gets a system-assigned, date-sequenced
// patient number on creation.
package patient

import (
	"time"

	"github.com/google/uuid"
)

// Gender codes follow the single-letter convention used on PhilHealth forms.
const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderOther  = "O"
)

func ValidGender(g string) bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type Patient struct {
	ID       uuid.UUID `json:"id" db:"id"`
	ClinicID uuid.UUID `json:"clinic_id" db:"clinic_id"`

	FirstName   string    `json:"first_name" db:"first_name"`
	MiddleName  string    `json:"middle_name" db:"middle_name"`
	LastName    string    `json:"last_name" db:"last_name"`
	DateOfBirth time.Time `json:"date_of_birth" db:"date_of_birth"`
	Gender      string    `json:"gender" db:"gender"`

	Email      string `json:"email" db:"email"`
	Phone      string `json:"phone" db:"phone"`
	Address    string `json:"address" db:"address"`
	City       string `json:"city" db:"city"`
	Province   string `json:"province" db:"province"`
	PostalCode string `json:"postal_code" db:"postal_code"`

	EmergencyContactName         string `json:"emergency_contact_name" db:"emergency_contact_name"`
	EmergencyContactPhone        string `json:"emergency_contact_phone" db:"emergency_contact_phone"`
	EmergencyContactRelationship string `json:"emergency_contact_relationship" db:"emergency_contact_relationship"`

	PhilHealthNumber string `json:"philhealth_number" db:"philhealth_number"`
	HMOProvider      string `json:"hmo_provider" db:"hmo_provider"`
	HMONumber        string `json:"hmo_number" db:"hmo_number"`

	MedicalConditions string `json:"medical_conditions" db:"medical_conditions"`
	Allergies         string `json:"allergies" db:"allergies"`
	Medications       string `json:"medications" db:"medications"`

	// PatientNumber is assigned once on create, format YYYYMMDD-NNNN.
	PatientNumber string `json:"patient_number" db:"patient_number"`
	IsActive      bool   `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (p *Patient) FullName() string {
	if p.MiddleName != "" {
		return p.FirstName + " " + p.MiddleName + " " + p.LastName
	}
	return p.FirstName + " " + p.LastName
}

// Age in whole years as of now.
func (p *Patient) Age() int {
	now := time.Now()
	years := now.Year() - p.DateOfBirth.Year()
	if now.YearDay() < p.DateOfBirth.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// IntakeForm captures a patient's initial visit questionnaire.
type IntakeForm struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	PatientID   uuid.UUID  `json:"patient_id" db:"patient_id"`
	CompletedBy *uuid.UUID `json:"completed_by" db:"completed_by"`

	ChiefComplaint string `json:"chief_complaint" db:"chief_complaint"`
	ComplaintOnset string `json:"complaint_onset" db:"complaint_onset"`

	PastMedicalHistory string `json:"past_medical_history" db:"past_medical_history"`
	SurgicalHistory    string `json:"surgical_history" db:"surgical_history"`
	FamilyHistory      string `json:"family_history" db:"family_history"`
	SocialHistory      string `json:"social_history" db:"social_history"`

	SystemReview map[string]interface{} `json:"system_review" db:"system_review"`

	ConsentGiven bool       `json:"consent_given" db:"consent_given"`
	ConsentDate  *time.Time `json:"consent_date" db:"consent_date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
