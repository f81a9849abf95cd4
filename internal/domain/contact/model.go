// Package contact is the clinic's professional address book: referring
// doctors, partner clinics, laboratories and pharmacies.
package contact

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeDoctor       = "DOCTOR"
	TypePractitioner = "PRACTITIONER"
	TypeClinic       = "CLINIC"
	TypeLaboratory   = "LABORATORY"
	TypePharmacy     = "PHARMACY"
	TypeOther        = "OTHER"
)

// Types lists the valid contact types in display order.
var Types = []string{TypeDoctor, TypePractitioner, TypeClinic, TypeLaboratory, TypePharmacy, TypeOther}

func ValidType(t string) bool {
	for _, known := range Types {
		if known == t {
			return true
		}
	}
	return false
}

type Contact struct {
	ID       uuid.UUID `json:"id" db:"id"`
	ClinicID uuid.UUID `json:"clinic_id" db:"clinic_id"`

	// Assigned once on create, format CNT-NNNN, sequential per clinic.
	ContactNumber string `json:"contact_number" db:"contact_number"`
	ContactType   string `json:"contact_type" db:"contact_type"`

	FirstName        string `json:"first_name" db:"first_name"`
	MiddleName       string `json:"middle_name" db:"middle_name"`
	LastName         string `json:"last_name" db:"last_name"`
	OrganizationName string `json:"organization_name" db:"organization_name"`

	Specialty     string `json:"specialty" db:"specialty"`
	LicenseNumber string `json:"license_number" db:"license_number"`

	Email            string `json:"email" db:"email"`
	Phone            string `json:"phone" db:"phone"`
	AlternativePhone string `json:"alternative_phone" db:"alternative_phone"`

	Address    string `json:"address" db:"address"`
	City       string `json:"city" db:"city"`
	Province   string `json:"province" db:"province"`
	PostalCode string `json:"postal_code" db:"postal_code"`

	Notes   string `json:"notes" db:"notes"`
	Website string `json:"website" db:"website"`

	IsActive    bool `json:"is_active" db:"is_active"`
	IsPreferred bool `json:"is_preferred" db:"is_preferred"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (c *Contact) FullName() string {
	if c.MiddleName != "" {
		return c.FirstName + " " + c.MiddleName + " " + c.LastName
	}
	return c.FirstName + " " + c.LastName
}

// Stats summarises a clinic's address book.
type Stats struct {
	Total    int            `json:"total"`
	Active   int            `json:"active"`
	Inactive int            `json:"inactive"`
	ByType   map[string]int `json:"by_type"`
}
