package clinic

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/pkg/money"
)

// Subscription plans.
const (
	PlanTrial        = "TRIAL"
	PlanBasic        = "BASIC"
	PlanProfessional = "PROFESSIONAL"
	PlanEnterprise   = "ENTERPRISE"
)

// ValidPlan reports whether p is a known subscription plan.
func ValidPlan(p string) bool {
	switch p {
	case PlanTrial, PlanBasic, PlanProfessional, PlanEnterprise:
		return true
	}
	return false
}

// Clinic maps to the clinics table. A clinic with a ParentClinicID is a
// branch; the hierarchy is exactly two levels deep.
type Clinic struct {
	ID                      uuid.UUID  `db:"id" json:"id"`
	Name                    string     `db:"name" json:"name"`
	Email                   string     `db:"email" json:"email"`
	Phone                   string     `db:"phone" json:"phone"`
	Address                 string     `db:"address" json:"address"`
	City                    string     `db:"city" json:"city"`
	Province                string     `db:"province" json:"province"`
	PostalCode              string     `db:"postal_code" json:"postal_code"`
	TIN                     string     `db:"tin" json:"tin"`
	PhilHealthAccreditation string     `db:"philhealth_accreditation" json:"philhealth_accreditation"`
	Website                 string     `db:"website" json:"website"`
	Timezone                string     `db:"timezone" json:"timezone"`
	IsActive                bool       `db:"is_active" json:"is_active"`
	SubscriptionPlan        string     `db:"subscription_plan" json:"subscription_plan"`
	SubscriptionExpires     *time.Time `db:"subscription_expires" json:"subscription_expires,omitempty"`
	ParentClinicID          *uuid.UUID `db:"parent_clinic_id" json:"parent_clinic_id,omitempty"`
	BranchCode              string     `db:"branch_code" json:"branch_code"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at" json:"updated_at"`
}

// IsBranch reports whether the clinic is a branch of another clinic.
func (c *Clinic) IsBranch() bool {
	return c.ParentClinicID != nil
}

// Location maps to the clinic_locations table.
type Location struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ClinicID   uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Name       string    `db:"name" json:"name"`
	Address    string    `db:"address" json:"address"`
	City       string    `db:"city" json:"city"`
	Province   string    `db:"province" json:"province"`
	PostalCode string    `db:"postal_code" json:"postal_code"`
	Phone      string    `db:"phone" json:"phone"`
	IsPrimary  bool      `db:"is_primary" json:"is_primary"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Practitioner maps to the practitioners table. Each practitioner extends
// exactly one user account.
type Practitioner struct {
	ID                      uuid.UUID   `db:"id" json:"id"`
	UserID                  uuid.UUID   `db:"user_id" json:"user_id"`
	ClinicID                uuid.UUID   `db:"clinic_id" json:"clinic_id"`
	LicenseNumber           string      `db:"license_number" json:"license_number"`
	Specialization          string      `db:"specialization" json:"specialization"`
	PRCLicense              string      `db:"prc_license" json:"prc_license"`
	PhilHealthAccreditation string      `db:"philhealth_accreditation" json:"philhealth_accreditation"`
	ConsultationFee         money.Cents `db:"consultation_fee_cents" json:"consultation_fee"`
	Bio                     string      `db:"bio" json:"bio"`
	IsAcceptingPatients     bool        `db:"is_accepting_patients" json:"is_accepting_patients"`
	CreatedAt               time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time   `db:"updated_at" json:"updated_at"`
}
