// Package claim tracks PhilHealth and HMO insurance claims from draft
// through submission, adjudication and payout.
package claim

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/pkg/money"
)

const (
	KindPhilHealth = "PHILHEALTH"
	KindHMO        = "HMO"
)

const (
	StatusDraft      = "DRAFT"
	StatusSubmitted  = "SUBMITTED"
	StatusProcessing = "PROCESSING"
	StatusApproved   = "APPROVED"
	StatusDenied     = "DENIED"
	StatusPaid       = "PAID"
)

var transitions = map[string][]string{
	StatusDraft:      {StatusSubmitted},
	StatusSubmitted:  {StatusProcessing, StatusApproved, StatusDenied},
	StatusProcessing: {StatusApproved, StatusDenied},
	StatusApproved:   {StatusPaid},
}

func canTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type Claim struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	ClinicID  uuid.UUID  `json:"clinic_id" db:"clinic_id"`
	PatientID uuid.UUID  `json:"patient_id" db:"patient_id"`
	InvoiceID *uuid.UUID `json:"invoice_id" db:"invoice_id"`

	Kind        string    `json:"kind" db:"kind"`
	ClaimNumber string    `json:"claim_number" db:"claim_number"`
	ClaimDate   time.Time `json:"claim_date" db:"claim_date"`
	ServiceDate time.Time `json:"service_date" db:"service_date"`

	// PhilHealth claims only.
	PhilHealthNumber string `json:"philhealth_number,omitempty" db:"philhealth_number"`
	CaseType         string `json:"case_type,omitempty" db:"case_type"`

	// HMO claims only.
	HMOProvider       string `json:"hmo_provider,omitempty" db:"hmo_provider"`
	HMONumber         string `json:"hmo_number,omitempty" db:"hmo_number"`
	AuthorizationCode string `json:"authorization_code,omitempty" db:"authorization_code"`

	ClaimAmount    money.Cents  `json:"claim_amount" db:"claim_amount_cents"`
	ApprovedAmount *money.Cents `json:"approved_amount" db:"approved_amount_cents"`

	Status    string   `json:"status" db:"status"`
	Documents []string `json:"documents" db:"documents"`

	SubmissionDate  *time.Time `json:"submission_date" db:"submission_date"`
	ProcessingNotes string     `json:"processing_notes" db:"processing_notes"`
	DenialReason    string     `json:"denial_reason" db:"denial_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
