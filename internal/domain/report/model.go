// Package report serves clinic analytics: live aggregate summaries over
// appointments, billing and patients, plus persisted report snapshots.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/pkg/money"
)

const (
	TypeAppointments = "APPOINTMENTS"
	TypeRevenue      = "REVENUE"
	TypePatient      = "PATIENT"
	TypePractitioner = "PRACTITIONER"
	TypeClinical     = "CLINICAL"
)

func ValidType(t string) bool {
	switch t {
	case TypeAppointments, TypeRevenue, TypePatient, TypePractitioner, TypeClinical:
		return true
	}
	return false
}

// Report is a persisted snapshot of an aggregate query, so the numbers a
// clinic reported on stay reproducible after the underlying rows change.
type Report struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	ClinicID    uuid.UUID  `json:"clinic_id" db:"clinic_id"`
	GeneratedBy *uuid.UUID `json:"generated_by" db:"generated_by"`

	ReportType string    `json:"report_type" db:"report_type"`
	Title      string    `json:"title" db:"title"`
	StartDate  time.Time `json:"start_date" db:"start_date"`
	EndDate    time.Time `json:"end_date" db:"end_date"`

	Filters map[string]interface{} `json:"filters" db:"filters"`
	Data    map[string]interface{} `json:"data" db:"data"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type AppointmentsSummary struct {
	TotalAppointments int                 `json:"total_appointments"`
	Completed         int                 `json:"completed"`
	Cancelled         int                 `json:"cancelled"`
	NoShow            int                 `json:"no_show"`
	ByType            map[string]int      `json:"by_type"`
	ByPractitioner    []PractitionerCount `json:"by_practitioner"`
}

type PractitionerCount struct {
	PractitionerID uuid.UUID `json:"practitioner_id"`
	Name           string    `json:"name"`
	Count          int       `json:"count"`
}

type RevenueSummary struct {
	TotalInvoiced money.Cents            `json:"total_invoiced"`
	TotalPaid     money.Cents            `json:"total_paid"`
	Outstanding   money.Cents            `json:"outstanding"`
	ByMethod      map[string]money.Cents `json:"by_payment_method"`
	InvoiceCount  int                    `json:"invoice_count"`
	PaymentCount  int                    `json:"payment_count"`
}

type PatientStats struct {
	TotalPatients  int            `json:"total_patients"`
	ActivePatients int            `json:"active_patients"`
	NewThisMonth   int            `json:"new_this_month"`
	ByGender       map[string]int `json:"by_gender"`
}

type PractitionerPerformance struct {
	PractitionerID    uuid.UUID   `json:"practitioner_id"`
	Name              string      `json:"name"`
	TotalAppointments int         `json:"total_appointments"`
	Completed         int         `json:"completed"`
	Cancelled         int         `json:"cancelled"`
	Revenue           money.Cents `json:"revenue"`
}

type DashboardMetrics struct {
	TodayAppointments int         `json:"today_appointments"`
	TodayCompleted    int         `json:"today_completed"`
	TodayPending      int         `json:"today_pending"`
	MonthRevenue      money.Cents `json:"month_revenue"`
	ActivePatients    int         `json:"active_patients"`
	PendingInvoices   int         `json:"pending_invoices"`
}
