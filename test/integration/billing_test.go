package integration

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal/domain/billing"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/pkg/money"
)

var (
	invoiceNumberRe = regexp.MustCompile(`^INV-\d{8}-\d{4}$`)
	receiptNumberRe = regexp.MustCompile(`^RCP-\d{8}-\d{4}$`)
)

func newTestInvoice(t *testing.T, ctx context.Context, clinicID, patientID uuid.UUID) *billing.Invoice {
	t.Helper()
	inv := &billing.Invoice{
		ClinicID:  clinicID,
		PatientID: patientID,
	}
	if err := billingSvc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("create test invoice: %v", err)
	}
	return inv
}

func TestInvoiceLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Billing Clinic")
	pt := newTestPatient(t, ctx, c.ID)
	staff := newTestUser(t, ctx, c.ID, auth.RoleStaff)
	visible := []uuid.UUID{c.ID}

	inv := newTestInvoice(t, ctx, c.ID, pt.ID)
	assert.Regexp(t, invoiceNumberRe, inv.InvoiceNumber)
	assert.Equal(t, billing.StatusDraft, inv.Status)
	assert.Zero(t, inv.TotalAmount)

	// Two sessions at 750.00 each.
	item := &billing.InvoiceItem{
		InvoiceID:   inv.ID,
		Description: "Physical therapy session",
		Quantity:    2,
		UnitPrice:   money.Cents(75000),
	}
	require.NoError(t, billingSvc.AddItem(ctx, item, visible))
	assert.Equal(t, money.Cents(150000), item.Total)

	inv, err := billingSvc.GetInvoice(ctx, inv.ID, visible)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(150000), inv.Subtotal)
	assert.Equal(t, money.Cents(150000), inv.TotalAmount)
	assert.Equal(t, money.Cents(150000), inv.BalanceDue)

	// Partial payment moves the invoice to PARTIALLY_PAID.
	p1 := &billing.Payment{
		InvoiceID:     inv.ID,
		Amount:        money.Cents(50000),
		PaymentMethod: billing.MethodGCash,
		ReceivedBy:    ptrUUID(staff.ID),
	}
	inv, err = billingSvc.RecordPayment(ctx, p1, visible, "")
	require.NoError(t, err)
	assert.Regexp(t, receiptNumberRe, p1.ReceiptNumber)
	assert.Equal(t, billing.StatusPartiallyPaid, inv.Status)
	assert.Equal(t, money.Cents(50000), inv.AmountPaid)
	assert.Equal(t, money.Cents(100000), inv.BalanceDue)

	// Paying the rest settles it.
	p2 := &billing.Payment{
		InvoiceID:     inv.ID,
		Amount:        money.Cents(100000),
		PaymentMethod: billing.MethodCash,
		ReceivedBy:    ptrUUID(staff.ID),
	}
	inv, err = billingSvc.RecordPayment(ctx, p2, visible, "")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPaid, inv.Status)
	assert.Zero(t, inv.BalanceDue)
	assert.NotEqual(t, p1.ReceiptNumber, p2.ReceiptNumber)
}

func TestItemMutationRecalculatesTotals(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Recalc Clinic")
	pt := newTestPatient(t, ctx, c.ID)
	visible := []uuid.UUID{c.ID}

	inv := newTestInvoice(t, ctx, c.ID, pt.ID)
	item := &billing.InvoiceItem{
		InvoiceID:   inv.ID,
		Description: "Initial assessment",
		Quantity:    1,
		UnitPrice:   money.Cents(120000),
	}
	require.NoError(t, billingSvc.AddItem(ctx, item, visible))

	// 10% discount on the line.
	item.DiscountPercent = 10
	require.NoError(t, billingSvc.UpdateItem(ctx, item, visible))

	inv, err := billingSvc.GetInvoice(ctx, inv.ID, visible)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(108000), inv.TotalAmount)

	require.NoError(t, billingSvc.RemoveItem(ctx, item.ID, visible))
	inv, err = billingSvc.GetInvoice(ctx, inv.ID, visible)
	require.NoError(t, err)
	assert.Zero(t, inv.TotalAmount)
}

func TestMarkPaidCreatesBalancingPayment(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "MarkPaid Clinic")
	pt := newTestPatient(t, ctx, c.ID)
	staff := newTestUser(t, ctx, c.ID, auth.RoleStaff)
	visible := []uuid.UUID{c.ID}

	inv := newTestInvoice(t, ctx, c.ID, pt.ID)
	require.NoError(t, billingSvc.AddItem(ctx, &billing.InvoiceItem{
		InvoiceID:   inv.ID,
		Description: "Consultation",
		Quantity:    1,
		UnitPrice:   money.Cents(80000),
	}, visible))

	inv, err := billingSvc.MarkPaid(ctx, inv.ID, visible, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPaid, inv.Status)
	assert.Equal(t, money.Cents(80000), inv.AmountPaid)
	assert.Zero(t, inv.BalanceDue)

	payments, _, err := billingSvc.ListPayments(ctx, visible, billing.PaymentFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, money.Cents(80000), payments[0].Amount)
	require.NotNil(t, payments[0].ReceivedBy)
	assert.Equal(t, staff.ID, *payments[0].ReceivedBy)
}

func TestCancelledInvoiceRejectsPayments(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Cancelled Invoice Clinic")
	pt := newTestPatient(t, ctx, c.ID)
	visible := []uuid.UUID{c.ID}

	inv := newTestInvoice(t, ctx, c.ID, pt.ID)
	inv, err := billingSvc.CancelInvoice(ctx, inv.ID, visible)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCancelled, inv.Status)

	_, err = billingSvc.RecordPayment(ctx, &billing.Payment{
		InvoiceID:     inv.ID,
		Amount:        money.Cents(10000),
		PaymentMethod: billing.MethodCash,
	}, visible, "")
	assert.ErrorIs(t, err, billing.ErrInvoiceCancelled)
}

func TestBillingSummary(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Summary Clinic")
	pt := newTestPatient(t, ctx, c.ID)
	staff := newTestUser(t, ctx, c.ID, auth.RoleStaff)
	visible := []uuid.UUID{c.ID}

	inv := newTestInvoice(t, ctx, c.ID, pt.ID)
	require.NoError(t, billingSvc.AddItem(ctx, &billing.InvoiceItem{
		InvoiceID:   inv.ID,
		Description: "Therapy package",
		Quantity:    4,
		UnitPrice:   money.Cents(60000),
	}, visible))
	_, err := billingSvc.MarkPaid(ctx, inv.ID, visible, staff.ID)
	require.NoError(t, err)

	from := time.Now().AddDate(0, 0, -1)
	to := time.Now().AddDate(0, 0, 1)
	sum, err := billingSvc.Summary(ctx, visible, &from, &to)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.TotalInvoices)
	assert.Equal(t, money.Cents(240000), sum.TotalAmount)
	assert.Equal(t, money.Cents(240000), sum.TotalPaid)
	assert.Zero(t, sum.TotalOutstanding)
}

func TestServiceCatalog(t *testing.T) {
	ctx := context.Background()
	c := newTestClinic(t, ctx, "Catalog Clinic")
	visible := []uuid.UUID{c.ID}

	cs := &billing.CatalogService{
		ClinicID:     c.ID,
		Name:         "Dry needling",
		ServiceCode:  "DN-01",
		DefaultPrice: money.Cents(95000),
		Category:     "THERAPY",
	}
	require.NoError(t, billingSvc.CreateCatalogService(ctx, cs))
	assert.True(t, cs.IsActive)

	got, err := billingSvc.GetCatalogService(ctx, cs.ID, visible)
	require.NoError(t, err)
	assert.Equal(t, "Dry needling", got.Name)
	assert.Equal(t, money.Cents(95000), got.DefaultPrice)

	require.NoError(t, billingSvc.DeleteCatalogService(ctx, cs.ID, visible))
	_, err = billingSvc.GetCatalogService(ctx, cs.ID, visible)
	assert.ErrorIs(t, err, billing.ErrNotFound)
}
