package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sequencer hands out gap-free document numbers (patient, invoice, receipt,
// contact, branch) from the sequence_counters table. The upsert increments
// atomically under concurrent writers, unlike the max+1 scan it replaces.
type Sequencer struct {
	pool *pgxpool.Pool
}

func NewSequencer(pool *pgxpool.Pool) *Sequencer {
	return &Sequencer{pool: pool}
}

type execRower interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (s *Sequencer) conn(ctx context.Context) execRower {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.pool
}

// Next atomically increments and returns the counter for the given scope key
// (e.g. "patient:20260901", "branch:<root clinic id>").
func (s *Sequencer) Next(ctx context.Context, scope string) (int64, error) {
	var value int64
	err := s.conn(ctx).QueryRow(ctx, `
		INSERT INTO sequence_counters (scope, value)
		VALUES ($1, 1)
		ON CONFLICT (scope) DO UPDATE SET value = sequence_counters.value + 1
		RETURNING value`, scope).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("next sequence for %s: %w", scope, err)
	}
	return value, nil
}

// NextDated returns the next counter for a prefix scoped to the given date,
// formatted as the 4-digit suffix used by document numbers.
func (s *Sequencer) NextDated(ctx context.Context, prefix string, day time.Time) (string, int64, error) {
	dateStr := day.Format("20060102")
	n, err := s.Next(ctx, prefix+":"+dateStr)
	if err != nil {
		return "", 0, err
	}
	return dateStr, n, nil
}

// PatientNumber formats a patient number, e.g. "20260901-0001".
func (s *Sequencer) PatientNumber(ctx context.Context, day time.Time) (string, error) {
	dateStr, n, err := s.NextDated(ctx, "patient", day)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d", dateStr, n), nil
}

// InvoiceNumber formats an invoice number, e.g. "INV-20260901-0001".
func (s *Sequencer) InvoiceNumber(ctx context.Context, day time.Time) (string, error) {
	dateStr, n, err := s.NextDated(ctx, "invoice", day)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%s-%04d", dateStr, n), nil
}

// ReceiptNumber formats a payment receipt number, e.g. "RCP-20260901-0001".
func (s *Sequencer) ReceiptNumber(ctx context.Context, day time.Time) (string, error) {
	dateStr, n, err := s.NextDated(ctx, "receipt", day)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("RCP-%s-%04d", dateStr, n), nil
}

// ContactNumber formats a per-clinic contact number, e.g. "CNT-0001".
func (s *Sequencer) ContactNumber(ctx context.Context, clinicID string) (string, error) {
	n, err := s.Next(ctx, "contact:"+clinicID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CNT-%04d", n), nil
}

// BranchSequence returns the next sequence number for a root clinic family.
func (s *Sequencer) BranchSequence(ctx context.Context, rootClinicID string) (int64, error) {
	return s.Next(ctx, "branch:"+rootClinicID)
}
