package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tutora/billing-engine/billing"
)

// =============================================================================
// PAYMENTS (billing.PaymentStore)
// =============================================================================

// CreatePayment inserts a payment fact. Payments are immutable: there is no
// update method, only delete (reversal).
func (s *Store) CreatePayment(ctx context.Context, p *billing.Payment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (student_id, invoice_id, amount, method, paid_at, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.StudentID, p.InvoiceID, p.Amount.String(), p.Method,
		p.PaidAt.Format("2006-01-02"), p.Note, now.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	p.ID = id
	p.CreatedAt = now
	return id, nil
}

func (s *Store) GetPayment(ctx context.Context, id int64) (*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, invoice_id, amount, method, paid_at, note, created_at
		FROM payments WHERE id = ?`, id)
	return scanPayment(row)
}

func (s *Store) DeletePayment(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	return requireRow(res)
}

// ListPaymentsForStudent returns the student's payments, most recent first.
func (s *Store) ListPaymentsForStudent(ctx context.Context, studentID int64) ([]billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, invoice_id, amount, method, paid_at, note, created_at
		FROM payments WHERE student_id = ?
		ORDER BY paid_at DESC, id DESC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var out []billing.Payment
	for rows.Next() {
		p, err := scanPaymentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// SumPaymentsForInvoice totals payments linked to one invoice.
func (s *Store) SumPaymentsForInvoice(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	return s.sumDecimal(ctx, `SELECT amount FROM payments WHERE invoice_id = ?`, invoiceID)
}

// SumPaymentsForStudent totals ALL of a student's payments, linked or not.
func (s *Store) SumPaymentsForStudent(ctx context.Context, studentID int64) (decimal.Decimal, error) {
	return s.sumDecimal(ctx, `SELECT amount FROM payments WHERE student_id = ?`, studentID)
}

// SumInvoicedForStudent totals the student's issued and paid invoices.
// Drafts are not yet debts; canceled invoices never were.
func (s *Store) SumInvoicedForStudent(ctx context.Context, studentID int64) (decimal.Decimal, error) {
	return s.sumDecimal(ctx, `
		SELECT total FROM invoices
		WHERE student_id = ? AND status IN (?, ?)`,
		studentID, billing.StatusIssued, billing.StatusPaid)
}

// sumDecimal accumulates decimal strings in Go rather than SUM()ing TEXT in
// SQL, keeping the arithmetic exact.
func (s *Store) sumDecimal(ctx context.Context, query string, args ...any) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query amounts: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(parseDecimal(v))
	}
	return sum, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func scanPaymentFrom(sc rowScanner) (*billing.Payment, error) {
	var (
		p         billing.Payment
		invoiceID sql.NullInt64
		amount    string
		paidAt    string
		createdAt string
	)
	if err := sc.Scan(&p.ID, &p.StudentID, &invoiceID, &amount, &p.Method, &paidAt, &p.Note, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	if invoiceID.Valid {
		id := invoiceID.Int64
		p.InvoiceID = &id
	}
	p.Amount = parseDecimal(amount)
	p.PaidAt, _ = time.Parse("2006-01-02", paidAt)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

func scanPayment(row *sql.Row) (*billing.Payment, error)      { return scanPaymentFrom(row) }
func scanPaymentRows(rows *sql.Rows) (*billing.Payment, error) { return scanPaymentFrom(rows) }
