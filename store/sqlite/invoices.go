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
// INVOICES (billing.InvoiceStore)
// =============================================================================

// CreateInvoice inserts a draft invoice together with its lines.
func (s *Store) CreateInvoice(ctx context.Context, inv *billing.Invoice) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO invoices (student_id, period_year, period_month, status, number, total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.StudentID, inv.Year, inv.Month, inv.Status, inv.Number, inv.Total.String(), now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, fmt.Errorf("invoice slot for student %d in %04d-%02d is taken: %w",
				inv.StudentID, inv.Year, inv.Month, err)
		}
		return 0, fmt.Errorf("failed to create invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := insertLines(ctx, tx, id, inv.Lines); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	inv.ID = id
	return id, nil
}

// GetInvoice loads the invoice and its lines, or billing.ErrNotFound.
func (s *Store) GetInvoice(ctx context.Context, id int64) (*billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getInvoice(ctx, s.db, id)
}

func (s *Store) getInvoice(ctx context.Context, db dbtx, id int64) (*billing.Invoice, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, student_id, period_year, period_month, status, number, total, created_at, updated_at
		FROM invoices WHERE id = ?`, id)

	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, invoice_id, enrollment_id, description, qty, unit_price, amount
		FROM invoice_lines WHERE invoice_id = ? ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l         billing.InvoiceLine
			unitPrice string
			amount    string
		)
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.EnrollmentID, &l.Description, &l.Qty, &unitPrice, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		l.UnitPrice = parseDecimal(unitPrice)
		l.Amount = parseDecimal(amount)
		inv.Lines = append(inv.Lines, l)
	}
	return inv, rows.Err()
}

// FindInvoiceForPeriod returns the invoice occupying the (student, period)
// slot regardless of status, or nil when the slot is free. When a canceled
// invoice and nothing else exists, the canceled one is returned; the
// generator treats it as still blocking.
func (s *Store) FindInvoiceForPeriod(ctx context.Context, studentID int64, year, month int) (*billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, period_year, period_month, status, number, total, created_at, updated_at
		FROM invoices
		WHERE student_id = ? AND period_year = ? AND period_month = ?
		ORDER BY CASE status WHEN 'canceled' THEN 1 ELSE 0 END, id DESC
		LIMIT 1`, studentID, year, month)

	inv, err := scanInvoice(row)
	if errors.Is(err, billing.ErrNotFound) {
		return nil, nil
	}
	return inv, err
}

// ReplaceInvoiceLines overwrites the lines and total of a draft. Full
// overwrite, never a merge.
func (s *Store) ReplaceInvoiceLines(ctx context.Context, invoiceID int64, lines []billing.InvoiceLine, total decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_lines WHERE invoice_id = ?`, invoiceID); err != nil {
		return err
	}
	if err := insertLines(ctx, tx, invoiceID, lines); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE invoices SET total = ?, updated_at = ? WHERE id = ?`,
		total.String(), time.Now().UTC().Format(time.RFC3339), invoiceID)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// ListInvoices returns summaries for the period, optionally filtered to one
// status. Line counts are fetched in a single grouped query.
func (s *Store) ListInvoices(ctx context.Context, year, month int, status *billing.InvoiceStatus) ([]billing.InvoiceListItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `
		SELECT i.id, i.student_id, st.full_name, i.period_year, i.period_month,
		       i.total, i.status, i.number,
		       (SELECT COUNT(*) FROM invoice_lines l WHERE l.invoice_id = i.id)
		FROM invoices i
		JOIN students st ON st.id = i.student_id
		WHERE i.period_year = ? AND i.period_month = ?`
	args := []any{year, month}
	if status != nil {
		q += ` AND i.status = ?`
		args = append(args, *status)
	}
	q += ` ORDER BY i.id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var out []billing.InvoiceListItem
	for rows.Next() {
		var (
			it     billing.InvoiceListItem
			total  string
			number sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.StudentID, &it.StudentName, &it.Year, &it.Month,
			&total, &it.Status, &number, &it.LinesCount); err != nil {
			return nil, fmt.Errorf("failed to scan invoice list item: %w", err)
		}
		it.Total = parseDecimal(total)
		if number.Valid {
			n := number.String
			it.Number = &n
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ListDraftIDs returns draft ids for the period in ascending id order.
func (s *Store) ListDraftIDs(ctx context.Context, year, month int) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM invoices
		WHERE period_year = ? AND period_month = ? AND status = ?
		ORDER BY id ASC`, year, month, billing.StatusDraft)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteInvoice removes an invoice and its lines. Status policy (drafts
// only) is enforced by the invoicing service.
func (s *Store) DeleteInvoice(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_lines WHERE invoice_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateInvoiceStatus sets the status field only. Legality of the
// transition is the caller's responsibility (checked via CanTransition).
func (s *Store) UpdateInvoiceStatus(ctx context.Context, id int64, status billing.InvoiceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	return requireRow(res)
}

// IssueInvoice assigns the next sequential number for the invoice's year and
// transitions draft -> issued as one atomic step. If anything fails the
// transaction rolls back and no number is consumed, so a partially-numbered
// invoice can never be observed.
func (s *Store) IssueInvoice(ctx context.Context, id int64, prefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		year   int
		status billing.InvoiceStatus
	)
	err = tx.QueryRowContext(ctx,
		`SELECT period_year, status FROM invoices WHERE id = ?`, id,
	).Scan(&year, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", billing.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load invoice: %w", err)
	}
	if status != billing.StatusDraft {
		return "", billing.ErrNotDraft
	}

	// Claim the next sequence for the year.
	var seq int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO invoice_counters (year, next_seq) VALUES (?, 2)
		ON CONFLICT(year) DO UPDATE SET next_seq = next_seq + 1
		RETURNING next_seq - 1`, year,
	).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("failed to claim invoice number: %w", err)
	}

	number := billing.FormatInvoiceNumber(prefix, year, seq)
	if _, err := tx.ExecContext(ctx, `
		UPDATE invoices SET status = ?, number = ?, updated_at = ? WHERE id = ?`,
		billing.StatusIssued, number, time.Now().UTC().Format(time.RFC3339), id,
	); err != nil {
		return "", fmt.Errorf("failed to issue invoice: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return number, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func insertLines(ctx context.Context, tx *sql.Tx, invoiceID int64, lines []billing.InvoiceLine) error {
	for _, l := range lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO invoice_lines (invoice_id, enrollment_id, description, qty, unit_price, amount)
			VALUES (?, ?, ?, ?, ?, ?)`,
			invoiceID, l.EnrollmentID, l.Description, l.Qty, l.UnitPrice.String(), l.Amount.String(),
		); err != nil {
			return fmt.Errorf("failed to insert invoice line: %w", err)
		}
	}
	return nil
}

func scanInvoice(row *sql.Row) (*billing.Invoice, error) {
	var (
		inv       billing.Invoice
		number    sql.NullString
		total     string
		createdAt string
		updatedAt string
	)
	err := row.Scan(&inv.ID, &inv.StudentID, &inv.Year, &inv.Month, &inv.Status,
		&number, &total, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, billing.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}
	if number.Valid {
		n := number.String
		inv.Number = &n
	}
	inv.Total = parseDecimal(total)
	inv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	inv.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &inv, nil
}
