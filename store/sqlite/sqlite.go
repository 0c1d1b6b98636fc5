/*
Package sqlite provides the SQLite-backed implementation of the billing
storage interfaces.

PURPOSE:
  Implements every persistence interface declared in the billing package
  (CatalogStore, AttendanceStore, InvoiceStore, PaymentStore) with one
  Store type. The same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  students, courses, enrollments:  the catalog
  attendance:                      per-(enrollment, year, month) counts
  invoices, invoice_lines:         billing documents
  payments:                        immutable payment facts
  invoice_counters:                per-year issuance sequence

MONEY:
  Monetary values are stored as decimal strings and parsed back with
  shopspring/decimal. No floats touch the database.

CONCURRENCY:
  One local client, but the UI can fire overlapping requests. A
  sync.RWMutex serializes mutating operations; SQLite WAL mode keeps
  readers unblocked.

USAGE:
  store, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - billing/store.go: interface definitions
  - catalog.go, attendance.go, invoices.go, payments.go: per-domain queries
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Store implements all billing storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		full_name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS courses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		course_type TEXT NOT NULL,
		lesson_price TEXT NOT NULL DEFAULT '0',
		subscription_price TEXT NOT NULL DEFAULT '0',
		schedule_days TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS enrollments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL REFERENCES students(id),
		course_id INTEGER NOT NULL REFERENCES courses(id),
		billing_mode TEXT NOT NULL,
		discount_pct TEXT NOT NULL DEFAULT '0',
		note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- One billable relationship per student/course pair
	CREATE UNIQUE INDEX IF NOT EXISTS idx_enrollments_student_course
		ON enrollments(student_id, course_id);
	CREATE INDEX IF NOT EXISTS idx_enrollments_course
		ON enrollments(course_id);

	CREATE TABLE IF NOT EXISTS attendance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		enrollment_id INTEGER NOT NULL REFERENCES enrollments(id),
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		lessons_count INTEGER NOT NULL DEFAULT 0,
		locked BOOLEAN NOT NULL DEFAULT FALSE
	);

	-- Record is unique per (enrollment, period)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_enrollment_period
		ON attendance(enrollment_id, year, month);
	CREATE INDEX IF NOT EXISTS idx_attendance_period
		ON attendance(year, month);

	CREATE TABLE IF NOT EXISTS invoices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL REFERENCES students(id),
		period_year INTEGER NOT NULL,
		period_month INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		number TEXT,
		total TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: at most one non-canceled invoice per (student, period).
	-- Canceled invoices stay behind as audit records; the generator treats
	-- them as still occupying the slot.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_slot
		ON invoices(student_id, period_year, period_month)
		WHERE status != 'canceled';
	CREATE INDEX IF NOT EXISTS idx_invoices_period
		ON invoices(period_year, period_month);
	CREATE INDEX IF NOT EXISTS idx_invoices_student_status
		ON invoices(student_id, status);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_number
		ON invoices(number) WHERE number IS NOT NULL;

	CREATE TABLE IF NOT EXISTS invoice_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		invoice_id INTEGER NOT NULL REFERENCES invoices(id),
		enrollment_id INTEGER NOT NULL,
		description TEXT NOT NULL,
		qty INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		amount TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoice_lines_invoice
		ON invoice_lines(invoice_id);

	CREATE TABLE IF NOT EXISTS payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL REFERENCES students(id),
		invoice_id INTEGER REFERENCES invoices(id),
		amount TEXT NOT NULL,
		method TEXT NOT NULL,
		paid_at TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_student
		ON payments(student_id);
	CREATE INDEX IF NOT EXISTS idx_payments_invoice
		ON payments(invoice_id) WHERE invoice_id IS NOT NULL;

	-- Per-year issuance sequence. Incremented inside the issuance
	-- transaction so numbers are monotonic and never reused.
	CREATE TABLE IF NOT EXISTS invoice_counters (
		year INTEGER PRIMARY KEY,
		next_seq INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// encodeScheduleDays stores the weekday set as a comma-separated list.
func encodeScheduleDays(days []int) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func decodeScheduleDays(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		if d, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			days = append(days, d)
		}
	}
	return days
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
