/*
store.go - Persistence interfaces for the billing engine

PURPOSE:
  Defines the contract between the domain services and the database.
  Services depend on these interfaces; store/sqlite implements all of them
  with one Store type. Any durable keyed store with read-your-writes
  consistency can substitute.

KEY INTERFACES:
  CatalogStore:    Students, courses, enrollments
  AttendanceStore: Per-period lesson counts and lock flags
  InvoiceStore:    Invoices, lines, atomic issuance numbering
  PaymentStore:    Immutable payment facts and aggregate sums

ATOMIC ISSUANCE:
  IssueInvoice performs number assignment and the draft->issued transition
  as one atomic step. A partially-numbered invoice must never be observable,
  so the counter increment and the status update commit together.

SEE ALSO:
  - store/sqlite: the SQLite implementation
*/
package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// READ PROJECTIONS - Denormalized rows for the presentation layer
// =============================================================================

// AttendanceRow joins an attendance record with its enrollment, course, and
// student for display. Records that do not exist yet appear with Count 0.
type AttendanceRow struct {
	EnrollmentID int64           `json:"enrollmentId"`
	StudentID    int64           `json:"studentId"`
	StudentName  string          `json:"studentName"`
	CourseID     int64           `json:"courseId"`
	CourseName   string          `json:"courseName"`
	CourseType   CourseType      `json:"courseType"`
	LessonPrice  decimal.Decimal `json:"lessonPrice"`
	Count        int             `json:"count"`
	Locked       bool            `json:"locked"`
}

// InvoiceListItem summarizes an invoice for list views.
type InvoiceListItem struct {
	ID          int64           `json:"id"`
	StudentID   int64           `json:"studentId"`
	StudentName string          `json:"studentName"`
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	Total       decimal.Decimal `json:"total"`
	Status      InvoiceStatus   `json:"status"`
	LinesCount  int             `json:"linesCount"`
	Number      *string         `json:"number,omitempty"`
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// CatalogStore persists students, courses, and enrollments.
// Referential delete policy lives in the catalog service; the store only
// offers existence checks and cascading primitives.
type CatalogStore interface {
	CreateStudent(ctx context.Context, s *Student) (int64, error)
	UpdateStudent(ctx context.Context, s *Student) error
	GetStudent(ctx context.Context, id int64) (*Student, error)
	// ListStudents filters by a free-text query over name/phone/email.
	// Inactive students are excluded unless includeInactive is set.
	ListStudents(ctx context.Context, query string, includeInactive bool) ([]Student, error)
	// DeleteStudentCascade removes the student together with their
	// enrollments and attendance records, atomically.
	DeleteStudentCascade(ctx context.Context, id int64) error
	StudentHasInvoices(ctx context.Context, id int64) (bool, error)
	StudentHasPayments(ctx context.Context, id int64) (bool, error)

	CreateCourse(ctx context.Context, c *Course) (int64, error)
	UpdateCourse(ctx context.Context, c *Course) error
	GetCourse(ctx context.Context, id int64) (*Course, error)
	ListCourses(ctx context.Context) ([]Course, error)
	DeleteCourse(ctx context.Context, id int64) error
	CourseHasEnrollments(ctx context.Context, id int64) (bool, error)

	CreateEnrollment(ctx context.Context, e *Enrollment) (int64, error)
	UpdateEnrollment(ctx context.Context, e *Enrollment) error
	GetEnrollment(ctx context.Context, id int64) (*Enrollment, error)
	FindEnrollment(ctx context.Context, studentID, courseID int64) (*Enrollment, error)
	ListEnrollmentsForStudent(ctx context.Context, studentID int64) ([]Enrollment, error)
	// ListPerLessonEnrollments returns enrollments billed per lesson whose
	// student and course are both active, optionally filtered by course.
	ListPerLessonEnrollments(ctx context.Context, courseID *int64) ([]Enrollment, error)
	// DeleteEnrollmentCascade removes the enrollment and its attendance.
	DeleteEnrollmentCascade(ctx context.Context, id int64) error
}

// AttendanceStore persists per-period lesson counts.
type AttendanceStore interface {
	// GetAttendance returns the record for (enrollmentID, year, month),
	// or nil when none has been persisted yet.
	GetAttendance(ctx context.Context, enrollmentID int64, year, month int) (*AttendanceRecord, error)
	// UpsertAttendance creates or replaces the record for its key.
	UpsertAttendance(ctx context.Context, rec *AttendanceRecord) error
	// ListAttendanceForPeriod returns every persisted record for the period,
	// optionally restricted to enrollments of one course.
	ListAttendanceForPeriod(ctx context.Context, year, month int, courseID *int64) ([]AttendanceRecord, error)
	// SetAttendanceLocked flips the lock flag on all matching records and
	// returns how many changed. Counts are untouched.
	SetAttendanceLocked(ctx context.Context, year, month int, courseID *int64, locked bool) (int, error)
	// AttendanceRows is the denormalized read projection for the period.
	AttendanceRows(ctx context.Context, year, month int, courseID *int64) ([]AttendanceRow, error)
}

// InvoiceStore persists invoices and their lines.
type InvoiceStore interface {
	CreateInvoice(ctx context.Context, inv *Invoice) (int64, error)
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	// FindInvoiceForPeriod returns the invoice occupying the
	// (student, period) slot regardless of status, or nil.
	FindInvoiceForPeriod(ctx context.Context, studentID int64, year, month int) (*Invoice, error)
	// ReplaceInvoiceLines overwrites a draft's lines and total. Full
	// overwrite, never a merge.
	ReplaceInvoiceLines(ctx context.Context, invoiceID int64, lines []InvoiceLine, total decimal.Decimal) error
	ListInvoices(ctx context.Context, year, month int, status *InvoiceStatus) ([]InvoiceListItem, error)
	// ListDraftIDs returns draft invoice ids for the period in ascending
	// id order (the order IssueAll processes them in).
	ListDraftIDs(ctx context.Context, year, month int) ([]int64, error)
	DeleteInvoice(ctx context.Context, id int64) error
	UpdateInvoiceStatus(ctx context.Context, id int64, status InvoiceStatus) error
	// IssueInvoice atomically assigns the next sequential number for the
	// invoice's year and transitions draft -> issued. Fails with ErrNotDraft
	// without consuming a number when the invoice is not a draft.
	IssueInvoice(ctx context.Context, id int64, prefix string) (number string, err error)
}

// PaymentStore persists immutable payment facts.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p *Payment) (int64, error)
	GetPayment(ctx context.Context, id int64) (*Payment, error)
	DeletePayment(ctx context.Context, id int64) error
	ListPaymentsForStudent(ctx context.Context, studentID int64) ([]Payment, error)
	SumPaymentsForInvoice(ctx context.Context, invoiceID int64) (decimal.Decimal, error)
	SumPaymentsForStudent(ctx context.Context, studentID int64) (decimal.Decimal, error)
	// SumInvoicedForStudent totals the student's issued and paid invoices.
	// Drafts and canceled invoices are excluded.
	SumInvoicedForStudent(ctx context.Context, studentID int64) (decimal.Decimal, error)
}
