/*
Package billing contains the core domain model for the school billing engine.

PURPOSE:
  This package defines the entities and value types shared by every service:
  students, courses, enrollments, attendance records, invoices, and payments.
  It also owns the monetary arithmetic (money.go), the billing period
  (period.go), the invoice status state machine (status.go), the schedule
  hint estimator (estimate.go), and all error types (errors.go).

KEY CONCEPTS IN THIS FILE (types.go):
  - Student / Course / Enrollment: the catalog a billing run reads from
  - AttendanceRecord: per-(enrollment, period) lesson counts with a lock flag
  - Invoice / InvoiceLine: draft and issued billing documents
  - Payment: immutable payment facts, optionally linked to an invoice

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every monetary value, never float64
  2. Weak references: Invoice and Payment reference Student/Enrollment by id;
     deletion guards keep financial history from dangling
  3. Type safety: closed status/mode constants instead of free-form strings

SEE ALSO:
  - status.go: Invoice status transitions
  - money.go: Rounding and line arithmetic
  - errors.go: Error taxonomy shared by all services
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG ENTITIES
// =============================================================================

// CourseType distinguishes group courses (shared schedule) from individual
// one-on-one instruction.
type CourseType string

const (
	CourseGroup      CourseType = "group"
	CourseIndividual CourseType = "individual"
)

// BillingMode determines how an enrollment is charged each period.
type BillingMode string

const (
	// BillingSubscription charges a flat course.SubscriptionPrice per period.
	BillingSubscription BillingMode = "subscription"
	// BillingPerLesson charges course.LessonPrice per attended lesson.
	BillingPerLesson BillingMode = "per_lesson"
)

type Student struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"fullName"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Note      string    `json:"note,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type Course struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Type              CourseType      `json:"type"`
	LessonPrice       decimal.Decimal `json:"lessonPrice"`
	SubscriptionPrice decimal.Decimal `json:"subscriptionPrice"`

	// ScheduleDays holds weekday indices (Sunday=0..Saturday=6) the course
	// meets on. Only meaningful for group courses; empty means no schedule
	// is configured and the hint estimator has no opinion.
	ScheduleDays []int `json:"scheduleDays,omitempty"`

	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasScheduleDay reports whether the course meets on the given weekday.
func (c Course) HasScheduleDay(wd time.Weekday) bool {
	for _, d := range c.ScheduleDays {
		if d == int(wd) {
			return true
		}
	}
	return false
}

// Enrollment is one billable relationship between a student and a course.
type Enrollment struct {
	ID          int64           `json:"id"`
	StudentID   int64           `json:"studentId"`
	CourseID    int64           `json:"courseId"`
	BillingMode BillingMode     `json:"billingMode"`
	DiscountPct decimal.Decimal `json:"discountPct"` // always within [0,100] once persisted
	Note        string          `json:"note,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceRecord stores the lesson count for one enrollment in one billing
// period. Unique per (EnrollmentID, Year, Month). While Locked is true the
// count is immutable.
type AttendanceRecord struct {
	ID           int64 `json:"id"`
	EnrollmentID int64 `json:"enrollmentId"`
	Year         int   `json:"year"`
	Month        int   `json:"month"`
	Count        int   `json:"count"`
	Locked       bool  `json:"locked"`
}

// =============================================================================
// INVOICES
// =============================================================================

type InvoiceLine struct {
	ID           int64           `json:"id"`
	InvoiceID    int64           `json:"invoiceId"`
	EnrollmentID int64           `json:"enrollmentId"`
	Description  string          `json:"description"`
	Qty          int             `json:"qty"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Amount       decimal.Decimal `json:"amount"`
}

type Invoice struct {
	ID        int64         `json:"id"`
	StudentID int64         `json:"studentId"`
	Year      int           `json:"year"`
	Month     int           `json:"month"`
	Status    InvoiceStatus `json:"status"`

	// Number is assigned exactly once, at issuance. Nil for drafts and for
	// invoices canceled before issuance.
	Number *string `json:"number,omitempty"`

	Total     decimal.Decimal `json:"total"`
	Lines     []InvoiceLine   `json:"lines,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentBank PaymentMethod = "bank"
)

// Payment is an immutable payment fact. It is never updated in place;
// a mistaken payment is reversed by deleting it.
type Payment struct {
	ID        int64 `json:"id"`
	StudentID int64 `json:"studentId"`

	// InvoiceID links the payment to a specific invoice. Nil payments
	// ("quick cash") count only toward the student's aggregate balance.
	InvoiceID *int64 `json:"invoiceId,omitempty"`

	Amount    decimal.Decimal `json:"amount"` // always > 0
	Method    PaymentMethod   `json:"method"`
	PaidAt    time.Time       `json:"paidAt"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
