/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *Request: Request body types from clients
  - Responses reuse domain types directly when the shapes match
    (billing.Student, payments.StudentBalance, invoicing.GenerateResult)

VALIDATION:
  Request DTOs carry validator/v10 struct tags; the handler runs the
  validator before touching the services. Money fields use
  decimal.Decimal, which accepts both JSON numbers and strings.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Router setup
*/
package api

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// StudentRequest creates or updates a student.
type StudentRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Phone    string `json:"phone"`
	Email    string `json:"email" validate:"omitempty,email"`
	Note     string `json:"note"`
	IsActive *bool  `json:"isActive"`
}

// CourseRequest creates or updates a course.
type CourseRequest struct {
	Name              string          `json:"name" validate:"required"`
	Type              string          `json:"type" validate:"required,oneof=group individual"`
	LessonPrice       decimal.Decimal `json:"lessonPrice"`
	SubscriptionPrice decimal.Decimal `json:"subscriptionPrice"`
	ScheduleDays      []int           `json:"scheduleDays" validate:"dive,min=0,max=6"`
	IsActive          *bool           `json:"isActive"`
}

// EnrollmentRequest creates or updates an enrollment.
type EnrollmentRequest struct {
	StudentID   int64           `json:"studentId" validate:"required"`
	CourseID    int64           `json:"courseId" validate:"required"`
	BillingMode string          `json:"billingMode" validate:"required,oneof=subscription per_lesson"`
	DiscountPct decimal.Decimal `json:"discountPct"`
	Note        string          `json:"note"`
}

// CountUpdateRequest is one attendance count in a batch write.
type CountUpdateRequest struct {
	EnrollmentID int64 `json:"enrollmentId" validate:"required"`
	Count        int   `json:"count"`
}

// ApplyCountsRequest writes a batch of attendance counts for a period.
type ApplyCountsRequest struct {
	Year    int                  `json:"year" validate:"required"`
	Month   int                  `json:"month" validate:"required,min=1,max=12"`
	Updates []CountUpdateRequest `json:"updates" validate:"required,dive"`
}

// PeriodRequest targets a billing period, optionally scoped to one course.
type PeriodRequest struct {
	Year     int    `json:"year" validate:"required"`
	Month    int    `json:"month" validate:"required,min=1,max=12"`
	CourseID *int64 `json:"courseId"`
}

// LockRequest locks or unlocks a period's attendance.
type LockRequest struct {
	Year     int    `json:"year" validate:"required"`
	Month    int    `json:"month" validate:"required,min=1,max=12"`
	CourseID *int64 `json:"courseId"`
	Locked   bool   `json:"locked"`
}

// GenerateRequest generates invoice drafts for a period.
type GenerateRequest struct {
	Year  int `json:"year" validate:"required"`
	Month int `json:"month" validate:"required,min=1,max=12"`
}

// PaymentRequest records a payment.
type PaymentRequest struct {
	StudentID int64           `json:"studentId" validate:"required"`
	InvoiceID *int64          `json:"invoiceId"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Method    string          `json:"method" validate:"required,oneof=cash bank"`
	PaidAt    string          `json:"paidAt" validate:"omitempty,datetime=2006-01-02"`
	Note      string          `json:"note"`
}

// QuickCashRequest records an unlinked cash payment dated today.
type QuickCashRequest struct {
	StudentID int64           `json:"studentId" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Note      string          `json:"note"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// CountResponse reports how many rows an operation touched.
type CountResponse struct {
	Applied int `json:"applied"`
}

// PathResponse returns a rendered document's location.
type PathResponse struct {
	Path string `json:"path"`
}
