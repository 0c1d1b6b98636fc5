/*
handlers.go - HTTP API handlers for the billing engine

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, input validation, and delegates to domain services.

ENDPOINTS:
  Students:
    GET    /api/students                 List students (?q= search, ?includeInactive=)
    POST   /api/students                 Create student
    GET    /api/students/{id}            Get student
    PUT    /api/students/{id}            Update student
    DELETE /api/students/{id}            Delete student (guarded)
    GET    /api/students/{id}/enrollments
    GET    /api/students/{id}/payments
    GET    /api/students/{id}/balance

  Courses / Enrollments:
    Full CRUD under /api/courses and /api/enrollments

  Attendance:
    GET    /api/attendance               Period grid (?year=&month=&courseId=)
    PUT    /api/attendance/counts        Batch count writes
    POST   /api/attendance/increment     +1 for every listed enrollment
    POST   /api/attendance/hints         Schedule-based estimates for zero rows
    POST   /api/attendance/lock          Lock/unlock a period

  Invoices:
    POST   /api/invoices/generate        Draft generation for a period
    GET    /api/invoices                 List (?year=&month=&status=)
    GET    /api/invoices/{id}            Get with lines
    DELETE /api/invoices/{id}            Delete draft
    POST   /api/invoices/{id}/issue      Number + freeze + render PDF
    POST   /api/invoices/issue-all       Issue every draft in a period
    POST   /api/invoices/{id}/cancel     Cancel
    POST   /api/invoices/{id}/render     Re-render PDF for a frozen invoice
    POST   /api/invoices/{id}/open       Open the PDF in the OS viewer
    POST   /api/invoices/{id}/recompute-status
    GET    /api/invoices/{id}/summary    Paid/remaining reconciliation

  Payments:
    POST   /api/payments                 Record payment
    POST   /api/payments/quick-cash      Unlinked cash payment dated today
    DELETE /api/payments/{id}            Reverse payment
    GET    /api/debtors                  Students with debt > 0

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Record not found
  - 409: Locked period, non-draft issuance, blocked delete
  - 502: Invoice issued but PDF rendering failed
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tutora/billing-engine/attendance"
	"github.com/tutora/billing-engine/billing"
	"github.com/tutora/billing-engine/catalog"
	"github.com/tutora/billing-engine/invoicing"
	"github.com/tutora/billing-engine/payments"
	"github.com/tutora/billing-engine/pdf"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Catalog    *catalog.Service
	Attendance *attendance.Service
	Invoicing  *invoicing.Service
	Payments   *payments.Service

	// InvoiceDir is the root of the rendered PDF tree; the open endpoint
	// refuses paths outside it.
	InvoiceDir string

	validate *validator.Validate
}

// NewHandler creates a handler wired to the given services.
func NewHandler(cat *catalog.Service, att *attendance.Service, inv *invoicing.Service, pay *payments.Service, invoiceDir string) *Handler {
	return &Handler{
		Catalog:    cat,
		Attendance: att,
		Invoicing:  inv,
		Payments:   pay,
		InvoiceDir: invoiceDir,
		validate:   validator.New(),
	}
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns students matching the optional ?q= name filter.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	includeInactive := r.URL.Query().Get("includeInactive") == "true"

	students, err := h.Catalog.ListStudents(r.Context(), q, includeInactive)
	if err != nil {
		h.writeDomainError(w, "Failed to list students", err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

// GetStudent returns a single student.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	st, err := h.Catalog.GetStudent(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get student", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// CreateStudent creates a new student.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req StudentRequest
	if !h.decode(w, r, &req) {
		return
	}
	st, err := h.Catalog.CreateStudent(r.Context(), req.FullName, req.Phone, req.Email, req.Note)
	if err != nil {
		h.writeDomainError(w, "Failed to create student", err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// UpdateStudent updates a student's details and active flag.
func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req StudentRequest
	if !h.decode(w, r, &req) {
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	st, err := h.Catalog.UpdateStudent(r.Context(), id, req.FullName, req.Phone, req.Email, req.Note, isActive)
	if err != nil {
		h.writeDomainError(w, "Failed to update student", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DeleteStudent removes an inactive student with no financial history.
func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Catalog.DeleteStudent(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete student", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListStudentEnrollments returns the student's enrollments.
func (h *Handler) ListStudentEnrollments(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ens, err := h.Catalog.ListEnrollmentsForStudent(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to list enrollments", err)
		return
	}
	writeJSON(w, http.StatusOK, ens)
}

// ListStudentPayments returns the student's payments, most recent first.
func (h *Handler) ListStudentPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ps, err := h.Payments.ListForStudent(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// GetStudentBalance returns the student's aggregate financial position.
func (h *Handler) GetStudentBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	b, err := h.Payments.Balance(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// =============================================================================
// COURSE HANDLERS
// =============================================================================

// ListCourses returns all courses.
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Catalog.ListCourses(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list courses", err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// GetCourse returns a single course.
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	c, err := h.Catalog.GetCourse(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get course", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateCourse creates a new course.
func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req CourseRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Catalog.CreateCourse(r.Context(), req.Name, billing.CourseType(req.Type),
		req.LessonPrice, req.SubscriptionPrice, req.ScheduleDays)
	if err != nil {
		h.writeDomainError(w, "Failed to create course", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateCourse updates a course.
func (h *Handler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req CourseRequest
	if !h.decode(w, r, &req) {
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	c, err := h.Catalog.UpdateCourse(r.Context(), id, req.Name, billing.CourseType(req.Type),
		req.LessonPrice, req.SubscriptionPrice, req.ScheduleDays, isActive)
	if err != nil {
		h.writeDomainError(w, "Failed to update course", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCourse removes a course with no enrollments.
func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Catalog.DeleteCourse(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete course", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// ENROLLMENT HANDLERS
// =============================================================================

// CreateEnrollment links a student to a course with a billing mode.
func (h *Handler) CreateEnrollment(w http.ResponseWriter, r *http.Request) {
	var req EnrollmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	e, err := h.Catalog.CreateEnrollment(r.Context(), req.StudentID, req.CourseID,
		billing.BillingMode(req.BillingMode), req.DiscountPct, req.Note)
	if err != nil {
		h.writeDomainError(w, "Failed to create enrollment", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// UpdateEnrollment changes an enrollment's mode, discount, or note.
func (h *Handler) UpdateEnrollment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req EnrollmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	e, err := h.Catalog.UpdateEnrollment(r.Context(), id,
		billing.BillingMode(req.BillingMode), req.DiscountPct, req.Note)
	if err != nil {
		h.writeDomainError(w, "Failed to update enrollment", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteEnrollment removes an enrollment and its attendance history.
func (h *Handler) DeleteEnrollment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Catalog.DeleteEnrollment(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete enrollment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// ListAttendance returns the attendance grid for a period.
func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	year, month, ok := periodQuery(w, r)
	if !ok {
		return
	}
	courseID := optionalInt64Query(r, "courseId")

	rows, err := h.Attendance.ListRows(r.Context(), year, month, courseID)
	if err != nil {
		h.writeDomainError(w, "Failed to list attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// ApplyCounts writes a batch of attendance counts, skipping locked rows.
func (h *Handler) ApplyCounts(w http.ResponseWriter, r *http.Request) {
	var req ApplyCountsRequest
	if !h.decode(w, r, &req) {
		return
	}
	updates := make([]attendance.CountUpdate, len(req.Updates))
	for i, u := range req.Updates {
		updates[i] = attendance.CountUpdate{EnrollmentID: u.EnrollmentID, Count: u.Count}
	}
	applied, err := h.Attendance.ApplyCounts(r.Context(), req.Year, req.Month, updates)
	if err != nil {
		h.writeDomainError(w, "Failed to apply counts", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Applied: applied})
}

// BulkIncrement adds one lesson to every per-lesson enrollment in scope.
func (h *Handler) BulkIncrement(w http.ResponseWriter, r *http.Request) {
	var req PeriodRequest
	if !h.decode(w, r, &req) {
		return
	}
	applied, err := h.Attendance.BulkIncrement(r.Context(), req.Year, req.Month, req.CourseID)
	if err != nil {
		h.writeDomainError(w, "Failed to increment attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Applied: applied})
}

// ApplyScheduleHints fills zero-count rows with schedule-based estimates.
func (h *Handler) ApplyScheduleHints(w http.ResponseWriter, r *http.Request) {
	var req PeriodRequest
	if !h.decode(w, r, &req) {
		return
	}
	applied, err := h.Attendance.ApplyScheduleHints(r.Context(), req.Year, req.Month, req.CourseID)
	if err != nil {
		h.writeDomainError(w, "Failed to apply schedule hints", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Applied: applied})
}

// SetLock locks or unlocks a period's attendance records.
func (h *Handler) SetLock(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	if !h.decode(w, r, &req) {
		return
	}
	applied, err := h.Attendance.SetLocked(r.Context(), req.Year, req.Month, req.CourseID, req.Locked)
	if err != nil {
		h.writeDomainError(w, "Failed to change lock state", err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Applied: applied})
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// GenerateDrafts generates or regenerates invoice drafts for a period.
func (h *Handler) GenerateDrafts(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Invoicing.GenerateDrafts(r.Context(), req.Year, req.Month)
	if err != nil {
		h.writeDomainError(w, "Failed to generate drafts", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListInvoices returns invoice headers for a period, optionally filtered by
// ?status=.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	year, month, ok := periodQuery(w, r)
	if !ok {
		return
	}
	var status *billing.InvoiceStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := billing.InvoiceStatus(s)
		status = &st
	}
	items, err := h.Invoicing.List(r.Context(), year, month, status)
	if err != nil {
		h.writeDomainError(w, "Failed to list invoices", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetInvoice returns one invoice with its lines.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	iv, err := h.Invoicing.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// DeleteInvoice removes a draft invoice.
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Invoicing.DeleteDraft(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete draft", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// IssueInvoice numbers and freezes a draft, then renders its PDF.
func (h *Handler) IssueInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	res, err := h.Invoicing.Issue(r.Context(), id)
	if err != nil {
		// The invoice may already be issued when only rendering failed;
		// surface the partial result alongside the error status.
		if errors.Is(err, billing.ErrRenderFailure) {
			writeJSON(w, http.StatusBadGateway, res)
			return
		}
		h.writeDomainError(w, "Failed to issue invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// IssueAll issues every draft in a period, collecting per-invoice failures.
func (h *Handler) IssueAll(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Invoicing.IssueAll(r.Context(), req.Year, req.Month)
	if err != nil {
		h.writeDomainError(w, "Failed to issue invoices", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CancelInvoice cancels a draft or issued invoice.
func (h *Handler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Invoicing.Cancel(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to cancel invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

// RenderInvoice re-renders the PDF for a frozen invoice.
func (h *Handler) RenderInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	path, err := h.Invoicing.RenderPDF(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to render invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: path})
}

// OpenInvoice renders the invoice PDF if needed and opens it in the OS
// default viewer.
func (h *Handler) OpenInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	path, err := h.Invoicing.RenderPDF(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to render invoice", err)
		return
	}
	if err := pdf.OpenFile(h.InvoiceDir, path); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to open invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: path})
}

// RecomputeInvoiceStatus refreshes paid/issued status from current payments.
func (h *Handler) RecomputeInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Payments.RecomputeInvoiceStatus(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to recompute status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInvoiceSummary returns the invoice's paid/remaining reconciliation.
func (h *Handler) GetInvoiceSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	sum, err := h.Payments.Summary(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to summarize invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// CreatePayment records a payment, optionally linked to an invoice.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	paidAt := time.Now()
	if req.PaidAt != "" {
		t, err := time.Parse("2006-01-02", req.PaidAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid paidAt format (use YYYY-MM-DD)", err)
			return
		}
		paidAt = t
	}
	p, err := h.Payments.Create(r.Context(), req.StudentID, req.InvoiceID,
		req.Amount, billing.PaymentMethod(req.Method), paidAt, req.Note)
	if err != nil {
		h.writeDomainError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// QuickCash records an unlinked cash payment dated today.
func (h *Handler) QuickCash(w http.ResponseWriter, r *http.Request) {
	var req QuickCashRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.Payments.QuickCash(r.Context(), req.StudentID, req.Amount, req.Note)
	if err != nil {
		h.writeDomainError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// DeletePayment reverses a payment. Linked invoice status is left as-is
// until recomputed explicitly.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Payments.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete payment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListDebtors returns active students with outstanding debt, largest first.
func (h *Handler) ListDebtors(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Payments.ListDebtors(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list debtors", err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain error kinds to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, billing.ErrLockedPeriod),
		errors.Is(err, billing.ErrNotDraft),
		errors.Is(err, billing.ErrReferentialConflict):
		writeError(w, http.StatusConflict, message, err)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, billing.ErrRenderFailure):
		writeError(w, http.StatusBadGateway, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// decode parses and validates a JSON request body. Returns false after
// writing the error response.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// idParam parses the {id} route parameter. Returns false after writing the
// error response.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}

// periodQuery parses required ?year= and ?month= query parameters.
func periodQuery(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	year, err1 := strconv.Atoi(r.URL.Query().Get("year"))
	month, err2 := strconv.Atoi(r.URL.Query().Get("month"))
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "year and month query parameters are required", nil)
		return 0, 0, false
	}
	return year, month, true
}

func optionalInt64Query(r *http.Request, name string) *int64 {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
