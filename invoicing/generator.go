/*
Package invoicing turns attendance and subscription facts into invoices.

PURPOSE:
  Two responsibilities, two files:
  - generator.go: build draft invoices for a period (idempotent
    create / update / skip per student)
  - issue.go: freeze a draft into an immutable, sequentially numbered
    issued invoice and hand it to the PDF renderer

IDEMPOTENCE:
  GenerateDrafts is safe to re-run after attendance corrections. Drafts are
  fully overwritten, never merged; issued, paid, and canceled invoices are
  never regenerated. Running it twice with no input changes is a no-op
  (created=0, totals unchanged).

CONCURRENCY:
  A service-level mutex serializes generation and issuance passes so a pass
  never observes a half-updated period.

SEE ALSO:
  - billing/money.go: line arithmetic
  - billing/status.go: the invoice state machine
*/
package invoicing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tutora/billing-engine/billing"
)

// Store is the persistence the invoicing service needs.
type Store interface {
	billing.InvoiceStore
	billing.CatalogStore
	billing.AttendanceStore
}

// Renderer is the external PDF collaborator. Rendering must be
// deterministic for a frozen invoice so "open PDF" can re-render the same
// document without re-issuing.
type Renderer interface {
	Render(ctx context.Context, inv *billing.Invoice, st *billing.Student) (string, error)
}

// Service provides draft generation and issuance.
type Service struct {
	store    Store
	renderer Renderer
	prefix   string // invoice number prefix, e.g. "LS"
	log      *slog.Logger

	// mu serializes generation and issuance passes for internal
	// consistency; per-row serialization is the store's job.
	mu sync.Mutex
}

// New creates an invoicing service.
func New(store Store, renderer Renderer, prefix string, log *slog.Logger) *Service {
	if prefix == "" {
		prefix = "LS"
	}
	return &Service{store: store, renderer: renderer, prefix: prefix, log: log}
}

// GenerateResult reports what a generation pass did.
type GenerateResult struct {
	Created           int `json:"created"`
	Updated           int `json:"updated"`
	SkippedHasInvoice int `json:"skippedHasInvoice"`
	SkippedNoLines    int `json:"skippedNoLines"`
}

// GenerateDrafts builds draft invoices for every active student with
// enrollments, for one period.
//
// Per student: subscription enrollments contribute one line each
// (qty=1, unit price = subscription price, discount applied); per-lesson
// enrollments contribute one line per attendance record with count > 0.
// Students with no candidate lines are skipped without creating an invoice.
// An existing draft is fully overwritten; an issued, paid, or canceled
// invoice blocks regeneration for its slot.
func (s *Service) GenerateDrafts(ctx context.Context, year, month int) (GenerateResult, error) {
	res := GenerateResult{}
	if _, err := billing.NewPeriod(year, month); err != nil {
		return res, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.store.ListStudents(ctx, "", false)
	if err != nil {
		return res, err
	}

	courses := make(map[int64]*billing.Course)
	for _, st := range students {
		ens, err := s.store.ListEnrollmentsForStudent(ctx, st.ID)
		if err != nil {
			return res, err
		}
		if len(ens) == 0 {
			continue
		}

		lines, err := s.buildLines(ctx, ens, year, month, courses)
		if err != nil {
			return res, err
		}
		if len(lines) == 0 {
			res.SkippedNoLines++
			continue
		}
		total := billing.SumLines(lines)

		existing, err := s.store.FindInvoiceForPeriod(ctx, st.ID, year, month)
		if err != nil {
			return res, err
		}
		switch {
		case existing == nil:
			inv := &billing.Invoice{
				StudentID: st.ID,
				Year:      year,
				Month:     month,
				Status:    billing.StatusDraft,
				Total:     total,
				Lines:     lines,
			}
			if _, err := s.store.CreateInvoice(ctx, inv); err != nil {
				return res, err
			}
			res.Created++

		case existing.Status == billing.StatusDraft:
			if err := s.store.ReplaceInvoiceLines(ctx, existing.ID, lines, total); err != nil {
				return res, err
			}
			res.Updated++

		default:
			// Issued, paid, or canceled: the slot is taken for good.
			res.SkippedHasInvoice++
		}
	}

	s.log.Info("drafts generated",
		"period", billing.Period{Year: year, Month: month},
		"created", res.Created, "updated", res.Updated,
		"skippedHasInvoice", res.SkippedHasInvoice, "skippedNoLines", res.SkippedNoLines)
	return res, nil
}

func (s *Service) buildLines(ctx context.Context, ens []billing.Enrollment, year, month int, courses map[int64]*billing.Course) ([]billing.InvoiceLine, error) {
	var lines []billing.InvoiceLine
	for _, en := range ens {
		c, ok := courses[en.CourseID]
		if !ok {
			var err error
			c, err = s.store.GetCourse(ctx, en.CourseID)
			if err != nil {
				return nil, err
			}
			courses[en.CourseID] = c
		}

		switch en.BillingMode {
		case billing.BillingSubscription:
			if !c.SubscriptionPrice.IsPositive() {
				continue
			}
			lines = append(lines, billing.InvoiceLine{
				EnrollmentID: en.ID,
				Description:  fmt.Sprintf("Subscription %04d-%02d, %s", year, month, c.Name),
				Qty:          1,
				UnitPrice:    c.SubscriptionPrice,
				Amount:       billing.LineAmount(1, c.SubscriptionPrice, en.DiscountPct),
			})

		case billing.BillingPerLesson:
			rec, err := s.store.GetAttendance(ctx, en.ID, year, month)
			if err != nil {
				return nil, err
			}
			if rec == nil || rec.Count <= 0 {
				continue
			}
			lines = append(lines, billing.InvoiceLine{
				EnrollmentID: en.ID,
				Description:  fmt.Sprintf("Lessons %04d-%02d, %s", year, month, c.Name),
				Qty:          rec.Count,
				UnitPrice:    c.LessonPrice,
				Amount:       billing.LineAmount(rec.Count, c.LessonPrice, en.DiscountPct),
			})

		default:
			s.log.Warn("unexpected billing mode", "enrollment", en.ID, "mode", en.BillingMode)
		}
	}
	return lines, nil
}

// Get loads one invoice with its lines, in any status.
func (s *Service) Get(ctx context.Context, id int64) (*billing.Invoice, error) {
	return s.store.GetInvoice(ctx, id)
}

// List returns invoice summaries for a period, optionally filtered by
// status (nil = all statuses).
func (s *Service) List(ctx context.Context, year, month int, status *billing.InvoiceStatus) ([]billing.InvoiceListItem, error) {
	if _, err := billing.NewPeriod(year, month); err != nil {
		return nil, err
	}
	if status != nil && !status.Valid() {
		return nil, &billing.ValidationError{Field: "status", Message: "unknown invoice status"}
	}
	return s.store.ListInvoices(ctx, year, month, status)
}

// DeleteDraft removes a draft invoice. Issued, paid, and canceled invoices
// are protected.
func (s *Service) DeleteDraft(ctx context.Context, id int64) error {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status != billing.StatusDraft {
		return billing.ErrNotDraft
	}
	return s.store.DeleteInvoice(ctx, id)
}

// Cancel voids a draft or issued invoice. The canceled invoice is kept for
// audit and keeps blocking its (student, period) slot. A number already
// assigned stays assigned; it is never reused.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	if !inv.Status.CanTransition(billing.StatusCanceled) {
		return &billing.ValidationError{Field: "status",
			Message: fmt.Sprintf("cannot cancel a %s invoice", inv.Status)}
	}
	if err := s.store.UpdateInvoiceStatus(ctx, id, billing.StatusCanceled); err != nil {
		return err
	}
	s.log.Info("invoice canceled", "id", id, "was", inv.Status)
	return nil
}
