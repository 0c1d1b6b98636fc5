/*
Package payments records payments and reconciles them against issued
invoices to produce per-student debt figures.

PURPOSE:
  Payments are immutable facts: created once, never edited, reversed only
  by deletion. The aggregator derives everything else - per-invoice
  paid/remaining, per-student balances, and the debtor list - by summing
  those facts against issued invoice totals.

STATUS RATCHET:
  Creating a payment that covers an invoice's total ratchets the invoice
  issued -> paid. Deleting a payment does NOT automatically demote it;
  status goes stale until RecomputeInvoiceStatus is called explicitly.
  This avoids status oscillation on every edit.

DEBT FORMULA:
  totalInvoiced = sum of issued+paid invoice totals (drafts are not debts)
  totalPaid     = sum of ALL payments, linked or not
  balance       = totalPaid - totalInvoiced
  debt          = max(0, -balance)
  ListDebtors applies the identical formula across all active students.

SEE ALSO:
  - invoicing: produces the invoices reconciled here
*/
package payments

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tutora/billing-engine/billing"
)

// Store is the persistence the payment ledger needs.
type Store interface {
	billing.PaymentStore
	billing.InvoiceStore
	billing.CatalogStore
}

// Service provides payment recording and debt aggregation.
type Service struct {
	store Store
	log   *slog.Logger
}

// New creates a payments service.
func New(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// InvoiceSummary is the per-invoice reconciliation view. Remaining may be
// negative when the invoice is over-paid.
type InvoiceSummary struct {
	InvoiceID int64                 `json:"invoiceId"`
	Total     decimal.Decimal       `json:"total"`
	Paid      decimal.Decimal       `json:"paid"`
	Remaining decimal.Decimal       `json:"remaining"`
	Status    billing.InvoiceStatus `json:"status"`
	Number    *string               `json:"number,omitempty"`
}

// StudentBalance is the per-student aggregate view.
type StudentBalance struct {
	StudentID     int64           `json:"studentId"`
	StudentName   string          `json:"studentName"`
	TotalInvoiced decimal.Decimal `json:"totalInvoiced"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	Balance       decimal.Decimal `json:"balance"`
	Debt          decimal.Decimal `json:"debt"`
}

// Debtor is one row of the collection follow-up list.
type Debtor struct {
	StudentID     int64           `json:"studentId"`
	StudentName   string          `json:"studentName"`
	Debt          decimal.Decimal `json:"debt"`
	TotalInvoiced decimal.Decimal `json:"totalInvoiced"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
}

// Create records a payment. Fails with ErrInvalidAmount for amount <= 0.
// Over-payment is allowed and simply drives remaining negative. A payment
// linked to an invoice must target an issued or paid invoice belonging to
// the same student; creating it may ratchet the invoice issued -> paid.
func (s *Service) Create(ctx context.Context, studentID int64, invoiceID *int64,
	amount decimal.Decimal, method billing.PaymentMethod, paidAt time.Time, note string) (*billing.Payment, error) {

	if !amount.IsPositive() {
		return nil, billing.ErrInvalidAmount
	}
	if method != billing.PaymentCash && method != billing.PaymentBank {
		return nil, &billing.ValidationError{Field: "method", Message: "must be 'cash' or 'bank'"}
	}
	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if invoiceID != nil {
		iv, err := s.store.GetInvoice(ctx, *invoiceID)
		if err != nil {
			return nil, err
		}
		if iv.StudentID != studentID {
			return nil, &billing.ValidationError{Field: "invoiceId", Message: "invoice does not belong to student"}
		}
		if iv.Status == billing.StatusDraft {
			return nil, &billing.ValidationError{Field: "invoiceId", Message: "cannot pay a draft invoice; issue it first"}
		}
		if iv.Status == billing.StatusCanceled {
			return nil, &billing.ValidationError{Field: "invoiceId", Message: "cannot pay a canceled invoice"}
		}
	}

	p := &billing.Payment{
		StudentID: studentID,
		InvoiceID: invoiceID,
		Amount:    billing.Round2(amount),
		Method:    method,
		PaidAt:    paidAt,
		Note:      note,
	}
	if _, err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("payment recorded", "id", p.ID, "student", studentID, "amount", p.Amount, "linked", invoiceID != nil)

	// Ratchet: a covering payment promotes issued -> paid. Demotion never
	// happens here.
	if invoiceID != nil {
		if err := s.ratchetPaid(ctx, *invoiceID); err != nil {
			// The payment row is already durable at this point. Return it
			// with the error so callers do not retry and double-record.
			return p, err
		}
	}
	return p, nil
}

// QuickCash records an unlinked cash payment dated today. It credits only
// the student's aggregate balance.
func (s *Service) QuickCash(ctx context.Context, studentID int64, amount decimal.Decimal, note string) (*billing.Payment, error) {
	return s.Create(ctx, studentID, nil, amount, billing.PaymentCash, time.Now(), note)
}

// Delete reverses a payment. The linked invoice's status is deliberately
// left stale; call RecomputeInvoiceStatus to refresh it.
func (s *Service) Delete(ctx context.Context, paymentID int64) error {
	p, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	if err := s.store.DeletePayment(ctx, paymentID); err != nil {
		return err
	}
	s.log.Info("payment deleted", "id", paymentID, "student", p.StudentID, "amount", p.Amount)
	return nil
}

// ListForStudent returns the student's payments, most recent first.
func (s *Service) ListForStudent(ctx context.Context, studentID int64) ([]billing.Payment, error) {
	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return s.store.ListPaymentsForStudent(ctx, studentID)
}

// Summary reconciles one invoice: paid = sum of linked payments,
// remaining = total - paid (negative when over-paid).
func (s *Service) Summary(ctx context.Context, invoiceID int64) (*InvoiceSummary, error) {
	iv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	paid, err := s.store.SumPaymentsForInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	total := billing.Round2(iv.Total)
	paid = billing.Round2(paid)
	return &InvoiceSummary{
		InvoiceID: invoiceID,
		Total:     total,
		Paid:      paid,
		Remaining: total.Sub(paid),
		Status:    iv.Status,
		Number:    iv.Number,
	}, nil
}

// Balance computes the student's aggregate financial position.
func (s *Service) Balance(ctx context.Context, studentID int64) (*StudentBalance, error) {
	st, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return s.balanceFor(ctx, st)
}

func (s *Service) balanceFor(ctx context.Context, st *billing.Student) (*StudentBalance, error) {
	invoiced, err := s.store.SumInvoicedForStudent(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	paid, err := s.store.SumPaymentsForStudent(ctx, st.ID)
	if err != nil {
		return nil, err
	}

	invoiced = billing.Round2(invoiced)
	paid = billing.Round2(paid)
	balance := paid.Sub(invoiced)
	debt := decimal.Zero
	if balance.IsNegative() {
		debt = balance.Neg()
	}
	return &StudentBalance{
		StudentID:     st.ID,
		StudentName:   st.FullName,
		TotalInvoiced: invoiced,
		TotalPaid:     paid,
		Balance:       balance,
		Debt:          debt,
	}, nil
}

// ListDebtors applies the Balance formula across all active students and
// keeps those with debt > 0, sorted by debt descending.
func (s *Service) ListDebtors(ctx context.Context) ([]Debtor, error) {
	students, err := s.store.ListStudents(ctx, "", false)
	if err != nil {
		return nil, err
	}
	out := make([]Debtor, 0, len(students))
	for i := range students {
		b, err := s.balanceFor(ctx, &students[i])
		if err != nil {
			s.log.Error("balance calculation failed", "student", students[i].ID, "err", err)
			continue
		}
		if b.Debt.IsPositive() {
			out = append(out, Debtor{
				StudentID:     b.StudentID,
				StudentName:   b.StudentName,
				Debt:          b.Debt,
				TotalInvoiced: b.TotalInvoiced,
				TotalPaid:     b.TotalPaid,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Debt.GreaterThan(out[j].Debt)
	})
	return out, nil
}

// RecomputeInvoiceStatus refreshes an invoice's paid/issued status from its
// current payments. This is the explicit entry point that may demote
// paid -> issued after a payment deletion. Drafts and canceled invoices
// are never touched.
func (s *Service) RecomputeInvoiceStatus(ctx context.Context, invoiceID int64) error {
	iv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if iv.Status == billing.StatusDraft || iv.Status == billing.StatusCanceled {
		return nil
	}

	paid, err := s.store.SumPaymentsForInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	covered := paid.GreaterThanOrEqual(iv.Total)
	switch {
	case covered && iv.Status == billing.StatusIssued:
		return s.store.UpdateInvoiceStatus(ctx, invoiceID, billing.StatusPaid)
	case !covered && iv.Status == billing.StatusPaid:
		return s.store.UpdateInvoiceStatus(ctx, invoiceID, billing.StatusIssued)
	}
	return nil
}

// ratchetPaid promotes issued -> paid when payments cover the total.
func (s *Service) ratchetPaid(ctx context.Context, invoiceID int64) error {
	iv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if iv.Status != billing.StatusIssued {
		return nil
	}
	paid, err := s.store.SumPaymentsForInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if paid.GreaterThanOrEqual(iv.Total) {
		return s.store.UpdateInvoiceStatus(ctx, invoiceID, billing.StatusPaid)
	}
	return nil
}
