package invoicing

import (
	"context"
	"errors"

	"github.com/tutora/billing-engine/billing"
)

// =============================================================================
// ISSUANCE - Freeze a draft into a numbered, immutable invoice
// =============================================================================

// IssueResult reports a successful issuance. PDFPath is empty when
// rendering failed after the invoice was already issued (the error then is
// a RenderFailureError carrying the number).
type IssueResult struct {
	InvoiceID int64  `json:"invoiceId"`
	Number    string `json:"number"`
	PDFPath   string `json:"pdfPath,omitempty"`
}

// IssueFailure is one failed item in an IssueAll batch. Message mirrors Err
// for JSON responses.
type IssueFailure struct {
	InvoiceID int64  `json:"invoiceId"`
	Err       error  `json:"-"`
	Message   string `json:"error"`
}

// IssueAllResult reports a batch issuance: the successes that went through
// and the per-invoice failures that did not stop the rest of the batch.
type IssueAllResult struct {
	Count    int            `json:"count"`
	Results  []IssueResult  `json:"results,omitempty"`
	Failures []IssueFailure `json:"failures,omitempty"`
}

// Issue freezes one draft: assigns the next sequential number for its year,
// transitions draft -> issued atomically, then asks the renderer for the
// PDF. Fails with ErrNotDraft when the invoice is not a draft - issuance is
// never idempotent.
//
// Rendering failure does NOT roll back the financial state change: the
// invoice stays issued and the returned RenderFailureError carries the
// assigned number so the caller may retry rendering alone.
func (s *Service) Issue(ctx context.Context, id int64) (IssueResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueOne(ctx, id)
}

func (s *Service) issueOne(ctx context.Context, id int64) (IssueResult, error) {
	number, err := s.store.IssueInvoice(ctx, id, s.prefix)
	if err != nil {
		return IssueResult{InvoiceID: id}, err
	}
	res := IssueResult{InvoiceID: id, Number: number}
	s.log.Info("invoice issued", "id", id, "number", number)

	path, err := s.renderPDF(ctx, id)
	if err != nil {
		s.log.Error("pdf render failed after issuance", "id", id, "number", number, "err", err)
		return res, &billing.RenderFailureError{InvoiceID: id, Number: number, Cause: err}
	}
	res.PDFPath = path
	return res, nil
}

// IssueAll issues every remaining draft for the period in ascending
// invoice-id order. A failure on one invoice does not prevent attempting
// the rest; the result carries both successes and the failure list.
func (s *Service) IssueAll(ctx context.Context, year, month int) (IssueAllResult, error) {
	out := IssueAllResult{}
	if _, err := billing.NewPeriod(year, month); err != nil {
		return out, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.store.ListDraftIDs(ctx, year, month)
	if err != nil {
		return out, err
	}
	for _, id := range ids {
		res, err := s.issueOne(ctx, id)
		if err != nil {
			out.Failures = append(out.Failures, IssueFailure{InvoiceID: id, Err: err, Message: err.Error()})
			// A render failure still issued the invoice; count it.
			if errors.Is(err, billing.ErrRenderFailure) {
				out.Count++
				out.Results = append(out.Results, res)
			}
			continue
		}
		out.Count++
		out.Results = append(out.Results, res)
	}

	s.log.Info("issue all finished",
		"period", billing.Period{Year: year, Month: month},
		"issued", out.Count, "failed", len(out.Failures))
	return out, nil
}

// RenderPDF re-renders the PDF for an already-issued invoice without
// touching its state. Used for "open PDF" and for retrying after a
// RenderFailure.
func (s *Service) RenderPDF(ctx context.Context, id int64) (string, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return "", err
	}
	if !inv.Status.Frozen() {
		return "", &billing.ValidationError{Field: "status", Message: "invoice has no frozen document to render"}
	}
	return s.renderPDF(ctx, id)
}

func (s *Service) renderPDF(ctx context.Context, id int64) (string, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return "", err
	}
	st, err := s.store.GetStudent(ctx, inv.StudentID)
	if err != nil {
		return "", err
	}
	return s.renderer.Render(ctx, inv, st)
}
