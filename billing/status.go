package billing

// =============================================================================
// INVOICE STATUS - Closed variant with explicit transitions
// =============================================================================

// InvoiceStatus is the lifecycle state of an invoice.
//
// State machine:
//
//	draft --Issue--> issued --payments cover total--> paid
//	draft --Delete--> (removed)
//	draft/issued --Cancel--> canceled (terminal, kept for audit)
//
// Issued and paid invoices are frozen: their lines and number never change.
// A canceled invoice keeps occupying its (student, period) slot so that
// regeneration cannot silently replace an audited document.
type InvoiceStatus string

const (
	StatusDraft    InvoiceStatus = "draft"
	StatusIssued   InvoiceStatus = "issued"
	StatusPaid     InvoiceStatus = "paid"
	StatusCanceled InvoiceStatus = "canceled"
)

// Valid reports whether s is one of the four known states.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusIssued, StatusPaid, StatusCanceled:
		return true
	}
	return false
}

// Frozen reports whether the invoice's lines and number are immutable.
func (s InvoiceStatus) Frozen() bool {
	return s == StatusIssued || s == StatusPaid
}

// CountsAsDebt reports whether the invoice total contributes to the
// student's totalInvoiced figure. Drafts are not yet debts; canceled
// invoices never were.
func (s InvoiceStatus) CountsAsDebt() bool {
	return s == StatusIssued || s == StatusPaid
}

// CanTransition reports whether to is a legal next state from s.
// Payment-driven moves between issued and paid are included: paid -> issued
// is only reachable through an explicit status recomputation.
func (s InvoiceStatus) CanTransition(to InvoiceStatus) bool {
	switch s {
	case StatusDraft:
		return to == StatusIssued || to == StatusCanceled
	case StatusIssued:
		return to == StatusPaid || to == StatusCanceled
	case StatusPaid:
		return to == StatusIssued
	default:
		return false
	}
}
