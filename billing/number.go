package billing

import "fmt"

// FormatInvoiceNumber renders an invoice number as PREFIX-YYYY-NNNN.
// Sequences are scoped by year: the first invoice issued in 2025 under
// prefix "LS" is LS-2025-0001. Numbers are monotonic and never reused,
// even when an invoice is later canceled.
func FormatInvoiceNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%04d-%04d", prefix, year, seq)
}
