/*
Package pdf renders issued invoices as PDF documents.

PURPOSE:
  Rendering is a side effect of issuance, not part of it. The renderer
  only ever sees numbered invoices; a render failure leaves the invoice
  issued and the document can be regenerated later.

LAYOUT:
  Documents land under outDir/YYYY/MM/NUMBER.pdf so a year's worth of
  invoices stays browsable without any index.

SEE ALSO:
  - invoicing: calls Render after claiming an invoice number
*/
package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	"github.com/tutora/billing-engine/billing"
)

// Options configures the rendered document.
type Options struct {
	OutDir   string // root of the YYYY/MM tree
	OrgName  string
	OrgAddr  string
	Currency string // defaults to "EUR"
}

// Renderer writes invoice PDFs. Implements invoicing.Renderer.
type Renderer struct {
	opt Options
}

// NewRenderer creates a PDF renderer writing under opt.OutDir.
func NewRenderer(opt Options) *Renderer {
	if opt.Currency == "" {
		opt.Currency = "EUR"
	}
	return &Renderer{opt: opt}
}

// Render writes a PDF for a numbered invoice and returns its path.
func (r *Renderer) Render(ctx context.Context, inv *billing.Invoice, st *billing.Student) (string, error) {
	if inv.Number == nil || *inv.Number == "" {
		return "", fmt.Errorf("invoice %d has no number", inv.ID)
	}

	dir := filepath.Join(r.opt.OutDir, fmt.Sprintf("%04d", inv.Year), fmt.Sprintf("%02d", inv.Month))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dir %s: %w", dir, err)
	}
	outPath := filepath.Join(dir, *inv.Number+".pdf")

	doc := gofpdf.New("P", "mm", "A4", "")
	// Pin metadata to the issuance timestamp so re-rendering the same
	// invoice reproduces the same document.
	doc.SetCreationDate(inv.UpdatedAt)
	doc.SetModificationDate(inv.UpdatedAt)
	doc.SetMargins(16, 16, 16)
	doc.AddPage()

	// Header
	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 8, "INVOICE", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(0, 6, fmt.Sprintf("Number: %s    Date: %s", *inv.Number, inv.UpdatedAt.Format("02.01.2006")), "", 1, "L", false, 0, "")

	if r.opt.OrgName != "" {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(0, 6, r.opt.OrgName, "", 1, "L", false, 0, "")
	}
	if r.opt.OrgAddr != "" {
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(0, 5, r.opt.OrgAddr, "", "L", false)
	}

	doc.Ln(2)
	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(0, 6, fmt.Sprintf("Payer: %s", st.FullName), "", 1, "L", false, 0, "")

	// Line table
	doc.Ln(2)
	doc.SetFont("Helvetica", "B", 10)
	w := []float64{90, 20, 30, 30}
	headers := []string{"Description", "Quantity", "Price", "Amount"}
	for i, h := range headers {
		align := "L"
		if i > 0 {
			align = "R"
		}
		doc.CellFormat(w[i], 7, h, "TB", 0, align, false, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 10)
	for _, l := range inv.Lines {
		doc.CellFormat(w[0], 6, l.Description, "B", 0, "L", false, 0, "")
		doc.CellFormat(w[1], 6, fmt.Sprintf("%d", l.Qty), "B", 0, "R", false, 0, "")
		doc.CellFormat(w[2], 6, fmt.Sprintf("%s %s", l.UnitPrice.StringFixed(2), r.opt.Currency), "B", 0, "R", false, 0, "")
		doc.CellFormat(w[3], 6, fmt.Sprintf("%s %s", l.Amount.StringFixed(2), r.opt.Currency), "B", 0, "R", false, 0, "")
		doc.Ln(-1)
	}

	doc.Ln(2)
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(w[0]+w[1]+w[2], 7, "TOTAL:", "", 0, "R", false, 0, "")
	doc.CellFormat(w[3], 7, fmt.Sprintf("%s %s", inv.Total.StringFixed(2), r.opt.Currency), "", 1, "R", false, 0, "")

	doc.SetY(-26)
	doc.SetFont("Helvetica", "", 9)
	doc.CellFormat(0, 5, "Thank you for your timely payment!", "", 1, "C", false, 0, "")

	if err := doc.OutputFileAndClose(outPath); err != nil {
		return "", fmt.Errorf("write pdf %s: %w", outPath, err)
	}
	return outPath, nil
}
