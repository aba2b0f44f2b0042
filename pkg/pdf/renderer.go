package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// BasicRenderer produces a plain single-page PDF listing the invoice
// header, line items, and totals. It exists so the pipeline is
// runnable without a layout engine; production deployments inject
// their own Renderer.
type BasicRenderer struct{}

var _ Renderer = (*BasicRenderer)(nil)

// Render produces PDF bytes for the invoice
func (r *BasicRenderer) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	if req.Invoice == nil {
		return nil, fmt.Errorf("render request has no invoice")
	}

	inv := req.Invoice
	lines := []string{
		fmt.Sprintf("Invoice %s", inv.InvoiceNumber),
	}
	if req.Company != nil {
		lines = append(lines, fmt.Sprintf("Billed to: %s", req.Company.Name))
	}
	lines = append(lines,
		fmt.Sprintf("Period: %s to %s",
			inv.PeriodStart.Format("2006-01-02"), inv.PeriodEnd.Format("2006-01-02")),
		"",
	)
	for _, item := range inv.LineItems {
		lines = append(lines, fmt.Sprintf("%s  x%.2f @ %s  =  %s",
			item.Description, item.Quantity,
			formatCents(item.UnitPriceCents, inv.Currency),
			formatCents(item.NetCents, inv.Currency)))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Subtotal: %s", formatCents(inv.SubtotalCents, inv.Currency)),
		fmt.Sprintf("Tax: %s", formatCents(inv.TaxCents, inv.Currency)),
		fmt.Sprintf("Total: %s", formatCents(inv.TotalCents, inv.Currency)),
	)

	return buildDocument(lines), nil
}

func formatCents(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}

// buildDocument assembles a minimal single-page PDF with a Helvetica
// text column. Offsets in the xref table are byte positions, so the
// document is built sequentially.
func buildDocument(lines []string) []byte {
	var content bytes.Buffer
	content.WriteString("BT\n/F1 11 Tf\n72 740 Td\n14 TL\n")
	for i, line := range lines {
		if i > 0 {
			content.WriteString("T*\n")
		}
		content.WriteString(fmt.Sprintf("(%s) Tj\n", escapeText(line)))
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var doc bytes.Buffer
	doc.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = doc.Len()
		doc.WriteString(fmt.Sprintf("%d 0 obj\n%s\nendobj\n", i+1, obj))
	}

	xrefStart := doc.Len()
	doc.WriteString(fmt.Sprintf("xref\n0 %d\n", len(objects)+1))
	doc.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		doc.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}
	doc.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefStart))

	return doc.Bytes()
}

// escapeText escapes the characters PDF string literals reserve
func escapeText(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return replacer.Replace(s)
}
