package billing

import "math"

// TaxCalculator applies a company's tax configuration to an invoice
// subtotal. Amounts are rounded half-up to the nearest cent.
type TaxCalculator struct {
	// ZeroTaxOnReverseCharge zeroes the computed tax when the company's
	// tax settings carry the reverse-charge flag. Off by default:
	// reverse-charge invoices then show the computed tax and the flag is
	// carried through for downstream reporting only.
	ZeroTaxOnReverseCharge bool
}

// CalculateTax computes the tax amount in cents for a subtotal.
// The override rate wins over the company default; with no tax
// configuration at all the tax is zero.
func (c TaxCalculator) CalculateTax(subtotalCents int64, taxCtx *TaxContext) int64 {
	pct := taxCtx.EffectivePercentage()
	if pct == nil {
		return 0
	}
	if c.ZeroTaxOnReverseCharge && taxCtx.ReverseCharge {
		return 0
	}
	return roundCents(float64(subtotalCents) * *pct / 100)
}

// roundCents rounds a fractional cent amount half away from zero.
func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
