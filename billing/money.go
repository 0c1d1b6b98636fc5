package billing

import "github.com/shopspring/decimal"

// =============================================================================
// MONEY - All monetary arithmetic in one place
// =============================================================================

// Round2 rounds a monetary value to 2 decimal places, half away from zero.
// Every amount that is persisted or summed has passed through Round2 first,
// so totals accumulate already-rounded values and cannot drift.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineAmount computes the amount of a single invoice line:
//
//	amount = round2(qty * unitPrice * (1 - discountPct/100))
//
// The discount is the one in effect on the source enrollment at generation
// time; it is captured in the line amount, not stored on the line.
func LineAmount(qty int, unitPrice, discountPct decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(discountPct.Div(decimal.NewFromInt(100)))
	return Round2(decimal.NewFromInt(int64(qty)).Mul(unitPrice).Mul(factor))
}

// SumLines totals already-rounded line amounts. The result is rounded again
// for safety, which is a no-op when every input went through LineAmount.
func SumLines(lines []InvoiceLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return Round2(total)
}

// ClampDiscount forces a discount percentage into [0,100].
// Called on every enrollment write before persistence.
func ClampDiscount(pct decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}
