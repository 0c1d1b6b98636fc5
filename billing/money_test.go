package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tutora/billing-engine/billing"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =============================================================================
// LINE ARITHMETIC
// =============================================================================

func TestLineAmount_NoDiscount(t *testing.T) {
	// GIVEN: 4 lessons at 10.00
	// WHEN: Computing the line amount with no discount
	// THEN: The amount is exactly 40.00

	got := billing.LineAmount(4, dec("10"), decimal.Zero)
	assert.True(t, dec("40").Equal(got), "got %s", got)
}

func TestLineAmount_DiscountRounding(t *testing.T) {
	// GIVEN: 3 lessons at 9.99 with a 5% discount
	// WHEN: Computing the line amount
	// THEN: 3 * 9.99 * 0.95 = 28.4715 rounds to 28.47

	got := billing.LineAmount(3, dec("9.99"), dec("5"))
	assert.True(t, dec("28.47").Equal(got), "got %s", got)
}

func TestLineAmount_HalfRoundsUp(t *testing.T) {
	// GIVEN: 1 lesson at 10.05 with a 50% discount
	// WHEN: Computing the line amount
	// THEN: 5.025 rounds to 5.03 (half away from zero)

	got := billing.LineAmount(1, dec("10.05"), dec("50"))
	assert.True(t, dec("5.03").Equal(got), "got %s", got)
}

func TestLineAmount_FullDiscount(t *testing.T) {
	got := billing.LineAmount(7, dec("25"), dec("100"))
	assert.True(t, got.IsZero(), "got %s", got)
}

func TestSumLines_SumsRoundedAmounts(t *testing.T) {
	// GIVEN: Lines whose amounts were already rounded individually
	// WHEN: Summing them into an invoice total
	// THEN: The total is the sum of the rounded amounts, not a re-rounding
	//       of the raw products

	lines := []billing.InvoiceLine{
		{Amount: billing.LineAmount(1, dec("10.05"), dec("50"))}, // 5.03
		{Amount: billing.LineAmount(1, dec("10.05"), dec("50"))}, // 5.03
	}
	got := billing.SumLines(lines)
	assert.True(t, dec("10.06").Equal(got), "got %s", got)
}

// =============================================================================
// DISCOUNT CLAMPING
// =============================================================================

func TestClampDiscount(t *testing.T) {
	assert.True(t, dec("0").Equal(billing.ClampDiscount(dec("-5"))))
	assert.True(t, dec("100").Equal(billing.ClampDiscount(dec("150"))))
	assert.True(t, dec("12.5").Equal(billing.ClampDiscount(dec("12.5"))))
}

// =============================================================================
// ROUNDING
// =============================================================================

func TestRound2(t *testing.T) {
	assert.True(t, dec("1.01").Equal(billing.Round2(dec("1.005"))))
	assert.True(t, dec("1").Equal(billing.Round2(dec("1.004"))))
	assert.True(t, dec("-1.01").Equal(billing.Round2(dec("-1.005"))))
}
