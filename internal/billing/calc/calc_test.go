package calc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func line(price, qty, rate string) Line {
	return Line{Price: dec(price), Quantity: dec(qty), TaxRate: dec(rate)}
}

func TestComputeLineInclusiveRoundTrip(t *testing.T) {
	cases := []Line{
		line("100", "10", "18"),
		line("99.99", "3", "12"),
		line("1", "1", "5"),
		line("123.45", "7", "28"),
		line("0.50", "13", "18"),
	}
	tolerance := dec("0.01")
	for _, c := range cases {
		amounts := ComputeLine(c, TaxInclusive)
		gross := c.Price.Mul(c.Quantity)

		diff := amounts.Taxable.Add(amounts.Tax).Sub(gross).Abs()
		require.True(t, diff.LessThanOrEqual(tolerance), "taxable+tax drifted from gross for price=%s qty=%s", c.Price, c.Quantity)

		expectedTax := gross.Sub(gross.Div(decimal.NewFromInt(1).Add(c.TaxRate.Div(decimal.NewFromInt(100)))))
		require.True(t, amounts.Tax.Sub(expectedTax).Abs().LessThanOrEqual(tolerance))
		require.True(t, amounts.Total.Equal(gross), "inclusive line total must equal gross")
	}
}

func TestComputeLineExclusive(t *testing.T) {
	cases := []Line{
		line("100", "10", "18"),
		line("42.42", "2", "12"),
		line("19.99", "5", "0"),
	}
	tolerance := dec("0.01")
	for _, c := range cases {
		amounts := ComputeLine(c, TaxExclusive)
		expected := c.Price.Mul(c.Quantity).Mul(decimal.NewFromInt(1).Add(c.TaxRate.Div(decimal.NewFromInt(100))))
		require.True(t, amounts.Total.Sub(expected).Abs().LessThanOrEqual(tolerance))
		require.True(t, amounts.Taxable.Equal(c.Price.Mul(c.Quantity)))
	}
}

func TestComputeLineZeroRateInclusive(t *testing.T) {
	amounts := ComputeLine(line("50", "4", "0"), TaxInclusive)
	require.True(t, amounts.Taxable.Equal(dec("200")))
	require.True(t, amounts.Tax.IsZero())
	require.True(t, amounts.Total.Equal(dec("200")))
}

func TestComputeTotalsWorkedExample(t *testing.T) {
	// 10 x 100 at 18% exclusive: 1000 + 180 = 1180.
	totals := ComputeTotals([]Line{line("100", "10", "18")}, TaxExclusive, SplitCGSTSGST)
	require.True(t, totals.Subtotal.Equal(dec("1000")))
	require.True(t, totals.Tax.Equal(dec("180")))
	require.True(t, totals.Total.Equal(dec("1180")))
	require.True(t, totals.RoundOff.IsZero())
	require.True(t, totals.Payable.Equal(dec("1180")))
	require.True(t, totals.CGST.Equal(dec("90")))
	require.True(t, totals.SGST.Equal(dec("90")))
	require.True(t, totals.IGST.IsZero())
}

func TestComputeTotalsRoundOff(t *testing.T) {
	// 3 x 33.33 at 5%: 99.99 + 5.00 = 104.99 -> payable 105, round-off 0.01.
	totals := ComputeTotals([]Line{line("33.33", "3", "5")}, TaxExclusive, SplitIGST)
	require.True(t, totals.Total.Equal(dec("104.99")), "got %s", totals.Total)
	require.True(t, totals.Payable.Equal(dec("105")))
	require.True(t, totals.RoundOff.Equal(dec("0.01")))
	require.True(t, totals.Payable.Equal(totals.Total.Add(totals.RoundOff)))
}

func TestComputeTotalsSavings(t *testing.T) {
	lines := []Line{
		{Price: dec("90"), Quantity: dec("2"), TaxRate: dec("0"), MRP: dec("100")},
		// Selling above MRP contributes no negative savings.
		{Price: dec("120"), Quantity: dec("1"), TaxRate: dec("0"), MRP: dec("100")},
	}
	totals := ComputeTotals(lines, TaxExclusive, SplitIGST)
	require.True(t, totals.Savings.Equal(dec("20")))
}

func TestGSTSplitPreservesTotal(t *testing.T) {
	lines := []Line{line("33.33", "1", "18")}
	domestic := ComputeTotals(lines, TaxExclusive, SplitCGSTSGST)
	interstate := ComputeTotals(lines, TaxExclusive, SplitIGST)

	require.True(t, domestic.Total.Equal(interstate.Total))
	require.True(t, domestic.CGST.Add(domestic.SGST).Equal(domestic.Tax), "split halves must re-sum to the tax amount")
	require.True(t, interstate.IGST.Equal(interstate.Tax))
	require.True(t, interstate.CGST.IsZero())
}

func TestInclusiveNeverRoundsIntermediates(t *testing.T) {
	// Three inclusive lines whose per-line tax does not terminate at two
	// places; accumulation must happen before rounding.
	lines := []Line{
		line("10", "1", "18"),
		line("10", "1", "18"),
		line("10", "1", "18"),
	}
	totals := ComputeTotals(lines, TaxInclusive, SplitIGST)
	require.True(t, totals.Total.Equal(dec("30")))
	require.True(t, totals.Subtotal.Add(totals.Tax).Sub(totals.Total).Abs().LessThanOrEqual(dec("0.01")))
}
