// Package calc implements the tax and totals arithmetic shared by invoice
// creation, invoice update and the return transactions. All math is decimal;
// values are rounded to two places only at line-total and grand-total
// boundaries so intermediate taxable/tax amounts never compound error.
package calc

import "github.com/shopspring/decimal"

// TaxMode states whether an entered unit price already contains tax.
type TaxMode string

const (
	// TaxInclusive means the entered price contains tax; the taxable base
	// is backed out of the gross amount.
	TaxInclusive TaxMode = "INCLUSIVE"
	// TaxExclusive means tax is added on top of the entered price.
	TaxExclusive TaxMode = "EXCLUSIVE"
)

// GSTSplit selects the presentational division of the tax amount. It never
// changes the total.
type GSTSplit string

const (
	SplitCGSTSGST GSTSplit = "CGST_SGST"
	SplitIGST     GSTSplit = "IGST"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// Line is one invoice line as entered by the operator. Price is the rate the
// operator keyed in, not necessarily the catalog price. MRP feeds only the
// savings figure.
type Line struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
	TaxRate  decimal.Decimal
	MRP      decimal.Decimal
}

// LineAmounts is the result of computing a single line.
type LineAmounts struct {
	Taxable decimal.Decimal
	Tax     decimal.Decimal
	Total   decimal.Decimal
}

// Totals aggregates an invoice. Payable equals Total + RoundOff, i.e. Total
// rounded to the nearest whole currency unit.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Savings  decimal.Decimal
	RoundOff decimal.Decimal
	Payable  decimal.Decimal
	CGST     decimal.Decimal
	SGST     decimal.Decimal
	IGST     decimal.Decimal
}

// ComputeLine produces the taxable base, tax amount and total of one line.
// A zero tax rate always behaves as exclusive: gross is the taxable base.
func ComputeLine(line Line, mode TaxMode) LineAmounts {
	gross := line.Price.Mul(line.Quantity)
	fraction := line.TaxRate.Div(hundred)

	if mode == TaxInclusive && fraction.IsPositive() {
		taxable := gross.Div(decimal.NewFromInt(1).Add(fraction))
		return LineAmounts{
			Taxable: taxable,
			Tax:     gross.Sub(taxable),
			Total:   gross,
		}
	}

	tax := gross.Mul(fraction)
	return LineAmounts{
		Taxable: gross,
		Tax:     tax,
		Total:   gross.Add(tax),
	}
}

// ComputeTotals accumulates lines into invoice totals. Rounding policy is
// half-away-from-zero: two places for monetary boundaries, whole units for
// the round-off.
func ComputeTotals(lines []Line, mode TaxMode, split GSTSplit) Totals {
	var t Totals
	for _, line := range lines {
		amounts := ComputeLine(line, mode)
		t.Subtotal = t.Subtotal.Add(amounts.Taxable)
		t.Tax = t.Tax.Add(amounts.Tax)
		t.Total = t.Total.Add(amounts.Total)

		if line.MRP.IsPositive() {
			saved := line.MRP.Sub(line.Price).Mul(line.Quantity)
			if saved.IsPositive() {
				t.Savings = t.Savings.Add(saved)
			}
		}
	}

	t.Subtotal = Round2(t.Subtotal)
	t.Tax = Round2(t.Tax)
	t.Total = Round2(t.Total)
	t.Savings = Round2(t.Savings)

	rounded := t.Total.Round(0)
	t.RoundOff = rounded.Sub(t.Total)
	t.Payable = rounded

	if split == SplitIGST {
		t.IGST = t.Tax
	} else {
		half := Round2(t.Tax.Div(two))
		t.CGST = half
		t.SGST = t.Tax.Sub(half)
	}
	return t
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
