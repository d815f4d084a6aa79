package tax

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// AppliedTax is the computed amount for a single tax rule.
type AppliedTax struct {
	TaxID  int64
	Name   string
	Amount decimal.Decimal
}

// Result holds the tax-excluded and tax-included totals for a priced
// quantity, plus the per-tax breakdown.
type Result struct {
	TotalExcluded decimal.Decimal
	TotalIncluded decimal.Decimal
	Taxes         []AppliedTax
}

// TaxAmount returns the total tax across all applied taxes.
func (r Result) TaxAmount() decimal.Decimal {
	return r.TotalIncluded.Sub(r.TotalExcluded)
}

// Engine computes tax-excluded and tax-included totals for a priced quantity
// given an applicable tax set. Implementations own all monetary rounding.
type Engine interface {
	ComputeAll(priceUnit decimal.Decimal, qty decimal.Decimal, taxes []Tax) (Result, error)
}

// Calculator is the default Engine. Amounts are rounded to two decimal
// places; the caller passes the already-discounted unit price.
type Calculator struct {
	precision int32
}

// NewCalculator returns a Calculator with standard two-decimal rounding.
func NewCalculator() *Calculator {
	return &Calculator{precision: 2}
}

// ComputeAll computes totals for priceUnit * qty under the given taxes.
//
// Price-included taxes are backed out of the base first: fixed included
// charges are subtracted, then the remaining base is divided by
// (1 + sum of included percentages). Price-excluded taxes are added on top of
// the net base. The invariant TotalIncluded - TotalExcluded == Σ tax amounts
// holds exactly because the included total is rebuilt from the rounded parts.
func (c *Calculator) ComputeAll(priceUnit decimal.Decimal, qty decimal.Decimal, taxes []Tax) (Result, error) {
	base := priceUnit.Mul(qty)

	for _, t := range taxes {
		switch t.AmountType {
		case AmountPercent, AmountFixed:
		default:
			return Result{}, errors.Errorf("unsupported tax amount type: %q", t.AmountType)
		}
	}

	// Back included taxes out of the base.
	inclPct := decimal.Zero
	inclFixed := decimal.Zero
	for _, t := range taxes {
		if !t.PriceInclude {
			continue
		}
		switch t.AmountType {
		case AmountPercent:
			inclPct = inclPct.Add(t.Amount)
		case AmountFixed:
			inclFixed = inclFixed.Add(t.Amount.Mul(qty))
		}
	}

	net := base.Sub(inclFixed)
	if inclPct.IsPositive() {
		net = net.Div(decimal.NewFromInt(1).Add(inclPct.Div(hundred)))
	}

	totalExcluded := net.Round(c.precision)

	applied := make([]AppliedTax, 0, len(taxes))
	taxTotal := decimal.Zero
	for _, t := range taxes {
		var amount decimal.Decimal
		switch t.AmountType {
		case AmountPercent:
			amount = net.Mul(t.Amount).Div(hundred)
		case AmountFixed:
			amount = t.Amount.Mul(qty)
		}
		amount = amount.Round(c.precision)
		taxTotal = taxTotal.Add(amount)
		applied = append(applied, AppliedTax{TaxID: t.ID, Name: t.Name, Amount: amount})
	}

	return Result{
		TotalExcluded: totalExcluded,
		TotalIncluded: totalExcluded.Add(taxTotal),
		Taxes:         applied,
	}, nil
}
