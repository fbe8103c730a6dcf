// Package invoicecalc computes invoice totals with exact decimal arithmetic.
package invoicecalc

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrRateOutOfRange   = errors.New("percentage must be between 0 and 100")
	ErrNegativeQuantity = errors.New("quantity must not be negative")
	ErrNegativePrice    = errors.New("unit price must not be negative")
	ErrTooManyItems     = fmt.Errorf("an invoice may have at most %d items", MaxItems)
	ErrAmountTooLarge   = errors.New("quantity and unit price must be below 1000000000")
	ErrTooPrecise       = fmt.Errorf("at most %d decimal places are allowed", MaxScale)
)

// Input bounds. With them every stored amount fits the 34 significant
// digits of Decimal128.
const (
	MaxItems = 500
	// MaxScale is the number of decimal places accepted for quantities,
	// unit prices and percentages.
	MaxScale = 4
	// StoredScale is the number of decimal places kept for persisted totals.
	StoredScale = 8

	// Exponent window checked before any arithmetic. Values outside it
	// are rejected without being expanded.
	minExponent = -18
	maxExponent = 9
)

var (
	hundred   = decimal.NewFromInt(100)
	maxAmount = decimal.New(1, 9)
)

// Item is a quantity and unit price pair.
type Item struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// Amount is quantity times unit price. Call it on items accepted by
// Calculate.
func (it Item) Amount() decimal.Decimal {
	return Normalize(it.Quantity).Mul(Normalize(it.UnitPrice))
}

// Totals holds the derived amounts of an invoice.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxableAmount  decimal.Decimal `json:"taxableAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	Total          decimal.Decimal `json:"total"`
}

// Rounded returns the totals rounded to two places, half away from zero,
// for display.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:       t.Subtotal.Round(2),
		DiscountAmount: t.DiscountAmount.Round(2),
		TaxableAmount:  t.TaxableAmount.Round(2),
		TaxAmount:      t.TaxAmount.Round(2),
		Total:          t.Total.Round(2),
	}
}

// Stored returns the totals as persisted on an invoice: values with more
// than StoredScale places are rounded half away from zero.
func (t Totals) Stored() Totals {
	return Totals{
		Subtotal:       stored(t.Subtotal),
		DiscountAmount: stored(t.DiscountAmount),
		TaxableAmount:  stored(t.TaxableAmount),
		TaxAmount:      stored(t.TaxAmount),
		Total:          stored(t.Total),
	}
}

func stored(v decimal.Decimal) decimal.Decimal {
	if v.Exponent() < -StoredScale {
		return v.Round(StoredScale)
	}
	return v
}

// Calculate returns subtotal, discount, taxable amount, tax and total for
// the items. Percentages must lie in [0, 100]; quantities and prices must
// not be negative. All inputs are bounds checked before any arithmetic.
func Calculate(items []Item, discountPct, taxPct decimal.Decimal) (Totals, error) {
	if len(items) > MaxItems {
		return Totals{}, ErrTooManyItems
	}
	if err := CheckRate(discountPct); err != nil {
		return Totals{}, fmt.Errorf("discount: %w", err)
	}
	if err := CheckRate(taxPct); err != nil {
		return Totals{}, fmt.Errorf("tax: %w", err)
	}
	for i, it := range items {
		if err := checkAmount(it.Quantity, ErrNegativeQuantity); err != nil {
			return Totals{}, fmt.Errorf("item %d quantity: %w", i+1, err)
		}
		if err := checkAmount(it.UnitPrice, ErrNegativePrice); err != nil {
			return Totals{}, fmt.Errorf("item %d unit price: %w", i+1, err)
		}
	}

	discountPct, taxPct = Normalize(discountPct), Normalize(taxPct)
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Amount())
	}

	// Shift(-2) divides by 100 exactly; Div would round at DivisionPrecision.
	discountAmount := subtotal.Mul(discountPct).Shift(-2)
	taxable := subtotal.Sub(discountAmount)
	taxAmount := taxable.Mul(taxPct).Shift(-2)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxableAmount:  taxable,
		TaxAmount:      taxAmount,
		Total:          taxable.Add(taxAmount),
	}, nil
}

// CheckRate validates a percentage: within [0, 100] and at most MaxScale
// decimal places.
func CheckRate(pct decimal.Decimal) error {
	if !inExponentWindow(pct) {
		return ErrRateOutOfRange
	}
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return ErrRateOutOfRange
	}
	return checkScale(pct)
}

func checkAmount(v decimal.Decimal, negErr error) error {
	if v.IsNegative() {
		return negErr
	}
	if !inExponentWindow(v) || v.GreaterThanOrEqual(maxAmount) {
		return ErrAmountTooLarge
	}
	return checkScale(v)
}

// inExponentWindow rejects values like 1e20000000 whose expansion alone
// would be expensive, zero included.
func inExponentWindow(v decimal.Decimal) bool {
	exp := v.Exponent()
	return exp >= minExponent && exp <= maxExponent
}

// Normalize drops trailing zeros beyond MaxScale from a value that passed
// the bounds checks, so "1.000000000000000000" is stored as 1.0000.
func Normalize(v decimal.Decimal) decimal.Decimal {
	return v.Truncate(MaxScale)
}

// checkScale tolerates trailing zeros beyond MaxScale ("1.500000").
func checkScale(v decimal.Decimal) error {
	if v.Exponent() >= -MaxScale || v.Equal(v.Truncate(MaxScale)) {
		return nil
	}
	return ErrTooPrecise
}
