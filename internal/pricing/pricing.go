// Package pricing prices cart lines by sale type. The box (packaging) price of
// a medicine is the reference; other sale types are derived from it through
// the packaging ratios.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"pharmapos/m/domain"
	"pharmapos/m/internal/units"
)

var hundred = decimal.NewFromInt(100)

// UnitPrice returns the price of one unit of the given sale type. Every level
// is derived from the box price with at most one division, which keeps
// unit <= blister <= packaging <= carton.
func UnitPrice(m domain.Medicine, t domain.SaleType) decimal.Decimal {
	r := units.RatiosOf(m)
	box := m.PriceSell
	perBox := decimal.NewFromInt(r.UnitsPerPackaging())

	switch t {
	case domain.SaleTypeUnit:
		return box.Div(perBox)
	case domain.SaleTypeBlister:
		return box.Mul(decimal.NewFromInt(int64(r.UnitsPerBlister))).Div(perBox)
	case domain.SaleTypeCarton:
		return box.Mul(decimal.NewFromInt(int64(r.BoxesPerCarton)))
	default:
		return box
	}
}

// LineTotal prices quantity units of the sale type after discount. The
// discount must already be within [0, 100].
func LineTotal(m domain.Medicine, t domain.SaleType, quantity int64, discountPercent float64) decimal.Decimal {
	return DiscountedPrice(m, t, discountPercent).Mul(decimal.NewFromInt(quantity))
}

// DiscountedPrice is the effective unit price of a line.
func DiscountedPrice(m domain.Medicine, t domain.SaleType, discountPercent float64) decimal.Decimal {
	keep := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(discountPercent).Div(hundred))
	return UnitPrice(m, t).Mul(keep)
}

// ClampPercent bounds a percentage to [0, 100].
func ClampPercent(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Split is the share of a total paid by the insurer and by the patient.
type Split struct {
	Insurance decimal.Decimal `json:"insurance_share"`
	Patient   decimal.Decimal `json:"patient_share"`
}

func InsuranceSplit(total decimal.Decimal, coveragePercent float64) Split {
	insurance := total.Mul(decimal.NewFromFloat(coveragePercent)).Div(hundred)
	return Split{Insurance: insurance, Patient: total.Sub(insurance)}
}

// Display rounds an amount for showing to a cashier.
func Display(d decimal.Decimal) string {
	return d.StringFixed(2)
}
