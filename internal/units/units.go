// Package units converts stock quantities between base units (single tablets,
// ampoules, ...) and the carton → box → blister → unit packaging hierarchy.
package units

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"pharmapos/m/domain"
)

const (
	DefaultCartonLabel = "Crt"
	DefaultBoxLabel    = "Bt"
	BlisterLabel       = "Pliq"
	UnitLabel          = "Un"
)

// Ratios describes how a product's base units are packed. Zero or negative
// values mean the level is not subdivided and behave as 1.
type Ratios struct {
	UnitsPerBlister int
	BlistersPerBox  int
	BoxesPerCarton  int
}

// RatiosOf reads the packaging ratios of a medicine.
func RatiosOf(m domain.Medicine) Ratios {
	return Ratios{
		UnitsPerBlister: m.UnitsPerBlister,
		BlistersPerBox:  m.BlistersPerBox,
		BoxesPerCarton:  m.BoxesPerCarton,
	}.Normalize()
}

// ParseRatio reads a ratio typed into a form. Anything that is not a positive
// integer yields 1.
func ParseRatio(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (r Ratios) Normalize() Ratios {
	return Ratios{
		UnitsPerBlister: atLeastOne(r.UnitsPerBlister),
		BlistersPerBox:  atLeastOne(r.BlistersPerBox),
		BoxesPerCarton:  atLeastOne(r.BoxesPerCarton),
	}
}

func (r Ratios) UnitsPerPackaging() int64 {
	n := r.Normalize()
	return int64(n.UnitsPerBlister) * int64(n.BlistersPerBox)
}

func (r Ratios) UnitsPerCarton() int64 {
	return r.UnitsPerPackaging() * int64(r.Normalize().BoxesPerCarton)
}

// HasCartons reports whether cartons are a distinct level.
func (r Ratios) HasCartons() bool { return r.BoxesPerCarton > 1 }

// HasBlisters reports whether blisters are a distinct level.
func (r Ratios) HasBlisters() bool { return r.BlistersPerBox > 1 }

// UnitSize returns how many base units one unit of the sale type holds.
// Unknown sale types count as a box.
func (r Ratios) UnitSize(t domain.SaleType) int64 {
	switch t {
	case domain.SaleTypeUnit:
		return 1
	case domain.SaleTypeBlister:
		return int64(r.Normalize().UnitsPerBlister)
	case domain.SaleTypeCarton:
		return r.UnitsPerCarton()
	default:
		return r.UnitsPerPackaging()
	}
}

// SaleTypes lists the sale types a product offers, largest first. Packaging is
// always offered.
func (r Ratios) SaleTypes() []domain.SaleType {
	var types []domain.SaleType
	if r.HasCartons() {
		types = append(types, domain.SaleTypeCarton)
	}
	types = append(types, domain.SaleTypePackaging)
	if r.HasBlisters() {
		types = append(types, domain.SaleTypeBlister)
	}
	if r.UnitsPerPackaging() > 1 {
		types = append(types, domain.SaleTypeUnit)
	}
	return types
}

// Offers reports whether t is one of the product's sale types.
func (r Ratios) Offers(t domain.SaleType) bool {
	for _, offered := range r.SaleTypes() {
		if offered == t {
			return true
		}
	}
	return false
}

// EntryUnitSize is the size of the unit stock is entered in: cartons when the
// product has them, boxes otherwise.
func (r Ratios) EntryUnitSize() int64 {
	if r.HasCartons() {
		return r.UnitsPerCarton()
	}
	return r.UnitsPerPackaging()
}

// ErrQuantityTooLarge is returned when a quantity has no exact int64 count of
// base units.
var ErrQuantityTooLarge = errors.New("quantity too large")

// ToBaseUnits converts a quantity entered in the largest available unit into
// base units.
func ToBaseUnits(displayQuantity int64, r Ratios) (int64, error) {
	if displayQuantity <= 0 {
		return 0, nil
	}
	size := r.Normalize().EntryUnitSize()
	if size <= 0 || displayQuantity > math.MaxInt64/size {
		return 0, fmt.Errorf("%w: %d x %d base units", ErrQuantityTooLarge, displayQuantity, size)
	}
	return displayQuantity * size, nil
}

// ToDisplayQuantity is the inverse of ToBaseUnits used when editing stock.
// Leftover base units that do not fill a whole entry unit are dropped.
func ToDisplayQuantity(baseUnits int64, r Ratios) int64 {
	if baseUnits <= 0 {
		return 0
	}
	return baseUnits / r.Normalize().EntryUnitSize()
}

// StockOf returns a medicine's stock as whole base units.
func StockOf(m domain.Medicine) int64 {
	if m.Quantity <= 0 {
		return 0
	}
	return int64(math.Floor(m.Quantity))
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
