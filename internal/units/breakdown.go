package units

import (
	"fmt"
	"strings"

	"pharmapos/m/domain"
)

// Labels names the carton and box levels. Empty fields fall back to the
// defaults.
type Labels struct {
	Carton string
	Box    string
}

// LabelsOf takes the carton and packaging names configured on a medicine.
func LabelsOf(m domain.Medicine) Labels {
	var l Labels
	if m.CartonType != nil {
		l.Carton = strings.TrimSpace(*m.CartonType)
	}
	if m.Packaging != nil {
		l.Box = strings.TrimSpace(*m.Packaging)
	}
	return l
}

func (l Labels) carton() string {
	if l.Carton == "" {
		return DefaultCartonLabel
	}
	return l.Carton
}

func (l Labels) box() string {
	if l.Box == "" {
		return DefaultBoxLabel
	}
	return l.Box
}

// Part is one level of a breakdown. Level is the sale type the count is
// expressed in; the label is for display only.
type Part struct {
	Count int64           `json:"count"`
	Label string          `json:"label"`
	Level domain.SaleType `json:"level,omitempty"`
}

// Breakdown splits base units greedily into cartons, boxes, blisters and
// units. Only non-zero parts are returned; an empty stock is [{0, ""}].
func Breakdown(baseUnits int64, r Ratios, l Labels) []Part {
	r = r.Normalize()
	if baseUnits < 0 {
		baseUnits = 0
	}
	remainder := baseUnits

	var cartons int64
	if r.HasCartons() {
		cartons = remainder / r.UnitsPerCarton()
		remainder -= cartons * r.UnitsPerCarton()
	}

	boxes := remainder / r.UnitsPerPackaging()
	remainder -= boxes * r.UnitsPerPackaging()

	var blisters int64
	if r.HasBlisters() {
		blisters = remainder / int64(r.UnitsPerBlister)
		remainder -= blisters * int64(r.UnitsPerBlister)
	}

	var parts []Part
	for _, p := range []Part{
		{cartons, l.carton(), domain.SaleTypeCarton},
		{boxes, l.box(), domain.SaleTypePackaging},
		{blisters, BlisterLabel, domain.SaleTypeBlister},
		{remainder, UnitLabel, domain.SaleTypeUnit},
	} {
		if p.Count > 0 {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return []Part{{Count: 0}}
	}
	return parts
}

// Recombine turns a breakdown produced with the same ratios back into base
// units.
func Recombine(parts []Part, r Ratios) int64 {
	r = r.Normalize()
	var total int64
	for _, p := range parts {
		if p.Count == 0 {
			continue
		}
		total += p.Count * r.UnitSize(p.Level)
	}
	return total
}

// Format renders a breakdown as "2 Crt + 3 Bt + 1 Un".
func Format(parts []Part) string {
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Label == "" {
			items = append(items, fmt.Sprintf("%d", p.Count))
			continue
		}
		items = append(items, fmt.Sprintf("%d %s", p.Count, p.Label))
	}
	return strings.Join(items, " + ")
}
