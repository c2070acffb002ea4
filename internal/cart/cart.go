// Package cart holds the lines of a POS sale while the cashier builds it.
package cart

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"pharmapos/m/domain"
	"pharmapos/m/internal/pricing"
	"pharmapos/m/internal/units"
)

// QuantityUnit selects how line quantities are expressed in a sale request.
type QuantityUnit string

const (
	// QuantityInSaleType sends the count of the chosen sale type along with
	// the sale type itself.
	QuantityInSaleType QuantityUnit = "sale_type"
	// QuantityInBaseUnits multiplies quantities through to base units.
	QuantityInBaseUnits QuantityUnit = "base"
)

// Line is one medicine in the cart. Medicine is a snapshot taken when the line
// was added.
type Line struct {
	Medicine        domain.Medicine `json:"medicine"`
	Quantity        int64           `json:"quantity"`
	SaleType        domain.SaleType `json:"sale_type"`
	DiscountPercent float64         `json:"discount_percent"`
	IsBonus         bool            `json:"is_bonus"`
}

func (l Line) UnitPrice() decimal.Decimal {
	return pricing.DiscountedPrice(l.Medicine, l.SaleType, l.DiscountPercent)
}

func (l Line) Total() decimal.Decimal {
	return pricing.LineTotal(l.Medicine, l.SaleType, l.Quantity, l.DiscountPercent)
}

// BaseUnits is the line quantity expressed in base units.
func (l Line) BaseUnits() int64 {
	return l.Quantity * units.RatiosOf(l.Medicine).UnitSize(l.SaleType)
}

// Cart is safe for concurrent use. None of its operations fail.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add puts one box of the medicine in the cart, or one more of whatever sale
// type the existing line uses.
func (c *Cart) Add(m domain.Medicine) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(m.ID); i >= 0 {
		c.lines[i].Quantity++
		return
	}
	c.lines = append(c.lines, Line{
		Medicine: m,
		Quantity: 1,
		SaleType: domain.SaleTypePackaging,
	})
}

// UpdateQuantity adds delta to a line. A line whose quantity drops to zero or
// below is removed.
func (c *Cart) UpdateQuantity(medicineID, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(medicineID)
	if i < 0 {
		return
	}
	q := c.lines[i].Quantity + delta
	if q <= 0 {
		c.remove(i)
		return
	}
	c.lines[i].Quantity = q
}

// UpdateSaleType changes how a line is sold. Sale types the medicine does not
// offer are ignored and false is returned.
func (c *Cart) UpdateSaleType(medicineID int64, t domain.SaleType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(medicineID)
	if i < 0 || !units.RatiosOf(c.lines[i].Medicine).Offers(t) {
		return false
	}
	c.lines[i].SaleType = t
	return true
}

// UpdateDiscount stores the discount clamped to [0, 100].
func (c *Cart) UpdateDiscount(medicineID int64, percent float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(medicineID); i >= 0 {
		c.lines[i].DiscountPercent = pricing.ClampPercent(percent)
	}
}

func (c *Cart) SetBonus(medicineID int64, bonus bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(medicineID); i >= 0 {
		c.lines[i].IsBonus = bonus
	}
}

func (c *Cart) Remove(medicineID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(medicineID); i >= 0 {
		c.remove(i)
	}
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// RemoveLines takes sold lines out of the cart. A line whose quantity grew in
// the same sale type after the snapshot keeps the difference; lines added after
// the snapshot stay.
func (c *Cart) RemoveLines(sold []Line) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range sold {
		i := c.index(s.Medicine.ID)
		if i < 0 {
			continue
		}
		cur := &c.lines[i]
		if cur.SaleType == s.SaleType && cur.Quantity > s.Quantity {
			cur.Quantity -= s.Quantity
			continue
		}
		c.remove(i)
	}
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Line returns the line for a medicine.
func (c *Cart) Line(medicineID int64) (Line, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(medicineID); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

func (c *Cart) Contains(medicineID int64) bool {
	_, ok := c.Line(medicineID)
	return ok
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// Total sums the line totals. It is recomputed on every call.
func (c *Cart) Total() decimal.Decimal {
	return Total(c.Lines())
}

// Total sums the totals of a set of lines.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}

// SaleRequest builds the backend payload for the given lines. Insurance
// details are only sent with insurance card payments.
func SaleRequest(lines []Line, unit QuantityUnit, method domain.PaymentMethod, customer domain.Customer, ins domain.Insurance) domain.SaleRequest {
	req := domain.SaleRequest{
		Items:             make([]domain.SaleItemRequest, 0, len(lines)),
		PaymentMethod:     method,
		CustomerPhone:     optional(customer.Phone),
		CustomerFirstName: optional(customer.FirstName),
		CustomerLastName:  optional(customer.LastName),
	}
	for _, l := range lines {
		item := domain.SaleItemRequest{
			MedicineID:      l.Medicine.ID,
			Quantity:        l.Quantity,
			SaleType:        l.SaleType,
			DiscountPercent: l.DiscountPercent,
			IsBonus:         l.IsBonus,
		}
		if unit == QuantityInBaseUnits {
			item.Quantity = l.BaseUnits()
			item.SaleType = ""
		}
		req.Items = append(req.Items, item)
	}
	if method == domain.PaymentInsuranceCard {
		req.InsuranceProvider = optional(ins.Provider)
		req.InsuranceCardID = optional(ins.CardID)
		coverage := ins.CoveragePercent
		req.CoveragePercent = &coverage
	}
	return req
}

// SaleRequest snapshots the cart into a backend payload.
func (c *Cart) SaleRequest(unit QuantityUnit, method domain.PaymentMethod, customer domain.Customer, ins domain.Insurance) domain.SaleRequest {
	return SaleRequest(c.Lines(), unit, method, customer, ins)
}

func (c *Cart) index(medicineID int64) int {
	for i, l := range c.lines {
		if l.Medicine.ID == medicineID {
			return i
		}
	}
	return -1
}

func (c *Cart) remove(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
