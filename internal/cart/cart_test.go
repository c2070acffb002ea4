package cart

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"pharmapos/m/domain"
)

func med(id int64, price string, upb, bpb, bpc int) domain.Medicine {
	return domain.Medicine{
		ID:              id,
		Name:            "med",
		PriceSell:       decimal.RequireFromString(price),
		UnitsPerBlister: upb,
		BlistersPerBox:  bpb,
		BoxesPerCarton:  bpc,
	}
}

func TestAddDefaultsAndIncrements(t *testing.T) {
	c := New()
	m := med(1, "1000", 10, 1, 1)
	c.Add(m)

	l, ok := c.Line(1)
	if !ok {
		t.Fatal("line missing after Add")
	}
	if l.Quantity != 1 || l.SaleType != domain.SaleTypePackaging || l.DiscountPercent != 0 {
		t.Fatalf("new line = %+v", l)
	}

	c.UpdateSaleType(1, domain.SaleTypeUnit)
	c.Add(m)
	l, _ = c.Line(1)
	if l.Quantity != 2 || l.SaleType != domain.SaleTypeUnit {
		t.Fatalf("after second Add = %+v", l)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestUpdateQuantityRemovesAtZero(t *testing.T) {
	c := New()
	c.Add(med(1, "1000", 1, 1, 1))
	c.UpdateQuantity(1, 4)
	if l, _ := c.Line(1); l.Quantity != 5 {
		t.Fatalf("quantity = %d, want 5", l.Quantity)
	}
	c.UpdateQuantity(1, -5)
	if c.Contains(1) {
		t.Fatal("line kept after quantity reached zero")
	}

	c.Add(med(2, "10", 1, 1, 1))
	c.UpdateQuantity(2, -7)
	if c.Contains(2) {
		t.Fatal("line kept after quantity went negative")
	}
	c.UpdateQuantity(99, 1)
	if c.Len() != 0 {
		t.Fatal("updating an absent line created it")
	}
}

func TestUpdateSaleTypeKeepsQuantityAndDiscount(t *testing.T) {
	c := New()
	c.Add(med(1, "3000", 10, 3, 1))
	c.UpdateQuantity(1, 2)
	c.UpdateDiscount(1, 10)

	if !c.UpdateSaleType(1, domain.SaleTypeBlister) {
		t.Fatal("blister rejected for a product with blisters")
	}
	l, _ := c.Line(1)
	if l.SaleType != domain.SaleTypeBlister || l.Quantity != 3 || l.DiscountPercent != 10 {
		t.Fatalf("line = %+v", l)
	}

	if c.UpdateSaleType(1, domain.SaleTypeCarton) {
		t.Fatal("carton accepted for a product without cartons")
	}
	if l, _ := c.Line(1); l.SaleType != domain.SaleTypeBlister {
		t.Fatalf("rejected sale type changed the line: %+v", l)
	}
}

func TestUpdateDiscountClamps(t *testing.T) {
	c := New()
	c.Add(med(1, "100", 1, 1, 1))

	c.UpdateDiscount(1, -5)
	if l, _ := c.Line(1); l.DiscountPercent != 0 {
		t.Fatalf("discount = %v, want 0", l.DiscountPercent)
	}
	c.UpdateDiscount(1, 150)
	if l, _ := c.Line(1); l.DiscountPercent != 100 {
		t.Fatalf("discount = %v, want 100", l.DiscountPercent)
	}
}

func TestTotal(t *testing.T) {
	c := New()
	c.Add(med(1, "1000", 1, 1, 1))
	c.Add(med(2, "2500", 1, 1, 1))
	if got := c.Total(); !got.Equal(decimal.NewFromInt(3500)) {
		t.Fatalf("Total = %s, want 3500", got)
	}

	c.UpdateDiscount(2, 100)
	if got := c.Total(); !got.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("Total after full discount = %s, want 1000", got)
	}
}

func TestRemoveAndClear(t *testing.T) {
	c := New()
	c.Add(med(1, "1", 1, 1, 1))
	c.Add(med(2, "1", 1, 1, 1))
	c.Add(med(3, "1", 1, 1, 1))

	c.Remove(2)
	lines := c.Lines()
	if len(lines) != 2 || lines[0].Medicine.ID != 1 || lines[1].Medicine.ID != 3 {
		t.Fatalf("lines after Remove = %+v", lines)
	}
	c.Clear()
	if c.Len() != 0 || !c.Total().IsZero() {
		t.Fatal("cart not empty after Clear")
	}
}

func TestRemoveLinesKeepsUnsoldChanges(t *testing.T) {
	c := New()
	c.Add(med(1, "1000", 10, 1, 1))
	c.Add(med(2, "500", 1, 1, 1))
	c.Add(med(3, "200", 10, 1, 1))
	sold := c.Lines()

	// edits made while the sale was being submitted
	c.UpdateQuantity(2, 2)
	c.UpdateSaleType(3, domain.SaleTypeUnit)
	c.Add(med(4, "50", 1, 1, 1))

	c.RemoveLines(sold)
	lines := c.Lines()
	if len(lines) != 2 {
		t.Fatalf("lines = %+v", lines)
	}
	if lines[0].Medicine.ID != 2 || lines[0].Quantity != 2 {
		t.Fatalf("grown line = %+v, want the 2 extra boxes", lines[0])
	}
	if lines[1].Medicine.ID != 4 || lines[1].Quantity != 1 {
		t.Fatalf("late line = %+v", lines[1])
	}
	if c.Contains(1) || c.Contains(3) {
		t.Fatal("sold lines left in the cart")
	}
}

func TestLinesIsACopy(t *testing.T) {
	c := New()
	c.Add(med(1, "1", 1, 1, 1))
	lines := c.Lines()
	lines[0].Quantity = 40
	if l, _ := c.Line(1); l.Quantity != 1 {
		t.Fatal("mutating Lines() changed the cart")
	}
}

func TestSaleRequestInSaleTypeUnits(t *testing.T) {
	c := New()
	c.Add(med(1, "3000", 10, 3, 1))
	c.UpdateSaleType(1, domain.SaleTypeBlister)
	c.UpdateQuantity(1, 1)
	c.UpdateDiscount(1, 5)
	c.SetBonus(1, true)

	req := c.SaleRequest(QuantityInSaleType, domain.PaymentCash,
		domain.Customer{Phone: " +25771234567 ", FirstName: "Jean"},
		domain.Insurance{Provider: "ASCOMA", CardID: "X1", CoveragePercent: 80})

	if len(req.Items) != 1 {
		t.Fatalf("items = %+v", req.Items)
	}
	item := req.Items[0]
	if item.MedicineID != 1 || item.Quantity != 2 || item.SaleType != domain.SaleTypeBlister || item.DiscountPercent != 5 || !item.IsBonus {
		t.Fatalf("item = %+v", item)
	}
	if req.CustomerPhone == nil || *req.CustomerPhone != "+25771234567" || req.CustomerLastName != nil {
		t.Fatalf("customer fields = %v %v", req.CustomerPhone, req.CustomerLastName)
	}
	if req.InsuranceProvider != nil || req.InsuranceCardID != nil || req.CoveragePercent != nil {
		t.Fatal("insurance fields sent with a cash payment")
	}
	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{"insurance_provider", "insurance_card_id", "coverage_percent"} {
		if strings.Contains(string(raw), key) {
			t.Fatalf("cash payload carries %s: %s", key, raw)
		}
	}
}

func TestSaleRequestInBaseUnits(t *testing.T) {
	c := New()
	c.Add(med(1, "5000", 10, 2, 50))
	c.UpdateSaleType(1, domain.SaleTypeCarton)

	req := c.SaleRequest(QuantityInBaseUnits, domain.PaymentInsuranceCard, domain.Customer{},
		domain.Insurance{Provider: "MUPEMENET", CardID: "42", CoveragePercent: 80})

	item := req.Items[0]
	if item.Quantity != 1000 || item.SaleType != "" {
		t.Fatalf("item = %+v", item)
	}
	if req.InsuranceProvider == nil || *req.InsuranceProvider != "MUPEMENET" || req.CoveragePercent == nil || *req.CoveragePercent != 80 {
		t.Fatalf("insurance fields = %+v", req)
	}
}
