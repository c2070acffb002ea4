package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pharmapos/m/internal/database"
	"pharmapos/m/internal/migrations"
)

func newJournal(t *testing.T) *Journal {
	t.Helper()
	db, err := database.Connect(":memory:")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db)
}

func receipt(saleID int64, session string, at time.Time) *Receipt {
	phone := "+25771234567"
	return &Receipt{
		SaleID:          saleID,
		Code:            "INV-2026-0001",
		SessionID:       session,
		Cashier:         "alice",
		PaymentMethod:   "insurance_card",
		TotalAmount:     decimal.RequireFromString("3500"),
		CoveragePercent: 80,
		InsuranceShare:  decimal.RequireFromString("2800"),
		PatientShare:    decimal.RequireFromString("700"),
		CustomerPhone:   &phone,
		CreatedAt:       at,
		Lines: []Line{
			{MedicineID: 1, MedicineName: "Amoxicilline", SaleType: "packaging", Quantity: 1, BaseUnits: 10, UnitPrice: decimal.RequireFromString("1000"), LineTotal: decimal.RequireFromString("1000")},
			{MedicineID: 2, MedicineName: "Paracétamol", SaleType: "unit", Quantity: 25, BaseUnits: 25, UnitPrice: decimal.RequireFromString("100"), DiscountPercent: 0, LineTotal: decimal.RequireFromString("2500"), IsBonus: true},
		},
	}
}

func TestRecordAndGet(t *testing.T) {
	j := newJournal(t)
	ctx := context.Background()

	r := receipt(41, "s1", time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC))
	if err := j.Record(ctx, r); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if r.ID == 0 {
		t.Fatal("Record did not set the receipt id")
	}

	got, err := j.Get(ctx, 41)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Code != "INV-2026-0001" || !got.TotalAmount.Equal(decimal.NewFromInt(3500)) || !got.PatientShare.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("receipt = %+v", got)
	}
	if got.CustomerPhone == nil || *got.CustomerPhone != "+25771234567" {
		t.Fatalf("customer phone = %v", got.CustomerPhone)
	}
	if len(got.Lines) != 2 || got.Lines[1].BaseUnits != 25 || !got.Lines[1].IsBonus || !got.Lines[0].LineTotal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("lines = %+v", got.Lines)
	}
}

func TestGetMissing(t *testing.T) {
	j := newJournal(t)
	if _, err := j.Get(context.Background(), 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestRecordRejectsDuplicateSale(t *testing.T) {
	j := newJournal(t)
	ctx := context.Background()
	if err := j.Record(ctx, receipt(5, "s1", time.Now().UTC())); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := j.Record(ctx, receipt(5, "s1", time.Now().UTC())); err == nil {
		t.Fatal("duplicate sale id recorded twice")
	}
}

func TestListFilters(t *testing.T) {
	j := newJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

	for i, s := range []string{"s1", "s1", "s2"} {
		if err := j.Record(ctx, receipt(int64(i+1), s, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := j.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].SaleID != 3 || all[2].SaleID != 1 {
		t.Fatalf("List order = %+v", all)
	}
	for _, r := range all {
		if len(r.Lines) != 2 {
			t.Fatalf("receipt %d has %d lines", r.SaleID, len(r.Lines))
		}
	}

	s1, err := j.List(ctx, Filter{SessionID: "s1"})
	if err != nil || len(s1) != 2 {
		t.Fatalf("List session = %d receipts, err %v", len(s1), err)
	}

	late, err := j.List(ctx, Filter{From: base.Add(90 * time.Minute)})
	if err != nil || len(late) != 1 || late[0].SaleID != 3 {
		t.Fatalf("List from = %+v, err %v", late, err)
	}

	none, err := j.List(ctx, Filter{SessionID: "nobody"})
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("List empty = %v, err %v", none, err)
	}
}
