package domain

import "github.com/shopspring/decimal"

// Medicine is a product as listed by the pharmacy backend. Quantity is always
// the stock in base units; the packaging ratios describe how those units are
// grouped into blisters, boxes and cartons.
type Medicine struct {
	ID                int64           `json:"id"`
	Code              string          `json:"code"`
	Name              string          `json:"name"`
	Quantity          float64         `json:"quantity"`
	PriceBuy          decimal.Decimal `json:"price_buy"`
	PriceSell         decimal.Decimal `json:"price_sell"`
	ExpiryDate        *string         `json:"expiry_date,omitempty"`
	MinStockAlert     int             `json:"min_stock_alert"`
	DosageForm        *string         `json:"dosage_form,omitempty"`
	Packaging         *string         `json:"packaging,omitempty"`
	CartonType        *string         `json:"carton_type,omitempty"`
	BoxesPerCarton    int             `json:"boxes_per_carton"`
	BlistersPerBox    int             `json:"blisters_per_box"`
	UnitsPerBlister   int             `json:"units_per_blister"`
	UnitsPerPackaging int             `json:"units_per_packaging"`
	IsLowStock        bool            `json:"is_low_stock"`
	IsExpired         bool            `json:"is_expired"`
}

// MedicinePage is one page of the backend's medicine listing.
type MedicinePage struct {
	Items      []Medicine `json:"items"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

// MedicineInput is the create/update payload sent to the backend. Quantity is
// in base units.
type MedicineInput struct {
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	FamilyID        *int64          `json:"family_id,omitempty"`
	TypeID          *int64          `json:"type_id,omitempty"`
	Quantity        int64           `json:"quantity"`
	PriceBuy        decimal.Decimal `json:"price_buy"`
	PriceSell       decimal.Decimal `json:"price_sell"`
	ExpiryDate      *string         `json:"expiry_date,omitempty"`
	MinStockAlert   int             `json:"min_stock_alert"`
	DosageForm      *string         `json:"dosage_form,omitempty"`
	Packaging       *string         `json:"packaging,omitempty"`
	CartonType      *string         `json:"carton_type,omitempty"`
	BoxesPerCarton  int             `json:"boxes_per_carton"`
	BlistersPerBox  int             `json:"blisters_per_box"`
	UnitsPerBlister int             `json:"units_per_blister"`
}
