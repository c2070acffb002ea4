package domain

import "github.com/shopspring/decimal"

// SaleType is the granularity a cart line is sold at.
type SaleType string

const (
	SaleTypeCarton    SaleType = "carton"
	SaleTypePackaging SaleType = "packaging"
	SaleTypeBlister   SaleType = "blister"
	SaleTypeUnit      SaleType = "unit"
)

func (t SaleType) Valid() bool {
	switch t {
	case SaleTypeCarton, SaleTypePackaging, SaleTypeBlister, SaleTypeUnit:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "cash"
	PaymentInsuranceCard PaymentMethod = "insurance_card"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentInsuranceCard
}

// Customer fields are optional; the backend creates or finds the customer by
// phone.
type Customer struct {
	Phone     string `json:"phone,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type Insurance struct {
	Provider        string  `json:"provider"`
	CardID          string  `json:"card_id"`
	CoveragePercent float64 `json:"coverage_percent"`
}

type SaleItemRequest struct {
	MedicineID      int64    `json:"medicine_id"`
	Quantity        int64    `json:"quantity"`
	SaleType        SaleType `json:"sale_type,omitempty"`
	DiscountPercent float64  `json:"discount_percent"`
	IsBonus         bool     `json:"is_bonus"`
}

// SaleRequest is the body of POST /sales/create.
type SaleRequest struct {
	Items             []SaleItemRequest `json:"items"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
	CustomerPhone     *string           `json:"customer_phone"`
	CustomerFirstName *string           `json:"customer_first_name"`
	CustomerLastName  *string           `json:"customer_last_name"`
	InsuranceProvider *string           `json:"insurance_provider,omitempty"`
	InsuranceCardID   *string           `json:"insurance_card_id,omitempty"`
	CoveragePercent   *float64          `json:"coverage_percent,omitempty"`
}

type SaleItem struct {
	ID              int64           `json:"id"`
	MedicineID      int64           `json:"medicine_id"`
	MedicineName    string          `json:"medicine_name"`
	MedicineCode    string          `json:"medicine_code"`
	Quantity        int64           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	SaleType        SaleType        `json:"sale_type"`
	DiscountPercent float64         `json:"discount_percent"`
}

// Sale is the record returned by the backend once a sale is created.
type Sale struct {
	ID                int64           `json:"id"`
	Code              string          `json:"code"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	Date              string          `json:"date"`
	UserID            int64           `json:"user_id"`
	UserName          *string         `json:"user_name,omitempty"`
	Status            string          `json:"status"`
	CustomerID        *int64          `json:"customer_id,omitempty"`
	InsuranceProvider *string         `json:"insurance_provider,omitempty"`
	InsuranceCardID   *string         `json:"insurance_card_id,omitempty"`
	CoveragePercent   *float64        `json:"coverage_percent,omitempty"`
	Items             []SaleItem      `json:"items"`
	BonusEarned       int             `json:"bonus_earned"`
}
