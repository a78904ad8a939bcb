package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCard     PaymentMethod = "card"
	PaymentCredit   PaymentMethod = "credit"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentTransfer, PaymentCard, PaymentCredit:
		return true
	}
	return false
}

const maxNotesLen = 500

type Sale struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	StoreID       uuid.UUID       `json:"store_id"`
	ProductName   string          `json:"product_name"`
	Category      string          `json:"category"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CustomerName  *string         `json:"customer_name,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
	SaleDate      time.Time       `json:"sale_date"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// SaleTotal is the only way a sale's total price is produced.
func SaleTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

type SaleCreateRequest struct {
	ProductID     uuid.UUID
	StoreID       uuid.UUID
	Quantity      int
	UnitPrice     decimal.Decimal
	PaymentMethod PaymentMethod
	CustomerName  *string
	Notes         *string
}

func (r *SaleCreateRequest) Normalize() {
	if r.PaymentMethod == "" {
		r.PaymentMethod = PaymentCash
	}
	r.CustomerName = trimmedOrNil(r.CustomerName)
	r.Notes = trimmedOrNil(r.Notes)
}

func (r SaleCreateRequest) Validate() error {
	if r.ProductID == uuid.Nil {
		return invalid("product_id", "is required")
	}
	if r.StoreID == uuid.Nil {
		return invalid("store_id", "is required")
	}
	if r.Quantity < 1 {
		return invalid("quantity", "must be at least 1")
	}
	if r.UnitPrice.IsNegative() {
		return invalid("unit_price", "cannot be negative")
	}
	if err := checkMoneyScale("unit_price", r.UnitPrice); err != nil {
		return err
	}
	if !r.PaymentMethod.Valid() {
		return invalid("payment_method", "must be one of cash, transfer, card, credit")
	}
	if r.Notes != nil && len(*r.Notes) > maxNotesLen {
		return invalid("notes", "cannot exceed 500 characters")
	}
	return nil
}

// SaleUpdateRequest holds the only fields of a sale that may change after it
// is recorded.
type SaleUpdateRequest struct {
	CustomerName  *string
	Notes         *string
	PaymentMethod *PaymentMethod
}

func (r SaleUpdateRequest) Validate() error {
	if r.PaymentMethod != nil && !r.PaymentMethod.Valid() {
		return invalid("payment_method", "must be one of cash, transfer, card, credit")
	}
	if r.Notes != nil && len(*r.Notes) > maxNotesLen {
		return invalid("notes", "cannot exceed 500 characters")
	}
	return nil
}

func (r SaleUpdateRequest) Empty() bool {
	return r.CustomerName == nil && r.Notes == nil && r.PaymentMethod == nil
}

type SaleFilter struct {
	StoreID       uuid.UUID
	Search        string
	Category      string
	PaymentMethod PaymentMethod
	From          *time.Time
	To            *time.Time
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	SortBy        string
	Desc          bool
	Limit         int
	Offset        int
}

type SalesOverview struct {
	TotalSales        int64           `json:"total_sales"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AverageSaleValue  decimal.Decimal `json:"average_sale_value"`
	TotalQuantitySold int64           `json:"total_quantity_sold"`
}

type TopProduct struct {
	ProductID         uuid.UUID       `json:"product_id"`
	ProductName       string          `json:"product_name"`
	TotalQuantitySold int64           `json:"total_quantity_sold"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	SalesCount        int64           `json:"sales_count"`
}

type SalesStats struct {
	Overview    SalesOverview `json:"overview"`
	TopProducts []*TopProduct `json:"top_products"`
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
