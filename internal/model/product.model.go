package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultCategory = "General"

type Product struct {
	ID              uuid.UUID       `json:"id"`
	StoreID         uuid.UUID       `json:"store_id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Description     string          `json:"description,omitempty"`
	SKU             *string         `json:"sku,omitempty"`
	Price           decimal.Decimal `json:"price"`
	CurrentQuantity int             `json:"current_quantity"`
	InitialQuantity int             `json:"initial_quantity"`
	RestockLevel    int             `json:"restock_level"`
	IsLowStock      bool            `json:"is_low_stock"`
	TotalSold       int             `json:"total_sold"`
	LastRestocked   time.Time       `json:"last_restocked"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (p *Product) StockStatus() string {
	return StockStatus(p.CurrentQuantity, p.RestockLevel)
}

type ProductCreateRequest struct {
	StoreID         uuid.UUID
	Name            string
	Category        string
	Description     string
	SKU             *string
	Price           decimal.Decimal
	InitialQuantity int
	RestockLevel    int
}

func (r *ProductCreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.TrimSpace(r.Category)
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	if r.SKU != nil {
		s := strings.TrimSpace(*r.SKU)
		if s == "" {
			r.SKU = nil
		} else {
			r.SKU = &s
		}
	}
}

func (r ProductCreateRequest) Validate() error {
	if r.StoreID == uuid.Nil {
		return invalid("store_id", "is required")
	}
	if r.Name == "" {
		return invalid("name", "is required")
	}
	if len(r.Name) > 100 {
		return invalid("name", "cannot exceed 100 characters")
	}
	if r.Price.IsNegative() {
		return invalid("price", "cannot be negative")
	}
	if err := checkMoneyScale("price", r.Price); err != nil {
		return err
	}
	if r.InitialQuantity < 0 {
		return invalid("initial_quantity", "cannot be negative")
	}
	if r.RestockLevel < 0 {
		return invalid("restock_level", "cannot be negative")
	}
	if len(r.Description) > 500 {
		return invalid("description", "cannot exceed 500 characters")
	}
	return nil
}

// ProductUpdateRequest never carries stock fields; those move only through
// sell, restock and adjust.
type ProductUpdateRequest struct {
	Name         *string
	Category     *string
	Description  *string
	SKU          *string
	Price        *decimal.Decimal
	RestockLevel *int
}

func (r ProductUpdateRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return invalid("name", "cannot be empty")
	}
	if r.Name != nil && len(*r.Name) > 100 {
		return invalid("name", "cannot exceed 100 characters")
	}
	if r.Price != nil {
		if r.Price.IsNegative() {
			return invalid("price", "cannot be negative")
		}
		if err := checkMoneyScale("price", *r.Price); err != nil {
			return err
		}
	}
	if r.RestockLevel != nil && *r.RestockLevel < 0 {
		return invalid("restock_level", "cannot be negative")
	}
	if r.Description != nil && len(*r.Description) > 500 {
		return invalid("description", "cannot exceed 500 characters")
	}
	return nil
}

type ProductFilter struct {
	StoreID      uuid.UUID
	Search       string
	Category     string
	LowStockOnly bool
	Limit        int
	Offset       int
}

// StockMovement selects one of the stock engine operations.
type StockMovement string

const (
	StockSale       StockMovement = "sale"
	StockRestock    StockMovement = "restock"
	StockAdjustment StockMovement = "adjustment"
)

type InventoryStats struct {
	TotalProducts   int64           `json:"total_products"`
	TotalValue      decimal.Decimal `json:"total_value"`
	LowStockCount   int64           `json:"low_stock_count"`
	OutOfStockCount int64           `json:"out_of_stock_count"`
	TotalQuantity   int64           `json:"total_quantity"`
}
