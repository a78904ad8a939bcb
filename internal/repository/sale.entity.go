package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/nimasrn/store-ledger/pkg/pg"
	"github.com/shopspring/decimal"
)

// SaleEntity keeps product_id as a plain reference without a foreign key so
// sales survive the deletion of their product.
type SaleEntity struct {
	pg.Model
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index:idx_sales_store_product,priority:2"`
	StoreID       uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index:idx_sales_store_date,priority:1;index:idx_sales_store_product,priority:1"`
	ProductName   string          `gorm:"column:product_name;not null"`
	Category      string          `gorm:"column:category;not null;default:General"`
	Quantity      int             `gorm:"column:quantity;not null;check:quantity >= 1"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null;check:unit_price >= 0"`
	TotalPrice    decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null;check:total_price >= 0"`
	PaymentMethod string          `gorm:"column:payment_method;type:varchar(16);not null;default:cash"`
	CustomerName  *string         `gorm:"column:customer_name"`
	Notes         *string         `gorm:"column:notes;type:varchar(500)"`
	SaleDate      time.Time       `gorm:"column:sale_date;not null;index:idx_sales_store_date,priority:2,sort:desc"`
}

func (SaleEntity) TableName() string {
	return "sales"
}

func toSaleEntity(m *model.Sale) *SaleEntity {
	if m == nil {
		return nil
	}
	return &SaleEntity{
		Model:         pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ProductID:     m.ProductID,
		StoreID:       m.StoreID,
		ProductName:   m.ProductName,
		Category:      m.Category,
		Quantity:      m.Quantity,
		UnitPrice:     m.UnitPrice,
		TotalPrice:    m.TotalPrice,
		PaymentMethod: string(m.PaymentMethod),
		CustomerName:  m.CustomerName,
		Notes:         m.Notes,
		SaleDate:      m.SaleDate,
	}
}

func toSaleModel(e *SaleEntity) *model.Sale {
	if e == nil {
		return nil
	}
	return &model.Sale{
		ID:            e.ID,
		ProductID:     e.ProductID,
		StoreID:       e.StoreID,
		ProductName:   e.ProductName,
		Category:      e.Category,
		Quantity:      e.Quantity,
		UnitPrice:     e.UnitPrice,
		TotalPrice:    e.TotalPrice,
		PaymentMethod: model.PaymentMethod(e.PaymentMethod),
		CustomerName:  e.CustomerName,
		Notes:         e.Notes,
		SaleDate:      e.SaleDate,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func toSaleModels(entities []*SaleEntity) []*model.Sale {
	if entities == nil {
		return nil
	}
	models := make([]*model.Sale, len(entities))
	for i, e := range entities {
		models[i] = toSaleModel(e)
	}
	return models
}
