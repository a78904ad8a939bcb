package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/nimasrn/store-ledger/pkg/pg"
	"github.com/shopspring/decimal"
)

type ProductEntity struct {
	pg.Model
	StoreID         uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index:idx_products_store_name,priority:1;index:idx_products_store_low,priority:1;uniqueIndex:idx_products_store_sku,priority:1"`
	Name            string          `gorm:"column:name;type:varchar(100);not null;index:idx_products_store_name,priority:2"`
	Category        string          `gorm:"column:category;not null;default:General"`
	Description     string          `gorm:"column:description;type:varchar(500)"`
	SKU             *string         `gorm:"column:sku;uniqueIndex:idx_products_store_sku,priority:2"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null;check:price >= 0"`
	CurrentQuantity int             `gorm:"column:current_quantity;not null;default:0;check:current_quantity >= 0"`
	InitialQuantity int             `gorm:"column:initial_quantity;not null;check:initial_quantity >= 0"`
	RestockLevel    int             `gorm:"column:restock_level;not null;check:restock_level >= 0"`
	IsLowStock      bool            `gorm:"column:is_low_stock;not null;default:false;index:idx_products_store_low,priority:2"`
	TotalSold       int             `gorm:"column:total_sold;not null;default:0;check:total_sold >= 0"`
	LastRestocked   time.Time       `gorm:"column:last_restocked;not null"`
}

func (ProductEntity) TableName() string {
	return "products"
}

func toProductEntity(m *model.Product) *ProductEntity {
	if m == nil {
		return nil
	}
	return &ProductEntity{
		Model:           pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		StoreID:         m.StoreID,
		Name:            m.Name,
		Category:        m.Category,
		Description:     m.Description,
		SKU:             m.SKU,
		Price:           m.Price,
		CurrentQuantity: m.CurrentQuantity,
		InitialQuantity: m.InitialQuantity,
		RestockLevel:    m.RestockLevel,
		IsLowStock:      m.IsLowStock,
		TotalSold:       m.TotalSold,
		LastRestocked:   m.LastRestocked,
	}
}

func toProductModel(e *ProductEntity) *model.Product {
	if e == nil {
		return nil
	}
	return &model.Product{
		ID:              e.ID,
		StoreID:         e.StoreID,
		Name:            e.Name,
		Category:        e.Category,
		Description:     e.Description,
		SKU:             e.SKU,
		Price:           e.Price,
		CurrentQuantity: e.CurrentQuantity,
		InitialQuantity: e.InitialQuantity,
		RestockLevel:    e.RestockLevel,
		IsLowStock:      e.IsLowStock,
		TotalSold:       e.TotalSold,
		LastRestocked:   e.LastRestocked,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toProductModels(entities []*ProductEntity) []*model.Product {
	if entities == nil {
		return nil
	}
	models := make([]*model.Product, len(entities))
	for i, e := range entities {
		models[i] = toProductModel(e)
	}
	return models
}
