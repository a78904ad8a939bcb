package model

import (
	"time"

	"github.com/google/uuid"
)

// StockAlert is published after a committed stock change leaves a product at
// or below its restock level.
type StockAlert struct {
	ID              uuid.UUID     `json:"id"`
	StoreID         uuid.UUID     `json:"store_id"`
	ProductID       uuid.UUID     `json:"product_id"`
	ProductName     string        `json:"product_name"`
	CurrentQuantity int           `json:"current_quantity"`
	RestockLevel    int           `json:"restock_level"`
	Status          string        `json:"status"`
	Cause           StockMovement `json:"cause"`
	OccurredAt      time.Time     `json:"occurred_at"`
}

func NewStockAlert(p *Product, cause StockMovement, now time.Time) *StockAlert {
	return &StockAlert{
		ID:              uuid.New(),
		StoreID:         p.StoreID,
		ProductID:       p.ID,
		ProductName:     p.Name,
		CurrentQuantity: p.CurrentQuantity,
		RestockLevel:    p.RestockLevel,
		Status:          p.StockStatus(),
		Cause:           cause,
		OccurredAt:      now,
	}
}
