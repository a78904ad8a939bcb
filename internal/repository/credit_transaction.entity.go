package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/nimasrn/store-ledger/pkg/pg"
	"github.com/shopspring/decimal"
)

type CreditTransactionEntity struct {
	pg.Model
	CustomerID  uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;index:idx_credit_tx_customer_created,priority:1"`
	Customer    *CustomerEntity `gorm:"foreignKey:CustomerID;references:ID;constraint:OnDelete:RESTRICT"`
	StoreID     uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index:idx_credit_tx_store_created,priority:1"`
	Type        string          `gorm:"column:type;type:varchar(32);not null;index:idx_credit_tx_due_type,priority:2"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null;check:amount > 0"`
	Description string          `gorm:"column:description;not null"`
	DueDate     *time.Time      `gorm:"column:due_date;index:idx_credit_tx_due_type,priority:1"`
	IsOverdue   bool            `gorm:"column:is_overdue;not null;default:false"`
	Status      string          `gorm:"column:status;type:varchar(16);not null;default:pending"`
	Reference   string          `gorm:"column:reference;type:varchar(64);not null;uniqueIndex"`
}

func (CreditTransactionEntity) TableName() string {
	return "credit_transactions"
}

func toCreditTransactionEntity(m *model.CreditTransaction) *CreditTransactionEntity {
	if m == nil {
		return nil
	}
	return &CreditTransactionEntity{
		Model:       pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		CustomerID:  m.CustomerID,
		StoreID:     m.StoreID,
		Type:        string(m.Type),
		Amount:      m.Amount,
		Description: m.Description,
		DueDate:     m.DueDate,
		IsOverdue:   m.IsOverdue,
		Status:      string(m.Status),
		Reference:   m.Reference,
	}
}

func toCreditTransactionModel(e *CreditTransactionEntity) *model.CreditTransaction {
	if e == nil {
		return nil
	}
	return &model.CreditTransaction{
		ID:          e.ID,
		CustomerID:  e.CustomerID,
		StoreID:     e.StoreID,
		Type:        model.TransactionType(e.Type),
		Amount:      e.Amount,
		Description: e.Description,
		DueDate:     e.DueDate,
		IsOverdue:   e.IsOverdue,
		Status:      model.TransactionStatus(e.Status),
		Reference:   e.Reference,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toCreditTransactionModels(entities []*CreditTransactionEntity) []*model.CreditTransaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.CreditTransaction, len(entities))
	for i, e := range entities {
		models[i] = toCreditTransactionModel(e)
	}
	return models
}
