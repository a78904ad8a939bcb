package repository

import (
	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/nimasrn/store-ledger/pkg/pg"
	"github.com/shopspring/decimal"
)

type CustomerEntity struct {
	pg.Model
	StoreID     uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index:idx_customers_store_name,priority:1;uniqueIndex:idx_customers_store_phone_active,priority:1,where:is_active = true"`
	Name        string          `gorm:"column:name;not null;index:idx_customers_store_name,priority:2"`
	Phone       string          `gorm:"column:phone;not null;uniqueIndex:idx_customers_store_phone_active,priority:2,where:is_active = true"`
	Address     string          `gorm:"column:address;not null"`
	TotalCredit decimal.Decimal `gorm:"column:total_credit;type:numeric(12,2);not null;default:0"`
	TotalPaid   decimal.Decimal `gorm:"column:total_paid;type:numeric(12,2);not null;default:0"`
	Balance     decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
}

func (CustomerEntity) TableName() string {
	return "customers"
}

func toCustomerEntity(m *model.Customer) *CustomerEntity {
	if m == nil {
		return nil
	}
	return &CustomerEntity{
		Model:       pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		StoreID:     m.StoreID,
		Name:        m.Name,
		Phone:       m.Phone,
		Address:     m.Address,
		TotalCredit: m.TotalCredit,
		TotalPaid:   m.TotalPaid,
		Balance:     m.Balance,
		IsActive:    m.IsActive,
	}
}

func toCustomerModel(e *CustomerEntity) *model.Customer {
	if e == nil {
		return nil
	}
	return &model.Customer{
		ID:          e.ID,
		StoreID:     e.StoreID,
		Name:        e.Name,
		Phone:       e.Phone,
		Address:     e.Address,
		TotalCredit: e.TotalCredit,
		TotalPaid:   e.TotalPaid,
		Balance:     e.Balance,
		IsActive:    e.IsActive,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toCustomerModels(entities []*CustomerEntity) []*model.Customer {
	if entities == nil {
		return nil
	}
	models := make([]*model.Customer, len(entities))
	for i, e := range entities {
		models[i] = toCustomerModel(e)
	}
	return models
}
