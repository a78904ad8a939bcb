package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Customer struct {
	ID          uuid.UUID       `json:"id"`
	StoreID     uuid.UUID       `json:"store_id"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Address     string          `json:"address"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	Balance     decimal.Decimal `json:"balance"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (c *Customer) Totals() LedgerTotals {
	return LedgerTotals{TotalCredit: c.TotalCredit, TotalPaid: c.TotalPaid, Balance: c.Balance}
}

// CustomerState is the soft-delete lifecycle of a customer.
type CustomerState string

const (
	CustomerActive   CustomerState = "active"
	CustomerInactive CustomerState = "inactive"
)

var customerTransitions = map[CustomerState][]CustomerState{
	CustomerActive: {CustomerInactive},
}

func CustomerStateOf(isActive bool) CustomerState {
	if isActive {
		return CustomerActive
	}
	return CustomerInactive
}

func (s CustomerState) CanTransitionTo(next CustomerState) bool {
	for _, allowed := range customerTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type CustomerCreateRequest struct {
	StoreID uuid.UUID
	Name    string
	Phone   string
	Address string
}

func (r *CustomerCreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = strings.TrimSpace(r.Address)
}

func (r CustomerCreateRequest) Validate() error {
	if r.StoreID == uuid.Nil {
		return invalid("store_id", "is required")
	}
	if r.Name == "" {
		return invalid("name", "is required")
	}
	if r.Phone == "" {
		return invalid("phone", "is required")
	}
	if r.Address == "" {
		return invalid("address", "is required")
	}
	return nil
}

// CustomerUpdateRequest changes profile fields only. Nil means unchanged.
type CustomerUpdateRequest struct {
	Name    *string
	Phone   *string
	Address *string
}

func (r *CustomerUpdateRequest) Normalize() {
	for _, p := range []*string{r.Name, r.Phone, r.Address} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}

func (r CustomerUpdateRequest) Validate() error {
	if r.Name != nil && *r.Name == "" {
		return invalid("name", "cannot be empty")
	}
	if r.Phone != nil && *r.Phone == "" {
		return invalid("phone", "cannot be empty")
	}
	if r.Address != nil && *r.Address == "" {
		return invalid("address", "cannot be empty")
	}
	return nil
}

type CustomerFilter struct {
	StoreID uuid.UUID
	Search  string // name or phone, case-insensitive contains
	Limit   int
	Offset  int
}

// CustomerOverview is the display aggregate over active customers of a store.
// OverdueAmount only counts positive balances.
type CustomerOverview struct {
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	TotalCustomers   int64           `json:"total_customers"`
	OverdueAmount    decimal.Decimal `json:"overdue_amount"`
	CreditCustomers  int64           `json:"credit_customers"`
}
