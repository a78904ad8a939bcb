package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionCreditGiven     TransactionType = "credit-given"
	TransactionPaymentReceived TransactionType = "payment-received"
)

func (t TransactionType) Valid() bool {
	return t == TransactionCreditGiven || t == TransactionPaymentReceived
}

// Effect splits an amount into the (credit, paid) pair it adds to a customer.
func (t TransactionType) Effect(amount decimal.Decimal) (credit, paid decimal.Decimal) {
	if t == TransactionCreditGiven {
		return amount, decimal.Zero
	}
	return decimal.Zero, amount
}

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionCancelled TransactionStatus = "cancelled"
)

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionPending: {TransactionCompleted, TransactionCancelled},
}

func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range transactionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Editable reports whether amount, description and due date may change.
func (s TransactionStatus) Editable() bool {
	return s == TransactionPending
}

type CreditTransaction struct {
	ID          uuid.UUID         `json:"id"`
	CustomerID  uuid.UUID         `json:"customer_id"`
	StoreID     uuid.UUID         `json:"store_id"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Description string            `json:"description"`
	DueDate     *time.Time        `json:"due_date,omitempty"`
	IsOverdue   bool              `json:"is_overdue"`
	Status      TransactionStatus `json:"status"`
	Reference   string            `json:"reference"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Refresh recomputes derived fields against now.
func (t *CreditTransaction) Refresh(now time.Time) {
	t.IsOverdue = IsOverdue(t.Type, t.Status, t.DueDate, now)
}

type TransactionCreateRequest struct {
	CustomerID  uuid.UUID
	StoreID     uuid.UUID
	Type        TransactionType
	Amount      decimal.Decimal
	Description string
	DueDate     *time.Time
}

func (r TransactionCreateRequest) Validate() error {
	if r.CustomerID == uuid.Nil {
		return invalid("customer_id", "is required")
	}
	if r.StoreID == uuid.Nil {
		return invalid("store_id", "is required")
	}
	if !r.Type.Valid() {
		return invalid("type", "must be credit-given or payment-received")
	}
	if !r.Amount.IsPositive() {
		return invalid("amount", "must be greater than 0")
	}
	if err := checkMoneyScale("amount", r.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(r.Description) == "" {
		return invalid("description", "is required")
	}
	return nil
}

type TransactionAmendRequest struct {
	ID          uuid.UUID
	StoreID     uuid.UUID
	Amount      decimal.Decimal
	Description string
	DueDate     *time.Time
}

func (r TransactionAmendRequest) Validate() error {
	if r.ID == uuid.Nil {
		return invalid("id", "is required")
	}
	if !r.Amount.IsPositive() {
		return invalid("amount", "must be greater than 0")
	}
	if err := checkMoneyScale("amount", r.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(r.Description) == "" {
		return invalid("description", "is required")
	}
	return nil
}

// TransactionFilter drives listings. Cancelled rows are never listed.
type TransactionFilter struct {
	StoreID    uuid.UUID
	CustomerID *uuid.UUID
	Type       *TransactionType
	Limit      int
	Offset     int
}

// StoreSummary is ledger-accurate: OutstandingAmount is negative when a store
// has been overpaid.
type StoreSummary struct {
	TotalCredit       decimal.Decimal `json:"total_credit"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
}
