package model

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
)

const referenceAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewReference builds a transaction reference of the form TXN-<unix ms>-<6 chars>.
func NewReference(now time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = referenceAlphabet[rand.IntN(len(referenceAlphabet))]
	}
	return fmt.Sprintf("TXN-%d-%s", now.UnixMilli(), suffix)
}

// ReconcileBalance is the only way a customer balance is produced.
func ReconcileBalance(totalCredit, totalPaid decimal.Decimal) decimal.Decimal {
	return totalCredit.Sub(totalPaid)
}

// IsOverdue holds for pending credit with a due date in the past.
func IsOverdue(typ TransactionType, status TransactionStatus, dueDate *time.Time, now time.Time) bool {
	if typ != TransactionCreditGiven || status != TransactionPending || dueDate == nil {
		return false
	}
	return now.After(*dueDate)
}

// IsLowStock holds when stock is at or below the restock level.
func IsLowStock(currentQuantity, restockLevel int) bool {
	return currentQuantity <= restockLevel
}

const (
	StockStatusOut = "Out of Stock"
	StockStatusLow = "Low Stock"
	StockStatusIn  = "In Stock"
)

func StockStatus(currentQuantity, restockLevel int) string {
	switch {
	case currentQuantity == 0:
		return StockStatusOut
	case IsLowStock(currentQuantity, restockLevel):
		return StockStatusLow
	default:
		return StockStatusIn
	}
}

// LedgerTotals is the pair of running sums a customer balance derives from.
type LedgerTotals struct {
	TotalCredit decimal.Decimal `json:"total_credit"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	Balance     decimal.Decimal `json:"balance"`
}

func NewLedgerTotals(totalCredit, totalPaid decimal.Decimal) LedgerTotals {
	return LedgerTotals{
		TotalCredit: totalCredit,
		TotalPaid:   totalPaid,
		Balance:     ReconcileBalance(totalCredit, totalPaid),
	}
}

func (t LedgerTotals) Equal(o LedgerTotals) bool {
	return t.TotalCredit.Equal(o.TotalCredit) && t.TotalPaid.Equal(o.TotalPaid) && t.Balance.Equal(o.Balance)
}
