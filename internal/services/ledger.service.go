package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/nimasrn/store-ledger/pkg/logger"
	"github.com/nimasrn/store-ledger/pkg/prom"
)

type CreditTransactionRepository interface {
	Create(ctx context.Context, txn *model.CreditTransaction) (*model.CreditTransaction, error)
	Get(ctx context.Context, storeID, id uuid.UUID) (*model.CreditTransaction, error)
	GetForUpdate(ctx context.Context, storeID, id uuid.UUID) (*model.CreditTransaction, error)
	Amend(ctx context.Context, txn *model.CreditTransaction) error
	Transition(ctx context.Context, storeID, id uuid.UUID, from, to model.TransactionStatus, isOverdue bool) error
	CustomerTotals(ctx context.Context, customerID uuid.UUID) (model.LedgerTotals, error)
	StoreTotals(ctx context.Context, storeID uuid.UUID) (*model.StoreSummary, error)
	List(ctx context.Context, f model.TransactionFilter) ([]*model.CreditTransaction, int64, error)
	ListOverdue(ctx context.Context, storeID uuid.UUID, now time.Time) ([]*model.CreditTransaction, error)
	MarkOverdue(ctx context.Context, storeID uuid.UUID, now time.Time) (int64, error)
}

// LedgerService records credit given to customers and payments received from
// them. Every mutation updates the customer's running totals in the same
// database transaction.
type LedgerService struct {
	db           Transactor
	customers    CustomerRepository
	transactions CreditTransactionRepository
	now          func() time.Time
}

func NewLedgerService(db Transactor, customers CustomerRepository, transactions CreditTransactionRepository) *LedgerService {
	return &LedgerService{
		db:           db,
		customers:    customers,
		transactions: transactions,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *LedgerService) RecordTransaction(ctx context.Context, req model.TransactionCreateRequest) (*model.CreditTransaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	var created *model.CreditTransaction
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		// lock the customer so concurrent writers and read-repair serialize
		if _, err := s.customers.GetActiveForUpdate(ctx, req.StoreID, req.CustomerID); err != nil {
			return fromRepo(err, ErrCustomerNotFound)
		}

		txn := &model.CreditTransaction{
			CustomerID:  req.CustomerID,
			StoreID:     req.StoreID,
			Type:        req.Type,
			Amount:      req.Amount,
			Description: req.Description,
			DueDate:     req.DueDate,
			Status:      model.TransactionPending,
			Reference:   model.NewReference(now),
		}
		txn.Refresh(now)

		var err error
		created, err = s.transactions.Create(ctx, txn)
		if err != nil {
			return fromRepo(err, ErrTransactionNotFound)
		}

		credit, paid := req.Type.Effect(req.Amount)
		if _, err := s.customers.ApplyLedgerDelta(ctx, req.CustomerID, credit, paid); err != nil {
			return fromRepo(err, ErrCustomerNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, classify("record_transaction", err)
	}

	prom.IncLedgerTransaction("record", string(created.Type))
	logger.Info("[ledger] transaction recorded",
		"store_id", created.StoreID,
		"customer_id", created.CustomerID,
		"reference", created.Reference,
		"type", created.Type,
		"amount", created.Amount.String(),
	)
	return created, nil
}

// AmendTransaction applies the difference between the new and the recorded
// amount to the aggregate field the transaction type feeds.
func (s *LedgerService) AmendTransaction(ctx context.Context, req model.TransactionAmendRequest) (*model.CreditTransaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	var amended *model.CreditTransaction
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.transactions.GetForUpdate(ctx, req.StoreID, req.ID)
		if err != nil {
			return fromRepo(err, ErrTransactionNotFound)
		}
		if !existing.Status.Editable() {
			return ErrNotEditable
		}

		next := *existing
		next.Amount = req.Amount
		next.Description = req.Description
		next.DueDate = req.DueDate
		next.Refresh(now)
		if err := s.transactions.Amend(ctx, &next); err != nil {
			return fromRepo(err, ErrTransactionNotFound)
		}

		delta := req.Amount.Sub(existing.Amount)
		if !delta.IsZero() {
			credit, paid := existing.Type.Effect(delta)
			if _, err := s.customers.ApplyLedgerDelta(ctx, existing.CustomerID, credit, paid); err != nil {
				return fromRepo(err, ErrCustomerNotFound)
			}
		}
		amended = &next
		return nil
	})
	if err != nil {
		return nil, classify("amend_transaction", err)
	}

	prom.IncLedgerTransaction("amend", string(amended.Type))
	logger.Info("[ledger] transaction amended", "store_id", amended.StoreID, "reference", amended.Reference, "amount", amended.Amount.String())
	return amended, nil
}

// CancelTransaction moves a pending transaction to cancelled and subtracts its
// recorded amount from the customer. The row itself is kept.
func (s *LedgerService) CancelTransaction(ctx context.Context, storeID, id uuid.UUID) error {
	var cancelled *model.CreditTransaction
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.transactions.GetForUpdate(ctx, storeID, id)
		if err != nil {
			return fromRepo(err, ErrTransactionNotFound)
		}
		if !existing.Status.CanTransitionTo(model.TransactionCancelled) {
			return ErrNotEditable
		}
		if err := s.transactions.Transition(ctx, storeID, id, existing.Status, model.TransactionCancelled, false); err != nil {
			return fromRepo(err, ErrTransactionNotFound)
		}

		credit, paid := existing.Type.Effect(existing.Amount.Neg())
		if _, err := s.customers.ApplyLedgerDelta(ctx, existing.CustomerID, credit, paid); err != nil {
			return fromRepo(err, ErrCustomerNotFound)
		}
		cancelled = existing
		return nil
	})
	if err != nil {
		return classify("cancel_transaction", err)
	}

	prom.IncLedgerTransaction("cancel", string(cancelled.Type))
	logger.Info("[ledger] transaction cancelled", "store_id", storeID, "reference", cancelled.Reference)
	return nil
}

// CompleteTransaction settles a pending transaction. Completed transactions
// still count towards the balance but can no longer be amended or cancelled.
func (s *LedgerService) CompleteTransaction(ctx context.Context, storeID, id uuid.UUID) (*model.CreditTransaction, error) {
	var completed *model.CreditTransaction
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.transactions.GetForUpdate(ctx, storeID, id)
		if err != nil {
			return fromRepo(err, ErrTransactionNotFound)
		}
		if !existing.Status.CanTransitionTo(model.TransactionCompleted) {
			return ErrNotEditable
		}
		if err := s.transactions.Transition(ctx, storeID, id, existing.Status, model.TransactionCompleted, false); err != nil {
			return fromRepo(err, ErrTransactionNotFound)
		}
		existing.Status = model.TransactionCompleted
		existing.IsOverdue = false
		completed = existing
		return nil
	})
	if err != nil {
		return nil, classify("complete_transaction", err)
	}

	prom.IncLedgerTransaction("complete", string(completed.Type))
	return completed, nil
}

// CustomerStatistics sums the ledger and repairs the stored totals if they
// have drifted from it.
func (s *LedgerService) CustomerStatistics(ctx context.Context, storeID, customerID uuid.UUID) (model.LedgerTotals, error) {
	var totals model.LedgerTotals
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.customers.GetActiveForUpdate(ctx, storeID, customerID)
		if err != nil {
			return fromRepo(err, ErrCustomerNotFound)
		}

		totals, err = s.transactions.CustomerTotals(ctx, customerID)
		if err != nil {
			return err
		}

		stored := c.Totals()
		if stored.Equal(totals) {
			return nil
		}
		logger.Warn("[ledger] customer totals drifted, repairing",
			"store_id", storeID,
			"customer_id", customerID,
			"stored_balance", stored.Balance.String(),
			"ledger_balance", totals.Balance.String(),
		)
		if err := s.customers.SetTotals(ctx, customerID, totals); err != nil {
			return fromRepo(err, ErrCustomerNotFound)
		}
		prom.IncReadRepair()
		return nil
	})
	if err != nil {
		return model.LedgerTotals{}, classify("customer_statistics", err)
	}
	return totals, nil
}

// StoreSummary is ledger-accurate: outstanding goes negative when customers
// have overpaid.
func (s *LedgerService) StoreSummary(ctx context.Context, storeID uuid.UUID) (*model.StoreSummary, error) {
	return s.transactions.StoreTotals(ctx, storeID)
}

func (s *LedgerService) GetTransaction(ctx context.Context, storeID, id uuid.UUID) (*model.CreditTransaction, error) {
	txn, err := s.transactions.Get(ctx, storeID, id)
	if err != nil {
		return nil, fromRepo(err, ErrTransactionNotFound)
	}
	txn.Refresh(s.now())
	return txn, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, f model.TransactionFilter) ([]*model.CreditTransaction, int64, error) {
	items, total, err := s.transactions.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for _, txn := range items {
		txn.Refresh(now)
	}
	return items, total, nil
}

// OverdueTransactions lists pending credit past its due date and persists the
// overdue flag on rows that crossed the line since they were last written.
func (s *LedgerService) OverdueTransactions(ctx context.Context, storeID uuid.UUID) ([]*model.CreditTransaction, error) {
	now := s.now()
	n, err := s.transactions.MarkOverdue(ctx, storeID, now)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		logger.Debug("[ledger] flagged overdue transactions", "store_id", storeID, "count", n)
	}

	items, err := s.transactions.ListOverdue(ctx, storeID, now)
	if err != nil {
		return nil, err
	}
	for _, txn := range items {
		txn.Refresh(now)
	}
	return items, nil
}
