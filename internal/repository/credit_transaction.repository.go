package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/nimasrn/store-ledger/pkg/pg"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

type CreditTransactionRepository struct {
	*pg.DB
}

func NewCreditTransactionRepository(db *pg.DB) *CreditTransactionRepository {
	return &CreditTransactionRepository{
		db,
	}
}

func (r *CreditTransactionRepository) Create(ctx context.Context, txn *model.CreditTransaction) (*model.CreditTransaction, error) {
	entity := toCreditTransactionEntity(txn)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, errors.Wrap(translate(err), "create credit transaction")
	}
	return toCreditTransactionModel(entity), nil
}

func (r *CreditTransactionRepository) Get(ctx context.Context, storeID, id uuid.UUID) (*model.CreditTransaction, error) {
	var entity CreditTransactionEntity
	err := r.Read(ctx).
		Where("id = ? AND store_id = ?", id, storeID).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err)
	}
	return toCreditTransactionModel(&entity), nil
}

// GetForUpdate locks the transaction row until the surrounding transaction
// ends so its status can be checked and changed without a race.
func (r *CreditTransactionRepository) GetForUpdate(ctx context.Context, storeID, id uuid.UUID) (*model.CreditTransaction, error) {
	var entity CreditTransactionEntity
	err := r.Write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND store_id = ?", id, storeID).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err)
	}
	return toCreditTransactionModel(&entity), nil
}

// Amend rewrites the editable fields of a pending transaction. It fails with
// ErrConflict when the row is no longer pending.
func (r *CreditTransactionRepository) Amend(ctx context.Context, txn *model.CreditTransaction) error {
	res := r.Write(ctx).
		Model(&CreditTransactionEntity{}).
		Where("id = ? AND store_id = ? AND status = ?", txn.ID, txn.StoreID, string(model.TransactionPending)).
		Updates(map[string]interface{}{
			"amount":      txn.Amount,
			"description": txn.Description,
			"due_date":    txn.DueDate,
			"is_overdue":  txn.IsOverdue,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// Transition moves a transaction from one status to another. The write only
// applies if the stored status still equals from.
func (r *CreditTransactionRepository) Transition(ctx context.Context, storeID, id uuid.UUID, from, to model.TransactionStatus, isOverdue bool) error {
	res := r.Write(ctx).
		Model(&CreditTransactionEntity{}).
		Where("id = ? AND store_id = ? AND status = ?", id, storeID, string(from)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"is_overdue": isOverdue,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

type typeTotalRow struct {
	Type  string
	Total decimal.Decimal
}

// sumByType totals non-cancelled transactions per type, scoped by the given
// column.
func (r *CreditTransactionRepository) sumByType(ctx context.Context, scope string, id uuid.UUID) (credit, paid decimal.Decimal, err error) {
	var rows []typeTotalRow
	err = r.Read(ctx).
		Model(&CreditTransactionEntity{}).
		Select("type, COALESCE(SUM(amount), 0) AS total").
		Where(scope+" = ? AND status <> ?", id, string(model.TransactionCancelled)).
		Group("type").
		Scan(&rows).
		Error
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	credit, paid = decimal.Zero, decimal.Zero
	for _, row := range rows {
		switch model.TransactionType(row.Type) {
		case model.TransactionCreditGiven:
			credit = row.Total
		case model.TransactionPaymentReceived:
			paid = row.Total
		}
	}
	return credit, paid, nil
}

func (r *CreditTransactionRepository) CustomerTotals(ctx context.Context, customerID uuid.UUID) (model.LedgerTotals, error) {
	credit, paid, err := r.sumByType(ctx, "customer_id", customerID)
	if err != nil {
		return model.LedgerTotals{}, err
	}
	return model.NewLedgerTotals(credit, paid), nil
}

func (r *CreditTransactionRepository) StoreTotals(ctx context.Context, storeID uuid.UUID) (*model.StoreSummary, error) {
	credit, paid, err := r.sumByType(ctx, "store_id", storeID)
	if err != nil {
		return nil, err
	}
	return &model.StoreSummary{
		TotalCredit:       credit,
		TotalPaid:         paid,
		OutstandingAmount: model.ReconcileBalance(credit, paid),
	}, nil
}

func (r *CreditTransactionRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.CreditTransaction, int64, error) {
	q := r.Read(ctx).Model(&CreditTransactionEntity{}).
		Where("store_id = ? AND status <> ?", f.StoreID, string(model.TransactionCancelled))

	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.Type != nil {
		q = q.Where("type = ?", string(*f.Type))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(f.Limit, f.Offset)
	var entities []*CreditTransactionEntity
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toCreditTransactionModels(entities), total, nil
}

// ListOverdue returns pending credit whose due date is before now.
func (r *CreditTransactionRepository) ListOverdue(ctx context.Context, storeID uuid.UUID, now time.Time) ([]*model.CreditTransaction, error) {
	var entities []*CreditTransactionEntity
	err := r.Read(ctx).
		Where("store_id = ? AND type = ? AND status = ? AND due_date IS NOT NULL AND due_date < ?",
			storeID, string(model.TransactionCreditGiven), string(model.TransactionPending), now).
		Order("due_date ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toCreditTransactionModels(entities), nil
}

// MarkOverdue flags stored rows that have become overdue since they were
// last written. It returns the number of rows changed.
func (r *CreditTransactionRepository) MarkOverdue(ctx context.Context, storeID uuid.UUID, now time.Time) (int64, error) {
	res := r.Write(ctx).
		Model(&CreditTransactionEntity{}).
		Where("store_id = ? AND type = ? AND status = ? AND is_overdue = ? AND due_date IS NOT NULL AND due_date < ?",
			storeID, string(model.TransactionCreditGiven), string(model.TransactionPending), false, now).
		Update("is_overdue", true)
	return res.RowsAffected, res.Error
}
