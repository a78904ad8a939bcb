package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/nimasrn/store-ledger/pkg/pg"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository struct {
	*pg.DB
}

func NewCustomerRepository(db *pg.DB) *CustomerRepository {
	return &CustomerRepository{
		db,
	}
}

func (r *CustomerRepository) Create(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	entity := toCustomerEntity(c)
	entity.IsActive = true
	entity.TotalCredit = decimal.Zero
	entity.TotalPaid = decimal.Zero
	entity.Balance = decimal.Zero

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, errors.Wrap(translate(err), "create customer")
	}
	return toCustomerModel(entity), nil
}

// GetActive returns an active customer of the store.
func (r *CustomerRepository) GetActive(ctx context.Context, storeID, id uuid.UUID) (*model.Customer, error) {
	var entity CustomerEntity
	err := r.Read(ctx).
		Where("id = ? AND store_id = ? AND is_active = ?", id, storeID, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err)
	}
	return toCustomerModel(&entity), nil
}

// GetActiveForUpdate is GetActive with a row lock held until the surrounding
// transaction ends.
func (r *CustomerRepository) GetActiveForUpdate(ctx context.Context, storeID, id uuid.UUID) (*model.Customer, error) {
	var entity CustomerEntity
	err := r.Write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND store_id = ? AND is_active = ?", id, storeID, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err)
	}
	return toCustomerModel(&entity), nil
}

func (r *CustomerRepository) FindActiveByPhone(ctx context.Context, storeID uuid.UUID, phone string) (*model.Customer, error) {
	var entity CustomerEntity
	err := r.Read(ctx).
		Where("store_id = ? AND phone = ? AND is_active = ?", storeID, phone, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err)
	}
	return toCustomerModel(&entity), nil
}

// UpdateProfile writes name, phone and address. Ledger columns are never
// touched here.
func (r *CustomerRepository) UpdateProfile(ctx context.Context, storeID, id uuid.UUID, req model.CustomerUpdateRequest) (*model.Customer, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}

	if len(updates) > 0 {
		res := r.Write(ctx).
			Model(&CustomerEntity{}).
			Where("id = ? AND store_id = ? AND is_active = ?", id, storeID, true).
			Updates(updates)
		if res.Error != nil {
			return nil, errors.Wrap(translate(res.Error), "update customer")
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetActive(ctx, storeID, id)
}

// Deactivate performs the active -> inactive transition.
func (r *CustomerRepository) Deactivate(ctx context.Context, storeID, id uuid.UUID) error {
	res := r.Write(ctx).
		Model(&CustomerEntity{}).
		Where("id = ? AND store_id = ? AND is_active = ?", id, storeID, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CustomerRepository) List(ctx context.Context, f model.CustomerFilter) ([]*model.Customer, int64, error) {
	q := r.Read(ctx).Model(&CustomerEntity{}).
		Where("store_id = ? AND is_active = ?", f.StoreID, true)

	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR phone LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(f.Limit, f.Offset)
	var entities []*CustomerEntity
	if err := q.Order("name ASC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toCustomerModels(entities), total, nil
}

// ApplyLedgerDelta adds credit and paid to the running totals with one atomic
// increment, then re-reads the row and stores the reconciled balance. Callers
// run it inside a transaction so the increment and the balance write commit
// together.
func (r *CustomerRepository) ApplyLedgerDelta(ctx context.Context, id uuid.UUID, credit, paid decimal.Decimal) (*model.Customer, error) {
	res := r.Write(ctx).
		Model(&CustomerEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_credit": gorm.Expr("total_credit + ?", credit),
			"total_paid":   gorm.Expr("total_paid + ?", paid),
		})
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "increment ledger totals")
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var entity CustomerEntity
	if err := r.Write(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, translate(err)
	}

	entity.Balance = model.ReconcileBalance(entity.TotalCredit, entity.TotalPaid)
	if err := r.Write(ctx).Model(&entity).Update("balance", entity.Balance).Error; err != nil {
		return nil, errors.Wrap(err, "store reconciled balance")
	}
	return toCustomerModel(&entity), nil
}

// SetTotals overwrites all three ledger columns. Used for read-repair only.
func (r *CustomerRepository) SetTotals(ctx context.Context, id uuid.UUID, totals model.LedgerTotals) error {
	res := r.Write(ctx).
		Model(&CustomerEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_credit": totals.TotalCredit,
			"total_paid":   totals.TotalPaid,
			"balance":      totals.Balance,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type customerOverviewRow struct {
	TotalOutstanding decimal.Decimal
	TotalCustomers   int64
	OverdueAmount    decimal.Decimal
	CreditCustomers  int64
}

func (r *CustomerRepository) Overview(ctx context.Context, storeID uuid.UUID) (*model.CustomerOverview, error) {
	var row customerOverviewRow
	err := r.Read(ctx).
		Model(&CustomerEntity{}).
		Select(`COALESCE(SUM(balance), 0) AS total_outstanding,
			COUNT(*) AS total_customers,
			COALESCE(SUM(CASE WHEN balance > 0 THEN balance ELSE 0 END), 0) AS overdue_amount,
			COALESCE(SUM(CASE WHEN balance > 0 THEN 1 ELSE 0 END), 0) AS credit_customers`).
		Where("store_id = ? AND is_active = ?", storeID, true).
		Scan(&row).
		Error
	if err != nil {
		return nil, err
	}
	return &model.CustomerOverview{
		TotalOutstanding: row.TotalOutstanding,
		TotalCustomers:   row.TotalCustomers,
		OverdueAmount:    row.OverdueAmount,
		CreditCustomers:  row.CreditCustomers,
	}, nil
}
