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
)

type ProductRepository struct {
	*pg.DB
}

func NewProductRepository(db *pg.DB) *ProductRepository {
	return &ProductRepository{
		db,
	}
}

func (r *ProductRepository) Create(ctx context.Context, p *model.Product) (*model.Product, error) {
	entity := toProductEntity(p)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, errors.Wrap(translate(err), "create product")
	}
	return toProductModel(entity), nil
}

func (r *ProductRepository) Get(ctx context.Context, storeID, id uuid.UUID) (*model.Product, error) {
	var entity ProductEntity
	err := r.Read(ctx).
		Where("id = ? AND store_id = ?", id, storeID).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err)
	}
	return toProductModel(&entity), nil
}

func (r *ProductRepository) FindBySKU(ctx context.Context, storeID uuid.UUID, sku string) (*model.Product, error) {
	var entity ProductEntity
	err := r.Read(ctx).
		Where("store_id = ? AND sku = ?", storeID, sku).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err)
	}
	return toProductModel(&entity), nil
}

// UpdateDetails writes descriptive fields and the restock level. Stock
// columns are not reachable from here.
func (r *ProductRepository) UpdateDetails(ctx context.Context, storeID, id uuid.UUID, req model.ProductUpdateRequest) error {
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.SKU != nil {
		if sku := strings.TrimSpace(*req.SKU); sku != "" {
			updates["sku"] = sku
		} else {
			updates["sku"] = nil
		}
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.RestockLevel != nil {
		updates["restock_level"] = *req.RestockLevel
	}
	if len(updates) == 0 {
		return nil
	}

	res := r.Write(ctx).
		Model(&ProductEntity{}).
		Where("id = ? AND store_id = ?", id, storeID).
		Updates(updates)
	if res.Error != nil {
		return errors.Wrap(translate(res.Error), "update product")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, storeID, id uuid.UUID) error {
	res := r.Write(ctx).
		Where("id = ? AND store_id = ?", id, storeID).
		Delete(&ProductEntity{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementIfSufficient takes quantity out of stock and adds it to total_sold
// in a single conditional update. Nothing is written when stock is short.
func (r *ProductRepository) DecrementIfSufficient(ctx context.Context, storeID, id uuid.UUID, quantity int) error {
	res := r.Write(ctx).
		Model(&ProductEntity{}).
		Where("id = ? AND store_id = ? AND current_quantity >= ?", id, storeID, quantity).
		Updates(map[string]interface{}{
			"current_quantity": gorm.Expr("current_quantity - ?", quantity),
			"total_sold":       gorm.Expr("total_sold + ?", quantity),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.checkDecrementFailureReason(ctx, storeID, id, quantity)
	}
	return nil
}

// checkDecrementFailureReason determines why the decrement matched no row.
func (r *ProductRepository) checkDecrementFailureReason(ctx context.Context, storeID, id uuid.UUID, quantity int) error {
	var entity ProductEntity
	err := r.Write(ctx).
		Select("current_quantity").
		Where("id = ? AND store_id = ?", id, storeID).
		First(&entity).
		Error
	if err != nil {
		return translate(err)
	}

	if entity.CurrentQuantity < quantity {
		return ErrInsufficientStock
	}
	return ErrConflict
}

func (r *ProductRepository) Increment(ctx context.Context, storeID, id uuid.UUID, quantity int, restockedAt time.Time) error {
	res := r.Write(ctx).
		Model(&ProductEntity{}).
		Where("id = ? AND store_id = ?", id, storeID).
		Updates(map[string]interface{}{
			"current_quantity": gorm.Expr("current_quantity + ?", quantity),
			"last_restocked":   restockedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetQuantity is the absolute stock correction. total_sold is left alone.
func (r *ProductRepository) SetQuantity(ctx context.Context, storeID, id uuid.UUID, quantity int) error {
	res := r.Write(ctx).
		Model(&ProductEntity{}).
		Where("id = ? AND store_id = ?", id, storeID).
		Update("current_quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReduceSold subtracts quantity from total_sold, flooring at zero.
func (r *ProductRepository) ReduceSold(ctx context.Context, storeID, id uuid.UUID, quantity int) error {
	res := r.Write(ctx).
		Model(&ProductEntity{}).
		Where("id = ? AND store_id = ?", id, storeID).
		Update("total_sold", gorm.Expr("CASE WHEN total_sold > ? THEN total_sold - ? ELSE 0 END", quantity, quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SyncLowStock re-reads the product and stores the derived low-stock flag.
// It runs after every quantity change, inside the same transaction.
func (r *ProductRepository) SyncLowStock(ctx context.Context, storeID, id uuid.UUID) (*model.Product, error) {
	var entity ProductEntity
	err := r.Write(ctx).
		Where("id = ? AND store_id = ?", id, storeID).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err)
	}

	low := model.IsLowStock(entity.CurrentQuantity, entity.RestockLevel)
	if low != entity.IsLowStock {
		if err := r.Write(ctx).Model(&entity).Update("is_low_stock", low).Error; err != nil {
			return nil, errors.Wrap(err, "store low stock flag")
		}
		entity.IsLowStock = low
	}
	return toProductModel(&entity), nil
}

func (r *ProductRepository) List(ctx context.Context, f model.ProductFilter) ([]*model.Product, int64, error) {
	q := r.Read(ctx).Model(&ProductEntity{}).Where("store_id = ?", f.StoreID)

	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ? OR LOWER(sku) LIKE ?", like, like, like)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.LowStockOnly {
		q = q.Where("is_low_stock = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(f.Limit, f.Offset)
	var entities []*ProductEntity
	if err := q.Order("name ASC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toProductModels(entities), total, nil
}

// LowStock lists flagged products, emptiest first.
func (r *ProductRepository) LowStock(ctx context.Context, storeID uuid.UUID) ([]*model.Product, error) {
	var entities []*ProductEntity
	err := r.Read(ctx).
		Where("store_id = ? AND is_low_stock = ?", storeID, true).
		Order("current_quantity ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toProductModels(entities), nil
}

func (r *ProductRepository) Categories(ctx context.Context, storeID uuid.UUID) ([]string, error) {
	var categories []string
	err := r.Read(ctx).
		Model(&ProductEntity{}).
		Where("store_id = ? AND category <> ''", storeID).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).
		Error
	return categories, err
}

type inventoryStatsRow struct {
	TotalProducts   int64
	TotalValue      decimal.Decimal
	LowStockCount   int64
	OutOfStockCount int64
	TotalQuantity   int64
}

func (r *ProductRepository) Stats(ctx context.Context, storeID uuid.UUID) (*model.InventoryStats, error) {
	var row inventoryStatsRow
	err := r.Read(ctx).
		Model(&ProductEntity{}).
		Select(`COUNT(*) AS total_products,
			COALESCE(SUM(current_quantity * price), 0) AS total_value,
			COALESCE(SUM(CASE WHEN is_low_stock THEN 1 ELSE 0 END), 0) AS low_stock_count,
			COALESCE(SUM(CASE WHEN current_quantity = 0 THEN 1 ELSE 0 END), 0) AS out_of_stock_count,
			COALESCE(SUM(current_quantity), 0) AS total_quantity`).
		Where("store_id = ?", storeID).
		Scan(&row).
		Error
	if err != nil {
		return nil, err
	}
	return &model.InventoryStats{
		TotalProducts:   row.TotalProducts,
		TotalValue:      row.TotalValue,
		LowStockCount:   row.LowStockCount,
		OutOfStockCount: row.OutOfStockCount,
		TotalQuantity:   row.TotalQuantity,
	}, nil
}
