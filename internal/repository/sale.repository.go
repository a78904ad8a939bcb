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

var saleSortColumns = map[string]string{
	"saleDate":    "sale_date",
	"productName": "product_name",
	"quantity":    "quantity",
	"unitPrice":   "unit_price",
	"totalPrice":  "total_price",
	"createdAt":   "created_at",
}

type SaleRepository struct {
	*pg.DB
}

func NewSaleRepository(db *pg.DB) *SaleRepository {
	return &SaleRepository{
		db,
	}
}

func (r *SaleRepository) Create(ctx context.Context, s *model.Sale) (*model.Sale, error) {
	entity := toSaleEntity(s)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, errors.Wrap(translate(err), "create sale")
	}
	return toSaleModel(entity), nil
}

func (r *SaleRepository) Get(ctx context.Context, storeID, id uuid.UUID) (*model.Sale, error) {
	var entity SaleEntity
	err := r.Read(ctx).
		Where("id = ? AND store_id = ?", id, storeID).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err)
	}
	return toSaleModel(&entity), nil
}

func (r *SaleRepository) GetForUpdate(ctx context.Context, storeID, id uuid.UUID) (*model.Sale, error) {
	var entity SaleEntity
	err := r.Write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND store_id = ?", id, storeID).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err)
	}
	return toSaleModel(&entity), nil
}

// UpdateMetadata writes the non-financial fields of a sale.
func (r *SaleRepository) UpdateMetadata(ctx context.Context, storeID, id uuid.UUID, req model.SaleUpdateRequest) error {
	updates := map[string]interface{}{}
	if req.CustomerName != nil {
		updates["customer_name"] = *req.CustomerName
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.PaymentMethod != nil {
		updates["payment_method"] = string(*req.PaymentMethod)
	}
	if len(updates) == 0 {
		return nil
	}

	res := r.Write(ctx).
		Model(&SaleEntity{}).
		Where("id = ? AND store_id = ?", id, storeID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SaleRepository) Delete(ctx context.Context, storeID, id uuid.UUID) error {
	res := r.Write(ctx).
		Where("id = ? AND store_id = ?", id, storeID).
		Delete(&SaleEntity{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SaleRepository) filtered(ctx context.Context, f model.SaleFilter) *gorm.DB {
	q := r.Read(ctx).Model(&SaleEntity{}).Where("store_id = ?", f.StoreID)

	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(product_name) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(notes) LIKE ?", like, like, like)
	}
	if f.Category != "" && f.Category != "all" {
		q = q.Where("category = ?", f.Category)
	}
	if f.PaymentMethod != "" && f.PaymentMethod != "all" {
		q = q.Where("payment_method = ?", string(f.PaymentMethod))
	}
	if f.From != nil {
		q = q.Where("sale_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("sale_date <= ?", *f.To)
	}
	if f.MinAmount != nil {
		q = q.Where("total_price >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("total_price <= ?", *f.MaxAmount)
	}
	return q
}

func (r *SaleRepository) List(ctx context.Context, f model.SaleFilter) ([]*model.Sale, int64, error) {
	q := r.filtered(ctx, f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := saleSortColumns[f.SortBy]
	if !ok {
		column = "sale_date"
	}
	order := column + " ASC"
	if f.Desc {
		order = column + " DESC"
	}

	limit, offset := pageBounds(f.Limit, f.Offset)
	var entities []*SaleEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toSaleModels(entities), total, nil
}

type salesOverviewRow struct {
	TotalSales        int64
	TotalRevenue      decimal.Decimal
	TotalQuantitySold int64
}

func (r *SaleRepository) Overview(ctx context.Context, storeID uuid.UUID, from, to *time.Time) (*model.SalesOverview, error) {
	var row salesOverviewRow
	err := r.filtered(ctx, model.SaleFilter{StoreID: storeID, From: from, To: to}).
		Select(`COUNT(*) AS total_sales,
			COALESCE(SUM(total_price), 0) AS total_revenue,
			COALESCE(SUM(quantity), 0) AS total_quantity_sold`).
		Scan(&row).
		Error
	if err != nil {
		return nil, err
	}

	avg := decimal.Zero
	if row.TotalSales > 0 {
		avg = row.TotalRevenue.DivRound(decimal.NewFromInt(row.TotalSales), 2)
	}
	return &model.SalesOverview{
		TotalSales:        row.TotalSales,
		TotalRevenue:      row.TotalRevenue,
		AverageSaleValue:  avg,
		TotalQuantitySold: row.TotalQuantitySold,
	}, nil
}

type topProductRow struct {
	ProductID         uuid.UUID
	ProductName       string
	TotalQuantitySold int64
	TotalRevenue      decimal.Decimal
	SalesCount        int64
}

// TopProducts ranks products by quantity sold. The name is the most recent
// snapshot taken for that product.
func (r *SaleRepository) TopProducts(ctx context.Context, storeID uuid.UUID, from, to *time.Time, limit int) ([]*model.TopProduct, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []topProductRow
	err := r.filtered(ctx, model.SaleFilter{StoreID: storeID, From: from, To: to}).
		Select(`product_id,
			MAX(product_name) AS product_name,
			COALESCE(SUM(quantity), 0) AS total_quantity_sold,
			COALESCE(SUM(total_price), 0) AS total_revenue,
			COUNT(*) AS sales_count`).
		Group("product_id").
		Order("total_quantity_sold DESC").
		Limit(limit).
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}

	out := make([]*model.TopProduct, len(rows))
	for i, row := range rows {
		out[i] = &model.TopProduct{
			ProductID:         row.ProductID,
			ProductName:       row.ProductName,
			TotalQuantitySold: row.TotalQuantitySold,
			TotalRevenue:      row.TotalRevenue,
			SalesCount:        row.SalesCount,
		}
	}
	return out, nil
}
