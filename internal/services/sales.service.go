package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/nimasrn/store-ledger/pkg/logger"
	"github.com/nimasrn/store-ledger/pkg/prom"
)

const topProductsLimit = 5

type SaleRepository interface {
	Create(ctx context.Context, s *model.Sale) (*model.Sale, error)
	Get(ctx context.Context, storeID, id uuid.UUID) (*model.Sale, error)
	GetForUpdate(ctx context.Context, storeID, id uuid.UUID) (*model.Sale, error)
	UpdateMetadata(ctx context.Context, storeID, id uuid.UUID, req model.SaleUpdateRequest) error
	Delete(ctx context.Context, storeID, id uuid.UUID) error
	List(ctx context.Context, f model.SaleFilter) ([]*model.Sale, int64, error)
	Overview(ctx context.Context, storeID uuid.UUID, from, to *time.Time) (*model.SalesOverview, error)
	TopProducts(ctx context.Context, storeID uuid.UUID, from, to *time.Time, limit int) ([]*model.TopProduct, error)
}

// stockEngine is the part of the inventory engine a sale drives. All methods
// expect to run inside the caller's transaction.
type stockEngine interface {
	sell(ctx context.Context, storeID, id uuid.UUID, quantity int) (*model.Product, error)
	unsell(ctx context.Context, storeID, id uuid.UUID, quantity int) (*model.Product, error)
	notify(ctx context.Context, p *model.Product, cause model.StockMovement)
}

// SalesService pairs every sale record with its stock debit, and every sale
// deletion with the matching stock credit.
type SalesService struct {
	db        Transactor
	sales     SaleRepository
	inventory stockEngine
	now       func() time.Time
}

func NewSalesService(db Transactor, sales SaleRepository, inventory *InventoryService) *SalesService {
	return &SalesService{
		db:        db,
		sales:     sales,
		inventory: inventory,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *SalesService) RecordSale(ctx context.Context, req model.SaleCreateRequest) (*model.Sale, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		created *model.Sale
		product *model.Product
	)
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		product, err = s.inventory.sell(ctx, req.StoreID, req.ProductID, req.Quantity)
		if err != nil {
			return err
		}

		created, err = s.sales.Create(ctx, &model.Sale{
			ProductID:     req.ProductID,
			StoreID:       req.StoreID,
			ProductName:   product.Name,
			Category:      product.Category,
			Quantity:      req.Quantity,
			UnitPrice:     req.UnitPrice,
			TotalPrice:    model.SaleTotal(req.Quantity, req.UnitPrice),
			PaymentMethod: req.PaymentMethod,
			CustomerName:  req.CustomerName,
			Notes:         req.Notes,
			SaleDate:      s.now(),
		})
		return fromRepo(err, ErrSaleNotFound)
	})
	if err != nil {
		return nil, classify("record_sale", err)
	}

	revenue, _ := created.TotalPrice.Float64()
	prom.IncSaleRecorded(string(created.PaymentMethod), revenue)
	prom.IncStockMovement(string(model.StockSale))
	logger.Info("[sales] sale recorded",
		"store_id", created.StoreID,
		"sale_id", created.ID,
		"product_id", created.ProductID,
		"quantity", created.Quantity,
		"total", created.TotalPrice.String(),
	)
	s.inventory.notify(ctx, product, model.StockSale)
	return created, nil
}

// DeleteSale puts the sold quantity back on the shelf and removes the record
// in one atomic unit. A sale whose product is gone is simply removed.
func (s *SalesService) DeleteSale(ctx context.Context, storeID, id uuid.UUID) error {
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		sale, err := s.sales.GetForUpdate(ctx, storeID, id)
		if err != nil {
			return fromRepo(err, ErrSaleNotFound)
		}

		if _, err := s.inventory.unsell(ctx, storeID, sale.ProductID, sale.Quantity); err != nil {
			if !errors.Is(err, ErrProductNotFound) {
				return err
			}
			logger.Warn("[sales] product of deleted sale no longer exists", "sale_id", sale.ID, "product_id", sale.ProductID)
		}

		return fromRepo(s.sales.Delete(ctx, storeID, id), ErrSaleNotFound)
	})
	if err != nil {
		return classify("delete_sale", err)
	}

	prom.IncStockMovement(string(model.StockRestock))
	logger.Info("[sales] sale deleted", "store_id", storeID, "sale_id", id)
	return nil
}

// UpdateSale changes customer name, notes or payment method. Quantity, price
// and product are fixed once the stock effect has committed.
func (s *SalesService) UpdateSale(ctx context.Context, storeID, id uuid.UUID, req model.SaleUpdateRequest) (*model.Sale, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !req.Empty() {
		if err := s.sales.UpdateMetadata(ctx, storeID, id, req); err != nil {
			return nil, classify("update_sale", fromRepo(err, ErrSaleNotFound))
		}
	}
	return s.GetSale(ctx, storeID, id)
}

func (s *SalesService) GetSale(ctx context.Context, storeID, id uuid.UUID) (*model.Sale, error) {
	sale, err := s.sales.Get(ctx, storeID, id)
	if err != nil {
		return nil, fromRepo(err, ErrSaleNotFound)
	}
	return sale, nil
}

func (s *SalesService) ListSales(ctx context.Context, f model.SaleFilter) ([]*model.Sale, int64, error) {
	return s.sales.List(ctx, f)
}

func (s *SalesService) SalesStats(ctx context.Context, storeID uuid.UUID, from, to *time.Time) (*model.SalesStats, error) {
	overview, err := s.sales.Overview(ctx, storeID, from, to)
	if err != nil {
		return nil, err
	}
	top, err := s.sales.TopProducts(ctx, storeID, from, to, topProductsLimit)
	if err != nil {
		return nil, err
	}
	return &model.SalesStats{Overview: *overview, TopProducts: top}, nil
}
