package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/nimasrn/store-ledger/internal/repository"
	"github.com/nimasrn/store-ledger/pkg/logger"
	"github.com/nimasrn/store-ledger/pkg/prom"
)

type ProductRepository interface {
	Transactor
	Create(ctx context.Context, p *model.Product) (*model.Product, error)
	Get(ctx context.Context, storeID, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, storeID uuid.UUID, sku string) (*model.Product, error)
	UpdateDetails(ctx context.Context, storeID, id uuid.UUID, req model.ProductUpdateRequest) error
	Delete(ctx context.Context, storeID, id uuid.UUID) error
	DecrementIfSufficient(ctx context.Context, storeID, id uuid.UUID, quantity int) error
	Increment(ctx context.Context, storeID, id uuid.UUID, quantity int, restockedAt time.Time) error
	SetQuantity(ctx context.Context, storeID, id uuid.UUID, quantity int) error
	ReduceSold(ctx context.Context, storeID, id uuid.UUID, quantity int) error
	SyncLowStock(ctx context.Context, storeID, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, f model.ProductFilter) ([]*model.Product, int64, error)
	LowStock(ctx context.Context, storeID uuid.UUID) ([]*model.Product, error)
	Categories(ctx context.Context, storeID uuid.UUID) ([]string, error)
	Stats(ctx context.Context, storeID uuid.UUID) (*model.InventoryStats, error)
}

// AlertPublisher receives low-stock alerts once the stock change committed.
type AlertPublisher interface {
	PublishStockAlert(ctx context.Context, alert *model.StockAlert) error
}

// InventoryService is the only writer of product stock columns. Every
// quantity change is a conditional or incremental update followed by a
// re-derivation of the low-stock flag in the same transaction.
type InventoryService struct {
	products ProductRepository
	alerts   AlertPublisher
	now      func() time.Time
}

// NewInventoryService builds the engine. alerts may be nil.
func NewInventoryService(products ProductRepository, alerts AlertPublisher) *InventoryService {
	return &InventoryService{
		products: products,
		alerts:   alerts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *InventoryService) CreateProduct(ctx context.Context, req model.ProductCreateRequest) (*model.Product, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.SKU != nil {
		if err := s.ensureSKUFree(ctx, req.StoreID, *req.SKU, uuid.Nil); err != nil {
			return nil, err
		}
	}

	p, err := s.products.Create(ctx, &model.Product{
		StoreID:         req.StoreID,
		Name:            req.Name,
		Category:        req.Category,
		Description:     req.Description,
		SKU:             req.SKU,
		Price:           req.Price,
		CurrentQuantity: req.InitialQuantity,
		InitialQuantity: req.InitialQuantity,
		RestockLevel:    req.RestockLevel,
		IsLowStock:      model.IsLowStock(req.InitialQuantity, req.RestockLevel),
		LastRestocked:   s.now(),
	})
	if err != nil {
		return nil, classify("create_product", fromRepo(err, ErrProductNotFound))
	}
	logger.Info("[inventory] product created", "store_id", p.StoreID, "product_id", p.ID, "quantity", p.CurrentQuantity)
	return p, nil
}

// UpdateProduct never touches stock. A changed restock level re-derives the
// low-stock flag.
func (s *InventoryService) UpdateProduct(ctx context.Context, storeID, id uuid.UUID, req model.ProductUpdateRequest) (*model.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.SKU != nil && strings.TrimSpace(*req.SKU) != "" {
		if err := s.ensureSKUFree(ctx, storeID, *req.SKU, id); err != nil {
			return nil, err
		}
	}

	var updated *model.Product
	err := s.products.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.products.UpdateDetails(ctx, storeID, id, req); err != nil {
			return fromRepo(err, ErrProductNotFound)
		}
		var err error
		updated, err = s.products.SyncLowStock(ctx, storeID, id)
		return fromRepo(err, ErrProductNotFound)
	})
	if err != nil {
		return nil, classify("update_product", err)
	}
	return updated, nil
}

func (s *InventoryService) DeleteProduct(ctx context.Context, storeID, id uuid.UUID) error {
	if err := s.products.Delete(ctx, storeID, id); err != nil {
		return classify("delete_product", fromRepo(err, ErrProductNotFound))
	}
	logger.Info("[inventory] product deleted", "store_id", storeID, "product_id", id)
	return nil
}

func (s *InventoryService) GetProduct(ctx context.Context, storeID, id uuid.UUID) (*model.Product, error) {
	p, err := s.products.Get(ctx, storeID, id)
	if err != nil {
		return nil, fromRepo(err, ErrProductNotFound)
	}
	return p, nil
}

func (s *InventoryService) ListProducts(ctx context.Context, f model.ProductFilter) ([]*model.Product, int64, error) {
	return s.products.List(ctx, f)
}

func (s *InventoryService) LowStockAlerts(ctx context.Context, storeID uuid.UUID) ([]*model.Product, error) {
	return s.products.LowStock(ctx, storeID)
}

func (s *InventoryService) Categories(ctx context.Context, storeID uuid.UUID) ([]string, error) {
	return s.products.Categories(ctx, storeID)
}

func (s *InventoryService) InventoryStats(ctx context.Context, storeID uuid.UUID) (*model.InventoryStats, error) {
	return s.products.Stats(ctx, storeID)
}

func (s *InventoryService) Sell(ctx context.Context, storeID, id uuid.UUID, quantity int) (*model.Product, error) {
	if quantity < 1 {
		return nil, &model.ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	return s.mutate(ctx, "sell", model.StockSale, func(ctx context.Context) (*model.Product, error) {
		return s.sell(ctx, storeID, id, quantity)
	})
}

func (s *InventoryService) Restock(ctx context.Context, storeID, id uuid.UUID, quantity int) (*model.Product, error) {
	if quantity < 1 {
		return nil, &model.ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	return s.mutate(ctx, "restock", model.StockRestock, func(ctx context.Context) (*model.Product, error) {
		return s.restock(ctx, storeID, id, quantity)
	})
}

// Adjust sets stock to an absolute value after a manual count. total_sold is
// not touched.
func (s *InventoryService) Adjust(ctx context.Context, storeID, id uuid.UUID, quantity int) (*model.Product, error) {
	if quantity < 0 {
		return nil, &model.ValidationError{Field: "quantity", Reason: "cannot be negative"}
	}
	return s.mutate(ctx, "adjust", model.StockAdjustment, func(ctx context.Context) (*model.Product, error) {
		if err := s.products.SetQuantity(ctx, storeID, id, quantity); err != nil {
			return nil, fromRepo(err, ErrProductNotFound)
		}
		p, err := s.products.SyncLowStock(ctx, storeID, id)
		return p, fromRepo(err, ErrProductNotFound)
	})
}

// UpdateStock dispatches a stock movement to the matching operation.
func (s *InventoryService) UpdateStock(ctx context.Context, storeID, id uuid.UUID, kind model.StockMovement, quantity int) (*model.Product, error) {
	switch kind {
	case model.StockSale:
		return s.Sell(ctx, storeID, id, quantity)
	case model.StockRestock:
		return s.Restock(ctx, storeID, id, quantity)
	case model.StockAdjustment:
		return s.Adjust(ctx, storeID, id, quantity)
	}
	return nil, &model.ValidationError{Field: "type", Reason: "must be one of sale, restock, adjustment"}
}

func (s *InventoryService) mutate(ctx context.Context, op string, kind model.StockMovement, fn func(ctx context.Context) (*model.Product, error)) (*model.Product, error) {
	var p *model.Product
	err := s.products.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = fn(ctx)
		return err
	})
	if err != nil {
		return nil, classify(op, err)
	}
	prom.IncStockMovement(string(kind))
	s.notify(ctx, p, kind)
	return p, nil
}

// sell must run inside a transaction. The decrement only applies when stock
// covers the quantity.
func (s *InventoryService) sell(ctx context.Context, storeID, id uuid.UUID, quantity int) (*model.Product, error) {
	if err := s.products.DecrementIfSufficient(ctx, storeID, id, quantity); err != nil {
		err = fromRepo(err, ErrProductNotFound)
		if errors.Is(err, ErrInsufficientStock) {
			prom.IncInsufficientStock()
			logger.Warn("[inventory] insufficient stock", "store_id", storeID, "product_id", id, "requested", quantity)
		}
		return nil, err
	}
	p, err := s.products.SyncLowStock(ctx, storeID, id)
	return p, fromRepo(err, ErrProductNotFound)
}

func (s *InventoryService) restock(ctx context.Context, storeID, id uuid.UUID, quantity int) (*model.Product, error) {
	if err := s.products.Increment(ctx, storeID, id, quantity, s.now()); err != nil {
		return nil, fromRepo(err, ErrProductNotFound)
	}
	p, err := s.products.SyncLowStock(ctx, storeID, id)
	return p, fromRepo(err, ErrProductNotFound)
}

// unsell reverses a sale: stock comes back and total_sold goes down, floored
// at zero.
func (s *InventoryService) unsell(ctx context.Context, storeID, id uuid.UUID, quantity int) (*model.Product, error) {
	if err := s.products.Increment(ctx, storeID, id, quantity, s.now()); err != nil {
		return nil, fromRepo(err, ErrProductNotFound)
	}
	if err := s.products.ReduceSold(ctx, storeID, id, quantity); err != nil {
		return nil, fromRepo(err, ErrProductNotFound)
	}
	p, err := s.products.SyncLowStock(ctx, storeID, id)
	return p, fromRepo(err, ErrProductNotFound)
}

// notify publishes a low-stock alert. Publication is best effort: the stock
// change has already committed.
func (s *InventoryService) notify(ctx context.Context, p *model.Product, cause model.StockMovement) {
	if s.alerts == nil || p == nil || !p.IsLowStock {
		return
	}
	alert := model.NewStockAlert(p, cause, s.now())
	if err := s.alerts.PublishStockAlert(ctx, alert); err != nil {
		prom.IncAlertPublished("error")
		logger.Error("[inventory] publish stock alert failed", "product_id", p.ID, "error", err)
		return
	}
	prom.IncAlertPublished("ok")
}

func (s *InventoryService) ensureSKUFree(ctx context.Context, storeID uuid.UUID, sku string, self uuid.UUID) error {
	existing, err := s.products.FindBySKU(ctx, storeID, strings.TrimSpace(sku))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == self:
		return nil
	}
	return ErrDuplicateKey
}
