package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/nimasrn/store-ledger/internal/queue"
	"github.com/nimasrn/store-ledger/internal/repository"
	"github.com/nimasrn/store-ledger/pkg/logger"
	"github.com/nimasrn/store-ledger/pkg/prom"
	"github.com/nimasrn/store-ledger/pkg/redis"
)

const (
	ResultDelivered  = "delivered"
	ResultStale      = "stale"
	ResultSuppressed = "suppressed"
	ResultDuplicate  = "duplicate"
	ResultInvalid    = "invalid"
	ResultError      = "error"
)

type ProductReader interface {
	Get(ctx context.Context, storeID, id uuid.UUID) (*model.Product, error)
}

// StockAlertProcessor turns stream alerts into entries on the per-store
// restock board. The product is re-read first, so an alert that a later
// restock already resolved removes the board entry instead of adding one.
type StockAlertProcessor struct {
	products ProductReader
	guard    *AlertGuard
	board    *RestockBoard
	now      func() time.Time
}

func NewStockAlertProcessor(products ProductReader, guard *AlertGuard, redisAdapter redis.RedisAdapter) *StockAlertProcessor {
	return &StockAlertProcessor{
		products: products,
		guard:    guard,
		board:    NewRestockBoard(redisAdapter),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *StockAlertProcessor) GetType() string {
	return queue.MessageTypeStockAlert
}

// Process returns nil for every outcome that a retry cannot change, so the
// message is acked. Only infrastructure failures are returned.
func (p *StockAlertProcessor) Process(ctx context.Context, msg *queue.Message) error {
	start := time.Now()
	result, err := p.process(ctx, msg)
	prom.IncAlertProcessed(result)
	prom.ObserveAlertProcessing(time.Since(start))
	return err
}

func (p *StockAlertProcessor) process(ctx context.Context, msg *queue.Message) (string, error) {
	alert, err := queue.DecodeStockAlert(msg)
	if err != nil {
		logger.Error("[alerts] dropping undecodable message", "id", msg.ID, "error", err)
		return ResultInvalid, nil
	}

	product, err := p.products.Get(ctx, alert.StoreID, alert.ProductID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		logger.Info("[alerts] product gone, clearing board entry", "store_id", alert.StoreID, "product_id", alert.ProductID)
		return ResultStale, p.board.Clear(ctx, alert.StoreID, alert.ProductID)
	case err != nil:
		return ResultError, fmt.Errorf("load product: %w", err)
	case !product.IsLowStock:
		logger.Debug("[alerts] product restocked since alert", "store_id", alert.StoreID, "product_id", alert.ProductID)
		return ResultStale, p.board.Clear(ctx, alert.StoreID, alert.ProductID)
	}

	current := model.NewStockAlert(product, alert.Cause, p.now())
	current.ID = alert.ID
	current.OccurredAt = alert.OccurredAt

	slot, err := p.guard.Acquire(ctx, alert.ID, alert.StoreID, alert.ProductID, current.Status)
	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		return ResultDuplicate, nil
	case errors.Is(err, ErrCoolingDown):
		// the board still gets the fresher quantity
		return ResultSuppressed, p.board.Post(ctx, current)
	case err != nil:
		return ResultError, err
	}

	if err := p.board.Post(ctx, current); err != nil {
		p.guard.Release(ctx, slot)
		return ResultError, err
	}
	if err := p.guard.MarkProcessed(ctx, slot); err != nil {
		logger.Warn("[alerts] mark processed failed", "alert_id", alert.ID, "error", err)
	}

	logger.Info("[alerts] product needs restock",
		"store_id", current.StoreID,
		"product_id", current.ProductID,
		"product", current.ProductName,
		"quantity", current.CurrentQuantity,
		"restock_level", current.RestockLevel,
		"status", current.Status)
	return ResultDelivered, nil
}
