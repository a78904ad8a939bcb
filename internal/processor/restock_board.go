package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/nimasrn/store-ledger/pkg/logger"
	"github.com/nimasrn/store-ledger/pkg/redis"
)

const (
	restockBoardPrefix = "restock:"
	restockBoardTTL    = 7 * 24 * time.Hour
)

// RestockBoard is the per-store redis hash of products awaiting restock,
// one field per product. The processor writes it and the api reads it.
type RestockBoard struct {
	redis redis.RedisAdapter
}

func NewRestockBoard(redisAdapter redis.RedisAdapter) *RestockBoard {
	return &RestockBoard{redis: redisAdapter}
}

// List returns the store's board, emptiest first. Entries that fail to decode
// are skipped.
func (b *RestockBoard) List(ctx context.Context, storeID uuid.UUID) ([]*model.StockAlert, error) {
	entries, err := b.redis.HGetAll(ctx, boardKey(storeID))
	if err != nil {
		return nil, fmt.Errorf("read restock board: %w", err)
	}
	alerts := make([]*model.StockAlert, 0, len(entries))
	for field, raw := range entries {
		var a model.StockAlert
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			logger.Warn("[alerts] corrupt board entry", "store_id", storeID, "field", field, "error", err)
			continue
		}
		alerts = append(alerts, &a)
	}
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].CurrentQuantity != alerts[j].CurrentQuantity {
			return alerts[i].CurrentQuantity < alerts[j].CurrentQuantity
		}
		return alerts[i].ProductName < alerts[j].ProductName
	})
	return alerts, nil
}

// Post stores or replaces the product's entry and pushes the board expiry out.
func (b *RestockBoard) Post(ctx context.Context, alert *model.StockAlert) error {
	raw, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	key := boardKey(alert.StoreID)
	if err := b.redis.HSet(ctx, key, alert.ProductID.String(), raw); err != nil {
		return fmt.Errorf("write restock board: %w", err)
	}
	return b.redis.Expire(ctx, key, restockBoardTTL)
}

func (b *RestockBoard) Clear(ctx context.Context, storeID, productID uuid.UUID) error {
	if err := b.redis.HDel(ctx, boardKey(storeID), productID.String()); err != nil {
		return fmt.Errorf("clear restock board: %w", err)
	}
	return nil
}

func boardKey(storeID uuid.UUID) string {
	return restockBoardPrefix + storeID.String()
}
