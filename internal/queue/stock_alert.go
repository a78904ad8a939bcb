package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nimasrn/store-ledger/internal/model"
)

const MessageTypeStockAlert = "stock_alert"

// StockAlertPublisher writes low-stock alerts onto the alert stream.
type StockAlertPublisher struct {
	queue *Queue
}

func NewStockAlertPublisher(q *Queue) *StockAlertPublisher {
	return &StockAlertPublisher{queue: q}
}

func (p *StockAlertPublisher) PublishStockAlert(ctx context.Context, alert *model.StockAlert) error {
	_, err := p.queue.PublishJSON(ctx, alert, map[string]string{
		"type":       MessageTypeStockAlert,
		"store_id":   alert.StoreID.String(),
		"product_id": alert.ProductID.String(),
		"status":     alert.Status,
	})
	return err
}

// DecodeStockAlert parses a stream message produced by PublishStockAlert.
func DecodeStockAlert(msg *Message) (*model.StockAlert, error) {
	if t := msg.Metadata["type"]; t != "" && t != MessageTypeStockAlert {
		return nil, fmt.Errorf("unexpected message type %q", t)
	}
	var alert model.StockAlert
	if err := json.Unmarshal(msg.Data, &alert); err != nil {
		return nil, fmt.Errorf("decode stock alert: %w", err)
	}
	return &alert, nil
}
