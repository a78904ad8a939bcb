package processor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/nimasrn/store-ledger/internal/queue"
	"github.com/nimasrn/store-ledger/internal/repository"
	"github.com/nimasrn/store-ledger/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProductReader struct {
	mock.Mock
}

func (m *MockProductReader) Get(ctx context.Context, storeID, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, storeID, id)
	if p := args.Get(0); p != nil {
		return p.(*model.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	t.Helper()
	mr := miniredis.RunT(t)
	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	return mr, adapter
}

func lowProduct(storeID uuid.UUID, qty int) *model.Product {
	return &model.Product{
		ID:              uuid.New(),
		StoreID:         storeID,
		Name:            "Rice 5kg",
		CurrentQuantity: qty,
		RestockLevel:    5,
		IsLowStock:      model.IsLowStock(qty, 5),
	}
}

func alertMessage(t *testing.T, alert *model.StockAlert) *queue.Message {
	t.Helper()
	data, err := json.Marshal(alert)
	require.NoError(t, err)
	return &queue.Message{
		ID:       "1-0",
		Data:     data,
		Metadata: map[string]string{"type": queue.MessageTypeStockAlert},
	}
}

func TestAlertGuard(t *testing.T) {
	mr, adapter := setupRedis(t)
	guard := NewAlertGuard(adapter, AlertGuardConfig{Cooldown: time.Minute})
	ctx := context.Background()
	storeID, productID := uuid.New(), uuid.New()

	first := uuid.New()
	slot, err := guard.Acquire(ctx, first, storeID, productID, model.StockStatusLow)
	require.NoError(t, err)

	t.Run("second alert in cooldown is suppressed", func(t *testing.T) {
		_, err := guard.Acquire(ctx, uuid.New(), storeID, productID, model.StockStatusLow)
		assert.ErrorIs(t, err, ErrCoolingDown)
	})

	t.Run("a different status is not suppressed", func(t *testing.T) {
		s, err := guard.Acquire(ctx, uuid.New(), storeID, productID, model.StockStatusOut)
		require.NoError(t, err)
		guard.Release(ctx, s)
	})

	t.Run("processed alert is a duplicate", func(t *testing.T) {
		require.NoError(t, guard.MarkProcessed(ctx, slot))

		_, err := guard.Acquire(ctx, first, storeID, productID, model.StockStatusLow)
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
	})

	t.Run("cooldown expires", func(t *testing.T) {
		mr.FastForward(time.Minute + time.Second)
		s, err := guard.Acquire(ctx, uuid.New(), storeID, productID, model.StockStatusLow)
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("release reopens the window", func(t *testing.T) {
		other := uuid.New()
		s, err := guard.Acquire(ctx, uuid.New(), storeID, other, model.StockStatusLow)
		require.NoError(t, err)
		guard.Release(ctx, s)

		_, err = guard.Acquire(ctx, uuid.New(), storeID, other, model.StockStatusLow)
		assert.NoError(t, err)
	})
}

func TestStockAlertProcessor_Process(t *testing.T) {
	ctx := context.Background()

	newProcessor := func(t *testing.T) (*StockAlertProcessor, *MockProductReader) {
		_, adapter := setupRedis(t)
		products := new(MockProductReader)
		p := NewStockAlertProcessor(products, NewAlertGuard(adapter, DefaultAlertGuardConfig()), adapter)
		return p, products
	}

	t.Run("low product lands on the board", func(t *testing.T) {
		p, products := newProcessor(t)
		storeID := uuid.New()
		product := lowProduct(storeID, 3)
		alert := model.NewStockAlert(lowProduct(storeID, 4), model.StockSale, time.Now().UTC())
		alert.ProductID = product.ID
		products.On("Get", mock.Anything, storeID, product.ID).Return(product, nil)

		require.NoError(t, p.Process(ctx, alertMessage(t, alert)))

		board, err := p.board.List(ctx, storeID)
		require.NoError(t, err)
		require.Len(t, board, 1)
		assert.Equal(t, alert.ID, board[0].ID)
		// the board carries the re-read quantity, not the one in the event
		assert.Equal(t, 3, board[0].CurrentQuantity)
		assert.Equal(t, model.StockStatusLow, board[0].Status)
	})

	t.Run("redelivery is acked without side effects", func(t *testing.T) {
		p, products := newProcessor(t)
		storeID := uuid.New()
		product := lowProduct(storeID, 2)
		alert := model.NewStockAlert(product, model.StockSale, time.Now().UTC())
		products.On("Get", mock.Anything, storeID, product.ID).Return(product, nil)

		msg := alertMessage(t, alert)
		require.NoError(t, p.Process(ctx, msg))
		result, err := p.process(ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, ResultDuplicate, result)
	})

	t.Run("repeat within cooldown refreshes board", func(t *testing.T) {
		p, products := newProcessor(t)
		storeID := uuid.New()
		product := lowProduct(storeID, 4)
		products.On("Get", mock.Anything, storeID, product.ID).Return(product, nil).Once()
		require.NoError(t, p.Process(ctx, alertMessage(t, model.NewStockAlert(product, model.StockSale, time.Now()))))

		lower := *product
		lower.CurrentQuantity = 1
		products.On("Get", mock.Anything, storeID, product.ID).Return(&lower, nil).Once()
		result, err := p.process(ctx, alertMessage(t, model.NewStockAlert(&lower, model.StockSale, time.Now())))
		require.NoError(t, err)
		assert.Equal(t, ResultSuppressed, result)

		board, err := p.board.List(ctx, storeID)
		require.NoError(t, err)
		require.Len(t, board, 1)
		assert.Equal(t, 1, board[0].CurrentQuantity)
	})

	t.Run("restocked product clears board", func(t *testing.T) {
		p, products := newProcessor(t)
		storeID := uuid.New()
		product := lowProduct(storeID, 2)
		products.On("Get", mock.Anything, storeID, product.ID).Return(product, nil).Once()
		require.NoError(t, p.Process(ctx, alertMessage(t, model.NewStockAlert(product, model.StockSale, time.Now()))))

		restocked := *product
		restocked.CurrentQuantity = 50
		restocked.IsLowStock = false
		products.On("Get", mock.Anything, storeID, product.ID).Return(&restocked, nil).Once()
		result, err := p.process(ctx, alertMessage(t, model.NewStockAlert(product, model.StockSale, time.Now())))
		require.NoError(t, err)
		assert.Equal(t, ResultStale, result)

		board, err := p.board.List(ctx, storeID)
		require.NoError(t, err)
		assert.Empty(t, board)
	})

	t.Run("deleted product is stale", func(t *testing.T) {
		p, products := newProcessor(t)
		storeID := uuid.New()
		product := lowProduct(storeID, 2)
		products.On("Get", mock.Anything, storeID, product.ID).Return(nil, repository.ErrNotFound)

		result, err := p.process(ctx, alertMessage(t, model.NewStockAlert(product, model.StockSale, time.Now())))
		require.NoError(t, err)
		assert.Equal(t, ResultStale, result)
	})

	t.Run("database failure is retried", func(t *testing.T) {
		p, products := newProcessor(t)
		storeID := uuid.New()
		product := lowProduct(storeID, 2)
		products.On("Get", mock.Anything, storeID, product.ID).Return(nil, assert.AnError)

		err := p.Process(ctx, alertMessage(t, model.NewStockAlert(product, model.StockSale, time.Now())))
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("garbage is dropped", func(t *testing.T) {
		p, products := newProcessor(t)
		result, err := p.process(ctx, &queue.Message{ID: "1-0", Data: []byte("nope"), Metadata: map[string]string{}})
		require.NoError(t, err)
		assert.Equal(t, ResultInvalid, result)
		products.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRestockBoard_Order(t *testing.T) {
	mr, adapter := setupRedis(t)
	b := NewRestockBoard(adapter)
	ctx := context.Background()
	storeID := uuid.New()

	for _, qty := range []int{4, 0, 2} {
		require.NoError(t, b.Post(ctx, model.NewStockAlert(lowProduct(storeID, qty), model.StockSale, time.Now())))
	}
	assert.Equal(t, restockBoardTTL, mr.TTL(boardKey(storeID)))
	mr.HSet(boardKey(storeID), uuid.NewString(), "{broken")

	board, err := b.List(ctx, storeID)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, []int{0, 2, 4}, []int{board[0].CurrentQuantity, board[1].CurrentQuantity, board[2].CurrentQuantity})
	assert.Equal(t, model.StockStatusOut, board[0].Status)
}

func TestProcessorService_EndToEnd(t *testing.T) {
	_, adapter := setupRedis(t)
	ctx := context.Background()

	cfg := queue.QueueConfig{
		Name:              "test:stock-alerts",
		ConsumerGroup:     "alert-processors",
		ConsumerName:      "test",
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      50 * time.Millisecond,
	}
	products := new(MockProductReader)
	proc := NewStockAlertProcessor(products, NewAlertGuard(adapter, DefaultAlertGuardConfig()), adapter)

	svc, err := NewProcessorService(adapter, proc, Options{Queue: cfg, Consumers: 2, Workers: 2})
	require.NoError(t, err)
	require.NoError(t, svc.Start())

	publisherQueue, err := queue.NewQueue(adapter, cfg)
	require.NoError(t, err)
	defer publisherQueue.Stop(time.Second)

	storeID := uuid.New()
	product := lowProduct(storeID, 1)
	products.On("Get", mock.Anything, storeID, product.ID).Return(product, nil)

	alert := model.NewStockAlert(product, model.StockSale, time.Now().UTC())
	require.NoError(t, queue.NewStockAlertPublisher(publisherQueue).PublishStockAlert(ctx, alert))

	assert.Eventually(t, func() bool {
		board, err := proc.board.List(ctx, storeID)
		return err == nil && len(board) == 1
	}, 3*time.Second, 50*time.Millisecond)

	assert.Eventually(t, func() bool {
		return svc.stats.snapshot().Processed == 1
	}, 2*time.Second, 50*time.Millisecond)

	svc.Stop()
}

func TestNewProcessorService(t *testing.T) {
	_, err := NewProcessorService(nil, nil, Options{})
	assert.Error(t, err)
}
