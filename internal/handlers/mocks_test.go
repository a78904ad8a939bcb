package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	xhttp "github.com/nimasrn/store-ledger/pkg/http"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func setupTestContext(method, path string, body []byte, params map[string]string) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	for k, v := range params {
		ctx.SetUserValue(k, v)
	}
	return ctx
}

func decodeError(t *testing.T, ctx *xhttp.RequestCtx) xhttp.ErrorBody {
	t.Helper()
	var body xhttp.ErrorBody
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	return body
}

type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) Create(ctx context.Context, req model.CustomerCreateRequest) (*model.Customer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *MockCustomerService) Update(ctx context.Context, storeID, id uuid.UUID, req model.CustomerUpdateRequest) (*model.Customer, error) {
	args := m.Called(ctx, storeID, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *MockCustomerService) Deactivate(ctx context.Context, storeID, id uuid.UUID) error {
	return m.Called(ctx, storeID, id).Error(0)
}

func (m *MockCustomerService) Get(ctx context.Context, storeID, id uuid.UUID) (*model.Customer, error) {
	args := m.Called(ctx, storeID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *MockCustomerService) List(ctx context.Context, f model.CustomerFilter) ([]*model.Customer, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Customer), args.Get(1).(int64), args.Error(2)
}

func (m *MockCustomerService) Overview(ctx context.Context, storeID uuid.UUID) (*model.CustomerOverview, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CustomerOverview), args.Error(1)
}

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) RecordTransaction(ctx context.Context, req model.TransactionCreateRequest) (*model.CreditTransaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CreditTransaction), args.Error(1)
}

func (m *MockLedgerService) AmendTransaction(ctx context.Context, req model.TransactionAmendRequest) (*model.CreditTransaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CreditTransaction), args.Error(1)
}

func (m *MockLedgerService) CancelTransaction(ctx context.Context, storeID, id uuid.UUID) error {
	return m.Called(ctx, storeID, id).Error(0)
}

func (m *MockLedgerService) CompleteTransaction(ctx context.Context, storeID, id uuid.UUID) (*model.CreditTransaction, error) {
	args := m.Called(ctx, storeID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CreditTransaction), args.Error(1)
}

func (m *MockLedgerService) GetTransaction(ctx context.Context, storeID, id uuid.UUID) (*model.CreditTransaction, error) {
	args := m.Called(ctx, storeID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CreditTransaction), args.Error(1)
}

func (m *MockLedgerService) ListTransactions(ctx context.Context, f model.TransactionFilter) ([]*model.CreditTransaction, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.CreditTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerService) OverdueTransactions(ctx context.Context, storeID uuid.UUID) ([]*model.CreditTransaction, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.CreditTransaction), args.Error(1)
}

func (m *MockLedgerService) StoreSummary(ctx context.Context, storeID uuid.UUID) (*model.StoreSummary, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoreSummary), args.Error(1)
}

func (m *MockLedgerService) CustomerStatistics(ctx context.Context, storeID, customerID uuid.UUID) (model.LedgerTotals, error) {
	args := m.Called(ctx, storeID, customerID)
	return args.Get(0).(model.LedgerTotals), args.Error(1)
}

type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) CreateProduct(ctx context.Context, req model.ProductCreateRequest) (*model.Product, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockInventoryService) UpdateProduct(ctx context.Context, storeID, id uuid.UUID, req model.ProductUpdateRequest) (*model.Product, error) {
	args := m.Called(ctx, storeID, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockInventoryService) DeleteProduct(ctx context.Context, storeID, id uuid.UUID) error {
	return m.Called(ctx, storeID, id).Error(0)
}

func (m *MockInventoryService) GetProduct(ctx context.Context, storeID, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, storeID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockInventoryService) ListProducts(ctx context.Context, f model.ProductFilter) ([]*model.Product, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockInventoryService) UpdateStock(ctx context.Context, storeID, id uuid.UUID, kind model.StockMovement, quantity int) (*model.Product, error) {
	args := m.Called(ctx, storeID, id, kind, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockInventoryService) LowStockAlerts(ctx context.Context, storeID uuid.UUID) ([]*model.Product, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Product), args.Error(1)
}

func (m *MockInventoryService) Categories(ctx context.Context, storeID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockInventoryService) InventoryStats(ctx context.Context, storeID uuid.UUID) (*model.InventoryStats, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.InventoryStats), args.Error(1)
}

type MockSalesService struct {
	mock.Mock
}

func (m *MockSalesService) RecordSale(ctx context.Context, req model.SaleCreateRequest) (*model.Sale, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Sale), args.Error(1)
}

func (m *MockSalesService) DeleteSale(ctx context.Context, storeID, id uuid.UUID) error {
	return m.Called(ctx, storeID, id).Error(0)
}

func (m *MockSalesService) UpdateSale(ctx context.Context, storeID, id uuid.UUID, req model.SaleUpdateRequest) (*model.Sale, error) {
	args := m.Called(ctx, storeID, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Sale), args.Error(1)
}

func (m *MockSalesService) GetSale(ctx context.Context, storeID, id uuid.UUID) (*model.Sale, error) {
	args := m.Called(ctx, storeID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Sale), args.Error(1)
}

func (m *MockSalesService) ListSales(ctx context.Context, f model.SaleFilter) ([]*model.Sale, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Sale), args.Get(1).(int64), args.Error(2)
}

func (m *MockSalesService) SalesStats(ctx context.Context, storeID uuid.UUID, from, to *time.Time) (*model.SalesStats, error) {
	args := m.Called(ctx, storeID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SalesStats), args.Error(1)
}

type MockRestockBoard struct {
	mock.Mock
}

func (m *MockRestockBoard) List(ctx context.Context, storeID uuid.UUID) ([]*model.StockAlert, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.StockAlert), args.Error(1)
}
