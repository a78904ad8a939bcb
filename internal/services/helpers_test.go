package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/nimasrn/store-ledger/internal/repository"
	"github.com/nimasrn/store-ledger/pkg/pg"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAlertPublisher struct {
	mock.Mock
}

func (m *MockAlertPublisher) PublishStockAlert(ctx context.Context, alert *model.StockAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

type fixture struct {
	db        *pg.DB
	storeID   uuid.UUID
	customers *CustomerService
	ledger    *LedgerService
	inventory *InventoryService
	sales     *SalesService
	alerts    *MockAlertPublisher

	customerRepo *repository.CustomerRepository
	productRepo  *repository.ProductRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, repository.NewTestDB(t))
}

func newFixtureOn(t *testing.T, db *pg.DB) *fixture {
	t.Helper()
	customerRepo := repository.NewCustomerRepository(db)
	txnRepo := repository.NewCreditTransactionRepository(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)

	alerts := new(MockAlertPublisher)
	inventory := NewInventoryService(productRepo, alerts)

	return &fixture{
		db:           db,
		storeID:      uuid.New(),
		customers:    NewCustomerService(customerRepo),
		ledger:       NewLedgerService(db, customerRepo, txnRepo),
		inventory:    inventory,
		sales:        NewSalesService(db, saleRepo, inventory),
		alerts:       alerts,
		customerRepo: customerRepo,
		productRepo:  productRepo,
	}
}

// acceptAlerts lets any number of alerts through without asserting on them.
func (f *fixture) acceptAlerts() {
	f.alerts.On("PublishStockAlert", mock.Anything, mock.AnythingOfType("*model.StockAlert")).Return(nil).Maybe()
}

func (f *fixture) customer(t *testing.T, phone string) *model.Customer {
	t.Helper()
	c, err := f.customers.Create(context.Background(), model.CustomerCreateRequest{
		StoreID: f.storeID,
		Name:    "Customer " + phone,
		Phone:   phone,
		Address: "4 Market Lane",
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) product(t *testing.T, qty, restockLevel int) *model.Product {
	t.Helper()
	p, err := f.inventory.CreateProduct(context.Background(), model.ProductCreateRequest{
		StoreID:         f.storeID,
		Name:            "Rice 5kg",
		Category:        "Grains",
		Price:           decimal.NewFromInt(100),
		InitialQuantity: qty,
		RestockLevel:    restockLevel,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) record(t *testing.T, c *model.Customer, typ model.TransactionType, amount int64) *model.CreditTransaction {
	t.Helper()
	txn, err := f.ledger.RecordTransaction(context.Background(), model.TransactionCreateRequest{
		CustomerID:  c.ID,
		StoreID:     c.StoreID,
		Type:        typ,
		Amount:      decimal.NewFromInt(amount),
		Description: "entry",
	})
	require.NoError(t, err)
	return txn
}

func (f *fixture) reload(t *testing.T, c *model.Customer) *model.Customer {
	t.Helper()
	got, err := f.customers.Get(context.Background(), c.StoreID, c.ID)
	require.NoError(t, err)
	return got
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
