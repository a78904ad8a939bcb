package repository

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

var rangeCheck = regexp.MustCompile(`CHECK \(([a-z_]+ [<>=]+ [0-9]+)\)`)

func migrationSQL(t *testing.T) string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(MigrationsDir(t), "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	var b strings.Builder
	for _, f := range files {
		raw, err := os.ReadFile(f)
		require.NoError(t, err)
		b.Write(raw)
	}
	return b.String()
}

func TestMigrationsMatchEntityChecks(t *testing.T) {
	sql := migrationSQL(t)

	var tagged []string
	cache := &sync.Map{}
	for _, e := range []interface{}{&CustomerEntity{}, &CreditTransactionEntity{}, &ProductEntity{}, &SaleEntity{}} {
		s, err := schema.Parse(e, cache, schema.NamingStrategy{})
		require.NoError(t, err)
		for _, f := range s.Fields {
			if expr, ok := f.TagSettings["CHECK"]; ok {
				tagged = append(tagged, expr)
			}
		}
	}

	var migrated []string
	for _, m := range rangeCheck.FindAllStringSubmatch(sql, -1) {
		migrated = append(migrated, m[1])
	}

	sort.Strings(tagged)
	sort.Strings(migrated)
	assert.Equal(t, migrated, tagged)
	assert.Contains(t, migrated, "unit_price >= 0")
}

func TestMigratedSchema(t *testing.T) {
	db := NewMigratedTestDB(t)
	products := NewProductRepository(db)
	sales := NewSaleRepository(db)
	customers := NewCustomerRepository(db)
	txns := NewCreditTransactionRepository(db)
	ctx := context.Background()
	storeID := uuid.New()
	p := createProduct(t, products, storeID, "Water", 10, 2)

	sale := func(unitPrice decimal.Decimal) *model.Sale {
		return &model.Sale{
			ProductID:     p.ID,
			StoreID:       storeID,
			ProductName:   p.Name,
			Category:      p.Category,
			Quantity:      2,
			UnitPrice:     unitPrice,
			TotalPrice:    model.SaleTotal(2, unitPrice),
			PaymentMethod: model.PaymentCash,
			SaleDate:      time.Now().UTC(),
		}
	}

	t.Run("zero unit price sale is stored", func(t *testing.T) {
		s, err := sales.Create(ctx, sale(decimal.Zero))
		require.NoError(t, err)

		got, err := sales.Get(ctx, storeID, s.ID)
		require.NoError(t, err)
		assert.True(t, got.UnitPrice.IsZero())
		assert.True(t, got.TotalPrice.IsZero())
	})

	t.Run("negative unit price is rejected", func(t *testing.T) {
		_, err := sales.Create(ctx, sale(decimal.NewFromInt(-1)))
		assert.Error(t, err)
	})

	t.Run("stock cannot go below zero", func(t *testing.T) {
		assert.Error(t, products.SetQuantity(ctx, storeID, p.ID, -1))

		err := products.DecrementIfSufficient(ctx, storeID, p.ID, 11)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		require.NoError(t, products.DecrementIfSufficient(ctx, storeID, p.ID, 10))

		got, err := products.Get(ctx, storeID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.CurrentQuantity)
		assert.Equal(t, 10, got.TotalSold)
	})

	t.Run("transaction amount must be positive", func(t *testing.T) {
		c := createCustomer(t, customers, storeID, "Ada", "0800000001")
		now := time.Now().UTC()
		txn := func(amount decimal.Decimal) *model.CreditTransaction {
			return &model.CreditTransaction{
				CustomerID:  c.ID,
				StoreID:     storeID,
				Type:        model.TransactionCreditGiven,
				Amount:      amount,
				Description: "bread",
				Status:      model.TransactionPending,
				Reference:   model.NewReference(now),
			}
		}

		_, err := txns.Create(ctx, txn(decimal.Zero))
		assert.Error(t, err)

		created, err := txns.Create(ctx, txn(decimal.RequireFromString("0.01")))
		require.NoError(t, err)
		got, err := txns.Get(ctx, storeID, created.ID)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(decimal.RequireFromString("0.01")))
	})
}
