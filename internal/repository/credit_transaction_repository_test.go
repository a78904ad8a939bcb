package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTxn(t *testing.T, repo *CreditTransactionRepository, c *model.Customer, typ model.TransactionType, amount int64, due *time.Time) *model.CreditTransaction {
	t.Helper()
	now := time.Now().UTC()
	txn, err := repo.Create(context.Background(), &model.CreditTransaction{
		CustomerID:  c.ID,
		StoreID:     c.StoreID,
		Type:        typ,
		Amount:      decimal.NewFromInt(amount),
		Description: "groceries",
		DueDate:     due,
		IsOverdue:   model.IsOverdue(typ, model.TransactionPending, due, now),
		Status:      model.TransactionPending,
		Reference:   model.NewReference(now),
	})
	require.NoError(t, err)
	return txn
}

func TestCreditTransactionRepository_CreateAndGet(t *testing.T) {
	db := NewTestDB(t)
	customers := NewCustomerRepository(db)
	repo := NewCreditTransactionRepository(db)
	ctx := context.Background()
	c := createCustomer(t, customers, uuid.New(), "Ada", "0800000001")

	txn := createTxn(t, repo, c, model.TransactionCreditGiven, 100, nil)
	assert.NotEqual(t, uuid.Nil, txn.ID)

	t.Run("get", func(t *testing.T) {
		got, err := repo.Get(ctx, c.StoreID, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, txn.Reference, got.Reference)
		assert.Equal(t, model.TransactionPending, got.Status)
		assert.True(t, got.Amount.Equal(decimal.NewFromInt(100)))
	})

	t.Run("store scoped", func(t *testing.T) {
		_, err := repo.Get(ctx, uuid.New(), txn.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate reference", func(t *testing.T) {
		dup := *txn
		dup.ID = uuid.Nil
		_, err := repo.Create(ctx, &dup)
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})
}

func TestCreditTransactionRepository_Transition(t *testing.T) {
	db := NewTestDB(t)
	customers := NewCustomerRepository(db)
	repo := NewCreditTransactionRepository(db)
	ctx := context.Background()
	c := createCustomer(t, customers, uuid.New(), "Ada", "0800000001")
	txn := createTxn(t, repo, c, model.TransactionCreditGiven, 100, nil)

	require.NoError(t, repo.Transition(ctx, c.StoreID, txn.ID, model.TransactionPending, model.TransactionCancelled, false))

	got, err := repo.Get(ctx, c.StoreID, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionCancelled, got.Status)

	err = repo.Transition(ctx, c.StoreID, txn.ID, model.TransactionPending, model.TransactionCompleted, false)
	assert.ErrorIs(t, err, ErrConflict)

	err = repo.Amend(ctx, got)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreditTransactionRepository_Amend(t *testing.T) {
	db := NewTestDB(t)
	customers := NewCustomerRepository(db)
	repo := NewCreditTransactionRepository(db)
	ctx := context.Background()
	c := createCustomer(t, customers, uuid.New(), "Ada", "0800000001")
	txn := createTxn(t, repo, c, model.TransactionCreditGiven, 100, nil)

	txn.Amount = decimal.NewFromInt(150)
	txn.Description = "groceries and rice"
	require.NoError(t, repo.Amend(ctx, txn))

	got, err := repo.Get(ctx, c.StoreID, txn.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, "groceries and rice", got.Description)
	assert.Equal(t, txn.Reference, got.Reference)
}

func TestCreditTransactionRepository_Totals(t *testing.T) {
	db := NewTestDB(t)
	customers := NewCustomerRepository(db)
	repo := NewCreditTransactionRepository(db)
	ctx := context.Background()
	storeID := uuid.New()
	a := createCustomer(t, customers, storeID, "Ada", "0800000001")
	b := createCustomer(t, customers, storeID, "Bola", "0800000002")

	createTxn(t, repo, a, model.TransactionCreditGiven, 100, nil)
	createTxn(t, repo, a, model.TransactionPaymentReceived, 30, nil)
	cancelled := createTxn(t, repo, a, model.TransactionCreditGiven, 1000, nil)
	require.NoError(t, repo.Transition(ctx, storeID, cancelled.ID, model.TransactionPending, model.TransactionCancelled, false))
	createTxn(t, repo, b, model.TransactionPaymentReceived, 50, nil)

	t.Run("customer totals skip cancelled", func(t *testing.T) {
		totals, err := repo.CustomerTotals(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, totals.Equal(model.NewLedgerTotals(decimal.NewFromInt(100), decimal.NewFromInt(30))))
	})

	t.Run("customer without transactions", func(t *testing.T) {
		c := createCustomer(t, customers, storeID, "Chi", "0800000003")
		totals, err := repo.CustomerTotals(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, totals.Balance.IsZero())
	})

	t.Run("store totals are not clamped", func(t *testing.T) {
		summary, err := repo.StoreTotals(ctx, storeID)
		require.NoError(t, err)
		assert.True(t, summary.TotalCredit.Equal(decimal.NewFromInt(100)))
		assert.True(t, summary.TotalPaid.Equal(decimal.NewFromInt(80)))
		assert.True(t, summary.OutstandingAmount.Equal(decimal.NewFromInt(20)))
	})

	t.Run("list excludes cancelled", func(t *testing.T) {
		list, total, err := repo.List(ctx, model.TransactionFilter{StoreID: storeID})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		for _, txn := range list {
			assert.NotEqual(t, model.TransactionCancelled, txn.Status)
		}
	})

	t.Run("list by customer and type", func(t *testing.T) {
		typ := model.TransactionPaymentReceived
		list, total, err := repo.List(ctx, model.TransactionFilter{StoreID: storeID, CustomerID: &a.ID, Type: &typ})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, list, 1)
		assert.True(t, list[0].Amount.Equal(decimal.NewFromInt(30)))
	})
}

func TestCreditTransactionRepository_Overdue(t *testing.T) {
	db := NewTestDB(t)
	customers := NewCustomerRepository(db)
	repo := NewCreditTransactionRepository(db)
	ctx := context.Background()
	c := createCustomer(t, customers, uuid.New(), "Ada", "0800000001")

	now := time.Now().UTC()
	future := now.Add(48 * time.Hour)
	past := now.Add(-48 * time.Hour)

	createTxn(t, repo, c, model.TransactionCreditGiven, 100, &future)
	late := createTxn(t, repo, c, model.TransactionCreditGiven, 40, &past)
	createTxn(t, repo, c, model.TransactionPaymentReceived, 10, &past)
	assert.True(t, late.IsOverdue)

	list, err := repo.ListOverdue(ctx, c.StoreID, now)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, late.ID, list[0].ID)

	// a week later the future one is due as well
	n, err := repo.MarkOverdue(ctx, c.StoreID, now.Add(7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
