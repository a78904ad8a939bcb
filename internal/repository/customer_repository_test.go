package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nimasrn/store-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createCustomer(t *testing.T, repo *CustomerRepository, storeID uuid.UUID, name, phone string) *model.Customer {
	t.Helper()
	c, err := repo.Create(context.Background(), &model.Customer{
		StoreID: storeID,
		Name:    name,
		Phone:   phone,
		Address: "12 Market Road",
	})
	require.NoError(t, err)
	return c
}

func TestCustomerRepository_Create(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCustomerRepository(db)
	ctx := context.Background()
	storeID := uuid.New()

	t.Run("starts active with zero totals", func(t *testing.T) {
		c, err := repo.Create(ctx, &model.Customer{
			StoreID:     storeID,
			Name:        "Ada",
			Phone:       "0800000001",
			Address:     "1 Main St",
			TotalCredit: decimal.NewFromInt(99),
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, c.ID)
		assert.True(t, c.IsActive)
		assert.True(t, c.TotalCredit.IsZero())
		assert.True(t, c.Balance.IsZero())
	})

	t.Run("duplicate active phone in same store", func(t *testing.T) {
		createCustomer(t, repo, storeID, "Bola", "0800000002")
		_, err := repo.Create(ctx, &model.Customer{StoreID: storeID, Name: "Other", Phone: "0800000002", Address: "x"})
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("same phone in another store", func(t *testing.T) {
		createCustomer(t, repo, storeID, "Chi", "0800000003")
		c := createCustomer(t, repo, uuid.New(), "Chi", "0800000003")
		assert.True(t, c.IsActive)
	})

	t.Run("phone is reusable after deactivation", func(t *testing.T) {
		old := createCustomer(t, repo, storeID, "Dayo", "0800000004")
		require.NoError(t, repo.Deactivate(ctx, storeID, old.ID))

		c := createCustomer(t, repo, storeID, "Dayo Again", "0800000004")
		assert.NotEqual(t, old.ID, c.ID)
	})
}

func TestCustomerRepository_GetAndDeactivate(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCustomerRepository(db)
	ctx := context.Background()
	storeID := uuid.New()
	c := createCustomer(t, repo, storeID, "Ada", "0800000001")

	t.Run("get active", func(t *testing.T) {
		got, err := repo.GetActive(ctx, storeID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada", got.Name)
	})

	t.Run("other store cannot see it", func(t *testing.T) {
		_, err := repo.GetActive(ctx, uuid.New(), c.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("deactivate hides the customer", func(t *testing.T) {
		require.NoError(t, repo.Deactivate(ctx, storeID, c.ID))

		_, err := repo.GetActive(ctx, storeID, c.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("deactivate twice", func(t *testing.T) {
		err := repo.Deactivate(ctx, storeID, c.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCustomerRepository_UpdateProfile(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCustomerRepository(db)
	ctx := context.Background()
	storeID := uuid.New()
	c := createCustomer(t, repo, storeID, "Ada", "0800000001")

	name := "Ada Obi"
	updated, err := repo.UpdateProfile(ctx, storeID, c.ID, model.CustomerUpdateRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", updated.Name)
	assert.Equal(t, "0800000001", updated.Phone)

	_, err = repo.UpdateProfile(ctx, storeID, uuid.New(), model.CustomerUpdateRequest{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCustomerRepository_ApplyLedgerDelta(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCustomerRepository(db)
	ctx := context.Background()
	storeID := uuid.New()
	c := createCustomer(t, repo, storeID, "Ada", "0800000001")

	t.Run("credit then payment", func(t *testing.T) {
		got, err := repo.ApplyLedgerDelta(ctx, c.ID, decimal.NewFromInt(100), decimal.Zero)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))

		got, err = repo.ApplyLedgerDelta(ctx, c.ID, decimal.Zero, decimal.NewFromInt(30))
		require.NoError(t, err)
		assert.True(t, got.TotalCredit.Equal(decimal.NewFromInt(100)))
		assert.True(t, got.TotalPaid.Equal(decimal.NewFromInt(30)))
		assert.True(t, got.Balance.Equal(decimal.NewFromInt(70)))
	})

	t.Run("negative delta reverses", func(t *testing.T) {
		got, err := repo.ApplyLedgerDelta(ctx, c.ID, decimal.NewFromInt(-100), decimal.Zero)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(decimal.NewFromInt(-30)))
	})

	t.Run("unknown customer", func(t *testing.T) {
		_, err := repo.ApplyLedgerDelta(ctx, uuid.New(), decimal.NewFromInt(1), decimal.Zero)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rolled back with the transaction", func(t *testing.T) {
		boom := assert.AnError
		err := db.WithinTransaction(ctx, func(ctx context.Context) error {
			if _, err := repo.ApplyLedgerDelta(ctx, c.ID, decimal.NewFromInt(500), decimal.Zero); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := repo.GetActive(ctx, storeID, c.ID)
		require.NoError(t, err)
		assert.True(t, got.TotalCredit.IsZero())
	})
}

func TestCustomerRepository_SetTotals(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCustomerRepository(db)
	ctx := context.Background()
	storeID := uuid.New()
	c := createCustomer(t, repo, storeID, "Ada", "0800000001")

	totals := model.NewLedgerTotals(decimal.NewFromInt(50), decimal.NewFromInt(20))
	require.NoError(t, repo.SetTotals(ctx, c.ID, totals))

	got, err := repo.GetActive(ctx, storeID, c.ID)
	require.NoError(t, err)
	assert.True(t, got.Totals().Equal(totals))
}

func TestCustomerRepository_ListAndOverview(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCustomerRepository(db)
	ctx := context.Background()
	storeID := uuid.New()

	a := createCustomer(t, repo, storeID, "Zainab", "0800000001")
	b := createCustomer(t, repo, storeID, "Ade", "0800000002")
	gone := createCustomer(t, repo, storeID, "Kunle", "0800000003")
	createCustomer(t, repo, uuid.New(), "Elsewhere", "0800000004")

	_, err := repo.ApplyLedgerDelta(ctx, a.ID, decimal.NewFromInt(100), decimal.NewFromInt(40))
	require.NoError(t, err)
	_, err = repo.ApplyLedgerDelta(ctx, b.ID, decimal.NewFromInt(10), decimal.NewFromInt(30))
	require.NoError(t, err)
	require.NoError(t, repo.Deactivate(ctx, storeID, gone.ID))

	t.Run("list active ordered by name", func(t *testing.T) {
		list, total, err := repo.List(ctx, model.CustomerFilter{StoreID: storeID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, list, 2)
		assert.Equal(t, "Ade", list[0].Name)
		assert.Equal(t, "Zainab", list[1].Name)
	})

	t.Run("search by name or phone", func(t *testing.T) {
		list, _, err := repo.List(ctx, model.CustomerFilter{StoreID: storeID, Search: "zai"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, a.ID, list[0].ID)

		list, _, err = repo.List(ctx, model.CustomerFilter{StoreID: storeID, Search: "0002"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, b.ID, list[0].ID)
	})

	t.Run("overview", func(t *testing.T) {
		ov, err := repo.Overview(ctx, storeID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), ov.TotalCustomers)
		assert.Equal(t, int64(1), ov.CreditCustomers)
		assert.True(t, ov.TotalOutstanding.Equal(decimal.NewFromInt(40)), ov.TotalOutstanding.String())
		assert.True(t, ov.OverdueAmount.Equal(decimal.NewFromInt(60)), ov.OverdueAmount.String())
	})
}
