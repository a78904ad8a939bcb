package services

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

func TestLedgerService_SymmetricReversal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, "0800000001")

	first := f.record(t, c, model.TransactionCreditGiven, 500)
	assert.True(t, f.reload(t, c).Balance.Equal(dec(500)))

	f.record(t, c, model.TransactionPaymentReceived, 200)
	assert.True(t, f.reload(t, c).Balance.Equal(dec(300)))

	require.NoError(t, f.ledger.CancelTransaction(ctx, c.StoreID, first.ID))

	got := f.reload(t, c)
	assert.True(t, got.Balance.Equal(dec(-200)), got.Balance.String())
	assert.True(t, got.TotalCredit.IsZero())
	assert.True(t, got.TotalPaid.Equal(dec(200)))
}

func TestLedgerService_RecordTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, "0800000001")

	t.Run("reference and pending status", func(t *testing.T) {
		txn := f.record(t, c, model.TransactionCreditGiven, 10)
		assert.Equal(t, model.TransactionPending, txn.Status)
		assert.Regexp(t, `^TXN-\d+-[0-9A-Z]{6}$`, txn.Reference)
	})

	t.Run("past due date is overdue at once", func(t *testing.T) {
		due := time.Now().UTC().Add(-time.Hour)
		txn, err := f.ledger.RecordTransaction(ctx, model.TransactionCreateRequest{
			CustomerID: c.ID, StoreID: c.StoreID, Type: model.TransactionCreditGiven,
			Amount: dec(5), Description: "late", DueDate: &due,
		})
		require.NoError(t, err)
		assert.True(t, txn.IsOverdue)
	})

	t.Run("validation happens before any write", func(t *testing.T) {
		before := f.reload(t, c)
		_, err := f.ledger.RecordTransaction(ctx, model.TransactionCreateRequest{
			CustomerID: c.ID, StoreID: c.StoreID, Type: model.TransactionCreditGiven,
			Amount: dec(0), Description: "zero",
		})
		assert.ErrorIs(t, err, ErrValidation)
		assert.True(t, f.reload(t, c).Balance.Equal(before.Balance))
	})

	t.Run("customer in another store", func(t *testing.T) {
		_, err := f.ledger.RecordTransaction(ctx, model.TransactionCreateRequest{
			CustomerID: c.ID, StoreID: uuid.New(), Type: model.TransactionCreditGiven,
			Amount: dec(5), Description: "x",
		})
		assert.ErrorIs(t, err, ErrCustomerNotFound)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("inactive customer", func(t *testing.T) {
		gone := f.customer(t, "0800000099")
		require.NoError(t, f.customers.Deactivate(ctx, gone.StoreID, gone.ID))

		_, err := f.ledger.RecordTransaction(ctx, model.TransactionCreateRequest{
			CustomerID: gone.ID, StoreID: gone.StoreID, Type: model.TransactionCreditGiven,
			Amount: dec(5), Description: "x",
		})
		assert.ErrorIs(t, err, ErrCustomerNotFound)
	})
}

func TestLedgerService_AmendTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, "0800000001")

	credit := f.record(t, c, model.TransactionCreditGiven, 100)
	payment := f.record(t, c, model.TransactionPaymentReceived, 40)

	t.Run("credit amount raised", func(t *testing.T) {
		amended, err := f.ledger.AmendTransaction(ctx, model.TransactionAmendRequest{
			ID: credit.ID, StoreID: c.StoreID, Amount: dec(150), Description: "more rice",
		})
		require.NoError(t, err)
		assert.True(t, amended.Amount.Equal(dec(150)))
		assert.Equal(t, credit.Reference, amended.Reference)

		got := f.reload(t, c)
		assert.True(t, got.TotalCredit.Equal(dec(150)))
		assert.True(t, got.Balance.Equal(dec(110)))
	})

	t.Run("payment amount lowered", func(t *testing.T) {
		_, err := f.ledger.AmendTransaction(ctx, model.TransactionAmendRequest{
			ID: payment.ID, StoreID: c.StoreID, Amount: dec(10), Description: "partial",
		})
		require.NoError(t, err)

		got := f.reload(t, c)
		assert.True(t, got.TotalPaid.Equal(dec(10)))
		assert.True(t, got.Balance.Equal(dec(140)))
	})

	t.Run("cancelled transaction is not editable", func(t *testing.T) {
		require.NoError(t, f.ledger.CancelTransaction(ctx, c.StoreID, payment.ID))

		_, err := f.ledger.AmendTransaction(ctx, model.TransactionAmendRequest{
			ID: payment.ID, StoreID: c.StoreID, Amount: dec(99), Description: "again",
		})
		assert.ErrorIs(t, err, ErrNotEditable)
		assert.True(t, f.reload(t, c).Balance.Equal(dec(150)))
	})

	t.Run("unknown transaction", func(t *testing.T) {
		_, err := f.ledger.AmendTransaction(ctx, model.TransactionAmendRequest{
			ID: uuid.New(), StoreID: c.StoreID, Amount: dec(1), Description: "x",
		})
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}

func TestLedgerService_StateMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, "0800000001")
	txn := f.record(t, c, model.TransactionCreditGiven, 100)

	completed, err := f.ledger.CompleteTransaction(ctx, c.StoreID, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionCompleted, completed.Status)

	// completed credit still counts
	assert.True(t, f.reload(t, c).Balance.Equal(dec(100)))

	assert.ErrorIs(t, f.ledger.CancelTransaction(ctx, c.StoreID, txn.ID), ErrNotEditable)
	_, err = f.ledger.CompleteTransaction(ctx, c.StoreID, txn.ID)
	assert.ErrorIs(t, err, ErrNotEditable)

	assert.ErrorIs(t, f.ledger.CancelTransaction(ctx, c.StoreID, uuid.New()), ErrTransactionNotFound)
}

func TestLedgerService_BalanceMatchesLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, "0800000001")

	var txns []*model.CreditTransaction
	for i := int64(1); i <= 6; i++ {
		typ := model.TransactionCreditGiven
		if i%3 == 0 {
			typ = model.TransactionPaymentReceived
		}
		txns = append(txns, f.record(t, c, typ, i*10))
	}
	_, err := f.ledger.AmendTransaction(ctx, model.TransactionAmendRequest{ID: txns[1].ID, StoreID: c.StoreID, Amount: dec(7), Description: "fix"})
	require.NoError(t, err)
	require.NoError(t, f.ledger.CancelTransaction(ctx, c.StoreID, txns[2].ID))
	require.NoError(t, f.ledger.CancelTransaction(ctx, c.StoreID, txns[4].ID))

	// credit: 10 + 7 + 40 ; paid: 60
	stats, err := f.ledger.CustomerStatistics(ctx, c.StoreID, c.ID)
	require.NoError(t, err)
	assert.True(t, stats.TotalCredit.Equal(dec(57)), stats.TotalCredit.String())
	assert.True(t, stats.TotalPaid.Equal(dec(60)), stats.TotalPaid.String())
	assert.True(t, stats.Balance.Equal(dec(-3)))

	assert.True(t, f.reload(t, c).Totals().Equal(stats))
}

func TestLedgerService_CustomerStatisticsReadRepair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, "0800000001")
	f.record(t, c, model.TransactionCreditGiven, 500)
	f.record(t, c, model.TransactionPaymentReceived, 200)

	// simulate drift left behind by an out-of-band write
	drifted := model.NewLedgerTotals(dec(900), dec(0))
	require.NoError(t, f.customerRepo.SetTotals(ctx, c.ID, drifted))

	stats, err := f.ledger.CustomerStatistics(ctx, c.StoreID, c.ID)
	require.NoError(t, err)
	assert.True(t, stats.Equal(model.NewLedgerTotals(dec(500), dec(200))))

	got := f.reload(t, c)
	assert.True(t, got.Balance.Equal(dec(300)))
	assert.True(t, got.TotalCredit.Equal(dec(500)))

	_, err = f.ledger.CustomerStatistics(ctx, c.StoreID, uuid.New())
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestLedgerService_StoreSummaryIsNotClamped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.customer(t, "0800000001")
	b := f.customer(t, "0800000002")

	f.record(t, a, model.TransactionCreditGiven, 100)
	f.record(t, b, model.TransactionPaymentReceived, 250)

	summary, err := f.ledger.StoreSummary(ctx, f.storeID)
	require.NoError(t, err)
	assert.True(t, summary.OutstandingAmount.Equal(dec(-150)), summary.OutstandingAmount.String())

	overview, err := f.customers.Overview(ctx, f.storeID)
	require.NoError(t, err)
	assert.True(t, overview.OverdueAmount.Equal(dec(100)), overview.OverdueAmount.String())
	assert.True(t, overview.TotalOutstanding.Equal(dec(-150)))
}

func TestLedgerService_Listing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.customer(t, "0800000001")

	soon := time.Now().UTC().Add(50 * time.Millisecond)
	txn, err := f.ledger.RecordTransaction(ctx, model.TransactionCreateRequest{
		CustomerID: c.ID, StoreID: c.StoreID, Type: model.TransactionCreditGiven,
		Amount: dec(30), Description: "due soon", DueDate: &soon,
	})
	require.NoError(t, err)
	assert.False(t, txn.IsOverdue)
	cancelled := f.record(t, c, model.TransactionCreditGiven, 5)
	require.NoError(t, f.ledger.CancelTransaction(ctx, c.StoreID, cancelled.ID))

	f.ledger.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }

	items, total, err := f.ledger.ListTransactions(ctx, model.TransactionFilter{StoreID: f.storeID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.True(t, items[0].IsOverdue)

	overdue, err := f.ledger.OverdueTransactions(ctx, f.storeID)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, txn.ID, overdue[0].ID)

	stored, err := f.ledger.GetTransaction(ctx, f.storeID, txn.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsOverdue)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(30)))
}
