package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/monotax/ledger"
	"github.com/warp/monotax/store/sqlite"
)

var ctx = context.Background()

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	store.Clock = func() time.Time { return time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC) }
	return store
}

var kyiv = time.FixedZone("EET", 2*60*60)

func inc(y int, m time.Month, d int, amount float64) ledger.Income {
	return ledger.NewIncome(time.Date(y, m, d, 10, 30, 0, 0, kyiv), ledger.MustAmount(amount))
}

func TestStore_SaveIncomes_Deduplicates(t *testing.T) {
	store := newStore(t)

	// GIVEN: Two statements overlapping on one income
	n, err := store.SaveIncomes(ctx, []ledger.Income{inc(2024, 1, 5, 1000), inc(2024, 2, 5, 2000)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// WHEN: Importing the second, same amount written with trailing zeros
	again, err := ledger.ParseAmount("2000.00")
	require.NoError(t, err)
	n, err = store.SaveIncomes(ctx, []ledger.Income{
		ledger.NewIncome(inc(2024, 2, 5, 0).Time, again).WithComment("duplicate"),
		inc(2024, 3, 5, 3000),
	})
	require.NoError(t, err)

	// THEN: Only the new income is stored
	assert.Equal(t, 1, n)
	all, err := store.FindIncomes(ctx, ledger.Criteria{ledger.ByYear(ledger.AnyYear())})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Empty(t, all[1].Comment)
}

func TestStore_Incomes_RoundTrip(t *testing.T) {
	store := newStore(t)
	in := ledger.NewIncome(time.Date(2024, 1, 1, 0, 30, 0, 123, kyiv), ledger.MustAmount(1500.25)).WithComment("invoice 7")

	_, err := store.SaveIncomes(ctx, []ledger.Income{in})
	require.NoError(t, err)

	got, err := store.FindIncomes(ctx, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].No)
	assert.True(t, got[0].Time.Equal(in.Time))
	assert.True(t, got[0].Amount.Equal(in.Amount))
	assert.Equal(t, "invoice 7", got[0].Comment)

	// Calendar day as seen where the income happened, not in UTC
	assert.Equal(t, 2024, got[0].Time.Year())
	assert.Equal(t, ledger.Q1, ledger.QuarterOf(got[0].Time))
}

func TestStore_FindIncomes_Criteria(t *testing.T) {
	store := newStore(t)
	_, err := store.SaveIncomes(ctx, []ledger.Income{
		inc(2023, 11, 1, 1),
		inc(2024, 2, 1, 2),
		inc(2024, 5, 1, 3),
		inc(2024, 8, 1, 4),
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		criteria ledger.Criteria
		want     []float64
	}{
		{"everything", nil, []float64{1, 2, 3, 4}},
		{"one year", ledger.Criteria{ledger.ByYear(ledger.OneYear(2023))}, []float64{1}},
		{"current year (clock 2024 Q2)", ledger.Criteria{ledger.ByYear(ledger.CurrentYear())}, []float64{2, 3, 4}},
		{"current quarter", ledger.Criteria{ledger.ByYear(ledger.CurrentYear()), ledger.ByQuarter(ledger.CurrentQuarter())}, []float64{3}},
		{"year to date Q2", ledger.Criteria{ledger.ByYear(ledger.OneYear(2024)), ledger.ByQuarter(ledger.YearToDateQuarter(ledger.Q2))}, []float64{2, 3}},
		{"current to date", ledger.Criteria{ledger.ByQuarter(ledger.CurrentToDateQuarter())}, []float64{2, 3}},
		{"any quarter", ledger.Criteria{ledger.ByQuarter(ledger.AnyQuarter())}, []float64{1, 2, 3, 4}},
		{"unknown kind", ledger.Criteria{{}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.FindIncomes(ctx, tt.criteria)
			require.NoError(t, err)

			var amounts []float64
			for _, in := range got {
				amounts = append(amounts, in.Amount.Float64())
			}
			assert.Equal(t, tt.want, amounts)
		})
	}
}

func TestStore_PaymentsAndReconciliations(t *testing.T) {
	store := newStore(t)
	_, err := store.SaveIncomes(ctx, []ledger.Income{inc(2024, 1, 5, 1000), inc(2024, 1, 6, 2000)})
	require.NoError(t, err)

	p, err := store.AddPayment(ctx, ledger.NewTaxPayment(0, ledger.MustAmount(70), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)

	at := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordReconciliations(ctx, p.ID, []ledger.Reconciliation{
		ledger.NewReconciliation(1, p.ID, ledger.MustAmount(50), at, ledger.Full),
		ledger.NewReconciliation(2, p.ID, ledger.MustAmount(20), at, ledger.Partial),
	}))

	stored, err := store.Payment(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.Applied)
	assert.True(t, stored.Amount.Equal(ledger.MustAmount(70)))

	pending, err := store.PendingIncomes(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(2), pending[0].No)

	partials, err := store.PartialReconciliations(ctx)
	require.NoError(t, err)
	require.Len(t, partials, 1)
	assert.Equal(t, ledger.Partial, partials[0].Completeness)
	assert.True(t, partials[0].ReconciledAt.Equal(at))

	all, err := store.Reconciliations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Undo restores the pre-payment state
	deleted, err := store.UndoPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	pending, err = store.PendingIncomes(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	stored, err = store.Payment(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, stored.Applied)
}

func TestStore_SecondFullEntry_Rejected(t *testing.T) {
	store := newStore(t)
	_, err := store.SaveIncomes(ctx, []ledger.Income{inc(2024, 1, 5, 1000)})
	require.NoError(t, err)
	p1, err := store.AddPayment(ctx, ledger.NewTaxPayment(0, ledger.MustAmount(50), time.Now()))
	require.NoError(t, err)
	p2, err := store.AddPayment(ctx, ledger.NewTaxPayment(0, ledger.MustAmount(50), time.Now()))
	require.NoError(t, err)

	require.NoError(t, store.RecordReconciliations(ctx, p1.ID, []ledger.Reconciliation{
		ledger.NewReconciliation(1, p1.ID, ledger.MustAmount(50), time.Now(), ledger.Full),
	}))
	err = store.RecordReconciliations(ctx, p2.ID, []ledger.Reconciliation{
		ledger.NewReconciliation(1, p2.ID, ledger.MustAmount(50), time.Now(), ledger.Full),
	})
	assert.ErrorIs(t, err, ledger.ErrPreconditionViolated)

	// Failed batch leaves the second payment unapplied
	stored, err := store.Payment(ctx, p2.ID)
	require.NoError(t, err)
	assert.False(t, stored.Applied)
}

func TestStore_UnknownPayment(t *testing.T) {
	store := newStore(t)

	_, err := store.Payment(ctx, 99)
	assert.ErrorIs(t, err, ledger.ErrPaymentNotFound)

	_, err = store.UndoPayment(ctx, 99)
	assert.ErrorIs(t, err, ledger.ErrPaymentNotFound)

	assert.ErrorIs(t, store.RecordReconciliations(ctx, 99, nil), ledger.ErrPaymentNotFound)
}

func TestStore_IncomeTaxes(t *testing.T) {
	store := newStore(t)
	id := ledger.NewTaxID()
	require.NoError(t, store.AddIncomeTax(ctx, id, "single tax"))
	assert.ErrorIs(t, store.AddIncomeTax(ctx, ledger.NewTaxID(), "single tax"), ledger.ErrTaxExists)

	require.NoError(t, store.AddRateChange(ctx, id, ledger.RateChange{Start: ledger.NewDate(2024, 1, 1), Rate: ledger.MustTaxRate(0.03)}))
	require.NoError(t, store.AddRateChange(ctx, id, ledger.RateChange{Start: ledger.NewDate(2021, 1, 1), Rate: ledger.MustTaxRate(0.05)}))

	err := store.AddRateChange(ctx, id, ledger.RateChange{Start: ledger.NewDate(2021, 1, 1), Rate: ledger.MustTaxRate(0.1)})
	assert.ErrorIs(t, err, ledger.ErrInvalidPeriod)
	assert.ErrorIs(t, store.AddRateChange(ctx, ledger.NewTaxID(), ledger.RateChange{}), ledger.ErrTaxNotFound)

	require.NoError(t, store.AddIncomeTax(ctx, ledger.NewTaxID(), "no rates yet"))

	taxes, err := store.IncomeTaxes(ctx)
	require.NoError(t, err)
	require.Len(t, taxes, 2)
	assert.Equal(t, id, taxes[0].ID)
	require.Len(t, taxes[0].Periods(), 2)
	assert.True(t, taxes[0].Periods()[1].Open)
	assert.Empty(t, taxes[1].Periods())

	obligation := taxes[0].Obligation(ledger.MustAmount(1000), ledger.NewDate(2023, 6, 1))
	assert.True(t, obligation.Equal(ledger.MustAmount(50)))
}

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	store := newStore(t)
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx ledger.Store) error {
		if _, err := tx.SaveIncomes(ctx, []ledger.Income{inc(2024, 1, 5, 1000)}); err != nil {
			return err
		}
		p, err := tx.AddPayment(ctx, ledger.NewTaxPayment(0, ledger.MustAmount(50), time.Now()))
		if err != nil {
			return err
		}
		// Reads inside the transaction see its own writes
		pending, err := tx.PendingIncomes(ctx)
		if err != nil {
			return err
		}
		if len(pending) != 1 || p.ID != 1 {
			return errors.New("transaction did not see its writes")
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := store.FindIncomes(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
	payments, err := store.Payments(ctx)
	require.NoError(t, err)
	assert.Empty(t, payments)
}
