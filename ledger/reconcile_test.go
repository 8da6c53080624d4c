package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/monotax/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var fixedNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func newFlatReconciler(rate float64) *ledger.Reconciler {
	return &ledger.Reconciler{
		Obligations: ledger.FlatRate(ledger.MustTaxRate(rate)),
		Clock:       func() time.Time { return fixedNow },
	}
}

func income(no int64, day int, amount float64) ledger.Income {
	return ledger.NewIncome(time.Date(2024, time.January, day, 10, 0, 0, 0, time.UTC), ledger.MustAmount(amount)).WithNo(no)
}

func payment(amount float64) ledger.TaxPayment {
	return ledger.NewTaxPayment(1, ledger.MustAmount(amount), fixedNow)
}

func assertAmount(t *testing.T, want float64, got ledger.Amount) {
	t.Helper()
	assert.Truef(t, ledger.MustAmount(want).Equal(got), "expected %v, got %s", want, got)
}

func assertEntry(t *testing.T, e ledger.Reconciliation, incomeNo int64, want float64, c ledger.Completeness) {
	t.Helper()
	assert.Equal(t, incomeNo, e.IncomeNo)
	assert.Equal(t, int64(1), e.PaymentID)
	assert.Equal(t, c, e.Completeness)
	assert.Equal(t, fixedNow, e.ReconciledAt)
	assertAmount(t, want, e.Amount)
}

// =============================================================================
// ALLOCATION SCENARIOS
// =============================================================================

func TestReconcile_ExactPayment_FullEntry(t *testing.T) {
	// GIVEN: Income 1500 at 10% owes 150
	// WHEN: Paying exactly 150
	// THEN: One full entry, nothing left
	res, err := newFlatReconciler(0.1).Reconcile(ledger.ReconcileInput{
		Pending: []ledger.Income{income(1, 5, 1500)},
		Payment: payment(150),
	})
	require.NoError(t, err)

	require.Len(t, res.Entries, 1)
	assertEntry(t, res.Entries[0], 1, 150, ledger.Full)
	assert.True(t, res.Balance.IsZero())
}

func TestReconcile_Overpayment_ReturnsLeftover(t *testing.T) {
	res, err := newFlatReconciler(0.1).Reconcile(ledger.ReconcileInput{
		Pending: []ledger.Income{income(1, 5, 1500)},
		Payment: payment(200),
	})
	require.NoError(t, err)

	require.Len(t, res.Entries, 1)
	assertEntry(t, res.Entries[0], 1, 150, ledger.Full)
	assertAmount(t, 50, res.Balance)
}

func TestReconcile_Underpayment_PartialEntry(t *testing.T) {
	res, err := newFlatReconciler(0.1).Reconcile(ledger.ReconcileInput{
		Pending: []ledger.Income{income(1, 5, 1500)},
		Payment: payment(50),
	})
	require.NoError(t, err)

	require.Len(t, res.Entries, 1)
	assertEntry(t, res.Entries[0], 1, 50, ledger.Partial)
	assert.True(t, res.Balance.IsZero())
}

func TestReconcile_PartiallyReconciledIncome_SettlesRemainder(t *testing.T) {
	// GIVEN: Income owes 150, 100 already reconciled by an earlier payment
	// WHEN: Paying 50
	// THEN: Full entry of 50 closes the income
	in := income(1, 5, 1500)
	prior := ledger.NewReconciliation(1, 7, ledger.MustAmount(100), fixedNow.Add(-time.Hour), ledger.Partial)

	res, err := newFlatReconciler(0.1).Reconcile(ledger.ReconcileInput{
		Pending:  []ledger.Income{in},
		Partials: []ledger.Reconciliation{prior},
		Payment:  payment(50),
	})
	require.NoError(t, err)

	require.Len(t, res.Entries, 1)
	assertEntry(t, res.Entries[0], 1, 50, ledger.Full)
	assert.True(t, res.Balance.IsZero())
}

func TestReconcile_TwoIncomes_LastPartial(t *testing.T) {
	res, err := newFlatReconciler(0.1).Reconcile(ledger.ReconcileInput{
		Pending: []ledger.Income{income(1, 5, 500), income(2, 6, 800)},
		Payment: payment(100),
	})
	require.NoError(t, err)

	require.Len(t, res.Entries, 2)
	assertEntry(t, res.Entries[0], 1, 50, ledger.Full)
	assertEntry(t, res.Entries[1], 2, 50, ledger.Partial)
	assert.True(t, res.Balance.IsZero())
}

func TestReconcile_NoPendingIncomes_BalanceUnchanged(t *testing.T) {
	res, err := newFlatReconciler(0.1).Reconcile(ledger.ReconcileInput{Payment: payment(75)})
	require.NoError(t, err)

	assert.Empty(t, res.Entries)
	assertAmount(t, 75, res.Balance)
}

func TestReconcile_ZeroPayment_NoEntries(t *testing.T) {
	res, err := newFlatReconciler(0.1).Reconcile(ledger.ReconcileInput{
		Pending: []ledger.Income{income(1, 5, 1500)},
		Payment: payment(0),
	})
	require.NoError(t, err)

	assert.Empty(t, res.Entries)
	assert.True(t, res.Balance.IsZero())
}

func TestReconcile_OverpaymentAcrossAllIncomes(t *testing.T) {
	res, err := newFlatReconciler(0.1).Reconcile(ledger.ReconcileInput{
		Pending: []ledger.Income{income(1, 5, 500), income(2, 6, 800), income(3, 7, 200)},
		Payment: payment(500),
	})
	require.NoError(t, err)

	require.Len(t, res.Entries, 3)
	for _, e := range res.Entries {
		assert.Equal(t, ledger.Full, e.Completeness)
	}
	assertAmount(t, 350, res.Balance)
}

func TestReconcile_ZeroObligation_Skipped(t *testing.T) {
	// GIVEN: A schedule that starts after the first income
	tax, err := ledger.BuildIncomeTax(ledger.NewTaxID(), "single tax", []ledger.RateChange{
		{Start: ledger.NewDate(2024, time.January, 6), Rate: ledger.MustTaxRate(0.1)},
	})
	require.NoError(t, err)

	r := &ledger.Reconciler{Obligations: tax, Clock: func() time.Time { return fixedNow }}
	res, err := r.Reconcile(ledger.ReconcileInput{
		Pending: []ledger.Income{income(1, 5, 1000), income(2, 6, 1000)},
		Payment: payment(100),
	})
	require.NoError(t, err)

	// THEN: The untaxed income gets no entry, the taxed one is settled
	require.Len(t, res.Entries, 1)
	assertEntry(t, res.Entries[0], 2, 100, ledger.Full)
}

func TestReconcile_UsesScheduleRatePerIncomeDate(t *testing.T) {
	tax, err := ledger.BuildIncomeTax(ledger.NewTaxID(), "single tax", []ledger.RateChange{
		{Start: ledger.NewDate(2023, time.January, 1), Rate: ledger.MustTaxRate(0.05)},
		{Start: ledger.NewDate(2024, time.January, 6), Rate: ledger.MustTaxRate(0.1)},
	})
	require.NoError(t, err)

	r := &ledger.Reconciler{Obligations: tax, Clock: func() time.Time { return fixedNow }}
	res, err := r.Reconcile(ledger.ReconcileInput{
		Pending: []ledger.Income{income(1, 5, 1000), income(2, 6, 1000)},
		Payment: payment(1000),
	})
	require.NoError(t, err)

	require.Len(t, res.Entries, 2)
	assertAmount(t, 50, res.Entries[0].Amount)
	assertAmount(t, 100, res.Entries[1].Amount)
	assertAmount(t, 850, res.Balance)
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestReconcile_Properties(t *testing.T) {
	incomes := []ledger.Income{
		income(1, 2, 1234.56),
		income(2, 3, 10),
		income(3, 3, 999.99),
		income(4, 20, 45000),
	}
	partials := []ledger.Reconciliation{
		ledger.NewReconciliation(3, 9, ledger.MustAmount(12.5), fixedNow, ledger.Partial),
	}

	for _, paid := range []float64{0, 0.01, 1, 50, 123.456, 130.88, 1000, 4600, 10000} {
		t.Run(ledger.MustAmount(paid).String(), func(t *testing.T) {
			res, err := newFlatReconciler(0.1).Reconcile(ledger.ReconcileInput{
				Pending:  incomes,
				Partials: partials,
				Payment:  payment(paid),
			})
			require.NoError(t, err)

			// Conservation
			assertAmount(t, paid, res.Reconciled().Add(res.Balance))

			// Ordering, at most one entry per income, only the last may be partial
			seen := map[int64]bool{}
			lastIdx := -1
			for i, e := range res.Entries {
				assert.False(t, seen[e.IncomeNo])
				seen[e.IncomeNo] = true
				idx := indexOf(incomes, e.IncomeNo)
				assert.Greater(t, idx, lastIdx)
				lastIdx = idx
				assert.True(t, e.Amount.IsPositive())
				if e.Completeness == ledger.Partial {
					assert.Equal(t, len(res.Entries)-1, i)
					assert.True(t, res.Balance.IsZero())
				}
			}
		})
	}
}

func indexOf(incomes []ledger.Income, no int64) int {
	for i, in := range incomes {
		if in.No == no {
			return i
		}
	}
	return -1
}

// =============================================================================
// PRECONDITIONS
// =============================================================================

func TestReconcile_UnsortedIncomes_PreconditionError(t *testing.T) {
	_, err := newFlatReconciler(0.1).Reconcile(ledger.ReconcileInput{
		Pending: []ledger.Income{income(1, 5, 1000), income(2, 15, 500), income(3, 10, 800)},
		Payment: payment(100),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrPreconditionViolated)
	assert.True(t, ledger.IsPrecondition(err))
}

func TestReconcile_EqualTimestamps_Accepted(t *testing.T) {
	_, err := newFlatReconciler(0.1).Reconcile(ledger.ReconcileInput{
		Pending: []ledger.Income{income(1, 5, 1000), income(2, 5, 500)},
		Payment: payment(100),
	})
	assert.NoError(t, err)
}

func TestReconcile_FullAmongPartials_PreconditionError(t *testing.T) {
	partial := ledger.NewReconciliation(1, 1, ledger.MustAmount(100), fixedNow, ledger.Partial)
	full := ledger.NewReconciliation(1, 1, ledger.MustAmount(100), fixedNow, ledger.Full)

	_, err := newFlatReconciler(0.1).Reconcile(ledger.ReconcileInput{
		Pending:  []ledger.Income{income(1, 5, 1500)},
		Partials: []ledger.Reconciliation{partial, full},
		Payment:  payment(100),
	})

	var perr *ledger.PreconditionError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reason, "want partial")
}

func TestReconcile_OverReconciledIncome_PreconditionError(t *testing.T) {
	partial := ledger.NewReconciliation(1, 1, ledger.MustAmount(200), fixedNow, ledger.Partial)

	_, err := newFlatReconciler(0.1).Reconcile(ledger.ReconcileInput{
		Pending:  []ledger.Income{income(1, 5, 1500)},
		Partials: []ledger.Reconciliation{partial},
		Payment:  payment(100),
	})
	assert.ErrorIs(t, err, ledger.ErrPreconditionViolated)
}

func TestReconcile_MissingObligationSource(t *testing.T) {
	_, err := (&ledger.Reconciler{}).Reconcile(ledger.ReconcileInput{Payment: payment(1)})
	assert.ErrorIs(t, err, ledger.ErrPreconditionViolated)
}
