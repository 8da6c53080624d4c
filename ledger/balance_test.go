package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/monotax/ledger"
)

func TestBalanceReport_OutstandingPerIncome(t *testing.T) {
	// GIVEN: Three incomes at 10%, one settled, one partially paid, one untouched
	incomes := []ledger.Income{income(3, 20, 300), income(1, 5, 1500), income(2, 10, 500)}
	recs := []ledger.Reconciliation{
		ledger.NewReconciliation(1, 1, ledger.MustAmount(150), fixedNow, ledger.Full),
		ledger.NewReconciliation(2, 1, ledger.MustAmount(20), fixedNow, ledger.Partial),
	}
	tax, err := ledger.BuildIncomeTax(ledger.NewTaxID(), "single tax", []ledger.RateChange{
		{Start: ledger.NewDate(2020, time.January, 1), Rate: ledger.MustTaxRate(0.05)},
	})
	require.NoError(t, err)

	// WHEN
	report := ledger.BuildBalanceReport(incomes, []*ledger.IncomeTax{tax}, ledger.FlatRate(ledger.MustTaxRate(0.1)), recs)

	// THEN: Rows in time order with per-tax obligations and debt
	require.Len(t, report.Rows, 3)
	assert.Equal(t, int64(1), report.Rows[0].Income.No)
	assert.Equal(t, int64(2), report.Rows[1].Income.No)
	assert.Equal(t, int64(3), report.Rows[2].Income.No)

	first := report.Rows[0]
	assert.True(t, first.Settled)
	assertDecimal(t, 0, first.Outstanding)
	require.Len(t, first.Obligations, 1)
	assert.Equal(t, "single tax", first.Obligations[0].Name)
	assertAmount(t, 75, first.Obligations[0].Obligation)

	second := report.Rows[1]
	assert.False(t, second.Settled)
	assertDecimal(t, 20, second.Reconciled)
	assertDecimal(t, 30, second.Outstanding)

	assertDecimal(t, 30, report.Rows[2].Outstanding)

	assertDecimal(t, 230, report.TotalOwed)
	assertDecimal(t, 170, report.TotalReconciled)
	assertDecimal(t, 60, report.TotalDebt)
}

func TestBalanceReport_Empty(t *testing.T) {
	report := ledger.BuildBalanceReport(nil, nil, ledger.FlatRate(ledger.MustTaxRate(0.05)), nil)

	assert.Empty(t, report.Rows)
	assert.True(t, report.TotalDebt.IsZero())
}
