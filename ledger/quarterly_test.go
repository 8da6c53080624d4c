package ledger_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/monotax/ledger"
)

func at(y int, m time.Month, d int, amount float64) ledger.Income {
	return ledger.NewIncome(time.Date(y, m, d, 14, 0, 0, 0, time.UTC), ledger.MustAmount(amount))
}

func assertDecimal(t *testing.T, want float64, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.NewFromFloat(want).Equal(got), "expected %v, got %s", want, got)
}

func TestQuarterlyReport_Empty(t *testing.T) {
	report := ledger.BuildQuarterlyReport(nil, ledger.FlatRate(ledger.MustTaxRate(0.1)))

	assert.Empty(t, report.Lines)
	assert.True(t, report.TotalIncome.IsZero())
	assert.True(t, report.TotalTax.IsZero())
}

func TestQuarterlyReport_YearBoundaryResetsCumulative(t *testing.T) {
	// GIVEN: December income followed by January income
	incomes := []ledger.Income{at(2024, 1, 1, 1500), at(2023, 12, 5, 1000)}

	// WHEN: Building the report (input deliberately unsorted)
	report := ledger.BuildQuarterlyReport(incomes, ledger.FlatRate(ledger.MustTaxRate(0.1)))

	// THEN: Q4 2023 and Q1 2024 with cumulative restarted in 2024
	require.Len(t, report.Lines, 2)

	q4 := report.Lines[0]
	assert.Equal(t, ledger.YearQuarter{Year: 2023, Quarter: ledger.Q4}, q4.Key())
	assertDecimal(t, 1000, q4.TotalIncome)
	assertDecimal(t, 1000, q4.CumulativeIncome)
	assertDecimal(t, 100, q4.TotalTax)
	assertDecimal(t, 100, q4.CumulativeTax)

	q1 := report.Lines[1]
	assert.Equal(t, ledger.YearQuarter{Year: 2024, Quarter: ledger.Q1}, q1.Key())
	assertDecimal(t, 1500, q1.TotalIncome)
	assertDecimal(t, 1500, q1.CumulativeIncome)
	assertDecimal(t, 150, q1.TotalTax)
	assertDecimal(t, 150, q1.CumulativeTax)

	assertDecimal(t, 2500, report.TotalIncome)
	assertDecimal(t, 250, report.TotalTax)

	// Input untouched
	assert.Equal(t, 2024, incomes[0].Time.Year())
}

func TestQuarterlyReport_CumulativeWithinYear(t *testing.T) {
	incomes := []ledger.Income{
		at(2024, 1, 10, 100),
		at(2024, 2, 10, 200),
		at(2024, 5, 1, 300),
		at(2024, 11, 30, 400),
		at(2025, 3, 31, 50),
	}
	report := ledger.BuildQuarterlyReport(incomes, ledger.FlatRate(ledger.MustTaxRate(0.05)))

	require.Len(t, report.Lines, 4)
	want := []struct {
		key             ledger.YearQuarter
		total, cum, tax float64
	}{
		{ledger.YearQuarter{Year: 2024, Quarter: ledger.Q1}, 300, 300, 15},
		{ledger.YearQuarter{Year: 2024, Quarter: ledger.Q2}, 300, 600, 30},
		{ledger.YearQuarter{Year: 2024, Quarter: ledger.Q4}, 400, 1000, 50},
		{ledger.YearQuarter{Year: 2025, Quarter: ledger.Q1}, 50, 50, 2.5},
	}
	for i, w := range want {
		line := report.Lines[i]
		assert.Equal(t, w.key, line.Key())
		assertDecimal(t, w.total, line.TotalIncome)
		assertDecimal(t, w.cum, line.CumulativeIncome)
		assertDecimal(t, w.tax, line.CumulativeTax)
	}

	// Sum of line totals equals sum of incomes
	sum := decimal.Zero
	for _, l := range report.Lines {
		sum = sum.Add(l.TotalIncome)
	}
	assertDecimal(t, 1050, sum)
	assertDecimal(t, 1050, report.TotalIncome)
}

func TestQuarterlyReport_ScheduleRates(t *testing.T) {
	tax, err := ledger.BuildIncomeTax(ledger.NewTaxID(), "single tax", []ledger.RateChange{
		{Start: ledger.NewDate(2024, 1, 1), Rate: ledger.MustTaxRate(0.05)},
		{Start: ledger.NewDate(2024, 2, 1), Rate: ledger.MustTaxRate(0.1)},
	})
	require.NoError(t, err)

	report := ledger.BuildQuarterlyReport([]ledger.Income{at(2024, 1, 10, 100), at(2024, 2, 10, 100)}, tax)

	require.Len(t, report.Lines, 1)
	assertDecimal(t, 15, report.Lines[0].TotalTax)
}

func TestQuarterOf(t *testing.T) {
	assert.Equal(t, ledger.Q1, ledger.QuarterOf(ledger.NewDate(2024, 2, 29)))
	assert.Equal(t, ledger.Q2, ledger.QuarterOf(ledger.NewDate(2024, 4, 1)))
	assert.Equal(t, ledger.Q3, ledger.QuarterOf(ledger.NewDate(2024, 7, 1)))
	assert.Equal(t, ledger.Q4, ledger.QuarterOf(ledger.NewDate(2024, 12, 31)))
}

func TestParseQuarter(t *testing.T) {
	for in, want := range map[string]ledger.Quarter{"Q1": ledger.Q1, "q2": ledger.Q2, "3": ledger.Q3, " Q4 ": ledger.Q4} {
		q, err := ledger.ParseQuarter(in)
		require.NoError(t, err)
		assert.Equal(t, want, q)
	}
	for _, in := range []string{"0", "Q5", "", "QQ"} {
		_, err := ledger.ParseQuarter(in)
		assert.Error(t, err)
	}
}
