package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/monotax/ledger"
)

func day(y int, m time.Month, d int) time.Time { return ledger.NewDate(y, m, d) }

func TestIncomeTax_AddRate_RejectsEmptyOrReversedPeriod(t *testing.T) {
	tax := ledger.NewIncomeTax(ledger.NewTaxID(), "single tax")
	rate := ledger.MustTaxRate(0.05)

	err := tax.AddRate(day(2024, 1, 1), day(2024, 1, 1), rate)
	assert.ErrorIs(t, err, ledger.ErrInvalidPeriod)

	err = tax.AddRate(day(2024, 2, 1), day(2024, 1, 1), rate)
	var perr *ledger.RatePeriodError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "2024-02-01", perr.Start)

	assert.Empty(t, tax.Periods())
}

func TestIncomeTax_AddRate_RejectsOverlap(t *testing.T) {
	tax := ledger.NewIncomeTax(ledger.NewTaxID(), "single tax")
	rate := ledger.MustTaxRate(0.05)

	require.NoError(t, tax.AddRate(day(2024, 1, 1), day(2024, 7, 1), rate))
	assert.ErrorIs(t, tax.AddRate(day(2024, 6, 1), day(2024, 12, 1), rate), ledger.ErrInvalidPeriod)

	// Adjacent periods share the boundary day as end/start
	require.NoError(t, tax.AddRate(day(2024, 7, 1), day(2025, 1, 1), rate))
	require.NoError(t, tax.AddOpenRate(day(2025, 1, 1), rate))
	assert.ErrorIs(t, tax.AddOpenRate(day(2026, 1, 1), rate), ledger.ErrInvalidPeriod)
	assert.Len(t, tax.Periods(), 3)
}

func TestIncomeTax_Obligation_HalfOpenBoundaries(t *testing.T) {
	tax := ledger.NewIncomeTax(ledger.NewTaxID(), "single tax")
	require.NoError(t, tax.AddRate(day(2024, 1, 1), day(2024, 7, 1), ledger.MustTaxRate(0.05)))
	require.NoError(t, tax.AddRate(day(2024, 7, 1), day(2025, 1, 1), ledger.MustTaxRate(0.03)))

	amount := ledger.MustAmount(1000)
	tests := []struct {
		name string
		at   time.Time
		want float64
	}{
		{"before first period", day(2023, 12, 31), 0},
		{"first day", day(2024, 1, 1), 50},
		{"last day of first period, late evening", time.Date(2024, 6, 30, 23, 59, 0, 0, time.UTC), 50},
		{"boundary belongs to next period", day(2024, 7, 1), 30},
		{"end is exclusive", day(2025, 1, 1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertAmount(t, tt.want, tax.Obligation(amount, tt.at))
		})
	}
}

func TestIncomeTax_Obligation_IsPure(t *testing.T) {
	tax, err := ledger.BuildIncomeTax(ledger.NewTaxID(), "single tax", []ledger.RateChange{
		{Start: day(2021, 1, 1), Rate: ledger.MustTaxRate(0.05)},
	})
	require.NoError(t, err)

	at := day(2024, 5, 5)
	first := tax.Obligation(ledger.MustAmount(1234.5), at)
	for i := 0; i < 3; i++ {
		assert.True(t, first.Equal(tax.Obligation(ledger.MustAmount(1234.5), at)))
	}
	assertAmount(t, 61.725, first)
}

func TestBuildIncomeTax_PairsChangesAndLeavesLastOpen(t *testing.T) {
	tax, err := ledger.BuildIncomeTax(ledger.NewTaxID(), "single tax", []ledger.RateChange{
		{Start: day(2021, 1, 1), Rate: ledger.MustTaxRate(0.05)},
		{Start: day(2022, 7, 1), Rate: ledger.MustTaxRate(0.03)},
		{Start: day(2024, 1, 1), Rate: ledger.MustTaxRate(0.05)},
	})
	require.NoError(t, err)

	periods := tax.Periods()
	require.Len(t, periods, 3)
	assert.Equal(t, day(2022, 7, 1), periods[0].End)
	assert.Equal(t, day(2024, 1, 1), periods[1].End)
	assert.True(t, periods[2].Open)

	// Far beyond any fixed horizon the last rate still applies
	rate, ok := tax.RateAt(day(2090, 1, 1))
	require.True(t, ok)
	assert.True(t, rate.Equal(ledger.MustTaxRate(0.05)))

	rate, ok = tax.RateAt(day(2023, 3, 3))
	require.True(t, ok)
	assert.True(t, rate.Equal(ledger.MustTaxRate(0.03)))

	_, ok = tax.RateAt(day(2020, 12, 31))
	assert.False(t, ok)
}

func TestBuildIncomeTax_SameDayChanges_Rejected(t *testing.T) {
	_, err := ledger.BuildIncomeTax(ledger.NewTaxID(), "single tax", []ledger.RateChange{
		{Start: day(2021, 1, 1), Rate: ledger.MustTaxRate(0.05)},
		{Start: day(2021, 1, 1), Rate: ledger.MustTaxRate(0.03)},
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidPeriod)
}

func TestBuildIncomeTax_NoChanges_NoObligation(t *testing.T) {
	tax, err := ledger.BuildIncomeTax(ledger.NewTaxID(), "empty", nil)
	require.NoError(t, err)
	assert.True(t, tax.Obligation(ledger.MustAmount(100), day(2024, 1, 1)).IsZero())
}
