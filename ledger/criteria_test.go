package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/monotax/ledger"
)

func TestCriteria_Match(t *testing.T) {
	now := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC) // Q2 2024

	tests := []struct {
		name     string
		criteria ledger.Criteria
		at       time.Time
		want     bool
	}{
		{"empty matches anything", nil, ledger.NewDate(1999, 1, 1), true},
		{"one year hit", ledger.Criteria{ledger.ByYear(ledger.OneYear(2021))}, ledger.NewDate(2021, 6, 1), true},
		{"one year miss", ledger.Criteria{ledger.ByYear(ledger.OneYear(2021))}, ledger.NewDate(2022, 6, 1), false},
		{"current year", ledger.Criteria{ledger.ByYear(ledger.CurrentYear())}, ledger.NewDate(2024, 12, 31), true},
		{"current year miss", ledger.Criteria{ledger.ByYear(ledger.CurrentYear())}, ledger.NewDate(2023, 12, 31), false},
		{"any year", ledger.Criteria{ledger.ByYear(ledger.AnyYear())}, ledger.NewDate(1990, 1, 1), true},
		{"only quarter", ledger.Criteria{ledger.ByQuarter(ledger.OnlyQuarter(ledger.Q3))}, ledger.NewDate(2020, 8, 1), true},
		{"only quarter miss", ledger.Criteria{ledger.ByQuarter(ledger.OnlyQuarter(ledger.Q3))}, ledger.NewDate(2020, 5, 1), false},
		{"year to date includes earlier", ledger.Criteria{ledger.ByQuarter(ledger.YearToDateQuarter(ledger.Q3))}, ledger.NewDate(2020, 1, 1), true},
		{"year to date excludes later", ledger.Criteria{ledger.ByQuarter(ledger.YearToDateQuarter(ledger.Q3))}, ledger.NewDate(2020, 10, 1), false},
		{"current quarter", ledger.Criteria{ledger.ByQuarter(ledger.CurrentQuarter())}, ledger.NewDate(2024, 4, 1), true},
		{"current quarter miss", ledger.Criteria{ledger.ByQuarter(ledger.CurrentQuarter())}, ledger.NewDate(2024, 3, 31), false},
		{"current to date", ledger.Criteria{ledger.ByQuarter(ledger.CurrentToDateQuarter())}, ledger.NewDate(2024, 3, 31), true},
		{"any quarter", ledger.Criteria{ledger.ByQuarter(ledger.AnyQuarter())}, ledger.NewDate(2024, 11, 1), true},
		{
			"year and quarter combined",
			ledger.Criteria{ledger.ByYear(ledger.OneYear(2021)), ledger.ByQuarter(ledger.OnlyQuarter(ledger.Q2))},
			ledger.NewDate(2022, 5, 1),
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criteria.Match(tt.at, now))
		})
	}
}

func TestCriterion_UnknownKind_NeverMatches(t *testing.T) {
	assert.False(t, ledger.Criterion{}.Match(time.Now(), time.Now()))
}

func TestCriteria_Filter_PreservesOrder(t *testing.T) {
	now := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)
	incomes := []ledger.Income{at(2024, 1, 5, 1), at(2023, 2, 5, 2), at(2024, 2, 5, 3), at(2024, 5, 5, 4)}

	got := ledger.Criteria{
		ledger.ByYear(ledger.CurrentYear()),
		ledger.ByQuarter(ledger.OnlyQuarter(ledger.Q1)),
	}.Filter(incomes, now)

	if assert.Len(t, got, 2) {
		assertAmount(t, 1, got[0].Amount)
		assertAmount(t, 3, got[1].Amount)
	}
}

func TestParseCriteria(t *testing.T) {
	tests := []struct {
		year, quarter string
		toDate        bool
		want          ledger.Criteria
	}{
		{"", "", false, nil},
		{"any", "all", true, nil},
		{"2021", "", false, ledger.Criteria{ledger.ByYear(ledger.OneYear(2021))}},
		{"current", "q2", false, ledger.Criteria{ledger.ByYear(ledger.CurrentYear()), ledger.ByQuarter(ledger.OnlyQuarter(ledger.Q2))}},
		{"", "3", true, ledger.Criteria{ledger.ByQuarter(ledger.YearToDateQuarter(ledger.Q3))}},
		{"", "current", true, ledger.Criteria{ledger.ByQuarter(ledger.CurrentToDateQuarter())}},
	}
	for _, tt := range tests {
		got, err := ledger.ParseCriteria(tt.year, tt.quarter, tt.toDate)
		require.NoError(t, err, "year=%q quarter=%q", tt.year, tt.quarter)
		assert.Equal(t, tt.want, got, "year=%q quarter=%q", tt.year, tt.quarter)
	}
}

func TestParseCriteria_Invalid(t *testing.T) {
	for _, in := range [][2]string{{"twenty", ""}, {"0", ""}, {"", "Q5"}, {"", "spring"}} {
		_, err := ledger.ParseCriteria(in[0], in[1], false)
		assert.ErrorIs(t, err, ledger.ErrInvalidCriteria, "%v", in)
		assert.True(t, ledger.IsClientError(err))
	}
}
