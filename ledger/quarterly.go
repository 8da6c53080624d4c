/*
quarterly.go - Quarterly income and tax totals

PURPOSE:
  Groups incomes into consecutive (year, quarter) lines. Each line carries
  its own totals and the running totals of its year; a new year restarts
  the running totals from the first line of that year.

EXAMPLE (rate 10%):
  2023-12-05  1000  ->  2023 Q4  total 1000 / cumulative 1000, tax 100 / 100
  2024-01-01  1500  ->  2024 Q1  total 1500 / cumulative 1500, tax 150 / 150

  Totals are unbounded decimals: a year of bounded Amounts can exceed MaxAmount.
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// QuarterReportLine holds the totals of one (year, quarter).
type QuarterReportLine struct {
	Year             int
	Quarter          Quarter
	TotalIncome      decimal.Decimal
	CumulativeIncome decimal.Decimal
	TotalTax         decimal.Decimal
	CumulativeTax    decimal.Decimal
}

func (l QuarterReportLine) Key() YearQuarter {
	return YearQuarter{Year: l.Year, Quarter: l.Quarter}
}

type QuarterlyReport struct {
	Lines       []QuarterReportLine
	TotalIncome decimal.Decimal
	TotalTax    decimal.Decimal
}

// BuildQuarterlyReport aggregates incomes in any order. The input slice is
// not modified.
func BuildQuarterlyReport(incomes []Income, obligations ObligationSource) QuarterlyReport {
	sorted := make([]Income, len(incomes))
	copy(sorted, incomes)
	SortIncomes(sorted)

	report := QuarterlyReport{TotalIncome: decimal.Zero, TotalTax: decimal.Zero}
	if len(sorted) == 0 {
		return report
	}

	var current *QuarterReportLine
	for _, income := range sorted {
		key := YearQuarterOf(income.Time)
		amount := income.Amount.Decimal()
		tax := ObligationOf(obligations, income).Decimal()

		if current == nil || current.Key() != key {
			line := QuarterReportLine{
				Year:             key.Year,
				Quarter:          key.Quarter,
				TotalIncome:      decimal.Zero,
				CumulativeIncome: decimal.Zero,
				TotalTax:         decimal.Zero,
				CumulativeTax:    decimal.Zero,
			}
			if current != nil && current.Year == key.Year {
				line.CumulativeIncome = current.CumulativeIncome
				line.CumulativeTax = current.CumulativeTax
			}
			report.Lines = append(report.Lines, line)
			current = &report.Lines[len(report.Lines)-1]
		}

		current.TotalIncome = current.TotalIncome.Add(amount)
		current.CumulativeIncome = current.CumulativeIncome.Add(amount)
		current.TotalTax = current.TotalTax.Add(tax)
		current.CumulativeTax = current.CumulativeTax.Add(tax)
	}

	for _, line := range report.Lines {
		report.TotalIncome = report.TotalIncome.Add(line.TotalIncome)
		report.TotalTax = report.TotalTax.Add(line.TotalTax)
	}
	return report
}
