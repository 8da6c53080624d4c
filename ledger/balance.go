/*
balance.go - Per-income obligation and settlement status

PURPOSE:
  Answers "what does each income owe, and how much of it is still unpaid?"
  Obligations are never stored: they are recomputed from the income and
  the schedules every time, and the settled part is the sum of the
  income's reconciliation entries.

BALANCE COMPONENTS:
  Obligations:  tax owed under each known schedule (informational)
  Owed:         tax owed under the settlement source used for reconciliation
  Reconciled:   sum of the income's reconciliation entries
  Outstanding:  Owed - Reconciled, zero once a Full entry exists

SEE ALSO:
  - reconcile.go: Produces the entries summed here
*/
package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TaxObligation struct {
	TaxID      uuid.UUID
	Name       string
	Obligation Amount
}

type IncomeBalance struct {
	Income      Income
	Obligations []TaxObligation
	Owed        Amount
	Reconciled  decimal.Decimal
	Outstanding decimal.Decimal
	Settled     bool
}

type BalanceReport struct {
	Rows            []IncomeBalance
	TotalOwed       decimal.Decimal
	TotalReconciled decimal.Decimal
	TotalDebt       decimal.Decimal
}

// BuildBalanceReport lists incomes in time order with their obligations.
// settlement is the source reconciliation runs against.
func BuildBalanceReport(incomes []Income, taxes []*IncomeTax, settlement ObligationSource, recs []Reconciliation) BalanceReport {
	sorted := make([]Income, len(incomes))
	copy(sorted, incomes)
	SortIncomes(sorted)

	reconciled := make(map[int64]decimal.Decimal)
	settled := make(map[int64]bool)
	for _, r := range recs {
		reconciled[r.IncomeNo] = reconciled[r.IncomeNo].Add(r.Amount.Decimal())
		if r.Completeness == Full {
			settled[r.IncomeNo] = true
		}
	}

	report := BalanceReport{
		TotalOwed:       decimal.Zero,
		TotalReconciled: decimal.Zero,
		TotalDebt:       decimal.Zero,
	}
	for _, income := range sorted {
		row := IncomeBalance{
			Income:     income,
			Owed:       ObligationOf(settlement, income),
			Reconciled: reconciled[income.No],
			Settled:    settled[income.No],
		}
		for _, tax := range taxes {
			row.Obligations = append(row.Obligations, TaxObligation{
				TaxID:      tax.ID,
				Name:       tax.Name,
				Obligation: ObligationOf(tax, income),
			})
		}

		row.Outstanding = decimal.Zero
		if !row.Settled {
			row.Outstanding = decimal.Max(decimal.Zero, row.Owed.Decimal().Sub(row.Reconciled))
		}

		report.TotalOwed = report.TotalOwed.Add(row.Owed.Decimal())
		report.TotalReconciled = report.TotalReconciled.Add(row.Reconciled)
		report.TotalDebt = report.TotalDebt.Add(row.Outstanding)
		report.Rows = append(report.Rows, row)
	}
	return report
}
