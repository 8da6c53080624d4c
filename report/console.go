// Package report renders ledger reports as console text, CSV and PDF.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/warp/monotax/ledger"
)

func money(d decimal.Decimal) string { return d.StringFixed(2) }

// WriteQuarterlyText prints one block per quarter followed by the grand total.
func WriteQuarterlyText(w io.Writer, r ledger.QuarterlyReport) error {
	delimiter := strings.Repeat("-", 80)
	var b strings.Builder

	fmt.Fprintln(&b, delimiter)
	for _, line := range r.Lines {
		fmt.Fprintf(&b, "%d %s\n", line.Year, line.Quarter)
		fmt.Fprintln(&b, strings.Repeat("-", 7))
		fmt.Fprintln(&b, "\t\tTotal\t\t\tCumulative")
		fmt.Fprintf(&b, "Income\t\t%s\t\t%s\n", money(line.TotalIncome), money(line.CumulativeIncome))
		fmt.Fprintf(&b, "Tax\t\t%s\t\t%s\n", money(line.TotalTax), money(line.CumulativeTax))
		fmt.Fprintln(&b, delimiter)
	}
	fmt.Fprintf(&b, "Total:\t\t%s\t\t%s\n", money(r.TotalIncome), money(r.TotalTax))

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteBalanceText prints a table of incomes with their obligations per tax.
func WriteBalanceText(w io.Writer, r ledger.BalanceReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)

	var taxNames []string
	if len(r.Rows) > 0 {
		for _, o := range r.Rows[0].Obligations {
			taxNames = append(taxNames, o.Name)
		}
	}

	header := []string{"No", "Date", "Income"}
	header = append(header, taxNames...)
	header = append(header, "Owed", "Reconciled", "Outstanding", "")
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for _, row := range r.Rows {
		cols := []string{
			fmt.Sprint(row.Income.No),
			ledger.FormatDate(row.Income.Date()),
			row.Income.Amount.StringFixed(2),
		}
		for _, o := range row.Obligations {
			cols = append(cols, o.Obligation.StringFixed(2))
		}
		status := ""
		if row.Settled {
			status = "settled"
		}
		cols = append(cols, row.Owed.StringFixed(2), money(row.Reconciled), money(row.Outstanding), status)
		fmt.Fprintln(tw, strings.Join(cols, "\t")+"\t")
	}

	totals := make([]string, 3+len(taxNames))
	totals[0] = "Total"
	totals = append(totals, money(r.TotalOwed), money(r.TotalReconciled), money(r.TotalDebt), "")
	fmt.Fprintln(tw, strings.Join(totals, "\t")+"\t")

	return tw.Flush()
}

// WriteIncomesText lists incomes one per line.
func WriteIncomesText(w io.Writer, incomes []ledger.Income) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "No\tTime\tAmount\tComment")
	for _, in := range incomes {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", in.No, in.Time.Format("2006-01-02 15:04:05"), in.Amount.StringFixed(2), in.Comment)
	}
	return tw.Flush()
}

// WritePaymentsText lists payments with their applied marker.
func WritePaymentsText(w io.Writer, payments []ledger.TaxPayment) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPaid\tAmount\tApplied")
	for _, p := range payments {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\n", p.ID, ledger.FormatDate(p.PaidAt), p.Amount.StringFixed(2), p.Applied)
	}
	return tw.Flush()
}

// WriteReconcileText summarizes the entries produced by one payment.
func WriteReconcileText(w io.Writer, r ledger.ReconcileResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Income\tAmount\tCompleteness")
	for _, e := range r.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", e.IncomeNo, e.Amount.StringFixed(2), e.Completeness)
	}
	fmt.Fprintf(tw, "Reconciled\t%s\t\n", r.Reconciled().StringFixed(2))
	fmt.Fprintf(tw, "Unallocated\t%s\t\n", r.Balance.StringFixed(2))
	return tw.Flush()
}

// WriteTaxesText lists schedules and their rate periods.
func WriteTaxesText(w io.Writer, taxes []*ledger.IncomeTax) error {
	var b strings.Builder
	for _, t := range taxes {
		fmt.Fprintf(&b, "%s (%s)\n", t.Name, t.ID)
		for _, p := range t.Periods() {
			fmt.Fprintf(&b, "  %s  %s\n", p, p.Rate)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
