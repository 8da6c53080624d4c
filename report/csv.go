package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/warp/monotax/config"
	"github.com/warp/monotax/ledger"
)

var quarterlyHeader = []string{"Year", "Quarter", "Total Income", "Cumulative Income", "Total Tax", "Cumulative Tax"}

// WriteQuarterlyCSV writes one row per quarter with two-decimal amounts.
func WriteQuarterlyCSV(w io.Writer, r ledger.QuarterlyReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(quarterlyHeader); err != nil {
		return err
	}
	for _, line := range r.Lines {
		err := cw.Write([]string{
			strconv.Itoa(line.Year),
			line.Quarter.String(),
			money(line.TotalIncome),
			money(line.CumulativeIncome),
			money(line.TotalTax),
			money(line.CumulativeTax),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTaxerCSV exports incomes in the Taxer import format:
// tax id, dd.mm.yyyy, amount, comment. Incomes without a comment get the
// configured default. The file has no header row.
func WriteTaxerCSV(w io.Writer, incomes []ledger.Income, taxer config.TaxerConfig) error {
	cw := csv.NewWriter(w)
	for _, in := range incomes {
		comment := in.Comment
		if comment == "" {
			comment = taxer.DefaultComment
		}
		err := cw.Write([]string{
			taxer.ID,
			in.Time.Format("02.01.2006"),
			in.Amount.StringFixed(2),
			comment,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
