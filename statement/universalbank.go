/*
Package statement reads bank statement exports into incomes.

UNIVERSALBANK FORMAT:
  DBOsoft CSV export used by the bank's online client.
  - Encoding: windows-1251
  - Delimiter: ';', rows may have varying field counts
  - First row is a header
  - Column 4:  operation time, "dd.mm.yyyy hh:mm:ss" in local time
  - Column 14: amount with '.' decimals
  - Column 15: payment description, kept as the income comment

  Negative amounts are debits from the account. They are not incomes and
  are counted as skipped.
*/
package statement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/warp/monotax/ledger"
	"golang.org/x/text/encoding/charmap"
)

const (
	dateColumn        = 4
	amountColumn      = 14
	descriptionColumn = 15

	dateLayout = "02.01.2006 15:04:05"
)

// Result is a parsed statement.
type Result struct {
	Incomes []ledger.Income // sorted by time
	Skipped int             // debit rows
}

// UniversalBank parses universalbank CSV exports.
type UniversalBank struct {
	// Location interprets statement times. Nil means time.Local.
	Location *time.Location
}

// Read parses the statement and keeps the incomes matching criteria.
func (u UniversalBank) Read(r io.Reader, criteria ledger.Criteria, now time.Time) (Result, error) {
	loc := u.Location
	if loc == nil {
		loc = time.Local
	}

	reader := csv.NewReader(charmap.Windows1251.NewDecoder().Reader(r))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var res Result
	header := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("read statement: %w", err)
		}
		if header {
			header = false
			continue
		}
		line, _ := reader.FieldPos(0)

		income, debit, err := parseRecord(record, loc)
		if err != nil {
			return Result{}, fmt.Errorf("statement line %d: %w", line, err)
		}
		if debit {
			res.Skipped++
			continue
		}
		if criteria.Match(income.Time, now) {
			res.Incomes = append(res.Incomes, income)
		}
	}

	ledger.SortIncomes(res.Incomes)
	return res, nil
}

func parseRecord(record []string, loc *time.Location) (ledger.Income, bool, error) {
	if len(record) <= descriptionColumn {
		return ledger.Income{}, false, fmt.Errorf("expected at least %d fields, got %d", descriptionColumn+1, len(record))
	}

	at, err := time.ParseInLocation(dateLayout, strings.TrimSpace(record[dateColumn]), loc)
	if err != nil {
		return ledger.Income{}, false, fmt.Errorf("parse date: %w", err)
	}

	raw := strings.TrimSpace(record[amountColumn])
	if strings.HasPrefix(raw, "-") {
		return ledger.Income{}, true, nil
	}
	amount, err := ledger.ParseAmount(raw)
	if err != nil {
		return ledger.Income{}, false, fmt.Errorf("parse amount: %w", err)
	}

	return ledger.NewIncome(at, amount).WithComment(strings.TrimSpace(record[descriptionColumn])), false, nil
}
