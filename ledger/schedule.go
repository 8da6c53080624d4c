/*
schedule.go - Time-varying income tax rates

PURPOSE:
  An IncomeTax is a named tax whose rate changes over time. It answers two
  questions: which rate applied on a given day, and how much tax an income
  of a given amount owes on that day.

RATE PERIODS:
  Each period covers the half-open day range [Start, End). The last period
  may be open: it applies to every day on or after its start. Periods are
  appended in ascending start order and must not overlap; the schedule
  never sorts them.

  Stored schedules are sequences of "rate changed on day D" records.
  BuildIncomeTax pairs each record with the start of the next one and
  leaves the last record open-ended.

    2021-01-01 5%   ->  [2021-01-01, 2022-07-01) 5%
    2022-07-01 3%   ->  [2022-07-01, 2024-01-01) 3%
    2024-01-01 5%   ->  [2024-01-01, ...)        5%

OBLIGATION LOOKUP:
  Periods are scanned newest first. Schedules grow at the end and most
  incomes are recent, so the scan usually stops at the first period.

SEE ALSO:
  - reconcile.go: Uses ObligationSource per pending income
  - quarterly.go: Uses ObligationSource per reported income
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// OBLIGATION SOURCE - What an income owes
// =============================================================================

// ObligationSource computes the tax owed by a single income.
// Implemented by FlatRate and *IncomeTax.
type ObligationSource interface {
	Obligation(amount Amount, at time.Time) Amount
}

// FlatRate applies the same rate on every date.
type FlatRate TaxRate

func (f FlatRate) Obligation(amount Amount, _ time.Time) Amount {
	return amount.Mul(TaxRate(f))
}

// ObligationOf is a convenience for a whole income.
func ObligationOf(src ObligationSource, income Income) Amount {
	return src.Obligation(income.Amount, income.Time)
}

// =============================================================================
// RATE PERIOD
// =============================================================================

// RatePeriod is a day range with a fixed rate. End is ignored when Open.
type RatePeriod struct {
	Start time.Time
	End   time.Time
	Open  bool
	Rate  TaxRate
}

// Contains reports whether the day of t lies in [Start, End).
func (p RatePeriod) Contains(t time.Time) bool {
	day := DateOf(t)
	if day.Before(p.Start) {
		return false
	}
	return p.Open || day.Before(p.End)
}

func (p RatePeriod) String() string {
	if p.Open {
		return "[" + FormatDate(p.Start) + ", ...)"
	}
	return "[" + FormatDate(p.Start) + ", " + FormatDate(p.End) + ")"
}

// =============================================================================
// INCOME TAX - Named schedule of rate periods
// =============================================================================

type IncomeTax struct {
	ID      uuid.UUID
	Name    string
	periods []RatePeriod
}

// NewTaxID returns a time-ordered tax identifier.
func NewTaxID() uuid.UUID { return uuid.Must(uuid.NewV7()) }

func NewIncomeTax(id uuid.UUID, name string) *IncomeTax {
	return &IncomeTax{ID: id, Name: name}
}

// AddRate appends the closed period [start, end).
func (t *IncomeTax) AddRate(start, end time.Time, rate TaxRate) error {
	start, end = DateOf(start), DateOf(end)
	if !end.After(start) {
		return &RatePeriodError{Start: FormatDate(start), End: FormatDate(end), Reason: "end must be after start"}
	}
	if err := t.checkFollows(start, FormatDate(end)); err != nil {
		return err
	}
	t.periods = append(t.periods, RatePeriod{Start: start, End: end, Rate: rate})
	return nil
}

// AddOpenRate appends a period that applies to every day from start on.
func (t *IncomeTax) AddOpenRate(start time.Time, rate TaxRate) error {
	start = DateOf(start)
	if err := t.checkFollows(start, "..."); err != nil {
		return err
	}
	t.periods = append(t.periods, RatePeriod{Start: start, Open: true, Rate: rate})
	return nil
}

func (t *IncomeTax) checkFollows(start time.Time, end string) error {
	if len(t.periods) == 0 {
		return nil
	}
	last := t.periods[len(t.periods)-1]
	switch {
	case last.Open:
		return &RatePeriodError{Start: FormatDate(start), End: end, Reason: "schedule already ends with an open period"}
	case start.Before(last.End):
		return &RatePeriodError{Start: FormatDate(start), End: end, Reason: "overlaps " + last.String()}
	}
	return nil
}

// Periods returns a copy of the rate periods in insertion order.
func (t *IncomeTax) Periods() []RatePeriod {
	out := make([]RatePeriod, len(t.periods))
	copy(out, t.periods)
	return out
}

// RateAt returns the rate in force on the day of at.
func (t *IncomeTax) RateAt(at time.Time) (TaxRate, bool) {
	for i := len(t.periods) - 1; i >= 0; i-- {
		if t.periods[i].Contains(at) {
			return t.periods[i].Rate, true
		}
	}
	return TaxRate{}, false
}

// Obligation returns amount times the rate in force at the given date,
// or zero when no period applies.
func (t *IncomeTax) Obligation(amount Amount, at time.Time) Amount {
	rate, ok := t.RateAt(at)
	if !ok {
		return ZeroAmount
	}
	return amount.Mul(rate)
}

// =============================================================================
// RATE CHANGES - Stored form of a schedule
// =============================================================================

// RateChange records that Rate applies from Start until the next change.
type RateChange struct {
	Start time.Time
	Rate  TaxRate
}

// BuildIncomeTax turns ascending rate changes into a schedule whose last
// period is open-ended. Two changes on the same day fail with ErrInvalidPeriod.
func BuildIncomeTax(id uuid.UUID, name string, changes []RateChange) (*IncomeTax, error) {
	tax := NewIncomeTax(id, name)
	for i, ch := range changes {
		if i == len(changes)-1 {
			if err := tax.AddOpenRate(ch.Start, ch.Rate); err != nil {
				return nil, err
			}
			break
		}
		if err := tax.AddRate(ch.Start, changes[i+1].Start, ch.Rate); err != nil {
			return nil, err
		}
	}
	return tax, nil
}
