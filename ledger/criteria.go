/*
criteria.go - Filtering incomes by year and quarter

PURPOSE:
  Criteria pick the incomes a command or report works on, e.g. "Q2 of
  2021" or "this year up to the current quarter". The same criteria
  filter in memory (Match) and are translated to SQL by the sqlite store.

  A Criterion is a closed set of two kinds, Year and Quarter, evaluated by
  one switch. Adding a kind means updating Match and the SQL translation.

EXAMPLE:
  criteria := ledger.Criteria{
      ledger.ByYear(ledger.OneYear(2021)),
      ledger.ByQuarter(ledger.OnlyQuarter(ledger.Q2)),
  }
  criteria.Match(income.Time, time.Now())

  The CLI and HTTP API build criteria from text with ParseCriteria:
  year is "current", "any" or a number; quarter is "current", "any" or
  "Q1".."Q4". An empty string leaves that dimension unrestricted.
*/
package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// YEAR FILTER
// =============================================================================

type YearMode int

const (
	YearCurrent YearMode = iota // default
	YearOne
	YearAny
)

type YearFilter struct {
	Mode YearMode
	Year int
}

func OneYear(year int) YearFilter { return YearFilter{Mode: YearOne, Year: year} }
func AnyYear() YearFilter         { return YearFilter{Mode: YearAny} }
func CurrentYear() YearFilter     { return YearFilter{Mode: YearCurrent} }

// Resolve returns the concrete year to match, false for any year.
func (f YearFilter) Resolve(now time.Time) (int, bool) {
	switch f.Mode {
	case YearOne:
		return f.Year, true
	case YearCurrent:
		return now.Year(), true
	}
	return 0, false
}

// =============================================================================
// QUARTER FILTER
// =============================================================================

type QuarterMode int

const (
	QuarterCurrent       QuarterMode = iota // default
	QuarterOnly                             // exactly Quarter
	QuarterYearToDate                       // Quarter and every earlier one
	QuarterAny                              // no restriction
	QuarterCurrentToDate                    // current quarter and every earlier one
)

type QuarterFilter struct {
	Mode    QuarterMode
	Quarter Quarter
}

func OnlyQuarter(q Quarter) QuarterFilter       { return QuarterFilter{Mode: QuarterOnly, Quarter: q} }
func YearToDateQuarter(q Quarter) QuarterFilter { return QuarterFilter{Mode: QuarterYearToDate, Quarter: q} }
func AnyQuarter() QuarterFilter                 { return QuarterFilter{Mode: QuarterAny} }
func CurrentQuarter() QuarterFilter             { return QuarterFilter{Mode: QuarterCurrent} }
func CurrentToDateQuarter() QuarterFilter       { return QuarterFilter{Mode: QuarterCurrentToDate} }

// Resolve returns the bound quarter and whether earlier quarters match too.
// ok is false when any quarter matches.
func (f QuarterFilter) Resolve(now time.Time) (q Quarter, toDate bool, ok bool) {
	switch f.Mode {
	case QuarterOnly:
		return f.Quarter, false, true
	case QuarterYearToDate:
		return f.Quarter, true, true
	case QuarterCurrent:
		return QuarterOf(now), false, true
	case QuarterCurrentToDate:
		return QuarterOf(now), true, true
	}
	return 0, false, false
}

// =============================================================================
// CRITERION - Closed tagged variant
// =============================================================================

type CriterionKind int

const (
	CriterionYear CriterionKind = iota + 1
	CriterionQuarter
)

type Criterion struct {
	Kind    CriterionKind
	Year    YearFilter
	Quarter QuarterFilter
}

func ByYear(f YearFilter) Criterion       { return Criterion{Kind: CriterionYear, Year: f} }
func ByQuarter(f QuarterFilter) Criterion { return Criterion{Kind: CriterionQuarter, Quarter: f} }

// Match evaluates the criterion for the instant t.
func (c Criterion) Match(t, now time.Time) bool {
	switch c.Kind {
	case CriterionYear:
		year, ok := c.Year.Resolve(now)
		return !ok || t.Year() == year
	case CriterionQuarter:
		q, toDate, ok := c.Quarter.Resolve(now)
		if !ok {
			return true
		}
		if toDate {
			return QuarterOf(t) <= q
		}
		return QuarterOf(t) == q
	}
	return false
}

// Criteria match when every criterion matches. Empty criteria match everything.
type Criteria []Criterion

func (cs Criteria) Match(t, now time.Time) bool {
	for _, c := range cs {
		if !c.Match(t, now) {
			return false
		}
	}
	return true
}

// Filter returns the incomes matching all criteria, preserving order.
func (cs Criteria) Filter(incomes []Income, now time.Time) []Income {
	var out []Income
	for _, in := range incomes {
		if cs.Match(in.Time, now) {
			out = append(out, in)
		}
	}
	return out
}

// =============================================================================
// PARSING - Text form used by the CLI and HTTP API
// =============================================================================

func ParseYearFilter(s string) (YearFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "all":
		return AnyYear(), nil
	case "current":
		return CurrentYear(), nil
	}
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || year < 1 {
		return YearFilter{}, fmt.Errorf("%w: year %q", ErrInvalidCriteria, s)
	}
	return OneYear(year), nil
}

// ParseQuarterFilter parses a quarter filter. toDate widens a bound quarter
// to every earlier quarter of the year.
func ParseQuarterFilter(s string, toDate bool) (QuarterFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "all":
		return AnyQuarter(), nil
	case "current":
		if toDate {
			return CurrentToDateQuarter(), nil
		}
		return CurrentQuarter(), nil
	}
	q, err := ParseQuarter(s)
	if err != nil {
		return QuarterFilter{}, err
	}
	if toDate {
		return YearToDateQuarter(q), nil
	}
	return OnlyQuarter(q), nil
}

// ParseCriteria combines a year and a quarter filter. Unrestricted
// dimensions are left out.
func ParseCriteria(year, quarter string, toDate bool) (Criteria, error) {
	yf, err := ParseYearFilter(year)
	if err != nil {
		return nil, err
	}
	qf, err := ParseQuarterFilter(quarter, toDate)
	if err != nil {
		return nil, err
	}

	var cs Criteria
	if yf.Mode != YearAny {
		cs = append(cs, ByYear(yf))
	}
	if qf.Mode != QuarterAny {
		cs = append(cs, ByQuarter(qf))
	}
	return cs, nil
}
