package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// QUARTER - The reporting and taxation period
// =============================================================================

// Quarter is a quarter of the year, Q1 through Q4.
type Quarter int

const (
	Q1 Quarter = iota + 1
	Q2
	Q3
	Q4
)

// QuarterOf returns ceil(month/3) of the given instant.
func QuarterOf(t time.Time) Quarter {
	return Quarter((int(t.Month())-1)/3 + 1)
}

// ParseQuarter accepts "Q3", "q3" or "3".
func ParseQuarter(s string) (Quarter, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "Q"))
	if err != nil || n < 1 || n > 4 {
		return 0, fmt.Errorf("%w: quarter %q", ErrInvalidCriteria, s)
	}
	return Quarter(n), nil
}

func (q Quarter) Index() int     { return int(q) }
func (q Quarter) Valid() bool    { return q >= Q1 && q <= Q4 }
func (q Quarter) String() string { return "Q" + strconv.Itoa(int(q)) }

// FirstMonth returns the month the quarter starts in.
func (q Quarter) FirstMonth() time.Month { return time.Month(3*(int(q)-1) + 1) }

// =============================================================================
// YEAR QUARTER - Key of a quarterly report line
// =============================================================================

type YearQuarter struct {
	Year    int
	Quarter Quarter
}

func YearQuarterOf(t time.Time) YearQuarter {
	return YearQuarter{Year: t.Year(), Quarter: QuarterOf(t)}
}

// Start returns the first day of the quarter.
func (yq YearQuarter) Start() time.Time {
	return NewDate(yq.Year, yq.Quarter.FirstMonth(), 1)
}

// End returns the first day after the quarter.
func (yq YearQuarter) End() time.Time {
	return yq.Start().AddDate(0, 3, 0)
}

func (yq YearQuarter) String() string {
	return fmt.Sprintf("%d %s", yq.Year, yq.Quarter)
}
