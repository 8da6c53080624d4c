/*
Package ledger provides the tax obligation and reconciliation engine.

PURPOSE:
  This package tracks personal income, computes the tax each income owes
  under a time-varying rate schedule, and settles tax payments against
  those obligations. It performs no I/O: storage, import and rendering
  are collaborators that hand values in and take results out.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A bounded monetary value in [0, MaxAmount)
  - TaxRate: A fraction in [0, 1)
  - Income: A dated receipt of money
  - TaxPayment: Money transferred toward tax obligations
  - Reconciliation: An immutable ledger entry settling part of an obligation

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift
  2. Validation at construction: an Amount or TaxRate that exists is valid
  3. Immutability: Reconciliations are never modified, only deleted by unpay

USAGE:
  amount, err := ledger.NewAmount(1500)
  rate, err := ledger.NewTaxRate(0.05)
  tax := amount.Mul(rate) // 75

SEE ALSO:
  - schedule.go: Rate periods and obligation lookup
  - reconcile.go: Payment allocation
  - quarterly.go: Quarterly aggregation
*/
package ledger

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Bounded monetary value
// =============================================================================

// MaxAmount is the exclusive upper bound of a single Amount.
const MaxAmount = 1_000_000_000

var maxAmount = decimal.NewFromInt(MaxAmount)

// Amount is a monetary value in [0, MaxAmount). The zero value is a valid zero.
type Amount struct {
	value decimal.Decimal
}

// ZeroAmount is the additive identity.
var ZeroAmount = Amount{}

// NewAmount validates a raw float. NaN and infinities are rejected.
func NewAmount(raw float64) (Amount, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return Amount{}, &AmountError{Value: strconv.FormatFloat(raw, 'g', -1, 64)}
	}
	return NewAmountFromDecimal(decimal.NewFromFloat(raw))
}

// NewAmountFromDecimal validates a decimal value.
func NewAmountFromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() || d.GreaterThanOrEqual(maxAmount) {
		return Amount{}, &AmountError{Value: d.String()}
	}
	return Amount{value: d}, nil
}

// ParseAmount parses a decimal string such as "1500.25".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, &AmountError{Value: s}
	}
	return NewAmountFromDecimal(d)
}

// MustAmount panics on invalid input. Intended for literals and tests.
func MustAmount(raw float64) Amount {
	a, err := NewAmount(raw)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Decimal() decimal.Decimal       { return a.value }
func (a Amount) Float64() float64               { f, _ := a.value.Float64(); return f }
func (a Amount) String() string                 { return a.value.String() }
func (a Amount) StringFixed(places int32) string { return a.value.StringFixed(places) }
func (a Amount) IsZero() bool                   { return a.value.IsZero() }
func (a Amount) IsPositive() bool               { return a.value.IsPositive() }
func (a Amount) Equal(b Amount) bool            { return a.value.Equal(b.value) }
func (a Amount) Cmp(b Amount) int               { return a.value.Cmp(b.value) }
func (a Amount) LessThan(b Amount) bool         { return a.value.LessThan(b.value) }
func (a Amount) GreaterThanOrEqual(b Amount) bool {
	return a.value.GreaterThanOrEqual(b.value)
}

// Add re-validates the sum. It panics when the sum leaves the valid range;
// callers summing untrusted data use CheckedAdd.
func (a Amount) Add(b Amount) Amount {
	sum, err := a.CheckedAdd(b)
	if err != nil {
		panic(err)
	}
	return sum
}

// CheckedAdd returns the sum or an AmountError if it reaches MaxAmount.
func (a Amount) CheckedAdd(b Amount) (Amount, error) {
	return NewAmountFromDecimal(a.value.Add(b.value))
}

// Sub returns a - b, failing if the result would be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	return NewAmountFromDecimal(a.value.Sub(b.value))
}

// Mul applies a rate. A rate below one never grows the amount, so the
// product needs no re-validation.
func (a Amount) Mul(r TaxRate) Amount {
	return Amount{value: a.value.Mul(r.value)}
}

// =============================================================================
// TAX RATE - Fraction in [0, 1)
// =============================================================================

var one = decimal.NewFromInt(1)

// TaxRate is a fraction of income owed as tax.
type TaxRate struct {
	value decimal.Decimal
}

func NewTaxRate(raw float64) (TaxRate, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return TaxRate{}, &TaxRateError{Value: strconv.FormatFloat(raw, 'g', -1, 64)}
	}
	return NewTaxRateFromDecimal(decimal.NewFromFloat(raw))
}

func NewTaxRateFromDecimal(d decimal.Decimal) (TaxRate, error) {
	if d.IsNegative() || d.GreaterThanOrEqual(one) {
		return TaxRate{}, &TaxRateError{Value: d.String()}
	}
	return TaxRate{value: d}, nil
}

func ParseTaxRate(s string) (TaxRate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return TaxRate{}, &TaxRateError{Value: s}
	}
	return NewTaxRateFromDecimal(d)
}

// MustTaxRate panics on invalid input. Intended for literals and tests.
func MustTaxRate(raw float64) TaxRate {
	r, err := NewTaxRate(raw)
	if err != nil {
		panic(err)
	}
	return r
}

func (r TaxRate) Decimal() decimal.Decimal { return r.value }
func (r TaxRate) Float64() float64         { f, _ := r.value.Float64(); return f }
func (r TaxRate) String() string           { return r.value.String() }
func (r TaxRate) Equal(o TaxRate) bool     { return r.value.Equal(o.value) }

// =============================================================================
// INCOME
// =============================================================================

// Income is a recorded receipt of money. No is the sequence number assigned
// by the store; it stays 0 until the income is persisted.
type Income struct {
	No      int64
	Time    time.Time
	Amount  Amount
	Comment string
}

func NewIncome(at time.Time, amount Amount) Income {
	return Income{Time: at, Amount: amount}
}

func (i Income) WithComment(comment string) Income {
	i.Comment = comment
	return i
}

func (i Income) WithNo(no int64) Income {
	i.No = no
	return i
}

// Date returns the calendar day of the income.
func (i Income) Date() time.Time { return DateOf(i.Time) }

// IncomeKey identifies an income for duplicate detection during import.
type IncomeKey struct {
	At     int64
	Amount string
}

// DedupKey ignores the sequence number and the comment.
func (i Income) DedupKey() IncomeKey {
	return IncomeKey{At: i.Time.UnixNano(), Amount: i.Amount.value.String()}
}

// SameIncome reports whether two incomes share timestamp and amount.
// Incomes with different sequence numbers are still distinct records.
func SameIncome(a, b Income) bool {
	return a.Time.Equal(b.Time) && a.Amount.Equal(b.Amount)
}

// SortIncomes orders incomes by timestamp, keeping the input order of ties.
func SortIncomes(incomes []Income) {
	sort.SliceStable(incomes, func(i, j int) bool {
		return incomes[i].Time.Before(incomes[j].Time)
	})
}

// IncomesSorted reports whether incomes are non-decreasing by timestamp.
func IncomesSorted(incomes []Income) bool {
	for i := 1; i < len(incomes); i++ {
		if incomes[i].Time.Before(incomes[i-1].Time) {
			return false
		}
	}
	return true
}

// =============================================================================
// TAX PAYMENT
// =============================================================================

// TaxPayment is money paid toward tax, independent of any specific income.
// Applied is the store's marker that the payment has been reconciled.
type TaxPayment struct {
	ID      int64
	Amount  Amount
	PaidAt  time.Time
	Applied bool
}

func NewTaxPayment(id int64, amount Amount, paidAt time.Time) TaxPayment {
	return TaxPayment{ID: id, Amount: amount, PaidAt: paidAt}
}

// =============================================================================
// RECONCILIATION - Immutable settlement entry
// =============================================================================

type Completeness string

const (
	Full    Completeness = "full"    // Settles the remaining obligation
	Partial Completeness = "partial" // Leaves an outstanding balance
)

// ParseCompleteness accepts "full" or "partial" in any case.
func ParseCompleteness(s string) (Completeness, bool) {
	switch Completeness(strings.ToLower(s)) {
	case Full:
		return Full, true
	case Partial:
		return Partial, true
	}
	return "", false
}

type Reconciliation struct {
	ID           uuid.UUID
	IncomeNo     int64
	PaymentID    int64
	Amount       Amount
	ReconciledAt time.Time
	Completeness Completeness
}

// NewReconciliation creates an entry with a time-ordered id.
func NewReconciliation(incomeNo, paymentID int64, amount Amount, at time.Time, c Completeness) Reconciliation {
	return Reconciliation{
		ID:           uuid.Must(uuid.NewV7()),
		IncomeNo:     incomeNo,
		PaymentID:    paymentID,
		Amount:       amount,
		ReconciledAt: at,
		Completeness: c,
	}
}
