/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupled from the
  ledger types. Money and rates travel as decimal strings so no float
  rounding happens on the wire.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

DATES:
  Calendar days are "YYYY-MM-DD". Instants are RFC 3339.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/monotax/app"
	"github.com/warp/monotax/ledger"
)

// =============================================================================
// INCOMES
// =============================================================================

type IncomeDTO struct {
	No      int64  `json:"no"`
	Time    string `json:"time"`
	Amount  string `json:"amount"`
	Comment string `json:"comment,omitempty"`
}

// ImportResponse reports the outcome of a statement upload.
type ImportResponse struct {
	Read       int `json:"read"`
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

// =============================================================================
// REPORTS
// =============================================================================

type QuarterLineDTO struct {
	Year             int    `json:"year"`
	Quarter          string `json:"quarter"`
	TotalIncome      string `json:"total_income"`
	CumulativeIncome string `json:"cumulative_income"`
	TotalTax         string `json:"total_tax"`
	CumulativeTax    string `json:"cumulative_tax"`
}

type QuarterlyReportDTO struct {
	Lines       []QuarterLineDTO `json:"lines"`
	TotalIncome string           `json:"total_income"`
	TotalTax    string           `json:"total_tax"`
}

type TaxObligationDTO struct {
	TaxID      string `json:"tax_id"`
	Name       string `json:"name"`
	Obligation string `json:"obligation"`
}

type IncomeBalanceDTO struct {
	Income      IncomeDTO          `json:"income"`
	Obligations []TaxObligationDTO `json:"obligations"`
	Owed        string             `json:"owed"`
	Reconciled  string             `json:"reconciled"`
	Outstanding string             `json:"outstanding"`
	Settled     bool               `json:"settled"`
}

type BalanceReportDTO struct {
	Rows            []IncomeBalanceDTO `json:"rows"`
	TotalOwed       string             `json:"total_owed"`
	TotalReconciled string             `json:"total_reconciled"`
	TotalDebt       string             `json:"total_debt"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

type PaymentDTO struct {
	ID      int64  `json:"id"`
	Amount  string `json:"amount"`
	PaidAt  string `json:"paid_at"`
	Applied bool   `json:"applied"`
}

// CreatePaymentRequest records a payment. PaidAt defaults to today and
// Apply to true.
type CreatePaymentRequest struct {
	Amount string `json:"amount"`
	PaidAt string `json:"paid_at,omitempty"`
	Apply  *bool  `json:"apply,omitempty"`
}

type ReconciliationDTO struct {
	ID           string `json:"id"`
	IncomeNo     int64  `json:"income_no"`
	PaymentID    int64  `json:"payment_id"`
	Amount       string `json:"amount"`
	ReconciledAt string `json:"reconciled_at"`
	Completeness string `json:"completeness"`
}

// ReconcileResponse is returned when a payment is applied.
type ReconcileResponse struct {
	Payment    *PaymentDTO         `json:"payment,omitempty"`
	Entries    []ReconciliationDTO `json:"entries"`
	Reconciled string              `json:"reconciled"`
	Balance    string              `json:"balance"`
}

type UndoResponse struct {
	PaymentID int64 `json:"payment_id"`
	Deleted   int   `json:"deleted"`
}

// =============================================================================
// TAXES
// =============================================================================

type RatePeriodDTO struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"` // empty for the open-ended period
	Rate  string `json:"rate"`
}

type TaxDTO struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Periods []RatePeriodDTO `json:"periods"`
}

type RateChangeRequest struct {
	Start string `json:"start"`
	Rate  string `json:"rate"`
}

type CreateTaxRequest struct {
	Name  string              `json:"name"`
	Rates []RateChangeRequest `json:"rates"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toIncomeDTO(in ledger.Income) IncomeDTO {
	return IncomeDTO{
		No:      in.No,
		Time:    in.Time.Format(time.RFC3339),
		Amount:  in.Amount.StringFixed(2),
		Comment: in.Comment,
	}
}

func toIncomeDTOs(incomes []ledger.Income) []IncomeDTO {
	dtos := make([]IncomeDTO, len(incomes))
	for i, in := range incomes {
		dtos[i] = toIncomeDTO(in)
	}
	return dtos
}

func toImportResponse(res app.ImportResult, skipped int) ImportResponse {
	return ImportResponse{
		Read:       res.Read,
		Imported:   res.Imported,
		Duplicates: res.Duplicates,
		Skipped:    skipped,
	}
}

func toQuarterlyReportDTO(r ledger.QuarterlyReport) QuarterlyReportDTO {
	dto := QuarterlyReportDTO{
		Lines:       make([]QuarterLineDTO, len(r.Lines)),
		TotalIncome: r.TotalIncome.StringFixed(2),
		TotalTax:    r.TotalTax.StringFixed(2),
	}
	for i, l := range r.Lines {
		dto.Lines[i] = QuarterLineDTO{
			Year:             l.Year,
			Quarter:          l.Quarter.String(),
			TotalIncome:      l.TotalIncome.StringFixed(2),
			CumulativeIncome: l.CumulativeIncome.StringFixed(2),
			TotalTax:         l.TotalTax.StringFixed(2),
			CumulativeTax:    l.CumulativeTax.StringFixed(2),
		}
	}
	return dto
}

func toBalanceReportDTO(r ledger.BalanceReport) BalanceReportDTO {
	dto := BalanceReportDTO{
		Rows:            make([]IncomeBalanceDTO, len(r.Rows)),
		TotalOwed:       r.TotalOwed.StringFixed(2),
		TotalReconciled: r.TotalReconciled.StringFixed(2),
		TotalDebt:       r.TotalDebt.StringFixed(2),
	}
	for i, row := range r.Rows {
		obligations := make([]TaxObligationDTO, len(row.Obligations))
		for j, o := range row.Obligations {
			obligations[j] = TaxObligationDTO{
				TaxID:      o.TaxID.String(),
				Name:       o.Name,
				Obligation: o.Obligation.StringFixed(2),
			}
		}
		dto.Rows[i] = IncomeBalanceDTO{
			Income:      toIncomeDTO(row.Income),
			Obligations: obligations,
			Owed:        row.Owed.StringFixed(2),
			Reconciled:  row.Reconciled.StringFixed(2),
			Outstanding: row.Outstanding.StringFixed(2),
			Settled:     row.Settled,
		}
	}
	return dto
}

func toPaymentDTO(p ledger.TaxPayment) PaymentDTO {
	return PaymentDTO{
		ID:      p.ID,
		Amount:  p.Amount.StringFixed(2),
		PaidAt:  ledger.FormatDate(p.PaidAt),
		Applied: p.Applied,
	}
}

func toReconciliationDTO(r ledger.Reconciliation) ReconciliationDTO {
	return ReconciliationDTO{
		ID:           r.ID.String(),
		IncomeNo:     r.IncomeNo,
		PaymentID:    r.PaymentID,
		Amount:       r.Amount.String(),
		ReconciledAt: r.ReconciledAt.Format(time.RFC3339),
		Completeness: string(r.Completeness),
	}
}

func toReconcileResponse(r ledger.ReconcileResult) ReconcileResponse {
	entries := make([]ReconciliationDTO, len(r.Entries))
	for i, e := range r.Entries {
		entries[i] = toReconciliationDTO(e)
	}
	return ReconcileResponse{
		Entries:    entries,
		Reconciled: r.Reconciled().String(),
		Balance:    r.Balance.String(),
	}
}

func toTaxDTO(t *ledger.IncomeTax) TaxDTO {
	periods := t.Periods()
	dto := TaxDTO{ID: t.ID.String(), Name: t.Name, Periods: make([]RatePeriodDTO, len(periods))}
	for i, p := range periods {
		dto.Periods[i] = RatePeriodDTO{Start: ledger.FormatDate(p.Start), Rate: p.Rate.String()}
		if !p.Open {
			dto.Periods[i].End = ledger.FormatDate(p.End)
		}
	}
	return dto
}

func (req RateChangeRequest) toRateChange() (ledger.RateChange, error) {
	start, err := ledger.ParseDate(req.Start)
	if err != nil {
		return ledger.RateChange{}, err
	}
	rate, err := ledger.ParseTaxRate(req.Rate)
	if err != nil {
		return ledger.RateChange{}, err
	}
	return ledger.RateChange{Start: start, Rate: rate}, nil
}
