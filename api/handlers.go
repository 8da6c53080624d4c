/*
handlers.go - HTTP API handlers for monotax

PURPOSE:
  Exposes app.Service over REST. Handles HTTP request/response, JSON
  serialization, and delegates to the service.

ENDPOINTS:
  Incomes:
    GET    /api/incomes                 List incomes (year, quarter, to_date)
    POST   /api/incomes                 Import a universalbank statement
    GET    /api/incomes/taxer.csv       Taxer import file

  Reports:
    GET    /api/reports/quarterly       Quarterly totals (format=json|csv|pdf|text)
    GET    /api/reports/balance         Per income obligations and debt

  Payments:
    GET    /api/payments                List payments
    POST   /api/payments                Record and, by default, apply a payment
    POST   /api/payments/{id}/apply     Apply a recorded payment
    POST   /api/payments/{id}/undo      Drop the payment's reconciliations

  Taxes:
    GET    /api/taxes                   List schedules
    POST   /api/taxes                   Create a schedule
    GET    /api/taxes/{name}            One schedule
    POST   /api/taxes/{name}/rates      Append a rate change

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Payment or tax not found
  - 409: Conflict (payment already applied, duplicate tax name)
  - 500: Internal errors, including engine precondition failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/warp/monotax/app"
	"github.com/warp/monotax/config"
	"github.com/warp/monotax/ledger"
	"github.com/warp/monotax/report"
	"github.com/warp/monotax/statement"
)

// maxStatementSize bounds statement uploads.
const maxStatementSize = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service   *app.Service
	Taxer     config.TaxerConfig
	Statement statement.UniversalBank
	Logger    *slog.Logger
}

// NewHandler creates a handler for the given service.
func NewHandler(svc *app.Service, taxer config.TaxerConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Service: svc, Taxer: taxer, Logger: logger}
}

// =============================================================================
// INCOME HANDLERS
// =============================================================================

// ListIncomes returns the incomes matching the query filters.
// GET /api/incomes?year=2024&quarter=Q2&to_date=true
func (h *Handler) ListIncomes(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	incomes, err := h.Service.Incomes(r.Context(), criteria)
	if err != nil {
		h.writeServiceError(w, "Failed to list incomes", err)
		return
	}
	writeJSON(w, http.StatusOK, toIncomeDTOs(incomes))
}

// ImportStatement imports a universalbank CSV statement. The file is either
// the raw request body or the "statement" field of a multipart form. Query
// filters limit which incomes are imported.
// POST /api/incomes
func (h *Handler) ImportStatement(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	body, closeBody, err := statementBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing statement file", err)
		return
	}
	defer closeBody()

	parsed, err := h.Statement.Read(body, criteria, h.Service.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid statement", err)
		return
	}

	res, err := h.Service.ImportIncomes(r.Context(), parsed.Incomes)
	if err != nil {
		h.writeServiceError(w, "Failed to import incomes", err)
		return
	}
	writeJSON(w, http.StatusOK, toImportResponse(res, parsed.Skipped))
}

func statementBody(w http.ResponseWriter, r *http.Request) (io.Reader, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxStatementSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}
	file, _, err := r.FormFile("statement")
	if err != nil {
		return nil, nil, err
	}
	return file, func() { file.Close() }, nil
}

// ExportTaxer returns the incomes as a Taxer import file.
// GET /api/incomes/taxer.csv
func (h *Handler) ExportTaxer(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	incomes, err := h.Service.Incomes(r.Context(), criteria)
	if err != nil {
		h.writeServiceError(w, "Failed to list incomes", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="taxer.csv"`)
	if err := report.WriteTaxerCSV(w, incomes, h.Taxer); err != nil {
		h.Logger.Error("write taxer csv", "error", err)
	}
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// QuarterlyReport returns quarterly totals in the requested format.
// GET /api/reports/quarterly?year=2024&format=csv
func (h *Handler) QuarterlyReport(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	rep, err := h.Service.QuarterlyReport(r.Context(), criteria)
	if err != nil {
		h.writeServiceError(w, "Failed to build quarterly report", err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, toQuarterlyReportDTO(rep))
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		err = report.WriteQuarterlyCSV(w, rep)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		err = report.WriteQuarterlyText(w, rep)
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		err = report.WriteQuarterlyPDF(w, rep, "Quarterly income report", h.Service.Now())
	default:
		writeError(w, http.StatusBadRequest, "Unknown format", fmt.Errorf("format %q", format))
		return
	}
	if err != nil {
		h.Logger.Error("write quarterly report", "error", err)
	}
}

// BalanceReport returns obligations, reconciled amounts and debt per income.
// GET /api/reports/balance
func (h *Handler) BalanceReport(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	rep, err := h.Service.BalanceReport(r.Context(), criteria)
	if err != nil {
		h.writeServiceError(w, "Failed to build balance report", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceReportDTO(rep))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns all payments.
// GET /api/payments
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Service.Payments(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePayment records a payment and applies it unless "apply" is false.
// POST /api/payments
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	paidAt := ledger.DateOf(h.Service.Now())
	if req.PaidAt != "" {
		paidAt, err = ledger.ParseDate(req.PaidAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid paid_at format (use YYYY-MM-DD)", err)
			return
		}
	}

	if req.Apply != nil && !*req.Apply {
		p, err := h.Service.RecordPayment(r.Context(), amount, paidAt)
		if err != nil {
			h.writeServiceError(w, "Failed to record payment", err)
			return
		}
		dto := toPaymentDTO(p)
		writeJSON(w, http.StatusCreated, ReconcileResponse{Payment: &dto, Entries: []ReconciliationDTO{}, Reconciled: "0", Balance: p.Amount.String()})
		return
	}

	p, res, err := h.Service.Pay(r.Context(), amount, paidAt)
	if err != nil {
		h.writeServiceError(w, "Failed to pay", err)
		return
	}
	resp := toReconcileResponse(res)
	dto := toPaymentDTO(p)
	resp.Payment = &dto
	writeJSON(w, http.StatusCreated, resp)
}

// ApplyPayment reconciles a recorded payment.
// POST /api/payments/{id}/apply
func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentID(w, r)
	if !ok {
		return
	}

	res, err := h.Service.ApplyPayment(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "Failed to apply payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toReconcileResponse(res))
}

// UndoPayment deletes the payment's reconciliations and marks it unapplied.
// POST /api/payments/{id}/undo
func (h *Handler) UndoPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentID(w, r)
	if !ok {
		return
	}

	deleted, err := h.Service.UndoPayment(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "Failed to undo payment", err)
		return
	}
	writeJSON(w, http.StatusOK, UndoResponse{PaymentID: id, Deleted: deleted})
}

func paymentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment id", err)
		return 0, false
	}
	return id, true
}

// ListReconciliations returns every settlement entry.
// GET /api/reconciliations
func (h *Handler) ListReconciliations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Service.Reconciliations(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list reconciliations", err)
		return
	}

	dtos := make([]ReconciliationDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toReconciliationDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TAX HANDLERS
// =============================================================================

// ListTaxes returns all income tax schedules.
// GET /api/taxes
func (h *Handler) ListTaxes(w http.ResponseWriter, r *http.Request) {
	taxes, err := h.Service.Taxes(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list taxes", err)
		return
	}

	dtos := make([]TaxDTO, len(taxes))
	for i, t := range taxes {
		dtos[i] = toTaxDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTax creates a schedule from its rate changes.
// POST /api/taxes
func (h *Handler) CreateTax(w http.ResponseWriter, r *http.Request) {
	var req CreateTaxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	changes := make([]ledger.RateChange, len(req.Rates))
	for i, rr := range req.Rates {
		ch, err := rr.toRateChange()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid rate change %d", i), err)
			return
		}
		changes[i] = ch
	}

	tax, err := h.Service.CreateTax(r.Context(), req.Name, changes)
	if err != nil {
		h.writeServiceError(w, "Failed to create tax", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaxDTO(tax))
}

// GetTax returns one schedule by name.
// GET /api/taxes/{name}
func (h *Handler) GetTax(w http.ResponseWriter, r *http.Request) {
	tax, err := h.Service.Tax(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeServiceError(w, "Failed to get tax", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaxDTO(tax))
}

// AddRateChange appends a rate change to a schedule.
// POST /api/taxes/{name}/rates
func (h *Handler) AddRateChange(w http.ResponseWriter, r *http.Request) {
	var req RateChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	change, err := req.toRateChange()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate change", err)
		return
	}

	tax, err := h.Service.AddRateChange(r.Context(), chi.URLParam(r, "name"), change)
	if err != nil {
		h.writeServiceError(w, "Failed to add rate change", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaxDTO(tax))
}

// =============================================================================
// HELPERS
// =============================================================================

func criteriaFromQuery(r *http.Request) (ledger.Criteria, error) {
	q := r.URL.Query()
	toDate := false
	if v := q.Get("to_date"); v != "" {
		var err error
		if toDate, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("%w: to_date %q", ledger.ErrInvalidCriteria, v)
		}
	}
	return ledger.ParseCriteria(q.Get("year"), q.Get("quarter"), toDate)
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case ledger.IsClientError(err):
		return http.StatusBadRequest
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case ledger.IsConflict(err):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(message, "error", err, "precondition", ledger.IsPrecondition(err))
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
