// Package api exposes the billing engine over HTTP with gorilla/mux.
//
// Mutations answer with an envelope {success, message, data}; reads return
// the record itself, and listings wrap records in {docs}.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/xraph/cadence"
	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/payment"
)

// Handlers serves the billing API for one engine.
type Handlers struct {
	engine *cadence.Engine
	logger *slog.Logger
}

// Option configures Handlers.
type Option func(*Handlers)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handlers) { h.logger = logger }
}

// NewHandlers creates handlers backed by engine.
func NewHandlers(engine *cadence.Engine, opts ...Option) *Handlers {
	h := &Handlers{engine: engine, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter returns a router with every route registered and request
// logging installed.
func NewRouter(engine *cadence.Engine, opts ...Option) *mux.Router {
	h := NewHandlers(engine, opts...)
	router := mux.NewRouter()
	router.Use(h.logRequests)
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes registers the billing routes on router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.status).Methods("GET")

	router.HandleFunc("/customers", h.createCustomer).Methods("POST")
	router.HandleFunc("/customers", h.listCustomers).Methods("GET")
	router.HandleFunc("/customers/{id}", h.getCustomer).Methods("GET")

	router.HandleFunc("/subscription-plan", h.createPlan).Methods("POST")
	router.HandleFunc("/subscribe", h.subscribe).Methods("POST")
	router.HandleFunc("/subscriptions/upgrade", h.upgrade).Methods("POST")
	router.HandleFunc("/subscriptions/downgrade", h.downgrade).Methods("POST")
	router.HandleFunc("/subscriptions/cancel", h.cancel).Methods("POST")

	router.HandleFunc("/invoices", h.generateInvoice).Methods("POST")
	router.HandleFunc("/invoices/{customer_id}", h.listInvoices).Methods("GET")

	router.HandleFunc("/payments", h.processPayment).Methods("POST")

	router.HandleFunc("/sweeps/recurring-invoices", h.runRecurringInvoices).Methods("POST")
	router.HandleFunc("/sweeps/reprocess-payments", h.reprocessPayments).Methods("POST")
}

// envelope is the response body of every mutation.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (h *Handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cadence is UP"})
}

// ──────────────────────────────────────────────────
// Customers
// ──────────────────────────────────────────────────

type createCustomerRequest struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required"`
	PlanID string `json:"subscription_plan_id" validate:"required"`
}

// createCustomer handles POST /customers
func (h *Handlers) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if !decode(w, r, &req) {
		return
	}
	if !valid(w, req) {
		return
	}
	planID, err := id.ParsePlanID(req.PlanID)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid subscription_plan_id")
		return
	}

	c, err := h.engine.CreateCustomerWithSubscription(r.Context(), req.Name, req.Email, planID)
	if err != nil {
		h.failErr(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "Customer created", Data: c})
}

// listCustomers handles GET /customers?cursor=&limit=
func (h *Handlers) listCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	page, err := h.engine.ListCustomers(r.Context(), q.Get("cursor"), limit)
	if err != nil {
		h.failErr(w, r, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// getCustomer handles GET /customers/{id}
func (h *Handlers) getCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := id.ParseCustomerID(mux.Vars(r)["id"])
	if err != nil {
		fail(w, http.StatusNotFound, "Customer not found")
		return
	}

	c, err := h.engine.GetCustomer(r.Context(), customerID)
	if err != nil {
		h.failErr(w, r, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ──────────────────────────────────────────────────
// Plans and subscriptions
// ──────────────────────────────────────────────────

type createPlanRequest struct {
	Name            string          `json:"name" validate:"required"`
	BillingDuration int             `json:"billing_duration" validate:"required"`
	Price           decimal.Decimal `json:"price" validate:"required"`
}

// createPlan handles POST /subscription-plan
func (h *Handlers) createPlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if !decode(w, r, &req) {
		return
	}
	if !valid(w, req) {
		return
	}

	p, err := h.engine.CreatePlan(r.Context(), req.Name, req.BillingDuration, req.Price)
	if err != nil {
		h.failErr(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "Subscription plan created", Data: p})
}

type changeRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	PlanID     string `json:"plan_id" validate:"required"`
}

// parse validates both IDs, writing a 400 when either is missing or malformed.
func (req changeRequest) parse(w http.ResponseWriter) (id.CustomerID, id.PlanID, bool) {
	if !valid(w, req) {
		return id.Nil, id.Nil, false
	}
	customerID, err := id.ParseCustomerID(req.CustomerID)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid customer_id")
		return id.Nil, id.Nil, false
	}
	planID, err := id.ParsePlanID(req.PlanID)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid plan_id")
		return id.Nil, id.Nil, false
	}
	return customerID, planID, true
}

// subscribe handles POST /subscribe
func (h *Handlers) subscribe(w http.ResponseWriter, r *http.Request) {
	var req changeRequest
	if !decode(w, r, &req) {
		return
	}
	customerID, planID, ok := req.parse(w)
	if !ok {
		return
	}

	c, err := h.engine.AssignSubscription(r.Context(), customerID, planID)
	if err != nil {
		h.failErr(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "Subscription assigned", Data: c})
}

// upgrade handles POST /subscriptions/upgrade
func (h *Handlers) upgrade(w http.ResponseWriter, r *http.Request) {
	var req changeRequest
	if !decode(w, r, &req) {
		return
	}
	customerID, planID, ok := req.parse(w)
	if !ok {
		return
	}

	inv, err := h.engine.Upgrade(r.Context(), customerID, planID)
	if err != nil {
		h.failErr(w, r, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "Subscription upgraded", Data: inv})
}

// downgrade handles POST /subscriptions/downgrade
func (h *Handlers) downgrade(w http.ResponseWriter, r *http.Request) {
	var req changeRequest
	if !decode(w, r, &req) {
		return
	}
	customerID, planID, ok := req.parse(w)
	if !ok {
		return
	}

	credit, err := h.engine.Downgrade(r.Context(), customerID, planID)
	if err != nil {
		h.failErr(w, r, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "Subscription downgraded",
		Data:    map[string]string{"credit": cadence.FormatAmount(credit)},
	})
}

type customerRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
}

// cancel handles POST /subscriptions/cancel
func (h *Handlers) cancel(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !decode(w, r, &req) {
		return
	}
	customerID, err := id.ParseCustomerID(req.CustomerID)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid customer_id")
		return
	}

	c, err := h.engine.CancelSubscription(r.Context(), customerID)
	if err != nil {
		h.failErr(w, r, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Subscription cancelled", Data: c})
}

// ──────────────────────────────────────────────────
// Invoices and payments
// ──────────────────────────────────────────────────

// generateInvoice handles POST /invoices
func (h *Handlers) generateInvoice(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !decode(w, r, &req) {
		return
	}
	if !valid(w, req) {
		return
	}
	customerID, err := id.ParseCustomerID(req.CustomerID)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid customer_id")
		return
	}

	inv, err := h.engine.GenerateInvoice(r.Context(), customerID)
	if err != nil {
		h.failErr(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "Invoice generated", Data: inv})
}

// listInvoices handles GET /invoices/{customer_id}
func (h *Handlers) listInvoices(w http.ResponseWriter, r *http.Request) {
	customerID, err := id.ParseCustomerID(mux.Vars(r)["customer_id"])
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid customer_id")
		return
	}

	invoices, err := h.engine.ListCustomerInvoices(r.Context(), customerID)
	if err != nil {
		h.failErr(w, r, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"docs": invoices})
}

type paymentRequest struct {
	InvoiceID     string         `json:"invoice_id" validate:"required"`
	PaymentMethod payment.Method `json:"payment_method" validate:"required"`
}

// processPayment handles POST /payments
func (h *Handlers) processPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !decode(w, r, &req) {
		return
	}
	if !valid(w, req) {
		return
	}
	invoiceID, err := id.ParseInvoiceID(req.InvoiceID)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid invoice_id")
		return
	}

	pay, err := h.engine.ProcessPayment(r.Context(), invoiceID, req.PaymentMethod)
	if err != nil {
		h.failErr(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "Payment completed", Data: pay})
}

// ──────────────────────────────────────────────────
// Sweeps
// ──────────────────────────────────────────────────

type sweepResponse struct {
	Report any      `json:"report"`
	Errors []string `json:"errors,omitempty"`
}

func errorStrings(m cadence.MultiError) []string {
	out := make([]string, 0, len(m.Errors))
	for _, err := range m.Errors {
		out = append(out, err.Error())
	}
	return out
}

// runRecurringInvoices handles POST /sweeps/recurring-invoices
func (h *Handlers) runRecurringInvoices(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.RunRecurringInvoices(r.Context())
	if err != nil {
		h.failErr(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Recurring invoice sweep finished",
		Data:    sweepResponse{Report: report, Errors: errorStrings(report.Errors)},
	})
}

// reprocessPayments handles POST /sweeps/reprocess-payments
func (h *Handlers) reprocessPayments(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.ReprocessFailedPayments(r.Context())
	if err != nil {
		h.failErr(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Failed payment sweep finished",
		Data:    sweepResponse{Report: report, Errors: errorStrings(report.Errors)},
	})
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		fail(w, http.StatusBadRequest, "Malformed JSON body")
		return false
	}
	return true
}

// valid checks req's validate tags, writing a 400 naming the first bad
// field.
func valid(w http.ResponseWriter, req any) bool {
	err := cadence.ValidateStruct(req)
	if err == nil {
		return true
	}
	var verr cadence.ValidationError
	if errors.As(err, &verr) {
		fail(w, http.StatusBadRequest, "Missing required fields: "+verr.Field)
	} else {
		fail(w, http.StatusBadRequest, err.Error())
	}
	return false
}

// failErr maps an engine error to a response. Not-found errors use
// notFoundStatus; rejections are 400; anything else is logged and 500.
func (h *Handlers) failErr(w http.ResponseWriter, r *http.Request, err error, notFoundStatus int) {
	var verr cadence.ValidationError
	switch {
	case errors.As(err, &verr):
		fail(w, http.StatusBadRequest, verr.Field+": "+verr.Message)
	case cadence.IsNotFound(err):
		fail(w, notFoundStatus, err.Error())
	case cadence.IsRejected(err):
		fail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		fail(w, http.StatusInternalServerError, "Internal error")
	}
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handlers) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start),
		)
	})
}
