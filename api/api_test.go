package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cadence"
	"github.com/xraph/cadence/api"
	"github.com/xraph/cadence/clock"
	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/notify"
	"github.com/xraph/cadence/store/memory"
)

type server struct {
	router *mux.Router
	clock  *clock.Mock
	mail   *notify.Recorder
}

func newServer(t *testing.T) *server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := &server{
		clock: clock.NewMock(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)),
		mail:  &notify.Recorder{},
	}
	engine := cadence.New(memory.New(),
		cadence.WithLogger(logger),
		cadence.WithClock(s.clock),
		cadence.WithNotifier(s.mail),
	)
	require.NoError(t, engine.Start(context.Background()))
	t.Cleanup(func() { _ = engine.Stop() })

	s.router = api.NewRouter(engine, api.WithLogger(logger))
	return s
}

func (s *server) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

// data returns the "data" object of a mutation response.
func data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	d, ok := resp["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", resp)
	return d
}

func (s *server) createPlan(t *testing.T, name string, days int, price string) string {
	t.Helper()
	w, resp := s.do(t, "POST", "/subscription-plan", map[string]any{
		"name": name, "billing_duration": days, "price": price,
	})
	require.Equal(t, http.StatusCreated, w.Code, resp)
	return data(t, resp)["id"].(string)
}

func (s *server) createCustomer(t *testing.T, planID string) string {
	t.Helper()
	w, resp := s.do(t, "POST", "/customers", map[string]any{
		"name": "Ada", "email": "ada@example.com", "subscription_plan_id": planID,
	})
	require.Equal(t, http.StatusCreated, w.Code, resp)
	return data(t, resp)["id"].(string)
}

func TestStatus(t *testing.T) {
	s := newServer(t)
	w, resp := s.do(t, "GET", "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cadence is UP", resp["message"])
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestCustomerRoutes(t *testing.T) {
	s := newServer(t)
	planID := s.createPlan(t, "Basic", 30, "50")
	customerID := s.createCustomer(t, planID)

	w, resp := s.do(t, "GET", "/customers/"+customerID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "active", resp["subscription_status"])
	assert.Equal(t, planID, resp["subscription_plan_id"])

	w, _ = s.do(t, "GET", "/customers/"+id.NewCustomerID().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(t, "GET", "/customers/garbage", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.createCustomer(t, planID)
	w, resp = s.do(t, "GET", "/customers?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	docs := resp["docs"].([]any)
	assert.Len(t, docs, 1)
	cursor, _ := resp["cursor"].(string)
	require.NotEmpty(t, cursor)

	w, resp = s.do(t, "GET", "/customers?limit=1&cursor="+cursor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp["docs"].([]any), 1)

	w, _ = s.do(t, "GET", "/customers?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCustomerBadRequests(t *testing.T) {
	s := newServer(t)
	planID := s.createPlan(t, "Basic", 30, "50")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing fields", map[string]any{"name": "Ada"}},
		{"unknown plan", map[string]any{"name": "Ada", "email": "ada@example.com", "subscription_plan_id": id.NewPlanID().String()}},
		{"bad email", map[string]any{"name": "Ada", "email": "nope", "subscription_plan_id": planID}},
		{"malformed plan id", map[string]any{"name": "Ada", "email": "ada@example.com", "subscription_plan_id": "plan"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := s.do(t, "POST", "/customers", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, false, resp["success"])
		})
	}

	req := httptest.NewRequest("POST", "/customers", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePlanMissingFields(t *testing.T) {
	s := newServer(t)
	w, resp := s.do(t, "POST", "/subscription-plan", map[string]any{"name": "Free", "billing_duration": 30})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields: price", resp["message"])
}

func TestSubscriptionChanges(t *testing.T) {
	s := newServer(t)
	basic := s.createPlan(t, "Basic", 30, "50")
	premium := s.createPlan(t, "Premium", 30, "80")
	customerID := s.createCustomer(t, basic)

	s.clock.AdvanceDays(10)
	w, resp := s.do(t, "POST", "/subscriptions/upgrade", map[string]any{"customer_id": customerID, "plan_id": premium})
	require.Equal(t, http.StatusCreated, w.Code, resp)
	inv := data(t, resp)
	assert.Equal(t, "70", inv["amount"])
	assert.Equal(t, true, inv["is_prorated"])

	w, resp = s.do(t, "POST", "/subscriptions/downgrade", map[string]any{"customer_id": customerID, "plan_id": basic})
	require.Equal(t, http.StatusCreated, w.Code, resp)
	assert.Equal(t, "30.00", data(t, resp)["credit"])

	w, _ = s.do(t, "POST", "/subscriptions/upgrade", map[string]any{"customer_id": customerID, "plan_id": id.NewPlanID().String()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, "POST", "/subscribe", map[string]any{"customer_id": customerID, "plan_id": premium})
	assert.Equal(t, http.StatusCreated, w.Code)
	w, _ = s.do(t, "POST", "/subscribe", map[string]any{"customer_id": customerID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = s.do(t, "POST", "/subscriptions/cancel", map[string]any{"customer_id": customerID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", data(t, resp)["subscription_status"])

	w, _ = s.do(t, "POST", "/subscriptions/cancel", map[string]any{"customer_id": id.NewCustomerID().String()})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceAndPaymentFlow(t *testing.T) {
	s := newServer(t)
	planID := s.createPlan(t, "Basic", 30, "50")
	customerID := s.createCustomer(t, planID)

	w, resp := s.do(t, "POST", "/invoices", map[string]any{"customer_id": customerID})
	require.Equal(t, http.StatusCreated, w.Code, resp)
	invoiceID := data(t, resp)["id"].(string)

	w, resp = s.do(t, "GET", "/invoices/"+customerID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	docs := resp["docs"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, "generated", docs[0].(map[string]any)["payment_status"])

	w, resp = s.do(t, "POST", "/payments", map[string]any{"invoice_id": invoiceID, "payment_method": "paypal"})
	require.Equal(t, http.StatusCreated, w.Code, resp)
	assert.Equal(t, "paypal", data(t, resp)["payment_method"])

	w, resp = s.do(t, "POST", "/payments", map[string]any{"invoice_id": invoiceID, "payment_method": "paypal"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])

	w, _ = s.do(t, "POST", "/payments", map[string]any{"invoice_id": invoiceID, "payment_method": "cash"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, "POST", "/payments", map[string]any{"invoice_id": id.NewInvoiceID().String(), "payment_method": "paypal"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, 1, s.mail.Count(notify.KindInvoiceGenerated))
	assert.Equal(t, 1, s.mail.Count(notify.KindPaymentSucceeded))
}

func TestSweepRoutes(t *testing.T) {
	s := newServer(t)
	planID := s.createPlan(t, "Basic", 30, "50")
	customerID := s.createCustomer(t, planID)

	s.clock.AdvanceDays(30)
	w, resp := s.do(t, "POST", "/sweeps/recurring-invoices", nil)
	require.Equal(t, http.StatusOK, w.Code, resp)
	report := data(t, resp)["report"].(map[string]any)
	assert.Equal(t, float64(1), report["invoiced"])

	w, resp = s.do(t, "GET", "/invoices/"+customerID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp["docs"].([]any), 1)

	w, resp = s.do(t, "POST", "/sweeps/reprocess-payments", nil)
	require.Equal(t, http.StatusOK, w.Code, resp)
	report = data(t, resp)["report"].(map[string]any)
	assert.Equal(t, float64(0), report["attempted"])
}

func TestMethodNotAllowed(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest("DELETE", "/customers", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
