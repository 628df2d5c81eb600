package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cadence/id"
)

func TestSendGridNotify(t *testing.T) {
	var got sgMessage
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sg := NewSendGrid(SendGridConfig{APIKey: "key", URL: srv.URL}, srv.Client())
	invID := id.NewInvoiceID()

	require.NoError(t, sg.Notify(context.Background(), KindPaymentFailed, "ada@example.com", invID))

	assert.Equal(t, "Bearer key", auth)
	assert.Equal(t, "Payment Failed", got.Subject)
	assert.Equal(t, DefaultSender, got.From.Email)
	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, "ada@example.com", got.Personalizations[0].To[0].Email)
	require.Len(t, got.Content, 1)
	assert.Contains(t, got.Content[0].Value, invID.String())
}

func TestSendGridRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sg := NewSendGrid(SendGridConfig{URL: srv.URL}, srv.Client())
	err := sg.Notify(context.Background(), KindInvoiceGenerated, "ada@example.com", id.NewInvoiceID())
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()
	invID := id.NewInvoiceID()

	require.NoError(t, r.Notify(ctx, KindInvoiceGenerated, "a@example.com", invID))
	require.NoError(t, r.Notify(ctx, KindPaymentSucceeded, "a@example.com", invID))
	require.NoError(t, r.Notify(ctx, KindPaymentSucceeded, "b@example.com", invID))

	assert.Equal(t, 1, r.Count(KindInvoiceGenerated))
	assert.Equal(t, 2, r.Count(KindPaymentSucceeded))
	assert.Len(t, r.Messages(), 3)
}

func TestKindSubjects(t *testing.T) {
	assert.Equal(t, "Invoice Generated", KindInvoiceGenerated.Subject())
	assert.Equal(t, "Payment Success", KindPaymentSucceeded.Subject())
	assert.Equal(t, "Payment Failed", KindPaymentFailed.Subject())
}
