package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmicianjur/pelantikan-api/internal/payment"
	"github.com/pmicianjur/pelantikan-api/internal/repository"
	"github.com/pmicianjur/pelantikan-api/internal/service"
)

// fakeGateway scripts both Gateway methods for handler tests.
type fakeGateway struct {
	token     string
	tokenErr  error
	status    payment.Status
	statusErr error

	createCalls int
	lastOrderID string
}

func (g *fakeGateway) CreateToken(_ context.Context, orderID string, _ int64, _ payment.Customer) (string, error) {
	g.createCalls++
	g.lastOrderID = orderID
	return g.token, g.tokenErr
}

func (g *fakeGateway) CheckStatus(_ context.Context, _ string) (payment.Status, error) {
	return g.status, g.statusErr
}

// fakeFinalizer records whether Finalize ran and returns a scripted error.
type fakeFinalizer struct {
	err    error
	called int
	last   payment.Status
}

func (f *fakeFinalizer) Finalize(_ context.Context, st payment.Status) error {
	f.called++
	f.last = st
	return f.err
}

func postJSON(target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWebhookSettledFinalizes(t *testing.T) {
	gw := &fakeGateway{status: payment.Status{
		OrderID:           "ord-1",
		TransactionID:     "txn-1",
		TransactionStatus: "settlement",
	}}
	fin := &fakeFinalizer{}
	h := NewWebhookHandler(gw, fin)

	c, rec := postJSON("/api/midtrans-webhook", `{"order_id":"ord-1","transaction_status":"settlement"}`)
	require.NoError(t, h.Notify(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fin.called)
	assert.Equal(t, "txn-1", fin.last.TransactionID)
}

func TestWebhookCaptureAcceptFinalizes(t *testing.T) {
	gw := &fakeGateway{status: payment.Status{
		OrderID:           "ord-1",
		TransactionID:     "txn-1",
		TransactionStatus: "capture",
		FraudStatus:       "accept",
	}}
	fin := &fakeFinalizer{}
	h := NewWebhookHandler(gw, fin)

	c, rec := postJSON("/api/midtrans-webhook", `{"order_id":"ord-1"}`)
	require.NoError(t, h.Notify(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fin.called)
}

func TestWebhookUnsettledIsAcknowledgedWithoutFinalize(t *testing.T) {
	for _, status := range []string{"pending", "deny", "expire", "cancel"} {
		gw := &fakeGateway{status: payment.Status{OrderID: "ord-1", TransactionStatus: status}}
		fin := &fakeFinalizer{}
		h := NewWebhookHandler(gw, fin)

		c, rec := postJSON("/api/midtrans-webhook", `{"order_id":"ord-1"}`)
		require.NoError(t, h.Notify(c))
		assert.Equal(t, http.StatusOK, rec.Code, status)
		assert.Zero(t, fin.called, status)
	}
}

func TestWebhookMissingOrderID(t *testing.T) {
	h := NewWebhookHandler(&fakeGateway{}, &fakeFinalizer{})
	c, rec := postJSON("/api/midtrans-webhook", `{}`)
	require.NoError(t, h.Notify(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookStatusCheckFailure(t *testing.T) {
	gw := &fakeGateway{statusErr: errors.New("gateway down")}
	fin := &fakeFinalizer{}
	h := NewWebhookHandler(gw, fin)

	c, rec := postJSON("/api/midtrans-webhook", `{"order_id":"ord-1"}`)
	require.NoError(t, h.Notify(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Zero(t, fin.called)
}

func TestWebhookTerminalFinalizeErrorsStillAcknowledge(t *testing.T) {
	// Replays, lost plot races and unknown orders can never succeed on
	// retry, so the handler must answer 200 to stop redelivery.
	for _, err := range []error{
		repository.ErrAlreadyProcessed,
		repository.ErrPlotTaken,
		service.ErrOrderNotFound,
	} {
		gw := &fakeGateway{status: payment.Status{OrderID: "ord-1", TransactionStatus: "settlement"}}
		h := NewWebhookHandler(gw, &fakeFinalizer{err: err})

		c, rec := postJSON("/api/midtrans-webhook", `{"order_id":"ord-1"}`)
		require.NoError(t, h.Notify(c))
		assert.Equal(t, http.StatusOK, rec.Code, err)
	}
}

func TestWebhookTransientFinalizeErrorAsksForRetry(t *testing.T) {
	gw := &fakeGateway{status: payment.Status{OrderID: "ord-1", TransactionStatus: "settlement"}}
	h := NewWebhookHandler(gw, &fakeFinalizer{err: errors.New("db gone")})

	c, rec := postJSON("/api/midtrans-webhook", `{"order_id":"ord-1"}`)
	require.NoError(t, h.Notify(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
