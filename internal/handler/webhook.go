package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pmicianjur/pelantikan-api/internal/payment"
	"github.com/pmicianjur/pelantikan-api/internal/repository"
	"github.com/pmicianjur/pelantikan-api/internal/service"
)

// Finalizer is the commit surface the webhook drives.
type Finalizer interface {
	Finalize(ctx context.Context, st payment.Status) error
}

// WebhookHandler receives the gateway's payment notifications. The
// notification body is never trusted: the handler re-fetches the
// transaction status from the gateway and only then hands a settled
// payment to the finalizer.
type WebhookHandler struct {
	Gateway   payment.Gateway
	Finalizer Finalizer
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(gw payment.Gateway, fin Finalizer) *WebhookHandler {
	if gw == nil || fin == nil {
		panic("nil dependency passed to NewWebhookHandler")
	}
	return &WebhookHandler{Gateway: gw, Finalizer: fin}
}

// Notify handles POST /api/midtrans-webhook.
//
// Response codes steer the gateway's retry behaviour: anything the
// service can never act on (replays, unknown orders, lost plot races)
// is acknowledged with 200 so retries stop, while transient failures
// return 500 so the gateway redelivers.
func (h *WebhookHandler) Notify(c echo.Context) error {
	var n payment.Notification
	if err := c.Bind(&n); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid notification body"})
	}
	if n.OrderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_id is required"})
	}

	ctx := c.Request().Context()
	st, err := h.Gateway.CheckStatus(ctx, n.OrderID)
	if err != nil {
		log.Printf("webhook: status check for order %s failed: %v", n.OrderID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to verify transaction"})
	}
	if !st.Settled() {
		// Pending, denied, expired and cancelled notifications need no
		// action here; the expiry sweeper reclaims abandoned orders.
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}

	err = h.Finalizer.Finalize(ctx, st)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrAlreadyProcessed):
		log.Printf("webhook: replayed notification for order %s ignored", n.OrderID)
	case errors.Is(err, service.ErrOrderNotFound):
		log.Printf("webhook: settled order %s has no pending transaction; needs manual reconciliation", n.OrderID)
	case errors.Is(err, repository.ErrPlotTaken):
		log.Printf("webhook: order %s paid but its plot was taken; needs manual reconciliation", n.OrderID)
	default:
		log.Printf("webhook: finalize order %s failed: %v", n.OrderID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to finalize registration"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
