package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pmicianjur/pelantikan-api/internal/payment"
)

// PaymentHandler mints checkout tokens for an already-staged order. The
// wizard's submit endpoint does this inline; this endpoint exists for
// clients that stage the order first and open the checkout later, e.g.
// a "retry payment" button.
type PaymentHandler struct {
	Gateway payment.Gateway
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(gw payment.Gateway) *PaymentHandler {
	if gw == nil {
		panic("nil Gateway passed to NewPaymentHandler")
	}
	return &PaymentHandler{Gateway: gw}
}

type createTransactionRequest struct {
	OrderID     string           `json:"order_id"`
	GrossAmount int64            `json:"gross_amount"`
	Customer    payment.Customer `json:"customer_details"`
}

// CreateTransaction handles POST /api/create-midtrans-transaction. It
// validates the order parameters and asks the gateway for a Snap token.
// Missing gateway credentials are a deployment defect and reported as a
// 500, never swallowed.
func (h *PaymentHandler) CreateTransaction(c echo.Context) error {
	var req createTransactionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.OrderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_id is required"})
	}
	if req.GrossAmount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "gross_amount must be positive"})
	}
	if req.Customer.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer_details.first_name is required"})
	}

	token, err := h.Gateway.CreateToken(c.Request().Context(), req.OrderID, req.GrossAmount, req.Customer)
	if err != nil {
		if errors.Is(err, payment.ErrUnconfigured) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server configuration error: payment keys missing"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to obtain payment token"})
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}
