// Package payment abstracts the hosted payment gateway. Handlers depend
// on the Gateway interface; the Midtrans Snap implementation lives in
// midtrans.go and tests substitute their own.
package payment

import (
	"context"
	"errors"
)

// ErrUnconfigured is returned when gateway credentials are missing from
// the environment. The token endpoint maps it to a 500 so deploys with
// absent keys fail loudly instead of silently taking registrations.
var ErrUnconfigured = errors.New("payment gateway credentials not configured")

// Customer identifies the payer shown in the gateway's checkout.
type Customer struct {
	Name  string `json:"first_name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Status is the gateway's view of one transaction, fetched server-side.
type Status struct {
	OrderID           string
	TransactionID     string
	TransactionStatus string
	FraudStatus       string
}

// Settled reports whether the payment reached a terminal success state:
// settlement, or capture accepted by fraud review.
func (s Status) Settled() bool {
	switch s.TransactionStatus {
	case "settlement":
		return true
	case "capture":
		return s.FraudStatus == "accept"
	}
	return false
}

// Gateway is the surface this service needs from a payment provider:
// minting a checkout token for an order and re-checking a transaction's
// status when a notification arrives. Notifications are never trusted on
// their own; CheckStatus is the verification step.
type Gateway interface {
	CreateToken(ctx context.Context, orderID string, grossAmount int64, cust Customer) (string, error)
	CheckStatus(ctx context.Context, orderID string) (Status, error)
}

// Notification is the raw webhook payload the gateway posts. Only the
// fields the finalizer branches on are bound; everything else is ignored.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
}
