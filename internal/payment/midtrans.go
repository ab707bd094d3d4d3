package payment

import (
	"context"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// Midtrans implements Gateway over the official Midtrans SDK: Snap for
// checkout tokens, Core API for status verification.
type Midtrans struct {
	snap       snap.Client
	core       coreapi.Client
	configured bool
}

// NewMidtrans builds a Midtrans gateway from the server and client keys.
// Both keys must be present; otherwise every call returns ErrUnconfigured
// so the service can still boot and serve the rest of the API.
func NewMidtrans(serverKey, clientKey string, production bool) *Midtrans {
	m := &Midtrans{configured: serverKey != "" && clientKey != ""}
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	if m.configured {
		m.snap.New(serverKey, env)
		m.core.New(serverKey, env)
	}
	return m
}

// CreateToken requests a Snap checkout token for the given order.
func (m *Midtrans) CreateToken(_ context.Context, orderID string, grossAmount int64, cust Customer) (string, error) {
	if !m.configured {
		return "", ErrUnconfigured
	}
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: grossAmount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: cust.Name,
			Phone: cust.Phone,
			Email: cust.Email,
		},
	}
	token, err := m.snap.CreateTransactionToken(req)
	if err != nil {
		return "", err
	}
	return token, nil
}

// CheckStatus re-fetches the transaction from the gateway. This is the
// verify step for webhook notifications: the notification body only
// tells us which order to look at, the authoritative status comes from
// this call.
func (m *Midtrans) CheckStatus(_ context.Context, orderID string) (Status, error) {
	if !m.configured {
		return Status{}, ErrUnconfigured
	}
	resp, err := m.core.CheckTransaction(orderID)
	if err != nil {
		return Status{}, err
	}
	return Status{
		OrderID:           resp.OrderID,
		TransactionID:     resp.TransactionID,
		TransactionStatus: resp.TransactionStatus,
		FraudStatus:       resp.FraudStatus,
	}, nil
}
