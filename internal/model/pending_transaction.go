package model

import "time"

// PendingTransactionStatus enumerates the two states of a staged
// submission: PENDING until the gateway settles, COMPLETED afterwards.
type PendingTransactionStatus string

const (
	PendingTxnPending   PendingTransactionStatus = "PENDING"
	PendingTxnCompleted PendingTransactionStatus = "COMPLETED"
)

// PendingTransaction stages a full submission before any permanent row
// exists. The order id doubles as the gateway order identifier; the
// serialized payload carries everything the finalizer needs (school info,
// rosters with staged photo URLs, plot id, fees) so that nothing is
// committed to permanent tables until the webhook confirms settlement.
// ExpiresAt bounds how long an unpaid stage may linger before the sweeper
// purges it.
type PendingTransaction struct {
	OrderID     string                   `json:"order_id"`
	Payload     []byte                   `json:"-"`
	GrossAmount int64                    `json:"gross_amount"`
	Status      PendingTransactionStatus `json:"status"`
	CreatedAt   time.Time                `json:"created_at"`
	ExpiresAt   time.Time                `json:"expires_at"`
}
