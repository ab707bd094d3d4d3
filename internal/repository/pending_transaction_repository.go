package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pmicianjur/pelantikan-api/internal/model"
)

// PendingTransactionRepo provides access to the pending_transactions
// table: the staging area where a full submission waits, serialized,
// until the gateway confirms settlement. Rows carry an expiry so
// abandoned payments do not accumulate forever.
type PendingTransactionRepo struct {
	db *sql.DB
}

// NewPendingTransactionRepo returns a new repo bound to the given database.
func NewPendingTransactionRepo(db *sql.DB) *PendingTransactionRepo {
	return &PendingTransactionRepo{db: db}
}

// Create stages a submission under its generated order id.
func (r *PendingTransactionRepo) Create(ctx context.Context, txn *model.PendingTransaction) error {
	const q = `INSERT INTO pending_transactions (order_id, payload, gross_amount, status, expires_at)
	           VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		txn.OrderID, txn.Payload, txn.GrossAmount, txn.Status, txn.ExpiresAt.UTC())
	return err
}

// GetPending fetches a staged submission still awaiting settlement.
// Returns sql.ErrNoRows when the order id is unknown or already
// completed — the webhook-after-retention case the caller must log and
// acknowledge anyway.
func (r *PendingTransactionRepo) GetPending(ctx context.Context, orderID string) (*model.PendingTransaction, error) {
	const q = `SELECT order_id, payload, gross_amount, status, created_at, expires_at
	           FROM pending_transactions WHERE order_id = ? AND status = 'PENDING'`
	var txn model.PendingTransaction
	err := r.db.QueryRowContext(ctx, q, orderID).Scan(
		&txn.OrderID, &txn.Payload, &txn.GrossAmount, &txn.Status, &txn.CreatedAt, &txn.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// MarkCompletedTx flips a staged submission to COMPLETED within the
// finalizer's transaction, the last step of the commit sequence.
func (r *PendingTransactionRepo) MarkCompletedTx(ctx context.Context, tx *sql.Tx, orderID string) error {
	const q = `UPDATE pending_transactions SET status = 'COMPLETED' WHERE order_id = ?`
	_, err := tx.ExecContext(ctx, q, orderID)
	return err
}

// DeleteExpired purges staged submissions whose expiry has passed without
// settlement. Returns the number purged.
func (r *PendingTransactionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM pending_transactions WHERE status = 'PENDING' AND expires_at < ?`
	res, err := r.db.ExecContext(ctx, q, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
