package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// WebhookEventRepo is the idempotency ledger for gateway notifications.
// The transaction id is the primary key, so recording a redelivered
// settlement fails with a duplicate-key error that callers receive as
// ErrAlreadyProcessed.
type WebhookEventRepo struct {
	db *sql.DB
}

// NewWebhookEventRepo returns a new repo bound to the given database.
func NewWebhookEventRepo(db *sql.DB) *WebhookEventRepo { return &WebhookEventRepo{db: db} }

const mysqlErrDuplicateEntry = 1062

// RecordTx inserts the gateway transaction id into the ledger within the
// finalizer's transaction. Doing this first makes the whole commit
// sequence exactly-once: a replay aborts here before any permanent row
// is written.
func (r *WebhookEventRepo) RecordTx(ctx context.Context, tx *sql.Tx, transactionID, orderID string) error {
	const q = `INSERT INTO webhook_events (transaction_id, order_id) VALUES (?, ?)`
	_, err := tx.ExecContext(ctx, q, transactionID, orderID)
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry {
		return ErrAlreadyProcessed
	}
	return err
}
