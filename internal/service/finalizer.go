// Package service implements the server-side commit sequence that turns a
// staged submission into permanent rows once the gateway confirms
// settlement. All durable commitment happens here, asynchronously, driven
// by the webhook — the flow survives the registrant closing their browser
// at any point after the checkout token was issued.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pmicianjur/pelantikan-api/internal/model"
	"github.com/pmicianjur/pelantikan-api/internal/payment"
	"github.com/pmicianjur/pelantikan-api/internal/queue"
	"github.com/pmicianjur/pelantikan-api/internal/repository"
	"github.com/pmicianjur/pelantikan-api/internal/storage"
	"github.com/pmicianjur/pelantikan-api/internal/wizard"
)

// ErrOrderNotFound is returned when a settlement references an order id
// with no pending transaction — typically a webhook that fired after the
// retention window. The handler logs it and still acknowledges 200 so
// the gateway stops retrying; recovering the payment is a manual
// reconciliation task.
var ErrOrderNotFound = errors.New("no pending transaction for order id")

// Finalizer commits confirmed submissions. One instance is shared by the
// webhook handler; it owns no state beyond its dependencies.
type Finalizer struct {
	db            *sql.DB
	registrations *repository.RegistrationRepo
	participants  *repository.ParticipantRepo
	chaperones    *repository.ChaperoneRepo
	plots         *repository.PlotRepo
	pending       *repository.PendingTransactionRepo
	events        *repository.WebhookEventRepo
	photos        storage.PhotoStore

	// publish emits the paid event after commit; a field so tests can
	// observe it without a running broker.
	publish func(ctx context.Context, ev queue.RegistrationPaidEvent) error
}

// NewFinalizer constructs a Finalizer. All dependencies must be non-nil.
func NewFinalizer(
	db *sql.DB,
	registrations *repository.RegistrationRepo,
	participants *repository.ParticipantRepo,
	chaperones *repository.ChaperoneRepo,
	plots *repository.PlotRepo,
	pending *repository.PendingTransactionRepo,
	events *repository.WebhookEventRepo,
	photos storage.PhotoStore,
) *Finalizer {
	if db == nil || registrations == nil || participants == nil || chaperones == nil ||
		plots == nil || pending == nil || events == nil || photos == nil {
		panic("nil dependency passed to NewFinalizer")
	}
	return &Finalizer{
		db:            db,
		registrations: registrations,
		participants:  participants,
		chaperones:    chaperones,
		plots:         plots,
		pending:       pending,
		events:        events,
		photos:        photos,
		publish:       queue.PublishRegistrationPaid,
	}
}

// Finalize runs the commit sequence for a verified settled transaction,
// strictly in order: record the webhook event in the idempotency ledger,
// insert the registration as PAID, claim the plot, promote staged photos,
// bulk-insert participants then chaperones, and mark the pending
// transaction completed. Everything except the photo promotion happens in
// one database transaction, so a plot conflict or any mid-sequence
// failure leaves no permanent rows behind. A replayed settlement returns
// repository.ErrAlreadyProcessed before any row is written.
func (f *Finalizer) Finalize(ctx context.Context, st payment.Status) error {
	txn, err := f.pending.GetPending(ctx, st.OrderID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("load pending transaction: %w", err)
	}

	var sub wizard.Submission
	if err := json.Unmarshal(txn.Payload, &sub); err != nil {
		return fmt.Errorf("decode staged payload: %w", err)
	}

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Ledger first: a redelivered notification aborts here, before any
	// permanent row exists.
	if err := f.events.RecordTx(ctx, tx, st.TransactionID, st.OrderID); err != nil {
		return err
	}

	orderID := st.OrderID
	rec := &repository.RegistrationRecord{
		SchoolName:   sub.SchoolName,
		Supervisor:   sub.Supervisor,
		WhatsApp:     sub.WhatsApp,
		Category:     sub.Category,
		Participants: len(sub.Participants),
		Chaperones:   len(sub.Chaperones),
		TentFee:      sub.TentFee,
		TotalFee:     sub.TotalFee,
		Status:       model.StatusPaid,
		OrderID:      &orderID,
	}
	if err := f.registrations.CreateTx(ctx, tx, rec); err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}

	if sub.PlotID != nil {
		if err := f.plots.ClaimTx(ctx, tx, *sub.PlotID, rec.ID); err != nil {
			// ErrPlotTaken included: the rollback discards the
			// registration row, so the loser commits nothing.
			return err
		}
	}

	parts := make([]model.Participant, 0, len(sub.Participants))
	promoted := make([]string, 0, len(sub.Participants))
	for _, sp := range sub.Participants {
		p := model.Participant{
			FullName:       sp.FullName,
			RegistrationID: rec.ID,
			SchoolName:     sub.SchoolName,
		}
		if sp.PhotoRef != "" {
			url, err := f.photos.PromotePhoto(ctx, sp.PhotoRef, rec.ID, sp.FullName)
			if err != nil {
				// A missing staged photo should not lose a paid
				// registration; the row keeps a nil URL instead.
				log.Printf("finalizer: promote photo for %q failed: %v", sp.FullName, err)
			} else {
				p.PhotoURL = &url
				promoted = append(promoted, sp.PhotoRef)
			}
		}
		parts = append(parts, p)
	}
	if err := f.participants.CreateBulkTx(ctx, tx, parts); err != nil {
		return fmt.Errorf("insert participants: %w", err)
	}

	chaps := make([]model.Chaperone, 0, len(sub.Chaperones))
	for _, name := range sub.Chaperones {
		chaps = append(chaps, model.Chaperone{
			FullName:       name,
			RegistrationID: rec.ID,
			SchoolName:     sub.SchoolName,
		})
	}
	if err := f.chaperones.CreateBulkTx(ctx, tx, chaps); err != nil {
		return fmt.Errorf("insert chaperones: %w", err)
	}

	if err := f.pending.MarkCompletedTx(ctx, tx, st.OrderID); err != nil {
		return fmt.Errorf("complete pending transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true

	// Staged copies are only removed once the rows are durable: a
	// rollback or a redelivered settlement still needs the copy source.
	for _, key := range promoted {
		if err := f.photos.RemoveStaged(ctx, key); err != nil {
			log.Printf("finalizer: remove staged photo %s failed: %v", key, err)
		}
	}

	ev := queue.RegistrationPaidEvent{
		RegistrationID: rec.ID,
		OrderID:        st.OrderID,
		SchoolName:     sub.SchoolName,
		Category:       string(sub.Category),
		Participants:   len(sub.Participants),
		Chaperones:     len(sub.Chaperones),
		TotalFee:       sub.TotalFee,
		PaidAt:         time.Now().UTC().Format(time.RFC3339),
	}
	if sub.PlotID != nil {
		ev.PlotID = *sub.PlotID
	}
	// Best effort: a lost event costs a log line, not a registration.
	_ = f.publish(ctx, ev)

	return nil
}
