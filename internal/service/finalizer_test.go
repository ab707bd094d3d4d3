package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmicianjur/pelantikan-api/internal/model"
	"github.com/pmicianjur/pelantikan-api/internal/payment"
	"github.com/pmicianjur/pelantikan-api/internal/queue"
	"github.com/pmicianjur/pelantikan-api/internal/repository"
	"github.com/pmicianjur/pelantikan-api/internal/wizard"
)

// fakePhotoStore records promotions and staged-copy removals.
type fakePhotoStore struct {
	promoted []string
	removed  []string
}

func (f *fakePhotoStore) StagePhoto(_ context.Context, _ string, _ io.Reader, _ int64, _ string) (string, error) {
	return "", nil
}

func (f *fakePhotoStore) PromotePhoto(_ context.Context, stagedKey string, registrationID uint64, fullName string) (string, error) {
	f.promoted = append(f.promoted, stagedKey)
	return fmt.Sprintf("https://storage/peserta/%d/%s.jpg", registrationID, fullName), nil
}

func (f *fakePhotoStore) UploadProof(_ context.Context, _ uint64, _ io.Reader, _ int64, _ string) (string, error) {
	return "", nil
}

func (f *fakePhotoStore) RemoveStaged(_ context.Context, stagedKey string) error {
	f.removed = append(f.removed, stagedKey)
	return nil
}

func newTestFinalizer(t *testing.T) (*Finalizer, sqlmock.Sqlmock, *fakePhotoStore) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	photos := &fakePhotoStore{}
	f := NewFinalizer(
		db,
		repository.NewRegistrationRepo(db),
		repository.NewParticipantRepo(db),
		repository.NewChaperoneRepo(db),
		repository.NewPlotRepo(db),
		repository.NewPendingTransactionRepo(db),
		repository.NewWebhookEventRepo(db),
		photos,
	)
	f.publish = func(context.Context, queue.RegistrationPaidEvent) error { return nil }
	return f, mock, photos
}

func testSubmission(t *testing.T) []byte {
	t.Helper()
	plot := uint64(7)
	payload, err := json.Marshal(wizard.Submission{
		SchoolName: "SMA 1 Cianjur",
		Supervisor: "Pak Joko",
		WhatsApp:   "081234567890",
		Category:   model.CategoryWira,
		Participants: []wizard.SubmissionParticipant{
			{FullName: "Budi Santoso", PhotoRef: "pending/1-budi.jpg"},
			{FullName: "Siti Aminah", PhotoRef: "pending/2-siti.jpg"},
			{FullName: "Andi Wijaya", PhotoRef: "pending/3-andi.jpg"},
		},
		Chaperones:   []string{"Bu Rina"},
		PlotID:       &plot,
		TentCapacity: 20,
		TentFee:      400000,
		TotalFee:     530000,
	})
	require.NoError(t, err)
	return payload
}

func expectPendingLookup(mock sqlmock.Sqlmock, payload []byte) {
	now := time.Now().UTC()
	mock.ExpectQuery("FROM pending_transactions").
		WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"order_id", "payload", "gross_amount", "status", "created_at", "expires_at"},
		).AddRow("ord-1", payload, int64(530000), "PENDING", now, now.Add(24*time.Hour)))
}

func settled() payment.Status {
	return payment.Status{
		OrderID:           "ord-1",
		TransactionID:     "txn-1",
		TransactionStatus: "settlement",
	}
}

// The expectations are ordered, so a passing run proves the commit
// sequence: ledger, registration, plot claim, participants, chaperones,
// pending-transaction completion, commit.
func TestFinalizeCommitSequence(t *testing.T) {
	f, mock, photos := newTestFinalizer(t)
	var published *queue.RegistrationPaidEvent
	f.publish = func(_ context.Context, ev queue.RegistrationPaidEvent) error {
		published = &ev
		return nil
	}

	expectPendingLookup(mock, testSubmission(t))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WithArgs("txn-1", "ord-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO pendaftaran").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("UPDATE lahan").
		WithArgs(uint64(42), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO peserta").
		WillReturnResult(sqlmock.NewResult(1, 3))
	mock.ExpectExec("INSERT INTO pendamping").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE pending_transactions").
		WithArgs("ord-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, f.Finalize(context.Background(), settled()))
	require.NoError(t, mock.ExpectationsWereMet())

	// Staged photos were promoted and their copies removed after commit.
	assert.Equal(t, []string{"pending/1-budi.jpg", "pending/2-siti.jpg", "pending/3-andi.jpg"}, photos.promoted)
	assert.Equal(t, photos.promoted, photos.removed)

	require.NotNil(t, published)
	assert.Equal(t, uint64(42), published.RegistrationID)
	assert.Equal(t, "ord-1", published.OrderID)
	assert.Equal(t, "SMA 1 Cianjur", published.SchoolName)
	assert.Equal(t, 3, published.Participants)
	assert.Equal(t, 1, published.Chaperones)
	assert.Equal(t, uint64(7), published.PlotID)
	assert.Equal(t, int64(530000), published.TotalFee)
}

// A redelivered settlement hits the duplicate-key on the idempotency
// ledger and aborts before any registration row is inserted.
func TestFinalizeReplayShortCircuits(t *testing.T) {
	f, mock, photos := newTestFinalizer(t)

	expectPendingLookup(mock, testSubmission(t))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WithArgs("txn-1", "ord-1").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	err := f.Finalize(context.Background(), settled())
	assert.ErrorIs(t, err, repository.ErrAlreadyProcessed)
	require.NoError(t, mock.ExpectationsWereMet(), "no insert may run after the ledger rejects a replay")
	assert.Empty(t, photos.promoted)
}

// When the conditional plot claim affects zero rows, the whole
// transaction rolls back: the loser's registration row is discarded and
// no participant or chaperone insert ever runs.
func TestFinalizePlotConflictRollsBack(t *testing.T) {
	f, mock, photos := newTestFinalizer(t)

	expectPendingLookup(mock, testSubmission(t))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WithArgs("txn-1", "ord-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO pendaftaran").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("UPDATE lahan").
		WithArgs(uint64(42), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := f.Finalize(context.Background(), settled())
	assert.ErrorIs(t, err, repository.ErrPlotTaken)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, photos.promoted)
	assert.Empty(t, photos.removed)
}

// A failure after photos were already promoted rolls back the rows but
// keeps the staged copies, so a redelivered settlement still finds its
// copy sources.
func TestFinalizeFailureAfterPromoteKeepsStagedPhotos(t *testing.T) {
	f, mock, photos := newTestFinalizer(t)

	expectPendingLookup(mock, testSubmission(t))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WithArgs("txn-1", "ord-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO pendaftaran").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("UPDATE lahan").
		WithArgs(uint64(42), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO peserta").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := f.Finalize(context.Background(), settled())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Len(t, photos.promoted, 3)
	assert.Empty(t, photos.removed)
}

// A settlement whose order id has no pending transaction maps to
// ErrOrderNotFound so the webhook can log and still acknowledge.
func TestFinalizeUnknownOrder(t *testing.T) {
	f, mock, _ := newTestFinalizer(t)

	mock.ExpectQuery("FROM pending_transactions").
		WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"order_id", "payload", "gross_amount", "status", "created_at", "expires_at"},
		))

	err := f.Finalize(context.Background(), settled())
	assert.ErrorIs(t, err, ErrOrderNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
