package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pmicianjur/pelantikan-api/internal/model"
)

// RegistrationRepo provides CRUD operations for the pendaftaran table.
// Webhook-committed rows are created inside the finalizer's transaction;
// the manual-transfer flow inserts directly. All timestamps are UTC.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *RegistrationRepo) DB() *sql.DB { return r.db }

// RegistrationRecord mirrors the schema of the pendaftaran table. It is
// used when constructing or scanning rows; business logic should use
// model.Registration instead.
type RegistrationRecord struct {
	ID           uint64
	SchoolName   string
	Supervisor   string
	WhatsApp     string
	Category     model.Category
	Participants int
	Chaperones   int
	TentFee      int64
	TotalFee     int64
	Status       model.RegistrationStatus
	ProofURL     *string
	OrderID      *string
	CreatedAt    time.Time
}

const registrationCols = `id, nama_sekolah, nama_pembina, nomor_whatsapp, kategori,
	jumlah_peserta, jumlah_pendamping, biaya_sewa_tenda, total_biaya,
	status, bukti_pembayaran_url, order_id, created_at`

// CreateTx inserts a registration within an existing transaction and
// populates the generated ID on the record. The caller commits or rolls
// back. Used by the webhook finalizer, which creates rows directly in
// PAID with the gateway order id attached.
func (r *RegistrationRepo) CreateTx(ctx context.Context, tx *sql.Tx, rec *RegistrationRecord) error {
	const q = `INSERT INTO pendaftaran
	           (nama_sekolah, nama_pembina, nomor_whatsapp, kategori,
	            jumlah_peserta, jumlah_pendamping, biaya_sewa_tenda, total_biaya,
	            status, bukti_pembayaran_url, order_id)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		rec.SchoolName, rec.Supervisor, rec.WhatsApp, rec.Category,
		rec.Participants, rec.Chaperones, rec.TentFee, rec.TotalFee,
		rec.Status, rec.ProofURL, rec.OrderID,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

// Create inserts a registration outside any transaction. Used by the
// manual-transfer flow, which is born WAITING_CONFIRMATION with its
// proof-of-payment URL already attached.
func (r *RegistrationRepo) Create(ctx context.Context, rec *RegistrationRecord) error {
	const q = `INSERT INTO pendaftaran
	           (nama_sekolah, nama_pembina, nomor_whatsapp, kategori,
	            jumlah_peserta, jumlah_pendamping, biaya_sewa_tenda, total_biaya,
	            status, bukti_pembayaran_url, order_id)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		rec.SchoolName, rec.Supervisor, rec.WhatsApp, rec.Category,
		rec.Participants, rec.Chaperones, rec.TentFee, rec.TotalFee,
		rec.Status, rec.ProofURL, rec.OrderID,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

// GetByID returns one registration or sql.ErrNoRows.
func (r *RegistrationRepo) GetByID(ctx context.Context, id uint64) (*model.Registration, error) {
	const q = `SELECT ` + registrationCols + ` FROM pendaftaran WHERE id = ?`
	return scanRegistration(r.db.QueryRowContext(ctx, q, id))
}

// List returns all registrations ordered newest-first for the admin
// dashboard.
func (r *RegistrationRepo) List(ctx context.Context) ([]model.Registration, error) {
	const q = `SELECT ` + registrationCols + ` FROM pendaftaran ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := make([]model.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

// UpdateStatus flips a registration's status. Zero rows affected maps to
// sql.ErrNoRows so handlers answer 404 for unknown ids. Two admins
// racing on the same row are last-write-wins; there is no version check.
func (r *RegistrationRepo) UpdateStatus(ctx context.Context, id uint64, status model.RegistrationStatus) error {
	const q = `UPDATE pendaftaran SET status = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateProofURL attaches the proof-of-payment URL after the upload
// succeeded. The manual-transfer flow inserts the row first and patches
// the URL in once storage confirms the object.
func (r *RegistrationRepo) UpdateProofURL(ctx context.Context, id uint64, url string) error {
	const q = `UPDATE pendaftaran SET bukti_pembayaran_url = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, url, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a registration. The manual-transfer flow uses it as the
// compensating action when its plot claim loses the race after the row
// was already inserted; this is the only path that hard-deletes.
func (r *RegistrationRepo) Delete(ctx context.Context, id uint64) error {
	const q = `DELETE FROM pendaftaran WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var reg model.Registration
	var proof, order sql.NullString
	if err := row.Scan(
		&reg.ID, &reg.SchoolName, &reg.Supervisor, &reg.WhatsApp, &reg.Category,
		&reg.Participants, &reg.Chaperones, &reg.TentFee, &reg.TotalFee,
		&reg.Status, &proof, &order, &reg.CreatedAt,
	); err != nil {
		return nil, err
	}
	if proof.Valid {
		p := proof.String
		reg.ProofURL = &p
	}
	if order.Valid {
		o := order.String
		reg.OrderID = &o
	}
	return &reg, nil
}
