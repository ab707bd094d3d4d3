package repository

import (
	"context"
	"database/sql"

	"github.com/pmicianjur/pelantikan-api/internal/model"
)

// ChaperoneRepo provides access to the pendamping table. Same bulk-only
// write pattern as participants, minus the photo column.
type ChaperoneRepo struct {
	db *sql.DB
}

// NewChaperoneRepo returns a new ChaperoneRepo bound to the given database.
func NewChaperoneRepo(db *sql.DB) *ChaperoneRepo { return &ChaperoneRepo{db: db} }

// CreateBulkTx inserts all chaperones of one registration in a single
// statement within the provided transaction. An empty slice is a no-op.
func (r *ChaperoneRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, chaps []model.Chaperone) error {
	if len(chaps) == 0 {
		return nil
	}
	query := `INSERT INTO pendamping (nama_lengkap, pendaftaran_id, nama_sekolah) VALUES `
	args := make([]interface{}, 0, len(chaps)*3)
	for i, ch := range chaps {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, ch.FullName, ch.RegistrationID, ch.SchoolName)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ListByRegistration returns a registration's chaperones in insertion
// order for the admin roster view.
func (r *ChaperoneRepo) ListByRegistration(ctx context.Context, registrationID uint64) ([]model.Chaperone, error) {
	const q = `SELECT id, nama_lengkap, pendaftaran_id, nama_sekolah
	           FROM pendamping WHERE pendaftaran_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chaps := make([]model.Chaperone, 0)
	for rows.Next() {
		var ch model.Chaperone
		if err := rows.Scan(&ch.ID, &ch.FullName, &ch.RegistrationID, &ch.SchoolName); err != nil {
			return nil, err
		}
		chaps = append(chaps, ch)
	}
	return chaps, rows.Err()
}
