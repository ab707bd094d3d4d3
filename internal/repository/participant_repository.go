package repository

import (
	"context"
	"database/sql"

	"github.com/pmicianjur/pelantikan-api/internal/model"
)

// ParticipantRepo provides access to the peserta table. Participants are
// only ever written in bulk, after the owning registration id exists.
type ParticipantRepo struct {
	db *sql.DB
}

// NewParticipantRepo returns a new ParticipantRepo bound to the given database.
func NewParticipantRepo(db *sql.DB) *ParticipantRepo { return &ParticipantRepo{db: db} }

// CreateBulkTx inserts all participants of one registration in a single
// statement within the provided transaction. Passing an empty slice has
// no effect and returns nil.
func (r *ParticipantRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, parts []model.Participant) error {
	if len(parts) == 0 {
		return nil
	}
	query := `INSERT INTO peserta (nama_lengkap, foto_url, pendaftaran_id, nama_sekolah) VALUES `
	args := make([]interface{}, 0, len(parts)*4)
	for i, p := range parts {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, p.FullName, p.PhotoURL, p.RegistrationID, p.SchoolName)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ListByRegistration returns a registration's participants in insertion
// order for the admin roster view.
func (r *ParticipantRepo) ListByRegistration(ctx context.Context, registrationID uint64) ([]model.Participant, error) {
	const q = `SELECT id, nama_lengkap, foto_url, pendaftaran_id, nama_sekolah
	           FROM peserta WHERE pendaftaran_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parts := make([]model.Participant, 0)
	for rows.Next() {
		var p model.Participant
		var photo sql.NullString
		if err := rows.Scan(&p.ID, &p.FullName, &photo, &p.RegistrationID, &p.SchoolName); err != nil {
			return nil, err
		}
		if photo.Valid {
			u := photo.String
			p.PhotoURL = &u
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}
