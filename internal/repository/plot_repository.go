package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pmicianjur/pelantikan-api/internal/model"
)

// PlotRepo provides access to the lahan table. Plots are seeded by the
// committee before registration opens; this service only ever reads them
// and flips their owning registration.
type PlotRepo struct {
	db *sql.DB
}

// NewPlotRepo returns a new PlotRepo bound to the given database.
func NewPlotRepo(db *sql.DB) *PlotRepo { return &PlotRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *PlotRepo) DB() *sql.DB { return r.db }

// ListAvailable returns every plot matching the category exactly and
// whose maximum capacity equals (not merely covers) the requested value.
// The exact-capacity match is policy, not an oversight: allocation maps
// one tent size to one plot size. Booked plots are included with their
// owner set so the client can grey them out.
func (r *PlotRepo) ListAvailable(ctx context.Context, category model.Category, capacity int) ([]model.Plot, error) {
	const q = `SELECT id, nomor_lahan, kategori, kapasitas_maks, pendaftaran_id
	           FROM lahan
	           WHERE kategori = ? AND kapasitas_maks = ?
	           ORDER BY nomor_lahan`
	rows, err := r.db.QueryContext(ctx, q, category, capacity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plots := make([]model.Plot, 0)
	for rows.Next() {
		var p model.Plot
		var owner sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Number, &p.Category, &p.MaxCapacity, &owner); err != nil {
			return nil, err
		}
		if owner.Valid {
			id := uint64(owner.Int64)
			p.RegistrationID = &id
		}
		plots = append(plots, p)
	}
	return plots, rows.Err()
}

// ClaimTx books a plot for a registration with a single conditional
// update: the write succeeds only while the plot is still unowned. Under
// concurrent selection of the same plot at most one caller's update
// affects a row; the loser gets ErrPlotTaken. This is the only guard on
// the at-most-one-owner invariant, so the zero-rows branch is mandatory.
func (r *PlotRepo) ClaimTx(ctx context.Context, tx *sql.Tx, plotID, registrationID uint64) error {
	const q = `UPDATE lahan SET pendaftaran_id = ? WHERE id = ? AND pendaftaran_id IS NULL`
	res, err := tx.ExecContext(ctx, q, registrationID, plotID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPlotTaken
	}
	return nil
}

// ReleaseByRegistration frees every plot owned by the given registration.
// Used when a registration is removed and by the orphan sweeper.
func (r *PlotRepo) ReleaseByRegistration(ctx context.Context, registrationID uint64) error {
	const q = `UPDATE lahan SET pendaftaran_id = NULL WHERE pendaftaran_id = ?`
	_, err := r.db.ExecContext(ctx, q, registrationID)
	return err
}

// ReleaseOrphans frees plots whose owning registration has been stuck in
// PENDING_PAYMENT longer than the cutoff, then deletes those stale
// registrations. Returns how many plots were released.
//
// The API never writes PENDING_PAYMENT rows itself (gateway submissions
// stay in pending_transactions until settlement); this sweep covers rows
// seeded by migrations from the previous flow or inserted by operators,
// so an imported stale row cannot pin a plot forever.
func (r *PlotRepo) ReleaseOrphans(ctx context.Context, cutoff time.Time) (int64, error) {
	const rel = `UPDATE lahan l
	             JOIN pendaftaran p ON p.id = l.pendaftaran_id
	             SET l.pendaftaran_id = NULL
	             WHERE p.status = 'PENDING_PAYMENT' AND p.created_at < ?`
	res, err := r.db.ExecContext(ctx, rel, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	released, _ := res.RowsAffected()
	const del = `DELETE FROM pendaftaran WHERE status = 'PENDING_PAYMENT' AND created_at < ?`
	if _, err := r.db.ExecContext(ctx, del, cutoff.UTC()); err != nil {
		return released, err
	}
	return released, nil
}
