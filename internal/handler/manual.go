package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pmicianjur/pelantikan-api/internal/model"
	"github.com/pmicianjur/pelantikan-api/internal/pricing"
	"github.com/pmicianjur/pelantikan-api/internal/repository"
	"github.com/pmicianjur/pelantikan-api/internal/storage"
	"github.com/pmicianjur/pelantikan-api/internal/wizard"
)

// ManualHandler commits a registration paid by bank transfer. Unlike the
// gateway flow there is no webhook: the rows are written immediately in
// WAITING_CONFIRMATION and an admin flips them to PAID after checking
// the uploaded proof against the bank statement.
type ManualHandler struct {
	Store         wizard.Store
	Registrations *repository.RegistrationRepo
	Participants  *repository.ParticipantRepo
	Chaperones    *repository.ChaperoneRepo
	Plots         *repository.PlotRepo
	Photos        storage.PhotoStore
	Schedule      pricing.Schedule
}

// NewManualHandler constructs a ManualHandler. All dependencies must be
// non-nil.
func NewManualHandler(
	store wizard.Store,
	registrations *repository.RegistrationRepo,
	participants *repository.ParticipantRepo,
	chaperones *repository.ChaperoneRepo,
	plots *repository.PlotRepo,
	photos storage.PhotoStore,
	sched pricing.Schedule,
) *ManualHandler {
	if store == nil || registrations == nil || participants == nil ||
		chaperones == nil || plots == nil || photos == nil {
		panic("nil dependency passed to NewManualHandler")
	}
	return &ManualHandler{
		Store:         store,
		Registrations: registrations,
		Participants:  participants,
		Chaperones:    chaperones,
		Plots:         plots,
		Photos:        photos,
		Schedule:      sched,
	}
}

// Create handles POST /api/pendaftaran/manual: a multipart form with the
// draft id under "draft_id" and the transfer proof image under "bukti".
// The submission assembles from the draft exactly as the gateway flow
// does, so both paths enforce the same guards and the same fee schedule.
func (h *ManualHandler) Create(c echo.Context) error {
	draftID := c.FormValue("draft_id")
	if draftID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "draft_id is required"})
	}
	proofFH, err := c.FormFile("bukti")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "proof of payment file is required"})
	}

	ctx := c.Request().Context()
	d, err := h.Store.Get(ctx, draftID)
	if errors.Is(err, wizard.ErrDraftNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "draft not found or expired"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load draft"})
	}

	sub, err := d.Submit(h.Schedule)
	if err != nil {
		var guard *wizard.GuardError
		if errors.As(err, &guard) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": guard.Msg})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to assemble submission"})
	}

	tx, err := h.Registrations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to open transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rec := &repository.RegistrationRecord{
		SchoolName:   sub.SchoolName,
		Supervisor:   sub.Supervisor,
		WhatsApp:     sub.WhatsApp,
		Category:     sub.Category,
		Participants: len(sub.Participants),
		Chaperones:   len(sub.Chaperones),
		TentFee:      sub.TentFee,
		TotalFee:     sub.TotalFee,
		Status:       model.StatusWaitingConfirmation,
	}
	if err := h.Registrations.CreateTx(ctx, tx, rec); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save registration"})
	}

	if sub.PlotID != nil {
		if err := h.Plots.ClaimTx(ctx, tx, *sub.PlotID, rec.ID); err != nil {
			if errors.Is(err, repository.ErrPlotTaken) {
				return c.JSON(http.StatusConflict, echo.Map{"error": "the selected plot was just taken; pick another one"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to book plot"})
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
			url, err := h.Photos.PromotePhoto(ctx, sp.PhotoRef, rec.ID, sp.FullName)
			if err != nil {
				log.Printf("manual: promote photo for %q failed: %v", sp.FullName, err)
			} else {
				p.PhotoURL = &url
				promoted = append(promoted, sp.PhotoRef)
			}
		}
		parts = append(parts, p)
	}
	if err := h.Participants.CreateBulkTx(ctx, tx, parts); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save participants"})
	}

	chaps := make([]model.Chaperone, 0, len(sub.Chaperones))
	for _, name := range sub.Chaperones {
		chaps = append(chaps, model.Chaperone{
			FullName:       name,
			RegistrationID: rec.ID,
			SchoolName:     sub.SchoolName,
		})
	}
	if err := h.Chaperones.CreateBulkTx(ctx, tx, chaps); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save chaperones"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save registration"})
	}
	committed = true

	// Staged copies go away only after the rows are durable; a rollback
	// above leaves them in place for a retried submission.
	for _, key := range promoted {
		if err := h.Photos.RemoveStaged(ctx, key); err != nil {
			log.Printf("manual: remove staged photo %s failed: %v", key, err)
		}
	}

	// The proof upload happens after the commit: storage and MySQL do not
	// share a transaction, so a failed upload compensates by deleting the
	// just-committed rows instead.
	src, err := proofFH.Open()
	if err != nil {
		h.compensate(c, rec.ID)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read proof of payment"})
	}
	defer src.Close()
	proofURL, err := h.Photos.UploadProof(ctx, rec.ID, src, proofFH.Size, proofFH.Header.Get("Content-Type"))
	if err != nil {
		h.compensate(c, rec.ID)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store proof of payment"})
	}
	if err := h.Registrations.UpdateProofURL(ctx, rec.ID, proofURL); err != nil {
		log.Printf("manual: attach proof url to registration %d failed: %v", rec.ID, err)
	}

	_ = h.Store.Delete(ctx, d.ID)

	return c.JSON(http.StatusCreated, echo.Map{
		"id":          rec.ID,
		"status":      model.StatusWaitingConfirmation,
		"total_biaya": rec.TotalFee,
	})
}

// compensate unwinds a committed registration whose proof upload failed:
// delete the row (participants and chaperones cascade) and free its plot.
func (h *ManualHandler) compensate(c echo.Context, registrationID uint64) {
	ctx := c.Request().Context()
	if err := h.Plots.ReleaseByRegistration(ctx, registrationID); err != nil {
		log.Printf("manual: release plot for registration %d failed: %v", registrationID, err)
	}
	if err := h.Registrations.Delete(ctx, registrationID); err != nil {
		log.Printf("manual: delete registration %d failed: %v", registrationID, err)
	}
}
