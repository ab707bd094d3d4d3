package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pmicianjur/pelantikan-api/internal/importer"
	"github.com/pmicianjur/pelantikan-api/internal/model"
	"github.com/pmicianjur/pelantikan-api/internal/payment"
	"github.com/pmicianjur/pelantikan-api/internal/pricing"
	"github.com/pmicianjur/pelantikan-api/internal/storage"
	"github.com/pmicianjur/pelantikan-api/internal/wizard"
)

// PendingCreator stages a submission for the webhook finalizer.
type PendingCreator interface {
	Create(ctx context.Context, txn *model.PendingTransaction) error
}

// DraftHandler exposes the registration wizard over HTTP. Each draft is
// a server-held state machine; the client only ever posts step data and
// asks to advance, so every guard runs server-side.
type DraftHandler struct {
	Store      wizard.Store
	Photos     storage.PhotoStore
	Pending    PendingCreator
	Gateway    payment.Gateway
	Schedule   pricing.Schedule
	PendingTTL time.Duration
}

// NewDraftHandler constructs a DraftHandler. All dependencies must be
// non-nil.
func NewDraftHandler(store wizard.Store, photos storage.PhotoStore, pending PendingCreator, gw payment.Gateway, sched pricing.Schedule, pendingTTL time.Duration) *DraftHandler {
	if store == nil || photos == nil || pending == nil || gw == nil {
		panic("nil dependency passed to NewDraftHandler")
	}
	return &DraftHandler{
		Store:      store,
		Photos:     photos,
		Pending:    pending,
		Gateway:    gw,
		Schedule:   sched,
		PendingTTL: pendingTTL,
	}
}

// draftView is the JSON representation returned to the client: the draft
// plus its live quote, so the fee summary can render without a second
// request.
type draftView struct {
	*wizard.Draft
	StepName string        `json:"step_name"`
	Quote    pricing.Quote `json:"quote"`
}

func (h *DraftHandler) view(d *wizard.Draft) draftView {
	return draftView{Draft: d, StepName: d.Step.String(), Quote: d.Quote(h.Schedule)}
}

// Create handles POST /api/draft. It opens a fresh draft at the first
// step and returns its id; the client carries only that id between
// pages.
func (h *DraftHandler) Create(c echo.Context) error {
	d := wizard.New(uuid.NewString())
	if err := h.Store.Save(c.Request().Context(), d); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save draft"})
	}
	return c.JSON(http.StatusCreated, h.view(d))
}

// Get handles GET /api/draft/:id.
func (h *DraftHandler) Get(c echo.Context) error {
	d, err := h.load(c)
	if d == nil {
		return err
	}
	return c.JSON(http.StatusOK, h.view(d))
}

// draftUpdate carries the writable fields. Pointers distinguish "not
// sent" from zero values so a partial update never clobbers other steps.
type draftUpdate struct {
	SchoolName   *string  `json:"nama_sekolah"`
	Supervisor   *string  `json:"nama_pembina"`
	WhatsApp     *string  `json:"nomor_whatsapp"`
	Category     *string  `json:"kategori"`
	TentOption   *string  `json:"sewa_tenda"`
	TentCapacity *int     `json:"kapasitas_tenda"`
	PlotID       *uint64  `json:"lahan_id"`
	ClearPlot    bool     `json:"clear_lahan,omitempty"`
}

// Update handles PUT /api/draft/:id, merging step data into the draft.
// Changing the tent capacity or category clears the selected plot, since
// the eligible plot set changes with them.
func (h *DraftHandler) Update(c echo.Context) error {
	d, err := h.load(c)
	if d == nil {
		return err
	}
	var body draftUpdate
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.SchoolName != nil {
		d.SchoolName = *body.SchoolName
	}
	if body.Supervisor != nil {
		d.Supervisor = *body.Supervisor
	}
	if body.WhatsApp != nil {
		d.WhatsApp = *body.WhatsApp
	}
	if body.Category != nil {
		cat := model.Category(*body.Category)
		if !cat.Valid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "kategori must be Wira or Madya"})
		}
		if cat != d.Category {
			d.Category = cat
			d.PlotID = nil
		}
	}
	if body.TentOption != nil {
		d.TentOption = pricing.TentOption(*body.TentOption)
	}
	if body.TentCapacity != nil && *body.TentCapacity != d.TentCapacity {
		d.TentCapacity = *body.TentCapacity
		d.PlotID = nil
	}
	if body.PlotID != nil {
		d.PlotID = body.PlotID
	}
	if body.ClearPlot {
		d.PlotID = nil
	}
	if err := h.Store.Save(c.Request().Context(), d); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save draft"})
	}
	return c.JSON(http.StatusOK, h.view(d))
}

// Advance handles POST /api/draft/:id/advance. A guard failure is a 400
// with the shortfall message and leaves the draft untouched.
func (h *DraftHandler) Advance(c echo.Context) error {
	d, err := h.load(c)
	if d == nil {
		return err
	}
	if err := d.Advance(h.Schedule); err != nil {
		var guard *wizard.GuardError
		if errors.As(err, &guard) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": guard.Msg, "step": d.Step.String()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to advance"})
	}
	if err := h.Store.Save(c.Request().Context(), d); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save draft"})
	}
	return c.JSON(http.StatusOK, h.view(d))
}

// Back handles POST /api/draft/:id/back.
func (h *DraftHandler) Back(c echo.Context) error {
	d, err := h.load(c)
	if d == nil {
		return err
	}
	if err := d.Back(); err != nil {
		var guard *wizard.GuardError
		if errors.As(err, &guard) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": guard.Msg, "step": d.Step.String()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to go back"})
	}
	if err := h.Store.Save(c.Request().Context(), d); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save draft"})
	}
	return c.JSON(http.StatusOK, h.view(d))
}

// Import handles POST /api/draft/:id/import: a multipart "file" field
// holding the roster workbook. A re-import replaces the previous roster,
// photo matches included.
func (h *DraftHandler) Import(c echo.Context) error {
	d, err := h.load(c)
	if d == nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "spreadsheet file is required"})
	}
	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read uploaded file"})
	}
	defer src.Close()

	roster, err := importer.ParseRoster(src)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("failed to process spreadsheet: %v", err)})
	}
	d.Roster = *roster
	if err := h.Store.Save(c.Request().Context(), d); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save draft"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"imported_peserta":    len(roster.Participants),
		"imported_pendamping": len(roster.Chaperones),
		"draft":               h.view(d),
	})
}

// UploadPhotos handles POST /api/draft/:id/photos: a multipart batch
// under the "photos" field. Every file is staged to object storage
// first, then matched against the roster by filename; staged files that
// match nobody are removed again. Responds with how many photos matched
// in this call.
func (h *DraftHandler) UploadPhotos(c echo.Context) error {
	d, err := h.load(c)
	if d == nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "multipart form with photos is required"})
	}
	files := form.File["photos"]
	if len(files) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no photos uploaded"})
	}

	ctx := c.Request().Context()
	staged := make([]importer.PhotoFile, 0, len(files))
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			continue
		}
		ref, err := h.Photos.StagePhoto(ctx, trimExt(fh.Filename), src, fh.Size, fh.Header.Get("Content-Type"))
		src.Close()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store photo"})
		}
		staged = append(staged, importer.PhotoFile{Name: fh.Filename, Ref: ref})
	}

	matched := importer.MatchPhotos(&d.Roster, staged)

	// Drop staged objects that matched nobody; losing this cleanup only
	// leaves garbage under pending/, which the retention window bounds.
	used := make(map[string]bool, matched)
	for _, p := range d.Roster.Participants {
		if p.PhotoRef != "" {
			used[p.PhotoRef] = true
		}
	}
	for _, f := range staged {
		if !used[f.Ref] {
			_ = h.Photos.RemoveStaged(ctx, f.Ref)
		}
	}

	if err := h.Store.Save(ctx, d); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save draft"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"matched":   matched,
		"total":     len(d.Roster.Participants),
		"with_foto": d.Roster.MatchedCount(),
	})
}

// Submit handles POST /api/draft/:id/submit: the wizard's terminal
// action. The assembled payload is staged as a pending transaction keyed
// by a generated order id and a checkout token is requested from the
// gateway. Nothing is committed to permanent tables here — that is the
// webhook finalizer's job. On gateway failure the draft survives so the
// registrant can retry.
func (h *DraftHandler) Submit(c echo.Context) error {
	d, err := h.load(c)
	if d == nil {
		return err
	}
	sub, err := d.Submit(h.Schedule)
	if err != nil {
		var guard *wizard.GuardError
		if errors.As(err, &guard) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": guard.Msg})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to assemble submission"})
	}

	payload, err := json.Marshal(sub)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to encode submission"})
	}

	ctx := c.Request().Context()
	orderID := uuid.NewString()
	txn := &model.PendingTransaction{
		OrderID:     orderID,
		Payload:     payload,
		GrossAmount: sub.TotalFee,
		Status:      model.PendingTxnPending,
		ExpiresAt:   time.Now().UTC().Add(h.PendingTTL),
	}
	if err := h.Pending.Create(ctx, txn); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to stage submission"})
	}

	cust := payment.Customer{
		Name:  sub.Supervisor,
		Phone: sub.WhatsApp,
		Email: sub.WhatsApp + "@email.com", // gateway requires an email; registrants have none
	}
	token, err := h.Gateway.CreateToken(ctx, orderID, sub.TotalFee, cust)
	if err != nil {
		if errors.Is(err, payment.ErrUnconfigured) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server configuration error: payment keys missing"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": fmt.Sprintf("failed to obtain payment token: %v", err)})
	}

	// The flow now belongs to the gateway and the webhook; the draft has
	// served its purpose.
	_ = h.Store.Delete(ctx, d.ID)

	return c.JSON(http.StatusOK, echo.Map{
		"order_id":     orderID,
		"token":        token,
		"gross_amount": sub.TotalFee,
	})
}

// load fetches the draft for the :id param, writing the error response
// itself. Callers return its error unchanged.
func (h *DraftHandler) load(c echo.Context) (*wizard.Draft, error) {
	id := c.Param("id")
	if id == "" {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "draft id required"})
	}
	d, err := h.Store.Get(c.Request().Context(), id)
	if errors.Is(err, wizard.ErrDraftNotFound) {
		return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "draft not found or expired"})
	}
	if err != nil {
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load draft"})
	}
	return d, nil
}

// trimExt strips the extension so staged object names carry the bare
// photo name.
func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
