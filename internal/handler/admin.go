package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pmicianjur/pelantikan-api/internal/middleware"
	"github.com/pmicianjur/pelantikan-api/internal/model"
	"github.com/pmicianjur/pelantikan-api/internal/queue"
	"github.com/pmicianjur/pelantikan-api/internal/repository"
	"github.com/pmicianjur/pelantikan-api/internal/utils"
)

// adminSessionTTL bounds how long a login cookie stays valid.
const adminSessionTTL = 24 * time.Hour

// pendaftarRoute is the admin listing route whose cached response the
// status mutations invalidate.
const pendaftarRoute = "/api/admin/pendaftar"

// AdminHandler serves the committee's review dashboard: the shared
// password login, the registration listing and the status mutations for
// manual-transfer confirmation.
type AdminHandler struct {
	Registrations *repository.RegistrationRepo
	Participants  *repository.ParticipantRepo
	Chaperones    *repository.ChaperoneRepo
	Cache         *middleware.Cache
	PasswordHash  string
	SessionSecret string
	SecureCookies bool
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(
	registrations *repository.RegistrationRepo,
	participants *repository.ParticipantRepo,
	chaperones *repository.ChaperoneRepo,
	cache *middleware.Cache,
	passwordHash, sessionSecret string,
	secureCookies bool,
) *AdminHandler {
	if registrations == nil || participants == nil || chaperones == nil || cache == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{
		Registrations: registrations,
		Participants:  participants,
		Chaperones:    chaperones,
		Cache:         cache,
		PasswordHash:  passwordHash,
		SessionSecret: sessionSecret,
		SecureCookies: secureCookies,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login handles POST /api/admin/login. Admin access is one shared
// password checked against a bcrypt hash from the environment; a match
// mints a signed session cookie scoped to the admin route tree.
func (h *AdminHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password is required"})
	}
	if !utils.VerifyPassword(h.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "wrong password"})
	}
	sess, err := utils.NewAdminSession(h.SessionSecret, adminSessionTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create session"})
	}
	c.SetCookie(&http.Cookie{
		Name:     utils.AdminCookieName,
		Value:    sess.Token,
		Path:     "/api/admin",
		Expires:  sess.Exp,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Logout handles POST /api/admin/logout by expiring the session cookie.
func (h *AdminHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     utils.AdminCookieName,
		Value:    "",
		Path:     "/api/admin",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// List handles GET /api/admin/pendaftar, newest first.
func (h *AdminHandler) List(c echo.Context) error {
	regs, err := h.Registrations.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load registrations"})
	}
	return c.JSON(http.StatusOK, regs)
}

// Detail handles GET /api/admin/pendaftar/:id: the registration with its
// full participant and chaperone rosters, for the review drill-down.
func (h *AdminHandler) Detail(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	ctx := c.Request().Context()
	reg, err := h.Registrations.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load registration"})
	}
	parts, err := h.Participants.ListByRegistration(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load participants"})
	}
	chaps, err := h.Chaperones.ListByRegistration(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load chaperones"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"pendaftaran": reg,
		"peserta":     parts,
		"pendamping":  chaps,
	})
}

// Approve handles POST /api/admin/pendaftar/:id/approve: the admin has
// verified a manual transfer against the bank statement, so the row
// moves to PAID and the paid event goes onto the queue like a gateway
// settlement would.
func (h *AdminHandler) Approve(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	ctx := c.Request().Context()
	reg, err := h.Registrations.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load registration"})
	}
	if err := h.Registrations.UpdateStatus(ctx, id, model.StatusPaid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update status"})
	}
	h.Cache.Invalidate(ctx, pendaftarRoute)

	ev := queue.RegistrationPaidEvent{
		RegistrationID: reg.ID,
		SchoolName:     reg.SchoolName,
		Category:       string(reg.Category),
		Participants:   reg.Participants,
		Chaperones:     reg.Chaperones,
		TotalFee:       reg.TotalFee,
		PaidAt:         time.Now().UTC().Format(time.RFC3339),
	}
	if reg.OrderID != nil {
		ev.OrderID = *reg.OrderID
	}
	if err := queue.PublishRegistrationPaid(ctx, ev); err != nil {
		log.Printf("admin: publish paid event for registration %d failed: %v", reg.ID, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": model.StatusPaid})
}

// Revert handles POST /api/admin/pendaftar/:id/revert, undoing a
// mistaken approval back to WAITING_CONFIRMATION.
func (h *AdminHandler) Revert(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	ctx := c.Request().Context()
	if err := h.Registrations.UpdateStatus(ctx, id, model.StatusWaitingConfirmation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update status"})
	}
	h.Cache.Invalidate(ctx, pendaftarRoute)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": model.StatusWaitingConfirmation})
}

// RejectLink handles GET /api/admin/pendaftar/:id/reject-link. Rejection
// is a conversation, not a status: the endpoint builds a prefilled
// WhatsApp link so the admin can tell the school what was wrong with
// their transfer. Nothing is mutated.
func (h *AdminHandler) RejectLink(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	reg, err := h.Registrations.GetByID(c.Request().Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load registration"})
	}

	msg := fmt.Sprintf(
		"Halo %s, kami dari panitia pelantikan. Mohon maaf, bukti pembayaran untuk pendaftaran %s belum dapat kami verifikasi. Mohon kirim ulang bukti transfer yang valid. Terima kasih.",
		reg.Supervisor, reg.SchoolName,
	)
	link := fmt.Sprintf("https://wa.me/%s?text=%s", normalizePhone(reg.WhatsApp), url.QueryEscape(msg))
	return c.JSON(http.StatusOK, echo.Map{"url": link})
}

func paramID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// normalizePhone converts an Indonesian local number to the
// international digits wa.me expects: strip everything non-numeric and
// replace a leading 0 with 62.
func normalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "0") {
		return "62" + digits[1:]
	}
	return digits
}
