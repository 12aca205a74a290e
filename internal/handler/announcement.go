package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/model"
	"github.com/iliyamo/campus-hall-booking/internal/service"
)

// AnnouncementHandler exposes announcements.  Expiry is computed when
// listing; nothing is deleted implicitly.
type AnnouncementHandler struct {
	Announcements *service.AnnouncementService
	Now           func() time.Time
}

func NewAnnouncementHandler(a *service.AnnouncementService, now func() time.Time) *AnnouncementHandler {
	if now == nil {
		now = time.Now
	}
	return &AnnouncementHandler{Announcements: a, Now: now}
}

type announcementReq struct {
	Title      string `json:"title" validate:"required,max=200"`
	Message    string `json:"message" validate:"required,max=5000"`
	Validity   int    `json:"validity" validate:"gt=0"`
	NotifyMail bool   `json:"notifyMail"`
}

type announcementView struct {
	model.Announcement
	Expired bool `json:"expired"`
}

// List handles GET /v1/announcements.
func (h *AnnouncementHandler) List(c echo.Context) error {
	as, err := h.Announcements.List(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	now := h.Now()
	out := make([]announcementView, 0, len(as))
	for _, a := range as {
		out = append(out, announcementView{Announcement: a, Expired: a.Expired(now)})
	}
	return c.JSON(http.StatusOK, out)
}

// Create handles POST /v1/admin/announcements.
func (h *AnnouncementHandler) Create(c echo.Context) error {
	var req announcementReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	a, err := h.Announcements.Create(c.Request().Context(), actor(c), service.AnnouncementInput{
		Title:      req.Title,
		Message:    req.Message,
		Validity:   req.Validity,
		NotifyMail: req.NotifyMail,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Announcement created", "announcement": a})
}

// Delete handles DELETE /v1/admin/announcements/:id?force=true.
func (h *AnnouncementHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return fail(c, booking.Validation("invalid announcement id"))
	}
	force, _ := strconv.ParseBool(c.QueryParam("force"))
	if err := h.Announcements.Delete(c.Request().Context(), id, force); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Announcement deleted"})
}
