package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/model"
	"github.com/iliyamo/campus-hall-booking/internal/service"
)

// BookingHandler exposes the booking lifecycle and the availability
// query.
type BookingHandler struct {
	Bookings *service.BookingService
	Avail    *service.AvailabilityService
}

func NewBookingHandler(b *service.BookingService, a *service.AvailabilityService) *BookingHandler {
	if b == nil || a == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: b, Avail: a}
}

type submitReq struct {
	BookingID        int64  `json:"bookingID" validate:"gte=0"`
	HallName         string `json:"hallname" validate:"required"`
	Date             string `json:"date" validate:"required"`
	Slot             string `json:"slot" validate:"required"`
	BookingEmail     string `json:"bookingEmail" validate:"omitempty,email"`
	EventName        string `json:"eventName" validate:"required,max=200"`
	EventDescription string `json:"eventDescription" validate:"max=2000"`
	PosterImage      string `json:"posterImage"`
}

type slotReq struct {
	HallName string `json:"hallname" validate:"required"`
	Date     string `json:"date" validate:"required"`
	Slot     string `json:"slot" validate:"required"`
}

type noteReq struct {
	AcceptanceNote   string `json:"acceptanceNote" validate:"max=1000"`
	RejectionNote    string `json:"rejectionNote" validate:"max=1000"`
	CancellationNote string `json:"cancellationNote" validate:"max=1000"`
}

// Submit handles POST /v1/bookings.
func (h *BookingHandler) Submit(c echo.Context) error {
	var req submitReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	b, err := h.Bookings.Submit(c.Request().Context(), actor(c), service.SubmitRequest{
		BookingID:        req.BookingID,
		HallName:         req.HallName,
		Date:             req.Date,
		Slot:             req.Slot,
		BookingEmail:     req.BookingEmail,
		EventName:        req.EventName,
		EventDescription: req.EventDescription,
		PosterImage:      req.PosterImage,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Booking request submitted, awaiting approval",
		"booking": view(*b),
	})
}

// CheckConflict handles POST /v1/bookings/check-conflict.  A conflict is
// a normal answer, not an error.
func (h *BookingHandler) CheckConflict(c echo.Context) error {
	var req slotReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	res, err := h.Bookings.CheckConflict(c.Request().Context(), req.HallName, req.Date, req.Slot)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Available handles GET /v1/available-halls?date=&slot=&block=.
func (h *BookingHandler) Available(c echo.Context) error {
	halls, err := h.Avail.ListAvailable(c.Request().Context(), c.QueryParam("date"), c.QueryParam("slot"), c.QueryParam("block"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, halls)
}

// Cancel handles PUT /v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return fail(c, err)
	}
	var req noteReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	out, err := h.Bookings.Cancel(c.Request().Context(), actor(c), id, req.CancellationNote)
	if err != nil {
		return fail(c, err)
	}
	return outcome(c, out)
}

// ListConfirmed handles GET /v1/bookings.
func (h *BookingHandler) ListConfirmed(c echo.Context) error {
	bs, err := h.Bookings.ListConfirmed(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, views(bs))
}

// ListForHall handles GET /v1/halls/:name/bookings and its admin twin.
// Anonymous and regular callers only see confirmed bookings.
func (h *BookingHandler) ListForHall(c echo.Context) error {
	bs, err := h.Bookings.ListForHall(c.Request().Context(), actor(c), c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, views(bs))
}

// ListForUser handles GET /v1/users/:email/bookings.
func (h *BookingHandler) ListForUser(c echo.Context) error {
	bs, err := h.Bookings.ListForUser(c.Request().Context(), actor(c), c.Param("email"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, views(bs))
}

// ListAll handles GET /v1/admin/bookings.  The result can be narrowed by
// ?state=PENDING,CONFIRMED or by the legacy activeStatus, verifyStatus
// and rejectStatus flags, which must then all be given.
func (h *BookingHandler) ListAll(c echo.Context) error {
	states, err := statesFilter(c)
	if err != nil {
		return fail(c, err)
	}
	bs, err := h.Bookings.ListAll(c.Request().Context(), states...)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, views(bs))
}

func statesFilter(c echo.Context) ([]model.BookingState, error) {
	if raw := strings.TrimSpace(c.QueryParam("state")); raw != "" {
		var out []model.BookingState
		for _, s := range strings.Split(raw, ",") {
			out = append(out, model.BookingState(strings.ToUpper(strings.TrimSpace(s))))
		}
		return out, nil
	}
	a, v, r := c.QueryParam("activeStatus"), c.QueryParam("verifyStatus"), c.QueryParam("rejectStatus")
	if a == "" && v == "" && r == "" {
		return nil, nil
	}
	active, err1 := strconv.ParseBool(a)
	verify, err2 := strconv.ParseBool(v)
	reject, err3 := strconv.ParseBool(r)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, booking.ErrInvalidFlags
	}
	st, err := booking.StateFromFlags(active, verify, reject)
	if err != nil {
		return nil, err
	}
	return []model.BookingState{st}, nil
}

// Verify handles PUT /v1/admin/bookings/:id/verify.
func (h *BookingHandler) Verify(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return fail(c, err)
	}
	var req noteReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	out, err := h.Bookings.Verify(c.Request().Context(), actor(c), id, req.AcceptanceNote)
	if err != nil {
		return fail(c, err)
	}
	return outcome(c, out)
}

// Reject handles PUT /v1/admin/bookings/:id/reject.
func (h *BookingHandler) Reject(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return fail(c, err)
	}
	var req noteReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	out, err := h.Bookings.Reject(c.Request().Context(), actor(c), id, req.RejectionNote)
	if err != nil {
		return fail(c, err)
	}
	return outcome(c, out)
}

// Block handles PUT /v1/admin/bookings/:id/block.  ?action=block or
// ?action=unblock is explicit; without it the current state is toggled.
func (h *BookingHandler) Block(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, who := c.Request().Context(), actor(c)
	var out service.Outcome
	switch strings.ToLower(c.QueryParam("action")) {
	case "block":
		out, err = h.Bookings.Block(ctx, who, id)
	case "unblock":
		out, err = h.Bookings.Unblock(ctx, who, id)
	case "":
		out, err = h.Bookings.ToggleBlock(ctx, who, id)
	default:
		err = booking.Validation("action must be block or unblock")
	}
	if err != nil {
		return fail(c, err)
	}
	return outcome(c, out)
}
