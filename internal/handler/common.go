package handler // handler defines http handlers

import (
	"net/http" // status codes
	"strconv"  // path parameter parsing

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/iliyamo/campus-hall-booking/internal/booking"    // error kinds
	"github.com/iliyamo/campus-hall-booking/internal/middleware" // identity helpers
	"github.com/iliyamo/campus-hall-booking/internal/model"      // response shaping
	"github.com/iliyamo/campus-hall-booking/internal/service"    // Actor and Outcome
)

// actor builds the service Actor from the identity JWTAuth stored.
func actor(c echo.Context) service.Actor {
	return service.Actor{Email: middleware.Email(c), Role: middleware.Role(c)}
}

// statusOf maps a domain error kind to its HTTP status.
func statusOf(k booking.Kind) int {
	switch k {
	case booking.KindValidation, booking.KindInvalidTransition:
		return http.StatusBadRequest
	case booking.KindForbidden:
		return http.StatusForbidden
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail renders err.  Errors without a domain kind are handed to the echo
// error handler as a 500 so they are logged with their cause and the
// client only sees a generic message.
func fail(c echo.Context, err error) error {
	status := statusOf(booking.KindOf(err))
	if status == http.StatusInternalServerError {
		return echo.NewHTTPError(status, "internal server error").SetInternal(err)
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

// bind decodes the body into dst and validates it.
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return booking.Validation("invalid body")
	}
	return c.Validate(dst)
}

// bookingID parses the :id path parameter.
func bookingID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, booking.Validation("invalid booking id")
	}
	return id, nil
}

// bookingView adds the legacy status flags to a booking so older clients
// that read activeStatus/verifyStatus/rejectStatus keep working.
type bookingView struct {
	model.Booking
	ActiveStatus bool `json:"activeStatus"`
	VerifyStatus bool `json:"verifyStatus"`
	RejectStatus bool `json:"rejectStatus"`
}

func view(b model.Booking) bookingView {
	v := bookingView{Booking: b}
	v.ActiveStatus, v.VerifyStatus, v.RejectStatus = booking.Flags(b.State)
	return v
}

func views(bs []model.Booking) []bookingView {
	out := make([]bookingView, 0, len(bs))
	for _, b := range bs {
		out = append(out, view(b))
	}
	return out
}

// outcome renders a lifecycle result.  No-ops are 200 with changed=false.
func outcome(c echo.Context, o service.Outcome) error {
	resp := echo.Map{"message": o.Message, "changed": o.Changed}
	if o.Booking != nil {
		resp["booking"] = view(*o.Booking)
	}
	return c.JSON(http.StatusOK, resp)
}

// ErrorHandler renders echo errors with the {"error": ...} body used by
// every handler and logs server-side failures.
func ErrorHandler(logf func(err error, c echo.Context)) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := http.StatusInternalServerError, "internal server error"
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			if s, ok := he.Message.(string); ok {
				msg = s
			} else {
				msg = http.StatusText(status)
			}
		}
		if status >= 500 && logf != nil {
			logf(err, c)
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, echo.Map{"error": msg})
	}
}
