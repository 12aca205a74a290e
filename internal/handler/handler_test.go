package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/model"
)

func TestRequestValidatorUsesJSONNames(t *testing.T) {
	v := NewRequestValidator()

	err := v.Validate(&submitReq{HallName: "Auditorium", Date: "2026-03-03", EventName: "x"})
	require.Error(t, err)
	assert.Equal(t, booking.KindValidation, booking.KindOf(err))
	assert.Equal(t, "slot is required", err.Error())

	// slot casing is normalised by the booking package, not the validator
	assert.NoError(t, v.Validate(&submitReq{HallName: "Auditorium", Date: "2026-03-03", Slot: "FN", EventName: "x"}))

	err = v.Validate(&loginReq{Email: "not-an-email", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, "email must be a valid email", err.Error())

	assert.NoError(t, v.Validate(&announcementReq{Title: "t", Message: "m", Validity: 2}))
}

func TestStatusOf(t *testing.T) {
	cases := map[booking.Kind]int{
		booking.KindValidation:        http.StatusBadRequest,
		booking.KindInvalidTransition: http.StatusBadRequest,
		booking.KindForbidden:         http.StatusForbidden,
		booking.KindNotFound:          http.StatusNotFound,
		booking.KindConflict:          http.StatusConflict,
		0:                             http.StatusInternalServerError,
	}
	for k, want := range cases {
		assert.Equal(t, want, statusOf(k), "kind %d", k)
	}
}

func TestStatesFilter(t *testing.T) {
	e := echo.New()
	ctx := func(q string) echo.Context {
		return e.NewContext(httptest.NewRequest(http.MethodGet, "/x?"+q, nil), httptest.NewRecorder())
	}

	got, err := statesFilter(ctx(""))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = statesFilter(ctx("state=pending,confirmed"))
	require.NoError(t, err)
	assert.Equal(t, []model.BookingState{model.StatePending, model.StateConfirmed}, got)

	got, err = statesFilter(ctx("activeStatus=true&verifyStatus=false&rejectStatus=false"))
	require.NoError(t, err)
	assert.Equal(t, []model.BookingState{model.StatePending}, got)

	_, err = statesFilter(ctx("activeStatus=true"))
	assert.ErrorIs(t, err, booking.ErrInvalidFlags)
}

func TestFailHidesInternalErrors(t *testing.T) {
	e := echo.New()
	var logged error
	e.HTTPErrorHandler = ErrorHandler(func(err error, _ echo.Context) { logged = err })
	e.GET("/boom", func(c echo.Context) error { return fail(c, errors.New("dial tcp: refused")) })
	e.GET("/gone", func(c echo.Context) error { return fail(c, booking.ErrBookingNotFound) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	require.Error(t, logged)
	assert.Contains(t, logged.Error(), "dial tcp")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gone", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"booking not found"}`, rec.Body.String())
}

func TestViewCarriesLegacyFlags(t *testing.T) {
	v := view(model.Booking{BookingID: 7, State: model.StateCancelledByAdmin})
	assert.False(t, v.ActiveStatus)
	assert.True(t, v.VerifyStatus)
	assert.False(t, v.RejectStatus)
}
