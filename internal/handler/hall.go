package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-hall-booking/internal/service"
)

// HallHandler exposes the hall catalogue and its admin management.
type HallHandler struct {
	Halls *service.HallService
}

func NewHallHandler(h *service.HallService) *HallHandler { return &HallHandler{Halls: h} }

type hallReq struct {
	Name               string `json:"name" validate:"max=100"`
	Block              string `json:"block" validate:"max=20"`
	Capacity           int    `json:"capacity" validate:"gte=0"`
	Location           string `json:"location" validate:"max=200"`
	Description        string `json:"description" validate:"max=2000"`
	LaptopCharging     bool   `json:"laptopCharging"`
	ProjectorAvailable bool   `json:"projectorAvailable"`
	ProjectorCount     int    `json:"projectorCount" validate:"gte=0"`
	Image              string `json:"image"`
}

func (r hallReq) input() service.HallInput {
	return service.HallInput{
		Name:               r.Name,
		Block:              r.Block,
		Capacity:           r.Capacity,
		Location:           r.Location,
		Description:        r.Description,
		LaptopCharging:     r.LaptopCharging,
		ProjectorAvailable: r.ProjectorAvailable,
		ProjectorCount:     r.ProjectorCount,
		Image:              r.Image,
	}
}

// List handles GET /v1/halls?block=.  Blocked halls are hidden unless
// ?includeBlocked=true.
func (h *HallHandler) List(c echo.Context) error {
	all, _ := strconv.ParseBool(c.QueryParam("includeBlocked"))
	halls, err := h.Halls.List(c.Request().Context(), c.QueryParam("block"), all)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, halls)
}

// Get handles GET /v1/halls/:name.
func (h *HallHandler) Get(c echo.Context) error {
	hall, err := h.Halls.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, hall)
}

// Blocks handles GET /v1/blocks.
func (h *HallHandler) Blocks(c echo.Context) error {
	blocks, err := h.Halls.Blocks(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, blocks)
}

// Create handles POST /v1/admin/halls.
func (h *HallHandler) Create(c echo.Context) error {
	var req hallReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	hall, err := h.Halls.Create(c.Request().Context(), actor(c), req.input())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Hall added successfully", "hall": hall})
}

// Update handles PUT /v1/admin/halls/:name.
func (h *HallHandler) Update(c echo.Context) error {
	var req hallReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	hall, err := h.Halls.Update(c.Request().Context(), actor(c), c.Param("name"), req.input())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Hall updated successfully", "hall": hall})
}

// ToggleBlock handles PUT /v1/admin/halls/:name/block.
func (h *HallHandler) ToggleBlock(c echo.Context) error {
	hall, err := h.Halls.ToggleBlock(c.Request().Context(), actor(c), c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	msg := "Hall unblocked"
	if hall.BlockStatus {
		msg = "Hall blocked"
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg, "hall": hall})
}

// Delete handles DELETE /v1/admin/halls/:name.
func (h *HallHandler) Delete(c echo.Context) error {
	if err := h.Halls.Delete(c.Request().Context(), actor(c), c.Param("name")); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Hall deleted successfully"})
}
