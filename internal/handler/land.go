package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pmicianjur/pelantikan-api/internal/model"
)

// PlotLister is the read surface the land endpoint needs.
type PlotLister interface {
	ListAvailable(ctx context.Context, category model.Category, capacity int) ([]model.Plot, error)
}

// LandHandler serves the site-map availability query.
type LandHandler struct {
	Plots PlotLister
}

// NewLandHandler constructs a LandHandler.
func NewLandHandler(plots PlotLister) *LandHandler {
	if plots == nil {
		panic("nil PlotLister passed to NewLandHandler")
	}
	return &LandHandler{Plots: plots}
}

// List handles GET /api/lahan?kategori=&kapasitas=. Both parameters are
// required; capacity is matched exactly, not as a minimum. Booked plots
// are returned with their owner set so the client can grey them out.
func (h *LandHandler) List(c echo.Context) error {
	kategori := c.QueryParam("kategori")
	kapasitas := c.QueryParam("kapasitas")
	if kategori == "" || kapasitas == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "parameters kategori and kapasitas are required"})
	}
	category := model.Category(kategori)
	if !category.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "kategori must be Wira or Madya"})
	}
	capacity, err := strconv.Atoi(kapasitas)
	if err != nil || capacity <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "kapasitas must be a positive integer"})
	}
	plots, err := h.Plots.ListAvailable(c.Request().Context(), category, capacity)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load plots"})
	}
	return c.JSON(http.StatusOK, plots)
}
