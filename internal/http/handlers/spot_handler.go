// README: Parking spot endpoints; registration and lookup for owners.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spotly/internal/http/middleware"
	"spotly/internal/modules/pricing"
	"spotly/internal/modules/spot"
	"spotly/internal/types"
)

type SpotHandler struct {
	spots *spot.Service
	log   *zap.Logger
}

func NewSpotHandler(spots *spot.Service, log *zap.Logger) *SpotHandler {
	return &SpotHandler{spots: spots, log: log}
}

type registerSpotRequest struct {
	Address         string       `json:"address" binding:"required"`
	Coordinate      *types.Point `json:"coordinate"`
	GeofenceRadiusM float64      `json:"geofence_radius_m"`
	PricePerMinute  *float64     `json:"price_per_minute"`
	PricePerHour    *float64     `json:"price_per_hour"`
	OnDemandEnabled bool         `json:"on_demand_enabled"`
}

func (h *SpotHandler) Register(c *gin.Context) {
	var req registerSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	sp, err := h.spots.Register(c.Request.Context(), spot.RegisterCommand{
		OwnerID:         types.ID(middleware.UserID(c)),
		Address:         req.Address,
		Coordinate:      req.Coordinate,
		GeofenceRadiusM: req.GeofenceRadiusM,
		PricePerMinute:  req.PricePerMinute,
		PricePerHour:    req.PricePerHour,
		OnDemandEnabled: req.OnDemandEnabled,
	})
	if err != nil {
		writeBookingError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, h.toResponse(sp))
}

func (h *SpotHandler) Get(c *gin.Context) {
	sp, err := h.spots.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeBookingError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(sp))
}

func (h *SpotHandler) List(c *gin.Context) {
	spots, err := h.spots.ListByOwner(c.Request.Context(), types.ID(middleware.UserID(c)))
	if err != nil {
		writeBookingError(c, h.log, err)
		return
	}
	out := make([]spotSummary, 0, len(spots))
	for _, sp := range spots {
		out = append(out, h.toResponse(sp))
	}
	c.JSON(http.StatusOK, gin.H{"spots": out})
}

func (h *SpotHandler) toResponse(sp *spot.ParkingSpot) spotSummary {
	return toSpotSummary(sp, pricing.PerMinuteRate(sp.PricePerMinute, sp.PricePerHour))
}
