// README: Shared handler utilities; error mapping and response shapes.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spotly/internal/modules/booking"
	"spotly/internal/modules/spot"
	"spotly/internal/payments"
	"spotly/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

// writeBookingError maps module sentinels onto HTTP statuses. Anything
// unmapped is an infrastructure failure: logged with context, surfaced as a
// generic 500 so internals never leak.
func writeBookingError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, booking.ErrBadRequest), errors.Is(err, spot.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, spot.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrSpotOccupied), errors.Is(err, booking.ErrInvalidState):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrOnDemandUnsupported),
		errors.Is(err, booking.ErrNoSpotCoordinate),
		errors.Is(err, booking.ErrOutOfRange):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, payments.ErrGateway):
		writeError(c, http.StatusBadGateway, "payment authorization failed")
	default:
		log.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

type moneyResponse struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func toMoney(m types.Money) moneyResponse {
	return moneyResponse{Amount: m.Float(), Currency: m.Currency}
}

type spotSummary struct {
	ID              string       `json:"id"`
	Address         string       `json:"address"`
	Coordinate      *types.Point `json:"coordinate,omitempty"`
	GeofenceRadiusM float64      `json:"geofence_radius_m"`
	RatePerMinute   float64      `json:"rate_per_minute"`
	OnDemand        bool         `json:"on_demand"`
}

func toSpotSummary(sp *spot.ParkingSpot, ratePerMinute float64) spotSummary {
	return spotSummary{
		ID:              string(sp.ID),
		Address:         sp.Address,
		Coordinate:      sp.Coordinate,
		GeofenceRadiusM: sp.GeofenceRadiusM,
		RatePerMinute:   ratePerMinute,
		OnDemand:        sp.OnDemandEnabled,
	}
}

type bookingResponse struct {
	ID              string         `json:"id"`
	SpotID          string         `json:"spot_id"`
	RenterID        string         `json:"renter_id"`
	Type            string         `json:"type"`
	Status          string         `json:"status"`
	ScheduledStart  *string        `json:"scheduled_start,omitempty"`
	ScheduledEnd    *string        `json:"scheduled_end,omitempty"`
	ActualStart     *string        `json:"actual_start,omitempty"`
	ActualEnd       *string        `json:"actual_end,omitempty"`
	PlateNumber     string         `json:"plate_number,omitempty"`
	DurationMinutes int            `json:"duration_minutes,omitempty"`
	TotalPrice      *moneyResponse `json:"total_price,omitempty"`
}

func toBookingResponse(b *booking.Booking) bookingResponse {
	resp := bookingResponse{
		ID:              string(b.ID),
		SpotID:          string(b.SpotID),
		RenterID:        string(b.RenterID),
		Type:            string(b.Type),
		Status:          string(b.Status),
		ScheduledStart:  toRFC3339(b.ScheduledStart),
		ScheduledEnd:    toRFC3339(b.ScheduledEnd),
		ActualStart:     toRFC3339(b.ActualStart),
		ActualEnd:       toRFC3339(b.ActualEnd),
		PlateNumber:     b.PlateNumber,
		DurationMinutes: b.DurationMinutes,
	}
	if b.TotalPrice != nil {
		m := toMoney(*b.TotalPrice)
		resp.TotalPrice = &m
	}
	return resp
}

func toRFC3339(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
