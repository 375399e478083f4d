// README: On-demand session endpoints; prepare, start, stop, summary.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spotly/internal/http/middleware"
	"spotly/internal/modules/booking"
	"spotly/internal/types"
)

type SessionHandler struct {
	bookings        *booking.Service
	requireGeofence bool
	log             *zap.Logger
}

func NewSessionHandler(bookings *booking.Service, requireGeofence bool, log *zap.Logger) *SessionHandler {
	return &SessionHandler{
		bookings:        bookings,
		requireGeofence: requireGeofence,
		log:             log,
	}
}

type prepareRequest struct {
	SpotID string  `json:"spot_id" binding:"required"`
	Lat    float64 `json:"lat" binding:"required"`
	Lng    float64 `json:"lng" binding:"required"`
}

type prepareResponse struct {
	Spot              spotSummary `json:"spot"`
	RatePerMinute     float64     `json:"rate_per_minute"`
	OnDemandSupported bool        `json:"on_demand_supported"`
	GeofenceVerified  bool        `json:"geofence_verified"`
	SpotAvailable     bool        `json:"spot_available"`
	CanStart          bool        `json:"can_start"`
	Reason            string      `json:"reason,omitempty"`
}

// Prepare runs the admission checks without creating anything. A spot that
// cannot be started gets a 200 with can_start=false, not an error status —
// the client uses this to render the start screen.
func (h *SessionHandler) Prepare(c *gin.Context) {
	var req prepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.bookings.Prepare(c.Request.Context(), booking.PrepareCommand{
		SpotID:          types.ID(req.SpotID),
		RenterID:        types.ID(middleware.UserID(c)),
		Coordinate:      types.Point{Lat: req.Lat, Lng: req.Lng},
		RequireGeofence: h.requireGeofence,
	})
	if err != nil {
		writeBookingError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, prepareResponse{
		Spot:              toSpotSummary(res.Spot, res.RatePerMinute),
		RatePerMinute:     res.RatePerMinute,
		OnDemandSupported: res.OnDemandSupported,
		GeofenceVerified:  res.GeofenceVerified,
		SpotAvailable:     res.SpotAvailable,
		CanStart:          res.CanStart,
		Reason:            res.Reason,
	})
}

type startRequest struct {
	SpotID      string  `json:"spot_id" binding:"required"`
	PlateNumber string  `json:"plate_number" binding:"required"`
	Lat         float64 `json:"lat" binding:"required"`
	Lng         float64 `json:"lng" binding:"required"`
}

func (h *SessionHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := h.bookings.Start(c.Request.Context(), booking.StartCommand{
		SpotID:          types.ID(req.SpotID),
		RenterID:        types.ID(middleware.UserID(c)),
		PlateNumber:     req.PlateNumber,
		Coordinate:      types.Point{Lat: req.Lat, Lng: req.Lng},
		RequireGeofence: h.requireGeofence,
	})
	if err != nil {
		writeBookingError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

type stopResponse struct {
	Booking      bookingResponse `json:"booking"`
	Payment      *paymentDetail  `json:"payment,omitempty"`
	ClientSecret string          `json:"client_secret,omitempty"`
}

type paymentDetail struct {
	ID     string        `json:"id"`
	Amount moneyResponse `json:"amount"`
	Status string        `json:"status"`
}

func (h *SessionHandler) Stop(c *gin.Context) {
	res, err := h.bookings.Stop(c.Request.Context(), booking.StopCommand{
		BookingID: types.ID(c.Param("id")),
		CallerID:  types.ID(middleware.UserID(c)),
	})
	if err != nil {
		writeBookingError(c, h.log, err)
		return
	}

	resp := stopResponse{Booking: toBookingResponse(res.Booking)}
	if res.Payment != nil {
		resp.Payment = &paymentDetail{
			ID:     string(res.Payment.ID),
			Amount: toMoney(res.Payment.Amount),
			Status: string(res.Payment.Status),
		}
	}
	if res.Authorization != nil {
		resp.ClientSecret = res.Authorization.ClientSecret
	}
	c.JSON(http.StatusOK, resp)
}

type summaryResponse struct {
	BookingID       string        `json:"booking_id"`
	Status          string        `json:"status"`
	DurationMinutes int           `json:"duration_minutes"`
	DurationSeconds int           `json:"duration_seconds"`
	ParkingPrice    moneyResponse `json:"parking_price"`
	ServiceFee      moneyResponse `json:"service_fee"`
	Total           moneyResponse `json:"total"`
	PaymentStatus   string        `json:"payment_status"`
}

func (h *SessionHandler) Summary(c *gin.Context) {
	sum, err := h.bookings.GetSummary(c.Request.Context(),
		types.ID(c.Param("id")), types.ID(middleware.UserID(c)))
	if err != nil {
		writeBookingError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, summaryResponse{
		BookingID:       string(sum.BookingID),
		Status:          string(sum.Status),
		DurationMinutes: sum.DurationMinutes,
		DurationSeconds: sum.DurationSeconds,
		ParkingPrice:    toMoney(sum.ParkingPrice),
		ServiceFee:      toMoney(sum.ServiceFee),
		Total:           toMoney(sum.Total),
		PaymentStatus:   sum.PaymentStatus,
	})
}
