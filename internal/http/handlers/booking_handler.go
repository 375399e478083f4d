// README: Advance booking endpoints; reserve, cancel, lookup.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spotly/internal/http/middleware"
	"spotly/internal/modules/booking"
	"spotly/internal/types"
)

type BookingHandler struct {
	bookings *booking.Service
	log      *zap.Logger
}

func NewBookingHandler(bookings *booking.Service, log *zap.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, log: log}
}

type reserveRequest struct {
	SpotID      string    `json:"spot_id" binding:"required"`
	Start       time.Time `json:"start" binding:"required"`
	End         time.Time `json:"end" binding:"required"`
	PlateNumber string    `json:"plate_number"`
}

func (h *BookingHandler) Reserve(c *gin.Context) {
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := h.bookings.Reserve(c.Request.Context(), booking.ReserveCommand{
		SpotID:      types.ID(req.SpotID),
		RenterID:    types.ID(middleware.UserID(c)),
		Start:       req.Start,
		End:         req.End,
		PlateNumber: req.PlateNumber,
	})
	if err != nil {
		writeBookingError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	b, err := h.bookings.Cancel(c.Request.Context(), booking.CancelCommand{
		BookingID: types.ID(c.Param("id")),
		CallerID:  types.ID(middleware.UserID(c)),
	})
	if err != nil {
		writeBookingError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.bookings.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeBookingError(c, h.log, err)
		return
	}
	if string(b.RenterID) != middleware.UserID(c) {
		writeError(c, http.StatusNotFound, booking.ErrNotFound.Error())
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}
