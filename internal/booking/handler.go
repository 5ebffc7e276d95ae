package booking

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/api"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CancelTrip godoc
// @Summary      Cancel a scheduled trip
// @Description  Cancels the trip and queues a trip_cancellation refund for every booking on it.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  int  true  "Trip ID"
// @Success      200  {object}  TripResult
// @Failure      404  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /admin/trips/{id}/cancel [post]
func (h *Handler) CancelTrip(c *gin.Context) {
	tripID, err := api.ParamID(c, "id")
	if err != nil {
		api.WriteError(c, err)
		return
	}

	res, err := h.service.CancelTrip(c.Request.Context(), tripID)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// MarkTripMissed godoc
// @Summary      Mark a trip as missed by the service
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  int  true  "Trip ID"
// @Success      200  {object}  TripResult
// @Router       /admin/trips/{id}/missed [post]
func (h *Handler) MarkTripMissed(c *gin.Context) {
	tripID, err := api.ParamID(c, "id")
	if err != nil {
		api.WriteError(c, err)
		return
	}

	res, err := h.service.MarkTripMissed(c.Request.Context(), tripID)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CancelBooking godoc
// @Summary      Cancel own booking before departure
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  int  true  "Booking ID"
// @Success      200  {object}  Booking
// @Failure      403  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /bookings/{id}/cancel [post]
func (h *Handler) CancelBooking(c *gin.Context) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	bookingID, err := api.ParamID(c, "id")
	if err != nil {
		api.WriteError(c, err)
		return
	}

	b, err := h.service.CancelBooking(c.Request.Context(), actor, bookingID)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) ListMine(c *gin.Context) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	bookings, err := h.service.ListForUser(c.Request.Context(), actor.UserID)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}
