package subscription

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

// ListMine godoc
// @Summary      Current user's subscriptions
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  Subscription
// @Router       /subscriptions [get]
func (h *Handler) ListMine(c *gin.Context) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	subs, err := h.service.ListForUser(c.Request.Context(), actor.UserID)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

// Cancel godoc
// @Summary      Request cancellation of a subscription
// @Description  Moves an active subscription to pending_cancellation. The prorated refund is paid by the next refund batch.
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  int  true  "Subscription ID"
// @Success      200  {object}  Subscription
// @Failure      403  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /subscriptions/{id}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	id, err := api.ParamID(c, "id")
	if err != nil {
		api.WriteError(c, err)
		return
	}

	sub, err := h.service.Cancel(c.Request.Context(), id, actor)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// ExpireDue godoc
// @Summary      Expire subscriptions whose billing cycle ended
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Router       /admin/subscriptions/expire [post]
func (h *Handler) ExpireDue(c *gin.Context) {
	n, err := h.service.ExpireDue(c.Request.Context())
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": n})
}
