package adjustment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/api"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/apperr"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Adjust godoc
// @Summary      Credit or debit a wallet by hand
// @Description  Amount is a decimal string or number with at most 2 decimals. Reason is 5 to 500 characters.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  int          true  "Wallet ID"
// @Param        request  body  AdjustInput  true  "Adjustment"
// @Success      200  {object}  wallet.Result
// @Failure      400  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Failure      422  {object}  api.ErrorResponse  "Insufficient funds"
// @Router       /admin/wallets/{id}/adjust [post]
func (h *Handler) Adjust(c *gin.Context) {
	walletID, err := api.ParamID(c, "id")
	if err != nil {
		api.WriteError(c, err)
		return
	}
	actor, err := auth.ActorFrom(c)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	var in AdjustInput
	if err := c.ShouldBindJSON(&in); err != nil {
		api.WriteError(c, apperr.Wrap(apperr.CodeValidation, err, "invalid request body"))
		return
	}
	in.WalletID = walletID
	in.AdminUserID = actor.UserID

	res, err := h.service.Adjust(c.Request.Context(), in)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Reset godoc
// @Summary      Drain a wallet to zero
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  int         true  "Wallet ID"
// @Param        request  body  ResetInput  true  "Reason"
// @Success      200  {object}  wallet.Result
// @Failure      400  {object}  api.ErrorResponse  "Missing reason or balance already zero"
// @Router       /admin/wallets/{id}/reset [post]
func (h *Handler) Reset(c *gin.Context) {
	walletID, err := api.ParamID(c, "id")
	if err != nil {
		api.WriteError(c, err)
		return
	}
	actor, err := auth.ActorFrom(c)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	var in ResetInput
	if err := c.ShouldBindJSON(&in); err != nil {
		api.WriteError(c, apperr.Wrap(apperr.CodeValidation, err, "invalid request body"))
		return
	}
	in.WalletID = walletID
	in.AdminUserID = actor.UserID

	res, err := h.service.Reset(c.Request.Context(), in)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
