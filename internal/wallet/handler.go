package wallet

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/api"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/auth"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// GetBalance godoc
// @Summary      Current user's wallet
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Wallet
// @Failure      401  {object}  api.ErrorResponse
// @Router       /wallet [get]
func (h *Handler) GetBalance(c *gin.Context) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	w, err := h.repo.GetOrCreateWallet(c.Request.Context(), actor.UserID)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, w)
}

// ListMyTransactions godoc
// @Summary      Current user's wallet transactions, newest first
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query  int  false  "Page size (default 50, max 200)"
// @Param        offset  query  int  false  "Offset"
// @Router       /wallet/transactions [get]
func (h *Handler) ListMyTransactions(c *gin.Context) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	page, err := pageFrom(c)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	txs, err := h.repo.ListUserTransactions(c.Request.Context(), actor.UserID, page)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.ListResponse[ledger.Transaction]{Items: txs, Limit: page.Limit, Offset: page.Offset})
}

// ListWallets godoc
// @Summary      All wallets with owner details
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  Summary
// @Router       /admin/wallets [get]
func (h *Handler) ListWallets(c *gin.Context) {
	items, err := h.repo.ListWithOwners(c.Request.Context())
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// ListWalletTransactions godoc
// @Summary      Transactions of one wallet, newest first
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        id      path   int  true   "Wallet ID"
// @Param        limit   query  int  false  "Page size (default 50, max 200)"
// @Param        offset  query  int  false  "Offset"
// @Failure      404     {object}  api.ErrorResponse
// @Router       /admin/wallets/{id}/transactions [get]
func (h *Handler) ListWalletTransactions(c *gin.Context) {
	walletID, err := api.ParamID(c, "id")
	if err != nil {
		api.WriteError(c, err)
		return
	}

	page, err := pageFrom(c)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	txs, err := h.repo.ListTransactions(c.Request.Context(), walletID, page)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.ListResponse[ledger.Transaction]{Items: txs, Limit: page.Limit, Offset: page.Offset})
}

// Reconcile godoc
// @Summary      Replay a wallet's ledger against its stored balance
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  int  true  "Wallet ID"
// @Success      200  {object}  Reconciliation
// @Router       /admin/wallets/{id}/reconcile [get]
func (h *Handler) Reconcile(c *gin.Context) {
	walletID, err := api.ParamID(c, "id")
	if err != nil {
		api.WriteError(c, err)
		return
	}

	rec, err := h.repo.Reconcile(c.Request.Context(), walletID)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func pageFrom(c *gin.Context) (ledger.Page, error) {
	limit, offset, err := api.Pagination(c)
	if err != nil {
		return ledger.Page{}, err
	}
	return ledger.Page{Limit: limit, Offset: offset}.Normalize(), nil
}
