package refund

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/api"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/apperr"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Process godoc
// @Summary      Credit every pending refund
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  BatchResult
// @Failure      409  {object}  api.ErrorResponse  "Another batch is running"
// @Router       /admin/refunds/process [post]
func (h *Handler) Process(c *gin.Context) {
	result, err := h.service.ProcessAll(c.Request.Context())
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Pending godoc
// @Summary      Refunds waiting for the next batch, trips grouped
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Pending
// @Router       /admin/refunds/pending [get]
func (h *Handler) Pending(c *gin.Context) {
	pending, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

// History godoc
// @Summary      Credited refunds, newest first
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        from     query  string  false  "From date (inclusive)"
// @Param        to       query  string  false  "To date (exclusive)"
// @Param        user_id  query  int     false  "Rider"
// @Param        type     query  string  false  "trip_cancellation, missed_service or subscription_cancellation"
// @Param        limit    query  int     false  "Page size (default 50, max 200)"
// @Param        offset   query  int     false  "Offset"
// @Failure      400      {object}  api.ErrorResponse
// @Router       /admin/refunds/history [get]
func (h *Handler) History(c *gin.Context) {
	f, err := historyFilter(c)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	items, err := h.service.History(c.Request.Context(), f)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.ListResponse[ledger.HistoryItem]{Items: items, Limit: f.Page.Limit, Offset: f.Page.Offset})
}

// Stats godoc
// @Summary      Refund totals by reason and by month
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        from  query  string  false  "From date (inclusive)"
// @Param        to    query  string  false  "To date (exclusive)"
// @Success      200   {object}  ledger.Stats
// @Router       /admin/refunds/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	from, err := api.QueryTime(c, "from")
	if err != nil {
		api.WriteError(c, err)
		return
	}
	to, err := api.QueryTime(c, "to")
	if err != nil {
		api.WriteError(c, err)
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), from, to)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func historyFilter(c *gin.Context) (ledger.HistoryFilter, error) {
	var f ledger.HistoryFilter
	var err error

	if f.From, err = api.QueryTime(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = api.QueryTime(c, "to"); err != nil {
		return f, err
	}
	if f.UserID, err = api.QueryID(c, "user_id"); err != nil {
		return f, err
	}
	if raw := c.Query("type"); raw != "" {
		category, err := ledger.ParseCategory(raw)
		if err != nil || !category.IsRefund() {
			return f, apperr.New(apperr.CodeValidation, "type must be a refund category").
				WithDetails(ledger.RefundCategories())
		}
		f.Category = &category
	}

	limit, offset, err := api.Pagination(c)
	if err != nil {
		return f, err
	}
	f.Page = ledger.Page{Limit: limit, Offset: offset}.Normalize()
	return f, nil
}
