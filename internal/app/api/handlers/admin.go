package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/fatflowers/payportal/internal/app/service/eventlog"
	"github.com/fatflowers/payportal/internal/app/service/portal"
	"github.com/fatflowers/payportal/internal/app/service/transaction"
	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/repository"
	"github.com/fatflowers/payportal/pkg/response"
	"github.com/fatflowers/payportal/pkg/types"
)

// ScanTransactionRequest is the admin search over every transaction.
type ScanTransactionRequest struct {
	UserID     *string               `json:"user_id"`
	PortalCode string                `json:"portal_code"`
	Status     types.Status          `json:"status"`
	Filters    []*types.CommonFilter `json:"filters"`
	From       int                   `json:"from"`
	Size       int                   `json:"size"`
	SortBy     string                `json:"sort_by"`
	SortOrder  string                `json:"sort_order"`
}

type StatusChoice struct {
	Value types.Status `json:"value"`
	Label string       `json:"label"`
}

type RefundSupport struct {
	Portal        string `json:"portal"`
	SupportRefund bool   `json:"support_refund"`
}

// AdminHandler serves the back-office API.
type AdminHandler struct {
	mgr     transaction.TransactionManager
	portals *portal.Service
	events  *eventlog.Recorder
	log     *zap.SugaredLogger
}

func NewAdminHandler(mgr transaction.TransactionManager, portals *portal.Service, events *eventlog.Recorder, log *zap.SugaredLogger) *AdminHandler {
	return &AdminHandler{mgr: mgr, portals: portals, events: events, log: log}
}

// @Summary      List gateway backends
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  response.APIResponse[[]gateway.Choice]
// @Router       /api/v1/admin/backends [get]
func (h *AdminHandler) Backends(c *gin.Context) {
	c.JSON(http.StatusOK, response.OKT(h.portals.Backends()))
}

// @Summary      List transaction statuses
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  response.APIResponse[[]handlers.StatusChoice]
// @Router       /api/v1/admin/statuses [get]
func (h *AdminHandler) Statuses(c *gin.Context) {
	out := lo.Map(types.AllStatuses(), func(s types.Status, _ int) StatusChoice {
		return StatusChoice{Value: s, Label: s.Label()}
	})
	c.JSON(http.StatusOK, response.OKT(out))
}

// @Summary      List portals
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  response.APIResponse[[]models.Portal]
// @Router       /api/v1/admin/portals [get]
func (h *AdminHandler) ListPortals(c *gin.Context) {
	list, err := h.portals.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.OKT(list))
}

// @Summary      Get portal
// @Tags         Admin
// @Produce      json
// @Param        code  path  string  true  "Portal code name"
// @Success      200  {object}  response.APIResponse[models.Portal]
// @Router       /api/v1/admin/portals/{code} [get]
func (h *AdminHandler) GetPortal(c *gin.Context) {
	p, err := h.portals.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.OKT(p))
}

// @Summary      Create portal
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request  body  portal.Input  true  "Portal"
// @Success      200  {object}  response.APIResponse[models.Portal]
// @Router       /api/v1/admin/portals [post]
func (h *AdminHandler) CreatePortal(c *gin.Context) {
	var in portal.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := h.portals.Create(c.Request.Context(), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.OKT(p))
}

// @Summary      Update portal
// @Description  An empty api_key keeps the stored key.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        code     path  string        true  "Portal code name"
// @Param        request  body  portal.Input  true  "Portal"
// @Success      200  {object}  response.APIResponse[models.Portal]
// @Router       /api/v1/admin/portals/{code} [put]
func (h *AdminHandler) UpdatePortal(c *gin.Context) {
	var in portal.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := h.portals.Update(c.Request.Context(), c.Param("code"), &in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.OKT(p))
}

// @Summary      Delete portal
// @Description  Fails with a conflict while transactions reference the portal.
// @Tags         Admin
// @Produce      json
// @Param        code  path  string  true  "Portal code name"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/admin/portals/{code} [delete]
func (h *AdminHandler) DeletePortal(c *gin.Context) {
	if err := h.portals.Delete(c.Request.Context(), c.Param("code")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.OKT[any](nil))
}

// @Summary      Portal refund support
// @Tags         Admin
// @Produce      json
// @Param        code  path  string  true  "Portal code name"
// @Success      200  {object}  response.APIResponse[handlers.RefundSupport]
// @Router       /api/v1/admin/portals/{code}/refund_support [get]
func (h *AdminHandler) RefundSupport(c *gin.Context) {
	code := c.Param("code")
	ok, err := h.mgr.SupportRefund(c.Request.Context(), code)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.OKT(RefundSupport{Portal: code, SupportRefund: ok}))
}

// @Summary      Search transactions
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request  body  handlers.ScanTransactionRequest  true  "Search"
// @Success      200  {object}  response.APIResponse[repository.ScanResult]
// @Router       /api/v1/admin/transactions/scan [post]
func (h *AdminHandler) ScanTransactions(c *gin.Context) {
	var req ScanTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.mgr.ScanTransactions(c.Request.Context(), &repository.ScanRequest{
		UserID:     req.UserID,
		PortalCode: req.PortalCode,
		Status:     req.Status,
		Filters:    req.Filters,
		From:       req.From,
		Size:       req.Size,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.OKT(res))
}

// @Summary      Get transaction
// @Tags         Admin
// @Produce      json
// @Param        id  path  int  true  "Transaction id"
// @Success      200  {object}  response.APIResponse[models.Transaction]
// @Router       /api/v1/admin/transactions/{id} [get]
func (h *AdminHandler) GetTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tx, err := h.mgr.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.OKT(tx))
}

// @Summary      Verify transaction
// @Tags         Admin
// @Produce      json
// @Param        id  path  int  true  "Transaction id"
// @Success      200  {object}  response.APIResponse[models.Transaction]
// @Router       /api/v1/admin/transactions/{id}/verify [post]
func (h *AdminHandler) VerifyTransaction(c *gin.Context) {
	h.transition(c, h.mgr.Verify)
}

// @Summary      Refund transaction
// @Tags         Admin
// @Produce      json
// @Param        id  path  int  true  "Transaction id"
// @Success      200  {object}  response.APIResponse[models.Transaction]
// @Router       /api/v1/admin/transactions/{id}/refund [post]
func (h *AdminHandler) RefundTransaction(c *gin.Context) {
	h.transition(c, h.mgr.Refund)
}

// @Summary      Transaction event log
// @Tags         Admin
// @Produce      json
// @Param        id  path  int  true  "Transaction id"
// @Success      200  {object}  response.APIResponse[[]models.TransactionEventLog]
// @Router       /api/v1/admin/transactions/{id}/events [get]
func (h *AdminHandler) TransactionEvents(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.mgr.Get(ctx, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	logs, err := h.events.List(ctx, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if logs == nil {
		logs = []*models.TransactionEventLog{}
	}
	c.JSON(http.StatusOK, response.OKT(logs))
}

func (h *AdminHandler) transition(c *gin.Context, op func(ctx context.Context, id int64) (*models.Transaction, error)) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tx, err := op(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.OKT(tx))
}

func RegisterAdminRoutes(r gin.IRouter, h *AdminHandler) {
	r.GET("/backends", h.Backends)
	r.GET("/statuses", h.Statuses)

	r.GET("/portals", h.ListPortals)
	r.POST("/portals", h.CreatePortal)
	r.GET("/portals/:code", h.GetPortal)
	r.PUT("/portals/:code", h.UpdatePortal)
	r.DELETE("/portals/:code", h.DeletePortal)
	r.GET("/portals/:code/refund_support", h.RefundSupport)

	r.POST("/transactions/scan", h.ScanTransactions)
	r.GET("/transactions/:id", h.GetTransaction)
	r.POST("/transactions/:id/verify", h.VerifyTransaction)
	r.POST("/transactions/:id/refund", h.RefundTransaction)
	r.GET("/transactions/:id/events", h.TransactionEvents)
}
