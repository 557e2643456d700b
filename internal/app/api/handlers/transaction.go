package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/fatflowers/payportal/internal/app/service/transaction"
	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/internal/repository"
	"github.com/fatflowers/payportal/pkg/logctx"
	"github.com/fatflowers/payportal/pkg/response"
	"github.com/fatflowers/payportal/pkg/types"
)

// TransactionItem is the public view of a transaction.
type TransactionItem struct {
	ID                  int64        `json:"id"`
	TransactionID       *string      `json:"transaction_id"`
	Amount              int64        `json:"amount"`
	Currency            string       `json:"currency"`
	CardHolder          string       `json:"card_holder"`
	TrackingCode        string       `json:"tracking_code"`
	Status              types.Status `json:"status"`
	StatusLabel         string       `json:"status_label"`
	Description         *string      `json:"description"`
	CreatedAt           time.Time    `json:"created_at"`
	CreateTransactionAt *time.Time   `json:"create_transaction_at"`
	LastVerifyAt        *time.Time   `json:"last_verify_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
	RedirectURL         *string      `json:"redirect_url"`
}

type TransactionList struct {
	Items []*TransactionItem `json:"items"`
	Total int64              `json:"total"`
}

// CreateTransactionRequest starts a payment for the calling user.
type CreateTransactionRequest struct {
	PortalCode   string         `json:"portal_code" binding:"required"`
	Amount       int64          `json:"amount" binding:"required"`
	CallbackURI  string         `json:"callback_uri" binding:"required"`
	Currency     *string        `json:"currency"`
	LinkedType   *string        `json:"linked_type"`
	LinkedID     *int64         `json:"linked_id"`
	Description  *string        `json:"description"`
	Flags        map[string]any `json:"flags"`
	Phone        string         `json:"phone"`
	FullName     string         `json:"full_name"`
	NationalCode string         `json:"national_code"`
}

// toTransactionItem renders tx. The redirect URL is filled in once the gateway has issued an id.
func toTransactionItem(ctx context.Context, mgr transaction.TransactionManager, tx *models.Transaction) *TransactionItem {
	item := &TransactionItem{
		ID:                  tx.ID,
		TransactionID:       tx.TransactionID,
		Amount:              tx.Amount,
		Currency:            tx.Currency,
		CardHolder:          tx.CardHolder,
		TrackingCode:        tx.TrackingCode,
		Status:              tx.Status,
		StatusLabel:         tx.Status.Label(),
		Description:         tx.Description,
		CreatedAt:           tx.CreatedAt,
		CreateTransactionAt: tx.CreateTransactionAt,
		LastVerifyAt:        tx.LastVerifyAt,
		UpdatedAt:           tx.UpdatedAt,
	}
	if tx.GatewayID() != "" {
		if u, err := mgr.RedirectURL(ctx, tx); err == nil {
			item.RedirectURL = &u
		}
	}
	return item
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid transaction id")
		return 0, false
	}
	return id, true
}

func currentUser(c *gin.Context) string {
	uid, _ := logctx.UserID(c.Request.Context())
	return uid
}

// @Summary      List my transactions
// @Tags         Transaction
// @Produce      json
// @Param        X-User-ID  header  string  true   "Authenticated user"
// @Param        from       query   int     false  "Offset"
// @Param        size       query   int     false  "Page size"
// @Param        status     query   string  false  "Status filter"
// @Success      200  {object}  response.APIResponse[handlers.TransactionList]
// @Router       /api/v1/transaction [get]
func ApiTransactionList(mgr transaction.TransactionManager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := currentUser(c)
		req := &repository.ScanRequest{
			UserID: &uid,
			Status: types.Status(c.Query("status")),
		}
		if v := c.Query("from"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				badRequest(c, "invalid from")
				return
			}
			req.From = n
		}
		if v := c.Query("size"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				badRequest(c, "invalid size")
				return
			}
			req.Size = n
		}
		if req.Status != "" && !req.Status.Valid() {
			badRequest(c, "invalid status")
			return
		}

		res, err := mgr.ScanTransactions(c.Request.Context(), req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		items := lo.Map(res.Items, func(tx *models.Transaction, _ int) *TransactionItem {
			return toTransactionItem(c.Request.Context(), mgr, tx)
		})
		c.JSON(http.StatusOK, response.OKT(TransactionList{Items: items, Total: res.Total}))
	}
}

// @Summary      Get my transaction
// @Tags         Transaction
// @Produce      json
// @Param        X-User-ID  header  string  true  "Authenticated user"
// @Param        id         path    int     true  "Transaction id"
// @Success      200  {object}  response.APIResponse[handlers.TransactionItem]
// @Router       /api/v1/transaction/{id} [get]
func ApiTransactionGet(mgr transaction.TransactionManager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		tx, err := mgr.GetForUser(c.Request.Context(), currentUser(c), id)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(toTransactionItem(c.Request.Context(), mgr, tx)))
	}
}

// @Summary      Verify my transaction
// @Description  Asks the gateway for the current state of the payment and returns the updated transaction.
// @Tags         Transaction
// @Produce      json
// @Param        X-User-ID  header  string  true  "Authenticated user"
// @Param        id         path    int     true  "Transaction id"
// @Success      200  {object}  response.APIResponse[handlers.TransactionItem]
// @Router       /api/v1/transaction/{id}/verify [post]
func ApiTransactionVerify(mgr transaction.TransactionManager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		if _, err := mgr.GetForUser(ctx, currentUser(c), id); err != nil {
			respondError(c, log, err)
			return
		}
		tx, err := mgr.Verify(ctx, id)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(toTransactionItem(ctx, mgr, tx)))
	}
}

// @Summary      Start a payment
// @Tags         Transaction
// @Accept       json
// @Produce      json
// @Param        X-User-ID  header  string                                     true  "Authenticated user"
// @Param        request    body    handlers.CreateTransactionRequest          true  "Payment request"
// @Success      200  {object}  response.APIResponse[handlers.TransactionItem]
// @Router       /api/v1/transaction [post]
func ApiTransactionCreate(mgr transaction.TransactionManager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTransactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		uid := currentUser(c)
		ctx := c.Request.Context()
		tx, err := mgr.Create(ctx, &transaction.CreateRequest{
			PortalCode:  req.PortalCode,
			Amount:      req.Amount,
			CallbackURI: req.CallbackURI,
			Currency:    req.Currency,
			UserID:      &uid,
			LinkedType:  req.LinkedType,
			LinkedID:    req.LinkedID,
			Description: req.Description,
			Flags:       req.Flags,
			User: &gateway.UserProfile{
				ID:           uid,
				Phone:        req.Phone,
				FullName:     req.FullName,
				NationalCode: req.NationalCode,
			},
		})
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(toTransactionItem(ctx, mgr, tx)))
	}
}

// RegisterTransactionRoutes mounts the user-scoped transaction API. r must carry RequireUser.
func RegisterTransactionRoutes(r gin.IRouter, mgr transaction.TransactionManager, log *zap.SugaredLogger) {
	r.GET("/transaction", ApiTransactionList(mgr, log))
	r.POST("/transaction", ApiTransactionCreate(mgr, log))
	r.GET("/transaction/:id", ApiTransactionGet(mgr, log))
	r.GET("/transaction/:id/verify", ApiTransactionVerify(mgr, log))
	r.POST("/transaction/:id/verify", ApiTransactionVerify(mgr, log))
}
