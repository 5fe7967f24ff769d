package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainerrors "autodeposit.backend/internal/domain/errors"
	"autodeposit.backend/internal/interfaces/http/middleware"
	"autodeposit.backend/internal/interfaces/http/response"
	"autodeposit.backend/pkg/logger"
)

const defaultSweepLimit = 500

type PaymentHandler struct {
	usecase ReconciliationService
}

func NewPaymentHandler(usecase ReconciliationService) *PaymentHandler {
	return &PaymentHandler{usecase: usecase}
}

// ListUnmatched lists payments still waiting for a request, oldest first
// GET /api/v1/admin/payments/unmatched
func (h *PaymentHandler) ListUnmatched(c *gin.Context) {
	p, ok := pagination(c)
	if !ok {
		return
	}
	items, total, err := h.usecase.ListUnmatched(c.Request.Context(), p.Limit, p.CalculateOffset())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, http.StatusOK, items, total, p)
}

// Reconcile runs the matcher for one payment
// POST /api/v1/admin/payments/:id/reconcile
func (h *PaymentHandler) Reconcile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.usecase.Reconcile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	operator, _ := middleware.GetOperator(c)
	logger.Info(c.Request.Context(), "Manual reconcile",
		zap.String("operator", operator),
		zap.String("payment_id", id.String()),
		zap.String("outcome", string(result.Outcome)),
	)
	response.Success(c, http.StatusOK, result)
}

// ReconcilePending sweeps every unprocessed payment
// POST /api/v1/admin/payments/reconcile?limit=
func (h *PaymentHandler) ReconcilePending(c *gin.Context) {
	limit := defaultSweepLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.Error(c, domainerrors.BadRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}
	summary, err := h.usecase.ReconcilePending(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}
