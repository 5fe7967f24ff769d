package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
	"autodeposit.backend/internal/interfaces/http/middleware"
	"autodeposit.backend/internal/interfaces/http/response"
	"autodeposit.backend/internal/usecases"
	"autodeposit.backend/pkg/logger"
	"autodeposit.backend/pkg/utils"
)

type DepositRequestHandler struct {
	usecase DepositRequestService
}

func NewDepositRequestHandler(usecase DepositRequestService) *DepositRequestHandler {
	return &DepositRequestHandler{usecase: usecase}
}

type closeRequestBody struct {
	Reason string `json:"reason"`
}

// CreateDepositRequest creates a pending request with its payment link
// POST /api/v1/deposit-requests
func (h *DepositRequestHandler) CreateDepositRequest(c *gin.Context) {
	var req usecases.CreateDepositRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	result, err := h.usecase.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// GetDepositRequest gets a deposit request by ID
// GET /api/v1/deposit-requests/:id
func (h *DepositRequestHandler) GetDepositRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.usecase.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// ListStale lists pending requests older than older_than (default 30m)
// GET /api/v1/admin/deposit-requests/stale
func (h *DepositRequestHandler) ListStale(c *gin.Context) {
	olderThan, err := time.ParseDuration(c.DefaultQuery("older_than", "30m"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("older_than must be a duration such as 30m"))
		return
	}
	p, ok := pagination(c)
	if !ok {
		return
	}

	items, total, err := h.usecase.ListStale(c.Request.Context(), olderThan, p.Limit, p.CalculateOffset())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, http.StatusOK, items, total, p)
}

// Expire closes a pending request as expired
// POST /api/v1/admin/deposit-requests/:id/expire
func (h *DepositRequestHandler) Expire(c *gin.Context) {
	h.close(c, h.usecase.Expire)
}

// Reject closes a pending request as rejected
// POST /api/v1/admin/deposit-requests/:id/reject
func (h *DepositRequestHandler) Reject(c *gin.Context) {
	h.close(c, h.usecase.Reject)
}

func (h *DepositRequestHandler) close(c *gin.Context, fn func(ctx context.Context, id uuid.UUID, reason string) (*entities.DepositRequest, error)) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body closeRequestBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.Error(c, domainerrors.BadRequest(err.Error()))
			return
		}
	}

	result, err := fn(c.Request.Context(), id, body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	operator, _ := middleware.GetOperator(c)
	logger.Info(c.Request.Context(), "Operator closed deposit request",
		zap.String("operator", operator),
		zap.String("request_id", id.String()),
		zap.String("status", string(result.Status)),
	)
	response.Success(c, http.StatusOK, result)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

func pagination(c *gin.Context) (utils.PaginationParams, bool) {
	var p utils.PaginationParams
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, domainerrors.BadRequest("page and limit must be integers"))
		return p, false
	}
	return utils.GetPaginationParams(p.Page, p.Limit), true
}
