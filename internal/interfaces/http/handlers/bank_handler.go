package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainerrors "autodeposit.backend/internal/domain/errors"
	"autodeposit.backend/internal/interfaces/http/middleware"
	"autodeposit.backend/internal/interfaces/http/response"
	"autodeposit.backend/internal/usecases"
	"autodeposit.backend/pkg/logger"
)

type BankHandler struct {
	usecase BankConfigService
}

func NewBankHandler(usecase BankConfigService) *BankHandler {
	return &BankHandler{usecase: usecase}
}

// ListBanks lists bank configs with their link scheme
// GET /api/v1/admin/banks
func (h *BankHandler) ListBanks(c *gin.Context) {
	items, err := h.usecase.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": items})
}

// UpsertBank creates or patches one bank config
// PUT /api/v1/admin/banks/:bank
func (h *BankHandler) UpsertBank(c *gin.Context) {
	var req usecases.UpsertBankConfigInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	req.Bank = c.Param("bank")

	view, err := h.usecase.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	operator, _ := middleware.GetOperator(c)
	logger.Info(c.Request.Context(), "Bank config changed",
		zap.String("operator", operator),
		zap.String("bank", view.Bank),
	)
	response.Success(c, http.StatusOK, view)
}
