package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainerrors "autodeposit.backend/internal/domain/errors"
	"autodeposit.backend/internal/interfaces/http/middleware"
	"autodeposit.backend/internal/interfaces/http/response"
	"autodeposit.backend/pkg/logger"
)

type SettingsHandler struct {
	usecase SettingsService
}

func NewSettingsHandler(usecase SettingsService) *SettingsHandler {
	return &SettingsHandler{usecase: usecase}
}

type setSettingRequest struct {
	Value *string `json:"value" binding:"required"`
}

// GetSettings shows overrides and the settings in force
// GET /api/v1/admin/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	view, err := h.usecase.View(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// SetSetting stores one override
// PUT /api/v1/admin/settings/:key
func (h *SettingsHandler) SetSetting(c *gin.Context) {
	var req setSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	key := c.Param("key")
	if err := h.usecase.Set(c.Request.Context(), key, *req.Value); err != nil {
		response.Error(c, err)
		return
	}
	operator, _ := middleware.GetOperator(c)
	logger.Info(c.Request.Context(), "Setting changed",
		zap.String("operator", operator),
		zap.String("key", key),
		zap.String("value", *req.Value),
	)
	h.GetSettings(c)
}
