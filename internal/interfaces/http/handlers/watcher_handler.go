package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"autodeposit.backend/internal/interfaces/http/response"
)

type WatcherHandler struct {
	monitor WatcherMonitor
}

func NewWatcherHandler(monitor WatcherMonitor) *WatcherHandler {
	return &WatcherHandler{monitor: monitor}
}

// GetStatus reports watcher health, alarm included
// GET /api/v1/admin/watcher/status
func (h *WatcherHandler) GetStatus(c *gin.Context) {
	response.Success(c, http.StatusOK, h.monitor.Status())
}
