package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
	"autodeposit.backend/internal/interfaces/http/response"
	"autodeposit.backend/pkg/logger"
)

// NotificationHandler accepts pushed bank notifications and queues them for
// the watcher. Nothing is parsed here.
type NotificationHandler struct {
	appender NotificationAppender
	now      func() time.Time
}

func NewNotificationHandler(appender NotificationAppender) *NotificationHandler {
	return &NotificationHandler{appender: appender, now: time.Now}
}

type pushNotificationRequest struct {
	Text               string     `json:"text" binding:"required"`
	SourceTimestamp    *time.Time `json:"sourceTimestamp"`
	TransportMessageID string     `json:"transportMessageId"`
}

// Push queues one notification
// POST /api/v1/notifications
func (h *NotificationHandler) Push(c *gin.Context) {
	var req pushNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		response.Error(c, domainerrors.BadRequest("text is empty"))
		return
	}

	n := entities.RawNotification{
		Text:            req.Text,
		SourceTimestamp: h.now().UTC(),
	}
	if req.SourceTimestamp != nil {
		n.SourceTimestamp = req.SourceTimestamp.UTC()
	}
	if id := strings.TrimSpace(req.TransportMessageID); id != "" {
		n.TransportMessageID = null.StringFrom(id)
	}

	id, err := h.appender.Append(c.Request.Context(), n)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to queue notification", zap.Error(err))
		response.Error(c, domainerrors.Transient(err))
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"id": id})
}
