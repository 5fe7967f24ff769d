package response

import (
	"github.com/gin-gonic/gin"

	domainerrors "autodeposit.backend/internal/domain/errors"
	"autodeposit.backend/pkg/utils"
)

// Success sends a success response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Page sends one page of a list with its pagination metadata
func Page(c *gin.Context, status int, items interface{}, total int, p utils.PaginationParams) {
	c.JSON(status, gin.H{
		"items":      items,
		"pagination": utils.CalculateMeta(int64(total), p),
	})
}

// Error maps err onto its HTTP status and sends it
func Error(c *gin.Context, err error) {
	appErr := domainerrors.FromError(err)
	c.JSON(appErr.Status, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}

// ErrorWithError aborts with a specific status and message
func ErrorWithError(c *gin.Context, status int, code string, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}
