package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainerrors "autodeposit.backend/internal/domain/errors"
	"autodeposit.backend/internal/interfaces/http/response"
	"autodeposit.backend/pkg/jwt"
	"autodeposit.backend/pkg/logger"
)

const (
	// AuthorizationHeader is the header key for authorization
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens
	BearerPrefix = "Bearer "
	// IngestSecretHeader carries the transport's shared secret
	IngestSecretHeader = "X-Ingest-Secret"
	// OperatorKey is the context key for the operator name
	OperatorKey = "operator"
	// RoleKey is the context key for the operator role
	RoleKey = "role"
)

// AuthMiddleware validates the operator bearer token
func AuthMiddleware(jwtService *jwt.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			logger.Debug(c.Request.Context(), "Authorization header missing", zap.String("path", c.Request.URL.Path))
			response.ErrorWithError(c, http.StatusUnauthorized, domainerrors.CodeUnauthorized, "Authorization header is required")
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.ErrorWithError(c, http.StatusUnauthorized, domainerrors.CodeUnauthorized, "Invalid authorization format. Use: Bearer <token>")
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimPrefix(authHeader, BearerPrefix))
		if err != nil {
			logger.Warn(c.Request.Context(), "Operator token rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			if errors.Is(err, jwt.ErrExpiredToken) {
				response.ErrorWithError(c, http.StatusUnauthorized, domainerrors.CodeUnauthorized, "Token has expired")
				return
			}
			response.ErrorWithError(c, http.StatusUnauthorized, domainerrors.CodeUnauthorized, "Invalid token")
			return
		}

		c.Set(OperatorKey, claims.Operator)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// GetOperator gets the operator name from context
func GetOperator(c *gin.Context) (string, bool) {
	v, exists := c.Get(OperatorKey)
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetRole gets the operator role from context
func GetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get(RoleKey)
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// RequireRole creates a middleware that requires one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := GetRole(c)
		if !exists {
			response.ErrorWithError(c, http.StatusUnauthorized, domainerrors.CodeUnauthorized, "Role not found")
			return
		}
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		response.ErrorWithError(c, http.StatusForbidden, domainerrors.CodeForbidden, "Insufficient permissions")
	}
}

// RequireIngestSecret guards the notification ingestion endpoint. An empty
// secret disables the endpoint.
func RequireIngestSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			response.ErrorWithError(c, http.StatusServiceUnavailable, domainerrors.CodeUnavailable, "ingestion endpoint is not configured")
			return
		}
		got := c.GetHeader(IngestSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			logger.Warn(c.Request.Context(), "Ingest secret rejected", zap.String("client_ip", c.ClientIP()))
			response.ErrorWithError(c, http.StatusUnauthorized, domainerrors.CodeUnauthorized, "invalid ingest secret")
			return
		}
		c.Next()
	}
}
