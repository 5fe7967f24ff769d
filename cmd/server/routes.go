package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"autodeposit.backend/internal/interfaces/http/handlers"
	"autodeposit.backend/internal/interfaces/http/middleware"
	"autodeposit.backend/pkg/jwt"
)

type routeDeps struct {
	depositRequestHandler *handlers.DepositRequestHandler
	paymentHandler        *handlers.PaymentHandler
	bankHandler           *handlers.BankHandler
	settingsHandler       *handlers.SettingsHandler
	watcherHandler        *handlers.WatcherHandler
	notificationHandler   *handlers.NotificationHandler // nil when the source cannot accept pushes
	authMiddleware        gin.HandlerFunc
	ingestSecret          string
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, Idempotency-Key, X-Request-ID, X-Ingest-Secret")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "autodeposit"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		// Deposit requests (any operator token)
		requests := v1.Group("/deposit-requests")
		requests.Use(d.authMiddleware)
		{
			requests.POST("", middleware.RequireRole(jwt.RoleOperator), middleware.IdempotencyMiddleware(), d.depositRequestHandler.CreateDepositRequest)
			requests.GET("/:id", d.depositRequestHandler.GetDepositRequest)
		}

		// Notification push (shared secret)
		if d.notificationHandler != nil {
			v1.POST("/notifications", middleware.RequireIngestSecret(d.ingestSecret), d.notificationHandler.Push)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(d.authMiddleware)
		{
			admin.GET("/deposit-requests/stale", d.depositRequestHandler.ListStale)
			admin.POST("/deposit-requests/:id/expire", middleware.RequireRole(jwt.RoleOperator), d.depositRequestHandler.Expire)
			admin.POST("/deposit-requests/:id/reject", middleware.RequireRole(jwt.RoleOperator), d.depositRequestHandler.Reject)

			admin.GET("/payments/unmatched", d.paymentHandler.ListUnmatched)
			admin.POST("/payments/reconcile", middleware.RequireRole(jwt.RoleOperator), d.paymentHandler.ReconcilePending)
			admin.POST("/payments/:id/reconcile", middleware.RequireRole(jwt.RoleOperator), d.paymentHandler.Reconcile)

			admin.GET("/banks", d.bankHandler.ListBanks)
			admin.PUT("/banks/:bank", middleware.RequireRole(jwt.RoleOperator), d.bankHandler.UpsertBank)

			admin.GET("/settings", d.settingsHandler.GetSettings)
			admin.PUT("/settings/:key", middleware.RequireRole(jwt.RoleOperator), d.settingsHandler.SetSetting)

			admin.GET("/watcher/status", d.watcherHandler.GetStatus)
		}
	}
}
