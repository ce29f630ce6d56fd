package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shpluspower/backend/internal/handlers"
	"github.com/shpluspower/backend/internal/middleware"
)

// RegisterRoutes configures all API routes
func RegisterRoutes(router *gin.Engine, authHandler *handlers.AuthHandler, ledgerHandler *handlers.LedgerHandler, adminHandler *handlers.AdminHandler) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(middleware.RateLimiter(10, 20))
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/admin/login", authHandler.AdminLogin)
		}

		// Protected routes - require authentication
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/dashboard", ledgerHandler.Dashboard)

			protected.GET("/tasks", ledgerHandler.Tasks)
			protected.POST("/tasks/purchase", ledgerHandler.PurchaseTask)
			protected.POST("/tasks/:id/collect", ledgerHandler.CollectProfit)

			protected.POST("/deposits", ledgerHandler.Deposit)
			protected.POST("/withdrawals", ledgerHandler.Withdraw)

			protected.GET("/referrals", ledgerHandler.Referrals)
			protected.GET("/referral-code", ledgerHandler.ReferralCode)

			protected.GET("/notifications", ledgerHandler.Notifications)
			protected.DELETE("/notifications", ledgerHandler.ClearNotifications)
		}

		// Admin routes - require admin role
		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
		{
			admin.GET("/stats", adminHandler.Stats)
			admin.GET("/activity", adminHandler.Activity)
			admin.POST("/deposits/:id/approve", adminHandler.ApproveDeposit)
			admin.POST("/deposits/:id/decline", adminHandler.DeclineDeposit)
		}
	}
}
