// Package routes assembles the gin engine for the v1 API.
package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/handlers"
	"github.com/01moynul/dayplanner-golang/internal/logging"
	"github.com/01moynul/dayplanner-golang/internal/middleware"
)

// Options configures the router beyond the handlers themselves.
type Options struct {
	AllowedOrigins []string
	Tokens         middleware.TokenValidator
	Logger         *zap.Logger
}

func SetupRouter(h *handlers.Handlers, opts Options) *gin.Engine {
	router := gin.New()

	// --- Global Middleware ---
	// Request id first so every later log line carries it.
	router.Use(
		logging.RequestID(opts.Logger),
		logging.AccessLog(),
		logging.Recovery(),
		cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", logging.RequestIDHeader},
			ExposeHeaders:    []string{logging.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	v1 := router.Group("/v1")
	{
		// --- Public Routes ---
		v1.GET("/ping", h.Ping)
		v1.POST("/register", h.Register)
		v1.POST("/login", h.Login)

		// Signature-verified instead of token-authenticated.
		v1.POST("/billing/webhook", h.BillingWebhook)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware(opts.Tokens))
		{
			auth.GET("/profile/me", h.Me)

			// --- Routines ---
			auth.GET("/routines", h.ListRoutines)
			auth.POST("/routines", h.CreateRoutine)
			auth.GET("/routines/due", h.DueRoutines)
			auth.PUT("/routines/:id", h.UpdateRoutine)
			auth.DELETE("/routines/:id", h.DeleteRoutine)

			// --- Tasks ---
			auth.GET("/tasks", h.ListTasks)
			auth.POST("/tasks", h.CreateTask)
			auth.PATCH("/tasks/:id/complete", h.CompleteTask)
			auth.DELETE("/tasks/:id", h.DeleteTask)

			// --- Calendar Notes ---
			auth.GET("/notes", h.ListNotes)
			auth.PUT("/notes/:date", h.PutNote)

			// --- AI Chat ---
			auth.POST("/ai/chat", h.ChatAI)

			// --- Dashboard ---
			auth.GET("/dashboard/stats", h.GetDashboardStats)

			// --- Billing ---
			billing := auth.Group("/billing")
			{
				billing.GET("/subscription", h.GetSubscription)
				billing.POST("/checkout", h.StartCheckout)
				billing.POST("/portal", h.OpenBillingPortal)
				billing.POST("/premium-bonus", h.ClaimPremiumBonus)
			}
		}
	}

	return router
}
