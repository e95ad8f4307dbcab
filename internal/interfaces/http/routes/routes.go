// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/beauty-store-backend/internal/config"
	"github.com/your-org/beauty-store-backend/internal/interfaces/http/handlers"
	"github.com/your-org/beauty-store-backend/internal/interfaces/http/middleware"
)

// Handlers bundles everything the API routes dispatch to
type Handlers struct {
	Auth         *handlers.AuthHandler
	Product      *handlers.ProductHandler
	Checkout     *handlers.CheckoutHandler
	WelcomeGift  *handlers.WelcomeGiftHandler
	ClaimLimiter *middleware.ClaimLimiter
}

// SetupRoutes registers every API route under rg
func SetupRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	SetupAuthRoutes(rg, h.Auth, cfg)
	SetupProductRoutes(rg, h.Product, h.Checkout)
	SetupWelcomeGiftRoutes(rg, h.WelcomeGift, h.ClaimLimiter, cfg)
	SetupAdminRoutes(rg, h.WelcomeGift, cfg)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, authHandler *handlers.AuthHandler, cfg *config.Config) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.POST("/logout", authHandler.Logout)
			protected.GET("/profile", authHandler.GetProfile)
		}
	}
}

// SetupProductRoutes sets up catalogue and cart pricing routes
func SetupProductRoutes(rg *gin.RouterGroup, productHandler *handlers.ProductHandler, checkoutHandler *handlers.CheckoutHandler) {
	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)
	}

	rg.POST("/checkout/quote", checkoutHandler.QuoteCart)
}

// SetupWelcomeGiftRoutes sets up the storefront welcome gift routes
func SetupWelcomeGiftRoutes(rg *gin.RouterGroup, h *handlers.WelcomeGiftHandler, limiter *middleware.ClaimLimiter, cfg *config.Config) {
	gifts := rg.Group("/welcome-gifts")
	{
		gifts.GET("", h.ListActive)
		gifts.GET("/anonymous-id", h.IssueAnonymousID)

		optional := gifts.Group("")
		optional.Use(middleware.OptionalAuthMiddleware(cfg))
		{
			optional.GET("/check-eligibility", h.CheckEligibility)
			optional.POST("/:id/claim", limiter.Middleware(), h.Claim)
		}

		protected := gifts.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.POST("/migrate-anonymous", h.MigrateAnonymous)
			protected.POST("/validate-coupon", h.ValidateCoupon)
			protected.POST("/mark-used", h.MarkUsed)
			protected.GET("/user-rewards", h.UserRewards)
		}
	}
}

// SetupAdminRoutes sets up admin routes
func SetupAdminRoutes(rg *gin.RouterGroup, h *handlers.WelcomeGiftHandler, cfg *config.Config) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.AdminMiddleware())

	gifts := admin.Group("/welcome-gifts")
	{
		gifts.GET("", h.AdminList)
		gifts.GET("/analytics", h.AdminAnalytics)
		gifts.GET("/:id", h.AdminGet)
		gifts.POST("", h.AdminCreate)
		gifts.PUT("/reorder", h.AdminReorder)
		gifts.PUT("/:id", h.AdminUpdate)
		gifts.DELETE("/:id", h.AdminDelete)
		gifts.PATCH("/:id/toggle", h.AdminToggle)
	}
}
