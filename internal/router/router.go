package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/redis/go-redis/v9"
)

type Router struct {
	sessionController  *controller.SessionController
	authController     *controller.AuthController
	productController  *controller.ProductController
	cartController     *controller.CartController
	checkoutController *controller.CheckoutController
	orderController    *controller.OrderController
	adminController    *controller.AdminController
	authMiddleware     *middleware.AuthMiddleware
	redisClient        *redis.Client
	config             *config.Config
}

func NewRouter(
	sessionController *controller.SessionController,
	authController *controller.AuthController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	checkoutController *controller.CheckoutController,
	orderController *controller.OrderController,
	adminController *controller.AdminController,
	authMiddleware *middleware.AuthMiddleware,
	redisClient *redis.Client,
	cfg *config.Config,
) *Router {
	return &Router{
		sessionController:  sessionController,
		authController:     authController,
		productController:  productController,
		cartController:     cartController,
		checkoutController: checkoutController,
		orderController:    orderController,
		adminController:    adminController,
		authMiddleware:     authMiddleware,
		redisClient:        redisClient,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Storefront API is running",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.GuestToken())
	{
		sessions := v1.Group("/session")
		{
			sessions.POST("/guest", r.sessionController.IssueGuestToken)
			sessions.GET("", r.authMiddleware.OptionalAuthenticate(), r.sessionController.Current)
		}

		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/refresh", r.authController.Refresh)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.Me)
		}

		v1.GET("/categories", r.productController.ListCategories)

		products := v1.Group("/products")
		{
			products.GET("", r.productController.ListProducts)
			products.GET("/:id", r.productController.GetProduct)
		}

		cart := v1.Group("/cart")
		cart.Use(r.authMiddleware.OptionalAuthenticate())
		{
			cart.GET("", r.cartController.GetCart)
			cart.POST("", r.cartController.AddToCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.GET("/ws", r.cartController.Stream)
			cart.PUT("/:id", r.cartController.UpdateCartItem)
			cart.DELETE("/:id", r.cartController.RemoveCartItem)
		}

		v1.POST("/checkout", r.authMiddleware.OptionalAuthenticate(), r.checkoutController.Checkout)

		orders := v1.Group("/orders")
		orders.Use(r.authMiddleware.Authenticate())
		{
			orders.GET("", r.orderController.GetOrders)
			orders.GET("/:id", r.orderController.GetOrderByID)
		}

		v1.GET("/track/:token",
			middleware.RateLimit(r.redisClient, "track", r.config.Cart.TrackingRateLimit, r.config.Cart.TrackingWindow),
			r.orderController.Track,
		)

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole(model.RoleAdmin))
		{
			admin.GET("/orders", r.adminController.ListOrders)
			admin.PUT("/orders/:id/status", r.adminController.UpdateOrderStatus)
			admin.POST("/reports/orders", r.adminController.ExportOrders)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+middleware.GuestTokenHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
