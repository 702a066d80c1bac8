package main

import (
	"net/http"
	"time"

	"github.com/candleworks/storefront-api/config"
	"github.com/candleworks/storefront-api/controllers"
	"github.com/candleworks/storefront-api/middleware"
	"github.com/candleworks/storefront-api/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routerOptions wires the pieces that differ between production and tests
type routerOptions struct {
	Config *config.Config
	// Auth validates the bearer token; tests substitute a mock
	Auth gin.HandlerFunc
	// Registry receives the HTTP metrics and is served on /metrics
	Registry *prometheus.Registry
	// RateLimiter is optional
	RateLimiter *middleware.RateLimiter
}

// setupRouter builds the gin engine with every API route under /api
func setupRouter(opts routerOptions) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Recovery(), middleware.AccessLog())

	if opts.Registry != nil {
		router.Use(middleware.NewMetrics(opts.Registry).Handler())
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}
	if opts.Config != nil && len(opts.Config.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.Config.CORSAllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Disposition", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if opts.RateLimiter != nil {
		router.Use(opts.RateLimiter.Handler())
	}

	router.NoRoute(func(c *gin.Context) {
		utils.RespondError(c, http.StatusNotFound, "NOT_FOUND", "Route not found")
	})

	api := router.Group("/api")
	{
		api.GET("/health", healthCheck)
		api.GET("/database/status", databaseStatus)

		// Public catalog
		api.GET("/products", controllers.ListProducts)
		api.GET("/products/:id", controllers.GetProduct)
		api.GET("/products/:id/image", controllers.GetProductImage)
		api.GET("/products/:id/scents", controllers.ListProductScents)
		api.GET("/products/:id/colors", controllers.ListProductColors)
		api.GET("/scents", controllers.ListScents(true))
		api.GET("/colors", controllers.ListColors(true))
		api.GET("/settings", controllers.GetSettings)

		authed := api.Group("", opts.Auth)
		authed.POST("/users", controllers.CreateUser)

		user := authed.Group("", middleware.LoadCurrentUser())
		{
			user.GET("/users/me", controllers.GetMyProfile)
			user.PUT("/users/me", controllers.UpdateMyProfile)

			user.GET("/cart", controllers.GetCart)
			user.POST("/cart", controllers.AddToCart)
			user.PUT("/cart/:id", controllers.UpdateCartItem)
			user.DELETE("/cart/:id", controllers.RemoveCartItem)
			user.DELETE("/cart", controllers.ClearCart)

			user.POST("/orders", controllers.CreateOrder)
			user.GET("/orders", controllers.ListOrders)
			user.GET("/orders/:id", controllers.GetOrder)
			user.GET("/orders/:id/items", controllers.GetOrderItems)
			user.POST("/orders/:id/invoice", controllers.GenerateOrderInvoice)
			user.GET("/orders/:id/invoice/pdf", controllers.GetOrderInvoicePDF)

			user.GET("/invoices", controllers.ListInvoices)
			user.GET("/invoices/:id", controllers.GetInvoice)
			user.GET("/invoices/:id/pdf", controllers.GetInvoicePDF)
		}

		admin := authed.Group("", middleware.RequireAdmin())
		{
			admin.GET("/admin/products", controllers.ListAllProducts)
			admin.GET("/admin/scents", controllers.ListScents(false))
			admin.GET("/admin/colors", controllers.ListColors(false))
			admin.POST("/admin/orders", controllers.CreateAdminOrder)

			admin.POST("/products", controllers.CreateProduct)
			admin.PUT("/products/:id", controllers.UpdateProduct)
			admin.DELETE("/products/:id", controllers.DeleteProduct)
			admin.POST("/products/:id/image", controllers.UploadProductImage)
			admin.POST("/products/:id/scents", controllers.AddProductScent)
			admin.DELETE("/products/:id/scents", controllers.RemoveAllProductScents)
			admin.DELETE("/products/:id/scents/:scentId", controllers.RemoveProductScent)
			admin.POST("/products/:id/colors", controllers.AddProductColor)
			admin.DELETE("/products/:id/colors", controllers.RemoveAllProductColors)
			admin.DELETE("/products/:id/colors/:colorId", controllers.RemoveProductColor)

			admin.POST("/scents", controllers.CreateScent)
			admin.PUT("/scents/:id", controllers.UpdateScent)
			admin.DELETE("/scents/:id", controllers.DeleteScent)
			admin.POST("/colors", controllers.CreateColor)
			admin.PUT("/colors/:id", controllers.UpdateColor)
			admin.DELETE("/colors/:id", controllers.DeleteColor)

			admin.PUT("/orders/:id/status", controllers.UpdateOrderStatus)

			admin.POST("/invoices", controllers.CreateInvoice)
			admin.DELETE("/invoices/:id", controllers.DeleteInvoice)

			admin.PUT("/settings/:key", controllers.UpdateSetting)
			admin.DELETE("/settings/:key", controllers.DeleteSetting)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Candle Storefront API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to get database instance")
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "DATABASE_CONNECTION_ERROR", "Database connection failed")
		return
	}

	// Get list of tables
	var tables []string
	if err := db.WithContext(c.Request.Context()).
		Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").
		Scan(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "DATABASE_QUERY_ERROR", "Failed to query tables")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
