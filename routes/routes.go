package routes

import (
	"storefront-backend/cache"
	"storefront-backend/handlers"
	"storefront-backend/middleware"
	"storefront-backend/models"
	"storefront-backend/services"
	"storefront-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes wires services and handlers onto r. authLimiter may be nil to
// leave the auth endpoints unthrottled.
func SetupRoutes(r *gin.Engine, db *gorm.DB, cartCache cache.CartCache, authLimiter *middleware.RateLimiter) {
	utils.UseJSONFieldNames()

	productService := services.NewProductService(db)
	userService := services.NewUserService(db)
	cartService := services.NewCartService(db, productService, cartCache)

	healthHandler := &handlers.HealthHandler{DB: db}
	authHandler := &handlers.AuthHandler{Users: userService}
	productHandler := &handlers.ProductHandler{Products: productService}
	cartHandler := &handlers.CartHandler{Carts: cartService}

	r.GET("/health", healthHandler.Health)

	// Auth routes
	auth := r.Group("/auth")
	if authLimiter != nil {
		auth.Use(authLimiter.Middleware())
	}
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/profile", middleware.AuthMiddleware(), authHandler.GetProfile)
		auth.POST("/register-admin", middleware.AuthMiddleware(), middleware.AdminMiddleware(), authHandler.RegisterAdmin)
	}

	// Public product routes
	products := r.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/search", productHandler.SearchProducts)
		products.GET("/category/:category", productHandler.GetProductsByCategory)
		products.GET("/:id", productHandler.GetProduct)
	}

	// Admin product routes
	adminProducts := r.Group("/products")
	adminProducts.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		adminProducts.POST("", productHandler.CreateProduct)
		adminProducts.PATCH("/:id", productHandler.UpdateProduct)
		adminProducts.DELETE("/:id", productHandler.DeleteProduct)
	}

	// Cart routes
	cart := r.Group("/cart")
	cart.Use(middleware.AuthMiddleware(), middleware.RequireRoles(models.RoleUser, models.RoleAdmin))
	{
		cart.POST("", cartHandler.CreateCart)
		cart.GET("/my-cart", cartHandler.GetMyCart)
		cart.POST("/:id/items", cartHandler.AddItem)
		cart.DELETE("/:id/items/:productId", cartHandler.RemoveItem)
		cart.DELETE("/:id", cartHandler.DeleteCart)
	}
}
