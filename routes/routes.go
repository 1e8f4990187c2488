package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"salonpro-pos/config"
	"salonpro-pos/controllers"
	"salonpro-pos/utils"
)

// Dependencies are the controllers and settings the router is built from.
type Dependencies struct {
	JWTSecret   string
	CORSOrigins []string
	SlowRequest time.Duration

	Products *controllers.ProductController
	Stock    *controllers.StockController
	Sales    *controllers.SaleController
	Payments *controllers.PaymentController
}

func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()

	allowed := make(map[string]bool, len(deps.CORSOrigins))
	for _, o := range deps.CORSOrigins {
		allowed[o] = true
	}
	r.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) bool {
			return allowed[origin]
		},
	}))

	r.Use(config.PerformanceLogger(deps.SlowRequest))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware(deps.JWTSecret))
	{
		// Product routes
		products := api.Group("/products")
		{
			products.POST("", deps.Products.CreateProduct)
			products.GET("", deps.Products.GetProducts)
			products.GET("/barcode/:code", deps.Products.GetProductByBarcode)
			products.GET("/:id", deps.Products.GetProduct)
			products.GET("/:id/stock", deps.Products.GetStock)
			products.GET("/:id/history", deps.Products.GetHistory)
			products.GET("/:id/reconcile", deps.Products.Reconcile)

			// Stock adjustment routes
			products.POST("/:id/restock", deps.Stock.Restock)
			products.POST("/:id/return", deps.Stock.Return)
			products.POST("/:id/adjust", deps.Stock.Adjust)
			products.POST("/:id/write-off", deps.Stock.WriteOff)
		}

		// Sale routes
		sales := api.Group("/sales")
		{
			sales.POST("/validate", deps.Sales.ValidateSale)
			sales.POST("", deps.Sales.ExecuteSale)
		}

		// Payment routes
		payments := api.Group("/payments")
		{
			payments.GET("/:id", deps.Payments.GetPayment)
			payments.POST("/:id/complete", deps.Payments.CompletePayment)
			payments.POST("/:id/fail", deps.Payments.FailPayment)
		}
	}

	return r
}
