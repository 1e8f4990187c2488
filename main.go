package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"salonpro-pos/cache"
	"salonpro-pos/config"
	"salonpro-pos/controllers"
	"salonpro-pos/providers"
	"salonpro-pos/repository"
	"salonpro-pos/routes"
	"salonpro-pos/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is not set")
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	ledger := services.NewLedger(store)
	var snapshots services.SnapshotSource = ledger
	if cfg.RedisAddr != "" {
		dialCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err := cache.Dial(dialCtx, cfg.RedisAddr, cfg.RedisPassword)
		cancel()
		if err != nil {
			log.Printf("[WARN] stock cache disabled: %v", err)
		} else {
			defer redisClient.Close()
			log.Printf("Connected to Redis at %s", cfg.RedisAddr)
			stockCache := cache.NewStockCache(redisClient, cfg.StockCacheTTL, ledger)
			ledger.Observe(stockCache)
			snapshots = stockCache
		}
	}

	var links services.PaymentLinkProvider
	if cfg.PaymentLinkURL != "" {
		links = providers.NewHTTPPaymentLink(cfg.PaymentLinkURL, cfg.PaymentLinkAPIKey, cfg.PaymentCurrency)
	}
	var checkout services.CheckoutSessionProvider
	if cfg.StripeSecretKey != "" {
		checkout = providers.NewStripeCheckout(providers.StripeConfig{
			SecretKey:  cfg.StripeSecretKey,
			SuccessURL: cfg.StripeSuccessURL,
			CancelURL:  cfg.StripeCancelURL,
			Currency:   cfg.PaymentCurrency,
		})
	}

	catalog := services.NewCatalogService(store, ledger)
	opts := []services.SaleOption{
		services.WithLineRetries(cfg.SaleLineRetries),
		services.WithClients(store),
	}
	if cfg.TwilioAccountSID != "" {
		opts = append(opts, services.WithNotifier(services.NewTwilioNotifier(services.TwilioConfig{
			AccountSID:     cfg.TwilioAccountSID,
			AuthToken:      cfg.TwilioAuthToken,
			PhoneNumber:    cfg.TwilioPhoneNumber,
			WhatsAppNumber: cfg.TwilioWhatsAppNumber,
		}, store, store)))
	}
	sales := services.NewSaleService(
		ledger,
		services.NewPaymentRecorder(store, links, checkout),
		services.NewAppointmentBridge(store),
		store,
		opts...,
	)

	recovery := services.NewRecoveryService(store, ledger, cfg.RecoveryStaleAfter)
	if err := recovery.StartScheduler(cfg.RecoverySchedule); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	defer recovery.Stop()

	r := routes.SetupRouter(routes.Dependencies{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		SlowRequest: cfg.SlowRequest,
		Products:    &controllers.ProductController{Catalog: catalog, Ledger: ledger},
		Stock:       &controllers.StockController{Adjustments: services.NewAdjustmentService(ledger, store)},
		Sales: &controllers.SaleController{
			Catalog:  catalog,
			Composer: services.NewComposer(catalog, snapshots),
			Sales:    sales,
		},
		Payments: &controllers.PaymentController{Sales: sales},
	})
	printRoutes(r)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Printf("server stopped: %v", err)
	}
}

func openStore(cfg *config.Config) (repository.Store, error) {
	if cfg.StoreDriver == "memory" {
		log.Println("[WARN] STORE_DRIVER=memory, data is lost on restart")
		return repository.NewMemoryStore(), nil
	}

	db, err := config.ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(repository.Models()...); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return repository.NewGormStore(db), nil
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
