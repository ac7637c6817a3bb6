package main

import (
	"log"
	"os"
	"time"

	httpctrl "payment-service/internal/controllers/http"
	"payment-service/internal/infra"
	mmysql "payment-service/internal/infra/mysql"
	"payment-service/internal/infra/rabbitmq"
	"payment-service/internal/rails"
	"payment-service/internal/repository"
	mysqlrepo "payment-service/internal/repository/mysql"
	"payment-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := mmysql.NewMySQLFromEnv()
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(200)
	sqlDB.SetMaxIdleConns(50)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	repo := mysqlrepo.NewOrderRepository(db, logger)
	exec := repository.NewExecutor(db, logger)

	clientTimeout := 2 * time.Second
	catalog := infra.NewCatalogClient(os.Getenv("CATALOG_SERVICE_URL"), clientTimeout)
	cart := infra.NewCartClient(os.Getenv("CART_SERVICE_URL"), clientTimeout)
	shipping := infra.NewShippingClient(os.Getenv("SHIPPING_SERVICE_URL"), clientTimeout)
	promotions := infra.NewPromotionClient(os.Getenv("PROMOTION_SERVICE_URL"), clientTimeout)
	referral := infra.NewReferralClient(os.Getenv("REFERRAL_SERVICE_URL"), clientTimeout)

	providerTimeout := 5 * time.Second
	registry := rails.NewRegistry(
		rails.NewGateway(rails.GatewayConfig{
			BaseURL: os.Getenv("GATEWAY_API_URL"),
			APIKey:  os.Getenv("GATEWAY_API_KEY"),
			Timeout: providerTimeout,
		}, logger),
		rails.NewAddressCrypto(rails.AddressCryptoConfig{
			BaseURL:       os.Getenv("ADDRESS_CRYPTO_API_URL"),
			APIKey:        os.Getenv("ADDRESS_CRYPTO_API_KEY"),
			WebhookSecret: os.Getenv("ADDRESS_CRYPTO_WEBHOOK_SECRET"),
			Timeout:       providerTimeout,
		}, logger),
		rails.NewInvoiceCrypto(rails.InvoiceCryptoConfig{
			BaseURL:       os.Getenv("INVOICE_CRYPTO_API_URL"),
			APIKey:        os.Getenv("INVOICE_CRYPTO_API_KEY"),
			WebhookSecret: os.Getenv("INVOICE_CRYPTO_WEBHOOK_SECRET"),
			Timeout:       providerTimeout,
		}, logger),
	)

	publisher, err := rabbitmq.NewPublisher(os.Getenv("RABBITMQ_URL"), "order.exchange", logger)
	if err != nil {
		logger.Fatal("failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	dispatcher := services.NewCompletionDispatcher(publisher, referral, logger)

	cfg := services.Config{
		PromoFailOpen: os.Getenv("PROMO_FAIL_OPEN") != "false",
	}

	orders := services.NewOrderService(repo, exec, catalog, cart, shipping, promotions, registry, dispatcher, cfg, logger)
	webhooks := services.NewWebhookService(repo, registry, dispatcher, logger)

	redisClient := redis.NewClient(&redis.Options{
		Addr:         os.Getenv("REDIS_HOST") + ":6379",
		DB:           0,
		PoolSize:     100,
		MinIdleConns: 10,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	orders.SetRedisClient(redisClient)

	handler := httpctrl.NewHandler(orders, webhooks, redisClient, logger)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	handler.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info("starting payment service", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("server run failed", zap.Error(err))
	}
}
