package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/router"
	"github.com/ikkim/storefront-backend/internal/scheduler"
	"github.com/ikkim/storefront-backend/internal/session"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/mailer"
	redispkg "github.com/ikkim/storefront-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logger.Initialize(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		EnableColor: cfg.Server.Environment == "development",
	})

	logger.Info("Starting storefront backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   cfg.Log.Level,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(db.GetDB()); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis backs guest carts, the token blacklist and the tracking limiter.
	// Without it guest carts live in process memory.
	var (
		guestStore storage.GuestCartStorage
		blacklist  middleware.TokenRevocations
		revoker    service.TokenRevoker
	)
	if err := redispkg.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, using in-memory guest carts without token revocation", map[string]interface{}{
			"error": err.Error(),
		})
		guestStore = storage.NewMemoryGuestCartStorage()
	} else {
		defer redispkg.Close()
		bl := redispkg.NewTokenBlacklist(redispkg.GetClient())
		blacklist, revoker = bl, bl
		guestStore = storage.NewRedisGuestCartStorage(redispkg.GetClient(), cfg.Cart.GuestTTL)
	}

	// Object storage for order reports
	var objectStore storage.ObjectStore
	if cfg.S3.Bucket != "" {
		objectStore = storage.NewS3Storage(context.Background(), cfg.S3.Region, cfg.S3.Bucket,
			cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.BaseURL, cfg.Report.URLExpiry)
	} else {
		logger.Warn("S3_BUCKET not set, order reports are kept in memory")
		objectStore = storage.NewMemoryObjectStore()
	}

	mail, err := mailer.New(cfg.Mail)
	if err != nil {
		logger.Fatal("Failed to configure mailer", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	broker := session.NewBroker()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())

	// Initialize services
	cartService := service.NewCartService(cartRepo, productRepo, guestStore, hub)
	reconciler := service.NewCartReconciler(cartService, broker)
	defer reconciler.Close()

	authService := service.NewAuthService(
		userRepo,
		broker,
		revoker,
		mail,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	productService := service.NewProductService(productRepo)
	checkoutService := service.NewCheckoutService(db.GetDB(), cartService, orderRepo, cartRepo, guestStore, hub, mail,
		service.CheckoutOptions{Currency: cfg.Cart.Currency, StorefrontURL: cfg.Cart.StorefrontURL})
	orderService := service.NewOrderService(orderRepo)
	reportService := service.NewReportService(orderRepo, objectStore)

	reports := scheduler.NewReportScheduler(reportService, cfg.Report.Schedule)
	if err := reports.Start(); err != nil {
		logger.Warn("Order report scheduler disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		defer reports.Stop()
	}

	// Initialize controllers
	sessionController := controller.NewSessionController()
	authController := controller.NewAuthController(authService)
	productController := controller.NewProductController(productService)
	cartController := controller.NewCartController(cartService, hub, websocket.NewUpgrader(cfg.CORS.AllowedOrigins))
	checkoutController := controller.NewCheckoutController(checkoutService)
	orderController := controller.NewOrderController(orderService)
	adminController := controller.NewAdminController(orderService, reportService)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, blacklist)

	// Setup router
	r := router.NewRouter(
		sessionController,
		authController,
		productController,
		cartController,
		checkoutController,
		orderController,
		adminController,
		authMiddleware,
		redispkg.GetClient(),
		cfg,
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}
