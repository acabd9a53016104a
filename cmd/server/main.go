package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"shopora-be/internal/address"
	"shopora-be/internal/cart"
	"shopora-be/internal/checkout"
	"shopora-be/internal/config"
	"shopora-be/internal/db"
	"shopora-be/internal/httpapi"
	"shopora-be/internal/logger"
	"shopora-be/internal/metrics"
	"shopora-be/internal/middleware"
	"shopora-be/internal/order"
	"shopora-be/internal/payment"
	"shopora-be/internal/payment/webhook"
	"shopora-be/internal/pricing"
	"shopora-be/internal/stock"
	"shopora-be/internal/voucher"

	"go.uber.org/zap"
)

const sweepInterval = time.Minute

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	database := db.InitDB(cfg)
	defer database.Close()

	redisClient := db.InitRedis(cfg)
	defer redisClient.Close()

	serverMetrics := metrics.NewServerMetrics()

	stockLedger := stock.NewLedger(database)
	addressRepo := address.NewRepository(database)

	voucherRepo := voucher.NewRepository(database)
	voucherSvc := voucher.NewService(voucherRepo)

	calc := pricing.NewCalculator(pricing.TwoTierShipping{
		ReferenceCity: "Hanoi",
		LocalFee:      15000,
		RemoteFee:     30000,
	}, voucherSvc)

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo, stockLedger)

	cartRepo := cart.NewRepository(database)
	guestStore := cart.NewGuestStore(redisClient)
	cartSvc := cart.NewService(cartRepo, guestStore, stockLedger)

	gateway := payment.NewBankGateway(payment.GatewayConfig{
		BaseURL:      cfg.GatewayBaseURL,
		MerchantCode: cfg.GatewayMerchantCode,
		HashSecret:   cfg.GatewayHashSecret,
		ReturnURL:    cfg.GatewayReturnURL,
	})
	sessionRepo := payment.NewRepository(database)
	reconciler := payment.NewReconciler(sessionRepo, orderRepo, stockLedger, serverMetrics)
	sweeper := payment.NewSweeper(sessionRepo, reconciler, sweepInterval)

	checkoutSvc := checkout.NewService(
		cartRepo, addressRepo, voucherSvc, voucherRepo,
		calc, stockLedger, orderRepo, gateway, sessionRepo,
		serverMetrics,
	)

	api := httpapi.NewAPI(checkoutSvc, cartSvc, orderSvc)
	hooks := webhook.NewHandler(gateway, reconciler, cfg.PaymentSuccessURL, cfg.PaymentFailureURL)

	router := httpapi.NewRouter(api, hooks, httpapi.RouterConfig{
		JWTSecret: []byte(cfg.JWTSecret),
		Metrics:   serverMetrics,
		Limiter:   middleware.NewRateLimiter(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown", zap.Error(err))
		}
	}()

	log.Info("server listening", zap.String("port", cfg.AppPort))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server failed", zap.Error(err))
	}
}
