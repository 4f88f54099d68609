package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"roofmart/internal/cache"
	"roofmart/internal/config"
	"roofmart/internal/database"
	"roofmart/internal/handler"
	"roofmart/internal/mw"
	"roofmart/internal/payment"
	"roofmart/internal/service"
	"roofmart/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, the gRPC health endpoint and the Stripe reconciler",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringP("address", "a", "", "HTTP listen address")
	serveCmd.Flags().StringP("secret", "s", "", "JWT signing secret")
	serveCmd.Flags().String("redis", "", "Redis address for carts")
	serveCmd.Flags().String("grpc", "", "gRPC health listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == config.DefaultJWTSecret {
		slog.Warn("using the default jwt secret, set JWT_SECRET in production")
	}

	db, err := openDB(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)

	conv, err := cfg.Converter()
	if err != nil {
		return err
	}

	var rzp service.RazorpayGateway
	if cfg.Razorpay.Enabled() {
		gw, err := payment.NewRazorpay(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
		if err != nil {
			return err
		}
		rzp = gw
	} else {
		slog.Warn("razorpay is not configured")
	}

	var stripeGW service.StripeGateway
	if cfg.Stripe.Enabled() {
		gw, err := payment.NewStripe(cfg.Stripe.SecretKey, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL)
		if err != nil {
			return err
		}
		stripeGW = gw
	} else {
		slog.Warn("stripe is not configured")
	}

	// Services
	authSvc := service.NewAuthService(db)
	orderSvc := service.NewOrderService(db)
	paymentSvc := service.NewPaymentService(orderSvc, rzp, stripeGW, conv)
	confirmSvc := service.NewConfirmationService(orderSvc)
	revenueSvc := service.NewRevenueService(orderSvc, conv)
	catalogSvc := service.NewCatalogService(db, cfg.Categories)
	inquirySvc := service.NewInquiryService(db)
	inventorySvc := service.NewInventoryService(db)

	checks := map[string]handler.HealthCheck{"database": db.PingContext}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := rdb.Close(); err != nil {
			slog.Error("failed to close redis", "error", err)
		}
	}()

	var carts handler.Carts
	cartStore := cache.NewCartStore(rdb)
	if err := cartStore.Ping(cmd.Context()); err != nil {
		slog.Warn("redis unavailable, cart routes disabled", "addr", cfg.RedisAddr, "error", err)
	} else {
		carts = service.NewCartService(cartStore, catalogSvc, paymentSvc)
		checks["redis"] = cartStore.Ping
	}

	limiter := mw.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	router := handler.NewRouter(handler.Deps{
		Sessions: handler.Sessions{
			Secret:   cfg.JWTSecret,
			BuyerTTL: cfg.BuyerSessionTTL,
			AdminTTL: cfg.AdminSessionTTL,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		Limiter:        limiter,
		Auth:           authSvc,
		Profiles:       authSvc,
		Payments:       paymentSvc,
		Confirmations:  confirmSvc,
		Orders:         orderSvc,
		Revenue:        revenueSvc,
		Catalog:        catalogSvc,
		Inquiries:      inquirySvc,
		Carts:          carts,
		Inventory:      inventorySvc,
		Admins:         authSvc,
		Health:         checks,
	})

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	grpcSrv, healthSrv, err := startGRPCHealth(cfg.GRPCAddress)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go limiter.Cleanup(ctx, time.Minute, 10*time.Minute)
	if stripeGW != nil {
		reconciler := worker.NewStripeReconciler(orderSvc, paymentSvc, cfg.Reconcile.Interval, cfg.Reconcile.MinAge, cfg.Reconcile.BatchSize)
		go reconciler.Start(ctx)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress, "grpc_addr", cfg.GRPCAddress)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-quit:
	case err = <-serveErr:
		slog.Error("server failed", "error", err)
	}
	slog.Info("shutting down...")

	cancel() // stop background workers
	healthSrv.Shutdown()
	grpcSrv.GracefulStop()

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if shutErr := srv.Shutdown(ctxShut); shutErr != nil {
		slog.Error("server shutdown failed", "error", shutErr)
	}

	slog.Info("server stopped")
	return err
}

func startGRPCHealth(addr string) (*grpc.Server, *health.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen grpc %s: %w", addr, err)
	}

	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		if err := srv.Serve(lis); err != nil {
			slog.Error("grpc server failed", "error", err)
		}
	}()
	return srv, hs, nil
}
