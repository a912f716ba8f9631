package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cameronkey/petproduct-sp-ecom/config"
	"github.com/cameronkey/petproduct-sp-ecom/controllers"
	"github.com/cameronkey/petproduct-sp-ecom/csrf"
	"github.com/cameronkey/petproduct-sp-ecom/logger"
	"github.com/cameronkey/petproduct-sp-ecom/middleware"
	awspkg "github.com/cameronkey/petproduct-sp-ecom/pkg/aws"
	"github.com/cameronkey/petproduct-sp-ecom/routes"
	"github.com/cameronkey/petproduct-sp-ecom/sender"
	"github.com/cameronkey/petproduct-sp-ecom/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// AWS clients are optional; every integration degrades to a no-op.
	var (
		snsClient     awspkg.SNSPublisher
		metricsClient *awspkg.MetricsClient
	)
	if cfg.AWSEnabled() {
		awsCfg, awsErr := awspkg.LoadAWSConfig(rootCtx, cfg.AWSEndpoint)
		if awsErr != nil {
			zapLogger.Warn("AWS config unavailable, AWS integrations disabled", zap.Error(awsErr))
		} else {
			zapLogger = setupAWS(rootCtx, cfg, awsCfg, zapLogger, &snsClient, &metricsClient)
		}
	}
	defer zapLogger.Sync() //nolint:errcheck

	if cfg.IsProduction() && !cfg.StripeConfigured() {
		zapLogger.Error("STRIPE_SECRET_KEY is not set; checkout will fail until it is configured")
	}

	// Token store and order ledger share a backend.
	var (
		tokenStore  csrf.Store
		orderLedger services.OrderLedger
		redisClient *redis.Client
	)
	switch cfg.TokenStore {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(rootCtx, 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			zapLogger.Fatal("Redis unreachable", zap.Error(err))
		}
		tokenStore = csrf.NewRedisStore(redisClient, "")
		orderLedger = services.NewRedisOrderLedger(redisClient, "", services.DefaultLedgerWindow)
		zapLogger.Info("Using Redis token store", zap.String("addr", opts.Addr))
	default:
		tokenStore = csrf.NewMemoryStore()
		orderLedger = services.NewMemoryOrderLedger(services.DefaultLedgerWindow)
	}

	tokens := csrf.NewManager(tokenStore, zapLogger, csrf.WithTTL(cfg.CSRFTokenTTL))
	go tokens.RunSweeper(rootCtx, cfg.CSRFSweepInterval)

	// Email
	var emailSender sender.EmailSender
	if cfg.EmailConfigured() {
		smtpSender, err := sender.NewSMTPSender(sender.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.EmailUser,
			Password: cfg.EmailPass,
			FromName: cfg.StoreName,
			Timeout:  cfg.SMTPTimeout,
		})
		if err != nil {
			zapLogger.Error("SMTP sender disabled", zap.Error(err))
		} else {
			emailSender = smtpSender
		}
	} else {
		zapLogger.Warn("EMAIL_USER/EMAIL_PASS not set, confirmation emails disabled")
	}
	notifier, err := services.NewNotificationService(emailSender, services.Branding{
		StoreName:    cfg.StoreName,
		SupportEmail: cfg.SupportEmail,
		BaseURL:      cfg.BaseURL,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to load email templates", zap.Error(err))
	}
	if !cfg.IsProduction() && notifier.Configured() {
		go func() {
			vctx, cancel := context.WithTimeout(rootCtx, cfg.SMTPTimeout)
			defer cancel()
			if err := notifier.VerifyTransport(vctx); err != nil {
				zapLogger.Warn("Email transport verification failed", zap.Error(err))
				return
			}
			zapLogger.Info("Email transport verified")
		}()
	}

	// Payments and fulfilment
	stripeSvc := services.NewStripeService(services.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		APIBaseURL:    cfg.StripeAPIBaseURL,
		Timeout:       cfg.ProviderTimeout,
		Breaker: services.BreakerConfig{
			MinRequests: cfg.BreakerMinRequests,
			OpenTimeout: cfg.BreakerOpenTimeout,
		},
	}, zapLogger)
	checkoutSvc := services.NewCheckoutService(stripeSvc, services.CheckoutConfig{
		BaseURL:            cfg.BaseURL,
		Currency:           cfg.Currency,
		ProductDescription: cfg.ProductDescription,
	}, zapLogger)

	orderOpts := []services.OrderServiceOption{services.WithCloudWatch(metricsClient)}
	if snsClient != nil && cfg.OrderEventsTopicARN != "" {
		orderOpts = append(orderOpts, services.WithOrderEvents(snsClient, cfg.OrderEventsTopicARN))
	}
	orderSvc := services.NewOrderService(orderLedger, notifier, zapLogger, orderOpts...)

	dispatcher := services.NewDispatcher(services.DispatcherConfig{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
		Timeout:   cfg.NotifyTimeout,
	}, zapLogger)

	// Rate limiting
	csrfLimiter := middleware.NewWindowLimiter(cfg.CSRFRateLimitMax, cfg.CSRFRateLimitWindow)
	defer csrfLimiter.Stop()
	var globalLimiter *middleware.RateLimiter
	if cfg.IsProduction() {
		globalLimiter = middleware.NewWindowLimiter(cfg.RateLimitMax, cfg.RateLimitWindow())
		defer globalLimiter.Stop()
	}

	fatal := make(chan error, 1)
	triggerShutdown := shutdownTrigger(fatal)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.NewRouter(routes.Handlers{
		Checkout: controllers.NewCheckoutController(tokens, checkoutSvc, zapLogger),
		Webhook:  controllers.NewWebhookController(stripeSvc, orderSvc, dispatcher, zapLogger),
		Admin:    controllers.NewAdminController(stripeSvc, notifier, zapLogger),
		System:   controllers.NewSystemController(cfg, zapLogger),
		Test:     controllers.NewTestController(cfg.EmailUser, notifier, zapLogger),
	}, routes.Options{
		Production:        cfg.IsProduction(),
		TestEndpoints:     cfg.TestEndpointsEnabled(),
		AllowedOrigins:    cfg.AllowedOrigins,
		AdminJWTSecret:    cfg.AdminJWTSecret,
		FrontendDir:       cfg.FrontendDir,
		CSRFLimiter:       csrfLimiter,
		CSRFLimitWindow:   cfg.CSRFRateLimitWindow,
		GlobalLimiter:     globalLimiter,
		GlobalLimitWindow: cfg.RateLimitWindow(),
		CloudWatch:        metricsClient,
		OnPanic:           panicHook(cfg.IsProduction(), triggerShutdown),
		Logger:            zapLogger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			triggerShutdown(err)
		}
	}()

	zapLogger.Info("Storefront started",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.String("base_url", cfg.BaseURL),
		zap.String("stripe_key", logger.Presence(cfg.StripeSecretKey)),
		zap.String("webhook_secret", logger.Presence(cfg.StripeWebhookSecret)),
		zap.String("email", logger.Presence(cfg.EmailUser)),
		zap.String("token_store", cfg.TokenStore),
	)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	exitCode := 0
	select {
	case sig := <-quit:
		zapLogger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-fatal:
		zapLogger.Error("Fatal error, shutting down", zap.Error(err))
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server shutdown error", zap.Error(err))
		exitCode = 1
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Background tasks did not finish", zap.Error(err))
		exitCode = 1
	}
	cancelRoot()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("Redis close error", zap.Error(err))
		}
	}
	zapLogger.Info("Server exited", zap.Int("code", exitCode))
	if exitCode != 0 {
		_ = zapLogger.Sync()
		os.Exit(exitCode)
	}
}

// setupAWS wires Secrets Manager, SNS and CloudWatch. It returns the logger
// to use from here on, which tees to CloudWatch Logs when that is enabled.
func setupAWS(ctx context.Context, cfg *config.Config, awsCfg sdkaws.Config, zapLogger *zap.Logger,
	snsClient *awspkg.SNSPublisher, metricsClient **awspkg.MetricsClient) *zap.Logger {
	if cfg.AWSUseSecrets {
		missing := config.ApplySecrets(ctx, cfg, awspkg.NewSecretsClient(awsCfg))
		if len(missing) > 0 {
			zapLogger.Warn("Secrets not found, using environment values", zap.Strings("secrets", missing))
		}
	}
	if cfg.OrderEventsTopicARN != "" {
		*snsClient = awspkg.NewSNSClient(awsCfg)
	}
	if !cfg.CloudWatchEnabled {
		return zapLogger
	}

	*metricsClient = awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, true)
	logsClient, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, "storefront")
	if err != nil {
		zapLogger.Warn("CloudWatch Logs unavailable", zap.Error(err))
		return zapLogger
	}
	teed, err := logger.NewWithWriter(cfg.Environment, logsClient)
	if err != nil {
		zapLogger.Warn("CloudWatch log tee disabled", zap.Error(err))
		return zapLogger
	}
	return teed
}

// shutdownTrigger reports the first fatal error on ch and drops the rest.
func shutdownTrigger(ch chan<- error) func(error) {
	return func(err error) {
		select {
		case ch <- err:
		default:
		}
	}
}

// panicHook decides what a recovered handler panic does. In production it
// takes the process down gracefully; elsewhere the request fails and the
// server keeps running.
func panicHook(production bool, trigger func(error)) func(error) {
	if !production {
		return nil
	}
	return trigger
}
