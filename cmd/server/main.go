package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/pprofhandler"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/greenbite/api/handler"
	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/internal/config"
	"github.com/fastygo/greenbite/internal/infrastructure/buffer"
	"github.com/fastygo/greenbite/internal/infrastructure/media"
	"github.com/fastygo/greenbite/internal/infrastructure/monitor"
	"github.com/fastygo/greenbite/internal/integrations/notifier"
	"github.com/fastygo/greenbite/internal/integrations/ocr"
	"github.com/fastygo/greenbite/internal/integrations/recipes"
	"github.com/fastygo/greenbite/internal/metrics"
	"github.com/fastygo/greenbite/internal/middleware"
	"github.com/fastygo/greenbite/internal/router"
	"github.com/fastygo/greenbite/internal/services"
	"github.com/fastygo/greenbite/internal/services/lifecycle"
	"github.com/fastygo/greenbite/pkg/httpcontext"
	"github.com/fastygo/greenbite/pkg/logger"
	"github.com/fastygo/greenbite/repository"
	"github.com/fastygo/greenbite/usecase"
	approvalUC "github.com/fastygo/greenbite/usecase/approval"
	authUC "github.com/fastygo/greenbite/usecase/auth"
	donationUC "github.com/fastygo/greenbite/usecase/donation"
	guardUC "github.com/fastygo/greenbite/usecase/guard"
	inventoryUC "github.com/fastygo/greenbite/usecase/inventory"
	profileUC "github.com/fastygo/greenbite/usecase/profile"
	recipeUC "github.com/fastygo/greenbite/usecase/recipe"
	roleUC "github.com/fastygo/greenbite/usecase/role"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		Service:  cfg.AppName,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	st, err := openStores(appCtx, cfg, manager, zapLogger)
	if err != nil {
		zapLogger.Fatal("store initialisation failed", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	dir := repository.Observe(st.dir, st.feed, zapLogger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	bufferStore, err := buffer.Open(cfg.Buffer.Path, buffer.Options{Bucket: "directory_writes", MaxItems: cfg.Buffer.MaxSize})
	if err != nil {
		zapLogger.Fatal("failed to open buffer store", zap.Error(err))
	}
	manager.RegisterCloser("buffer", bufferStore)

	mon := monitor.New(monitor.Dependencies{
		Store:    cfg.Store.Driver,
		Postgres: st.pgPing,
		Redis:    st.redisPing,
		Buffer:   bufferStore,
		Outbox:   st.outbox.PendingCount,
	}, 10*time.Second, zapLogger)
	mon.Start()
	manager.RegisterStop("monitor", mon.Stop)

	bufferProcessor := services.NewBufferProcessor(
		bufferStore,
		mon,
		dir,
		zapLogger,
		services.ProcessorConfig{
			Interval:   cfg.Buffer.SyncInterval,
			BatchSize:  50,
			MaxRetries: cfg.Buffer.MaxRetry,
			Retention:  time.Duration(cfg.Buffer.RetentionHours) * time.Hour,
		},
	)
	bufferProcessor.Start()
	manager.Register("buffer_processor", func(ctx context.Context) error {
		bufferProcessor.Stop(ctx)
		return nil
	})
	bufferBridge := services.NewBufferBridge(bufferProcessor)

	notifierClient := notifier.New(notifier.Config{URL: cfg.Notifier.URL, Timeout: cfg.Notifier.Timeout}, zapLogger)
	ocrClient := ocr.New(ocr.Config{URL: cfg.OCR.URL, Timeout: cfg.OCR.Timeout}, zapLogger)
	recipeClient := recipes.New(recipes.Config{URL: cfg.Recipes.URL, APIKey: cfg.Recipes.APIKey, Timeout: cfg.Recipes.Timeout}, zapLogger)
	if cfg.Recipes.APIKey == "" {
		zapLogger.Warn("RECIPES_API_KEY is empty; recipe lookups will be rejected upstream")
	}

	var images inventoryUC.ImageStore
	if cfg.Media.Enabled() {
		cld, err := media.NewCloudinary(cfg.Media, zapLogger)
		if err != nil {
			zapLogger.Fatal("cloudinary setup failed", zap.Error(err))
		}
		images = cld
	} else {
		zapLogger.Warn("cloudinary credentials missing; image uploads disabled")
	}

	jwtSecret := cfg.JWT.Secret
	if jwtSecret == "" {
		jwtSecret = uuid.NewString()
		zapLogger.Warn("JWT_SECRET is empty; using a random secret, tokens will not survive a restart")
	}

	roleResolver := roleUC.New(dir, zapLogger)
	routeGuard := guardUC.New(roleResolver, cfg.Admin.ResolveTimeout, zapLogger)
	authUseCase := authUC.New(st.identities, st.sessions, dir, st.feed, authUC.Config{
		SessionTTL: cfg.Session.TTL,
		Tokens:     authUC.TokenConfig{Secret: jwtSecret, Issuer: cfg.JWT.Issuer},
	}, zapLogger)
	profileUseCase := profileUC.New(dir, roleResolver, bufferBridge, zapLogger)
	inventoryUseCase := inventoryUC.New(dir, bufferBridge, images, ocrClient, zapLogger)
	donationUseCase := donationUC.New(dir, st.feed, collector, zapLogger)
	recipeUseCase := recipeUC.New(dir, recipeClient, st.cache, recipeUC.Config{
		Number:   cfg.Recipes.Number,
		CacheTTL: cfg.Recipes.CacheTTL,
	}, zapLogger)
	approvalUseCase := approvalUC.New(dir, st.outbox, notifierClient, collector, approvalUC.Config{
		ConfirmSecret:     cfg.Admin.ConfirmSecret,
		NotificationGrace: cfg.Outbox.Grace,
	}, zapLogger)

	dispatcher := usecase.NewDispatcher()
	dispatcher.RegisterCommand(domain.OutboxApprovalEmail, approvalUC.NotificationCommand(notifierClient))

	outboxRelay := services.NewOutboxRelay(st.outbox, dispatcher, approvalUseCase, collector, zapLogger, services.OutboxRelayConfig{
		Interval:    cfg.Outbox.Interval,
		BatchSize:   cfg.Outbox.BatchSize,
		MaxAttempts: cfg.Outbox.MaxAttempts,
		BaseBackoff: cfg.Outbox.BaseBackoff,
		MaxBackoff:  cfg.Outbox.MaxBackoff,
		Lease:       cfg.Outbox.Lease,
	})
	outboxRelay.Start()
	manager.Register("outbox_relay", func(ctx context.Context) error {
		outboxRelay.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:     apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger, cfg.Session.TTL, cfg.Session.MaxTTL),
		Profile:  apiHandler.NewProfileHandler(profileUseCase, ctxAdapter, zapLogger),
		Access:   apiHandler.NewAccessHandler(routeGuard, ctxAdapter, zapLogger),
		Item:     apiHandler.NewItemHandler(inventoryUseCase, ctxAdapter, zapLogger),
		Donation: apiHandler.NewDonationHandler(donationUseCase, ctxAdapter, zapLogger),
		Recipe:   apiHandler.NewRecipeHandler(recipeUseCase, ctxAdapter, zapLogger),
		Admin:    apiHandler.NewAdminHandler(approvalUseCase, ctxAdapter, zapLogger),
		Health:   apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}
	if cfg.HTTP.EnableMetrics {
		handlers.Metrics = metrics.Handler(registry)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.AuthPerSecond, cfg.RateLimit.AuthBurst)
	r := router.New(handlers, router.Guards{
		Auth:      middleware.JWTAuth(authUseCase, cfg.Context.RequestTimeout, zapLogger),
		RateLimit: limiter.Middleware,
		View: func(view string) router.Middleware {
			return middleware.RequireView(routeGuard, view, zapLogger)
		},
	})
	if cfg.HTTP.EnablePprof {
		r.GET("/debug/pprof/{profile:*}", pprofhandler.PprofHandler)
	}

	server := &fasthttp.Server{
		Handler:      collector.Instrument(r.Handler),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	zapLogger.Info("server started", zap.String("address", cfg.Address()), zap.String("store", cfg.Store.Driver))
	manager.Go("http_server", func() error {
		return server.ListenAndServe(cfg.Address())
	})
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
