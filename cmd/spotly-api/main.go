// README: API server entrypoint; wires config, infrastructure, services,
// and the HTTP router, then runs until interrupted.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"spotly/internal/config"
	"spotly/internal/events"
	spotlyhttp "spotly/internal/http"
	"spotly/internal/http/handlers"
	"spotly/internal/infra"
	"spotly/internal/modules/booking"
	"spotly/internal/modules/settlement"
	"spotly/internal/modules/spot"
	"spotly/internal/payments"
	"spotly/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := infra.NewLogger(cfg.App.LogPath, cfg.App.Debug)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	// Optional infrastructure degrades gracefully: no redis means local
	// rate-limit counters, no kafka means events are dropped, no stripe
	// means sessions complete without settlement.
	var store ratelimit.CounterStore
	if cfg.Redis.Addr != "" {
		store = ratelimit.NewRedisStore(infra.NewRedis(cfg.Redis.Addr))
	} else {
		local := ratelimit.NewLocalStore()
		go local.Run(ctx)
		store = local
		log.Warn("redis not configured, using in-process rate limit counters")
	}
	limiter := ratelimit.New(store, cfg.RateLimit.Limit, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)

	var publisher *events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
	} else {
		log.Warn("kafka not configured, booking events will not be published")
	}

	var gateway payments.Gateway
	var verifier payments.Verifier
	if cfg.Stripe.SecretKey != "" {
		sg := payments.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
		gateway = sg
		verifier = sg
	} else {
		log.Warn("stripe not configured, sessions will complete without settlement")
		verifier = payments.NopVerifier{}
	}

	var geocoder spot.Geocoder
	if cfg.Maps.APIKey != "" {
		mc, err := infra.NewMaps(cfg.Maps.APIKey)
		if err != nil {
			log.Fatal("maps client init failed", zap.Error(err))
		}
		geocoder = spot.NewMapsGeocoder(mc)
	}

	spotStore := spot.NewStore(db)
	bookingStore := booking.NewStore(db)

	spotSvc := spot.NewService(spotStore, geocoder, cfg.OnDemand.DefaultGeofenceRadiusM, log)
	bookingSvc := booking.NewService(bookingStore, spotSvc, gateway, publisher, cfg.OnDemand.ServiceFeePercent, log)
	settlementSvc := settlement.NewService(bookingStore, verifier, publisher, log)

	router := spotlyhttp.NewRouter(
		spotlyhttp.RouterConfig{Debug: cfg.App.Debug, Limiter: limiter},
		handlers.NewSessionHandler(bookingSvc, cfg.OnDemand.RequireGeofence, log),
		handlers.NewBookingHandler(bookingSvc, log),
		handlers.NewSpotHandler(spotSvc, log),
		handlers.NewWebhookHandler(settlementSvc, log),
		log,
	)

	srv := &http.Server{
		Addr:              cfg.App.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", cfg.App.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
}
