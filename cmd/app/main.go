package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/tripbooking/config"
	"github.com/Domenick1991/tripbooking/internal/bootstrap"
	"github.com/Domenick1991/tripbooking/internal/cache"
	"github.com/Domenick1991/tripbooking/internal/kafka"
	"github.com/Domenick1991/tripbooking/internal/offer"
	"github.com/Domenick1991/tripbooking/internal/profile"
	"github.com/Domenick1991/tripbooking/internal/service/booking"
	"github.com/Domenick1991/tripbooking/internal/service/draft"
	"github.com/Domenick1991/tripbooking/internal/service/link"
	"github.com/Domenick1991/tripbooking/internal/service/offers"
	"github.com/Domenick1991/tripbooking/internal/token"
	"github.com/Domenick1991/tripbooking/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("open storage")
	}
	defer storage.Close()

	var health []bootstrap.HealthCheck
	if storage.Health != nil {
		health = append(health, *storage.Health)
	}

	var gateway offer.Gateway = offer.NewHTTPGateway(cfg.Offer.BaseURL, cfg.Offer.APIKey, time.Duration(cfg.Offer.TimeoutSeconds)*time.Second)
	if cfg.Offer.RateLimitMs > 0 {
		gateway = offer.NewRateLimitedGateway(gateway, time.Duration(cfg.Offer.RateLimitMs)*time.Millisecond)
	}

	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		redisCache = cache.NewRedisCache(cfg.Redis)
		defer redisCache.Close()
		gateway = offer.NewCachedGateway(gateway, redisCache, cfg.Booking.OfferCacheTTL(), logger.WithField("component", "offer_cache"))
		health = append(health, bootstrap.HealthCheck{Name: "redis", Check: redisCache.Ping})
	}

	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, logger)
		defer producer.Close()
		health = append(health, bootstrap.HealthCheck{Name: "kafka", Check: producer.CheckConnection})
	}

	var bookingOpts []booking.BookingServiceOption
	if producer != nil {
		bookingOpts = append(bookingOpts, booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic))
	}
	bookingService := booking.NewBookingService(storage.Bookings, logger.WithField("component", "booking"), bookingOpts...)

	draftOpts := []draft.DraftServiceOption{
		draft.WithBookingNotifier(bookingService),
		draft.WithDraftTTL(cfg.Booking.DraftTTL()),
	}
	if producer != nil {
		draftOpts = append(draftOpts, draft.WithProducer(producer, cfg.Kafka.BookingEventsTopic))
	}
	if cfg.Profiles.BaseURL != "" {
		draftOpts = append(draftOpts, draft.WithProfileDirectory(
			profile.NewHTTPDirectory(cfg.Profiles.BaseURL, time.Duration(cfg.Profiles.TimeoutSeconds)*time.Second),
		))
	}
	draftService := draft.NewDraftService(storage.Drafts, storage.Bookings, gateway, logger.WithField("component", "draft"), draftOpts...)

	linkService := link.NewLinkService(storage.Links, storage.Bookings, token.NewGenerator(), logger.WithField("component", "link"))
	offerService := offers.NewOfferService(gateway, time.Now)

	router := bootstrap.NewRouter(cfg, bootstrap.Services{
		Offers:   offerService,
		Drafts:   draftService,
		Bookings: bookingService,
		Links:    linkService,
		Health:   health,
	}, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bootstrap.Run(ctx, cfg.HTTP, router, logger)
	})

	// The memory store lives in this process, so the background jobs have to as well.
	if cfg.Storage.Driver == config.StorageDriverMemory {
		dispatcher := bootstrap.NewDispatcher(cfg, storage, linkService, redisCache, producer, logger)
		jobs := worker.New(draftService, storage.Bookings, dispatcher, logger.WithField("component", "worker"),
			worker.WithSweepInterval(time.Duration(cfg.Worker.ExpirationSweepMinutes)*time.Minute),
			worker.WithRetryInterval(time.Duration(cfg.Worker.ConfirmationRetrySeconds)*time.Second),
			worker.WithRetryGrace(time.Duration(cfg.Worker.ConfirmationGraceSeconds)*time.Second),
		)
		g.Go(func() error {
			return jobs.Run(ctx, nil)
		})
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("server error")
	}
	logger.Info("server stopped")
}
