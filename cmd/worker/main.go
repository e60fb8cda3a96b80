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
	"github.com/Domenick1991/tripbooking/internal/service/draft"
	"github.com/Domenick1991/tripbooking/internal/service/link"
	"github.com/Domenick1991/tripbooking/internal/token"
	"github.com/Domenick1991/tripbooking/internal/worker"
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
	if cfg.Storage.Driver == config.StorageDriverMemory {
		logger.Fatal("the worker needs shared storage; the app runs the jobs itself with the memory driver")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("open storage")
	}
	defer storage.Close()

	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		redisCache = cache.NewRedisCache(cfg.Redis)
		defer redisCache.Close()
	}

	var (
		producer *kafka.Producer
		source   worker.EventSource
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, logger)
		defer producer.Close()

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BookingEventsTopic)
		defer consumer.Close()
		source = consumer
	}

	linkService := link.NewLinkService(storage.Links, storage.Bookings, token.NewGenerator(), logger.WithField("component", "link"))
	dispatcher := bootstrap.NewDispatcher(cfg, storage, linkService, redisCache, producer, logger)

	// The sweep never reads offers; the gateway is only there to satisfy the service.
	gateway := offer.NewHTTPGateway(cfg.Offer.BaseURL, cfg.Offer.APIKey, time.Duration(cfg.Offer.TimeoutSeconds)*time.Second)
	var draftOpts []draft.DraftServiceOption
	if producer != nil {
		draftOpts = append(draftOpts, draft.WithProducer(producer, cfg.Kafka.BookingEventsTopic))
	}
	draftService := draft.NewDraftService(storage.Drafts, storage.Bookings, gateway, logger.WithField("component", "draft"), draftOpts...)

	jobs := worker.New(draftService, storage.Bookings, dispatcher, logger.WithField("component", "worker"),
		worker.WithSweepInterval(time.Duration(cfg.Worker.ExpirationSweepMinutes)*time.Minute),
		worker.WithRetryInterval(time.Duration(cfg.Worker.ConfirmationRetrySeconds)*time.Second),
		worker.WithRetryGrace(time.Duration(cfg.Worker.ConfirmationGraceSeconds)*time.Second),
	)

	logger.Info("worker started")
	if err := jobs.Run(ctx, source); err != nil {
		logger.WithError(err).Fatal("worker stopped")
	}
	logger.Info("worker stopped")
}
