package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Domenick1991/tripbooking/config"
	"github.com/Domenick1991/tripbooking/internal/cache"
	"github.com/Domenick1991/tripbooking/internal/email"
	"github.com/Domenick1991/tripbooking/internal/kafka"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/Domenick1991/tripbooking/internal/service/notification"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

func NewLogger(cfg config.LogConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(level)
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}
	return logger, nil
}

type Storage struct {
	Drafts   repository.DraftRepository
	Bookings repository.BookingRepository
	Links    repository.LinkRepository
	Health   *HealthCheck
	close    func()
}

func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStorage connects to postgres, or builds an in-process store for the memory
// driver. The memory store is only shared inside one process.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		store := repository.NewMemoryStore()
		return &Storage{Drafts: store.Drafts(), Bookings: store.Bookings(), Links: store.Links()}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Database.Migrate {
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &Storage{
		Drafts:   repository.NewDraftRepository(pool),
		Bookings: repository.NewBookingRepository(pool),
		Links:    repository.NewLinkRepository(pool),
		Health:   &HealthCheck{Name: "postgres", Check: pool.Ping},
		close:    pool.Close,
	}, nil
}

// NewDispatcher picks SMTP when configured and the log provider otherwise. The
// relay topic, when set, becomes the fallback. redis and producer may be nil.
func NewDispatcher(
	cfg *config.Config,
	storage *Storage,
	links notification.LinkFinder,
	redis *cache.RedisCache,
	producer *kafka.Producer,
	logger logrus.FieldLogger,
) *notification.Dispatcher {
	var primary email.Provider = email.NewLogProvider(logger)
	if cfg.Email.SMTPEnabled() {
		primary = email.NewSMTPProvider(email.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUser,
			Password: cfg.Email.SMTPPass,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		})
	}

	opts := []notification.DispatcherOption{
		notification.WithGuestLinks(links, cfg.HTTP.GuestBaseURL),
		notification.WithClaimTTL(cfg.Booking.SendClaimTTL()),
	}
	if producer != nil && cfg.Kafka.EmailRelayTopic != "" {
		opts = append(opts, notification.WithFallback(email.NewRelayProvider(producer, cfg.Kafka.EmailRelayTopic)))
	}
	if redis != nil {
		opts = append(opts, notification.WithSendLock(redis, cfg.Booking.SendLockTTL()))
	}
	return notification.NewDispatcher(storage.Bookings, primary, logger.WithField("component", "notification"), opts...)
}
