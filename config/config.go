package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Offer    OfferConfig    `yaml:"offer"`
	Profiles ProfileConfig  `yaml:"profiles"`
	Email    EmailConfig    `yaml:"email"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address       string   `yaml:"address"`
	SwaggerDir    string   `yaml:"swagger_dir"`
	AllowOrigins  []string `yaml:"allow_origins"`
	WebhookSecret string   `yaml:"webhook_secret"`
	GuestBaseURL  string   `yaml:"guest_base_url"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	Migrate  bool   `yaml:"migrate"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	EmailRelayTopic    string   `yaml:"email_relay_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	DraftTTLMinutes      int `yaml:"draft_ttl_minutes"`
	LinkTTLHours         int `yaml:"link_ttl_hours"`
	OfferCacheTTLSeconds int `yaml:"offer_cache_ttl_seconds"`
	SendLockTTLSeconds   int `yaml:"send_lock_ttl_seconds"`
	SendClaimTTLSeconds  int `yaml:"send_claim_ttl_seconds"`
}

func (b BookingConfig) DraftTTL() time.Duration {
	return time.Duration(b.DraftTTLMinutes) * time.Minute
}

func (b BookingConfig) LinkTTL() time.Duration {
	return time.Duration(b.LinkTTLHours) * time.Hour
}

func (b BookingConfig) OfferCacheTTL() time.Duration {
	return time.Duration(b.OfferCacheTTLSeconds) * time.Second
}

func (b BookingConfig) SendLockTTL() time.Duration {
	return time.Duration(b.SendLockTTLSeconds) * time.Second
}

func (b BookingConfig) SendClaimTTL() time.Duration {
	return time.Duration(b.SendClaimTTLSeconds) * time.Second
}

type OfferConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RateLimitMs    int    `yaml:"rate_limit_ms"`
}

// ProfileConfig points at the traveler profile service. Profile checks are
// skipped when BaseURL is empty.
type ProfileConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type EmailConfig struct {
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_password"`
}

func (e EmailConfig) SMTPEnabled() bool {
	return e.SMTPHost != "" && e.SMTPPort > 0
}

type WorkerConfig struct {
	ExpirationSweepMinutes   int `yaml:"expiration_sweep_minutes"`
	ConfirmationRetrySeconds int `yaml:"confirmation_retry_seconds"`
	ConfirmationGraceSeconds int `yaml:"confirmation_grace_seconds"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func LoadConfig(path string) (*Config, error) {
	// .env is optional; a missing file is not an error
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML, overlays secrets from the environment and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overlay := map[string]*string{
		"DB_PASSWORD":            &c.Database.Password,
		"REDIS_PASSWORD":         &c.Redis.Password,
		"SMTP_PASSWORD":          &c.Email.SMTPPass,
		"OFFER_API_KEY":          &c.Offer.APIKey,
		"PAYMENT_WEBHOOK_SECRET": &c.HTTP.WebhookSecret,
	}
	for env, dst := range overlay {
		if v, ok := os.LookupEnv(env); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageDriverPostgres
	}
	if c.Booking.LinkTTLHours == 0 {
		c.Booking.LinkTTLHours = 30 * 24
	}
	if c.Booking.OfferCacheTTLSeconds == 0 {
		c.Booking.OfferCacheTTLSeconds = 60
	}
	if c.Booking.SendLockTTLSeconds == 0 {
		c.Booking.SendLockTTLSeconds = 60
	}
	if c.Booking.SendClaimTTLSeconds == 0 {
		c.Booking.SendClaimTTLSeconds = 300
	}
	if c.Offer.TimeoutSeconds == 0 {
		c.Offer.TimeoutSeconds = 10
	}
	if c.Kafka.BookingEventsTopic == "" {
		c.Kafka.BookingEventsTopic = "booking_events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "booking-notifier"
	}
	if c.Worker.ExpirationSweepMinutes == 0 {
		c.Worker.ExpirationSweepMinutes = 5
	}
	if c.Worker.ConfirmationRetrySeconds == 0 {
		c.Worker.ConfirmationRetrySeconds = 60
	}
	if c.Worker.ConfirmationGraceSeconds == 0 {
		c.Worker.ConfirmationGraceSeconds = 120
	}
	if c.Profiles.TimeoutSeconds == 0 {
		c.Profiles.TimeoutSeconds = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Booking.DraftTTLMinutes < 0 || c.Booking.LinkTTLHours < 0 {
		return errors.New("booking ttls must not be negative")
	}
	if c.Email.From == "" {
		return errors.New("email.from is required")
	}
	return nil
}
