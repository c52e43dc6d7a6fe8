// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type StoreBackend string

const (
	BackendMemory   StoreBackend = "memory"
	BackendPostgres StoreBackend = "postgres"
	BackendMongo    StoreBackend = "mongo"
)

// Config is the full process configuration.
type Config struct {
	Server       Server
	Auth         Auth
	Store        Store
	Redis        RedisConfig
	Kafka        Kafka
	Email        Email
	Notification Notification
	Donation     Donation
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string
}

func (s Server) IsDevelopment() bool {
	return s.Environment == "development"
}

type Auth struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
}

type Store struct {
	Backend       StoreBackend
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
}

// RedisConfig configures the verification cache client. An empty URL
// disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Kafka struct {
	Brokers           []string
	NotificationTopic string
}

type Email struct {
	APIURL string
	APIKey string
	From   string
}

type Notification struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	RetryDelay   time.Duration
}

type Donation struct {
	RequireVerifiedNGO bool
	NGOCacheTTL        time.Duration
	FoodMinLead        time.Duration
}

// FromEnv loads an optional .env file and builds Config from environment
// variables. Malformed values are reported together.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	r := &reader{}
	cfg := Config{
		Server: Server{
			Addr:        r.str("GIVEBRIDGE_ADDR", ":8080"),
			Environment: r.str("ENVIRONMENT", "development"),
			LogLevel:    r.str("LOG_LEVEL", "info"),
		},
		Auth: Auth{
			JWTSigningKey: r.str("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     r.str("JWT_ISSUER", "givebridge"),
			JWTAudience:   r.str("JWT_AUDIENCE", "givebridge-api"),
		},
		Store: Store{
			Backend:       StoreBackend(strings.ToLower(r.str("STORE_BACKEND", string(BackendMemory)))),
			DatabaseURL:   r.str("DATABASE_URL", ""),
			MongoURI:      r.str("MONGO_URI", ""),
			MongoDatabase: r.str("MONGO_DATABASE", "givebridge"),
		},
		Redis: RedisConfig{
			URL:          r.str("REDIS_URL", ""),
			PoolSize:     r.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: r.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  r.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  r.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: r.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:           r.list("KAFKA_BROKERS"),
			NotificationTopic: r.str("KAFKA_NOTIFICATION_TOPIC", "givebridge.donation-lifecycle"),
		},
		Email: Email{
			APIURL: r.str("EMAIL_API_URL", ""),
			APIKey: r.str("EMAIL_API_KEY", ""),
			From:   r.str("EMAIL_FROM", "no-reply@givebridge.org"),
		},
		Notification: Notification{
			PollInterval: r.duration("NOTIFY_POLL_INTERVAL", 2*time.Second),
			BatchSize:    r.integer("NOTIFY_BATCH_SIZE", 50),
			MaxAttempts:  r.integer("NOTIFY_MAX_ATTEMPTS", 5),
			RetryDelay:   r.duration("NOTIFY_RETRY_DELAY", 30*time.Second),
		},
		Donation: Donation{
			RequireVerifiedNGO: r.boolean("REQUIRE_VERIFIED_NGO", false),
			NGOCacheTTL:        r.duration("NGO_CACHE_TTL", 5*time.Minute),
			FoodMinLead:        r.duration("FOOD_MIN_LEAD", 3*time.Hour),
		},
	}
	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	case BackendMongo:
		if c.Store.MongoURI == "" {
			return errors.New("MONGO_URI is required when STORE_BACKEND=mongo")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if !c.Server.IsDevelopment() && c.Auth.JWTSigningKey == "dev-secret-key-change-in-production" {
		return errors.New("JWT_SIGNING_KEY must be set outside development")
	}
	return nil
}

// reader collects parse failures so every bad key is reported at once.
type reader struct {
	errs []error
}

func (r *reader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		r.errs = append(r.errs, fmt.Errorf("%s must be a positive integer, got %q", key, raw))
		return def
	}
	return v
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		r.errs = append(r.errs, fmt.Errorf("%s must be a positive duration, got %q", key, raw))
		return def
	}
	return v
}

func (r *reader) boolean(key string, def bool) bool {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be a boolean, got %q", key, raw))
		return def
	}
	return v
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(r.str(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
