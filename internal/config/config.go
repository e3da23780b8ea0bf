package config

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Env  string `env:"APP_ENV" envDefault:"dev"`
	Port int    `env:"PORT" envDefault:"8080"`

	// Store selects the persistence gateway: "postgres" or "memory".
	Store        string        `env:"STORE" envDefault:"postgres"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"3s"`
	DBURL        string        `env:"DATABASE_URL"`
	DBHost       string        `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBPort       string        `env:"DB_PORT" envDefault:"5432"`
	DBUser       string        `env:"DB_USER" envDefault:"eventloop"`
	DBPassword   string        `env:"DB_PASSWORD" envDefault:"eventloop"`
	DBName       string        `env:"DB_NAME" envDefault:"eventloop"`
	DBSSLMode    string        `env:"DB_SSLMODE" envDefault:"disable"`
	DBMaxConns   int32         `env:"DB_MAX_CONNS" envDefault:"5"`
	AutoMigrate  bool          `env:"AUTO_MIGRATE" envDefault:"true"`

	JWTSecret  string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"720h"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RegisterLimit  int           `env:"REGISTER_RATE_LIMIT" envDefault:"10"`
	RegisterWindow time.Duration `env:"REGISTER_RATE_WINDOW" envDefault:"1h"`
	LoginRPS       float64       `env:"LOGIN_RATE_PER_SECOND" envDefault:"0.2"`
	LoginBurst     int           `env:"LOGIN_RATE_BURST" envDefault:"5"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`

	WorkerConcurrency  int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"500ms"`
	WorkerHealthPort   int           `env:"WORKER_HEALTH_PORT" envDefault:"8081"`
	// InProcessWorker runs the job worker inside the API process. Always on
	// with STORE=memory since nothing else can see that queue.
	InProcessWorker bool `env:"IN_PROCESS_WORKER" envDefault:"false"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"EventLoop <no-reply@eventloop.com>"`

	SeedStaffEmail    string `env:"SEED_STAFF_EMAIL" envDefault:"admin@eventloop.com"`
	SeedStaffPassword string `env:"SEED_STAFF_PASSWORD"`
	SeedStaffName     string `env:"SEED_STAFF_NAME" envDefault:"Admin User"`
	SeedUserEmail     string `env:"SEED_USER_EMAIL" envDefault:"user@example.com"`
	SeedUserPassword  string `env:"SEED_USER_PASSWORD"`
	SeedUserName      string `env:"SEED_USER_NAME" envDefault:"Regular User"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DBURL == "" {
		cfg.DBURL = cfg.buildDBURL()
	}

	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if cfg.Store == "memory" {
		cfg.InProcessWorker = true
	}

	if cfg.Env == "prod" && cfg.JWTSecret == "dev-secret-change-me" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set in prod")
	}

	return cfg, nil
}

func (c Config) buildDBURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// WithTimeout bounds a single store call. A nil parent is treated as
// context.Background.
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if duration <= 0 {
		duration = 3 * time.Second
	}
	return context.WithTimeout(parent, duration)
}
