package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	PasswordReset PasswordResetConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Catalog       CatalogConfig
	Payment       PaymentConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Stripe        StripeConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.resolveDSN(); err != nil {
		return nil, err
	}
	cfg.Payment.Currency = strings.ToLower(strings.TrimSpace(cfg.Payment.Currency))
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"BACKOFFICE_APP_ENV" required:"true"`
	Port            string        `envconfig:"BACKOFFICE_APP_PORT" default:"3000"`
	LogLevel        string        `envconfig:"BACKOFFICE_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"BACKOFFICE_LOG_WARN_STACK" default:"false"`
	CORSOrigins     []string      `envconfig:"BACKOFFICE_CORS_ORIGINS" default:"*"`
	ReadTimeout     time.Duration `envconfig:"BACKOFFICE_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"BACKOFFICE_HTTP_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"BACKOFFICE_HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BACKOFFICE_SERVICE_KIND" default:"api"`
}

// DBConfig takes a DSN, or the discrete connection parts when DSN is blank.
type DBConfig struct {
	DSN    string `envconfig:"BACKOFFICE_DB_DSN"`
	Driver string `envconfig:"BACKOFFICE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"BACKOFFICE_DB_HOST"`
	Port     int    `envconfig:"BACKOFFICE_DB_PORT" default:"5432"`
	User     string `envconfig:"BACKOFFICE_DB_USER"`
	Password string `envconfig:"BACKOFFICE_DB_PASSWORD"`
	Name     string `envconfig:"BACKOFFICE_DB_NAME"`
	SSLMode  string `envconfig:"BACKOFFICE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BACKOFFICE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BACKOFFICE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BACKOFFICE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BACKOFFICE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"BACKOFFICE_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BACKOFFICE_REDIS_URL"`
	Address      string        `envconfig:"BACKOFFICE_REDIS_ADDR"`
	Password     string        `envconfig:"BACKOFFICE_REDIS_PASSWORD"`
	DB           int           `envconfig:"BACKOFFICE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BACKOFFICE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BACKOFFICE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BACKOFFICE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BACKOFFICE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BACKOFFICE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BACKOFFICE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BACKOFFICE_JWT_ISSUER" default:"backoffice-api"`
	ExpirationMinutes      int    `envconfig:"BACKOFFICE_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"BACKOFFICE_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BACKOFFICE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BACKOFFICE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BACKOFFICE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BACKOFFICE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BACKOFFICE_ARGON_KEY_LEN" default:"32"`
}

type PasswordResetConfig struct {
	TokenTTL time.Duration `envconfig:"BACKOFFICE_PASSWORD_RESET_TTL" default:"1h"`
	// URL is the front-end page that accepts ?token=; the raw token is sent when empty.
	URL string `envconfig:"BACKOFFICE_PASSWORD_RESET_URL"`
	// ProcessedTTL bounds how long the notification worker remembers handled events.
	ProcessedTTL time.Duration `envconfig:"BACKOFFICE_NOTIFICATION_PROCESSED_TTL" default:"72h"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BACKOFFICE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"BACKOFFICE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BACKOFFICE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BACKOFFICE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"BACKOFFICE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BACKOFFICE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BACKOFFICE_AUTO_MIGRATE" default:"false"`
	// DisableStorage skips GCS bootstrap; inventory creation then fails with an upstream error.
	DisableStorage bool `envconfig:"BACKOFFICE_DISABLE_STORAGE" default:"false"`
	DisablePayment bool `envconfig:"BACKOFFICE_DISABLE_PAYMENT" default:"false"`
}

type CatalogConfig struct {
	LowStockThreshold int `envconfig:"BACKOFFICE_LOW_STOCK_THRESHOLD" default:"10"`
}

type PaymentConfig struct {
	Currency       string        `envconfig:"BACKOFFICE_PAYMENT_CURRENCY" default:"usd"`
	Description    string        `envconfig:"BACKOFFICE_PAYMENT_DESCRIPTION" default:"Order payment"`
	IdempotencyTTL time.Duration `envconfig:"BACKOFFICE_PAYMENT_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BACKOFFICE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BACKOFFICE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BACKOFFICE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"BACKOFFICE_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"BACKOFFICE_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	ObjectPrefix  string `envconfig:"BACKOFFICE_GCS_OBJECT_PREFIX" default:"inventory"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"BACKOFFICE_MAX_UPLOAD_MB" default:"20"`
	MaxFiles    int `envconfig:"BACKOFFICE_MAX_UPLOAD_FILES" default:"10"`
}

// MaxUploadBytes returns the per-request multipart limit.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 20 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type PubSubConfig struct {
	OrdersTopic       string `envconfig:"BACKOFFICE_PUBSUB_ORDERS_TOPIC" default:"backoffice-order-events"`
	NotificationTopic string `envconfig:"BACKOFFICE_PUBSUB_NOTIFICATION_TOPIC" default:"backoffice-notification-events"`
	// NotificationSubscription is consumed by cmd/notification-worker.
	NotificationSubscription string `envconfig:"BACKOFFICE_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BACKOFFICE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BACKOFFICE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BACKOFFICE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	// MetricsPort serves /metrics from the publisher when set.
	MetricsPort string `envconfig:"BACKOFFICE_OUTBOX_METRICS_PORT"`
}

type StripeConfig struct {
	APIKey string `envconfig:"BACKOFFICE_STRIPE_SECRET_KEY"`
	Env    string `envconfig:"BACKOFFICE_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// resolveDSN builds a postgres URL from the discrete parts when no DSN is set.
func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}
	var missing []string
	for env, v := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if v == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}

// validate reports every out-of-range setting at once.
func (c *Config) validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf(format, args...))
		}
	}
	check(c.JWT.ExpirationMinutes > 0, "%s must be positive", EnvJWTExp)
	check(c.Catalog.LowStockThreshold >= 0, "%s must not be negative", EnvLowStockThreshold)
	check(len(c.Payment.Currency) == 3, "%s must be a 3-letter ISO code, got %q", EnvPaymentCurrency, c.Payment.Currency)
	check(c.Outbox.BatchSize > 0, "BACKOFFICE_OUTBOX_PUBLISH_BATCH_SIZE must be positive")
	check(c.Outbox.MaxAttempts > 0, "BACKOFFICE_OUTBOX_MAX_ATTEMPTS must be positive")
	switch env := c.Stripe.Environment(); env {
	case "test", "live":
	default:
		check(false, "BACKOFFICE_STRIPE_ENV must be test or live, got %q", env)
	}
	return err
}
