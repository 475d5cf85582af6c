package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Cron          CronConfig
	Media         MediaConfig
	S3            S3Config
	Esewa         EsewaConfig
	Khalti        KhaltiConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Orders        OrdersConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BAZARLY_APP_ENV" required:"true"`
	Port         string `envconfig:"BAZARLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BAZARLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAZARLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BAZARLY_DB_DSN"`
	Driver string `envconfig:"BAZARLY_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"BAZARLY_DB_HOST"`
	Port     int    `envconfig:"BAZARLY_DB_PORT" default:"5432"`
	User     string `envconfig:"BAZARLY_DB_USER"`
	Password string `envconfig:"BAZARLY_DB_PASSWORD"`
	Name     string `envconfig:"BAZARLY_DB_NAME"`
	SSLMode  string `envconfig:"BAZARLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAZARLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZARLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZARLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZARLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZARLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BAZARLY_REDIS_ADDR"`
	Password     string        `envconfig:"BAZARLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZARLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZARLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZARLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZARLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZARLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZARLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BAZARLY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BAZARLY_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"BAZARLY_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"BAZARLY_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BAZARLY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BAZARLY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BAZARLY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BAZARLY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BAZARLY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BAZARLY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"BAZARLY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BAZARLY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BAZARLY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"BAZARLY_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BAZARLY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BAZARLY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BAZARLY_AUTO_MIGRATE" default:"false"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"BAZARLY_CRON_INTERVAL" default:"15m"`
	LockTTL               time.Duration `envconfig:"BAZARLY_CRON_LOCK_TTL" default:"30m"`
	StalePendingOrderAge  time.Duration `envconfig:"BAZARLY_CRON_STALE_PENDING_ORDER_AGE" default:"24h"`
	ReadNotificationAge   time.Duration `envconfig:"BAZARLY_CRON_READ_NOTIFICATION_AGE" default:"720h"`
	MetricsListenAddr     string        `envconfig:"BAZARLY_CRON_METRICS_ADDR" default:":9102"`
	DisableStaleOrderJob  bool          `envconfig:"BAZARLY_CRON_DISABLE_STALE_ORDER_JOB" default:"false"`
	DisableTokenPurgeJob  bool          `envconfig:"BAZARLY_CRON_DISABLE_TOKEN_PURGE_JOB" default:"false"`
	DisableNotifPruneJob  bool          `envconfig:"BAZARLY_CRON_DISABLE_NOTIF_PRUNE_JOB" default:"false"`
}

type MediaConfig struct {
	MaxUploadBytes int64 `envconfig:"BAZARLY_MEDIA_MAX_UPLOAD_BYTES" default:"5242880"`
	MaxFiles       int   `envconfig:"BAZARLY_MEDIA_MAX_FILES" default:"5"`
}

type S3Config struct {
	Bucket    string `envconfig:"BAZARLY_S3_BUCKET" required:"true"`
	Region    string `envconfig:"BAZARLY_S3_REGION" default:"ap-south-1"`
	AccessKey string `envconfig:"BAZARLY_S3_ACCESS_KEY"`
	SecretKey string `envconfig:"BAZARLY_S3_SECRET_KEY"`
	Endpoint  string `envconfig:"BAZARLY_S3_ENDPOINT"`
	PublicURL string `envconfig:"BAZARLY_S3_PUBLIC_URL"`
}

type EsewaConfig struct {
	MerchantCode string `envconfig:"BAZARLY_ESEWA_MERCHANT_CODE"`
	SecretKey    string `envconfig:"BAZARLY_ESEWA_SECRET_KEY"`
	BaseURL      string `envconfig:"BAZARLY_ESEWA_BASE_URL" default:"https://rc-epay.esewa.com.np"`
	ReturnURL    string `envconfig:"BAZARLY_ESEWA_RETURN_URL"`
}

type KhaltiConfig struct {
	SecretKey string `envconfig:"BAZARLY_KHALTI_SECRET_KEY"`
	BaseURL   string `envconfig:"BAZARLY_KHALTI_BASE_URL" default:"https://dev.khalti.com/api/v2"`
	ReturnURL string `envconfig:"BAZARLY_KHALTI_RETURN_URL"`
}

type PubSubConfig struct {
	ProjectID          string `envconfig:"BAZARLY_PUBSUB_PROJECT_ID"`
	EventsTopic        string `envconfig:"BAZARLY_PUBSUB_EVENTS_TOPIC" default:"bazarly-domain-events"`
	EventsSubscription string `envconfig:"BAZARLY_PUBSUB_EVENTS_SUBSCRIPTION" default:"bazarly-domain-events-api"`
}

type OrdersConfig struct {
	ShippingFee string `envconfig:"BAZARLY_ORDERS_SHIPPING_FEE" default:"100"`
}

type OutboxConfig struct {
	BatchSize         int    `envconfig:"BAZARLY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS    int    `envconfig:"BAZARLY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts       int    `envconfig:"BAZARLY_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsListenAddr string `envconfig:"BAZARLY_OUTBOX_METRICS_ADDR" default:":9103"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range componentDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
