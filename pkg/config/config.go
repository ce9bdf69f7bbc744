package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
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
	Outbox        OutboxConfig
	Kafka         KafkaConfig
	Cron          CronConfig
}

// Load reads the CANTEEN_ environment. Callers load .env files first.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate reports every cross-field problem at once and fills the DSN from
// its parts when only those were given.
func (c *Config) validate() error {
	var errs []error
	if err := c.DB.resolveDSN(); err != nil {
		errs = append(errs, err)
	}
	if c.Redis.URL == "" && c.Redis.Address == "" {
		errs = append(errs, fmt.Errorf("either %s or %s is required", EnvRedisURL, EnvRedisAddr))
	}
	if c.JWT.TTL() == 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvJWTExpMins))
	}
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, fmt.Errorf("%s must list at least one broker", EnvKafkaBrokers))
	}
	return errors.Join(errs...)
}

type AppConfig struct {
	Env          string   `envconfig:"CANTEEN_APP_ENV" required:"true"`
	Port         string   `envconfig:"CANTEEN_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"CANTEEN_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"CANTEEN_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"CANTEEN_CORS_ORIGINS" default:"http://localhost:3000"`

	// MetricsAddr is the listen address of the workers' /metrics endpoint.
	// Empty disables it.
	MetricsAddr string `envconfig:"CANTEEN_WORKER_METRICS_ADDR"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CANTEEN_DB_DSN"`
	Driver string `envconfig:"CANTEEN_DB_DRIVER" default:"postgres"`

	// Host and friends are only read when DSN is empty.
	Host     string `envconfig:"CANTEEN_DB_HOST"`
	Port     int    `envconfig:"CANTEEN_DB_PORT" default:"5432"`
	User     string `envconfig:"CANTEEN_DB_USER"`
	Password string `envconfig:"CANTEEN_DB_PASSWORD"`
	Name     string `envconfig:"CANTEEN_DB_NAME"`
	SSLMode  string `envconfig:"CANTEEN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CANTEEN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CANTEEN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CANTEEN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CANTEEN_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// LockTimeout bounds how long a transaction waits on a row lock before the
	// operation fails as busy.
	LockTimeout time.Duration `envconfig:"CANTEEN_DB_LOCK_TIMEOUT" default:"3s"`

	// SlowQueryThreshold logs statements that run longer at warn. Zero
	// disables slow query logging.
	SlowQueryThreshold time.Duration `envconfig:"CANTEEN_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CANTEEN_REDIS_URL"`
	Address      string        `envconfig:"CANTEEN_REDIS_ADDR"`
	Password     string        `envconfig:"CANTEEN_REDIS_PASSWORD"`
	DB           int           `envconfig:"CANTEEN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CANTEEN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CANTEEN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CANTEEN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CANTEEN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CANTEEN_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"CANTEEN_REDIS_KEY_PREFIX" default:"canteen"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CANTEEN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CANTEEN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CANTEEN_JWT_EXPIRATION_MINUTES" required:"true"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CANTEEN_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CANTEEN_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CANTEEN_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CANTEEN_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CANTEEN_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"CANTEEN_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"CANTEEN_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"CANTEEN_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CANTEEN_AUTO_MIGRATE" default:"false"`
	SeedTags    bool `envconfig:"CANTEEN_SEED_TAGS" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CANTEEN_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CANTEEN_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CANTEEN_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type KafkaConfig struct {
	Brokers           []string      `envconfig:"CANTEEN_KAFKA_BROKERS" default:"localhost:9092"`
	OrdersTopic       string        `envconfig:"CANTEEN_KAFKA_ORDERS_TOPIC" default:"canteen.orders"`
	NotificationTopic string        `envconfig:"CANTEEN_KAFKA_NOTIFICATION_TOPIC" default:"canteen.notifications"`
	InventoryTopic    string        `envconfig:"CANTEEN_KAFKA_INVENTORY_TOPIC" default:"canteen.inventory"`
	PaymentsTopic     string        `envconfig:"CANTEEN_KAFKA_PAYMENTS_TOPIC" default:"canteen.payments"`
	WriteTimeout      time.Duration `envconfig:"CANTEEN_KAFKA_WRITE_TIMEOUT" default:"10s"`
}

// CronConfig drives the maintenance jobs run by cmd/cron-worker.
type CronConfig struct {
	Interval                  time.Duration `envconfig:"CANTEEN_CRON_INTERVAL" default:"15m"`
	PendingOrderTTL           time.Duration `envconfig:"CANTEEN_CRON_PENDING_ORDER_TTL" default:"2h"`
	NotificationRetentionDays int           `envconfig:"CANTEEN_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
	OutboxRetentionDays       int           `envconfig:"CANTEEN_CRON_OUTBOX_RETENTION_DAYS" default:"14"`
	LockTTL                   time.Duration `envconfig:"CANTEEN_CRON_LOCK_TTL" default:"10m"`
}

func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	for name, value := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("either %s or %s is required", EnvDBDSN, strings.Join(missing, ", "))
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
