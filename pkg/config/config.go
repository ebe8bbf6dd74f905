package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/angelmondragon/events-aggregator/pkg/httpclient"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Provider     ProviderConfig
	Notification NotificationConfig
	Jobs         JobsConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if err := c.Provider.Timeouts().Validate(); err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	if err := c.Notification.Timeouts().Validate(); err != nil {
		return fmt.Errorf("notification: %w", err)
	}
	if c.Jobs.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}
	return nil
}

type AppConfig struct {
	Env             string        `envconfig:"AGGREGATOR_APP_ENV" required:"true"`
	Port            string        `envconfig:"AGGREGATOR_APP_PORT" default:"8080"`
	LogLevel        string        `envconfig:"AGGREGATOR_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"AGGREGATOR_LOG_WARN_STACK" default:"false"`
	LogFormat       string        `envconfig:"AGGREGATOR_LOG_FORMAT" default:"json"`
	ShutdownTimeout time.Duration `envconfig:"AGGREGATOR_SHUTDOWN_TIMEOUT" default:"30s"`

	CORSAllowedOrigins []string `envconfig:"AGGREGATOR_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"AGGREGATOR_DB_DSN"`

	LegacyHost     string `envconfig:"AGGREGATOR_DB_HOST"`
	LegacyPort     int    `envconfig:"AGGREGATOR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AGGREGATOR_DB_USER"`
	LegacyPassword string `envconfig:"AGGREGATOR_DB_PASSWORD"`
	LegacyName     string `envconfig:"AGGREGATOR_DB_NAME"`
	LegacySSLMode  string `envconfig:"AGGREGATOR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGGREGATOR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGGREGATOR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGGREGATOR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGGREGATOR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"AGGREGATOR_DB_SLOW_QUERY" default:"500ms"`
}

// RedisConfig is optional; without a URL or address the seat cache stays in process.
type RedisConfig struct {
	URL          string        `envconfig:"AGGREGATOR_REDIS_URL"`
	Address      string        `envconfig:"AGGREGATOR_REDIS_ADDR"`
	Password     string        `envconfig:"AGGREGATOR_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGGREGATOR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGGREGATOR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGGREGATOR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGGREGATOR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGGREGATOR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGGREGATOR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type ProviderConfig struct {
	BaseURL        string        `envconfig:"AGGREGATOR_PROVIDER_BASE_URL" default:"http://events-provider.dev-1.python-labs.ru"`
	APIKey         string        `envconfig:"AGGREGATOR_PROVIDER_API_KEY" required:"true"`
	TotalTimeout   time.Duration `envconfig:"AGGREGATOR_PROVIDER_TOTAL_TIMEOUT" default:"10s"`
	ConnectTimeout time.Duration `envconfig:"AGGREGATOR_PROVIDER_CONNECT_TIMEOUT" default:"5s"`
	MaxAttempts    int           `envconfig:"AGGREGATOR_PROVIDER_MAX_ATTEMPTS" default:"3"`
	RetryBase      time.Duration `envconfig:"AGGREGATOR_PROVIDER_RETRY_BASE" default:"200ms"`
}

func (p ProviderConfig) Timeouts() Timeouts {
	return Timeouts{Total: p.TotalTimeout, Connect: p.ConnectTimeout}
}

type NotificationConfig struct {
	BaseURL        string        `envconfig:"AGGREGATOR_NOTIFICATION_BASE_URL" required:"true"`
	APIKey         string        `envconfig:"AGGREGATOR_NOTIFICATION_API_KEY" required:"true"`
	TotalTimeout   time.Duration `envconfig:"AGGREGATOR_NOTIFICATION_TOTAL_TIMEOUT" default:"60s"`
	ConnectTimeout time.Duration `envconfig:"AGGREGATOR_NOTIFICATION_CONNECT_TIMEOUT" default:"15s"`
	MaxAttempts    int           `envconfig:"AGGREGATOR_NOTIFICATION_MAX_ATTEMPTS" default:"3"`
	RetryBase      time.Duration `envconfig:"AGGREGATOR_NOTIFICATION_RETRY_BASE" default:"500ms"`
}

func (n NotificationConfig) Timeouts() Timeouts {
	return Timeouts{Total: n.TotalTimeout, Connect: n.ConnectTimeout}
}

// Timeouts pairs the whole-request and dial budgets of an outbound HTTP client.
type Timeouts = httpclient.Timeouts

type JobsConfig struct {
	SyncInterval       time.Duration `envconfig:"AGGREGATOR_SYNC_INTERVAL" default:"24h"`
	OutboxInterval     time.Duration `envconfig:"AGGREGATOR_OUTBOX_INTERVAL" default:"10s"`
	InboxSweepInterval time.Duration `envconfig:"AGGREGATOR_INBOX_SWEEP_INTERVAL" default:"1m"`
	InboxTTL           time.Duration `envconfig:"AGGREGATOR_INBOX_TTL" default:"24h"`
	SeatCacheTTL       time.Duration `envconfig:"AGGREGATOR_SEAT_CACHE_TTL" default:"30s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AGGREGATOR_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
