package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "FIELDSTOCK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "FIELDSTOCK_DB_DSN"
	EnvDBHost = "FIELDSTOCK_DB_HOST"
	EnvDBUser = "FIELDSTOCK_DB_USER"
	EnvDBName = "FIELDSTOCK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Approval     ApprovalConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"FIELDSTOCK_APP_ENV" required:"true"`
	Port         string `envconfig:"FIELDSTOCK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FIELDSTOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FIELDSTOCK_LOG_WARN_STACK" default:"false"`
}

type ServiceConfig struct {
	Kind string `envconfig:"FIELDSTOCK_SERVICE_KIND" default:"api"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FIELDSTOCK_DB_DSN"`
	Driver string `envconfig:"FIELDSTOCK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FIELDSTOCK_DB_HOST"`
	LegacyPort     int    `envconfig:"FIELDSTOCK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FIELDSTOCK_DB_USER"`
	LegacyPassword string `envconfig:"FIELDSTOCK_DB_PASSWORD"`
	LegacyName     string `envconfig:"FIELDSTOCK_DB_NAME"`
	LegacySSLMode  string `envconfig:"FIELDSTOCK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FIELDSTOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FIELDSTOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FIELDSTOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FIELDSTOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FIELDSTOCK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FIELDSTOCK_REDIS_ADDR"`
	Password     string        `envconfig:"FIELDSTOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"FIELDSTOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FIELDSTOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FIELDSTOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FIELDSTOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FIELDSTOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FIELDSTOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FIELDSTOCK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FIELDSTOCK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FIELDSTOCK_JWT_EXPIRATION_MINUTES" default:"60"`
}

// ApprovalConfig tunes the compare-and-set retry loop the approval gate runs
// when concurrent approvals touch the same holding.
type ApprovalConfig struct {
	MaxRetries   int           `envconfig:"FIELDSTOCK_APPROVAL_MAX_RETRIES" default:"5"`
	RetryBackoff time.Duration `envconfig:"FIELDSTOCK_APPROVAL_RETRY_BACKOFF" default:"25ms"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FIELDSTOCK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FIELDSTOCK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"FIELDSTOCK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FIELDSTOCK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	UsageTopic        string `envconfig:"FIELDSTOCK_PUBSUB_USAGE_TOPIC" default:"fs-usage-events"`
	UsageSubscription string `envconfig:"FIELDSTOCK_PUBSUB_USAGE_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset         string `envconfig:"FIELDSTOCK_BIGQUERY_DATASET" default:"fieldstock"`
	UsageFactsTable string `envconfig:"FIELDSTOCK_BIGQUERY_USAGE_FACTS_TABLE" default:"usage_facts"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FIELDSTOCK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FIELDSTOCK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FIELDSTOCK_OUTBOX_MAX_ATTEMPTS" default:"10"`

	IdempotencyTTL time.Duration `envconfig:"FIELDSTOCK_OUTBOX_IDEMPOTENCY_TTL" default:"720h"`
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
