package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	Store         StoreConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Auth          AuthConfig
	Provisioning  ProvisioningConfig
	Notifications NotificationsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if cfg.Store.Backend == StoreBackendSQL && strings.TrimSpace(cfg.DB.DSN) == "" {
		return nil, fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvStoreBackend, StoreBackendSQL)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HOSTELHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"HOSTELHUB_APP_PORT" default:"5000"`
	LogLevel     string `envconfig:"HOSTELHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HOSTELHUB_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"HOSTELHUB_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	return splitList(a.CORSOrigins)
}

type ServiceConfig struct {
	Kind string `envconfig:"HOSTELHUB_SERVICE_KIND" default:"api"`
}

const (
	StoreBackendFile = "file"
	StoreBackendSQL  = "sql"
)

type StoreConfig struct {
	Backend        string        `envconfig:"HOSTELHUB_STORE_BACKEND" default:"file"`
	Path           string        `envconfig:"HOSTELHUB_STORE_PATH" default:"data/hostel.json"`
	RepairAttempts int           `envconfig:"HOSTELHUB_STORE_REPAIR_ATTEMPTS" default:"64"`
	WriteTimeout   time.Duration `envconfig:"HOSTELHUB_STORE_WRITE_TIMEOUT" default:"10s"`
	QueueSize      int           `envconfig:"HOSTELHUB_STORE_QUEUE_SIZE" default:"256"`
}

func (s StoreConfig) validate() error {
	switch s.Backend {
	case StoreBackendFile:
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("%s is required for the file store", EnvStorePath)
		}
	case StoreBackendSQL:
	default:
		return fmt.Errorf("unsupported store backend %q", s.Backend)
	}
	return nil
}

type DBConfig struct {
	DSN    string `envconfig:"HOSTELHUB_DB_DSN"`
	Driver string `envconfig:"HOSTELHUB_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"HOSTELHUB_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"HOSTELHUB_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"HOSTELHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HOSTELHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional; an empty URL disables every redis-backed feature.
type RedisConfig struct {
	URL          string        `envconfig:"HOSTELHUB_REDIS_URL"`
	PoolSize     int           `envconfig:"HOSTELHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HOSTELHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HOSTELHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HOSTELHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HOSTELHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"HOSTELHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HOSTELHUB_JWT_ISSUER" default:"hostelhub"`
	ExpirationMinutes int    `envconfig:"HOSTELHUB_JWT_EXPIRATION_MINUTES" default:"720"`
}

func (j JWTConfig) Expiration() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"HOSTELHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"HOSTELHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"HOSTELHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"HOSTELHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"HOSTELHUB_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"HOSTELHUB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"HOSTELHUB_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"HOSTELHUB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type AuthConfig struct {
	MaxFailedLogins int `envconfig:"HOSTELHUB_AUTH_MAX_FAILED_LOGINS" default:"5"`
}

type ProvisioningConfig struct {
	DomainSuffix   string `envconfig:"HOSTELHUB_PROVISIONING_DOMAIN_SUFFIX" default:".com"`
	AllowedDomains string `envconfig:"HOSTELHUB_PROVISIONING_ALLOWED_DOMAINS"`
	TrialDays      int    `envconfig:"HOSTELHUB_PROVISIONING_TRIAL_DAYS" default:"30"`
	PasswordLength int    `envconfig:"HOSTELHUB_PROVISIONING_PASSWORD_LENGTH" default:"12"`
}

// AllowList returns the lower-cased login domains accepted for every hostel.
func (p ProvisioningConfig) AllowList() []string {
	items := splitList(p.AllowedDomains)
	for i, item := range items {
		items[i] = strings.ToLower(strings.TrimPrefix(item, "@"))
	}
	return items
}

func (p ProvisioningConfig) TrialLength() time.Duration {
	return time.Duration(p.TrialDays) * 24 * time.Hour
}

type NotificationsConfig struct {
	LogCapacity     int           `envconfig:"HOSTELHUB_NOTIFICATIONS_LOG_CAPACITY" default:"100"`
	LogRetention    time.Duration `envconfig:"HOSTELHUB_NOTIFICATIONS_LOG_RETENTION" default:"720h"`
	DeliveryTimeout time.Duration `envconfig:"HOSTELHUB_NOTIFICATIONS_DELIVERY_TIMEOUT" default:"5s"`
	RelayChannel    string        `envconfig:"HOSTELHUB_NOTIFICATIONS_RELAY_CHANNEL" default:"hostelhub:notifications"`
	FCMEnabled      bool          `envconfig:"HOSTELHUB_FCM_ENABLED" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"HOSTELHUB_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"HOSTELHUB_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"HOSTELHUB_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsTopic string `envconfig:"HOSTELHUB_PUBSUB_EVENTS_TOPIC"`
}

func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.EventsTopic) != ""
}

// BigQueryConfig enables the event analytics export when Dataset is set.
type BigQueryConfig struct {
	Dataset     string `envconfig:"HOSTELHUB_BIGQUERY_DATASET"`
	EventsTable string `envconfig:"HOSTELHUB_BIGQUERY_EVENTS_TABLE" default:"hostel_events"`
}

func (b BigQueryConfig) Enabled() bool {
	return strings.TrimSpace(b.Dataset) != ""
}

type CronConfig struct {
	Enabled  bool          `envconfig:"HOSTELHUB_CRON_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"HOSTELHUB_CRON_INTERVAL" default:"1h"`
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
