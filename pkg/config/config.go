package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Authz        AuthzConfig
	FeatureFlags FeatureFlagsConfig
	Bus          BusConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Realtime     RealtimeConfig
	Board        BoardConfig
	HTTP         HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Bus.validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WORKBOARD_APP_ENV" required:"true"`
	Port         string `envconfig:"WORKBOARD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WORKBOARD_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"WORKBOARD_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"WORKBOARD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"WORKBOARD_DB_DSN"`
	Driver string `envconfig:"WORKBOARD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WORKBOARD_DB_HOST"`
	LegacyPort     int    `envconfig:"WORKBOARD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WORKBOARD_DB_USER"`
	LegacyPassword string `envconfig:"WORKBOARD_DB_PASSWORD"`
	LegacyName     string `envconfig:"WORKBOARD_DB_NAME"`
	LegacySSLMode  string `envconfig:"WORKBOARD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WORKBOARD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WORKBOARD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WORKBOARD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WORKBOARD_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQueryThreshold logs statements slower than this as warnings.
	// Zero disables slow query logging.
	SlowQueryThreshold time.Duration `envconfig:"WORKBOARD_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`

	// ConnectRetries bounds the startup pings made while the database is
	// still coming up.
	ConnectRetries int `envconfig:"WORKBOARD_DB_CONNECT_RETRIES" default:"5"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WORKBOARD_REDIS_URL"`
	Address      string        `envconfig:"WORKBOARD_REDIS_ADDR"`
	Password     string        `envconfig:"WORKBOARD_REDIS_PASSWORD"`
	DB           int           `envconfig:"WORKBOARD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WORKBOARD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WORKBOARD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WORKBOARD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WORKBOARD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WORKBOARD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint has been configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"WORKBOARD_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"WORKBOARD_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"WORKBOARD_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AuthzConfig points at optional casbin model/policy files. When empty the
// built-in work board model and role policy are used.
type AuthzConfig struct {
	ModelPath  string `envconfig:"WORKBOARD_AUTHZ_MODEL_PATH"`
	PolicyPath string `envconfig:"WORKBOARD_AUTHZ_POLICY_PATH"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WORKBOARD_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WORKBOARD_AUTO_MIGRATE" default:"false"`
}

type BusConfig struct {
	Backend string `envconfig:"WORKBOARD_BUS_BACKEND" default:"memory"`
	Channel string `envconfig:"WORKBOARD_BUS_CHANNEL" default:"workboard"`
	Buffer  int    `envconfig:"WORKBOARD_BUS_BUFFER" default:"64"`
}

func (b BusConfig) validate(cfg Config) error {
	switch strings.ToLower(strings.TrimSpace(b.Backend)) {
	case BusBackendMemory:
		return nil
	case BusBackendRedis:
		if !cfg.Redis.Enabled() {
			return fmt.Errorf("%s=redis requires %s or %s", EnvBusBackend, EnvRedisURL, EnvRedisAddr)
		}
		return nil
	case BusBackendGCP:
		if strings.TrimSpace(cfg.GCP.ProjectID) == "" {
			return fmt.Errorf("%s=gcp requires %s", EnvBusBackend, EnvGCPProjectID)
		}
		if strings.TrimSpace(cfg.PubSub.Topic) == "" || strings.TrimSpace(cfg.PubSub.Subscription) == "" {
			return fmt.Errorf("%s=gcp requires %s and %s", EnvBusBackend, EnvPubSubTopic, EnvPubSubSubscription)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvBusBackend, b.Backend)
	}
}

type GCPConfig struct {
	ProjectID string `envconfig:"WORKBOARD_GCP_PROJECT_ID"`
}

// PubSubConfig names the topic every api instance publishes board events to
// and the subscription this instance consumes. Each instance needs its own
// subscription so that every instance sees every event. With
// CreateSubscription set, a missing subscription is created on startup and
// expires after SubscriptionTTL without subscribers.
type PubSubConfig struct {
	Topic              string        `envconfig:"WORKBOARD_PUBSUB_TOPIC" default:"workboard-events"`
	Subscription       string        `envconfig:"WORKBOARD_PUBSUB_SUBSCRIPTION"`
	CreateSubscription bool          `envconfig:"WORKBOARD_PUBSUB_CREATE_SUBSCRIPTION" default:"false"`
	SubscriptionTTL    time.Duration `envconfig:"WORKBOARD_PUBSUB_SUBSCRIPTION_TTL" default:"24h"`
	AckDeadline        time.Duration `envconfig:"WORKBOARD_PUBSUB_ACK_DEADLINE" default:"10s"`
}

type RealtimeConfig struct {
	PingInterval   time.Duration `envconfig:"WORKBOARD_REALTIME_PING_INTERVAL" default:"30s"`
	PongWait       time.Duration `envconfig:"WORKBOARD_REALTIME_PONG_WAIT" default:"60s"`
	WriteWait      time.Duration `envconfig:"WORKBOARD_REALTIME_WRITE_WAIT" default:"10s"`
	SendBuffer     int           `envconfig:"WORKBOARD_REALTIME_SEND_BUFFER" default:"32"`
	ReconnectDelay time.Duration `envconfig:"WORKBOARD_REALTIME_RECONNECT_DELAY" default:"3s"`
	AllowedOrigins []string      `envconfig:"WORKBOARD_REALTIME_ALLOWED_ORIGINS"`
}

type BoardConfig struct {
	UnassignedLimit int `envconfig:"WORKBOARD_BOARD_UNASSIGNED_LIMIT" default:"50"`
}

type HTTPConfig struct {
	ClientTimeout time.Duration `envconfig:"WORKBOARD_HTTP_CLIENT_TIMEOUT" default:"15s"`
	CORSOrigins   []string      `envconfig:"WORKBOARD_CORS_ORIGINS" default:"http://localhost:3000"`
	// MutationRateLimit caps board mutations per user per window. Zero
	// disables the limit; it also needs redis.
	MutationRateLimit  int           `envconfig:"WORKBOARD_HTTP_MUTATION_RATE_LIMIT" default:"0"`
	MutationRateWindow time.Duration `envconfig:"WORKBOARD_HTTP_MUTATION_RATE_WINDOW" default:"1m"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = DefaultSQLiteDSN
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
