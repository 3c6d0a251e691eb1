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
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.App.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ADSPACE_APP_ENV" required:"true"`
	Port         string `envconfig:"ADSPACE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ADSPACE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ADSPACE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"ADSPACE_LOG_FORMAT" default:"json"`
	TimeZone     string `envconfig:"ADSPACE_APP_TIMEZONE" default:"UTC"`
	// CORSOrigins overrides the default allowed origins when set.
	CORSOrigins []string `envconfig:"ADSPACE_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the time zone "today" is computed in.
func (a AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.TimeZone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", name, err)
	}
	return loc, nil
}

type DBConfig struct {
	DSN string `envconfig:"ADSPACE_DB_DSN"`

	LegacyHost     string `envconfig:"ADSPACE_DB_HOST"`
	LegacyPort     int    `envconfig:"ADSPACE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ADSPACE_DB_USER"`
	LegacyPassword string `envconfig:"ADSPACE_DB_PASSWORD"`
	LegacyName     string `envconfig:"ADSPACE_DB_NAME"`
	LegacySSLMode  string `envconfig:"ADSPACE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ADSPACE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ADSPACE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ADSPACE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ADSPACE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the threshold above which statements are logged at warn.
	SlowQuery time.Duration `envconfig:"ADSPACE_DB_SLOW_QUERY" default:"250ms"`
	// TxRetries bounds re-runs of a transaction aborted by a serialization
	// failure or deadlock.
	TxRetries int `envconfig:"ADSPACE_DB_TX_RETRIES" default:"2"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ADSPACE_REDIS_URL"`
	Address      string        `envconfig:"ADSPACE_REDIS_ADDR"`
	Password     string        `envconfig:"ADSPACE_REDIS_PASSWORD"`
	DB           int           `envconfig:"ADSPACE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ADSPACE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ADSPACE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ADSPACE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ADSPACE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ADSPACE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ADSPACE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ADSPACE_JWT_ISSUER" default:"adspace"`
	ExpirationMinutes      int    `envconfig:"ADSPACE_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"ADSPACE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ADSPACE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ADSPACE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ADSPACE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ADSPACE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ADSPACE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"ADSPACE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"ADSPACE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"ADSPACE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"ADSPACE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"ADSPACE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"ADSPACE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ADSPACE_AUTO_MIGRATE" default:"false"`
	// EchoInternalErrors controls whether 500 responses carry the raw cause.
	EchoInternalErrors bool `envconfig:"ADSPACE_ECHO_INTERNAL_ERRORS" default:"true"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"ADSPACE_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"ADSPACE_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	SettlementTopic string `envconfig:"ADSPACE_PUBSUB_SETTLEMENT_TOPIC" default:"adspace-settlement-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ADSPACE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ADSPACE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ADSPACE_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
