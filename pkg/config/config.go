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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Masking       MaskingConfig
	Grants        GrantConfig
	Retention     RetentionConfig
	AuthRateLimit AuthRateLimitConfig
	Flags         FeatureFlagsConfig
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
	Env          string `envconfig:"GALLERYVE_APP_ENV" required:"true"`
	Port         string `envconfig:"GALLERYVE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GALLERYVE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GALLERYVE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GALLERYVE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GALLERYVE_DB_DSN"`
	Driver string `envconfig:"GALLERYVE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GALLERYVE_DB_HOST"`
	LegacyPort     int    `envconfig:"GALLERYVE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GALLERYVE_DB_USER"`
	LegacyPassword string `envconfig:"GALLERYVE_DB_PASSWORD"`
	LegacyName     string `envconfig:"GALLERYVE_DB_NAME"`
	LegacySSLMode  string `envconfig:"GALLERYVE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GALLERYVE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GALLERYVE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GALLERYVE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GALLERYVE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GALLERYVE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GALLERYVE_REDIS_ADDR"`
	Password     string        `envconfig:"GALLERYVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GALLERYVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GALLERYVE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GALLERYVE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GALLERYVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GALLERYVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GALLERYVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GALLERYVE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GALLERYVE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"GALLERYVE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"GALLERYVE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GALLERYVE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GALLERYVE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GALLERYVE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GALLERYVE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GALLERYVE_ARGON_KEY_LEN" default:"32"`
}

// MaskingConfig tunes how redacted amounts render.
type MaskingConfig struct {
	CurrencySuffix string `envconfig:"GALLERYVE_MASKING_CURRENCY_SUFFIX" default:"KRW"`
}

// GrantConfig carries access-request defaults.
type GrantConfig struct {
	DefaultDurationHours int `envconfig:"GALLERYVE_GRANT_DEFAULT_DURATION_HOURS" default:"24"`
}

// RetentionConfig drives the scheduled purge jobs. Expiry itself is always
// computed from timestamps; these windows only bound how long dead rows
// stay around for audit.
type RetentionConfig struct {
	ExpiredGrantAge time.Duration `envconfig:"GALLERYVE_RETENTION_EXPIRED_GRANT_AGE" default:"2160h"`
	SoftDeletedAge  time.Duration `envconfig:"GALLERYVE_RETENTION_SOFT_DELETED_AGE" default:"720h"`
	AuditLogAge     time.Duration `envconfig:"GALLERYVE_RETENTION_AUDIT_LOG_AGE" default:"8760h"`
	SweepInterval   time.Duration `envconfig:"GALLERYVE_RETENTION_SWEEP_INTERVAL" default:"24h"`
	PurgeBatchSize  int           `envconfig:"GALLERYVE_RETENTION_PURGE_BATCH_SIZE" default:"500"`
}

// AuthRateLimitConfig throttles credential-bearing endpoints. Zero
// limits disable the corresponding counter.
type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"GALLERYVE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit    int           `envconfig:"GALLERYVE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit int           `envconfig:"GALLERYVE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GALLERYVE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GALLERYVE_AUTO_MIGRATE" default:"false"`
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
