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
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	MercadoPago  MercadoPagoConfig
	Device       DeviceConfig
	Scan         ScanConfig
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
	Env          string `envconfig:"MERCADITO_APP_ENV" required:"true"`
	Port         string `envconfig:"MERCADITO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MERCADITO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MERCADITO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MERCADITO_DB_DSN"`
	Driver string `envconfig:"MERCADITO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MERCADITO_DB_HOST"`
	LegacyPort     int    `envconfig:"MERCADITO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MERCADITO_DB_USER"`
	LegacyPassword string `envconfig:"MERCADITO_DB_PASSWORD"`
	LegacyName     string `envconfig:"MERCADITO_DB_NAME"`
	LegacySSLMode  string `envconfig:"MERCADITO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MERCADITO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MERCADITO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MERCADITO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MERCADITO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MERCADITO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MERCADITO_REDIS_ADDR"`
	Password     string        `envconfig:"MERCADITO_REDIS_PASSWORD"`
	DB           int           `envconfig:"MERCADITO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MERCADITO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MERCADITO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MERCADITO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MERCADITO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MERCADITO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"MERCADITO_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"MERCADITO_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"MERCADITO_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"MERCADITO_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MERCADITO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MERCADITO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MERCADITO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MERCADITO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MERCADITO_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MERCADITO_AUTO_MIGRATE" default:"false"`
}

// MercadoPagoConfig carries the PIX provider credentials. The access token is
// minted at runtime via the OAuth client-credentials flow, never configured.
type MercadoPagoConfig struct {
	ClientID     string        `envconfig:"MERCADITO_MP_CLIENT_ID" required:"true"`
	ClientSecret string        `envconfig:"MERCADITO_MP_CLIENT_SECRET" required:"true"`
	BaseURL      string        `envconfig:"MERCADITO_MP_BASE_URL" default:"https://api.mercadopago.com"`
	HTTPTimeout  time.Duration `envconfig:"MERCADITO_MP_HTTP_TIMEOUT" default:"15s"`
}

type DeviceConfig struct {
	Token string `envconfig:"MERCADITO_DEVICE_TOKEN" required:"true"`
}

type ScanConfig struct {
	ResolveTimeout time.Duration `envconfig:"MERCADITO_SCAN_RESOLVE_TIMEOUT" default:"60s"`
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
