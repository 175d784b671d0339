package config

const (
	EnvPrefix = "MERCADITO"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv                 = "MERCADITO_APP_ENV"
	EnvPort                   = "MERCADITO_APP_PORT"
	EnvDBDSN                  = "MERCADITO_DB_DSN"
	EnvDBHost                 = "MERCADITO_DB_HOST"
	EnvDBUser                 = "MERCADITO_DB_USER"
	EnvDBName                 = "MERCADITO_DB_NAME"
	EnvRedisURL               = "MERCADITO_REDIS_URL"
	EnvJWTSecret              = "MERCADITO_JWT_SECRET"
	EnvJWTIssuer              = "MERCADITO_JWT_ISSUER"
	EnvJWTExpMins             = "MERCADITO_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "MERCADITO_REFRESH_TOKEN_TTL_MINUTES"
	EnvMPClientID             = "MERCADITO_MP_CLIENT_ID"
	EnvMPClientSecret         = "MERCADITO_MP_CLIENT_SECRET"
	EnvDeviceToken            = "MERCADITO_DEVICE_TOKEN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
