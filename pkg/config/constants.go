package config

// EnvPrefix is passed to envconfig; individual fields carry fully
// qualified names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "GALLERYVE_APP_ENV"
	EnvPort                   = "GALLERYVE_APP_PORT"
	EnvDBDSN                  = "GALLERYVE_DB_DSN"
	EnvDBHost                 = "GALLERYVE_DB_HOST"
	EnvDBUser                 = "GALLERYVE_DB_USER"
	EnvDBName                 = "GALLERYVE_DB_NAME"
	EnvRedisURL               = "GALLERYVE_REDIS_URL"
	EnvJWTSecret              = "GALLERYVE_JWT_SECRET"
	EnvJWTIssuer              = "GALLERYVE_JWT_ISSUER"
	EnvJWTExpMins             = "GALLERYVE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "GALLERYVE_REFRESH_TOKEN_TTL_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
