package config

// EnvPrefix is handed to envconfig; every field carries an explicit name so the
// prefix only matters for untagged fields.
const EnvPrefix = "WISHLIST"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv    = "WISHLIST_APP_ENV"
	EnvPort      = "WISHLIST_APP_PORT"
	EnvLogLevel  = "WISHLIST_LOG_LEVEL"
	EnvDBDSN     = "WISHLIST_DB_DSN"
	EnvDBDriver  = "WISHLIST_DB_DRIVER"
	EnvDBHost    = "WISHLIST_DB_HOST"
	EnvDBUser    = "WISHLIST_DB_USER"
	EnvDBName    = "WISHLIST_DB_NAME"
	EnvDBPass    = "WISHLIST_DB_PASSWORD"
	EnvRedisURL  = "WISHLIST_REDIS_URL"
	EnvSecret    = "WISHLIST_SESSION_SECRET"
	EnvProxyKey  = "WISHLIST_PROXY_SHARED_SECRET"
	EnvProxyPath = "WISHLIST_PROXY_MOUNT_PATH"
	EnvRateMax   = "WISHLIST_PROXY_RATE_LIMIT_MAX"
	EnvCORS      = "WISHLIST_CORS_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
