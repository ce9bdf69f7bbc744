package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "CANTEEN"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv        = "CANTEEN_APP_ENV"
	EnvPort          = "CANTEEN_APP_PORT"
	EnvCORSOrigins   = "CANTEEN_CORS_ORIGINS"
	EnvDBDSN         = "CANTEEN_DB_DSN"
	EnvDBHost        = "CANTEEN_DB_HOST"
	EnvDBPort        = "CANTEEN_DB_PORT"
	EnvDBUser        = "CANTEEN_DB_USER"
	EnvDBPassword    = "CANTEEN_DB_PASSWORD"
	EnvDBName        = "CANTEEN_DB_NAME"
	EnvDBLockTimeout = "CANTEEN_DB_LOCK_TIMEOUT"
	EnvRedisURL      = "CANTEEN_REDIS_URL"
	EnvRedisAddr     = "CANTEEN_REDIS_ADDR"
	EnvJWTSecret     = "CANTEEN_JWT_SECRET"
	EnvJWTIssuer     = "CANTEEN_JWT_ISSUER"
	EnvJWTExpMins    = "CANTEEN_JWT_EXPIRATION_MINUTES"
	EnvKafkaBrokers  = "CANTEEN_KAFKA_BROKERS"
	EnvSeedTags      = "CANTEEN_SEED_TAGS"
)
