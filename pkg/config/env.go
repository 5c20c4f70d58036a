package config

const EnvPrefix = "WORKBOARD"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	BusBackendMemory = "memory"
	BusBackendRedis  = "redis"
	BusBackendGCP    = "gcp"
)

const DefaultSQLiteDSN = "file:workboard.db?_foreign_keys=on"

const (
	EnvAppEnv             = "WORKBOARD_APP_ENV"
	EnvPort               = "WORKBOARD_APP_PORT"
	EnvDBDSN              = "WORKBOARD_DB_DSN"
	EnvDBHost             = "WORKBOARD_DB_HOST"
	EnvDBUser             = "WORKBOARD_DB_USER"
	EnvDBName             = "WORKBOARD_DB_NAME"
	EnvDBPassword         = "WORKBOARD_DB_PASSWORD"
	EnvRedisURL           = "WORKBOARD_REDIS_URL"
	EnvRedisAddr          = "WORKBOARD_REDIS_ADDR"
	EnvJWTSecret          = "WORKBOARD_JWT_SECRET"
	EnvJWTIssuer          = "WORKBOARD_JWT_ISSUER"
	EnvUseSQLite          = "WORKBOARD_USE_SQLITE"
	EnvBusBackend         = "WORKBOARD_BUS_BACKEND"
	EnvGCPProjectID       = "WORKBOARD_GCP_PROJECT_ID"
	EnvPubSubTopic        = "WORKBOARD_PUBSUB_TOPIC"
	EnvPubSubSubscription = "WORKBOARD_PUBSUB_SUBSCRIPTION"
	EnvReconnectDelay     = "WORKBOARD_REALTIME_RECONNECT_DELAY"
	EnvUnassignedLimit    = "WORKBOARD_BOARD_UNASSIGNED_LIMIT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
