package config

const EnvPrefix = "HOSTELHUB"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv         = "HOSTELHUB_APP_ENV"
	EnvPort           = "HOSTELHUB_APP_PORT"
	EnvStoreBackend   = "HOSTELHUB_STORE_BACKEND"
	EnvStorePath      = "HOSTELHUB_STORE_PATH"
	EnvDBDSN          = "HOSTELHUB_DB_DSN"
	EnvDBDriver       = "HOSTELHUB_DB_DRIVER"
	EnvRedisURL       = "HOSTELHUB_REDIS_URL"
	EnvJWTSecret      = "HOSTELHUB_JWT_SECRET"
	EnvJWTIssuer      = "HOSTELHUB_JWT_ISSUER"
	EnvJWTExpMins     = "HOSTELHUB_JWT_EXPIRATION_MINUTES"
	EnvAllowedDomains = "HOSTELHUB_PROVISIONING_ALLOWED_DOMAINS"
	EnvPubSubTopic    = "HOSTELHUB_PUBSUB_EVENTS_TOPIC"
	EnvGCPProjectID   = "HOSTELHUB_GCP_PROJECT_ID"
)
