package config

const (
	EnvPrefix = "AGGREGATOR"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "AGGREGATOR_APP_ENV"
	EnvPort   = "AGGREGATOR_APP_PORT"

	EnvDBDSN  = "AGGREGATOR_DB_DSN"
	EnvDBHost = "AGGREGATOR_DB_HOST"
	EnvDBUser = "AGGREGATOR_DB_USER"
	EnvDBName = "AGGREGATOR_DB_NAME"

	EnvRedisURL = "AGGREGATOR_REDIS_URL"

	EnvProviderAPIKey         = "AGGREGATOR_PROVIDER_API_KEY"
	EnvProviderTotalTimeout   = "AGGREGATOR_PROVIDER_TOTAL_TIMEOUT"
	EnvProviderConnectTimeout = "AGGREGATOR_PROVIDER_CONNECT_TIMEOUT"

	EnvNotificationBaseURL = "AGGREGATOR_NOTIFICATION_BASE_URL"
	EnvNotificationAPIKey  = "AGGREGATOR_NOTIFICATION_API_KEY"

	EnvSyncInterval = "AGGREGATOR_SYNC_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
