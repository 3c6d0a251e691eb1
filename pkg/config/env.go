package config

import "os"

const (
	EnvPrefix = "ADSPACE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                 = "ADSPACE_APP_ENV"
	EnvPort                   = "ADSPACE_APP_PORT"
	EnvTimeZone               = "ADSPACE_APP_TIMEZONE"
	EnvDBDSN                  = "ADSPACE_DB_DSN"
	EnvDBHost                 = "ADSPACE_DB_HOST"
	EnvDBUser                 = "ADSPACE_DB_USER"
	EnvDBName                 = "ADSPACE_DB_NAME"
	EnvRedisURL               = "ADSPACE_REDIS_URL"
	EnvJWTSecret              = "ADSPACE_JWT_SECRET"
	EnvJWTIssuer              = "ADSPACE_JWT_ISSUER"
	EnvJWTExpMins             = "ADSPACE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "ADSPACE_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "ADSPACE_GCP_PROJECT_ID"
	EnvPubSubSettlementTopic  = "ADSPACE_PUBSUB_SETTLEMENT_TOPIC"
	EnvInstanceID             = "ADSPACE_INSTANCE_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

// EnvOr reads a variable outside the envconfig-managed Config, falling back
// when it is unset or blank.
func EnvOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
