package config

// EnvPrefix is the envconfig prefix for all application settings.
const EnvPrefix = "BAZARLY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv     = "BAZARLY_APP_ENV"
	EnvPort       = "BAZARLY_APP_PORT"
	EnvDBDSN      = "BAZARLY_DB_DSN"
	EnvDBHost     = "BAZARLY_DB_HOST"
	EnvDBUser     = "BAZARLY_DB_USER"
	EnvDBName     = "BAZARLY_DB_NAME"
	EnvRedisURL   = "BAZARLY_REDIS_URL"
	EnvJWTSecret  = "BAZARLY_JWT_SECRET"
	EnvJWTIssuer  = "BAZARLY_JWT_ISSUER"
	EnvJWTExpMins = "BAZARLY_JWT_EXPIRATION_MINUTES"
	EnvS3Bucket   = "BAZARLY_S3_BUCKET"
)

var componentDBEnvVars = []string{
	EnvDBHost,
	EnvDBUser,
	EnvDBName,
}
