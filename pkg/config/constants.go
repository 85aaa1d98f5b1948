package config

const (
	EnvPrefix = "BACKOFFICE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "BACKOFFICE_APP_ENV"
	EnvPort      = "BACKOFFICE_APP_PORT"
	EnvDBDSN     = "BACKOFFICE_DB_DSN"
	EnvDBHost    = "BACKOFFICE_DB_HOST"
	EnvDBUser    = "BACKOFFICE_DB_USER"
	EnvDBName    = "BACKOFFICE_DB_NAME"
	EnvRedisURL  = "BACKOFFICE_REDIS_URL"
	EnvJWTSecret = "BACKOFFICE_JWT_SECRET"
	EnvJWTIssuer = "BACKOFFICE_JWT_ISSUER"
	EnvJWTExp    = "BACKOFFICE_JWT_EXPIRATION_MINUTES"

	EnvLowStockThreshold = "BACKOFFICE_LOW_STOCK_THRESHOLD"
	EnvPaymentCurrency   = "BACKOFFICE_PAYMENT_CURRENCY"
	EnvGCSBucket         = "BACKOFFICE_GCS_BUCKET_NAME"
	EnvStripeSecretKey   = "BACKOFFICE_STRIPE_SECRET_KEY"
)
