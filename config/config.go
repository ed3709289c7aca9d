package config

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"11000"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type VaultConfig struct {
	// TokenEncryptionKey is the 64-hex-character AES-256 key guarding
	// provider credentials at rest.
	TokenEncryptionKey string `env:"TOKEN_ENCRYPTION_KEY"`
}

type RateLimitConfig struct {
	MaxRequests   int `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"30"`
	WindowSeconds int `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
}

type CacheConfig struct {
	MessageTTLSeconds int `env:"CACHE_MESSAGE_TTL_SECONDS" envDefault:"300"`
	SummaryTTLSeconds int `env:"CACHE_SUMMARY_TTL_SECONDS" envDefault:"60"`
}

type GoogleOAuthConfig struct {
	ClientID     string `env:"GOOGLE_OAUTH_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_OAUTH_CLIENT_SECRET"`
}

type MicrosoftOAuthConfig struct {
	ClientID     string `env:"MICROSOFT_OAUTH_CLIENT_ID"`
	ClientSecret string `env:"MICROSOFT_OAUTH_CLIENT_SECRET"`
	TenantID     string `env:"MICROSOFT_OAUTH_TENANT_ID" envDefault:"common"`
}
