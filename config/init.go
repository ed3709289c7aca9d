package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/unimailhq/unimail/internal/database"
	"github.com/unimailhq/unimail/internal/logger"
	"github.com/unimailhq/unimail/internal/tracing"
)

type Config struct {
	AppConfig            *AppConfig
	Logger               *logger.Config
	Tracing              *tracing.JaegerConfig
	DatabaseConfig       *database.DatabaseConfig
	VaultConfig          *VaultConfig
	RateLimitConfig      *RateLimitConfig
	CacheConfig          *CacheConfig
	GoogleOAuthConfig    *GoogleOAuthConfig
	MicrosoftOAuthConfig *MicrosoftOAuthConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:            &AppConfig{},
		Logger:               &logger.Config{},
		Tracing:              &tracing.JaegerConfig{},
		DatabaseConfig:       &database.DatabaseConfig{},
		VaultConfig:          &VaultConfig{},
		RateLimitConfig:      &RateLimitConfig{},
		CacheConfig:          &CacheConfig{},
		GoogleOAuthConfig:    &GoogleOAuthConfig{},
		MicrosoftOAuthConfig: &MicrosoftOAuthConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
