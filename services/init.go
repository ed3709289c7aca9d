package services

import (
	"time"

	"github.com/pkg/errors"

	"github.com/unimailhq/unimail/config"
	"github.com/unimailhq/unimail/interfaces"
	"github.com/unimailhq/unimail/internal/cache"
	"github.com/unimailhq/unimail/internal/crypto"
	"github.com/unimailhq/unimail/internal/enum"
	"github.com/unimailhq/unimail/internal/logger"
	"github.com/unimailhq/unimail/internal/ratelimit"
	"github.com/unimailhq/unimail/internal/repository"
	"github.com/unimailhq/unimail/services/credentials"
	"github.com/unimailhq/unimail/services/events"
	"github.com/unimailhq/unimail/services/gmail"
	"github.com/unimailhq/unimail/services/imapmail"
	"github.com/unimailhq/unimail/services/mail"
	"github.com/unimailhq/unimail/services/outlook"
)

// Services is the wired service graph handed to the API layer and the cron
// scheduler.
type Services struct {
	Vault             *crypto.Vault
	RateLimiter       *ratelimit.Limiter
	MessageCache      *cache.MessageCache
	CredentialService interfaces.CredentialService
	Providers         map[enum.MailProvider]interfaces.MailProvider
	MailService       interfaces.MailService
	EventPublisher    interfaces.MailEventPublisher
}

func InitServices(cfg *config.Config, repositories *repository.Repositories, log logger.Logger) (*Services, error) {
	vault, err := crypto.NewVault(cfg.VaultConfig.TokenEncryptionKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize credential vault")
	}

	limiter := ratelimit.NewLimiter(
		cfg.RateLimitConfig.MaxRequests,
		time.Duration(cfg.RateLimitConfig.WindowSeconds)*time.Second,
	)
	messageCache := cache.NewMessageCache(
		time.Duration(cfg.CacheConfig.MessageTTLSeconds)*time.Second,
		time.Duration(cfg.CacheConfig.SummaryTTLSeconds)*time.Second,
	)

	credentialService := credentials.NewCredentialService(
		vault,
		repositories,
		cfg.GoogleOAuthConfig,
		cfg.MicrosoftOAuthConfig,
		log,
	)

	providers := map[enum.MailProvider]interfaces.MailProvider{
		enum.ProviderGmail:   gmail.NewGmailProvider(credentialService, log),
		enum.ProviderOutlook: outlook.NewOutlookProvider(credentialService, log),
		enum.ProviderIMAP:    imapmail.NewIMAPProvider(credentialService, log),
	}

	var publisher interfaces.MailEventPublisher
	if cfg.AppConfig.RabbitMQURL != "" {
		publisher = events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log)
	}

	mailService := mail.NewMailService(
		repositories.MailAccountRepository,
		providers,
		limiter,
		messageCache,
		publisher,
		log,
	)

	return &Services{
		Vault:             vault,
		RateLimiter:       limiter,
		MessageCache:      messageCache,
		CredentialService: credentialService,
		Providers:         providers,
		MailService:       mailService,
		EventPublisher:    publisher,
	}, nil
}

// Close releases long-lived resources, currently only the event publisher.
func (s *Services) Close() {
	if s.EventPublisher != nil {
		_ = s.EventPublisher.Close()
	}
}
