package container

import (
	"context"
	"time"

	"appcore/internal/config"
	"appcore/internal/repository"
	"appcore/internal/service"
	"appcore/pkg/auth"
	"appcore/pkg/httpclient"
	"appcore/pkg/logger"
	"appcore/pkg/redis"
)

// Container is the process composition root. Every collaborator is an
// explicitly constructed instance wired here; nothing in the application
// reaches for ambient singletons.
type Container struct {
	Config        *config.Config
	Logger        *logger.Logger
	Repository    repository.Repository
	RedisClient   *redis.Client
	PostgresRepo  *repository.PostgresRepository
	APIClient     *httpclient.Client
	PaywallClient *httpclient.Client
	TokenManager  *auth.TokenManager
	Services      *service.Services
}

// New creates a new dependency injection container
func New(cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: log,
	}

	repo, err := c.buildRepository(cfg, log)
	if err != nil {
		return nil, err
	}
	c.Repository = repo

	c.APIClient = httpclient.New(httpclient.Config{
		BaseURL:       cfg.APIBaseURL,
		Timeout:       cfg.RequestTimeout,
		APIKey:        cfg.APIKey,
		EnableLogging: cfg.HTTPLogging,
	}, log)

	c.PaywallClient = httpclient.New(httpclient.Config{
		BaseURL:       cfg.PaywallBaseURL,
		Timeout:       cfg.RequestTimeout,
		EnableLogging: cfg.HTTPLogging,
	}, log)

	c.TokenManager = auth.NewTokenManager(cfg.JWTSecret, "appcore", cfg.SessionTokenTTL)

	var sender service.NotificationSender
	if cfg.PushGatewayURL != "" {
		pushClient := httpclient.New(httpclient.Config{
			BaseURL:       cfg.PushGatewayURL,
			Timeout:       cfg.RequestTimeout,
			EnableLogging: cfg.HTTPLogging,
		}, log)
		sender = service.NewPushGatewaySender(pushClient, log)
	} else {
		sender = service.NewLogSender(log)
	}

	notifications := service.NewNotificationService(sender, repo, log)
	paywall := service.NewPaywallService(c.PaywallClient, repo, log)
	session := service.NewSessionService(repo, c.APIClient, notifications, paywall, log)

	c.Services = &service.Services{
		Session:       session,
		Notifications: notifications,
		Paywall:       paywall,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if !cfg.NotificationsEnabled {
		if err := notifications.SetEnabled(ctx, false); err != nil {
			log.WithError(err).Warn("Failed to disable notification campaigns")
		}
	} else if err := notifications.Resume(ctx); err != nil {
		log.WithError(err).Warn("Failed to resume notification campaign")
	}

	if cfg.PaywallAPIKey != "" {
		if err := paywall.Configure(ctx, cfg.PaywallAPIKey, cfg.PaywallDebug); err != nil {
			log.WithError(err).Warn("Failed to configure paywall service")
		}
	} else {
		log.Info("Paywall API key not configured, paywall calls will fail until configured")
	}

	return c, nil
}

// buildRepository selects the persistence backend: explicit selector first,
// then postgres, then redis, then the in-memory fallback.
func (c *Container) buildRepository(cfg *config.Config, log *logger.Logger) (repository.Repository, error) {
	backend := cfg.StorageBackend
	if backend == "" {
		switch {
		case cfg.DatabaseURL != "":
			backend = "postgres"
		case cfg.RedisURL != "":
			backend = "redis"
		default:
			backend = "memory"
		}
	}

	switch backend {
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		c.PostgresRepo = repo
		log.Info("Using postgres persistence backend")
		return repo, nil
	case "redis":
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			return nil, err
		}
		c.RedisClient = client
		log.Info("Using redis persistence backend")
		return repository.NewRedisRepository(client), nil
	default:
		log.Info("Using in-memory persistence backend")
		return repository.NewMemoryRepository(), nil
	}
}

// GetSessionService returns the session service
func (c *Container) GetSessionService() service.SessionService {
	return c.Services.Session
}

// GetNotificationService returns the notification service
func (c *Container) GetNotificationService() service.NotificationService {
	return c.Services.Notifications
}

// GetPaywallService returns the paywall service
func (c *Container) GetPaywallService() service.PaywallService {
	return c.Services.Paywall
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetTokenManager returns the session token manager
func (c *Container) GetTokenManager() *auth.TokenManager {
	return c.TokenManager
}

// Close releases backend connections held by the container
func (c *Container) Close() error {
	if c.PostgresRepo != nil {
		c.PostgresRepo.Close()
	}
	if c.RedisClient != nil {
		return c.RedisClient.Close()
	}
	return nil
}
