package infrastructure

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"knowledge-assist/chat-api/internal/config"
	"knowledge-assist/chat-api/internal/infrastructure/auth"
	"knowledge-assist/chat-api/internal/infrastructure/crontab"
	"knowledge-assist/chat-api/internal/infrastructure/database"
	"knowledge-assist/chat-api/internal/infrastructure/database/repository"
	"knowledge-assist/chat-api/internal/infrastructure/engine"
	"knowledge-assist/chat-api/internal/infrastructure/logger"
)

// ProvideConfig loads and provides the application configuration
func ProvideConfig() (*config.Config, error) {
	return config.Load()
}

// ProvideSessionValidator provides the session token validator
func ProvideSessionValidator(cfg *config.Config, log zerolog.Logger) *auth.SessionValidator {
	return auth.NewSessionValidator(
		cfg.SessionSecret,
		cfg.SessionIssuer,
		cfg.SessionAudience,
		cfg.AuthClockSkew,
		log,
	)
}

// ProvideDatabase provides a database connection
func ProvideDatabase(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	// Run migrations if AUTO_MIGRATE is enabled
	if cfg.AutoMigrate {
		log.Info().Msg("Running database migrations...")
		if err := database.AutoMigrate(cfg.DatabaseURL); err != nil {
			log.Error().Err(err).Msg("Failed to run database migrations")
			return nil, err
		}
		log.Info().Msg("Database migrations completed successfully")
	}

	return database.NewDB(cfg.DatabaseURL)
}

// Infrastructure holds all infrastructure dependencies
type Infrastructure struct {
	DB               *gorm.DB
	SessionValidator *auth.SessionValidator
	Logger           zerolog.Logger
}

// NewInfrastructure creates a new infrastructure instance
func NewInfrastructure(
	db *gorm.DB,
	sessionValidator *auth.SessionValidator,
	logger zerolog.Logger,
) *Infrastructure {
	return &Infrastructure{
		DB:               db,
		SessionValidator: sessionValidator,
		Logger:           logger,
	}
}

// InfrastructureProvider provides all infrastructure dependencies
var InfrastructureProvider = wire.NewSet(
	// Config
	ProvideConfig,

	// Database
	ProvideDatabase,

	// Repositories
	repository.RepositoryProvider,

	// Answer engine client
	engine.NewClient,

	// Logger
	logger.GetLogger,

	// Auth
	ProvideSessionValidator,

	// Crontab for the provisional chunk janitor
	crontab.NewCrontab,

	// Infrastructure struct
	NewInfrastructure,
)
