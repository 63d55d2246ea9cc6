package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/upb/smart-city-assistant/config"
	"github.com/upb/smart-city-assistant/jobs"
	"github.com/upb/smart-city-assistant/middleware"
	"github.com/upb/smart-city-assistant/repositories"
	"github.com/upb/smart-city-assistant/repositories/postgres"
	"github.com/upb/smart-city-assistant/services/announcements"
	"github.com/upb/smart-city-assistant/services/chat"
	"github.com/upb/smart-city-assistant/services/dashboard"
	"github.com/upb/smart-city-assistant/services/ecotips"
	"github.com/upb/smart-city-assistant/services/feedback"
	"github.com/upb/smart-city-assistant/services/identity"
	"github.com/upb/smart-city-assistant/services/llm"
	"github.com/upb/smart-city-assistant/services/policy"
	"github.com/upb/smart-city-assistant/services/ratelimit"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Redis  *redis.Client
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Subjects      repositories.SubjectRepository
	Feedback      repositories.FeedbackRepository
	Announcements repositories.AnnouncementRepository
	Chat          repositories.ChatRepository
	TxManager     repositories.TransactionManager

	// Text generation
	Gateway   *llm.Gateway
	Assistant *llm.Assistant

	// Services
	Identity            *identity.Service
	FeedbackService     *feedback.Service
	AnnouncementService *announcements.Service
	ChatService         *chat.Service
	PolicyService       *policy.Service
	EcoTipsService      *ecotips.Service
	DashboardService    *dashboard.Service

	// Cross-cutting
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    middleware.RateChecker
	Scheduler      *jobs.Scheduler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initIdentity(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize identity: %w", err)
	}

	deps.initGateway(ctx, cfg)
	deps.initServices()
	deps.initRateLimiter(ctx, cfg)

	if err := deps.initScheduler(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the pool, checks connectivity and applies migrations
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		_ = factory.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}

	if cfg.Database.RunMigrations {
		if err := factory.Migrate(ctx); err != nil {
			_ = factory.Close()
			return err
		}
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Subjects = repos.Subjects
	d.Feedback = repos.Feedback
	d.Announcements = repos.Announcements
	d.Chat = repos.Chat
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initIdentity(cfg *config.Config) error {
	if cfg.UsesDevSecret() {
		d.Logger.Warn("using development JWT secret; set JWT_SECRET outside development")
	}

	tokens, err := identity.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm)
	if err != nil {
		return err
	}

	d.Identity = identity.NewService(d.Subjects, d.TxManager, tokens, identity.Config{
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	}, d.Logger)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Identity, d.Logger)
	return nil
}

// initGateway builds the text-generation gateway. A missing or rejected
// API key leaves it without a credential; startup continues.
func (d *Dependencies) initGateway(ctx context.Context, cfg *config.Config) {
	w := cfg.Watsonx
	d.Gateway = llm.NewGateway(ctx, llm.Config{
		APIKey:          w.APIKey,
		ProjectID:       w.ProjectID,
		BaseURL:         w.URL,
		IAMURL:          w.IAMURL,
		PreferredModel:  w.ModelID,
		FallbackRanking: w.FallbackModels,
		IAMTimeout:      w.IAMTimeout,
		CatalogTimeout:  w.CatalogTimeout,
		GenerateTimeout: w.GenerateTimeout,
	}, &http.Client{}, d.Logger.Named("watsonx"))
	d.Assistant = llm.NewAssistant(d.Gateway)

	status := d.Gateway.Status()
	d.Logger.Info("text generation gateway ready",
		zap.Bool("has_credential", status.HasCredential),
		zap.String("model_id", status.ActiveModel),
		zap.Int("available_models", status.AvailableModels))
}

func (d *Dependencies) initServices() {
	d.FeedbackService = feedback.NewService(d.Feedback, d.Subjects, d.Logger)
	d.AnnouncementService = announcements.NewService(d.Announcements, d.Logger)
	d.ChatService = chat.NewService(d.Chat, d.Assistant, d.Logger)
	d.PolicyService = policy.NewService(d.Assistant, d.Logger)
	d.EcoTipsService = ecotips.NewService(d.Assistant)
	d.DashboardService = dashboard.NewService(d.Assistant, d.Logger)
}

// initRateLimiter prefers the shared Redis counter and falls back to an
// in-process bucket when Redis is not configured or unreachable.
func (d *Dependencies) initRateLimiter(ctx context.Context, cfg *config.Config) {
	limits := ratelimit.Config{
		Requests: cfg.Redis.RateLimitRequests,
		Window:   cfg.Redis.RateLimitWindow,
	}

	if cfg.Redis.Enabled() {
		client, err := ratelimit.NewRedisClient(ctx, cfg.Redis.URL, d.Logger)
		if err == nil {
			d.Redis = client
			d.RateLimiter = ratelimit.NewLimiter(client, limits, d.Logger)
			return
		}
		d.Logger.Warn("redis unavailable; using in-process rate limiting", zap.Error(err))
	}

	d.RateLimiter = ratelimit.NewLocalLimiter(limits)
	d.Logger.Info("in-process rate limiting enabled",
		zap.Int("requests", limits.Requests),
		zap.Duration("window", limits.Window))
}

func (d *Dependencies) initScheduler(cfg *config.Config) error {
	d.Scheduler = jobs.NewScheduler(d.Gateway, cfg.Watsonx.RefreshSchedule,
		cfg.Watsonx.IAMTimeout+cfg.Watsonx.CatalogTimeout, d.Logger.Named("jobs"))
	return d.Scheduler.Start()
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Scheduler != nil {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		d.Scheduler.Stop(stopCtx)
		cancel()
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
