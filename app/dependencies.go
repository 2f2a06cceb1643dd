package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/upb/chatrooms/auth"
	"github.com/upb/chatrooms/config"
	"github.com/upb/chatrooms/handlers"
	"github.com/upb/chatrooms/middleware"
	"github.com/upb/chatrooms/models"
	"github.com/upb/chatrooms/repositories"
	"github.com/upb/chatrooms/repositories/postgres"
	"github.com/upb/chatrooms/services/access"
	"github.com/upb/chatrooms/services/audit"
	"github.com/upb/chatrooms/services/identity"
	"github.com/upb/chatrooms/services/oauth"
	"github.com/upb/chatrooms/services/password"
	"github.com/upb/chatrooms/services/rooms"
	"github.com/upb/chatrooms/services/token"
	"go.uber.org/zap"
)

// Version is stamped at build time with -ldflags "-X github.com/upb/chatrooms/app.Version=..."
var Version = "dev"

const auditStopTimeout = 5 * time.Second

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
	Users      repositories.UserRepository
	Rooms      repositories.RoomRepository
	AuthEvents repositories.AuthEventRepository
	TxManager  repositories.TransactionManager

	// Services
	Tokens    *token.Manager
	Resolver  *identity.Resolver
	Gate      *access.Gate
	Audit     *audit.Service
	Providers *oauth.Registry
	RoomSvc   *rooms.Service

	// HTTP
	AuthMiddleware   *middleware.AuthMiddleware
	AccessMiddleware *middleware.AccessMiddleware
	AuthHandler      *auth.Handler
	RoomHandler      *handlers.RoomHandler
	EventsHandler    *handlers.AuthEventHandler
	HealthHandler    *handlers.HealthHandler
}

// NewDependencies opens the database and redis connections and wires every
// component over them.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = redisClient.Close()
			_ = factory.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		logger.Info("redis connection established", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Warn("redis not configured, token revocation disabled")
	}

	deps, err := Build(ctx, cfg, factory, redisClient, logger)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// Build wires the application over already opened connections.
// redisClient may be nil.
func Build(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, redisClient *redis.Client, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		DB:          factory.GetDB(),
		Redis:       redisClient,
		Logger:      logger,
		RepoFactory: factory,
	}

	if err := deps.DB.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initServices(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initHTTP(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.Strings("oauth_providers", deps.Providers.Names()),
		zap.Bool("revocation", deps.Tokens.RevocationEnabled()),
		zap.Bool("audit", deps.Audit != nil))
	return deps, nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Users = repos.Users
	d.Rooms = repos.Rooms
	d.AuthEvents = repos.AuthEvents
	d.TxManager = d.RepoFactory.GetTransactionManager()
}

func (d *Dependencies) initServices(cfg *config.Config) error {
	var revoked token.RevocationList
	if d.Redis != nil {
		revoked = token.NewRedisRevocationList(d.Redis)
	}
	tokens, err := token.NewManager(token.Config{
		Secret: []byte(cfg.Token.Secret),
		TTL:    cfg.Token.TTL,
		Issuer: cfg.Token.Issuer,
	}, revoked)
	if err != nil {
		return err
	}
	d.Tokens = tokens

	d.Resolver = identity.NewResolver(d.Users, d.Rooms, password.NewHasher(cfg.Identity.BcryptCost), identity.Config{
		StoreTimeout:          cfg.Identity.StoreTimeout,
		DiscriminatorAttempts: cfg.Identity.DiscriminatorAttempts,
		AppendOnLink:          appendOnLink(cfg.OAuth),
	}, d.Logger.Named("identity"))

	d.Gate = access.NewDefaultGate()
	d.Providers = oauth.NewRegistry(cfg.OAuth, d.Logger)
	d.RoomSvc = rooms.NewService(d.Rooms, d.TxManager, d.Logger.Named("rooms"))

	if cfg.Audit.Enabled {
		d.Audit = audit.NewService(d.AuthEvents, d.Logger, audit.Config{
			BufferSize:  cfg.Audit.BufferSize,
			WorkerCount: cfg.Audit.Workers,
		})
		if err := d.Audit.Start(); err != nil {
			return fmt.Errorf("failed to start audit service: %w", err)
		}
	}
	return nil
}

func (d *Dependencies) initHTTP(cfg *config.Config) {
	var events middleware.EventRecorder
	if d.Audit != nil {
		events = d.Audit
	}

	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Tokens, identity.NewTokenSessionStrategy(d.Resolver), d.Logger)
	d.AccessMiddleware = middleware.NewAccessMiddleware(d.Gate, events, d.Logger)

	oauthStrategies := make(map[string]identity.Strategy)
	for _, name := range d.Providers.Names() {
		oauthStrategies[name] = identity.NewOAuthStrategy(d.Resolver, name)
	}
	d.AuthHandler = auth.NewHandler(
		identity.NewLocalSignupStrategy(d.Resolver),
		identity.NewLocalLoginStrategy(d.Resolver),
		oauthStrategies,
		d.Tokens,
		d.Providers,
		events,
		auth.Options{SecureCookies: cfg.IsProduction(), FrontEndURL: cfg.OAuth.FrontEndURL},
		d.Logger,
	)

	d.RoomHandler = handlers.NewRoomHandler(d.RoomSvc, d.Logger)
	d.EventsHandler = handlers.NewAuthEventHandler(d.AuthEvents, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB.DB, d.Redis, d.status, d.Logger)
}

func (d *Dependencies) status() handlers.StatusResponse {
	resp := handlers.StatusResponse{
		Service:           "chatrooms",
		Version:           Version,
		Environment:       d.Config.Environment,
		OAuthProviders:    d.Providers.Names(),
		RevocationEnabled: d.Tokens.RevocationEnabled(),
	}
	if d.Audit != nil {
		resp.AuditEventsDropped = d.Audit.GetStats().Dropped
	}
	return resp
}

func appendOnLink(cfg config.OAuthConfig) map[string]bool {
	legacy := make(map[string]bool)
	if cfg.Facebook.AppendOnLink {
		legacy[models.ProviderFacebook] = true
	}
	if cfg.Google.AppendOnLink {
		legacy[models.ProviderGoogle] = true
	}
	return legacy
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Drain queued auth events before the pool goes away
	if d.Audit != nil {
		timeout := auditStopTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.Audit.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
		d.Audit = nil
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
		d.Redis = nil
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}

	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
